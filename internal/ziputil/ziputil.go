// Package ziputil holds the reproducible-archive primitives shared by the
// bundle writer: fixed timestamps, safe entry names and typed entry writers.
package ziputil

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// FixedZipTime ensures byte-for-byte reproducible archives (1980-01-01 UTC).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// SanitizePath turns p into a relative, slash-separated entry name. Both
// separators are accepted, a drive letter is dropped and ".." never climbs
// above the archive root. An empty result becomes "entry".
func SanitizePath(p string) string {
	s := strings.ReplaceAll(p, "\\", "/")
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	var stack []string
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
		case "..":
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	if len(stack) == 0 {
		return "entry"
	}
	return strings.Join(stack, "/")
}

// EnsureUniqueName returns a unique name by appending -1, -2, ... when needed.
func EnsureUniqueName(name string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		used[name] = struct{}{}
		return name
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for n := 1; ; n++ {
		alt := fmt.Sprintf("%s-%d%s", base, n, ext)
		if _, ok := used[alt]; !ok {
			used[alt] = struct{}{}
			return alt
		}
	}
}

// WriteJSON writes a JSON-encoded value with fixed timestamp and mode.
func WriteJSON(zw *zip.Writer, name string, v any) error {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriteText writes raw text (bytes) entry with fixed timestamp.
func WriteText(zw *zip.Writer, name string, data []byte) error {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// CopyFromReader writes an entry from r without buffering it.
func CopyFromReader(zw *zip.Writer, name string, r io.Reader) error {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedZipTime
	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
