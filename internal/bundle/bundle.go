// Package bundle writes a review bundle for one workbook diff.
//
// The archive is reproducible and has the following layout:
//
//	manifest.json             # generator and snapshot digests
//	diff.json                 # the WorkbookDiff document
//	report.txt                # the rendered text report
//	patches/<name>.patch      # unified patches (sorted by name)
//	snapshots/before.automerge
//	snapshots/after.automerge # the compared snapshots, when provided
//
// Entry timestamps are fixed and names are sanitized, so identical input
// produces identical bytes.
package bundle

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"sheet-history/internal/delta"
	"sheet-history/internal/meta"
	"sheet-history/internal/sortutil"
	"sheet-history/internal/ziputil"
)

// Contents is everything that goes into one bundle.
type Contents struct {
	Diff delta.WorkbookDiff
	// Report is the text rendering of Diff.
	Report string
	// Patches maps slash-separated names (e.g. "cells/s1/B2") to patch bodies.
	Patches map[string]string
	// Before and After are the raw snapshots; nil ones are left out.
	Before, After []byte
	// Generator describes the producing binary; zero means meta.Detect().
	Generator meta.Info
}

// Manifest is the manifest.json entry.
type Manifest struct {
	FormatVersion int           `json:"formatVersion"`
	Generator     meta.Info     `json:"generator"`
	Snapshots     []SnapshotRef `json:"snapshots"`
	Patches       int           `json:"patches"`
	Empty         bool          `json:"empty"`
}

// SnapshotRef identifies one bundled snapshot.
type SnapshotRef struct {
	Entry  string `json:"entry"`
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

const (
	entryBefore = "snapshots/before.automerge"
	entryAfter  = "snapshots/after.automerge"
)

func manifestOf(c Contents) Manifest {
	m := Manifest{
		FormatVersion: 1,
		Generator:     c.Generator,
		Snapshots:     []SnapshotRef{},
		Patches:       len(c.Patches),
		Empty:         c.Diff.Empty(),
	}
	if m.Generator == (meta.Info{}) {
		m.Generator = meta.Detect()
	}
	for _, s := range snapshots(c) {
		sum := sha256.Sum256(s.data)
		m.Snapshots = append(m.Snapshots, SnapshotRef{Entry: s.name, SHA256: hex.EncodeToString(sum[:]), Size: len(s.data)})
	}
	return m
}

type snapshot struct {
	name string
	data []byte
}

func snapshots(c Contents) []snapshot {
	var out []snapshot
	if c.Before != nil {
		out = append(out, snapshot{entryBefore, c.Before})
	}
	if c.After != nil {
		out = append(out, snapshot{entryAfter, c.After})
	}
	return out
}

// invalidCharsRe matches characters that are invalid in Windows filenames.
var invalidCharsRe = regexp.MustCompile(`[\\:*?"<>|]`)

// PatchEntry returns the archive path of a patch name. Each segment is made
// filesystem-safe on its own, so sheet ids with odd characters stay readable.
func PatchEntry(name string) string {
	parts := strings.Split(filepath.ToSlash(name), "/")
	for i, p := range parts {
		p = invalidCharsRe.ReplaceAllString(p, "_")
		p = strings.TrimLeft(p, ".")
		if p == "" {
			p = "_"
		}
		parts[i] = p
	}
	return ziputil.SanitizePath("patches/" + strings.Join(parts, "/") + ".patch")
}

// WriteDiff writes c to zipPath, creating parent directories as needed.
func WriteDiff(zipPath string, c Contents) (err error) {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return errors.Wrap(err, "create bundle dir")
	}
	f, err := os.Create(zipPath)
	if err != nil {
		return errors.Wrap(err, "create bundle")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close bundle")
		}
	}()

	zw := zip.NewWriter(f)
	if err := write(zw, c); err != nil {
		_ = zw.Close()
		return err
	}
	return errors.Wrap(zw.Close(), "finish bundle")
}

func write(zw *zip.Writer, c Contents) error {
	if err := ziputil.WriteJSON(zw, "manifest.json", manifestOf(c)); err != nil {
		return err
	}
	if err := ziputil.WriteJSON(zw, "diff.json", c.Diff); err != nil {
		return err
	}
	if err := ziputil.WriteText(zw, "report.txt", []byte(c.Report)); err != nil {
		return err
	}

	used := make(map[string]struct{}, len(c.Patches))
	for _, n := range sortutil.Keys(c.Patches) {
		entry := ziputil.EnsureUniqueName(PatchEntry(n), used)
		if err := ziputil.WriteText(zw, entry, []byte(c.Patches[n])); err != nil {
			return err
		}
	}

	for _, s := range snapshots(c) {
		if err := ziputil.CopyFromReader(zw, s.name, bytes.NewReader(s.data)); err != nil {
			return err
		}
	}
	return nil
}
