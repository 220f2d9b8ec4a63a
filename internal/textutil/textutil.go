package textutil

import (
	"bytes"
	"strings"
)

// NormalizeUTF8LF converts CRLF to LF and ensures the output is valid UTF-8
// by replacing invalid byte sequences with the Unicode replacement character.
func NormalizeUTF8LF(b []byte) []byte {
	// Normalize newlines first
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	// Ensure valid UTF-8
	return bytes.ToValidUTF8(b, []byte("\uFFFD"))
}

// EnsureTrailingLF appends a single \n if not already present.
func EnsureTrailingLF(b []byte) []byte {
	if len(b) == 0 || b[len(b)-1] == '\n' {
		return b
	}
	return append(b, '\n')
}

// NormalizeFormula returns the comparison form of a formula: surrounding
// whitespace trimmed, newlines as LF, exactly one leading '=', and
// everything outside double-quoted string literals upper-cased. Blank input
// is "".
func NormalizeFormula(f string) string {
	f = strings.TrimSpace(string(NormalizeUTF8LF([]byte(f))))
	f = strings.TrimLeft(f, "=")
	f = strings.TrimSpace(f)
	if f == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(f) + 1)
	sb.WriteByte('=')
	inString := false
	for _, r := range f {
		if r == '"' {
			// "" inside a literal is an escaped quote; toggling twice keeps state
			inString = !inString
			sb.WriteRune(r)
			continue
		}
		if inString {
			sb.WriteRune(r)
			continue
		}
		sb.WriteString(strings.ToUpper(string(r)))
	}
	return sb.String()
}

// FirstLine returns s up to its first newline and reports whether anything
// was cut.
func FirstLine(s string) (string, bool) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i], true
	}
	return s, false
}
