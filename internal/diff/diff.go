// Package diff renders unified patches of changed text values (comment
// bodies, formulas, metadata strings). It uses
// github.com/pmezard/go-difflib/difflib to produce classic unified patches
// (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"sheet-history/internal/textutil"
)

// Options controls patch generation behavior.
type Options struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded,
	// a minimal placeholder patch is returned and oversize=true.
	// 0 means "no limit".
	MaxBytes int

	// Context controls the number of CONTEXT LINES in unified hunks.
	// If 0, default to 3.
	Context int
}

// Unified produces a classic unified patch for a↦b.
// Returns the patch body and a flag indicating it was omitted due to size.
// Equal inputs produce an empty body.
func Unified(aName, bName, a, b string, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && (len(a)+len(b)) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	u := difflib.UnifiedDiff{
		A:        splitLines(a),
		B:        splitLines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  contextOf(opt),
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// Added produces a patch that adds the entire content b (no old version).
func Added(bName, b string, opt Options) (string, bool) {
	return Unified("/dev/null", bName, "", b, opt)
}

// Removed produces a patch that deletes the entire content a.
func Removed(aName, a string, opt Options) (string, bool) {
	return Unified(aName, "/dev/null", a, "", opt)
}

func contextOf(opt Options) int {
	if opt.Context <= 0 {
		return 3
	}
	return opt.Context
}

// splitLines normalizes newlines and splits into lines keeping the newline
// characters; the last line always ends in '\n' so hunks stay well formed.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	b := textutil.EnsureTrailingLF(textutil.NormalizeUTF8LF([]byte(s)))
	lines := strings.SplitAfter(string(b), "\n")
	return lines[:len(lines)-1]
}

// omitted returns a compact placeholder when size limits are exceeded.
func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
