// Package report renders a WorkbookDiff as deterministic, human-reviewable
// text.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/unidoc/unioffice/spreadsheet/reference"

	"sheet-history/internal/celldiff"
	"sheet-history/internal/delta"
	"sheet-history/internal/diff"
	"sheet-history/internal/state"
	"sheet-history/internal/textutil"
)

// Options controls patch rendering.
type Options struct {
	// Context is the number of unified context lines.
	Context int
	// MaxPatchBytes caps the input size of one patch; 0 means no limit.
	MaxPatchBytes int
}

func (o Options) diffOptions() diff.Options {
	return diff.Options{Context: o.Context, MaxBytes: o.MaxPatchBytes}
}

// A1 returns the spreadsheet label of a location, e.g. {0,1} -> "B1".
func A1(l celldiff.Location) string {
	return reference.IndexToColumn(uint32(l.Col)) + strconv.Itoa(l.Row+1)
}

// Text renders d section by section. Empty sections are left out; an empty
// diff renders as "no changes".
func Text(d delta.WorkbookDiff, opt Options) string {
	if d.Empty() {
		return "no changes\n"
	}
	var w writer
	writeSheets(&w, d.Sheets)
	for _, e := range d.CellsBySheet {
		writeCells(&w, e, opt)
	}
	writeComments(&w, d.Comments, opt)
	writeKeyed(&w, "Metadata", d.Metadata)
	writeKeyed(&w, "Named ranges", d.NamedRanges)
	return w.String()
}

type writer struct {
	strings.Builder
	sections int
}

func (w *writer) section(title string) {
	if w.sections > 0 {
		w.WriteByte('\n')
	}
	w.sections++
	w.WriteString(title)
	w.WriteByte('\n')
}

func (w *writer) line(format string, args ...any) {
	w.WriteString("  ")
	fmt.Fprintf(w, format, args...)
	w.WriteByte('\n')
}

func (w *writer) block(body string) {
	for _, l := range strings.SplitAfter(strings.TrimSuffix(body, "\n"), "\n") {
		w.WriteString("    ")
		w.WriteString(strings.TrimSuffix(l, "\n"))
		w.WriteByte('\n')
	}
}

func name(s *string) string {
	if s == nil {
		return "(unnamed)"
	}
	return strconv.Quote(*s)
}

func writeSheets(w *writer, s delta.SheetsDiff) {
	if s.Empty() {
		return
	}
	w.section("Sheets")
	for _, e := range s.Added {
		w.line("+ %s %s at %d", e.ID, name(e.Name), e.Index)
	}
	for _, e := range s.Removed {
		w.line("- %s %s (was at %d)", e.ID, name(e.Name), e.Index)
	}
	for _, r := range s.Renamed {
		w.line("~ %s renamed %s -> %s", r.ID, name(r.OldName), name(r.NewName))
	}
	for _, m := range s.Moved {
		w.line("> %s moved %d -> %d", m.ID, m.BeforeIndex, m.AfterIndex)
	}
	for _, m := range s.MetaChanged {
		w.line("* %s %s: %s -> %s", m.ID, m.Field, m.Before, m.After)
	}
}

// content renders the visible side of a cell change.
func content(v fmt.Stringer, formula string, encrypted bool, keyID string) string {
	if encrypted {
		if keyID == "" {
			return "<encrypted>"
		}
		return "<encrypted key=" + keyID + ">"
	}
	if formula != "" {
		first, cut := textutil.FirstLine(formula)
		if cut {
			first += " …"
		}
		return first
	}
	return v.String()
}

func writeCells(w *writer, e delta.SheetDiffEntry, opt Options) {
	w.section("Cells in sheet " + e.SheetID)
	r := e.Diff
	for _, c := range r.Added {
		w.line("+ %s %s", A1(c.Cell), content(c.NewValue, c.NewFormula, c.NewEncrypted, c.NewKeyID))
	}
	for _, c := range r.Removed {
		w.line("- %s %s", A1(c.Cell), content(c.OldValue, c.OldFormula, c.OldEncrypted, c.OldKeyID))
	}
	for _, c := range r.Modified {
		w.line("~ %s %s -> %s", A1(c.Cell),
			content(c.OldValue, c.OldFormula, c.OldEncrypted, c.OldKeyID),
			content(c.NewValue, c.NewFormula, c.NewEncrypted, c.NewKeyID))
		if multiline(c.OldFormula) || multiline(c.NewFormula) {
			body, _ := diff.Unified("a/"+A1(c.Cell), "b/"+A1(c.Cell), c.OldFormula, c.NewFormula, opt.diffOptions())
			w.block(body)
		}
	}
	for _, m := range r.Moved {
		line := fmt.Sprintf("> %s -> %s %s", A1(m.OldLocation), A1(m.NewLocation), content(m.Value, m.Formula, m.Encrypted, m.KeyID))
		if m.Restyled() {
			line += fmt.Sprintf(" format %s -> %s", m.OldFormat, m.NewFormat)
		}
		w.line("%s", line)
	}
	for _, f := range r.FormatOnly {
		w.line("f %s format %s -> %s", A1(f.Cell), f.OldFormat, f.NewFormat)
	}
}

func multiline(s string) bool { return strings.ContainsAny(s, "\r\n") }

func commentText(c state.CommentSummary) string {
	var b strings.Builder
	b.WriteString(c.ID)
	if c.CellRef != nil {
		b.WriteString(" on " + *c.CellRef)
	}
	if c.Content != nil {
		first, cut := textutil.FirstLine(*c.Content)
		if cut {
			first += " …"
		}
		b.WriteString(": " + strconv.Quote(first))
	}
	if c.Resolved {
		b.WriteString(" [resolved]")
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeComments(w *writer, c delta.CommentsDiff, opt Options) {
	if c.Empty() {
		return
	}
	w.section("Comments")
	for _, a := range c.Added {
		w.line("+ %s", commentText(a))
		if a.Content != nil && multiline(*a.Content) {
			body, _ := diff.Added("b/"+a.ID, *a.Content, opt.diffOptions())
			w.block(body)
		}
	}
	for _, r := range c.Removed {
		w.line("- %s", commentText(r))
		if r.Content != nil && multiline(*r.Content) {
			body, _ := diff.Removed("a/"+r.ID, *r.Content, opt.diffOptions())
			w.block(body)
		}
	}
	for _, m := range c.Modified {
		w.line("~ %s (%s)", m.ID, strings.Join(m.Fields, ", "))
		for _, f := range m.Fields {
			switch f {
			case delta.FieldContent:
				body, _ := diff.Unified("a/"+m.ID, "b/"+m.ID, deref(m.Before.Content), deref(m.After.Content), opt.diffOptions())
				w.block(body)
			case delta.FieldResolved:
				w.line("    resolved: %t -> %t", m.Before.Resolved, m.After.Resolved)
			case delta.FieldRepliesLength:
				w.line("    replies: %d -> %d", m.Before.RepliesLength, m.After.RepliesLength)
			case delta.FieldCellRef:
				w.line("    cell: %s -> %s", deref(m.Before.CellRef), deref(m.After.CellRef))
			}
		}
	}
}

func writeKeyed(w *writer, title string, k delta.KeyedDiff) {
	if k.Empty() {
		return
	}
	w.section(title)
	for _, a := range k.Added {
		w.line("+ %s = %s", a.Key, a.Value)
	}
	for _, r := range k.Removed {
		w.line("- %s = %s", r.Key, r.Value)
	}
	for _, m := range k.Modified {
		w.line("~ %s: %s -> %s", m.Key, m.Before, m.After)
	}
}

// Patches returns the unified patches of every added, removed or changed
// comment body and every changed formula, keyed by a slash-separated name
// such as "comments/c1" or "cells/s1/B2". Unchanged or empty patches are
// left out.
func Patches(d delta.WorkbookDiff, opt Options) map[string]string {
	out := make(map[string]string)
	for _, a := range d.Comments.Added {
		if body, _ := diff.Added("b/"+a.ID, deref(a.Content), opt.diffOptions()); body != "" {
			out["comments/"+a.ID] = body
		}
	}
	for _, r := range d.Comments.Removed {
		if body, _ := diff.Removed("a/"+r.ID, deref(r.Content), opt.diffOptions()); body != "" {
			out["comments/"+r.ID] = body
		}
	}
	for _, m := range d.Comments.Modified {
		if !hasField(m.Fields, delta.FieldContent) {
			continue
		}
		if body, _ := diff.Unified("a/"+m.ID, "b/"+m.ID, deref(m.Before.Content), deref(m.After.Content), opt.diffOptions()); body != "" {
			out["comments/"+m.ID] = body
		}
	}
	for _, e := range d.CellsBySheet {
		for _, c := range e.Diff.Modified {
			if c.OldFormula == c.NewFormula {
				continue
			}
			label := A1(c.Cell)
			if body, _ := diff.Unified("a/"+label, "b/"+label, c.OldFormula, c.NewFormula, opt.diffOptions()); body != "" {
				out["cells/"+e.SheetID+"/"+label] = body
			}
		}
	}
	return out
}

func hasField(fields []string, f string) bool {
	i := sort.SearchStrings(fields, f)
	return i < len(fields) && fields[i] == f
}
