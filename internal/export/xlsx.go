// Package export writes a WorkbookDiff as an .xlsx review workbook with one
// tab per diff section.
package export

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/unidoc/unioffice/spreadsheet"

	"sheet-history/internal/celldiff"
	"sheet-history/internal/delta"
	"sheet-history/internal/report"
	"sheet-history/internal/value"
)

// Tab names, in workbook order.
const (
	TabSummary  = "Summary"
	TabSheets   = "Sheets"
	TabCells    = "Cells"
	TabComments = "Comments"
	TabKeys     = "Keys"
)

const encrypted = "<encrypted>"

// WriteXLSX renders d and saves the workbook to w.
func WriteXLSX(w io.Writer, d delta.WorkbookDiff) error {
	wb := spreadsheet.New()
	summary(wb, d)
	sheets(wb, d.Sheets)
	cells(wb, d.CellsBySheet)
	comments(wb, d.Comments)
	keys(wb, d)
	if err := wb.Save(w); err != nil {
		return errors.Wrap(err, "save xlsx")
	}
	return nil
}

// tab adds a named sheet with a header row.
func tab(wb *spreadsheet.Workbook, name string, header ...string) spreadsheet.Sheet {
	s := wb.AddSheet()
	s.SetName(name)
	row := s.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	return s
}

// cell writes v with its natural spreadsheet type.
func cell(row spreadsheet.Row, v value.Value) {
	c := row.AddCell()
	switch v.Kind() {
	case value.Null:
	case value.Bool:
		b, _ := v.AsBool()
		c.SetBool(b)
	case value.Number:
		n, _ := v.AsNumber()
		c.SetNumber(n)
	case value.String:
		s, _ := v.AsString()
		c.SetString(s)
	default:
		c.SetString(v.String())
	}
}

func strs(row spreadsheet.Row, ss ...string) {
	for _, s := range ss {
		row.AddCell().SetString(s)
	}
}

func opt(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func summary(wb *spreadsheet.Workbook, d delta.WorkbookDiff) {
	s := tab(wb, TabSummary, "section", "added", "removed", "modified")
	add := func(section string, counts ...int) {
		row := s.AddRow()
		row.AddCell().SetString(section)
		for _, n := range counts {
			row.AddCell().SetNumber(float64(n))
		}
	}
	add("sheets", len(d.Sheets.Added), len(d.Sheets.Removed), len(d.Sheets.Renamed)+len(d.Sheets.Moved)+len(d.Sheets.MetaChanged))
	var a, r, m int
	for _, e := range d.CellsBySheet {
		a += len(e.Diff.Added)
		r += len(e.Diff.Removed)
		m += len(e.Diff.Modified) + len(e.Diff.Moved) + len(e.Diff.FormatOnly)
	}
	add("cells", a, r, m)
	add("comments", len(d.Comments.Added), len(d.Comments.Removed), len(d.Comments.Modified))
	add("metadata", len(d.Metadata.Added), len(d.Metadata.Removed), len(d.Metadata.Modified))
	add("namedRanges", len(d.NamedRanges.Added), len(d.NamedRanges.Removed), len(d.NamedRanges.Modified))
}

func sheets(wb *spreadsheet.Workbook, d delta.SheetsDiff) {
	s := tab(wb, TabSheets, "change", "sheet", "field", "before", "after")
	for _, e := range d.Added {
		strs(s.AddRow(), "added", e.ID, "index", "", strconv.Itoa(e.Index))
	}
	for _, e := range d.Removed {
		strs(s.AddRow(), "removed", e.ID, "index", strconv.Itoa(e.Index), "")
	}
	for _, e := range d.Renamed {
		strs(s.AddRow(), "renamed", e.ID, "name", opt(e.OldName), opt(e.NewName))
	}
	for _, e := range d.Moved {
		strs(s.AddRow(), "moved", e.ID, "index", strconv.Itoa(e.BeforeIndex), strconv.Itoa(e.AfterIndex))
	}
	for _, e := range d.MetaChanged {
		row := s.AddRow()
		strs(row, "metaChanged", e.ID, e.Field)
		cell(row, e.Before)
		cell(row, e.After)
	}
}

// side writes the formula when there is one and the value otherwise.
func side(row spreadsheet.Row, v value.Value, formula string, enc bool) {
	switch {
	case enc:
		row.AddCell().SetString(encrypted)
	case formula != "":
		row.AddCell().SetString(formula)
	default:
		cell(row, v)
	}
}

func cells(wb *spreadsheet.Workbook, entries []delta.SheetDiffEntry) {
	s := tab(wb, TabCells, "sheet", "change", "cell", "before", "after", "beforeFormat", "afterFormat")
	change := func(sheet, kind string, c celldiff.CellChange) {
		row := s.AddRow()
		strs(row, sheet, kind, report.A1(c.Cell))
		side(row, c.OldValue, c.OldFormula, c.OldEncrypted)
		side(row, c.NewValue, c.NewFormula, c.NewEncrypted)
	}
	for _, e := range entries {
		r := e.Diff
		for _, c := range r.Added {
			change(e.SheetID, "added", c)
		}
		for _, c := range r.Removed {
			change(e.SheetID, "removed", c)
		}
		for _, c := range r.Modified {
			change(e.SheetID, "modified", c)
		}
		for _, m := range r.Moved {
			row := s.AddRow()
			strs(row, e.SheetID, "moved", report.A1(m.OldLocation)+" -> "+report.A1(m.NewLocation))
			side(row, m.Value, m.Formula, m.Encrypted)
			side(row, m.Value, m.Formula, m.Encrypted)
			if m.Restyled() {
				strs(row, m.OldFormat.String(), m.NewFormat.String())
			}
		}
		for _, f := range r.FormatOnly {
			row := s.AddRow()
			strs(row, e.SheetID, "format", report.A1(f.Cell), f.OldFormat.String(), f.NewFormat.String())
		}
	}
}

func comments(wb *spreadsheet.Workbook, d delta.CommentsDiff) {
	s := tab(wb, TabComments, "change", "comment", "cell", "before", "after")
	for _, c := range d.Added {
		strs(s.AddRow(), "added", c.ID, opt(c.CellRef), "", opt(c.Content))
	}
	for _, c := range d.Removed {
		strs(s.AddRow(), "removed", c.ID, opt(c.CellRef), opt(c.Content), "")
	}
	for _, m := range d.Modified {
		for _, f := range m.Fields {
			row := s.AddRow()
			strs(row, f, m.ID, opt(m.After.CellRef))
			switch f {
			case delta.FieldContent:
				strs(row, opt(m.Before.Content), opt(m.After.Content))
			case delta.FieldCellRef:
				strs(row, opt(m.Before.CellRef), opt(m.After.CellRef))
			case delta.FieldResolved:
				row.AddCell().SetBool(m.Before.Resolved)
				row.AddCell().SetBool(m.After.Resolved)
			case delta.FieldRepliesLength:
				row.AddCell().SetNumber(float64(m.Before.RepliesLength))
				row.AddCell().SetNumber(float64(m.After.RepliesLength))
			}
		}
	}
}

func keys(wb *spreadsheet.Workbook, d delta.WorkbookDiff) {
	s := tab(wb, TabKeys, "facet", "change", "key", "before", "after")
	facet := func(name string, k delta.KeyedDiff) {
		for _, a := range k.Added {
			row := s.AddRow()
			strs(row, name, "added", a.Key, "")
			cell(row, a.Value)
		}
		for _, r := range k.Removed {
			row := s.AddRow()
			strs(row, name, "removed", r.Key)
			cell(row, r.Value)
		}
		for _, m := range k.Modified {
			row := s.AddRow()
			strs(row, name, "modified", m.Key)
			cell(row, m.Before)
			cell(row, m.After)
		}
	}
	facet("metadata", d.Metadata)
	facet("namedRanges", d.NamedRanges)
}
