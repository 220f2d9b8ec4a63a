package delta

import (
	"log/slog"
	"sort"

	"sheet-history/internal/celldiff"
	"sheet-history/internal/reorder"
	"sheet-history/internal/sortutil"
	"sheet-history/internal/state"
	"sheet-history/internal/value"
)

// Engine diffs workbook snapshots. The zero value uses celldiff.Diff and
// slog.Default(). An Engine holds no state between calls and is safe for
// concurrent use.
type Engine struct {
	CellDiff celldiff.Func
	Logger   *slog.Logger
}

// Diff compares two snapshots with a default Engine.
func Diff(before, after []byte) (WorkbookDiff, error) {
	return Engine{}.Diff(before, after)
}

// Compare diffs two extracted states with a default Engine.
func Compare(before, after state.WorkbookState) WorkbookDiff {
	return Engine{}.Compare(before, after)
}

// Diff extracts both snapshots and compares them. Errors from decoding a
// snapshot are returned unchanged.
func (e Engine) Diff(before, after []byte) (WorkbookDiff, error) {
	x := state.Extractor{Logger: e.logger()}
	a, err := x.ExtractFromSnapshot(before)
	if err != nil {
		return WorkbookDiff{}, err
	}
	b, err := x.ExtractFromSnapshot(after)
	if err != nil {
		return WorkbookDiff{}, err
	}
	return e.Compare(a, b), nil
}

// Compare diffs two states.
func (e Engine) Compare(before, after state.WorkbookState) WorkbookDiff {
	d := WorkbookDiff{
		Sheets:       diffSheets(before, after),
		CellsBySheet: e.diffCells(before, after),
		Comments:     diffComments(before.Comments, after.Comments),
		Metadata:     diffKeyed(before.Metadata, after.Metadata),
		NamedRanges:  diffKeyed(before.NamedRanges, after.NamedRanges),
	}
	e.logger().Debug("workbook diff",
		"sheetsAdded", len(d.Sheets.Added),
		"sheetsRemoved", len(d.Sheets.Removed),
		"sheetsMoved", len(d.Sheets.Moved),
		"sheetsWithCellChanges", len(d.CellsBySheet),
		"commentsModified", len(d.Comments.Modified),
	)
	return d
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func diffSheets(before, after state.WorkbookState) SheetsDiff {
	d := SheetsDiff{
		Added:       []SheetEntry{},
		Removed:     []SheetEntry{},
		Renamed:     []SheetRename{},
		MetaChanged: []SheetMetaChange{},
	}
	for _, bm := range before.Sheets {
		am, ok := after.Sheet(bm.ID)
		if !ok {
			d.Removed = append(d.Removed, SheetEntry{SheetMeta: bm, Index: before.Index(bm.ID)})
			continue
		}
		if !sameOpt(bm.Name, am.Name) {
			d.Renamed = append(d.Renamed, SheetRename{ID: bm.ID, OldName: bm.Name, NewName: am.Name})
		}
		d.MetaChanged = append(d.MetaChanged, metaChanges(bm, am)...)
	}
	for _, am := range after.Sheets {
		if _, ok := before.Sheet(am.ID); !ok {
			d.Added = append(d.Added, SheetEntry{SheetMeta: am, Index: after.Index(am.ID)})
		}
	}
	d.Moved = reorder.Moves(before.SheetOrder, after.SheetOrder)

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].ID < d.Added[j].ID })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].ID < d.Removed[j].ID })
	sort.Slice(d.Renamed, func(i, j int) bool { return d.Renamed[i].ID < d.Renamed[j].ID })
	sort.Slice(d.MetaChanged, func(i, j int) bool {
		a, b := d.MetaChanged[i], d.MetaChanged[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Field < b.Field
	})
	return d
}

func sameOpt(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optString(s *string) value.Value {
	if s == nil {
		return value.NullValue()
	}
	return value.StringOf(*s)
}

func metaChanges(bm, am state.SheetMeta) []SheetMetaChange {
	var out []SheetMetaChange
	add := func(field string, before, after value.Value) {
		if !value.Equal(before, after) {
			out = append(out, SheetMetaChange{ID: bm.ID, Field: field, Before: before, After: after})
		}
	}
	add(FieldVisibility, value.StringOf(string(bm.Visibility)), value.StringOf(string(am.Visibility)))
	add(FieldTabColor, optString(bm.TabColor), optString(am.TabColor))
	add(FieldFrozenRows, value.IntOf(bm.View.FrozenRows), value.IntOf(am.View.FrozenRows))
	add(FieldFrozenCols, value.IntOf(bm.View.FrozenCols), value.IntOf(am.View.FrozenCols))
	return out
}

// diffCells runs the cell matcher for every sheet holding cells on either
// side and keeps the non-empty results. The matcher's ordering is not
// trusted; every result is re-sorted.
func (e Engine) diffCells(before, after state.WorkbookState) []SheetDiffEntry {
	match := e.CellDiff
	if match == nil {
		match = celldiff.Diff
	}
	ids := make(map[string]struct{})
	for _, sc := range before.CellsBySheet {
		ids[sc.SheetID] = struct{}{}
	}
	for _, sc := range after.CellsBySheet {
		ids[sc.SheetID] = struct{}{}
	}
	out := []SheetDiffEntry{}
	for _, id := range sortutil.Keys(ids) {
		bc := before.Cells(id)
		if bc == nil {
			bc = map[string]state.Cell{}
		}
		ac := after.Cells(id)
		if ac == nil {
			ac = map[string]state.Cell{}
		}
		r := match(bc, ac)
		r.Sort()
		if r.Empty() {
			continue
		}
		out = append(out, SheetDiffEntry{SheetID: id, Diff: r})
	}
	return out
}

func diffComments(before, after []state.CommentSummary) CommentsDiff {
	d := CommentsDiff{
		Added:    []state.CommentSummary{},
		Removed:  []state.CommentSummary{},
		Modified: []CommentChange{},
	}
	prev := make(map[string]state.CommentSummary, len(before))
	for _, c := range before {
		prev[c.ID] = c
	}
	curr := make(map[string]state.CommentSummary, len(after))
	for _, c := range after {
		curr[c.ID] = c
	}
	for _, bc := range before {
		ac, ok := curr[bc.ID]
		if !ok {
			d.Removed = append(d.Removed, bc)
			continue
		}
		if fields := commentFields(bc, ac); len(fields) > 0 {
			d.Modified = append(d.Modified, CommentChange{ID: bc.ID, Fields: fields, Before: bc, After: ac})
		}
	}
	for _, ac := range after {
		if _, ok := prev[ac.ID]; !ok {
			d.Added = append(d.Added, ac)
		}
	}
	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].ID < d.Added[j].ID })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].ID < d.Removed[j].ID })
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].ID < d.Modified[j].ID })
	return d
}

// commentFields lists the changed fields in lexicographic order.
func commentFields(a, b state.CommentSummary) []string {
	var out []string
	if !sameOpt(a.CellRef, b.CellRef) {
		out = append(out, FieldCellRef)
	}
	if !sameOpt(a.Content, b.Content) {
		out = append(out, FieldContent)
	}
	if a.RepliesLength != b.RepliesLength {
		out = append(out, FieldRepliesLength)
	}
	if a.Resolved != b.Resolved {
		out = append(out, FieldResolved)
	}
	return out
}

func diffKeyed(before, after []state.Entry) KeyedDiff {
	d := KeyedDiff{
		Added:    []KeyedValue{},
		Removed:  []KeyedValue{},
		Modified: []KeyedChange{},
	}
	prev := make(map[string]value.Value, len(before))
	for _, e := range before {
		prev[e.Key] = e.Value
	}
	curr := make(map[string]value.Value, len(after))
	for _, e := range after {
		curr[e.Key] = e.Value
	}
	for _, e := range before {
		av, ok := curr[e.Key]
		switch {
		case !ok:
			d.Removed = append(d.Removed, KeyedValue{Key: e.Key, Value: e.Value})
		case !value.Equal(e.Value, av):
			d.Modified = append(d.Modified, KeyedChange{Key: e.Key, Before: e.Value, After: av})
		}
	}
	for _, e := range after {
		if _, ok := prev[e.Key]; !ok {
			d.Added = append(d.Added, KeyedValue{Key: e.Key, Value: e.Value})
		}
	}
	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Key < d.Added[j].Key })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].Key < d.Removed[j].Key })
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].Key < d.Modified[j].Key })
	return d
}
