package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-history/internal/celldiff"
	"sheet-history/internal/delta"
	"sheet-history/internal/state"
	"sheet-history/internal/value"
)

func emptyDiff() delta.WorkbookDiff {
	return delta.Compare(state.WorkbookState{}, state.WorkbookState{})
}

func loc(r, c int) celldiff.Location { return celldiff.Location{Row: r, Col: c} }

func TestDiffAcceptsEngineOutput(t *testing.T) {
	assert.NoError(t, Diff(emptyDiff()))

	before := state.WorkbookState{
		SheetOrder:   []string{"a", "b"},
		Sheets:       []state.SheetMeta{{ID: "a", Visibility: state.Visible}, {ID: "b", Visibility: state.Visible}},
		CellsBySheet: []state.SheetCells{{SheetID: "a", Cells: map[string]state.Cell{"r0c0": {Value: value.StringOf("x")}}}},
	}
	after := state.WorkbookState{
		SheetOrder:   []string{"b", "a", "c"},
		Sheets:       []state.SheetMeta{{ID: "a", Visibility: state.Hidden}, {ID: "b", Visibility: state.Visible}, {ID: "c", Visibility: state.Visible}},
		CellsBySheet: []state.SheetCells{{SheetID: "a", Cells: map[string]state.Cell{"r3c3": {Value: value.StringOf("x")}}}},
	}
	assert.NoError(t, Diff(delta.Compare(before, after)))
}

func TestDiffReportsNilBuckets(t *testing.T) {
	var d delta.WorkbookDiff
	err := Diff(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets.added must be an empty list, not null")
	assert.Contains(t, err.Error(), "namedRanges.modified must be an empty list, not null")
}

func TestDiffReportsOrderingAndOverlap(t *testing.T) {
	d := emptyDiff()
	d.Comments.Added = []state.CommentSummary{{ID: "b"}, {ID: "a"}}
	d.Comments.Removed = []state.CommentSummary{{ID: "a"}}
	d.Metadata.Added = []delta.KeyedValue{{Key: "k"}, {Key: "k"}}
	r := celldiff.Result{
		Added:    []celldiff.CellChange{{Cell: loc(1, 0)}, {Cell: loc(0, 5)}},
		Modified: []celldiff.CellChange{{Cell: loc(1, 0)}},
		Moved:    []celldiff.CellMove{{OldLocation: loc(4, 4), NewLocation: loc(0, 5)}},
	}
	r.Sort()
	d.CellsBySheet = []delta.SheetDiffEntry{
		{SheetID: "s2", Diff: r},
		{SheetID: "s1", Diff: celldiff.Result{}},
	}

	err := Diff(d)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `comments.added should be sorted ("b" before "a")`)
	assert.Contains(t, msg, `comments: "a" is in both added and removed`)
	assert.Contains(t, msg, `metadata.added: duplicate entry "k"`)
	assert.Contains(t, msg, `cellsBySheet should be sorted ("s2" before "s1")`)
	assert.Contains(t, msg, "cellsBySheet[0] (s2): cell (1,0) is in both added and modified")
	assert.Contains(t, msg, "cellsBySheet[0] (s2).moved[0]: new location (0,5) is also added")
	assert.Contains(t, msg, "cellsBySheet[1] (s1): empty diffs must be left out")
	assert.Contains(t, msg, "cellsBySheet[1] (s1).moved must be an empty list, not null")
}
