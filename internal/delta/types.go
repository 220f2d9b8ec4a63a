// Package delta computes the structural diff between two workbook
// snapshots.
package delta

import (
	"sheet-history/internal/celldiff"
	"sheet-history/internal/reorder"
	"sheet-history/internal/state"
	"sheet-history/internal/value"
)

// WorkbookDiff is the semantic difference between two snapshots. It holds
// no reference to either source document. Every bucket is a non-nil,
// sorted slice.
type WorkbookDiff struct {
	Sheets       SheetsDiff       `json:"sheets"`
	CellsBySheet []SheetDiffEntry `json:"cellsBySheet"`
	Comments     CommentsDiff     `json:"comments"`
	Metadata     MetadataDiff     `json:"metadata"`
	NamedRanges  NamedRangesDiff  `json:"namedRanges"`
}

// Empty reports whether nothing changed.
func (d WorkbookDiff) Empty() bool {
	return d.Sheets.Empty() && len(d.CellsBySheet) == 0 && d.Comments.Empty() &&
		d.Metadata.Empty() && d.NamedRanges.Empty()
}

// SheetsDiff groups sheet-level changes. Buckets are sorted by id;
// MetaChanged ties are broken by field.
type SheetsDiff struct {
	Added       []SheetEntry      `json:"added"`
	Removed     []SheetEntry      `json:"removed"`
	Renamed     []SheetRename     `json:"renamed"`
	Moved       []reorder.Move    `json:"moved"`
	MetaChanged []SheetMetaChange `json:"metaChanged"`
}

func (s SheetsDiff) Empty() bool {
	return len(s.Added) == 0 && len(s.Removed) == 0 && len(s.Renamed) == 0 &&
		len(s.Moved) == 0 && len(s.MetaChanged) == 0
}

// SheetEntry is an added or removed sheet with its position in the order of
// the snapshot it belongs to.
type SheetEntry struct {
	state.SheetMeta
	Index int `json:"index"`
}

// SheetRename records a name change of a sheet present on both sides.
type SheetRename struct {
	ID      string  `json:"id"`
	OldName *string `json:"oldName"`
	NewName *string `json:"newName"`
}

// Sheet metadata fields compared by the diff.
const (
	FieldVisibility = "visibility"
	FieldTabColor   = "tabColor"
	FieldFrozenRows = "view.frozenRows"
	FieldFrozenCols = "view.frozenCols"
)

// SheetMetaChange is one changed metadata field of a sheet.
type SheetMetaChange struct {
	ID     string      `json:"id"`
	Field  string      `json:"field"`
	Before value.Value `json:"before"`
	After  value.Value `json:"after"`
}

// SheetDiffEntry is the cell diff of one sheet.
type SheetDiffEntry struct {
	SheetID string          `json:"sheetId"`
	Diff    celldiff.Result `json:"diff"`
}

// CommentsDiff groups comment changes, each bucket sorted by id.
type CommentsDiff struct {
	Added    []state.CommentSummary `json:"added"`
	Removed  []state.CommentSummary `json:"removed"`
	Modified []CommentChange        `json:"modified"`
}

func (c CommentsDiff) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Modified) == 0
}

// Comment fields compared by the diff.
const (
	FieldCellRef       = "cellRef"
	FieldContent       = "content"
	FieldRepliesLength = "repliesLength"
	FieldResolved      = "resolved"
)

// CommentChange is a comment present on both sides whose summary differs.
// Fields lists the changed field names in order.
type CommentChange struct {
	ID     string               `json:"id"`
	Fields []string             `json:"fields"`
	Before state.CommentSummary `json:"before"`
	After  state.CommentSummary `json:"after"`
}

// KeyedDiff is the diff of a flat keyed facet, each bucket sorted by key.
type KeyedDiff struct {
	Added    []KeyedValue  `json:"added"`
	Removed  []KeyedValue  `json:"removed"`
	Modified []KeyedChange `json:"modified"`
}

func (k KeyedDiff) Empty() bool {
	return len(k.Added) == 0 && len(k.Removed) == 0 && len(k.Modified) == 0
}

type (
	MetadataDiff    = KeyedDiff
	NamedRangesDiff = KeyedDiff
)

// KeyedValue is an added or removed key.
type KeyedValue struct {
	Key   string      `json:"key"`
	Value value.Value `json:"value"`
}

// KeyedChange is a key whose value changed.
type KeyedChange struct {
	Key    string      `json:"key"`
	Before value.Value `json:"before"`
	After  value.Value `json:"after"`
}
