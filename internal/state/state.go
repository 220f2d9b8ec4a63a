// Package state extracts a canonical, comparison-stable WorkbookState from a
// CRDT document.
package state

import (
	"sort"

	"sheet-history/internal/value"
)

// Visibility of a sheet tab.
type Visibility string

const (
	Visible    Visibility = "visible"
	Hidden     Visibility = "hidden"
	VeryHidden Visibility = "veryHidden"
)

// View holds the frozen panes of a sheet.
type View struct {
	FrozenRows int `json:"frozenRows"`
	FrozenCols int `json:"frozenCols"`
}

// SheetMeta describes one sheet. Identity is ID.
type SheetMeta struct {
	ID         string     `json:"id"`
	Name       *string    `json:"name"`
	Visibility Visibility `json:"visibility"`
	TabColor   *string    `json:"tabColor"`
	View       View       `json:"view"`
}

// DisplayName returns the sheet name, or "" when it has none.
func (m SheetMeta) DisplayName() string {
	if m.Name == nil {
		return ""
	}
	return *m.Name
}

// Cell is the content of one coordinate. A cell with a non-null Enc is
// encrypted: Value and Formula are then always empty and Enc is never
// interpreted beyond its keyId.
type Cell struct {
	Value   value.Value `json:"value"`
	Formula string      `json:"formula"`
	Format  value.Value `json:"format"`
	Enc     value.Value `json:"enc"`
}

// Encrypted reports whether the cell carries a ciphertext envelope.
func (c Cell) Encrypted() bool { return !c.Enc.IsNull() }

// KeyID returns the id of the key the cell was encrypted with.
func (c Cell) KeyID() string {
	v, _ := c.Enc.Get("keyId")
	s, _ := v.AsString()
	return s
}

// Empty reports whether the cell has no content. Format is not content.
func (c Cell) Empty() bool {
	return c.Value.IsNull() && c.Formula == "" && !c.Encrypted()
}

func (c *Cell) Style() value.Value     { return c.Format }
func (c *Cell) SetStyle(v value.Value) { c.Format = v }

// SheetCells are the cells of one sheet keyed "r{row}c{col}".
type SheetCells struct {
	SheetID string          `json:"sheetId"`
	Cells   map[string]Cell `json:"cells"`
}

// CommentSummary is the comparable digest of one comment thread.
type CommentSummary struct {
	ID            string  `json:"id"`
	CellRef       *string `json:"cellRef"`
	Content       *string `json:"content"`
	Resolved      bool    `json:"resolved"`
	RepliesLength int     `json:"repliesLength"`
}

// Entry is one key of a flat keyed facet (metadata, named ranges).
type Entry struct {
	Key   string      `json:"key"`
	Value value.Value `json:"value"`
}

// WorkbookState is the logical content of one snapshot. Every slice is
// sorted by its identity field; SheetOrder is positional.
type WorkbookState struct {
	Sheets       []SheetMeta      `json:"sheets"`
	SheetOrder   []string         `json:"sheetOrder"`
	Metadata     []Entry          `json:"metadata"`
	NamedRanges  []Entry          `json:"namedRanges"`
	Comments     []CommentSummary `json:"comments"`
	CellsBySheet []SheetCells     `json:"cellsBySheet"`
}

// Sheet looks up a sheet by id.
func (s WorkbookState) Sheet(id string) (SheetMeta, bool) {
	i := sort.Search(len(s.Sheets), func(i int) bool { return s.Sheets[i].ID >= id })
	if i < len(s.Sheets) && s.Sheets[i].ID == id {
		return s.Sheets[i], true
	}
	return SheetMeta{}, false
}

// Cells returns the cells of a sheet, or nil when it has none.
func (s WorkbookState) Cells(sheetID string) map[string]Cell {
	i := sort.Search(len(s.CellsBySheet), func(i int) bool { return s.CellsBySheet[i].SheetID >= sheetID })
	if i < len(s.CellsBySheet) && s.CellsBySheet[i].SheetID == sheetID {
		return s.CellsBySheet[i].Cells
	}
	return nil
}

// Comment looks up a comment by id.
func (s WorkbookState) Comment(id string) (CommentSummary, bool) {
	i := sort.Search(len(s.Comments), func(i int) bool { return s.Comments[i].ID >= id })
	if i < len(s.Comments) && s.Comments[i].ID == id {
		return s.Comments[i], true
	}
	return CommentSummary{}, false
}

// Index returns the position of a sheet in SheetOrder, or -1.
func (s WorkbookState) Index(sheetID string) int {
	for i, id := range s.SheetOrder {
		if id == sheetID {
			return i
		}
	}
	return -1
}
