// Package celldiff classifies the cell changes of one sheet.
//
// A coordinate present on both sides is unchanged, format-only or modified.
// Coordinates present on one side only are removed or added, except that a
// removed and an added cell with equal content are paired into a move. Cell
// content is the value, the normalized formula and, for encrypted cells, the
// opaque envelope; ciphertext itself never reaches the result.
package celldiff

import (
	"sort"

	"sheet-history/internal/cellkey"
	"sheet-history/internal/state"
	"sheet-history/internal/textutil"
	"sheet-history/internal/value"
)

// Location is a zero-based cell coordinate.
type Location struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Less orders locations row-major.
func (l Location) Less(o Location) bool {
	if l.Row != o.Row {
		return l.Row < o.Row
	}
	return l.Col < o.Col
}

// CellChange is an added, removed or modified cell. Old* fields describe the
// before side and New* fields the after side; a side that does not exist is
// left zero.
type CellChange struct {
	Cell         Location    `json:"cell"`
	OldValue     value.Value `json:"oldValue,omitzero"`
	NewValue     value.Value `json:"newValue,omitzero"`
	OldFormula   string      `json:"oldFormula,omitempty"`
	NewFormula   string      `json:"newFormula,omitempty"`
	OldFormat    value.Value `json:"oldFormat,omitzero"`
	NewFormat    value.Value `json:"newFormat,omitzero"`
	OldEncrypted bool        `json:"oldEncrypted,omitempty"`
	NewEncrypted bool        `json:"newEncrypted,omitempty"`
	OldKeyID     string      `json:"oldKeyId,omitempty"`
	NewKeyID     string      `json:"newKeyId,omitempty"`
}

// CellMove is a cell whose content moved to another coordinate. The formats
// are set only when the move also restyled the cell.
type CellMove struct {
	OldLocation Location    `json:"oldLocation"`
	NewLocation Location    `json:"newLocation"`
	Value       value.Value `json:"value,omitzero"`
	Formula     string      `json:"formula,omitempty"`
	Encrypted   bool        `json:"encrypted,omitempty"`
	KeyID       string      `json:"keyId,omitempty"`
	OldFormat   value.Value `json:"oldFormat,omitzero"`
	NewFormat   value.Value `json:"newFormat,omitzero"`
}

// Restyled reports whether the move carries a format change.
func (m CellMove) Restyled() bool { return !value.Equal(m.OldFormat, m.NewFormat) }

// FormatChange is a cell whose content is unchanged but whose effective
// format differs.
type FormatChange struct {
	Cell      Location    `json:"cell"`
	OldFormat value.Value `json:"oldFormat"`
	NewFormat value.Value `json:"newFormat"`
}

// Result partitions the changes of one sheet. Buckets are never nil.
type Result struct {
	Added      []CellChange   `json:"added"`
	Removed    []CellChange   `json:"removed"`
	Modified   []CellChange   `json:"modified"`
	Moved      []CellMove     `json:"moved"`
	FormatOnly []FormatChange `json:"formatOnly"`
}

// Empty reports whether no bucket holds an entry.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0 &&
		len(r.Moved) == 0 && len(r.FormatOnly) == 0
}

// Func is the signature of a per-sheet cell matcher.
type Func func(before, after map[string]state.Cell) Result

// Diff classifies before→after. Keys that are not "r{row}c{col}" are
// ignored.
func Diff(before, after map[string]state.Cell) Result {
	prev := indexByLocation(before)
	curr := indexByLocation(after)

	r := Result{}
	removed, modified, formatOnly := classifyRemovedAndChanged(prev, curr)
	added := classifyAdded(prev, curr)

	moved, keepRemoved, keepAdded := matchExactMoves(removed, added)

	r.Added = make([]CellChange, 0, len(keepAdded))
	for _, c := range keepAdded {
		r.Added = append(r.Added, addedChange(c))
	}
	r.Removed = make([]CellChange, 0, len(keepRemoved))
	for _, c := range keepRemoved {
		r.Removed = append(r.Removed, removedChange(c))
	}
	r.Modified = modified
	r.Moved = moved
	r.FormatOnly = formatOnly
	r.Sort()
	return r
}

// Sort orders every bucket row-major by cell, and moves by old then new
// location. Nil buckets become empty.
func (r *Result) Sort() {
	if r.Added == nil {
		r.Added = []CellChange{}
	}
	if r.Removed == nil {
		r.Removed = []CellChange{}
	}
	if r.Modified == nil {
		r.Modified = []CellChange{}
	}
	if r.Moved == nil {
		r.Moved = []CellMove{}
	}
	if r.FormatOnly == nil {
		r.FormatOnly = []FormatChange{}
	}
	sortChanges(r.Added)
	sortChanges(r.Removed)
	sortChanges(r.Modified)
	sort.SliceStable(r.Moved, func(i, j int) bool {
		a, b := r.Moved[i], r.Moved[j]
		if a.OldLocation != b.OldLocation {
			return a.OldLocation.Less(b.OldLocation)
		}
		return a.NewLocation.Less(b.NewLocation)
	})
	sort.SliceStable(r.FormatOnly, func(i, j int) bool {
		return r.FormatOnly[i].Cell.Less(r.FormatOnly[j].Cell)
	})
}

func sortChanges(cs []CellChange) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Cell.Less(cs[j].Cell) })
}

type located struct {
	loc  Location
	cell state.Cell
}

func indexByLocation(cells map[string]state.Cell) map[Location]state.Cell {
	m := make(map[Location]state.Cell, len(cells))
	for key, c := range cells {
		row, col, ok := cellkey.ParseRC(key)
		if !ok {
			continue
		}
		m[Location{Row: row, Col: col}] = c
	}
	return m
}

func classifyRemovedAndChanged(prev, curr map[Location]state.Cell) ([]located, []CellChange, []FormatChange) {
	removed := make([]located, 0)
	modified := make([]CellChange, 0)
	formatOnly := make([]FormatChange, 0)
	for loc, pc := range prev {
		cc, ok := curr[loc]
		if !ok {
			removed = append(removed, located{loc: loc, cell: pc})
			continue
		}
		sameFormat := value.Equal(pc.Format, cc.Format)
		switch {
		case sameContent(pc, cc) && sameFormat:
		case sameContent(pc, cc):
			formatOnly = append(formatOnly, FormatChange{Cell: loc, OldFormat: pc.Format, NewFormat: cc.Format})
		default:
			ch := CellChange{Cell: loc}
			fillOld(&ch, pc)
			fillNew(&ch, cc)
			modified = append(modified, ch)
		}
	}
	return removed, modified, formatOnly
}

func classifyAdded(prev, curr map[Location]state.Cell) []located {
	added := make([]located, 0)
	for loc, cc := range curr {
		if _, ok := prev[loc]; !ok {
			added = append(added, located{loc: loc, cell: cc})
		}
	}
	return added
}

// matchExactMoves pairs removed and added cells with equal content. Both
// sides are consumed in row-major order, so the pairing is deterministic.
func matchExactMoves(removed, added []located) ([]CellMove, []located, []located) {
	sortLocated(removed)
	sortLocated(added)
	if len(removed) == 0 || len(added) == 0 {
		return nil, removed, added
	}
	byContent := make(map[string][]int, len(removed))
	for idx, rc := range removed {
		if rc.cell.Empty() {
			continue
		}
		k := contentKey(rc.cell)
		byContent[k] = append(byContent[k], idx)
	}

	usedRemoved := make(map[int]bool)
	usedAdded := make(map[int]bool)
	moved := make([]CellMove, 0)
	for idx, ac := range added {
		if ac.cell.Empty() {
			continue
		}
		k := contentKey(ac.cell)
		cands := byContent[k]
		if len(cands) == 0 {
			continue
		}
		cand := cands[0]
		if len(cands) == 1 {
			delete(byContent, k)
		} else {
			byContent[k] = cands[1:]
		}
		usedRemoved[cand] = true
		usedAdded[idx] = true
		m := CellMove{
			OldLocation: removed[cand].loc,
			NewLocation: ac.loc,
			Value:       ac.cell.Value,
			Formula:     ac.cell.Formula,
			Encrypted:   ac.cell.Encrypted(),
			KeyID:       ac.cell.KeyID(),
		}
		if old := removed[cand].cell.Format; !value.Equal(old, ac.cell.Format) {
			m.OldFormat, m.NewFormat = old, ac.cell.Format
		}
		moved = append(moved, m)
	}
	return moved, filterLocated(removed, usedRemoved), filterLocated(added, usedAdded)
}

func sortLocated(ls []located) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].loc.Less(ls[j].loc) })
}

func filterLocated(ls []located, used map[int]bool) []located {
	out := make([]located, 0, len(ls)-len(used))
	for i, l := range ls {
		if !used[i] {
			out = append(out, l)
		}
	}
	return out
}

func sameContent(a, b state.Cell) bool {
	if a.Encrypted() || b.Encrypted() {
		return value.Equal(a.Enc, b.Enc)
	}
	return value.Equal(a.Value, b.Value) &&
		textutil.NormalizeFormula(a.Formula) == textutil.NormalizeFormula(b.Formula)
}

// contentKey is equal for two cells exactly when sameContent holds.
func contentKey(c state.Cell) string {
	if c.Encrypted() {
		return "e" + c.Enc.String()
	}
	return "p" + c.Value.String() + "\x00" + textutil.NormalizeFormula(c.Formula)
}

func addedChange(l located) CellChange {
	ch := CellChange{Cell: l.loc}
	fillNew(&ch, l.cell)
	return ch
}

func removedChange(l located) CellChange {
	ch := CellChange{Cell: l.loc}
	fillOld(&ch, l.cell)
	return ch
}

func fillOld(ch *CellChange, c state.Cell) {
	ch.OldFormat = c.Format
	ch.OldEncrypted = c.Encrypted()
	ch.OldKeyID = c.KeyID()
	if !ch.OldEncrypted {
		ch.OldValue = c.Value
		ch.OldFormula = c.Formula
	}
}

func fillNew(ch *CellChange, c state.Cell) {
	ch.NewFormat = c.Format
	ch.NewEncrypted = c.Encrypted()
	ch.NewKeyID = c.KeyID()
	if !ch.NewEncrypted {
		ch.NewValue = c.Value
		ch.NewFormula = c.Formula
	}
}
