package state

import (
	"log/slog"
	"sort"
	"strings"

	"sheet-history/internal/canon"
	"sheet-history/internal/cellkey"
	"sheet-history/internal/crdt"
	"sheet-history/internal/format"
	"sheet-history/internal/roots"
	"sheet-history/internal/sortutil"
	"sheet-history/internal/value"
)

// Root names read by the extractor.
const (
	RootSheets      = "sheets"
	RootCells       = "cells"
	RootComments    = "comments"
	RootMetadata    = "metadata"
	RootNamedRanges = "namedRanges"
)

// Extractor builds WorkbookStates. The zero value logs to slog.Default().
type Extractor struct {
	Logger *slog.Logger
}

// Extract reads doc with a default Extractor.
func Extract(doc *crdt.Document) WorkbookState {
	return Extractor{}.Extract(doc)
}

// ExtractFromSnapshot materializes data and extracts it with a default
// Extractor.
func ExtractFromSnapshot(data []byte) (WorkbookState, error) {
	return Extractor{}.ExtractFromSnapshot(data)
}

// ExtractFromSnapshot materializes a fresh document from data and extracts
// it. Decode errors are returned as is.
func (e Extractor) ExtractFromSnapshot(data []byte) (WorkbookState, error) {
	doc, err := crdt.Materialize(data)
	if err != nil {
		return WorkbookState{}, err
	}
	return e.Extract(doc), nil
}

// Extract walks doc once. A root that is missing or unreadable yields an
// empty facet; extraction never fails. Placeholder roots may be specialized
// in the document registry, but no entry is added, changed or removed.
func (e Extractor) Extract(doc *crdt.Document) WorkbookState {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	x := extraction{log: log}

	st := WorkbookState{}
	st.Sheets, st.SheetOrder = x.sheets(doc)
	st.CellsBySheet = x.cells(doc, firstOr(st.SheetOrder))
	st.Metadata = x.keyed(doc, RootMetadata)
	st.NamedRanges = x.keyed(doc, RootNamedRanges)
	st.Comments = x.comments(doc)
	return st
}

type extraction struct {
	log *slog.Logger
	// entries holds the canonical entry of each sheet id, last one winning.
	entries map[string]value.Value
}

func firstOr(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func (x *extraction) sheets(doc *crdt.Document) ([]SheetMeta, []string) {
	x.entries = make(map[string]value.Value)
	order := []string{}
	n, ok := roots.LookupRoot(doc, RootSheets, crdt.KindList)
	if !ok {
		x.log.Debug("sheets root missing or not a list", "root", RootSheets)
		return []SheetMeta{}, order
	}
	list := n.(crdt.ListNode)
	seen := make(map[string]struct{})
	for i := 0; i < list.Len(); i++ {
		item, _ := list.At(i)
		entry := canon.ToJSON(item)
		idV, _ := entry.Get("id")
		id, _ := idV.AsString()
		if id == "" {
			x.log.Debug("sheet entry without id", "root", RootSheets, "index", i)
			continue
		}
		x.entries[id] = entry
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}

	metas := make([]SheetMeta, 0, len(x.entries))
	for id, entry := range x.entries {
		metas = append(metas, sheetMeta(id, entry))
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, order
}

func sheetMeta(id string, entry value.Value) SheetMeta {
	m := SheetMeta{ID: id, Visibility: Visible}
	if v, ok := entry.Get("name"); ok {
		if s, ok := v.AsString(); ok {
			m.Name = &s
		}
	}
	if v, ok := entry.Get("visibility"); ok {
		if s, ok := v.AsString(); ok {
			switch Visibility(s) {
			case Hidden, VeryHidden:
				m.Visibility = Visibility(s)
			}
		}
	}
	if v, ok := entry.Get("tabColor"); ok {
		if s, ok := v.AsString(); ok {
			m.TabColor = normalizeColor(s)
		}
	}
	m.View.FrozenRows = viewInt(entry, "frozenRows")
	m.View.FrozenCols = viewInt(entry, "frozenCols")
	return m
}

func viewInt(entry value.Value, key string) int {
	v, ok := entry.Path("view", key)
	if !ok {
		v, ok = entry.Get(key)
	}
	if !ok {
		return 0
	}
	n, _ := v.AsIndex()
	return n
}

// normalizeColor returns an 8-digit upper-case ARGB string. Six-digit RGB
// gains an opaque alpha; anything else is nil.
func normalizeColor(s string) *string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return nil
		}
	}
	s = strings.ToUpper(s)
	if len(s) == 6 {
		s = "FF" + s
	}
	return &s
}

// alias is one stored encoding of a coordinate.
type alias struct {
	cell      *Cell
	canonical bool
}

func (a alias) outranks(b alias) bool {
	if a.cell.Encrypted() != b.cell.Encrypted() {
		return a.cell.Encrypted()
	}
	return a.canonical && !b.canonical
}

func (x *extraction) cells(doc *crdt.Document, defaultSheet string) []SheetCells {
	out := []SheetCells{}
	n, ok := roots.LookupRoot(doc, RootCells, crdt.KindMap)
	if !ok {
		x.log.Debug("cells root missing or not a map", "root", RootCells)
		return out
	}
	m := n.(crdt.MapNode)
	keys := m.Keys()
	sort.Strings(keys)

	bySheet := make(map[string]map[string]alias)
	for _, key := range keys {
		ref, ok := cellkey.Parse(key, defaultSheet)
		if !ok {
			x.log.Debug("skipping cell key", "root", RootCells, "key", key)
			continue
		}
		node, _ := m.Get(key)
		next := alias{cell: readCell(canon.ToJSON(node)), canonical: cellkey.IsCanonical(key, ref)}

		sheet := bySheet[ref.SheetID]
		if sheet == nil {
			sheet = make(map[string]alias)
			bySheet[ref.SheetID] = sheet
		}
		rc := cellkey.RC(ref.Row, ref.Col)
		cur, exists := sheet[rc]
		if !exists {
			sheet[rc] = next
			continue
		}
		winner, loser := cur, next
		if next.outranks(cur) {
			winner, loser = next, cur
		}
		if winner.cell.Format.IsNull() && !loser.cell.Format.IsNull() {
			winner.cell.Format = loser.cell.Format
		}
		sheet[rc] = winner
	}

	for _, id := range sortutil.Keys(bySheet) {
		staged := make(map[string]*Cell, len(bySheet[id]))
		for rc, a := range bySheet[id] {
			staged[rc] = a.cell
		}
		if entry, ok := x.entries[id]; ok {
			layers := format.FromSheetEntry(entry)
			if layers.Dropped > 0 {
				x.log.Debug("dropped malformed format entries", "sheet", id, "count", layers.Dropped)
			}
			format.ApplyTo(staged, layers)
		}
		cells := make(map[string]Cell, len(staged))
		for rc, c := range staged {
			cells[rc] = *c
		}
		out = append(out, SheetCells{SheetID: id, Cells: cells})
	}
	return out
}

// readCell decodes a canonical cell entry. A bare scalar is a plain value.
func readCell(v value.Value) *Cell {
	if !v.IsObject() {
		return &Cell{Value: v}
	}
	c := &Cell{}
	if enc, ok := v.Get("enc"); ok && !enc.IsNull() {
		c.Enc = enc
	} else {
		c.Value, _ = v.Get("value")
		if f, ok := v.Get("formula"); ok {
			c.Formula, _ = f.AsString()
		}
	}
	if f, ok := v.Get("format"); ok {
		c.Format = format.Normalize(f)
	}
	return c
}

func (x *extraction) keyed(doc *crdt.Document, name string) []Entry {
	out := []Entry{}
	n, ok := roots.LookupRoot(doc, name, crdt.KindMap)
	if !ok {
		x.log.Debug("keyed root missing or not a map", "root", name)
		return out
	}
	m := n.(crdt.MapNode)
	keys := m.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := m.Get(k)
		out = append(out, Entry{Key: k, Value: canon.ToJSON(v)})
	}
	return out
}

func commentID(key string, node any) (string, bool) {
	v := canon.ToJSON(node)
	if !v.IsObject() {
		return "", false
	}
	if idV, ok := v.Get("id"); ok {
		if id, ok := idV.AsString(); ok && id != "" {
			return id, true
		}
	}
	if key != "" {
		return key, true
	}
	return "", false
}

func (x *extraction) comments(doc *crdt.Document) []CommentSummary {
	out := []CommentSummary{}
	found, err := roots.RecoverByID(doc, RootComments, commentID)
	if err != nil {
		x.log.Debug("comments unavailable", "root", RootComments, "err", err)
		return out
	}
	for _, f := range found {
		out = append(out, summarize(f.ID, canon.ToJSON(f.Node)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func summarize(id string, v value.Value) CommentSummary {
	c := CommentSummary{ID: id}
	c.CellRef = firstString(v, "cellRef", "cell")
	c.Content = firstString(v, "content", "text")
	if r, ok := v.Get("resolved"); ok {
		c.Resolved, _ = r.AsBool()
	}
	if r, ok := v.Get("replies"); ok {
		c.RepliesLength = len(r.Items())
	}
	return c
}

func firstString(v value.Value, keys ...string) *string {
	for _, k := range keys {
		if f, ok := v.Get(k); ok {
			if s, ok := f.AsString(); ok {
				return &s
			}
		}
	}
	return nil
}
