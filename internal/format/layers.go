package format

import (
	"sort"

	"sheet-history/internal/cellkey"
	"sheet-history/internal/value"
)

// Run styles the half-open row interval [StartRow, EndRow) of one column.
type Run struct {
	StartRow int
	EndRow   int
	Style    value.Value
}

// Layers are the inheritable style layers of one sheet. RunsByCol slices are
// sorted by StartRow and never overlap.
type Layers struct {
	SheetDefault value.Value
	RowFormats   map[int]value.Value
	ColFormats   map[int]value.Value
	RunsByCol    map[int][]Run

	// Dropped counts malformed entries skipped while decoding.
	Dropped int
}

// Empty reports whether no layer carries any style.
func (l Layers) Empty() bool {
	return l.SheetDefault.IsNull() && len(l.RowFormats) == 0 && len(l.ColFormats) == 0 && len(l.RunsByCol) == 0
}

// RunFor returns the style of the run covering row in col.
func (l Layers) RunFor(col, row int) (value.Value, bool) {
	runs := l.RunsByCol[col]
	i := sort.Search(len(runs), func(i int) bool { return runs[i].StartRow > row }) - 1
	if i < 0 || row >= runs[i].EndRow {
		return value.Value{}, false
	}
	return runs[i].Style, true
}

// Effective computes the style of (row, col) given the cell's own format.
func (l Layers) Effective(row, col int, own value.Value) value.Value {
	style := l.SheetDefault
	style = Merge(style, l.ColFormats[col])
	style = Merge(style, l.RowFormats[row])
	if run, ok := l.RunFor(col, row); ok {
		style = Merge(style, run)
	}
	style = Merge(style, own)
	return Normalize(style)
}

// Styled is a cell record whose format can be replaced.
type Styled interface {
	Style() value.Value
	SetStyle(value.Value)
}

// ApplyTo overwrites the format of every cell keyed "r{row}c{col}" with its
// effective style. Other keys are left alone. With no layers the sheet is
// skipped entirely.
func ApplyTo[T Styled](cells map[string]T, l Layers) {
	if l.Empty() {
		return
	}
	for key, cell := range cells {
		row, col, ok := cellkey.ParseRC(key)
		if !ok {
			continue
		}
		cell.SetStyle(l.Effective(row, col, cell.Style()))
	}
}

// FromSheetEntry reads the style layers of a canonicalized sheet entry.
// Each layer is looked up at the top level first and under "view" for
// older documents. Malformed entries are dropped and counted.
func FromSheetEntry(entry value.Value) Layers {
	var l Layers
	if v, ok := lookup(entry, "defaultFormat"); ok {
		l.SheetDefault = Normalize(v)
		if l.SheetDefault.IsNull() && !v.IsNull() && !v.IsEmptyObject() {
			l.Dropped++
		}
	}
	if v, ok := lookup(entry, "rowFormats"); ok {
		l.RowFormats = decodeIndexed(v, "row", &l.Dropped)
	}
	if v, ok := lookup(entry, "colFormats"); ok {
		l.ColFormats = decodeIndexed(v, "col", &l.Dropped)
	}
	if v, ok := lookup(entry, "formatRunsByCol"); ok {
		l.RunsByCol = decodeRuns(v, &l.Dropped)
	}
	return l
}

func lookup(entry value.Value, key string) (value.Value, bool) {
	if v, ok := entry.Get(key); ok && !v.IsNull() {
		return v, true
	}
	if v, ok := entry.Path("view", key); ok && !v.IsNull() {
		return v, true
	}
	return value.Value{}, false
}

// decodeIndexed accepts:
//
//	{"3": {...}}                     object keyed by index
//	[{"row": 3, "format": {...}}]    array of records (indexKey names the index field)
//	[[3, {...}]]                     array of tuples
func decodeIndexed(v value.Value, indexKey string, dropped *int) map[int]value.Value {
	out := make(map[int]value.Value)
	put := func(idx value.Value, style value.Value) {
		i, ok := idx.AsIndex()
		if !ok || !style.IsObject() {
			*dropped++
			return
		}
		if s := Normalize(style); !s.IsNull() {
			out[i] = s
		}
	}
	switch v.Kind() {
	case value.Object:
		for _, m := range v.Members() {
			put(value.StringOf(m.Key), m.Value)
		}
	case value.Array:
		for _, it := range v.Items() {
			switch it.Kind() {
			case value.Object:
				idx, ok := it.Get(indexKey)
				if !ok {
					idx, _ = it.Get("index")
				}
				style, _ := it.Get("format")
				put(idx, style)
			case value.Array:
				pair := it.Items()
				if len(pair) != 2 {
					*dropped++
					continue
				}
				put(pair[0], pair[1])
			default:
				*dropped++
			}
		}
	default:
		*dropped++
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeRuns accepts:
//
//	{"0": [run, ...]}                   object keyed by column
//	[{"col": 0, "runs": [run, ...]}]    array of column records
//
// where run is {"startRow": n, "endRowExclusive": m, "format": {...}}.
func decodeRuns(v value.Value, dropped *int) map[int][]Run {
	out := make(map[int][]Run)
	addCol := func(colV, runsV value.Value) {
		col, ok := colV.AsIndex()
		if !ok || runsV.Kind() != value.Array {
			*dropped++
			return
		}
		for _, r := range runsV.Items() {
			run, ok := decodeRun(r)
			if !ok {
				*dropped++
				continue
			}
			out[col] = append(out[col], run)
		}
	}
	switch v.Kind() {
	case value.Object:
		for _, m := range v.Members() {
			addCol(value.StringOf(m.Key), m.Value)
		}
	case value.Array:
		for _, it := range v.Items() {
			colV, okC := it.Get("col")
			runsV, okR := it.Get("runs")
			if !okC || !okR {
				*dropped++
				continue
			}
			addCol(colV, runsV)
		}
	default:
		*dropped++
	}
	for col, runs := range out {
		out[col] = sortRuns(runs, dropped)
		if len(out[col]) == 0 {
			delete(out, col)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeRun(r value.Value) (Run, bool) {
	startV, okS := r.Get("startRow")
	endV, okE := r.Get("endRowExclusive")
	style, _ := r.Get("format")
	if !okS || !okE || !style.IsObject() {
		return Run{}, false
	}
	start, okS := startV.AsIndex()
	end, okE := endV.AsIndex()
	if !okS || !okE || end <= start {
		return Run{}, false
	}
	return Run{StartRow: start, EndRow: end, Style: Normalize(style)}, true
}

// sortRuns orders runs by start row and drops any run overlapping the one
// kept before it.
func sortRuns(runs []Run, dropped *int) []Run {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartRow != runs[j].StartRow {
			return runs[i].StartRow < runs[j].StartRow
		}
		return runs[i].EndRow < runs[j].EndRow
	})
	out := runs[:0]
	for _, r := range runs {
		if n := len(out); n > 0 && r.StartRow < out[n-1].EndRow {
			*dropped++
			continue
		}
		if r.Style.IsNull() {
			continue
		}
		out = append(out, r)
	}
	return out
}
