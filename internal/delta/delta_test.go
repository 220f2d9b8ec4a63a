package delta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-history/internal/celldiff"
	"sheet-history/internal/crdt"
	"sheet-history/internal/reorder"
	"sheet-history/internal/state"
	"sheet-history/internal/value"
)

// kv builds a façade map from alternating keys and values, inserting in the
// given order.
func kv(pairs ...any) *crdt.Map {
	m := crdt.NewMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

type book struct {
	sheets   []*crdt.Map
	cells    [][2]any
	comments [][2]any
	metadata [][2]any
}

func (b book) doc() *crdt.Document {
	doc := crdt.NewDocument()
	sheets := crdt.NewList()
	for _, s := range b.sheets {
		sheets.Push(s)
	}
	doc.SetRoot(state.RootSheets, sheets)
	fill := func(name string, entries [][2]any) {
		if entries == nil {
			return
		}
		m := crdt.NewMap()
		for _, e := range entries {
			m.Set(e[0].(string), e[1])
		}
		doc.SetRoot(name, m)
	}
	fill(state.RootCells, b.cells)
	fill(state.RootComments, b.comments)
	fill(state.RootMetadata, b.metadata)
	return doc
}

func (b book) snapshot(t *testing.T) []byte {
	t.Helper()
	data, err := crdt.Serialize(b.doc())
	require.NoError(t, err)
	return data
}

func diffBooks(t *testing.T, before, after book) WorkbookDiff {
	t.Helper()
	d, err := Diff(before.snapshot(t), after.snapshot(t))
	require.NoError(t, err)
	return d
}

func sheet(id, name string) *crdt.Map { return kv("id", id, "name", name) }

func cell(v any) *crdt.Map { return kv("value", v) }

func TestConcreteScenario(t *testing.T) {
	before := book{
		sheets: []*crdt.Map{sheet("s1", "Sheet1")},
		cells:  [][2]any{{"s1:0:0", cell("alpha")}},
	}
	after := book{
		sheets: []*crdt.Map{sheet("s1", "Sheet1")},
		cells:  [][2]any{{"s1:0:1", cell("alpha")}, {"s1:1:0", cell("beta")}},
	}
	d := diffBooks(t, before, after)

	assert.Empty(t, d.Sheets.Renamed)
	require.Len(t, d.CellsBySheet, 1)
	cd := d.CellsBySheet[0].Diff
	assert.Equal(t, "s1", d.CellsBySheet[0].SheetID)
	assert.Equal(t, []celldiff.CellMove{{
		OldLocation: celldiff.Location{Row: 0, Col: 0},
		NewLocation: celldiff.Location{Row: 0, Col: 1},
		Value:       value.StringOf("alpha"),
	}}, cd.Moved)
	assert.Equal(t, []celldiff.CellChange{{
		Cell:     celldiff.Location{Row: 1, Col: 0},
		NewValue: value.StringOf("beta"),
	}}, cd.Added)
	assert.Empty(t, cd.Removed)
	assert.Empty(t, cd.Modified)
}

func TestIdentityIsEmpty(t *testing.T) {
	b := book{
		sheets:   []*crdt.Map{sheet("s1", "One"), sheet("s2", "Two")},
		cells:    [][2]any{{"s1:0:0", cell("x")}, {"s2:3,4", cell(7)}},
		comments: [][2]any{{"c1", kv("content", "hi", "cellRef", "s1:0:0")}},
		metadata: [][2]any{{"locale", "en"}},
	}
	data := b.snapshot(t)
	d, err := Diff(data, data)
	require.NoError(t, err)
	assert.True(t, d.Empty())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"sheets": {"added": [], "removed": [], "renamed": [], "moved": [], "metaChanged": []},
		"cellsBySheet": [],
		"comments": {"added": [], "removed": [], "modified": []},
		"metadata": {"added": [], "removed": [], "modified": []},
		"namedRanges": {"added": [], "removed": [], "modified": []}
	}`, string(out), "no bucket is ever omitted")
}

func TestDeterministicAcrossInsertionOrder(t *testing.T) {
	before := book{
		sheets:   []*crdt.Map{sheet("s1", "One")},
		cells:    [][2]any{{"s1:0:0", cell("a")}, {"s1:1:1", cell("b")}},
		metadata: [][2]any{{"m1", 1}},
	}
	afterA := book{
		sheets: []*crdt.Map{sheet("s1", "Uno"), kv("id", "s2", "name", "Two", "visibility", "hidden")},
		cells: [][2]any{
			{"s1:0:0", cell("a2")},
			{"s1:5:5", cell("b")},
			{"s2:0:0", cell("new")},
			{"s1:9:9", kv("format", kv("bold", true), "value", "z")},
		},
		comments: [][2]any{{"c2", kv("content", "two")}, {"c1", kv("content", "one")}},
		metadata: [][2]any{{"m2", kv("b", 2, "a", 1)}, {"m1", 2}},
	}
	afterB := book{
		sheets: []*crdt.Map{kv("name", "Uno", "id", "s1"), kv("visibility", "hidden", "name", "Two", "id", "s2")},
		cells: [][2]any{
			{"s1:9:9", kv("value", "z", "format", kv("bold", true))},
			{"s2:0:0", cell("new")},
			{"s1:5:5", cell("b")},
			{"s1:0:0", cell("a2")},
		},
		comments: [][2]any{{"c1", kv("content", "one")}, {"c2", kv("content", "two")}},
		metadata: [][2]any{{"m1", 2}, {"m2", kv("a", 1, "b", 2)}},
	}
	d1 := diffBooks(t, before, afterA)
	d2 := diffBooks(t, before, afterB)
	d3 := diffBooks(t, before, afterA)

	j1, err := json.Marshal(d1)
	require.NoError(t, err)
	j2, err := json.Marshal(d2)
	require.NoError(t, err)
	j3, err := json.Marshal(d3)
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
	assert.Equal(t, string(j1), string(j3))

	assert.Len(t, d1.Sheets.Added, 1)
	assert.Len(t, d1.Sheets.Renamed, 1)
	assert.Len(t, d1.CellsBySheet, 2)
	assert.Len(t, d1.Comments.Added, 2)
	assert.Len(t, d1.Metadata.Added, 1)
	assert.Len(t, d1.Metadata.Modified, 1)
}

func encCell(keyID, ct string) *crdt.Map {
	return kv("enc", kv("keyId", keyID, "ct", ct, "iv", "nonce"))
}

func TestEncryptedOpacity(t *testing.T) {
	before := book{sheets: []*crdt.Map{sheet("s1", "S")}, cells: [][2]any{{"s1:0:0", encCell("k1", "CIPHERTEXT-ONE")}}}
	after := book{sheets: []*crdt.Map{sheet("s1", "S")}, cells: [][2]any{{"s1:0:0", encCell("k1", "CIPHERTEXT-TWO")}}}
	d := diffBooks(t, before, after)

	require.Len(t, d.CellsBySheet, 1)
	mod := d.CellsBySheet[0].Diff.Modified
	require.Len(t, mod, 1)
	assert.True(t, mod[0].OldEncrypted)
	assert.True(t, mod[0].NewEncrypted)
	assert.Equal(t, "k1", mod[0].OldKeyID)
	assert.Equal(t, mod[0].OldKeyID, mod[0].NewKeyID)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "CIPHERTEXT")
	assert.NotContains(t, string(out), "nonce")
}

func TestAliasPrecedence(t *testing.T) {
	mk := func(plain string) book {
		return book{
			sheets: []*crdt.Map{sheet("s1", "S")},
			cells: [][2]any{
				{"s1:0,0", encCell("k1", "SECRET")},
				{"s1:0:0", cell(plain)},
			},
		}
	}
	before := mk("plain v1")
	st, err := state.ExtractFromSnapshot(before.snapshot(t))
	require.NoError(t, err)
	c := st.Cells("s1")["r0c0"]
	assert.True(t, c.Encrypted())
	assert.True(t, c.Value.IsNull())

	d := diffBooks(t, before, mk("plain v2"))
	assert.True(t, d.Empty(), "only the shadowed plaintext duplicate changed")
}

func TestReorderMinimality(t *testing.T) {
	ids := func(order ...string) []*crdt.Map {
		out := make([]*crdt.Map, len(order))
		for i, id := range order {
			out[i] = sheet(id, "Sheet "+id)
		}
		return out
	}
	d := diffBooks(t, book{sheets: ids("A", "B", "C", "D")}, book{sheets: ids("A", "C", "B", "D")})
	assert.Equal(t, []reorder.Move{
		{ID: "B", BeforeIndex: 1, AfterIndex: 2},
		{ID: "C", BeforeIndex: 2, AfterIndex: 1},
	}, d.Sheets.Moved)
	assert.Empty(t, d.Sheets.Added)
	assert.Empty(t, d.Sheets.Renamed)
}

func TestFormatLayeringIsFormatOnly(t *testing.T) {
	before := book{
		sheets: []*crdt.Map{kv(
			"id", "s1", "name", "S",
			"defaultFormat", kv("bold", true),
			"rowFormats", kv("0", kv("bold", false)),
		)},
		cells: [][2]any{{"s1:0:0", cell("x")}},
	}
	st, err := state.ExtractFromSnapshot(before.snapshot(t))
	require.NoError(t, err)
	assert.Equal(t, `{"bold":false}`, st.Cells("s1")["r0c0"].Format.String())

	after := book{
		sheets: []*crdt.Map{kv("id", "s1", "name", "S", "defaultFormat", kv("bold", true))},
		cells:  [][2]any{{"s1:0:0", cell("x")}},
	}
	d := diffBooks(t, before, after)
	require.Len(t, d.CellsBySheet, 1)
	cd := d.CellsBySheet[0].Diff
	assert.Empty(t, cd.Modified)
	require.Len(t, cd.FormatOnly, 1)
	assert.Equal(t, `{"bold":false}`, cd.FormatOnly[0].OldFormat.String())
	assert.Equal(t, `{"bold":true}`, cd.FormatOnly[0].NewFormat.String())
}

func TestCommentsAddAndResolve(t *testing.T) {
	before := book{comments: [][2]any{
		{"c1", kv("id", "c1", "content", "first", "resolved", false)},
	}}
	after := book{comments: [][2]any{
		{"c1", kv("id", "c1", "content", "first", "resolved", true)},
		{"c2", kv("id", "c2", "content", "second")},
	}}
	d := diffBooks(t, before, after)
	require.Len(t, d.Comments.Added, 1)
	assert.Equal(t, "c2", d.Comments.Added[0].ID)
	require.Len(t, d.Comments.Modified, 1)
	assert.Equal(t, "c1", d.Comments.Modified[0].ID)
	assert.Equal(t, []string{FieldResolved}, d.Comments.Modified[0].Fields)
	assert.Empty(t, d.Comments.Removed)
}

func TestSheetMetaChanges(t *testing.T) {
	before := book{sheets: []*crdt.Map{
		kv("id", "s1", "name", "A", "tabColor", "00FF00", "view", kv("frozenRows", 1)),
		sheet("gone", "Gone"),
	}}
	after := book{sheets: []*crdt.Map{
		kv("id", "s1", "name", "B", "visibility", "veryHidden", "view", kv("frozenRows", 2, "frozenCols", 1)),
	}}
	d := diffBooks(t, before, after)

	require.Len(t, d.Sheets.Removed, 1)
	assert.Equal(t, "gone", d.Sheets.Removed[0].ID)
	assert.Equal(t, 1, d.Sheets.Removed[0].Index)
	require.Len(t, d.Sheets.Renamed, 1)
	assert.Equal(t, "A", *d.Sheets.Renamed[0].OldName)
	assert.Equal(t, "B", *d.Sheets.Renamed[0].NewName)

	var fields []string
	for _, m := range d.Sheets.MetaChanged {
		fields = append(fields, m.Field)
	}
	assert.Equal(t, []string{FieldTabColor, FieldFrozenCols, FieldFrozenRows, FieldVisibility}, fields)
	assert.Equal(t, `"FF00FF00"`, d.Sheets.MetaChanged[0].Before.String())
	assert.True(t, d.Sheets.MetaChanged[0].After.IsNull())
}

func TestMaterializeErrorSurfaces(t *testing.T) {
	good := book{}.snapshot(t)
	_, err := Diff([]byte{0xde, 0xad}, good)
	require.Error(t, err)
	_, want := crdt.Materialize([]byte{0xde, 0xad})
	assert.Equal(t, want.Error(), err.Error(), "decode errors are not wrapped")
}

func TestCustomCellDiffIsResorted(t *testing.T) {
	fake := func(before, after map[string]state.Cell) celldiff.Result {
		return celldiff.Result{Added: []celldiff.CellChange{
			{Cell: celldiff.Location{Row: 3}},
			{Cell: celldiff.Location{Row: 1}},
		}}
	}
	st := state.WorkbookState{CellsBySheet: []state.SheetCells{{SheetID: "s1", Cells: map[string]state.Cell{}}}}
	d := Engine{CellDiff: fake}.Compare(st, st)
	require.Len(t, d.CellsBySheet, 1)
	got := d.CellsBySheet[0].Diff
	assert.Equal(t, 1, got.Added[0].Cell.Row)
	assert.Equal(t, 3, got.Added[1].Cell.Row)
	assert.NotNil(t, got.Moved)
}
