package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-history/internal/crdt"
	"sheet-history/internal/value"
)

func mapOf(kv ...any) *crdt.Map {
	m := crdt.NewMap()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

func sheetList(sheets ...*crdt.Map) *crdt.List {
	l := crdt.NewList()
	for _, s := range sheets {
		l.Push(s)
	}
	return l
}

func TestExtractSheets(t *testing.T) {
	doc := crdt.NewDocument()
	doc.SetRoot(RootSheets, sheetList(
		mapOf("id", "s2", "name", "Second", "visibility", "hidden", "tabColor", "#00ff00"),
		mapOf("id", "s1", "name", crdt.NewText("First"), "view", mapOf("frozenRows", int64(2), "frozenCols", int64(1))),
		mapOf("name", "no id"),
		mapOf("id", "s2", "name", "Second again", "tabColor", "blue", "visibility", "weird"),
	))

	st := Extract(doc)
	assert.Equal(t, []string{"s2", "s1"}, st.SheetOrder)
	require.Len(t, st.Sheets, 2)

	s1, ok := st.Sheet("s1")
	require.True(t, ok)
	assert.Equal(t, "First", s1.DisplayName())
	assert.Equal(t, Visible, s1.Visibility)
	assert.Nil(t, s1.TabColor)
	assert.Equal(t, View{FrozenRows: 2, FrozenCols: 1}, s1.View)

	s2, _ := st.Sheet("s2")
	assert.Equal(t, "Second again", s2.DisplayName(), "last entry for a duplicate id wins")
	assert.Equal(t, Visible, s2.Visibility)
	assert.Nil(t, s2.TabColor)

	assert.Equal(t, 1, st.Index("s1"))
	assert.Equal(t, -1, st.Index("nope"))
}

func TestNormalizeColor(t *testing.T) {
	cases := map[string]string{
		"#00ff00":   "FF00FF00",
		"80a0b0c0":  "80A0B0C0",
		" #ABCDEF ": "FFABCDEF",
		"red":       "",
		"#12345":    "",
		"zz0000":    "",
	}
	for in, want := range cases {
		got := normalizeColor(in)
		if want == "" {
			assert.Nil(t, got, in)
			continue
		}
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	st := Extract(crdt.NewDocument())
	assert.NotNil(t, st.Sheets)
	assert.NotNil(t, st.SheetOrder)
	assert.NotNil(t, st.Metadata)
	assert.NotNil(t, st.NamedRanges)
	assert.NotNil(t, st.Comments)
	assert.NotNil(t, st.CellsBySheet)
	assert.Empty(t, st.CellsBySheet)
}

func TestExtractDegradesWrongKinds(t *testing.T) {
	doc := crdt.NewDocument()
	doc.SetRoot(RootSheets, crdt.NewMap())
	doc.SetRoot(RootCells, crdt.NewList())
	doc.SetRoot(RootMetadata, crdt.NewText("x"))
	doc.SetRoot(RootComments, crdt.NewText("y"))
	meta := crdt.NewMap()
	meta.Set("print", mapOf("landscape", true))
	doc.SetRoot(RootNamedRanges, meta)

	st := Extract(doc)
	assert.Empty(t, st.Sheets)
	assert.Empty(t, st.CellsBySheet)
	assert.Empty(t, st.Metadata)
	assert.Empty(t, st.Comments)
	require.Len(t, st.NamedRanges, 1, "one bad facet never hides another")
	assert.Equal(t, `{"landscape":true}`, st.NamedRanges[0].Value.String())
}

func TestExtractCellKeysAndAliases(t *testing.T) {
	doc := crdt.NewDocument()
	doc.SetRoot(RootSheets, sheetList(mapOf("id", "s1"), mapOf("id", "s2")))
	cells := crdt.NewMap()
	cells.Set("s1:0:0", mapOf("value", "alpha"))
	cells.Set("r1c1", mapOf("value", "bare"))
	cells.Set("s2:4,5", mapOf("value", "legacy"))
	cells.Set("garbage", mapOf("value", "skip"))
	cells.Set("s1:2,0", mapOf("enc", mapOf("keyId", "k1", "ct", "AAAA")))
	cells.Set("s1:2:0", mapOf("value", "plain duplicate", "format", mapOf("bold", true)))
	cells.Set("s1:3,0", mapOf("enc", mapOf("keyId", "k1", "ct", "legacy")))
	cells.Set("s1:3:0", mapOf("enc", mapOf("keyId", "k2", "ct", "canonical")))
	cells.Set("s1:5:0", "scalar")
	doc.SetRoot(RootCells, cells)

	st := Extract(doc)
	require.Len(t, st.CellsBySheet, 2)
	s1 := st.Cells("s1")
	s2 := st.Cells("s2")

	assert.Equal(t, `"alpha"`, s1["r0c0"].Value.String())
	assert.Equal(t, `"bare"`, s1["r1c1"].Value.String(), "bare keys resolve to the first sheet")
	assert.Equal(t, `"legacy"`, s2["r4c5"].Value.String())
	assert.Equal(t, `"scalar"`, s1["r5c0"].Value.String())

	enc := s1["r2c0"]
	assert.True(t, enc.Encrypted(), "an encrypted alias wins over a plaintext one")
	assert.True(t, enc.Value.IsNull())
	assert.Empty(t, enc.Formula)
	assert.Equal(t, "k1", enc.KeyID())
	assert.Equal(t, `{"bold":true}`, enc.Format.String(), "the plaintext alias donates its format")

	assert.Equal(t, "k2", s1["r3c0"].KeyID(), "canonical wins among encrypted aliases")
	assert.Len(t, s1, 5)
}

func TestExtractBareKeysWithoutSheets(t *testing.T) {
	doc := crdt.NewDocument()
	cells := crdt.NewMap()
	cells.Set("r0c0", mapOf("value", 1))
	cells.Set("orphan:0:0", mapOf("value", 2))
	doc.SetRoot(RootCells, cells)

	st := Extract(doc)
	require.Len(t, st.CellsBySheet, 1)
	assert.Equal(t, "orphan", st.CellsBySheet[0].SheetID)
}

func TestExtractAppliesFormatLayers(t *testing.T) {
	doc := crdt.NewDocument()
	doc.SetRoot(RootSheets, sheetList(mapOf(
		"id", "s1",
		"defaultFormat", mapOf("bold", true),
		"rowFormats", mapOf("0", mapOf("bold", false)),
	)))
	cells := crdt.NewMap()
	cells.Set("s1:0:0", mapOf("value", "a"))
	cells.Set("s1:1:0", mapOf("value", "b", "format", mapOf("italic", true)))
	doc.SetRoot(RootCells, cells)

	s1 := Extract(doc).Cells("s1")
	assert.Equal(t, `{"bold":false}`, s1["r0c0"].Format.String())
	assert.Equal(t, `{"bold":true,"italic":true}`, s1["r1c0"].Format.String())
}

func TestExtractKeyedFacets(t *testing.T) {
	doc := crdt.NewDocument()
	meta := crdt.NewMap()
	meta.Set("zeta", int64(1))
	meta.Set("alpha", mapOf("b", 2, "a", 1))
	doc.SetRoot(RootMetadata, meta)

	st := Extract(doc)
	require.Len(t, st.Metadata, 2)
	assert.Equal(t, "alpha", st.Metadata[0].Key)
	assert.Equal(t, `{"a":1,"b":2}`, st.Metadata[0].Value.String())
	assert.Equal(t, "zeta", st.Metadata[1].Key)
}

func TestExtractCommentsFromDriftedRoot(t *testing.T) {
	doc := crdt.NewDocument()
	p, _ := doc.Declare(RootComments)
	p.Backing().SetEntry("c2", mapOf("cellRef", "s1:0:0", "content", "keyed", "resolved", true))
	p.Backing().InsertItems(0,
		mapOf("id", "c1", "cell", "s1:1:1", "text", crdt.NewText("legacy"), "replies", []any{"a", "b"}),
		mapOf("id", "c2", "content", "shadowed"),
	)

	st := Extract(doc)
	require.Len(t, st.Comments, 2)
	c1, ok := st.Comment("c1")
	require.True(t, ok)
	require.NotNil(t, c1.CellRef)
	assert.Equal(t, "s1:1:1", *c1.CellRef)
	require.NotNil(t, c1.Content)
	assert.Equal(t, "legacy", *c1.Content)
	assert.Equal(t, 2, c1.RepliesLength)

	c2, _ := st.Comment("c2")
	assert.Equal(t, "keyed", *c2.Content)
	assert.True(t, c2.Resolved)
}

func TestExtractFromSnapshot(t *testing.T) {
	doc := crdt.NewDocument()
	doc.SetRoot(RootSheets, sheetList(mapOf("id", "s1", "name", "Sheet1")))
	cells := crdt.NewMap()
	cells.Set("s1:0:0", mapOf("value", "alpha", "formula", "=A2"))
	doc.SetRoot(RootCells, cells)
	data, err := crdt.Serialize(doc)
	require.NoError(t, err)

	st, err := ExtractFromSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, st.SheetOrder)
	c := st.Cells("s1")["r0c0"]
	assert.Equal(t, value.StringOf("alpha"), c.Value)
	assert.Equal(t, "=A2", c.Formula)

	_, err = ExtractFromSnapshot([]byte("not a snapshot"))
	assert.Error(t, err)
}
