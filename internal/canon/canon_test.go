package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheet-history/internal/crdt"
	"sheet-history/internal/value"
)

func buildNested(order []string) *crdt.Map {
	m := crdt.NewMap()
	for _, k := range order {
		switch k {
		case "list":
			l := crdt.NewList()
			l.Push(int64(1), "two", crdt.NewText("three"))
			m.Set(k, l)
		case "inner":
			in := crdt.NewMap()
			in.Set("y", true)
			in.Set("x", nil)
			m.Set(k, in)
		default:
			m.Set(k, 3.5)
		}
	}
	return m
}

func TestToJSONIsInsertionOrderIndependent(t *testing.T) {
	a := ToJSON(buildNested([]string{"list", "inner", "num"}))
	b := ToJSON(buildNested([]string{"num", "inner", "list"}))
	assert.True(t, value.Equal(a, b))
	assert.Equal(t, `{"inner":{"x":null,"y":true},"list":[1,"two","three"],"num":3.5}`, a.String())
}

func TestToJSONIsIdempotent(t *testing.T) {
	inputs := []any{
		buildNested([]string{"inner", "list"}),
		map[string]any{"b": []any{1, map[string]any{"c": "d"}}, "a": nil},
		crdt.NewText("plain"),
		"scalar",
		int64(7),
		nil,
	}
	for _, in := range inputs {
		once := ToJSON(in)
		twice := ToJSON(once)
		assert.True(t, value.Equal(once, twice), "input %#v", in)
	}
}

func TestToJSONPlaceholder(t *testing.T) {
	b := crdt.NewBacking()
	b.InsertItems(0, "a", "b")
	assert.Equal(t, `["a","b"]`, ToJSON(crdt.NewPlaceholder(b)).String())

	b.SetEntry("k", "v")
	assert.Equal(t, `{"k":"v"}`, ToJSON(crdt.NewPlaceholder(b)).String())
	assert.Equal(t, `{}`, ToJSON(crdt.NewPlaceholder(crdt.NewBacking())).String())
}

func TestToJSONOpaqueBlob(t *testing.T) {
	type envelope struct {
		KeyID string `json:"keyId"`
	}
	assert.Equal(t, `{"keyId":"k1"}`, ToJSON(envelope{KeyID: "k1"}).String())
	assert.Equal(t, `"AQI="`, ToJSON([]byte{1, 2}).String())
}

func TestCloneDetachesAndPreservesTextRuns(t *testing.T) {
	bold := value.FromGo(map[string]any{"bold": true})
	txt := crdt.NewText("ab")
	txt.Insert(1, "X", bold)
	src := crdt.NewMap()
	src.Set("note", txt)
	src.Set("tags", []any{"x"})

	cloned, ok := Clone(src).(*crdt.Map)
	require.True(t, ok)
	assert.True(t, Equal(src, cloned))

	src.Set("note", crdt.NewText("changed"))
	assert.False(t, Equal(src, cloned))

	note, _ := cloned.Get("note")
	ops := note.(crdt.TextNode).Delta()
	require.Len(t, ops, 3)
	assert.True(t, value.Equal(bold, ops[1].Attributes))
}

func TestClonePlaceholderKeepsBothHalves(t *testing.T) {
	b := crdt.NewBacking()
	b.SetEntry("c1", "map-side")
	b.InsertItems(0, "seq-side")
	p := Clone(crdt.NewPlaceholder(b)).(*crdt.Placeholder)
	assert.True(t, p.Backing().HasEntries())
	assert.Equal(t, []any{"seq-side"}, p.Backing().Sequence())
	assert.NotSame(t, b, p.Backing())
}
