package canon

import (
	"unicode/utf8"

	"sheet-history/internal/crdt"
)

type mapMaker interface{ Empty() crdt.MapNode }

type listMaker interface{ Empty() crdt.ListNode }

type textMaker interface{ Empty() *crdt.Text }

// Clone deep-copies n into fresh, detached nodes suitable for insertion into
// another document. Maps and lists are rebuilt through the source node's own
// Empty constructor when it has one. Text is rebuilt by replaying its delta
// so inline attributes survive. Scalars and value.Value trees are immutable
// and returned as is.
func Clone(n any) any {
	switch crdt.Classify(n) {
	case crdt.KindText:
		return cloneText(n.(crdt.TextNode))
	case crdt.KindMap:
		src := n.(crdt.MapNode)
		var dst crdt.MapNode = crdt.NewMap()
		if mk, ok := n.(mapMaker); ok {
			dst = mk.Empty()
		}
		for _, k := range src.Keys() {
			child, _ := src.Get(k)
			dst.Set(k, Clone(child))
		}
		return dst
	case crdt.KindList:
		src := n.(crdt.ListNode)
		var dst crdt.ListNode = crdt.NewList()
		if mk, ok := n.(listMaker); ok {
			dst = mk.Empty()
		}
		for i := 0; i < src.Len(); i++ {
			child, _ := src.At(i)
			dst.Push(Clone(child))
		}
		return dst
	}

	switch t := n.(type) {
	case *crdt.Placeholder:
		b := crdt.NewBacking()
		for _, k := range t.Backing().EntryKeys() {
			child, _ := t.Backing().Entry(k)
			b.SetEntry(k, Clone(child))
		}
		seq := t.Backing().Sequence()
		items := make([]any, len(seq))
		for i, it := range seq {
			items[i] = Clone(it)
		}
		b.InsertItems(0, items...)
		return crdt.NewPlaceholder(b)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, it := range t {
			out[k] = Clone(it)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = Clone(it)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return n
	}
}

func cloneText(src crdt.TextNode) *crdt.Text {
	dst := crdt.NewText("")
	if mk, ok := src.(textMaker); ok {
		dst = mk.Empty()
	}
	pos := 0
	for _, op := range src.Delta() {
		dst.Insert(pos, op.Insert, op.Attributes)
		pos += utf8.RuneCountInString(op.Insert)
	}
	return dst
}
