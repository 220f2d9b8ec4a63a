// Package canon converts CRDT node trees into canonical value.Value trees.
//
// ToJSON is the only equality oracle the diff uses: two structurally equal
// nodes canonicalize to Equal values no matter how (or in which order) they
// were built.
package canon

import (
	"encoding/base64"
	"time"

	"sheet-history/internal/crdt"
	"sheet-history/internal/value"
)

// ToJSON canonicalizes n. Map-shaped nodes become objects with sorted keys,
// list-shaped nodes become arrays, text becomes a string. Plain Go maps and
// slices are recursed into; any other foreign type is cloned through
// encoding/json as an opaque blob. CRDT trees are acyclic, so there is no
// cycle guard.
func ToJSON(n any) value.Value {
	switch crdt.Classify(n) {
	case crdt.KindText:
		return value.StringOf(n.(crdt.TextNode).String())
	case crdt.KindMap:
		mn := n.(crdt.MapNode)
		keys := mn.Keys()
		members := make([]value.Member, 0, len(keys))
		for _, k := range keys {
			child, _ := mn.Get(k)
			members = append(members, value.Member{Key: k, Value: ToJSON(child)})
		}
		return value.ObjectOf(members...)
	case crdt.KindList:
		ln := n.(crdt.ListNode)
		items := make([]value.Value, 0, ln.Len())
		for i := 0; i < ln.Len(); i++ {
			child, _ := ln.At(i)
			items = append(items, ToJSON(child))
		}
		return value.ArrayOf(items...)
	}

	switch t := n.(type) {
	case *crdt.Placeholder:
		b := t.Backing()
		if b.HasEntries() || !b.HasSequence() {
			return ToJSON(crdt.MapOn(b))
		}
		return ToJSON(crdt.ListOn(b))
	case value.Value:
		return t
	case []byte:
		return value.StringOf(base64.StdEncoding.EncodeToString(t))
	case time.Time:
		return value.StringOf(t.UTC().Format(time.RFC3339Nano))
	case []any:
		items := make([]value.Value, len(t))
		for i, it := range t {
			items[i] = ToJSON(it)
		}
		return value.ArrayOf(items...)
	case map[string]any:
		members := make([]value.Member, 0, len(t))
		for k, it := range t {
			members = append(members, value.Member{Key: k, Value: ToJSON(it)})
		}
		return value.ObjectOf(members...)
	default:
		return value.FromGo(t)
	}
}

// Equal reports whether two nodes canonicalize to the same value.
func Equal(a, b any) bool {
	return value.Equal(ToJSON(a), ToJSON(b))
}
