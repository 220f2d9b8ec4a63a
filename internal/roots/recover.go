package roots

import (
	"fmt"
	"sort"

	"sheet-history/internal/crdt"
)

// IDFunc derives an entry id. key is the map key for keyed entries and ""
// for sequence items. Entries without an id are skipped.
type IDFunc func(key string, node any) (string, bool)

// Identified is one recovered entry.
type Identified struct {
	ID   string
	Node any
}

// RecoverByID reads every entry of a root whose kind drifted between map and
// list across schema versions.
//
// An undecided root is specialized by Detect. Entries are then read through
// the public API of the resolved kind (map keys in lexicographic order, list
// items in position order), followed by entries that are only reachable
// through the other half of the storage. Entries are merged by id and the
// first one seen wins. An empty undecided root yields no entries.
func RecoverByID(doc *crdt.Document, name string, idOf IDFunc) ([]Identified, error) {
	n, ok := doc.Root(name)
	if !ok {
		return nil, fmt.Errorf("recover %q: %w", name, ErrNotFound)
	}
	if p, isPlaceholder := n.(*crdt.Placeholder); isPlaceholder {
		kind := Detect(p.Backing())
		if kind == crdt.KindUnknown {
			return nil, nil
		}
		resolved, err := specialize(doc, name, p, kind)
		if err != nil {
			return nil, err
		}
		n = resolved
	}

	var out []Identified
	seen := make(map[string]struct{})
	add := func(key string, node any) {
		id, ok := idOf(key, node)
		if !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, Identified{ID: id, Node: node})
	}

	switch crdt.Classify(n) {
	case crdt.KindMap:
		mn := n.(crdt.MapNode)
		keys := mn.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := mn.Get(k)
			add(k, v)
		}
		if bk, ok := n.(crdt.Backed); ok {
			for _, v := range bk.Backing().Sequence() {
				add("", v)
			}
		}
	case crdt.KindList:
		ln := n.(crdt.ListNode)
		for i := 0; i < ln.Len(); i++ {
			v, _ := ln.At(i)
			add("", v)
		}
		if bk, ok := n.(crdt.Backed); ok {
			b := bk.Backing()
			keys := b.EntryKeys()
			sort.Strings(keys)
			for _, k := range keys {
				v, _ := b.Entry(k)
				add(k, v)
			}
		}
	default:
		return nil, fmt.Errorf("recover %q: %w", name, ErrUnclassifiable)
	}
	return out, nil
}
