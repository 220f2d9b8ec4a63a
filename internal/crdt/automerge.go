package crdt

import (
	"fmt"
	"sort"

	"github.com/automerge/automerge-go"

	"sheet-history/internal/value"
)

// Materialize decodes an automerge update log into a fresh Document.
//
// Map and list roots are registered as placeholders over a Backing filled
// with the decoded entries, so the reader decides their kind; text roots are
// registered as Text. Scalar roots are not collections and are ignored.
// Text is read as plain characters; inline marks are not decoded.
// Decode errors are returned unchanged.
func Materialize(data []byte) (*Document, error) {
	am, err := automerge.Load(data)
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	root := am.RootMap()
	names, err := root.Keys()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		v, err := root.Get(name)
		if err != nil {
			return nil, err
		}
		switch v.Kind() {
		case automerge.KindMap:
			p, _ := doc.Declare(name)
			if err := fillEntries(p.Backing(), v.Map()); err != nil {
				return nil, err
			}
		case automerge.KindList:
			p, _ := doc.Declare(name)
			if err := fillSequence(p.Backing(), v.List()); err != nil {
				return nil, err
			}
		case automerge.KindText:
			s, err := v.Text().Get()
			if err != nil {
				return nil, err
			}
			doc.SetRoot(name, NewText(s))
		}
	}
	return doc, nil
}

func fillEntries(b *Backing, m *automerge.Map) error {
	keys, err := m.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		v, err := m.Get(k)
		if err != nil {
			return err
		}
		n, err := fromAutomerge(v)
		if err != nil {
			return err
		}
		b.SetEntry(k, n)
	}
	return nil
}

func fillSequence(b *Backing, l *automerge.List) error {
	vals, err := l.Values()
	if err != nil {
		return err
	}
	items := make([]any, 0, len(vals))
	for _, v := range vals {
		n, err := fromAutomerge(v)
		if err != nil {
			return err
		}
		items = append(items, n)
	}
	b.InsertItems(0, items...)
	return nil
}

// fromAutomerge converts a decoded value into a façade node. Nested
// collections become Map/List/Text nodes; scalars become plain Go values.
func fromAutomerge(v *automerge.Value) (any, error) {
	switch v.Kind() {
	case automerge.KindMap:
		m := NewMap()
		if err := fillEntries(m.Backing(), v.Map()); err != nil {
			return nil, err
		}
		return m, nil
	case automerge.KindList:
		l := NewList()
		if err := fillSequence(l.Backing(), v.List()); err != nil {
			return nil, err
		}
		return l, nil
	case automerge.KindText:
		s, err := v.Text().Get()
		if err != nil {
			return nil, err
		}
		return NewText(s), nil
	case automerge.KindStr:
		return v.Str(), nil
	case automerge.KindBool:
		return v.Bool(), nil
	case automerge.KindInt64:
		return v.Int64(), nil
	case automerge.KindUint64:
		return v.Uint64(), nil
	case automerge.KindFloat64:
		return v.Float64(), nil
	case automerge.KindBytes:
		return v.Bytes(), nil
	case automerge.KindTime:
		return v.Time(), nil
	case automerge.KindCounter:
		return v.Counter().Get()
	default:
		return nil, nil
	}
}

// Serialize encodes every root of d into an automerge update log. A
// placeholder is written as a map when its keyed half holds entries and as
// a list otherwise. Text is written as plain characters, so run attributes
// do not survive a round trip.
func Serialize(d *Document) ([]byte, error) {
	am := automerge.New()
	root := am.RootMap()
	names := d.Names()
	for _, name := range names {
		node := d.roots[name]
		if p, ok := node.(*Placeholder); ok {
			if p.Backing().HasEntries() {
				node = MapOn(p.Backing())
			} else {
				node = ListOn(p.Backing())
			}
		}
		if Classify(node) == KindUnknown {
			return nil, fmt.Errorf("serialize root %q: %w", name, ErrUnsupportedRoot)
		}
		if err := putEntry(root, name, node); err != nil {
			return nil, fmt.Errorf("serialize root %q: %w", name, err)
		}
	}
	if len(names) > 0 {
		if _, err := am.Commit("snapshot"); err != nil {
			return nil, err
		}
	}
	return am.Save(), nil
}

func putEntry(m *automerge.Map, key string, node any) error {
	switch shape := shapeOf(node); shape.kind {
	case KindText:
		return m.Set(key, automerge.NewText(shape.text))
	case KindMap:
		if err := m.Set(key, automerge.NewMap()); err != nil {
			return err
		}
		v, err := m.Get(key)
		if err != nil {
			return err
		}
		return putMembers(v.Map(), shape)
	case KindList:
		if err := m.Set(key, automerge.NewList()); err != nil {
			return err
		}
		v, err := m.Get(key)
		if err != nil {
			return err
		}
		return putItems(v.List(), shape.items)
	default:
		return m.Set(key, shape.scalar)
	}
}

func appendItem(l *automerge.List, node any) error {
	switch shape := shapeOf(node); shape.kind {
	case KindText:
		return l.Append(automerge.NewText(shape.text))
	case KindMap:
		if err := l.Append(automerge.NewMap()); err != nil {
			return err
		}
		v, err := l.Get(l.Len() - 1)
		if err != nil {
			return err
		}
		return putMembers(v.Map(), shape)
	case KindList:
		if err := l.Append(automerge.NewList()); err != nil {
			return err
		}
		v, err := l.Get(l.Len() - 1)
		if err != nil {
			return err
		}
		return putItems(v.List(), shape.items)
	default:
		return l.Append(shape.scalar)
	}
}

func putMembers(m *automerge.Map, shape nodeShape) error {
	for _, k := range shape.keys {
		if err := putEntry(m, k, shape.entries[k]); err != nil {
			return err
		}
	}
	return nil
}

func putItems(l *automerge.List, items []any) error {
	for _, it := range items {
		if err := appendItem(l, it); err != nil {
			return err
		}
	}
	return nil
}

// nodeShape is the write-side view of anything that can be stored: façade
// nodes, value.Value trees and plain Go maps/slices.
type nodeShape struct {
	kind    Kind
	keys    []string
	entries map[string]any
	items   []any
	text    string
	scalar  any
}

func shapeOf(node any) nodeShape {
	switch Classify(node) {
	case KindText:
		return nodeShape{kind: KindText, text: node.(TextNode).String()}
	case KindMap:
		mn := node.(MapNode)
		keys := mn.Keys()
		entries := make(map[string]any, len(keys))
		for _, k := range keys {
			entries[k], _ = mn.Get(k)
		}
		return nodeShape{kind: KindMap, keys: keys, entries: entries}
	case KindList:
		ln := node.(ListNode)
		items := make([]any, 0, ln.Len())
		for i := 0; i < ln.Len(); i++ {
			it, _ := ln.At(i)
			items = append(items, it)
		}
		return nodeShape{kind: KindList, items: items}
	}
	switch t := node.(type) {
	case *Placeholder:
		if t.Backing().HasEntries() {
			return shapeOf(MapOn(t.Backing()))
		}
		return shapeOf(ListOn(t.Backing()))
	case value.Value:
		return shapeOfValue(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nodeShape{kind: KindMap, keys: keys, entries: t}
	case []any:
		return nodeShape{kind: KindList, items: t}
	case int:
		return nodeShape{scalar: int64(t)}
	default:
		return nodeShape{scalar: t}
	}
}

func shapeOfValue(v value.Value) nodeShape {
	switch v.Kind() {
	case value.Object:
		members := v.Members()
		keys := make([]string, len(members))
		entries := make(map[string]any, len(members))
		for i, m := range members {
			keys[i] = m.Key
			entries[m.Key] = m.Value
		}
		return nodeShape{kind: KindMap, keys: keys, entries: entries}
	case value.Array:
		items := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = it
		}
		return nodeShape{kind: KindList, items: out}
	default:
		return nodeShape{scalar: v.Interface()}
	}
}
