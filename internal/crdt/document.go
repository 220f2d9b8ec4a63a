package crdt

import "sort"

// Document is a registry of named roots. It is built once per materialize
// call and is not safe for concurrent mutation.
type Document struct {
	roots map[string]any
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{roots: make(map[string]any)}
}

// Root returns the registered node for name.
func (d *Document) Root(name string) (any, bool) {
	n, ok := d.roots[name]
	return n, ok
}

// Names returns the registered root names in lexicographic order.
func (d *Document) Names() []string {
	out := make([]string, 0, len(d.roots))
	for name := range d.roots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SetRoot registers node under name, replacing any previous entry. This is
// also how a placeholder is re-specialized: the new wrapper is built on the
// placeholder's Backing and swapped into the registry.
func (d *Document) SetRoot(name string, node any) {
	d.roots[name] = node
}

// Declare returns the placeholder registered under name, creating an empty
// one when the name is free. It reports false when name already holds a
// specialized root.
func (d *Document) Declare(name string) (*Placeholder, bool) {
	switch n := d.roots[name].(type) {
	case nil:
		p := NewPlaceholder(NewBacking())
		d.roots[name] = p
		return p, true
	case *Placeholder:
		return n, true
	default:
		return nil, false
	}
}
