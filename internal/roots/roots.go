// Package roots gives tolerant, typed access to a document's named roots.
//
// Roots decoded from an update log may still be placeholders, may be
// wrappers produced by another loader, and (for roots whose schema changed
// over time) may carry entries in both the keyed and the sequence half of
// their storage. Everything downstream of this package assumes the root it
// receives is clean.
package roots

import (
	"errors"
	"fmt"

	"sheet-history/internal/canon"
	"sheet-history/internal/crdt"
	"sheet-history/internal/sortutil"
)

var (
	// ErrKindMismatch means the root exists with a different kind than the
	// caller asked for.
	ErrKindMismatch = errors.New("roots: kind mismatch")
	// ErrUnclassifiable means the root's kind could not be determined.
	ErrUnclassifiable = errors.New("roots: unclassifiable root")
	// ErrNotFound means no root is registered under the name.
	ErrNotFound = errors.New("roots: root not found")
)

// GetRoot returns the root registered under name as a node of kind want.
// A missing root is created empty. A placeholder is re-specialized in place:
// a wrapper of the requested kind takes over the placeholder's storage and
// replaces it in the registry, so existing entries keep their identity. A
// root that already exposes the capabilities of want is returned as is,
// whatever its concrete type.
func GetRoot(doc *crdt.Document, name string, want crdt.Kind) (any, error) {
	if want == crdt.KindUnknown {
		return nil, fmt.Errorf("root %q: %w", name, ErrUnclassifiable)
	}
	if _, ok := doc.Root(name); !ok {
		doc.SetRoot(name, newEmpty(want))
	}
	return resolve(doc, name, want)
}

// LookupRoot is GetRoot without creation: a missing or mismatched root
// reports false.
func LookupRoot(doc *crdt.Document, name string, want crdt.Kind) (any, bool) {
	if _, ok := doc.Root(name); !ok {
		return nil, false
	}
	n, err := resolve(doc, name, want)
	if err != nil {
		return nil, false
	}
	return n, true
}

// GetMap is GetRoot for ordered maps.
func GetMap(doc *crdt.Document, name string) (crdt.MapNode, error) {
	n, err := GetRoot(doc, name, crdt.KindMap)
	if err != nil {
		return nil, err
	}
	return n.(crdt.MapNode), nil
}

// GetList is GetRoot for ordered lists.
func GetList(doc *crdt.Document, name string) (crdt.ListNode, error) {
	n, err := GetRoot(doc, name, crdt.KindList)
	if err != nil {
		return nil, err
	}
	return n.(crdt.ListNode), nil
}

// GetText is GetRoot for text.
func GetText(doc *crdt.Document, name string) (crdt.TextNode, error) {
	n, err := GetRoot(doc, name, crdt.KindText)
	if err != nil {
		return nil, err
	}
	return n.(crdt.TextNode), nil
}

func resolve(doc *crdt.Document, name string, want crdt.Kind) (any, error) {
	n, _ := doc.Root(name)
	if p, ok := n.(*crdt.Placeholder); ok {
		return specialize(doc, name, p, want)
	}
	if got := crdt.Classify(n); got != want {
		return nil, fmt.Errorf("root %q is %s, want %s: %w", name, got, want, ErrKindMismatch)
	}
	return n, nil
}

func specialize(doc *crdt.Document, name string, p *crdt.Placeholder, want crdt.Kind) (any, error) {
	var n any
	switch want {
	case crdt.KindMap:
		n = crdt.MapOn(p.Backing())
	case crdt.KindList:
		n = crdt.ListOn(p.Backing())
	case crdt.KindText:
		b := p.Backing()
		if b.HasEntries() || b.HasSequence() {
			return nil, fmt.Errorf("root %q holds collection data, want text: %w", name, ErrKindMismatch)
		}
		n = crdt.NewText("")
	default:
		return nil, fmt.Errorf("root %q: %w", name, ErrUnclassifiable)
	}
	doc.SetRoot(name, n)
	return n, nil
}

func newEmpty(k crdt.Kind) any {
	switch k {
	case crdt.KindMap:
		return crdt.NewMap()
	case crdt.KindList:
		return crdt.NewList()
	default:
		return crdt.NewText("")
	}
}

// Detect guesses the kind of an undecided root from its storage: a
// non-empty keyed half means map, otherwise a non-empty sequence means list.
// Empty storage is KindUnknown.
func Detect(b *crdt.Backing) crdt.Kind {
	switch {
	case b.HasEntries():
		return crdt.KindMap
	case b.HasSequence():
		return crdt.KindList
	default:
		return crdt.KindUnknown
	}
}

// Restore replaces the named roots of dst with clones of the same roots in
// src. With no names every root of src is restored.
func Restore(dst, src *crdt.Document, names ...string) error {
	if len(names) == 0 {
		names = src.Names()
	}
	for _, name := range sortutil.Sorted(names) {
		n, ok := src.Root(name)
		if !ok {
			return fmt.Errorf("restore %q: %w", name, ErrNotFound)
		}
		dst.SetRoot(name, canon.Clone(n))
	}
	return nil
}
