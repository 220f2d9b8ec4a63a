// Package crdt is the document façade the workbook core reads through.
//
// A Document is a registry of named root collections. Roots are ordered maps,
// ordered lists or text; a root decoded from an update log starts life as a
// Placeholder whose kind is decided by the first reader. Kinds are recognised
// by capability (the methods a node exposes), never by concrete type, so
// wrappers produced by a different loader are accepted as long as they offer
// the same operations.
package crdt

import "errors"

// Kind is the capability class of a node.
type Kind int

const (
	// KindUnknown covers placeholders, primitives and plain Go values.
	KindUnknown Kind = iota
	KindMap
	KindList
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// ErrUnsupportedRoot is returned when a root holds a value that is not a
// collection and cannot be serialized as one.
var ErrUnsupportedRoot = errors.New("crdt: unsupported root value")

// MapNode is the capability set of an ordered map.
type MapNode interface {
	Keys() []string
	Get(key string) (any, bool)
	Set(key string, v any)
	Delete(key string)
	Len() int
}

// ListNode is the capability set of an ordered list.
type ListNode interface {
	Len() int
	At(i int) (any, bool)
	Insert(i int, vs ...any)
	Push(vs ...any)
	Delete(i, n int)
}

// TextNode is the capability set of a text value.
type TextNode interface {
	String() string
	Delta() []TextOp
}

// Backed is implemented by nodes that own a Backing.
type Backed interface {
	Backing() *Backing
}

// Classify probes n for the operations each kind requires. Text is checked
// first because a text node answers String like many other types do.
func Classify(n any) Kind {
	if n == nil {
		return KindUnknown
	}
	if _, ok := n.(TextNode); ok {
		return KindText
	}
	if _, ok := n.(MapNode); ok {
		return KindMap
	}
	if _, ok := n.(ListNode); ok {
		return KindList
	}
	return KindUnknown
}
