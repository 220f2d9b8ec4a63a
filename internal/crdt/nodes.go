package crdt

import (
	"sheet-history/internal/value"
)

// Map is an ordered map over a Backing's keyed half.
type Map struct{ b *Backing }

// NewMap returns an empty detached map.
func NewMap() *Map { return &Map{b: NewBacking()} }

// MapOn wraps existing storage as a map. The map takes ownership of b.
func MapOn(b *Backing) *Map { return &Map{b: b} }

func (m *Map) Keys() []string             { return m.b.EntryKeys() }
func (m *Map) Get(key string) (any, bool) { return m.b.Entry(key) }
func (m *Map) Set(key string, v any)      { m.b.SetEntry(key, v) }
func (m *Map) Delete(key string)          { m.b.DeleteEntry(key) }
func (m *Map) Len() int                   { return len(m.b.entries) }
func (m *Map) Backing() *Backing          { return m.b }

// Empty returns a new empty map of the same type, used when cloning.
func (m *Map) Empty() MapNode { return NewMap() }

// List is an ordered list over a Backing's sequence half.
type List struct{ b *Backing }

// NewList returns an empty detached list.
func NewList() *List { return &List{b: NewBacking()} }

// ListOn wraps existing storage as a list. The list takes ownership of b.
func ListOn(b *Backing) *List { return &List{b: b} }

func (l *List) Len() int                { return l.b.SequenceLen() }
func (l *List) At(i int) (any, bool)    { return l.b.SequenceAt(i) }
func (l *List) Insert(i int, vs ...any) { l.b.InsertItems(i, vs...) }
func (l *List) Push(vs ...any)          { l.b.InsertItems(l.b.SequenceLen(), vs...) }
func (l *List) Delete(i, n int)         { l.b.DeleteItems(i, n) }
func (l *List) Backing() *Backing       { return l.b }

// Values returns the live items in order.
func (l *List) Values() []any { return l.b.Sequence() }

// Empty returns a new empty list of the same type, used when cloning.
func (l *List) Empty() ListNode { return NewList() }

// TextOp is one run of a rich-text delta: inserted text plus its inline
// attributes (null when plain).
type TextOp struct {
	Insert     string
	Attributes value.Value
}

// Text is a rich-text value stored as a run-length delta.
type Text struct {
	ops []TextOp
}

// NewText returns a text node holding s without attributes.
func NewText(s string) *Text {
	t := &Text{}
	if s != "" {
		t.ops = []TextOp{{Insert: s}}
	}
	return t
}

func (t *Text) String() string {
	n := 0
	for _, op := range t.ops {
		n += len(op.Insert)
	}
	buf := make([]byte, 0, n)
	for _, op := range t.ops {
		buf = append(buf, op.Insert...)
	}
	return string(buf)
}

// Delta returns a copy of the runs.
func (t *Text) Delta() []TextOp {
	out := make([]TextOp, len(t.ops))
	copy(out, t.ops)
	return out
}

// Len returns the length in runes.
func (t *Text) Len() int {
	n := 0
	for _, op := range t.ops {
		n += len([]rune(op.Insert))
	}
	return n
}

// Insert adds s at rune offset pos with the given attributes. Offsets past
// the end append.
func (t *Text) Insert(pos int, s string, attrs value.Value) {
	if s == "" {
		return
	}
	out := make([]TextOp, 0, len(t.ops)+2)
	placed := false
	offset := 0
	for _, op := range t.ops {
		runes := []rune(op.Insert)
		if !placed && pos <= offset+len(runes) {
			cut := pos - offset
			if cut < 0 {
				cut = 0
			}
			if cut > 0 {
				out = append(out, TextOp{Insert: string(runes[:cut]), Attributes: op.Attributes})
			}
			out = append(out, TextOp{Insert: s, Attributes: attrs})
			if cut < len(runes) {
				out = append(out, TextOp{Insert: string(runes[cut:]), Attributes: op.Attributes})
			}
			placed = true
		} else {
			out = append(out, op)
		}
		offset += len(runes)
	}
	if !placed {
		out = append(out, TextOp{Insert: s, Attributes: attrs})
	}
	t.ops = mergeRuns(out)
}

// Empty returns a new empty text node, used when cloning.
func (t *Text) Empty() *Text { return &Text{} }

func mergeRuns(ops []TextOp) []TextOp {
	out := ops[:0]
	for _, op := range ops {
		if op.Insert == "" {
			continue
		}
		if n := len(out); n > 0 && value.Equal(out[n-1].Attributes, op.Attributes) {
			out[n-1].Insert += op.Insert
			continue
		}
		out = append(out, op)
	}
	return out
}

// Placeholder is a root whose kind has not been decided yet. It exposes its
// storage and nothing else; readers specialize it into a Map or List.
type Placeholder struct{ b *Backing }

// NewPlaceholder wraps storage as an undecided root.
func NewPlaceholder(b *Backing) *Placeholder { return &Placeholder{b: b} }

func (p *Placeholder) Backing() *Backing { return p.b }
