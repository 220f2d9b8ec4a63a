package crdt

// Backing is the storage behind a collection node: a keyed half (used by
// maps) and a linked sequence half (used by lists). Most nodes only ever use
// one half. Roots written by mixed-schema clients can carry both, which is
// why the backing is its own value that a re-specialized wrapper takes over
// instead of copying.
//
// Sequence items live in an arena; links are arena indices and deleted items
// stay in place as tombstones.
type Backing struct {
	keys    []string
	entries map[string]any
	items   []seqItem
	start   int
}

type seqItem struct {
	content any
	next    int
	deleted bool
}

const noItem = -1

// NewBacking returns empty storage.
func NewBacking() *Backing {
	return &Backing{entries: make(map[string]any), start: noItem}
}

// HasEntries reports whether the keyed half holds any live entry.
func (b *Backing) HasEntries() bool { return len(b.entries) > 0 }

// HasSequence reports whether the sequence half holds any live item.
func (b *Backing) HasSequence() bool { return b.SequenceLen() > 0 }

// EntryKeys returns live keys in first-insertion order.
func (b *Backing) EntryKeys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Entry reads one keyed entry.
func (b *Backing) Entry(key string) (any, bool) {
	v, ok := b.entries[key]
	return v, ok
}

// SetEntry writes a keyed entry. Overwriting keeps the key's original
// position.
func (b *Backing) SetEntry(key string, v any) {
	if _, ok := b.entries[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.entries[key] = v
}

// DeleteEntry removes a keyed entry.
func (b *Backing) DeleteEntry(key string) {
	if _, ok := b.entries[key]; !ok {
		return
	}
	delete(b.entries, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Sequence returns the live sequence items in order.
func (b *Backing) Sequence() []any {
	out := make([]any, 0, len(b.items))
	for i := b.start; i != noItem; i = b.items[i].next {
		if !b.items[i].deleted {
			out = append(out, b.items[i].content)
		}
	}
	return out
}

// SequenceLen counts live sequence items.
func (b *Backing) SequenceLen() int {
	n := 0
	for i := b.start; i != noItem; i = b.items[i].next {
		if !b.items[i].deleted {
			n++
		}
	}
	return n
}

// SequenceAt returns the live item at pos.
func (b *Backing) SequenceAt(pos int) (any, bool) {
	if pos < 0 {
		return nil, false
	}
	for i := b.start; i != noItem; i = b.items[i].next {
		if b.items[i].deleted {
			continue
		}
		if pos == 0 {
			return b.items[i].content, true
		}
		pos--
	}
	return nil, false
}

// InsertItems links vs in before the live item at pos. Positions past the end
// append.
func (b *Backing) InsertItems(pos int, vs ...any) {
	if len(vs) == 0 {
		return
	}
	prev := b.liveBefore(pos)
	for _, v := range vs {
		idx := len(b.items)
		item := seqItem{content: v, next: noItem}
		if prev == noItem {
			item.next = b.start
			b.items = append(b.items, item)
			b.start = idx
		} else {
			item.next = b.items[prev].next
			b.items = append(b.items, item)
			b.items[prev].next = idx
		}
		prev = idx
	}
}

// liveBefore returns the arena index after which an insert at pos links, or
// noItem to insert at the head.
func (b *Backing) liveBefore(pos int) int {
	if pos <= 0 {
		return noItem
	}
	last := noItem
	seen := 0
	for i := b.start; i != noItem; i = b.items[i].next {
		last = i
		if b.items[i].deleted {
			continue
		}
		seen++
		if seen == pos {
			return i
		}
	}
	return last
}

// DeleteItems tombstones n live items starting at pos.
func (b *Backing) DeleteItems(pos, n int) {
	if n <= 0 || pos < 0 {
		return
	}
	at := 0
	for i := b.start; i != noItem && n > 0; i = b.items[i].next {
		if b.items[i].deleted {
			continue
		}
		if at >= pos {
			b.items[i].deleted = true
			b.items[i].content = nil
			n--
		}
		at++
	}
}
