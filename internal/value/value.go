// Package value defines the JSON-shaped payload type used for formats,
// encrypted envelopes, metadata entries and every other dynamic value that
// flows out of a workbook document.
//
// A Value is immutable once built. Objects keep their members sorted by key,
// so two values built from the same data in a different insertion order are
// Equal and marshal to identical bytes.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies the JSON type held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member is one key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Value is a tagged JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  []Member // sorted by Key, unique keys
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// BoolOf wraps a bool.
func BoolOf(b bool) Value { return Value{kind: Bool, b: b} }

// NumberOf wraps a float64. NaN and infinities are not representable in JSON
// and become null.
func NumberOf(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: Number, n: f}
}

// IntOf wraps an integer.
func IntOf(i int) Value { return Value{kind: Number, n: float64(i)} }

// StringOf wraps a string.
func StringOf(s string) Value { return Value{kind: String, s: s} }

// ArrayOf builds an array from items. The slice is copied.
func ArrayOf(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: Array, arr: out}
}

// ObjectOf builds an object from members. Members are sorted by key; when a
// key repeats, the last occurrence wins.
func ObjectOf(members ...Member) Value {
	if len(members) == 0 {
		return Value{kind: Object}
	}
	idx := make(map[string]int, len(members))
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if i, ok := idx[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		idx[m.Key] = len(out)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return Value{kind: Object, obj: out}
}

// Kind reports the JSON type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

// IsZero reports whether v is null. encoding/json uses it for omitzero.
func (v Value) IsZero() bool { return v.kind == Null }

// IsObject reports whether v is an object.
func (v Value) IsObject() bool { return v.kind == Object }

// IsEmptyObject reports whether v is an object with no members.
func (v Value) IsEmptyObject() bool { return v.kind == Object && len(v.obj) == 0 }

// AsBool returns the bool held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == Number }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == String }

// AsIndex returns v as a non-negative integer index. Numbers must be whole;
// strings must hold a decimal integer.
func (v Value) AsIndex() (int, bool) {
	switch v.kind {
	case Number:
		if v.n < 0 || v.n != math.Trunc(v.n) || v.n > math.MaxInt32 {
			return 0, false
		}
		return int(v.n), true
	case String:
		n, err := strconv.Atoi(v.s)
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Items returns the elements of an array, or nil for any other kind. The
// returned slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

// Members returns the members of an object in key order, or nil for any other
// kind. The returned slice must not be modified.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	return v.obj
}

// Len returns the number of array elements or object members.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	default:
		return 0
	}
}

// Get looks up key in an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	i := sort.Search(len(v.obj), func(i int) bool { return v.obj[i].Key >= key })
	if i < len(v.obj) && v.obj[i].Key == key {
		return v.obj[i].Value, true
	}
	return Value{}, false
}

// Path walks nested objects by key.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Equal reports deep equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.n == b.n
	case String:
		return a.s == b.s
	case Array:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for i := range a.obj {
			if a.obj[i].Key != b.obj[i].Key || !Equal(a.obj[i].Value, b.obj[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v to the plain Go shape produced by encoding/json
// (nil, bool, float64, string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.arr))
		for i, it := range v.arr {
			out[i] = it.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for _, m := range v.obj {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// String returns the compact JSON encoding of v.
func (v Value) String() string {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.String()
}

// MarshalJSON implements json.Marshaler. Object members are emitted in key
// order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(formatNumber(v.n))
	case String:
		b, _ := json.Marshal(v.s)
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, it := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			it.encode(buf)
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(m.Key)
			buf.Write(k)
			buf.WriteByte(':')
			m.Value.encode(buf)
		}
		buf.WriteByte('}')
	}
}

// formatNumber matches encoding/json's float formatting.
func formatNumber(f float64) string {
	b, err := json.Marshal(f)
	if err != nil {
		return "null"
	}
	return string(b)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromGo(raw)
	return nil
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, fmt.Errorf("parse value: %w", err)
	}
	return v, nil
}

// FromGo converts plain Go data into a Value. It understands the shapes
// produced by encoding/json plus common concrete types; any other value is
// round-tripped through encoding/json as an opaque blob, and becomes null if
// that fails.
func FromGo(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case bool:
		return BoolOf(t)
	case string:
		return StringOf(t)
	case float64:
		return NumberOf(t)
	case float32:
		return NumberOf(float64(t))
	case int:
		return NumberOf(float64(t))
	case int8:
		return NumberOf(float64(t))
	case int16:
		return NumberOf(float64(t))
	case int32:
		return NumberOf(float64(t))
	case int64:
		return NumberOf(float64(t))
	case uint:
		return NumberOf(float64(t))
	case uint8:
		return NumberOf(float64(t))
	case uint16:
		return NumberOf(float64(t))
	case uint32:
		return NumberOf(float64(t))
	case uint64:
		return NumberOf(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return StringOf(t.String())
		}
		return NumberOf(f)
	case []any:
		out := make([]Value, len(t))
		for i, it := range t {
			out[i] = FromGo(it)
		}
		return Value{kind: Array, arr: out}
	case []string:
		out := make([]Value, len(t))
		for i, it := range t {
			out[i] = StringOf(it)
		}
		return Value{kind: Array, arr: out}
	case map[string]any:
		members := make([]Member, 0, len(t))
		for k, it := range t {
			members = append(members, Member{Key: k, Value: FromGo(it)})
		}
		return ObjectOf(members...)
	case map[string]string:
		members := make([]Member, 0, len(t))
		for k, it := range t {
			members = append(members, Member{Key: k, Value: StringOf(it)})
		}
		return ObjectOf(members...)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Value{}
		}
		var raw any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return Value{}
		}
		return FromGo(raw)
	}
}
