// Package format resolves the inheritable style layers of a sheet into one
// effective style per cell.
//
// Layers apply in this order, later layers winning per key:
//
//	sheet default -> column format -> row format -> range run -> cell format
package format

import "sheet-history/internal/value"

// Merge deep-merges patch over base. Scalar and array values in patch
// replace; object values merge recursively. Keys absent from patch keep the
// base value. A patch that is not an object leaves base untouched.
func Merge(base, patch value.Value) value.Value {
	if !patch.IsObject() {
		return base
	}
	if !base.IsObject() {
		base = value.ObjectOf()
	}
	members := make([]value.Member, 0, base.Len()+patch.Len())
	for _, m := range base.Members() {
		if _, overridden := patch.Get(m.Key); overridden {
			continue
		}
		members = append(members, m)
	}
	for _, m := range patch.Members() {
		pv := m.Value
		if pv.IsObject() {
			bv, _ := base.Get(m.Key)
			pv = Merge(bv, pv)
		}
		members = append(members, value.Member{Key: m.Key, Value: pv})
	}
	return value.ObjectOf(members...)
}

// Normalize prunes nested objects that are empty and turns an empty or
// non-object style into null, so "no formatting" always has one spelling.
func Normalize(style value.Value) value.Value {
	if !style.IsObject() {
		return value.NullValue()
	}
	pruned, keep := prune(style)
	if !keep {
		return value.NullValue()
	}
	return pruned
}

func prune(v value.Value) (value.Value, bool) {
	if !v.IsObject() {
		return v, true
	}
	members := make([]value.Member, 0, v.Len())
	for _, m := range v.Members() {
		child, keep := prune(m.Value)
		if !keep {
			continue
		}
		members = append(members, value.Member{Key: m.Key, Value: child})
	}
	if len(members) == 0 {
		return value.Value{}, false
	}
	return value.ObjectOf(members...), true
}
