package types

import "golang.org/x/exp/slices"

// baseOf returns the non-literal base type that a literal kind
// subsumes into in a union, or nil if t is not a literal kind that
// gets absorbed that way.
func baseOf(t *Type) *Type {
	switch t.Kind {
	case KIntegerConst, KDocIntegerConst:
		return Integer()
	case KStringConst, KDocStringConst:
		return String()
	case KBooleanConst:
		return Boolean()
	case KFloatConst:
		return Number()
	default:
		return nil
	}
}

func isAny(t *Type) bool     { return t != nil && t.Kind == KAny }
func isUnknown(t *Type) bool { return t != nil && t.Kind == KUnknown }

// flatten appends the union members of t (or t itself, if it is not a
// union) onto acc.
func flatten(t *Type, acc []*Type) []*Type {
	if t == nil {
		return acc
	}
	if t.Kind == KUnion {
		for _, e := range t.Elems {
			acc = flatten(e, acc)
		}
		return acc
	}
	return append(acc, t)
}

// Apply normalizes the union of a and b per component A's rules: Any
// absorbs everything, Unknown is the identity element (dropped
// whenever a more specific branch exists), duplicates collapse,
// literal types are subsumed by their base when the base is also
// present, and nested unions flatten. Union([]) == Unknown (§8
// boundary).
func Apply(a, b *Type) *Type {
	return UnionOf(a, b)
}

// UnionOf normalizes an arbitrary list of branches into one Type.
func UnionOf(ts ...*Type) *Type {
	var flat []*Type
	for _, t := range ts {
		flat = flatten(t, flat)
	}

	for _, t := range flat {
		if isAny(t) {
			return Any()
		}
	}

	// Drop Unknown branches if any non-Unknown branch exists.
	hasOther := false
	for _, t := range flat {
		if !isUnknown(t) {
			hasOther = true
			break
		}
	}
	if hasOther {
		kept := flat[:0:0]
		for _, t := range flat {
			if !isUnknown(t) {
				kept = append(kept, t)
			}
		}
		flat = kept
	}

	if len(flat) == 0 {
		return Unknown()
	}

	// Subsume literals whose base also appears in the set.
	baseline := make(map[uint64]bool, len(flat))
	for _, t := range flat {
		b := baseOf(t)
		if b == nil {
			continue
		}
		for _, o := range flat {
			if Equal(o, b) {
				baseline[Hash(t)] = true
				break
			}
		}
	}

	// Dedup, preserving first-seen order, dropping subsumed literals.
	seen := make(map[uint64][]*Type)
	var out []*Type
	for _, t := range flat {
		if baseline[Hash(t)] {
			continue
		}
		h := Hash(t)
		dup := false
		for _, o := range seen[h] {
			if Equal(o, t) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[h] = append(seen[h], t)
		out = append(out, t)
	}

	if len(out) == 0 {
		return Unknown()
	}
	if len(out) == 1 {
		return out[0]
	}
	// Canonicalize branch order by hash so two unions built from the
	// same set in different orders (TestUnionAssociativeModuloOrdering)
	// produce the same Elems slice, not just an Equal-true comparison.
	slices.SortFunc(out, func(a, b *Type) bool { return Hash(a) < Hash(b) })
	return RawUnion(out)
}
