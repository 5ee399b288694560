package types

// SuperResolver answers ancestry questions over the type-declaration
// graph. Index/member packages implement this over the real
// TypeDecl table; the algebra package stays ignorant of how supers
// are stored.
type SuperResolver interface {
	// IsSuperOf reports whether `super` is `sub` itself or appears
	// anywhere in sub's transitive super-type closure.
	IsSuperOf(super, sub TypeDeclId) bool
}

// nilSuperResolver treats every nominal type as having no supers,
// useful for tests and for call sites that only care about structural
// compatibility.
type nilSuperResolver struct{}

func (nilSuperResolver) IsSuperOf(super, sub TypeDeclId) bool { return super == sub }

var NilSupers SuperResolver = nilSuperResolver{}

func nominalId(t *Type) (TypeDeclId, bool) {
	if t == nil {
		return "", false
	}
	if t.Kind == KRef || t.Kind == KDef {
		return t.TypeDecl, true
	}
	return "", false
}

// CheckCompact implements component A's one-directional assignability
// check, `check_type_compact(expected, actual)`, used for metamethod
// key matching and overload selection (never for soundness).
//
// Rules (§4.1): Any accepts anything; a literal is accepted by its
// base type; a union actual requires every branch to be independently
// acceptable; Ref(T) (expected) accepts Ref(S) (actual) iff S is a
// transitive super of T, or S equals T.
func CheckCompact(expected, actual *Type, supers SuperResolver) bool {
	if expected == nil || actual == nil {
		return false
	}
	if supers == nil {
		supers = NilSupers
	}

	if isAny(expected) {
		return true
	}
	if isUnknown(actual) {
		// §8 invariant 5: Unknown is only ever produced, never demanded;
		// as an actual it degrades to "accept", since the caller has no
		// opinion to reject with.
		return true
	}

	if actual.Kind == KUnion {
		for _, branch := range actual.Elems {
			if !CheckCompact(expected, branch, supers) {
				return false
			}
		}
		return len(actual.Elems) > 0
	}

	if b := baseOf(actual); b != nil && CheckCompact(expected, b, supers) {
		return true
	}

	if expID, ok := nominalId(expected); ok {
		if actID, ok2 := nominalId(actual); ok2 {
			if expID == actID {
				return true
			}
			return supers.IsSuperOf(actID, expID)
		}
	}

	if expected.Kind == KUnion {
		for _, branch := range expected.Elems {
			if CheckCompact(branch, actual, supers) {
				return true
			}
		}
		return false
	}

	if Equal(expected, actual) {
		return true
	}

	switch expected.Kind {
	case KInteger:
		return actual.Kind == KInteger || actual.Kind == KIntegerConst || actual.Kind == KDocIntegerConst
	case KNumber:
		return actual.Kind == KNumber || actual.Kind == KInteger || actual.Kind == KFloatConst
	case KString:
		return actual.Kind == KString || actual.Kind == KStringConst || actual.Kind == KDocStringConst
	case KBoolean:
		return actual.Kind == KBoolean || actual.Kind == KBooleanConst
	case KTable:
		switch actual.Kind {
		case KTable, KTableConst, KTableGeneric, KObject, KArray, KInstance:
			return true
		}
		return false
	}

	if expected.Kind == KArray && actual.Kind == KArray {
		return CheckCompact(expected.Base, actual.Base, supers)
	}
	if expected.Kind == KTableGeneric && actual.Kind == KTableGeneric {
		return CheckCompact(expected.KeyBase, actual.KeyBase, supers) &&
			CheckCompact(expected.Base, actual.Base, supers)
	}
	if expected.Kind == KTuple && actual.Kind == KTuple {
		if len(expected.Elems) != len(actual.Elems) {
			return false
		}
		for i := range expected.Elems {
			if !CheckCompact(expected.Elems[i], actual.Elems[i], supers) {
				return false
			}
		}
		return true
	}

	return false
}
