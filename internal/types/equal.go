package types

import "hash/fnv"

// Equal implements structural value-comparison (§4.1, §8 invariant 4/6):
// Ref/Def compare only by declared id, everything else compares its
// full payload structurally.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KAny, KUnknown, KNil, KBoolean, KInteger, KNumber, KString, KTable, KIo, KGlobal, KThread:
		return true
	case KIntegerConst, KDocIntegerConst:
		return a.IntVal == b.IntVal
	case KStringConst, KDocStringConst:
		return a.StrVal == b.StrVal
	case KBooleanConst:
		return a.BoolVal == b.BoolVal
	case KFloatConst:
		return a.FloatVal == b.FloatVal
	case KLanguage:
		return a.LangTag == b.LangTag
	case KUnion:
		return equalAsSet(a.Elems, b.Elems)
	case KIntersection, KTuple, KVariadic:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KObject:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for k, v := range a.Fields {
			ov, ok := b.Fields[k]
			if !ok || !Equal(v, ov) {
				return false
			}
		}
		if len(a.IndexAccess) != len(b.IndexAccess) {
			return false
		}
		for i := range a.IndexAccess {
			if !Equal(a.IndexAccess[i].KeyType, b.IndexAccess[i].KeyType) ||
				!Equal(a.IndexAccess[i].ValueType, b.IndexAccess[i].ValueType) {
				return false
			}
		}
		return true
	case KArray:
		return a.ArrLen == b.ArrLen && Equal(a.Base, b.Base)
	case KTableConst:
		return a.File == b.File && a.Range == b.Range
	case KTableGeneric:
		return Equal(a.KeyBase, b.KeyBase) && Equal(a.Base, b.Base)
	case KGeneric:
		if !Equal(a.Base, b.Base) || len(a.GenericArgs) != len(b.GenericArgs) {
			return false
		}
		for i := range a.GenericArgs {
			if !Equal(a.GenericArgs[i], b.GenericArgs[i]) {
				return false
			}
		}
		return true
	case KInstance:
		return a.File == b.File && a.Range == b.Range && Equal(a.Base, b.Base)
	case KRef, KDef:
		return a.TypeDecl == b.TypeDecl
	case KNamespace:
		return a.NamespacePath == b.NamespacePath
	case KFileEnv:
		return a.FileEnvID == b.FileEnvID
	case KTplRef:
		return a.TplIndex == b.TplIndex
	case KStrTplRef:
		return a.StrTplPrefix == b.StrTplPrefix && a.StrTplSuffix == b.StrTplSuffix
	case KSignature:
		return a.Signature == b.Signature
	default:
		return false
	}
}

// equalAsSet compares two Union element lists disregarding order,
// since Union is specified as a set (§3 Type value: "Union(set)") and
// Union.apply's associativity only holds "modulo internal ordering"
// (§8 invariant 4).
func equalAsSet(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, ea := range a {
		found := false
		for j, eb := range b {
			if used[j] {
				continue
			}
			if Equal(ea, eb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Hash computes a structural hash suitable for hash-consing and set
// membership (used by Union normalization to collapse duplicates in
// O(n) rather than O(n^2) Equal calls).
func Hash(t *Type) uint64 {
	h := fnv.New64a()
	hashInto(h, t)
	return h.Sum64()
}

func hashInto(h interface{ Write([]byte) (int, error) }, t *Type) {
	if t == nil {
		h.Write([]byte{0xff})
		return
	}
	h.Write([]byte{byte(t.Kind)})
	switch t.Kind {
	case KIntegerConst, KDocIntegerConst:
		writeInt(h, t.IntVal)
	case KStringConst, KDocStringConst:
		h.Write([]byte(t.StrVal))
	case KBooleanConst:
		if t.BoolVal {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KFloatConst:
		writeInt(h, int64(t.FloatVal*1e6))
	case KLanguage:
		h.Write([]byte(t.LangTag))
	case KUnion:
		// Commutative combination so that set-equal unions with
		// different member order hash identically.
		var acc uint64
		for _, e := range t.Elems {
			acc ^= Hash(e)
		}
		writeInt(h, int64(acc))
	case KIntersection, KTuple, KVariadic:
		for _, e := range t.Elems {
			hashInto(h, e)
		}
	case KObject:
		for _, n := range sortedFieldNames(t) {
			h.Write([]byte(n))
			hashInto(h, t.Fields[n])
		}
	case KArray:
		writeInt(h, int64(t.ArrLen.Kind))
		writeInt(h, int64(t.ArrLen.Max))
		hashInto(h, t.Base)
	case KTableConst:
		writeInt(h, int64(t.File))
		writeInt(h, int64(t.Range.Start))
		writeInt(h, int64(t.Range.End))
	case KTableGeneric:
		hashInto(h, t.KeyBase)
		hashInto(h, t.Base)
	case KGeneric:
		hashInto(h, t.Base)
		for _, e := range t.GenericArgs {
			hashInto(h, e)
		}
	case KInstance:
		writeInt(h, int64(t.File))
		writeInt(h, int64(t.Range.Start))
		hashInto(h, t.Base)
	case KRef, KDef:
		h.Write([]byte(t.TypeDecl))
	case KNamespace:
		h.Write([]byte(t.NamespacePath))
	case KFileEnv:
		writeInt(h, int64(t.FileEnvID))
	case KTplRef:
		writeInt(h, int64(t.TplIndex))
	case KStrTplRef:
		h.Write([]byte(t.StrTplPrefix))
		h.Write([]byte(t.StrTplSuffix))
	case KSignature:
		writeInt(h, int64(t.Signature.File))
		writeInt(h, int64(t.Signature.Range.Start))
	}
}

func writeInt(h interface{ Write([]byte) (int, error) }, v int64) {
	var b [8]byte
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}
