package types

// Substitutor is an ordered mapping from template positions to
// concrete types (§3 GLOSSARY: Substitutor). Variadic carries the
// expansion for a variadic generic parameter — zero or more types that
// replace a single TplRef when it appears inside a Tuple/Variadic
// list, rather than a single 1:1 replacement.
type Substitutor struct {
	Values   []*Type
	Variadic map[int][]*Type
}

func NewSubstitutor() *Substitutor {
	return &Substitutor{Variadic: make(map[int][]*Type)}
}

func (s *Substitutor) Get(i int) (*Type, bool) {
	if s == nil || i < 0 || i >= len(s.Values) || s.Values[i] == nil {
		return nil, false
	}
	return s.Values[i], true
}

func (s *Substitutor) GetVariadic(i int) ([]*Type, bool) {
	if s == nil || s.Variadic == nil {
		return nil, false
	}
	v, ok := s.Variadic[i]
	return v, ok
}

func (s *Substitutor) Bind(i int, t *Type) {
	for len(s.Values) <= i {
		s.Values = append(s.Values, nil)
	}
	s.Values[i] = t
}

func (s *Substitutor) BindVariadic(i int, ts []*Type) {
	if s.Variadic == nil {
		s.Variadic = make(map[int][]*Type)
	}
	s.Variadic[i] = ts
}

// Substitute replaces every TplRef(i) occurring in t with σ[i],
// recursing structurally through every composite variant. Variadic
// template parameters expand in place inside Tuple/Variadic lists
// (component A: substitute).
func Substitute(t *Type, sigma *Substitutor) *Type {
	if t == nil || sigma == nil {
		return t
	}
	switch t.Kind {
	case KTplRef:
		if v, ok := sigma.Get(t.TplIndex); ok {
			return v
		}
		return t
	case KUnion:
		return UnionOf(substituteList(t.Elems, sigma)...)
	case KIntersection:
		return Intersection(substituteList(t.Elems, sigma))
	case KTuple:
		return Tuple(substituteExpandingList(t.Elems, sigma))
	case KVariadic:
		return Variadic(substituteExpandingList(t.Elems, sigma))
	case KObject:
		fields := make(map[string]*Type, len(t.Fields))
		for k, v := range t.Fields {
			fields[k] = Substitute(v, sigma)
		}
		idx := make([]IndexAccessEntry, len(t.IndexAccess))
		for i, e := range t.IndexAccess {
			idx[i] = IndexAccessEntry{
				KeyType:   Substitute(e.KeyType, sigma),
				ValueType: Substitute(e.ValueType, sigma),
			}
		}
		return Object(fields, append([]string(nil), t.FieldOrder...), idx)
	case KArray:
		return Array(Substitute(t.Base, sigma), t.ArrLen)
	case KTableGeneric:
		return TableGeneric(Substitute(t.KeyBase, sigma), Substitute(t.Base, sigma))
	case KGeneric:
		return Generic(Substitute(t.Base, sigma), substituteList(t.GenericArgs, sigma))
	case KInstance:
		return Instance(Substitute(t.Base, sigma), t.File, t.Range)
	default:
		// Primitives, literals, Ref/Def, Namespace, FileEnv, StrTplRef
		// and Signature carry no template positions of their own.
		return t
	}
}

func substituteList(ts []*Type, sigma *Substitutor) []*Type {
	out := make([]*Type, len(ts))
	for i, e := range ts {
		out[i] = Substitute(e, sigma)
	}
	return out
}

// substituteExpandingList substitutes a list that may contain a
// trailing variadic TplRef, expanding it to the bound arity instead of
// a single replacement.
func substituteExpandingList(ts []*Type, sigma *Substitutor) []*Type {
	var out []*Type
	for _, e := range ts {
		if e != nil && e.Kind == KTplRef {
			if vs, ok := sigma.GetVariadic(e.TplIndex); ok {
				out = append(out, vs...)
				continue
			}
		}
		out = append(out, Substitute(e, sigma))
	}
	return out
}
