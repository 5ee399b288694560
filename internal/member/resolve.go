// Package member implements the central member-resolution algorithm
// (component I, §4.9): answering "what is t.k?" for any type t and
// key k, given the declared-members table and the operator
// (metamethod) chain, recursively, with a guard against re-entering
// the same nominal id.
package member

import (
	"sort"

	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/types"
)

// FileEnvLookup answers "file f's module-exported decl named name",
// the per-file environment export §9 design notes describe (a file's
// return-value type, or its `Module`-attributed top-level locals).
// The workspace manager supplies the concrete implementation; member
// resolution only needs the read.
type FileEnvLookup func(file types.FileID, name string) (*types.Type, bool)

// Resolver holds the read-only context member resolution needs beyond
// the index database itself.
type Resolver struct {
	Index  *index.Index
	Strict bool // strict.arrayIndex (§6)

	// FileEnv backs the FileEnv(f) dispatch row; nil disables it (every
	// FileEnv lookup then answers "not found").
	FileEnv FileEnvLookup

	// LoopBoundConfirmed, when true, tells the Array(b, len) dispatch
	// row that the current integer-expression key is known (by the
	// flow pass) to be the induction variable of a `for i = 1, #arr`
	// loop bounded by this same array's length — the one case where an
	// expression key still answers `b` without unioning Nil (§4.9). No
	// caller in this module sets it (the inference pass builds its
	// Resolver with the zero value), so integer-expression keys always
	// take the non-loop path; member resolution itself does not walk
	// control flow.
	LoopBoundConfirmed bool
}

// guard tracks nominal ids already on the current resolution chain,
// breaking the cycles §9's design notes call out ("cyclic graphs...
// broken at query time by an InferGuard").
type guard map[types.TypeDeclId]bool

func (g guard) enter(id types.TypeDeclId) (guard, bool) {
	if g[id] {
		return g, false
	}
	next := make(guard, len(g)+1)
	for k := range g {
		next[k] = true
	}
	next[id] = true
	return next, true
}

// Of resolves t.key, trying declared members first and the operator
// (metamethod __index) chain second, for whichever type forms apply
// (§4.9 "1. by table of declared members first; 2. by operator
// second. Both are tried for each type form.").
//
// Returns (type, true, _) on success; (nil, false, reason) otherwise,
// where reason.Kind == ReasonNone means "no opinion, bind Unknown" and
// any other kind means "defer to the fixpoint queue".
func (r *Resolver) Of(t *types.Type, key types.MemberKey) (*types.Type, bool, diag.InferFailReason) {
	return r.resolve(t, key, guard{})
}

func (r *Resolver) resolve(t *types.Type, key types.MemberKey, g guard) (*types.Type, bool, diag.InferFailReason) {
	if t == nil {
		return nil, false, diag.NoOpinion()
	}

	switch t.Kind {
	case types.KAny, types.KUnknown, types.KTable:
		return types.Any(), true, diag.InferFailReason{}

	case types.KTableConst:
		owner := index.ElementOwner(t.File, t.Range)
		if found, ok := r.fromDeclaredMembers(owner, key); ok {
			return found, true, diag.InferFailReason{}
		}
		if meta, ok := r.Index.Metatable(owner); ok {
			if v, ok, reason := r.runIndexOperators(meta, key, g); ok || reason.Kind != diag.ReasonNone {
				return v, ok, reason
			}
		} else if key.Kind == types.KeyExprType {
			return r.fuzzyMatchByCompact(owner, key)
		}
		return nil, false, diag.NoOpinion()

	case types.KRef, types.KDef:
		return r.resolveNominal(t.TypeDecl, key, g)

	case types.KArray:
		return r.resolveArray(t, key)

	case types.KTuple:
		return r.resolveTuple(t, key)

	case types.KObject:
		return r.resolveObject(t, key)

	case types.KUnion:
		return r.resolveUnion(t, key, g)

	case types.KIntersection:
		for _, arm := range t.Elems {
			if v, ok, reason := r.resolve(arm, key, g); ok {
				return v, true, diag.InferFailReason{}
			} else if reason.Kind != diag.ReasonNone {
				return nil, false, reason
			}
		}
		return nil, false, diag.NoOpinion()

	case types.KGeneric:
		v, ok, reason := r.resolve(t.Base, key, g)
		if !ok {
			return nil, false, reason
		}
		sigma := types.NewSubstitutor()
		for i, a := range t.GenericArgs {
			sigma.Bind(i, a)
		}
		return types.Substitute(v, sigma), true, diag.InferFailReason{}

	case types.KInstance:
		if v, ok, reason := r.resolve(t.Base, key, g); ok {
			return v, true, diag.InferFailReason{}
		} else if reason.Kind != diag.ReasonNone {
			return nil, false, reason
		}
		owner := index.ElementOwner(t.File, t.Range)
		if found, ok := r.fromDeclaredMembers(owner, key); ok {
			return found, true, diag.InferFailReason{}
		}
		return nil, false, diag.NoOpinion()

	case types.KNamespace:
		if key.Kind != types.KeyName {
			return nil, false, diag.NoOpinion()
		}
		composed := t.NamespacePath + "." + key.Name
		if _, ok := r.Index.GetTypeDecl(types.TypeDeclId(composed)); ok {
			return types.Def(types.TypeDeclId(composed)), true, diag.InferFailReason{}
		}
		return types.Namespace(composed), true, diag.InferFailReason{}

	case types.KGlobal:
		if key.Kind != types.KeyName {
			return nil, false, diag.NoOpinion()
		}
		if found, ok := r.fromDeclaredMembers(index.GlobalPathOwner(""), key); ok {
			return found, true, diag.InferFailReason{}
		}
		return nil, false, diag.NoOpinion()

	case types.KFileEnv:
		if key.Kind != types.KeyName || r.FileEnv == nil {
			return nil, false, diag.NoOpinion()
		}
		if v, ok := r.FileEnv(t.FileEnvID, key.Name); ok {
			return v, true, diag.InferFailReason{}
		}
		return nil, false, diag.NoOpinion()

	case types.KTplRef:
		// Resolving through a bare template reference without an
		// argument-context substitutor bound is an open deferral: the
		// inference pass re-enters with Substitute(t, sigma) applied
		// once it has one, so by the time member resolution sees a
		// concrete base this case doesn't fire.
		return nil, false, diag.NoOpinion()

	default:
		return nil, false, diag.NoOpinion()
	}
}

// resolveNominal implements the Ref(T)/Def(T) row: declared-members
// lookup in Type(T), the enum-by-variable defer, the operator chain,
// alias-origin resolution, and the super-type walk, combined per
// SPEC_FULL.md's Open Question 2 resolution (alias wins only when
// strictly more specific than the super walk's answer).
func (r *Resolver) resolveNominal(id types.TypeDeclId, key types.MemberKey, g guard) (*types.Type, bool, diag.InferFailReason) {
	next, ok := g.enter(id)
	if !ok {
		return nil, false, diag.FieldNotFound()
	}

	td, ok := r.Index.GetTypeDecl(id)
	if !ok {
		return nil, false, diag.NoOpinion()
	}

	if td.Kind == index.KindEnum && key.Kind == types.KeyExprType && key.Expr != nil {
		isNominal := key.Expr.Kind == types.KRef || key.Expr.Kind == types.KDef
		if isNominal && key.Expr.TypeDecl == id {
			return nil, false, diag.NoOpinion()
		}
	}

	var memberResult *types.Type
	memberOK := false
	if found, ok := r.fromDeclaredMembers(index.TypeOwner(id), key); ok {
		memberResult, memberOK = found, true
	} else {
		for _, s := range td.Supers {
			if v, ok, reason := r.resolveNominal(s, key, next); ok {
				memberResult, memberOK = v, true
				break
			} else if reason.Kind != diag.ReasonNone && reason.Kind != diag.ReasonFieldNotFound {
				return nil, false, reason
			}
		}
	}

	var aliasResult *types.Type
	aliasOK := false
	if td.Kind == index.KindAlias && td.AliasOrigin != nil {
		if v, ok, reason := r.resolve(td.AliasOrigin, key, next); ok {
			aliasResult, aliasOK = v, true
		} else if reason.Kind != diag.ReasonNone {
			return nil, false, reason
		}
	}

	switch {
	case memberOK && aliasOK:
		if isMoreSpecificAlias(aliasResult, memberResult, r) {
			return aliasResult, true, diag.InferFailReason{}
		}
		return memberResult, true, diag.InferFailReason{}
	case memberOK:
		return memberResult, true, diag.InferFailReason{}
	case aliasOK:
		return aliasResult, true, diag.InferFailReason{}
	}

	if v, ok, reason := r.runIndexOperators(index.TypeOwner(id), key, next); ok || reason.Kind != diag.ReasonNone {
		return v, ok, reason
	}

	return nil, false, diag.NoOpinion()
}

// isMoreSpecificAlias implements the Open Question 2 resolution
// (SPEC_FULL.md §4): the alias answer wins only when it is not
// Any/Unknown and is check_type_compact-consistent with the super
// walk's answer.
func isMoreSpecificAlias(alias, superResult *types.Type, r *Resolver) bool {
	if alias == nil || alias.Kind == types.KAny || alias.Kind == types.KUnknown {
		return false
	}
	if superResult == nil {
		return true
	}
	return types.CheckCompact(superResult, alias, r.Index)
}

func (r *Resolver) resolveArray(t *types.Type, key types.MemberKey) (*types.Type, bool, diag.InferFailReason) {
	switch key.Kind {
	case types.KeyInteger:
		i := key.Int
		if t.ArrLen.Kind == types.LenMax {
			if i >= 1 && i <= int64(t.ArrLen.Max) {
				return t.Base, true, diag.InferFailReason{}
			}
			if r.Strict {
				return types.UnionOf(t.Base, types.Nil()), true, diag.InferFailReason{}
			}
			return t.Base, true, diag.InferFailReason{}
		}
		if r.Strict {
			return types.UnionOf(t.Base, types.Nil()), true, diag.InferFailReason{}
		}
		return t.Base, true, diag.InferFailReason{}
	case types.KeyExprType:
		if r.LoopBoundConfirmed {
			return t.Base, true, diag.InferFailReason{}
		}
		if r.Strict {
			return types.UnionOf(t.Base, types.Nil()), true, diag.InferFailReason{}
		}
		return t.Base, true, diag.InferFailReason{}
	}
	return nil, false, diag.NoOpinion()
}

func (r *Resolver) resolveTuple(t *types.Type, key types.MemberKey) (*types.Type, bool, diag.InferFailReason) {
	switch key.Kind {
	case types.KeyInteger:
		i := key.Int
		if i >= 1 && int(i) <= len(t.Elems) {
			return t.Elems[i-1], true, diag.InferFailReason{}
		}
		return types.Nil(), true, diag.InferFailReason{}
	case types.KeyExprType:
		if key.Expr != nil && key.Expr.Kind == types.KInteger {
			elems := append([]*types.Type(nil), t.Elems...)
			elems = append(elems, types.Nil())
			return types.UnionOf(elems...), true, diag.InferFailReason{}
		}
	}
	return nil, false, diag.NoOpinion()
}

func (r *Resolver) resolveObject(t *types.Type, key types.MemberKey) (*types.Type, bool, diag.InferFailReason) {
	if key.Kind == types.KeyName {
		if v, ok := t.Fields[key.Name]; ok {
			return v, true, diag.InferFailReason{}
		}
	}
	for _, entry := range t.IndexAccess {
		if keyMatchesAccessEntry(key, entry.KeyType, r) {
			return entry.ValueType, true, diag.InferFailReason{}
		}
	}
	return nil, false, diag.NoOpinion()
}

func keyMatchesAccessEntry(key types.MemberKey, accessKeyType *types.Type, r *Resolver) bool {
	var actual *types.Type
	switch key.Kind {
	case types.KeyName:
		actual = types.StringConst(key.Name)
	case types.KeyInteger:
		actual = types.IntegerConst(key.Int)
	case types.KeyExprType:
		actual = key.Expr
	}
	return types.CheckCompact(accessKeyType, actual, r.Index)
}

func (r *Resolver) resolveUnion(t *types.Type, key types.MemberKey, g guard) (*types.Type, bool, diag.InferFailReason) {
	var successes []*types.Type
	var deferReason diag.InferFailReason
	deferred := false
	for _, arm := range t.Elems {
		v, ok, reason := r.resolve(arm, key, g)
		if ok {
			successes = append(successes, v)
			continue
		}
		if reason.Kind != diag.ReasonNone {
			deferred = true
			deferReason = reason
		}
	}
	if len(successes) == 0 {
		if deferred {
			return nil, false, deferReason
		}
		return nil, false, diag.NoOpinion()
	}
	if len(successes) > 1 {
		filtered := successes[:0:0]
		for _, s := range successes {
			if s.Kind != types.KNil {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) > 0 {
			successes = filtered
		}
	}
	return types.UnionOf(successes...), true, diag.InferFailReason{}
}

// fromDeclaredMembers is the "declared members" half of the dispatch
// table: exact key match first, falling back to a fuzzy
// check_type_compact match when key is itself a type (§4.9
// TableConst row, generalized to any owner).
func (r *Resolver) fromDeclaredMembers(owner index.MemberOwner, key types.MemberKey) (*types.Type, bool) {
	for _, m := range r.Index.MembersByKey(owner, key) {
		if m.ValueType != nil {
			return m.ValueType, true
		}
	}
	return nil, false
}

// fuzzyMatchByCompact implements the TableConst row's "no metatable,
// key is expression" branch: union every member whose key is
// check_type_compact-accepted by the lookup key's type, adding Nil if
// the key type is open (not a closed literal/enum set — approximated
// here as "not an Integer/String/Boolean literal const").
func (r *Resolver) fuzzyMatchByCompact(owner index.MemberOwner, key types.MemberKey) (*types.Type, bool, diag.InferFailReason) {
	if key.Expr == nil {
		return nil, false, diag.NoOpinion()
	}
	members := r.Index.Members(owner)
	sort.Slice(members, func(i, j int) bool { return members[i].Key.String() < members[j].Key.String() })

	var hits []*types.Type
	for _, m := range members {
		if m.ValueType == nil {
			continue
		}
		var memberKeyType *types.Type
		switch m.Key.Kind {
		case types.KeyName:
			memberKeyType = types.StringConst(m.Key.Name)
		case types.KeyInteger:
			memberKeyType = types.IntegerConst(m.Key.Int)
		case types.KeyExprType:
			memberKeyType = m.Key.Expr
		}
		if types.CheckCompact(key.Expr, memberKeyType, r.Index) {
			hits = append(hits, m.ValueType)
		}
	}
	if len(hits) == 0 {
		return nil, false, diag.NoOpinion()
	}
	if isOpenKeyType(key.Expr) {
		hits = append(hits, types.Nil())
	}
	return types.UnionOf(hits...), true, diag.InferFailReason{}
}

func isOpenKeyType(t *types.Type) bool {
	switch t.Kind {
	case types.KStringConst, types.KDocStringConst, types.KIntegerConst, types.KDocIntegerConst, types.KBooleanConst:
		return false
	default:
		return true
	}
}

// runIndexOperators runs owner's registered __index metamethod chain,
// returning the first operator's signature return type (member
// resolution does not itself execute code; it treats a registered
// __index operator's declared return type as the answer, and recurses
// into supers when owner is a nominal type with no operator of its
// own — the "operator rule" column of §4.9's Ref(T)/Def(T) row).
func (r *Resolver) runIndexOperators(owner index.MemberOwner, key types.MemberKey, g guard) (*types.Type, bool, diag.InferFailReason) {
	ops := r.Index.Operators(owner, index.OpIndex)
	for _, opID := range ops {
		if sig, ok := r.Index.GetSignature(opID.Sig); ok && len(sig.Returns) > 0 {
			return sig.Returns[0], true, diag.InferFailReason{}
		}
	}
	if owner.Kind == index.OwnerType {
		if td, ok := r.Index.GetTypeDecl(owner.TypeDecl); ok {
			for _, s := range td.Supers {
				next, ok := g.enter(s)
				if !ok {
					continue
				}
				if v, ok, reason := r.runIndexOperators(index.TypeOwner(s), key, next); ok {
					return v, true, diag.InferFailReason{}
				} else if reason.Kind != diag.ReasonNone {
					return nil, false, reason
				}
			}
		}
	}
	return nil, false, diag.NoOpinion()
}

// OtherDefinitions implements SPEC_FULL.md §5 supplemented feature 5
// (the goto_def_definition.rs "definition of a definition" hop):
// given a TypeDecl id, the locations of its *other* partial
// declarations, for "jump to the other file that extends this class."
func OtherDefinitions(ix *index.Index, id types.TypeDeclId, from index.DefLocation) []index.DefLocation {
	td, ok := ix.GetTypeDecl(id)
	if !ok {
		return nil
	}
	var out []index.DefLocation
	for _, d := range td.Definitions {
		if d != from {
			out = append(out, d)
		}
	}
	return out
}
