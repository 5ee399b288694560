package index

import "github.com/luasem/luasem/internal/types"

// SignatureId is re-exported for call-site readability.
type SignatureId = types.SignatureId

// Param is one formal parameter of a Signature.
type Param struct {
	Name string
	Type *types.Type // nil if untyped (inferred as Any/Unknown downstream)
}

// Signature is a function shape (§3 Signature): parameter list, return
// types, generics, overloads, and whether it was defined with a colon
// (self-receiver) or a dot.
type Signature struct {
	ID SignatureId

	Params      []Param
	Variadic    bool // true if the last param accepts a variable tail
	Returns     []*types.Type
	ReturnsVary bool // true if Returns' last entry is itself variadic

	Generics []GenericParam

	// Overloads lists alternate shapes registered via `---@overload`,
	// tried in declaration order during call resolution (SPEC_FULL.md §5
	// item 4: exact-arity-first, then first variadic-tailed fit).
	Overloads []*Signature

	SelfReceiver bool // colon-defined
}

// Arity returns the fixed (non-variadic) parameter count.
func (s *Signature) Arity() int { return len(s.Params) }

// AcceptsArity reports whether this signature (ignoring overloads) can
// be called with n positional arguments.
func (s *Signature) AcceptsArity(n int) bool {
	if s.Variadic {
		return n >= len(s.Params)-1
	}
	return n == len(s.Params)
}
