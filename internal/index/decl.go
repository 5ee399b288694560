// Package index implements the in-memory index database (component B):
// append-per-generation tables keyed by file and stable syntax
// identifiers — declarations, members, references, type declarations,
// operators, properties, file dependencies, the module index, the
// global index, and metatable bindings.
package index

import (
	"github.com/luasem/luasem/internal/types"
)

// LocalAttr refines a Local decl the way the doc/decl passes need to
// distinguish const/close/iterator/module locals.
type LocalAttr uint8

const (
	LocalPlain LocalAttr = iota
	LocalConst
	LocalClose
	LocalIterConst
	LocalModule
)

// DeclVariantKind tags which Decl variant a Decl value holds.
type DeclVariantKind uint8

const (
	DeclLocal DeclVariantKind = iota
	DeclParam
	DeclGlobal
	DeclImplicitSelf
)

// Decl represents a named lexical entity (§3 Decl).
type Decl struct {
	ID DeclId

	File          types.FileID
	Name          string
	DefiningRange types.ByteRange
	InitExprID    *types.ExprId // optional: initializer expression, nil if none

	// PresetType is set by the decl pass for synthetic bindings that
	// don't flow through the normal initializer-expression pipeline —
	// string-keyed class-registration calls bind their Local decl to
	// Def(classId) directly (§4.4, SPEC_FULL.md §5.3). The inference
	// pass honors this instead of inferring from InitExprID when set.
	PresetType *types.Type

	// Type is the type bound by the inference pass (G) once the decl's
	// initializer (or, for a Param, its doc-declared parameter type) has
	// been resolved; nil means "not yet resolved", which every reader
	// (hover, member resolution's NameExpr dispatch) treats as Unknown
	// rather than Nil.
	Type *types.Type

	Variant DeclVariantKind

	// Local
	LocalAttr LocalAttr

	// Param
	ParamIndex     int
	OwningSig      types.SignatureId
	OwningMemberID *types.MemberId

	// Global / ImplicitSelf share Kind with Local's "kind" concept in
	// the source spec; we reuse LocalAttr's zero value (Plain) as the
	// default "kind" for those variants since the spec only calls out
	// Local's kind/attribute distinction in detail.
}

// DeclId is re-exported from types for readability at call sites in
// this package (`index.DeclId` reads better than `types.DeclId` next
// to `index.Decl`).
type DeclId = types.DeclId

// NewLocalDecl builds a Local-variant decl.
func NewLocalDecl(id DeclId, name string, defRange types.ByteRange, attr LocalAttr) *Decl {
	return &Decl{ID: id, File: id.File, Name: name, DefiningRange: defRange, Variant: DeclLocal, LocalAttr: attr}
}

// NewParamDecl builds a Param-variant decl; owningMember is nil unless
// the parameter belongs to a method (colon-defined closures prepend an
// implicit self with OwningMemberID set, ordinary params leave it nil).
func NewParamDecl(id DeclId, name string, defRange types.ByteRange, index int, sig types.SignatureId, owningMember *types.MemberId) *Decl {
	return &Decl{
		ID: id, File: id.File, Name: name, DefiningRange: defRange,
		Variant: DeclParam, ParamIndex: index, OwningSig: sig, OwningMemberID: owningMember,
	}
}

// NewGlobalDecl builds a Global-variant decl. Globals are additionally
// entered into the global index by the caller (Index.AddDecl does this
// automatically).
func NewGlobalDecl(id DeclId, name string, defRange types.ByteRange) *Decl {
	return &Decl{ID: id, File: id.File, Name: name, DefiningRange: defRange, Variant: DeclGlobal}
}

// NewImplicitSelfDecl builds the synthetic `self` parameter decl
// prepended to colon-defined methods, whose range equals the method's
// colon token (§4.4).
func NewImplicitSelfDecl(id DeclId, defRange types.ByteRange, sig types.SignatureId, owningMember types.MemberId) *Decl {
	return &Decl{
		ID: id, File: id.File, Name: "self", DefiningRange: defRange,
		Variant: DeclImplicitSelf, OwningSig: sig, OwningMemberID: &owningMember,
	}
}
