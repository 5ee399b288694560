package index

import "github.com/luasem/luasem/internal/types"

// TypeDeclKind distinguishes class/enum/alias named types.
type TypeDeclKind uint8

const (
	KindClass TypeDeclKind = iota
	KindEnum
	KindAlias
)

// GenericParam is one entry of a type or signature's generic
// parameter list.
type GenericParam struct {
	Name     string
	Bound    *types.Type // optional upper bound, nil if unbounded
	Variadic bool
}

// DefLocation is one partial-declaration site of a TypeDecl; classes
// may be extended across multiple files (§3 "partial declarations
// across files allowed").
type DefLocation struct {
	File  types.FileID
	Range types.ByteRange
}

// TypeDecl is a named introduced type (§3 Type declaration).
type TypeDecl struct {
	ID TypeDeclId

	Kind TypeDeclKind

	Generics []GenericParam

	// Supers is the set of declared super-types, stored by id in
	// declaration order (order matters for the §4.9 tie-break rule:
	// "left-to-right in declaration order").
	Supers []types.TypeDeclId

	// Alias-only.
	AliasOrigin *types.Type

	// Enum-only.
	EnumBase    *types.Type
	EnumMembers []EnumMember

	Definitions []DefLocation
}

type TypeDeclId = types.TypeDeclId

// EnumMember is one (key, value) pair of an enum's fixed value set.
type EnumMember struct {
	Key   string
	Value *types.Type
}

// AddSuper appends a super-type id if not already present, preserving
// first-seen declaration order for the member-resolution tie-break.
func (td *TypeDecl) AddSuper(id types.TypeDeclId) {
	for _, s := range td.Supers {
		if s == id {
			return
		}
	}
	td.Supers = append(td.Supers, id)
}

// AddDefinition records another partial-declaration location for this
// type (multiple files extending the same class).
func (td *TypeDecl) AddDefinition(file types.FileID, r types.ByteRange) {
	for _, d := range td.Definitions {
		if d.File == file && d.Range == r {
			return
		}
	}
	td.Definitions = append(td.Definitions, DefLocation{File: file, Range: r})
}
