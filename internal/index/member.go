package index

import "github.com/luasem/luasem/internal/types"

// MemberFeature distinguishes how a member was introduced.
type MemberFeature uint8

const (
	FeatureFileDefine MemberFeature = iota
	FeatureMetaDefine
	FeatureFileMethodDecl
	FeatureMetaMethodDecl
)

// MemberOwnerKind tags which form of owner a Member belongs to.
type MemberOwnerKind uint8

const (
	OwnerElement MemberOwnerKind = iota // anonymous table literal: file+range
	OwnerType                           // named nominal type: typeDeclId
	OwnerGlobalPath                     // dotted global path name
)

// MemberOwner identifies the table literal or nominal type a Member
// belongs to (§3 Member owner).
type MemberOwner struct {
	Kind MemberOwnerKind

	// OwnerElement
	File  types.FileID
	Range types.ByteRange

	// OwnerType
	TypeDecl types.TypeDeclId

	// OwnerGlobalPath
	GlobalPath string
}

func ElementOwner(file types.FileID, r types.ByteRange) MemberOwner {
	return MemberOwner{Kind: OwnerElement, File: file, Range: r}
}
func TypeOwner(id types.TypeDeclId) MemberOwner { return MemberOwner{Kind: OwnerType, TypeDecl: id} }
func GlobalPathOwner(path string) MemberOwner   { return MemberOwner{Kind: OwnerGlobalPath, GlobalPath: path} }

func (o MemberOwner) key() ownerKey {
	switch o.Kind {
	case OwnerElement:
		return ownerKey{kind: o.Kind, file: o.File, rng: o.Range}
	case OwnerType:
		return ownerKey{kind: o.Kind, typeDecl: o.TypeDecl}
	case OwnerGlobalPath:
		return ownerKey{kind: o.Kind, path: o.GlobalPath}
	default:
		return ownerKey{}
	}
}

// ownerKey is the comparable (hashable) form of MemberOwner used as a
// Go map key internally.
type ownerKey struct {
	kind     MemberOwnerKind
	file     types.FileID
	rng      types.ByteRange
	typeDecl types.TypeDeclId
	path     string
}

// Member is a named or indexed slot of an owner (§3 Member).
type Member struct {
	ID      types.MemberId
	Owner   MemberOwner
	Key     types.MemberKey
	Feature MemberFeature

	// GlobalPathAnnotation, when non-empty, records a dotted global
	// path the member was additionally exposed under (e.g. a method
	// defined both inside a class body and re-exported at module
	// scope).
	GlobalPathAnnotation string

	// ValueType is the type bound to this member by the inference
	// pass (G); nil until bound, filled in by type-inference or doc
	// tags.
	ValueType *types.Type
}
