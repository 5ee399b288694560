// Package types implements the immutable type algebra (component A):
// the value representation of every type form the analyzer reasons
// about, and the structural operations over that algebra (union,
// substitution, compact-assignability).
package types

import "fmt"

// FileID is a stable opaque identifier for a loaded source file.
// BuiltinFileID is reserved for virtual/language-builtin sources that
// have no real path on disk (global environment, injected stdlib).
type FileID uint32

const BuiltinFileID FileID = 0

// NodeKind tags the syntactic shape of a node behind a SyntaxID. It is
// intentionally coarse — just enough to keep SyntaxIDs unique and
// human-readable in diagnostics, not a full grammar.
type NodeKind uint16

// ByteRange is a half-open [Start, End) byte span within a file's text.
type ByteRange struct {
	Start int
	End   int
}

func (r ByteRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Contains reports whether pos falls inside the range.
func (r ByteRange) Contains(pos int) bool { return pos >= r.Start && pos < r.End }

// SyntaxID is the stable handle for an AST node within one file: a
// (kind, range) pair that survives re-parses of unchanged text because
// neither the parser's internal node pointers nor node counts are part
// of its identity.
type SyntaxID struct {
	Kind  NodeKind
	Range ByteRange
}

// NodeHandle is a cross-file node handle: a SyntaxID combined with the
// file it belongs to.
type NodeHandle struct {
	File FileID
	Syn  SyntaxID
}

// DeclId identifies a Decl by the file it was declared in and the byte
// offset of its defining name token. Two decls at the same position in
// the same file are the same decl across re-analysis as long as the
// position is stable, which the parser guarantees for unchanged text.
type DeclId struct {
	File FileID
	Pos  int
}

func (d DeclId) String() string { return fmt.Sprintf("decl#%d:%d", d.File, d.Pos) }

// MemberId identifies a Member by its defining syntax node.
type MemberId struct {
	Syn  SyntaxID
	File FileID
}

// SignatureId identifies a function shape by the file and byte range of
// the closure expression that introduced it.
type SignatureId struct {
	File  FileID
	Range ByteRange
}

func (s SignatureId) String() string { return fmt.Sprintf("sig#%d:%s", s.File, s.Range) }

// TypeDeclId is the string name under which a named type is registered
// in the type-declaration table. Dotted names denote namespace
// membership (e.g. "mypkg.MyClass").
type TypeDeclId string

// ExprId identifies an expression node for inference-cache and
// reference-index purposes. It is just a NodeHandle with an expression
// flavored name for readability at call sites.
type ExprId = NodeHandle

// VarRefId identifies one particular occurrence of a variable access
// path, used as the key for flow-narrowing facts. Two reads of the same
// local at different source positions have different VarRefIds.
type VarRefId struct {
	File FileID
	Pos  int
}

// SemanticDeclId is the sum type `Decl | Member | Signature | TypeDecl`
// used as the key for the property index (free-form documentation
// attached to any named entity). Exactly one of the fields is set,
// indicated by Kind.
type SemanticDeclId struct {
	Kind SemanticDeclKind
	Decl DeclId
	Mem  MemberId
	Sig  SignatureId
	Type TypeDeclId
}

type SemanticDeclKind uint8

const (
	SemDecl SemanticDeclKind = iota
	SemMember
	SemSignature
	SemTypeDecl
)

func SemanticOfDecl(id DeclId) SemanticDeclId      { return SemanticDeclId{Kind: SemDecl, Decl: id} }
func SemanticOfMember(id MemberId) SemanticDeclId   { return SemanticDeclId{Kind: SemMember, Mem: id} }
func SemanticOfSignature(id SignatureId) SemanticDeclId {
	return SemanticDeclId{Kind: SemSignature, Sig: id}
}
func SemanticOfTypeDecl(id TypeDeclId) SemanticDeclId {
	return SemanticDeclId{Kind: SemTypeDecl, Type: id}
}
