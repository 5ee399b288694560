package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags which variant of the type algebra a Type value holds. Go
// has no sum types, so Type is a single struct carrying only the
// fields its Kind uses; constructors below are the only supported way
// to build one so that invariant stays true.
type Kind uint8

const (
	// Primitives
	KAny Kind = iota
	KUnknown
	KNil
	KBoolean
	KInteger
	KNumber
	KString
	KTable
	KIo
	KGlobal
	KThread

	// Literals
	KIntegerConst
	KDocIntegerConst
	KStringConst
	KDocStringConst
	KBooleanConst
	KFloatConst
	KLanguage

	// Composite
	KUnion
	KIntersection
	KTuple
	KObject
	KArray
	KTableConst
	KTableGeneric
	KGeneric
	KInstance

	// Nominal
	KRef
	KDef

	// Names
	KNamespace

	// Module/file
	KFileEnv

	// Polymorphic markers
	KTplRef
	KStrTplRef
	KVariadic
	KSignature
)

// ArrayLenKind distinguishes an open array from a bounded one.
type ArrayLenKind uint8

const (
	LenNone ArrayLenKind = iota
	LenMax
)

type ArrayLen struct {
	Kind ArrayLenKind
	Max  int
}

func NoLen() ArrayLen       { return ArrayLen{Kind: LenNone} }
func MaxLen(n int) ArrayLen { return ArrayLen{Kind: LenMax, Max: n} }

// IndexAccessEntry is one `[KeyType]: ValueType` pair of an Object's
// index-access section (as opposed to its exact field map).
type IndexAccessEntry struct {
	KeyType   *Type
	ValueType *Type
}

// Type is the immutable value representation of one type-algebra
// variant. Construct with the helpers below, never with a struct
// literal, so Kind and its payload stay consistent.
type Type struct {
	Kind Kind

	// Literal payloads.
	IntVal   int64
	StrVal   string
	BoolVal  bool
	FloatVal float64
	LangTag  string

	// Composite payloads.
	Elems       []*Type             // Union set / Intersection list / Tuple list / Variadic list
	Fields      map[string]*Type    // Object exact field map, keyed by interned name
	FieldOrder  []string            // preserves declaration order for deterministic iteration
	IndexAccess []IndexAccessEntry  // Object index-access pairs
	Base        *Type               // Array element / Generic base / Instance base / TableGeneric value
	KeyBase     *Type               // TableGeneric key type
	ArrLen      ArrayLen            // Array length
	Range       ByteRange           // TableConst / Instance / Element owner range
	File        FileID              // file the range above belongs to

	// Nominal payloads.
	TypeDecl TypeDeclId // Ref / Def

	// Namespace / file-env payloads.
	NamespacePath string
	FileEnvID     FileID

	// Polymorphic payloads.
	TplIndex     int    // TplRef: position in the enclosing generic parameter list
	TplName      string // TplRef: the generic parameter's declared name, for messages
	StrTplPrefix string // StrTplRef
	StrTplSuffix string
	Signature    SignatureId // Signature
	GenericArgs  []*Type     // Generic(base, params): the substitutor values
}

func (t *Type) String() string {
	if t == nil {
		return "<nil-type>"
	}
	switch t.Kind {
	case KAny:
		return "any"
	case KUnknown:
		return "unknown"
	case KNil:
		return "nil"
	case KBoolean:
		return "boolean"
	case KInteger:
		return "integer"
	case KNumber:
		return "number"
	case KString:
		return "string"
	case KTable:
		return "table"
	case KIo:
		return "io"
	case KGlobal:
		return "global"
	case KThread:
		return "thread"
	case KIntegerConst:
		return fmt.Sprintf("%d", t.IntVal)
	case KDocIntegerConst:
		return fmt.Sprintf("(doc)%d", t.IntVal)
	case KStringConst:
		return fmt.Sprintf("%q", t.StrVal)
	case KDocStringConst:
		return fmt.Sprintf("(doc)%q", t.StrVal)
	case KBooleanConst:
		return fmt.Sprintf("%t", t.BoolVal)
	case KFloatConst:
		return fmt.Sprintf("%g", t.FloatVal)
	case KLanguage:
		return "lang<" + t.LangTag + ">"
	case KUnion:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, " | ")
	case KIntersection:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, " & ")
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KObject:
		return "object{...}"
	case KArray:
		if t.ArrLen.Kind == LenMax {
			return fmt.Sprintf("%s[%d]", t.Base, t.ArrLen.Max)
		}
		return t.Base.String() + "[]"
	case KTableConst:
		return fmt.Sprintf("table@%d:%s", t.File, t.Range)
	case KTableGeneric:
		return fmt.Sprintf("table<%s,%s>", t.KeyBase, t.Base)
	case KGeneric:
		parts := make([]string, len(t.GenericArgs))
		for i, e := range t.GenericArgs {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%s<%s>", t.Base, strings.Join(parts, ", "))
	case KInstance:
		return fmt.Sprintf("%s@%d:%s", t.Base, t.File, t.Range)
	case KRef:
		return string(t.TypeDecl)
	case KDef:
		return "def:" + string(t.TypeDecl)
	case KNamespace:
		return "ns:" + t.NamespacePath
	case KFileEnv:
		return fmt.Sprintf("fileenv#%d", t.FileEnvID)
	case KTplRef:
		return "tpl:" + t.TplName
	case KStrTplRef:
		return fmt.Sprintf("tpl:%s...%s", t.StrTplPrefix, t.StrTplSuffix)
	case KVariadic:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "..." + strings.Join(parts, ", ")
	case KSignature:
		return "fn#" + t.Signature.String()
	default:
		return "<unknown-kind>"
	}
}

// --- constructors ---

func Any() *Type     { return &Type{Kind: KAny} }
func Unknown() *Type { return &Type{Kind: KUnknown} }
func Nil() *Type     { return &Type{Kind: KNil} }
func Boolean() *Type { return &Type{Kind: KBoolean} }
func Integer() *Type { return &Type{Kind: KInteger} }
func Number() *Type  { return &Type{Kind: KNumber} }
func String() *Type  { return &Type{Kind: KString} }
func Table() *Type   { return &Type{Kind: KTable} }
func Io() *Type      { return &Type{Kind: KIo} }
func Global() *Type  { return &Type{Kind: KGlobal} }
func Thread() *Type  { return &Type{Kind: KThread} }

func IntegerConst(v int64) *Type    { return &Type{Kind: KIntegerConst, IntVal: v} }
func DocIntegerConst(v int64) *Type { return &Type{Kind: KDocIntegerConst, IntVal: v} }
func StringConst(v string) *Type    { return &Type{Kind: KStringConst, StrVal: Intern(v)} }
func DocStringConst(v string) *Type { return &Type{Kind: KDocStringConst, StrVal: Intern(v)} }
func BooleanConst(v bool) *Type     { return &Type{Kind: KBooleanConst, BoolVal: v} }
func FloatConst(v float64) *Type    { return &Type{Kind: KFloatConst, FloatVal: v} }
func Language(tag string) *Type     { return &Type{Kind: KLanguage, LangTag: tag} }

// RawUnion builds a Union without normalizing; prefer UnionOf for
// general use, which calls Apply to normalize.
func RawUnion(elems []*Type) *Type { return &Type{Kind: KUnion, Elems: elems} }

func Intersection(elems []*Type) *Type { return &Type{Kind: KIntersection, Elems: elems} }
func Tuple(elems []*Type) *Type        { return &Type{Kind: KTuple, Elems: elems} }

func Object(fields map[string]*Type, order []string, index []IndexAccessEntry) *Type {
	return &Type{Kind: KObject, Fields: fields, FieldOrder: order, IndexAccess: index}
}

func Array(base *Type, length ArrayLen) *Type { return &Type{Kind: KArray, Base: base, ArrLen: length} }

func TableConst(file FileID, r ByteRange) *Type { return &Type{Kind: KTableConst, File: file, Range: r} }

func TableGeneric(key, val *Type) *Type { return &Type{Kind: KTableGeneric, KeyBase: key, Base: val} }

func Generic(base *Type, args []*Type) *Type { return &Type{Kind: KGeneric, Base: base, GenericArgs: args} }

func Instance(base *Type, file FileID, r ByteRange) *Type {
	return &Type{Kind: KInstance, Base: base, File: file, Range: r}
}

func Ref(id TypeDeclId) *Type { return &Type{Kind: KRef, TypeDecl: id} }
func Def(id TypeDeclId) *Type { return &Type{Kind: KDef, TypeDecl: id} }

func Namespace(path string) *Type { return &Type{Kind: KNamespace, NamespacePath: path} }
func FileEnv(f FileID) *Type      { return &Type{Kind: KFileEnv, FileEnvID: f} }

func TplRef(index int, name string) *Type { return &Type{Kind: KTplRef, TplIndex: index, TplName: name} }
func StrTplRef(prefix, suffix string) *Type {
	return &Type{Kind: KStrTplRef, StrTplPrefix: prefix, StrTplSuffix: suffix}
}
func Variadic(elems []*Type) *Type    { return &Type{Kind: KVariadic, Elems: elems} }
func Signature(id SignatureId) *Type { return &Type{Kind: KSignature, Signature: id} }

// Element owner range helper: owner ranges reuse the TableConst/
// Instance representation keyed by (File, Range); OwnerKey below
// derives a map key from either.
func (t *Type) OwnerKey() (FileID, ByteRange, bool) {
	switch t.Kind {
	case KTableConst, KInstance:
		return t.File, t.Range, true
	default:
		return 0, ByteRange{}, false
	}
}

// IsMultiReturn reports whether t represents a multi-value expansion
// (component A: is_multi_return).
func IsMultiReturn(t *Type) bool {
	return t != nil && t.Kind == KVariadic
}

// sortedFieldNames returns an Object's field names in a stable,
// deterministic order (declaration order if known, else sorted).
func sortedFieldNames(t *Type) []string {
	if len(t.FieldOrder) == len(t.Fields) {
		return t.FieldOrder
	}
	names := make([]string, 0, len(t.Fields))
	for n := range t.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
