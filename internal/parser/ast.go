// Package parser defines the contract the core consumes from the
// surface syntactic parser (§6 "Parser interface (consumed)"). The
// core never implements or mutates a Tree — the surface grammar, its
// tokenizer, and its error recovery are an external collaborator named
// only at this boundary.
//
// Node kinds and statement/expression shapes below model a typical
// dynamically-typed scripting grammar (locals, assignment, numeric and
// generic for, closures with optional colon/method receivers, table
// literals) closely enough to drive the analysis passes; a real
// front-end parser package would implement Tree by wrapping its own
// concrete syntax tree instead of the literal structs here, which
// exist so the rest of the module (and its tests) can construct ASTs
// without depending on a concrete grammar implementation.
package parser

import "github.com/luasem/luasem/internal/types"

// Kind tags every node's syntactic shape; combined with a node's Range
// it forms the node's SyntaxID (§3 Syntax identifier).
type Kind uint16

const (
	KChunk Kind = iota

	// Statements
	KLocalStat
	KAssignStat
	KFuncStat
	KLocalFuncStat
	KNumericForStat
	KGenericForStat
	KIfStat
	KWhileStat
	KRepeatStat
	KDoStat
	KCallStat
	KReturnStat
	KBreakStat

	// Expressions
	KNameExpr
	KIndexExpr
	KCallExpr
	KClosureExpr
	KTableExpr
	KBinExpr
	KUnExpr
	KStringLit
	KNumberLit
	KBoolLit
	KNilLit
	KVarargExpr
)

// Node is the minimal contract every AST node satisfies: a stable
// identity (Kind + Range), tying it to a SyntaxID.
type Node interface {
	Kind() Kind
	Range() types.ByteRange
}

func synIDOf(n Node) types.SyntaxID {
	return types.SyntaxID{Kind: types.NodeKind(n.Kind()), Range: n.Range()}
}

// SynID returns n's stable handle within its file.
func SynID(n Node) types.SyntaxID { return synIDOf(n) }

// Stat is any statement node.
type Stat interface {
	Node
	stat()
	// Doc returns the documentation tags attached immediately above
	// this statement, if any (§4.5 Doc pass walks these).
	Doc() []DocTag
}

// Expr is any expression node.
type Expr interface {
	Node
	expr()
}

// base carries the fields every concrete node shares.
type base struct {
	Rng types.ByteRange
}

func (b base) Range() types.ByteRange { return b.Rng }

type statBase struct {
	base
	Docs []DocTag
}

func (s statBase) stat()           {}
func (s statBase) Doc() []DocTag   { return s.Docs }

type exprBase struct{ base }

func (e exprBase) expr() {}

// DocTag is one `---@tag ...` documentation annotation (§4.5 Doc pass).
// Name is the tag keyword ("class", "alias", "param", ...); Text is
// the remainder of the line (already stripped of the tag keyword);
// Range spans the whole `---@tag ...` line.
type DocTag struct {
	Name string
	Text string
	Rng  types.ByteRange
}

func (d DocTag) Range() types.ByteRange { return d.Rng }

// --- Chunk -------------------------------------------------------------

// Chunk is the root block of a file: an ordered statement list plus
// any trailing documentation not attached to a following statement
// (e.g. a `---@class` block at end of file).
type Chunk struct {
	base
	Stats      []Stat
	TrailingDocs []DocTag
}

func (c *Chunk) Kind() Kind { return KChunk }

// Tree is one parsed file (§6 "(fileId, text) -> Tree").
type Tree struct {
	File types.FileID
	Root *Chunk
	Text string
}

// --- Statements ----------------------------------------------------------

type LocalAttrib uint8

const (
	AttribNone LocalAttrib = iota
	AttribConst
	AttribClose
)

// LocalStat: `local a, b <attrib> = e1, e2`
type LocalStat struct {
	statBase
	Names    []string
	NameRngs []types.ByteRange
	Attribs  []LocalAttrib
	Exprs    []Expr
}

func (s *LocalStat) Kind() Kind { return KLocalStat }

// AssignStat: `v1, v2 = e1, e2`
type AssignStat struct {
	statBase
	LHS []Expr
	RHS []Expr
}

func (s *AssignStat) Kind() Kind { return KAssignStat }

// FuncStat: `function Name.path[:method](...) ... end`. Target is the
// NameExpr/IndexExpr naming the function; IsMethod is true for a colon
// definition.
type FuncStat struct {
	statBase
	Target   Expr
	IsMethod bool
	MethodName string // set when IsMethod, the token after ':'
	Fn       *ClosureExpr
}

func (s *FuncStat) Kind() Kind { return KFuncStat }

// LocalFuncStat: `local function name(...) ... end`
type LocalFuncStat struct {
	statBase
	Name    string
	NameRng types.ByteRange
	Fn      *ClosureExpr
}

func (s *LocalFuncStat) Kind() Kind { return KLocalFuncStat }

// NumericForStat: `for i = start, stop, step do ... end`
type NumericForStat struct {
	statBase
	Var            string
	VarRng         types.ByteRange
	Start, Stop, Step Expr
	Body           []Stat
}

func (s *NumericForStat) Kind() Kind { return KNumericForStat }

// GenericForStat: `for a, b in iter() do ... end`
type GenericForStat struct {
	statBase
	Names    []string
	NameRngs []types.ByteRange
	Exprs    []Expr
	Body     []Stat
}

func (s *GenericForStat) Kind() Kind { return KGenericForStat }

type IfClause struct {
	Cond  Expr
	Body  []Stat
}

// IfStat: if/elseif chain with optional else block.
type IfStat struct {
	statBase
	Clauses []IfClause
	Else    []Stat
}

func (s *IfStat) Kind() Kind { return KIfStat }

type WhileStat struct {
	statBase
	Cond Expr
	Body []Stat
}

func (s *WhileStat) Kind() Kind { return KWhileStat }

type RepeatStat struct {
	statBase
	Body []Stat
	Cond Expr
}

func (s *RepeatStat) Kind() Kind { return KRepeatStat }

type DoStat struct {
	statBase
	Body []Stat
}

func (s *DoStat) Kind() Kind { return KDoStat }

type CallStat struct {
	statBase
	Call *CallExpr
}

func (s *CallStat) Kind() Kind { return KCallStat }

type ReturnStat struct {
	statBase
	Exprs []Expr
}

func (s *ReturnStat) Kind() Kind { return KReturnStat }

type BreakStat struct{ statBase }

func (s *BreakStat) Kind() Kind { return KBreakStat }

// --- Expressions -----------------------------------------------------------

// NameExpr: a bare identifier reference.
type NameExpr struct {
	exprBase
	Name string
}

func (e *NameExpr) Kind() Kind { return KNameExpr }

// IndexKeyForm distinguishes `.name` / `["name"]` / `[expr]` access.
type IndexKeyForm uint8

const (
	IndexByDotName IndexKeyForm = iota
	IndexByBracketExpr
)

// IndexExpr: `prefix.name` or `prefix[expr]`.
type IndexExpr struct {
	exprBase
	Prefix  Expr
	Form    IndexKeyForm
	Name    string // valid when Form == IndexByDotName
	KeyExpr Expr   // valid when Form == IndexByBracketExpr
}

func (e *IndexExpr) Kind() Kind { return KIndexExpr }

// CallExpr: `callee(args)` or `prefix:method(args)` (colon call, where
// Callee is the IndexExpr/NameExpr naming the receiver and MethodName
// is set).
type CallExpr struct {
	exprBase
	Callee     Expr
	IsColon    bool
	MethodName string
	Args       []Expr
}

func (e *CallExpr) Kind() Kind { return KCallExpr }

// ClosureExpr: `function(params) ... end`, optionally a method body
// (IsMethod true implies an implicit leading `self` parameter).
type ClosureExpr struct {
	exprBase
	Params     []string
	ParamRngs  []types.ByteRange
	Variadic   bool
	IsMethod   bool
	Body       []Stat
	Docs       []DocTag // `---@generic`, `---@param`, `---@return`, `---@overload` attached above
}

func (e *ClosureExpr) Kind() Kind { return KClosureExpr }

// SignatureRange is the byte range that keys this closure's
// SignatureId (§3): the whole closure expression.
func (e *ClosureExpr) SignatureRange() types.ByteRange { return e.Rng }

type TableFieldForm uint8

const (
	FieldArray TableFieldForm = iota // value only, implicit integer key
	FieldName                        // `name = value`
	FieldExpr                        // `[expr] = value`
)

type TableField struct {
	Form  TableFieldForm
	Name  string
	Key   Expr
	Value Expr
	Rng   types.ByteRange
}

// TableExpr: `{ ... }`
type TableExpr struct {
	exprBase
	Fields []TableField
}

func (e *TableExpr) Kind() Kind { return KTableExpr }

type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

type BinExpr struct {
	exprBase
	Op          BinOp
	Left, Right Expr
}

func (e *BinExpr) Kind() Kind { return KBinExpr }

type UnOp uint8

const (
	OpNeg UnOp = iota
	OpNot
	OpLen
)

type UnExpr struct {
	exprBase
	Op      UnOp
	Operand Expr
}

func (e *UnExpr) Kind() Kind { return KUnExpr }

type StringLit struct {
	exprBase
	Value string
}

func (e *StringLit) Kind() Kind { return KStringLit }

type NumberLit struct {
	exprBase
	IsInt bool
	Int   int64
	Float float64
}

func (e *NumberLit) Kind() Kind { return KNumberLit }

type BoolLit struct {
	exprBase
	Value bool
}

func (e *BoolLit) Kind() Kind { return KBoolLit }

type NilLit struct{ exprBase }

func (e *NilLit) Kind() Kind { return KNilLit }

// VarargExpr: `...`
type VarargExpr struct{ exprBase }

func (e *VarargExpr) Kind() Kind { return KVarargExpr }
