package parser

import "github.com/luasem/luasem/internal/types"

// The constructors below are a convenience layer for building trees by
// hand (tests, and any embedder that wants to feed the analyzer
// synthetic ASTs) — a real parser implementation populates these same
// struct literals directly from its own concrete syntax tree instead.

func Rng(start, end int) types.ByteRange { return types.ByteRange{Start: start, End: end} }

func NewChunk(stats []Stat, r types.ByteRange) *Chunk {
	return &Chunk{base: base{Rng: r}, Stats: stats}
}

func NewName(name string, r types.ByteRange) *NameExpr {
	return &NameExpr{exprBase: exprBase{base{Rng: r}}, Name: name}
}

func NewDotIndex(prefix Expr, name string, r types.ByteRange) *IndexExpr {
	return &IndexExpr{exprBase: exprBase{base{Rng: r}}, Prefix: prefix, Form: IndexByDotName, Name: name}
}

func NewBracketIndex(prefix, key Expr, r types.ByteRange) *IndexExpr {
	return &IndexExpr{exprBase: exprBase{base{Rng: r}}, Prefix: prefix, Form: IndexByBracketExpr, KeyExpr: key}
}

func NewCall(callee Expr, args []Expr, r types.ByteRange) *CallExpr {
	return &CallExpr{exprBase: exprBase{base{Rng: r}}, Callee: callee, Args: args}
}

func NewColonCall(receiver Expr, method string, args []Expr, r types.ByteRange) *CallExpr {
	return &CallExpr{exprBase: exprBase{base{Rng: r}}, Callee: receiver, IsColon: true, MethodName: method, Args: args}
}

func NewClosure(params []string, variadic, isMethod bool, body []Stat, r types.ByteRange) *ClosureExpr {
	return &ClosureExpr{exprBase: exprBase{base{Rng: r}}, Params: params, Variadic: variadic, IsMethod: isMethod, Body: body}
}

func NewString(v string, r types.ByteRange) *StringLit {
	return &StringLit{exprBase: exprBase{base{Rng: r}}, Value: v}
}

func NewInt(v int64, r types.ByteRange) *NumberLit {
	return &NumberLit{exprBase: exprBase{base{Rng: r}}, IsInt: true, Int: v}
}

func NewFloat(v float64, r types.ByteRange) *NumberLit {
	return &NumberLit{exprBase: exprBase{base{Rng: r}}, Float: v}
}

func NewBool(v bool, r types.ByteRange) *BoolLit {
	return &BoolLit{exprBase: exprBase{base{Rng: r}}, Value: v}
}

func NewNil(r types.ByteRange) *NilLit { return &NilLit{exprBase{base{Rng: r}}} }

func NewTable(fields []TableField, r types.ByteRange) *TableExpr {
	return &TableExpr{exprBase: exprBase{base{Rng: r}}, Fields: fields}
}

func NewLocal(names []string, nameRngs []types.ByteRange, exprs []Expr, r types.ByteRange, docs ...DocTag) *LocalStat {
	return &LocalStat{statBase: statBase{base: base{Rng: r}, Docs: docs}, Names: names, NameRngs: nameRngs, Exprs: exprs}
}

func NewAssign(lhs, rhs []Expr, r types.ByteRange) *AssignStat {
	return &AssignStat{statBase: statBase{base: base{Rng: r}}, LHS: lhs, RHS: rhs}
}

func NewFuncStat(target Expr, isMethod bool, methodName string, fn *ClosureExpr, r types.ByteRange, docs ...DocTag) *FuncStat {
	return &FuncStat{statBase: statBase{base: base{Rng: r}, Docs: docs}, Target: target, IsMethod: isMethod, MethodName: methodName, Fn: fn}
}

func NewLocalFuncStat(name string, nameRng types.ByteRange, fn *ClosureExpr, r types.ByteRange, docs ...DocTag) *LocalFuncStat {
	return &LocalFuncStat{statBase: statBase{base: base{Rng: r}, Docs: docs}, Name: name, NameRng: nameRng, Fn: fn}
}

func NewReturn(exprs []Expr, r types.ByteRange) *ReturnStat {
	return &ReturnStat{statBase: statBase{base: base{Rng: r}}, Exprs: exprs}
}

func NewCallStat(call *CallExpr, r types.ByteRange) *CallStat {
	return &CallStat{statBase: statBase{base: base{Rng: r}}, Call: call}
}

func NewIf(clauses []IfClause, elseBody []Stat, r types.ByteRange) *IfStat {
	return &IfStat{statBase: statBase{base: base{Rng: r}}, Clauses: clauses, Else: elseBody}
}

func NewNumericFor(v string, vr types.ByteRange, start, stop, step Expr, body []Stat, r types.ByteRange) *NumericForStat {
	return &NumericForStat{statBase: statBase{base: base{Rng: r}}, Var: v, VarRng: vr, Start: start, Stop: stop, Step: step, Body: body}
}

func NewGenericFor(names []string, nameRngs []types.ByteRange, exprs []Expr, body []Stat, r types.ByteRange) *GenericForStat {
	return &GenericForStat{statBase: statBase{base: base{Rng: r}}, Names: names, NameRngs: nameRngs, Exprs: exprs, Body: body}
}
