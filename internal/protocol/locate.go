package protocol

import (
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// exprAtOffset returns the innermost expression node whose range
// contains offset, walking tree's statement/expression shapes. No
// generic Walk/Visit exists in internal/parser (every analysis pass
// implements its own private traversal over the same Kind/Stat/Expr
// vocabulary defined in internal/parser/ast.go); hover, definition,
// and completion all need the same "what's under the cursor" answer,
// so it lives once here rather than three times in each handler.
func exprAtOffset(tree *parser.Tree, offset int) parser.Expr {
	if tree == nil || tree.Root == nil {
		return nil
	}
	return exprInStats(tree.Root.Stats, offset)
}

func exprInStats(stats []parser.Stat, offset int) parser.Expr {
	for _, s := range stats {
		if !s.Range().Contains(offset) && offset != s.Range().End {
			continue
		}
		if found := exprInStat(s, offset); found != nil {
			return found
		}
	}
	return nil
}

func exprInStat(s parser.Stat, offset int) parser.Expr {
	switch st := s.(type) {
	case *parser.LocalStat:
		return exprInExprs(st.Exprs, offset)
	case *parser.AssignStat:
		if found := exprInExprs(st.LHS, offset); found != nil {
			return found
		}
		return exprInExprs(st.RHS, offset)
	case *parser.FuncStat:
		if found := exprInExpr(st.Target, offset); found != nil {
			return found
		}
		return exprInExpr(st.Fn, offset)
	case *parser.LocalFuncStat:
		return exprInExpr(st.Fn, offset)
	case *parser.NumericForStat:
		for _, e := range []parser.Expr{st.Start, st.Stop, st.Step} {
			if found := exprInExpr(e, offset); found != nil {
				return found
			}
		}
		return exprInStats(st.Body, offset)
	case *parser.GenericForStat:
		if found := exprInExprs(st.Exprs, offset); found != nil {
			return found
		}
		return exprInStats(st.Body, offset)
	case *parser.IfStat:
		for _, c := range st.Clauses {
			if found := exprInExpr(c.Cond, offset); found != nil {
				return found
			}
			if found := exprInStats(c.Body, offset); found != nil {
				return found
			}
		}
		return exprInStats(st.Else, offset)
	case *parser.WhileStat:
		if found := exprInExpr(st.Cond, offset); found != nil {
			return found
		}
		return exprInStats(st.Body, offset)
	case *parser.RepeatStat:
		if found := exprInStats(st.Body, offset); found != nil {
			return found
		}
		return exprInExpr(st.Cond, offset)
	case *parser.DoStat:
		return exprInStats(st.Body, offset)
	case *parser.CallStat:
		return exprInExpr(st.Call, offset)
	case *parser.ReturnStat:
		return exprInExprs(st.Exprs, offset)
	default:
		return nil
	}
}

func exprInExprs(exprs []parser.Expr, offset int) parser.Expr {
	for _, e := range exprs {
		if found := exprInExpr(e, offset); found != nil {
			return found
		}
	}
	return nil
}

// exprInExpr returns the innermost expression containing offset
// within e, or e itself if none of its children match but e's own
// range does.
func exprInExpr(e parser.Expr, offset int) parser.Expr {
	if e == nil {
		return nil
	}
	if !e.Range().Contains(offset) && offset != e.Range().End {
		return nil
	}
	switch ex := e.(type) {
	case *parser.IndexExpr:
		if found := exprInExpr(ex.Prefix, offset); found != nil {
			return found
		}
		if found := exprInExpr(ex.KeyExpr, offset); found != nil {
			return found
		}
	case *parser.CallExpr:
		if found := exprInExpr(ex.Callee, offset); found != nil {
			return found
		}
		if found := exprInExprs(ex.Args, offset); found != nil {
			return found
		}
	case *parser.ClosureExpr:
		if found := exprInStats(ex.Body, offset); found != nil {
			return found
		}
	case *parser.TableExpr:
		for _, f := range ex.Fields {
			if found := exprInExpr(f.Key, offset); found != nil {
				return found
			}
			if found := exprInExpr(f.Value, offset); found != nil {
				return found
			}
		}
	case *parser.BinExpr:
		if found := exprInExpr(ex.Left, offset); found != nil {
			return found
		}
		if found := exprInExpr(ex.Right, offset); found != nil {
			return found
		}
	case *parser.UnExpr:
		if found := exprInExpr(ex.Operand, offset); found != nil {
			return found
		}
	}
	return e
}

// exprId builds the ExprId (cache/index key) for e within file.
func exprID(file types.FileID, e parser.Expr) types.ExprId {
	return types.NodeHandle{File: file, Syn: parser.SynID(e)}
}

// classTagAtOffset finds the `---@class` doc tag (if any) whose line
// contains offset, returning the class name it declares and the tag's
// own range — the `Definitions` entry the decl pass recorded for it
// (internal/analyzer/doc/pass.go's handleClassTag uses the whole tag
// line as a partial-declaration's DefLocation). Used by goto-definition
// invoked on the class-name token itself (SPEC_FULL.md §5 supplemented
// feature 5), which exprAtOffset can never find since doc tags aren't
// part of the statement/expression tree.
func classTagAtOffset(tree *parser.Tree, offset int) (name string, rng types.ByteRange, ok bool) {
	if tree == nil || tree.Root == nil {
		return "", types.ByteRange{}, false
	}
	for _, tag := range collectDocTags(tree.Root) {
		if tag.Name != "class" || !tag.Rng.Contains(offset) {
			continue
		}
		if n := classNameOf(tag.Text); n != "" {
			return n, tag.Rng, true
		}
	}
	return "", types.ByteRange{}, false
}

func collectDocTags(chunk *parser.Chunk) []parser.DocTag {
	var out []parser.DocTag
	var walk func(stats []parser.Stat)
	walk = func(stats []parser.Stat) {
		for _, s := range stats {
			out = append(out, s.Doc()...)
			switch st := s.(type) {
			case *parser.IfStat:
				for _, c := range st.Clauses {
					walk(c.Body)
				}
				walk(st.Else)
			case *parser.WhileStat:
				walk(st.Body)
			case *parser.RepeatStat:
				walk(st.Body)
			case *parser.DoStat:
				walk(st.Body)
			case *parser.NumericForStat:
				walk(st.Body)
			case *parser.GenericForStat:
				walk(st.Body)
			}
		}
	}
	walk(chunk.Stats)
	out = append(out, chunk.TrailingDocs...)
	return out
}

// classNameOf extracts the leading identifier of a `---@class` tag's
// text (e.g. "Animal : Base" or "Box<T>"), matching the same header
// shape internal/analyzer/doc's parseClassHeader tokenizes.
func classNameOf(text string) string {
	i := 0
	for i < len(text) {
		c := text[i]
		if c == '<' || c == ':' || c == ' ' || c == '\t' {
			break
		}
		i++
	}
	return text[:i]
}
