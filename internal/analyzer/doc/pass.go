// Package doc implements the documentation-tag pass (component E,
// §4.5): walks each statement's attached `---@tag` comments and, for
// each tag, either installs or extends a named type declaration,
// refines a function signature, adds a member, binds a preset type to
// a decl, or records a property-index entry.
//
// Dispatch mirrors the decl pass's shape (§9): tag handling is a single
// map[string]tagHandler keyed by tag name, not a type switch. The type
// expressions tags carry are parsed by typeexpr.go.
package doc

import (
	"strings"

	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
)

// Context carries the doc pass's shared resources for one file's walk.
type Context struct {
	Index *index.Index
	File  types.FileID
}

// Run walks tree's statements, recursing into nested blocks, and
// applies every attached doc tag.
func Run(ctx *Context, tree *parser.Tree) {
	walkStats(ctx, tree.Root.Stats)
	applyDocBlock(ctx, tree.Root.TrailingDocs, nil, nil)
}

func walkStats(ctx *Context, stats []parser.Stat) {
	for _, s := range stats {
		walkStat(ctx, s)
	}
}

func walkStat(ctx *Context, s parser.Stat) {
	if s == nil {
		return
	}
	fn := firstClosureIn(s)
	applyDocBlock(ctx, s.Doc(), s, fn)
	if fn != nil {
		applyDocBlock(ctx, fn.Docs, s, fn)
		walkStats(ctx, fn.Body)
	}
	switch st := s.(type) {
	case *parser.IfStat:
		for _, c := range st.Clauses {
			walkStats(ctx, c.Body)
		}
		walkStats(ctx, st.Else)
	case *parser.WhileStat:
		walkStats(ctx, st.Body)
	case *parser.RepeatStat:
		walkStats(ctx, st.Body)
	case *parser.DoStat:
		walkStats(ctx, st.Body)
	case *parser.NumericForStat:
		walkStats(ctx, st.Body)
	case *parser.GenericForStat:
		walkStats(ctx, st.Body)
	}
}

// firstClosureIn returns the closure a statement directly introduces —
// the target a function-shape tag (`generic`/`param`/`return`/
// `overload`) attached to the same statement refines.
func firstClosureIn(s parser.Stat) *parser.ClosureExpr {
	switch st := s.(type) {
	case *parser.FuncStat:
		return st.Fn
	case *parser.LocalFuncStat:
		return st.Fn
	case *parser.LocalStat:
		for _, e := range st.Exprs {
			if c, ok := e.(*parser.ClosureExpr); ok {
				return c
			}
		}
	case *parser.AssignStat:
		for _, e := range st.RHS {
			if c, ok := e.(*parser.ClosureExpr); ok {
				return c
			}
		}
	}
	return nil
}

// tagContext is the mutable state one doc block's tags are applied
// against: the type declared by a class/enum/alias tag earlier in the
// same block, the signature a function-shape tag refines, and the
// generic-name scope installed by a `generic` tag (§4.5 second
// paragraph: "a lexical generic scope covering the function").
type tagContext struct {
	ctx      *Context
	stat     parser.Stat
	fn       *parser.ClosureExpr
	sig      *index.Signature
	curType  *index.TypeDecl
	generics map[string]int
}

type tagHandler func(tc *tagContext, tag parser.DocTag)

var tagHandlers = map[string]tagHandler{
	"class":      handleClassTag,
	"enum":       handleEnumTag,
	"alias":      handleAliasTag,
	"param":      handleParamTag,
	"return":     handleReturnTag,
	"overload":   handleOverloadTag,
	"field":      handleFieldTag,
	"type":       handleTypeTag,
	"cast":       handleCastTag,
	"see":        handleSeeTag,
	"deprecated": handleDeprecatedTag,
	"operator":   handleOperatorTag,
	"source":     handleSourceTag,
}

// applyDocBlock processes one statement's (or the file's trailing)
// contiguous doc comment block. `generic` tags are resolved first so
// later param/return/field tags in the same block can reference the
// template names they introduce.
func applyDocBlock(ctx *Context, docs []parser.DocTag, s parser.Stat, fn *parser.ClosureExpr) {
	if len(docs) == 0 {
		return
	}
	tc := &tagContext{ctx: ctx, stat: s, fn: fn, generics: map[string]int{}}
	if fn != nil {
		sigID := types.SignatureId{File: ctx.File, Range: fn.SignatureRange()}
		if sig, ok := ctx.Index.GetSignature(sigID); ok {
			tc.sig = sig
		}
	}
	for _, tag := range docs {
		if tag.Name == "generic" {
			handleGenericTag(tc, tag)
		}
	}
	for _, tag := range docs {
		if tag.Name == "generic" {
			continue
		}
		if h, ok := tagHandlers[tag.Name]; ok {
			h(tc, tag)
		}
	}
}

// primaryDeclFor returns the decl a class/enum/alias/type tag's host
// statement introduces: the first name of a local statement, a
// local-function's own name, or the resolved target of an assignment.
func primaryDeclFor(ctx *Context, s parser.Stat) (*index.Decl, bool) {
	switch st := s.(type) {
	case *parser.LocalStat:
		if len(st.NameRngs) == 0 {
			return nil, false
		}
		return ctx.Index.GetDecl(types.DeclId{File: ctx.File, Pos: st.NameRngs[0].Start})
	case *parser.LocalFuncStat:
		return ctx.Index.GetDecl(types.DeclId{File: ctx.File, Pos: st.NameRng.Start})
	case *parser.AssignStat:
		if len(st.LHS) == 0 {
			return nil, false
		}
		if ne, ok := st.LHS[0].(*parser.NameExpr); ok {
			return ctx.Index.DeclAtPosition(ctx.File, ne.Name, ne.Range().Start)
		}
	}
	return nil, false
}

func bindPrimaryDecl(tc *tagContext, t *types.Type) {
	if tc.stat == nil {
		return
	}
	d, ok := primaryDeclFor(tc.ctx, tc.stat)
	if !ok {
		return
	}
	d.PresetType = t
}

// --- class / enum / alias ------------------------------------------------

func handleClassTag(tc *tagContext, tag parser.DocTag) {
	name, generics, supers := parseClassHeader(tag.Text)
	if name == "" {
		return
	}
	td := tc.ctx.Index.EnsureTypeDecl(types.TypeDeclId(name))
	td.Kind = index.KindClass
	if len(generics) > 0 {
		td.Generics = toGenericParams(generics)
	}
	for _, sup := range supers {
		td.AddSuper(types.TypeDeclId(sup))
	}
	td.AddDefinition(tc.ctx.File, tag.Rng)
	tc.curType = td
	bindPrimaryDecl(tc, types.Def(types.TypeDeclId(name)))
}

func handleEnumTag(tc *tagContext, tag parser.DocTag) {
	name, base := parseEnumHeader(tag.Text)
	if name == "" {
		return
	}
	td := tc.ctx.Index.EnsureTypeDecl(types.TypeDeclId(name))
	td.Kind = index.KindEnum
	if base != "" {
		td.EnumBase = ParseTypeExpr(base)
	}
	td.AddDefinition(tc.ctx.File, tag.Rng)
	tc.curType = td
	bindPrimaryDecl(tc, types.Def(types.TypeDeclId(name)))
}

func handleAliasTag(tc *tagContext, tag parser.DocTag) {
	toks := tokenize(tag.Text)
	name, generics, rest := splitHeaderRest(toks)
	if name == "" {
		return
	}
	td := tc.ctx.Index.EnsureTypeDecl(types.TypeDeclId(name))
	td.Kind = index.KindAlias
	if len(generics) > 0 {
		td.Generics = toGenericParams(generics)
	}
	td.AliasOrigin = parseTokensWithGenerics(rest, genericScope(generics))
	td.AddDefinition(tc.ctx.File, tag.Rng)
	tc.curType = td
}

func parseClassHeader(text string) (name string, generics []string, supers []string) {
	left := text
	var superPart string
	if idx := strings.Index(text, ":"); idx >= 0 {
		left = text[:idx]
		superPart = text[idx+1:]
	}
	toks := tokenize(left)
	name, generics, _ = splitHeaderRest(toks)
	for _, s := range strings.Split(superPart, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			supers = append(supers, s)
		}
	}
	return
}

func parseEnumHeader(text string) (name, base string) {
	parts := strings.SplitN(text, ":", 2)
	name = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		base = strings.TrimSpace(parts[1])
	}
	return
}

// splitHeaderRest consumes "Name" then an optional "<G,H>" generic list
// from the front of toks and returns whatever tokens remain.
func splitHeaderRest(toks []string) (name string, generics []string, rest []string) {
	pos := 0
	if pos < len(toks) {
		name = toks[pos]
		pos++
	}
	if pos < len(toks) && toks[pos] == "<" {
		pos++
		for pos < len(toks) && toks[pos] != ">" {
			if toks[pos] != "," {
				generics = append(generics, toks[pos])
			}
			pos++
		}
		if pos < len(toks) && toks[pos] == ">" {
			pos++
		}
	}
	rest = toks[pos:]
	return
}

func toGenericParams(names []string) []index.GenericParam {
	out := make([]index.GenericParam, 0, len(names))
	for _, n := range names {
		out = append(out, index.GenericParam{Name: n})
	}
	return out
}

func genericScope(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}

func parseTokensWithGenerics(toks []string, generics map[string]int) *types.Type {
	if len(toks) == 0 {
		return types.Unknown()
	}
	p := &typeParser{toks: toks, generics: generics}
	t := p.parseUnion()
	if t == nil {
		return types.Unknown()
	}
	return t
}

// --- function-shape tags ---------------------------------------------------

func handleGenericTag(tc *tagContext, tag parser.DocTag) {
	params := parseGenericList(tag.Text)
	for i, p := range params {
		tc.generics[p.Name] = i
	}
	if tc.sig != nil {
		tc.sig.Generics = params
	}
}

func parseGenericList(text string) []index.GenericParam {
	var out []index.GenericParam
	for _, entry := range strings.Split(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		variadic := false
		if strings.HasSuffix(entry, "...") {
			variadic = true
			entry = strings.TrimSpace(strings.TrimSuffix(entry, "..."))
		}
		name := entry
		var bound *types.Type
		if idx := strings.Index(entry, ":"); idx >= 0 {
			name = strings.TrimSpace(entry[:idx])
			bound = ParseTypeExpr(strings.TrimSpace(entry[idx+1:]))
		}
		out = append(out, index.GenericParam{Name: name, Bound: bound, Variadic: variadic})
	}
	return out
}

func handleParamTag(tc *tagContext, tag parser.DocTag) {
	if tc.sig == nil {
		return
	}
	name, typeText, optional := splitNameAndType(tag.Text)
	if name == "" {
		return
	}
	t := ParseTypeExprWithGenerics(typeText, tc.generics)
	if optional {
		t = types.UnionOf(t, types.Nil())
	}
	for i := range tc.sig.Params {
		if tc.sig.Params[i].Name == name {
			tc.sig.Params[i].Type = t
			return
		}
	}
}

func splitNameAndType(text string) (name, typeText string, optional bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", "", false
	}
	name = fields[0]
	if strings.HasSuffix(name, "?") {
		optional = true
		name = strings.TrimSuffix(name, "?")
	}
	typeText = strings.Join(fields[1:], " ")
	return
}

func handleReturnTag(tc *tagContext, tag parser.DocTag) {
	if tc.sig == nil {
		return
	}
	if strings.Contains(tag.Text, "...") {
		tc.sig.ReturnsVary = true
	}
	t := ParseTypeExprWithGenerics(tag.Text, tc.generics)
	tc.sig.Returns = append(tc.sig.Returns, t)
}

func handleOverloadTag(tc *tagContext, tag parser.DocTag) {
	if tc.sig == nil {
		return
	}
	ov := parseFunSignature(tag.Text, tc.generics)
	if ov != nil {
		tc.sig.Overloads = append(tc.sig.Overloads, ov)
	}
}

// parseFunSignature parses the `fun(a: string, b: integer): boolean`
// grammar `---@overload` (and, via handleOperatorTag, `---@operator`)
// embed. Parameter groups are split on top-level commas without
// tracking bracket depth, so a generic argument list containing a
// comma inside an overload's parameter type is mis-split — an accepted
// simplification for this rarely-nested corner of the grammar.
func parseFunSignature(text string, generics map[string]int) *index.Signature {
	toks := tokenize(text)
	pos := 0
	if pos >= len(toks) || toks[pos] != "fun" {
		return nil
	}
	pos++
	sig := &index.Signature{}
	if pos < len(toks) && toks[pos] == "(" {
		pos++
		for pos < len(toks) && toks[pos] != ")" {
			var group []string
			for pos < len(toks) && toks[pos] != "," && toks[pos] != ")" {
				group = append(group, toks[pos])
				pos++
			}
			sig.Params = append(sig.Params, paramFromGroup(group, generics))
			if pos < len(toks) && toks[pos] == "," {
				pos++
			}
		}
		if pos < len(toks) && toks[pos] == ")" {
			pos++
		}
	}
	if pos < len(toks) && toks[pos] == ":" {
		pos++
		sig.Returns = []*types.Type{parseTokensWithGenerics(toks[pos:], generics)}
	}
	return sig
}

// paramFromGroup interprets one comma-separated parameter group:
// "name: type" if it carries a colon, otherwise the whole group is a
// bare (unnamed) type — the form `---@operator add(Vec): Vec` uses.
func paramFromGroup(group []string, generics map[string]int) index.Param {
	for i, t := range group {
		if t == ":" {
			name := ""
			if i > 0 {
				name = group[0]
			}
			return index.Param{Name: name, Type: parseTokensWithGenerics(group[i+1:], generics)}
		}
	}
	return index.Param{Type: parseTokensWithGenerics(group, generics)}
}

// --- field / type / cast ---------------------------------------------------

func handleFieldTag(tc *tagContext, tag parser.DocTag) {
	if tc.curType == nil {
		return
	}
	name, typeText, optional := splitNameAndType(tag.Text)
	if name == "" {
		return
	}
	t := ParseTypeExprWithGenerics(typeText, tc.generics)
	if optional {
		t = types.UnionOf(t, types.Nil())
	}
	tc.ctx.Index.AddMember(&index.Member{
		ID:        types.MemberId{File: tc.ctx.File, Syn: types.SyntaxID{Range: tag.Rng}},
		Owner:     index.TypeOwner(tc.curType.ID),
		Key:       types.NameKey(name),
		Feature:   index.FeatureMetaDefine,
		ValueType: t,
	})
}

func handleTypeTag(tc *tagContext, tag parser.DocTag) {
	t := ParseTypeExprWithGenerics(tag.Text, tc.generics)
	bindPrimaryDecl(tc, t)
}

// handleCastTag approximates `---@cast name Type`: the spec models
// this as a statement-level narrowing directive that should only
// affect reads after the cast within the enclosing block, which is the
// flow pass's (component F) territory once it runs. Until then this
// pass binds it at decl granularity — every read of `name` sees the
// cast type — which is the correct behavior for the common case of a
// `local`-scoped variable cast once near its declaration.
func handleCastTag(tc *tagContext, tag parser.DocTag) {
	fields := strings.Fields(tag.Text)
	if len(fields) < 2 {
		return
	}
	name := fields[0]
	typeText := strings.Join(fields[1:], " ")
	d, ok := tc.ctx.Index.DeclAtPosition(tc.ctx.File, name, tag.Rng.Start)
	if !ok {
		return
	}
	d.PresetType = ParseTypeExprWithGenerics(typeText, tc.generics)
}

// --- operator ---------------------------------------------------------------

func handleOperatorTag(tc *tagContext, tag parser.DocTag) {
	if tc.curType == nil {
		return
	}
	kind, rest, ok := splitOperatorName(tag.Text)
	if !ok {
		return
	}
	sigID := types.SignatureId{File: tc.ctx.File, Range: tag.Rng}
	sig := parseFunSignature("fun"+rest, tc.generics)
	if sig == nil {
		return
	}
	sig.ID = sigID
	tc.ctx.Index.AddSignature(sig)
	tc.ctx.Index.AddOperator(index.TypeOwner(tc.curType.ID), index.OperatorId{Kind: kind, Sig: sigID})
}

func splitOperatorName(text string) (index.OperatorKind, string, bool) {
	text = strings.TrimSpace(text)
	idx := strings.IndexByte(text, '(')
	if idx < 0 {
		return 0, "", false
	}
	name := strings.TrimSpace(text[:idx])
	rest := text[idx:]
	kind, ok := operatorKindFromText(name)
	return kind, rest, ok
}

func operatorKindFromText(name string) (index.OperatorKind, bool) {
	switch name {
	case "add":
		return index.OpAdd, true
	case "sub":
		return index.OpSub, true
	case "mul":
		return index.OpMul, true
	case "div":
		return index.OpDiv, true
	case "mod":
		return index.OpMod, true
	case "pow":
		return index.OpPow, true
	case "unm":
		return index.OpUnm, true
	case "concat":
		return index.OpConcat, true
	case "len":
		return index.OpLen, true
	case "eq":
		return index.OpEq, true
	case "lt":
		return index.OpLt, true
	case "le":
		return index.OpLe, true
	case "index":
		return index.OpIndex, true
	case "newindex":
		return index.OpNewIndex, true
	case "call":
		return index.OpCall, true
	default:
		return 0, false
	}
}

// --- property index (see / deprecated / source) -----------------------------

func currentSemanticID(tc *tagContext) (types.SemanticDeclId, bool) {
	if tc.curType != nil {
		return types.SemanticOfTypeDecl(tc.curType.ID), true
	}
	if tc.sig != nil {
		return types.SemanticOfSignature(tc.sig.ID), true
	}
	if tc.stat != nil {
		if d, ok := primaryDeclFor(tc.ctx, tc.stat); ok {
			return types.SemanticOfDecl(d.ID), true
		}
	}
	return types.SemanticDeclId{}, false
}

func withProperty(tc *tagContext, mutate func(p *index.PropertyEntry)) {
	id, ok := currentSemanticID(tc)
	if !ok {
		return
	}
	p, ok := tc.ctx.Index.Property(id)
	if !ok {
		p = &index.PropertyEntry{}
	}
	mutate(p)
	tc.ctx.Index.SetProperty(id, p)
}

func handleSeeTag(tc *tagContext, tag parser.DocTag) {
	withProperty(tc, func(p *index.PropertyEntry) {
		p.SeeAlso = append(p.SeeAlso, strings.TrimSpace(tag.Text))
	})
}

func handleDeprecatedTag(tc *tagContext, tag parser.DocTag) {
	withProperty(tc, func(p *index.PropertyEntry) {
		p.Deprecated = true
		p.DeprecatedReason = strings.TrimSpace(tag.Text)
	})
}

func handleSourceTag(tc *tagContext, tag parser.DocTag) {
	withProperty(tc, func(p *index.PropertyEntry) {
		p.Source = strings.TrimSpace(tag.Text)
	})
}
