package doc

import (
	"strconv"
	"strings"

	"github.com/luasem/luasem/internal/types"
)

// typeParser is a small recursive-descent parser for the type
// expressions that appear inside documentation tags (`---@type`,
// `---@param`, `---@field`, ...). This grammar belongs to the
// analyzer itself, not the external surface-syntax parser §6 treats
// as a black box: EmmyLua-style doc comments embed their own type
// language, which every implementation of this kind of tool parses
// locally.
type typeParser struct {
	toks     []string
	pos      int
	generics map[string]int
}

// tokenize splits a type expression into the punctuation and word
// tokens the grammar below needs, treating `<`, `>`, `,`, `|`, `(`,
// `)`, `[`, `]`, `:`, `?`, `{` and `}` as their own tokens.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch r {
		case '<', '>', ',', '|', '(', ')', '[', ']', ':', '?', '{', '}':
			flush()
			toks = append(toks, string(r))
		case ' ', '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// ParseTypeExpr parses s into a *types.Type. Unparseable or empty
// input degrades to Unknown rather than erroring — a malformed doc
// tag is a config-adjacent error (§7: "best-effort, never fatal"),
// not a reason to abort the doc pass.
func ParseTypeExpr(s string) *types.Type {
	return ParseTypeExprWithGenerics(s, nil)
}

// ParseTypeExprWithGenerics parses s the same way ParseTypeExpr does,
// except bare identifiers that match a name in generics resolve to
// TplRef(idx, name) instead of Ref(name) — used inside a function's
// `---@generic` scope so `---@param x T` binds T to the function's own
// template parameter rather than to a class named "T".
func ParseTypeExprWithGenerics(s string, generics map[string]int) *types.Type {
	toks := tokenize(s)
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

func (p *typeParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) parseUnion() *types.Type {
	first := p.parsePostfix()
	if first == nil {
		return nil
	}
	elems := []*types.Type{first}
	for p.peek() == "|" {
		p.next()
		e := p.parsePostfix()
		if e == nil {
			break
		}
		elems = append(elems, e)
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return types.UnionOf(elems...)
}

// parsePostfix parses an atom followed by zero or more `[]`/`[N]`
// array suffixes and a trailing `?` (shorthand for `| nil`).
func (p *typeParser) parsePostfix() *types.Type {
	t := p.parseAtom()
	if t == nil {
		return nil
	}
	for {
		if p.peek() == "[" {
			p.next()
			if p.peek() == "]" {
				p.next()
				t = types.Array(t, types.NoLen())
				continue
			}
			if n, err := strconv.Atoi(p.peek()); err == nil {
				p.next()
				if p.peek() == "]" {
					p.next()
				}
				t = types.Array(t, types.MaxLen(n))
				continue
			}
			// Unrecognized bracket content: stop trying to extend.
			break
		}
		if p.peek() == "?" {
			p.next()
			t = types.UnionOf(t, types.Nil())
			continue
		}
		break
	}
	return t
}

func (p *typeParser) parseAtom() *types.Type {
	tok := p.next()
	switch {
	case tok == "":
		return nil
	case tok == "(":
		inner := p.parseUnion()
		if p.peek() == ")" {
			p.next()
		}
		return inner
	case tok == "{":
		return p.parseObjectShape()
	case strings.HasPrefix(tok, "\"") || strings.HasPrefix(tok, "'"):
		return types.DocStringConst(strings.Trim(tok, "\"'"))
	}

	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return types.DocIntegerConst(n)
	}

	base := namedPrimitive(tok)
	if base == nil {
		if idx, ok := p.generics[tok]; ok {
			base = types.TplRef(idx, tok)
		} else {
			base = types.Ref(types.TypeDeclId(tok))
		}
	}

	if p.peek() == "<" {
		p.next()
		var args []*types.Type
		for p.peek() != ">" && p.peek() != "" {
			a := p.parseUnion()
			if a == nil {
				break
			}
			args = append(args, a)
			if p.peek() == "," {
				p.next()
			}
		}
		if p.peek() == ">" {
			p.next()
		}
		if tok == "table" && len(args) == 2 {
			return types.TableGeneric(args[0], args[1])
		}
		return types.Generic(base, args)
	}
	return base
}

// parseObjectShape parses an inline table-shape literal ("{" already
// consumed by parseAtom): a comma-separated "name: Type" field list,
// optionally followed by a trailing "[KeyType]: ValueType" index-access
// entry, closed by "}". Used by an alias body such as
// `---@alias Box<T> { v: T }` (§3 Type declaration).
func (p *typeParser) parseObjectShape() *types.Type {
	fields := make(map[string]*types.Type)
	var order []string
	var index []types.IndexAccessEntry

	for p.peek() != "}" && p.peek() != "" {
		if p.peek() == "[" {
			p.next()
			keyType := p.parseUnion()
			if p.peek() == "]" {
				p.next()
			}
			if p.peek() == ":" {
				p.next()
			}
			valType := p.parseUnion()
			index = append(index, types.IndexAccessEntry{KeyType: keyType, ValueType: valType})
		} else {
			name := p.next()
			if p.peek() == ":" {
				p.next()
			}
			valType := p.parseUnion()
			if valType == nil {
				valType = types.Unknown()
			}
			if _, seen := fields[name]; !seen {
				order = append(order, name)
			}
			fields[name] = valType
		}
		if p.peek() == "," {
			p.next()
		}
	}
	if p.peek() == "}" {
		p.next()
	}
	return types.Object(fields, order, index)
}

func namedPrimitive(name string) *types.Type {
	switch name {
	case "any":
		return types.Any()
	case "unknown":
		return types.Unknown()
	case "nil":
		return types.Nil()
	case "boolean":
		return types.Boolean()
	case "integer":
		return types.Integer()
	case "number":
		return types.Number()
	case "string":
		return types.String()
	case "table":
		return types.Table()
	case "io":
		return types.Io()
	case "thread":
		return types.Thread()
	default:
		return nil
	}
}
