package main

import (
	"fmt"
	"sort"

	"github.com/luasem/luasem/internal/workspace"
)

// parserFactories is the registration point for a concrete surface
// grammar. §1 places "the surface syntactic parser" out of scope as an
// external collaborator — internal/parser only defines the Tree
// contract a front-end implements, never a tokenizer or grammar of its
// own. luasem-ls follows the same seam database/sql drivers use: a
// grammar package registers itself from its own init() via a blank
// import, e.g.
//
//	import _ "example.com/luasem-treesitter"
//
// with that package calling RegisterParser("treesitter", ...). No
// entry is registered by default, so `serve`/`index` fail fast with a
// clear message naming the missing collaborator rather than silently
// analyzing nothing.
var parserFactories = map[string]func() (workspace.Parser, error){}

// RegisterParser lets an external grammar package plug itself in under
// name, for selection with --parser.
func RegisterParser(name string, factory func() (workspace.Parser, error)) {
	parserFactories[name] = factory
}

func resolveParser(name string) (workspace.Parser, error) {
	factory, ok := parserFactories[name]
	if !ok {
		return nil, fmt.Errorf("no surface parser registered under %q (known: %s) — "+
			"link one in with a blank import and RegisterParser, per the parser "+
			"interface internal/parser documents as consumed, not implemented, here",
			name, knownParserNames())
	}
	return factory()
}

func knownParserNames() string {
	names := make([]string, 0, len(parserFactories))
	for n := range parserFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return "none"
	}
	return fmt.Sprint(names)
}
