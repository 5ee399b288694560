package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace"
)

type fakeParser struct{}

func (fakeParser) Parse(file types.FileID, text string) (*parser.Tree, error) {
	return &parser.Tree{File: file, Root: parser.NewChunk(nil, parser.Rng(0, len(text))), Text: text}, nil
}

func TestRegisterParserThenResolve(t *testing.T) {
	t.Cleanup(func() { delete(parserFactories, "test-fake") })

	RegisterParser("test-fake", func() (workspace.Parser, error) { return fakeParser{}, nil })

	p, err := resolveParser("test-fake")
	require.NoError(t, err)
	require.NotNil(t, p)

	tree, err := p.Parse(types.FileID(1), "return 1")
	require.NoError(t, err)
	require.Equal(t, "return 1", tree.Text)
}

func TestResolveParserUnknownNameErrors(t *testing.T) {
	_, err := resolveParser("does-not-exist")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does-not-exist")
}
