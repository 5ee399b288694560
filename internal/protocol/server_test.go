package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/pipeline"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace"
)

// stubParser returns an empty but valid tree for any text, enough to
// exercise Server's lifecycle/document-sync plumbing without pulling
// in a concrete grammar implementation (an external collaborator this
// package never depends on directly).
type stubParser struct{}

func (stubParser) Parse(file types.FileID, text string) (*parser.Tree, error) {
	return &parser.Tree{File: file, Root: parser.NewChunk(nil, parser.Rng(0, len(text))), Text: text}, nil
}

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	var pl *pipeline.Pipeline
	mgr, warnings := workspace.New(root, stubParser{}, func(_ context.Context, _ types.FileID, tree *parser.Tree) {
		pl.Analyze(tree)
	})
	require.Empty(t, warnings)
	pl = pipeline.New(mgr.Index(), mgr.Config())

	var out bytes.Buffer
	return NewServer(&bytes.Buffer{}, &out, mgr, pl), &out
}

func TestHandleInitializeReportsCapabilities(t *testing.T) {
	s, _ := newTestServer(t)
	resp := s.handleInitialize(context.Background(), RequestMessage{ID: json.RawMessage(`1`)})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(initializeResult)
	require.True(t, ok)
	require.True(t, result.Capabilities.HoverProvider)
	require.True(t, result.Capabilities.DefinitionProvider)
	require.NotNil(t, result.Capabilities.CompletionProvider)
	require.Equal(t, []string{".", ":"}, result.Capabilities.CompletionProvider.TriggerCharacters)
}

func TestHandleShutdownSetsShuttingDown(t *testing.T) {
	s, _ := newTestServer(t)
	resp := s.handleShutdown(context.Background(), RequestMessage{ID: json.RawMessage(`1`)})
	require.Nil(t, resp.Error)
	require.True(t, s.shuttingDown)
}

func TestDidOpenThenHoverWithNoCachedTypeReturnsNull(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	err := s.handleDidOpen(ctx, NotificationMessage{Params: mustJSON(t, didOpenParams{
		TextDocument: textDocumentItem{URI: "file:///tmp/a.lua", Text: "return 1\n"},
	})})
	require.NoError(t, err)

	resp := s.handleHover(ctx, RequestMessage{ID: json.RawMessage(`1`), Params: mustJSON(t, textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: "file:///tmp/a.lua"},
		Position:     Position{Line: 0, Character: 0},
	})})
	require.Nil(t, resp.Error)
	require.Nil(t, resp.Result)
}

func TestDidCloseClearsOpenDoc(t *testing.T) {
	s, out := newTestServer(t)
	ctx := context.Background()
	uri := "file:///tmp/b.lua"

	require.NoError(t, s.handleDidOpen(ctx, NotificationMessage{Params: mustJSON(t, didOpenParams{
		TextDocument: textDocumentItem{URI: uri, Text: "return 1\n"},
	})}))
	require.NoError(t, s.handleDidClose(ctx, NotificationMessage{Params: mustJSON(t, didCloseParams{
		TextDocument: textDocumentIdentifier{URI: uri},
	})}))

	s.mu.Lock()
	_, open := s.openDocs[uri]
	s.mu.Unlock()
	require.False(t, open)
	require.Contains(t, out.String(), "publishDiagnostics")
}

func TestApplyChangesFullReplace(t *testing.T) {
	got := applyChanges("old text", []contentChangeEvent{{Text: "new text"}})
	require.Equal(t, "new text", got)
}

func TestApplyChangesIncrementalRangePatch(t *testing.T) {
	text := "local a = 1\n"
	change := contentChangeEvent{
		Range: &Range{Start: Position{Line: 0, Character: 6}, End: Position{Line: 0, Character: 7}},
		Text:  "xyz",
	}
	got := applyChanges(text, []contentChangeEvent{change})
	require.Equal(t, "local xyz = 1\n", got)
}

func TestSeverityToLSP(t *testing.T) {
	require.Equal(t, 1, severityToLSP(diag.SeverityError))
	require.Equal(t, 2, severityToLSP(diag.SeverityWarning))
	require.Equal(t, 3, severityToLSP(diag.SeverityInformation))
}

func TestCompletionKindForDistinguishesMethodsFromFields(t *testing.T) {
	method := &index.Member{ValueType: &types.Type{Kind: types.KSignature}}
	require.Equal(t, 2, completionKindFor(method))

	field := &index.Member{ValueType: &types.Type{Kind: types.KString}}
	require.Equal(t, 5, completionKindFor(field))
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
