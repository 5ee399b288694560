package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/luasem/luasem/internal/cache"
	"github.com/luasem/luasem/internal/diag"
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/member"
	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/pipeline"
	"github.com/luasem/luasem/internal/protocol/inspect"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace"
	"github.com/luasem/luasem/internal/workspace/encoding"
)

// ErrExit signals a clean shutdown after a client's "exit" notification.
var ErrExit = errors.New("protocol: exit")

// ErrExitWithoutShutdown signals "exit" arriving without a preceding
// "shutdown" request — a misbehaving client, not a crash.
var ErrExitWithoutShutdown = errors.New("protocol: exit without shutdown")

// Server is the editor-protocol transport's composition root: it owns
// the stdio framing loop, dispatches through a Router, and answers the
// handful of textDocument/* requests spec.md §6 names by driving
// workspace.Manager (file/overlay lifecycle) and pipeline.Pipeline
// (cache/index reads for hover, definition, completion). Grounded on
// the teacher's (vovakirdan-surge) internal/lsp/server.go shape —
// mutex-guarded doc-state map, debounced re-analysis, per-URI
// diagnostic publishing — simplified where this analyzer's synchronous
// single-pass pipeline makes the original's async snapshot bookkeeping
// unnecessary.
type Server struct {
	in     *bufio.Reader
	out    io.Writer
	sendMu sync.Mutex

	mu          sync.Mutex
	manager     *workspace.Manager
	pipeline    *pipeline.Pipeline
	openDocs    map[string]openDoc // uri -> state
	debounce    map[string]*time.Timer
	logLevel    LogLevel
	initialized bool
	shuttingDown bool
	router      *Router
	inspectHub  *inspect.Hub // nil unless --inspect-addr was passed
}

// SetInspectHub wires an optional internal/protocol/inspect.Hub: every
// re-analysis and diagnostics publish is additionally broadcast there.
// Never required for correct operation — cmd/luasem-ls only calls this
// when --inspect-addr was given.
func (s *Server) SetInspectHub(h *inspect.Hub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspectHub = h
}

type openDoc struct {
	path string
	text string
	file types.FileID
	tree *parser.Tree
}

// NewServer builds a Server over a workspace already configured by
// the caller (cmd/luasem-ls's composition root constructs Manager and
// Pipeline together, wiring Pipeline.Analyze as Manager's AnalyzeFunc,
// before passing both here).
func NewServer(in io.Reader, out io.Writer, mgr *workspace.Manager, p *pipeline.Pipeline) *Server {
	s := &Server{
		in:       bufio.NewReader(in),
		out:      out,
		manager:  mgr,
		pipeline: p,
		openDocs: make(map[string]openDoc),
		debounce: make(map[string]*time.Timer),
		logLevel: LogLevelInfo,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *Router {
	r := NewRouter()
	r.RegisterRequest("initialize", s.handleInitialize)
	r.RegisterRequest("shutdown", s.handleShutdown)
	r.RegisterRequest("textDocument/hover", s.handleHover)
	r.RegisterRequest("textDocument/definition", s.handleDefinition)
	r.RegisterRequest("textDocument/completion", s.handleCompletion)
	r.RegisterNotification("initialized", func(context.Context, NotificationMessage) error { return nil })
	r.RegisterNotification("textDocument/didOpen", s.handleDidOpen)
	r.RegisterNotification("textDocument/didChange", s.handleDidChange)
	r.RegisterNotification("textDocument/didClose", s.handleDidClose)
	r.RegisterNotification("workspace/didChangeConfiguration", s.handleDidChangeConfiguration)
	return r
}

// Run serves requests/notifications from in until "exit" or a read
// error (typically EOF on stdin, the normal way a client disconnects).
func (s *Server) Run(ctx context.Context) error {
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var raw rawMessage
		if err := json.Unmarshal(payload, &raw); err != nil {
			s.LogError("failed to parse message", LogData{"error": err.Error()})
			continue
		}

		switch {
		case raw.Method == "exit":
			s.mu.Lock()
			shutting := s.shuttingDown
			s.mu.Unlock()
			if shutting {
				return ErrExit
			}
			return ErrExitWithoutShutdown

		case raw.isRequest():
			req := RequestMessage{JSONRPC: raw.JSONRPC, ID: raw.ID, Method: raw.Method, Params: raw.Params}
			resp := s.router.DispatchRequest(ctx, req)
			s.send(resp)

		case raw.isNotification():
			notif := NotificationMessage{JSONRPC: raw.JSONRPC, Method: raw.Method, Params: raw.Params}
			if err := s.router.DispatchNotification(ctx, notif); err != nil {
				s.LogDebug("notification handler error", LogData{"method": raw.Method, "error": err.Error()})
			}
		}
	}
}

func (s *Server) send(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	_ = writeMessage(s.out, payload)
}

// --- lifecycle -------------------------------------------------------------

type initializeParams struct {
	RootURI          string `json:"rootUri,omitempty"`
	RootPath         string `json:"rootPath,omitempty"`
	InitializationOptions json.RawMessage `json:"initializationOptions,omitempty"`
}

type serverCapabilities struct {
	TextDocumentSync   int                 `json:"textDocumentSync"`
	HoverProvider      bool                `json:"hoverProvider"`
	DefinitionProvider bool                `json:"definitionProvider"`
	CompletionProvider *completionOptions  `json:"completionProvider,omitempty"`
}

type completionOptions struct {
	TriggerCharacters []string `json:"triggerCharacters"`
}

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
}

func (s *Server) handleInitialize(_ context.Context, msg RequestMessage) ResponseMessage {
	var params initializeParams
	if len(msg.Params) > 0 {
		_ = json.Unmarshal(msg.Params, &params)
	}
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return SuccessResponse(msg.ID, initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync:   2, // Incremental
			HoverProvider:      true,
			DefinitionProvider: true,
			CompletionProvider: &completionOptions{TriggerCharacters: []string{".", ":"}},
		},
	})
}

func (s *Server) handleShutdown(_ context.Context, msg RequestMessage) ResponseMessage {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()
	return SuccessResponse(msg.ID, nil)
}

func (s *Server) handleDidChangeConfiguration(_ context.Context, _ NotificationMessage) error {
	return nil
}

// --- document sync -----------------------------------------------------------

type textDocumentItem struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type versionedTextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type contentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

type didChangeParams struct {
	TextDocument   versionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChangeEvent            `json:"contentChanges"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

func (s *Server) handleDidOpen(ctx context.Context, msg NotificationMessage) error {
	var params didOpenParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	path := uriToPath(params.TextDocument.URI)
	if path == "" {
		return nil
	}
	s.mu.Lock()
	s.openDocs[params.TextDocument.URI] = openDoc{path: path, text: params.TextDocument.Text}
	s.mu.Unlock()
	s.analyzeAndPublish(ctx, params.TextDocument.URI)
	return nil
}

func (s *Server) handleDidChange(ctx context.Context, msg NotificationMessage) error {
	var params didChangeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := params.TextDocument.URI
	s.mu.Lock()
	doc := s.openDocs[uri]
	doc.text = applyChanges(doc.text, params.ContentChanges)
	s.openDocs[uri] = doc
	delay := s.manager.Config().Workspace.ReindexDurationMillis
	if prev, ok := s.debounce[uri]; ok {
		prev.Stop()
	}
	s.debounce[uri] = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		s.analyzeAndPublish(ctx, uri)
	})
	s.mu.Unlock()
	return nil
}

func (s *Server) handleDidClose(_ context.Context, msg NotificationMessage) error {
	var params didCloseParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := params.TextDocument.URI
	s.mu.Lock()
	delete(s.openDocs, uri)
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.mu.Unlock()
	s.sendPublishDiagnostics(uri, nil)
	return nil
}

// applyChanges folds a didChange notification's content-change events
// onto text: a nil Range means full-document replacement, otherwise
// the change is a range-patch addressed in LSP line/UTF-16-character
// coordinates.
func applyChanges(text string, changes []contentChangeEvent) string {
	for _, c := range changes {
		if c.Range == nil {
			text = c.Text
			continue
		}
		start := offsetForPosition(text, c.Range.Start)
		end := offsetForPosition(text, c.Range.End)
		if start > len(text) {
			start = len(text)
		}
		if end > len(text) || end < start {
			end = start
		}
		text = text[:start] + c.Text + text[end:]
	}
	return text
}

// analyzeAndPublish re-parses+analyzes uri's current buffer text
// in-memory (workspace.Manager.Open) and pushes the resulting
// per-file diagnostics back to the client.
func (s *Server) analyzeAndPublish(ctx context.Context, uri string) {
	s.mu.Lock()
	doc, ok := s.openDocs[uri]
	s.mu.Unlock()
	if !ok {
		return
	}
	file, tree, err := s.manager.Open(ctx, doc.path, doc.text)
	if err == nil {
		s.mu.Lock()
		doc.file, doc.tree = file, tree
		s.openDocs[uri] = doc
		s.mu.Unlock()
	}
	if hub := s.hub(); hub != nil {
		hub.Broadcast(inspect.GenerationEvent(s.manager.Index().Generation()))
	}
	s.sendPublishDiagnostics(uri, s.manager.Diagnostics(file))
}

func (s *Server) hub() *inspect.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspectHub
}

type lspDiagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     string `json:"code,omitempty"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

type publishDiagnosticsParams struct {
	URI         string          `json:"uri"`
	Diagnostics []lspDiagnostic `json:"diagnostics"`
}

func severityToLSP(sev diag.Severity) int {
	switch sev {
	case diag.SeverityError:
		return 1
	case diag.SeverityWarning:
		return 2
	case diag.SeverityInformation:
		return 3
	default:
		return 4
	}
}

func (s *Server) sendPublishDiagnostics(uri string, diags []diag.Diagnostic) {
	s.mu.Lock()
	doc := s.openDocs[uri]
	s.mu.Unlock()
	list := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		list = append(list, lspDiagnostic{
			Range:    toRange(doc.text, d.Range.Start, d.Range.End),
			Severity: severityToLSP(d.Severity),
			Code:     d.Code,
			Source:   "luasem",
			Message:  d.Message,
		})
	}
	if hub := s.hub(); hub != nil {
		hub.Broadcast(inspect.DiagnosticsEvent(uri, diags))
	}
	s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{URI: uri, Diagnostics: list})
}

// --- position-addressed queries ---------------------------------------------

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

func (s *Server) docAndOffset(uri string, pos Position) (openDoc, int, bool) {
	s.mu.Lock()
	doc, ok := s.openDocs[uri]
	s.mu.Unlock()
	if !ok || doc.tree == nil {
		return openDoc{}, 0, false
	}
	return doc, offsetForPosition(doc.text, pos), true
}

type markupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type hoverResult struct {
	Contents markupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

func (s *Server) handleHover(_ context.Context, msg RequestMessage) ResponseMessage {
	var params textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return ErrorResponse(msg.ID, InvalidParams, "invalid params")
	}
	doc, offset, ok := s.docAndOffset(params.TextDocument.URI, params.Position)
	if !ok {
		return SuccessResponse(msg.ID, nil)
	}
	expr := exprAtOffset(doc.tree, offset)
	if expr == nil {
		return SuccessResponse(msg.ID, nil)
	}
	t := s.typeOfExpr(doc.file, expr)
	if t == nil {
		return SuccessResponse(msg.ID, nil)
	}
	r := toRange(doc.text, expr.Range().Start, expr.Range().End)
	return SuccessResponse(msg.ID, hoverResult{
		Contents: markupContent{Kind: "markdown", Value: "```\n" + t.String() + "\n```"},
		Range:    &r,
	})
}

// typeOfExpr reads expr's cached inference result directly
// (component C, §4.3) rather than re-running inference, since by the
// time a hover/definition request arrives the file has already gone
// through the full D->E->F->G->H pipeline.
func (s *Server) typeOfExpr(file types.FileID, expr parser.Expr) *types.Type {
	fc := s.pipeline.Cache(file)
	entry, ok := fc.Get(exprID(file, expr))
	if !ok || entry.State != cache.StateReady {
		return nil
	}
	return entry.Type
}

type location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

func (s *Server) handleDefinition(_ context.Context, msg RequestMessage) ResponseMessage {
	var params textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return ErrorResponse(msg.ID, InvalidParams, "invalid params")
	}
	doc, offset, ok := s.docAndOffset(params.TextDocument.URI, params.Position)
	if !ok {
		return SuccessResponse(msg.ID, nil)
	}
	if name, rng, ok := classTagAtOffset(doc.tree, offset); ok {
		locs := s.otherDefinitionsOf(types.TypeDeclId(name), index.DefLocation{File: doc.file, Range: rng})
		return SuccessResponse(msg.ID, locs)
	}
	expr := exprAtOffset(doc.tree, offset)
	locs := s.definitionsFor(doc, expr, offset)
	if len(locs) == 0 {
		return SuccessResponse(msg.ID, nil)
	}
	return SuccessResponse(msg.ID, locs)
}

func (s *Server) definitionsFor(doc openDoc, expr parser.Expr, offset int) []location {
	ix := s.manager.Index()
	switch e := expr.(type) {
	case *parser.NameExpr:
		if decl, ok := ix.DeclAtPosition(doc.file, e.Name, offset); ok {
			return []location{s.declLocation(decl)}
		}
	case *parser.IndexExpr:
		if e.Form != parser.IndexByDotName {
			return nil
		}
		prefixType := s.typeOfExpr(doc.file, e.Prefix)
		return s.memberDefinitions(ix, prefixType, e.Name)
	}
	return nil
}

func (s *Server) declLocation(d *index.Decl) location {
	return location{URI: pathToURI(s.pathOf(d.File)), Range: s.rangeIn(d.File, d.DefiningRange)}
}

// memberDefinitions resolves t.name's declared member and, when it is
// a function (the only Member variant carrying a location, via its
// Signature), returns that signature's defining range — §7's
// "degrade gracefully" posture for plain-value fields, which carry no
// stored location of their own.
func (s *Server) memberDefinitions(ix *index.Index, t *types.Type, name string) []location {
	if t == nil {
		return nil
	}
	owner, ok := memberOwnerOf(t)
	if !ok {
		return nil
	}
	for _, m := range ix.MembersByKey(owner, types.NameKey(name)) {
		if m.ValueType == nil || m.ValueType.Kind != types.KSignature {
			continue
		}
		sig, ok := ix.GetSignature(m.ValueType.Signature)
		if !ok {
			continue
		}
		return []location{{URI: pathToURI(s.pathOf(sig.ID.File)), Range: s.rangeIn(sig.ID.File, sig.ID.Range)}}
	}
	return nil
}

func memberOwnerOf(t *types.Type) (index.MemberOwner, bool) {
	switch t.Kind {
	case types.KRef, types.KDef:
		return index.TypeOwner(t.TypeDecl), true
	case types.KTableConst:
		return index.ElementOwner(t.File, t.Range), true
	case types.KInstance:
		return memberOwnerOf(t.Base)
	default:
		return index.MemberOwner{}, false
	}
}

// otherDefinitionsOf implements SPEC_FULL.md §5 supplemented feature 5:
// goto-definition on a class doc-tag's own name token jumps to the
// type's other partial-declaration sites rather than itself.
func (s *Server) otherDefinitionsOf(id types.TypeDeclId, from index.DefLocation) []location {
	ix := s.manager.Index()
	var out []location
	for _, d := range member.OtherDefinitions(ix, id, from) {
		out = append(out, location{URI: pathToURI(s.pathOf(d.File)), Range: s.rangeIn(d.File, d.Range)})
	}
	return out
}

func (s *Server) pathOf(file types.FileID) string {
	if p, ok := s.manager.Path(file); ok {
		return p
	}
	return ""
}

// textOf returns file's current text: the live editor buffer if it is
// open, otherwise its last-read-from-disk contents. Used only to
// translate a byte range into LSP line/character coordinates for a
// location response, never fed back into analysis.
func (s *Server) textOf(file types.FileID, path string) string {
	s.mu.Lock()
	for _, doc := range s.openDocs {
		if doc.file == file {
			s.mu.Unlock()
			return doc.text
		}
	}
	s.mu.Unlock()
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	text, err := encoding.Decode(raw, s.manager.Config().Workspace.Encoding)
	if err != nil {
		return ""
	}
	return text
}

func (s *Server) rangeIn(file types.FileID, r types.ByteRange) Range {
	return toRange(s.textOf(file, s.pathOf(file)), r.Start, r.End)
}

type completionItem struct {
	Label string `json:"label"`
	Kind  int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// handleCompletion offers every declared member of the expression
// immediately left of the cursor's dotted-access prefix, the minimal
// useful completion set this analyzer's member index can answer
// without a parser-level partial-token reparse.
func (s *Server) handleCompletion(_ context.Context, msg RequestMessage) ResponseMessage {
	var params textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return ErrorResponse(msg.ID, InvalidParams, "invalid params")
	}
	doc, offset, ok := s.docAndOffset(params.TextDocument.URI, params.Position)
	if !ok {
		return SuccessResponse(msg.ID, []completionItem{})
	}
	expr := exprAtOffset(doc.tree, offset)
	idx, ok := expr.(*parser.IndexExpr)
	if !ok {
		return SuccessResponse(msg.ID, []completionItem{})
	}
	prefixType := s.typeOfExpr(doc.file, idx.Prefix)
	owner, ok := memberOwnerOf(prefixType)
	if !ok {
		return SuccessResponse(msg.ID, []completionItem{})
	}
	ix := s.manager.Index()
	members := ix.Members(owner)
	items := make([]completionItem, 0, len(members))
	for _, m := range members {
		if m.Key.Kind != types.KeyName {
			continue
		}
		detail := ""
		if m.ValueType != nil {
			detail = m.ValueType.String()
		}
		items = append(items, completionItem{Label: m.Key.Name, Kind: completionKindFor(m), Detail: detail})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return SuccessResponse(msg.ID, items)
}

func completionKindFor(m *index.Member) int {
	if m.ValueType != nil && m.ValueType.Kind == types.KSignature {
		return 2 // Method
	}
	return 5 // Field
}
