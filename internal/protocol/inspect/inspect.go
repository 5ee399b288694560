// Package inspect implements the optional, read-only `--inspect-addr`
// feed SPEC_FULL.md §2 names: a websocket endpoint broadcasting
// index-generation and diagnostic events as they happen, for an
// external dashboard/debugger to watch a running server without
// speaking the JSON-RPC editor protocol itself. It never accepts
// writes from a client and never influences analysis — broadcast-only,
// best-effort delivery (an event that does not fit a slow client's
// buffer is skipped for that client, not waited on).
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/luasem/luasem/internal/diag"
)

// Event is one broadcast message: either a re-index ("generation") or
// a diagnostics publish for one file.
type Event struct {
	Type        string            `json:"type"` // "generation" | "diagnostics"
	Path        string            `json:"path,omitempty"`
	Generation  uint64            `json:"generation,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
	Timestamp   string            `json:"timestamp"`
}

// Hub fans out Events to every currently-connected websocket client.
// Grounded on the teacher's mcp/http_server.go for the overall
// http.Server/mux/graceful-shutdown shape; the broadcast-to-many-
// channels pattern itself has no teacher analogue (morfx's HTTP server
// is request/response, not a push feed) and follows the standard Go
// fan-out idiom instead: one buffered channel per client; an event is
// skipped for a client whose buffer is full rather than the hub
// blocking on it, and the client stays subscribed.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

// Broadcast fans ev out to every connected client's buffer, dropping
// it for any client whose buffer is already full rather than blocking
// the caller (the analysis pipeline) on a slow inspector.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// GenerationEvent/DiagnosticsEvent are convenience constructors used by
// internal/protocol.Server's analysis hooks.
func GenerationEvent(generation uint64) Event {
	return Event{Type: "generation", Generation: generation, Timestamp: now()}
}

func DiagnosticsEvent(path string, diags []diag.Diagnostic) Event {
	return Event{Type: "diagnostics", Path: path, Diagnostics: diags, Timestamp: now()}
}

func now() string { return time.Now().Format(time.RFC3339) }

// ServeHTTP upgrades r to a websocket connection and streams every Event
// broadcast on h until the client disconnects. It never reads from the
// connection beyond the initial handshake — this feed is write-only by
// design (§2 "read-only live index/diagnostic feed").
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Serve runs an HTTP server on addr exposing h at "/inspect" until ctx
// is cancelled, then shuts down gracefully — the same ListenAndServe-
// in-a-goroutine-plus-context-Shutdown shape as the teacher's
// mcp/http_server.go Start/Stop pair, adapted from an OS-signal channel
// to a context since the composition root (cmd/luasem-ls) already owns
// its own signal handling for the primary stdio transport.
func Serve(ctx context.Context, addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/inspect", h)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("inspect: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
