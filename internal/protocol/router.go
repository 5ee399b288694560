package protocol

import (
	"context"
	"fmt"
	"sync"
)

// RequestHandler answers one JSON-RPC request.
type RequestHandler func(ctx context.Context, msg RequestMessage) ResponseMessage

// NotificationHandler handles one JSON-RPC notification; it has no
// reply, only a logged error on failure.
type NotificationHandler func(ctx context.Context, msg NotificationMessage) error

// Router is a method-keyed dispatch table, grounded directly on the
// teacher's mcp/router.go: the same RegisterRequest/RegisterNotification/
// DispatchRequest/DispatchNotification shape, reused verbatim since the
// dispatch mechanics are transport-agnostic — only the envelope types
// and method names differ between MCP and this editor protocol.
type Router struct {
	mu                   sync.RWMutex
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler
}

func NewRouter() *Router {
	return &Router{
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
	}
}

func (r *Router) RegisterRequest(method string, handler RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestHandlers[method] = handler
}

func (r *Router) RegisterNotification(method string, handler NotificationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notificationHandlers[method] = handler
}

// DispatchRequest routes msg to its registered handler, answering
// MethodNotFound/InvalidRequest itself when no handler applies.
func (r *Router) DispatchRequest(ctx context.Context, msg RequestMessage) ResponseMessage {
	if err := ensureVersion(msg.JSONRPC); err != nil {
		return ErrorResponse(msg.ID, InvalidRequest, err.Error())
	}
	r.mu.RLock()
	handler, ok := r.requestHandlers[msg.Method]
	r.mu.RUnlock()
	if !ok {
		return ErrorResponse(msg.ID, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
	resp := handler(ctx, msg)
	if resp.JSONRPC == "" {
		resp.JSONRPC = JSONRPCVersion
	}
	return resp
}

// DispatchNotification routes msg to its registered handler. An
// unknown method gets no reply on the wire (notifications have none);
// it is returned as an error, which the caller logs at debug level
// before moving on.
func (r *Router) DispatchNotification(ctx context.Context, msg NotificationMessage) error {
	if err := ensureVersion(msg.JSONRPC); err != nil {
		return err
	}
	r.mu.RLock()
	handler, ok := r.notificationHandlers[msg.Method]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("notification handler not registered: %s", msg.Method)
	}
	return handler(ctx, msg)
}
