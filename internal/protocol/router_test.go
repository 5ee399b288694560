package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouterDispatchRequestRoutesToHandler(t *testing.T) {
	r := NewRouter()
	r.RegisterRequest("ping", func(_ context.Context, msg RequestMessage) ResponseMessage {
		return SuccessResponse(msg.ID, "pong")
	})

	resp := r.DispatchRequest(context.Background(), RequestMessage{JSONRPC: JSONRPCVersion, ID: json.RawMessage(`1`), Method: "ping"})
	require.Nil(t, resp.Error)
	require.Equal(t, "pong", resp.Result)
}

func TestRouterDispatchRequestUnknownMethod(t *testing.T) {
	r := NewRouter()
	resp := r.DispatchRequest(context.Background(), RequestMessage{JSONRPC: JSONRPCVersion, ID: json.RawMessage(`1`), Method: "nope"})
	require.NotNil(t, resp.Error)
	require.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestRouterDispatchRequestBadVersion(t *testing.T) {
	r := NewRouter()
	resp := r.DispatchRequest(context.Background(), RequestMessage{JSONRPC: "1.0", ID: json.RawMessage(`1`), Method: "ping"})
	require.NotNil(t, resp.Error)
	require.Equal(t, InvalidRequest, resp.Error.Code)
}

func TestRouterDispatchNotificationUnknownMethodErrors(t *testing.T) {
	r := NewRouter()
	err := r.DispatchNotification(context.Background(), NotificationMessage{JSONRPC: JSONRPCVersion, Method: "nope"})
	require.Error(t, err)
}

func TestRouterDispatchNotificationRoutesToHandler(t *testing.T) {
	r := NewRouter()
	called := false
	r.RegisterNotification("initialized", func(context.Context, NotificationMessage) error {
		called = true
		return nil
	})
	err := r.DispatchNotification(context.Background(), NotificationMessage{JSONRPC: JSONRPCVersion, Method: "initialized"})
	require.NoError(t, err)
	require.True(t, called)
}

func TestRouterDispatchNotificationPropagatesHandlerError(t *testing.T) {
	r := NewRouter()
	want := errors.New("boom")
	r.RegisterNotification("x", func(context.Context, NotificationMessage) error { return want })
	err := r.DispatchNotification(context.Background(), NotificationMessage{JSONRPC: JSONRPCVersion, Method: "x"})
	require.ErrorIs(t, err, want)
}
