package jsonrpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerDispatch(t *testing.T) {
	h := NewHandler()
	h.Register("echo", func(ctx context.Context, params json.RawMessage) (any, *RPCError) {
		var payload map[string]string
		if err := json.Unmarshal(params, &payload); err != nil {
			return nil, &RPCError{Code: ErrInvalidParams, Message: "Invalid params"}
		}
		return payload, nil
	})

	resp := h.Handle(context.Background(), Request{
		JSONRPC: "2.0",
		Method:  "echo",
		Params:  json.RawMessage(`{"hello":"world"}`),
		ID:      1,
	})
	require.Nil(t, resp.Error)
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, map[string]string{"hello": "world"}, resp.Result)
}

func TestHandlerInvalidRequest(t *testing.T) {
	h := NewHandler()

	resp := h.Handle(context.Background(), Request{Method: "echo", ID: 2})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidRequest, resp.Error.Code)

	resp = h.Handle(context.Background(), Request{JSONRPC: "2.0", ID: 3})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrInvalidRequest, resp.Error.Code)
}

func TestHandlerMethodNotFound(t *testing.T) {
	h := NewHandler()
	resp := h.Handle(context.Background(), Request{JSONRPC: "2.0", Method: "missing", ID: 4})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrMethodNotFound, resp.Error.Code)
	assert.Equal(t, 4, resp.ID)
}

func TestHandlerErrorPassthrough(t *testing.T) {
	h := NewHandler()
	h.Register("fails", func(ctx context.Context, params json.RawMessage) (any, *RPCError) {
		return nil, &RPCError{Code: ErrTaskNotFound, Message: "task not found"}
	})

	resp := h.Handle(context.Background(), Request{JSONRPC: "2.0", Method: "fails", ID: 5})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrTaskNotFound, resp.Error.Code)
	assert.Nil(t, resp.Result)
}
