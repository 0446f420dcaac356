package hub

import (
	"context"

	"ai-agents/internal/jsonrpc"
)

// LocalCaller routes agent-originated calls back into the in-process handler.
type LocalCaller struct {
	handler *jsonrpc.Handler
}

func NewLocalCaller(handler *jsonrpc.Handler) *LocalCaller {
	return &LocalCaller{handler: handler}
}

func (c *LocalCaller) Call(ctx context.Context, method string, params []byte) (jsonrpc.Response, error) {
	req := jsonrpc.Request{JSONRPC: "2.0", Method: method, Params: params, ID: "internal"}
	return c.handler.Handle(ctx, req), nil
}
