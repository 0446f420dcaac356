// Package jsonrpc carries the JSON-RPC 2.0 framing shared by the hub's HTTP
// and unix socket transports.
package jsonrpc

import "encoding/json"

// Request is one inbound call. Params stays raw so each hub method decodes
// its own parameter shape.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
	ID      any       `json:"id,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC 2.0 codes plus the hub's server-defined range below
// -32000: task, agent, context, and session lookups, cancellation, and
// per-call timeouts.
const (
	ErrParseError        = -32700
	ErrInvalidRequest    = -32600
	ErrMethodNotFound    = -32601
	ErrInvalidParams     = -32602
	ErrInternalError     = -32603
	ErrTaskNotFound      = -32001
	ErrTaskNotCancelable = -32002
	ErrAgentNotFound     = -32003
	ErrAgentUnavailable  = -32004
	ErrUnsupported       = -32005
	ErrTimeout           = -32007
	ErrContextNotFound   = -32008
	ErrSessionNotFound   = -32009
)
