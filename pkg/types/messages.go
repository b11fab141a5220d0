package types

import (
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the only protocol version the nodes accept.
	JSONRPCVersion = "2.0"

	// RequestID is fixed for every envelope; each request travels alone.
	RequestID = 1
)

// RequestEnvelope is the JSON-RPC request sent to a node. For every
// chain-scoped method Params[0] is the group ID.
type RequestEnvelope struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// NewRequestEnvelope builds a group-scoped envelope: params are [groupID, args...].
func NewRequestEnvelope(method string, groupID uint64, args ...interface{}) *RequestEnvelope {
	params := make([]interface{}, 0, len(args)+1)
	params = append(params, groupID)
	params = append(params, args...)
	return &RequestEnvelope{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
		ID:      RequestID,
	}
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Response is the raw node response, handed back to callers untouched.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Err returns the JSON-RPC error carried by the response, if any.
func (r *Response) Err() error {
	if r == nil {
		return fmt.Errorf("nil response")
	}
	if r.Error != nil {
		return r.Error
	}
	return nil
}

// DecodeResult unmarshals the result into v. A response with an error object or
// without a result fails.
func (r *Response) DecodeResult(v interface{}) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return fmt.Errorf("response has no result")
	}
	return json.Unmarshal(r.Result, v)
}
