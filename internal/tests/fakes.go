package tests

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// RecordingNodePool returns a fixed endpoint and counts selections.
type RecordingNodePool struct {
	Node peering.NodeEndpoint

	mu      sync.Mutex
	selects int
}

func NewRecordingNodePool() *RecordingNodePool {
	return &RecordingNodePool{Node: peering.NodeEndpoint{Host: "127.0.0.1", Port: 20200}}
}

func (p *RecordingNodePool) Select() peering.NodeEndpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selects++
	return p.Node
}

func (p *RecordingNodePool) Nodes() []peering.NodeEndpoint {
	return []peering.NodeEndpoint{p.Node}
}

func (p *RecordingNodePool) Selects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selects
}

// DispatchCall is one call received by a RecordingTransport.
type DispatchCall struct {
	Node     peering.NodeEndpoint
	Auth     types.Authentication
	Envelope *types.RequestEnvelope
	Timeout  time.Duration
	Mode     types.Mode
}

// RecordingTransport records every dispatch and answers through Respond.
// Without Respond every call returns {"result":"0x0"}.
type RecordingTransport struct {
	Respond func(call DispatchCall) (*types.Response, error)

	mu    sync.Mutex
	calls []DispatchCall
}

func (t *RecordingTransport) Dispatch(
	_ context.Context,
	node peering.NodeEndpoint,
	auth *types.Authentication,
	envelope *types.RequestEnvelope,
	timeout time.Duration,
	mode types.Mode,
) (*types.Response, error) {
	call := DispatchCall{Node: node, Envelope: envelope, Timeout: timeout, Mode: mode}
	if auth != nil {
		call.Auth = *auth
	}

	t.mu.Lock()
	t.calls = append(t.calls, call)
	respond := t.Respond
	t.mu.Unlock()

	if respond != nil {
		return respond(call)
	}
	return ResultResponse("0x0"), nil
}

func (t *RecordingTransport) Calls() []DispatchCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]DispatchCall(nil), t.calls...)
}

// CallsFor returns the recorded calls of one method.
func (t *RecordingTransport) CallsFor(method string) []DispatchCall {
	var out []DispatchCall
	for _, c := range t.Calls() {
		if c.Envelope != nil && c.Envelope.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// ResultResponse builds a successful response carrying result.
func ResultResponse(result interface{}) *types.Response {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	return &types.Response{JSONRPC: types.JSONRPCVersion, ID: json.RawMessage("1"), Result: raw}
}
