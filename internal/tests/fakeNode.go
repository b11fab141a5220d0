package tests

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// RecordedRequest is one request received by a FakeNode.
type RecordedRequest struct {
	JSONRPC  string
	Method   string
	Params   []json.RawMessage
	ID       uint64
	ReadOnly bool
}

// GroupID decodes Params[0].
func (r RecordedRequest) GroupID() (uint64, error) {
	if len(r.Params) == 0 {
		return 0, fmt.Errorf("request has no params")
	}
	var id uint64
	err := json.Unmarshal(r.Params[0], &id)
	return id, err
}

// StringParam decodes Params[i] as a string.
func (r RecordedRequest) StringParam(i int) (string, error) {
	if i >= len(r.Params) {
		return "", fmt.Errorf("request has no param %d", i)
	}
	var s string
	err := json.Unmarshal(r.Params[i], &s)
	return s, err
}

// MethodHandler produces the result or error of one method.
type MethodHandler func(params []json.RawMessage) (interface{}, *types.RPCError)

// FakeNode is an in-process JSON-RPC node. It answers getBlockNumber with its
// current height and sendRawTransaction with the keccak256 of the payload.
// Every other method needs a handler.
type FakeNode struct {
	Server *httptest.Server

	mu       sync.Mutex
	height   uint64
	requests []RecordedRequest
	handlers map[string]MethodHandler
}

// NewFakeNode starts a node closed on test cleanup.
func NewFakeNode(t testing.TB) *FakeNode {
	t.Helper()
	n := &FakeNode{handlers: make(map[string]MethodHandler)}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(n.Server.Close)
	return n
}

// Endpoint is the NodeEndpoint of the node.
func (n *FakeNode) Endpoint() peering.NodeEndpoint {
	ep, err := peering.ParseNodeEndpoint(n.Server.Listener.Addr().String())
	if err != nil {
		panic(err)
	}
	return ep
}

func (n *FakeNode) SetBlockNumber(height uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.height = height
}

// AdvanceBlocks moves the chain height forward.
func (n *FakeNode) AdvanceBlocks(count uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.height += count
}

// Handle overrides or adds the handler of method.
func (n *FakeNode) Handle(method string, handler MethodHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = handler
}

// Requests returns a copy of every request received so far.
func (n *FakeNode) Requests() []RecordedRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]RecordedRequest(nil), n.requests...)
}

// RequestsFor returns the received requests of one method.
func (n *FakeNode) RequestsFor(method string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range n.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

type rawEnvelope struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      uint64            `json:"id"`
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *types.RPCError `json:"error,omitempty"`
}

func (n *FakeNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.requests = append(n.requests, RecordedRequest{
		JSONRPC:  env.JSONRPC,
		Method:   env.Method,
		Params:   env.Params,
		ID:       env.ID,
		ReadOnly: r.Header.Get("X-Request-Mode") == "read-only",
	})
	handler, ok := n.handlers[env.Method]
	height := n.height
	n.mu.Unlock()

	resp := rawResponse{JSONRPC: "2.0", ID: env.ID}
	switch {
	case ok:
		resp.Result, resp.Error = handler(env.Params)
	case env.Method == "getBlockNumber":
		resp.Result = hexutil.EncodeUint64(height)
	case env.Method == "sendRawTransaction":
		resp.Result, resp.Error = rawTransactionHash(env.Params)
	default:
		resp.Error = &types.RPCError{Code: -32601, Message: "method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func rawTransactionHash(params []json.RawMessage) (interface{}, *types.RPCError) {
	if len(params) != 2 {
		return nil, &types.RPCError{Code: -32602, Message: "invalid params"}
	}
	var payload string
	if err := json.Unmarshal(params[1], &payload); err != nil {
		return nil, &types.RPCError{Code: -32602, Message: "invalid params"}
	}
	raw, err := hexutil.Decode(payload)
	if err != nil {
		return nil, &types.RPCError{Code: -32602, Message: "invalid params"}
	}
	return crypto.Keccak256Hash(raw).Hex(), nil
}
