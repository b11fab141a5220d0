package tests

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// FakeWeb3Signer serves eth_accounts and the eth1 raw sign endpoint for the
// keys it was given.
type FakeWeb3Signer struct {
	Server *httptest.Server

	mu    sync.Mutex
	keys  map[common.Address]*ecdsa.PrivateKey
	signs int
}

func NewFakeWeb3Signer(t testing.TB, accounts ...types.Credentials) *FakeWeb3Signer {
	t.Helper()
	f := &FakeWeb3Signer{keys: make(map[common.Address]*ecdsa.PrivateKey)}
	for _, a := range accounts {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(a.PrivateKey, "0x"))
		if err != nil {
			t.Fatalf("invalid test key: %v", err)
		}
		f.keys[crypto.PubkeyToAddress(key.PublicKey)] = key
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeWeb3Signer) URL() string {
	return f.Server.URL
}

// Signs returns how many signatures were produced.
func (f *FakeWeb3Signer) Signs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signs
}

func (f *FakeWeb3Signer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	const signPrefix = "/api/v1/eth1/sign/"
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/":
		f.mu.Lock()
		accounts := make([]string, 0, len(f.keys))
		for addr := range f.keys {
			accounts = append(accounts, addr.Hex())
		}
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": accounts})

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, signPrefix):
		identifier := strings.TrimPrefix(r.URL.Path, signPrefix)
		if !common.IsHexAddress(identifier) {
			http.Error(w, "invalid identifier", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		key, ok := f.keys[common.HexToAddress(identifier)]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "Signer not found", http.StatusNotFound)
			return
		}

		var body struct {
			Data string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		data, err := hexutil.Decode(body.Data)
		if err != nil {
			http.Error(w, "malformed data", http.StatusBadRequest)
			return
		}
		sig, err := crypto.Sign(crypto.Keccak256(data), key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		sig[64] += 27

		f.mu.Lock()
		f.signs++
		f.mu.Unlock()
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, hexutil.Encode(sig))

	default:
		http.NotFound(w, r)
	}
}
