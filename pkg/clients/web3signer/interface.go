package web3signer

import (
	"context"
	"net/http"
)

// IWeb3Signer is the subset of the Web3Signer API used to sign group
// transactions with keys held by a Web3Signer service.
type IWeb3Signer interface {
	// SetHttpClient allows setting a custom HTTP client, e.g. one with TLS settings.
	SetHttpClient(client *http.Client)

	// EthAccounts returns the addresses the service can sign for
	// (eth_accounts JSON-RPC method).
	EthAccounts(ctx context.Context) ([]string, error)

	// SignRaw signs keccak256(data) with the key of identifier using the
	// eth1 REST endpoint. No Ethereum message prefix is applied. The result
	// is the 0x hex of r || s || v.
	SignRaw(ctx context.Context, identifier string, data []byte) (string, error)
}

var _ IWeb3Signer = (*Client)(nil)
