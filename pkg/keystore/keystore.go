package keystore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// DefaultAccountName resolves to the default signing account.
const DefaultAccountName = "default"

// KeyStore holds the default signing account and any named accounts and
// provides thread-safe lookup by name.
type KeyStore struct {
	mu sync.RWMutex

	defaultAccount types.Credentials
	accounts       map[string]types.Credentials
}

// NewKeyStore creates a key store with the given default account
func NewKeyStore(defaultAccount types.Credentials) *KeyStore {
	return &KeyStore{
		defaultAccount: defaultAccount,
		accounts:       make(map[string]types.Credentials),
	}
}

// NewKeyStoreFromConfig loads the default and named accounts of cfg.
func NewKeyStoreFromConfig(cfg *config.ClientConfig) (*KeyStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	ks := NewKeyStore(cfg.DefaultCredentials())
	for name, creds := range cfg.Accounts {
		if err := ks.AddAccount(name, creds); err != nil {
			return nil, err
		}
	}
	return ks, nil
}

// AddAccount registers creds under name, replacing any account already
// registered under it. The private key may be empty for accounts held by a
// remote signer.
func (ks *KeyStore) AddAccount(name string, creds types.Credentials) error {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultAccountName {
		return fmt.Errorf("invalid account name %q", name)
	}
	if !common.IsHexAddress(creds.Account) {
		return fmt.Errorf("account %q has invalid address %q", name, creds.Account)
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.accounts[name] = creds
	return nil
}

// RemoveAccount removes a named account. Removing an unknown name is a no-op.
func (ks *KeyStore) RemoveAccount(name string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	delete(ks.accounts, name)
}

// GetDefault returns the default signing account
func (ks *KeyStore) GetDefault() types.Credentials {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	return ks.defaultAccount
}

// SetDefault makes the named account the default.
func (ks *KeyStore) SetDefault(name string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	creds, ok := ks.accounts[name]
	if !ok {
		return fmt.Errorf("unknown account %q", name)
	}
	ks.defaultAccount = creds
	return nil
}

// Get returns the credentials registered under name. An empty name or
// DefaultAccountName returns the default account.
func (ks *KeyStore) Get(name string) (types.Credentials, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if name == "" || name == DefaultAccountName {
		return ks.defaultAccount, nil
	}
	creds, ok := ks.accounts[name]
	if !ok {
		return types.Credentials{}, fmt.Errorf("unknown account %q", name)
	}
	return creds, nil
}

// Names returns the named accounts in sorted order
func (ks *KeyStore) Names() []string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	names := make([]string, 0, len(ks.accounts))
	for name := range ks.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateAccount creates a fresh secp256k1 account.
func GenerateAccount() (types.Credentials, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return types.Credentials{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return types.Credentials{
		Account:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}
