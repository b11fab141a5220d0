package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

const (
	testAccount    = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func validConfig() *ClientConfig {
	cfg := NewDefaultClientConfig()
	cfg.Nodes = []string{"127.0.0.1:20200", "127.0.0.1:20201"}
	cfg.Account = testAccount
	cfg.PrivateKey = testPrivateKey
	return cfg
}

func Test_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing nodes", func(t *testing.T) {
		cfg := validConfig()
		cfg.Nodes = nil
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nodes")
	})

	t.Run("bad node endpoint", func(t *testing.T) {
		cfg := validConfig()
		cfg.Nodes = []string{"127.0.0.1"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nodes[0]")
	})

	t.Run("bad account and key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Account = "0x1234"
		cfg.PrivateKey = "abcd"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account")
		assert.Contains(t, err.Error(), "privateKey")
		assert.NotContains(t, err.Error(), "abcd")
	})

	t.Run("bad named account", func(t *testing.T) {
		cfg := validConfig()
		cfg.Accounts = map[string]types.Credentials{"ops": {Account: "nope", PrivateKey: testPrivateKey}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "accounts[ops].account")
	})

	t.Run("unsupported selection policy", func(t *testing.T) {
		cfg := validConfig()
		cfg.NodeSelection = "weighted"
		assert.Error(t, cfg.Validate())
	})

	t.Run("cert without key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Authentication.Cert = "sdk.crt"
		assert.Error(t, cfg.Validate())
	})

	t.Run("journal requirements", func(t *testing.T) {
		cfg := validConfig()
		cfg.Journal.Type = JournalType_Badger
		assert.Error(t, cfg.Validate())

		cfg.Journal.DataPath = "/tmp/journal"
		assert.NoError(t, cfg.Validate())

		cfg.Journal = JournalConfig{Type: JournalType_Redis}
		assert.Error(t, cfg.Validate())

		cfg.Journal = JournalConfig{Type: "sqlite"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("web3signer makes keys optional", func(t *testing.T) {
		cfg := validConfig()
		cfg.PrivateKey = ""
		cfg.Accounts = map[string]types.Credentials{"ops": {Account: testAccount}}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "privateKey")

		cfg.Web3Signer = &Web3SignerConfig{URL: "http://localhost:9000"}
		assert.NoError(t, cfg.Validate())

		cfg.PrivateKey = "abcd"
		assert.Error(t, cfg.Validate(), "a present key is still checked")
	})

	t.Run("bad web3signer url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Web3Signer = &Web3SignerConfig{}
		assert.Error(t, cfg.Validate())

		cfg.Web3Signer = &Web3SignerConfig{URL: "localhost:9000"}
		assert.Error(t, cfg.Validate())
	})
}

func Test_Clone(t *testing.T) {
	cfg := validConfig()
	cfg.Accounts = map[string]types.Credentials{"ops": {Account: testAccount, PrivateKey: testPrivateKey}}
	cfg.Journal.Redis = &RedisJournalConfig{Address: "localhost:6379"}
	cfg.Web3Signer = &Web3SignerConfig{URL: "http://localhost:9000"}

	clone := cfg.Clone()
	cfg.Nodes[0] = "10.0.0.1:1"
	cfg.Accounts["ops"] = types.Credentials{}
	cfg.Journal.Redis.Address = "elsewhere:6379"
	cfg.Web3Signer.URL = "http://elsewhere:9000"

	assert.Equal(t, "127.0.0.1:20200", clone.Nodes[0])
	assert.Equal(t, testAccount, clone.Accounts["ops"].Account)
	assert.Equal(t, "localhost:6379", clone.Journal.Redis.Address)
	assert.Equal(t, "http://localhost:9000", clone.Web3Signer.URL)
}

func Test_LoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
nodes:
  - 127.0.0.1:20200
  - 127.0.0.1:20201
nodeSelection: round-robin
account: "` + testAccount + `"
privateKey: "` + testPrivateKey + `"
groupID: 2
timeout: 3s
authentication:
  caCert: certs/ca.crt
  cert: certs/sdk.crt
  key: /etc/sdk.key
journal:
  type: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint64(2), cfg.GroupID)
	assert.Equal(t, DefaultChainID, cfg.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, peering.SelectionPolicy_RoundRobin, cfg.NodeSelection)
	assert.Equal(t, DefaultSolcPath, cfg.Solc)
	assert.Equal(t, filepath.Join(dir, "certs/ca.crt"), cfg.Authentication.CACert)
	assert.Equal(t, "/etc/sdk.key", cfg.Authentication.Key)
	assert.Equal(t, JournalType_Memory, cfg.Journal.Type)

	endpoints, err := cfg.NodeEndpoints()
	require.NoError(t, err)
	assert.Len(t, endpoints, 2)
	assert.Equal(t, types.Credentials{Account: testAccount, PrivateKey: testPrivateKey}, cfg.DefaultCredentials())
}

func Test_LoadConfigFromFile_Missing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
