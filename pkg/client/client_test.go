package client

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/bcos-web3-go/internal/tests"
	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transactionSigner"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

const testRecipient = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func newTestConfig(t *testing.T, nodes ...*tests.FakeNode) (*config.ClientConfig, types.Credentials) {
	t.Helper()
	creds := tests.NewTestAccount(t)
	cfg := config.NewDefaultClientConfig()
	for _, n := range nodes {
		cfg.Nodes = append(cfg.Nodes, n.Endpoint().String())
	}
	cfg.Account = creds.Account
	cfg.PrivateKey = creds.PrivateKey
	return cfg, creds
}

func newTestClient(t *testing.T, cfg *config.ClientConfig, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sentSender(t *testing.T, req tests.RecordedRequest) common.Address {
	t.Helper()
	payload, err := req.StringParam(1)
	require.NoError(t, err)
	stx, err := transactionSigner.DecodeSignedTransaction(types.SignedPayload(payload))
	require.NoError(t, err)
	sender, err := stx.Sender()
	require.NoError(t, err)
	return sender
}

func Test_NewClient_Errors(t *testing.T) {
	l := zaptest.NewLogger(t)
	node := tests.NewFakeNode(t)
	cfg, _ := newTestConfig(t, node)

	_, err := NewClient(nil, l)
	assert.Error(t, err)
	_, err = NewClient(cfg, nil)
	assert.Error(t, err)

	noNodes := cfg.Clone()
	noNodes.Nodes = nil
	_, err = NewClient(noNodes, l)
	assert.Error(t, err)

	badJournal := cfg.Clone()
	badJournal.Journal.Type = config.JournalType_Redis
	_, err = NewClient(badJournal, l)
	assert.Error(t, err)
}

func Test_Client_EndToEnd(t *testing.T) {
	node := tests.NewFakeNode(t)
	node.SetBlockNumber(10)
	node.Handle("call", func(params []json.RawMessage) (interface{}, *types.RPCError) {
		return map[string]string{"output": "0x01"}, nil
	})

	cfg, creds := newTestConfig(t, node)
	cfg.Journal.Type = config.JournalType_Memory
	c := newTestClient(t, cfg)
	ctx := context.Background()

	resp, err := c.GetBlockNumber(ctx)
	require.NoError(t, err)
	var height string
	require.NoError(t, resp.DecodeResult(&height))
	assert.Equal(t, "0xa", height)

	_, err = c.Call(ctx, testRecipient, "get()", nil)
	require.NoError(t, err)

	resp, err = c.SendTransaction(ctx, testRecipient, "set(uint256)", 5)
	require.NoError(t, err)
	var txHash string
	require.NoError(t, resp.DecodeResult(&txHash))

	sends := node.RequestsFor("sendRawTransaction")
	require.Len(t, sends, 1)
	assert.Equal(t, common.HexToAddress(creds.Account), sentSender(t, sends[0]))

	payload, err := sends[0].StringParam(1)
	require.NoError(t, err)
	_, err = c.SendRawTransaction(ctx, types.SignedPayload(payload))
	require.NoError(t, err)
	assert.Len(t, node.RequestsFor("sendRawTransaction"), 2)
	assert.Len(t, node.RequestsFor("getBlockNumber"), 2, "raw payloads never query the height")

	records, err := c.Submissions()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, persistence.SubmissionKind_Call, records[0].Kind)
	assert.Equal(t, txHash, records[0].TxHash)
	assert.Equal(t, uint64(510), records[0].BlockLimit)
	assert.Equal(t, persistence.SubmissionKind_Raw, records[1].Kind)

	loaded, err := c.Submission(records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, records[0].TxHash, loaded.TxHash)

	missing, err := c.Submission("nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, c.HealthCheck(ctx))
}

func Test_Client_Credentials(t *testing.T) {
	node := tests.NewFakeNode(t)
	cfg, creds := newTestConfig(t, node)
	alice := tests.NewTestAccount(t)
	cfg.Accounts = map[string]types.Credentials{"alice": alice}
	c := newTestClient(t, cfg)
	ctx := context.Background()

	account2 := tests.NewTestAccount(t)
	_, err := c.SendTransactionWithCredentials(ctx, account2, testRecipient, "set(uint256)", 1)
	require.NoError(t, err)

	_, err = c.SendTransactionAs(ctx, "alice", testRecipient, "set(uint256)", 2)
	require.NoError(t, err)

	_, err = c.SendTransactionAs(ctx, "", testRecipient, "set(uint256)", 3)
	require.NoError(t, err)

	sends := node.RequestsFor("sendRawTransaction")
	require.Len(t, sends, 3)
	assert.Equal(t, common.HexToAddress(account2.Account), sentSender(t, sends[0]))
	assert.Equal(t, common.HexToAddress(alice.Account), sentSender(t, sends[1]))
	assert.Equal(t, common.HexToAddress(creds.Account), sentSender(t, sends[2]))

	before := len(node.Requests())
	_, err = c.SendTransactionAs(ctx, "bob", testRecipient, "set(uint256)", 1)
	assert.Error(t, err)
	assert.Len(t, node.Requests(), before)

	keys, err := c.Accounts()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, keys.Names())
}

func Test_Client_Web3Signer(t *testing.T) {
	node := tests.NewFakeNode(t)
	cfg, creds := newTestConfig(t, node)
	alice := tests.NewTestAccount(t)
	signer := tests.NewFakeWeb3Signer(t, creds, alice)

	cfg.PrivateKey = ""
	cfg.Accounts = map[string]types.Credentials{"alice": {Account: alice.Account}}
	cfg.Web3Signer = &config.Web3SignerConfig{URL: signer.URL()}
	c := newTestClient(t, cfg)
	ctx := context.Background()

	_, err := c.SendTransaction(ctx, testRecipient, "set(uint256)", 1)
	require.NoError(t, err)
	_, err = c.SendTransactionAs(ctx, "alice", testRecipient, "set(uint256)", 2)
	require.NoError(t, err)

	sends := node.RequestsFor("sendRawTransaction")
	require.Len(t, sends, 2)
	assert.Equal(t, common.HexToAddress(creds.Account), sentSender(t, sends[0]))
	assert.Equal(t, common.HexToAddress(alice.Account), sentSender(t, sends[1]))
	assert.Equal(t, 2, signer.Signs())

	unknown := tests.NewTestAccount(t)
	_, err = c.SendTransactionWithCredentials(ctx, types.Credentials{Account: unknown.Account}, testRecipient, "set(uint256)", 3)
	require.Error(t, err)
	assert.True(t, clientErrors.IsSigning(err))
	assert.Len(t, node.RequestsFor("sendRawTransaction"), 2)
}

func Test_Client_ValidationNeverReachesNode(t *testing.T) {
	node := tests.NewFakeNode(t)
	cfg, _ := newTestConfig(t, node)
	c := newTestClient(t, cfg)

	_, err := c.SendTransaction(context.Background(), "0xabc", "set(uint256)", 1)
	require.Error(t, err)
	assert.True(t, clientErrors.IsValidation(err))

	_, err = c.Deploy(context.Background(), filepath.Join(t.TempDir(), "Missing.sol"), t.TempDir())
	require.Error(t, err)
	assert.True(t, clientErrors.IsCompile(err))

	assert.Empty(t, node.Requests())
}

func Test_Client_Deploy(t *testing.T) {
	node := tests.NewFakeNode(t)
	node.SetBlockNumber(1)
	dir := t.TempDir()

	cfg, _ := newTestConfig(t, node)
	cfg.Solc = tests.WriteFakeSolc(t, dir, "60806040")
	alice := tests.NewTestAccount(t)
	cfg.Accounts = map[string]types.Credentials{"alice": alice}
	c := newTestClient(t, cfg)

	contract := tests.WriteContract(t, dir, "Counter")
	_, err := c.DeployAs(context.Background(), "alice", contract, filepath.Join(dir, "out"))
	require.NoError(t, err)

	sends := node.RequestsFor("sendRawTransaction")
	require.Len(t, sends, 1)
	assert.Equal(t, common.HexToAddress(alice.Account), sentSender(t, sends[0]))
	assert.FileExists(t, filepath.Join(dir, "out", "Counter.bin"))
}

func Test_Client_Reconfigure(t *testing.T) {
	node1 := tests.NewFakeNode(t)
	node2 := tests.NewFakeNode(t)
	node2.SetBlockNumber(7)

	cfg, _ := newTestConfig(t, node1)
	cfg.Journal.Type = config.JournalType_Memory
	c := newTestClient(t, cfg)
	ctx := context.Background()

	_, err := c.SendRawTransaction(ctx, "0x01")
	require.NoError(t, err)

	next := cfg.Clone()
	next.Nodes = []string{node2.Endpoint().String()}
	next.GroupID = 5
	require.NoError(t, c.Reconfigure(next))

	_, err = c.GetBlockNumber(ctx)
	require.NoError(t, err)
	reqs := node2.Requests()
	require.Len(t, reqs, 1)
	group, err := reqs[0].GroupID()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), group)
	assert.Len(t, node1.Requests(), 1)

	active, err := c.Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), active.GroupID)

	// unchanged journal settings keep the journal
	records, err := c.Submissions()
	require.NoError(t, err)
	assert.Len(t, records, 1)

	invalid := next.Clone()
	invalid.Account = "nope"
	assert.Error(t, c.Reconfigure(invalid))
	active, err = c.Config()
	require.NoError(t, err)
	assert.Equal(t, next.Account, active.Account, "a rejected config keeps the current one")

	noJournal := next.Clone()
	noJournal.Journal = config.JournalConfig{}
	require.NoError(t, c.Reconfigure(noJournal))
	_, err = c.Submissions()
	assert.Error(t, err)

	assert.Error(t, c.Reconfigure(nil))
}

func Test_Client_ReconfigureConcurrent(t *testing.T) {
	node := tests.NewFakeNode(t)
	cfg, _ := newTestConfig(t, node)
	c := newTestClient(t, cfg)

	other := cfg.Clone()
	other.GroupID = 2

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := c.GetBlockNumber(context.Background())
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		next := cfg
		if i%2 == 0 {
			next = other
		}
		require.NoError(t, c.Reconfigure(next))
	}
	wg.Wait()

	for _, r := range node.Requests() {
		group, err := r.GroupID()
		require.NoError(t, err)
		assert.Contains(t, []uint64{1, 2}, group)
	}
}

func Test_Client_Close(t *testing.T) {
	node := tests.NewFakeNode(t)
	cfg, _ := newTestConfig(t, node)
	cfg.Journal.Type = config.JournalType_Memory
	c, err := NewClient(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.GetBlockNumber(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = c.SendRawTransaction(context.Background(), "0x01")
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, c.Reconfigure(cfg), ErrClientClosed)
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrClientClosed)
	assert.Empty(t, node.Requests())
}

func Test_Client_Journals(t *testing.T) {
	mr := miniredis.RunT(t)

	cases := map[string]func(t *testing.T) config.JournalConfig{
		"badger": func(t *testing.T) config.JournalConfig {
			return config.JournalConfig{Type: config.JournalType_Badger, DataPath: filepath.Join(t.TempDir(), "journal")}
		},
		"redis": func(t *testing.T) config.JournalConfig {
			return config.JournalConfig{
				Type:  config.JournalType_Redis,
				Redis: &config.RedisJournalConfig{Address: mr.Addr(), KeyPrefix: "test:"},
			}
		},
	}

	for name, journalConfig := range cases {
		t.Run(name, func(t *testing.T) {
			node := tests.NewFakeNode(t)
			cfg, _ := newTestConfig(t, node)
			cfg.Journal = journalConfig(t)
			c := newTestClient(t, cfg)

			_, err := c.SendTransaction(context.Background(), testRecipient, "set(uint256)", 9)
			require.NoError(t, err)

			records, err := c.Submissions()
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, uint64(500), records[0].BlockLimit)
			assert.NoError(t, c.HealthCheck(context.Background()))
		})
	}
}

func Test_Client_Metrics(t *testing.T) {
	node := tests.NewFakeNode(t)
	cfg, _ := newTestConfig(t, node)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, cfg, WithMetricsRegisterer(reg))

	_, err := c.GetBlockNumber(context.Background())
	require.NoError(t, err)
	_, err = c.SendRawTransaction(context.Background(), "0x01")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Requests.WithLabelValues("getBlockNumber", "read-only", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.Requests.WithLabelValues("sendRawTransaction", "write", "success")))

	// a second client on the same registry shares the collectors
	_ = newTestClient(t, cfg, WithMetricsRegisterer(reg))
}

func Test_Client_WithTransport(t *testing.T) {
	tr := &tests.RecordingTransport{}
	cfg := config.NewDefaultClientConfig()
	creds := tests.NewTestAccount(t)
	cfg.Nodes = []string{"10.0.0.1:20200"}
	cfg.Account = creds.Account
	cfg.PrivateKey = creds.PrivateKey
	c := newTestClient(t, cfg, WithTransport(tr))

	q, err := c.Query()
	require.NoError(t, err)
	_, err = q.GetSealerList(context.Background())
	require.NoError(t, err)

	calls := tr.CallsFor("getSealerList")
	require.Len(t, calls, 1)
	assert.Equal(t, "10.0.0.1:20200", calls[0].Node.String())
	assert.Equal(t, types.ModeReadOnly, calls[0].Mode)
}
