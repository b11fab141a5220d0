package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/bcos-web3-go/pkg/compiler"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/keystore"
	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/peering/localNodePool"
	"github.com/Layr-Labs/bcos-web3-go/pkg/persistence"
	"github.com/Layr-Labs/bcos-web3-go/pkg/query"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transactionOrchestrator"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transactionSigner"
	"github.com/Layr-Labs/bcos-web3-go/pkg/transport"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

var ErrClientClosed = fmt.Errorf("client is closed")

// Option customizes the collaborators a Client builds from its config.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	transport  transport.IChannelTransport
	signer     transactionSigner.ITransactionSigner
	compiler   compiler.ISolidityCompiler
}

// WithMetricsRegisterer registers transport metrics with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTransport replaces the HTTP channel transport.
func WithTransport(tr transport.IChannelTransport) Option {
	return func(o *options) { o.transport = tr }
}

// WithSigner replaces the signer selected from the config.
func WithSigner(s transactionSigner.ITransactionSigner) Option {
	return func(o *options) { o.signer = s }
}

// WithCompiler replaces the solc compiler built from config.Solc.
func WithCompiler(c compiler.ISolidityCompiler) Option {
	return func(o *options) { o.compiler = c }
}

// services is one consistent set of collaborators built from a single
// config snapshot.
type services struct {
	config       *config.ClientConfig
	pool         peering.INodePool
	query        *query.Dispatcher
	orchestrator *transactionOrchestrator.TransactionOrchestrator
	keys         *keystore.KeyStore
	journal      persistence.ISubmissionJournal
}

// Client is the entry point of the library. Every call loads the current
// services bundle once, so a call never observes a half applied Reconfigure.
type Client struct {
	current atomic.Pointer[services]

	opts    options
	metrics *transport.Metrics
	logger  *zap.Logger

	// serializes Reconfigure and Close
	mu sync.Mutex
}

// NewClient validates cfg and builds every collaborator from a snapshot of it.
func NewClient(cfg *config.ClientConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c := &Client{logger: logger}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.registerer != nil {
		metrics, err := transport.NewMetrics(c.opts.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		c.metrics = metrics
	}

	svc, err := c.build(cfg, nil)
	if err != nil {
		return nil, err
	}
	c.current.Store(svc)

	logger.Sugar().Infow("Created client",
		zap.Strings("nodes", svc.config.Nodes),
		zap.Uint64("groupID", svc.config.GroupID),
		zap.String("account", svc.config.Account),
		zap.String("journal", string(svc.config.Journal.Type)),
	)
	return c, nil
}

// build creates a services bundle for cfg. The journal of previous is reused
// when its settings did not change.
func (c *Client) build(cfg *config.ClientConfig, previous *services) (*services, error) {
	snapshot := cfg.Clone()
	snapshot.ApplyDefaults()
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	nodes, err := snapshot.NodeEndpoints()
	if err != nil {
		return nil, err
	}
	pool, err := localNodePool.NewNodePool(snapshot.NodeSelection, nodes, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create node pool: %w", err)
	}

	tr := c.opts.transport
	if tr == nil {
		tr = transport.NewHTTPChannelTransport(&transport.HTTPTransportConfig{
			RequestsPerSecond: snapshot.RequestsPerSecond,
			Metrics:           c.metrics,
		}, c.logger)
	}

	signer := c.opts.signer
	if signer == nil {
		signer, err = newSigner(snapshot, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create signer: %w", err)
		}
	}

	solc := c.opts.compiler
	if solc == nil {
		solc = compiler.NewSolcCompiler(snapshot.Solc, c.logger)
	}

	keys, err := keystore.NewKeyStoreFromConfig(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	dispatcher, err := query.NewDispatcher(snapshot, pool, tr, c.logger)
	if err != nil {
		return nil, err
	}

	var journal persistence.ISubmissionJournal
	if previous != nil && sameJournalConfig(previous.config.Journal, snapshot.Journal) {
		journal = previous.journal
	} else {
		journal, err = newJournal(snapshot.Journal, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open submission journal: %w", err)
		}
	}

	orchestrator, err := transactionOrchestrator.NewTransactionOrchestrator(snapshot, &transactionOrchestrator.Dependencies{
		Heights:   dispatcher,
		Signer:    signer,
		Pool:      pool,
		Transport: tr,
		Compiler:  solc,
		Journal:   journal,
	}, c.logger)
	if err != nil {
		if journal != nil && (previous == nil || journal != previous.journal) {
			_ = journal.Close()
		}
		return nil, err
	}

	return &services{
		config:       snapshot,
		pool:         pool,
		query:        dispatcher,
		orchestrator: orchestrator,
		keys:         keys,
		journal:      journal,
	}, nil
}

func (c *Client) load() (*services, error) {
	svc := c.current.Load()
	if svc == nil {
		return nil, ErrClientClosed
	}
	return svc, nil
}

// Reconfigure swaps in collaborators built from cfg. Calls already running
// finish against the previous bundle. On error the current bundle is kept.
func (c *Client) Reconfigure(cfg *config.ClientConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, err := c.load()
	if err != nil {
		return err
	}
	next, err := c.build(cfg, previous)
	if err != nil {
		return err
	}
	c.current.Store(next)

	if previous.journal != nil && previous.journal != next.journal {
		if err := previous.journal.Close(); err != nil {
			c.logger.Sugar().Warnw("Failed to close previous submission journal", zap.Error(err))
		}
	}
	c.logger.Sugar().Infow("Reconfigured client",
		zap.Strings("nodes", next.config.Nodes),
		zap.Uint64("groupID", next.config.GroupID),
	)
	return nil
}

// Close releases the journal. Every later call returns ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	svc := c.current.Swap(nil)
	if svc == nil || svc.journal == nil {
		return nil
	}
	return svc.journal.Close()
}

// Config returns a copy of the active configuration.
func (c *Client) Config() (*config.ClientConfig, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.config.Clone(), nil
}

// Query returns the read API bound to the active configuration.
func (c *Client) Query() (*query.Dispatcher, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.query, nil
}

// Accounts returns the key store of the active configuration. Accounts added
// at runtime do not survive a Reconfigure.
func (c *Client) Accounts() (*keystore.KeyStore, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.keys, nil
}

func (c *Client) GetBlockNumber(ctx context.Context) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.query.GetBlockNumber(ctx)
}

// Call runs a constant call against to from the default account.
func (c *Client) Call(ctx context.Context, to string, function string, params interface{}) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.query.Call(ctx, to, function, params)
}

// SendRawTransaction submits an already signed payload.
func (c *Client) SendRawTransaction(ctx context.Context, payload types.SignedPayload) (*types.Response, error) {
	return c.Submit(ctx, types.NewRawPayload(payload))
}

// SendTransaction signs a call to function on to with the default account
// and submits it.
func (c *Client) SendTransaction(ctx context.Context, to string, function string, params interface{}) (*types.Response, error) {
	return c.Submit(ctx, types.NewUnsignedCall(to, function, params))
}

// SendTransactionWithCredentials is SendTransaction signed with creds.
func (c *Client) SendTransactionWithCredentials(
	ctx context.Context,
	creds types.Credentials,
	to string,
	function string,
	params interface{},
) (*types.Response, error) {
	return c.SubmitWithCredentials(ctx, creds, types.NewUnsignedCall(to, function, params))
}

// SendTransactionAs is SendTransaction signed with a named account.
func (c *Client) SendTransactionAs(ctx context.Context, account string, to string, function string, params interface{}) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	creds, err := svc.keys.Get(account)
	if err != nil {
		return nil, err
	}
	return svc.orchestrator.SubmitWithCredentials(ctx, creds, types.NewUnsignedCall(to, function, params))
}

func (c *Client) Submit(ctx context.Context, req types.SubmissionRequest) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.orchestrator.Submit(ctx, req)
}

func (c *Client) SubmitWithCredentials(ctx context.Context, creds types.Credentials, req types.SubmissionRequest) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.orchestrator.SubmitWithCredentials(ctx, creds, req)
}

// Deploy compiles and deploys a contract with the default account.
func (c *Client) Deploy(ctx context.Context, contractPath string, outputDir string) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.orchestrator.Deploy(ctx, contractPath, outputDir)
}

func (c *Client) DeployWithCredentials(
	ctx context.Context,
	creds types.Credentials,
	contractPath string,
	outputDir string,
) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	return svc.orchestrator.DeployWithCredentials(ctx, creds, contractPath, outputDir)
}

// DeployAs deploys with a named account.
func (c *Client) DeployAs(ctx context.Context, account string, contractPath string, outputDir string) (*types.Response, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	creds, err := svc.keys.Get(account)
	if err != nil {
		return nil, err
	}
	return svc.orchestrator.DeployWithCredentials(ctx, creds, contractPath, outputDir)
}

// Submissions lists the journal oldest first.
func (c *Client) Submissions() ([]*persistence.SubmissionRecord, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	if svc.journal == nil {
		return nil, fmt.Errorf("no submission journal configured")
	}
	return svc.journal.ListSubmissions()
}

// Submission loads one journal record; an unknown id returns nil, nil.
func (c *Client) Submission(id string) (*persistence.SubmissionRecord, error) {
	svc, err := c.load()
	if err != nil {
		return nil, err
	}
	if svc.journal == nil {
		return nil, fmt.Errorf("no submission journal configured")
	}
	return svc.journal.LoadSubmission(id)
}

// HealthCheck asks one node for its block number and checks the journal.
func (c *Client) HealthCheck(ctx context.Context) error {
	svc, err := c.load()
	if err != nil {
		return err
	}
	resp, err := svc.query.GetBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("node unreachable: %w", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("node returned an error: %w", err)
	}
	if svc.journal != nil {
		if err := svc.journal.HealthCheck(); err != nil {
			return fmt.Errorf("submission journal unhealthy: %w", err)
		}
	}
	return nil
}

// newSigner signs remotely when a Web3Signer is configured and with the
// configured private keys otherwise.
func newSigner(cfg *config.ClientConfig, logger *zap.Logger) (transactionSigner.ITransactionSigner, error) {
	signerCfg := &transactionSigner.SignerConfig{ChainID: cfg.ChainID}
	if cfg.Web3Signer == nil {
		return transactionSigner.NewPrivateKeyTransactionSigner(signerCfg, logger)
	}

	timeout := cfg.Web3Signer.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	remote, err := web3signer.NewClient(&web3signer.Config{
		BaseURL: cfg.Web3Signer.URL,
		Timeout: timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return transactionSigner.NewWeb3TransactionSigner(signerCfg, remote, timeout, logger)
}
