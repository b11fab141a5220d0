package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/bcos-web3-go/pkg/client"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
	"github.com/Layr-Labs/bcos-web3-go/pkg/keystore"
	"github.com/Layr-Labs/bcos-web3-go/pkg/logger"
	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/query"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// buildConfig loads --config when given and applies every flag that was set
// on top of it.
func buildConfig(c *cli.Context) (*config.ClientConfig, error) {
	cfg := config.NewDefaultClientConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("nodes") {
		cfg.Nodes = c.StringSlice("nodes")
	}
	if c.IsSet("node-selection") {
		cfg.NodeSelection = peering.SelectionPolicy(c.String("node-selection"))
	}
	if c.IsSet("account") {
		cfg.Account = c.String("account")
	}
	if c.IsSet("private-key") {
		cfg.PrivateKey = c.String("private-key")
	}
	if c.IsSet("group-id") {
		cfg.GroupID = c.Uint64("group-id")
	}
	if c.IsSet("chain-id") {
		cfg.ChainID = c.Uint64("chain-id")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("solc") {
		cfg.Solc = c.String("solc")
	}
	if c.IsSet("ca-cert") {
		cfg.Authentication.CACert = c.String("ca-cert")
	}
	if c.IsSet("cert") {
		cfg.Authentication.Cert = c.String("cert")
	}
	if c.IsSet("key") {
		cfg.Authentication.Key = c.String("key")
	}
	if c.IsSet("journal-type") {
		cfg.Journal.Type = config.JournalType(c.String("journal-type"))
	}
	if c.IsSet("journal-path") {
		cfg.Journal.DataPath = c.String("journal-path")
	}
	if c.IsSet("journal-redis") {
		if cfg.Journal.Redis == nil {
			cfg.Journal.Redis = &config.RedisJournalConfig{}
		}
		cfg.Journal.Redis.Address = c.String("journal-redis")
	}
	if c.IsSet("web3signer-url") {
		if cfg.Web3Signer == nil {
			cfg.Web3Signer = &config.Web3SignerConfig{}
		}
		cfg.Web3Signer.URL = c.String("web3signer-url")
	}
	if c.IsSet("verbose") {
		cfg.Debug = c.Bool("verbose")
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// createClient builds a client from the CLI context. The returned cleanup
// closes the client and stops the metrics server.
func createClient(c *cli.Context) (*client.Client, func(), error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var opts []client.Option
	var server *http.Server
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, client.WithMetricsRegisterer(reg))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				l.Sugar().Errorw("Metrics server failed", zap.Error(err))
			}
		}()
	}

	bcos, err := client.NewClient(cfg, l, opts...)
	if err != nil {
		if server != nil {
			_ = server.Close()
		}
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	cleanup := func() {
		if err := bcos.Close(); err != nil {
			l.Sugar().Warnw("Failed to close client", zap.Error(err))
		}
		if server != nil {
			_ = server.Close()
		}
		_ = l.Sync()
	}
	return bcos, cleanup, nil
}

// withClient runs fn against a client created from c.
func withClient(c *cli.Context, fn func(ctx context.Context, bcos *client.Client) error) error {
	bcos, cleanup, err := createClient(c)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(c.Context, bcos)
}

// printResponse writes the result of resp, or fails with the node's error.
func printResponse(c *cli.Context, resp *types.Response) error {
	if err := resp.Err(); err != nil {
		return fmt.Errorf("node returned an error: %w", err)
	}
	return printJSON(c, resp.Result)
}

func printJSON(c *cli.Context, v interface{}) error {
	var raw []byte
	switch value := v.(type) {
	case json.RawMessage:
		raw = value
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		raw = encoded
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("malformed result: %w", err)
	}
	_, err := fmt.Fprintln(c.App.Writer, out.String())
	return err
}

// parseParams decodes a JSON argument list. Numbers stay json.Number so
// large integers keep their precision.
func parseParams(s string) (interface{}, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var params interface{}
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("params must be JSON: %w", err)
	}
	return params, nil
}

// resolveCredentials picks --custom-account/--custom-private-key, then --as,
// then the default account. With a Web3Signer the private key is optional.
func resolveCredentials(c *cli.Context, bcos *client.Client) (types.Credentials, error) {
	account, key := c.String("custom-account"), c.String("custom-private-key")
	if account != "" || key != "" {
		cfg, err := bcos.Config()
		if err != nil {
			return types.Credentials{}, err
		}
		if account == "" || (key == "" && cfg.Web3Signer == nil) {
			return types.Credentials{}, fmt.Errorf("--custom-account and --custom-private-key must be used together")
		}
		return types.Credentials{Account: account, PrivateKey: key}, nil
	}
	keys, err := bcos.Accounts()
	if err != nil {
		return types.Credentials{}, err
	}
	return keys.Get(c.String("as"))
}

// readMethod describes one read command.
type readMethod struct {
	name string
	args []string
	run  func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error)
}

func noArgs(fn func(*query.Dispatcher, context.Context) (*types.Response, error)) func(context.Context, *query.Dispatcher, []string) (*types.Response, error) {
	return func(ctx context.Context, q *query.Dispatcher, _ []string) (*types.Response, error) {
		return fn(q, ctx)
	}
}

func parseIncludeTransactions(s string) (bool, error) {
	include, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("include-transactions must be true or false: %w", err)
	}
	return include, nil
}

var readMethods = []readMethod{
	{name: query.MethodGetBlockNumber, run: noArgs((*query.Dispatcher).GetBlockNumber)},
	{name: query.MethodGetPbftView, run: noArgs((*query.Dispatcher).GetPbftView)},
	{name: query.MethodGetObserverList, run: noArgs((*query.Dispatcher).GetObserverList)},
	{name: query.MethodGetSealerList, run: noArgs((*query.Dispatcher).GetSealerList)},
	{name: query.MethodGetConsensusStatus, run: noArgs((*query.Dispatcher).GetConsensusStatus)},
	{name: query.MethodGetSyncStatus, run: noArgs((*query.Dispatcher).GetSyncStatus)},
	{name: query.MethodGetClientVersion, run: noArgs((*query.Dispatcher).GetClientVersion)},
	{name: query.MethodGetPeers, run: noArgs((*query.Dispatcher).GetPeers)},
	{name: query.MethodGetNodeIDList, run: noArgs((*query.Dispatcher).GetNodeIDList)},
	{name: query.MethodGetGroupPeers, run: noArgs((*query.Dispatcher).GetGroupPeers)},
	{name: query.MethodGetGroupList, run: noArgs((*query.Dispatcher).GetGroupList)},
	{name: query.MethodGetPendingTransactions, run: noArgs((*query.Dispatcher).GetPendingTransactions)},
	{name: query.MethodGetPendingTxSize, run: noArgs((*query.Dispatcher).GetPendingTxSize)},
	{name: query.MethodGetTotalTransactionCount, run: noArgs((*query.Dispatcher).GetTotalTransactionCount)},
	{
		name: query.MethodGetBlockByHash,
		args: []string{"block-hash", "include-transactions"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			include, err := parseIncludeTransactions(args[1])
			if err != nil {
				return nil, err
			}
			return q.GetBlockByHash(ctx, args[0], include)
		},
	},
	{
		name: query.MethodGetBlockByNumber,
		args: []string{"block-number", "include-transactions"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			include, err := parseIncludeTransactions(args[1])
			if err != nil {
				return nil, err
			}
			return q.GetBlockByNumber(ctx, args[0], include)
		},
	},
	{
		name: query.MethodGetBlockHashByNumber,
		args: []string{"block-number"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetBlockHashByNumber(ctx, args[0])
		},
	},
	{
		name: query.MethodGetTransactionByHash,
		args: []string{"transaction-hash"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetTransactionByHash(ctx, args[0])
		},
	},
	{
		name: query.MethodGetTransactionByBlockHashAndIndex,
		args: []string{"block-hash", "transaction-index"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetTransactionByBlockHashAndIndex(ctx, args[0], args[1])
		},
	},
	{
		name: query.MethodGetTransactionByBlockNumberAndIndex,
		args: []string{"block-number", "transaction-index"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetTransactionByBlockNumberAndIndex(ctx, args[0], args[1])
		},
	},
	{
		name: query.MethodGetTransactionReceipt,
		args: []string{"transaction-hash"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetTransactionReceipt(ctx, args[0])
		},
	},
	{
		name: query.MethodGetCode,
		args: []string{"address"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetCode(ctx, args[0])
		},
	},
	{
		name: query.MethodGetSystemConfigByKey,
		args: []string{"key"},
		run: func(ctx context.Context, q *query.Dispatcher, args []string) (*types.Response, error) {
			return q.GetSystemConfigByKey(ctx, args[0])
		},
	},
}

// queryCommands turns every read method into a command named after it.
func queryCommands() []*cli.Command {
	commands := make([]*cli.Command, 0, len(readMethods))
	for _, m := range readMethods {
		m := m
		usage := make([]string, len(m.args))
		for i, a := range m.args {
			usage[i] = "<" + a + ">"
		}
		commands = append(commands, &cli.Command{
			Name:      m.name,
			Usage:     "Run " + m.name,
			ArgsUsage: strings.Join(usage, " "),
			Category:  "queries",
			Action: func(c *cli.Context) error {
				if c.NArg() != len(m.args) {
					return fmt.Errorf("%s expects %d argument(s), got %d", m.name, len(m.args), c.NArg())
				}
				return withClient(c, func(ctx context.Context, bcos *client.Client) error {
					q, err := bcos.Query()
					if err != nil {
						return err
					}
					resp, err := m.run(ctx, q, c.Args().Slice())
					if err != nil {
						return err
					}
					return printResponse(c, resp)
				})
			},
		})
	}
	return commands
}

func callCommand(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return fmt.Errorf("call expects <to> <function> [params-json]")
	}
	params, err := parseParams(c.Args().Get(2))
	if err != nil {
		return err
	}
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		resp, err := bcos.Call(ctx, c.Args().Get(0), c.Args().Get(1), params)
		if err != nil {
			return err
		}
		return printResponse(c, resp)
	})
}

func sendTransactionCommand(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return fmt.Errorf("send-tx expects <to> <function> [params-json]")
	}
	params, err := parseParams(c.Args().Get(2))
	if err != nil {
		return err
	}
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		creds, err := resolveCredentials(c, bcos)
		if err != nil {
			return err
		}
		resp, err := bcos.SendTransactionWithCredentials(ctx, creds, c.Args().Get(0), c.Args().Get(1), params)
		if err != nil {
			return err
		}
		return printResponse(c, resp)
	})
}

func sendRawCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("send-raw expects <payload>")
	}
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		resp, err := bcos.SendRawTransaction(ctx, types.SignedPayload(c.Args().First()))
		if err != nil {
			return err
		}
		return printResponse(c, resp)
	})
}

func deployCommand(c *cli.Context) error {
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		creds, err := resolveCredentials(c, bcos)
		if err != nil {
			return err
		}
		resp, err := bcos.DeployWithCredentials(ctx, creds, c.String("contract"), c.String("output-dir"))
		if err != nil {
			return err
		}
		return printResponse(c, resp)
	})
}

func journalListCommand(c *cli.Context) error {
	return withClient(c, func(_ context.Context, bcos *client.Client) error {
		records, err := bcos.Submissions()
		if err != nil {
			return err
		}
		return printJSON(c, records)
	})
}

func journalShowCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("journal show expects <id>")
	}
	return withClient(c, func(_ context.Context, bcos *client.Client) error {
		record, err := bcos.Submission(c.Args().First())
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("no submission %s", c.Args().First())
		}
		return printJSON(c, record)
	})
}

func accountNewCommand(c *cli.Context) error {
	creds, err := keystore.GenerateAccount()
	if err != nil {
		return err
	}
	return printJSON(c, creds)
}

func accountListCommand(c *cli.Context) error {
	return withClient(c, func(_ context.Context, bcos *client.Client) error {
		keys, err := bcos.Accounts()
		if err != nil {
			return err
		}
		accounts := map[string]string{keystore.DefaultAccountName: keys.GetDefault().Account}
		for _, name := range keys.Names() {
			creds, err := keys.Get(name)
			if err != nil {
				return err
			}
			accounts[name] = creds.Account
		}
		return printJSON(c, accounts)
	})
}

func healthCommand(c *cli.Context) error {
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		if err := bcos.HealthCheck(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(c.App.Writer, "ok")
		return err
	})
}

func waitReceiptCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <txHash>")
	}
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		if wait := c.Duration("wait"); wait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, wait)
			defer cancel()
		}
		resp, err := bcos.WaitForReceipt(ctx, c.Args().Get(0), c.Duration("interval"))
		if err != nil {
			return err
		}
		return printResponse(c, resp)
	})
}

func watchBlocksCommand(c *cli.Context) error {
	return withClient(c, func(ctx context.Context, bcos *client.Client) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		limit := c.Uint64("count")
		var seen uint64
		err := bcos.WatchBlocks(ctx, c.Duration("interval"), func(height uint64) {
			_, _ = fmt.Fprintln(c.App.Writer, height)
			seen++
			if limit > 0 && seen >= limit {
				cancel()
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
