package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/bcos-web3-go/pkg/client"
	"github.com/Layr-Labs/bcos-web3-go/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bcos-client",
		Usage: "Query and transact against a FISCO BCOS node cluster",
		Description: `A command line client for a group partitioned FISCO BCOS chain.

This client can:
- Run every read method of the node JSON-RPC API
- Sign and submit contract calls bound to a fresh block limit
- Submit pre-signed transactions
- Compile and deploy Solidity contracts
- List the local journal of submitted transactions
- Wait for receipts and follow the chain height`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file; flags override its values",
				EnvVars: []string{config.EnvBCOSConfigFile},
			},
			&cli.StringSliceFlag{
				Name:    "nodes",
				Usage:   "Node endpoints as host:port",
				EnvVars: []string{config.EnvBCOSNodes},
			},
			&cli.StringFlag{
				Name:    "node-selection",
				Usage:   "Node selection policy (random, round-robin)",
				EnvVars: []string{config.EnvBCOSNodeSelection},
			},
			&cli.StringFlag{
				Name:    "account",
				Usage:   "Default signing account address",
				EnvVars: []string{config.EnvBCOSAccount},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Private key of the default signing account",
				EnvVars: []string{config.EnvBCOSPrivateKey},
			},
			&cli.Uint64Flag{
				Name:    "group-id",
				Usage:   "Target group",
				EnvVars: []string{config.EnvBCOSGroupID},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Usage:   "Chain ID embedded in signed transactions",
				EnvVars: []string{config.EnvBCOSChainID},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Per request timeout",
				EnvVars: []string{config.EnvBCOSTimeout},
			},
			&cli.StringFlag{
				Name:    "solc",
				Usage:   "Path of the solidity compiler",
				EnvVars: []string{config.EnvBCOSSolcPath},
			},
			&cli.StringFlag{
				Name:    "ca-cert",
				Usage:   "CA certificate of the node channel",
				EnvVars: []string{config.EnvBCOSCACert},
			},
			&cli.StringFlag{
				Name:    "cert",
				Usage:   "Client certificate of the node channel",
				EnvVars: []string{config.EnvBCOSCert},
			},
			&cli.StringFlag{
				Name:    "key",
				Usage:   "Client key of the node channel",
				EnvVars: []string{config.EnvBCOSKey},
			},
			&cli.StringFlag{
				Name:    "journal-type",
				Usage:   "Submission journal backend (memory, redis, badger)",
				EnvVars: []string{config.EnvBCOSJournalType},
			},
			&cli.StringFlag{
				Name:    "journal-path",
				Usage:   "Data directory of the badger journal",
				EnvVars: []string{config.EnvBCOSJournalPath},
			},
			&cli.StringFlag{
				Name:    "journal-redis",
				Usage:   "Redis address of the redis journal",
				EnvVars: []string{config.EnvBCOSJournalRedis},
			},
			&cli.StringFlag{
				Name:    "web3signer-url",
				Usage:   "Sign through this Web3Signer instead of local private keys",
				EnvVars: []string{config.EnvBCOSWeb3SignerURL},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address while the command runs",
				EnvVars: []string{config.EnvBCOSMetricsAddr},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvBCOSVerbose},
			},
		},
		Commands: append(queryCommands(), []*cli.Command{
			{
				Name:      "call",
				Usage:     "Run a constant contract call",
				ArgsUsage: "<to> <function> [params-json]",
				Action:    callCommand,
			},
			{
				Name:      "send-tx",
				Usage:     "Sign and submit a contract call",
				ArgsUsage: "<to> <function> [params-json]",
				Flags:     credentialFlags(),
				Action:    sendTransactionCommand,
			},
			{
				Name:      "send-raw",
				Usage:     "Submit a pre-signed transaction",
				ArgsUsage: "<payload>",
				Action:    sendRawCommand,
			},
			{
				Name:  "deploy",
				Usage: "Compile and deploy a contract",
				Flags: append(credentialFlags(),
					&cli.StringFlag{
						Name:     "contract",
						Usage:    "Path of the .sol source",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "output-dir",
						Usage: "Directory for compiler output",
						Value: "./output",
					},
				),
				Action: deployCommand,
			},
			{
				Name:  "journal",
				Usage: "Inspect submitted transactions",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List every journaled submission",
						Action: journalListCommand,
					},
					{
						Name:      "show",
						Usage:     "Show one submission",
						ArgsUsage: "<id>",
						Action:    journalShowCommand,
					},
				},
			},
			{
				Name:  "account",
				Usage: "Manage signing accounts",
				Subcommands: []*cli.Command{
					{
						Name:   "new",
						Usage:  "Generate a new account",
						Action: accountNewCommand,
					},
					{
						Name:   "list",
						Usage:  "List configured accounts",
						Action: accountListCommand,
					},
				},
			},
			{
				Name:      "wait-receipt",
				Usage:     "Wait until a transaction receipt is available",
				ArgsUsage: "<txHash>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Block height poll interval",
						Value: client.DefaultPollInterval,
					},
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "Give up after this long, 0 waits forever",
						Value: time.Minute,
					},
				},
				Action: waitReceiptCommand,
			},
			{
				Name:  "watch-blocks",
				Usage: "Print every new block height",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Block height poll interval",
						Value: client.DefaultPollInterval,
					},
					&cli.Uint64Flag{
						Name:  "count",
						Usage: "Stop after this many heights, 0 runs until interrupted",
					},
				},
				Action: watchBlocksCommand,
			},
			{
				Name:   "health",
				Usage:  "Check node connectivity and the journal",
				Action: healthCommand,
			},
		}...),
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "as",
			Usage: "Sign with a named account from the config",
		},
		&cli.StringFlag{
			Name:  "custom-account",
			Usage: "Sign with this account instead of the default",
		},
		&cli.StringFlag{
			Name:  "custom-private-key",
			Usage: "Private key of --custom-account",
		},
	}
}
