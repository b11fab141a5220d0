package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// Environment variable names for client configuration
const (
	EnvBCOSConfigFile    = "BCOS_CONFIG_FILE"
	EnvBCOSNodes         = "BCOS_NODES"
	EnvBCOSAccount       = "BCOS_ACCOUNT"
	EnvBCOSPrivateKey    = "BCOS_PRIVATE_KEY"
	EnvBCOSGroupID       = "BCOS_GROUP_ID"
	EnvBCOSChainID       = "BCOS_CHAIN_ID"
	EnvBCOSTimeout       = "BCOS_TIMEOUT"
	EnvBCOSSolcPath      = "BCOS_SOLC_PATH"
	EnvBCOSCACert        = "BCOS_CA_CERT"
	EnvBCOSCert          = "BCOS_CERT"
	EnvBCOSKey           = "BCOS_KEY"
	EnvBCOSVerbose       = "BCOS_VERBOSE"
	EnvBCOSMetricsAddr   = "BCOS_METRICS_ADDR"
	EnvBCOSJournalType   = "BCOS_JOURNAL_TYPE"
	EnvBCOSJournalPath   = "BCOS_JOURNAL_PATH"
	EnvBCOSJournalRedis  = "BCOS_JOURNAL_REDIS_ADDR"
	EnvBCOSNodeSelection = "BCOS_NODE_SELECTION"
	EnvBCOSWeb3SignerURL = "BCOS_WEB3SIGNER_URL"
)

const (
	DefaultGroupID  uint64 = 1
	DefaultChainID  uint64 = 1
	DefaultTimeout         = 10 * time.Second
	DefaultSolcPath        = "solc"
)

type JournalType string

const (
	JournalType_None   JournalType = ""
	JournalType_Memory JournalType = "memory"
	JournalType_Redis  JournalType = "redis"
	JournalType_Badger JournalType = "badger"
)

// RedisJournalConfig is the redis connection used by the submission journal.
type RedisJournalConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// JournalConfig selects where dispatched submissions are recorded.
type JournalConfig struct {
	Type     JournalType         `json:"type" yaml:"type"`
	DataPath string              `json:"dataPath" yaml:"dataPath"`
	Redis    *RedisJournalConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// Web3SignerConfig points signing at a remote Web3Signer. When set, accounts
// do not need local private keys.
type Web3SignerConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ClientConfig is the complete client configuration. Services take a Clone of
// it at construction and never observe later changes to the original.
type ClientConfig struct {
	// Nodes are "host:port" endpoints of the cluster
	Nodes         []string                `json:"nodes" yaml:"nodes"`
	NodeSelection peering.SelectionPolicy `json:"nodeSelection" yaml:"nodeSelection"`

	// Default signing account
	Account    string `json:"account" yaml:"account"`
	PrivateKey string `json:"privateKey" yaml:"privateKey"`

	// Additional named accounts usable for custom credential submissions
	Accounts map[string]types.Credentials `json:"accounts,omitempty" yaml:"accounts,omitempty"`

	GroupID uint64        `json:"groupID" yaml:"groupID"`
	ChainID uint64        `json:"chainID" yaml:"chainID"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Authentication types.Authentication `json:"authentication" yaml:"authentication"`

	// Solc is the path of the solidity compiler used by deploy
	Solc string `json:"solc" yaml:"solc"`

	// RequestsPerSecond limits outbound requests per node, 0 disables the limit
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`

	Journal JournalConfig `json:"journal" yaml:"journal"`

	Web3Signer *Web3SignerConfig `json:"web3Signer,omitempty" yaml:"web3Signer,omitempty"`

	Debug bool `json:"debug" yaml:"debug"`
}

// NewDefaultClientConfig returns a config with every optional field defaulted.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		NodeSelection: peering.SelectionPolicy_Random,
		GroupID:       DefaultGroupID,
		ChainID:       DefaultChainID,
		Timeout:       DefaultTimeout,
		Solc:          DefaultSolcPath,
	}
}

// ApplyDefaults fills zero valued optional fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.NodeSelection == "" {
		c.NodeSelection = peering.SelectionPolicy_Random
	}
	if c.GroupID == 0 {
		c.GroupID = DefaultGroupID
	}
	if c.ChainID == 0 {
		c.ChainID = DefaultChainID
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Solc == "" {
		c.Solc = DefaultSolcPath
	}
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	var allErrors field.ErrorList

	nodesPath := field.NewPath("nodes")
	if len(c.Nodes) == 0 {
		allErrors = append(allErrors, field.Required(nodesPath, "at least one node is required"))
	}
	for i, n := range c.Nodes {
		if _, err := peering.ParseNodeEndpoint(n); err != nil {
			allErrors = append(allErrors, field.Invalid(nodesPath.Index(i), n, err.Error()))
		}
	}

	switch c.NodeSelection {
	case "", peering.SelectionPolicy_Random, peering.SelectionPolicy_RoundRobin:
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("nodeSelection"), c.NodeSelection,
			[]string{peering.SelectionPolicy_Random.String(), peering.SelectionPolicy_RoundRobin.String()}))
	}

	requireKey := c.Web3Signer == nil
	allErrors = append(allErrors, validateCredentials(field.NewPath("account"), field.NewPath("privateKey"), c.Account, c.PrivateKey, requireKey)...)
	for name, creds := range c.Accounts {
		p := field.NewPath("accounts").Key(name)
		allErrors = append(allErrors, validateCredentials(p.Child("account"), p.Child("privateKey"), creds.Account, creds.PrivateKey, requireKey)...)
	}
	if c.Web3Signer != nil {
		allErrors = append(allErrors, c.Web3Signer.validate(field.NewPath("web3Signer"))...)
	}

	if c.Timeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("timeout"), c.Timeout.String(), "timeout cannot be negative"))
	}
	if c.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestsPerSecond"), c.RequestsPerSecond, "cannot be negative"))
	}

	authPath := field.NewPath("authentication")
	if (c.Authentication.Cert == "") != (c.Authentication.Key == "") {
		allErrors = append(allErrors, field.Invalid(authPath, "", "cert and key must be provided together"))
	}

	allErrors = append(allErrors, c.Journal.validate(field.NewPath("journal"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (jc *JournalConfig) validate(p *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch jc.Type {
	case JournalType_None, JournalType_Memory:
	case JournalType_Badger:
		if jc.DataPath == "" {
			allErrors = append(allErrors, field.Required(p.Child("dataPath"), "dataPath is required for the badger journal"))
		}
	case JournalType_Redis:
		if jc.Redis == nil || jc.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(p.Child("redis", "address"), "redis address is required for the redis journal"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(p.Child("type"), jc.Type,
			[]string{string(JournalType_Memory), string(JournalType_Redis), string(JournalType_Badger)}))
	}
	return allErrors
}

func (wc *Web3SignerConfig) validate(p *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if wc.URL == "" {
		allErrors = append(allErrors, field.Required(p.Child("url"), "url is required"))
	} else if !strings.HasPrefix(wc.URL, "http://") && !strings.HasPrefix(wc.URL, "https://") {
		allErrors = append(allErrors, field.Invalid(p.Child("url"), wc.URL, "url must be http or https"))
	}
	if wc.Timeout < 0 {
		allErrors = append(allErrors, field.Invalid(p.Child("timeout"), wc.Timeout.String(), "timeout cannot be negative"))
	}
	return allErrors
}

// validateCredentials checks an account and its key. The key may be omitted
// when requireKey is false, but a present key must still be well formed.
func validateCredentials(accountPath, keyPath *field.Path, account, privateKey string, requireKey bool) field.ErrorList {
	var allErrors field.ErrorList
	if account == "" {
		allErrors = append(allErrors, field.Required(accountPath, "account is required"))
	} else if !common.IsHexAddress(account) {
		allErrors = append(allErrors, field.Invalid(accountPath, account, "invalid account address format"))
	}

	if privateKey == "" {
		if requireKey {
			allErrors = append(allErrors, field.Required(keyPath, "private key is required"))
		}
		return allErrors
	}
	key := privateKey
	if !strings.HasPrefix(key, "0x") {
		key = "0x" + key
	}
	if len(key) != 66 { // 0x + 64 hex chars
		allErrors = append(allErrors, field.Invalid(keyPath, "<redacted>",
			fmt.Sprintf("private key must be 32 bytes (64 hex chars), got %d chars", len(key)-2)))
	}
	return allErrors
}

// DefaultCredentials returns the default signing account.
func (c *ClientConfig) DefaultCredentials() types.Credentials {
	return types.Credentials{
		Account:    c.Account,
		PrivateKey: c.PrivateKey,
	}
}

// NodeEndpoints parses the configured nodes.
func (c *ClientConfig) NodeEndpoints() ([]peering.NodeEndpoint, error) {
	return peering.ParseNodeEndpoints(c.Nodes)
}

// Clone returns a deep copy, used as the immutable snapshot held by services.
func (c *ClientConfig) Clone() *ClientConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Nodes = append([]string(nil), c.Nodes...)
	if c.Accounts != nil {
		clone.Accounts = make(map[string]types.Credentials, len(c.Accounts))
		for k, v := range c.Accounts {
			clone.Accounts[k] = v
		}
	}
	if c.Journal.Redis != nil {
		redisCfg := *c.Journal.Redis
		clone.Journal.Redis = &redisCfg
	}
	if c.Web3Signer != nil {
		signerCfg := *c.Web3Signer
		clone.Web3Signer = &signerCfg
	}
	return &clone
}

// LoadConfigFromFile reads a YAML config file and applies defaults. Relative
// certificate paths are resolved against the directory of the file.
func LoadConfigFromFile(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	cfg.Authentication.CACert = resolvePath(baseDir, cfg.Authentication.CACert)
	cfg.Authentication.Cert = resolvePath(baseDir, cfg.Authentication.Cert)
	cfg.Authentication.Key = resolvePath(baseDir, cfg.Authentication.Key)
	return cfg, nil
}

// ParseConfig decodes YAML bytes and applies defaults.
func ParseConfig(data []byte) (*ClientConfig, error) {
	cfg := NewDefaultClientConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
