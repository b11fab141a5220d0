package web3signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL string        `json:"baseURL" yaml:"baseURL"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:9000",
		Timeout: 10 * time.Second,
	}
}

// Client talks to a Web3Signer service over HTTP.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.RWMutex
	httpClient *http.Client
}

// NewClient creates a client; a nil config uses DefaultConfig.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("web3signer base URL cannot be empty")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid web3signer base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("web3signer base URL must be http or https, got %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	return &Client{
		baseURL:    base,
		timeout:    timeout,
		logger:     logger,
		httpClient: &http.Client{},
	}, nil
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = client
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) EthAccounts(ctx context.Context) ([]string, error) {
	body, err := json.Marshal(&jsonRPCRequest{JSONRPC: "2.0", Method: "eth_accounts", Params: []interface{}{}, ID: 1})
	if err != nil {
		return nil, err
	}
	raw, err := c.post(ctx, c.baseURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("eth_accounts failed: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed eth_accounts response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("eth_accounts error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	var accounts []string
	if err := json.Unmarshal(resp.Result, &accounts); err != nil {
		return nil, fmt.Errorf("malformed eth_accounts result: %w", err)
	}
	return accounts, nil
}

func (c *Client) SignRaw(ctx context.Context, identifier string, data []byte) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("signing identifier cannot be empty")
	}
	body, err := json.Marshal(map[string]string{"data": hexutil.Encode(data)})
	if err != nil {
		return "", err
	}
	endpoint := c.baseURL.JoinPath("api", "v1", "eth1", "sign", identifier).String()

	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to sign with %s: %w", identifier, err)
	}

	// the signature comes back as text/plain; tolerate a JSON string too
	signature := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if !strings.HasPrefix(signature, "0x") {
		return "", fmt.Errorf("unexpected signature format %q", signature)
	}
	c.logger.Sugar().Debugw("Signed with web3signer", zap.String("identifier", identifier))
	return signature, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	httpClient := c.httpClient
	c.mu.RUnlock()

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web3signer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
