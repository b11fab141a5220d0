package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/bcos-web3-go/pkg/clientErrors"
	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

const maxResponseBytes = 32 << 20

// HTTPTransportConfig configures an HTTPChannelTransport
type HTTPTransportConfig struct {
	// RequestsPerSecond limits requests per node; 0 disables the limit
	RequestsPerSecond float64

	// ReadOnlyRetry applies to read-only requests only. Writes are sent once.
	ReadOnlyRetry RetryConfig

	// Metrics is optional
	Metrics *Metrics
}

// HTTPChannelTransport posts JSON-RPC envelopes to nodes over HTTP, or HTTPS
// with client certificates when authentication is configured.
type HTTPChannelTransport struct {
	config *HTTPTransportConfig
	logger *zap.Logger

	mu       sync.Mutex
	clients  map[types.Authentication]*http.Client
	limiters map[string]*rate.Limiter
}

// NewHTTPChannelTransport creates a transport; a nil config uses the defaults
func NewHTTPChannelTransport(cfg *HTTPTransportConfig, logger *zap.Logger) *HTTPChannelTransport {
	if cfg == nil {
		cfg = &HTTPTransportConfig{}
	}
	if cfg.ReadOnlyRetry == (RetryConfig{}) {
		cfg.ReadOnlyRetry = DefaultReadOnlyRetry
	}
	return &HTTPChannelTransport{
		config:   cfg,
		logger:   logger,
		clients:  make(map[types.Authentication]*http.Client),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Dispatch sends envelope to node and decodes the response. Delivery failures,
// timeouts and undecodable bodies are transport errors.
func (t *HTTPChannelTransport) Dispatch(
	ctx context.Context,
	node peering.NodeEndpoint,
	auth *types.Authentication,
	envelope *types.RequestEnvelope,
	timeout time.Duration,
	mode types.Mode,
) (*types.Response, error) {
	const op = "dispatch"
	if envelope == nil {
		return nil, clientErrors.NewTransportError(op, fmt.Errorf("request envelope cannot be nil"))
	}
	if auth == nil {
		auth = &types.Authentication{}
	}

	client, err := t.clientFor(*auth)
	if err != nil {
		return nil, clientErrors.NewTransportError(op, err)
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, clientErrors.NewTransportError(op, fmt.Errorf("failed to marshal request: %w", err))
	}

	url := buildRequestURL(node, auth)
	attempts := 1
	if mode == types.ModeReadOnly {
		attempts = t.config.ReadOnlyRetry.attempts()
	}

	start := time.Now()
	backoff := t.config.ReadOnlyRetry.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := t.wait(ctx, node); err != nil {
			lastErr = fmt.Errorf("rate limiter: %w", err)
			break
		}

		resp, err := t.post(ctx, client, url, body, timeout, mode)
		if err == nil {
			t.observe(envelope.Method, mode, resp, start)
			t.logger.Sugar().Debugw("Dispatched request",
				zap.String("method", envelope.Method),
				zap.String("node", node.String()),
				zap.String("mode", mode.String()),
				zap.Bool("rpcError", resp.Error != nil),
			)
			return resp, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			t.logger.Sugar().Warnw("Read-only request failed, retrying",
				zap.String("method", envelope.Method),
				zap.String("node", node.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				attempt = attempts
			case <-time.After(backoff):
			}
			backoff = t.config.ReadOnlyRetry.nextBackoff(backoff)
		}
	}

	t.observe(envelope.Method, mode, nil, start)
	return nil, clientErrors.NewTransportError(op, fmt.Errorf("%s to %s: %w", envelope.Method, node.String(), lastErr))
}

func (t *HTTPChannelTransport) post(
	ctx context.Context,
	client *http.Client,
	url string,
	body []byte,
	timeout time.Duration,
	mode types.Mode,
) (*types.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if mode == types.ModeReadOnly {
		req.Header.Set(ReadOnlyModeHeader, ReadOnlyModeValue)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out types.Response
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if out.Error == nil && len(out.Result) == 0 && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return &out, nil
}

func (t *HTTPChannelTransport) observe(method string, mode types.Mode, resp *types.Response, start time.Time) {
	m := t.config.Metrics
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	switch {
	case resp == nil:
		outcome = outcomeTransportError
	case resp.Error != nil:
		outcome = outcomeRPCError
	}
	m.Requests.WithLabelValues(method, mode.String(), outcome).Inc()
	m.Duration.WithLabelValues(method, mode.String()).Observe(time.Since(start).Seconds())
}

func (t *HTTPChannelTransport) wait(ctx context.Context, node peering.NodeEndpoint) error {
	limiter := t.limiterFor(node)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (t *HTTPChannelTransport) limiterFor(node peering.NodeEndpoint) *rate.Limiter {
	if t.config.RequestsPerSecond <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := node.String()
	limiter, ok := t.limiters[key]
	if !ok {
		burst := int(t.config.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(t.config.RequestsPerSecond), burst)
		t.limiters[key] = limiter
	}
	return limiter
}

func (t *HTTPChannelTransport) clientFor(auth types.Authentication) (*http.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if client, ok := t.clients[auth]; ok {
		return client, nil
	}

	client := &http.Client{}
	if !auth.IsZero() {
		tlsConfig, err := newTLSConfig(auth)
		if err != nil {
			return nil, err
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConfig
		client.Transport = transport
	}
	t.clients[auth] = client
	return client, nil
}

func newTLSConfig(auth types.Authentication) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if auth.CACert != "" {
		caCert, err := os.ReadFile(auth.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA certificate from %s", auth.CACert)
		}
		tlsConfig.RootCAs = pool
	}

	if auth.Cert != "" || auth.Key != "" {
		cert, err := tls.LoadX509KeyPair(auth.Cert, auth.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// buildRequestURL constructs the URL of a node endpoint
func buildRequestURL(node peering.NodeEndpoint, auth *types.Authentication) string {
	scheme := "http"
	if auth != nil && !auth.IsZero() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, node.String())
}
