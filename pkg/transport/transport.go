package transport

import (
	"context"
	"time"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/Layr-Labs/bcos-web3-go/pkg/types"
)

// ReadOnlyModeHeader marks requests that do not mutate chain state so the
// node side may route them away from the consensus write path.
const (
	ReadOnlyModeHeader = "X-Request-Mode"
	ReadOnlyModeValue  = "read-only"
)

// IChannelTransport delivers one request envelope to one node and returns the
// decoded response. JSON-RPC error objects are returned inside the response;
// only delivery failures are errors.
type IChannelTransport interface {
	Dispatch(
		ctx context.Context,
		node peering.NodeEndpoint,
		auth *types.Authentication,
		envelope *types.RequestEnvelope,
		timeout time.Duration,
		mode types.Mode,
	) (*types.Response, error)
}

// RetryConfig configures retry behavior for read-only requests
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultReadOnlyRetry sends read-only requests once, like writes
var DefaultReadOnlyRetry = RetryConfig{
	MaxAttempts:     1,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      2 * time.Second,
	BackoffMultiple: 2.0,
}

func (r RetryConfig) attempts() int {
	if r.MaxAttempts < 1 {
		return 1
	}
	return r.MaxAttempts
}

func (r RetryConfig) nextBackoff(current time.Duration) time.Duration {
	multiple := r.BackoffMultiple
	if multiple < 1 {
		multiple = 1
	}
	next := time.Duration(float64(current) * multiple)
	if r.MaxBackoff > 0 && next > r.MaxBackoff {
		next = r.MaxBackoff
	}
	return next
}
