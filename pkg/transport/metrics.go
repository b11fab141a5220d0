package transport

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess        = "success"
	outcomeRPCError       = "rpc_error"
	outcomeTransportError = "transport_error"
)

// Metrics are the request counters and latency histograms of a transport.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the transport collectors and registers them with reg when
// it is non-nil. Collectors already registered by another transport are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bcos_client_requests_total",
			Help: "Total number of requests dispatched to nodes",
		},
		[]string{"method", "mode", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bcos_client_request_duration_seconds",
			Help:    "Duration of requests dispatched to nodes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "mode"},
	)
	if reg == nil {
		return &Metrics{Requests: requests, Duration: duration}, nil
	}

	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		requests = existing
	}
	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		duration = existing
	}
	return &Metrics{Requests: requests, Duration: duration}, nil
}
