package localNodePool

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"go.uber.org/zap"
)

var errNoNodes = errors.New("node pool requires at least one node")

// RoundRobinNodePool hands out the configured nodes in order.
type RoundRobinNodePool struct {
	nodes  []peering.NodeEndpoint
	next   atomic.Uint64
	logger *zap.Logger
}

func NewRoundRobinNodePool(nodes []peering.NodeEndpoint, logger *zap.Logger) (*RoundRobinNodePool, error) {
	if len(nodes) == 0 {
		return nil, errNoNodes
	}
	return &RoundRobinNodePool{
		nodes:  copyNodes(nodes),
		logger: logger,
	}, nil
}

func (p *RoundRobinNodePool) Select() peering.NodeEndpoint {
	i := p.next.Add(1) - 1
	node := p.nodes[i%uint64(len(p.nodes))]
	p.logger.Sugar().Debugw("Selected node", "node", node.String(), "policy", peering.SelectionPolicy_RoundRobin)
	return node
}

func (p *RoundRobinNodePool) Nodes() []peering.NodeEndpoint {
	return copyNodes(p.nodes)
}

// RandomNodePool picks a uniformly random node on every call.
type RandomNodePool struct {
	nodes  []peering.NodeEndpoint
	logger *zap.Logger
}

func NewRandomNodePool(nodes []peering.NodeEndpoint, logger *zap.Logger) (*RandomNodePool, error) {
	if len(nodes) == 0 {
		return nil, errNoNodes
	}
	return &RandomNodePool{
		nodes:  copyNodes(nodes),
		logger: logger,
	}, nil
}

func (p *RandomNodePool) Select() peering.NodeEndpoint {
	node := p.nodes[rand.IntN(len(p.nodes))]
	p.logger.Sugar().Debugw("Selected node", "node", node.String(), "policy", peering.SelectionPolicy_Random)
	return node
}

func (p *RandomNodePool) Nodes() []peering.NodeEndpoint {
	return copyNodes(p.nodes)
}

// NewNodePool builds the pool for the given policy. An empty policy means random.
func NewNodePool(policy peering.SelectionPolicy, nodes []peering.NodeEndpoint, logger *zap.Logger) (peering.INodePool, error) {
	switch policy {
	case "", peering.SelectionPolicy_Random:
		return NewRandomNodePool(nodes, logger)
	case peering.SelectionPolicy_RoundRobin:
		return NewRoundRobinNodePool(nodes, logger)
	default:
		return nil, fmt.Errorf("unsupported node selection policy: %s", policy)
	}
}

func copyNodes(nodes []peering.NodeEndpoint) []peering.NodeEndpoint {
	out := make([]peering.NodeEndpoint, len(nodes))
	copy(out, nodes)
	return out
}
