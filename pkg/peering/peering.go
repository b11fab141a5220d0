package peering

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NodeEndpoint identifies one configured node. It is never mutated after parsing.
type NodeEndpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n NodeEndpoint) String() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// ParseNodeEndpoint parses "host:port".
func ParseNodeEndpoint(s string) (NodeEndpoint, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return NodeEndpoint{}, fmt.Errorf("invalid node endpoint %q: %w", s, err)
	}
	if host == "" {
		return NodeEndpoint{}, fmt.Errorf("invalid node endpoint %q: empty host", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return NodeEndpoint{}, fmt.Errorf("invalid node endpoint %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return NodeEndpoint{}, fmt.Errorf("invalid node endpoint %q: port must be between 1-65535", s)
	}
	return NodeEndpoint{Host: host, Port: port}, nil
}

// ParseNodeEndpoints parses every entry of nodes, failing on the first bad one.
func ParseNodeEndpoints(nodes []string) ([]NodeEndpoint, error) {
	endpoints := make([]NodeEndpoint, 0, len(nodes))
	for _, n := range nodes {
		ep, err := ParseNodeEndpoint(n)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// SelectionPolicy names a node selection strategy.
type SelectionPolicy string

const (
	SelectionPolicy_Random     SelectionPolicy = "random"
	SelectionPolicy_RoundRobin SelectionPolicy = "round-robin"
)

func (s SelectionPolicy) String() string {
	return string(s)
}

// INodePool returns one endpoint per outbound request. Select never blocks and
// never fails; pools refuse to be constructed over an empty node list.
type INodePool interface {
	Select() NodeEndpoint
	Nodes() []NodeEndpoint
}
