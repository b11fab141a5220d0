package peering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseNodeEndpoint(t *testing.T) {
	ep, err := ParseNodeEndpoint("127.0.0.1:20200")
	require.NoError(t, err)
	assert.Equal(t, NodeEndpoint{Host: "127.0.0.1", Port: 20200}, ep)
	assert.Equal(t, "127.0.0.1:20200", ep.String())

	ep, err = ParseNodeEndpoint("[::1]:8545")
	require.NoError(t, err)
	assert.Equal(t, "[::1]:8545", ep.String())

	for _, bad := range []string{"", "127.0.0.1", ":20200", "host:0", "host:70000", "host:abc"} {
		_, err := ParseNodeEndpoint(bad)
		assert.Error(t, err, bad)
	}
}

func Test_ParseNodeEndpoints(t *testing.T) {
	eps, err := ParseNodeEndpoints([]string{"a:1", "b:2"})
	require.NoError(t, err)
	assert.Len(t, eps, 2)

	_, err = ParseNodeEndpoints([]string{"a:1", "b"})
	assert.Error(t, err)
}
