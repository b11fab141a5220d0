package localNodePool

import (
	"sync"
	"testing"

	"github.com/Layr-Labs/bcos-web3-go/pkg/peering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testNodes(t *testing.T) []peering.NodeEndpoint {
	nodes, err := peering.ParseNodeEndpoints([]string{"127.0.0.1:20200", "127.0.0.1:20201", "10.0.0.5:20200"})
	require.NoError(t, err)
	return nodes
}

func Test_RoundRobinNodePool(t *testing.T) {
	nodes := testNodes(t)
	pool, err := NewRoundRobinNodePool(nodes, zaptest.NewLogger(t))
	require.NoError(t, err)

	for round := 0; round < 2; round++ {
		for _, expected := range nodes {
			assert.Equal(t, expected, pool.Select())
		}
	}
}

func Test_RoundRobinNodePool_Concurrent(t *testing.T) {
	nodes := testNodes(t)
	pool, err := NewRoundRobinNodePool(nodes, zaptest.NewLogger(t))
	require.NoError(t, err)

	var mu sync.Mutex
	counts := make(map[peering.NodeEndpoint]int)
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := pool.Select()
			mu.Lock()
			counts[n]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, n := range nodes {
		assert.Equal(t, 10, counts[n], "node %s", n)
	}
}

func Test_RandomNodePool(t *testing.T) {
	nodes := testNodes(t)
	pool, err := NewRandomNodePool(nodes, zaptest.NewLogger(t))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Contains(t, nodes, pool.Select())
	}
}

func Test_EmptyPoolIsRejected(t *testing.T) {
	_, err := NewRandomNodePool(nil, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = NewRoundRobinNodePool([]peering.NodeEndpoint{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func Test_NewNodePool(t *testing.T) {
	nodes := testNodes(t)
	l := zaptest.NewLogger(t)

	pool, err := NewNodePool("", nodes, l)
	require.NoError(t, err)
	assert.IsType(t, &RandomNodePool{}, pool)

	pool, err = NewNodePool(peering.SelectionPolicy_RoundRobin, nodes, l)
	require.NoError(t, err)
	assert.IsType(t, &RoundRobinNodePool{}, pool)

	_, err = NewNodePool("weighted", nodes, l)
	assert.Error(t, err)
}

func Test_PoolDoesNotAliasInput(t *testing.T) {
	nodes := testNodes(t)
	pool, err := NewRoundRobinNodePool(nodes, zaptest.NewLogger(t))
	require.NoError(t, err)

	nodes[0].Host = "changed"
	assert.Equal(t, "127.0.0.1", pool.Select().Host)
}
