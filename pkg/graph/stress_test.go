package graph

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreChaos builds a large cyclic network, then deletes nodes while
// readers walk it. The store must stay consistent and finish in time.
func TestStoreChaos(t *testing.T) {
	if testing.Short() {
		t.Skip("chaos test skipped in short mode")
	}
	s := NewStore()
	rng := rand.New(rand.NewSource(7))
	nodeCount := 20000

	for i := 0; i < nodeCount; i++ {
		id := fmt.Sprintf("node-%d", i)
		require.NoError(t, s.AddNode(id, Properties{"type": "person"}))
		if i > 0 {
			_, err := s.AddEdge(NewEdge(id, fmt.Sprintf("node-%d", rng.Intn(i)), Properties{"type": "call", "weight": rng.Float64()}))
			require.NoError(t, err)
		}
		if i > 100 && i%100 == 0 {
			old := fmt.Sprintf("node-%d", i-100)
			_, err := s.AddEdge(NewEdge(old, id, Properties{"type": "email"}))
			require.NoError(t, err)
			_, err = s.AddEdge(NewEdge(id, old, Properties{"type": "email"}))
			require.NoError(t, err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for r := 0; r < 4; r++ {
			wg.Add(1)
			go func(seed int64) {
				defer wg.Done()
				rr := rand.New(rand.NewSource(seed))
				for i := 0; i < 200; i++ {
					s.GetNetwork([]string{fmt.Sprintf("node-%d", rr.Intn(nodeCount))}, nil)
				}
			}(int64(r))
		}
		var victims []string
		for i := 0; i < nodeCount; i += 7 {
			victims = append(victims, fmt.Sprintf("node-%d", i))
		}
		s.DeleteNodes(victims)
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("store operations did not finish, check for quadratic paths or lock contention")
	}

	live := 0
	for _, rec := range s.Edges() {
		live++
		assert.True(t, s.HasNode(rec.Source), "dangling source %s", rec.Source)
		assert.True(t, s.HasNode(rec.Target), "dangling target %s", rec.Target)
	}
	assert.Equal(t, live, s.NumEdges())
	assert.Equal(t, nodeCount-(nodeCount+6)/7, s.NumNodes())
	assert.Equal(t, s.NumNodes(), s.NodeTypes()["person"])
}
