package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keysOf(n Network) []string {
	out := make([]string, 0, len(n.Nodes))
	for _, rec := range n.Nodes {
		out = append(out, rec.Key)
	}
	return out
}

func indexesOf(n Network) []int {
	out := make([]int, 0, len(n.Edges))
	for _, e := range n.Edges {
		out = append(out, e.Index)
	}
	return out
}

// chain builds a->b (0, call), b->c (1, call), c->d (2, email), b->a (3, email), d->b (4, call).
func chain(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.AddNode(k, Properties{"type": "person"}))
	}
	for _, e := range []Edge{
		NewEdge("a", "b", Properties{"type": "call"}),
		NewEdge("b", "c", Properties{"type": "call"}),
		NewEdge("c", "d", Properties{"type": "email"}),
		NewEdge("b", "a", Properties{"type": "email"}),
		NewEdge("d", "b", Properties{"type": "call"}),
	} {
		_, err := s.AddEdge(e)
		require.NoError(t, err)
	}
	return s
}

func TestGetNetwork_OneHop(t *testing.T) {
	s := chain(t)

	net := s.GetNetwork([]string{"a"}, nil)
	assert.Equal(t, []string{"a", "b"}, keysOf(net))
	// a->b from the root, b->a from the second pass; b->c leaves the reached set.
	assert.Equal(t, []int{0, 3}, indexesOf(net))
}

func TestGetNetwork_AllNodes(t *testing.T) {
	s := chain(t)
	net := s.GetNetwork(nil, nil)
	assert.Equal(t, []string{"a", "b", "c", "d"}, keysOf(net))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indexesOf(net))

	calls := s.GetNetwork(nil, Match{"type": "call"})
	assert.Equal(t, []int{0, 1, 4}, indexesOf(calls))
}

func TestGetNetwork_SecondPassUsesEdgeFilter(t *testing.T) {
	s := chain(t)
	net := s.GetNetwork([]string{"c"}, Match{"type": "email"})
	assert.Equal(t, []string{"c", "d"}, keysOf(net))
	// d->b is a call and b is outside the reached set either way.
	assert.Equal(t, []int{2}, indexesOf(net))

	net = s.GetNetwork([]string{"a", "c"}, Match{"type": "call"})
	assert.Equal(t, []string{"a", "b", "c"}, keysOf(net))
	// b->c passes the filter and lands inside the reached set.
	assert.Equal(t, []int{0, 1}, indexesOf(net))
}

func TestGetNetwork_UnknownAndDuplicateKeys(t *testing.T) {
	s := chain(t)
	net := s.GetNetwork([]string{"zz", "a", "a"}, nil)
	assert.Equal(t, []string{"a", "b"}, keysOf(net))
	assert.Equal(t, []int{0, 3}, indexesOf(net))
}

func TestSearchNodes(t *testing.T) {
	s := chain(t)
	require.NoError(t, s.UpdateNode("c", Properties{"type": "org", "size": 3}))

	found, missing := s.SearchNodes([]string{"a", "c", "x"}, Match{"type": "org"})
	require.Len(t, found, 1)
	assert.Equal(t, "c", found[0].Key)
	assert.Equal(t, []string{"x"}, missing)

	// Numbers compare by value.
	found, _ = s.SearchNodes(nil, Match{"size": 3.0})
	require.Len(t, found, 1)

	found, missing = s.SearchNodes(nil, nil)
	assert.Len(t, found, 4)
	assert.Empty(t, missing)
}

func TestGetEdgesAndNeighbors(t *testing.T) {
	s := chain(t)

	found, missing := s.GetEdges([]string{"b", "q"}, Match{"type": "email"})
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Key)
	require.Len(t, found[0].Edges, 1)
	assert.Equal(t, 3, found[0].Edges[0].Index)
	assert.Equal(t, []string{"q"}, missing)

	nbrs, _ := s.GetNeighbors([]string{"b"}, nil)
	require.Len(t, nbrs, 1)
	var keys []string
	for _, n := range nbrs[0].Neighbors {
		keys = append(keys, n.Key)
	}
	assert.Equal(t, []string{"c", "a"}, keys)
	assert.Equal(t, "call", nbrs[0].Neighbors[0].EdgeProperties["type"])

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 1}, s.NeighborCounts([]string{"a", "b", "d", "zz"}))
}

func TestBatchOperationsCollectErrors(t *testing.T) {
	s := chain(t)

	errs := s.SaveNodes(map[string]Properties{
		"a": {"type": "org"},
		"e": {"type": "person"},
		"":  {"type": "ghost"},
	})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrInvalidRequest)
	assert.Equal(t, map[string]int{"person": 4, "org": 1}, s.NodeTypes())

	errs = s.SaveEdges([]Edge{
		NewEdge("a", "b", Properties{"type": "visit"}),
		NewEdge("e", "a", Properties{"type": "call"}),
		NewEdge("e", "zz", nil),
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "e->zz", errs[0].Edge)
	e, _ := s.Edge(0)
	assert.Equal(t, "visit", e.Properties["type"])
	assert.Equal(t, 6, s.EdgeCount())

	errs = s.DeleteEdges([]EdgeAddr{At(0), At(0), Between("e", "a"), {}})
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0].Err, ErrNotFound)
	assert.ErrorIs(t, errs[1].Err, ErrInvalidRequest)

	errs = s.DeleteNodes([]string{"c", "zz", "c"})
	require.Len(t, errs, 2)
	assert.Equal(t, "zz", errs[0].Node)
	checkIndices(t, s)
}

func TestResultOf(t *testing.T) {
	s := chain(t)
	assert.Equal(t, Result{Success: 1, Message: "ok"}, ResultOf(s.AddNode("z", nil), "ok"))
	assert.Equal(t, Result{Success: 0, Message: "node z already exists"}, ResultOf(s.AddNode("z", nil), "ok"))
}
