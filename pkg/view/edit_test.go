package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/netscope/pkg/graph"
)

func actions(changes []graph.Change) []graph.Action {
	out := make([]graph.Action, len(changes))
	for i, c := range changes {
		out[i] = c.Action
	}
	return out
}

func TestActiveCRUD(t *testing.T) {
	s := chain(t)
	v := newView(t, s)
	v.Initialize([]string{"a"}, Params{})
	_, _ = v.ToggleNodeSelection("a")

	require.NoError(t, v.AddActiveNode("e", graph.Properties{"type": "org"}))
	e := v.nodeElement("e")
	assert.Equal(t, "e", e.Label)
	assert.Equal(t, "org", e.Type)
	assert.False(t, e.Expandable)
	assert.True(t, s.HasNode("e"))
	assert.ErrorIs(t, v.AddActiveNode("e", nil), graph.ErrConflict)

	idx, err := v.AddActiveEdge("a", "e", graph.Properties{"type": "works_at", "name": "employer"})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	edge := v.edgeElement(idx)
	assert.Equal(t, "employer", edge.Label)
	assert.True(t, edge.SourceSelected)
	assert.Equal(t, 1, v.nodeElement("e").IncomingSelected)
	checkInvariants(t, v)

	_, err = v.AddActiveEdge("a", "c", nil)
	require.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, "target not active!", err.Error())
	_, err = v.AddActiveEdge("c", "a", nil)
	assert.Equal(t, "source not active!", err.Error())

	require.NoError(t, v.UpdateActiveNode("e", graph.Properties{"type": "company", "name": "Acme"}))
	e = v.nodeElement("e")
	assert.Equal(t, "company", e.Type)
	assert.Equal(t, "Acme", e.Label)
	assert.Equal(t, "Acme", e.Info["name"], "info aliases the stored properties")
	assert.Equal(t, map[string]int{"person": 4, "company": 1}, s.NodeTypes())
	err = v.UpdateActiveNode("c", graph.Properties{"type": "x"})
	assert.ErrorIs(t, err, ErrNotActive)

	require.NoError(t, v.UpdateActiveEdge(0, graph.Properties{"type": "sms", "probability": 0.4}))
	e0 := v.edgeElement(0)
	assert.Equal(t, "sms", e0.Type)
	require.NotNil(t, e0.Probability)
	assert.Equal(t, 0.4, *e0.Probability)

	require.NoError(t, v.DeleteActiveEdge(idx))
	assert.False(t, s.IsLive(idx))
	assert.Equal(t, 0, v.nodeElement("e").IncomingSelected)
	assert.ErrorIs(t, v.DeleteActiveEdge(idx), ErrNotActive)
	checkInvariants(t, v)

	changes := v.Interactions()
	assert.Equal(t, []graph.Action{
		graph.ActionAddNode, graph.ActionAddEdge, graph.ActionUpdateNode,
		graph.ActionUpdateEdge, graph.ActionDeleteEdge,
	}, actions(changes))
	assert.Equal(t, graph.Properties{"type": "org"}, changes[2].Previous)
	assert.Equal(t, &graph.EdgeRef{Index: 3, Source: "a", Target: "e"}, changes[4].Edge)

	v.ForgetInteractions()
	assert.Empty(t, v.Interactions())
}

func TestDeleteActiveNode_RefreshesInNeighbors(t *testing.T) {
	s := chain(t)
	v := newView(t, s)
	v.Initialize(nil, Params{})
	v.DeactivateEdges([]int{1})
	require.True(t, v.ActiveNodes()["b"].Expandable)

	require.NoError(t, v.DeleteActiveNode("c"))
	assert.False(t, s.HasNode("c"))
	assert.False(t, s.IsLive(1))
	assert.False(t, s.IsLive(2))
	assert.False(t, v.ActiveNodes()["b"].Expandable, "b->c is gone from the store")
	assert.Equal(t, graph.ActionDeleteNode, v.Interactions()[0].Action)
	checkInvariants(t, v)

	assert.ErrorIs(t, v.DeleteActiveNode("c"), ErrNotActive)
}

func TestInteractionLogIsBounded(t *testing.T) {
	v := newView(t, graph.NewStore())
	v.Initialize(nil, Params{})
	for i := range 25 {
		require.NoError(t, v.AddActiveNode(string(rune('a'+i)), nil))
	}
	changes := v.Interactions()
	require.Len(t, changes, graph.DefaultLogSize)
	assert.Equal(t, "f", changes[0].Node)
}

func TestMerge(t *testing.T) {
	s := graph.NewStore()
	for _, k := range []string{"a", "b", "x", "y", "z", "w"} {
		require.NoError(t, s.AddNode(k, graph.Properties{"type": "person"}))
	}
	for _, e := range [][3]string{
		{"a", "x", "call"},  // 0
		{"b", "y", "call"},  // 1
		{"x", "a", "email"}, // 2
		{"z", "w", "call"},  // 3
		{"b", "x", "call"},  // 4 collides with 0 after the merge
	} {
		_, err := s.AddEdge(graph.NewEdge(e[0], e[1], graph.Properties{"type": e[2]}))
		require.NoError(t, err)
	}
	v := newView(t, s)
	v.Initialize(nil, Params{})

	skipped, err := v.Merge([]string{"a", "b", "nope"}, "c", graph.Properties{"type": "person", "name": "C"})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "c->x", skipped[0].Edge)
	assert.ErrorIs(t, skipped[0].Err, graph.ErrConflict)

	assert.False(t, s.HasNode("a"))
	assert.False(t, s.HasNode("b"))
	type pair struct{ s, t, typ string }
	var live []pair
	for _, rec := range s.Edges() {
		typ, _ := rec.Properties.Type()
		live = append(live, pair{rec.Source, rec.Target, typ})
	}
	assert.ElementsMatch(t, []pair{
		{"z", "w", "call"},
		{"c", "x", "call"},
		{"c", "y", "call"},
		{"x", "c", "email"},
	}, live)

	assert.Equal(t, []string{"c"}, v.SelectedNodes())
	assert.Equal(t, "C", v.nodeElement("c").Label)
	assert.Equal(t, 1, v.nodeElement("x").IncomingSelected)
	assert.Equal(t, 1, v.nodeElement("y").IncomingSelected)
	assert.Len(t, v.ActiveEdges(), 4)
	checkInvariants(t, v)
}

func TestMerge_Rejects(t *testing.T) {
	v := newView(t, chain(t))
	v.Initialize([]string{"a"}, Params{})

	_, err := v.Merge([]string{"c"}, "z", nil)
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = v.Merge([]string{"a"}, "d", nil)
	assert.ErrorIs(t, err, graph.ErrConflict)
	assert.True(t, v.IsActive("a"), "nothing changes on conflict")

	_, err = v.Merge([]string{"a", "b"}, "a", graph.Properties{"type": "person"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, v.SelectedNodes())
	checkInvariants(t, v)
}
