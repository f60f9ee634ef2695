package view

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/netscope/pkg/analysis"
)

// predictFromEdges answers link prediction by proposing, for every edge, its
// reverse.
func predictFromEdges() analysis.Gateway {
	return analysis.GatewayFunc(func(_ context.Context, task analysis.Task) (*analysis.Result, error) {
		preds := make(map[string][]string)
		for _, e := range task.Network.Edges {
			preds[e.Target] = append(preds[e.Target], e.Source)
		}
		return &analysis.Result{Success: 1, Predictions: preds}, nil
	})
}

func answer(res *analysis.Result, seen *analysis.Task) analysis.Gateway {
	return analysis.GatewayFunc(func(_ context.Context, task analysis.Task) (*analysis.Result, error) {
		if seen != nil {
			*seen = task
		}
		return res, nil
	})
}

func TestApplyAnalysis_LinkPrediction(t *testing.T) {
	v := newView(t, chain(t))
	v.Initialize(nil, Params{})
	_, err := v.ToggleNodeSelection("a")
	require.NoError(t, err)

	var task analysis.Task
	gw := answer(&analysis.Result{Success: 1, Predictions: map[string][]string{"a": {"c", "d"}}}, &task)
	_, err = v.ApplyAnalysis(t.Context(), gw, Request{Task: analysis.LinkPrediction, Method: "adamic_adar"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, task.Options.Parameters["sources"])
	assert.Len(t, task.Network.Edges, 3)
	assert.Equal(t, []string{"a", "b", "c", "d", "0", "1", "2", "a_c", "a_d"}, ids(v.Elements()))
	assert.Equal(t, map[string][]int{"a": {7, 8}}, v.PredictedEdges())
	pred, _ := v.Element(7)
	assert.True(t, pred.Predicted)
	assert.True(t, pred.SourceSelected)
	assert.Equal(t, PredictedType, pred.Type)
	_, edgeTypes := v.ActiveTypes()
	assert.Contains(t, edgeTypes, PredictedType)
	require.NotNil(t, v.LastAnalysis())
	assert.Equal(t, analysis.LinkPrediction, v.LastAnalysis().TaskID)
	checkInvariants(t, v)

	// Re-running replaces the earlier predictions of the same source.
	_, err = v.ApplyAnalysis(t.Context(), gw, Request{Task: analysis.LinkPrediction, Method: "adamic_adar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "0", "1", "2", "a_c", "a_d"}, ids(v.Elements()))

	_, err = v.ToggleNodeSelection("a")
	require.NoError(t, err)
	pred, _ = v.Element(8)
	assert.False(t, pred.SourceSelected)

	gw = answer(&analysis.Result{Success: 1, Predictions: map[string][]string{"a": {"b"}, "zz": {"a"}, "c": {"zz"}}}, nil)
	_, err = v.ApplyAnalysis(t.Context(), gw, Request{Task: analysis.LinkPrediction, Method: "adamic_adar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "0", "1", "2", "a_b"}, ids(v.Elements()))
	checkInvariants(t, v)

	// Membership changes drop predictions.
	v.DeactivateNodes([]string{"d"})
	assert.Empty(t, v.PredictedEdges())
	assert.Nil(t, v.LastAnalysis())
	checkInvariants(t, v)
}

func TestApplyAnalysis_Influence(t *testing.T) {
	v := newView(t, chain(t))
	v.Initialize(nil, Params{})
	gw := answer(&analysis.Result{Success: 1, Scores: map[string]float64{"a": 1, "b": 3, "c": 2, "zz": 5}}, nil)
	_, err := v.ApplyAnalysis(t.Context(), gw, Request{Task: analysis.SocialInfluence, Method: "pagerank"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, v.nodeElement("a").InfluenceScore)
	assert.InDelta(t, 0.2, v.nodeElement("a").VisualInfluenceScore, 1e-9)
	assert.InDelta(t, 0.595, v.nodeElement("b").VisualInfluenceScore, 1e-9)
	assert.InDelta(t, 0.3975, v.nodeElement("c").VisualInfluenceScore, 1e-9)
	assert.Equal(t, -1.0, v.nodeElement("d").InfluenceScore)

	gw = answer(&analysis.Result{Success: 1, Membership: map[string]map[string]float64{
		"a": {"2": 0.4, "1": 0.6},
		"b": {"3": 0.5, "1": 0.5},
		"c": {"x": 0.9},
	}}, nil)
	_, err = v.ApplyAnalysis(t.Context(), gw, Request{Task: analysis.CommunityDetection, Method: "louvain"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.nodeElement("a").Community)
	assert.Equal(t, 0.6, v.nodeElement("a").CommunityConfidence)
	assert.Equal(t, 1, v.nodeElement("b").Community)
	assert.Equal(t, -1, v.nodeElement("c").Community)
	assert.Equal(t, -1.0, v.nodeElement("a").InfluenceScore, "influence is cleared")

	v.Expand([]string{"a"})
	assert.Equal(t, -1, v.nodeElement("a").Community)
	assert.Nil(t, v.LastAnalysis())
}

func TestScale(t *testing.T) {
	assert.Equal(t, 0.99, scale(4, 4, 4, 0.2, 0.99))
	assert.InDelta(t, 0.2, scale(0, 0, 10, 0.2, 0.99), 1e-12)
	assert.InDelta(t, 0.99, scale(10, 0, 10, 0.2, 0.99), 1e-12)
}

func TestApplyAnalysis_RejectedLeavesViewUntouched(t *testing.T) {
	v := newView(t, chain(t))
	v.Initialize(nil, Params{})

	res, err := v.ApplyAnalysis(t.Context(),
		answer(&analysis.Result{Success: 0, Message: "graph too small"}, nil),
		Request{Task: analysis.SocialInfluence, Method: "pagerank"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrUpstream))
	assert.Equal(t, "graph too small", res.Message)
	assert.Nil(t, v.LastAnalysis())

	boom := analysis.GatewayFunc(func(context.Context, analysis.Task) (*analysis.Result, error) {
		return nil, errors.New("connection refused")
	})
	_, err = v.ApplyAnalysis(t.Context(), boom, Request{Task: analysis.SocialInfluence, Method: "pagerank"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, v.LastAnalysis())
}

func TestApplyAnalysis_ResultOnly(t *testing.T) {
	v := newView(t, chain(t))
	v.Initialize(nil, Params{})
	gw := answer(&analysis.Result{Success: 1, Scores: map[string]float64{"a": 1}}, nil)

	res, err := v.ApplyAnalysis(t.Context(), gw, Request{Task: analysis.SocialInfluence, Method: "pagerank", ResultOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Scores["a"])
	assert.Equal(t, -1.0, v.nodeElement("a").InfluenceScore)
	assert.Nil(t, v.LastAnalysis())
}

func TestTask_SkipDefaults(t *testing.T) {
	v := newView(t, chain(t))
	v.Initialize(nil, Params{})
	_, _ = v.ToggleNodeSelection("b")

	task := v.Task(Request{Task: analysis.LinkPrediction, Method: "jaccard", Parameters: map[string]any{"k": 2}})
	assert.Equal(t, []string{"b"}, task.Options.Parameters["sources"])

	params := map[string]any{"sources": []string{"c"}}
	task = v.Task(Request{Task: analysis.LinkPrediction, Method: "jaccard", Parameters: params, SkipDefaults: true})
	assert.Equal(t, []string{"c"}, task.Options.Parameters["sources"])
	assert.Len(t, params, 1, "caller parameters are not modified")
}
