package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/netscope/pkg/graph"
)

func TestHTTPGateway_RoundTrip(t *testing.T) {
	var got Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":1,"message":"ok","scores":{"a":0.5,"b":1.5}}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, time.Second)
	task := Task{
		TaskID:  SocialInfluence,
		Network: Network{Edges: []graph.EdgeRecord{{Index: 4, Edge: graph.NewEdge("a", "b", graph.Properties{"type": "call"})}}},
		Options: Options{Method: "pagerank", Parameters: map[string]any{"alpha": 0.85}},
	}
	res, err := g.Submit(context.Background(), task)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, map[string]float64{"a": 0.5, "b": 1.5}, res.Scores)

	assert.Equal(t, SocialInfluence, got.TaskID)
	require.Len(t, got.Network.Edges, 1)
	assert.Equal(t, 4, got.Network.Edges[0].Index)
	assert.Equal(t, "a", got.Network.Edges[0].Source)
	assert.Equal(t, 0.85, got.Options.Parameters["alpha"])
}

func TestHTTPGateway_UpstreamRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":0,"message":"this algorithm is not suitable for this network"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPGateway(srv.URL, time.Second).Submit(context.Background(), Task{TaskID: CommunityDetection})
	require.NoError(t, err)
	err = res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "not suitable")
}

func TestHTTPGateway_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(srv.URL, time.Second).Submit(context.Background(), Task{TaskID: LinkPrediction})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
