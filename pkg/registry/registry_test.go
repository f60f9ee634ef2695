package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/netio"
	"github.com/DrSkyle/netscope/pkg/storage"
	"github.com/DrSkyle/netscope/pkg/view"
)

func loadCalls(t *testing.T, r *Registry) *Dataset {
	t.Helper()
	ds, err := r.AddDataset(context.Background(), Source{ID: "calls", Name: "Phone calls", Path: "testdata/calls.jsonl"})
	require.NoError(t, err)
	return ds
}

func TestAddDataset(t *testing.T) {
	r := New()
	ds := loadCalls(t, r)
	assert.Equal(t, "1.0", ds.Version)
	assert.True(t, ds.Directed)
	assert.False(t, ds.Multigraph)
	assert.Equal(t, 4, ds.Store.NumNodes())
	assert.Equal(t, 4, ds.Store.NumEdges())
	assert.Empty(t, ds.Store.Changes(), "loading is not a change")

	_, err := r.AddDataset(context.Background(), Source{ID: "calls", Path: "testdata/calls.jsonl"})
	assert.ErrorIs(t, err, ErrExists)

	_, err = r.AddDataset(context.Background(), Source{ID: "nope", Path: "testdata/missing.jsonl"})
	assert.Error(t, err)
	assert.False(t, r.Has("nope"))

	_, err = r.AddDataset(context.Background(), Source{ID: "empty"})
	assert.ErrorContains(t, err, "no path or blob")
}

func TestAddDataset_NodeLinkMeta(t *testing.T) {
	r := New()
	ds, err := r.AddDataset(context.Background(), Source{ID: "gangs", Path: "testdata/gangs.json"})
	require.NoError(t, err)
	assert.Equal(t, "gangs", ds.Name)
	assert.False(t, ds.Directed)
	assert.Equal(t, map[string]any{"city": "Montreal"}, ds.Graph)
	assert.True(t, ds.Store.HasNode("1"))
	assert.Equal(t, 0, ds.Store.FindEdgeIndex("1", "2"))
}

func TestAddDataset_FromBlob(t *testing.T) {
	ctx := context.Background()
	blob := storage.NewLocalStore(t.TempDir())
	data, err := os.ReadFile("testdata/calls.jsonl")
	require.NoError(t, err)
	require.NoError(t, blob.Put(ctx, "datasets/calls.jsonl", data))

	r := New(WithBlobStore(blob))
	ds, err := r.AddDataset(ctx, Source{ID: "calls", Blob: "datasets/calls.jsonl"})
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Store.NumNodes())

	_, err = New().AddDataset(ctx, Source{ID: "calls", Blob: "datasets/calls.jsonl"})
	assert.ErrorContains(t, err, "no blob store")
}

func TestCreateNetworkAndRemove(t *testing.T) {
	r := New()
	undirected := false
	ds, errs, err := r.CreateNetwork("tiny", "Tiny", map[string]graph.Properties{
		"a": {"type": "person"},
		"b": {"type": "person"},
	}, []graph.Edge{
		graph.NewEdge("a", "b", graph.Properties{"type": "call"}),
		graph.NewEdge("a", "zz", nil),
	}, Settings{Description: "hand made", Directed: &undirected})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, graph.ErrNotFound)
	assert.Equal(t, "hand made", ds.Description)
	assert.False(t, ds.Directed)
	assert.Equal(t, 1, ds.Store.NumEdges())

	_, _, err = r.CreateNetwork("tiny", "again", nil, nil, Settings{})
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, r.Remove("tiny"))
	assert.ErrorIs(t, r.Remove("tiny"), ErrNotFound)
	_, err = r.Get("tiny")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchNetworks(t *testing.T) {
	r := New()
	loadCalls(t, r)
	found, missing := r.SearchNetworks([]string{"calls", "ghost"})
	require.Len(t, found, 1)
	assert.Equal(t, []string{"ghost"}, missing)
	assert.Equal(t, Summary{
		ID:        "calls",
		Name:      "Phone calls",
		NodeTypes: map[string]int{"person": 3, "company": 1},
		EdgeTypes: map[string]int{"call": 2, "email": 1, "works_at": 1},
		NumNodes:  4,
		NumEdges:  4,
	}, found[0])

	all, missing := r.SearchNetworks(nil)
	assert.Len(t, all, 1)
	assert.Empty(t, missing)
}

func TestDelegates(t *testing.T) {
	r := New()
	loadCalls(t, r)

	net, err := r.GetNetwork("calls", []string{"alice"}, graph.Match{"type": "call"})
	require.NoError(t, err)
	assert.Len(t, net.Edges, 1, "carol is not reached from alice by a call")

	found, missing, err := r.SearchNodes("calls", []string{"bob", "zed"}, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, []string{"zed"}, missing)

	edges, _, err := r.GetEdges("calls", []string{"alice"}, nil)
	require.NoError(t, err)
	assert.Len(t, edges[0].Edges, 2)

	nbrs, _, err := r.GetNeighbors("calls", []string{"alice"}, graph.Match{"type": "works_at"})
	require.NoError(t, err)
	require.Len(t, nbrs[0].Neighbors, 1)
	assert.Equal(t, "acme", nbrs[0].Neighbors[0].Key)

	counts, err := r.NeighborCounts("calls", []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bob": 1, "acme": 1, "carol": 1}, counts)

	errs, err := r.SaveNodes("calls", map[string]graph.Properties{"dave": {"type": "person"}})
	require.NoError(t, err)
	assert.Empty(t, errs)
	errs, err = r.SaveEdges("calls", []graph.Edge{graph.NewEdge("dave", "alice", graph.Properties{"type": "call"})})
	require.NoError(t, err)
	assert.Empty(t, errs)
	errs, err = r.DeleteEdges("calls", []graph.EdgeAddr{graph.Between("dave", "alice"), graph.At(99)})
	require.NoError(t, err)
	assert.Len(t, errs, 1)
	errs, err = r.DeleteNodes("calls", []string{"dave"})
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = r.NeighborCounts("ghost", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDump(t *testing.T) {
	r := New()
	loadCalls(t, r)
	ctx := context.Background()

	var lines bytes.Buffer
	require.NoError(t, r.Dump(ctx, "calls", &lines, FormatLines, netio.DumpOptions{EdgeTypes: []string{"call"}}))
	assert.Equal(t, 6, strings.Count(lines.String(), "\n"))

	var nl bytes.Buffer
	require.NoError(t, r.Dump(ctx, "calls", &nl, FormatNodeLink, netio.DumpOptions{}))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(nl.Bytes(), &doc))
	assert.Equal(t, true, doc["directed"])
	assert.Len(t, doc["links"], 4)

	assert.ErrorContains(t, r.Dump(ctx, "calls", &nl, "xml", netio.DumpOptions{}), "unknown export format")
	assert.ErrorIs(t, r.Dump(ctx, "ghost", &nl, FormatLines, netio.DumpOptions{}), ErrNotFound)
}

func TestLoadActiveView_SharesStore(t *testing.T) {
	r := New()
	ds := loadCalls(t, r)

	v, err := r.LoadActiveView("calls", []string{"alice"}, view.Params{})
	require.NoError(t, err)
	assert.Equal(t, "Phone calls", v.Params().NetworkName)
	assert.ElementsMatch(t, []string{"alice", "bob", "acme"}, keys(v.ActiveNodes()))

	require.NoError(t, v.AddActiveNode("eve", graph.Properties{"type": "person"}))
	assert.True(t, ds.Store.HasNode("eve"))

	_, err = r.LoadActiveView("ghost", nil, view.Params{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func keys(m map[string]view.ActiveNode) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestLoadManifest(t *testing.T) {
	for _, name := range []string{"datasets.yaml", "datasets.hcl"} {
		t.Run(name, func(t *testing.T) {
			r := New()
			loaded, err := r.LoadManifest(context.Background(), filepath.Join("testdata", name))
			require.NoError(t, err)
			require.Len(t, loaded, 2)
			assert.Equal(t, []string{"calls", "gangs"}, r.IDs())

			calls, _ := r.Get("calls")
			assert.Equal(t, "Phone calls", calls.Name)
			assert.Equal(t, "Call detail records", calls.Description)
			assert.Equal(t, 4, calls.Store.NumNodes())

			gangs, _ := r.Get("gangs")
			assert.False(t, gangs.Directed, "taken from the node-link document")
		})
	}
}

func TestParseManifest_HCLSettings(t *testing.T) {
	src, err := os.ReadFile("testdata/datasets.hcl")
	require.NoError(t, err)
	m, err := ParseManifest("/data/datasets.hcl", src)
	require.NoError(t, err)
	require.Len(t, m.Datasets, 2)

	calls := m.Datasets[0]
	assert.Equal(t, filepath.Join("/data", "calls.jsonl"), calls.Path)
	require.NotNil(t, calls.Settings.Directed)
	assert.False(t, *calls.Settings.Directed)
	assert.Equal(t, map[string]any{"source": "cdr"}, calls.Settings.Graph)
	assert.Nil(t, m.Datasets[1].Settings.Directed)
}

func TestParseManifest_Errors(t *testing.T) {
	_, err := ParseManifest("datasets.toml", nil)
	assert.ErrorContains(t, err, "unsupported manifest format")

	_, err = ParseManifest("datasets.hcl", []byte(`dataset "x" { path = }`))
	assert.Error(t, err)

	_, err = ParseManifest("datasets.yaml", []byte("datasets: {"))
	assert.Error(t, err)
}

func TestLoadManifest_Failure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("datasets:\n  - id: gone\n    path: gone.jsonl\n"), 0600))
	_, err := New().LoadManifest(context.Background(), path)
	assert.ErrorContains(t, err, "gone")
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	blob := storage.NewLocalStore(t.TempDir())
	r := New()
	loadCalls(t, r)
	v, err := r.LoadActiveView("calls", []string{"alice"}, view.Params{})
	require.NoError(t, err)
	_, err = v.ToggleNodeSelection("alice")
	require.NoError(t, err)

	key, err := SaveSession(ctx, blob, "", v)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, SessionPrefix))

	named, err := SaveSession(ctx, blob, "sessions/review.jsonl", v)
	require.NoError(t, err)
	_, err = SaveSession(ctx, blob, named, v)
	require.NoError(t, err, "explicit keys overwrite")

	stored, err := ListSessions(ctx, blob)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	restored, err := LoadSession(ctx, blob, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, restored.SelectedNodes())
	assert.Equal(t, v.ActiveNodes(), restored.ActiveNodes())
	assert.NotSame(t, v.Store(), restored.Store())

	_, err = LoadSession(ctx, blob, "sessions/none.jsonl")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
