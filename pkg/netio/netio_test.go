package netio

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/query"
)

func sample(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	require.NoError(t, s.AddNode("a", graph.Properties{"type": "person", "name": "A"}))
	require.NoError(t, s.AddNode("b", graph.Properties{"type": "person"}))
	require.NoError(t, s.AddNode("c", nil))
	_, err := s.AddEdge(graph.NewEdge("a", "b", graph.Properties{"type": "call", "weight": 2}))
	require.NoError(t, err)
	unconfirmed := graph.NewEdge("b", "c", graph.Properties{"type": "email", "weight": 0.5, "confidence": 0.9})
	unconfirmed.Observed = false
	_, err = s.AddEdge(unconfirmed)
	require.NoError(t, err)
	_, err = s.AddEdge(graph.NewEdge("a", "c", graph.Properties{"type": "call", "weight": 5}))
	require.NoError(t, err)
	return s
}

func TestDump_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dump(sample(t), &buf, DumpOptions{}))
	goldie.New(t).Assert(t, "dump", buf.Bytes())
}

func TestEncodeNodeLink_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeNodeLink(sample(t), DefaultMeta(), &buf))
	goldie.New(t).Assert(t, "node_link", buf.Bytes())
}

func TestDump_Filters(t *testing.T) {
	tests := []struct {
		name string
		opts DumpOptions
		want int
	}{
		{"none", DumpOptions{}, 3},
		{"types", DumpOptions{EdgeTypes: []string{"call"}}, 2},
		{"types and weight", DumpOptions{EdgeTypes: []string{"call"}, MinWeight: 3}, 1},
		{"confidence drops edges without one", DumpOptions{MinConfidence: 0.5}, 1},
		{"expression", DumpOptions{Filter: query.MustCompile(`kind == "email"`)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := NewWriter(&buf).WriteGraph(sample(t), tt.opts, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, 3+tt.want, strings.Count(buf.String(), "\n"), "nodes are always written")
		})
	}
}

func TestDumpFile_RefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	s := sample(t)
	require.NoError(t, DumpFile(path, s, DumpOptions{}))

	err := DumpFile(path, s, DumpOptions{EdgeTypes: []string{"call"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExists)
	assert.True(t, errors.Is(err, fs.ErrExist))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, bytes.Count(data, []byte("\n")), "first export is untouched")
}

func TestDecode_Lines(t *testing.T) {
	in := strings.Join([]string{
		`# people`,
		``,
		`{"type":"node","id":1,"properties":{"type":"person"}}`,
		`{"type":"node","id":"x"}`,
		`{"type":"edge","source":1,"target":"x","observed":"false","properties":{"type":"call"}}`,
		`{"type":"edge","source":"x","target":1,"index":4,"properties":{}}`,
		`{"type":"active_node","id":"x","properties":{}}`,
	}, "\n")
	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Nil(t, doc.Meta)
	require.Len(t, doc.Records, 4)
	require.Len(t, doc.Extra, 1)

	assert.Equal(t, Key("1"), doc.Records[0].ID)
	assert.Equal(t, graph.Properties{}, doc.Records[1].Properties)
	e := doc.Records[2].Edge()
	assert.Equal(t, "1", e.Source)
	assert.False(t, e.Observed)
	assert.True(t, doc.Records[3].Edge().Observed)
	require.NotNil(t, doc.Records[3].Index)

	s := graph.NewStore()
	assert.Empty(t, Load(s, doc))
	assert.True(t, s.IsLive(0))
	assert.True(t, s.IsLive(4))
	assert.False(t, s.IsLive(2))
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("{\"type\":\"node\",\"id\":\"a\"}\n{oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Decode(strings.NewReader(`{"type":"edge","source":"a","target":"b","observed":"maybe"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid observed flag")

	_, err = Decode(strings.NewReader(`{"nodes":[{"name":"anonymous"}],"links":[]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestDecode_NodeLink(t *testing.T) {
	in := `{"directed": true, "multigraph": false, "graph": {"source": "cdr"},
		"nodes": [{"id": 7, "type": "person"}, {"id": "b"}],
		"links": [{"source": 7, "target": "b", "type": "call"}, {"source": "b", "target": "missing"}]}`
	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.NotNil(t, doc.Meta)
	assert.Equal(t, map[string]any{"source": "cdr"}, doc.Meta.Graph)
	assert.Equal(t, Key("7"), doc.Records[0].ID)

	s := graph.NewStore()
	errs := Load(s, doc)
	require.Len(t, errs, 1)
	assert.Equal(t, "b->missing", errs[0].Edge)
	assert.ErrorIs(t, errs[0].Err, graph.ErrNotFound)
	assert.Equal(t, 0, s.FindEdgeIndex("7", "b"))
}

func TestDecode_NodeLinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeNodeLink(sample(t), DefaultMeta(), &buf))
	doc, err := Decode(&buf)
	require.NoError(t, err)

	s := graph.NewStore()
	require.Empty(t, Load(s, doc))
	var again bytes.Buffer
	require.NoError(t, EncodeNodeLink(s, *doc.Meta, &again))
	goldie.New(t).Assert(t, "node_link", again.Bytes())
}
