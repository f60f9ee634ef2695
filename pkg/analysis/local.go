package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/DrSkyle/netscope/pkg/graph"
)

// LocalGateway answers tasks in process with plain graph measures: degree
// centrality for influence, connected components for communities and common
// neighbours for link prediction. Edges are taken as undirected.
type LocalGateway struct {
	logger *slog.Logger
}

func NewLocalGateway(logger *slog.Logger) *LocalGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalGateway{logger: logger}
}

var localMethods = map[TaskKind]string{
	SocialInfluence:    "degree",
	CommunityDetection: "components",
	LinkPrediction:     "common_neighbors",
}

func (g *LocalGateway) Submit(ctx context.Context, task Task) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method, ok := localMethods[task.TaskID]
	if !ok {
		return &Result{Message: fmt.Sprintf("%s is not available locally", task.TaskID)}, nil
	}
	if m := task.Options.Method; m != "" && m != method {
		return &Result{Message: fmt.Sprintf("method %q is not available locally, use %q", m, method)}, nil
	}

	adj := adjacency(task.Network.Edges)
	res := &Result{Success: 1, Message: "ok"}
	switch task.TaskID {
	case SocialInfluence:
		res.Scores = degreeCentrality(adj)
	case CommunityDetection:
		res.Communities, res.Membership = components(adj)
	case LinkPrediction:
		k := 0
		if v, ok := graph.Number(task.Options.Parameters["k"]); ok {
			k = int(v)
		}
		res.Predictions = commonNeighbors(adj, sources(task.Options.Parameters["sources"]), k)
	}
	g.logger.Debug("local analysis done", "task", task.TaskID, "nodes", len(adj))
	return res, nil
}

func adjacency(edges []graph.EdgeRecord) map[string]map[string]struct{} {
	adj := make(map[string]map[string]struct{})
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]struct{})
		}
		if a != b {
			adj[a][b] = struct{}{}
		}
	}
	for _, e := range edges {
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}
	return adj
}

func degreeCentrality(adj map[string]map[string]struct{}) map[string]float64 {
	scores := make(map[string]float64, len(adj))
	n := len(adj)
	for key, nb := range adj {
		if n > 1 {
			scores[key] = float64(len(nb)) / float64(n-1)
		} else {
			scores[key] = 0
		}
	}
	return scores
}

// components labels each connected component by the rank of its smallest key.
func components(adj map[string]map[string]struct{}) ([]map[string]float64, map[string]map[string]float64) {
	keys := slices.Sorted(maps.Keys(adj))
	pos := make(map[string]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}
	uf := newUnionFind(len(keys))
	for a, nb := range adj {
		for b := range nb {
			uf.union(pos[a], pos[b])
		}
	}

	labels := make(map[int]string)
	var communities []map[string]float64
	membership := make(map[string]map[string]float64, len(keys))
	for i, k := range keys {
		root := uf.find(i)
		label, ok := labels[root]
		if !ok {
			label = strconv.Itoa(len(communities))
			labels[root] = label
			communities = append(communities, make(map[string]float64))
		}
		idx, _ := strconv.Atoi(label)
		communities[idx][k] = 1
		membership[k] = map[string]float64{label: 1}
	}
	return communities, membership
}

func commonNeighbors(adj map[string]map[string]struct{}, srcs []string, k int) map[string][]string {
	out := make(map[string][]string)
	for _, s := range srcs {
		nb, ok := adj[s]
		if !ok {
			continue
		}
		scores := make(map[string]float64)
		for mid := range nb {
			for c := range adj[mid] {
				if c == s {
					continue
				}
				if _, linked := nb[c]; linked {
					continue
				}
				scores[c]++
			}
		}
		out[s] = TopTargets(scores, k)
	}
	return out
}

// sources accepts the in-process []string form and the decoded JSON []any form.
func sources(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, x := range s {
			if str, ok := x.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	if uf.parent[i] != i {
		uf.parent[i] = uf.find(uf.parent[i])
	}
	return uf.parent[i]
}

// union joins by rank.
func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return
	}
	switch {
	case uf.rank[ri] < uf.rank[rj]:
		uf.parent[ri] = rj
	case uf.rank[ri] > uf.rank[rj]:
		uf.parent[rj] = ri
	default:
		uf.parent[rj] = ri
		uf.rank[ri]++
	}
}
