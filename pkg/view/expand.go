package view

import (
	"slices"

	"github.com/DrSkyle/netscope/pkg/graph"
)

// ExpandDelta describes what an expansion adds.
type ExpandDelta struct {
	// ChangedExpandability lists previously active nodes whose flag flips.
	ChangedExpandability []string   `json:"changed_expandability"`
	AddedNodes           []string   `json:"added_nodes"`
	AddedEdges           []int      `json:"added_edges"`
	AddedElements        []*Element `json:"added_elements"`
}

type expansion struct {
	nodes    []string
	edges    []graph.EdgeRecord
	edgeSet  map[int]struct{}
	nodeSet  map[string]struct{}
	scale    weightScale
	existing []string
}

func (v *View) planExpansion(keys []string) expansion {
	net := v.store.GetNetwork(keys, nil)
	x := expansion{
		edgeSet: make(map[int]struct{}),
		nodeSet: make(map[string]struct{}),
		scale:   v.weightScale(),
	}
	for _, n := range net.Nodes {
		if _, ok := v.nodes[n.Key]; !ok {
			x.nodes = append(x.nodes, n.Key)
			x.nodeSet[n.Key] = struct{}{}
		}
	}
	for _, e := range net.Edges {
		if _, ok := v.edges[e.Index]; !ok {
			x.edges = append(x.edges, e)
			x.edgeSet[e.Index] = struct{}{}
		}
	}
	x.existing = make([]string, 0, len(v.nodes))
	for k := range v.nodes {
		x.existing = append(x.existing, k)
	}
	slices.Sort(x.existing)
	return x
}

func (x expansion) edgeIndexes() []int {
	out := make([]int, len(x.edges))
	for i, e := range x.edges {
		out[i] = e.Index
	}
	return out
}

// PreviewExpand reports what Expand(keys) would add without changing the view.
// Incoming-selection counters are only updated on the returned new elements.
func (v *View) PreviewExpand(keys []string) ExpandDelta {
	x := v.planExpansion(keys)
	d := ExpandDelta{
		ChangedExpandability: []string{},
		AddedNodes:           x.nodes,
		AddedEdges:           x.edgeIndexes(),
	}
	for _, k := range x.existing {
		if v.nodes[k].Expandable != v.frontier(k, x.edgeSet) {
			d.ChangedExpandability = append(d.ChangedExpandability, k)
		}
	}
	added := make(map[string]*Element, len(x.nodes))
	for _, k := range x.nodes {
		props, _ := v.store.Node(k)
		el := v.newNodeElement(k, props)
		el.Expandable = v.frontier(k, x.edgeSet)
		added[k] = el
		d.AddedElements = append(d.AddedElements, el)
	}
	for _, rec := range x.edges {
		el := v.newEdgeElement(rec, x.scale)
		if v.isSelected(rec.Source) {
			el.SourceSelected = true
			if t, ok := added[rec.Target]; ok {
				t.IncomingSelected++
				t.IncomingNeighborSelected = true
			}
		}
		d.AddedElements = append(d.AddedElements, el)
	}
	return d
}

// Expand activates the one-hop neighborhood of keys. Attached analysis results
// are discarded because membership changes.
func (v *View) Expand(keys []string) ExpandDelta {
	x := v.planExpansion(keys)
	v.invalidateAnalysis()

	d := ExpandDelta{
		ChangedExpandability: []string{},
		AddedNodes:           x.nodes,
		AddedEdges:           x.edgeIndexes(),
	}
	for _, k := range x.existing {
		expandable := v.frontier(k, x.edgeSet)
		if v.nodes[k].Expandable != expandable {
			d.ChangedExpandability = append(d.ChangedExpandability, k)
		}
		v.setExpandable(k, expandable)
	}
	for _, k := range x.nodes {
		props, ok := v.store.Node(k)
		if !ok {
			continue
		}
		el := v.newNodeElement(k, props)
		el.Expandable = v.frontier(k, x.edgeSet)
		v.appendNode(el)
		d.AddedElements = append(d.AddedElements, el)
	}
	for _, rec := range x.edges {
		el := v.newEdgeElement(rec, x.scale)
		if v.isSelected(rec.Source) {
			el.SourceSelected = true
		}
		v.appendEdge(el)
		if el.SourceSelected {
			v.bumpIncoming(rec.Target, 1)
		}
		d.AddedElements = append(d.AddedElements, el)
	}
	v.logger.Debug("view expanded", "nodes", len(x.nodes), "edges", len(x.edges))
	return d
}
