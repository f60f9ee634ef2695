// Package view maintains an analyst's active sub-network over a graph.Store:
// the render list, selection state, visibility flags and attached analysis results.
package view

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/DrSkyle/netscope/pkg/analysis"
	"github.com/DrSkyle/netscope/pkg/config"
	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/netio"
)

// ErrNotActive reports an operation on a node or edge outside the active set.
var ErrNotActive = errors.New("not active")

// ActiveNode is the membership record of an active node.
type ActiveNode struct {
	Expandable bool `json:"expandable"`
	Element    int  `json:"element_index"`
}

// ActiveEdge is the membership record of an active edge.
type ActiveEdge struct {
	Element int `json:"element_index"`
}

// Params are the per-view presentation settings.
type Params struct {
	NetworkName    string `json:"network_name"`
	NodeLabelField string `json:"node_label_field"`
	EdgeLabelField string `json:"edge_label_field"`
}

// Info summarizes the active sub-network.
type Info struct {
	NetworkName string `json:"network_name"`
	NumNodes    int    `json:"num_nodes"`
	NumEdges    int    `json:"num_edges"`
}

// View is owned by a single analyst and is not safe for concurrent use. The
// backing store may be shared; structural writes to it must not interleave
// with view operations.
type View struct {
	store  *graph.Store
	cfg    config.ViewConfig
	params Params
	logger *slog.Logger
	rng    *rand.Rand

	elements  []*Element
	nodes     map[string]*ActiveNode
	edges     map[int]*ActiveEdge
	predicted map[string][]int

	selectedNodes map[string]struct{}
	selectedEdges map[int]struct{}

	last         *analysis.Signature
	interactions *graph.ChangeLog
	// meta is kept from node-link input for re-export.
	meta *netio.Meta
}

type Option func(*View)

func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.logger = l }
}

func WithConfig(c config.ViewConfig) Option {
	return func(v *View) { v.cfg = c }
}

// WithRand fixes the source used for truncation sampling.
func WithRand(r *rand.Rand) Option {
	return func(v *View) { v.rng = r }
}

// New returns an empty view over store. Call Initialize or Deserialize to populate it.
func New(store *graph.Store, opts ...Option) *View {
	v := &View{
		store:  store,
		cfg:    config.DefaultViewConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.rng == nil {
		seed := uint64(v.cfg.Seed)
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		v.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	v.params = v.defaultParams(Params{})
	v.interactions = graph.NewChangeLog(v.cfg.InteractionLogSize)
	v.reset()
	return v
}

func (v *View) defaultParams(p Params) Params {
	if p.NetworkName == "" {
		p.NetworkName = v.cfg.NetworkName
	}
	if p.NetworkName == "" {
		p.NetworkName = config.DefaultNetworkName
	}
	if p.NodeLabelField == "" {
		p.NodeLabelField = v.cfg.NodeLabelField
	}
	if p.NodeLabelField == "" {
		p.NodeLabelField = config.DefaultLabelField
	}
	if p.EdgeLabelField == "" {
		p.EdgeLabelField = v.cfg.EdgeLabelField
	}
	if p.EdgeLabelField == "" {
		p.EdgeLabelField = config.DefaultLabelField
	}
	return p
}

func (v *View) reset() {
	v.elements = nil
	v.nodes = make(map[string]*ActiveNode)
	v.edges = make(map[int]*ActiveEdge)
	v.predicted = make(map[string][]int)
	v.selectedNodes = make(map[string]struct{})
	v.selectedEdges = make(map[int]struct{})
	v.last = nil
}

// Initialize rebuilds the view from the one-hop neighborhood of selected, or
// from the whole store when selected is empty. The selected keys survive
// truncation to the configured node budget.
func (v *View) Initialize(selected []string, p Params) {
	v.reset()
	v.params = v.defaultParams(p)

	net := v.store.GetNetwork(selected, nil)
	nodes, edges := v.truncate(net, selected)

	for _, key := range nodes {
		props, ok := v.store.Node(key)
		if !ok {
			continue
		}
		v.appendNode(v.newNodeElement(key, props))
	}
	ws := v.weightScale()
	for _, rec := range edges {
		v.appendEdge(v.newEdgeElement(rec, ws))
	}
	for key, an := range v.nodes {
		an.Expandable = v.frontier(key, nil)
		v.elements[an.Element].Expandable = an.Expandable
	}
	v.logger.Debug("view initialized", "network", v.params.NetworkName,
		"nodes", len(v.nodes), "edges", len(v.edges))
}

// truncate samples the network down to MaxActiveNodes, always keeping core.
// Only edges with both endpoints retained survive.
func (v *View) truncate(net graph.Network, core []string) ([]string, []graph.EdgeRecord) {
	keys := make([]string, len(net.Nodes))
	for i, n := range net.Nodes {
		keys[i] = n.Key
	}
	budget := v.cfg.MaxActiveNodes
	if budget <= 0 || len(keys) <= budget {
		return keys, net.Edges
	}

	kept := make(map[string]struct{}, budget+len(core))
	for _, i := range v.rng.Perm(len(keys))[:budget] {
		kept[keys[i]] = struct{}{}
	}
	present := net.NodeSet()
	for _, k := range core {
		if _, ok := present[k]; ok {
			kept[k] = struct{}{}
		}
	}
	nodes := make([]string, 0, len(kept))
	for _, k := range keys {
		if _, ok := kept[k]; ok {
			nodes = append(nodes, k)
		}
	}
	edges := make([]graph.EdgeRecord, 0, len(net.Edges))
	for _, e := range net.Edges {
		_, s := kept[e.Source]
		_, t := kept[e.Target]
		if s && t {
			edges = append(edges, e)
		}
	}
	v.logger.Warn("active network truncated", "nodes", len(keys), "kept", len(nodes), "budget", budget)
	return nodes, edges
}

func (v *View) appendNode(el *Element) {
	v.elements = append(v.elements, el)
	v.nodes[el.ID] = &ActiveNode{Expandable: el.Expandable, Element: len(v.elements) - 1}
}

func (v *View) appendEdge(el *Element) {
	v.elements = append(v.elements, el)
	v.edges[el.EdgeIndex] = &ActiveEdge{Element: len(v.elements) - 1}
}

// frontier reports whether key has a live out-edge that is neither active nor in extra.
func (v *View) frontier(key string, extra map[int]struct{}) bool {
	return v.store.HasUnlistedOutEdge(key, func(idx int) bool {
		if _, ok := v.edges[idx]; ok {
			return true
		}
		_, ok := extra[idx]
		return ok
	})
}

func (v *View) nodeElement(key string) *Element {
	an, ok := v.nodes[key]
	if !ok {
		return nil
	}
	return v.elements[an.Element]
}

func (v *View) edgeElement(idx int) *Element {
	ae, ok := v.edges[idx]
	if !ok {
		return nil
	}
	return v.elements[ae.Element]
}

func (v *View) setExpandable(key string, expandable bool) {
	an, ok := v.nodes[key]
	if !ok {
		return
	}
	an.Expandable = expandable
	v.elements[an.Element].Expandable = expandable
}

// bumpIncoming adjusts the selected-incoming counter of an active node, floored at zero.
func (v *View) bumpIncoming(key string, delta int) {
	el := v.nodeElement(key)
	if el == nil {
		return
	}
	el.IncomingSelected = max(el.IncomingSelected+delta, 0)
	el.IncomingNeighborSelected = el.IncomingSelected > 0
}

func (v *View) isSelected(key string) bool {
	_, ok := v.selectedNodes[key]
	return ok
}

func notActive(op, subject, msg string) error {
	return &graph.OpError{Op: op, Subject: subject, Msg: msg, Err: ErrNotActive}
}

// --- Accessors ---

func (v *View) Store() *graph.Store { return v.store }

func (v *View) Params() Params { return v.params }

// Elements returns the render list. The elements are live; callers must not
// mutate them.
func (v *View) Elements() []*Element { return slices.Clone(v.elements) }

func (v *View) Element(pos int) (*Element, bool) {
	if pos < 0 || pos >= len(v.elements) {
		return nil, false
	}
	return v.elements[pos], true
}

func (v *View) ActiveNodes() map[string]ActiveNode {
	out := make(map[string]ActiveNode, len(v.nodes))
	for k, an := range v.nodes {
		out[k] = *an
	}
	return out
}

func (v *View) ActiveEdges() map[int]ActiveEdge {
	out := make(map[int]ActiveEdge, len(v.edges))
	for k, ae := range v.edges {
		out[k] = *ae
	}
	return out
}

func (v *View) IsActive(key string) bool {
	_, ok := v.nodes[key]
	return ok
}

// PredictedEdges maps each source to the render positions of its predicted edges.
func (v *View) PredictedEdges() map[string][]int {
	out := make(map[string][]int, len(v.predicted))
	for k, ps := range v.predicted {
		out[k] = slices.Clone(ps)
	}
	return out
}

func (v *View) SelectedNodes() []string {
	out := make([]string, 0, len(v.selectedNodes))
	for k := range v.selectedNodes {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (v *View) SelectedEdges() []int {
	out := make([]int, 0, len(v.selectedEdges))
	for k := range v.selectedEdges {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// LastAnalysis returns the signature of the most recently applied analysis, or nil.
func (v *View) LastAnalysis() *analysis.Signature {
	if v.last == nil {
		return nil
	}
	sig := *v.last
	return &sig
}

// Interactions returns the recent active edits, oldest first.
func (v *View) Interactions() []graph.Change { return v.interactions.Changes() }

func (v *View) Info() Info {
	return Info{NetworkName: v.params.NetworkName, NumNodes: len(v.nodes), NumEdges: len(v.edges)}
}

// ActiveTypes returns sorted node and edge types present in the render list.
// The predicted type is listed whenever predictions are attached.
func (v *View) ActiveTypes() (nodeTypes, edgeTypes []string) {
	ns := make(map[string]struct{})
	for _, an := range v.nodes {
		ns[v.elements[an.Element].Type] = struct{}{}
	}
	es := make(map[string]struct{})
	for _, ae := range v.edges {
		es[v.elements[ae.Element].Type] = struct{}{}
	}
	if len(v.predicted) > 0 {
		es[PredictedType] = struct{}{}
	}
	return sortedSet(ns), sortedSet(es)
}

// ActiveEdgeRecords returns the active edges in arena order, skipping hidden ones
// unless includeHidden is set.
func (v *View) ActiveEdgeRecords(includeHidden bool) []graph.EdgeRecord {
	idxs := make([]int, 0, len(v.edges))
	for idx, ae := range v.edges {
		if includeHidden || !v.elements[ae.Element].Hidden {
			idxs = append(idxs, idx)
		}
	}
	slices.Sort(idxs)
	out := make([]graph.EdgeRecord, 0, len(idxs))
	for _, idx := range idxs {
		if e, ok := v.store.Edge(idx); ok {
			out = append(out, graph.EdgeRecord{Index: idx, Edge: e})
		}
	}
	return out
}

func sortedSet[K string | int](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
