package graph

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
)

// Edge is one arena slot. Observed is false for edges recorded as unconfirmed.
type Edge struct {
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Observed   bool       `json:"observed"`
	Properties Properties `json:"properties"`
}

// NewEdge returns an observed edge.
func NewEdge(source, target string, props Properties) Edge {
	return Edge{Source: source, Target: target, Observed: true, Properties: props}
}

type NodeRecord struct {
	Key        string     `json:"id"`
	Properties Properties `json:"properties"`
}

// EdgeRecord is an edge together with its arena index.
type EdgeRecord struct {
	Index int `json:"index"`
	Edge
}

// Store is the canonical in-memory graph of one dataset.
//
// Edges live in an append-only arena; deletion leaves a nil tombstone so
// indices handed out earlier never point at a different edge. The out and in
// maps index live arena slots by source and by target.
//
// Every exported method is atomic with respect to the others. Property maps
// returned by readers alias the stored maps and must be treated as read-only.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]Properties
	edges     []*Edge
	out       map[string][]int
	in        map[string][]int
	nodeTypes map[string]int
	edgeTypes map[string]int
	changes   *ChangeLog
	logger    *slog.Logger
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithChangeLogSize sets the capacity of the change log ring.
func WithChangeLogSize(n int) Option {
	return func(s *Store) { s.changes = NewChangeLog(n) }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:     make(map[string]Properties),
		out:       make(map[string][]int),
		in:        make(map[string][]int),
		nodeTypes: make(map[string]int),
		edgeTypes: make(map[string]int),
		changes:   NewChangeLog(DefaultLogSize),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Nodes ---

func (s *Store) AddNode(key string, props Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsafeAddNode(key, props)
}

func (s *Store) unsafeAddNode(key string, props Properties) error {
	if key == "" {
		return invalid("add_node", "node key is empty")
	}
	if _, ok := s.nodes[key]; ok {
		return conflict("add_node", key, fmt.Sprintf("node %s already exists", key))
	}
	p := props.Clone()
	s.nodes[key] = p
	if t, ok := p.Type(); ok {
		s.nodeTypes[t]++
	}
	s.changes.Append(Change{Action: ActionAddNode, Node: key, Properties: p.Clone()})
	s.logger.Debug("node added", "node", key)
	return nil
}

// UpdateNode replaces the properties of key wholesale.
func (s *Store) UpdateNode(key string, props Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsafeUpdateNode(key, props)
}

func (s *Store) unsafeUpdateNode(key string, props Properties) error {
	if props == nil {
		return invalid("update_node", "nothing to update")
	}
	cur, ok := s.nodes[key]
	if !ok {
		return notFound("update_node", key, fmt.Sprintf("node %s not found", key))
	}
	prev := cur.Clone()
	retype(s.nodeTypes, prev, props)
	replaceInPlace(cur, props)
	s.changes.Append(Change{Action: ActionUpdateNode, Node: key, Properties: cur.Clone(), Previous: prev})
	return nil
}

// DeleteNode removes key and every edge incident to it.
func (s *Store) DeleteNode(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsafeDeleteNode(key)
}

func (s *Store) unsafeDeleteNode(key string) error {
	props, ok := s.nodes[key]
	if !ok {
		return notFound("delete_node", key, fmt.Sprintf("node %s not found", key))
	}
	for _, idx := range slices.Clone(s.out[key]) {
		_ = s.unsafeDeleteEdge(idx)
	}
	// Self loops are already gone from the in list by now.
	for _, idx := range slices.Clone(s.in[key]) {
		_ = s.unsafeDeleteEdge(idx)
	}
	delete(s.out, key)
	delete(s.in, key)
	if t, ok := props.Type(); ok {
		decrement(s.nodeTypes, t)
	}
	delete(s.nodes, key)
	s.changes.Append(Change{Action: ActionDeleteNode, Node: key, Previous: props.Clone()})
	s.logger.Debug("node deleted", "node", key)
	return nil
}

// Node returns the stored properties of key.
func (s *Store) Node(key string) (Properties, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.nodes[key]
	return p, ok
}

func (s *Store) HasNode(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[key]
	return ok
}

// NodeKeys returns every node key in sorted order.
func (s *Store) NodeKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unsafeSortedKeys()
}

func (s *Store) unsafeSortedKeys() []string {
	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) NumNodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// --- Bookkeeping ---

// NodeTypes returns a copy of the node type histogram.
func (s *Store) NodeTypes() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.nodeTypes)
}

// EdgeTypes returns a copy of the edge type histogram.
func (s *Store) EdgeTypes() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.edgeTypes)
}

// Changes returns the retained change log, oldest first.
func (s *Store) Changes() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changes.Changes()
}

// ForgetChanges drops the change log.
func (s *Store) ForgetChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = NewChangeLog(s.changes.Cap())
}

func retype(hist map[string]int, before, after Properties) {
	oldType, hadOld := before.Type()
	newType, hasNew := after.Type()
	if hadOld == hasNew && oldType == newType {
		return
	}
	if hadOld {
		decrement(hist, oldType)
	}
	if hasNew {
		hist[newType]++
	}
}

func decrement(hist map[string]int, t string) {
	if hist[t] <= 1 {
		delete(hist, t)
		return
	}
	hist[t]--
}

// replaceInPlace keeps the identity of dst so outstanding references see the new values.
func replaceInPlace(dst, src Properties) {
	next := src.Clone()
	clear(dst)
	maps.Copy(dst, next)
}
