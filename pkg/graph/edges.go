package graph

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

type addrMode uint8

const (
	addrUnset addrMode = iota
	addrIndex
	addrPair
)

// EdgeAddr addresses an edge either by arena index or by its (source, target) pair.
// The zero value addresses nothing and is rejected as an invalid request.
type EdgeAddr struct {
	Index  int
	Source string
	Target string
	mode   addrMode
}

// At addresses the edge in arena slot i.
func At(i int) EdgeAddr { return EdgeAddr{Index: i, mode: addrIndex} }

// Between addresses the first live edge from source to target.
func Between(source, target string) EdgeAddr {
	return EdgeAddr{Index: -1, Source: source, Target: target, mode: addrPair}
}

func (a EdgeAddr) String() string {
	switch a.mode {
	case addrIndex:
		return strconv.Itoa(a.Index)
	case addrPair:
		return a.Source + "->" + a.Target
	}
	return "<unset>"
}

// FindEdgeIndex returns the first live slot from source to target, or -1.
// It scans whichever of the two adjacency lists is shorter.
func (s *Store) FindEdgeIndex(source, target string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unsafeFindEdge(source, target)
}

func (s *Store) unsafeFindEdge(source, target string) int {
	if _, ok := s.nodes[source]; !ok {
		return -1
	}
	if _, ok := s.nodes[target]; !ok {
		return -1
	}
	outs, okOut := s.out[source]
	ins, okIn := s.in[target]
	if !okOut || !okIn {
		return -1
	}
	if len(outs) <= len(ins) {
		for _, idx := range outs {
			if s.edges[idx].Target == target {
				return idx
			}
		}
		return -1
	}
	for _, idx := range ins {
		if s.edges[idx].Source == source {
			return idx
		}
	}
	return -1
}

// AddEdge appends e to the arena and returns its index. Two edges between the
// same pair are allowed only when their types differ.
func (s *Store) AddEdge(e Edge) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsafeAddEdge(e)
}

func (s *Store) unsafeAddEdge(e Edge) (int, error) {
	if _, ok := s.nodes[e.Source]; !ok {
		return -1, notFound("add_edge", e.Source, fmt.Sprintf("source %s not found", e.Source))
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return -1, notFound("add_edge", e.Target, fmt.Sprintf("target %s not found", e.Target))
	}
	for _, idx := range s.out[e.Source] {
		existing := s.edges[idx]
		if existing.Target == e.Target && sameType(existing.Properties, e.Properties) {
			return -1, conflict("add_edge", e.Source+"->"+e.Target,
				fmt.Sprintf("edge %s -> %s with the same type already exists", e.Source, e.Target))
		}
	}
	idx := len(s.edges)
	rec := &Edge{Source: e.Source, Target: e.Target, Observed: e.Observed, Properties: e.Properties.Clone()}
	s.edges = append(s.edges, rec)
	s.link(idx, rec)
	s.changes.Append(Change{Action: ActionAddEdge, Edge: &EdgeRef{Index: idx, Source: e.Source, Target: e.Target}, Properties: rec.Properties.Clone()})
	s.logger.Debug("edge added", "edge", idx, "source", e.Source, "target", e.Target)
	return idx, nil
}

func (s *Store) link(idx int, e *Edge) {
	s.out[e.Source] = append(s.out[e.Source], idx)
	s.in[e.Target] = append(s.in[e.Target], idx)
	if t, ok := e.Properties.Type(); ok {
		s.edgeTypes[t]++
	}
}

// RestoreEdge places e at a fixed arena slot, growing the arena with
// tombstones as needed. It is used when reloading snapshots.
func (s *Store) RestoreEdge(idx int, e Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 {
		return invalid("restore_edge", fmt.Sprintf("edge index %d is negative", idx))
	}
	if idx < len(s.edges) && s.edges[idx] != nil {
		return conflict("restore_edge", strconv.Itoa(idx), fmt.Sprintf("edge %d already exists", idx))
	}
	if _, ok := s.nodes[e.Source]; !ok {
		return notFound("restore_edge", e.Source, fmt.Sprintf("source %s not found", e.Source))
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return notFound("restore_edge", e.Target, fmt.Sprintf("target %s not found", e.Target))
	}
	for len(s.edges) <= idx {
		s.edges = append(s.edges, nil)
	}
	rec := &Edge{Source: e.Source, Target: e.Target, Observed: e.Observed, Properties: e.Properties.Clone()}
	s.edges[idx] = rec
	s.link(idx, rec)
	return nil
}

// UpdateEdge replaces the properties of the addressed edge wholesale.
func (s *Store) UpdateEdge(addr EdgeAddr, props Properties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsafeUpdateEdge(addr, props)
}

func (s *Store) unsafeUpdateEdge(addr EdgeAddr, props Properties) error {
	if props == nil {
		return invalid("update_edge", "nothing to update")
	}
	idx, err := s.unsafeResolve("update_edge", addr)
	if err != nil {
		return err
	}
	e := s.edges[idx]
	prev := e.Properties.Clone()
	retype(s.edgeTypes, prev, props)
	replaceInPlace(e.Properties, props)
	s.changes.Append(Change{
		Action:     ActionUpdateEdge,
		Edge:       &EdgeRef{Index: idx, Source: e.Source, Target: e.Target},
		Properties: e.Properties.Clone(),
		Previous:   prev,
	})
	return nil
}

// DeleteEdge tombstones the addressed slot.
func (s *Store) DeleteEdge(addr EdgeAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.unsafeResolve("delete_edge", addr)
	if err != nil {
		return err
	}
	return s.unsafeDeleteEdge(idx)
}

func (s *Store) unsafeDeleteEdge(idx int) error {
	if idx < 0 || idx >= len(s.edges) || s.edges[idx] == nil {
		return notFound("delete_edge", strconv.Itoa(idx), fmt.Sprintf("edge %d not found", idx))
	}
	e := s.edges[idx]
	s.out[e.Source] = unlink(s.out, e.Source, idx)
	s.in[e.Target] = unlink(s.in, e.Target, idx)
	if len(s.out[e.Source]) == 0 {
		delete(s.out, e.Source)
	}
	if len(s.in[e.Target]) == 0 {
		delete(s.in, e.Target)
	}
	if t, ok := e.Properties.Type(); ok {
		decrement(s.edgeTypes, t)
	}
	s.edges[idx] = nil
	s.changes.Append(Change{
		Action:   ActionDeleteEdge,
		Edge:     &EdgeRef{Index: idx, Source: e.Source, Target: e.Target},
		Previous: e.Properties.Clone(),
	})
	s.logger.Debug("edge deleted", "edge", idx)
	return nil
}

func unlink(adj map[string][]int, key string, idx int) []int {
	list := adj[key]
	if i := slices.Index(list, idx); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

func (s *Store) unsafeResolve(op string, addr EdgeAddr) (int, error) {
	switch addr.mode {
	case addrIndex:
		if addr.Index < 0 || addr.Index >= len(s.edges) || s.edges[addr.Index] == nil {
			return -1, notFound(op, addr.String(), fmt.Sprintf("edge %d not found", addr.Index))
		}
		return addr.Index, nil
	case addrPair:
		if addr.Source == "" || addr.Target == "" {
			return -1, invalid(op, "source or target is missing")
		}
		idx := s.unsafeFindEdge(addr.Source, addr.Target)
		if idx < 0 {
			return -1, notFound(op, addr.String(), fmt.Sprintf("edge %s -> %s not found", addr.Source, addr.Target))
		}
		return idx, nil
	}
	return -1, invalid(op, "edge index is missing")
}

func sameType(a, b Properties) bool {
	ta, okA := a.Type()
	tb, okB := b.Type()
	if !okA && !okB {
		return true
	}
	return okA && okB && ta == tb
}

// --- Readers ---

// Edge returns the live edge in slot idx. Its Properties alias the stored map.
func (s *Store) Edge(idx int) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx < 0 || idx >= len(s.edges) || s.edges[idx] == nil {
		return Edge{}, false
	}
	return *s.edges[idx], true
}

// IsLive reports whether slot idx holds an edge.
func (s *Store) IsLive(idx int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return idx >= 0 && idx < len(s.edges) && s.edges[idx] != nil
}

// EdgeCount is the arena length, tombstones included.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// NumEdges counts live edges.
func (s *Store) NumEdges() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.edges {
		if e != nil {
			n++
		}
	}
	return n
}

// Edges returns every live edge in arena order.
func (s *Store) Edges() []EdgeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EdgeRecord, 0, len(s.edges))
	for i, e := range s.edges {
		if e != nil {
			out = append(out, EdgeRecord{Index: i, Edge: *e})
		}
	}
	return out
}

func (s *Store) OutEdges(key string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.out[key])
}

func (s *Store) InEdges(key string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.in[key])
}

// HasUnlistedOutEdge reports whether key has a live out-edge for which listed returns false.
func (s *Store) HasUnlistedOutEdge(key string, listed func(idx int) bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, idx := range s.out[key] {
		if !listed(idx) {
			return true
		}
	}
	return false
}

// WeightRange returns the min and max numeric weight over live edges.
func (s *Store) WeightRange() (lo, hi float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, e := range s.edges {
		if e == nil {
			continue
		}
		w, isNum := Number(e.Properties["weight"])
		if !isNum {
			continue
		}
		ok = true
		lo = min(lo, w)
		hi = max(hi, w)
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
