package graph

import "sort"

// Network is an induced subgraph returned by GetNetwork.
type Network struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// NodeSet returns the keys of n.Nodes as a set.
func (n Network) NodeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(n.Nodes))
	for _, rec := range n.Nodes {
		set[rec.Key] = struct{}{}
	}
	return set
}

// GetNetwork returns the one-hop neighborhood of keys (every node when keys is
// empty): the out-edges of keys that pass filter, the nodes they reach, and
// the filtered out-edges among those reached nodes. It does not recurse further.
func (s *Store) GetNetwork(keys []string, filter Filter) Network {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := keys
	if len(roots) == 0 {
		roots = s.unsafeSortedKeys()
	}
	rootSet := make(map[string]struct{}, len(roots))
	involved := make(map[string]struct{}, len(roots))
	var edges []int

	for _, k := range roots {
		if _, dup := rootSet[k]; dup {
			continue
		}
		rootSet[k] = struct{}{}
		if _, ok := s.nodes[k]; !ok {
			continue
		}
		involved[k] = struct{}{}
		for _, idx := range s.out[k] {
			e := s.edges[idx]
			if matches(filter, e.Properties) {
				edges = append(edges, idx)
				involved[e.Target] = struct{}{}
			}
		}
	}

	for v := range involved {
		if _, isRoot := rootSet[v]; isRoot {
			continue
		}
		for _, idx := range s.out[v] {
			e := s.edges[idx]
			if _, in := involved[e.Target]; in && matches(filter, e.Properties) {
				edges = append(edges, idx)
			}
		}
	}
	sort.Ints(edges)

	net := Network{
		Nodes: make([]NodeRecord, 0, len(involved)),
		Edges: make([]EdgeRecord, 0, len(edges)),
	}
	for k := range involved {
		net.Nodes = append(net.Nodes, NodeRecord{Key: k, Properties: s.nodes[k]})
	}
	sort.Slice(net.Nodes, func(i, j int) bool { return net.Nodes[i].Key < net.Nodes[j].Key })
	for _, idx := range edges {
		net.Edges = append(net.Edges, EdgeRecord{Index: idx, Edge: *s.edges[idx]})
	}
	return net
}

// SearchNodes returns the nodes among keys (every node when keys is empty)
// whose properties pass filter, and the keys that do not exist.
func (s *Store) SearchNodes(keys []string, filter Filter) (found []NodeRecord, missing []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		keys = s.unsafeSortedKeys()
	}
	for _, k := range keys {
		p, ok := s.nodes[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		if matches(filter, p) {
			found = append(found, NodeRecord{Key: k, Properties: p})
		}
	}
	return found, missing
}

type NodeEdges struct {
	Key   string       `json:"id"`
	Edges []EdgeRecord `json:"edges"`
}

// GetEdges returns, per existing key, its out-edges that pass filter.
func (s *Store) GetEdges(keys []string, filter Filter) (found []NodeEdges, missing []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		keys = s.unsafeSortedKeys()
	}
	for _, k := range keys {
		if _, ok := s.nodes[k]; !ok {
			missing = append(missing, k)
			continue
		}
		entry := NodeEdges{Key: k, Edges: []EdgeRecord{}}
		for _, idx := range s.out[k] {
			e := s.edges[idx]
			if matches(filter, e.Properties) {
				entry.Edges = append(entry.Edges, EdgeRecord{Index: idx, Edge: *e})
			}
		}
		found = append(found, entry)
	}
	return found, missing
}

type Neighbor struct {
	Key            string     `json:"neighbor_id"`
	Properties     Properties `json:"properties"`
	EdgeProperties Properties `json:"edges_properties"`
}

type NodeNeighbors struct {
	Key       string     `json:"id"`
	Neighbors []Neighbor `json:"neighbors"`
}

// GetNeighbors returns, per existing key, the targets of its out-edges that pass filter.
func (s *Store) GetNeighbors(keys []string, filter Filter) (found []NodeNeighbors, missing []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		keys = s.unsafeSortedKeys()
	}
	for _, k := range keys {
		if _, ok := s.nodes[k]; !ok {
			missing = append(missing, k)
			continue
		}
		entry := NodeNeighbors{Key: k, Neighbors: []Neighbor{}}
		for _, idx := range s.out[k] {
			e := s.edges[idx]
			if !matches(filter, e.Properties) {
				continue
			}
			entry.Neighbors = append(entry.Neighbors, Neighbor{
				Key:            e.Target,
				Properties:     s.nodes[e.Target],
				EdgeProperties: e.Properties,
			})
		}
		found = append(found, entry)
	}
	return found, missing
}

// NeighborCounts counts, per target, the out-edges leaving keys.
func (s *Store) NeighborCounts(keys []string) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, k := range keys {
		for _, idx := range s.out[k] {
			counts[s.edges[idx].Target]++
		}
	}
	return counts
}
