package graph

import "sort"

// DeleteNodes deletes every key, collecting failures instead of stopping.
func (s *Store) DeleteNodes(keys []string) []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []ItemError
	for _, k := range keys {
		if err := s.unsafeDeleteNode(k); err != nil {
			errs = append(errs, ItemError{Node: k, Err: err})
		}
	}
	return errs
}

func (s *Store) DeleteEdges(addrs []EdgeAddr) []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []ItemError
	for _, a := range addrs {
		idx, err := s.unsafeResolve("delete_edge", a)
		if err == nil {
			err = s.unsafeDeleteEdge(idx)
		}
		if err != nil {
			errs = append(errs, ItemError{Edge: a.String(), Err: err})
		}
	}
	return errs
}

// SaveNodes adds missing nodes and replaces the properties of existing ones.
func (s *Store) SaveNodes(nodes map[string]Properties) []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(nodes))
	for k := range nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []ItemError
	for _, k := range keys {
		var err error
		if _, ok := s.nodes[k]; ok {
			err = s.unsafeUpdateNode(k, nodes[k])
		} else {
			err = s.unsafeAddNode(k, nodes[k])
		}
		if err != nil {
			errs = append(errs, ItemError{Node: k, Err: err})
		}
	}
	return errs
}

// SaveEdges adds each edge, or replaces the properties of the first live edge
// already connecting its pair.
func (s *Store) SaveEdges(edges []Edge) []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []ItemError
	for _, e := range edges {
		var err error
		if idx := s.unsafeFindEdge(e.Source, e.Target); idx >= 0 {
			err = s.unsafeUpdateEdge(At(idx), e.Properties.Clone())
		} else {
			_, err = s.unsafeAddEdge(e)
		}
		if err != nil {
			errs = append(errs, ItemError{Edge: e.Source + "->" + e.Target, Err: err})
		}
	}
	return errs
}
