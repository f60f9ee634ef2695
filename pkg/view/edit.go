package view

import (
	"fmt"
	"strconv"

	"github.com/DrSkyle/netscope/pkg/graph"
)

func (v *View) record(c graph.Change) {
	v.interactions.Append(c)
}

// ForgetInteractions clears the interaction log.
func (v *View) ForgetInteractions() {
	v.interactions = graph.NewChangeLog(v.interactions.Cap())
}

// AddActiveNode adds key to the store and activates it.
func (v *View) AddActiveNode(key string, props graph.Properties) error {
	if err := v.store.AddNode(key, props); err != nil {
		return err
	}
	v.invalidateAnalysis()
	stored, _ := v.store.Node(key)
	v.appendNode(v.newNodeElement(key, stored))
	v.record(graph.Change{Action: graph.ActionAddNode, Node: key, Properties: stored.Clone()})
	return nil
}

// UpdateActiveNode replaces the properties of an active node and refreshes
// its type and label.
func (v *View) UpdateActiveNode(key string, props graph.Properties) error {
	el := v.nodeElement(key)
	if el == nil {
		return notActive("update_node", key, "node is not active!")
	}
	cur, _ := v.store.Node(key)
	prev := cur.Clone()
	if err := v.store.UpdateNode(key, props); err != nil {
		return err
	}
	el.Type = NotDefined
	if t, ok := props.Type(); ok {
		el.Type = t
	}
	if l, ok := props[v.params.NodeLabelField]; ok && l != nil {
		el.Label = fmt.Sprint(l)
	}
	v.record(graph.Change{Action: graph.ActionUpdateNode, Node: key, Properties: props.Clone(), Previous: prev})
	return nil
}

// DeleteActiveNode deactivates key and then deletes it, with its edges, from the store.
func (v *View) DeleteActiveNode(key string) error {
	if !v.IsActive(key) {
		return notActive("delete_node", key, "node is not active!")
	}
	var sources []string
	for _, idx := range v.store.InEdges(key) {
		if e, ok := v.store.Edge(idx); ok && e.Source != key {
			sources = append(sources, e.Source)
		}
	}
	cur, _ := v.store.Node(key)
	prev := cur.Clone()

	v.DeactivateNodes([]string{key})
	if err := v.store.DeleteNode(key); err != nil {
		return err
	}
	v.refreshExpandability(sources...)
	v.record(graph.Change{Action: graph.ActionDeleteNode, Node: key, Previous: prev})
	return nil
}

// AddActiveEdge adds an edge between two active nodes and activates it.
func (v *View) AddActiveEdge(source, target string, props graph.Properties) (int, error) {
	if !v.IsActive(source) {
		return -1, notActive("add_edge", source, "source not active!")
	}
	if !v.IsActive(target) {
		return -1, notActive("add_edge", target, "target not active!")
	}
	idx, err := v.store.AddEdge(graph.NewEdge(source, target, props))
	if err != nil {
		return -1, err
	}
	v.invalidateAnalysis()
	e, _ := v.store.Edge(idx)
	el := v.newEdgeElement(graph.EdgeRecord{Index: idx, Edge: e}, v.weightScale())
	if v.isSelected(source) {
		el.SourceSelected = true
	}
	v.appendEdge(el)
	if el.SourceSelected {
		v.bumpIncoming(target, 1)
	}
	v.record(graph.Change{
		Action:     graph.ActionAddEdge,
		Edge:       &graph.EdgeRef{Index: idx, Source: source, Target: target},
		Properties: e.Properties.Clone(),
	})
	return idx, nil
}

// UpdateActiveEdge replaces the properties of an active edge.
func (v *View) UpdateActiveEdge(idx int, props graph.Properties) error {
	el := v.edgeElement(idx)
	if el == nil {
		return notActive("update_edge", strconv.Itoa(idx), "edge is not active!")
	}
	cur, _ := v.store.Edge(idx)
	prev := cur.Properties.Clone()
	if err := v.store.UpdateEdge(graph.At(idx), props); err != nil {
		return err
	}
	el.Type = NotDefined
	if t, ok := props.Type(); ok {
		el.Type = t
	}
	el.Probability = nil
	if p, ok := graph.Number(props["probability"]); ok {
		el.Probability = &p
	}
	if l, ok := props[v.params.EdgeLabelField]; ok && l != nil {
		el.Label = fmt.Sprint(l)
	}
	v.record(graph.Change{
		Action:     graph.ActionUpdateEdge,
		Edge:       &graph.EdgeRef{Index: idx, Source: cur.Source, Target: cur.Target},
		Properties: props.Clone(),
		Previous:   prev,
	})
	return nil
}

// DeleteActiveEdge removes an active edge from the view and the store.
func (v *View) DeleteActiveEdge(idx int) error {
	el := v.edgeElement(idx)
	if el == nil {
		return notActive("delete_edge", strconv.Itoa(idx), "edge is not active!")
	}
	cur, _ := v.store.Edge(idx)
	prev := cur.Properties.Clone()
	if v.isSelected(el.Source) {
		v.bumpIncoming(el.Target, -1)
	}
	delete(v.selectedEdges, idx)
	v.removeElements([]int{v.edges[idx].Element})
	if err := v.store.DeleteEdge(graph.At(idx)); err != nil {
		return err
	}
	v.record(graph.Change{
		Action:   graph.ActionDeleteEdge,
		Edge:     &graph.EdgeRef{Index: idx, Source: cur.Source, Target: cur.Target},
		Previous: prev,
	})
	return nil
}

// Merge replaces the active nodes in keys with newKey. Every active edge that
// touched a merged node is re-added with its endpoints rewritten, and newKey
// ends up selected. Edges that cannot be re-added, typically because two of
// them collapse onto the same typed pair, are reported and skipped.
func (v *View) Merge(keys []string, newKey string, newProps graph.Properties) ([]graph.ItemError, error) {
	merged := v.activeSubset(keys)
	if len(merged) == 0 {
		return nil, notActive("merge_nodes", "", "no node to merge is active!")
	}
	if _, self := merged[newKey]; !self && v.store.HasNode(newKey) {
		return nil, &graph.OpError{
			Op: "merge_nodes", Subject: newKey,
			Msg: fmt.Sprintf("node %s already exists", newKey), Err: graph.ErrConflict,
		}
	}

	type rewritten struct {
		source, target string
		props          graph.Properties
	}
	var rewrites []rewritten
	for _, idx := range v.touchingEdges(merged) {
		e, ok := v.store.Edge(idx)
		if !ok {
			continue
		}
		r := rewritten{source: e.Source, target: e.Target, props: e.Properties.Clone()}
		if _, ok := merged[r.source]; ok {
			r.source = newKey
		}
		if _, ok := merged[r.target]; ok {
			r.target = newKey
		}
		rewrites = append(rewrites, r)
	}

	order := sortedSet(merged)
	for _, k := range order {
		if err := v.DeleteActiveNode(k); err != nil {
			return nil, fmt.Errorf("failed to delete merged node %s: %w", k, err)
		}
	}
	if err := v.AddActiveNode(newKey, newProps); err != nil {
		return nil, fmt.Errorf("failed to add merged node %s: %w", newKey, err)
	}

	var skipped []graph.ItemError
	for _, r := range rewrites {
		if _, err := v.AddActiveEdge(r.source, r.target, r.props); err != nil {
			v.logger.Warn("merged edge skipped", "source", r.source, "target", r.target, "error", err)
			skipped = append(skipped, graph.ItemError{Edge: r.source + "->" + r.target, Err: err})
		}
	}
	if _, err := v.ToggleNodeSelection(newKey); err != nil {
		return skipped, err
	}
	v.logger.Debug("nodes merged", "nodes", order, "into", newKey, "edges", len(rewrites)-len(skipped))
	return skipped, nil
}
