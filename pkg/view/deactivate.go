package view

import (
	"slices"
)

// DeactivateDelta describes what a deactivation removes.
type DeactivateDelta struct {
	// ChangedIncomingNeighborSelected lists targets whose last selected
	// in-neighbor goes away.
	ChangedIncomingNeighborSelected []string `json:"changed_incoming_neighbor_selected"`
	ChangedExpandability            []string `json:"changed_expandability"`
	RemovedElements                 []int    `json:"removed_elements"`
	RemovedEdges                    []int    `json:"removed_edges"`
}

// touchingEdges returns the active edges with an endpoint in keys.
func (v *View) touchingEdges(keys map[string]struct{}) []int {
	set := make(map[int]struct{})
	for k := range keys {
		for _, idx := range v.store.OutEdges(k) {
			if _, ok := v.edges[idx]; ok {
				set[idx] = struct{}{}
			}
		}
		for _, idx := range v.store.InEdges(k) {
			if _, ok := v.edges[idx]; ok {
				set[idx] = struct{}{}
			}
		}
	}
	return sortedSet(set)
}

func (v *View) activeIn(ids []int) []int {
	set := make(map[int]struct{})
	for _, idx := range ids {
		if _, ok := v.edges[idx]; ok {
			set[idx] = struct{}{}
		}
	}
	return sortedSet(set)
}

func toSet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// planRemoval computes the delta for dropping edges, and the nodes in gone.
// Each edge's source is "dropping" when it is in gone, or always when
// dropAllSources is set.
func (v *View) planRemoval(edges []int, gone map[string]struct{}, dropAllSources bool) DeactivateDelta {
	d := DeactivateDelta{
		ChangedIncomingNeighborSelected: []string{},
		ChangedExpandability:            []string{},
		RemovedEdges:                    edges,
	}
	incoming := make(map[string]struct{})
	expand := make(map[string]struct{})
	for _, idx := range edges {
		el := v.edgeElement(idx)
		d.RemovedElements = append(d.RemovedElements, v.edges[idx].Element)
		_, sourceGone := gone[el.Source]
		_, targetGone := gone[el.Target]
		if (sourceGone || dropAllSources) && v.isSelected(el.Source) {
			if t := v.nodeElement(el.Target); t != nil && t.IncomingSelected == 1 {
				incoming[el.Target] = struct{}{}
			}
		}
		if an, ok := v.nodes[el.Source]; ok && !sourceGone && (targetGone || dropAllSources) && !an.Expandable {
			expand[el.Source] = struct{}{}
		}
	}
	for _, k := range sortedSet(gone) {
		if an, ok := v.nodes[k]; ok {
			d.RemovedElements = append(d.RemovedElements, an.Element)
		}
	}
	d.ChangedIncomingNeighborSelected = append(d.ChangedIncomingNeighborSelected, sortedSet(incoming)...)
	d.ChangedExpandability = append(d.ChangedExpandability, sortedSet(expand)...)
	return d
}

// applyRemoval releases the edges of a planned removal and then every position.
func (v *View) applyRemoval(d DeactivateDelta, gone map[string]struct{}, dropAllSources bool) {
	for _, idx := range d.RemovedEdges {
		el := v.edgeElement(idx)
		_, sourceGone := gone[el.Source]
		if (sourceGone || dropAllSources) && v.isSelected(el.Source) {
			v.bumpIncoming(el.Target, -1)
		}
		delete(v.selectedEdges, idx)
	}
	for _, k := range d.ChangedExpandability {
		v.setExpandable(k, true)
	}
	for k := range gone {
		delete(v.selectedNodes, k)
	}
	v.removeElements(d.RemovedElements)
}

// PreviewDeactivateNodes reports what DeactivateNodes(keys) would remove.
func (v *View) PreviewDeactivateNodes(keys []string) DeactivateDelta {
	gone := v.activeSubset(keys)
	return v.planRemoval(v.touchingEdges(gone), gone, false)
}

// DeactivateNodes removes keys and every active edge touching them from the view.
// The store is not modified.
func (v *View) DeactivateNodes(keys []string) DeactivateDelta {
	v.invalidateAnalysis()
	gone := v.activeSubset(keys)
	d := v.planRemoval(v.touchingEdges(gone), gone, false)
	v.applyRemoval(d, gone, false)
	v.logger.Debug("nodes deactivated", "nodes", len(gone), "edges", len(d.RemovedEdges))
	return d
}

// PreviewDeactivateEdges reports what DeactivateEdges(ids) would remove.
func (v *View) PreviewDeactivateEdges(ids []int) DeactivateDelta {
	return v.planRemoval(v.activeIn(ids), nil, true)
}

// DeactivateEdges removes the given active edges from the view. Their sources
// become expandable again.
func (v *View) DeactivateEdges(ids []int) DeactivateDelta {
	v.invalidateAnalysis()
	d := v.planRemoval(v.activeIn(ids), nil, true)
	v.applyRemoval(d, nil, true)
	v.logger.Debug("edges deactivated", "edges", len(d.RemovedEdges))
	return d
}

func (v *View) activeSubset(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := v.nodes[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// refreshExpandability recomputes the flag of the given active nodes against
// the current store.
func (v *View) refreshExpandability(keys ...string) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	for _, k := range slices.Compact(keys) {
		if _, ok := v.nodes[k]; ok {
			v.setExpandable(k, v.frontier(k, nil))
		}
	}
}
