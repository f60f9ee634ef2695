package view

import (
	"strconv"
)

type Selection string

const (
	Selected   Selection = "selected"
	Unselected Selection = "unselected"
)

// ToggleNodeSelection flips the selection of an active node and propagates it
// to its active out-edges, their targets' incoming counters and its predicted edges.
func (v *View) ToggleNodeSelection(key string) (Selection, error) {
	el := v.nodeElement(key)
	if el == nil {
		return "", notActive("toggle node selection", key, "node is not active!")
	}
	el.Selected = !el.Selected
	delta := -1
	if el.Selected {
		delta = 1
	}
	for _, idx := range v.store.OutEdges(key) {
		edge := v.edgeElement(idx)
		if edge == nil {
			continue
		}
		edge.SourceSelected = el.Selected
		v.bumpIncoming(edge.Target, delta)
	}
	for _, pos := range v.predicted[key] {
		v.elements[pos].SourceSelected = !v.elements[pos].SourceSelected
	}
	if el.Selected {
		v.selectedNodes[key] = struct{}{}
		return Selected, nil
	}
	delete(v.selectedNodes, key)
	return Unselected, nil
}

// ToggleEdgeSelection flips the selection of an active edge. Predicted edges
// have non-numeric ids and are ignored with an empty Selection.
func (v *View) ToggleEdgeSelection(id string) (Selection, error) {
	idx, err := strconv.Atoi(id)
	if err != nil {
		v.logger.Debug("ignoring selection of predicted edge", "id", id)
		return "", nil
	}
	el := v.edgeElement(idx)
	if el == nil {
		return "", notActive("toggle edge selection", id, "edge is not active!")
	}
	el.Selected = !el.Selected
	if el.Selected {
		v.selectedEdges[idx] = struct{}{}
		return Selected, nil
	}
	delete(v.selectedEdges, idx)
	return Unselected, nil
}
