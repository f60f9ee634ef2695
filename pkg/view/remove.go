package view

import (
	"slices"
)

// removeElements deletes the given render positions. Every surviving element
// keeps its back-reference pointing at its new position.
func (v *View) removeElements(positions []int) {
	positions = slices.Clone(positions)
	slices.Sort(positions)
	positions = slices.Compact(positions)
	slices.Reverse(positions)

	for _, pos := range positions {
		if pos < 0 || pos >= len(v.elements) {
			continue
		}
		v.release(pos, v.elements[pos])
		last := len(v.elements) - 1
		for i := pos; i < last; i++ {
			v.elements[i] = v.elements[i+1]
			v.repoint(v.elements[i], i+1, i)
		}
		v.elements[last] = nil
		v.elements = v.elements[:last]
	}
}

func (v *View) release(pos int, el *Element) {
	switch {
	case el.Kind == KindNode:
		delete(v.nodes, el.ID)
	case !el.Predicted:
		delete(v.edges, el.EdgeIndex)
	default:
		ps := slices.DeleteFunc(v.predicted[el.Source], func(p int) bool { return p == pos })
		if len(ps) == 0 {
			delete(v.predicted, el.Source)
		} else {
			v.predicted[el.Source] = ps
		}
	}
}

func (v *View) repoint(el *Element, from, to int) {
	switch {
	case el.Kind == KindNode:
		v.nodes[el.ID].Element = to
	case !el.Predicted:
		v.edges[el.EdgeIndex].Element = to
	default:
		ps := v.predicted[el.Source]
		if i := slices.Index(ps, from); i >= 0 {
			ps[i] = to
		}
	}
}

// removePredicted drops the predicted edges of the given sources, or of every
// source when sources is nil.
func (v *View) removePredicted(sources []string) {
	if sources == nil {
		sources = sortedSet(keysOf(v.predicted))
	}
	var positions []int
	for _, s := range sources {
		positions = append(positions, v.predicted[s]...)
	}
	v.removeElements(positions)
	for _, s := range sources {
		delete(v.predicted, s)
	}
}

func keysOf[V any](m map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
