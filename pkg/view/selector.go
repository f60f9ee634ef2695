package view

// Selector picks render elements for a visibility or highlight change.
type Selector interface {
	matches(pos int, el *Element) bool
}

type selectAll struct{}

func (selectAll) matches(int, *Element) bool { return true }

type selectTypes struct {
	node, edge map[string]struct{}
}

func (s selectTypes) matches(_ int, el *Element) bool {
	set := s.edge
	if el.Kind == KindNode {
		set = s.node
	}
	_, ok := set[el.Type]
	return ok
}

type selectElements map[int]struct{}

func (s selectElements) matches(pos int, _ *Element) bool {
	_, ok := s[pos]
	return ok
}

type selectIDs struct {
	kind Kind
	ids  map[string]struct{}
}

func (s selectIDs) matches(_ int, el *Element) bool {
	if el.Kind != s.kind {
		return false
	}
	_, ok := s.ids[el.ID]
	return ok
}

func SelectAll() Selector { return selectAll{} }

// SelectTypes matches nodes whose type is in nodeTypes and edges whose type is in edgeTypes.
func SelectTypes(nodeTypes, edgeTypes []string) Selector {
	return selectTypes{node: toSet(nodeTypes), edge: toSet(edgeTypes)}
}

// SelectElements matches render positions.
func SelectElements(positions ...int) Selector {
	s := make(selectElements, len(positions))
	for _, p := range positions {
		s[p] = struct{}{}
	}
	return s
}

func SelectNodes(keys ...string) Selector { return selectIDs{kind: KindNode, ids: toSet(keys)} }

// SelectEdges matches edge element ids: arena indexes in decimal, or
// "source_target" for predicted edges.
func SelectEdges(ids ...string) Selector { return selectIDs{kind: KindEdge, ids: toSet(ids)} }

// Query is the loose form of a selector, as decoded from a request. Only the
// first present criterion applies, in field order.
type Query struct {
	All       bool     `json:"all,omitempty"`
	NodeTypes []string `json:"node_types,omitempty"`
	EdgeTypes []string `json:"edge_types,omitempty"`
	Elements  []int    `json:"element_indexes,omitempty"`
	Nodes     []string `json:"nodes,omitempty"`
	Edges     []string `json:"edges,omitempty"`
}

// Selector resolves q, returning nil when q is empty.
func (q Query) Selector() Selector {
	switch {
	case q.All:
		return SelectAll()
	case q.NodeTypes != nil || q.EdgeTypes != nil:
		return SelectTypes(q.NodeTypes, q.EdgeTypes)
	case q.Elements != nil:
		return SelectElements(q.Elements...)
	case q.Nodes != nil:
		return SelectNodes(q.Nodes...)
	case q.Edges != nil:
		return SelectEdges(q.Edges...)
	}
	return nil
}

func (v *View) mark(sel Selector, set func(*Element)) int {
	if sel == nil {
		return 0
	}
	n := 0
	for pos, el := range v.elements {
		if sel.matches(pos, el) {
			set(el)
			n++
		}
	}
	return n
}

// Hide marks the selected elements hidden and returns how many matched.
// A nil selector is a no-op.
func (v *View) Hide(sel Selector) int {
	return v.mark(sel, func(el *Element) { el.Hidden = true })
}

func (v *View) Unhide(sel Selector) int {
	return v.mark(sel, func(el *Element) { el.Hidden = false })
}

func (v *View) Highlight(sel Selector) int {
	return v.mark(sel, func(el *Element) { el.Highlighted = true })
}

func (v *View) Unhighlight(sel Selector) int {
	return v.mark(sel, func(el *Element) { el.Highlighted = false })
}
