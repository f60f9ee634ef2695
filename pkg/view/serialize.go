package view

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/DrSkyle/netscope/pkg/analysis"
	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/netio"
)

// Snapshot record types, written after the node and edge records of the store.
const (
	recActiveNode    = "active_node"
	recActiveEdge    = "active_edge"
	recPredictedEdge = "predicted_edge"
	recElement       = "active_element"
	recParams        = "view_params"
	recLastAnalysis  = "last_analysis"
)

type activeNodeRecord struct {
	Type       string     `json:"type"`
	ID         netio.Key  `json:"id"`
	Properties ActiveNode `json:"properties"`
}

type activeEdgeRecord struct {
	Type       string      `json:"type"`
	ID         json.Number `json:"id"`
	Properties ActiveEdge  `json:"properties"`
}

type predictedRecord struct {
	Type  string    `json:"type"`
	ID    netio.Key `json:"id"`
	Edges []int     `json:"edges"`
}

type elementRecord struct {
	Type       string  `json:"type"`
	Properties Element `json:"properties"`
}

type paramsRecord struct {
	Type       string `json:"type"`
	Properties Params `json:"properties"`
}

type lastAnalysisRecord struct {
	Type       string              `json:"type"`
	Properties *analysis.Signature `json:"properties"`
}

// Serialize writes the backing store and the full view state as line records.
// Edge records keep their arena index so tombstone gaps survive a reload.
func (v *View) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)
	out := netio.NewWriter(bw)
	if _, err := out.WriteGraph(v.store, netio.DumpOptions{}, true); err != nil {
		return err
	}
	for _, k := range sortedSet(keysOf(v.nodes)) {
		if err := out.Write(activeNodeRecord{Type: recActiveNode, ID: netio.Key(k), Properties: *v.nodes[k]}); err != nil {
			return err
		}
	}
	for _, idx := range sortedSet(edgeKeys(v.edges)) {
		rec := activeEdgeRecord{Type: recActiveEdge, ID: json.Number(strconv.Itoa(idx)), Properties: *v.edges[idx]}
		if err := out.Write(rec); err != nil {
			return err
		}
	}
	for _, s := range sortedSet(keysOf(v.predicted)) {
		if err := out.Write(predictedRecord{Type: recPredictedEdge, ID: netio.Key(s), Edges: v.predicted[s]}); err != nil {
			return err
		}
	}
	for _, el := range v.elements {
		if err := out.Write(elementRecord{Type: recElement, Properties: *el}); err != nil {
			return err
		}
	}
	if err := out.Write(paramsRecord{Type: recParams, Properties: v.params}); err != nil {
		return err
	}
	if err := out.Write(lastAnalysisRecord{Type: recLastAnalysis, Properties: v.last}); err != nil {
		return err
	}
	return bw.Flush()
}

func edgeKeys(m map[int]*ActiveEdge) map[int]struct{} {
	out := make(map[int]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

// Deserialize rebuilds a view, and a fresh store behind it, from a snapshot
// written by Serialize or from plain graph input in either format. A snapshot
// without render elements is initialized over the whole graph.
func Deserialize(r io.Reader, opts ...Option) (*View, error) {
	doc, err := netio.Decode(r)
	if err != nil {
		return nil, err
	}
	v := New(nil, opts...)
	v.store = graph.NewStore(graph.WithLogger(v.logger))
	for _, e := range netio.Load(v.store, doc) {
		v.logger.Warn("snapshot record skipped", "node", e.Node, "edge", e.Edge, "error", e.Err)
	}
	v.meta = doc.Meta

	for i, line := range doc.Extra {
		if err := v.restore(line); err != nil {
			return nil, fmt.Errorf("snapshot record %d: %w", i+1, err)
		}
	}
	if err := v.checkIndexes(); err != nil {
		return nil, err
	}
	if len(v.elements) == 0 {
		v.Initialize(nil, v.params)
	}
	return v, nil
}

func (v *View) restore(line json.RawMessage) error {
	typ, err := netio.RecordType(line)
	if err != nil {
		return err
	}
	switch typ {
	case recActiveNode:
		var rec activeNodeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		an := rec.Properties
		v.nodes[string(rec.ID)] = &an
	case recActiveEdge:
		var rec activeEdgeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		idx, err := strconv.Atoi(rec.ID.String())
		if err != nil {
			return fmt.Errorf("active edge id %q is not an index", rec.ID)
		}
		ae := rec.Properties
		v.edges[idx] = &ae
	case recPredictedEdge:
		var rec predictedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		if len(rec.Edges) > 0 {
			v.predicted[string(rec.ID)] = rec.Edges
		}
	case recElement:
		var rec elementRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		el := rec.Properties
		v.adopt(&el)
		v.elements = append(v.elements, &el)
	case recParams:
		var rec paramsRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		v.params = v.defaultParams(rec.Properties)
	case recLastAnalysis:
		var rec lastAnalysisRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		v.last = rec.Properties
	default:
		v.logger.Debug("ignoring unknown snapshot record", "type", typ)
	}
	return nil
}

// adopt points a decoded element's info back at the stored properties and
// rebuilds the selection sets.
func (v *View) adopt(el *Element) {
	switch {
	case el.Kind == KindNode:
		if props, ok := v.store.Node(el.ID); ok {
			el.Info = props
		}
		if el.Selected {
			v.selectedNodes[el.ID] = struct{}{}
		}
	case !el.Predicted:
		if e, ok := v.store.Edge(el.EdgeIndex); ok {
			el.Info = e.Properties
		}
		if el.Selected {
			v.selectedEdges[el.EdgeIndex] = struct{}{}
		}
	}
}

// checkIndexes verifies that every back-reference points at its own element.
func (v *View) checkIndexes() error {
	at := func(pos int) *Element {
		if pos < 0 || pos >= len(v.elements) {
			return nil
		}
		return v.elements[pos]
	}
	for k, an := range v.nodes {
		if el := at(an.Element); el == nil || el.Kind != KindNode || el.ID != k {
			return fmt.Errorf("inconsistent snapshot: active node %s does not own element %d", k, an.Element)
		}
	}
	for idx, ae := range v.edges {
		if el := at(ae.Element); el == nil || el.Kind != KindEdge || el.Predicted || el.EdgeIndex != idx {
			return fmt.Errorf("inconsistent snapshot: active edge %d does not own element %d", idx, ae.Element)
		}
	}
	for s, ps := range v.predicted {
		for _, pos := range ps {
			if el := at(pos); el == nil || !el.Predicted || el.Source != s {
				return fmt.Errorf("inconsistent snapshot: predicted edge of %s does not own element %d", s, pos)
			}
		}
	}
	return nil
}

// SerializeNodeLink exports the backing store as a node-link document, keeping
// the graph metadata of node-link input.
func (v *View) SerializeNodeLink(w io.Writer) error {
	meta := netio.DefaultMeta()
	if v.meta != nil {
		meta = *v.meta
	}
	return netio.EncodeNodeLink(v.store, meta, w)
}
