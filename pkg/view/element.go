package view

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DrSkyle/netscope/pkg/graph"
)

type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// NotDefined labels and types elements whose source carries neither.
const NotDefined = "not_defined"

// PredictedType is the type of every predicted edge element.
const PredictedType = "predicted"

// ElementDefaults are the analysis attachments of a fresh element.
type ElementDefaults struct {
	Label                string
	Type                 string
	Community            int
	CommunityConfidence  float64
	InfluenceScore       float64
	VisualInfluenceScore float64
}

// Defaults returns the values every new element starts from. Flags start false
// and counters at zero.
func Defaults() ElementDefaults {
	return ElementDefaults{
		Label:                NotDefined,
		Type:                 NotDefined,
		Community:            -1,
		CommunityConfidence:  -1,
		InfluenceScore:       -1,
		VisualInfluenceScore: -1,
	}
}

// Element is one entry of the render list.
type Element struct {
	Kind Kind   `json:"element_type"`
	ID   string `json:"id"`
	// EdgeIndex is the arena slot of an observed edge and -1 for everything else.
	EdgeIndex int    `json:"edge_index"`
	Source    string `json:"source,omitempty"`
	Target    string `json:"target,omitempty"`
	Type      string `json:"type"`
	Label     string `json:"label"`

	Selected    bool `json:"selected"`
	Hidden      bool `json:"hidden"`
	Highlighted bool `json:"highlighted"`

	Expandable               bool    `json:"expandable"`
	Community                int     `json:"community"`
	CommunityConfidence      float64 `json:"community_confidence"`
	InfluenceScore           float64 `json:"social_influence_score"`
	VisualInfluenceScore     float64 `json:"visualisation_social_influence_score"`
	IncomingSelected         int     `json:"num_incoming_neighbor_selected"`
	IncomingNeighborSelected bool    `json:"incoming_neighbor_selected"`

	Predicted        bool     `json:"predicted"`
	SourceSelected   bool     `json:"source_selected"`
	Probability      *float64 `json:"probability,omitempty"`
	NormalizedWeight *float64 `json:"normalized_weight,omitempty"`

	// Info aliases the owning node or edge properties in the store.
	Info graph.Properties `json:"info"`
}

// Group is the render group of the element.
func (e *Element) Group() string {
	if e.Kind == KindNode {
		return "nodes"
	}
	return "edges"
}

type elementData Element

type elementJSON struct {
	Group string      `json:"group"`
	Data  elementData `json:"data"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(elementJSON{Group: e.Group(), Data: elementData(e)})
}

func (e *Element) UnmarshalJSON(b []byte) error {
	var w elementJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Element(w.Data)
	return nil
}

func blank(kind Kind) *Element {
	d := Defaults()
	return &Element{
		Kind:                 kind,
		EdgeIndex:            -1,
		Type:                 d.Type,
		Label:                d.Label,
		Community:            d.Community,
		CommunityConfidence:  d.CommunityConfidence,
		InfluenceScore:       d.InfluenceScore,
		VisualInfluenceScore: d.VisualInfluenceScore,
	}
}

func (v *View) newNodeElement(key string, props graph.Properties) *Element {
	el := blank(KindNode)
	el.ID = key
	el.Info = props
	if t, ok := props.Type(); ok {
		el.Type = t
	}
	el.Label = key
	if l, ok := props[v.params.NodeLabelField]; ok && l != nil {
		el.Label = fmt.Sprint(l)
	}
	return el
}

// weightScale is the min-max range used for normalized_weight.
type weightScale struct {
	lo, hi float64
	ok     bool
}

func (v *View) weightScale() weightScale {
	lo, hi, ok := v.store.WeightRange()
	return weightScale{lo: lo, hi: hi, ok: ok && hi > lo}
}

func (v *View) newEdgeElement(rec graph.EdgeRecord, ws weightScale) *Element {
	el := blank(KindEdge)
	el.ID = strconv.Itoa(rec.Index)
	el.EdgeIndex = rec.Index
	el.Source = rec.Source
	el.Target = rec.Target
	el.Info = rec.Properties
	if t, ok := rec.Properties.Type(); ok {
		el.Type = t
	}
	if l, ok := rec.Properties[v.params.EdgeLabelField]; ok && l != nil {
		el.Label = fmt.Sprint(l)
	}
	if p, ok := graph.Number(rec.Properties["probability"]); ok {
		el.Probability = &p
	}
	if w, ok := graph.Number(rec.Properties["weight"]); ok && ws.ok {
		n := (w - ws.lo) / (ws.hi - ws.lo)
		el.NormalizedWeight = &n
	}
	return el
}

func newPredictedElement(source, target string) *Element {
	el := blank(KindEdge)
	el.ID = source + "_" + target
	el.Source = source
	el.Target = target
	el.Type = PredictedType
	el.Label = ""
	el.Predicted = true
	el.SourceSelected = true
	el.Info = graph.Properties{graph.TypeKey: PredictedType}
	return el
}
