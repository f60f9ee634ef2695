// Package netio reads and writes graphs as JSON line records or as a single
// node-link document.
package netio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/DrSkyle/netscope/pkg/graph"
)

const (
	TypeNode = "node"
	TypeEdge = "edge"
)

// Key is a node identifier that decodes from a JSON string or number.
type Key string

func (k *Key) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = Key(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("node key must be a string or a number: %s", b)
	}
	*k = Key(graph.Key(n))
	return nil
}

// Flag is a boolean that also accepts the strings "true" and "false".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*f = Flag(v)
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid observed flag %q", v)
		}
		*f = Flag(parsed)
	case nil:
		*f = true
	default:
		return fmt.Errorf("invalid observed flag %s", b)
	}
	return nil
}

// Record is one line of the line format. Node records carry ID, edge records
// carry Source and Target. Index is only written for snapshots.
type Record struct {
	Type       string           `json:"type"`
	ID         Key              `json:"id,omitempty"`
	Source     Key              `json:"source,omitempty"`
	Target     Key              `json:"target,omitempty"`
	Observed   *Flag            `json:"observed,omitempty"`
	Index      *int             `json:"index,omitempty"`
	Properties graph.Properties `json:"properties"`
}

// NodeRecord builds the line record of a node.
func NodeRecord(key string, props graph.Properties) Record {
	return Record{Type: TypeNode, ID: Key(key), Properties: props}
}

// EdgeRecord builds the line record of an edge. withIndex keeps the arena slot.
func EdgeRecord(rec graph.EdgeRecord, withIndex bool) Record {
	observed := Flag(rec.Observed)
	r := Record{
		Type:       TypeEdge,
		Source:     Key(rec.Source),
		Target:     Key(rec.Target),
		Observed:   &observed,
		Properties: rec.Properties,
	}
	if withIndex {
		idx := rec.Index
		r.Index = &idx
	}
	return r
}

// Edge converts an edge record. Observed defaults to true.
func (r Record) Edge() graph.Edge {
	e := graph.NewEdge(string(r.Source), string(r.Target), r.Properties)
	if r.Observed != nil {
		e.Observed = bool(*r.Observed)
	}
	return e
}

// ParseRecord decodes a single line.
func ParseRecord(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	if r.Properties == nil {
		r.Properties = graph.Properties{}
	}
	return r, nil
}

// RecordType returns the type discriminator of a line without decoding the rest.
func RecordType(line []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return "", fmt.Errorf("failed to decode record type: %w", err)
	}
	return head.Type, nil
}
