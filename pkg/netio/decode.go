package netio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/DrSkyle/netscope/pkg/graph"
)

const maxLineBytes = 64 << 20

// Meta is the graph-level part of a node-link document.
type Meta struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
}

// DefaultMeta describes a directed simple graph.
func DefaultMeta() Meta {
	return Meta{Directed: true, Graph: map[string]any{}}
}

// Document is a decoded input, normalized to line records. Meta is set only
// for node-link input. Lines whose type is neither node nor edge are kept
// verbatim in Extra for callers that understand them.
type Document struct {
	Meta    *Meta
	Records []Record
	Extra   []json.RawMessage
}

// Decode reads either format.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if doc, ok, err := decodeNodeLink(data); ok || err != nil {
		return doc, err
	}
	return decodeLines(data)
}

func decodeLines(data []byte) (*Document, error) {
	doc := &Document{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		typ, err := RecordType(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		switch typ {
		case TypeNode, TypeEdge:
			rec, err := ParseRecord(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			doc.Records = append(doc.Records, rec)
		default:
			doc.Extra = append(doc.Extra, json.RawMessage(bytes.Clone(line)))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan input: %w", err)
	}
	return doc, nil
}

type nodeLink struct {
	Meta
	Nodes []map[string]any `json:"nodes"`
	Links []map[string]any `json:"links"`
}

// decodeNodeLink reports ok when data is a single object with nodes or links
// and no record type.
func decodeNodeLink(data []byte) (*Document, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var probe map[string]json.RawMessage
	if err := dec.Decode(&probe); err != nil || dec.More() {
		return nil, false, nil
	}
	_, hasNodes := probe["nodes"]
	_, hasLinks := probe["links"]
	_, hasType := probe["type"]
	if hasType || (!hasNodes && !hasLinks) {
		return nil, false, nil
	}

	var nl nodeLink
	if err := json.Unmarshal(trimmed, &nl); err != nil {
		return nil, true, fmt.Errorf("failed to decode node-link document: %w", err)
	}
	meta := nl.Meta
	if meta.Graph == nil {
		meta.Graph = map[string]any{}
	}
	doc := &Document{Meta: &meta}
	for i, n := range nl.Nodes {
		id, ok := n["id"]
		if !ok {
			return nil, true, fmt.Errorf("node %d has no id", i)
		}
		props := graph.Properties{}
		for k, v := range n {
			if k != "id" {
				props[k] = v
			}
		}
		doc.Records = append(doc.Records, NodeRecord(graph.Key(id), props))
	}
	for i, l := range nl.Links {
		source, okS := l["source"]
		target, okT := l["target"]
		if !okS || !okT {
			return nil, true, fmt.Errorf("link %d needs a source and a target", i)
		}
		props := graph.Properties{}
		for k, v := range l {
			if k != "source" && k != "target" {
				props[k] = v
			}
		}
		doc.Records = append(doc.Records, Record{
			Type:       TypeEdge,
			Source:     Key(graph.Key(source)),
			Target:     Key(graph.Key(target)),
			Properties: props,
		})
	}
	return doc, true, nil
}

// Load feeds the records of doc into store: every node first, then every edge
// in input order. Edges with an index are restored to that arena slot.
// Failures are collected per item.
func Load(store *graph.Store, doc *Document) []graph.ItemError {
	var errs []graph.ItemError
	for _, r := range doc.Records {
		if r.Type != TypeNode {
			continue
		}
		if err := store.AddNode(string(r.ID), r.Properties); err != nil {
			errs = append(errs, graph.ItemError{Node: string(r.ID), Err: err})
		}
	}
	for _, r := range doc.Records {
		if r.Type != TypeEdge {
			continue
		}
		var err error
		if r.Index != nil {
			err = store.RestoreEdge(*r.Index, r.Edge())
		} else {
			_, err = store.AddEdge(r.Edge())
		}
		if err != nil {
			errs = append(errs, graph.ItemError{Edge: string(r.Source) + "->" + string(r.Target), Err: err})
		}
	}
	return errs
}
