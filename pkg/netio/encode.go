package netio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/DrSkyle/netscope/pkg/graph"
)

// ErrExists reports that an export target is already present.
var ErrExists = fmt.Errorf("export target %w", fs.ErrExist)

// DumpOptions filter the exported edges. Zero values disable a filter.
type DumpOptions struct {
	EdgeTypes     []string
	MinWeight     float64
	MinConfidence float64
	Filter        graph.Filter
}

func (o DumpOptions) keep(p graph.Properties) bool {
	if len(o.EdgeTypes) > 0 {
		t, ok := p.Type()
		if !ok || !slices.Contains(o.EdgeTypes, t) {
			return false
		}
	}
	if o.MinWeight != 0 && number(p["weight"]) < o.MinWeight {
		return false
	}
	if o.MinConfidence != 0 && number(p["confidence"]) < o.MinConfidence {
		return false
	}
	return o.Filter == nil || o.Filter.Match(p)
}

// number treats a missing or non-numeric value as zero.
func number(v any) float64 {
	f, _ := graph.Number(v)
	return f
}

// Writer emits line records.
type Writer struct {
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Write encodes v as one line.
func (w *Writer) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// WriteGraph writes every node in key order, then the edges passing opts in
// arena order. It returns the number of edges written.
func (w *Writer) WriteGraph(store *graph.Store, opts DumpOptions, withIndex bool) (int, error) {
	for _, key := range store.NodeKeys() {
		props, ok := store.Node(key)
		if !ok {
			continue
		}
		if err := w.Write(NodeRecord(key, props)); err != nil {
			return 0, err
		}
	}
	n := 0
	for _, rec := range store.Edges() {
		if !opts.keep(rec.Properties) {
			continue
		}
		if err := w.Write(EdgeRecord(rec, withIndex)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Dump writes store in the line format.
func Dump(store *graph.Store, w io.Writer, opts DumpOptions) error {
	bw := bufio.NewWriter(w)
	if _, err := NewWriter(bw).WriteGraph(store, opts, false); err != nil {
		return err
	}
	return bw.Flush()
}

// DumpFile writes store to a new file at path. It returns ErrExists rather
// than overwriting.
func DumpFile(path string, store *graph.Store, opts DumpOptions) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return Dump(store, f, opts)
}

// EncodeNodeLink writes store as one node-link document. Node entries carry
// their key as id; links carry source and target next to their properties.
func EncodeNodeLink(store *graph.Store, meta Meta, w io.Writer) error {
	if meta.Graph == nil {
		meta.Graph = map[string]any{}
	}
	doc := nodeLink{Meta: meta, Nodes: []map[string]any{}, Links: []map[string]any{}}
	for _, key := range store.NodeKeys() {
		props, _ := store.Node(key)
		n := make(map[string]any, len(props)+1)
		for k, v := range props {
			n[k] = v
		}
		n["id"] = key
		doc.Nodes = append(doc.Nodes, n)
	}
	for _, rec := range store.Edges() {
		l := make(map[string]any, len(rec.Properties)+2)
		for k, v := range rec.Properties {
			l[k] = v
		}
		l["source"] = rec.Source
		l["target"] = rec.Target
		doc.Links = append(doc.Links, l)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode node-link document: %w", err)
	}
	return nil
}
