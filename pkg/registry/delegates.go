package registry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/netio"
)

func (r *Registry) GetNetwork(id string, keys []string, filter graph.Filter) (graph.Network, error) {
	ds, err := r.Get(id)
	if err != nil {
		return graph.Network{}, err
	}
	return ds.Store.GetNetwork(keys, filter), nil
}

func (r *Registry) SearchNodes(id string, keys []string, filter graph.Filter) ([]graph.NodeRecord, []string, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	found, missing := ds.Store.SearchNodes(keys, filter)
	return found, missing, nil
}

func (r *Registry) GetEdges(id string, keys []string, filter graph.Filter) ([]graph.NodeEdges, []string, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	found, missing := ds.Store.GetEdges(keys, filter)
	return found, missing, nil
}

func (r *Registry) GetNeighbors(id string, keys []string, filter graph.Filter) ([]graph.NodeNeighbors, []string, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	found, missing := ds.Store.GetNeighbors(keys, filter)
	return found, missing, nil
}

func (r *Registry) NeighborCounts(id string, keys []string) (map[string]int, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return ds.Store.NeighborCounts(keys), nil
}

func (r *Registry) SaveNodes(id string, nodes map[string]graph.Properties) ([]graph.ItemError, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return ds.Store.SaveNodes(nodes), nil
}

func (r *Registry) SaveEdges(id string, edges []graph.Edge) ([]graph.ItemError, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return ds.Store.SaveEdges(edges), nil
}

func (r *Registry) DeleteNodes(id string, keys []string) ([]graph.ItemError, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return ds.Store.DeleteNodes(keys), nil
}

func (r *Registry) DeleteEdges(id string, addrs []graph.EdgeAddr) ([]graph.ItemError, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return ds.Store.DeleteEdges(addrs), nil
}

// Format selects the export encoding.
type Format string

const (
	FormatLines    Format = "lines"
	FormatNodeLink Format = "node-link"
)

// Dump writes dataset id to w. Filters in opts apply to the line format only.
func (r *Registry) Dump(ctx context.Context, id string, w io.Writer, format Format, opts netio.DumpOptions) (err error) {
	_, span := otel.Tracer("netscope/registry").Start(ctx, "Registry.Dump")
	span.SetAttributes(attribute.String("dataset.id", id), attribute.String("format", string(format)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ds, err := r.Get(id)
	if err != nil {
		return err
	}
	switch format {
	case FormatLines, "":
		return netio.Dump(ds.Store, w, opts)
	case FormatNodeLink:
		return netio.EncodeNodeLink(ds.Store, ds.Meta(), w)
	}
	return fmt.Errorf("unknown export format %q", format)
}
