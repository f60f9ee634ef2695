// Package registry keeps the named datasets an analyst can open, each backed
// by its own graph.Store.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/DrSkyle/netscope/pkg/config"
	"github.com/DrSkyle/netscope/pkg/graph"
	"github.com/DrSkyle/netscope/pkg/netio"
	"github.com/DrSkyle/netscope/pkg/storage"
	"github.com/DrSkyle/netscope/pkg/view"
)

var (
	ErrExists   = errors.New("dataset already exists")
	ErrNotFound = errors.New("dataset not found")
)

const defaultVersion = "1.0"

// Settings describe a dataset. A nil Directed means directed.
type Settings struct {
	Description string         `yaml:"description" json:"description"`
	Version     string         `yaml:"version" json:"version"`
	Directed    *bool          `yaml:"directed" json:"directed"`
	Multigraph  bool           `yaml:"multigraph" json:"multigraph"`
	Graph       map[string]any `yaml:"graph" json:"graph"`
}

// Source names a dataset file. Exactly one of Path (local file) and Blob
// (key in the registry's blob store) is set.
type Source struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Blob     string   `yaml:"blob"`
	Settings Settings `yaml:"settings"`
}

type Dataset struct {
	ID          string
	Name        string
	Description string
	Version     string
	Directed    bool
	Multigraph  bool
	Graph       map[string]any
	Store       *graph.Store
}

// Meta returns the node-link metadata of the dataset.
func (d *Dataset) Meta() netio.Meta {
	g := d.Graph
	if g == nil {
		g = map[string]any{}
	}
	return netio.Meta{Directed: d.Directed, Multigraph: d.Multigraph, Graph: g}
}

func newDataset(id, name string, s Settings, store *graph.Store) *Dataset {
	d := &Dataset{
		ID:          id,
		Name:        name,
		Description: s.Description,
		Version:     s.Version,
		Directed:    true,
		Multigraph:  s.Multigraph,
		Graph:       s.Graph,
		Store:       store,
	}
	if d.Version == "" {
		d.Version = defaultVersion
	}
	if s.Directed != nil {
		d.Directed = *s.Directed
	}
	if d.Name == "" {
		d.Name = id
	}
	return d
}

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]*Dataset
	cfg      config.Config
	blob     storage.BlobStore
	logger   *slog.Logger
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithConfig(c config.Config) Option {
	return func(r *Registry) { r.cfg = c }
}

// WithBlobStore sets the store that Source.Blob keys are read from.
func WithBlobStore(b storage.BlobStore) Option {
	return func(r *Registry) { r.blob = b }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		datasets: make(map[string]*Dataset),
		cfg:      config.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) newStore() *graph.Store {
	return graph.NewStore(graph.WithLogger(r.logger), graph.WithChangeLogSize(r.cfg.Store.ChangeLogSize))
}

func (r *Registry) read(ctx context.Context, src Source) ([]byte, error) {
	switch {
	case src.Path != "" && src.Blob != "":
		return nil, fmt.Errorf("dataset %s: path and blob are mutually exclusive", src.ID)
	case src.Path != "":
		return os.ReadFile(src.Path)
	case src.Blob != "":
		if r.blob == nil {
			return nil, fmt.Errorf("dataset %s: no blob store configured", src.ID)
		}
		return r.blob.Get(ctx, src.Blob)
	}
	return nil, fmt.Errorf("dataset %s: no path or blob given", src.ID)
}

// AddDataset loads src into a new store and registers it.
func (r *Registry) AddDataset(ctx context.Context, src Source) (ds *Dataset, err error) {
	ctx, span := otel.Tracer("netscope/registry").Start(ctx, "Registry.AddDataset")
	span.SetAttributes(attribute.String("dataset.id", src.ID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if src.ID == "" {
		return nil, fmt.Errorf("dataset id is empty")
	}
	if r.Has(src.ID) {
		return nil, fmt.Errorf("%w: %s", ErrExists, src.ID)
	}
	data, err := r.read(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", src.ID, err)
	}
	doc, err := netio.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", src.ID, err)
	}
	store := r.newStore()
	for _, e := range netio.Load(store, doc) {
		r.logger.Warn("dataset record skipped", "dataset", src.ID, "node", e.Node, "edge", e.Edge, "error", e.Err)
	}
	store.ForgetChanges()

	settings := src.Settings
	if doc.Meta != nil {
		directed := doc.Meta.Directed
		if settings.Directed == nil {
			settings.Directed = &directed
		}
		settings.Multigraph = settings.Multigraph || doc.Meta.Multigraph
		if settings.Graph == nil {
			settings.Graph = doc.Meta.Graph
		}
	}
	ds = newDataset(src.ID, src.Name, settings, store)
	if err := r.insert(ds); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dataset.nodes", store.NumNodes()), attribute.Int("dataset.edges", store.NumEdges()))
	r.logger.Info("dataset loaded", "dataset", ds.ID, "nodes", store.NumNodes(), "edges", store.NumEdges())
	return ds, nil
}

// CreateNetwork registers a dataset built from in-memory nodes and edges.
// Records that fail to load are returned; the dataset is still created.
func (r *Registry) CreateNetwork(id, name string, nodes map[string]graph.Properties, edges []graph.Edge, settings Settings) (*Dataset, []graph.ItemError, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("dataset id is empty")
	}
	if r.Has(id) {
		return nil, nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	store := r.newStore()
	errs := store.SaveNodes(nodes)
	for _, e := range edges {
		if _, err := store.AddEdge(e); err != nil {
			errs = append(errs, graph.ItemError{Edge: e.Source + "->" + e.Target, Err: err})
		}
	}
	store.ForgetChanges()
	ds := newDataset(id, name, settings, store)
	if err := r.insert(ds); err != nil {
		return nil, nil, err
	}
	return ds, errs, nil
}

func (r *Registry) insert(ds *Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.datasets[ds.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, ds.ID)
	}
	r.datasets[ds.ID] = ds
	return nil
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.datasets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.datasets, id)
	return nil
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.datasets[id]
	return ok
}

func (r *Registry) Get(id string) (*Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ds, nil
}

// IDs returns the registered dataset ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.datasets))
}

// Summary describes a dataset in listings.
type Summary struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	NodeTypes map[string]int `json:"node_types"`
	EdgeTypes map[string]int `json:"edge_types"`
	NumNodes  int            `json:"num_nodes"`
	NumEdges  int            `json:"num_edges"`
}

// SearchNetworks summarizes the datasets among ids, every dataset when ids is empty.
func (r *Registry) SearchNetworks(ids []string) (found []Summary, missing []string) {
	if len(ids) == 0 {
		ids = r.IDs()
	}
	for _, id := range ids {
		ds, err := r.Get(id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		found = append(found, Summary{
			ID:        ds.ID,
			Name:      ds.Name,
			NodeTypes: ds.Store.NodeTypes(),
			EdgeTypes: ds.Store.EdgeTypes(),
			NumNodes:  ds.Store.NumNodes(),
			NumEdges:  ds.Store.NumEdges(),
		})
	}
	return found, missing
}

// LoadActiveView opens a view over the dataset's store, initialized around
// nodeKeys. The view shares the store, so active edits reach the dataset.
func (r *Registry) LoadActiveView(id string, nodeKeys []string, p view.Params, opts ...view.Option) (*view.View, error) {
	ds, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if p.NetworkName == "" {
		p.NetworkName = ds.Name
	}
	base := []view.Option{view.WithLogger(r.logger), view.WithConfig(r.cfg.View)}
	v := view.New(ds.Store, append(base, opts...)...)
	v.Initialize(nodeKeys, p)
	return v, nil
}
