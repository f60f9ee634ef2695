package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// maxParallelLoads bounds concurrent dataset decoding in LoadManifest.
const maxParallelLoads = 4

// Manifest lists the datasets to load at startup.
type Manifest struct {
	Datasets []Source `yaml:"datasets"`
}

type hclManifest struct {
	Datasets []hclDataset `hcl:"dataset,block"`
}

type hclDataset struct {
	ID       string    `hcl:"id,label"`
	Name     string    `hcl:"name,optional"`
	Path     string    `hcl:"path,optional"`
	Blob     string    `hcl:"blob,optional"`
	Settings cty.Value `hcl:"settings,optional"`
}

// ParseManifest decodes a YAML (.yaml, .yml) or HCL (.hcl) manifest. Relative
// dataset paths are resolved against the manifest's directory.
func ParseManifest(path string, src []byte) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(src, &m); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}
	case ".hcl":
		hm, err := parseHCLManifest(path, src)
		if err != nil {
			return nil, err
		}
		m = *hm
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", filepath.Ext(path))
	}

	dir := filepath.Dir(path)
	for i := range m.Datasets {
		p := m.Datasets[i].Path
		if p != "" && !filepath.IsAbs(p) {
			m.Datasets[i].Path = filepath.Join(dir, p)
		}
	}
	return &m, nil
}

func parseHCLManifest(path string, src []byte) (*Manifest, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}
	var raw hclManifest
	if diags := gohcl.DecodeBody(f.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, diags)
	}

	m := &Manifest{}
	for _, d := range raw.Datasets {
		src := Source{ID: d.ID, Name: d.Name, Path: d.Path, Blob: d.Blob}
		if d.Settings.Type() != cty.NilType && !d.Settings.IsNull() {
			data, err := ctyjson.SimpleJSONValue{Value: d.Settings}.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("dataset %s: invalid settings: %w", d.ID, err)
			}
			if err := json.Unmarshal(data, &src.Settings); err != nil {
				return nil, fmt.Errorf("dataset %s: invalid settings: %w", d.ID, err)
			}
		}
		m.Datasets = append(m.Datasets, src)
	}
	return m, nil
}

// LoadManifest reads the manifest at path and loads its datasets in parallel.
// Datasets that loaded before a failure stay registered.
func (r *Registry) LoadManifest(ctx context.Context, path string) ([]*Dataset, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(path, src)
	if err != nil {
		return nil, err
	}

	loaded := make([]*Dataset, len(m.Datasets))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelLoads)
	for i, s := range m.Datasets {
		eg.Go(func() error {
			ds, err := r.AddDataset(gCtx, s)
			if err != nil {
				return err
			}
			loaded[i] = ds
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	r.logger.Info("manifest loaded", "path", path, "datasets", len(loaded))
	return loaded, nil
}
