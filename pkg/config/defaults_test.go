package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultViewConfig(t *testing.T) {
	cfg := DefaultViewConfig()

	if cfg.MaxActiveNodes != 5000 {
		t.Errorf("Expected MaxActiveNodes 5000, got %d", cfg.MaxActiveNodes)
	}
	if cfg.NodeLabelField != "name" || cfg.EdgeLabelField != "name" {
		t.Errorf("Expected label fields 'name', got %q/%q", cfg.NodeLabelField, cfg.EdgeLabelField)
	}
	if cfg.InfluenceMin != 0.2 || cfg.InfluenceMax != 0.99 {
		t.Errorf("Expected influence range [0.2, 0.99], got [%g, %g]", cfg.InfluenceMin, cfg.InfluenceMax)
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Defaults must validate: %v", err)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
view:
  max_active_nodes: 250
  node_label_field: full_name
gateway:
  endpoint: http://analysis:8080/tasks
  timeout: 5s
`), 0600))

	t.Setenv("NETSCOPE_STORAGE_URL", "s3://bucket/sessions")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.View.MaxActiveNodes)
	assert.Equal(t, "full_name", cfg.View.NodeLabelField)
	assert.Equal(t, "name", cfg.View.EdgeLabelField)
	assert.Equal(t, "http://analysis:8080/tasks", cfg.Gateway.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "s3://bucket/sessions", cfg.Storage.URL)
	assert.Equal(t, 20, cfg.Store.ChangeLogSize)
}

func TestLoad_RejectsInvertedInfluenceRange(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("view.influence_min", 0.9)
	v.Set("view.influence_max", 0.1)

	_, err := Load(v)
	assert.Error(t, err)
}
