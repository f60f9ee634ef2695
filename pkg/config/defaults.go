// Package config defines default configuration for stores, views and the analysis gateway.
package config

import "time"

// Config is the full runtime configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	JSONLogs  bool            `mapstructure:"json_logs"`
	Datasets  string          `mapstructure:"datasets"`
	Store     StoreConfig     `mapstructure:"store"`
	View      ViewConfig      `mapstructure:"view"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type StoreConfig struct {
	// ChangeLogSize bounds the number of retained structural mutations.
	ChangeLogSize int `mapstructure:"change_log_size"`
}

// ViewConfig holds the defaults applied to every active view.
type ViewConfig struct {
	// MaxActiveNodes is the node budget above which Initialize samples.
	MaxActiveNodes int     `mapstructure:"max_active_nodes"`
	NetworkName    string  `mapstructure:"network_name"`
	NodeLabelField string  `mapstructure:"node_label_field"`
	EdgeLabelField string  `mapstructure:"edge_label_field"`
	InfluenceMin   float64 `mapstructure:"influence_min"`
	InfluenceMax   float64 `mapstructure:"influence_max"`
	// InteractionLogSize bounds the per-view interaction log.
	InteractionLogSize int `mapstructure:"interaction_log_size"`
	// Seed drives truncation sampling. Zero picks a time based seed.
	Seed int64 `mapstructure:"seed"`
}

type GatewayConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	// URL is a local directory or s3://bucket/prefix.
	URL    string `mapstructure:"url"`
	Region string `mapstructure:"region"`
}

type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

const (
	DefaultMaxActiveNodes = 5000
	DefaultNetworkName    = "sub-network"
	DefaultLabelField     = "name"
	DefaultLogSize        = 20
)

// DefaultViewConfig returns the view defaults.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		MaxActiveNodes:     DefaultMaxActiveNodes,
		NetworkName:        DefaultNetworkName,
		NodeLabelField:     DefaultLabelField,
		EdgeLabelField:     DefaultLabelField,
		InfluenceMin:       0.2,
		InfluenceMax:       0.99,
		InteractionLogSize: DefaultLogSize,
	}
}

// Default returns a configuration with every default filled in.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store:    StoreConfig{ChangeLogSize: DefaultLogSize},
		View:     DefaultViewConfig(),
		Gateway:  GatewayConfig{Timeout: 30 * time.Second},
		Storage:  StorageConfig{URL: ".netscope", Region: "us-east-1"},
	}
}
