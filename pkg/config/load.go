package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. NETSCOPE_VIEW_MAX_ACTIVE_NODES.
const EnvPrefix = "NETSCOPE"

// SetDefaults registers every default on v so that env overrides resolve
// even for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("json_logs", d.JSONLogs)
	v.SetDefault("datasets", d.Datasets)
	v.SetDefault("store.change_log_size", d.Store.ChangeLogSize)
	v.SetDefault("view.max_active_nodes", d.View.MaxActiveNodes)
	v.SetDefault("view.network_name", d.View.NetworkName)
	v.SetDefault("view.node_label_field", d.View.NodeLabelField)
	v.SetDefault("view.edge_label_field", d.View.EdgeLabelField)
	v.SetDefault("view.influence_min", d.View.InfluenceMin)
	v.SetDefault("view.influence_max", d.View.InfluenceMax)
	v.SetDefault("view.interaction_log_size", d.View.InteractionLogSize)
	v.SetDefault("view.seed", d.View.Seed)
	v.SetDefault("gateway.endpoint", d.Gateway.Endpoint)
	v.SetDefault("gateway.timeout", d.Gateway.Timeout)
	v.SetDefault("storage.url", d.Storage.URL)
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
}

// BindEnv turns on NETSCOPE_ prefixed environment overrides for nested keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.View.MaxActiveNodes <= 0 {
		return fmt.Errorf("view.max_active_nodes must be positive, got %d", c.View.MaxActiveNodes)
	}
	if c.View.InfluenceMin >= c.View.InfluenceMax {
		return fmt.Errorf("view.influence_min (%g) must be below view.influence_max (%g)", c.View.InfluenceMin, c.View.InfluenceMax)
	}
	if c.Store.ChangeLogSize <= 0 || c.View.InteractionLogSize <= 0 {
		return fmt.Errorf("log sizes must be positive")
	}
	return nil
}
