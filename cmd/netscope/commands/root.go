// Package commands implements the netscope command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DrSkyle/netscope/pkg/config"
	"github.com/DrSkyle/netscope/pkg/registry"
	"github.com/DrSkyle/netscope/pkg/storage"
	"github.com/DrSkyle/netscope/pkg/telemetry"
	"github.com/DrSkyle/netscope/pkg/version"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99")).
			MarginBottom(1)
	flagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      config.Config
	logger   *slog.Logger
	shutdown telemetry.Shutdown
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree with fresh configuration state.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: slog.Default()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: "Explore large social networks through small active views",
		Long: `netscope - Social Network Exploration

Load datasets, carve out active sub-networks, and run analyses on them.`,
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (default ~/.netscope.yaml)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("json-logs", false, "Emit logs as JSON")
	pf.String("datasets", "", "Dataset manifest (.yaml or .hcl)")
	pf.String("storage", "", "Blob store for sessions and exports (directory or s3://bucket/prefix)")
	pf.String("gateway", "", "Analysis service endpoint")
	for key, flag := range map[string]string{
		"log_level":        "log-level",
		"json_logs":        "json-logs",
		"datasets":         "datasets",
		"storage.url":      "storage",
		"gateway.endpoint": "gateway",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.AddCommand(
		newInspectCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newSessionCmd(a),
		newAnalyzeCmd(a),
		newVersionCmd(),
		newCompletionCmd(rootCmd),
	)
	return rootCmd
}

// setup reads configuration, installs the logger and starts tracing.
func (a *app) setup(ctx context.Context, logOut io.Writer) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.SetConfigFile(filepath.Join(home, ".netscope.yaml"))
		a.v.SetConfigType("yaml")
	}
	config.BindEnv(a.v)
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(logOut, cfg.LogLevel, cfg.JSONLogs)
	slog.SetDefault(a.logger)

	shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, cfg.Telemetry.Endpoint)
	if err != nil {
		a.logger.Warn("telemetry disabled", "error", err)
		return nil
	}
	a.shutdown = shutdown
	return nil
}

func newLogger(w io.Writer, level string, asJSON bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) blobStore(ctx context.Context) (storage.BlobStore, error) {
	return storage.Open(ctx, a.cfg.Storage.URL, a.cfg.Storage.Region)
}

// registry loads every dataset of the configured manifest.
func (a *app) registry(ctx context.Context) (*registry.Registry, error) {
	if a.cfg.Datasets == "" {
		return nil, fmt.Errorf("no dataset manifest configured, set --datasets or datasets in the config file")
	}
	blob, err := a.blobStore(ctx)
	if err != nil {
		return nil, err
	}
	reg := registry.New(
		registry.WithLogger(a.logger),
		registry.WithConfig(a.cfg),
		registry.WithBlobStore(blob),
	)
	if _, err := reg.LoadManifest(ctx, a.cfg.Datasets); err != nil {
		return nil, err
	}
	return reg, nil
}

func renderHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %s", strings.ToUpper(version.AppName), version.Current)))
	fmt.Fprintln(out, cmd.Short)

	fmt.Fprintln(out, titleStyle.Render("USAGE"))
	fmt.Fprintf(out, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(out, "  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		line := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			line += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(out, flagStyle.Render(line))
	})
	fmt.Fprintln(out)
}
