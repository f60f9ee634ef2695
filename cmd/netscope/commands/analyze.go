package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/netscope/pkg/analysis"
	"github.com/DrSkyle/netscope/pkg/registry"
	"github.com/DrSkyle/netscope/pkg/storage"
	"github.com/DrSkyle/netscope/pkg/view"
)

// taskAliases maps short command line names to task kinds.
var taskAliases = map[string]analysis.TaskKind{
	"influence":   analysis.SocialInfluence,
	"communities": analysis.CommunityDetection,
	"predict":     analysis.LinkPrediction,
	"embedding":   analysis.NodeEmbedding,
}

func parseTask(name string) (analysis.TaskKind, error) {
	if k, ok := taskAliases[name]; ok {
		return k, nil
	}
	for _, k := range taskAliases {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown analysis task %q, want one of %s", name, strings.Join(slices.Sorted(maps.Keys(taskAliases)), ", "))
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		sessionKey string
		dataset    string
		nodes      []string
		selectKeys []string
		method     string
		params     []string
		resultOnly bool
		save       bool
		local      bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <task>",
		Short: "Run an analysis on an active view",
		Long: `Submit the visible active edges of a view to the analysis service and attach
the answer to the view. Tasks: influence, communities, predict, embedding.

Examples:
  netscope analyze communities --dataset calls --node alice --method louvain --param K=3
  netscope analyze predict --session sessions/0b5c.jsonl --select alice --save
  netscope analyze influence --dataset calls --node alice --local`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := parseTask(args[0])
			if err != nil {
				return err
			}
			parameters, err := parseAssignments(params)
			if err != nil {
				return err
			}
			var gw analysis.Gateway
			switch {
			case local:
				gw = analysis.NewLocalGateway(a.logger)
			case a.cfg.Gateway.Endpoint != "":
				gw = analysis.NewHTTPGateway(a.cfg.Gateway.Endpoint, a.cfg.Gateway.Timeout, analysis.WithLogger(a.logger))
			default:
				return fmt.Errorf("no analysis service configured, set --gateway or gateway.endpoint, or use --local")
			}
			blob, err := a.blobStore(ctx)
			if err != nil {
				return err
			}

			v, err := a.openView(ctx, blob, sessionKey, dataset, nodes)
			if err != nil {
				return err
			}
			for _, key := range selectKeys {
				if _, err := v.ToggleNodeSelection(key); err != nil {
					return err
				}
			}

			res, err := v.ApplyAnalysis(ctx, gw, view.Request{
				Task:       task,
				Method:     method,
				Parameters: parameters,
				ResultOnly: resultOnly,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("failed to print result: %w", err)
			}
			if !save || resultOnly {
				return nil
			}
			stored, err := registry.SaveSession(ctx, blob, sessionKey, v)
			if err != nil {
				return err
			}
			a.logger.Info("session saved", "key", stored)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&sessionKey, "session", "", "Stored session to analyze")
	fl.StringVar(&dataset, "dataset", "", "Dataset to open a fresh view on")
	fl.StringSliceVar(&nodes, "node", nil, "Nodes to open the fresh view around")
	fl.StringSliceVar(&selectKeys, "select", nil, "Active nodes to toggle selected before the run")
	fl.StringVar(&method, "method", "", "Analysis method")
	fl.StringArrayVar(&params, "param", nil, "Method parameter key=value (repeatable)")
	fl.BoolVar(&resultOnly, "result-only", false, "Print the answer without attaching it")
	fl.BoolVar(&local, "local", false, "Compute the analysis in process instead of calling the service")
	fl.BoolVar(&save, "save", false, "Store the analyzed view back to its session, or to a new one")
	cmd.MarkFlagsMutuallyExclusive("session", "dataset")
	cmd.MarkFlagsOneRequired("session", "dataset")
	return cmd
}

// openView restores a stored session, or opens a view on a dataset.
func (a *app) openView(ctx context.Context, blob storage.BlobStore, sessionKey, dataset string, nodes []string) (*view.View, error) {
	if sessionKey != "" {
		return registry.LoadSession(ctx, blob, sessionKey, view.WithLogger(a.logger), view.WithConfig(a.cfg.View))
	}
	reg, err := a.registry(ctx)
	if err != nil {
		return nil, err
	}
	return reg.LoadActiveView(dataset, nodes, view.Params{})
}
