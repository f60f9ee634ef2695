package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/netscope/pkg/registry"
	"github.com/DrSkyle/netscope/pkg/view"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create, list and show saved active views",
	}
	cmd.AddCommand(newSessionSaveCmd(a), newSessionListCmd(a), newSessionShowCmd(a))
	return cmd
}

func newSessionSaveCmd(a *app) *cobra.Command {
	var (
		key    string
		expand []string
		params view.Params
	)
	cmd := &cobra.Command{
		Use:   "save <dataset> [node...]",
		Short: "Open an active view around nodes and store its snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}
			v, err := reg.LoadActiveView(args[0], args[1:], params)
			if err != nil {
				return err
			}
			if len(expand) > 0 {
				d := v.Expand(expand)
				a.logger.Debug("view expanded", "nodes", len(d.AddedNodes), "edges", len(d.AddedEdges))
			}
			blob, err := a.blobStore(ctx)
			if err != nil {
				return err
			}
			stored, err := registry.SaveSession(ctx, blob, key, v)
			if err != nil {
				return err
			}
			info := v.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d nodes\t%d edges\n", stored, info.NetworkName, info.NumNodes, info.NumEdges)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&key, "key", "", "Blob key to write (default: a new key under "+registry.SessionPrefix+")")
	fl.StringSliceVar(&expand, "expand", nil, "Active nodes to expand after opening")
	fl.StringVar(&params.NetworkName, "name", "", "Name of the active sub-network")
	fl.StringVar(&params.NodeLabelField, "node-label", "", "Node property used as label")
	fl.StringVar(&params.EdgeLabelField, "edge-label", "", "Edge property used as label")
	return cmd
}

func newSessionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := a.blobStore(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := registry.ListSessions(cmd.Context(), blob)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newSessionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Describe a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := a.blobStore(cmd.Context())
			if err != nil {
				return err
			}
			v, err := registry.LoadSession(cmd.Context(), blob, args[0], view.WithLogger(a.logger), view.WithConfig(a.cfg.View))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			info := v.Info()
			nodeTypes, edgeTypes := v.ActiveTypes()
			fmt.Fprintln(out, titleStyle.Render(info.NetworkName))
			fmt.Fprintf(out, "  nodes %d, edges %d\n", info.NumNodes, info.NumEdges)
			fmt.Fprintf(out, "  node types: %s\n", strings.Join(nodeTypes, ", "))
			fmt.Fprintf(out, "  edge types: %s\n", strings.Join(edgeTypes, ", "))
			if sel := v.SelectedNodes(); len(sel) > 0 {
				fmt.Fprintf(out, "  selected: %s\n", strings.Join(sel, ", "))
			}
			if last := v.LastAnalysis(); last != nil {
				fmt.Fprintf(out, "  last analysis: %s %s\n", last.TaskID, last.Options.Method)
			}
			return nil
		},
	}
}
