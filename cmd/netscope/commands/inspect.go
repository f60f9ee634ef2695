package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/netscope/pkg/registry"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [dataset...]",
		Short: "Summarize datasets with their type histograms",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			found, missing := reg.SearchNetworks(args)
			out := cmd.OutOrStdout()
			for _, s := range found {
				renderSummary(out, s)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%w: %s", registry.ErrNotFound, strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func renderSummary(w io.Writer, s registry.Summary) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%s)", s.Name, s.ID)))
	fmt.Fprintf(w, "  nodes %d, edges %d\n", s.NumNodes, s.NumEdges)
	renderHistogram(w, "node types", s.NodeTypes)
	renderHistogram(w, "edge types", s.EdgeTypes)
	fmt.Fprintln(w)
}

func renderHistogram(w io.Writer, title string, h map[string]int) {
	if len(h) == 0 {
		return
	}
	fmt.Fprintln(w, flagStyle.Render("  "+title))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Fprintf(w, "    %-16s %d\n", k, h[k])
	}
}
