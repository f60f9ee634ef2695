package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/netscope/pkg/netio"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		match []string
		where string
	)
	cmd := &cobra.Command{
		Use:   "search <dataset> [node...]",
		Short: "Find nodes by key and property filters",
		Long: `Print matching nodes as line records. Without node keys every node is searched.

Examples:
  netscope search calls --match type=person
  netscope search calls --where 'kind == "person" && props.age >= 30'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter(match, where)
			if err != nil {
				return err
			}
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			found, missing, err := reg.SearchNodes(args[0], args[1:], filter)
			if err != nil {
				return err
			}
			w := netio.NewWriter(cmd.OutOrStdout())
			for _, n := range found {
				if err := w.Write(netio.NodeRecord(n.Key, n.Properties)); err != nil {
					return err
				}
			}
			if len(missing) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("not found: "+strings.Join(missing, ", ")))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&match, "match", nil, "Property equality filter key=value (repeatable)")
	cmd.Flags().StringVar(&where, "where", "", "CEL filter over kind and props")
	return cmd
}
