package commands

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/netscope/pkg/netio"
	"github.com/DrSkyle/netscope/pkg/registry"
	"github.com/DrSkyle/netscope/pkg/storage"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format  string
		outPath string
		blobKey string
		where   string
		opts    netio.DumpOptions
	)
	cmd := &cobra.Command{
		Use:   "export <dataset>",
		Short: "Export a dataset as line records or node-link JSON",
		Long: `Write a dataset to stdout, a new local file (--out) or a new blob (--blob).
Existing targets are never overwritten. Edge filters apply to the lines format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := registry.Format(format)
			if f != registry.FormatLines && f != registry.FormatNodeLink {
				return fmt.Errorf("unknown export format %q", format)
			}
			if where != "" {
				filter, err := buildFilter(nil, where)
				if err != nil {
					return err
				}
				opts.Filter = filter
			}
			if f == registry.FormatNodeLink && (len(opts.EdgeTypes) > 0 || opts.MinWeight > 0 || opts.MinConfidence > 0 || opts.Filter != nil) {
				a.logger.Warn("edge filters are ignored by the node-link format")
			}

			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}
			id := args[0]

			switch {
			case outPath != "" && f == registry.FormatLines:
				ds, err := reg.Get(id)
				if err != nil {
					return err
				}
				if err := netio.DumpFile(outPath, ds.Store, opts); err != nil {
					return err
				}
				a.logger.Info("dataset exported", "dataset", id, "path", outPath)
				return nil
			case outPath != "" || blobKey != "":
				var buf bytes.Buffer
				if err := reg.Dump(ctx, id, &buf, f, opts); err != nil {
					return err
				}
				var (
					target storage.BlobStore
					key    = blobKey
				)
				if outPath != "" {
					target, key = storage.NewLocalStore(filepath.Dir(outPath)), filepath.Base(outPath)
				} else if target, err = a.blobStore(ctx); err != nil {
					return err
				}
				if err := target.Create(ctx, key, buf.Bytes()); err != nil {
					return err
				}
				a.logger.Info("dataset exported", "dataset", id, "key", key)
				return nil
			}
			return reg.Dump(ctx, id, cmd.OutOrStdout(), f, opts)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&format, "format", string(registry.FormatLines), "Output format (lines, node-link)")
	fl.StringVarP(&outPath, "out", "o", "", "Write to a new local file")
	fl.StringVar(&blobKey, "blob", "", "Write to a new key in the configured blob store")
	fl.StringSliceVar(&opts.EdgeTypes, "edge-type", nil, "Keep only edges of these types")
	fl.Float64Var(&opts.MinWeight, "min-weight", 0, "Keep only edges with at least this weight")
	fl.Float64Var(&opts.MinConfidence, "min-confidence", 0, "Keep only edges with at least this confidence")
	fl.StringVar(&where, "where", "", "CEL filter over edge kind and props")
	cmd.MarkFlagsMutuallyExclusive("out", "blob")
	return cmd
}
