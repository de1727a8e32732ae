package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/luinbytes/media-dedupe/samples"
)

func newDemoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "demo <dir>",
		Short: "Write a small photo library with duplicates to try scan on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			entries, err := samples.WriteTree(afero.NewOsFs(), dir)
			if err != nil {
				return fmt.Errorf("write demo tree: %w", err)
			}
			ctx.logger.Info("demo library written", "dir", dir, "files", len(entries))

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Path, e.Note})
			}
			fmt.Fprintln(out, ctx.palette(out).heading("Demo library: "+dir))
			fmt.Fprintln(out, renderTable([]string{"File", "Note"}, rows, nil))
			fmt.Fprintf(out, "\nTry: media-dedupe scan %s --dry-run\n", dir)
			return nil
		},
	}
}
