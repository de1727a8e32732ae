package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/luinbytes/media-dedupe/dedupe"
	"github.com/luinbytes/media-dedupe/tui"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "review <report.json>",
		Short: "Browse a report written by scan --export",
		Long: `Review opens a saved report in an interactive viewer. Files selected
with space are printed one per line when the viewer is closed with enter,
so they can be piped into other tools. Nothing is moved or deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := loadReport(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary || !isTerminal(out) {
				printReport(out, ctx.palette(out), report)
				return nil
			}

			selected, err := tui.Run(report)
			if err != nil {
				return fmt.Errorf("review: %w", err)
			}
			printSelection(out, selected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Print the summary tables instead of opening the viewer")
	return cmd
}

func loadReport(fs afero.Fs, path string) (*dedupe.Report, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %s", dedupe.Describe(err))
	}
	defer f.Close()
	return dedupe.ReadReport(f)
}
