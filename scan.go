package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/luinbytes/media-dedupe/config"
	"github.com/luinbytes/media-dedupe/dedupe"
	"github.com/luinbytes/media-dedupe/media"
	"github.com/luinbytes/media-dedupe/storage"
	"github.com/luinbytes/media-dedupe/tui"
)

type scanFlags struct {
	dest      string
	algo      string
	threshold int
	dryRun    bool
	export    string
	exportCSV string
	tui       bool
	progress  bool
}

// scanSettings is the merged result of config file and flags.
type scanSettings struct {
	root        string
	destination string
	algorithm   dedupe.Algorithm
	threshold   int
	dryRun      bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Find duplicates under dir and move exact copies to the review folder",
		Long: `Scan walks dir for images and videos, groups byte-identical files and
visually similar images, and moves every exact copy except the first into
the review folder (default: duplicates_review next to dir), keeping its
path relative to dir. Nothing is ever deleted. Similar images are only
reported.`,
		Example: `  media-dedupe scan ~/Pictures --dry-run
  media-dedupe scan ~/Pictures --dest ~/review --export report.json
  media-dedupe scan ~/Pictures --algo phash --threshold 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveScanSettings(cmd, ctx.cfg, flags, args[0])
			if err != nil {
				return err
			}
			return runScan(cmd, ctx, settings, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.dest, "dest", "d", "", "Review folder for exact duplicates (default: <dir>/../duplicates_review)")
	f.StringVarP(&flags.algo, "algo", "a", string(dedupe.AverageHash), "Perceptual hash: ahash, dhash or phash")
	f.IntVarP(&flags.threshold, "threshold", "t", dedupe.DefaultThreshold, "Largest fingerprint distance (1-64) still counted as similar")
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report what would be moved without moving anything")
	f.StringVar(&flags.export, "export", "", "Write the report as JSON to this file")
	f.StringVar(&flags.exportCSV, "export-csv", "", "Write the grouped files as CSV to this file")
	f.BoolVar(&flags.tui, "tui", false, "Review the results interactively when the scan is done")
	f.BoolVar(&flags.progress, "progress", true, "Show progress bars when stderr is a terminal")

	return cmd
}

// resolveScanSettings merges the config file with the flags that were set
// explicitly on the command line.
func resolveScanSettings(cmd *cobra.Command, cfg *config.Config, flags scanFlags, root string) (scanSettings, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	s := scanSettings{
		root:        root,
		destination: cfg.Destination,
		threshold:   cfg.Threshold,
		dryRun:      cfg.DryRun,
	}
	algo := cfg.Algorithm

	changed := cmd.Flags().Changed
	if changed("dest") {
		s.destination = flags.dest
	}
	if changed("algo") {
		algo = flags.algo
	}
	if changed("threshold") {
		s.threshold = flags.threshold
	}
	if changed("dry-run") {
		s.dryRun = flags.dryRun
	}

	alg, err := dedupe.ParseAlgorithm(algo)
	if err != nil {
		return s, err
	}
	s.algorithm = alg
	if s.threshold < 1 || s.threshold > dedupe.FingerprintBits {
		return s, fmt.Errorf("threshold must be between 1 and %d, got %d", dedupe.FingerprintBits, s.threshold)
	}

	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return s, err
	}
	s.root = absRoot
	if s.destination == "" {
		s.destination = dedupe.DefaultDestination(absRoot)
	} else if s.destination, err = filepath.Abs(s.destination); err != nil {
		return s, err
	}
	if s.destination == s.root {
		return s, fmt.Errorf("%w: %s", dedupe.ErrDestinationIsRoot, s.destination)
	}
	return s, nil
}

func runScan(cmd *cobra.Command, ctx *commandContext, s scanSettings, flags scanFlags) error {
	logger := ctx.logger
	out := cmd.OutOrStdout()
	provider := storage.NewLocalProvider()

	// Nothing is locked or created for a root that cannot be scanned.
	if _, err := media.Discover(provider, s.root, nil); err != nil {
		return err
	}
	if !s.dryRun {
		unlock, err := lockDestination(s.destination)
		if err != nil {
			return err
		}
		defer unlock()
	}

	var observer dedupe.Observer
	if flags.progress && isTerminal(cmd.ErrOrStderr()) && ctx.cfg.LogFormat != "json" {
		observer = newProgressObserver(cmd.ErrOrStderr())
	}

	scanner := dedupe.NewScanner(provider, dedupe.Options{
		Algorithm: s.algorithm,
		Threshold: s.threshold,
		DryRun:    s.dryRun,
		Logger:    logger,
		Observer:  observer,
	})
	report, err := scanner.Scan(s.root, s.destination)
	if err != nil {
		return err
	}

	printReport(out, ctx.palette(out), report)

	if flags.export != "" {
		if err := provider.WriteFileAtomic(flags.export, report.WriteJSON); err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		logger.Info("report exported", "path", flags.export)
	}
	if flags.exportCSV != "" {
		if err := provider.WriteFileAtomic(flags.exportCSV, report.WriteCSV); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		logger.Info("csv exported", "path", flags.exportCSV)
	}

	if flags.tui {
		selected, err := tui.Run(report)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}
		printSelection(out, selected)
	}

	if report.HasErrors() {
		return fmt.Errorf("scan finished with %d errors", report.Summary.Errors)
	}
	return nil
}

// lockDestination takes an advisory lock next to the review folder so two
// scans never move into the same folder at once. The lock file is removed
// again on unlock.
func lockDestination(dest string) (func(), error) {
	lockPath := filepath.Clean(dest) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("another scan is moving files into %s (lock %s)", dest, lockPath)
	}
	return func() {
		_ = os.Remove(lockPath)
		_ = lock.Unlock()
	}, nil
}

func printSelection(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
}
