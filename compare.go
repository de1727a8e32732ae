package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luinbytes/media-dedupe/dedupe"
	"github.com/luinbytes/media-dedupe/media"
	"github.com/luinbytes/media-dedupe/storage"
)

// comparison is the result of fingerprinting two images with one algorithm.
type comparison struct {
	algorithm dedupe.Algorithm
	hash1     string
	hash2     string
	distance  int
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var algo string
	var threshold int

	cmd := &cobra.Command{
		Use:   "compare <image1> <image2>",
		Short: "Compare two images with every perceptual hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("algo") {
				algo = ctx.cfg.Algorithm
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = ctx.cfg.Threshold
			}
			alg, err := dedupe.ParseAlgorithm(algo)
			if err != nil {
				return err
			}

			results, err := compareImages(storage.NewLocalProvider(), args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := ctx.palette(out)
			var rows [][]string
			var chosen comparison
			for _, c := range results {
				verdict := "different"
				if c.distance <= threshold {
					verdict = "similar"
				}
				rows = append(rows, []string{
					strings.ToUpper(string(c.algorithm)),
					c.hash1,
					c.hash2,
					fmt.Sprintf("%d/%d", c.distance, dedupe.FingerprintBits),
					fmt.Sprintf("%.1f%%", dedupe.Similarity(c.distance)),
					verdict,
				})
				if c.algorithm == alg {
					chosen = c
				}
			}

			fmt.Fprintln(out, p.heading("Image comparison"))
			fmt.Fprintf(out, "  1: %s\n  2: %s\n", args[0], args[1])
			fmt.Fprintln(out, renderTable(
				[]string{"Algorithm", "Hash 1", "Hash 2", "Distance", "Similarity", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			for _, a := range dedupe.Algorithms {
				fmt.Fprintf(out, "  %s: %s\n", a, a.Description())
			}
			fmt.Fprintln(out)

			summary := fmt.Sprintf("(using %s, threshold %d, distance %d, similarity %.1f%%)",
				alg, threshold, chosen.distance, dedupe.Similarity(chosen.distance))
			if chosen.distance <= threshold {
				fmt.Fprintln(out, p.ok("Images are SIMILAR")+" "+summary)
			} else {
				fmt.Fprintln(out, p.warn("Images are DIFFERENT")+" "+summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&algo, "algo", "a", string(dedupe.AverageHash), "Algorithm used for the verdict: ahash, dhash or phash")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", dedupe.DefaultThreshold, "Largest distance still counted as similar")
	return cmd
}

// compareImages fingerprints both images with every algorithm.
func compareImages(p *storage.LocalProvider, path1, path2 string) ([]comparison, error) {
	for _, path := range []string{path1, path2} {
		info, err := p.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %s", path, dedupe.Describe(err))
		}
		if info.IsDir || !media.IsImage(path) {
			return nil, fmt.Errorf("%s is not a supported image file", path)
		}
	}

	var results []comparison
	for _, alg := range dedupe.Algorithms {
		h1, err := dedupe.FingerprintFile(p, path1, alg)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", path1, err)
		}
		h2, err := dedupe.FingerprintFile(p, path2, alg)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", path2, err)
		}
		dist, err := dedupe.Distance(h1, h2)
		if err != nil {
			return nil, err
		}
		results = append(results, comparison{
			algorithm: alg,
			hash1:     dedupe.FormatFingerprint(h1),
			hash2:     dedupe.FormatFingerprint(h2),
			distance:  dist,
		})
	}
	return results, nil
}
