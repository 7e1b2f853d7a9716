package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivoronin/dirscan/internal/duplicate"
	"github.com/ivoronin/dirscan/internal/scanner"
)

// duplicatesOptions holds CLI flags for the duplicates command.
type duplicatesOptions struct {
	workers    int
	minSize    string
	noNear     bool
	threshold  int
	noProgress bool
	jsonOutput bool
}

func newDuplicatesCmd() *cobra.Command {
	opts := &duplicatesOptions{
		workers:   runtime.NumCPU(),
		threshold: 10,
	}

	cmd := &cobra.Command{
		Use:   "duplicates <path>",
		Short: "Find exact and near-duplicate files under path",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDuplicates(args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().StringVar(&opts.minSize, "min-size", "", "Ignore files smaller than this, e.g. 1K, 10MiB (default: no minimum)")
	cmd.Flags().BoolVar(&opts.noNear, "no-near", false, "Skip near-duplicate (perceptual hash) detection")
	cmd.Flags().IntVar(&opts.threshold, "threshold", opts.threshold, "Maximum Hamming distance for a near-duplicate match")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print groups as JSON")

	return cmd
}

func runDuplicates(root string, opts *duplicatesOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var minSize int64
	if opts.minSize != "" {
		parsed, err := parseSize(opts.minSize)
		if err != nil {
			return fmt.Errorf("parse min-size: %w", err)
		}
		minSize = parsed
	}

	cfg := scanner.Config{
		NumWorkers:            opts.workers,
		MinSize:               minSize,
		ComputeContentHash:    true,
		ComputePerceptualHash: !opts.noNear,
		ShowProgress:          !opts.noProgress,
	}

	tr, _, err := scanner.Run(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	detector := duplicate.New(tr.Traverse())
	exactGroups, exactStats := detector.DetectExact()

	var nearGroups map[string]*duplicate.Group
	var nearStats duplicate.Stats
	if !opts.noNear {
		nearGroups, nearStats = detector.DetectNear(opts.threshold)
	}

	if opts.jsonOutput {
		return writeJSON(os.Stdout, map[string]any{
			"exact": exactGroups,
			"near":  nearGroups,
			"stats": map[string]any{
				"exact_groups":  exactStats.ExactGroups,
				"exact_files":   exactStats.ExactFiles,
				"near_groups":   nearStats.NearGroups,
				"near_files":    nearStats.NearFiles,
				"wastage_bytes": exactStats.WastageBytes + nearStats.WastageBytes,
			},
		})
	}

	printGroups("Exact duplicates", exactGroups)
	if !opts.noNear {
		printGroups("Near duplicates", nearGroups)
	}
	totalWastage := exactStats.WastageBytes + nearStats.WastageBytes
	fmt.Printf("\n%d exact group(s), %d near group(s), %s reclaimable\n",
		exactStats.ExactGroups, nearStats.NearGroups, formatBytes(totalWastage))
	return nil
}

func printGroups(heading string, groups map[string]*duplicate.Group) {
	if len(groups) == 0 {
		return
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Println(heading + ":")
	for _, id := range ids {
		g := groups[id]
		fmt.Printf("  [%s] %d files, %s wasted (representative: %s)\n",
			g.ID, len(g.Members), formatBytes(g.Wastage), g.Representative.Path)
		for _, m := range g.Members {
			fmt.Printf("    %s\n", m.Path)
		}
	}
}
