package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivoronin/dirscan/internal/cache"
	"github.com/ivoronin/dirscan/internal/scanner"
)

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	excludes    []string
	workers     int
	maxDepth    int
	minSize     string
	contentHash bool
	perceptual  bool
	noProgress  bool
	cacheFile   string
	jsonOutput  bool
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		workers:  runtime.NumCPU(),
		maxDepth: -1,
	}

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Scan a directory tree and build its metadata index",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args[0], opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", nil, "Path component tokens to exclude (default: .git, node_modules, ...)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "Maximum recursion depth (-1 for unlimited)")
	cmd.Flags().StringVar(&opts.minSize, "min-size", "", "Minimum file size to include, e.g. 1K, 10MiB (default: no minimum)")
	cmd.Flags().BoolVar(&opts.contentHash, "content-hash", true, "Compute a SHA-256 content hash per file")
	cmd.Flags().BoolVar(&opts.perceptual, "perceptual-hash", false, "Compute a perceptual hash for image files")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to a content-hash cache file (enables caching)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the resulting tree as JSON")

	return cmd
}

func runScan(root string, opts *scanOptions) error {
	var maxDepth *int
	if opts.maxDepth >= 0 {
		maxDepth = &opts.maxDepth
	}

	var minSize int64
	if opts.minSize != "" {
		parsed, err := parseSize(opts.minSize)
		if err != nil {
			return fmt.Errorf("parse min-size: %w", err)
		}
		minSize = parsed
	}

	var hashCache *cache.Cache
	if opts.cacheFile != "" {
		c, err := cache.Open(opts.cacheFile)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer func() {
			if err := c.Close(); err != nil {
				log.Error().Err(err).Str("path", opts.cacheFile).Msg("failed to close hash cache")
			}
		}()
		hashCache = c
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := scanner.Config{
		NumWorkers:            opts.workers,
		Exclusions:            exclusionSet(opts.excludes),
		MaxDepth:              maxDepth,
		MinSize:               minSize,
		ComputeContentHash:    opts.contentHash,
		ComputePerceptualHash: opts.perceptual,
		ShowProgress:          !opts.noProgress,
		Cache:                 hashCache,
	}

	tr, stats, err := scanner.Run(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	if opts.jsonOutput {
		return writeJSON(os.Stdout, tr.WithStats(map[string]any{
			"files_processed": stats.FilesProcessed.Load(),
			"bytes_processed": stats.BytesProcessed.Load(),
			"error_count":     stats.ErrorCount.Load(),
			"cancelled":       stats.Cancelled.Load(),
		}))
	}

	fmt.Println(stats.String())
	if stats.Cancelled.Load() {
		fmt.Println("scan was cancelled; results are partial")
	}
	for _, sample := range stats.ErrorSample() {
		fmt.Fprintln(os.Stderr, "error:", sample)
	}
	return nil
}
