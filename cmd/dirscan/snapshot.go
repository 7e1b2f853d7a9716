package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivoronin/dirscan/internal/scanner"
	"github.com/ivoronin/dirscan/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create and compare point-in-time scan snapshots",
	}
	cmd.AddCommand(newSnapshotCreateCmd())
	cmd.AddCommand(newSnapshotDiffCmd())
	return cmd
}

type snapshotCreateOptions struct {
	label      string
	notes      string
	output     string
	workers    int
	noProgress bool
}

func newSnapshotCreateCmd() *cobra.Command {
	opts := &snapshotCreateOptions{workers: runtime.NumCPU()}

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Scan path and write a snapshot to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSnapshotCreate(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.label, "label", "", "Human-readable label for the snapshot")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "Free-form notes attached to the snapshot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "File to write the snapshot to (required)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runSnapshotCreate(root string, opts *snapshotCreateOptions) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := scanner.Config{
		NumWorkers:         opts.workers,
		ComputeContentHash: true,
		ShowProgress:       !opts.noProgress,
	}

	tr, _, err := scanner.Run(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	snap := snapshot.Create(root, tr, opts.label, opts.notes)

	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("path", opts.output).Msg("failed to close snapshot file")
		}
	}()

	if err := writeJSON(f, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	fmt.Printf("snapshot %s written to %s (%d files)\n", snap.SnapshotID, opts.output, len(snap.Files))
	return nil
}

type snapshotDiffOptions struct {
	jsonOutput bool
}

func newSnapshotDiffCmd() *cobra.Command {
	opts := &snapshotDiffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <old-snapshot> <new-snapshot>",
		Short: "Diff two snapshot files",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSnapshotDiff(args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the diff as JSON")
	return cmd
}

func runSnapshotDiff(oldPath, newPath string, opts *snapshotDiffOptions) error {
	a, err := loadSnapshot(oldPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", oldPath, err)
	}
	b, err := loadSnapshot(newPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", newPath, err)
	}

	diff := snapshot.Run(a, b)

	if opts.jsonOutput {
		return writeJSON(os.Stdout, diff)
	}

	for _, e := range diff.Entries {
		switch e.Change {
		case snapshot.ChangeRenamed:
			fmt.Printf("renamed: %s -> %s (%+d bytes)\n", e.OldPath, e.Path, e.SizeDelta)
		case snapshot.ChangeRemoved:
			fmt.Printf("removed: %s (%s)\n", e.Path, formatBytes(e.OldSize))
		case snapshot.ChangeAdded:
			fmt.Printf("added:   %s (%s)\n", e.Path, formatBytes(e.NewSize))
		case snapshot.ChangeModified:
			fmt.Printf("changed: %s (%+d bytes)\n", e.Path, e.SizeDelta)
		}
	}
	fmt.Printf("\n%d change(s)\n", len(diff.Entries))
	return nil
}

func loadSnapshot(path string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
