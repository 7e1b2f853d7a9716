package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	configureLogger()

	root := &cobra.Command{
		Use:     "dirscan",
		Short:   "Audit a directory tree for duplicates and drift",
		Version: version + " (" + commit + ")",
	}

	root.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newDuplicatesCmd())
	root.AddCommand(newSnapshotCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

// configureLogger sets up the package-level zerolog logger: a human
// console writer when stderr is a terminal, structured JSON otherwise.
func configureLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if isTerminal(os.Stderr) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
