package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// parseSize parses a human-readable size string into bytes, e.g. "100",
// "1K", "10MiB".
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// exclusionSet turns a flag-provided slice of path-component tokens into
// the set walker.Config expects, or nil if none were given (letting the
// walker fall back to its own defaults).
func exclusionSet(tokens []string) map[string]bool {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// writeJSON marshals v with indentation and writes it to w, followed by a
// trailing newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatBytes(n int64) string {
	if n < 0 {
		return fmt.Sprintf("-%s", humanize.IBytes(uint64(-n)))
	}
	return humanize.IBytes(uint64(n))
}
