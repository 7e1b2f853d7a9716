package main

import (
	"bytes"
	"testing"
)

func TestParseSizeValid(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1234", 1234},
		{"1K", 1000},
		{"1KiB", 1024},
		{"1MiB", 1048576},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "abc", "--100"} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseSize(input); err == nil {
				t.Errorf("parseSize(%q) should return error", input)
			}
		})
	}
}

func TestExclusionSetNilForEmpty(t *testing.T) {
	if set := exclusionSet(nil); set != nil {
		t.Errorf("expected nil for empty input, got %v", set)
	}
	if set := exclusionSet([]string{}); set != nil {
		t.Errorf("expected nil for empty slice, got %v", set)
	}
}

func TestExclusionSetBuildsMembership(t *testing.T) {
	set := exclusionSet([]string{".git", "node_modules"})
	if !set[".git"] || !set["node_modules"] {
		t.Errorf("expected both tokens present, got %v", set)
	}
	if set["other"] {
		t.Error("expected unrelated token to be absent")
	}
}

func TestWriteJSONProducesIndentedOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("writeJSON error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected non-empty output")
	}
}

func TestFormatBytesNegative(t *testing.T) {
	got := formatBytes(-1024)
	if got == "" || got[0] != '-' {
		t.Errorf("formatBytes(-1024) = %q, want a leading '-'", got)
	}
}

func TestFormatBytesPositive(t *testing.T) {
	got := formatBytes(1024)
	if got == "" {
		t.Error("expected non-empty output")
	}
}
