package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunProducesOneFileNodePerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "b.txt"), "world")

	tr, stats, err := Run(context.Background(), dir, Config{NumWorkers: 2, ComputeContentHash: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if tr.FileCount() != 2 {
		t.Errorf("expected 2 files, got %d", tr.FileCount())
	}
	if stats.FilesProcessed.Load() != 2 {
		t.Errorf("FilesProcessed = %d, want 2", stats.FilesProcessed.Load())
	}
	if stats.ErrorCount.Load() != 0 {
		t.Errorf("expected no errors, got %d: %v", stats.ErrorCount.Load(), stats.ErrorSample())
	}
}

func TestRunAttachesContentHash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	tr, _, err := Run(context.Background(), dir, Config{ComputeContentHash: true})
	if err != nil {
		t.Fatal(err)
	}
	files := tr.Traverse()
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Hashes["content"] == "" {
		t.Error("expected a content hash to be attached")
	}
}

func TestRunWithoutHashingSkipsHashes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	tr, _, err := Run(context.Background(), dir, Config{})
	if err != nil {
		t.Fatal(err)
	}
	files := tr.Traverse()
	if _, ok := files[0].Hashes["content"]; ok {
		t.Error("expected no content hash when ComputeContentHash is false")
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	tr, stats, err := Run(context.Background(), dir, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if tr.FileCount() != 0 {
		t.Errorf("expected 0 files, got %d", tr.FileCount())
	}
	if stats.FilesProcessed.Load() != 0 {
		t.Errorf("expected 0 processed, got %d", stats.FilesProcessed.Load())
	}
}

func TestRunInvalidRoot(t *testing.T) {
	_, _, err := Run(context.Background(), filepath.Join(t.TempDir(), "nope"), Config{})
	if err == nil {
		t.Fatal("expected error for invalid root")
	}
}

func TestRunCancellationReturnsPartialTree(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, filepath.Join(dir, string(rune('a'+i))+".txt"), "x")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	tr, stats, err := Run(ctx, dir, Config{NumWorkers: 1, ComputeContentHash: true})
	if err != nil {
		t.Fatalf("Run should return a partial result, not an error: %v", err)
	}
	if !stats.Cancelled.Load() {
		t.Error("expected Cancelled=true")
	}
	if tr.FileCount() > stats.FilesProcessed.Load() {
		t.Errorf("Tree has more files (%d) than stats report processed (%d)", tr.FileCount(), stats.FilesProcessed.Load())
	}
}

func TestDeterministicMergeAcrossWorkerCounts(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, filepath.Join(dir, string(rune('a'+i))+".txt"), "content")
	}

	tr1, _, err := Run(context.Background(), dir, Config{NumWorkers: 1, ComputeContentHash: true})
	if err != nil {
		t.Fatal(err)
	}
	tr4, _, err := Run(context.Background(), dir, Config{NumWorkers: 4, ComputeContentHash: true})
	if err != nil {
		t.Fatal(err)
	}

	if tr1.FileCount() != tr4.FileCount() {
		t.Errorf("file count differs by worker count: %d vs %d", tr1.FileCount(), tr4.FileCount())
	}
}
