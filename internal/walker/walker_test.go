package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func drain(t *testing.T, paths <-chan string) []string {
	t.Helper()
	var out []string
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func TestWalkEmptyDir(t *testing.T) {
	dir := t.TempDir()
	paths, _, err := Walk(context.Background(), dir, Config{})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	got := drain(t, paths)
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}
}

func TestWalkRejectsMissingRoot(t *testing.T) {
	_, _, err := Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), Config{})
	if err == nil {
		t.Fatal("expected error for nonexistent root")
	}
}

func TestWalkRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Walk(context.Background(), f, Config{})
	if err == nil {
		t.Fatal("expected error for a root that isn't a directory")
	}
}

func TestWalkFindsNestedFiles(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustMkdir(t, filepath.Join(dir, "sub"))
	mustWriteFile(t, filepath.Join(dir, "sub", "b.txt"), "b")

	paths, _, err := Walk(context.Background(), dir, Config{})
	if err != nil {
		t.Fatal(err)
	}
	got := drain(t, paths)
	if len(got) != 2 {
		t.Fatalf("expected 2 files, got %v", got)
	}
}

func TestWalkExcludesDefaultTokens(t *testing.T) {
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, ".git"))
	mustWriteFile(t, filepath.Join(dir, ".git", "config"), "x")
	mustMkdir(t, filepath.Join(dir, "src"))
	mustWriteFile(t, filepath.Join(dir, "src", "a.py"), "x")

	paths, _, err := Walk(context.Background(), dir, Config{})
	if err != nil {
		t.Fatal(err)
	}
	got := drain(t, paths)
	if len(got) != 1 || filepath.Base(got[0]) != "a.py" {
		t.Errorf("expected only src/a.py, got %v", got)
	}
}

func TestWalkMaxDepth(t *testing.T) {
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "a", "b", "c"))
	mustWriteFile(t, filepath.Join(dir, "a", "b", "c", "d.txt"), "x")
	mustWriteFile(t, filepath.Join(dir, "a", "top.txt"), "x")

	depth := 1
	paths, _, err := Walk(context.Background(), dir, Config{MaxDepth: &depth})
	if err != nil {
		t.Fatal(err)
	}
	got := drain(t, paths)
	for _, p := range got {
		if filepath.Base(p) == "d.txt" {
			t.Errorf("d.txt should be excluded by max_depth=1, got %v", got)
		}
	}
}

func TestWalkCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		mustWriteFile(t, filepath.Join(dir, "f"+string(rune('a'+i%26))+".txt"), "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	paths, _, err := Walk(ctx, dir, Config{QueueSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	time.Sleep(10 * time.Millisecond)

	// Drain whatever made it through before/around cancellation; the
	// channel must still close rather than hang.
	done := make(chan struct{})
	go func() {
		for range paths {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Walk did not close its output channel after cancellation")
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}
