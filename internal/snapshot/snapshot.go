// Package snapshot captures a point-in-time record of a scanned Tree and
// diffs two such records against each other, detecting renames, additions,
// removals, and modifications. Grounded on
// original_source/dirstudio/server/src/services/snapshot.py's
// SnapshotManager, translated from Python dataclasses into Go structs with
// google/uuid standing in for uuid.uuid4() and time.Now().UTC() for
// datetime.utcnow().
package snapshot

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ivoronin/dirscan/internal/metadata"
	"github.com/ivoronin/dirscan/internal/tree"
)

// File is one path's captured identity at snapshot time.
type File struct {
	Path        string
	Size        int64
	ContentHash string // empty if not computed for this scan
	Modified    string // empty if unavailable
}

// Snapshot is an immutable record of every file under a scanned Tree at
// the moment Create ran.
type Snapshot struct {
	SnapshotID string
	ScanID     string
	Label      string
	Notes      string
	CreatedAt  string
	Files      []File
}

// Create walks t and captures a File entry per FileNode, per §4.8. A fresh
// UUIDv4 identifies the snapshot; created_at is the current UTC time in
// ISO-8601 form.
func Create(scanID string, t *tree.Tree, label, notes string) *Snapshot {
	files := make([]File, 0, t.FileCount())
	for _, f := range t.Traverse() {
		files = append(files, File{
			Path:        f.Path,
			Size:        f.Metadata.Size,
			ContentHash: f.Hashes["content"],
			Modified:    f.Metadata.Times[metadata.TimeModified],
		})
	}
	return &Snapshot{
		SnapshotID: uuid.NewString(),
		ScanID:     scanID,
		Label:      label,
		Notes:      notes,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Files:      files,
	}
}

// ChangeKind classifies one DiffEntry.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeRemoved  ChangeKind = "REMOVED"
	ChangeModified ChangeKind = "MODIFIED"
	ChangeRenamed  ChangeKind = "RENAMED"
)

// DiffEntry describes one path's change between two snapshots.
type DiffEntry struct {
	Change    ChangeKind
	Path      string
	OldPath   string // set only for ChangeRenamed
	OldSize   int64  // set for removed/renamed/modified
	NewSize   int64  // set for added/renamed/modified
	SizeDelta int64  // new - old; unset (0) for removed
}

// Diff is the full set of changes between snapshot A (old) and B (new).
type Diff struct {
	Entries []DiffEntry
}

// Run compares a (old) to b (new) per §4.8/§9: path maps for both
// snapshots; a content-hash index over b's hashed files drives rename
// detection for paths present only in a, breaking ties by picking the
// lexicographically smallest unconsumed candidate path in b (§9,
// overriding the Python original's nondeterministic first-match
// iteration order); anything left in a\b is removed, anything left in
// b\a is added, and paths present in both with a differing content hash
// (or, absent a hash, a differing size or modified time) are modified.
func Run(a, b *Snapshot) *Diff {
	byPathA := indexByPath(a.Files)
	byPathB := indexByPath(b.Files)
	hashIndexB := indexByHash(b.Files)

	consumed := map[string]bool{}
	var entries []DiffEntry

	var onlyInA []string
	for p := range byPathA {
		if _, ok := byPathB[p]; !ok {
			onlyInA = append(onlyInA, p)
		}
	}
	sort.Strings(onlyInA)

	for _, p := range onlyInA {
		oldFile := byPathA[p]
		if oldFile.ContentHash == "" {
			continue // no hash: can't attempt a rename match, falls to Removed below
		}
		candidates := hashIndexB[oldFile.ContentHash]
		match := smallestUnconsumed(candidates, byPathA, consumed)
		if match == "" {
			continue
		}
		consumed[match] = true
		newFile := byPathB[match]
		entries = append(entries, DiffEntry{
			Change:    ChangeRenamed,
			Path:      match,
			OldPath:   p,
			OldSize:   oldFile.Size,
			NewSize:   newFile.Size,
			SizeDelta: newFile.Size - oldFile.Size,
		})
	}

	renamedFrom := map[string]bool{}
	for _, e := range entries {
		renamedFrom[e.OldPath] = true
	}

	for _, p := range onlyInA {
		if renamedFrom[p] {
			continue
		}
		oldFile := byPathA[p]
		entries = append(entries, DiffEntry{
			Change:  ChangeRemoved,
			Path:    p,
			OldSize: oldFile.Size,
		})
	}

	var onlyInB []string
	for p := range byPathB {
		if _, ok := byPathA[p]; !ok && !consumed[p] {
			onlyInB = append(onlyInB, p)
		}
	}
	sort.Strings(onlyInB)
	for _, p := range onlyInB {
		newFile := byPathB[p]
		entries = append(entries, DiffEntry{
			Change:    ChangeAdded,
			Path:      p,
			NewSize:   newFile.Size,
			SizeDelta: newFile.Size,
		})
	}

	var common []string
	for p := range byPathA {
		if _, ok := byPathB[p]; ok {
			common = append(common, p)
		}
	}
	sort.Strings(common)
	for _, p := range common {
		oldFile := byPathA[p]
		newFile := byPathB[p]
		if !fileChanged(oldFile, newFile) {
			continue
		}
		entries = append(entries, DiffEntry{
			Change:    ChangeModified,
			Path:      p,
			OldSize:   oldFile.Size,
			NewSize:   newFile.Size,
			SizeDelta: newFile.Size - oldFile.Size,
		})
	}

	return &Diff{Entries: entries}
}

// fileChanged reports whether two File records at the same path differ.
// A content-hash mismatch is decisive when both sides have one; otherwise
// size is compared, then modified time. A modified time of "unknown" on
// either side never counts as equal, so such a file is reported changed.
func fileChanged(oldFile, newFile File) bool {
	if oldFile.ContentHash != "" && newFile.ContentHash != "" {
		return oldFile.ContentHash != newFile.ContentHash
	}
	if oldFile.Size != newFile.Size {
		return true
	}
	if oldFile.Modified == unknownTime || newFile.Modified == unknownTime {
		return true
	}
	return oldFile.Modified != newFile.Modified
}

// unknownTime is the placeholder metadata.Extract stores for a timestamp it
// cannot determine.
const unknownTime = "unknown"

func indexByPath(files []File) map[string]File {
	m := make(map[string]File, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}

func indexByHash(files []File) map[string][]string {
	m := map[string][]string{}
	for _, f := range files {
		if f.ContentHash == "" {
			continue
		}
		m[f.ContentHash] = append(m[f.ContentHash], f.Path)
	}
	return m
}

// smallestUnconsumed returns the lexicographically smallest path in
// candidates that is not already consumed and is not itself present in
// byPathA (i.e. genuinely new in b), or "" if none qualifies.
func smallestUnconsumed(candidates []string, byPathA map[string]File, consumed map[string]bool) string {
	best := ""
	for _, c := range candidates {
		if consumed[c] {
			continue
		}
		if _, existedBefore := byPathA[c]; existedBefore {
			continue
		}
		if best == "" || c < best {
			best = c
		}
	}
	return best
}

