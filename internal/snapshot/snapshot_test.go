package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivoronin/dirscan/internal/metadata"
	"github.com/ivoronin/dirscan/internal/tree"
)

func attach(t *testing.T, tr *tree.Tree, path string, size int64, contentHash string) {
	t.Helper()
	md := metadata.Metadata{
		Path: path,
		Size: size,
		Times: map[metadata.TimeKind]string{
			metadata.TimeModified: "2024-01-01T00:00:00Z",
		},
	}
	hashes := map[string]string{}
	if contentHash != "" {
		hashes["content"] = contentHash
	}
	require.NoError(t, tr.AttachFile(path, md, hashes))
}

func entryByChange(entries []DiffEntry, kind ChangeKind) []DiffEntry {
	var out []DiffEntry
	for _, e := range entries {
		if e.Change == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateCapturesEveryFile(t *testing.T) {
	tr := tree.New("/root")
	attach(t, tr, "/root/a.txt", 10, "hash-a")
	attach(t, tr, "/root/sub/b.txt", 20, "hash-b")

	snap := Create("scan-1", tr, "label", "notes")

	assert.NotEmpty(t, snap.SnapshotID)
	assert.NotEmpty(t, snap.CreatedAt)
	assert.Equal(t, "scan-1", snap.ScanID)
	assert.Equal(t, "label", snap.Label)
	assert.Len(t, snap.Files, 2)
}

func TestDiffDetectsAddedAndRemoved(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/old.txt", Size: 5}}}
	b := &Snapshot{Files: []File{{Path: "/new.txt", Size: 7}}}

	diff := Run(a, b)
	require.Len(t, diff.Entries, 2)

	added := entryByChange(diff.Entries, ChangeAdded)
	require.Len(t, added, 1)
	assert.Equal(t, "/new.txt", added[0].Path)
	assert.EqualValues(t, 7, added[0].NewSize)
	assert.EqualValues(t, 7, added[0].SizeDelta)

	removed := entryByChange(diff.Entries, ChangeRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "/old.txt", removed[0].Path)
	assert.EqualValues(t, 5, removed[0].OldSize)
}

func TestDiffDetectsRenameByContentHash(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/old/name.txt", Size: 12, ContentHash: "sha-x"}}}
	b := &Snapshot{Files: []File{{Path: "/new/name.txt", Size: 12, ContentHash: "sha-x"}}}

	diff := Run(a, b)
	require.Len(t, diff.Entries, 1)

	e := diff.Entries[0]
	assert.Equal(t, ChangeRenamed, e.Change)
	assert.Equal(t, "/old/name.txt", e.OldPath)
	assert.Equal(t, "/new/name.txt", e.Path)
	assert.EqualValues(t, 0, e.SizeDelta)
}

func TestDiffRenameTieBreaksLexicographically(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/old.txt", Size: 10, ContentHash: "shared"}}}
	b := &Snapshot{Files: []File{
		{Path: "/zzz.txt", Size: 10, ContentHash: "shared"},
		{Path: "/aaa.txt", Size: 10, ContentHash: "shared"},
	}}

	diff := Run(a, b)

	renamed := entryByChange(diff.Entries, ChangeRenamed)
	require.Len(t, renamed, 1)
	assert.Equal(t, "/aaa.txt", renamed[0].Path, "expected lexicographically smallest candidate to win")

	added := entryByChange(diff.Entries, ChangeAdded)
	require.Len(t, added, 1)
	assert.Equal(t, "/zzz.txt", added[0].Path, "expected the non-chosen candidate to remain an addition")
}

func TestDiffDetectsModifiedByHash(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/same.txt", Size: 10, ContentHash: "hash-old"}}}
	b := &Snapshot{Files: []File{{Path: "/same.txt", Size: 10, ContentHash: "hash-new"}}}

	diff := Run(a, b)
	require.Len(t, diff.Entries, 1)
	assert.Equal(t, ChangeModified, diff.Entries[0].Change)
}

func TestDiffDetectsModifiedBySizeWhenNoHash(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/same.txt", Size: 10}}}
	b := &Snapshot{Files: []File{{Path: "/same.txt", Size: 20}}}

	diff := Run(a, b)
	require.Len(t, diff.Entries, 1)
	assert.Equal(t, ChangeModified, diff.Entries[0].Change)
	assert.EqualValues(t, 10, diff.Entries[0].SizeDelta)
}

func TestDiffDetectsModifiedByMtimeWhenNoHashAndSameSize(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/same.txt", Size: 10, Modified: "2024-01-01T00:00:00Z"}}}
	b := &Snapshot{Files: []File{{Path: "/same.txt", Size: 10, Modified: "2024-06-01T00:00:00Z"}}}

	diff := Run(a, b)
	require.Len(t, diff.Entries, 1)
	assert.Equal(t, ChangeModified, diff.Entries[0].Change)
}

func TestDiffNoChangesProducesNoEntries(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/a.txt", Size: 10, ContentHash: "h", Modified: "2024-01-01T00:00:00Z"}}}
	b := &Snapshot{Files: []File{{Path: "/a.txt", Size: 10, ContentHash: "h", Modified: "2024-01-01T00:00:00Z"}}}

	diff := Run(a, b)
	assert.Empty(t, diff.Entries)
}

func TestDiffUnhashedRemovalIsNeverMistakenForRename(t *testing.T) {
	a := &Snapshot{Files: []File{{Path: "/gone.txt", Size: 10}}}
	b := &Snapshot{Files: []File{{Path: "/unrelated.txt", Size: 10}}}

	diff := Run(a, b)
	assert.Empty(t, entryByChange(diff.Entries, ChangeRenamed))
	require.Len(t, diff.Entries, 2)
}
