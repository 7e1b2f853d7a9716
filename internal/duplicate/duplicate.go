// Package duplicate finds exact and near-duplicate files over a scanned
// Tree. Grounded on duplicate.py's DuplicateDetector: build an index from
// FileNodes, then group by exact content hash or by greedy single-linkage
// clustering over perceptual hashes.
package duplicate

import (
	"fmt"

	"github.com/ivoronin/dirscan/internal/hasher"
	"github.com/ivoronin/dirscan/internal/metadata"
	"github.com/ivoronin/dirscan/internal/tree"
	"github.com/ivoronin/dirscan/internal/types"
)

// Kind distinguishes an exact-content match from a perceptually-near one.
type Kind string

const (
	KindExact Kind = "EXACT"
	KindNear  Kind = "NEAR"
)

// Group is a cluster of FileNodes considered duplicates of one another.
type Group struct {
	ID             string
	Kind           Kind
	Members        []*tree.FileNode
	TotalSize      int64
	Wastage        int64
	Representative *tree.FileNode
}

// Stats summarizes the detector's output: group counts and bytes
// reclaimable per kind.
type Stats struct {
	ExactGroups int
	ExactFiles  int
	NearGroups  int
	NearFiles   int
	WastageBytes int64
}

// WastageMiB returns total wastage in mebibytes.
func (s Stats) WastageMiB() float64 {
	return float64(s.WastageBytes) / (1024 * 1024)
}

// Detector indexes a set of FileNodes once and serves exact/near queries
// against that index without re-scanning the tree each time.
type Detector struct {
	files []*tree.FileNode
}

// New builds a Detector over files, typically tree.Traverse()'s output.
func New(files []*tree.FileNode) *Detector {
	return &Detector{files: files}
}

// sizePrefilter groups files by size, discarding singleton groups, before
// the more expensive hash-indexing step. Adapted from the teacher's
// internal/screener size-grouping stage — an O(n) elimination pass neither
// spec.md names explicitly nor the original source performs up front, but
// both the teacher and a size-aware reimplementation of duplicate.py
// benefit from doing before indexing by hash.
func (d *Detector) sizePrefilter() map[int64][]*tree.FileNode {
	bySize := make(map[int64][]*tree.FileNode)
	for _, f := range d.files {
		bySize[f.Metadata.Size] = append(bySize[f.Metadata.Size], f)
	}
	for size, group := range bySize {
		if len(group) < 2 {
			delete(bySize, size)
		}
	}
	return bySize
}

// DetectExact groups FileNodes by content_hash. Every hash with 2 or more
// members becomes a group with id "exact_" + first 16 hex chars of the
// hash; files without a content hash are never emitted.
func (d *Detector) DetectExact() (map[string]*Group, Stats) {
	bySize := d.sizePrefilter()

	byHash := make(map[string][]*tree.FileNode)
	for _, group := range bySize {
		for _, f := range group {
			h, ok := f.Hashes["content"]
			if !ok || h == "" {
				continue
			}
			byHash[h] = append(byHash[h], f)
		}
	}

	groups := make(map[string]*Group)
	var stats Stats
	for h, members := range byHash {
		if len(members) < 2 {
			continue
		}
		id := "exact_" + truncate(h, 16)
		g := buildGroup(id, KindExact, members)
		groups[id] = g
		stats.ExactGroups++
		stats.ExactFiles += len(members)
		stats.WastageBytes += g.Wastage
	}
	return groups, stats
}

// DetectNear clusters perceptual hashes using a greedy single-linkage
// pass, per §4.7/§9: sort distinct hashes ascending, seed a cluster from
// each unvisited hash, sweep forward adding any later unvisited hash
// within threshold, emit clusters of size >= 2 with ids assigned in
// emission order. This is intentionally not transitive beyond a cluster
// seed's direct neighbors; see bktree.go for an optional accelerator that
// is never wired into this path by default.
func (d *Detector) DetectNear(threshold int) (map[string]*Group, Stats) {
	byHash := make(map[uint64][]*tree.FileNode)
	for _, f := range d.files {
		raw, ok := f.Hashes["perceptual"]
		if !ok || raw == "" {
			continue
		}
		h, err := parseHex64(raw)
		if err != nil {
			continue
		}
		byHash[h] = append(byHash[h], f)
	}

	unsorted := make([]uint64, 0, len(byHash))
	for h := range byHash {
		unsorted = append(unsorted, h)
	}
	distinct := types.NewSorted(unsorted, func(h uint64) uint64 { return h }).Items()

	visited := make(map[uint64]bool, len(distinct))
	groups := make(map[string]*Group)
	var stats Stats
	counter := 0

	for i, p := range distinct {
		if visited[p] {
			continue
		}
		visited[p] = true
		cluster := []uint64{p}

		for j := i + 1; j < len(distinct); j++ {
			q := distinct[j]
			if visited[q] {
				continue
			}
			if hasher.Hamming(p, q) <= threshold {
				visited[q] = true
				cluster = append(cluster, q)
			}
		}

		if len(cluster) < 2 {
			continue
		}

		var members []*tree.FileNode
		for _, h := range cluster {
			members = append(members, byHash[h]...)
		}

		id := fmt.Sprintf("near_%d", counter)
		counter++
		g := buildGroup(id, KindNear, members)
		groups[id] = g
		stats.NearGroups++
		stats.NearFiles += len(members)
		stats.WastageBytes += g.Wastage
	}

	return groups, stats
}

// buildGroup computes the aggregates spec.md §4.7 defines: total_size,
// wastage (total minus the smallest member's size), and representative
// (most recently modified member, lexicographic path as tie-break).
func buildGroup(id string, kind Kind, members []*tree.FileNode) *Group {
	g := &Group{ID: id, Kind: kind, Members: members}

	minSize := members[0].Metadata.Size
	for _, m := range members {
		g.TotalSize += m.Metadata.Size
		if m.Metadata.Size < minSize {
			minSize = m.Metadata.Size
		}
	}
	g.Wastage = g.TotalSize - minSize
	g.Representative = representative(members)
	return g
}

func representative(members []*tree.FileNode) *tree.FileNode {
	best := members[0]
	for _, m := range members[1:] {
		bestTime := best.Metadata.Times[metadata.TimeModified]
		mTime := m.Metadata.Times[metadata.TimeModified]
		switch {
		case mTime > bestTime:
			best = m
		case mTime == bestTime && m.Path < best.Path:
			best = m
		}
	}
	return best
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func parseHex64(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%016x", &v)
	return v, err
}
