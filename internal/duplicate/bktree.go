package duplicate

import "github.com/ivoronin/dirscan/internal/hasher"

// BKTree indexes perceptual hashes for sublinear near-duplicate lookup,
// ported from duplicate.py's BKTree. It is not used by DetectNear's
// default greedy-sweep path (O(n^2) over distinct hashes is the wired
// behavior per §9); this exists as an optional accelerator a caller can
// reach for if the candidate set grows large enough that the sweep
// becomes the bottleneck.
type BKTree struct {
	root *bkNode
}

type bkNode struct {
	hash     uint64
	children map[int]*bkNode
}

func newBKNode(hash uint64) *bkNode {
	return &bkNode{hash: hash, children: map[int]*bkNode{}}
}

// NewBKTree builds an empty tree.
func NewBKTree() *BKTree {
	return &BKTree{}
}

// Add inserts hash into the tree, descending by edge distance from each
// existing node until an empty slot is found.
func (t *BKTree) Add(hash uint64) {
	if t.root == nil {
		t.root = newBKNode(hash)
		return
	}
	node := t.root
	for {
		d := hasher.Hamming(node.hash, hash)
		if d == 0 {
			return // already present
		}
		child, ok := node.children[d]
		if !ok {
			node.children[d] = newBKNode(hash)
			return
		}
		node = child
	}
}

// Search returns every indexed hash within threshold of query.
func (t *BKTree) Search(query uint64, threshold int) []uint64 {
	if t.root == nil {
		return nil
	}
	var out []uint64
	searchRecursive(t.root, query, threshold, &out)
	return out
}

func searchRecursive(node *bkNode, query uint64, threshold int, out *[]uint64) {
	d := hasher.Hamming(node.hash, query)
	if d <= threshold {
		*out = append(*out, node.hash)
	}
	for dist, child := range node.children {
		if dist >= d-threshold && dist <= d+threshold {
			searchRecursive(child, query, threshold, out)
		}
	}
}
