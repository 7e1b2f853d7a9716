// Package tree holds the hierarchical in-memory representation a scan
// produces: FileNode and DirNode values assembled into a Tree rooted at
// the scanned directory. A Tree is mutated only through AttachFile while a
// scan is in progress; once workers join and partial trees are merged, it
// is treated as read-only by every downstream consumer.
package tree

import (
	"path"
	"strings"

	"github.com/ivoronin/dirscan/internal/metadata"
	"github.com/ivoronin/dirscan/internal/scanerr"
)

// FileNode is a single scanned file: its path, extracted metadata, and
// whichever hash kinds were requested for the scan. Hashes maps "content"
// to a lowercase hex digest and/or "perceptual" to a hex-encoded 64-bit
// value; either key may be absent if that hash wasn't computed or failed.
type FileNode struct {
	Path     string
	Metadata metadata.Metadata
	Hashes   map[string]string
}

// DirNode is a directory: its path, metadata, and its direct children.
// Child order is insertion order and carries no semantic meaning.
type DirNode struct {
	Path     string
	Metadata metadata.Metadata
	Files    []*FileNode
	Subdirs  []*DirNode

	fileIndex map[string]int // child file name -> index in Files
	dirIndex  map[string]int // child dir name -> index in Subdirs
}

func newDirNode(p string, md metadata.Metadata) *DirNode {
	return &DirNode{
		Path:      p,
		Metadata:  md,
		fileIndex: map[string]int{},
		dirIndex:  map[string]int{},
	}
}

// Tree is a rooted DirNode plus the scan root's absolute path.
type Tree struct {
	Root string
	Dir  *DirNode

	stats map[string]any // optional, attached via WithStats for serialization
}

// New creates an empty Tree rooted at root.
func New(root string) *Tree {
	clean := path.Clean(filepathToSlash(root))
	return &Tree{
		Root: clean,
		Dir:  newDirNode(clean, metadata.Metadata{Path: clean}),
	}
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// AttachFile inserts or replaces the FileNode for filePath, auto-creating
// any missing ancestor DirNodes up to (but not above) the tree's root.
// Attaching a path that already has a FileNode at the same parent replaces
// it in place (last-writer-wins).
func (t *Tree) AttachFile(filePath string, md metadata.Metadata, hashes map[string]string) error {
	clean := path.Clean(filepathToSlash(filePath))
	if !isUnder(t.Root, clean) {
		return scanerr.NewInternalInvariant("tree-path-prefix",
			"attach path "+clean+" is not under root "+t.Root)
	}

	dir, err := t.ensureDir(path.Dir(clean))
	if err != nil {
		return err
	}

	name := path.Base(clean)
	node := &FileNode{Path: clean, Metadata: md, Hashes: hashes}
	if idx, ok := dir.fileIndex[name]; ok {
		dir.Files[idx] = node
		return nil
	}
	dir.fileIndex[name] = len(dir.Files)
	dir.Files = append(dir.Files, node)
	return nil
}

// ensureDir returns the DirNode at dirPath, creating it (and any missing
// ancestors between it and the tree root) if necessary.
func (t *Tree) ensureDir(dirPath string) (*DirNode, error) {
	dirPath = path.Clean(dirPath)
	if dirPath == t.Root {
		return t.Dir, nil
	}
	if !isUnder(t.Root, dirPath) {
		return nil, scanerr.NewInternalInvariant("tree-path-prefix",
			"directory path "+dirPath+" is not under root "+t.Root)
	}

	parent, err := t.ensureDir(path.Dir(dirPath))
	if err != nil {
		return nil, err
	}

	name := path.Base(dirPath)
	if idx, ok := parent.dirIndex[name]; ok {
		return parent.Subdirs[idx], nil
	}

	child := newDirNode(dirPath, metadata.Metadata{Path: dirPath})
	parent.dirIndex[name] = len(parent.Subdirs)
	parent.Subdirs = append(parent.Subdirs, child)
	return child, nil
}

// SetDirMetadata records md against the DirNode at dirPath, creating
// ancestors as needed. The worker pool does not call it, so DirNodes built
// during a scan carry only their path in Metadata.
func (t *Tree) SetDirMetadata(dirPath string, md metadata.Metadata) error {
	dir, err := t.ensureDir(path.Clean(filepathToSlash(dirPath)))
	if err != nil {
		return err
	}
	dir.Metadata = md
	return nil
}

func isUnder(root, p string) bool {
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+"/")
}

// Traverse returns every FileNode in the tree via a depth-first walk.
// Order follows child insertion order and is not otherwise meaningful.
func (t *Tree) Traverse() []*FileNode {
	var out []*FileNode
	var walk func(d *DirNode)
	walk = func(d *DirNode) {
		out = append(out, d.Files...)
		for _, sub := range d.Subdirs {
			walk(sub)
		}
	}
	walk(t.Dir)
	return out
}

// FileCount returns the number of FileNodes reachable from the root.
func (t *Tree) FileCount() int {
	return len(t.Traverse())
}

// Merge combines source into target in place, following §4.5's rules:
// DirNodes at equal paths combine and recurse; files are merged by path
// key with the source file replacing any existing target file
// (last-writer-wins); directories present only in source are attached by
// value copy. Returns MergeError if the two trees have different roots.
func Merge(target, source *Tree) error {
	if target.Root != source.Root {
		return scanerr.NewMergeError(target.Root, source.Root)
	}
	mergeDir(target.Dir, source.Dir)
	return nil
}

func mergeDir(dst, src *DirNode) {
	for _, f := range src.Files {
		name := path.Base(f.Path)
		if idx, ok := dst.fileIndex[name]; ok {
			dst.Files[idx] = f
			continue
		}
		dst.fileIndex[name] = len(dst.Files)
		dst.Files = append(dst.Files, f)
	}

	for _, srcSub := range src.Subdirs {
		name := path.Base(srcSub.Path)
		if idx, ok := dst.dirIndex[name]; ok {
			mergeDir(dst.Subdirs[idx], srcSub)
			continue
		}
		dst.dirIndex[name] = len(dst.Subdirs)
		dst.Subdirs = append(dst.Subdirs, copyDirNode(srcSub))
	}
}

// copyDirNode deep-copies a subtree so a merged Tree never shares node
// pointers with the partial tree it was merged from.
func copyDirNode(src *DirNode) *DirNode {
	dst := newDirNode(src.Path, src.Metadata)
	for _, f := range src.Files {
		fileCopy := *f
		name := path.Base(f.Path)
		dst.fileIndex[name] = len(dst.Files)
		dst.Files = append(dst.Files, &fileCopy)
	}
	for _, sub := range src.Subdirs {
		name := path.Base(sub.Path)
		dst.dirIndex[name] = len(dst.Subdirs)
		dst.Subdirs = append(dst.Subdirs, copyDirNode(sub))
	}
	return dst
}
