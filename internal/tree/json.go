package tree

import (
	"encoding/json"
	"path"

	"github.com/ivoronin/dirscan/internal/metadata"
)

func baseName(p string) string { return path.Base(p) }

// metadataJSON is Metadata's wire representation: {path, size, time,
// inode, owner, permissions, mime}, plus the derived filetype and any
// supplemental properties (richer than spec's minimal wire shape, never
// narrower than it).
type metadataJSON struct {
	Path        string            `json:"path"`
	Size        int64             `json:"size"`
	Time        map[string]string `json:"time"`
	Inode       uint64            `json:"inode"`
	Owner       string            `json:"owner"`
	Permissions string            `json:"permissions"`
	Mime        string            `json:"mime,omitempty"`
	FileType    string            `json:"filetype,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

func toMetadataJSON(md metadata.Metadata) metadataJSON {
	times := make(map[string]string, len(md.Times))
	for k, v := range md.Times {
		times[string(k)] = v
	}
	return metadataJSON{
		Path:        md.Path,
		Size:        md.Size,
		Time:        times,
		Inode:       md.Inode,
		Owner:       md.Owner,
		Permissions: md.Permissions,
		Mime:        md.Mime,
		FileType:    string(md.FileType()),
		Properties:  md.Properties,
	}
}

func fromMetadataJSON(m metadataJSON) metadata.Metadata {
	times := make(map[metadata.TimeKind]string, len(m.Time))
	for k, v := range m.Time {
		times[metadata.TimeKind(k)] = v
	}
	return metadata.Metadata{
		Path:        m.Path,
		Size:        m.Size,
		Times:       times,
		Inode:       m.Inode,
		Owner:       m.Owner,
		Permissions: m.Permissions,
		Mime:        m.Mime,
		Properties:  m.Properties,
	}
}

type fileNodeJSON struct {
	Path     string            `json:"path"`
	Metadata metadataJSON      `json:"metadata"`
	Hashes   map[string]string `json:"hashes,omitempty"`
}

type dirNodeJSON struct {
	Path     string         `json:"path"`
	Metadata metadataJSON   `json:"metadata"`
	Files    []fileNodeJSON `json:"files"`
	Subdirs  []dirNodeJSON  `json:"subdirs"`
}

type treeJSON struct {
	Root  dirNodeJSON    `json:"root"`
	Stats map[string]any `json:"stats,omitempty"`
}

func toFileNodeJSON(f *FileNode) fileNodeJSON {
	return fileNodeJSON{
		Path:     f.Path,
		Metadata: toMetadataJSON(f.Metadata),
		Hashes:   f.Hashes,
	}
}

func fromFileNodeJSON(f fileNodeJSON) *FileNode {
	return &FileNode{
		Path:     f.Path,
		Metadata: fromMetadataJSON(f.Metadata),
		Hashes:   f.Hashes,
	}
}

func toDirNodeJSON(d *DirNode) dirNodeJSON {
	files := make([]fileNodeJSON, len(d.Files))
	for i, f := range d.Files {
		files[i] = toFileNodeJSON(f)
	}
	subdirs := make([]dirNodeJSON, len(d.Subdirs))
	for i, sub := range d.Subdirs {
		subdirs[i] = toDirNodeJSON(sub)
	}
	return dirNodeJSON{
		Path:     d.Path,
		Metadata: toMetadataJSON(d.Metadata),
		Files:    files,
		Subdirs:  subdirs,
	}
}

func fromDirNodeJSON(d dirNodeJSON) *DirNode {
	node := newDirNode(d.Path, fromMetadataJSON(d.Metadata))
	for _, f := range d.Files {
		fn := fromFileNodeJSON(f)
		node.fileIndex[baseName(fn.Path)] = len(node.Files)
		node.Files = append(node.Files, fn)
	}
	for _, sub := range d.Subdirs {
		dn := fromDirNodeJSON(sub)
		node.dirIndex[baseName(dn.Path)] = len(node.Subdirs)
		node.Subdirs = append(node.Subdirs, dn)
	}
	return node
}

// MarshalJSON encodes the Tree as {root: DirNode, stats}. Stats, if set via
// WithStats, round-trips as an opaque map.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(treeJSON{Root: toDirNodeJSON(t.Dir), Stats: t.stats})
}

// UnmarshalJSON decodes a Tree from its canonical wire form.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var wire treeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.Dir = fromDirNodeJSON(wire.Root)
	t.Root = wire.Root.Path
	t.stats = wire.Stats
	return nil
}

// WithStats attaches an opaque stats map to the Tree for serialization
// (e.g. scan statistics a caller wants persisted alongside the tree).
func (t *Tree) WithStats(stats map[string]any) *Tree {
	t.stats = stats
	return t
}
