// Package metadata extracts per-file metadata: size, timestamps, ownership,
// permissions, MIME type, and the derived file type used by the duplicate
// detector and CLI output. Extraction never panics and never returns an
// error for ordinary filesystem conditions (permission denied, vanished
// file) — callers get a placeholder Metadata instead, per the extractor
// contract.
package metadata

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Tag marks a boolean attribute of the scanned path.
type Tag string

const (
	TagFile      Tag = "is_file"
	TagDirectory Tag = "is_dir"
	TagSymlink   Tag = "is_symlink"
	TagHidden    Tag = "is_hidden"
	TagCorrupted Tag = "is_corrupted"
)

// TimeKind names one of the three timestamps captured in Metadata.Times.
type TimeKind string

const (
	TimeCreated  TimeKind = "CREATED"
	TimeAccessed TimeKind = "ACCESSED"
	TimeModified TimeKind = "MODIFIED"
)

// unknownTime is stored whenever a timestamp cannot be determined. It never
// compares equal to an actual timestamp, so snapshot diffing never treats a
// missing time as unchanged.
const unknownTime = "unknown"

// FileType is the coarse category derived from MIME type and extension.
type FileType string

const (
	FileTypeText     FileType = "TEXT"
	FileTypeAudio    FileType = "AUDIO"
	FileTypeImage    FileType = "IMAGE"
	FileTypeVideo    FileType = "VIDEO"
	FileTypeDocument FileType = "DOCUMENT"
	FileTypeArchive  FileType = "ARCHIVE"
	FileTypeCode     FileType = "CODE"
	FileTypeBinary   FileType = "BINARY"
	FileTypeUnknown  FileType = "UNKNOWN"
)

// Metadata is an immutable snapshot of a path's filesystem attributes.
// Once returned from Extract, a Metadata value is never mutated.
type Metadata struct {
	Path        string
	Size        int64
	Tags        []Tag
	Times       map[TimeKind]string
	Inode       uint64
	Owner       string
	Permissions string
	Mime        string
	Properties  map[string]string
}

// FileType derives the coarse file category from Mime and the path's
// extension, following the precedence order: directories and files with no
// MIME are UNKNOWN; known document and archive MIME prefixes win next;
// known code extensions win over a generic application/* MIME; then mime
// category (image/audio/video/text); application/* falls to BINARY;
// anything else is UNKNOWN.
func (m Metadata) FileType() FileType {
	if m.hasTag(TagDirectory) || m.Mime == "" {
		return FileTypeUnknown
	}
	mime := strings.ToLower(m.Mime)

	for _, doc := range documentMimes {
		if strings.Contains(mime, doc) {
			return FileTypeDocument
		}
	}
	for _, arch := range archiveMimes {
		if strings.Contains(mime, arch) {
			return FileTypeArchive
		}
	}
	if codeExtensions[strings.ToLower(filepath.Ext(m.Path))] {
		return FileTypeCode
	}

	switch {
	case strings.HasPrefix(mime, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mime, "audio/"):
		return FileTypeAudio
	case strings.HasPrefix(mime, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mime, "text/"):
		return FileTypeText
	case strings.HasPrefix(mime, "application/"):
		return FileTypeBinary
	}
	return FileTypeUnknown
}

func (m Metadata) hasTag(t Tag) bool {
	for _, tag := range m.Tags {
		if tag == t {
			return true
		}
	}
	return false
}

// IsHidden reports whether the path name starts with a dot or tilde.
func (m Metadata) IsHidden() bool { return m.hasTag(TagHidden) }

// IsSymlink reports whether the path is a symbolic link.
func (m Metadata) IsSymlink() bool { return m.hasTag(TagSymlink) }

// IsCorrupted reports whether metadata extraction fell back to the
// placeholder because the path could not be read properly.
func (m Metadata) IsCorrupted() bool { return m.hasTag(TagCorrupted) }

var documentMimes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument",
	"application/vnd.ms-excel",
	"application/vnd.ms-powerpoint",
	"application/rtf",
}

var archiveMimes = []string{
	"application/zip",
	"application/x-tar",
	"application/x-rar",
	"application/gzip",
	"application/x-7z-compressed",
	"application/x-bzip2",
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".java": true, ".cpp": true, ".c": true,
	".h": true, ".rs": true, ".go": true, ".rb": true, ".php": true,
	".swift": true, ".kt": true, ".ts": true, ".jsx": true, ".tsx": true,
}

var extensionMimeFallback = map[string]string{
	".py":   "text/x-python",
	".js":   "text/javascript",
	".json": "application/json",
	".md":   "text/markdown",
	".yml":  "text/yaml",
	".yaml": "text/yaml",
	".toml": "text/toml",
	".rs":   "text/x-rust",
	".go":   "text/x-go",
	".ts":   "text/typescript",
	".tsx":  "text/typescript",
	".jsx":  "text/javascript",
}

// Extract reads path's attributes using lstat semantics (symlinks are not
// followed) and resolves MIME, owner, and permissions. It never returns an
// error for conditions that ordinary scanning encounters (permission
// denied, corrupted stat data) — a placeholder Metadata with the
// TagCorrupted tag is returned instead so the caller's scan loop can
// continue uninterrupted. An error is returned only when path has vanished
// entirely before the stat call.
func Extract(path string) (Metadata, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, fmt.Errorf("metadata: path does not exist: %s: %w", path, err)
		}
		return corrupted(path), nil
	}

	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return corrupted(path), nil
	}

	tags := extractTags(path, info)
	md := Metadata{
		Path:        path,
		Size:        extractSize(info),
		Tags:        tags,
		Times:       extractTimes(sys),
		Inode:       sys.Ino,
		Owner:       extractOwner(sys.Uid),
		Permissions: extractPermissions(info.Mode()),
		Properties:  map[string]string{},
	}

	if info.Mode().IsRegular() {
		md.Mime = extractMime(path)
		extractProperties(&md, path, info)
	} else if info.Mode()&os.ModeSymlink != 0 {
		if target, err := os.Readlink(path); err == nil {
			md.Properties["symlink_target"] = target
		} else {
			md.Properties["symlink_target"] = "unreadable"
		}
	}

	return md, nil
}

func corrupted(path string) Metadata {
	tags := []Tag{TagCorrupted}
	if isHiddenName(filepath.Base(path)) {
		tags = append(tags, TagHidden)
	}
	return Metadata{
		Path: path,
		Size: 0,
		Tags: tags,
		Times: map[TimeKind]string{
			TimeCreated:  unknownTime,
			TimeAccessed: unknownTime,
			TimeModified: unknownTime,
		},
		Inode:       0,
		Owner:       "unknown",
		Permissions: "unknown",
		Properties:  map[string]string{},
	}
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~")
}

func extractSize(info os.FileInfo) int64 {
	if info.IsDir() || info.Mode()&os.ModeSymlink != 0 {
		return 0
	}
	return info.Size()
}

func extractTags(path string, info os.FileInfo) []Tag {
	var tags []Tag
	switch {
	case info.Mode().IsRegular():
		tags = append(tags, TagFile)
	case info.IsDir():
		tags = append(tags, TagDirectory)
	case info.Mode()&os.ModeSymlink != 0:
		tags = append(tags, TagSymlink)
	}
	if isHiddenName(filepath.Base(path)) {
		tags = append(tags, TagHidden)
	}
	return tags
}

func extractTimes(sys *syscall.Stat_t) map[TimeKind]string {
	return map[TimeKind]string{
		TimeCreated:  statTimeToISO(sys.Ctim),
		TimeAccessed: statTimeToISO(sys.Atim),
		TimeModified: statTimeToISO(sys.Mtim),
	}
}

func statTimeToISO(ts syscall.Timespec) string {
	t := time.Unix(ts.Sec, ts.Nsec).UTC()
	return t.Format(time.RFC3339Nano)
}

func extractOwner(uid uint32) string {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return strconv.FormatUint(uint64(uid), 10)
	}
	return u.Username
}

func extractPermissions(mode os.FileMode) string {
	perm := mode.Perm()
	octal := fmt.Sprintf("0%o", perm)

	var b strings.Builder
	bits := []struct {
		mask rune
		flag os.FileMode
	}{
		{'r', 0o400}, {'w', 0o200}, {'x', 0o100},
		{'r', 0o040}, {'w', 0o020}, {'x', 0o010},
		{'r', 0o004}, {'w', 0o002}, {'x', 0o001},
	}
	for _, bit := range bits {
		if perm&bit.flag != 0 {
			b.WriteRune(bit.mask)
		} else {
			b.WriteByte('-')
		}
	}
	return fmt.Sprintf("%s (%s)", octal, b.String())
}

// extractMime resolves path's MIME type via content sniffing, falling back
// to the extension table on sniff failure, per the MIME resolution order.
func extractMime(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err == nil && mtype != nil && mtype.String() != "" {
		return mtype.String()
	}
	if fallback, ok := extensionMimeFallback[strings.ToLower(filepath.Ext(path))]; ok {
		return fallback
	}
	return ""
}

// extractProperties attaches cheap supplemental properties for a regular
// file based on its resolved MIME category: image dimensions/format for
// images, a best-effort encoding guess for text. Populated only when the
// work is cheap (small read, no decode of the whole file).
func extractProperties(md *Metadata, path string, info os.FileInfo) {
	if md.Mime == "" {
		return
	}
	switch {
	case strings.HasPrefix(md.Mime, "image/"):
		if w, h, format, err := imageDimensions(path); err == nil {
			md.Properties["width"] = strconv.Itoa(w)
			md.Properties["height"] = strconv.Itoa(h)
			md.Properties["format"] = format
		}
	case strings.HasPrefix(md.Mime, "text/"):
		if enc, lines, err := textSample(path); err == nil {
			md.Properties["encoding"] = enc
			md.Properties["lines"] = strconv.Itoa(lines)
		}
	case strings.HasPrefix(md.Mime, "audio/"), strings.HasPrefix(md.Mime, "video/"):
		md.Properties["size_bytes"] = strconv.FormatInt(info.Size(), 10)
	}
}
