// Package cache provides persistent caching of whole-file content hashes,
// adapted from the teacher's progressive byte-range verification cache:
// same self-cleaning read/write database pair and atomic rename-on-close,
// but keyed on a file's whole identity (path, size, inode, mtime) since
// content_hash is computed over the entire file rather than progressively.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketName = "content_hashes"
	hashSize   = 32 // sha256.Size
)

// Cache provides persistent caching of file content hashes using BoltDB.
// Implements self-cleaning: each run creates a new database, only entries
// looked up (hits) or stored during the run survive into it.
type Cache struct {
	readDB  *bolt.DB // Existing cache (read-only)
	writeDB *bolt.DB // New cache (write) - BoltDB locks this file
	path    string   // Final path (for atomic swap)
	enabled bool
}

// Open opens an existing cache for reading and creates a new cache for
// writing. Returns a disabled cache if path is empty, in which case
// Lookup/Store are no-ops.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}

	if _, statErr := os.Stat(path); statErr == nil {
		readDB, err := bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err == nil {
			c.readDB = readDB
		}
	}

	newPath := path + ".new"
	writeDB, err := bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("cache: create new cache (locked by another instance?): %w", err)
	}
	c.writeDB = writeDB

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces the old cache file
// with the new one. The swap only happens if the write database closed
// cleanly, to avoid losing the previous cache on a failed run.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else if err := os.Rename(c.path+".new", c.path); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // Increment when key format changes

// makeKey builds a deterministic byte key identifying a file's whole
// content at the moment of lookup: version + path + NUL + size + inode +
// mtime. Any change to size, inode, or mtime invalidates the cache entry.
func makeKey(path string, size int64, ino uint64, mtimeNano int64) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(path)
	buf.WriteByte(0) // NUL separator
	_ = binary.Write(buf, binary.BigEndian, size)
	_ = binary.Write(buf, binary.BigEndian, ino)
	_ = binary.Write(buf, binary.BigEndian, mtimeNano)
	return buf.Bytes()
}

func identityKey(path string, info os.FileInfo) []byte {
	var ino uint64
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		ino = sys.Ino
	}
	return makeKey(path, info.Size(), ino, info.ModTime().UnixNano())
}

// Lookup returns the cached content hash for path given its current
// os.FileInfo, and whether it was found. On a hit, the entry is copied
// into the new write database (self-cleaning).
func (c *Cache) Lookup(path string, info os.FileInfo) (string, bool) {
	if !c.enabled || c.readDB == nil {
		return "", false
	}

	key := identityKey(path, info)
	var raw []byte

	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if len(data) == hashSize {
			raw = make([]byte, hashSize)
			copy(raw, data)
		}
		return nil
	})
	if raw == nil {
		return "", false
	}

	digest := hex.EncodeToString(raw)
	c.Store(path, info, digest)
	return digest, true
}

// Store saves digest (a lowercase hex SHA-256 string) for path's current
// identity into the new database.
func (c *Cache) Store(path string, info os.FileInfo, digest string) {
	if !c.enabled || c.writeDB == nil {
		return
	}
	raw, err := hex.DecodeString(digest)
	if err != nil || len(raw) != hashSize {
		return
	}
	key := identityKey(path, info)
	_ = c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(key, raw)
	})
}
