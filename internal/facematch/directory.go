package facematch

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Directory is an immutable snapshot of enrolled students and their embeddings.
type Directory struct {
	ids     []int64
	sets    map[int64][]Vector
	vectors int
}

// NewDirectory builds a snapshot from a student -> embeddings mapping.
// Students without embeddings are left out. The input map is copied.
func NewDirectory(sets map[int64][]Vector) *Directory {
	d := &Directory{sets: make(map[int64][]Vector, len(sets))}
	for id, vecs := range sets {
		if len(vecs) == 0 {
			continue
		}
		d.sets[id] = slices.Clone(vecs)
		d.ids = append(d.ids, id)
		d.vectors += len(vecs)
	}
	slices.Sort(d.ids)
	return d
}

// Len returns the number of enrolled students.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.ids)
}

// VectorCount returns the total number of embeddings across all students.
func (d *Directory) VectorCount() int {
	if d == nil {
		return 0
	}
	return d.vectors
}

// Has reports whether the student has at least one embedding.
func (d *Directory) Has(studentID int64) bool {
	if d == nil {
		return false
	}
	_, ok := d.sets[studentID]
	return ok
}

// IDs returns enrolled student ids in ascending order.
func (d *Directory) IDs() []int64 {
	if d == nil {
		return nil
	}
	return slices.Clone(d.ids)
}

// Vectors returns the embeddings enrolled for a student.
func (d *Directory) Vectors(studentID int64) []Vector {
	if d == nil {
		return nil
	}
	return d.sets[studentID]
}

// Loader reads every enrolled embedding set from storage.
type Loader interface {
	LoadAll(ctx context.Context) (map[int64][]Vector, error)
}

// DirectoryCache holds the current Directory snapshot.
// Reads never block; Reload replaces the snapshot in one atomic store.
type DirectoryCache struct {
	loader  Loader
	current atomic.Pointer[Directory]
	mu      sync.Mutex // serializes reloads
}

// NewDirectoryCache creates a cache that starts with an empty directory.
func NewDirectoryCache(loader Loader) *DirectoryCache {
	c := &DirectoryCache{loader: loader}
	c.current.Store(NewDirectory(nil))
	return c
}

// Snapshot returns the current directory.
func (c *DirectoryCache) Snapshot() *Directory {
	return c.current.Load()
}

// Reload reads all embeddings from storage and publishes a new snapshot.
// On error the previous snapshot stays in place.
func (c *DirectoryCache) Reload(ctx context.Context) (*Directory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sets, err := c.loader.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load enrolled embeddings: %w", err)
	}

	dir := NewDirectory(sets)
	c.current.Store(dir)
	return dir, nil
}
