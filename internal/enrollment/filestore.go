// Package enrollment persists enrolled face embeddings on the local filesystem.
//
// Each student owns one blob, <dir>/<student_id>.emb, holding every embedding
// captured for them. Blobs are replaced atomically so a crash mid-write leaves
// the previous version intact.
package enrollment

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/renameio"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
)

const (
	blobExt     = ".emb"
	blobVersion = 1
)

// blob is the on-disk format of one student's embedding set.
type blob struct {
	Version    int
	Dim        int
	Embeddings [][]float32
}

// FileStore is an enrollment store backed by one file per student.
type FileStore struct {
	dir string
	mu  sync.Mutex // serializes read-modify-write of blobs
}

// NewFileStore creates a store rooted at dir. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(studentID int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(studentID, 10)+blobExt)
}

func readBlob(path string) (*blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b blob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &b, nil
}

// LoadAll reads every blob and returns re-normalized embeddings per student.
// A missing directory yields an empty map.
func (s *FileStore) LoadAll(ctx context.Context) (map[int64][]facematch.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[int64][]facematch.Vector)

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, &database.StorageError{Op: "list", Err: err}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, blobExt) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, blobExt), 10, 64)
		if err != nil {
			continue
		}

		b, err := readBlob(filepath.Join(s.dir, name))
		if err != nil {
			return nil, &database.StorageError{Op: "load", StudentID: id, Err: err}
		}

		vecs := make([]facematch.Vector, 0, len(b.Embeddings))
		for _, e := range b.Embeddings {
			vecs = append(vecs, facematch.Normalize(e))
		}
		if len(vecs) > 0 {
			result[id] = vecs
		}
	}

	return result, nil
}

// Append adds an embedding to the student's blob, creating it if needed.
func (s *FileStore) Append(ctx context.Context, studentID int64, embedding facematch.Vector) error {
	if len(embedding) == 0 {
		return &database.StorageError{Op: "append", StudentID: studentID, Err: errors.New("empty embedding")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(studentID)
	b, err := readBlob(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		b = &blob{Version: blobVersion, Dim: len(embedding)}
	case err != nil:
		return &database.StorageError{Op: "append", StudentID: studentID, Err: err}
	}

	if b.Dim != 0 && b.Dim != len(embedding) {
		return &database.StorageError{
			Op:        "append",
			StudentID: studentID,
			Err:       fmt.Errorf("embedding dimension %d does not match enrolled dimension %d", len(embedding), b.Dim),
		}
	}
	b.Embeddings = append(b.Embeddings, embedding)

	if err := s.writeBlob(path, b); err != nil {
		return &database.StorageError{Op: "append", StudentID: studentID, Err: err}
	}
	return nil
}

func (s *FileStore) writeBlob(path string, b *blob) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create enrollment directory: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return fmt.Errorf("encode blob: %w", err)
	}

	t, err := renameio.TempFile(s.dir, path)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer t.Cleanup()

	if _, err := t.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace blob: %w", err)
	}
	return nil
}

// Delete removes the student's blob. Deleting a missing blob is not an error.
func (s *FileStore) Delete(ctx context.Context, studentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(studentID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &database.StorageError{Op: "delete", StudentID: studentID, Err: err}
	}
	return nil
}
