package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// FileStore keeps each document in <dir>/<key>.json. Writes go to a temp
// file that is renamed over the target, so readers never see partial files.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Read decodes the document for key into v.
func (s *FileStore) Read(ctx context.Context, key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

// Write replaces the document for key.
func (s *FileStore) Write(ctx context.Context, key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Key: key, Err: err}
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

// Exists reports whether a document exists for key.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Stats returns document counts and sizes for the admin endpoint.
func (s *FileStore) Stats() (map[string]interface{}, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var collections, games int
	var totalBytes int64
	var lastWrite time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if strings.HasPrefix(e.Name(), "collectionCache_") {
			collections++
		} else {
			games++
		}
		if info, err := e.Info(); err == nil {
			totalBytes += info.Size()
			if info.ModTime().After(lastWrite) {
				lastWrite = info.ModTime()
			}
		}
	}

	stats := map[string]interface{}{
		"dir":         s.dir,
		"collections": collections,
		"games":       games,
		"size_bytes":  totalBytes,
	}
	if !lastWrite.IsZero() {
		stats["last_write"] = lastWrite
	}
	return stats, nil
}

var _ SnapshotStore = (*FileStore)(nil)
