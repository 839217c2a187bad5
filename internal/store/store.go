// Package store persists snapshots as one JSON document per key.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotFound is returned by Read when no document exists for the key.
	ErrNotFound = errors.New("snapshot not found")
	// ErrInvalidKey is returned for keys that cannot name a document.
	ErrInvalidKey = errors.New("invalid snapshot key")
)

// SnapshotStore reads and replaces whole JSON documents by key.
type SnapshotStore interface {
	// Read decodes the document for key into v. Returns ErrNotFound if absent.
	Read(ctx context.Context, key string, v any) error

	// Write replaces the document for key with v.
	Write(ctx context.Context, key string, v any) error

	// Exists reports whether a document exists for key.
	Exists(ctx context.Context, key string) (bool, error)
}

// WriteError reports a failed persist.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write snapshot %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	validKey   = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

// CollectionKey returns the key of a user's collection snapshot.
func CollectionKey(username string) string {
	return "collectionCache_" + whitespace.ReplaceAllString(username, "_")
}

// GameKey returns the key of a game's details snapshot.
func GameKey(gameID string) string {
	return gameID
}

func validateKey(key string) error {
	if !validKey.MatchString(key) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
