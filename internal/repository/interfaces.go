package repository

import (
	"context"
	"errors"

	"bgshelf-api/internal/model"
)

// ErrUserNotFound is returned when no tracked user matches a username.
var ErrUserNotFound = errors.New("user not found")

// SyncBatch is one all-or-nothing write of a user's collection mirror.
type SyncBatch struct {
	User    model.User
	Entries []model.CollectionEntry
	Games   []model.GameDetails
}

// UserRepository defines tracked-user data access methods.
type UserRepository interface {
	// ListUsers returns every tracked user, ordered by display name.
	ListUsers(ctx context.Context) ([]model.User, error)

	// GetUser finds a user by username.
	GetUser(ctx context.Context, username string) (*model.User, error)
}

// CollectionRepository defines the relational mirror of the snapshots.
type CollectionRepository interface {
	// SyncCollection upserts a batch inside one transaction. Any failure
	// rolls back the whole batch.
	SyncCollection(ctx context.Context, batch SyncBatch) error

	// GetStats returns statistics about the mirror database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
