package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"bgshelf-api/internal/model"
)

// FileUserRepository reads tracked users from a JSON array file.
type FileUserRepository struct {
	path string
}

// NewFileUserRepository creates a repository over the given file.
func NewFileUserRepository(path string) *FileUserRepository {
	return &FileUserRepository{path: path}
}

// ListUsers reads the file on every call so edits apply without a restart.
// A missing file means no tracked users.
func (r *FileUserRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.User{}, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users []model.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	for i := range users {
		users[i].ApplyDefaults()
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})
	return users, nil
}

// GetUser finds a user by username.
func (r *FileUserRepository) GetUser(ctx context.Context, username string) (*model.User, error) {
	users, err := r.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
}

var _ UserRepository = (*FileUserRepository)(nil)
