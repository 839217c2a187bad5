package service

import (
	"context"
	"errors"
	"fmt"

	"bgshelf-api/internal/model"
	"bgshelf-api/internal/repository"
)

// Users resolves usernames against the tracked users. The configured
// default user is known even when the repository does not list it.
type Users struct {
	repo        repository.UserRepository
	defaultUser string
}

// NewUsers creates a new user resolver.
func NewUsers(repo repository.UserRepository, defaultUser string) *Users {
	return &Users{repo: repo, defaultUser: defaultUser}
}

// Default returns the username served when a request names none.
func (u *Users) Default() string {
	return u.defaultUser
}

// List returns every tracked user.
func (u *Users) List(ctx context.Context) ([]model.User, error) {
	return u.repo.ListUsers(ctx)
}

// Resolve returns the tracked user for username.
func (u *Users) Resolve(ctx context.Context, username string) (model.User, error) {
	if username == "" {
		return model.User{}, fmt.Errorf("%w: empty username", ErrUnknownUser)
	}

	user, err := u.repo.GetUser(ctx, username)
	if err == nil {
		return *user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, err
	}

	if username == u.defaultUser {
		fallback := model.User{Username: username}
		fallback.ApplyDefaults()
		return fallback, nil
	}
	return model.User{}, fmt.Errorf("%w: %s", ErrUnknownUser, username)
}
