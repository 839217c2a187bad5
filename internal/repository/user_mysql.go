package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bgshelf-api/internal/model"
)

// MySQLUserRepository implements UserRepository over the users table.
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQL user repository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

const userColumns = `
	SELECT
		id,
		username,
		COALESCE(display_name, ''),
		COALESCE(altname, ''),
		COALESCE(color, ''),
		COALESCE(avatar_url, '')
	FROM users`

// ListUsers returns every tracked user ordered by display name.
func (r *MySQLUserRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, userColumns+` ORDER BY display_name, username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetUser finds a user by username.
func (r *MySQLUserRepository) GetUser(ctx context.Context, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, userColumns+` WHERE username = ? LIMIT 1`, username)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, err
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.UserID, &u.Username, &u.Name, &u.AltName, &u.Color, &u.AvatarURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.ApplyDefaults()
	return &u, nil
}

// Ensure MySQLUserRepository implements UserRepository
var _ UserRepository = (*MySQLUserRepository)(nil)
