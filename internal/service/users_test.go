package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgshelf-api/internal/model"
)

func TestUsers_Resolve(t *testing.T) {
	users := NewUsers(&fakeUsers{users: []model.User{alice}}, "owner")
	ctx := context.Background()

	u, err := users.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, u)

	u, err = users.Resolve(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, model.User{Name: "owner", Username: "owner", AltName: "owner", Color: "gray"}, u)

	_, err = users.Resolve(ctx, "mallory")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = users.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestUsers_Resolve_RepositoryError(t *testing.T) {
	boom := errors.New("db down")
	users := NewUsers(&failingUsers{err: boom}, "owner")

	_, err := users.Resolve(context.Background(), "owner")
	assert.ErrorIs(t, err, boom)
}

type failingUsers struct {
	fakeUsers
	err error
}

func (f *failingUsers) GetUser(ctx context.Context, username string) (*model.User, error) {
	return nil, f.err
}
