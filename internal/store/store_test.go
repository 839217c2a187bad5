package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Timestamp time.Time `json:"timestamp"`
	Names     []string  `json:"names"`
}

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{username: "alice", want: "collectionCache_alice"},
		{username: "board  gamer", want: "collectionCache_board_gamer"},
		{username: "a b\tc", want: "collectionCache_a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionKey(tt.username))
		})
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"13", "collectionCache_alice", "a-b.c"} {
		assert.NoError(t, validateKey(key), key)
	}
	for _, key := range []string{"", "../etc/passwd", "a/b", "..", "a b"} {
		assert.ErrorIs(t, validateKey(key), ErrInvalidKey, key)
	}
}

func stores(t *testing.T) map[string]SnapshotStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return map[string]SnapshotStore{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := s.Exists(ctx, "13")
			require.NoError(t, err)
			assert.False(t, ok)

			var missing doc
			assert.ErrorIs(t, s.Read(ctx, "13", &missing), ErrNotFound)

			in := doc{Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Names: []string{"a", "b"}}
			require.NoError(t, s.Write(ctx, "13", in))

			ok, err = s.Exists(ctx, "13")
			require.NoError(t, err)
			assert.True(t, ok)

			var out doc
			require.NoError(t, s.Read(ctx, "13", &out))
			assert.True(t, in.Timestamp.Equal(out.Timestamp))
			assert.Equal(t, in.Names, out.Names)

			require.NoError(t, s.Write(ctx, "13", doc{Names: []string{"c"}}))
			require.NoError(t, s.Read(ctx, "13", &out))
			assert.Equal(t, []string{"c"}, out.Names)
		})
	}
}

func TestSnapshotStore_RejectsInvalidKey(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Write(context.Background(), "../escape", doc{}), ErrInvalidKey)
		})
	}
}

func TestFileStore_WritesWholeFileWithoutTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, CollectionKey("alice"), doc{Names: []string{"x"}}))
	require.NoError(t, s.Write(ctx, "13", doc{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"collectionCache_alice.json", "13.json"}, names)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["collections"])
	assert.Equal(t, 1, stats["games"])
}

func TestFileStore_ReadCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "13.json"), []byte("{not json"), 0o644))

	var out doc
	err = s.Read(context.Background(), "13", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CountsWrites(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Write(context.Background(), "a", doc{}))
	require.NoError(t, s.Write(context.Background(), "a", doc{}))
	assert.Equal(t, 2, s.Writes())

	raw, ok := s.Raw("a")
	require.True(t, ok)
	assert.NotEmpty(t, raw)
}
