package service

import (
	"context"
	"errors"
	"fmt"

	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/model"
	"bgshelf-api/internal/repository"
	"bgshelf-api/internal/store"
)

// SyncReport summarizes one database sync.
type SyncReport struct {
	User    string `json:"user"`
	Entries int    `json:"entries"`
	Games   int    `json:"games"`
}

// SyncService mirrors cached snapshots into the relational database.
type SyncService struct {
	store store.SnapshotStore
	repo  repository.CollectionRepository
}

// NewSyncService creates a new sync service.
// Returns nil if repo is nil (sync disabled).
func NewSyncService(st store.SnapshotStore, repo repository.CollectionRepository) *SyncService {
	if repo == nil {
		return nil
	}
	return &SyncService{store: st, repo: repo}
}

// SyncUser writes user's cached collection and the cached details of its
// games in one all-or-nothing batch.
func (s *SyncService) SyncUser(ctx context.Context, user model.User) (*SyncReport, error) {
	var snap model.CollectionSnapshot
	if err := s.store.Read(ctx, store.CollectionKey(user.Username), &snap); err != nil {
		return nil, fmt.Errorf("load collection snapshot: %w", err)
	}

	batch := repository.SyncBatch{User: user, Entries: snap.Games}
	seen := make(map[string]bool, len(snap.Games))
	for _, entry := range snap.Games {
		if seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true

		var cached model.GameSnapshot
		err := s.store.Read(ctx, store.GameKey(entry.ID), &cached)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			logging.Warn().Err(err).Str("game_id", entry.ID).Msg("[SyncService] Skipping unreadable details")
			continue
		}
		batch.Games = append(batch.Games, cached.GameDetails)
	}

	if err := s.repo.SyncCollection(ctx, batch); err != nil {
		logging.Error().Err(err).Str("user", user.Username).Msg("[SyncService] Sync failed, batch rolled back")
		return nil, err
	}

	report := &SyncReport{User: user.Username, Entries: len(batch.Entries), Games: len(batch.Games)}
	logging.Info().
		Str("user", report.User).
		Int("entries", report.Entries).
		Int("games", report.Games).
		Msg("[SyncService] Collection synced")
	return report, nil
}

// Stats returns the mirror database statistics.
func (s *SyncService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}
