package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/lock"
	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/model"
	"bgshelf-api/internal/retry"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/throttle"
)

var (
	// ErrReconcileInProgress is returned when the user already has a run in flight.
	ErrReconcileInProgress = errors.New("collection refresh already in progress")
	// ErrNoMatchingDetail is returned when no detail row carries the entry's collid.
	ErrNoMatchingDetail = errors.New("no detail row matches collid")
	// ErrUnknownUser is returned for usernames that are not tracked.
	ErrUnknownUser = errors.New("unknown user")
)

// ReconcileResult describes one reconciliation run.
type ReconcileResult struct {
	Changed   bool                      `json:"changed"`
	Snapshot  *model.CollectionSnapshot `json:"snapshot"`
	Updated   int                       `json:"updated"`   // entries new or modified upstream
	Enriched  int                       `json:"enriched"`  // of those, entries that received details
	Unmatched int                       `json:"unmatched"` // of those, entries left without details
}

// CollectionOptions tunes a CollectionService.
type CollectionOptions struct {
	Retry    retry.Policy
	Throttle throttle.Throttle
	Clock    func() time.Time
}

// CollectionService keeps the cached collection snapshots in line with the remote source.
type CollectionService struct {
	collections CollectionSource
	details     DetailSource
	store       store.SnapshotStore
	locker      lock.Locker
	retry       retry.Policy
	throttle    throttle.Throttle
	now         func() time.Time
}

// NewCollectionService creates a new collection service.
func NewCollectionService(
	collections CollectionSource,
	details DetailSource,
	st store.SnapshotStore,
	locker lock.Locker,
	opts CollectionOptions,
) *CollectionService {
	if opts.Throttle == nil {
		opts.Throttle = throttle.None()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}

	return &CollectionService{
		collections: collections,
		details:     details,
		store:       st,
		locker:      locker,
		retry:       opts.Retry,
		throttle:    opts.Throttle,
		now:         opts.Clock,
	}
}

// Snapshot returns the cached collection of username.
func (s *CollectionService) Snapshot(ctx context.Context, username string) (*model.CollectionSnapshot, error) {
	var snap model.CollectionSnapshot
	if err := s.store.Read(ctx, store.CollectionKey(username), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// loadSnapshot returns the cached collection, or an empty one when none exists.
func (s *CollectionService) loadSnapshot(ctx context.Context, username string) (*model.CollectionSnapshot, error) {
	snap, err := s.Snapshot(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return &model.CollectionSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection snapshot: %w", err)
	}
	return snap, nil
}

// Reconcile merges the remote collection of user into the cached snapshot.
// Only entries that are new or whose lastModified moved get a detail call;
// everything else is carried forward untouched. The snapshot is rewritten
// only when at least one entry changed.
func (s *CollectionService) Reconcile(ctx context.Context, user model.User) (*ReconcileResult, error) {
	release, ok, err := s.locker.TryLock(ctx, lockKey(user.Username))
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return nil, ErrReconcileInProgress
	}
	defer release()

	log := logging.Ctx(ctx).With().Str("user", user.Username).Logger()

	cached, err := s.loadSnapshot(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]model.CollectionEntry, len(cached.Games))
	for _, e := range cached.Games {
		existing[e.CollID] = e
	}

	var items []bgg.CollectionItem
	err = retry.Do(ctx, s.retry, "fetch collection "+user.Username, func(ctx context.Context) error {
		var fetchErr error
		items, fetchErr = s.collections.FetchCollection(ctx, user.Username)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	enrichable := user.UserID != ""
	if !enrichable {
		log.Warn().Msg("[CollectionService] User has no remote id, skipping detail lookups")
	}

	result := &ReconcileResult{}
	games := make([]model.CollectionEntry, 0, len(items))
	for _, item := range items {
		candidate := entryFromItem(item)

		if prev, found := existing[candidate.CollID]; found && prev.LastModified == candidate.LastModified {
			games = append(games, prev)
			continue
		}

		result.Updated++
		if !enrichable {
			result.Unmatched++
			games = append(games, candidate)
			continue
		}
		if err := s.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		if s.enrich(ctx, &candidate, user.UserID) {
			result.Enriched++
		} else {
			result.Unmatched++
		}
		games = append(games, candidate)
	}

	if result.Updated == 0 {
		log.Info().Int("games", len(cached.Games)).Msg("[CollectionService] Collection unchanged")
		result.Snapshot = cached
		return result, nil
	}

	snap := &model.CollectionSnapshot{Timestamp: s.now().UTC(), Games: games}
	if err := s.store.Write(ctx, store.CollectionKey(user.Username), snap); err != nil {
		log.Error().Err(err).Msg("[CollectionService] Failed to save collection")
		return nil, err
	}

	log.Info().
		Int("games", len(games)).
		Int("updated", result.Updated).
		Int("unmatched", result.Unmatched).
		Msg("[CollectionService] Collection saved")

	result.Changed = true
	result.Snapshot = snap
	return result, nil
}

// EnrichMissing fetches details for cached entries that still lack any of
// them. The snapshot is rewritten only if something was filled in.
func (s *CollectionService) EnrichMissing(ctx context.Context, user model.User) (*ReconcileResult, error) {
	release, ok, err := s.locker.TryLock(ctx, lockKey(user.Username))
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return nil, ErrReconcileInProgress
	}
	defer release()

	log := logging.Ctx(ctx).With().Str("user", user.Username).Logger()

	snap, err := s.Snapshot(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Snapshot: snap}
	if user.UserID == "" {
		log.Warn().Msg("[CollectionService] User has no remote id, nothing to enrich")
		return result, nil
	}

	for i := range snap.Games {
		entry := &snap.Games[i]
		if !entry.NeedsEnrichment() {
			continue
		}

		result.Updated++
		if err := s.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		if s.enrich(ctx, entry, user.UserID) {
			result.Enriched++
		} else {
			result.Unmatched++
		}
	}

	if result.Enriched == 0 {
		log.Info().Msg("[CollectionService] No enrichment needed")
		return result, nil
	}

	if err := s.store.Write(ctx, store.CollectionKey(user.Username), snap); err != nil {
		log.Error().Err(err).Msg("[CollectionService] Failed to save enriched collection")
		return nil, err
	}

	log.Info().Int("enriched", result.Enriched).Msg("[CollectionService] Saved enriched collection")
	result.Changed = true
	return result, nil
}

// enrich copies the detail fields onto entry. A failed call or a missing
// collid is logged and leaves the entry as it is.
func (s *CollectionService) enrich(ctx context.Context, entry *model.CollectionEntry, userID string) bool {
	log := logging.Ctx(ctx).With().Str("game_id", entry.ID).Str("collid", entry.CollID).Logger()

	rows, err := s.details.FetchCollectionDetails(ctx, entry.ID, userID)
	if err != nil {
		log.Warn().Err(err).Str("game", entry.Name).Msg("[CollectionService] Detail fetch failed")
		return false
	}

	detail, err := matchDetail(rows, entry.CollID)
	if err != nil {
		log.Warn().Err(err).Str("game", entry.Name).Msg("[CollectionService] No matching detail")
		return false
	}

	entry.PostDate = calendarDate(detail.PostDate)
	entry.Rating = detail.Rating
	entry.RatingTimestamp = calendarDate(detail.RatingTimestamp)

	log.Debug().Str("game", entry.Name).Msg("[CollectionService] Entry enriched")
	return true
}

// lockKey shares the snapshot key normalization so usernames that map to
// the same snapshot also share a lock.
func lockKey(username string) string {
	return "reconcile:" + store.CollectionKey(username)
}

func matchDetail(rows []bgg.CollectionDetail, collID string) (*bgg.CollectionDetail, error) {
	for i := range rows {
		if rows[i].CollID == collID {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("%w %s", ErrNoMatchingDetail, collID)
}

// calendarDate truncates a timestamp to YYYY-MM-DD. Empty input yields nil.
func calendarDate(raw string) *string {
	if raw == "" {
		return nil
	}
	if len(raw) >= 10 && raw[4] == '-' && raw[7] == '-' {
		d := raw[:10]
		return &d
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, raw); err == nil {
			d := t.Format(time.DateOnly)
			return &d
		}
	}
	return &raw
}

func entryFromItem(item bgg.CollectionItem) model.CollectionEntry {
	return model.CollectionEntry{
		ID:           item.ObjectID,
		CollID:       item.CollID,
		Name:         item.Name,
		Image:        item.Image,
		Thumbnail:    item.Thumbnail,
		LastModified: item.LastModified,
		NumPlays:     item.NumPlays,
		Status: model.StatusFlags{
			Own:              item.Own,
			PreviouslyOwned:  item.PreviouslyOwned,
			ForTrade:         item.ForTrade,
			Want:             item.Want,
			WantToPlay:       item.WantToPlay,
			WantToBuy:        item.WantToBuy,
			Wishlist:         item.Wishlist,
			Preordered:       item.Preordered,
			WishlistPriority: item.WishlistPriority,
		},
	}
}

// RefreshMessage is the human-readable outcome of a run.
func RefreshMessage(result *ReconcileResult) string {
	if result == nil || !result.Changed {
		return "Collection is already up to date."
	}
	return fmt.Sprintf("Collection loaded successfully (%d of %d entries updated). You can now view the cached data.",
		result.Updated, len(result.Snapshot.Games))
}
