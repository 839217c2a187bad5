package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/model"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/throttle"
)

// DefaultGameTTL is how long cached game details stay fresh.
const DefaultGameTTL = 30 * 24 * time.Hour

const gameLinkPrefix = "https://boardgamegeek.com/thing/"

var (
	// ErrInvalidGameID is returned for identifiers that are not numeric.
	ErrInvalidGameID = errors.New("invalid game id")

	errMissingName = errors.New("metadata has no game name")

	gameIDPattern = regexp.MustCompile(`^[0-9]+$`)
	integers      = regexp.MustCompile(`\d+`)
)

// FetchError reports that details of a game could not be loaded.
type FetchError struct {
	GameID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load game details %s: %v", e.GameID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// GameOptions tunes a GameService.
type GameOptions struct {
	TTL      time.Duration
	Throttle throttle.Throttle
	Clock    func() time.Time
}

// GameService serves per-game metadata from the snapshot store, refreshing
// entries older than the TTL from the metadata source.
type GameService struct {
	things   GameMetadataSource
	store    store.SnapshotStore
	ttl      time.Duration
	throttle throttle.Throttle
	now      func() time.Time
}

// NewGameService creates a new game service.
func NewGameService(things GameMetadataSource, st store.SnapshotStore, opts GameOptions) *GameService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultGameTTL
	}
	if opts.Throttle == nil {
		opts.Throttle = throttle.None()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &GameService{
		things:   things,
		store:    st,
		ttl:      opts.TTL,
		throttle: opts.Throttle,
		now:      opts.Clock,
	}
}

// ValidGameID reports whether id looks like a remote game identifier.
func ValidGameID(id string) bool {
	return gameIDPattern.MatchString(id)
}

// GetGameDetails returns the details of gameID, from cache while fresh.
// Every failure is logged and reported as *FetchError.
func (s *GameService) GetGameDetails(ctx context.Context, gameID string) (*model.GameDetails, error) {
	log := logging.Ctx(ctx).With().Str("game_id", gameID).Logger()

	if !ValidGameID(gameID) {
		return nil, &FetchError{GameID: gameID, Err: ErrInvalidGameID}
	}

	var cached model.GameSnapshot
	err := s.store.Read(ctx, store.GameKey(gameID), &cached)
	switch {
	case err == nil:
		if s.now().Sub(cached.Timestamp) < s.ttl {
			return &cached.GameDetails, nil
		}
		log.Debug().Time("cached_at", cached.Timestamp).Msg("[GameService] Cached details expired")
	case !errors.Is(err, store.ErrNotFound):
		log.Warn().Err(err).Msg("[GameService] Unreadable cached details, refetching")
	}

	log.Info().Msg("[GameService] Retrieving game details")
	thing, err := s.things.FetchThing(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Msg("[GameService] Error fetching game details")
		return nil, &FetchError{GameID: gameID, Err: err}
	}

	details := buildGameDetails(gameID, thing)
	if details.Name == model.ValueError {
		log.Error().Msg("[GameService] Game details have no name")
		return nil, &FetchError{GameID: gameID, Err: errMissingName}
	}

	snap := model.GameSnapshot{Timestamp: s.now().UTC(), GameDetails: *details}
	if err := s.store.Write(ctx, store.GameKey(gameID), snap); err != nil {
		log.Error().Err(err).Msg("[GameService] Failed to cache game details")
		return nil, &FetchError{GameID: gameID, Err: err}
	}

	return details, nil
}

// IsCached reports whether details for gameID have been stored.
func (s *GameService) IsCached(ctx context.Context, gameID string) (bool, error) {
	return s.store.Exists(ctx, store.GameKey(gameID))
}

// LoadMissing loads details for every game of username's cached collection
// that has none yet, one at a time. Games that fail are returned.
func (s *GameService) LoadMissing(ctx context.Context, username string) ([]model.FailedGame, error) {
	var snap model.CollectionSnapshot
	err := s.store.Read(ctx, store.CollectionKey(username), &snap)
	if errors.Is(err, store.ErrNotFound) {
		return []model.FailedGame{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection snapshot: %w", err)
	}

	failed := []model.FailedGame{}
	loaded := 0
	for _, game := range snap.Games {
		cached, err := s.IsCached(ctx, game.ID)
		if err != nil {
			logging.Warn().Err(err).Str("game_id", game.ID).Msg("[GameService] Cache lookup failed")
		}
		if cached {
			continue
		}

		if err := s.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		logging.Info().Str("game_id", game.ID).Msg("[GameService] Caching game")
		if _, err := s.GetGameDetails(ctx, game.ID); err != nil {
			failed = append(failed, model.FailedGame{ID: game.ID, Name: game.Name})
			continue
		}
		loaded++
	}

	logging.Info().
		Str("user", username).
		Int("loaded", loaded).
		Int("failed", len(failed)).
		Msg("[GameService] Missing details loaded")
	return failed, nil
}

// Library lists username's cached collection joined with cached details.
// Games without cached details are left out.
func (s *GameService) Library(ctx context.Context, username string) ([]model.GameSummary, error) {
	var snap model.CollectionSnapshot
	if err := s.store.Read(ctx, store.CollectionKey(username), &snap); err != nil {
		return nil, err
	}

	games := make([]model.GameSummary, 0, len(snap.Games))
	for _, entry := range snap.Games {
		var cached model.GameSnapshot
		if err := s.store.Read(ctx, store.GameKey(entry.ID), &cached); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logging.Warn().Err(err).Str("game_id", entry.ID).Msg("[GameService] Skipping unreadable details")
			}
			continue
		}

		d := cached.GameDetails
		summary := model.GameSummary{
			ID:          entry.ID,
			Name:        d.Name,
			Type:        d.Type,
			Thumbnail:   d.Thumbnail,
			Link:        d.Link,
			MinPlayers:  d.MinPlayers,
			MaxPlayers:  d.MaxPlayers,
			BestAtCount: model.ValueNA,
		}
		if len(d.BestAtCount) > 0 {
			summary.BestAtCount = d.BestAtCount
		}
		games = append(games, summary)
	}
	return games, nil
}

// buildGameDetails maps the metadata document onto GameDetails. Missing
// fields get the Error or N/A sentinel.
func buildGameDetails(gameID string, thing *bgg.Thing) *model.GameDetails {
	d := &model.GameDetails{
		ID:             gameID,
		Name:           orDefault(thing.PrimaryName(), model.ValueError),
		Type:           orDefault(thing.Type, model.ValueError),
		Description:    orDefault(thing.Description, model.ValueError),
		Image:          orDefault(thing.Image, model.ValueError),
		Thumbnail:      orDefault(thing.Thumbnail, model.ValueError),
		Link:           gameLinkPrefix + gameID,
		MinPlayers:     orDefault(thing.MinPlayers.Value, model.ValueError),
		MaxPlayers:     orDefault(thing.MaxPlayers.Value, model.ValueNA),
		YearPublished:  orDefault(thing.YearPublished.Value, model.ValueNA),
		PlayingTime:    orDefault(thing.PlayingTime.Value, model.ValueNA),
		MinPlayingTime: orDefault(thing.MinPlayTime.Value, model.ValueNA),
		MaxPlayingTime: orDefault(thing.MaxPlayTime.Value, model.ValueNA),
		BestAtCount:    bestAtCount(thing.PollSummaries),
		AverageRating:  model.ValueNA,
		AverageWeight:  model.ValueNA,
		BoardGameRank:  model.ValueNA,
		Mechanics:      []string{},
		Categories:     []string{},
		Designers:      []string{},
	}

	if stats := thing.Statistics; stats != nil {
		d.AverageRating = orDefault(stats.Ratings.Average.Value, model.ValueNA)
		d.AverageWeight = orDefault(stats.Ratings.AverageWeight.Value, model.ValueNA)
		for _, r := range stats.Ratings.Ranks {
			if r.Name == "boardgame" {
				d.BoardGameRank = orDefault(r.Value, model.ValueNA)
				break
			}
		}
	}

	for _, link := range thing.Links {
		switch link.Type {
		case "boardgamemechanic":
			d.Mechanics = append(d.Mechanics, link.Value)
		case "boardgamecategory":
			d.Categories = append(d.Categories, link.Value)
		case "boardgamedesigner":
			d.Designers = append(d.Designers, link.Value)
		}
	}

	return d
}

// bestAtCount reads every integer of the "bestwith" result of the
// suggested player count poll. Returns nil when there is none.
func bestAtCount(polls []bgg.PollSummary) []int {
	for _, poll := range polls {
		if poll.Name != "suggested_numplayers" {
			continue
		}
		for _, res := range poll.Results {
			if res.Name != "bestwith" {
				continue
			}
			var counts []int
			for _, m := range integers.FindAllString(res.Value, -1) {
				if n, err := strconv.Atoi(m); err == nil {
					counts = append(counts, n)
				}
			}
			return counts
		}
	}
	return nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
