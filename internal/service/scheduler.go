package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/repository"
)

// SchedulerConfig holds configuration for the refresh scheduler.
type SchedulerConfig struct {
	// Interval is how often every user is refreshed.
	Interval time.Duration

	// InitialDelay is the wait before the first run after Start.
	// Default: 1 minute
	InitialDelay time.Duration

	// RunTimeout bounds one full pass over all users.
	// Default: 1 hour
	RunTimeout time.Duration
}

// RunSummary reports one pass over all users.
type RunSummary struct {
	Users   int `json:"users"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// RefreshScheduler periodically reconciles every tracked user and loads
// missing game details, one user at a time.
type RefreshScheduler struct {
	users       repository.UserRepository
	collections *CollectionService
	games       *GameService
	config      SchedulerConfig
	stopCh      chan struct{}
	stopOnce    sync.Once
	isRunning   bool
	mu          sync.Mutex
}

// NewRefreshScheduler creates a new refresh scheduler.
func NewRefreshScheduler(
	users repository.UserRepository,
	collections *CollectionService,
	games *GameService,
	config SchedulerConfig,
) *RefreshScheduler {
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = time.Minute
	}
	if config.RunTimeout == 0 {
		config.RunTimeout = time.Hour
	}

	return &RefreshScheduler{
		users:       users,
		collections: collections,
		games:       games,
		config:      config,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the refresh scheduler.
func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	logging.Info().Dur("interval", s.config.Interval).Msg("[RefreshScheduler] Started")

	go s.run()
}

// run is the main refresh loop. The first pass runs after InitialDelay and
// the ticker starts only once it is done, so passes never overlap.
func (s *RefreshScheduler) run() {
	select {
	case <-time.After(s.config.InitialDelay):
		s.runRefresh()
	case <-s.stopCh:
		logging.Info().Msg("[RefreshScheduler] Stopped")
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runRefresh()
		case <-s.stopCh:
			logging.Info().Msg("[RefreshScheduler] Stopped")
			return
		}
	}
}

func (s *RefreshScheduler) runRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	if _, err := s.RunNow(ctx); err != nil {
		logging.Error().Err(err).Msg("[RefreshScheduler] Error during refresh")
	}
}

// Stop stops the refresh scheduler.
func (s *RefreshScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow refreshes every user immediately. A failing user is logged and
// counted; the pass continues with the next one.
func (s *RefreshScheduler) RunNow(ctx context.Context) (*RunSummary, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Users: len(users)}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		logging.Info().Str("user", u.Username).Msg("[RefreshScheduler] Processing collection")

		result, err := s.collections.Reconcile(ctx, u)
		if err != nil {
			if !errors.Is(err, ErrReconcileInProgress) {
				summary.Failed++
			}
			logging.Error().Err(err).Str("user", u.Username).Msg("[RefreshScheduler] Refresh failed")
			continue
		}
		if result.Changed {
			summary.Changed++
		}

		if s.games == nil {
			continue
		}
		failed, err := s.games.LoadMissing(ctx, u.Username)
		if err != nil {
			logging.Error().Err(err).Str("user", u.Username).Msg("[RefreshScheduler] Loading details failed")
			continue
		}
		if len(failed) > 0 {
			logging.Warn().Str("user", u.Username).Int("failed", len(failed)).Msg("[RefreshScheduler] Some details could not be loaded")
		}
	}

	logging.Info().
		Int("users", summary.Users).
		Int("changed", summary.Changed).
		Int("failed", summary.Failed).
		Msg("[RefreshScheduler] Refresh complete")
	return summary, nil
}
