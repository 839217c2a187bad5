package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/config"
	"bgshelf-api/internal/handler"
	"bgshelf-api/internal/lock"
	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/middleware"
	"bgshelf-api/internal/repository"
	"bgshelf-api/internal/retry"
	"bgshelf-api/internal/router"
	"bgshelf-api/internal/service"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/throttle"
	"bgshelf-api/internal/trello"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Environment).
		Msg("[Main] Starting bgshelf API")

	// Snapshot store
	snapshots, err := store.NewFileStore(cfg.Snapshot.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("[Main] Failed to initialize snapshot store")
	}

	// Tracked users: MySQL when reachable, else the users file
	var userRepo repository.UserRepository = repository.NewFileUserRepository(cfg.Snapshot.UsersFile)
	var mysqlDB *sql.DB
	if cfg.Database.Enabled() {
		mysqlDB, err = sql.Open("mysql", cfg.Database.DSN())
		if err != nil {
			logging.Warn().Err(err).Msg("[Main] MySQL connection failed, using users file")
		} else {
			mysqlDB.SetMaxOpenConns(10)
			mysqlDB.SetMaxIdleConns(5)
			mysqlDB.SetConnMaxLifetime(5 * time.Minute)

			if err := mysqlDB.Ping(); err != nil {
				logging.Warn().Err(err).Msg("[Main] MySQL ping failed, using users file")
				mysqlDB.Close()
				mysqlDB = nil
			} else {
				userRepo = repository.NewMySQLUserRepository(mysqlDB)
				logging.Info().Msg("[Main] MySQL user repository initialized")
			}
		}
	}
	if mysqlDB != nil {
		defer mysqlDB.Close()
	}

	// Refresh lock
	var locker lock.Locker = lock.NewMemoryLocker()
	var redisClient *redis.Client
	if cfg.Lock.Type == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.RedisAddress(),
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Warn().Err(err).Msg("[Main] Redis connection failed, using in-process lock")
			redisClient.Close()
			redisClient = nil
		} else {
			locker = lock.NewRedisLocker(redisClient, lock.RedisLockerConfig{TTL: cfg.Lock.TTL})
			logging.Info().Str("addr", cfg.Lock.RedisAddress()).Msg("[Main] Redis lock initialized")
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Mirror database (optional)
	var collectionRepo repository.CollectionRepository
	switch cfg.SyncDB.Type {
	case "postgres", "postgresql":
		pgRepo, err := repository.NewPostgresCollectionRepository(cfg.SyncDB.PostgresDSN())
		if err != nil {
			logging.Fatal().Err(err).Msg("[Main] Failed to initialize PostgreSQL")
		}
		collectionRepo = pgRepo
	case "sqlite":
		sqliteRepo, err := repository.NewSQLiteCollectionRepository(cfg.SyncDB.Path)
		if err != nil {
			logging.Fatal().Err(err).Msg("[Main] Failed to initialize SQLite")
		}
		collectionRepo = sqliteRepo
	default:
		logging.Info().Msg("[Main] Database sync disabled")
	}
	if collectionRepo != nil {
		defer collectionRepo.Close()
	}

	// Remote clients
	bggClient := bgg.New(bgg.Config{
		CollectionURL: cfg.BGG.CollectionURL,
		DetailURL:     cfg.BGG.DetailURL,
		ThingURL:      cfg.BGG.ThingURL,
		VideoURL:      cfg.BGG.VideoURL,
		Timeout:       cfg.BGG.HTTPTimeout,
	})
	trelloClient := trello.New(trello.Config{
		Key:     cfg.Trello.Key,
		BoardID: cfg.Trello.BoardID,
		BaseURL: cfg.Trello.BaseURL,
	})

	// Services
	// One throttle spaces every call to the remote database, whichever service makes it.
	remoteThrottle := throttle.NewInterval(cfg.Snapshot.ThrottleDelay)

	users := service.NewUsers(userRepo, cfg.Snapshot.DefaultUser)
	collectionService := service.NewCollectionService(bggClient, bggClient, snapshots, locker, service.CollectionOptions{
		Retry:    retry.Policy{MaxRetries: cfg.Snapshot.RetryMax, Delay: cfg.Snapshot.RetryDelay},
		Throttle: remoteThrottle,
	})
	gameService := service.NewGameService(bggClient, snapshots, service.GameOptions{
		TTL:      cfg.Snapshot.GameTTL,
		Throttle: remoteThrottle,
	})
	syncService := service.NewSyncService(snapshots, collectionRepo)
	cardService := service.NewCardService(trelloClient, gameService, bggClient, userRepo, snapshots, service.CardOptions{
		ListPrefix: cfg.Trello.ListPrefix,
		ExtraList:  cfg.Trello.ExtraList,
	})

	var scheduler *service.RefreshScheduler
	if cfg.Scheduler.Interval > 0 {
		scheduler = service.NewRefreshScheduler(userRepo, collectionService, gameService, service.SchedulerConfig{
			Interval: cfg.Scheduler.Interval,
		})
		scheduler.Start()
	}

	// Handlers
	checks := []handler.ReadyCheck{{
		Name: "snapshots",
		Check: func(ctx context.Context) error {
			_, err := snapshots.Stats()
			return err
		},
	}}
	if syncService != nil {
		checks = append(checks, handler.ReadyCheck{
			Name: "sync_db",
			Check: func(ctx context.Context) error {
				_, err := syncService.Stats(ctx)
				return err
			},
		})
	}

	r := router.New(router.Config{
		Handler:           handler.New(cfg.App.Name, cfg.App.Version, checks...),
		CollectionHandler: handler.NewCollectionHandler(users, collectionService, gameService, syncService),
		GamesHandler:      handler.NewGamesHandler(gameService, cfg.Snapshot.DefaultUser),
		TrelloHandler:     handler.NewTrelloHandler(cardService, cfg.Trello.Key),
		AdminHandler:      handler.NewAdminHandler(snapshots, syncService, cfg.SyncDB.Type, cfg.Lock.Type),
		APIKeyMiddleware:  middleware.NewAPIKeyMiddleware(cfg.App.APIKeys),
		StaticDir:         cfg.Snapshot.Dir,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logging.Info().Str("addr", cfg.Server.Address()).Msg("[Main] Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("[Main] Server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("[Main] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("[Main] Server shutdown error")
	}

	logging.Info().Msg("[Main] Server stopped")
}
