package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"bgshelf-api/internal/handler"
	"bgshelf-api/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler           *handler.Handler
	CollectionHandler *handler.CollectionHandler
	GamesHandler      *handler.GamesHandler
	TrelloHandler     *handler.TrelloHandler
	AdminHandler      *handler.AdminHandler
	APIKeyMiddleware  func(http.Handler) http.Handler
	StaticDir         string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Trello-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	guard := cfg.APIKeyMiddleware
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// Cached snapshots are plain JSON files; serve them for the front-end.
	if cfg.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/gameCache/*", http.StripPrefix("/gameCache/", fileServer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.GamesHandler != nil {
			r.Get("/games", cfg.GamesHandler.List)
			r.Get("/games/{gameID}", cfg.GamesHandler.Get)
		}

		if cfg.CollectionHandler != nil {
			r.Route("/collections/{username}", func(r chi.Router) {
				r.Get("/", cfg.CollectionHandler.Get)
				r.With(guard).Post("/refresh", cfg.CollectionHandler.Refresh)
				r.With(guard).Post("/enrich", cfg.CollectionHandler.Enrich)
				r.With(guard).Post("/details", cfg.CollectionHandler.LoadDetails)
				r.With(guard).Post("/sync", cfg.CollectionHandler.Sync)
			})
		}

		if cfg.TrelloHandler != nil {
			r.Route("/trello", func(r chi.Router) {
				r.Get("/lists", cfg.TrelloHandler.Lists)
				r.Post("/cards", cfg.TrelloHandler.CreateCard)
				r.Get("/authorize", cfg.TrelloHandler.Authorize)
				r.Get("/callback", cfg.TrelloHandler.Callback)
			})
		}

		if cfg.AdminHandler != nil {
			r.With(guard).Get("/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
