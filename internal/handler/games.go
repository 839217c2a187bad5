package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bgshelf-api/internal/service"
	"bgshelf-api/pkg/apierror"
	"bgshelf-api/pkg/response"
)

// GamesHandler serves cached game listings and details.
type GamesHandler struct {
	games       *service.GameService
	defaultUser string
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(games *service.GameService, defaultUser string) *GamesHandler {
	return &GamesHandler{games: games, defaultUser: defaultUser}
}

// List handles GET /api/v1/games?user=
func (h *GamesHandler) List(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("user")
	if username == "" {
		username = h.defaultUser
	}
	if username == "" {
		writeError(w, r, apierror.BadRequest("user is required"))
		return
	}

	games, err := h.games.Library(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{"games": games})
}

// Get handles GET /api/v1/games/{gameID}
func (h *GamesHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.games.GetGameDetails(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, details)
}
