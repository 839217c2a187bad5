package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"bgshelf-api/internal/service"
	"bgshelf-api/pkg/apierror"
	"bgshelf-api/pkg/response"
)

// CollectionHandler handles collection refresh and snapshot requests.
type CollectionHandler struct {
	users       *service.Users
	collections *service.CollectionService
	games       *service.GameService
	sync        *service.SyncService // nil when the mirror database is disabled
}

// NewCollectionHandler creates a new collection handler.
func NewCollectionHandler(
	users *service.Users,
	collections *service.CollectionService,
	games *service.GameService,
	sync *service.SyncService,
) *CollectionHandler {
	return &CollectionHandler{
		users:       users,
		collections: collections,
		games:       games,
		sync:        sync,
	}
}

// refreshSummary is the body returned by refresh and enrich.
type refreshSummary struct {
	Changed   bool `json:"changed"`
	Games     int  `json:"games"`
	Updated   int  `json:"updated"`
	Enriched  int  `json:"enriched"`
	Unmatched int  `json:"unmatched"`
}

func summarize(result *service.ReconcileResult) refreshSummary {
	s := refreshSummary{
		Changed:   result.Changed,
		Updated:   result.Updated,
		Enriched:  result.Enriched,
		Unmatched: result.Unmatched,
	}
	if result.Snapshot != nil {
		s.Games = len(result.Snapshot.Games)
	}
	return s
}

// detached keeps request values such as the request id but drops
// cancellation, so a run outlives a disconnected client.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func usernameParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "username")
	username, err := url.PathUnescape(raw)
	if err != nil || username == "" {
		return "", apierror.BadRequest("username is required")
	}
	return username, nil
}

// Get handles GET /api/v1/collections/{username}
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	username, err := usernameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.collections.Snapshot(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, snap)
}

// Refresh handles POST /api/v1/collections/{username}/refresh
func (h *CollectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	username, err := usernameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Resolve(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.collections.Reconcile(detached(r), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Message(w, service.RefreshMessage(result), summarize(result))
}

// Enrich handles POST /api/v1/collections/{username}/enrich
func (h *CollectionHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	username, err := usernameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Resolve(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.collections.EnrichMissing(detached(r), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, summarize(result))
}

// LoadDetails handles POST /api/v1/collections/{username}/details
func (h *CollectionHandler) LoadDetails(w http.ResponseWriter, r *http.Request) {
	username, err := usernameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	failed, err := h.games.LoadMissing(detached(r), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{"errors": failed})
}

// Sync handles POST /api/v1/collections/{username}/sync
func (h *CollectionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, r, apierror.ServiceUnavailable("Database sync is disabled"))
		return
	}

	username, err := usernameParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Resolve(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.sync.SyncUser(detached(r), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, report)
}
