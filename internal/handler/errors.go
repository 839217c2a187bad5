package handler

import (
	"errors"
	"net/http"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/retry"
	"bgshelf-api/internal/service"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/trello"
	"bgshelf-api/pkg/apierror"
	"bgshelf-api/pkg/response"
)

// writeError maps err to an API error and writes it. Server-side failures
// are logged with the request id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("path", r.URL.Path).
			Int("status", apiErr.StatusCode).
			Msg("[Handler] Request failed")
	}
	response.Error(w, apiErr)
}

func toAPIError(err error) *apierror.Error {
	var (
		apiErr    *apierror.Error
		exhausted *retry.ExhaustedError
		fetchErr  *service.FetchError
		trelloErr *trello.APIError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, service.ErrReconcileInProgress):
		return apierror.Conflict("A refresh for this user is already running")
	case errors.Is(err, service.ErrUnknownUser):
		return apierror.NotFound("Unknown user")
	case errors.Is(err, service.ErrInvalidGameID), errors.Is(err, store.ErrInvalidKey):
		return apierror.BadRequest("Invalid identifier")
	case errors.Is(err, store.ErrNotFound):
		return apierror.NotFound("Nothing cached yet, refresh the collection first")
	case errors.As(err, &exhausted):
		return apierror.BadGateway(err.Error())
	case errors.As(err, &fetchErr):
		if errors.Is(err, bgg.ErrNotFound) {
			return apierror.NotFound("Game not found")
		}
		return apierror.BadGateway("Failed to fetch game details")
	case errors.Is(err, trello.ErrUnauthorized):
		return apierror.Unauthorized("Trello rejected the token")
	case errors.Is(err, trello.ErrNotConfigured):
		return apierror.ServiceUnavailable("Trello is not configured")
	case errors.As(err, &trelloErr):
		return apierror.BadGateway("Trello request failed")
	default:
		return apierror.InternalError("")
	}
}
