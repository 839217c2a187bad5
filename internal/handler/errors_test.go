package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/retry"
	"bgshelf-api/internal/service"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/trello"
	"bgshelf-api/pkg/apierror"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "api error passes through", err: apierror.Conflict("x"), want: http.StatusConflict},
		{name: "refresh in progress", err: service.ErrReconcileInProgress, want: http.StatusConflict},
		{name: "unknown user", err: fmt.Errorf("resolve: %w", service.ErrUnknownUser), want: http.StatusNotFound},
		{name: "invalid game id", err: service.ErrInvalidGameID, want: http.StatusBadRequest},
		{name: "invalid key", err: store.ErrInvalidKey, want: http.StatusBadRequest},
		{name: "nothing cached", err: store.ErrNotFound, want: http.StatusNotFound},
		{
			name: "retries exhausted",
			err:  &retry.ExhaustedError{Op: "fetch collection", Attempts: 3, Err: bgg.ErrQueued},
			want: http.StatusBadGateway,
		},
		{
			name: "game missing upstream",
			err:  &service.FetchError{GameID: "1", Err: &bgg.Error{Op: "thing", ID: "1", Err: bgg.ErrNotFound}},
			want: http.StatusNotFound,
		},
		{
			name: "game fetch failed",
			err:  &service.FetchError{GameID: "1", Err: bgg.ErrServer},
			want: http.StatusBadGateway,
		},
		{name: "trello unauthorized", err: trello.ErrUnauthorized, want: http.StatusUnauthorized},
		{name: "trello not configured", err: trello.ErrNotConfigured, want: http.StatusServiceUnavailable},
		{name: "trello api", err: &trello.APIError{StatusCode: 500, Path: "/cards"}, want: http.StatusBadGateway},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toAPIError(tt.err).StatusCode)
		})
	}
}

func TestToAPIError_ExhaustedKeepsMessage(t *testing.T) {
	err := &retry.ExhaustedError{Op: "fetch collection alice", Attempts: 3, Err: bgg.ErrRateLimited}
	assert.Contains(t, toAPIError(err).Message, "fetch collection alice failed after 3 attempts")
}
