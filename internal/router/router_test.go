package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/handler"
	"bgshelf-api/internal/middleware"
	"bgshelf-api/internal/repository"
	"bgshelf-api/internal/retry"
	"bgshelf-api/internal/service"
	"bgshelf-api/internal/store"
)

const testAPIKey = "secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "bgg", "testdata", name))
	require.NoError(t, err)
	return data
}

// newTestServer wires the full stack against a fake remote database.
func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	return newTestServerWithHook(t, nil)
}

// newTestServerWithHook calls onDetails before every detail response.
func newTestServerWithHook(t *testing.T, onDetails func()) (*httptest.Server, string) {
	t.Helper()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xmlapi2/collection":
			w.Write(fixture(t, "collection.xml"))
		case "/api/collections":
			if onDetails != nil {
				onDetails()
			}
			w.Write(fixture(t, "details.json"))
		case "/xmlapi2/thing":
			if r.URL.Query().Get("id") != "13" {
				w.Write([]byte(`<items></items>`))
				return
			}
			w.Write(fixture(t, "thing.xml"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(remote.Close)

	dir := t.TempDir()
	snapshots, err := store.NewFileStore(filepath.Join(dir, "gameCache"))
	require.NoError(t, err)

	usersFile := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(usersFile, []byte(`[{"username":"alice","userid":"42","name":"Alice"}]`), 0o644))
	userRepo := repository.NewFileUserRepository(usersFile)

	client := bgg.New(bgg.Config{
		CollectionURL: remote.URL + "/xmlapi2/collection",
		DetailURL:     remote.URL + "/api/collections",
		ThingURL:      remote.URL + "/xmlapi2/thing",
		Timeout:       5 * time.Second,
	})

	collections := service.NewCollectionService(client, client, snapshots, nil, service.CollectionOptions{
		Retry: retry.Policy{MaxRetries: 1, Delay: time.Millisecond},
	})
	games := service.NewGameService(client, snapshots, service.GameOptions{})

	r := New(Config{
		Handler:           handler.New("bgshelf-api", "test"),
		CollectionHandler: handler.NewCollectionHandler(service.NewUsers(userRepo, ""), collections, games, nil),
		GamesHandler:      handler.NewGamesHandler(games, "alice"),
		AdminHandler:      handler.NewAdminHandler(snapshots, nil, "none", "memory"),
		APIKeyMiddleware:  middleware.NewAPIKeyMiddleware([]string{testAPIKey}),
		StaticDir:         filepath.Join(dir, "gameCache"),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, dir
}

func do(t *testing.T, method, url string, authorized bool) (*http.Response, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if authorized {
		req.Header.Set("X-API-Key", testAPIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/health", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestRouter_RefreshRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/collections/alice/refresh", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestRouter_RefreshThenRead(t *testing.T) {
	srv, dir := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/collections/alice", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/collections/alice/refresh", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body.Message, "Collection loaded successfully (2 of 2 entries updated)")

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/collections/alice/refresh", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Collection is already up to date.", body.Message)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/collections/alice", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap struct {
		Games []struct {
			CollID   string   `json:"collid"`
			PostDate *string  `json:"postdate"`
			Rating   *float64 `json:"rating"`
		} `json:"games"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	require.Len(t, snap.Games, 2)
	assert.Equal(t, "1001", snap.Games[0].CollID)
	require.NotNil(t, snap.Games[0].PostDate)
	assert.Equal(t, "2021-03-04", *snap.Games[0].PostDate)
	assert.Nil(t, snap.Games[1].Rating)

	_, err := os.Stat(filepath.Join(dir, "gameCache", "collectionCache_alice.json"))
	assert.NoError(t, err)

	static, err := http.Get(srv.URL + "/gameCache/collectionCache_alice.json")
	require.NoError(t, err)
	static.Body.Close()
	assert.Equal(t, http.StatusOK, static.StatusCode)
}

func TestRouter_UnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/collections/mallory/refresh", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_LoadDetailsAndLibrary(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/collections/alice/refresh", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/collections/alice/details", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loaded struct {
		Errors []struct {
			ID string `json:"id"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &loaded))
	require.Len(t, loaded.Errors, 1)
	assert.Equal(t, "822", loaded.Errors[0].ID)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/games/13", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body.Data), "CATAN")

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/games", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body.Data), "CATAN")
}

func TestRouter_InvalidGameID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/games/abc", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, body.Success)
}

func TestRouter_SyncDisabled(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/collections/alice/sync", true)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_RefreshSurvivesClientDisconnect(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	srv, dir := newTestServerWithHook(t, func() {
		once.Do(func() { close(started) })
		<-proceed
	})

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/v1/collections/alice/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)

	done := make(chan error, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		done <- err
	}()

	<-started
	cancel()
	assert.Error(t, <-done)
	close(proceed)

	snapshot := filepath.Join(dir, "gameCache", "collectionCache_alice.json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(snapshot)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/collections/alice", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body.Data), "2021-03-04")
}
