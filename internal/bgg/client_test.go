package bgg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "load fixture %s", name)
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(Config{
		CollectionURL: server.URL + "/xmlapi2/collection",
		DetailURL:     server.URL + "/api/collections",
		ThingURL:      server.URL + "/xmlapi2/thing",
		VideoURL:      server.URL + "/api/videos/overview",
	})
}

func TestClient_FetchCollection(t *testing.T) {
	fixture := loadFixture(t, "collection.xml")

	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/xmlapi2/collection", r.URL.Path)
		w.Write(fixture)
	})

	items, err := client.FetchCollection(context.Background(), "board gamer")
	require.NoError(t, err)
	assert.Equal(t, "own=1&username=board+gamer", gotQuery)

	require.Len(t, items, 2)
	assert.Equal(t, "13", items[0].ObjectID)
	assert.Equal(t, "1001", items[0].CollID)
	assert.Equal(t, "CATAN", items[0].Name)
	assert.Equal(t, "2024-01-01 10:00:00", items[0].LastModified)
	assert.Equal(t, 12, items[0].NumPlays)
	assert.True(t, items[0].Own)
	assert.Nil(t, items[0].WishlistPriority)

	assert.True(t, items[1].ForTrade)
	assert.True(t, items[1].Wishlist)
	require.NotNil(t, items[1].WishlistPriority)
	assert.Equal(t, 3, *items[1].WishlistPriority)
}

func TestClient_FetchCollection_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{name: "queued", statusCode: http.StatusAccepted, wantErr: ErrQueued},
		{name: "rate limited", statusCode: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "server error", statusCode: http.StatusBadGateway, wantErr: ErrServer},
		{name: "not found", statusCode: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "malformed xml", statusCode: http.StatusOK, body: "<items><item", wantErr: ErrParse},
		{name: "missing ids", statusCode: http.StatusOK, body: `<items><item objectid="1"></item></items>`, wantErr: ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchCollection(context.Background(), "someone")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var bggErr *Error
			require.True(t, errors.As(err, &bggErr))
			assert.Equal(t, "collection", bggErr.Op)
			assert.Equal(t, "someone", bggErr.ID)
		})
	}
}

func TestClient_FetchCollectionDetails(t *testing.T) {
	fixture := loadFixture(t, "details.json")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "13", r.URL.Query().Get("objectid"))
		assert.Equal(t, "thing", r.URL.Query().Get("objecttype"))
		assert.Equal(t, "42", r.URL.Query().Get("userid"))
		w.Write(fixture)
	})

	details, err := client.FetchCollectionDetails(context.Background(), "13", "42")
	require.NoError(t, err)
	require.Len(t, details, 3)

	assert.Equal(t, "1001", details[0].CollID)
	assert.Equal(t, "2021-03-04T12:00:00+00:00", details[0].PostDate)
	require.NotNil(t, details[0].Rating)
	assert.Equal(t, 8.0, *details[0].Rating)
	assert.Equal(t, "2022-05-06T09:00:00+00:00", details[0].RatingTimestamp)

	assert.Equal(t, "1099", details[1].CollID)
	require.NotNil(t, details[1].Rating)
	assert.Equal(t, 7.5, *details[1].Rating)
	assert.Empty(t, details[1].RatingTimestamp)

	assert.Nil(t, details[2].Rating)
}

func TestClient_FetchThing(t *testing.T) {
	fixture := loadFixture(t, "thing.xml")

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "13", r.URL.Query().Get("id"))
		assert.Equal(t, "1", r.URL.Query().Get("stats"))
		w.Write(fixture)
	})

	thing, err := client.FetchThing(context.Background(), "13")
	require.NoError(t, err)

	assert.Equal(t, "boardgame", thing.Type)
	assert.Equal(t, "CATAN", thing.PrimaryName())
	assert.Equal(t, "3", thing.MinPlayers.Value)
	assert.Equal(t, "4", thing.MaxPlayers.Value)
	require.Len(t, thing.PollSummaries, 1)
	assert.Equal(t, "suggested_numplayers", thing.PollSummaries[0].Name)
	assert.Len(t, thing.Links, 6)
	require.NotNil(t, thing.Statistics)
	assert.Equal(t, "7.1", thing.Statistics.Ratings.Average.Value)
	assert.Equal(t, "2.29", thing.Statistics.Ratings.AverageWeight.Value)
	require.Len(t, thing.Statistics.Ratings.Ranks, 2)
	assert.Equal(t, "boardgame", thing.Statistics.Ratings.Ranks[0].Name)
}

func TestClient_FetchThing_EmptyDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<items termsofuse="x"></items>`))
	})

	_, err := client.FetchThing(context.Background(), "999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestThing_PrimaryName(t *testing.T) {
	tests := []struct {
		name  string
		names []ThingName
		want  string
	}{
		{name: "primary wins", names: []ThingName{{Type: "alternate", Value: "B"}, {Type: "primary", Value: "A"}}, want: "A"},
		{name: "first fallback", names: []ThingName{{Type: "alternate", Value: "B"}}, want: "B"},
		{name: "none", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thing := Thing{Names: tt.names}
			assert.Equal(t, tt.want, thing.PrimaryName())
		})
	}
}

func TestClient_InstructionalVideo(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "youtube", body: string(loadFixture(t, "video.json")), want: "https://www.youtube.com/watch?v=abc123"},
		{name: "other host", body: `{"videos":{"instructional":{"videohost":"vimeo","extvideoid":"1"}}}`, want: ""},
		{name: "none", body: `{"videos":{}}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			link, err := client.InstructionalVideo(context.Background(), "13")
			require.NoError(t, err)
			assert.Equal(t, tt.want, link)
		})
	}
}
