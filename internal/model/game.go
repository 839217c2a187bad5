package model

import "time"

// Sentinel values used for fields the metadata source did not provide.
const (
	ValueError = "Error"
	ValueNA    = "N/A"
)

// GameDetails is the user-independent metadata of one game.
// Scalar fields keep the remote string form so sentinels survive the round trip.
type GameDetails struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Image          string   `json:"image"`
	Thumbnail      string   `json:"thumbnail"`
	Link           string   `json:"link"`
	MinPlayers     string   `json:"minPlayers"`
	MaxPlayers     string   `json:"maxPlayers"`
	YearPublished  string   `json:"yearPublished"`
	PlayingTime    string   `json:"playingTime"`
	MinPlayingTime string   `json:"minPlayingTime"`
	MaxPlayingTime string   `json:"maxPlayingTime"`
	BestAtCount    []int    `json:"bestAtCount"`
	AverageRating  string   `json:"averageRating"`
	AverageWeight  string   `json:"averageWeight"`
	BoardGameRank  string   `json:"boardGameRank"`
	Mechanics      []string `json:"mechanics"`
	Categories     []string `json:"categories"`
	Designers      []string `json:"designers"`
}

// GameSnapshot is the cached form of GameDetails.
type GameSnapshot struct {
	Timestamp   time.Time   `json:"timestamp"`
	GameDetails GameDetails `json:"gameDetails"`
}

// GameSummary is the listing row served for a collection.
type GameSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Thumbnail   string `json:"thumbnail"`
	Link        string `json:"link"`
	MinPlayers  string `json:"minPlayers"`
	MaxPlayers  string `json:"maxPlayers"`
	BestAtCount any    `json:"bestAtCount"` // []int, or "N/A" when unknown
}

// FailedGame identifies a game whose details could not be loaded.
type FailedGame struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
