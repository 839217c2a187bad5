package model

import "time"

// StatusFlags mirrors the ownership status attributes of a collection row.
type StatusFlags struct {
	Own              bool `json:"own"`
	PreviouslyOwned  bool `json:"prevOwned"`
	ForTrade         bool `json:"forTrade"`
	Want             bool `json:"want"`
	WantToPlay       bool `json:"wantToPlay"`
	WantToBuy        bool `json:"wantToBuy"`
	Wishlist         bool `json:"wishlist"`
	Preordered       bool `json:"preordered"`
	WishlistPriority *int `json:"wishlistPriority"`
}

// CollectionEntry is one row of a user's collection, keyed by CollID.
// PostDate, Rating and RatingTimestamp are only filled by enrichment.
type CollectionEntry struct {
	ID              string      `json:"id"`
	CollID          string      `json:"collid"`
	Name            string      `json:"name"`
	Image           string      `json:"image"`
	Thumbnail       string      `json:"thumbnail"`
	LastModified    string      `json:"lastModified"`
	NumPlays        int         `json:"numPlays"`
	Status          StatusFlags `json:"status"`
	PostDate        *string     `json:"postdate"`
	Rating          *float64    `json:"rating"`
	RatingTimestamp *string     `json:"ratingTimestamp"`
}

// NeedsEnrichment reports whether any of the supplemental fields is still missing.
func (e *CollectionEntry) NeedsEnrichment() bool {
	return e.PostDate == nil || e.Rating == nil || e.RatingTimestamp == nil
}

// CollectionSnapshot is the persisted copy of a user's collection.
type CollectionSnapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	Games     []CollectionEntry `json:"games"`
}

// Contains reports whether the snapshot lists the given game id.
func (s *CollectionSnapshot) Contains(gameID string) bool {
	for i := range s.Games {
		if s.Games[i].ID == gameID {
			return true
		}
	}
	return false
}
