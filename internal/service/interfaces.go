package service

import (
	"context"

	"bgshelf-api/internal/bgg"
)

// CollectionSource returns a user's remote collection.
type CollectionSource interface {
	FetchCollection(ctx context.Context, username string) ([]bgg.CollectionItem, error)
}

// DetailSource returns the supplemental rows a user has for one game.
type DetailSource interface {
	FetchCollectionDetails(ctx context.Context, objectID, userID string) ([]bgg.CollectionDetail, error)
}

// GameMetadataSource returns the static metadata of one game.
type GameMetadataSource interface {
	FetchThing(ctx context.Context, gameID string) (*bgg.Thing, error)
}

// VideoSource finds a game's instructional video.
type VideoSource interface {
	InstructionalVideo(ctx context.Context, gameID string) (string, error)
}

var (
	_ CollectionSource   = (*bgg.Client)(nil)
	_ DetailSource       = (*bgg.Client)(nil)
	_ GameMetadataSource = (*bgg.Client)(nil)
	_ VideoSource        = (*bgg.Client)(nil)
)
