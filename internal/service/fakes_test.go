package service

import (
	"context"
	"sync"
	"time"

	"bgshelf-api/internal/bgg"
	"bgshelf-api/internal/lock"
	"bgshelf-api/internal/model"
	"bgshelf-api/internal/repository"
	"bgshelf-api/internal/retry"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/trello"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeCollectionSource struct {
	mu    sync.Mutex
	items map[string][]bgg.CollectionItem
	errs  map[string]error
	calls int
}

func (f *fakeCollectionSource) FetchCollection(ctx context.Context, username string) ([]bgg.CollectionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	return append([]bgg.CollectionItem(nil), f.items[username]...), nil
}

type detailCall struct {
	ObjectID string
	UserID   string
}

type fakeDetailSource struct {
	mu    sync.Mutex
	rows  map[string][]bgg.CollectionDetail
	errs  map[string]error
	calls []detailCall
}

func (f *fakeDetailSource) FetchCollectionDetails(ctx context.Context, objectID, userID string) ([]bgg.CollectionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, detailCall{ObjectID: objectID, UserID: userID})
	if err := f.errs[objectID]; err != nil {
		return nil, err
	}
	return f.rows[objectID], nil
}

type fakeThingSource struct {
	mu     sync.Mutex
	things map[string]*bgg.Thing
	err    error
	calls  []string
}

func (f *fakeThingSource) FetchThing(ctx context.Context, gameID string) (*bgg.Thing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, gameID)
	if f.err != nil {
		return nil, f.err
	}
	thing, ok := f.things[gameID]
	if !ok {
		return nil, &bgg.Error{Op: "thing", ID: gameID, Err: bgg.ErrNotFound}
	}
	return thing, nil
}

type fakeVideoSource struct {
	link string
	err  error
}

func (f *fakeVideoSource) InstructionalVideo(ctx context.Context, gameID string) (string, error) {
	return f.link, f.err
}

type fakeUsers struct {
	users []model.User
	err   error
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]model.User, error) {
	return f.users, f.err
}

func (f *fakeUsers) GetUser(ctx context.Context, username string) (*model.User, error) {
	for i := range f.users {
		if f.users[i].Username == username {
			return &f.users[i], nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type fakeCollectionRepo struct {
	batches []repository.SyncBatch
	err     error
}

func (f *fakeCollectionRepo) SyncCollection(ctx context.Context, batch repository.SyncBatch) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeCollectionRepo) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"batches": len(f.batches)}, nil
}

func (f *fakeCollectionRepo) Close() error { return nil }

// countingThrottle never blocks and records how often it was asked.
type countingThrottle struct {
	waits int
}

func (c *countingThrottle) Wait(ctx context.Context) error {
	c.waits++
	return ctx.Err()
}

// failingStore rejects every write.
type failingStore struct {
	*store.MemoryStore
	err error
}

func (f *failingStore) Write(ctx context.Context, key string, v any) error {
	return &store.WriteError{Key: key, Err: f.err}
}

type fakeBoard struct {
	mu        sync.Mutex
	lists     []model.TrelloList
	createErr error
	meErr     error
	created   []trello.NewCard
	members   []string
	votes     []string
	attached  []string
	labels    []string
	colors    []string
}

func (f *fakeBoard) Lists(ctx context.Context, token string) ([]model.TrelloList, error) {
	return f.lists, nil
}

func (f *fakeBoard) Me(ctx context.Context, token string) (*trello.Member, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &trello.Member{ID: "m1", Username: "alice"}, nil
}

func (f *fakeBoard) CreateCard(ctx context.Context, token string, card trello.NewCard) (*model.TrelloCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, card)
	return &model.TrelloCard{ID: "card1", Name: card.Name}, nil
}

func (f *fakeBoard) AddMember(ctx context.Context, token, cardID, memberID string) error {
	f.members = append(f.members, memberID)
	return nil
}

func (f *fakeBoard) Vote(ctx context.Context, token, cardID, memberID string) error {
	f.votes = append(f.votes, memberID)
	return nil
}

func (f *fakeBoard) Attach(ctx context.Context, token, cardID, link string) error {
	f.attached = append(f.attached, link)
	return nil
}

func (f *fakeBoard) AddLabel(ctx context.Context, token, cardID, name, color string) error {
	f.labels = append(f.labels, name)
	f.colors = append(f.colors, color)
	return nil
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 2, Delay: time.Millisecond}
}

func newTestCollectionService(src CollectionSource, details DetailSource, st store.SnapshotStore) *CollectionService {
	return NewCollectionService(src, details, st, lock.NewMemoryLocker(), CollectionOptions{
		Retry: testPolicy(),
		Clock: fixedClock,
	})
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
