package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/model"
	"bgshelf-api/internal/repository"
	"bgshelf-api/internal/store"
	"bgshelf-api/internal/trello"
)

// TrelloBoard is the Trello surface the card builder needs.
type TrelloBoard interface {
	Lists(ctx context.Context, token string) ([]model.TrelloList, error)
	Me(ctx context.Context, token string) (*trello.Member, error)
	CreateCard(ctx context.Context, token string, card trello.NewCard) (*model.TrelloCard, error)
	AddMember(ctx context.Context, token, cardID, memberID string) error
	Vote(ctx context.Context, token, cardID, memberID string) error
	Attach(ctx context.Context, token, cardID, link string) error
	AddLabel(ctx context.Context, token, cardID, name, color string) error
}

var _ TrelloBoard = (*trello.Client)(nil)

// CardOptions selects which board lists accept game cards.
type CardOptions struct {
	ListPrefix string
	ExtraList  string
}

// CardService turns cached game details into Trello cards.
type CardService struct {
	board  TrelloBoard
	games  *GameService
	videos VideoSource
	users  repository.UserRepository
	store  store.SnapshotStore
	opts   CardOptions
}

// NewCardService creates a new card service. videos may be nil.
func NewCardService(
	board TrelloBoard,
	games *GameService,
	videos VideoSource,
	users repository.UserRepository,
	st store.SnapshotStore,
	opts CardOptions,
) *CardService {
	return &CardService{
		board:  board,
		games:  games,
		videos: videos,
		users:  users,
		store:  st,
		opts:   opts,
	}
}

// Lists returns the board lists games can be added to.
func (s *CardService) Lists(ctx context.Context, token string) ([]model.TrelloList, error) {
	lists, err := s.board.Lists(ctx, token)
	if err != nil {
		logging.Error().Err(err).Msg("[CardService] Error fetching Trello lists")
		return nil, err
	}

	filtered := make([]model.TrelloList, 0, len(lists))
	for _, l := range lists {
		if (s.opts.ListPrefix != "" && strings.HasPrefix(l.Name, s.opts.ListPrefix)) ||
			(s.opts.ExtraList != "" && l.Name == s.opts.ExtraList) {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

// CreateCard adds a card for gameID to listID. Only the card itself is
// required; member, vote, attachments and owner labels are best effort.
func (s *CardService) CreateCard(ctx context.Context, listID, gameID, token string) (*model.TrelloCard, error) {
	log := logging.Ctx(ctx).With().Str("game_id", gameID).Str("list_id", listID).Logger()

	details, err := s.games.GetGameDetails(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Msg("[CardService] Failed to get game details")
		return nil, err
	}

	card, err := s.board.CreateCard(ctx, token, trello.NewCard{
		Name:   CardTitle(details),
		Desc:   details.Description,
		ListID: listID,
	})
	if err != nil {
		log.Error().Err(err).Msg("[CardService] Error creating Trello card")
		return nil, err
	}
	log = log.With().Str("card_id", card.ID).Logger()
	log.Info().Msg("[CardService] Card created")

	if member, err := s.board.Me(ctx, token); err != nil {
		log.Warn().Err(err).Msg("[CardService] Could not resolve member")
	} else {
		if err := s.board.AddMember(ctx, token, card.ID, member.ID); err != nil {
			log.Warn().Err(err).Msg("[CardService] Could not add member")
		}
		if err := s.board.Vote(ctx, token, card.ID, member.ID); err != nil {
			log.Warn().Err(err).Msg("[CardService] Could not vote")
		}
	}

	for _, link := range s.attachments(ctx, details) {
		if err := s.board.Attach(ctx, token, card.ID, link); err != nil {
			log.Warn().Err(err).Str("url", link).Msg("[CardService] Could not attach link")
		}
	}

	owners, err := s.owners(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Msg("[CardService] Could not resolve owners")
	}
	for _, u := range owners {
		label := "Owned by " + u.Name
		if err := s.board.AddLabel(ctx, token, card.ID, label, u.Color); err != nil {
			log.Warn().Err(err).Str("label", label).Msg("[CardService] Could not add label")
			continue
		}
		card.Labels = append(card.Labels, label)
	}

	return card, nil
}

func (s *CardService) attachments(ctx context.Context, d *model.GameDetails) []string {
	var links []string
	if d.Image != "" && d.Image != model.ValueError {
		links = append(links, d.Image)
	}
	if d.Link != "" {
		links = append(links, d.Link)
	}
	if s.videos != nil {
		video, err := s.videos.InstructionalVideo(ctx, d.ID)
		if err != nil {
			logging.Warn().Err(err).Str("game_id", d.ID).Msg("[CardService] Failed to fetch instructional video")
		} else if video != "" {
			links = append(links, video)
		}
	}
	return links
}

// owners returns the tracked users whose cached collection lists gameID.
func (s *CardService) owners(ctx context.Context, gameID string) ([]model.User, error) {
	if s.users == nil {
		return nil, nil
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	var owners []model.User
	for _, u := range users {
		var snap model.CollectionSnapshot
		err := s.store.Read(ctx, store.CollectionKey(u.Username), &snap)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			logging.Warn().Err(err).Str("user", u.Username).Msg("[CardService] Unreadable collection")
			continue
		}
		if snap.Contains(gameID) {
			owners = append(owners, u)
		}
	}
	return owners, nil
}

// CardTitle formats "<name> (<min>-<max>p[, best:<counts>])".
func CardTitle(d *model.GameDetails) string {
	best := ""
	if len(d.BestAtCount) > 0 {
		counts := make([]string, len(d.BestAtCount))
		for i, n := range d.BestAtCount {
			counts[i] = strconv.Itoa(n)
		}
		best = ", best:" + strings.Join(counts, ",")
	}
	return fmt.Sprintf("%s (%s-%sp%s)", d.Name, d.MinPlayers, d.MaxPlayers, best)
}

// Member returns the Trello member owning token, which also proves the
// token is valid.
func (s *CardService) Member(ctx context.Context, token string) (*trello.Member, error) {
	return s.board.Me(ctx, token)
}
