package bgg

import (
	"context"
	"encoding/xml"
	"net/url"
)

// Thing is the typed xmlapi2 thing document for a single game.
type Thing struct {
	Type          string           `xml:"type,attr"`
	ID            string           `xml:"id,attr"`
	Thumbnail     string           `xml:"thumbnail"`
	Image         string           `xml:"image"`
	Names         []ThingName      `xml:"name"`
	Description   string           `xml:"description"`
	YearPublished ValueAttr        `xml:"yearpublished"`
	MinPlayers    ValueAttr        `xml:"minplayers"`
	MaxPlayers    ValueAttr        `xml:"maxplayers"`
	PlayingTime   ValueAttr        `xml:"playingtime"`
	MinPlayTime   ValueAttr        `xml:"minplaytime"`
	MaxPlayTime   ValueAttr        `xml:"maxplaytime"`
	PollSummaries []PollSummary    `xml:"poll-summary"`
	Links         []Link           `xml:"link"`
	Statistics    *ThingStatistics `xml:"statistics"`
}

// ThingName is a primary or alternate name.
type ThingName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

// ValueAttr is an element carrying its payload in a value attribute.
type ValueAttr struct {
	Value string `xml:"value,attr"`
}

// PollSummary is a summarised community poll.
type PollSummary struct {
	Name    string       `xml:"name,attr"`
	Results []PollResult `xml:"result"`
}

// PollResult is one line of a poll summary.
type PollResult struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Link is a typed classification record (mechanic, category, designer...).
type Link struct {
	Type  string `xml:"type,attr"`
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

// ThingStatistics holds community ratings.
type ThingStatistics struct {
	Ratings struct {
		Average       ValueAttr `xml:"average"`
		AverageWeight ValueAttr `xml:"averageweight"`
		Ranks         []Rank    `xml:"ranks>rank"`
	} `xml:"ratings"`
}

// Rank is the position of the game in one ranking category.
type Rank struct {
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlThings struct {
	XMLName xml.Name `xml:"items"`
	Items   []Thing  `xml:"item"`
}

// PrimaryName returns the primary name, falling back to the first name.
func (t *Thing) PrimaryName() string {
	for _, n := range t.Names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	if len(t.Names) > 0 {
		return t.Names[0].Value
	}
	return ""
}

// FetchThing retrieves game metadata with statistics.
func (c *Client) FetchThing(ctx context.Context, gameID string) (*Thing, error) {
	query := url.Values{}
	query.Set("id", gameID)
	query.Set("stats", "1")

	body, err := c.get(ctx, c.cfg.ThingURL, query)
	if err != nil {
		return nil, wrapError("thing", gameID, err)
	}

	thing, err := parseThing(body)
	if err != nil {
		return nil, wrapError("thing", gameID, err)
	}
	return thing, nil
}

func parseThing(body []byte) (*Thing, error) {
	var doc xmlThings
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, parseError(err)
	}
	if len(doc.Items) == 0 {
		return nil, ErrNotFound
	}
	return &doc.Items[0], nil
}
