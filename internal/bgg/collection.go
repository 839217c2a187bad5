package bgg

import (
	"context"
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"
)

// CollectionItem is one row of a user's remote collection.
type CollectionItem struct {
	ObjectID         string
	CollID           string
	Name             string
	Image            string
	Thumbnail        string
	LastModified     string
	NumPlays         int
	Own              bool
	PreviouslyOwned  bool
	ForTrade         bool
	Want             bool
	WantToPlay       bool
	WantToBuy        bool
	Wishlist         bool
	Preordered       bool
	WishlistPriority *int
}

type xmlCollection struct {
	XMLName xml.Name            `xml:"items"`
	Items   []xmlCollectionItem `xml:"item"`
}

type xmlCollectionItem struct {
	ObjectID  string    `xml:"objectid,attr"`
	CollID    string    `xml:"collid,attr"`
	Name      string    `xml:"name"`
	Image     string    `xml:"image"`
	Thumbnail string    `xml:"thumbnail"`
	NumPlays  string    `xml:"numplays"`
	Status    xmlStatus `xml:"status"`
}

type xmlStatus struct {
	Own              string `xml:"own,attr"`
	PrevOwned        string `xml:"prevowned,attr"`
	ForTrade         string `xml:"fortrade,attr"`
	Want             string `xml:"want,attr"`
	WantToPlay       string `xml:"wanttoplay,attr"`
	WantToBuy        string `xml:"wanttobuy,attr"`
	Wishlist         string `xml:"wishlist,attr"`
	Preordered       string `xml:"preordered,attr"`
	WishlistPriority string `xml:"wishlistpriority,attr"`
	LastModified     string `xml:"lastmodified,attr"`
}

// FetchCollection retrieves the owned-games collection of username.
func (c *Client) FetchCollection(ctx context.Context, username string) ([]CollectionItem, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("own", "1")

	body, err := c.get(ctx, c.cfg.CollectionURL, query)
	if err != nil {
		return nil, wrapError("collection", username, err)
	}

	items, err := parseCollection(body)
	if err != nil {
		return nil, wrapError("collection", username, err)
	}
	return items, nil
}

func parseCollection(body []byte) ([]CollectionItem, error) {
	var doc xmlCollection
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, parseError(err)
	}

	items := make([]CollectionItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		if it.ObjectID == "" || it.CollID == "" {
			return nil, parseError(errMissingIDs)
		}
		item := CollectionItem{
			ObjectID:        it.ObjectID,
			CollID:          it.CollID,
			Name:            strings.TrimSpace(it.Name),
			Image:           strings.TrimSpace(it.Image),
			Thumbnail:       strings.TrimSpace(it.Thumbnail),
			LastModified:    it.Status.LastModified,
			Own:             flag(it.Status.Own),
			PreviouslyOwned: flag(it.Status.PrevOwned),
			ForTrade:        flag(it.Status.ForTrade),
			Want:            flag(it.Status.Want),
			WantToPlay:      flag(it.Status.WantToPlay),
			WantToBuy:       flag(it.Status.WantToBuy),
			Wishlist:        flag(it.Status.Wishlist),
			Preordered:      flag(it.Status.Preordered),
		}
		if n, err := strconv.Atoi(strings.TrimSpace(it.NumPlays)); err == nil {
			item.NumPlays = n
		}
		if p, err := strconv.Atoi(it.Status.WishlistPriority); err == nil {
			item.WishlistPriority = &p
		}
		items = append(items, item)
	}
	return items, nil
}

func flag(v string) bool {
	return v == "1"
}
