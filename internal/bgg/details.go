package bgg

import (
	"bytes"
	"context"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// CollectionDetail carries the supplemental fields of one collection row.
// The endpoint returns every row the user has for an object, so callers
// must match on CollID.
type CollectionDetail struct {
	CollID          string
	PostDate        string
	Rating          *float64
	RatingTimestamp string
}

type detailResponse struct {
	Items []rawDetail `json:"items"`
}

type rawDetail struct {
	CollID          flexString `json:"collid"`
	PostDate        string     `json:"postdate"`
	Rating          flexFloat  `json:"rating"`
	RatingTimestamp *string    `json:"ratingTimestamp"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number, a numeric string, or null. Anything
// else (including the remote's "N/A" or empty string) leaves it unset.
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	f.Value = nil
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		f.Value = &v
	}
	return nil
}

// FetchCollectionDetails retrieves the detail rows of userID for objectID.
func (c *Client) FetchCollectionDetails(ctx context.Context, objectID, userID string) ([]CollectionDetail, error) {
	query := url.Values{}
	query.Set("objectid", objectID)
	query.Set("objecttype", "thing")
	query.Set("userid", userID)

	body, err := c.get(ctx, c.cfg.DetailURL, query)
	if err != nil {
		return nil, wrapError("details", objectID, err)
	}

	details, err := parseDetails(body)
	if err != nil {
		return nil, wrapError("details", objectID, err)
	}
	return details, nil
}

func parseDetails(body []byte) ([]CollectionDetail, error) {
	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, parseError(err)
	}

	details := make([]CollectionDetail, 0, len(resp.Items))
	for _, it := range resp.Items {
		d := CollectionDetail{
			CollID:   string(it.CollID),
			PostDate: it.PostDate,
			Rating:   it.Rating.Value,
		}
		if it.RatingTimestamp != nil {
			d.RatingTimestamp = *it.RatingTimestamp
		}
		details = append(details, d)
	}
	return details, nil
}
