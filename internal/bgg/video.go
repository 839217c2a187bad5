package bgg

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

type videoOverview struct {
	Videos struct {
		Instructional *struct {
			VideoHost  string `json:"videohost"`
			ExtVideoID string `json:"extvideoid"`
		} `json:"instructional"`
	} `json:"videos"`
}

// InstructionalVideo returns the YouTube link of the game's featured
// instructional video, or "" when there is none.
func (c *Client) InstructionalVideo(ctx context.Context, gameID string) (string, error) {
	query := url.Values{}
	query.Set("objectid", gameID)
	query.Set("objecttype", "thing")

	body, err := c.get(ctx, c.cfg.VideoURL, query)
	if err != nil {
		return "", wrapError("video", gameID, err)
	}

	var overview videoOverview
	if err := json.Unmarshal(body, &overview); err != nil {
		return "", wrapError("video", gameID, parseError(err))
	}

	v := overview.Videos.Instructional
	if v == nil || v.VideoHost != "youtube" || v.ExtVideoID == "" {
		return "", nil
	}
	return youtubeWatchURL + v.ExtVideoID, nil
}
