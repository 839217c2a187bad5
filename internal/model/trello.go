package model

// TrelloList is a list on the configured board.
type TrelloList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrelloCard is the card created for a game.
type TrelloCard struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URL    string   `json:"url,omitempty"`
	Labels []string `json:"labels,omitempty"`
}
