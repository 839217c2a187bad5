package handler

import (
	"html/template"
	"net/http"

	"github.com/goccy/go-json"

	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/service"
	"bgshelf-api/pkg/apierror"
	"bgshelf-api/pkg/response"
)

const trelloTokenHeader = "X-Trello-Token"

var (
	authorizePage = template.Must(template.New("authorize").Parse(`<!DOCTYPE html>
<html><body>
{{if .Member}}<p>Authorized as {{.Member}}.</p>
<script>localStorage.setItem('trelloToken', {{.Token}}); if (window.opener) { window.close(); }</script>
{{else}}{{if .Failed}}<p>Authorization failed. Please try again.</p>{{end}}
<button onclick="openAuthWindow()">Authorize Trello</button>
<script>
function openAuthWindow() {
	const callbackUrl = encodeURIComponent(window.location.origin + '/api/v1/trello/callback');
	window.open('https://trello.com/1/authorize?expiration=never&key=' + {{.Key}} + '&scope=read,write&response_type=token&return_url=' + callbackUrl, 'authWindow', 'width=600,height=400');
}
</script>
{{end}}
</body></html>`))

	callbackPage = []byte(`<!DOCTYPE html>
<html><body><script>
const token = new URLSearchParams(window.location.hash.substring(1)).get('token');
if (token) {
	window.location.href = '/api/v1/trello/authorize?token=' + encodeURIComponent(token);
} else {
	alert('Authorization failed. Please try again.');
	window.close();
}
</script></body></html>`)
)

// TrelloHandler handles Trello board requests.
type TrelloHandler struct {
	cards *service.CardService
	key   string
}

// NewTrelloHandler creates a new Trello handler.
func NewTrelloHandler(cards *service.CardService, key string) *TrelloHandler {
	return &TrelloHandler{cards: cards, key: key}
}

func trelloToken(r *http.Request) string {
	if token := r.Header.Get(trelloTokenHeader); token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

// Lists handles GET /api/v1/trello/lists
func (h *TrelloHandler) Lists(w http.ResponseWriter, r *http.Request) {
	token := trelloToken(r)
	if token == "" {
		writeError(w, r, apierror.BadRequest("Trello token is required"))
		return
	}

	lists, err := h.cards.Lists(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, lists)
}

// createCardRequest is the body of POST /api/v1/trello/cards.
type createCardRequest struct {
	ListID      string `json:"listId"`
	GameID      string `json:"gameId"`
	TrelloToken string `json:"trelloToken"`
}

// CreateCard handles POST /api/v1/trello/cards
func (h *TrelloHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.TrelloToken == "" {
		req.TrelloToken = r.Header.Get(trelloTokenHeader)
	}

	var missing []apierror.FieldError
	for _, f := range []struct{ name, value string }{
		{"listId", req.ListID},
		{"gameId", req.GameID},
		{"trelloToken", req.TrelloToken},
	} {
		if f.value == "" {
			missing = append(missing, apierror.FieldError{Field: f.name, Message: "required"})
		}
	}
	if len(missing) > 0 {
		writeError(w, r, apierror.ValidationError("listId, gameId, and trelloToken are required", missing...))
		return
	}

	card, err := h.cards.CreateCard(r.Context(), req.ListID, req.GameID, req.TrelloToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, card)
}

type authorizeView struct {
	Key    string
	Token  string
	Member string
	Failed bool
}

// Authorize handles GET /api/v1/trello/authorize
func (h *TrelloHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	view := authorizeView{Key: h.key}

	if token := r.URL.Query().Get("token"); token != "" {
		member, err := h.cards.Member(r.Context(), token)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("[TrelloHandler] Token check failed")
			view.Failed = true
		} else {
			view.Token = token
			view.Member = member.FullName
			if view.Member == "" {
				view.Member = member.Username
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := authorizePage.Execute(w, view); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("[TrelloHandler] Render failed")
	}
}

// Callback handles GET /api/v1/trello/callback
func (h *TrelloHandler) Callback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(callbackPage)
}
