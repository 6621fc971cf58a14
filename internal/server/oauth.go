package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
)

// DefaultCallbackPath is used when the redirect URI has no path.
const DefaultCallbackPath = "/callback"

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0b1622; }
        .container { text-align: center; background: #151f2e; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.3); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #9fadbd; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type callbackView struct {
	Title   string
	Color   string
	Message string
}

// OAuthHandler handles the AniList authorization code callback.
//
// Only the first callback is processed; later hits get 400.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler for config's redirect URI. The state token should be random for CSRF protection.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		path:       CallbackPath(config.RedirectURL),
		resultChan: make(chan OAuthResult, 1),
	}
}

// CallbackPath extracts the path component of a redirect URI.
func CallbackPath(redirectURL string) string {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultCallbackPath
	}
	return u.Path
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP validates the state, exchanges the code and sends the result.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("invalid state parameter")})
		h.render(w, http.StatusBadRequest, callbackView{Title: "Authorization Failed", Color: "#e85d75", Message: "Invalid state parameter."})
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("authorization failed: %s - %s", q.Get("error"), q.Get("error_description"))
		h.Send(OAuthResult{err: err})
		h.render(w, http.StatusBadRequest, callbackView{Title: "Authorization Failed", Color: "#e85d75", Message: "AniList did not return an authorization code."})
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		h.render(w, http.StatusInternalServerError, callbackView{Title: "Authorization Failed", Color: "#e85d75", Message: "Token exchange failed."})
		return
	}

	h.Send(OAuthResult{Token: token})
	h.render(w, http.StatusOK, callbackView{Title: "✓ AniList Linked", Color: "#3db4f2", Message: "You can close this window and return to the terminal."})
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, view callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, view)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
