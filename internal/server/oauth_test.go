package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"anilist-token","token_type":"Bearer","expires_in":31536000}`))
	}))
}

func TestOAuthHandler(t *testing.T) {
	tokenServer := newTokenServer(t)
	defer tokenServer.Close()

	config := func() *oauth2.Config {
		return &oauth2.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:5000/anilist/callback",
			Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL, AuthStyle: oauth2.AuthStyleInParams},
		}
	}

	t.Run("routes follow redirect path", func(t *testing.T) {
		h := NewOAuthHandler(config(), "state")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/anilist/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("exchanges code", func(t *testing.T) {
		h := NewOAuthHandler(config(), "state")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anilist/callback?state=state&code=good-code", nil))

		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "AniList Linked") {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}
		result := <-h.Result()
		if result.Error() != nil || result.Token == nil || result.Token.AccessToken != "anilist-token" {
			t.Errorf("unexpected result %+v (%v)", result.Token, result.Error())
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anilist/callback?state=state&code=good-code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(config(), "state")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anilist/callback?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("denied authorization", func(t *testing.T) {
		h := NewOAuthHandler(config(), "state")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anilist/callback?state=state&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(config(), "state")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anilist/callback?state=state&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})
}

func TestCallbackPath(t *testing.T) {
	tests := map[string]string{
		"http://localhost:5000/callback":      "/callback",
		"http://localhost:5000/anilist/oauth": "/anilist/oauth",
		"http://localhost:5000":               DefaultCallbackPath,
		"http://localhost:5000/":              DefaultCallbackPath,
		"::not a url":                         DefaultCallbackPath,
	}
	for in, want := range tests {
		if got := CallbackPath(in); got != want {
			t.Errorf("CallbackPath(%q) = %q, want %q", in, got, want)
		}
	}
}
