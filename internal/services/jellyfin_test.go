package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/anisync/internal/shared"
	tu "github.com/desertthunder/anisync/internal/testing"
)

func newJellyfinTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *JellyfinService) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Emby-Token"); got != "jf-key" {
			t.Errorf("expected X-Emby-Token jf-key, got %q", got)
		}
		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	return server, NewJellyfinService(server.URL+"/", "jf-key", server.Client(), nil)
}

func TestJellyfinService(t *testing.T) {
	ctx := context.Background()

	t.Run("Series", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Items": func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("ids") == "missing" {
					w.Write([]byte(`{"Items":[],"TotalRecordCount":0}`))
					return
				}
				if q.Get("IncludeItemTypes") != "Series" || q.Get("Fields") != seriesFields || q.Get("limit") != "1" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				w.Write([]byte(`{"Items":[{"Id":"s1","Name":"Bleach","PremiereDate":"2004-10-05T00:00:00.0000000Z","ProviderIds":{"AniList":"269","Tvdb":"74796"}}]}`))
			},
		})
		defer server.Close()

		series, err := svc.Series(ctx, "s1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if series.Name != "Bleach" {
			t.Errorf("expected Bleach, got %s", series.Name)
		}
		if id, _ := series.ProviderID("AniList"); id != "269" {
			t.Errorf("expected AniList id 269, got %s", id)
		}
		if year, _ := series.PremiereYear(); year != 2004 {
			t.Errorf("expected premiere year 2004, got %d", year)
		}

		if _, err := svc.Series(ctx, "missing"); !errors.Is(err, shared.ErrSeriesNotFound) {
			t.Errorf("expected ErrSeriesNotFound, got %v", err)
		}
	})

	t.Run("LibrarySeries", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Items": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("ParentId") != "lib1" || r.URL.Query().Get("limit") != "1000" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				w.Write([]byte(`{"Items":[{"Id":"a","Name":"A"},{"Id":"b","Name":"B"}]}`))
			},
		})
		defer server.Close()

		series, err := svc.LibrarySeries(ctx, "lib1")
		if err != nil || len(series) != 2 || series[1].ID != "b" {
			t.Errorf("unexpected series %+v, %v", series, err)
		}
	})

	t.Run("Libraries", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Library/VirtualFolders": func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]map[string]string{
					{"Name": "Movies", "CollectionType": "movies", "ItemId": "m"},
					{"Name": "Animes", "CollectionType": "tvshows", "ItemId": "a"},
				})
			},
		})
		defer server.Close()

		libs, err := svc.Libraries(ctx)
		if err != nil || len(libs) != 2 || libs[1].ItemID != "a" || libs[1].CollectionType != "tvshows" {
			t.Errorf("unexpected libraries %+v, %v", libs, err)
		}
	})

	t.Run("Episodes sorted with played flags", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Shows/s1/Episodes": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("UserId") != "u1" || r.URL.Query().Get("Fields") != "UserData" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				w.Write([]byte(`{"Items":[
					{"Id":"e3","Name":"Three","IndexNumber":1,"ParentIndexNumber":2,"UserData":{"Played":false}},
					{"Id":"e2","Name":"Two","IndexNumber":2,"ParentIndexNumber":1,"UserData":{"Played":true}},
					{"Id":"e1","Name":"One","IndexNumber":1,"ParentIndexNumber":1,"UserData":{"Played":true}},
					{"Id":"sp","Name":"Special"}
				]}`))
			},
		})
		defer server.Close()

		eps, err := svc.Episodes(ctx, "s1", "u1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		order := []string{"sp", "e1", "e2", "e3"}
		for i, id := range order {
			if eps[i].EpisodeID != id {
				t.Fatalf("position %d: expected %s, got %s", i, id, eps[i].EpisodeID)
			}
		}
		if !eps[2].IsPlayed || eps[3].IsPlayed {
			t.Error("played flags not mapped")
		}
	})

	t.Run("FindSeriesByTvdbID verifies provider id", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Items": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("AnyProviderIdEquals") != "Tvdb.81797" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				w.Write([]byte(`{"Items":[
					{"Id":"wrong","Name":"Other","ProviderIds":{"Tvdb":"1"}},
					{"Id":"op","Name":"One Piece","ProviderIds":{"Tvdb":"81797"}}
				]}`))
			},
		})
		defer server.Close()

		series, err := svc.FindSeriesByTvdbID(ctx, "81797")
		if err != nil || series.ID != "op" {
			t.Errorf("expected One Piece, got %+v, %v", series, err)
		}
	})

	t.Run("RefreshSeries", func(t *testing.T) {
		refreshed := false
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"POST /Items/op/Refresh": func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("MetadataRefreshMode") != "Default" || r.URL.Query().Get("Recursive") != "true" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				refreshed = true
				w.WriteHeader(http.StatusNoContent)
			},
		})
		defer server.Close()

		if err := svc.RefreshSeries(ctx, "op"); err != nil || !refreshed {
			t.Errorf("expected refresh, got %v", err)
		}
	})

	t.Run("UserByName", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Users": func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[{"Id":"u1","Name":"Alice"},{"Id":"u2","Name":"bob"}]`))
			},
		})
		defer server.Close()

		user, err := svc.UserByName(ctx, "BOB")
		if err != nil || user.ID != "u2" {
			t.Errorf("expected bob, got %+v, %v", user, err)
		}
		if _, err := svc.UserByName(ctx, "carol"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("non-2xx", func(t *testing.T) {
		server, svc := newJellyfinTestServer(t, map[string]http.HandlerFunc{
			"GET /Library/VirtualFolders": func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		})
		defer server.Close()

		if _, err := svc.Libraries(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.RoundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})}
		svc := NewJellyfinService("http://jellyfin.invalid", "jf-key", client, nil)

		if _, err := svc.Users(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("undecodable body", func(t *testing.T) {
		client := &http.Client{Transport: tu.RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}, Request: r}, nil
		})}
		svc := NewJellyfinService("http://jellyfin.invalid", "jf-key", client, nil)

		if _, err := svc.Libraries(ctx); err == nil || !strings.Contains(err.Error(), "failed to decode response") {
			t.Errorf("expected decode error, got %v", err)
		}
	})
}

func TestCatalogRegistry(t *testing.T) {
	built := map[string]int{}
	factory := func(token string) Catalog {
		built[token]++
		return NewAniListService(token, AniListOpts{})
	}

	r := NewCatalogRegistry(map[string]string{"alice": "a-tok", "bob": "b-tok", "empty": ""}, "global", factory)

	if users := r.Users(); len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("unexpected users %v", users)
	}
	if !r.HasFallback() {
		t.Error("expected fallback for global token")
	}

	alice, err := r.For("alice")
	if err != nil {
		t.Fatalf("expected alice client, got %v", err)
	}
	carol, err := r.For("carol")
	if err != nil {
		t.Fatalf("expected fallback client for carol, got %v", err)
	}
	if alice == carol {
		t.Error("alice should not share the fallback client")
	}

	noFallback := NewCatalogRegistry(map[string]string{"alice": "a-tok"}, "", factory)
	if _, err := noFallback.For("carol"); !errors.Is(err, shared.ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}
