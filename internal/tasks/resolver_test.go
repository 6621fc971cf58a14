package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	tu "github.com/desertthunder/anisync/internal/testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "english dub", in: "Attack on Titan (English Dub)", want: "Attack on Titan"},
		{name: "dub", in: "Naruto (Dub)", want: "Naruto"},
		{name: "sub lowercase", in: "Bleach (sub)", want: "Bleach"},
		{name: "subbed", in: "Monster (Subbed)", want: "Monster"},
		{name: "dubbed", in: "Trigun (DUBBED)", want: "Trigun"},
		{name: "free-form sub tag", in: "One Piece (Japanese Subbed Edition)", want: "One Piece"},
		{name: "free-form dub tag", in: "Cowboy Bebop (Funimation Dub 2001)", want: "Cowboy Bebop"},
		{name: "subtitle after dash", in: "Re:Zero - Starting Life in Another World", want: "Re:Zero"},
		{name: "season word", in: "Mob Psycho 100 Season 2", want: "Mob Psycho 100"},
		{name: "short season", in: "Overlord S3", want: "Overlord"},
		{name: "dub then dash", in: "Demon Slayer - Season 2 (Dub)", want: "Demon Slayer"},
		{name: "untouched", in: "Spy x Family", want: "Spy x Family"},
		{name: "trimmed", in: "  Frieren  ", want: "Frieren"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsGoodMatch(t *testing.T) {
	candidate := models.CatalogIdentity{ID: 1, RomajiTitle: "Shingeki no Kyojin", EnglishTitle: "Attack on Titan", StartYear: 2013}

	tests := []struct {
		name    string
		key     string
		year    int
		hasYear bool
		want    bool
	}{
		{name: "english title same year", key: "Attack on Titan", year: 2013, hasYear: true, want: true},
		{name: "romaji title ignoring case", key: "shingeki no kyojin", year: 2013, hasYear: true, want: true},
		{name: "year plus one", key: "Attack on Titan", year: 2014, hasYear: true, want: true},
		{name: "year minus one", key: "Attack on Titan", year: 2012, hasYear: true, want: true},
		{name: "year too far", key: "Attack on Titan", year: 2017, hasYear: true, want: false},
		{name: "no year", key: "Attack on Titan", want: true},
		{name: "partial title", key: "Attack", year: 2013, hasYear: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGoodMatch(tt.key, candidate, tt.year, tt.hasYear); got != tt.want {
				t.Errorf("IsGoodMatch(%q, %d) = %v, want %v", tt.key, tt.year, got, tt.want)
			}
		})
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("direct link skips search", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		r := NewResolver(catalog, nil)

		res, err := r.Resolve(ctx, models.SeriesRecord{ID: "s1", Name: "Anything", ProviderIDs: map[string]string{"AniList": "1234"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.CatalogID != 1234 || !res.ViaDirectLink {
			t.Errorf("expected (1234, direct), got (%d, %v)", res.CatalogID, res.ViaDirectLink)
		}
		if len(catalog.SearchCalls) != 0 {
			t.Errorf("expected no search calls, got %d", len(catalog.SearchCalls))
		}
	})

	t.Run("provider key is case-insensitive", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		res, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{Name: "x", ProviderIDs: map[string]string{"anilist": "77"}})
		if err != nil || res.CatalogID != 77 {
			t.Fatalf("expected 77, got %+v, %v", res, err)
		}
	})

	t.Run("search with normalized name and year", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Results["Naruto"] = []models.CatalogIdentity{{ID: 20, RomajiTitle: "Naruto", StartYear: 2002}}

		res, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{ID: "s2", Name: "Naruto (Dub)", PremiereDate: "2002-10-03T00:00:00.0000000Z"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.CatalogID != 20 || res.ViaDirectLink || res.SearchedName != "Naruto" {
			t.Errorf("unexpected resolution %+v", res)
		}
		if len(catalog.SearchCalls) != 1 || catalog.SearchCalls[0] != (tu.SearchCall{Search: "Naruto", Year: 2002}) {
			t.Errorf("unexpected search calls %+v", catalog.SearchCalls)
		}
	})

	t.Run("prefers exact match within a year", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Results["Hunter x Hunter"] = []models.CatalogIdentity{
			{ID: 136, RomajiTitle: "HUNTER×HUNTER", StartYear: 1999},
			{ID: 11061, RomajiTitle: "HUNTER×HUNTER (2011)", EnglishTitle: "Hunter x Hunter", StartYear: 2011},
		}

		res, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{Name: "Hunter x Hunter", PremiereDate: "2011-10-02"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.CatalogID != 11061 {
			t.Errorf("expected 11061, got %d", res.CatalogID)
		}
	})

	t.Run("falls back to first candidate", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Results["Attack on Titan"] = []models.CatalogIdentity{
			{ID: 99, RomajiTitle: "Shingeki no Kyojin: The Final Season", StartYear: 2020},
			{ID: 16498, EnglishTitle: "Attack on Titan", StartYear: 2013},
		}

		res, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{Name: "Attack on Titan", PremiereDate: "2020-12-07"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.CatalogID != 99 {
			t.Errorf("expected fallback 99, got %d", res.CatalogID)
		}
	})

	t.Run("no results", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		_, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{Name: "Unknown Show"})

		var notFound *IdentityNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected IdentityNotFoundError, got %v", err)
		}
		if !errors.Is(err, shared.ErrIdentityNotFound) {
			t.Error("expected ErrIdentityNotFound")
		}
		if notFound.SearchedName != "Unknown Show" || notFound.Reason != models.ReasonNoProviderID {
			t.Errorf("unexpected error fields %+v", notFound)
		}
	})

	t.Run("invalid provider id searches", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		_, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{Name: "Odd (Sub)", ProviderIDs: map[string]string{"AniList": "n/a"}})

		var notFound *IdentityNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected IdentityNotFoundError, got %v", err)
		}
		if notFound.Reason != models.ReasonInvalidProviderID || notFound.SearchedName != "Odd" {
			t.Errorf("unexpected error fields %+v", notFound)
		}
		if len(catalog.SearchCalls) != 1 {
			t.Errorf("expected one search, got %d", len(catalog.SearchCalls))
		}
	})

	t.Run("search failure", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.SearchErr = shared.ErrRemoteFailure
		_, err := NewResolver(catalog, nil).Resolve(ctx, models.SeriesRecord{Name: "Show"})
		if !errors.Is(err, shared.ErrIdentityNotFound) || !errors.Is(err, shared.ErrRemoteFailure) {
			t.Errorf("expected not found wrapping remote failure, got %v", err)
		}
	})
}
