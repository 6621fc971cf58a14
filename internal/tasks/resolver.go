package tasks

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
)

// titleSuffixes are stripped from series names, in order, before searching the catalog.
var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\(English Dub\)$`),
	regexp.MustCompile(`(?i)\s*\(Dub\)$`),
	regexp.MustCompile(`(?i)\s*\(Sub\)$`),
	regexp.MustCompile(`(?i)\s*\(Subbed\)$`),
	regexp.MustCompile(`(?i)\s*\(Dubbed\)$`),
	regexp.MustCompile(`(?i)\s*\([^)]*Sub[^)]*\)$`),
	regexp.MustCompile(`(?i)\s*\([^)]*Dub[^)]*\)$`),
	regexp.MustCompile(`(?i)\s*-\s*.*$`),
	regexp.MustCompile(`(?i)\s*Season\s+\d+$`),
	regexp.MustCompile(`(?i)\s*S\d+$`),
}

// NormalizeTitle strips language tags, subtitles after a dash, and season markers from name.
func NormalizeTitle(name string) string {
	for _, re := range titleSuffixes {
		name = re.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}

// IsGoodMatch reports whether a candidate's romaji or english title equals key (ignoring case)
// and, when year is known, the candidate started within a year of it.
//
// A candidate without a start year counts as year 0.
func IsGoodMatch(key string, candidate models.CatalogIdentity, year int, hasYear bool) bool {
	for _, title := range []string{candidate.RomajiTitle, candidate.EnglishTitle} {
		if title == "" || !strings.EqualFold(key, title) {
			continue
		}
		if !hasYear || abs(year-candidate.StartYear) <= 1 {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Resolution is a resolved catalog identity.
type Resolution struct {
	CatalogID     int
	ViaDirectLink bool
	SearchedName  string // empty for direct links
}

// IdentityNotFoundError means neither a direct link nor a name search produced a catalog id.
type IdentityNotFoundError struct {
	SearchedName string
	Reason       string
	Err          error // search failure, nil when the search returned nothing
}

func (e *IdentityNotFoundError) Error() string {
	msg := fmt.Sprintf("%v for %q", shared.ErrIdentityNotFound, e.SearchedName)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *IdentityNotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrIdentityNotFound}
	}
	return []error{shared.ErrIdentityNotFound, e.Err}
}

// Resolver maps media server series to catalog ids.
type Resolver struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewResolver creates a [Resolver] searching catalog.
func NewResolver(catalog services.Catalog, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve returns the series' catalog id.
//
// An integer AniList provider id is trusted without a network call. Otherwise the normalized name is searched,
// filtered by premiere year, and the first exact title match within a year wins, falling back to the first
// candidate. An empty or failed search yields [*IdentityNotFoundError].
func (r *Resolver) Resolve(ctx context.Context, series models.SeriesRecord) (*Resolution, error) {
	raw, _ := series.ProviderID(models.ProviderAniList)
	if id, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		r.logger.Debug("using AniList provider id", "series", series.Name, "id", id)
		return &Resolution{CatalogID: id, ViaDirectLink: true}, nil
	}

	reason := models.ReasonNoProviderID
	if raw != "" {
		reason = models.ReasonInvalidProviderID
	}

	key := NormalizeTitle(series.Name)
	year, hasYear := series.PremiereYear()
	searchYear := 0
	if hasYear {
		searchYear = year
	}

	r.logger.Info("searching AniList", "series", series.Name, "search", key, "year", searchYear)
	candidates, err := r.catalog.SearchMedia(ctx, key, searchYear)
	if err != nil {
		r.logger.Warn("AniList search failed", "search", key, "error", err)
		return nil, &IdentityNotFoundError{SearchedName: key, Reason: reason, Err: err}
	}
	if len(candidates) == 0 {
		r.logger.Info("no search results", "search", key)
		return nil, &IdentityNotFoundError{SearchedName: key, Reason: reason}
	}

	for _, c := range candidates {
		if IsGoodMatch(key, c, year, hasYear) {
			r.logger.Info("selected match", "title", c.RomajiTitle, "id", c.ID)
			return &Resolution{CatalogID: c.ID, SearchedName: key}, nil
		}
	}

	first := candidates[0]
	r.logger.Info("no exact match, using first result", "title", first.RomajiTitle, "id", first.ID)
	return &Resolution{CatalogID: first.ID, SearchedName: key}, nil
}
