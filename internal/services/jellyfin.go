// Jellyfin REST implementation of [MediaServer] and [LibraryRefresher]
//
// API reference: https://api.jellyfin.org/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

const (
	jellyfinTokenHeader = "X-Emby-Token"
	seriesFields        = "ProviderIds,PremiereDate,EndDate"
	librarySeriesFields = "ProviderIds,RecursiveItemCount,PremiereDate,EndDate"
)

type jellyfinItems[T any] struct {
	Items            []T `json:"Items"`
	TotalRecordCount int `json:"TotalRecordCount"`
}

type jellyfinEpisode struct {
	ID                string `json:"Id"`
	Name              string `json:"Name"`
	IndexNumber       *int   `json:"IndexNumber"`
	ParentIndexNumber *int   `json:"ParentIndexNumber"`
	UserData          *struct {
		Played bool `json:"Played"`
	} `json:"UserData"`
}

// JellyfinService implements [MediaServer] for a Jellyfin server authenticated with an API key.
type JellyfinService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewJellyfinService creates a client for the server at baseURL.
func NewJellyfinService(baseURL, apiKey string, client *http.Client, logger *log.Logger) *JellyfinService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &JellyfinService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
		logger:     logger,
	}
}

func (s *JellyfinService) Name() string {
	return "Jellyfin"
}

// doRequest performs an authenticated request and decodes a JSON body into result when non-nil.
func (s *JellyfinService) doRequest(ctx context.Context, method, endpoint string, query url.Values, result any) error {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(jellyfinTokenHeader, s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrServiceUnavailable, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: jellyfin %s %s: status %d", shared.ErrAPIRequest, method, endpoint, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Series fetches one series with its provider ids and dates.
func (s *JellyfinService) Series(ctx context.Context, seriesID string) (*models.SeriesRecord, error) {
	query := url.Values{
		"ids":              {seriesID},
		"IncludeItemTypes": {"Series"},
		"Recursive":        {"true"},
		"Fields":           {seriesFields},
		"limit":            {"1"},
	}

	var response jellyfinItems[models.SeriesRecord]
	if err := s.doRequest(ctx, http.MethodGet, "/Items", query, &response); err != nil {
		return nil, err
	}
	if len(response.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrSeriesNotFound, seriesID)
	}
	return &response.Items[0], nil
}

// LibrarySeries lists every series under libraryID.
func (s *JellyfinService) LibrarySeries(ctx context.Context, libraryID string) ([]models.SeriesRecord, error) {
	query := url.Values{
		"ParentId":         {libraryID},
		"IncludeItemTypes": {"Series"},
		"Recursive":        {"true"},
		"Fields":           {librarySeriesFields},
		"limit":            {"1000"},
		"StartIndex":       {"0"},
	}

	var response jellyfinItems[models.SeriesRecord]
	if err := s.doRequest(ctx, http.MethodGet, "/Items", query, &response); err != nil {
		return nil, err
	}
	s.logger.Debug("fetched library series", "library", libraryID, "count", len(response.Items))
	return response.Items, nil
}

// Libraries lists virtual folders.
func (s *JellyfinService) Libraries(ctx context.Context) ([]models.Library, error) {
	var libraries []models.Library
	if err := s.doRequest(ctx, http.MethodGet, "/Library/VirtualFolders", nil, &libraries); err != nil {
		return nil, err
	}
	return libraries, nil
}

// Episodes returns every episode of seriesID with userID's played flag, sorted by (season, episode).
// Missing season or episode numbers are treated as 0.
func (s *JellyfinService) Episodes(ctx context.Context, seriesID, userID string) ([]models.EpisodeProgress, error) {
	query := url.Values{
		"UserId": {userID},
		"Fields": {"UserData"},
		"limit":  {"1000"},
	}

	var response jellyfinItems[jellyfinEpisode]
	endpoint := fmt.Sprintf("/Shows/%s/Episodes", url.PathEscape(seriesID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, &response); err != nil {
		return nil, err
	}

	episodes := make([]models.EpisodeProgress, 0, len(response.Items))
	for _, item := range response.Items {
		ep := models.EpisodeProgress{EpisodeID: item.ID, EpisodeName: item.Name}
		if item.IndexNumber != nil {
			ep.EpisodeNumber = *item.IndexNumber
		}
		if item.ParentIndexNumber != nil {
			ep.SeasonNumber = *item.ParentIndexNumber
		}
		if item.UserData != nil {
			ep.IsPlayed = item.UserData.Played
		}
		episodes = append(episodes, ep)
	}
	models.SortEpisodes(episodes)
	return episodes, nil
}

// Users lists Jellyfin accounts.
func (s *JellyfinService) Users(ctx context.Context) ([]models.MediaUser, error) {
	var users []models.MediaUser
	if err := s.doRequest(ctx, http.MethodGet, "/Users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserByName finds a Jellyfin account by name, ignoring case.
func (s *JellyfinService) UserByName(ctx context.Context, name string) (*models.MediaUser, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Name, name) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: jellyfin user %q", shared.ErrInvalidArgument, name)
}

// FindSeriesByTvdbID finds the series whose Tvdb provider id equals tvdbID.
func (s *JellyfinService) FindSeriesByTvdbID(ctx context.Context, tvdbID string) (*models.SeriesRecord, error) {
	query := url.Values{
		"IncludeItemTypes":    {"Series"},
		"Recursive":           {"true"},
		"Fields":              {"ProviderIds"},
		"AnyProviderIdEquals": {"Tvdb." + tvdbID},
	}

	var response jellyfinItems[models.SeriesRecord]
	if err := s.doRequest(ctx, http.MethodGet, "/Items", query, &response); err != nil {
		return nil, err
	}
	for _, item := range response.Items {
		if id, ok := item.ProviderID("Tvdb"); ok && id == tvdbID {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: tvdb id %s", shared.ErrSeriesNotFound, tvdbID)
}

// RefreshSeries asks Jellyfin to rescan a series' metadata and files.
func (s *JellyfinService) RefreshSeries(ctx context.Context, seriesID string) error {
	query := url.Values{
		"Recursive":           {"true"},
		"MetadataRefreshMode": {"Default"},
		"ImageRefreshMode":    {"Default"},
	}
	endpoint := fmt.Sprintf("/Items/%s/Refresh", url.PathEscape(seriesID))
	return s.doRequest(ctx, http.MethodPost, endpoint, query, nil)
}
