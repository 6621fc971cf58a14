// AniList GraphQL implementation of [Catalog]
//
// Schema reference: https://docs.anilist.co/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	anilistGraphQLURL = "https://graphql.anilist.co"
	anilistAuthURL    = "https://anilist.co/api/v2/oauth/authorize"
	anilistTokenURL   = "https://anilist.co/api/v2/oauth/token"
)

const mediaByIDQuery = `query ($id: Int) {
  Media(id: $id, type: ANIME) {
    id
    title { romaji }
    mediaListEntry { id progress status }
  }
}`

const searchMediaQuery = `query ($search: String, $seasonYear: Int) {
  Page(page: 1, perPage: 10) {
    media(search: $search, type: ANIME, seasonYear: $seasonYear) {
      id
      title { romaji english native }
      startDate { year }
      format
      status
    }
  }
}`

const createEntryMutation = `mutation ($mediaId: Int, $progress: Int, $status: MediaListStatus) {
  SaveMediaListEntry(mediaId: $mediaId, progress: $progress, status: $status) {
    id
    mediaId
    progress
    status
    media { title { romaji } }
  }
}`

const updateEntryMutation = `mutation ($id: Int, $progress: Int) {
  SaveMediaListEntry(id: $id, progress: $progress) {
    id
    mediaId
    progress
    status
    media { title { romaji } }
  }
}`

const viewerQuery = `query { Viewer { id name } }`

type anilistTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// AniListMedia is the subset of the Media object anisync reads.
type AniListMedia struct {
	ID             int                `json:"id"`
	Title          anilistTitle       `json:"title"`
	StartDate      struct{ Year int } `json:"startDate"`
	Format         string             `json:"format"`
	Status         string             `json:"status"`
	MediaListEntry *AniListListEntry  `json:"mediaListEntry"`
}

// AniListListEntry is a MediaList object.
type AniListListEntry struct {
	ID       int    `json:"id"`
	MediaID  int    `json:"mediaId"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Media    *struct {
		Title anilistTitle `json:"title"`
	} `json:"media,omitempty"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// AniListOpts configures an [AniListService]. Zero values pick the defaults.
type AniListOpts struct {
	Endpoint         string
	BaseClient       *http.Client // transport under the bearer token; tests inject httptest clients here
	Limiter          *rate.Limiter
	RateLimitBackoff time.Duration
	TransientDelay   time.Duration
	Logger           *log.Logger
}

// AniListService implements [Catalog] against the AniList GraphQL API.
// Every call goes through an [Executor].
type AniListService struct {
	endpoint string
	exec     *Executor
	logger   *log.Logger
}

// NewAniListService creates a client authenticated with token. An empty token yields an anonymous client,
// which can search but not read or write list entries.
func NewAniListService(token string, opts AniListOpts) *AniListService {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = anilistGraphQLURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	client := opts.BaseClient
	if token != "" {
		ctx := context.Background()
		if opts.BaseClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.BaseClient)
		}
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	}

	return &AniListService{
		endpoint: endpoint,
		logger:   logger,
		exec: NewExecutor(ExecutorOpts{
			Client:           client,
			Limiter:          opts.Limiter,
			RateLimitBackoff: opts.RateLimitBackoff,
			TransientDelay:   opts.TransientDelay,
			Logger:           logger,
		}),
	}
}

func (s *AniListService) Name() string {
	return "AniList"
}

// do posts a GraphQL document and decodes data into out, returning the raw response body.
func (s *AniListService) do(ctx context.Context, query string, variables map[string]any, out any) ([]byte, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.exec.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return resp.Body, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	hasData := len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null"))
	if len(envelope.Errors) > 0 && !hasData {
		return resp.Body, fmt.Errorf("%w: %s", shared.ErrAPIRequest, envelope.Errors[0].Message)
	}

	if out != nil && hasData {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return resp.Body, fmt.Errorf("%w: failed to decode data: %v", shared.ErrAPIRequest, err)
		}
	}
	return resp.Body, nil
}

// MediaByID fetches a media item and the viewer's list entry for it.
func (s *AniListService) MediaByID(ctx context.Context, mediaID int) (*models.CatalogMedia, error) {
	var data struct {
		Media *AniListMedia `json:"Media"`
	}

	if _, err := s.do(ctx, mediaByIDQuery, map[string]any{"id": mediaID}, &data); err != nil {
		var remote *RemoteError
		if errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: AniList ID %d", shared.ErrCatalogNotFound, mediaID)
		}
		return nil, err
	}
	if data.Media == nil {
		return nil, fmt.Errorf("%w: AniList ID %d", shared.ErrCatalogNotFound, mediaID)
	}

	media := &models.CatalogMedia{ID: data.Media.ID, RomajiTitle: data.Media.Title.Romaji}
	if e := data.Media.MediaListEntry; e != nil {
		media.Entry = &models.ListEntry{
			ID:       e.ID,
			MediaID:  data.Media.ID,
			Progress: e.Progress,
			Status:   e.Status,
			Title:    data.Media.Title.Romaji,
		}
	}
	return media, nil
}

// SearchMedia runs the anime search, filtered to seasonYear when year is non-zero.
func (s *AniListService) SearchMedia(ctx context.Context, search string, year int) ([]models.CatalogIdentity, error) {
	vars := map[string]any{"search": search}
	if year > 0 {
		vars["seasonYear"] = year
	}

	var data struct {
		Page struct {
			Media []AniListMedia `json:"media"`
		} `json:"Page"`
	}
	if _, err := s.do(ctx, searchMediaQuery, vars, &data); err != nil {
		return nil, err
	}

	candidates := make([]models.CatalogIdentity, 0, len(data.Page.Media))
	for _, m := range data.Page.Media {
		candidates = append(candidates, models.CatalogIdentity{
			ID:           m.ID,
			RomajiTitle:  m.Title.Romaji,
			EnglishTitle: m.Title.English,
			NativeTitle:  m.Title.Native,
			StartYear:    m.StartDate.Year,
			Format:       m.Format,
			Status:       m.Status,
		})
	}
	return candidates, nil
}

// CreateEntry adds mediaID to the viewer's list with the given status and progress.
func (s *AniListService) CreateEntry(ctx context.Context, mediaID, progress int, status string) (*models.ListEntry, error) {
	vars := map[string]any{"mediaId": mediaID, "progress": progress, "status": status}
	return s.saveEntry(ctx, createEntryMutation, vars)
}

// UpdateEntryProgress sets progress on the list entry entryID.
func (s *AniListService) UpdateEntryProgress(ctx context.Context, entryID, progress int) (*models.ListEntry, error) {
	vars := map[string]any{"id": entryID, "progress": progress}
	return s.saveEntry(ctx, updateEntryMutation, vars)
}

func (s *AniListService) saveEntry(ctx context.Context, mutation string, vars map[string]any) (*models.ListEntry, error) {
	var data struct {
		Entry *AniListListEntry `json:"SaveMediaListEntry"`
	}

	raw, err := s.do(ctx, mutation, vars, &data)
	if err != nil {
		return nil, err
	}
	if data.Entry == nil {
		return nil, fmt.Errorf("%w: SaveMediaListEntry returned no entry", shared.ErrAPIRequest)
	}

	entry := &models.ListEntry{
		ID:       data.Entry.ID,
		MediaID:  data.Entry.MediaID,
		Progress: data.Entry.Progress,
		Status:   data.Entry.Status,
		Raw:      raw,
	}
	if data.Entry.Media != nil {
		entry.Title = data.Entry.Media.Title.Romaji
	}
	return entry, nil
}

// Viewer returns the authenticated AniList user.
func (s *AniListService) Viewer(ctx context.Context) (*models.CatalogUser, error) {
	var data struct {
		Viewer *models.CatalogUser `json:"Viewer"`
	}
	if _, err := s.do(ctx, viewerQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.Viewer == nil {
		return nil, fmt.Errorf("%w: no viewer for token", shared.ErrAuthFailed)
	}
	return data.Viewer, nil
}

// AniListOAuthConfig returns the authorization-code flow config for the AniList API client.
func AniListOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   anilistAuthURL,
			TokenURL:  anilistTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
