// package services defines the media server and catalog clients used by the sync engine
//
// Jellyfin (REST), AniList (GraphQL)
package services

import (
	"context"

	"github.com/desertthunder/anisync/internal/models"
)

// MediaServer reads series, libraries and watch state from a media server.
type MediaServer interface {
	// Series fetches one series by id. Returns [shared.ErrSeriesNotFound] when absent.
	Series(ctx context.Context, seriesID string) (*models.SeriesRecord, error)

	// LibrarySeries lists every series under a library folder.
	LibrarySeries(ctx context.Context, libraryID string) ([]models.SeriesRecord, error)

	// Libraries lists the server's virtual folders.
	Libraries(ctx context.Context) ([]models.Library, error)

	// Episodes returns the user's per-episode watch state for a series, ordered by (season, episode).
	Episodes(ctx context.Context, seriesID, userID string) ([]models.EpisodeProgress, error)

	// Users lists media server accounts.
	Users(ctx context.Context) ([]models.MediaUser, error)

	// Name returns the name of the server (e.g., "Jellyfin")
	Name() string
}

// LibraryRefresher can look up a series by TVDB id and ask the server to rescan it.
type LibraryRefresher interface {
	FindSeriesByTvdbID(ctx context.Context, tvdbID string) (*models.SeriesRecord, error)
	RefreshSeries(ctx context.Context, seriesID string) error
}

// Catalog is a remote anime tracking service holding the viewer's list.
type Catalog interface {
	// MediaByID fetches a catalog entry and the viewer's list entry for it, if any.
	MediaByID(ctx context.Context, mediaID int) (*models.CatalogMedia, error)

	// SearchMedia returns up to ten candidates for search. A year of 0 disables the season filter.
	SearchMedia(ctx context.Context, search string, year int) ([]models.CatalogIdentity, error)

	// CreateEntry adds mediaID to the viewer's list.
	CreateEntry(ctx context.Context, mediaID, progress int, status string) (*models.ListEntry, error)

	// UpdateEntryProgress sets progress on an existing list entry.
	UpdateEntryProgress(ctx context.Context, entryID, progress int) (*models.ListEntry, error)

	// Viewer returns the account behind the client's token.
	Viewer(ctx context.Context) (*models.CatalogUser, error)

	// Name returns the name of the service (e.g., "AniList")
	Name() string
}
