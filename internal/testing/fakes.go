package testing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// SearchCall records one [FakeCatalog.SearchMedia] invocation.
type SearchCall struct {
	Search string
	Year   int
}

// FakeCatalog is an in-memory catalog holding a single viewer's list.
type FakeCatalog struct {
	mu sync.Mutex

	Titles  map[int]string                      // known media ids and their romaji titles
	Entries map[int]*models.ListEntry           // list entries keyed by media id
	Results map[string][]models.CatalogIdentity // search results keyed by search string

	SearchErr error
	MediaErr  error
	SaveErr   error

	SearchCalls []SearchCall
	MediaCalls  int
	Creates     int
	Updates     int

	nextEntryID int
}

// NewFakeCatalog creates an empty [FakeCatalog].
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Titles:      make(map[int]string),
		Entries:     make(map[int]*models.ListEntry),
		Results:     make(map[string][]models.CatalogIdentity),
		nextEntryID: 1000,
	}
}

func (f *FakeCatalog) Name() string { return "fake-catalog" }

// AddMedia registers a media id so MediaByID can find it.
func (f *FakeCatalog) AddMedia(id int, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Titles[id] = title
}

// AddEntry puts mediaID on the list with progress.
func (f *FakeCatalog) AddEntry(mediaID, progress int) *models.ListEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextEntryID++
	entry := &models.ListEntry{ID: f.nextEntryID, MediaID: mediaID, Progress: progress, Status: models.ListStatusCurrent}
	f.Entries[mediaID] = entry
	return entry
}

// Entry returns a copy of the list entry for mediaID.
func (f *FakeCatalog) Entry(mediaID int) (models.ListEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.Entries[mediaID]
	if !ok {
		return models.ListEntry{}, false
	}
	return *e, true
}

func (f *FakeCatalog) MediaByID(ctx context.Context, mediaID int) (*models.CatalogMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MediaCalls++

	if f.MediaErr != nil {
		return nil, f.MediaErr
	}
	title, ok := f.Titles[mediaID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", shared.ErrCatalogNotFound, mediaID)
	}

	media := &models.CatalogMedia{ID: mediaID, RomajiTitle: title}
	if e, ok := f.Entries[mediaID]; ok {
		copied := *e
		media.Entry = &copied
	}
	return media, nil
}

func (f *FakeCatalog) SearchMedia(ctx context.Context, search string, year int) ([]models.CatalogIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls = append(f.SearchCalls, SearchCall{Search: search, Year: year})

	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return f.Results[search], nil
}

func (f *FakeCatalog) CreateEntry(ctx context.Context, mediaID, progress int, status string) (*models.ListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Creates++

	if f.SaveErr != nil {
		return nil, f.SaveErr
	}
	if existing, ok := f.Entries[mediaID]; ok {
		existing.Progress = progress
		return f.withRaw(existing), nil
	}
	f.nextEntryID++
	entry := &models.ListEntry{ID: f.nextEntryID, MediaID: mediaID, Progress: progress, Status: status, Title: f.Titles[mediaID]}
	f.Entries[mediaID] = entry
	return f.withRaw(entry), nil
}

func (f *FakeCatalog) UpdateEntryProgress(ctx context.Context, entryID, progress int) (*models.ListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates++

	if f.SaveErr != nil {
		return nil, f.SaveErr
	}
	for _, e := range f.Entries {
		if e.ID == entryID {
			e.Progress = progress
			return f.withRaw(e), nil
		}
	}
	return nil, fmt.Errorf("%w: entry %d", shared.ErrAPIRequest, entryID)
}

func (f *FakeCatalog) Viewer(ctx context.Context) (*models.CatalogUser, error) {
	return &models.CatalogUser{ID: 1, Name: "viewer"}, nil
}

func (f *FakeCatalog) withRaw(e *models.ListEntry) *models.ListEntry {
	copied := *e
	copied.Raw = []byte(fmt.Sprintf(`{"data":{"SaveMediaListEntry":{"id":%d,"progress":%d}}}`, e.ID, e.Progress))
	return &copied
}

// EntryCount returns the number of list entries.
func (f *FakeCatalog) EntryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Entries)
}

// FakeMediaServer is an in-memory media server.
type FakeMediaServer struct {
	mu sync.Mutex

	SeriesByID  map[string]models.SeriesRecord
	Library     map[string][]string // library id -> series ids, in order
	Folders     []models.Library
	EpisodesOf  map[string][]models.EpisodeProgress
	AccountList []models.MediaUser

	SeriesErr   error
	LibraryErr  error
	EpisodeErrs map[string]error
	Refreshed   []string
}

// NewFakeMediaServer creates an empty [FakeMediaServer].
func NewFakeMediaServer() *FakeMediaServer {
	return &FakeMediaServer{
		SeriesByID:  make(map[string]models.SeriesRecord),
		Library:     make(map[string][]string),
		EpisodesOf:  make(map[string][]models.EpisodeProgress),
		EpisodeErrs: make(map[string]error),
	}
}

func (f *FakeMediaServer) Name() string { return "fake-media" }

// AddSeries registers series in libraryID with episodes.
func (f *FakeMediaServer) AddSeries(libraryID string, series models.SeriesRecord, episodes ...models.EpisodeProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SeriesByID[series.ID] = series
	f.Library[libraryID] = append(f.Library[libraryID], series.ID)
	f.EpisodesOf[series.ID] = episodes
}

func (f *FakeMediaServer) Series(ctx context.Context, seriesID string) (*models.SeriesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SeriesErr != nil {
		return nil, f.SeriesErr
	}
	s, ok := f.SeriesByID[seriesID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSeriesNotFound, seriesID)
	}
	return &s, nil
}

func (f *FakeMediaServer) LibrarySeries(ctx context.Context, libraryID string) ([]models.SeriesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LibraryErr != nil {
		return nil, f.LibraryErr
	}
	var out []models.SeriesRecord
	for _, id := range f.Library[libraryID] {
		out = append(out, f.SeriesByID[id])
	}
	return out, nil
}

func (f *FakeMediaServer) Libraries(ctx context.Context) ([]models.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LibraryErr != nil {
		return nil, f.LibraryErr
	}
	return append([]models.Library(nil), f.Folders...), nil
}

func (f *FakeMediaServer) Episodes(ctx context.Context, seriesID, userID string) ([]models.EpisodeProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.EpisodeErrs[seriesID]; err != nil {
		return nil, err
	}
	eps := append([]models.EpisodeProgress(nil), f.EpisodesOf[seriesID]...)
	models.SortEpisodes(eps)
	return eps, nil
}

func (f *FakeMediaServer) Users(ctx context.Context) ([]models.MediaUser, error) {
	return f.AccountList, nil
}

// UserByName finds an account in AccountList, ignoring case.
func (f *FakeMediaServer) UserByName(ctx context.Context, name string) (*models.MediaUser, error) {
	for _, u := range f.AccountList {
		if strings.EqualFold(u.Name, name) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %q", shared.ErrInvalidArgument, name)
}

func (f *FakeMediaServer) FindSeriesByTvdbID(ctx context.Context, tvdbID string) (*models.SeriesRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.SeriesByID))
	for id := range f.SeriesByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := f.SeriesByID[id]
		if v, ok := s.ProviderID("Tvdb"); ok && v == tvdbID {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: tvdb %s", shared.ErrSeriesNotFound, tvdbID)
}

func (f *FakeMediaServer) RefreshSeries(ctx context.Context, seriesID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Refreshed = append(f.Refreshed, seriesID)
	return nil
}

// RefreshedIDs returns a copy of refreshed series ids.
func (f *FakeMediaServer) RefreshedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Refreshed...)
}

// MemoryLedger is an in-memory missing-series ledger with first-entry-wins dedup.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []models.MissingSeriesEntry
}

func (l *MemoryLedger) Add(entry models.MissingSeriesEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.MediaServerID == entry.MediaServerID {
			return
		}
	}
	l.entries = append(l.entries, entry)
}

func (l *MemoryLedger) LoadAll() ([]models.MissingSeriesEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.MissingSeriesEntry(nil), l.entries...), nil
}

func (l *MemoryLedger) Remove(mediaServerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.MediaServerID == mediaServerID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
