package models

import (
	"sort"
	"strings"
	"time"
)

// ProviderAniList is the Jellyfin provider id key that links a series directly to AniList.
const ProviderAniList = "AniList"

// SeriesRecord is a Jellyfin series as returned by the Items API.
type SeriesRecord struct {
	ID           string            `json:"Id"`
	Name         string            `json:"Name"`
	PremiereDate string            `json:"PremiereDate,omitempty"`
	EndDate      string            `json:"EndDate,omitempty"`
	ProviderIDs  map[string]string `json:"ProviderIds,omitempty"`
}

// ProviderID looks up a provider id by name, ignoring case.
func (s SeriesRecord) ProviderID(name string) (string, bool) {
	if v, ok := s.ProviderIDs[name]; ok {
		return v, v != ""
	}
	for k, v := range s.ProviderIDs {
		if strings.EqualFold(k, name) {
			return v, v != ""
		}
	}
	return "", false
}

// HasProviderID reports whether the series carries any value for the named provider.
func (s SeriesRecord) HasProviderID(name string) bool {
	_, ok := s.ProviderID(name)
	return ok
}

var premiereLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.0000000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// PremiereYear extracts the year from PremiereDate, reporting false when the date is absent or unparseable.
func (s SeriesRecord) PremiereYear() (int, bool) {
	return YearOf(s.PremiereDate)
}

// YearOf parses the year out of a Jellyfin date string such as "2002-10-03T00:00:00.0000000Z".
func YearOf(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return 0, false
	}
	for _, layout := range premiereLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Year(), true
		}
	}
	if len(date) >= 10 {
		if t, err := time.Parse("2006-01-02", date[:10]); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// EpisodeProgress is one episode of a series and the user's played flag.
type EpisodeProgress struct {
	EpisodeID     string `json:"episodeId"`
	EpisodeName   string `json:"episodeName"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	IsPlayed      bool   `json:"isPlayed"`
}

// SortEpisodes orders episodes by (season, episode) ascending, in place.
func SortEpisodes(episodes []EpisodeProgress) {
	sort.SliceStable(episodes, func(i, j int) bool {
		if episodes[i].SeasonNumber != episodes[j].SeasonNumber {
			return episodes[i].SeasonNumber < episodes[j].SeasonNumber
		}
		return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber
	})
}

// LastWatched returns the played episode with the highest (season, episode) pair.
//
// The input need not be sorted. ok is false when nothing has been played.
func LastWatched(episodes []EpisodeProgress) (EpisodeProgress, bool) {
	var (
		last  EpisodeProgress
		found bool
	)
	for _, ep := range episodes {
		if !ep.IsPlayed {
			continue
		}
		if !found || ep.SeasonNumber > last.SeasonNumber ||
			(ep.SeasonNumber == last.SeasonNumber && ep.EpisodeNumber > last.EpisodeNumber) {
			last = ep
			found = true
		}
	}
	return last, found
}

// Library is a Jellyfin virtual folder.
type Library struct {
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
	ItemID         string `json:"ItemId"`
}

// MediaUser is a Jellyfin account.
type MediaUser struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}
