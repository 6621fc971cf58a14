package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SyncStatus categorizes the outcome of syncing one series.
type SyncStatus int

const (
	StatusSuccess SyncStatus = iota
	StatusSuccessViaSearch
	StatusNoIdentity
	StatusError
)

// SyncStatuses lists every status in display order.
var SyncStatuses = []SyncStatus{StatusSuccess, StatusSuccessViaSearch, StatusNoIdentity, StatusError}

// String returns the machine name of the status, used in JSON and the database.
func (s SyncStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuccessViaSearch:
		return "success_via_search"
	case StatusNoIdentity:
		return "no_identity"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Label returns a human-readable heading for the status.
func (s SyncStatus) Label() string {
	switch s {
	case StatusSuccess:
		return "Synced"
	case StatusSuccessViaSearch:
		return "Synced via search"
	case StatusNoIdentity:
		return "No AniList match"
	case StatusError:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsSuccess reports whether the status represents an applied update.
func (s SyncStatus) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSuccessViaSearch
}

// ParseSyncStatus is the inverse of [SyncStatus.String].
func ParseSyncStatus(v string) (SyncStatus, error) {
	for _, s := range SyncStatuses {
		if s.String() == strings.ToLower(strings.TrimSpace(v)) {
			return s, nil
		}
	}
	return StatusError, fmt.Errorf("unknown sync status %q", v)
}

func (s SyncStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SyncStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseSyncStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SyncResult is the outcome of syncing one series.
type SyncResult struct {
	SeriesID           string          `json:"seriesId"`
	SeriesName         string          `json:"seriesName"`
	CatalogID          *int            `json:"catalogId,omitempty"`
	LastWatchedSeason  int             `json:"lastWatchedSeason"`
	LastWatchedEpisode int             `json:"lastWatchedEpisode"`
	Status             SyncStatus      `json:"status"`
	Message            string          `json:"message"`
	RawResponse        json.RawMessage `json:"rawResponse,omitempty"`
	Err                error           `json:"-"`
}

// Missing series reasons.
const (
	ReasonNoProviderID      = "No AniList provider ID and search failed"
	ReasonInvalidProviderID = "AniList search by name failed"
)

// MissingSeriesEntry records a series that could not be matched to a catalog identity.
type MissingSeriesEntry struct {
	MediaServerID        string            `json:"mediaServerId"`
	Name                 string            `json:"name"`
	PremiereDate         string            `json:"premiereDate,omitempty"`
	FirstSeenAt          time.Time         `json:"firstSeen"`
	AlternateProviderIDs map[string]string `json:"alternateProviderIds,omitempty"`
	SearchedName         string            `json:"searchedName"`
	Reason               string            `json:"reason"`
}
