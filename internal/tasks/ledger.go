package tasks

import (
	"strings"
	"time"

	"github.com/desertthunder/anisync/internal/models"
)

// Ledger records series that could not be matched to a catalog identity.
//
// Add keeps the first entry for a media server id and must not fail the caller's sync.
type Ledger interface {
	Add(entry models.MissingSeriesEntry)
	LoadAll() ([]models.MissingSeriesEntry, error)
}

// NewMissingEntry builds a ledger entry for series, keeping its non-AniList provider ids.
func NewMissingEntry(series models.SeriesRecord, searchedName, reason string, now time.Time) models.MissingSeriesEntry {
	var alternates map[string]string
	for k, v := range series.ProviderIDs {
		if strings.EqualFold(k, models.ProviderAniList) || v == "" {
			continue
		}
		if alternates == nil {
			alternates = make(map[string]string)
		}
		alternates[k] = v
	}
	return models.MissingSeriesEntry{
		MediaServerID:        series.ID,
		Name:                 series.Name,
		PremiereDate:         series.PremiereDate,
		FirstSeenAt:          now.UTC(),
		AlternateProviderIDs: alternates,
		SearchedName:         searchedName,
		Reason:               reason,
	}
}
