package tasks

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
)

// Summary aggregates the results of a library sync.
type Summary struct {
	Total      int
	Counts     map[models.SyncStatus]int
	NoIdentity []string // series names without a catalog match
	Failed     []models.SyncResult
}

// Summarize counts results by status.
func Summarize(results []models.SyncResult) Summary {
	s := Summary{Total: len(results), Counts: make(map[models.SyncStatus]int, len(models.SyncStatuses))}
	for _, r := range results {
		s.Counts[r.Status]++
		switch r.Status {
		case models.StatusNoIdentity:
			s.NoIdentity = append(s.NoIdentity, r.SeriesName)
		case models.StatusError:
			s.Failed = append(s.Failed, r)
		}
	}
	return s
}

// Succeeded counts direct and search-based successes.
func (s Summary) Succeeded() int {
	return s.Counts[models.StatusSuccess] + s.Counts[models.StatusSuccessViaSearch]
}

func (s Summary) String() string {
	return fmt.Sprintf("%d series: %d synced (%d via search), %d without AniList match, %d failed",
		s.Total, s.Succeeded(), s.Counts[models.StatusSuccessViaSearch],
		s.Counts[models.StatusNoIdentity], s.Counts[models.StatusError])
}

// Log writes the summary and each unmatched or failed series to logger.
func (s Summary) Log(logger *log.Logger) {
	logger.Info("library sync complete",
		"total", s.Total,
		"success", s.Counts[models.StatusSuccess],
		"via_search", s.Counts[models.StatusSuccessViaSearch],
		"no_identity", s.Counts[models.StatusNoIdentity],
		"failed", s.Counts[models.StatusError],
	)
	for _, name := range s.NoIdentity {
		logger.Warn("no AniList match", "series", name)
	}
	for _, r := range s.Failed {
		logger.Error("sync failed", "series", r.SeriesName, "message", r.Message)
	}
}
