package tasks

import (
	"fmt"

	"github.com/desertthunder/anisync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	ResolveSeries
	ApplyProgress
	RecordMissing
	Pacing
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case ResolveSeries:
		return "resolve_series"
	case ApplyProgress:
		return "apply_progress"
	case RecordMissing:
		return "record_missing"
	case Pacing:
		return "pacing"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchLibraryUpdate(libraryID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching series from library %s...", libraryID),
	}
}

func foundSeriesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d series", total),
	}
}

func resolveSeriesUpdate(step, total int, series models.SeriesRecord) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveSeries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, series.Name),
	}
}

func applyProgressUpdate(step, total int, result models.SyncResult) ProgressUpdate {
	mark := "✓"
	if !result.Status.IsSuccess() {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   ApplyProgress,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s: %s", step, total, mark, result.SeriesName, result.Message),
		Data:    result,
	}
}

func recordMissingUpdate(step, total int, entry models.MissingSeriesEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordMissing,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Recorded missing: %s", step, total, entry.Name),
		Data:    entry,
	}
}

func pacingUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Pacing,
		Step:    step,
		Total:   total,
		Message: "Waiting before next request...",
	}
}

func completeUpdate(summary Summary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    summary.Total,
		Total:   summary.Total,
		Message: summary.String(),
		Data:    summary,
	}
}
