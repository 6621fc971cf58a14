package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncRun status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SyncRun triggers.
const (
	TriggerCLI     = "cli"
	TriggerWebhook = "webhook"
	TriggerTUI     = "tui"
)

// SyncRun records one bulk library sync and its per-status totals.
type SyncRun struct {
	base
	userID      string
	libraryID   string
	trigger     string
	status      string
	total       int
	succeeded   int
	viaSearch   int
	noIdentity  int
	failed      int
	startedAt   time.Time
	completedAt *time.Time
	items       []SyncResult
}

// NewSyncRun creates a running [SyncRun] for userID's sync of libraryID.
func NewSyncRun(sequence int, userID, libraryID, trigger string) *SyncRun {
	return &SyncRun{
		base:      newBase(sequence),
		userID:    userID,
		libraryID: libraryID,
		trigger:   trigger,
		status:    RunStatusRunning,
		startedAt: time.Now(),
	}
}

func (r *SyncRun) UserID() string { return r.userID }
func (r *SyncRun) LibraryID() string { return r.libraryID }
func (r *SyncRun) Trigger() string { return r.trigger }
func (r *SyncRun) Status() string { return r.status }
func (r *SyncRun) SetStatus(status string) { r.status = status }
func (r *SyncRun) Total() int { return r.total }
func (r *SyncRun) Succeeded() int { return r.succeeded }
func (r *SyncRun) ViaSearch() int { return r.viaSearch }
func (r *SyncRun) NoIdentity() int { return r.noIdentity }
func (r *SyncRun) Failed() int { return r.failed }
func (r *SyncRun) StartedAt() time.Time { return r.startedAt }
func (r *SyncRun) SetStartedAt(t time.Time) { r.startedAt = t }
func (r *SyncRun) CompletedAt() *time.Time { return r.completedAt }
func (r *SyncRun) SetCompletedAt(t *time.Time) { r.completedAt = t }
func (r *SyncRun) Items() []SyncResult { return r.items }

// SetCounts overwrites the per-status totals. Used when loading from storage.
func (r *SyncRun) SetCounts(total, succeeded, viaSearch, noIdentity, failed int) {
	r.total, r.succeeded, r.viaSearch, r.noIdentity, r.failed = total, succeeded, viaSearch, noIdentity, failed
}

// SetItems replaces the per-series results and recomputes the totals.
func (r *SyncRun) SetItems(items []SyncResult) {
	r.items = items
	r.total, r.succeeded, r.viaSearch, r.noIdentity, r.failed = len(items), 0, 0, 0, 0
	for _, item := range items {
		switch item.Status {
		case StatusSuccess:
			r.succeeded++
		case StatusSuccessViaSearch:
			r.viaSearch++
		case StatusNoIdentity:
			r.noIdentity++
		default:
			r.failed++
		}
	}
}

// Complete marks the run finished with results.
func (r *SyncRun) Complete(items []SyncResult) {
	r.SetItems(items)
	now := time.Now()
	r.completedAt = &now
	r.status = RunStatusCompleted
}

// Fail marks the run as aborted before producing results.
func (r *SyncRun) Fail() {
	now := time.Now()
	r.completedAt = &now
	r.status = RunStatusFailed
}

// Duration returns how long the run took, or time since start while running.
func (r *SyncRun) Duration() time.Duration {
	if r.completedAt == nil {
		return time.Since(r.startedAt)
	}
	return r.completedAt.Sub(r.startedAt)
}

// MarshalJSON exposes the run for `history --json`.
func (r *SyncRun) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string       `json:"id"`
		Sequence    int          `json:"sequence"`
		UserID      string       `json:"userId"`
		LibraryID   string       `json:"libraryId,omitempty"`
		Trigger     string       `json:"trigger"`
		Status      string       `json:"status"`
		Total       int          `json:"total"`
		Succeeded   int          `json:"succeeded"`
		ViaSearch   int          `json:"viaSearch"`
		NoIdentity  int          `json:"noIdentity"`
		Failed      int          `json:"failed"`
		StartedAt   time.Time    `json:"startedAt"`
		CompletedAt *time.Time   `json:"completedAt,omitempty"`
		Items       []SyncResult `json:"items,omitempty"`
	}{
		r.ID(), r.Sequence(), r.userID, r.libraryID, r.trigger, r.status,
		r.total, r.succeeded, r.viaSearch, r.noIdentity, r.failed,
		r.startedAt, r.completedAt, r.items,
	})
}

// Validate checks required fields.
func (r *SyncRun) Validate() error {
	if r.userID == "" {
		return fmt.Errorf("user id is required")
	}
	if r.trigger == "" {
		return fmt.Errorf("trigger is required")
	}
	switch r.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid status %q", r.status)
	}
	if r.succeeded+r.viaSearch+r.noIdentity+r.failed != r.total {
		return fmt.Errorf("status totals do not add up to %d", r.total)
	}
	return nil
}
