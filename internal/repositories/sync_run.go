package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// SyncRunRepository implements models.Repository[*models.SyncRun] for sync history.
//
// Per-series results live in sync_run_items and are replaced wholesale on every update.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

const syncRunColumns = `
	id, sequence, user_id, library_id, trigger_source, status,
	total, succeeded, via_search, no_identity, failed,
	started_at, completed_at, created_at, updated_at, deleted_at
`

// Create inserts a new sync run with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sync_runs (
			id, sequence, user_id, library_id, trigger_source, status,
			total, succeeded, via_search, no_identity, failed,
			started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query,
		id,
		sequence,
		run.UserID(),
		run.LibraryID(),
		run.Trigger(),
		run.Status(),
		run.Total(),
		run.Succeeded(),
		run.ViaSearch(),
		run.NoIdentity(),
		run.Failed(),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	if err := insertItems(tx, id, run.Items()); err != nil {
		return err
	}
	return tx.Commit()
}

// Get retrieves a sync run and its items by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.items(id)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		run.SetItems(items)
	}
	return run, nil
}

// GetBySequence retrieves a sync run and its items by its sequence number
func (r *SyncRunRepository) GetBySequence(sequence int) (*models.SyncRun, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM sync_runs WHERE sequence = ? AND deleted_at IS NULL`, sequence).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync run #%d not found: %w", sequence, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sync run #%d: %w", sequence, err)
	}
	return r.Get(id)
}

// Update writes the run's status, totals and items
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE sync_runs
		SET status = ?, total = ?, succeeded = ?, via_search = ?, no_identity = ?,
			failed = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := tx.Exec(query,
		run.Status(),
		run.Total(),
		run.Succeeded(),
		run.ViaSearch(),
		run.NoIdentity(),
		run.Failed(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found or already deleted: %s", run.ID())
	}

	if _, err := tx.Exec("DELETE FROM sync_run_items WHERE run_id = ?", run.ID()); err != nil {
		return fmt.Errorf("failed to clear sync run items: %w", err)
	}
	if err := insertItems(tx, run.ID(), run.Items()); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete soft-deletes a sync run by ID
func (r *SyncRunRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found or already deleted: %s", id)
	}
	return nil
}

// List retrieves sync runs matching criteria, newest first. Items are not loaded.
//
// Supported criteria: user_id, library_id, status (strings) and limit (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if libraryID, ok := criteria["library_id"].(string); ok && libraryID != "" {
		query += " AND library_id = ?"
		args = append(args, libraryID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *SyncRunRepository) items(runID string) ([]models.SyncResult, error) {
	rows, err := r.db.Query(`
		SELECT series_id, series_name, catalog_id, last_season, last_episode, status, message
		FROM sync_run_items
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run items: %w", err)
	}
	defer rows.Close()

	var items []models.SyncResult
	for rows.Next() {
		var (
			item      models.SyncResult
			catalogID sql.NullInt64
			status    string
		)
		if err := rows.Scan(&item.SeriesID, &item.SeriesName, &catalogID, &item.LastWatchedSeason, &item.LastWatchedEpisode, &status, &item.Message); err != nil {
			return nil, fmt.Errorf("failed to scan sync run item: %w", err)
		}
		if catalogID.Valid {
			id := int(catalogID.Int64)
			item.CatalogID = &id
		}
		if item.Status, err = models.ParseSyncStatus(status); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertItems(tx *sql.Tx, runID string, items []models.SyncResult) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sync_run_items (
			run_id, position, series_id, series_name, catalog_id,
			last_season, last_episode, status, message
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range items {
		var catalogID any
		if item.CatalogID != nil {
			catalogID = *item.CatalogID
		}
		_, err := stmt.Exec(runID, i, item.SeriesID, item.SeriesName, catalogID,
			item.LastWatchedSeason, item.LastWatchedEpisode, item.Status.String(), item.Message)
		if err != nil {
			return fmt.Errorf("failed to insert sync run item %d: %w", i, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOne scans a single [sql.Row] into a [models.SyncRun]
func (r *SyncRunRepository) scanOne(row *sql.Row) (*models.SyncRun, error) {
	run, err := scanSyncRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync run not found: %w", err)
	}
	return run, err
}

// scanRow scans a row from [sql.Rows] into a [models.SyncRun]
func (r *SyncRunRepository) scanRow(rows *sql.Rows) (*models.SyncRun, error) {
	return scanSyncRun(rows)
}

func scanSyncRun(s rowScanner) (*models.SyncRun, error) {
	var (
		id          string
		sequence    int
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
		completedAt sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &userID, &libraryID, &trigger, &status,
		&total, &succeeded, &viaSearch, &noIdentity, &failed,
		&startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run := models.NewSyncRun(sequence, userID, libraryID, trigger)
	run.SetID(id)
	run.SetStatus(status)
	run.SetCounts(total, succeeded, viaSearch, noIdentity, failed)
	run.SetStartedAt(startedAt)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
