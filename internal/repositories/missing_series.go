package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// MissingSeriesRepository stores unresolved series in the missing_series table.
//
// It satisfies the same ledger contract as [FileLedger]; the UNIQUE media_server_id column keeps the first entry.
type MissingSeriesRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewMissingSeriesRepository creates a new MissingSeriesRepository with the given database connection
func NewMissingSeriesRepository(db *sql.DB, logger *log.Logger) *MissingSeriesRepository {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &MissingSeriesRepository{db: db, logger: logger}
}

// Add inserts entry unless its media server id exists. Failures are logged, not returned.
func (r *MissingSeriesRepository) Add(entry models.MissingSeriesEntry) {
	if err := r.insert(entry); err != nil {
		r.logger.Error("failed to record missing series", "series", entry.Name, "error", err)
	}
}

func (r *MissingSeriesRepository) insert(entry models.MissingSeriesEntry) error {
	alternates := entry.AlternateProviderIDs
	if alternates == nil {
		alternates = map[string]string{}
	}
	ids, err := json.Marshal(alternates)
	if err != nil {
		return fmt.Errorf("failed to encode provider ids: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO missing_series (
			media_server_id, name, premiere_date, first_seen,
			alternate_provider_ids, searched_name, reason
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		entry.MediaServerID,
		entry.Name,
		entry.PremiereDate,
		entry.FirstSeenAt,
		string(ids),
		entry.SearchedName,
		entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert missing series: %w", err)
	}
	return nil
}

// LoadAll returns every entry in insertion order.
func (r *MissingSeriesRepository) LoadAll() ([]models.MissingSeriesEntry, error) {
	rows, err := r.db.Query(`
		SELECT media_server_id, name, premiere_date, first_seen, alternate_provider_ids, searched_name, reason
		FROM missing_series
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing series: %w", err)
	}
	defer rows.Close()

	var entries []models.MissingSeriesEntry
	for rows.Next() {
		var (
			e   models.MissingSeriesEntry
			ids string
		)
		if err := rows.Scan(&e.MediaServerID, &e.Name, &e.PremiereDate, &e.FirstSeenAt, &ids, &e.SearchedName, &e.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan missing series: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &e.AlternateProviderIDs); err != nil {
			return nil, fmt.Errorf("failed to decode provider ids for %s: %w", e.MediaServerID, err)
		}
		if len(e.AlternateProviderIDs) == 0 {
			e.AlternateProviderIDs = nil
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Remove deletes the entry for mediaServerID, reporting whether it existed.
func (r *MissingSeriesRepository) Remove(mediaServerID string) (bool, error) {
	result, err := r.db.Exec("DELETE FROM missing_series WHERE media_server_id = ?", mediaServerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete missing series: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}
