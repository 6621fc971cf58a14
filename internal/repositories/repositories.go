// package repositories provides persistence for sync history and the missing-series ledger.
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// MissingSeriesStore is a ledger of unresolved series that operators can also prune.
type MissingSeriesStore interface {
	Add(entry models.MissingSeriesEntry)
	LoadAll() ([]models.MissingSeriesEntry, error)
	Remove(mediaServerID string) (bool, error)
}

// NewLedger returns the ledger backend selected by cfg. The sqlite backend requires db.
func NewLedger(cfg shared.LedgerConfig, db *sql.DB, logger *log.Logger) (MissingSeriesStore, error) {
	switch cfg.Backend {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = DefaultLedgerFile
		}
		return NewFileLedger(path, logger), nil
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite ledger requires a database", shared.ErrInvalidConfig)
		}
		return NewMissingSeriesRepository(db, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown ledger backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers give runs a short, ordered handle (run #42) independent of UUIDs.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}
