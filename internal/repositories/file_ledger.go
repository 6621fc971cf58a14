package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/gofrs/flock"
)

// DefaultLedgerFile is the file ledger's default name.
const DefaultLedgerFile = "missing_anilist_series.json"

// FileLedger stores unresolved series as a JSON array on disk.
//
// Every read-modify-write holds an in-process mutex and an advisory lock on "<path>.lock",
// so a webhook server and a CLI invocation can share one file.
type FileLedger struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger *log.Logger
}

// NewFileLedger creates a [FileLedger] at path. The file is created on first write.
func NewFileLedger(path string, logger *log.Logger) *FileLedger {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &FileLedger{path: path, lock: flock.New(path + ".lock"), logger: logger}
}

// Path returns the ledger file location.
func (l *FileLedger) Path() string { return l.path }

// Add appends entry unless its media server id is already recorded. Failures are logged, not returned.
func (l *FileLedger) Add(entry models.MissingSeriesEntry) {
	err := l.withLock(func() error {
		entries, err := l.read()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.MediaServerID == entry.MediaServerID {
				return nil
			}
		}
		return l.write(append(entries, entry))
	})
	if err != nil {
		l.logger.Error("failed to record missing series", "series", entry.Name, "path", l.path, "error", err)
		return
	}
	l.logger.Debug("recorded missing series", "series", entry.Name, "id", entry.MediaServerID)
}

// LoadAll returns every recorded entry. A missing file is an empty ledger.
func (l *FileLedger) LoadAll() ([]models.MissingSeriesEntry, error) {
	var entries []models.MissingSeriesEntry
	err := l.withLock(func() error {
		var err error
		entries, err = l.read()
		return err
	})
	return entries, err
}

// Remove deletes the entry for mediaServerID, reporting whether it existed.
func (l *FileLedger) Remove(mediaServerID string) (bool, error) {
	removed := false
	err := l.withLock(func() error {
		entries, err := l.read()
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.MediaServerID == mediaServerID {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		if !removed {
			return nil
		}
		return l.write(kept)
	})
	return removed, err
}

func (l *FileLedger) withLock(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock ledger: %w", err)
	}
	defer l.lock.Unlock()

	return fn()
}

func (l *FileLedger) read() ([]models.MissingSeriesEntry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []models.MissingSeriesEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", l.path, err)
	}
	return entries, nil
}

// write replaces the ledger file atomically.
func (l *FileLedger) write(entries []models.MissingSeriesEntry) error {
	if entries == nil {
		entries = []models.MissingSeriesEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
