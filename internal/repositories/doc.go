// Package repositories implements persistence for sync history and unresolved series.
//
// Key Implementations:
//   - [SyncRunRepository] : SQLite history of library syncs with per-series items
//   - [FileLedger] : JSON-file ledger guarded by a mutex and a cross-process file lock
//   - [MissingSeriesRepository] : SQLite ledger backend with first-entry-wins inserts
//
// Sync runs support soft deletes via deleted_at timestamps and are excluded from queries once deleted.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
