package repositories

import (
	"testing"

	"github.com/desertthunder/anisync/internal/models"
)

func TestSyncRunRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSyncRunRepository(db)
			run := models.NewSyncRun(0, "", "lib", models.TriggerCLI)

			if err := repo.Create(run); err == nil {
				t.Fatal("expected validation error for empty user id")
			}
		})

		t.Run("MissingSequenceTable", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if _, err := db.Exec("DROP TABLE sync_runs_sequence"); err != nil {
				t.Fatalf("failed to drop sequence table: %v", err)
			}

			repo := NewSyncRunRepository(db)
			if err := repo.Create(models.NewSyncRun(0, "user", "lib", models.TriggerCLI)); err == nil {
				t.Fatal("expected error without sequence table")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if _, err := NewSyncRunRepository(db).Get("nonexistent-id"); err == nil {
				t.Fatal("expected error when getting nonexistent run")
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			run := models.NewSyncRun(1, "user", "lib", models.TriggerCLI)
			run.SetID("nonexistent-id")

			if err := NewSyncRunRepository(db).Update(run); err == nil {
				t.Fatal("expected error when updating nonexistent run")
			}
		})

		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSyncRunRepository(db)
			run := models.NewSyncRun(0, "user", "lib", models.TriggerCLI)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}

			run.SetStatus("exploded")
			if err := repo.Update(run); err == nil {
				t.Fatal("expected validation error for unknown status")
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if err := NewSyncRunRepository(db).Delete("nonexistent-id"); err == nil {
				t.Fatal("expected error when deleting nonexistent run")
			}
		})
	})
}

func TestMissingSeriesRepositoryErrors(t *testing.T) {
	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewMissingSeriesRepository(db, nil)
		db.Close()

		// Add logs and swallows the failure.
		repo.Add(models.MissingSeriesEntry{MediaServerID: "s1", Name: "Show"})

		if _, err := repo.LoadAll(); err == nil {
			t.Error("expected LoadAll error on closed database")
		}
		if _, err := repo.Remove("s1"); err == nil {
			t.Error("expected Remove error on closed database")
		}
	})
}
