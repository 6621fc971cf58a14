package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	tu "github.com/desertthunder/anisync/internal/testing"
)

func TestCoordinator(t *testing.T) {
	ctx := context.Background()

	t.Run("creates entry when auto-add is enabled", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.AddMedia(10, "Frieren")

		entry, err := NewCoordinator(catalog, nil).ApplyProgress(ctx, 10, 5, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.Progress != 5 || entry.Status != models.ListStatusCurrent {
			t.Errorf("unexpected entry %+v", entry)
		}
		if len(entry.Raw) == 0 {
			t.Error("expected raw response")
		}
	})

	t.Run("idempotent for equal input", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.AddMedia(10, "Frieren")
		c := NewCoordinator(catalog, nil)

		for i := 0; i < 2; i++ {
			if _, err := c.ApplyProgress(ctx, 10, 5, true); err != nil {
				t.Fatalf("call %d: %v", i, err)
			}
		}

		if catalog.EntryCount() != 1 {
			t.Errorf("expected one entry, got %d", catalog.EntryCount())
		}
		entry, _ := catalog.Entry(10)
		if entry.Progress != 5 {
			t.Errorf("expected progress 5, got %d", entry.Progress)
		}
		if catalog.Creates != 1 || catalog.Updates != 1 {
			t.Errorf("expected one create then one update, got %d/%d", catalog.Creates, catalog.Updates)
		}
	})

	t.Run("not in list without auto-add", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.AddMedia(10, "Frieren")

		_, err := NewCoordinator(catalog, nil).ApplyProgress(ctx, 10, 3, false)
		if !errors.Is(err, shared.ErrNotInList) {
			t.Fatalf("expected ErrNotInList, got %v", err)
		}
		if catalog.EntryCount() != 0 || catalog.Creates != 0 {
			t.Error("expected no entry to be created")
		}
	})

	t.Run("updates existing entry", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.AddMedia(10, "Frieren")
		existing := catalog.AddEntry(10, 2)

		entry, err := NewCoordinator(catalog, nil).ApplyProgress(ctx, 10, 7, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.ID != existing.ID || entry.Progress != 7 {
			t.Errorf("expected entry %d at 7, got %+v", existing.ID, entry)
		}
		if catalog.Creates != 0 {
			t.Error("expected no create")
		}
	})

	t.Run("unknown media", func(t *testing.T) {
		_, err := NewCoordinator(tu.NewFakeCatalog(), nil).ApplyProgress(ctx, 404, 1, true)
		if !errors.Is(err, shared.ErrCatalogNotFound) {
			t.Errorf("expected ErrCatalogNotFound, got %v", err)
		}
	})

	t.Run("save failure", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.AddMedia(10, "Frieren")
		catalog.SaveErr = shared.ErrRemoteFailure

		_, err := NewCoordinator(catalog, nil).ApplyProgress(ctx, 10, 1, true)
		if !errors.Is(err, shared.ErrRemoteFailure) {
			t.Errorf("expected ErrRemoteFailure, got %v", err)
		}
	})
}
