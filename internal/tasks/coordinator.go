package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
)

// Coordinator applies progress to a single list entry.
type Coordinator struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewCoordinator creates a [Coordinator] writing to catalog.
func NewCoordinator(catalog services.Catalog, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Coordinator{catalog: catalog, logger: logger}
}

// ApplyProgress sets progress on the viewer's entry for catalogID.
//
// A missing entry is created with status CURRENT when autoAdd is set; otherwise the call fails with
// [shared.ErrNotInList]. Repeating a call with the same arguments leaves one entry at the same progress.
func (c *Coordinator) ApplyProgress(ctx context.Context, catalogID, progress int, autoAdd bool) (*models.ListEntry, error) {
	media, err := c.catalog.MediaByID(ctx, catalogID)
	if err != nil {
		return nil, fmt.Errorf("failed to find media %d: %w", catalogID, err)
	}

	if media.Entry == nil {
		if !autoAdd {
			return nil, fmt.Errorf("%w: '%s'", shared.ErrNotInList, media.RomajiTitle)
		}
		c.logger.Info("adding to list", "title", media.RomajiTitle, "progress", progress)
		entry, err := c.catalog.CreateEntry(ctx, catalogID, progress, models.ListStatusCurrent)
		if err != nil {
			return nil, fmt.Errorf("failed to add '%s' to list: %w", media.RomajiTitle, err)
		}
		return entry, nil
	}

	c.logger.Info("updating progress", "title", media.RomajiTitle, "entry", media.Entry.ID, "from", media.Entry.Progress, "to", progress)
	entry, err := c.catalog.UpdateEntryProgress(ctx, media.Entry.ID, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to update '%s': %w", media.RomajiTitle, err)
	}
	return entry, nil
}
