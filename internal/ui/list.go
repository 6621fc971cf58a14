package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/anisync/internal/models"
)

var (
	_ list.Item = libraryItem{}
	_ list.Item = seriesItem{}
)

// libraryItem wraps [models.Library] to implement [list.Item].
type libraryItem struct {
	library models.Library
}

func (i libraryItem) FilterValue() string { return i.library.Name }
func (i libraryItem) Title() string       { return i.library.Name }
func (i libraryItem) Description() string {
	kind := i.library.CollectionType
	if kind == "" {
		kind = "mixed"
	}
	return fmt.Sprintf("%s • %s", kind, i.library.ItemID)
}

// seriesItem wraps [models.SeriesRecord] to implement [list.Item].
type seriesItem struct {
	series models.SeriesRecord
}

func (i seriesItem) FilterValue() string { return i.series.Name }
func (i seriesItem) Title() string       { return i.series.Name }
func (i seriesItem) Description() string {
	var parts []string
	if year, ok := i.series.PremiereYear(); ok {
		parts = append(parts, fmt.Sprintf("%d", year))
	}
	if id, ok := i.series.ProviderID("AniList"); ok {
		parts = append(parts, "AniList "+id)
	} else {
		parts = append(parts, "no AniList id, will search by name")
	}
	return strings.Join(parts, " • ")
}
