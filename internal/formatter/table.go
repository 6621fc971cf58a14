package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/tasks"
)

// Alignment selects how a column is aligned.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable draws headers and rows as a rounded table. Short rows are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// ResultsTable lists per-series outcomes grouped by status in display order.
func ResultsTable(results []models.SyncResult) string {
	grouped := make(map[models.SyncStatus][]models.SyncResult)
	for _, r := range results {
		grouped[r.Status] = append(grouped[r.Status], r)
	}

	var rows [][]string
	for _, status := range models.SyncStatuses {
		for _, r := range grouped[status] {
			rows = append(rows, []string{
				status.Label(),
				r.SeriesName,
				catalogID(r.CatalogID),
				episodeLabel(r.LastWatchedSeason, r.LastWatchedEpisode),
				r.Message,
			})
		}
	}
	return RenderTable(
		[]string{"Status", "Series", "AniList ID", "Watched", "Message"},
		rows,
		[]Alignment{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft},
	)
}

// SummaryTable shows the per-status counts of a library sync.
func SummaryTable(s tasks.Summary) string {
	rows := make([][]string, 0, len(models.SyncStatuses)+1)
	for _, status := range models.SyncStatuses {
		rows = append(rows, []string{status.Label(), strconv.Itoa(s.Counts[status])})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(s.Total)})
	return RenderTable([]string{"Outcome", "Series"}, rows, []Alignment{AlignLeft, AlignRight})
}

// LedgerTable lists unmatched series.
func LedgerTable(entries []models.MissingSeriesEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.MediaServerID,
			e.Name,
			e.SearchedName,
			e.Reason,
			ProviderIDs(e.AlternateProviderIDs),
			formatTime(e.FirstSeenAt),
		})
	}
	return RenderTable([]string{"Jellyfin ID", "Name", "Searched As", "Reason", "Other IDs", "First Seen"}, rows, nil)
}

// RunsTable lists sync runs, newest first as given.
func RunsTable(runs []*models.SyncRun) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.Itoa(r.Sequence()),
			r.UserID(),
			r.LibraryID(),
			r.Trigger(),
			r.Status(),
			strconv.Itoa(r.Total()),
			strconv.Itoa(r.Succeeded()+r.ViaSearch()),
			strconv.Itoa(r.NoIdentity()),
			strconv.Itoa(r.Failed()),
			formatTime(r.StartedAt()),
			formatDuration(r.Duration()),
		})
	}
	return RenderTable(
		[]string{"#", "User", "Library", "Trigger", "Status", "Total", "Synced", "Unmatched", "Failed", "Started", "Took"},
		rows,
		[]Alignment{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft, AlignRight},
	)
}

// RunDetail renders a run header followed by its items.
func RunDetail(run *models.SyncRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run #%d (%s)\n", run.Sequence(), run.ID())
	fmt.Fprintf(&b, "User: %s  Library: %s  Trigger: %s\n", run.UserID(), run.LibraryID(), run.Trigger())
	fmt.Fprintf(&b, "Status: %s  Started: %s  Took: %s\n", run.Status(), formatTime(run.StartedAt()), formatDuration(run.Duration()))
	fmt.Fprintf(&b, "%d series: %d synced (%d via search), %d without AniList match, %d failed\n",
		run.Total(), run.Succeeded()+run.ViaSearch(), run.ViaSearch(), run.NoIdentity(), run.Failed())
	if items := run.Items(); len(items) > 0 {
		b.WriteString("\n")
		b.WriteString(ResultsTable(items))
		b.WriteString("\n")
	}
	return b.String()
}

// EpisodesTable lists a series' episodes and their watch state.
func EpisodesTable(episodes []models.EpisodeProgress) string {
	rows := make([][]string, 0, len(episodes))
	for _, ep := range episodes {
		played := ""
		if ep.IsPlayed {
			played = "✓"
		}
		rows = append(rows, []string{
			strconv.Itoa(ep.SeasonNumber),
			strconv.Itoa(ep.EpisodeNumber),
			ep.EpisodeName,
			played,
		})
	}
	return RenderTable([]string{"Season", "Episode", "Name", "Played"}, rows, []Alignment{AlignRight, AlignRight, AlignLeft, AlignLeft})
}

// LibrariesTable lists media server libraries.
func LibrariesTable(libraries []models.Library) string {
	rows := make([][]string, 0, len(libraries))
	for _, lib := range libraries {
		rows = append(rows, []string{lib.Name, lib.CollectionType, lib.ItemID})
	}
	return RenderTable([]string{"Name", "Type", "ID"}, rows, nil)
}

// ProviderIDs formats provider ids as "Name=value" pairs sorted by name.
func ProviderIDs(ids map[string]string) string {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+ids[k])
	}
	return strings.Join(parts, ", ")
}

func catalogID(id *int) string {
	if id == nil {
		return "-"
	}
	return strconv.Itoa(*id)
}

func episodeLabel(season, episode int) string {
	if episode == 0 {
		return "-"
	}
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
