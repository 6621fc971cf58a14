package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
)

func sampleEntries() []models.MissingSeriesEntry {
	return []models.MissingSeriesEntry{
		{
			MediaServerID:        "jf-1",
			Name:                 "Kaiju No. 8",
			PremiereDate:         "2024-04-13T00:00:00.0000000Z",
			FirstSeenAt:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			AlternateProviderIDs: map[string]string{"Tvdb": "421069", "Imdb": "tt21198914"},
			SearchedName:         "Kaiju No. 8",
			Reason:               models.ReasonNoProviderID,
		},
		{
			MediaServerID: "jf-2",
			Name:          "Bocchi the Rock! (2022)",
			FirstSeenAt:   time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC),
			SearchedName:  "Bocchi the Rock!",
			Reason:        models.ReasonInvalidProviderID,
		},
	}
}

func TestExporters(t *testing.T) {
	entries := sampleEntries()

	t.Run("CSV", func(t *testing.T) {
		data, err := ExportLedgerToCSV(entries)
		if err != nil {
			t.Fatalf("ExportLedgerToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Jellyfin ID,Name,Premiere Date,Searched As,Reason,Other IDs,First Seen\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Imdb=tt21198914, Tvdb=421069"`) {
			t.Errorf("CSV missing sorted provider ids, got: %s", output)
		}
		if !strings.Contains(output, "2024-05-02T08:30:00Z") {
			t.Errorf("CSV missing first seen time, got: %s", output)
		}
		if lines := strings.Count(output, "\n"); lines != 3 {
			t.Errorf("expected 3 lines, got %d", lines)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := ExportLedgerToMarkdown(entries)
		if err != nil {
			t.Fatalf("ExportLedgerToMarkdown failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "**Series**: 2") {
			t.Errorf("Markdown missing count, got: %s", output)
		}
		if !strings.Contains(output, "- [ ] **Kaiju No. 8** (2024) `jf-1`") {
			t.Errorf("Markdown missing first entry, got: %s", output)
		}
		if !strings.Contains(output, "Searched as: Bocchi the Rock!") {
			t.Errorf("Markdown missing searched name, got: %s", output)
		}
		if strings.Count(output, "Searched as:") != 1 {
			t.Errorf("searched name should only show when it differs from the name")
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := ExportLedgerToText(entries)
		if err != nil {
			t.Fatalf("ExportLedgerToText failed: %v", err)
		}
		if !strings.Contains(string(data), "2. Bocchi the Rock! (2022) [jf-2]") {
			t.Errorf("unexpected text output: %s", data)
		}
	})

	t.Run("JSON of empty ledger", func(t *testing.T) {
		data, err := ExportLedgerToJSON(nil)
		if err != nil {
			t.Fatalf("ExportLedgerToJSON failed: %v", err)
		}
		if string(data) != "[]\n" {
			t.Errorf("expected empty array, got %q", data)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := ExportLedger(entries, "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out.csv", FormatCSV},
		{"out.MD", FormatMarkdown},
		{"notes.markdown", FormatMarkdown},
		{"list.txt", FormatText},
		{"ledger.json", FormatJSON},
		{"noext", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFromPath(tt.path); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestWriteLedgerExport(t *testing.T) {
	dir := t.TempDir()

	t.Run("infers format", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "missing.md")
		written, err := WriteLedgerExport(sampleEntries(), path, "")
		if err != nil {
			t.Fatalf("WriteLedgerExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(data), "# Series without an AniList match") {
			t.Errorf("expected markdown, got %s", data)
		}
	})

	t.Run("explicit format overrides extension", func(t *testing.T) {
		path := filepath.Join(dir, "missing.out")
		if _, err := WriteLedgerExport(sampleEntries(), path, FormatJSON); err != nil {
			t.Fatalf("WriteLedgerExport failed: %v", err)
		}
		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), `"mediaServerId": "jf-1"`) {
			t.Errorf("expected JSON, got %s", data)
		}
	})
}

func TestTables(t *testing.T) {
	id := 457
	results := []models.SyncResult{
		{SeriesName: "Failed One", Status: models.StatusError, Message: "Sync failed: boom"},
		{SeriesName: "Mushishi", CatalogID: &id, LastWatchedSeason: 1, LastWatchedEpisode: 3, Status: models.StatusSuccess, Message: "Successfully synced progress to episode 3"},
		{SeriesName: "Unknown", Status: models.StatusNoIdentity},
	}

	t.Run("results grouped by status", func(t *testing.T) {
		out := ResultsTable(results)
		synced := strings.Index(out, "Mushishi")
		unmatched := strings.Index(out, "Unknown")
		failed := strings.Index(out, "Failed One")
		if !(synced < unmatched && unmatched < failed) {
			t.Errorf("expected synced, unmatched, failed order, got:\n%s", out)
		}
		if !strings.Contains(out, "S01E03") || !strings.Contains(out, "457") {
			t.Errorf("missing episode or id, got:\n%s", out)
		}
	})

	t.Run("summary", func(t *testing.T) {
		out := SummaryTable(tasks.Summarize(results))
		for _, want := range []string{"Synced", "No AniList match", "Failed", "Total"} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("ledger", func(t *testing.T) {
		out := LedgerTable(sampleEntries())
		if !strings.Contains(out, "Kaiju No. 8") || !strings.Contains(out, "Imdb=tt21198914, Tvdb=421069") {
			t.Errorf("unexpected ledger table:\n%s", out)
		}
	})

	t.Run("run detail", func(t *testing.T) {
		run := models.NewSyncRun(4, "user-1", "lib-1", models.TriggerCLI)
		run.Complete(results)
		out := RunDetail(run)
		if !strings.Contains(out, "Run #4") || !strings.Contains(out, "3 series: 1 synced (0 via search), 1 without AniList match, 1 failed") {
			t.Errorf("unexpected run detail:\n%s", out)
		}
	})

	t.Run("empty headers", func(t *testing.T) {
		if out := RenderTable(nil, [][]string{{"a"}}, nil); out != "" {
			t.Errorf("expected empty output, got %q", out)
		}
	})
}
