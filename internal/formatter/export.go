// package formatter renders sync results, the missing-series ledger and run history as tables and export files
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// Export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// Formats lists the supported export formats.
var Formats = []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ExportLedgerToCSV converts ledger entries to CSV with columns: Jellyfin ID, Name, Premiere Date, Searched As, Reason, Other IDs, First Seen
func ExportLedgerToCSV(entries []models.MissingSeriesEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Jellyfin ID", "Name", "Premiere Date", "Searched As", "Reason", "Other IDs", "First Seen"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.MediaServerID,
			e.Name,
			e.PremiereDate,
			e.SearchedName,
			e.Reason,
			ProviderIDs(e.AlternateProviderIDs),
			e.FirstSeenAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportLedgerToMarkdown renders ledger entries as a checklist for manual matching on AniList.
func ExportLedgerToMarkdown(entries []models.MissingSeriesEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Series without an AniList match\n\n")
	buf.WriteString(fmt.Sprintf("**Series**: %d\n\n", len(entries)))

	for _, e := range entries {
		buf.WriteString(fmt.Sprintf("- [ ] **%s**", e.Name))
		if year, ok := models.YearOf(e.PremiereDate); ok {
			buf.WriteString(fmt.Sprintf(" (%d)", year))
		}
		buf.WriteString(fmt.Sprintf(" `%s`\n", e.MediaServerID))
		if e.SearchedName != "" && e.SearchedName != e.Name {
			buf.WriteString(fmt.Sprintf("  - Searched as: %s\n", e.SearchedName))
		}
		buf.WriteString(fmt.Sprintf("  - Reason: %s\n", e.Reason))
		if ids := ProviderIDs(e.AlternateProviderIDs); ids != "" {
			buf.WriteString(fmt.Sprintf("  - Other IDs: %s\n", ids))
		}
	}

	return buf.Bytes(), nil
}

// ExportLedgerToText converts ledger entries to a plain numbered list.
func ExportLedgerToText(entries []models.MissingSeriesEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Series without an AniList match: %d\n\n", len(entries)))
	for i, e := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s [%s] - %s\n", i+1, e.Name, e.MediaServerID, e.Reason))
	}

	return buf.Bytes(), nil
}

// ExportLedgerToJSON encodes entries as indented JSON, matching the file ledger's layout.
func ExportLedgerToJSON(entries []models.MissingSeriesEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.MissingSeriesEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// FormatFromPath infers an export format from path's extension, defaulting to CSV.
func FormatFromPath(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "md", "markdown":
		return FormatMarkdown
	case "txt", "text":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// ExportLedger renders entries in format.
func ExportLedger(entries []models.MissingSeriesEntry, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return ExportLedgerToCSV(entries)
	case FormatMarkdown, "markdown":
		return ExportLedgerToMarkdown(entries)
	case FormatText, "text":
		return ExportLedgerToText(entries)
	case FormatJSON:
		return ExportLedgerToJSON(entries)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// WriteLedgerExport writes entries to path in format, inferring the format from the extension when empty.
//
// Defaults to missing_series.{format} as the filename.
func WriteLedgerExport(entries []models.MissingSeriesEntry, path, format string) (string, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	if path == "" {
		path = "missing_series." + format
	}

	data, err := ExportLedger(entries, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
