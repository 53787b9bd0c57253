// package formatter exports queue contents to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/spotiq/internal/queue"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// Row is one exported queue entry.
type Row struct {
	Position   int    `json:"position"`
	URI        string `json:"uri"`
	Kind       string `json:"kind"`
	Artist     string `json:"artist,omitempty"`
	Name       string `json:"name,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	Status     string `json:"status"`
	Loaded     bool   `json:"loaded,omitempty"`
}

// QueueExport is a point-in-time copy of a queue.
type QueueExport struct {
	Name string `json:"name"`
	Rows []Row  `json:"rows"`
}

// FromEntries snapshots entries. Tracks without metadata keep only their URI.
func FromEntries(name string, entries []queue.Entry) *QueueExport {
	export := &QueueExport{Name: name, Rows: make([]Row, 0, len(entries))}

	for i, e := range entries {
		id := e.Resource()
		row := Row{Position: i + 1, URI: id.String(), Kind: id.Kind.String(), Loaded: e.IsLoaded()}

		switch e := e.(type) {
		case *queue.TrackEntry:
			row.Status = e.State().String()
			if meta, ok := e.Metadata(); ok {
				row.Artist = meta.Artist
				row.Name = meta.Name
				row.DurationMs = meta.DurationMs
				if meta.Unavailable {
					row.Status = "unavailable"
				}
			}
		case *queue.CollectionEntry:
			row.Status = e.State().String()
		}

		export.Rows = append(export.Rows, row)
	}
	return export
}

// label is "artist - name" when known, else the URI.
func (r Row) label() string {
	if r.Name == "" {
		return r.URI
	}
	return r.Artist + " - " + r.Name
}

// ExportToCSV converts a QueueExport to CSV with columns: Position, URI, Artist, Name, Duration, Status
func ExportToCSV(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "URI", "Artist", "Name", "Duration", "Status"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range export.Rows {
		record := []string{
			strconv.Itoa(row.Position),
			row.URI,
			row.Artist,
			row.Name,
			strconv.Itoa(row.DurationMs),
			row.Status,
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

// ExportToMarkdown converts a QueueExport to a Markdown list; the loaded entry is bold.
func ExportToMarkdown(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)
	fmt.Fprintf(&buf, "**Entries**: %d\n\n", len(export.Rows))

	buf.WriteString("## Queue\n\n")
	for _, row := range export.Rows {
		line := row.label()
		switch {
		case row.Kind != "track":
			line = fmt.Sprintf("%s (%s, %s)", line, row.Kind, row.Status)
		case row.Name != "":
			line = fmt.Sprintf("%s [%s]", line, shared.FormatDuration(row.DurationMs))
		}
		if row.Status == "unavailable" {
			line = "~~" + line + "~~"
		}
		if row.Loaded {
			line = "**" + line + "**"
		}
		fmt.Fprintf(&buf, "%d. %s\n", row.Position, line)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a QueueExport to plain text, marking the loaded entry with '>'.
func ExportToText(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Queue: %s\n", export.Name)
	fmt.Fprintf(&buf, "Entries: %d\n\n", len(export.Rows))

	for _, row := range export.Rows {
		marker := " "
		if row.Loaded {
			marker = ">"
		}
		fmt.Fprintf(&buf, "%s %d. %s\n", marker, row.Position, row.label())
	}

	return buf.Bytes(), nil
}

// Export renders export in format.
func Export(export *QueueExport, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown, "md":
		return ExportToMarkdown(export)
	case FormatText, "text":
		return ExportToText(export)
	case FormatJSON:
		return shared.MarshalJSON(export, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders export in format and writes it to path.
//
// Defaults to queue.{format} as the filename.
func WriteExport(export *QueueExport, format, path string) (string, error) {
	data, err := Export(export, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "queue." + format
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
