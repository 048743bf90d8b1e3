// package formatter renders queue and history data for the terminal and
// exports history to CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nightq/nightq/internal/models"
	"github.com/nightq/nightq/internal/shared"
)

// FormatQueue renders the queue as an aligned table. The now-playing
// entry is highlighted; a disabled-requests notice precedes the table
// when the flag is known to be off.
func FormatQueue(queue *models.Queue) string {
	var buf bytes.Buffer

	if queue.Enabled != nil && !*queue.Enabled {
		buf.WriteString(styles.warn.Render("song requests are disabled"))
		buf.WriteString("\n\n")
	}

	if len(queue.Songs) == 0 {
		buf.WriteString(styles.dim.Render("queue is empty"))
		buf.WriteString("\n")
		return buf.String()
	}

	buf.WriteString(styles.title.Render(fmt.Sprintf("%-4s %-40s %-24s %-16s %s", "#", "Title", "Artist", "Requested By", "Length")))
	buf.WriteString("\n")

	for _, song := range queue.Songs {
		position := strconv.Itoa(song.Position)
		if song.NowPlaying() {
			position = "▶"
		}
		line := fmt.Sprintf("%-4s %-40s %-24s %-16s %s",
			position,
			truncate(song.Title, 40),
			truncate(song.Artist, 24),
			truncate(song.RequestedBy, 16),
			shared.FormatDuration(song.Duration),
		)
		if song.NowPlaying() {
			line = styles.ok.Render(line)
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatHistory renders history entries as a numbered list, newest
// first.
func FormatHistory(entries []models.HistoryEntry) string {
	if len(entries) == 0 {
		return styles.dim.Render("no history recorded") + "\n"
	}

	var buf bytes.Buffer
	buf.WriteString(styles.title.Render(fmt.Sprintf("History (%d songs)", len(entries))))
	buf.WriteString("\n")

	for i, e := range entries {
		label := e.Title
		if e.Artist != "" {
			label = fmt.Sprintf("%s - %s", e.Artist, e.Title)
		}
		buf.WriteString(fmt.Sprintf("%d. %s", i+1, label))
		if e.TimesSeen > 1 {
			buf.WriteString(styles.dim.Render(fmt.Sprintf(" (seen %d times)", e.TimesSeen)))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatCountdown renders a remaining-seconds notice for the login wait.
func FormatCountdown(seconds int) string {
	return styles.dim.Render(fmt.Sprintf("waiting for login... %ds remaining", seconds))
}

// FormatAuthResult renders the terminal outcome of a login session.
func FormatAuthResult(success bool) string {
	if success {
		return styles.ok.Render("authenticated")
	}
	return styles.err.Render("authentication failed")
}

// FormatError renders an API failure notice.
func FormatError(message string) string {
	return styles.err.Render("error: " + message)
}

// ExportHistoryToCSV converts history entries to CSV with columns:
// Title, Artist, RequestedBy, Duration, TimesSeen, FirstSeen, LastSeen
func ExportHistoryToCSV(entries []models.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "RequestedBy", "Duration", "TimesSeen", "FirstSeen", "LastSeen"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.Title,
			e.Artist,
			e.RequestedBy,
			strconv.Itoa(e.Duration),
			strconv.Itoa(e.TimesSeen),
			e.FirstSeenAt.Format("2006-01-02 15:04:05"),
			e.LastSeenAt.Format("2006-01-02 15:04:05"),
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

// WriteHistoryExport writes history entries to a CSV file.
//
// Defaults to history.csv when no path is given.
func WriteHistoryExport(entries []models.HistoryEntry, filepath string) (string, error) {
	if filepath == "" {
		filepath = "history.csv"
	}

	data, err := ExportHistoryToCSV(entries)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
