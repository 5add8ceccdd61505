// package formatter renders tracks, analysis data, queue items and upload history as plain
// text, Markdown, CSV or tables for the CLI.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/crate/internal/editor"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
)

// ExportToCSV converts tracks to CSV with their effective values:
// ID, Filename, Status, Duration, BPM, Key, Genres, Moods, Notes
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Filename", "Status", "Duration", "BPM", "Key", "Genres", "Moods", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Filename,
			string(track.Status),
			shared.FormatDuration(track.Duration),
			formatBPM(editor.EffectiveBPM(track)),
			editor.EffectiveKey(track),
			strings.Join(editor.EffectiveGenres(track), ";"),
			strings.Join(editor.EffectiveMoods(track), ";"),
			editor.EffectiveNotes(track),
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

// WriteCSVExport writes tracks to path, creating or truncating it.
func WriteCSVExport(tracks []models.Track, path string) error {
	data, err := ExportToCSV(tracks)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// TrackToText renders one track's effective values and analysis features.
func TrackToText(track models.Track) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Track: %s\n", track.Filename)
	fmt.Fprintf(&buf, "ID: %s\n", track.ID)
	fmt.Fprintf(&buf, "Status: %s\n", track.Status)
	fmt.Fprintf(&buf, "Duration: %s\n", shared.FormatDuration(track.Duration))
	if !track.UploadDate.IsZero() {
		fmt.Fprintf(&buf, "Uploaded: %s\n", track.UploadDate.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&buf, "BPM: %s\n", formatBPM(editor.EffectiveBPM(track)))
	fmt.Fprintf(&buf, "Key: %s\n", orDash(editor.EffectiveKey(track)))
	fmt.Fprintf(&buf, "Genres: %s\n", orDash(strings.Join(editor.EffectiveGenres(track), ", ")))
	fmt.Fprintf(&buf, "Moods: %s\n", orDash(strings.Join(editor.EffectiveMoods(track), ", ")))
	if notes := editor.EffectiveNotes(track); notes != "" {
		fmt.Fprintf(&buf, "Notes: %s\n", notes)
	}

	if track.Analysis != nil {
		buf.WriteString("\n")
		buf.Write(AnalysisToText(*track.Analysis))
	}
	return buf.Bytes()
}

// TrackToMarkdown renders one track as a Markdown section.
func TrackToMarkdown(track models.Track) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", track.Filename)
	fmt.Fprintf(&buf, "**Status**: %s\n", track.Status)
	fmt.Fprintf(&buf, "**Duration**: %s\n", shared.FormatDuration(track.Duration))
	fmt.Fprintf(&buf, "**BPM**: %s\n", formatBPM(editor.EffectiveBPM(track)))
	fmt.Fprintf(&buf, "**Key**: %s\n\n", orDash(editor.EffectiveKey(track)))

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&buf, "## %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&buf, "- %s\n", item)
		}
		buf.WriteString("\n")
	}
	writeList("Genres", editor.EffectiveGenres(track))
	writeList("Moods", editor.EffectiveMoods(track))

	if notes := editor.EffectiveNotes(track); notes != "" {
		fmt.Fprintf(&buf, "## Notes\n\n%s\n\n", notes)
	}

	if a := track.Analysis; a != nil {
		buf.WriteString("## Analysis\n\n")
		fmt.Fprintf(&buf, "**Energy**: %s\n", FormatEnergy(a.Energy))
		fmt.Fprintf(&buf, "**Danceability**: %s\n\n", FormatDanceability(danceability(*a)))
		writeScores := func(title string, scores map[string]float64) {
			if len(scores) == 0 {
				return
			}
			fmt.Fprintf(&buf, "### %s\n\n", title)
			for _, s := range models.Ranked(scores) {
				fmt.Fprintf(&buf, "- %s (%s)\n", s.Name, FormatConfidence(s.Confidence))
			}
			buf.WriteString("\n")
		}
		writeScores("Instruments", a.ModelTags.Instruments)
		writeScores("AI Moods", a.ModelTags.Moods)
	}
	return buf.Bytes()
}

// AnalysisToText renders the analyzer features: energy out of ten, danceability as a
// percentage, then instruments and moods ordered by confidence.
func AnalysisToText(a models.Analysis) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Energy: %s\n", FormatEnergy(a.Energy))
	fmt.Fprintf(&buf, "Danceability: %s\n", FormatDanceability(danceability(a)))
	if a.BPMConfidence > 0 {
		fmt.Fprintf(&buf, "BPM confidence: %s\n", FormatConfidence(a.BPMConfidence))
	}
	if a.Loudness != 0 {
		fmt.Fprintf(&buf, "Loudness: %.1f dB\n", a.Loudness)
	}

	writeScores := func(title string, scores map[string]float64) {
		if len(scores) == 0 {
			return
		}
		parts := make([]string, 0, len(scores))
		for _, s := range models.Ranked(scores) {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, FormatConfidence(s.Confidence)))
		}
		fmt.Fprintf(&buf, "%s: %s\n", title, strings.Join(parts, ", "))
	}
	writeScores("Instruments", a.ModelTags.Instruments)
	writeScores("AI Moods", a.ModelTags.Moods)
	return buf.Bytes()
}

// TracksTable renders tracks as a bordered table of effective values.
func TracksTable(tracks []models.Track) string {
	rows := make([][]string, 0, len(tracks))
	for _, track := range tracks {
		rows = append(rows, []string{
			track.ID,
			track.Filename,
			string(track.Status),
			shared.FormatDuration(track.Duration),
			formatBPM(editor.EffectiveBPM(track)),
			orDash(editor.EffectiveKey(track)),
			orDash(strings.Join(editor.EffectiveGenres(track), ", ")),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "FILENAME", "STATUS", "LENGTH", "BPM", "KEY", "GENRES").
		Rows(rows...).
		String()
}

// QueueItemLine renders a single queue item the way the upload command prints progress.
func QueueItemLine(item models.FileItem) string {
	line := fmt.Sprintf("%-10s %s (%s)", item.Status, item.Filename(), FormatSize(item.Size()))
	switch item.Status {
	case models.ItemUploading:
		line += fmt.Sprintf(" %d%%", item.Progress)
	case models.ItemError:
		if item.ErrorMessage != "" {
			line += ": " + item.ErrorMessage
		}
	case models.ItemComplete:
		if item.TrackData != nil {
			line += " " + editor.Summary(*item.TrackData)
		}
	}
	return line
}

// HistoryTable renders recorded uploads, newest first as returned by the repository.
func HistoryTable(uploads []repositories.Upload) string {
	rows := make([][]string, 0, len(uploads))
	for _, u := range uploads {
		rows = append(rows, []string{
			strconv.Itoa(u.Sequence),
			u.Filename,
			FormatSize(u.Size),
			string(u.Status),
			orDash(u.TrackID),
			orDash(u.ErrorMessage),
			u.FinishedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "FILENAME", "SIZE", "STATUS", "TRACK", "ERROR", "FINISHED").
		Rows(rows...).
		String()
}

// FormatEnergy renders the analyzer energy on a ten point scale.
func FormatEnergy(energy float64) string {
	return fmt.Sprintf("%d/10", int(math.Round(energy)))
}

// FormatDanceability renders a [0, 1] danceability score as a percentage.
func FormatDanceability(d float64) string {
	return FormatConfidence(d)
}

// FormatConfidence renders a [0, 1] confidence as a whole percentage.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(c*100)))
}

// FormatSize renders a byte count using binary units.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// danceability prefers the top-level score and falls back to the model tag.
func danceability(a models.Analysis) float64 {
	if a.Danceability != 0 {
		return a.Danceability
	}
	return a.ModelTags.Danceability
}

func formatBPM(bpm float64) string {
	if bpm <= 0 {
		return "-"
	}
	return strconv.Itoa(int(math.Round(bpm)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
