// package formatter renders merge results for CLI output (plain text, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/marmottus/tidal-bot/internal/models"
	"github.com/marmottus/tidal-bot/internal/shared"
)

// Report pairs a merge result with the playlist it applies to.
type Report struct {
	Playlist string
	URI      string
	Result   *models.AddedTracksResult
}

// ToText renders a report as a plain text summary with per-class track lines.
func ToText(report Report) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist %q: added %d, skipped %d, not found %d, errors %d\n",
		report.Playlist,
		len(report.Result.Added),
		len(report.Result.Skipped),
		len(report.Result.NotFound),
		len(report.Result.AddErrors))

	writeSection := func(header string, tracks []models.Track) {
		if len(tracks) == 0 {
			return
		}
		fmt.Fprintf(&buf, "\n%s:\n", header)
		for _, track := range tracks {
			fmt.Fprintf(&buf, "  %s [%s]\n", track.FullName(), shared.FormatDuration(track.Duration))
		}
	}

	writeSection("Added", report.Result.Added)
	writeSection("Not found", report.Result.NotFound)
	writeSection("Errors", report.Result.AddErrors)

	return buf.String()
}

// ToMarkdown renders a report as Markdown.
func ToMarkdown(report Report) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", report.Playlist)
	if report.URI != "" {
		fmt.Fprintf(&buf, "Synced from %s\n\n", report.URI)
	}

	fmt.Fprintf(&buf, "- **Added**: %d\n", len(report.Result.Added))
	fmt.Fprintf(&buf, "- **Skipped**: %d\n", len(report.Result.Skipped))
	fmt.Fprintf(&buf, "- **Not found**: %d\n", len(report.Result.NotFound))
	fmt.Fprintf(&buf, "- **Errors**: %d\n", len(report.Result.AddErrors))

	writeSection := func(header string, tracks []models.Track) {
		if len(tracks) == 0 {
			return
		}
		fmt.Fprintf(&buf, "\n## %s\n\n", header)
		for i, track := range tracks {
			fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, track.FullName(), shared.FormatDuration(track.Duration))
		}
	}

	writeSection("Added tracks", report.Result.Added)
	writeSection("Tracks not found", report.Result.NotFound)
	writeSection("Tracks with errors", report.Result.AddErrors)

	return buf.String()
}

type jsonTrack struct {
	ID       string   `json:"id"`
	ISRC     string   `json:"isrc"`
	Name     string   `json:"name"`
	Duration string   `json:"duration"`
	Artists  []string `json:"artists"`
}

type jsonReport struct {
	Playlist string      `json:"playlist"`
	URI      string      `json:"uri,omitempty"`
	Added    []jsonTrack `json:"added"`
	Skipped  []jsonTrack `json:"skipped"`
	NotFound []jsonTrack `json:"not_found"`
	Errors   []jsonTrack `json:"errors"`
}

func toJSONTracks(tracks []models.Track) []jsonTrack {
	out := make([]jsonTrack, 0, len(tracks))
	for _, track := range tracks {
		out = append(out, jsonTrack{
			ID:       track.ID,
			ISRC:     track.ISRC,
			Name:     track.Name,
			Duration: shared.FormatDuration(track.Duration),
			Artists:  track.Artists,
		})
	}
	return out
}

// ToJSON renders a report as indented JSON.
func ToJSON(report Report) ([]byte, error) {
	out := jsonReport{
		Playlist: report.Playlist,
		URI:      report.URI,
		Added:    toJSONTracks(report.Result.Added),
		Skipped:  toJSONTracks(report.Result.Skipped),
		NotFound: toJSONTracks(report.Result.NotFound),
		Errors:   toJSONTracks(report.Result.AddErrors),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	return data, nil
}
