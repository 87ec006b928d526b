// package formatter renders validation outcomes as Markdown and plain-text reports
package formatter

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
	"github.com/desertthunder/mixdisc/internal/tasks"
)

// ValidationReport converts validation results to a Markdown report.
//
// Failed submissions come first so problems are visible without scrolling;
// within each group results keep filepath order.
func ValidationReport(results []*models.ValidationResult, generatedAt time.Time) []byte {
	var buf bytes.Buffer

	ordered := make([]*models.ValidationResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Valid != ordered[j].Valid {
			return !ordered[i].Valid
		}
		return ordered[i].Filepath < ordered[j].Filepath
	})

	failed := 0
	for _, res := range ordered {
		if !res.Valid {
			failed++
		}
	}

	buf.WriteString("# Submission Validation Report\n\n")
	buf.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Checked**: %d | **Passed**: %d | **Failed**: %d\n\n", len(ordered), len(ordered)-failed, failed))

	if failed > 0 {
		buf.WriteString("## Failed\n\n")
		for _, res := range ordered {
			if !res.Valid {
				writeResult(&buf, res)
			}
		}
	}

	if failed < len(ordered) {
		buf.WriteString("## Passed\n\n")
		for _, res := range ordered {
			if res.Valid {
				writeResult(&buf, res)
			}
		}
	}

	return buf.Bytes()
}

func writeResult(buf *bytes.Buffer, res *models.ValidationResult) {
	title := res.Filepath
	if res.User != "" && res.Title != "" {
		title = fmt.Sprintf("%s / %s (`%s`)", res.User, res.Title, res.Filepath)
	} else if title == "" {
		title = "(unknown file)"
	}
	buf.WriteString(fmt.Sprintf("### %s\n\n", title))

	if res.ErrorMessage != "" {
		buf.WriteString(fmt.Sprintf("- Error: %s\n", res.ErrorMessage))
	}
	if res.DuplicateOf != "" {
		buf.WriteString(fmt.Sprintf("- Duplicate of `%s`\n", res.DuplicateOf))
	}
	if res.DurationExceeded() {
		buf.WriteString(fmt.Sprintf("- Duration %s exceeds the %s limit by %s\n",
			shared.FormatDuration(res.TotalDuration),
			shared.FormatDuration(res.DurationLimit),
			shared.FormatDuration(res.ExceededBy())))
	} else if res.TotalDuration > 0 {
		buf.WriteString(fmt.Sprintf("- Duration: %s (limit %s)\n",
			shared.FormatDuration(res.TotalDuration),
			shared.FormatDuration(res.DurationLimit)))
	}
	if len(res.MissingTracks) > 0 {
		buf.WriteString(fmt.Sprintf("- %d track(s) not found:\n", len(res.MissingTracks)))
		for _, entry := range res.MissingTracks {
			line := fmt.Sprintf("%s - %s", entry.Artist, entry.Title)
			if entry.Album != "" {
				line += fmt.Sprintf(" (%s)", entry.Album)
			}
			buf.WriteString(fmt.Sprintf("  - %s\n", line))
		}
	}
	if res.Valid {
		buf.WriteString("- OK\n")
	}

	buf.WriteString("\n")
}

// RebuildSummary converts rebuild statistics to a plain text summary for CLI output.
func RebuildSummary(stats tasks.RebuildStats) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Processed %d submissions: %d valid, %d frozen, %d failed\n",
		stats.Total, stats.Valid, stats.Frozen, stats.Failed))
	buf.WriteString(fmt.Sprintf("Remote playlists: %d unchanged, %d fetched\n",
		stats.RemoteUnchanged, stats.RemoteFetched))
	buf.WriteString(fmt.Sprintf("Track lookups: %d cached, %d via service\n",
		stats.TrackCacheHits, stats.ServiceLookups))
	if stats.StaleRemoved > 0 {
		buf.WriteString(fmt.Sprintf("Removed %d stale cache entries\n", stats.StaleRemoved))
	}

	return buf.Bytes()
}
