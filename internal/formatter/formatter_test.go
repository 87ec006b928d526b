package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/tasks"
)

func TestValidationReport(t *testing.T) {
	generatedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("failed submissions come first", func(t *testing.T) {
		results := []*models.ValidationResult{
			{Filepath: "a.yaml", User: "casey", Title: "Night Drive", Valid: true, TotalDuration: 70 * 60, DurationLimit: 80 * 60},
			{Filepath: "b.yaml", User: "sam", Title: "Warm Static", TotalDuration: 85 * 60, DurationLimit: 80 * 60},
		}

		report := string(ValidationReport(results, generatedAt))

		failedIdx := strings.Index(report, "## Failed")
		passedIdx := strings.Index(report, "## Passed")
		if failedIdx == -1 || passedIdx == -1 || failedIdx > passedIdx {
			t.Fatalf("expected Failed section before Passed section:\n%s", report)
		}
		if !strings.Contains(report, "**Checked**: 2 | **Passed**: 1 | **Failed**: 1") {
			t.Errorf("unexpected summary line:\n%s", report)
		}
		if !strings.Contains(report, "exceeds the 80:00 limit by 5:00") {
			t.Errorf("expected duration detail:\n%s", report)
		}
	})

	t.Run("reports missing tracks and duplicates", func(t *testing.T) {
		results := []*models.ValidationResult{
			{
				Filepath:      "c.yaml",
				User:          "sam",
				Title:         "Warm Static",
				DurationLimit: 80 * 60,
				MissingTracks: []models.TrackEntry{{Artist: "Nobody", Title: "Nothing", Album: "Void"}},
			},
			{Filepath: "d.yaml", User: "sam", Title: "Warm Static", DurationLimit: 80 * 60, DuplicateOf: "c.yaml"},
		}

		report := string(ValidationReport(results, generatedAt))

		if !strings.Contains(report, "1 track(s) not found") || !strings.Contains(report, "Nobody - Nothing (Void)") {
			t.Errorf("expected missing track detail:\n%s", report)
		}
		if !strings.Contains(report, "Duplicate of `c.yaml`") {
			t.Errorf("expected duplicate detail:\n%s", report)
		}
	})

	t.Run("parse errors without a parsed identity use the filepath", func(t *testing.T) {
		results := []*models.ValidationResult{
			{Filepath: "broken.yaml", DurationLimit: 80 * 60, ErrorMessage: "missing user or title"},
		}

		report := string(ValidationReport(results, generatedAt))

		if !strings.Contains(report, "### broken.yaml") || !strings.Contains(report, "missing user or title") {
			t.Errorf("expected file-level error entry:\n%s", report)
		}
	})
}

func TestRebuildSummary(t *testing.T) {
	summary := string(RebuildSummary(tasks.RebuildStats{
		Total: 5, Valid: 3, Frozen: 1, Failed: 1,
		RemoteUnchanged: 2, RemoteFetched: 2,
		TrackCacheHits: 10, ServiceLookups: 3,
		StaleRemoved: 1,
	}))

	for _, want := range []string{
		"Processed 5 submissions: 3 valid, 1 frozen, 1 failed",
		"Remote playlists: 2 unchanged, 2 fetched",
		"Track lookups: 10 cached, 3 via service",
		"Removed 1 stale cache entries",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
