package models

import "testing"

func TestSubmission(t *testing.T) {
	t.Run("Key", func(t *testing.T) {
		s := &Submission{User: "casey", Title: "Night Drive"}
		if s.Key() != "casey/Night Drive" {
			t.Errorf("unexpected key %q", s.Key())
		}
	})

	t.Run("IsRemote", func(t *testing.T) {
		manual := &Submission{Entries: []TrackEntry{{Artist: "A", Title: "B"}}}
		if manual.IsRemote() {
			t.Error("manual submission should not be remote")
		}

		remote := &Submission{Remote: &RemotePlaylist{Service: "spotify", ID: "abc123"}}
		if !remote.IsRemote() {
			t.Error("remote submission should be remote")
		}
	})
}

func TestCalculateTotalDuration(t *testing.T) {
	tracks := []*Track{
		{Title: "One", Duration: 180},
		nil,
		{Title: "Two", Duration: 240},
	}

	if got := CalculateTotalDuration(tracks); got != 420 {
		t.Errorf("expected 420 seconds, got %d", got)
	}

	if got := CalculateTotalDuration(nil); got != 0 {
		t.Errorf("expected 0 for empty list, got %d", got)
	}
}

func TestServicePlaylistTrackCount(t *testing.T) {
	p := &ServicePlaylist{Tracks: []*Track{{Title: "One"}, nil, {Title: "Two"}}}
	if p.TrackCount() != 2 {
		t.Errorf("expected 2 resolved tracks, got %d", p.TrackCount())
	}
}

func TestValidationResult(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		r := &ValidationResult{TotalDuration: 4200, DurationLimit: 4800}
		if r.DurationExceeded() {
			t.Error("4200s should not exceed 4800s limit")
		}
		if r.ExceededBy() != 0 {
			t.Errorf("expected 0 exceeded, got %d", r.ExceededBy())
		}
	})

	t.Run("exactly at limit is valid", func(t *testing.T) {
		r := &ValidationResult{TotalDuration: 4800, DurationLimit: 4800}
		if r.DurationExceeded() {
			t.Error("exactly 80:00 should be within the limit")
		}
	})

	t.Run("over limit", func(t *testing.T) {
		r := &ValidationResult{TotalDuration: 5100, DurationLimit: 4800}
		if !r.DurationExceeded() {
			t.Error("5100s should exceed 4800s limit")
		}
		if r.ExceededBy() != 300 {
			t.Errorf("expected 300s exceeded, got %d", r.ExceededBy())
		}
	})
}
