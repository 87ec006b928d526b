package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestParsePlaylistURL(t *testing.T) {
	t.Run("accepted spellings normalize to the same identity", func(t *testing.T) {
		inputs := []string{
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			"http://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			"https://www.open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			"  https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M  ",
		}

		for _, input := range inputs {
			identity, err := ParsePlaylistURL(input)
			if err != nil {
				t.Errorf("ParsePlaylistURL(%q): unexpected error %v", input, err)
				continue
			}
			if identity.Service != "spotify" {
				t.Errorf("ParsePlaylistURL(%q): service = %q", input, identity.Service)
			}
			if identity.ID != "37i9dQZF1DXcBWIGoYBM5M" {
				t.Errorf("ParsePlaylistURL(%q): ID = %q", input, identity.ID)
			}
		}
	})

	t.Run("rejected inputs", func(t *testing.T) {
		inputs := []string{
			"",
			"https://example.com/playlist/abc",
			"https://open.spotify.com/album/abc",
			"https://open.spotify.com/playlist/",
			"spotify:track:abc",
			"spotify:playlist:",
			"not a url at all ://",
		}

		for _, input := range inputs {
			if _, err := ParsePlaylistURL(input); err == nil {
				t.Errorf("ParsePlaylistURL(%q): expected error", input)
			}
		}
	})
}

func TestServiceError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &ServiceError{Service: "spotify", Op: "snapshot", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("expected ServiceError to unwrap to its cause")
	}

	var svcErr *ServiceError
	var wrapped error = fmt.Errorf("checking playlist: %w", err)
	if !errors.As(wrapped, &svcErr) {
		t.Fatal("expected errors.As to find ServiceError through wrapping")
	}
	if svcErr.Op != "snapshot" {
		t.Errorf("unexpected op %q", svcErr.Op)
	}
}
