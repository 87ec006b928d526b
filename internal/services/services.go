// package services defines interface Service for interacting with music service HTTP APIs
//
// Spotify is the only current implementation.
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
)

// Service defines the interface for music service providers that can resolve
// individual tracks and fetch remote playlists.
type Service interface {
	// Authenticate acquires service credentials (client-credentials flow).
	// Must be called before any other operation.
	Authenticate(ctx context.Context) error

	// Snapshot returns an opaque version fingerprint for a remote playlist without
	// fetching its contents. Equal fingerprints mean the playlist has not changed.
	Snapshot(ctx context.Context, playlistID string) (string, error)

	// FetchPlaylist retrieves a remote playlist's full contents, paginating internally.
	FetchPlaylist(ctx context.Context, playlistID string) (*models.ServicePlaylist, error)

	// FindTrack searches for a track by artist and title, preferring a specific
	// album version when album is non-empty. Returns (nil, nil) when the service
	// has no match; errors are reserved for request failures.
	FindTrack(ctx context.Context, artist, title, album string) (*models.Track, error)

	// Name returns the lowercase name of the service (e.g. "spotify")
	Name() string
}

// ServiceError wraps a failed service operation with the service and operation name.
// Callers detect it with errors.As to fall back to cached data.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ParsePlaylistURL normalizes a remote playlist URL or URI to its identity.
//
// Accepted spellings, all mapping to the same identity:
//
//	https://open.spotify.com/playlist/{id}
//	https://open.spotify.com/playlist/{id}?si=...
//	spotify:playlist:{id}
func ParsePlaylistURL(raw string) (*models.RemotePlaylist, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty playlist URL", shared.ErrInvalidInput)
	}

	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || parts[1] != "playlist" || parts[2] == "" {
			return nil, fmt.Errorf("%w: unrecognized spotify URI %q", shared.ErrInvalidInput, raw)
		}
		return &models.RemotePlaylist{Service: "spotify", ID: parts[2]}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid URL", shared.ErrInvalidInput, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "open.spotify.com" {
		return nil, fmt.Errorf("%w: unsupported playlist host %q", shared.ErrInvalidInput, u.Host)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] != "playlist" || segments[1] == "" {
		return nil, fmt.Errorf("%w: %q is not a playlist URL", shared.ErrInvalidInput, raw)
	}

	return &models.RemotePlaylist{Service: "spotify", ID: segments[1]}, nil
}
