// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify caps page size for playlist items at 100.
	playlistPageLimit = 100
)

type externalIDs struct {
	ISRC string `json:"isrc"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks represents one page of a playlist's items.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifySnapshot carries only the snapshot_id field of a playlist resource.
type SpotifySnapshot struct {
	SnapshotID string `json:"snapshot_id"`
}

type searchTracks struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
}

// SpotifySearchResponse represents a track search result.
type SpotifySearchResponse struct {
	Tracks searchTracks `json:"tracks"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses the [clientcredentials] flow: the site reads public playlists only, so no
// contributor ever logs in.
type SpotifyService struct {
	config     *clientcredentials.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyService creates a new Spotify service with the given API credentials.
// requestsPerSecond bounds outbound API calls; zero or negative falls back to 5 rps.
func NewSpotifyService(clientID, clientSecret string, requestsPerSecond float64) (*SpotifyService, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = 5.0
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return &SpotifyService{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL: spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "spotify"
}

// Authenticate acquires an app token via the client-credentials flow.
// The returned client refreshes the token transparently.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	if _, err := s.config.Token(ctx); err != nil {
		return &ServiceError{Service: s.Name(), Op: "authenticate", Err: err}
	}
	s.httpClient = s.config.Client(ctx)
	return nil
}

// doRequest performs an authenticated, rate-limited GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("not authenticated: call Authenticate first")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return shared.ErrPlaylistNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Snapshot retrieves only the playlist's snapshot_id, Spotify's change fingerprint.
// This is the cheap call issued on every rebuild for every remote playlist.
func (s *SpotifyService) Snapshot(ctx context.Context, playlistID string) (string, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=snapshot_id", url.PathEscape(playlistID))

	var snapshot SpotifySnapshot
	if err := s.doRequest(ctx, endpoint, &snapshot); err != nil {
		return "", &ServiceError{Service: s.Name(), Op: "snapshot", Err: err}
	}

	if snapshot.SnapshotID == "" {
		return "", &ServiceError{Service: s.Name(), Op: "snapshot", Err: fmt.Errorf("empty snapshot_id for playlist %s", playlistID)}
	}

	return snapshot.SnapshotID, nil
}

// FetchPlaylist retrieves the playlist's full contents, paginating through all items.
func (s *SpotifyService) FetchPlaylist(ctx context.Context, playlistID string) (*models.ServicePlaylist, error) {
	var tracks []*models.Track
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), playlistPageLimit, offset)

		var page SpotifyPaginatedPlaylistTracks
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, &ServiceError{Service: s.Name(), Op: "fetch_playlist", Err: err}
		}

		for _, item := range page.Items {
			tracks = append(tracks, convertTrack(item.Track))
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += playlistPageLimit
	}

	return &models.ServicePlaylist{
		ServiceName:   s.Name(),
		Tracks:        tracks,
		TotalDuration: models.CalculateTotalDuration(tracks),
	}, nil
}

// FindTrack searches for a track, preferring an exact album match when requested.
// A search with zero hits returns (nil, nil) so callers can cache the miss.
func (s *SpotifyService) FindTrack(ctx context.Context, artist, title, album string) (*models.Track, error) {
	query := fmt.Sprintf("artist:%s track:%s", artist, title)
	if album != "" {
		query += fmt.Sprintf(" album:%s", album)
	}
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=5", url.QueryEscape(query))

	var response SpotifySearchResponse
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, &ServiceError{Service: s.Name(), Op: "find_track", Err: err}
	}

	if len(response.Tracks.Items) == 0 {
		if album != "" {
			// Fall back to the default version when the album-specific search misses.
			return s.FindTrack(ctx, artist, title, "")
		}
		return nil, nil
	}

	if album != "" {
		want := strings.ToLower(strings.TrimSpace(album))
		for _, item := range response.Tracks.Items {
			if strings.ToLower(strings.TrimSpace(item.Album.Name)) == want {
				return convertTrack(item), nil
			}
		}
	}

	return convertTrack(response.Tracks.Items[0]), nil
}

// convertTrack maps a Spotify API track onto the service-neutral model.
func convertTrack(st SpotifyTrack) *models.Track {
	track := &models.Track{
		Title:     st.Name,
		Album:     st.Album.Name,
		Duration:  st.DurationMS / 1000,
		ServiceID: st.ID,
		Link:      st.ExternalURLs.Spotify,
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}
