// package models defines the data model for the mixdisc site builder
package models

import (
	"time"
)

// TrackEntry is one line of a manual submission: an artist/title pair with an
// optional album to pin a specific version.
type TrackEntry struct {
	Artist string
	Title  string
	Album  string
}

// RemotePlaylist identifies a playlist hosted on a music service.
// Two URL spellings of the same playlist normalize to the same value.
type RemotePlaylist struct {
	Service string `json:"service"` // lowercase service name, e.g. "spotify"
	ID      string `json:"id"`      // service-assigned external playlist ID
}

// Submission represents one contributor playlist file.
// Exactly one of Entries or Remote is set; the submissions loader enforces this.
type Submission struct {
	User        string
	Title       string
	Description string
	Genre       string
	Filepath    string
	ContentHash string // SHA-256 of the raw file, drives cache invalidation

	Entries []TrackEntry    // manual path
	Remote  *RemotePlaylist // remote path
}

// IsRemote reports whether the submission references a remote playlist.
func (s *Submission) IsRemote() bool {
	return s.Remote != nil
}

// Key returns the stable cache key for the submission.
// Contributor/title pairs are globally unique, so this never collides.
func (s *Submission) Key() string {
	return s.User + "/" + s.Title
}

// Track represents a resolved music track from a service.
type Track struct {
	Artist    string `json:"artist"`
	Title     string `json:"title"`
	Album     string `json:"album,omitempty"`
	Duration  int    `json:"duration_seconds"`
	ServiceID string `json:"service_id,omitempty"`
	Link      string `json:"link,omitempty"`
}

// ServicePlaylist is a music service's rendering of a submission.
// Tracks holds nil for manual entries the service could not find, preserving order.
type ServicePlaylist struct {
	ServiceName   string
	Tracks        []*Track
	TotalDuration int // seconds
}

// CalculateTotalDuration sums the durations of all non-nil tracks in seconds.
func CalculateTotalDuration(tracks []*Track) int {
	total := 0
	for _, t := range tracks {
		if t == nil {
			continue
		}
		total += t.Duration
	}
	return total
}

// TrackCount returns the number of resolved (non-nil) tracks.
func (p *ServicePlaylist) TrackCount() int {
	n := 0
	for _, t := range p.Tracks {
		if t != nil {
			n++
		}
	}
	return n
}

// ValidationWarning describes a frozen remote playlist for display.
// The rendered page shows the last valid snapshot alongside this banner.
type ValidationWarning struct {
	Type              string // e.g. "duration_exceeded"
	Message           string
	FrozenAt          time.Time
	FrozenVersionDate time.Time // cached_at of the snapshot being shown
}

// ValidationResult is the outcome of validating a single submission file.
type ValidationResult struct {
	Filepath      string
	User          string
	Title         string
	Valid         bool
	TotalDuration int // seconds
	DurationLimit int // seconds
	MissingTracks []TrackEntry
	DuplicateOf   string // filepath of the original when this submission is a duplicate
	ErrorMessage  string
}

// DurationExceeded reports whether the playlist ran over the limit.
func (r *ValidationResult) DurationExceeded() bool {
	return r.TotalDuration > r.DurationLimit
}

// ExceededBy returns the number of seconds over the limit (zero when within it).
func (r *ValidationResult) ExceededBy() int {
	if !r.DurationExceeded() {
		return 0
	}
	return r.TotalDuration - r.DurationLimit
}

// ProcessedPlaylist pairs a submission with its service rendering for output.
type ProcessedPlaylist struct {
	Submission *Submission
	Playlist   *ServicePlaylist
	Warning    *ValidationWarning // non-nil only for frozen remote playlists
}
