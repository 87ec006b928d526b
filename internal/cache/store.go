package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
)

const storeVersion = "1.0"

// Status is the validation state of a cached remote playlist.
type Status string

const (
	// StatusValid means cached_items mirrors the live remote playlist.
	StatusValid Status = "valid"
	// StatusFrozen means the live playlist violates the duration limit and
	// cached_items holds the last snapshot that satisfied it.
	StatusFrozen Status = "frozen"
)

// FrozenReason records why an entry froze, refreshed on every over-limit check.
type FrozenReason struct {
	Type              string    `json:"type"`
	CurrentDuration   int       `json:"current_duration_seconds"`
	CurrentTrackCount int       `json:"current_track_count"`
	CachedDuration    int       `json:"cached_duration_seconds"`
	CachedTrackCount  int       `json:"cached_track_count"`
	Limit             int       `json:"limit_seconds"`
	ExceededBy        int       `json:"exceeded_by_seconds"`
	LastChecked       time.Time `json:"last_checked"`
}

// Entry is the cached state of one submission.
//
// For remote submissions Tracks always holds the last contents that satisfied
// the duration limit; an over-limit refetch never overwrites it. While frozen,
// LastFingerprint deliberately stays at the snapshot's fingerprint so every
// subsequent rebuild still detects "changed" and re-evaluates the live playlist.
type Entry struct {
	User        string                 `json:"user"`
	Title       string                 `json:"title"`
	Filepath    string                 `json:"filepath"`
	ContentHash string                 `json:"content_hash"`
	Remote      *models.RemotePlaylist `json:"remote_playlist,omitempty"`

	LastFingerprint string        `json:"last_fingerprint,omitempty"`
	Status          Status        `json:"validation_status"`
	FrozenAt        *time.Time    `json:"frozen_at,omitempty"`
	FrozenReason    *FrozenReason `json:"frozen_reason,omitempty"`

	ServiceName   string          `json:"service_name"`
	Tracks        []*models.Track `json:"tracks"`
	TotalDuration int             `json:"total_duration_seconds"`
	CachedAt      time.Time       `json:"cached_at"`
}

// Playlist reconstructs the cached contents as a ServicePlaylist.
func (e *Entry) Playlist() *models.ServicePlaylist {
	return &models.ServicePlaylist{
		ServiceName:   e.ServiceName,
		Tracks:        e.Tracks,
		TotalDuration: e.TotalDuration,
	}
}

// Frozen reports whether the entry is in the frozen state.
func (e *Entry) Frozen() bool {
	return e.Status == StatusFrozen
}

// NewManualEntry builds a valid entry for a resolved manual track list.
// Manual entries carry no fingerprint; the submission's content hash is
// their only invalidation signal.
func NewManualEntry(sub *models.Submission, playlist *models.ServicePlaylist) *Entry {
	return &Entry{
		User:          sub.User,
		Title:         sub.Title,
		Filepath:      sub.Filepath,
		ContentHash:   sub.ContentHash,
		Status:        StatusValid,
		ServiceName:   playlist.ServiceName,
		Tracks:        playlist.Tracks,
		TotalDuration: playlist.TotalDuration,
		CachedAt:      time.Now().UTC(),
	}
}

// Store is the durable playlist cache, keyed by "contributor/title".
type Store struct {
	Version     string            `json:"version"`
	LastUpdated time.Time         `json:"last_updated"`
	Entries     map[string]*Entry `json:"playlists"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{Version: storeVersion, Entries: make(map[string]*Entry)}
}

// LoadStore reads the cache document from disk.
//
// A missing file yields an empty store. A present but unparseable file wraps
// [shared.ErrCacheCorrupt]: the rebuild must abort rather than silently start
// over and lose every frozen snapshot.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, fmt.Errorf("failed to read cache store: %w", err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCacheCorrupt, path, err)
	}

	if store.Entries == nil {
		store.Entries = make(map[string]*Entry)
	}

	return &store, nil
}

// Save atomically writes the store to disk.
//
// The document is first written to a temp file in the destination directory and
// then renamed over the target, so a crash mid-write never leaves a reader with
// a half-written store.
func (s *Store) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	s.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".playlists_cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache store: %w", err)
	}

	return nil
}

// Get returns the entry for a key, or nil when absent.
func (s *Store) Get(key string) *Entry {
	return s.Entries[key]
}

// Put stores an entry under a key.
func (s *Store) Put(key string, entry *Entry) {
	s.Entries[key] = entry
}

// Delete removes an entry.
func (s *Store) Delete(key string) {
	delete(s.Entries, key)
}

// RemoveStale drops entries whose submission no longer exists.
// currentKeys holds the keys of every submission seen this rebuild.
// Returns the number of removed entries.
func (s *Store) RemoveStale(currentKeys map[string]bool) int {
	removed := 0
	for key := range s.Entries {
		if !currentKeys[key] {
			delete(s.Entries, key)
			removed++
		}
	}
	return removed
}
