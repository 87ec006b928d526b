package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
)

// TrackCacheRepository memoizes per-track service lookups in SQLite.
//
// Each row records one normalized (artist, title, album) triple for one
// service. A row with found = 0 is a negative entry: the service was asked
// and had no match, so the lookup is not repeated on later rebuilds.
type TrackCacheRepository struct {
	db *sql.DB
}

// CacheStats summarizes the contents of the track cache.
type CacheStats struct {
	TotalEntries   int
	FoundEntries   int
	MissEntries    int
	TotalAccesses  int
	OldestCachedAt sql.NullTime
}

// NewTrackCacheRepository creates a new TrackCacheRepository with the given database connection
func NewTrackCacheRepository(db *sql.DB) *TrackCacheRepository {
	return &TrackCacheRepository{db: db}
}

// Lookup returns the cached result for a track, if any.
//
// The second return value reports whether the cache held an entry at all;
// a (nil, true, nil) result is a memoized "not found". Hits bump
// last_accessed and access_count.
func (r *TrackCacheRepository) Lookup(service, artist, title, album string) (*models.Track, bool, error) {
	trackKey, albumKey := cacheKeys(artist, title, album)

	query := `
		SELECT id, found, artist, title, album, duration_seconds, service_id, link
		FROM cached_tracks
		WHERE service = ? AND track_key = ? AND album_key = ?
	`

	var (
		id        string
		found     int
		cArtist   sql.NullString
		cTitle    sql.NullString
		cAlbum    sql.NullString
		duration  sql.NullInt64
		serviceID sql.NullString
		link      sql.NullString
	)

	err := r.db.QueryRow(query, service, trackKey, albumKey).
		Scan(&id, &found, &cArtist, &cTitle, &cAlbum, &duration, &serviceID, &link)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query track cache: %w", err)
	}

	if err := r.touch(id); err != nil {
		return nil, false, err
	}

	if found == 0 {
		return nil, true, nil
	}

	track := &models.Track{
		Artist:    cArtist.String,
		Title:     cTitle.String,
		Album:     cAlbum.String,
		Duration:  int(duration.Int64),
		ServiceID: serviceID.String,
		Link:      link.String,
	}

	return track, true, nil
}

// Store records the result of a service lookup. A nil track stores a
// negative entry. Storing a triple already in the cache replaces the
// previous result and resets its access statistics.
func (r *TrackCacheRepository) Store(service, artist, title, album string, track *models.Track) error {
	trackKey, albumKey := cacheKeys(artist, title, album)
	now := time.Now().UTC()

	query := `
		INSERT INTO cached_tracks (id, service, track_key, album_key, found, artist, title, album, duration_seconds, service_id, link, cached_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(service, track_key, album_key) DO UPDATE SET
			found = excluded.found,
			artist = excluded.artist,
			title = excluded.title,
			album = excluded.album,
			duration_seconds = excluded.duration_seconds,
			service_id = excluded.service_id,
			link = excluded.link,
			cached_at = excluded.cached_at,
			last_accessed = excluded.last_accessed,
			access_count = 1
	`

	var args []any
	if track == nil {
		args = []any{shared.GenerateID(), service, trackKey, albumKey, 0, nil, nil, nil, nil, nil, nil, now, now}
	} else {
		args = []any{
			shared.GenerateID(), service, trackKey, albumKey, 1,
			track.Artist, track.Title, track.Album, track.Duration,
			track.ServiceID, track.Link, now, now,
		}
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to store track cache entry: %w", err)
	}

	return nil
}

// SweepStale deletes entries whose last access is older than maxAge and
// returns the number of rows removed.
func (r *TrackCacheRepository) SweepStale(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	result, err := r.db.Exec("DELETE FROM cached_tracks WHERE last_accessed < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep track cache: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return int(rows), nil
}

// Stats reports entry counts and aggregate access statistics.
func (r *TrackCacheRepository) Stats() (*CacheStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(found), 0),
			COALESCE(SUM(access_count), 0)
		FROM cached_tracks
	`

	var stats CacheStats
	err := r.db.QueryRow(query).
		Scan(&stats.TotalEntries, &stats.FoundEntries, &stats.TotalAccesses)
	if err != nil {
		return nil, fmt.Errorf("failed to query track cache stats: %w", err)
	}

	stats.MissEntries = stats.TotalEntries - stats.FoundEntries

	// MIN() would drop the column's TIMESTAMP affinity, so fetch the row.
	var oldest time.Time
	err = r.db.QueryRow("SELECT cached_at FROM cached_tracks ORDER BY cached_at ASC LIMIT 1").Scan(&oldest)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query oldest cache entry: %w", err)
	}
	if err == nil {
		stats.OldestCachedAt = sql.NullTime{Time: oldest, Valid: true}
	}

	return &stats, nil
}

// touch bumps the access statistics for a cache hit.
func (r *TrackCacheRepository) touch(id string) error {
	query := `
		UPDATE cached_tracks
		SET last_accessed = ?, access_count = access_count + 1
		WHERE id = ?
	`

	if _, err := r.db.Exec(query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update track cache access: %w", err)
	}

	return nil
}

// cacheKeys derives the normalized lookup keys for a track. Submissions
// without an album hint share the empty album key.
func cacheKeys(artist, title, album string) (string, string) {
	return shared.NormalizeTrackKey(artist, title), strings.ToLower(strings.TrimSpace(album))
}
