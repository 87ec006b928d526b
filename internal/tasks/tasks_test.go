package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/mixdisc/internal/cache"
	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/services"
	"github.com/desertthunder/mixdisc/internal/shared"
)

// stubService implements services.Service against fixed data.
type stubService struct {
	snapshot    string
	snapshotErr error
	playlist    *models.ServicePlaylist
	fetchErr    error
	tracks      map[string]*models.Track // "artist|title" → track
	findErr     error

	snapshotCalls int
	fetchCalls    int
	findCalls     int
}

func (s *stubService) Name() string { return "spotify" }

func (s *stubService) Authenticate(ctx context.Context) error { return nil }

func (s *stubService) Snapshot(ctx context.Context, playlistID string) (string, error) {
	s.snapshotCalls++
	if s.snapshotErr != nil {
		return "", s.snapshotErr
	}
	return s.snapshot, nil
}

func (s *stubService) FetchPlaylist(ctx context.Context, playlistID string) (*models.ServicePlaylist, error) {
	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.playlist, nil
}

func (s *stubService) FindTrack(ctx context.Context, artist, title, album string) (*models.Track, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.tracks[strings.ToLower(artist)+"|"+strings.ToLower(title)], nil
}

// memTrackCache is an in-memory TrackCacher.
type memTrackCache struct {
	entries map[string]*models.Track
	misses  map[string]bool
}

func newMemTrackCache() *memTrackCache {
	return &memTrackCache{entries: map[string]*models.Track{}, misses: map[string]bool{}}
}

func (c *memTrackCache) key(service, artist, title, album string) string {
	return service + "|" + strings.ToLower(artist) + "|" + strings.ToLower(title) + "|" + strings.ToLower(album)
}

func (c *memTrackCache) Lookup(service, artist, title, album string) (*models.Track, bool, error) {
	k := c.key(service, artist, title, album)
	if track, ok := c.entries[k]; ok {
		return track, true, nil
	}
	if c.misses[k] {
		return nil, true, nil
	}
	return nil, false, nil
}

func (c *memTrackCache) Store(service, artist, title, album string, track *models.Track) error {
	k := c.key(service, artist, title, album)
	if track == nil {
		c.misses[k] = true
		delete(c.entries, k)
		return nil
	}
	c.entries[k] = track
	delete(c.misses, k)
	return nil
}

// stubRenderer records render calls.
type stubRenderer struct {
	calls int
	got   []*models.ProcessedPlaylist
	err   error
}

func (r *stubRenderer) RenderSite(playlists []*models.ProcessedPlaylist) error {
	r.calls++
	r.got = playlists
	return r.err
}

func serviceTracks(totalSeconds int) []*models.Track {
	half := totalSeconds / 2
	return []*models.Track{
		{Artist: "A", Title: "One", Duration: half},
		{Artist: "B", Title: "Two", Duration: totalSeconds - half},
	}
}

func servicePlaylist(totalSeconds int) *models.ServicePlaylist {
	return &models.ServicePlaylist{
		ServiceName:   "spotify",
		Tracks:        serviceTracks(totalSeconds),
		TotalDuration: totalSeconds,
	}
}

func newTestEngine(t *testing.T, svc services.Service, renderer Renderer) (*RebuildEngine, *shared.Config) {
	t.Helper()

	dir := t.TempDir()
	cfg := shared.DefaultConfig()
	cfg.Site.MixdiscDir = filepath.Join(dir, "mixdiscs")
	cfg.Site.OutputDir = filepath.Join(dir, "output")
	cfg.Site.DurationLimitMinutes = 80
	cfg.Cache.StorePath = filepath.Join(dir, "cache", "playlists_cache.json")

	if err := os.MkdirAll(cfg.Site.MixdiscDir, 0o755); err != nil {
		t.Fatalf("failed to create mixdisc dir: %v", err)
	}

	return NewRebuildEngine(cfg, svc, newMemTrackCache(), renderer, nil), cfg
}

func writeSubmission(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write submission: %v", err)
	}
}

const remoteYAML = `user: casey
title: Night Drive
genre: synthwave
remote_playlist: https://open.spotify.com/playlist/pl1
`

const manualYAML = `user: sam
title: Warm Static
playlist:
  - "Boards of Canada - Roygbiv"
  - "Aphex Twin - Xtal"
`

func TestRenderAllRemote(t *testing.T) {
	t.Run("first run fetches and caches", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		renderer := &stubRenderer{}
		engine, cfg := newTestEngine(t, svc, renderer)
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Processed) != 1 || result.Stats.Valid != 1 {
			t.Fatalf("expected 1 valid playlist, got %+v", result.Stats)
		}
		if svc.fetchCalls != 1 {
			t.Errorf("expected 1 fetch, got %d", svc.fetchCalls)
		}
		if renderer.calls != 1 || len(renderer.got) != 1 {
			t.Error("expected the renderer to receive the processed playlist")
		}

		store, err := cache.LoadStore(cfg.Cache.StorePath)
		if err != nil {
			t.Fatalf("failed to reload store: %v", err)
		}
		entry := store.Get("casey/Night Drive")
		if entry == nil {
			t.Fatal("expected a persisted cache entry")
		}
		if entry.LastFingerprint != "snap-1" || entry.TotalDuration != 70*60 {
			t.Errorf("unexpected entry %+v", entry)
		}
	})

	t.Run("second run with unchanged fingerprint skips the fetch", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		for i := 0; i < 2; i++ {
			if _, err := engine.RenderAll(context.Background(), nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if svc.fetchCalls != 1 {
			t.Errorf("expected exactly 1 fetch across both runs, got %d", svc.fetchCalls)
		}
		if svc.snapshotCalls != 2 {
			t.Errorf("expected 2 fingerprint calls, got %d", svc.snapshotCalls)
		}
	})

	t.Run("drift over the limit freezes the entry", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		if _, err := engine.RenderAll(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		svc.snapshot = "snap-2"
		svc.playlist = servicePlaylist(85 * 60)

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Stats.Frozen != 1 {
			t.Fatalf("expected 1 frozen playlist, got %+v", result.Stats)
		}
		processed := result.Processed[0]
		if processed.Warning == nil {
			t.Fatal("expected a frozen warning")
		}
		if processed.Playlist.TotalDuration != 70*60 {
			t.Error("frozen playlist must serve the cached contents")
		}

		store, err := cache.LoadStore(cfg.Cache.StorePath)
		if err != nil {
			t.Fatalf("failed to reload store: %v", err)
		}
		entry := store.Get("casey/Night Drive")
		if entry == nil || !entry.Frozen() {
			t.Fatal("expected a persisted frozen entry")
		}
		if entry.LastFingerprint != "snap-1" {
			t.Error("freeze must not advance the fingerprint")
		}
	})

	t.Run("service outage falls back to cached contents", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		if _, err := engine.RenderAll(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		svc.snapshotErr = &services.ServiceError{Service: "spotify", Op: "snapshot", Err: shared.ErrServiceUnavailable}

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected graceful degradation, got %v", err)
		}
		if len(result.Processed) != 1 || len(result.Failures) != 0 {
			t.Fatalf("expected cached fallback, got %+v", result)
		}
		if result.Processed[0].Playlist.TotalDuration != 70*60 {
			t.Error("expected cached contents to be served")
		}
	})

	t.Run("over-limit first submission is a failure with no entry", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(90 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Failures) != 1 || result.Stats.Failed != 1 {
			t.Fatalf("expected 1 failure, got %+v", result)
		}

		store, err := cache.LoadStore(cfg.Cache.StorePath)
		if err != nil {
			t.Fatalf("failed to reload store: %v", err)
		}
		if store.Get("casey/Night Drive") != nil {
			t.Error("over-limit first submission must not create an entry")
		}
	})
}

func TestRenderAllManual(t *testing.T) {
	roygbiv := &models.Track{Artist: "Boards of Canada", Title: "Roygbiv", Duration: 149, ServiceID: "t1"}

	t.Run("resolves tracks and memoizes misses", func(t *testing.T) {
		svc := &stubService{tracks: map[string]*models.Track{"boards of canada|roygbiv": roygbiv}}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "warm-static.yaml", manualYAML)

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Processed) != 1 {
			t.Fatalf("expected 1 processed playlist, got %d", len(result.Processed))
		}
		playlist := result.Processed[0].Playlist
		if playlist.TrackCount() != 1 {
			t.Errorf("expected 1 resolved track, got %d", playlist.TrackCount())
		}
		if playlist.TotalDuration != 149 {
			t.Errorf("unexpected duration %d", playlist.TotalDuration)
		}
		if svc.findCalls != 2 {
			t.Errorf("expected 2 service lookups, got %d", svc.findCalls)
		}
		if result.Stats.ServiceLookups != 2 {
			t.Errorf("unexpected stats %+v", result.Stats)
		}
	})

	t.Run("unchanged file costs zero service calls on rerun", func(t *testing.T) {
		svc := &stubService{tracks: map[string]*models.Track{"boards of canada|roygbiv": roygbiv}}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "warm-static.yaml", manualYAML)

		if _, err := engine.RenderAll(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		calls := svc.findCalls

		if _, err := engine.RenderAll(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.findCalls != calls {
			t.Errorf("expected no further lookups, got %d extra", svc.findCalls-calls)
		}
	})

	t.Run("edited file reuses the track cache for known entries", func(t *testing.T) {
		svc := &stubService{tracks: map[string]*models.Track{"boards of canada|roygbiv": roygbiv}}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "warm-static.yaml", manualYAML)

		if _, err := engine.RenderAll(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Append one new entry; the two existing ones are memoized,
		// the memoized miss included.
		writeSubmission(t, cfg.Site.MixdiscDir, "warm-static.yaml",
			manualYAML+`  - "Burial - Archangel"
`)

		calls := svc.findCalls
		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.findCalls-calls != 1 {
			t.Errorf("expected 1 new lookup, got %d", svc.findCalls-calls)
		}
		if result.Stats.TrackCacheHits != 2 {
			t.Errorf("expected 2 cache hits, got %+v", result.Stats)
		}
	})
}

func TestRenderAllHousekeeping(t *testing.T) {
	t.Run("duplicate submissions are rejected", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "a.yaml", remoteYAML)
		writeSubmission(t, cfg.Site.MixdiscDir, "b.yaml", strings.ReplaceAll(remoteYAML, "Night Drive", "night drive"))

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Processed) != 1 || len(result.Failures) != 1 {
			t.Fatalf("expected one kept and one rejected, got %+v", result)
		}
		if !strings.Contains(result.Failures[0].Err.Error(), "already submitted") {
			t.Errorf("unexpected failure: %v", result.Failures[0].Err)
		}
	})

	t.Run("entries for removed submissions are dropped", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		if _, err := engine.RenderAll(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := os.Remove(filepath.Join(cfg.Site.MixdiscDir, "night-drive.yaml")); err != nil {
			t.Fatalf("failed to remove submission: %v", err)
		}

		result, err := engine.RenderAll(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Stats.StaleRemoved != 1 {
			t.Errorf("expected 1 stale entry removed, got %d", result.Stats.StaleRemoved)
		}

		store, err := cache.LoadStore(cfg.Cache.StorePath)
		if err != nil {
			t.Fatalf("failed to reload store: %v", err)
		}
		if store.Get("casey/Night Drive") != nil {
			t.Error("expected the stale entry to be gone")
		}
	})

	t.Run("corrupt store aborts the rebuild", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, &stubRenderer{})
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		if err := os.MkdirAll(filepath.Dir(cfg.Cache.StorePath), 0o755); err != nil {
			t.Fatalf("failed to create cache dir: %v", err)
		}
		if err := os.WriteFile(cfg.Cache.StorePath, []byte("{not json"), 0o644); err != nil {
			t.Fatalf("failed to corrupt store: %v", err)
		}

		if _, err := engine.RenderAll(context.Background(), nil); err == nil {
			t.Fatal("expected corrupt store to abort the rebuild")
		}
	})
}

func TestValidateFiles(t *testing.T) {
	t.Run("reports parse errors, missing tracks, and over-limit playlists", func(t *testing.T) {
		long := servicePlaylist(95 * 60)
		svc := &stubService{snapshot: "snap-1", playlist: long, tracks: map[string]*models.Track{}}
		engine, cfg := newTestEngine(t, svc, nil)

		writeSubmission(t, cfg.Site.MixdiscDir, "broken.yaml", "user: x\n") // no title
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)
		writeSubmission(t, cfg.Site.MixdiscDir, "warm-static.yaml", manualYAML)

		run, err := engine.ValidateFiles(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(run.Results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(run.Results))
		}

		byPath := map[string]*models.ValidationResult{}
		for _, res := range run.Results {
			byPath[filepath.Base(res.Filepath)] = res
		}

		if res := byPath["broken.yaml"]; res.Valid || res.ErrorMessage == "" {
			t.Errorf("expected parse error for broken.yaml, got %+v", res)
		}
		if res := byPath["night-drive.yaml"]; res.Valid || !res.DurationExceeded() {
			t.Errorf("expected over-limit remote playlist, got %+v", res)
		}
		if res := byPath["warm-static.yaml"]; res.Valid || len(res.MissingTracks) != 2 {
			t.Errorf("expected 2 missing tracks, got %+v", res)
		}
	})

	t.Run("does not write the playlist cache", func(t *testing.T) {
		svc := &stubService{snapshot: "snap-1", playlist: servicePlaylist(70 * 60)}
		engine, cfg := newTestEngine(t, svc, nil)
		writeSubmission(t, cfg.Site.MixdiscDir, "night-drive.yaml", remoteYAML)

		if _, err := engine.ValidateFiles(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(cfg.Cache.StorePath); !os.IsNotExist(err) {
			t.Error("validation must not create the playlist cache")
		}
	})
}
