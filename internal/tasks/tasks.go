package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixdisc/internal/cache"
	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/repositories"
	"github.com/desertthunder/mixdisc/internal/services"
	"github.com/desertthunder/mixdisc/internal/shared"
	"github.com/desertthunder/mixdisc/internal/submissions"
)

// SubmissionFailure records one submission that could not be processed.
type SubmissionFailure struct {
	Filepath string
	Key      string // empty when the file never parsed
	Err      error
}

// RebuildStats summarizes a full rebuild for the CLI summary line.
type RebuildStats struct {
	Total           int // submissions seen
	Valid           int
	Frozen          int
	Failed          int
	RemoteUnchanged int // remote playlists served from cache after a fingerprint match
	RemoteFetched   int // remote playlists that needed a full fetch
	TrackCacheHits  int // manual entries answered by the track cache
	ServiceLookups  int // manual entries that reached the service
	StaleRemoved    int // cache entries dropped for vanished submissions
}

// RebuildResult contains all data from a full rebuild.
type RebuildResult struct {
	Processed []*models.ProcessedPlaylist
	Failures  []SubmissionFailure
	Stats     RebuildStats
}

// ValidationRunResult contains per-file validation outcomes.
type ValidationRunResult struct {
	Results []*models.ValidationResult
}

// TrackCacher memoizes per-track service lookups, including misses.
type TrackCacher interface {
	Lookup(service, artist, title, album string) (*models.Track, bool, error)
	Store(service, artist, title, album string, track *models.Track) error
}

var _ TrackCacher = (*repositories.TrackCacheRepository)(nil)

// Renderer writes the static site for a set of processed playlists.
type Renderer interface {
	RenderSite(playlists []*models.ProcessedPlaylist) error
}

// Engine defines the site rebuild operations.
type Engine interface {
	// RenderAll processes every submission and renders the site. Individual
	// submission failures are collected in the result; only store corruption
	// and persistence failures abort the rebuild.
	RenderAll(ctx context.Context, progress chan<- ProgressUpdate) (*RebuildResult, error)

	// ValidateFiles checks every submission without mutating the playlist cache.
	ValidateFiles(ctx context.Context, progress chan<- ProgressUpdate) (*ValidationRunResult, error)
}

// RebuildEngine implements Engine for submission processing.
type RebuildEngine struct {
	config   *shared.Config
	service  services.Service
	tracks   TrackCacher
	renderer Renderer
	logger   *log.Logger
}

// NewRebuildEngine creates a RebuildEngine with the provided dependencies.
func NewRebuildEngine(config *shared.Config, service services.Service, tracks TrackCacher, renderer Renderer, logger *log.Logger) *RebuildEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &RebuildEngine{
		config:   config,
		service:  service,
		tracks:   tracks,
		renderer: renderer,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *RebuildEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *RebuildEngine) limitSeconds() int {
	return e.config.Site.DurationLimitMinutes * 60
}

// loadSubmissions reads the mixdisc directory and filters out duplicates,
// returning the surviving submissions in deterministic key order plus one
// failure per unreadable or duplicate file.
func (e *RebuildEngine) loadSubmissions(progress chan<- ProgressUpdate) ([]*models.Submission, []SubmissionFailure, error) {
	subs, fileErrs, err := submissions.LoadDir(e.config.Site.MixdiscDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	var failures []SubmissionFailure
	for path, loadErr := range fileErrs {
		failures = append(failures, SubmissionFailure{Filepath: path, Err: loadErr})
	}

	dropped := map[*models.Submission]bool{}
	for _, pair := range submissions.CheckUniqueness(subs) {
		original, duplicate := pair[0], pair[1]
		dropped[duplicate] = true
		failures = append(failures, SubmissionFailure{
			Filepath: duplicate.Filepath,
			Key:      duplicate.Key(),
			Err:      fmt.Errorf("%w: already submitted in %s", shared.ErrDuplicateSubmission, original.Filepath),
		})
	}

	kept := make([]*models.Submission, 0, len(subs))
	for _, sub := range subs {
		if !dropped[sub] {
			kept = append(kept, sub)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Key() < kept[j].Key() })

	sort.Slice(failures, func(i, j int) bool { return failures[i].Filepath < failures[j].Filepath })

	e.sendProgress(progress, loadSubmissionsUpdate(len(subs)))
	return kept, failures, nil
}

// RenderAll performs a full rebuild of the site.
func (e *RebuildEngine) RenderAll(ctx context.Context, progress chan<- ProgressUpdate) (*RebuildResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: music service not initialized", shared.ErrServiceUnavailable)
	}

	subs, failures, err := e.loadSubmissions(progress)
	if err != nil {
		return nil, err
	}

	store, err := cache.LoadStore(e.config.Cache.StorePath)
	if err != nil {
		// A corrupt store means silently rebuilding everything or serving
		// wrong data, so surface it instead of guessing.
		return nil, err
	}

	result := &RebuildResult{Failures: failures}
	result.Stats.Total = len(subs) + len(failures)
	result.Stats.Failed = len(failures)

	evaluator := cache.NewEvaluator(e.service, e.limitSeconds(), e.logger)
	currentKeys := make(map[string]bool, len(subs))

	for i, sub := range subs {
		currentKeys[sub.Key()] = true

		var processed *models.ProcessedPlaylist
		if sub.IsRemote() {
			e.sendProgress(progress, checkRemoteUpdate(i+1, len(subs), sub.Key()))
			processed, err = e.processRemote(ctx, evaluator, store, sub, &result.Stats)
		} else {
			e.sendProgress(progress, resolveTracksUpdate(i+1, len(subs), sub.Key()))
			processed, err = e.processManual(ctx, store, sub, &result.Stats)
		}

		if err != nil {
			if errors.Is(err, shared.ErrCacheCorrupt) || isPersistFailure(err) {
				return nil, err
			}
			e.logger.Error("submission failed", "playlist", sub.Key(), "err", err)
			result.Failures = append(result.Failures, SubmissionFailure{Filepath: sub.Filepath, Key: sub.Key(), Err: err})
			result.Stats.Failed++
			continue
		}

		if processed.Warning != nil {
			result.Stats.Frozen++
		} else {
			result.Stats.Valid++
		}
		result.Processed = append(result.Processed, processed)
	}

	if removed := store.RemoveStale(currentKeys); removed > 0 {
		result.Stats.StaleRemoved = removed
		if err := store.Save(e.config.Cache.StorePath); err != nil {
			return nil, e.persistFailure(err)
		}
		e.sendProgress(progress, sweepStaleUpdate(removed))
	}

	if e.renderer != nil {
		e.sendProgress(progress, renderSiteUpdate(len(result.Processed)))
		if err := e.renderer.RenderSite(result.Processed); err != nil {
			return result, fmt.Errorf("failed to render site: %w", err)
		}
	}

	return result, nil
}

// processRemote runs the cache decision procedure for one remote submission
// and persists any resulting transition before returning.
func (e *RebuildEngine) processRemote(ctx context.Context, evaluator *cache.Evaluator, store *cache.Store, sub *models.Submission, stats *RebuildStats) (*models.ProcessedPlaylist, error) {
	entry := store.Get(sub.Key())

	decision, err := evaluator.Evaluate(ctx, sub, entry)
	if err != nil {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) && entry != nil && entry.ContentHash == sub.ContentHash {
			// The service is unreachable but the cached contents are still
			// good for this submission file. Serve them unchanged.
			e.logger.Warn("service unavailable, serving cached contents",
				"playlist", sub.Key(), "op", svcErr.Op, "err", svcErr.Err)
			return e.processedFromEntry(sub, entry), nil
		}
		return nil, err
	}

	if decision.Mutation == nil {
		stats.RemoteUnchanged++
	} else {
		stats.RemoteFetched++
		store.Put(decision.Mutation.Key, decision.Mutation.Entry)
		if err := store.Save(e.config.Cache.StorePath); err != nil {
			return nil, e.persistFailure(err)
		}
		e.logger.Debug("cache transition persisted",
			"playlist", sub.Key(), "transition", decision.Mutation.Transition.String())
	}

	return &models.ProcessedPlaylist{Submission: sub, Playlist: decision.Playlist, Warning: decision.Warning}, nil
}

// processManual resolves a manual track list through the track cache,
// touching the service only for entries never looked up before.
func (e *RebuildEngine) processManual(ctx context.Context, store *cache.Store, sub *models.Submission, stats *RebuildStats) (*models.ProcessedPlaylist, error) {
	if entry := store.Get(sub.Key()); entry != nil && entry.Remote == nil && entry.ContentHash == sub.ContentHash {
		// Unchanged submission file: reuse the resolved contents outright.
		return e.processedFromEntry(sub, entry), nil
	}

	resolved, _, err := e.resolveEntries(ctx, sub, stats)
	if err != nil {
		return nil, err
	}

	playlist := &models.ServicePlaylist{
		ServiceName:   e.service.Name(),
		Tracks:        resolved,
		TotalDuration: models.CalculateTotalDuration(resolved),
	}

	if playlist.TotalDuration > e.limitSeconds() {
		return nil, &cache.DurationError{TotalDuration: playlist.TotalDuration, Limit: e.limitSeconds()}
	}

	store.Put(sub.Key(), cache.NewManualEntry(sub, playlist))
	if err := store.Save(e.config.Cache.StorePath); err != nil {
		return nil, e.persistFailure(err)
	}

	return &models.ProcessedPlaylist{Submission: sub, Playlist: playlist}, nil
}

// resolveEntries turns a manual track list into service tracks, consulting
// the track cache first and memoizing every service answer, misses included.
// Unresolvable entries come back as nil tracks plus a missing list.
func (e *RebuildEngine) resolveEntries(ctx context.Context, sub *models.Submission, stats *RebuildStats) ([]*models.Track, []models.TrackEntry, error) {
	resolved := make([]*models.Track, len(sub.Entries))
	var missing []models.TrackEntry

	for i, item := range sub.Entries {
		track, hit, err := e.tracks.Lookup(e.service.Name(), item.Artist, item.Title, item.Album)
		if err != nil {
			return nil, nil, fmt.Errorf("track cache lookup failed: %w", err)
		}
		if hit {
			stats.TrackCacheHits++
		} else {
			track, err = e.service.FindTrack(ctx, item.Artist, item.Title, item.Album)
			if err != nil {
				return nil, nil, fmt.Errorf("track search for %q: %w", item.Artist+" - "+item.Title, err)
			}
			stats.ServiceLookups++

			if err := e.tracks.Store(e.service.Name(), item.Artist, item.Title, item.Album, track); err != nil {
				return nil, nil, fmt.Errorf("track cache store failed: %w", err)
			}
		}

		resolved[i] = track
		if track == nil {
			missing = append(missing, item)
		}
	}

	return resolved, missing, nil
}

// processedFromEntry builds the render input for cached contents, carrying a
// frozen banner when the entry is frozen.
func (e *RebuildEngine) processedFromEntry(sub *models.Submission, entry *cache.Entry) *models.ProcessedPlaylist {
	processed := &models.ProcessedPlaylist{Submission: sub, Playlist: entry.Playlist()}
	if entry.Frozen() {
		processed.Warning = &models.ValidationWarning{
			Type:              entry.FrozenReason.Type,
			Message:           fmt.Sprintf("Remote playlist exceeds the %s limit; showing the last valid version.", shared.FormatDuration(e.limitSeconds())),
			FrozenAt:          *entry.FrozenAt,
			FrozenVersionDate: entry.CachedAt,
		}
	}
	return processed
}

// errPersist distinguishes fatal store-write failures from per-submission errors.
var errPersist = errors.New("failed to persist playlist cache")

// persistFailure marks a store write error as fatal for the whole rebuild.
func (e *RebuildEngine) persistFailure(err error) error {
	return fmt.Errorf("%w: %w", errPersist, err)
}

func isPersistFailure(err error) bool {
	return errors.Is(err, errPersist)
}
