package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/shared"
)

// RemoteService is the slice of a music service the evaluator needs: one cheap
// fingerprint call and one full fetch.
type RemoteService interface {
	Name() string
	Snapshot(ctx context.Context, playlistID string) (string, error)
	FetchPlaylist(ctx context.Context, playlistID string) (*models.ServicePlaylist, error)
}

// Transition classifies the cache change a Decision requires.
type Transition int

const (
	// TransitionNone means the cache already reflects the remote state.
	TransitionNone Transition = iota
	// TransitionCreate records a remote playlist seen for the first time.
	TransitionCreate
	// TransitionRefresh replaces valid contents with newer valid contents.
	TransitionRefresh
	// TransitionFreeze moves a valid entry to frozen.
	TransitionFreeze
	// TransitionRefreeze re-checks an already-frozen entry that is still over limit.
	TransitionRefreeze
	// TransitionUnfreeze moves a frozen entry back to valid with fresh contents.
	TransitionUnfreeze
)

func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionCreate:
		return "create"
	case TransitionRefresh:
		return "refresh"
	case TransitionFreeze:
		return "freeze"
	case TransitionRefreeze:
		return "refreeze"
	case TransitionUnfreeze:
		return "unfreeze"
	default:
		return "unknown"
	}
}

// Mutation describes the store change a Decision requires. The evaluator never
// writes the store itself; the orchestrator applies the replacement entry and
// persists it before moving on, so a decided freeze is never left unrecorded.
type Mutation struct {
	Key        string
	Entry      *Entry // complete replacement for the cache entry
	Transition Transition
}

// Decision is the outcome of evaluating one remote submission.
type Decision struct {
	Playlist    *models.ServicePlaylist   // contents to render: fetched, or the frozen snapshot
	Status      Status                    // state after applying Mutation (or current state when Mutation is nil)
	Warning     *models.ValidationWarning // set when Status is frozen
	Fingerprint string                    // fingerprint observed this evaluation, for logging
	Mutation    *Mutation                 // nil when no store change is needed
}

// DurationError reports a first-time submission whose remote playlist exceeds
// the limit. There is no prior valid snapshot to freeze onto, so this is a hard
// validation failure surfaced to the contributor.
type DurationError struct {
	TotalDuration int // seconds
	Limit         int // seconds
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("%v: playlist runs %s against a limit of %s",
		shared.ErrDurationExceeded, shared.FormatDuration(e.TotalDuration), shared.FormatDuration(e.Limit))
}

func (e *DurationError) Unwrap() error {
	return shared.ErrDurationExceeded
}

// Evaluator decides, per rebuild and per remote playlist, whether cached
// contents are still valid, issuing at most one fingerprint call and one fetch
// call. It is pure with respect to the store: all required changes come back as
// a Mutation for the caller to apply and persist.
type Evaluator struct {
	service RemoteService
	limit   int // seconds
	now     func() time.Time
	logger  *log.Logger
}

// NewEvaluator creates an Evaluator for the given service and duration limit in seconds.
func NewEvaluator(service RemoteService, limitSeconds int, logger *log.Logger) *Evaluator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Evaluator{
		service: service,
		limit:   limitSeconds,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// Evaluate runs the decision procedure for one remote submission.
//
// entry is the current cache entry, or nil when the playlist has never been
// seen. An entry whose content hash no longer matches the submission file is
// treated as absent: editing the submission discards fingerprint, contents,
// and freeze state alike.
//
// Errors: a *services.ServiceError (wrapped) means the remote service failed
// and the caller should fall back to cached contents; a *DurationError means a
// first-time playlist is over the limit. Neither produces a Mutation.
func (ev *Evaluator) Evaluate(ctx context.Context, sub *models.Submission, entry *Entry) (*Decision, error) {
	if sub.Remote == nil {
		return nil, fmt.Errorf("%w: submission %s is not remote", shared.ErrInvalidArgument, sub.Key())
	}

	if entry != nil && entry.ContentHash != sub.ContentHash {
		ev.logger.Info("submission edited, discarding cache entry", "playlist", sub.Key())
		entry = nil
	}

	if entry == nil {
		return ev.evaluateNew(ctx, sub)
	}

	fingerprint, err := ev.service.Snapshot(ctx, sub.Remote.ID)
	if err != nil {
		return nil, fmt.Errorf("fingerprint check for %s: %w", sub.Key(), err)
	}

	if fingerprint == entry.LastFingerprint {
		// Steady state: one cheap call, no fetch, no mutation.
		ev.logger.Debug("remote playlist unchanged", "playlist", sub.Key(), "fingerprint", fingerprint)

		decision := &Decision{
			Playlist:    entry.Playlist(),
			Status:      entry.Status,
			Fingerprint: fingerprint,
		}
		if entry.Frozen() {
			decision.Warning = ev.frozenWarning(entry)
		}
		return decision, nil
	}

	ev.logger.Info("remote playlist changed", "playlist", sub.Key(),
		"old", shorten(entry.LastFingerprint), "new", shorten(fingerprint))

	fetched, err := ev.service.FetchPlaylist(ctx, sub.Remote.ID)
	if err != nil {
		return nil, fmt.Errorf("refetch for %s: %w", sub.Key(), err)
	}

	if fetched.TotalDuration <= ev.limit {
		transition := TransitionRefresh
		if entry.Frozen() {
			transition = TransitionUnfreeze
		}

		return &Decision{
			Playlist:    fetched,
			Status:      StatusValid,
			Fingerprint: fingerprint,
			Mutation: &Mutation{
				Key:        sub.Key(),
				Entry:      ev.validEntry(sub, fetched, fingerprint),
				Transition: transition,
			},
		}, nil
	}

	return ev.freeze(sub, entry, fetched, fingerprint), nil
}

// evaluateNew handles a playlist with no (usable) cache entry: full fetch first.
func (ev *Evaluator) evaluateNew(ctx context.Context, sub *models.Submission) (*Decision, error) {
	fetched, err := ev.service.FetchPlaylist(ctx, sub.Remote.ID)
	if err != nil {
		return nil, fmt.Errorf("initial fetch for %s: %w", sub.Key(), err)
	}

	if fetched.TotalDuration > ev.limit {
		// No prior valid snapshot exists, so there is nothing to freeze onto.
		return nil, &DurationError{TotalDuration: fetched.TotalDuration, Limit: ev.limit}
	}

	// Best effort: a failed fingerprint call leaves the entry without one,
	// which simply forces a refetch on the next rebuild.
	fingerprint, err := ev.service.Snapshot(ctx, sub.Remote.ID)
	if err != nil {
		ev.logger.Warn("failed to get fingerprint after initial fetch", "playlist", sub.Key(), "err", err)
		fingerprint = ""
	}

	return &Decision{
		Playlist:    fetched,
		Status:      StatusValid,
		Fingerprint: fingerprint,
		Mutation: &Mutation{
			Key:        sub.Key(),
			Entry:      ev.validEntry(sub, fetched, fingerprint),
			Transition: TransitionCreate,
		},
	}, nil
}

// freeze builds the frozen Decision for an over-limit refetch. The replacement
// entry keeps the previous contents and fingerprint; only the freeze metadata
// advances, and frozen_at survives repeated freezes unchanged.
func (ev *Evaluator) freeze(sub *models.Submission, entry *Entry, fetched *models.ServicePlaylist, fingerprint string) *Decision {
	checked := ev.now()

	frozenAt := checked
	transition := TransitionFreeze
	if entry.Frozen() && entry.FrozenAt != nil {
		frozenAt = *entry.FrozenAt
		transition = TransitionRefreeze
	}

	reason := &FrozenReason{
		Type:              "duration_exceeded",
		CurrentDuration:   fetched.TotalDuration,
		CurrentTrackCount: fetched.TrackCount(),
		CachedDuration:    entry.TotalDuration,
		CachedTrackCount:  entry.Playlist().TrackCount(),
		Limit:             ev.limit,
		ExceededBy:        fetched.TotalDuration - ev.limit,
		LastChecked:       checked,
	}

	frozen := *entry
	frozen.ContentHash = sub.ContentHash
	frozen.Filepath = sub.Filepath
	frozen.Status = StatusFrozen
	frozen.FrozenAt = &frozenAt
	frozen.FrozenReason = reason

	ev.logger.Warn("remote playlist frozen, using cached version", "playlist", sub.Key(),
		"current", shared.FormatDuration(fetched.TotalDuration),
		"limit", shared.FormatDuration(ev.limit))

	return &Decision{
		Playlist:    entry.Playlist(),
		Status:      StatusFrozen,
		Warning:     ev.frozenWarning(&frozen),
		Fingerprint: fingerprint,
		Mutation: &Mutation{
			Key:        sub.Key(),
			Entry:      &frozen,
			Transition: transition,
		},
	}
}

// validEntry assembles a fresh valid cache entry from fetched contents.
func (ev *Evaluator) validEntry(sub *models.Submission, fetched *models.ServicePlaylist, fingerprint string) *Entry {
	return &Entry{
		User:            sub.User,
		Title:           sub.Title,
		Filepath:        sub.Filepath,
		ContentHash:     sub.ContentHash,
		Remote:          sub.Remote,
		LastFingerprint: fingerprint,
		Status:          StatusValid,
		ServiceName:     fetched.ServiceName,
		Tracks:          fetched.Tracks,
		TotalDuration:   fetched.TotalDuration,
		CachedAt:        ev.now(),
	}
}

// frozenWarning builds the banner shown alongside a frozen playlist.
func (ev *Evaluator) frozenWarning(entry *Entry) *models.ValidationWarning {
	warning := &models.ValidationWarning{
		Type: "duration_exceeded",
		Message: fmt.Sprintf("This remote playlist exceeds the %s limit on %s. Showing last valid version.",
			shared.FormatDuration(ev.limit), ev.service.Name()),
		FrozenVersionDate: entry.CachedAt,
	}
	if entry.FrozenAt != nil {
		warning.FrozenAt = *entry.FrozenAt
	}
	if entry.FrozenReason != nil {
		warning.Type = entry.FrozenReason.Type
	}
	return warning
}

// shorten trims a fingerprint for log output.
func shorten(fingerprint string) string {
	if fingerprint == "" {
		return "none"
	}
	if len(fingerprint) > 8 {
		return fingerprint[:8]
	}
	return fingerprint
}
