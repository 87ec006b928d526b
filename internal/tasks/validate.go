package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/desertthunder/mixdisc/internal/cache"
	"github.com/desertthunder/mixdisc/internal/models"
	"github.com/desertthunder/mixdisc/internal/submissions"
)

// ValidateFiles checks every submission file and reports per-file outcomes.
//
// Validation reads the playlist cache but never writes it: a remote playlist
// that drifted over the limit is reported, not frozen. Track lookups still go
// through the memoizing track cache so repeated validation runs stay cheap.
func (e *RebuildEngine) ValidateFiles(ctx context.Context, progress chan<- ProgressUpdate) (*ValidationRunResult, error) {
	subs, fileErrs, err := submissions.LoadDir(e.config.Site.MixdiscDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	store, err := cache.LoadStore(e.config.Cache.StorePath)
	if err != nil {
		return nil, err
	}

	limit := e.limitSeconds()
	run := &ValidationRunResult{}

	for path, loadErr := range fileErrs {
		run.Results = append(run.Results, &models.ValidationResult{
			Filepath:      path,
			DurationLimit: limit,
			ErrorMessage:  loadErr.Error(),
		})
	}

	duplicateOf := map[*models.Submission]string{}
	for _, pair := range submissions.CheckUniqueness(subs) {
		duplicateOf[pair[1]] = pair[0].Filepath
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].Key() < subs[j].Key() })

	evaluator := cache.NewEvaluator(e.service, limit, e.logger)
	for i, sub := range subs {
		e.sendProgress(progress, validateUpdate(i+1, len(subs), sub.Key()))

		result := &models.ValidationResult{
			Filepath:      sub.Filepath,
			User:          sub.User,
			Title:         sub.Title,
			DurationLimit: limit,
		}

		if original, ok := duplicateOf[sub]; ok {
			result.DuplicateOf = original
		} else if sub.IsRemote() {
			e.validateRemote(ctx, evaluator, store, sub, result)
		} else {
			e.validateManual(ctx, sub, result)
		}

		result.Valid = result.ErrorMessage == "" && result.DuplicateOf == "" &&
			len(result.MissingTracks) == 0 && !result.DurationExceeded()

		run.Results = append(run.Results, result)
	}

	sort.Slice(run.Results, func(i, j int) bool { return run.Results[i].Filepath < run.Results[j].Filepath })

	return run, nil
}

// validateRemote reports the live duration of a remote playlist. The cache
// decision procedure is reused for its call discipline, but any transition it
// proposes is discarded.
func (e *RebuildEngine) validateRemote(ctx context.Context, evaluator *cache.Evaluator, store *cache.Store, sub *models.Submission, result *models.ValidationResult) {
	decision, err := evaluator.Evaluate(ctx, sub, store.Get(sub.Key()))
	if err != nil {
		var durErr *cache.DurationError
		if errors.As(err, &durErr) {
			result.TotalDuration = durErr.TotalDuration
			return
		}
		result.ErrorMessage = err.Error()
		return
	}

	result.TotalDuration = decision.Playlist.TotalDuration

	// A frozen decision means the live playlist is over the limit even though
	// the cached contents are not; report the live number.
	if decision.Mutation != nil && decision.Mutation.Entry.FrozenReason != nil {
		result.TotalDuration = decision.Mutation.Entry.FrozenReason.CurrentDuration
	} else if decision.Mutation == nil {
		if entry := store.Get(sub.Key()); entry != nil && entry.Frozen() && entry.FrozenReason != nil {
			result.TotalDuration = entry.FrozenReason.CurrentDuration
		}
	}
}

// validateManual resolves a manual track list and records missing tracks.
func (e *RebuildEngine) validateManual(ctx context.Context, sub *models.Submission, result *models.ValidationResult) {
	var scratch RebuildStats
	resolved, missing, err := e.resolveEntries(ctx, sub, &scratch)
	if err != nil {
		result.ErrorMessage = err.Error()
		return
	}

	result.MissingTracks = missing
	result.TotalDuration = models.CalculateTotalDuration(resolved)
}
