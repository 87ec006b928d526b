package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// CacheStats prints track cache statistics.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	repo, db, err := r.openTrackCache(config)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := repo.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"total_entries":  stats.TotalEntries,
			"found_entries":  stats.FoundEntries,
			"miss_entries":   stats.MissEntries,
			"total_accesses": stats.TotalAccesses,
		}, true)
	}

	r.writePlain("Track cache: %s\n", config.Cache.TrackCachePath)
	r.writePlain("Entries: %d (%d found, %d not found)\n", stats.TotalEntries, stats.FoundEntries, stats.MissEntries)
	r.writePlain("Total accesses: %d\n", stats.TotalAccesses)
	if stats.OldestCachedAt.Valid {
		r.writePlain("Oldest entry: %s\n", stats.OldestCachedAt.Time.Format(time.RFC3339))
	}

	return nil
}

// CacheSweep removes track cache entries not accessed within the configured age.
func (r *Runner) CacheSweep(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	maxAgeDays := config.Cache.TrackMaxAgeDays
	if days := cmd.Int("days"); days > 0 {
		maxAgeDays = int(days)
	}

	repo, db, err := r.openTrackCache(config)
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := repo.SweepStale(time.Duration(maxAgeDays) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("failed to sweep cache: %w", err)
	}

	r.logger.Info("track cache swept", "removed", removed, "max_age_days", maxAgeDays)
	r.writePlain("Removed %d entries older than %d days\n", removed, maxAgeDays)

	return nil
}
