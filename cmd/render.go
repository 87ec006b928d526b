package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/mixdisc/internal/formatter"
	"github.com/desertthunder/mixdisc/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Render rebuilds the site from every submission file.
func (r *Runner) Render(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	engine, closeEngine, err := r.buildEngine(ctx, config, true)
	if err != nil {
		return err
	}
	defer closeEngine()

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	result, err := engine.RenderAll(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	r.writePlain("%s", formatter.RebuildSummary(result.Stats))

	for _, failure := range result.Failures {
		if failure.Key != "" {
			r.writePlain("✗ %s (%s): %v\n", failure.Key, failure.Filepath, failure.Err)
		} else {
			r.writePlain("✗ %s: %v\n", failure.Filepath, failure.Err)
		}
	}

	if cmd.Bool("strict") && len(result.Failures) > 0 {
		return fmt.Errorf("%d submission(s) failed", len(result.Failures))
	}

	return nil
}

// Validate checks every submission file and writes a Markdown report.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	engine, closeEngine, err := r.buildEngine(ctx, config, false)
	if err != nil {
		return err
	}
	defer closeEngine()

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	run, err := engine.ValidateFiles(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	report := formatter.ValidationReport(run.Results, time.Now().UTC())

	if outputPath := cmd.String("output"); outputPath != "" {
		if err := os.WriteFile(outputPath, report, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		r.logger.Info("validation report written", "path", outputPath)
	} else {
		r.writePlain("%s", report)
	}

	failed := 0
	for _, res := range run.Results {
		if !res.Valid {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d submission(s) failed validation", failed)
	}

	return nil
}
