package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixdisc/internal/render"
	"github.com/desertthunder/mixdisc/internal/repositories"
	"github.com/desertthunder/mixdisc/internal/services"
	"github.com/desertthunder/mixdisc/internal/shared"
	"github.com/desertthunder/mixdisc/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	service services.Service
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Service services.Service
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		service: opts.Service,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, renderCommand, validateCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config file named by the --config flag, falling back
// to the runner's config when the file is absent.
func (r *Runner) loadConfig(path string) *shared.Config {
	if path == "" {
		return r.config
	}
	if _, err := os.Stat(path); err != nil {
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return r.config
	}
	return config
}

// musicService returns the injected service or builds a Spotify client from
// config credentials.
func (r *Runner) musicService(config *shared.Config) (services.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	creds := config.Credentials.Spotify
	return services.NewSpotifyService(creds.ClientID, creds.ClientSecret, creds.RateLimit)
}

// openTrackCache opens the SQLite track cache and applies migrations.
// The caller closes the returned handle.
func (r *Runner) openTrackCache(config *shared.Config) (*repositories.TrackCacheRepository, *sql.DB, error) {
	db, err := shared.NewDatabase(config.Cache.TrackCachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open track cache: %w", err)
	}

	shared.ConfigureDatabase(db, config.Cache.MaxOpenConns, config.Cache.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repositories.NewTrackCacheRepository(db), db, nil
}

// buildEngine wires the rebuild engine for the render and validate commands.
func (r *Runner) buildEngine(ctx context.Context, config *shared.Config, withRenderer bool) (*tasks.RebuildEngine, func(), error) {
	service, err := r.musicService(config)
	if err != nil {
		return nil, nil, err
	}

	if err := service.Authenticate(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to authenticate with %s: %w", service.Name(), err)
	}

	trackCache, db, err := r.openTrackCache(config)
	if err != nil {
		return nil, nil, err
	}

	var renderer tasks.Renderer
	if withRenderer {
		siteRenderer, err := render.NewSiteRenderer(config.Site.OutputDir, config.Site.TemplateDir, r.logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		renderer = siteRenderer
	}

	engine := tasks.NewRebuildEngine(config, service, trackCache, renderer, r.logger)
	return engine, func() { db.Close() }, nil
}

// drainProgress logs progress updates until the channel closes.
func (r *Runner) drainProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.logger.Debug(update.Message, "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
	}
	close(done)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
