// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes config and the track cache database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the track cache",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// renderCommand rebuilds the site
func renderCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "render",
		Aliases: []string{"build"},
		Usage:   "Process every submission and render the site",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit non-zero when any submission fails",
			},
		},
		Action: r.Render,
	}
}

// validateCommand checks submissions without touching the playlist cache
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate submission files and report problems",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the Markdown report to a file instead of stdout",
			},
		},
		Action: r.Validate,
	}
}

// cacheCommand inspects and maintains the track cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the track cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show track cache statistics",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:  "sweep",
				Usage: "Remove entries not accessed recently",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Override the configured maximum age in days",
					},
				},
				Action: r.CacheSweep,
			},
		},
	}
}
