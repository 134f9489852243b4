package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hookdeck/chime/internal/app"
	"github.com/hookdeck/chime/internal/config"
	"github.com/hookdeck/chime/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:    "chime",
		Usage:   "Chime - Reminder event server",
		Version: version.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the Chime event server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "headless",
						Usage:   "Run without the interactive console (overrides config)",
						Sources: cli.EnvVars("HEADLESS"),
					},
				},
				Action: runServe,
			},
			demoCommand(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			// Default action: show help
			return cli.ShowAppHelp(c)
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Parse(config.Flags{
		Config: c.String("config"),
	})
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if c.Bool("headless") {
		cfg.Headless = true
	}
	return app.New(cfg).Run(ctx)
}
