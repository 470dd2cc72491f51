package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/urfave/cli/v3"
)

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "photomirror",
		Usage:   "Mirror a Google Photos library into another account",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := r.loadConfig(cmd.String("config")); err != nil {
				return ctx, err
			}
			if level := cmd.String("log-level"); level != "" {
				ll, err := shared.ParseLogLevel(level)
				if err != nil {
					return ctx, err
				}
				shared.SetLogLevel(r.logger, ll)
			}
			return ctx, nil
		},
		Commands: r.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
