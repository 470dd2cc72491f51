// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/photomirror/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatFlag() *cli.StringFlag {
	names := make([]string, 0, len(formatter.Formats))
	for _, f := range formatter.Formats {
		names = append(names, string(f))
	}
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   fmt.Sprintf("Output format (%s)", strings.Join(names, ", ")),
		Value:   string(formatter.FormatText),
	}
}

func accountArgs() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{Name: "source", UsageText: "source account email or local:<dir>"},
		&cli.StringArg{Name: "target", UsageText: "target account email or local:<dir>"},
	}
}

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file if needed, initialize the database and run migrations",
		Action: r.Setup,
	}
}

// authCommand links a Google Photos account.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Link a Google Photos account using OAuth2",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "role",
				Aliases: []string{"r"},
				Usage:   "Account role: source (read-only) or target (read and append)",
				Value:   "source",
			},
		},
		Action: r.Auth,
	}
}

// accountsCommand manages linked accounts.
func accountsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "accounts",
		Aliases: []string{"acct"},
		Usage:   "Manage linked accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List linked accounts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "role",
						Usage: "Only show accounts with this role",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AccountsList,
			},
			{
				Name:  "remove",
				Usage: "Unlink an account and delete its stored token",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "email"},
				},
				Action: r.AccountsRemove,
			},
		},
	}
}

// compareCommand reports differences between two catalogs.
func compareCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Aliases:   []string{"diff"},
		Usage:     "Compare a target catalog against a source catalog",
		Arguments: accountArgs(),
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file or directory",
			},
		},
		Action: r.Compare,
	}
}

// syncCommand mirrors the source catalog onto the target.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Copy items missing from the target and report planned updates and deletions",
		Arguments: accountArgs(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Plan the sync without changing the target",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
			formatFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to this file or directory",
			},
		},
		Action: r.Sync,
	}
}

// historyCommand inspects recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded compare and sync runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List runs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only show compare or sync runs",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show (0 for all)",
						Value: 20,
					},
					formatFlag(),
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run and its actions",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  []cli.Flag{formatFlag()},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a run from history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive syncing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch interactive TUI to review and run a sync",
		Arguments: accountArgs(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Plan the sync without changing the target",
			},
		},
		Action: r.TUI,
	}
}
