package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/photomirror/internal/formatter"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/repositories"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) runRepository() (*repositories.RunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewRunRepository(db), nil
}

// HistoryList prints recorded compare and sync runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var kind models.RunKind
	if s := cmd.String("kind"); s != "" {
		if kind, err = models.ParseRunKind(s); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
	}

	limit := cmd.Int("limit")
	if limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", shared.ErrInvalidFlag)
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	runs, err := repo.List(ctx, kind, limit)
	if err != nil {
		return err
	}

	data, err := formatter.Render(runs, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// HistoryShow prints one run and, for sync runs, its actions.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	detail, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	data, err := formatter.Render(detail, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// HistoryDelete removes a run and its actions.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted run %s\n", id)
}
