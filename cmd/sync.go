package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/desertthunder/photomirror/internal/formatter"
	"github.com/desertthunder/photomirror/internal/tasks"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const barTemplate = `{{string . "phase"}} {{counters . }} {{bar . }} {{percent . }} {{string . "transfer"}}`

// Compare lists both catalogs and reports how the target differs from the source.
func (r *Runner) Compare(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, source, target, err := r.newEngine(ctx, cmd.StringArg("source"), cmd.StringArg("target"))
	if err != nil {
		return err
	}

	r.logger.Info("comparing catalogs", "source", source.account, "target", target.account)
	result, err := engine.Compare(ctx, source.account, target.account)
	if err != nil {
		return err
	}

	return r.report(result, format, cmd.String("output"), "compare", result.ComparedAt)
}

// Sync copies missing items from the source to the target and reports every planned action.
//
// Failed actions are a partial success: they are listed in the report and logged, not returned.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	engine, source, target, err := r.newEngine(ctx, cmd.StringArg("source"), cmd.StringArg("target"))
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	r.logger.Info("syncing catalogs", "source", source.account, "target", target.account, "dry_run", dryRun)

	var progress chan tasks.ProgressUpdate
	var done chan struct{}
	if !cmd.Bool("no-progress") {
		progress = make(chan tasks.ProgressUpdate, 50)
		done = make(chan struct{})
		go r.showProgress(progress, done)
	}

	result, err := engine.Sync(ctx, source.account, target.account, dryRun, progress)
	if progress != nil {
		close(progress)
		<-done
	}
	if err != nil {
		return err
	}

	if err := r.report(result, format, cmd.String("output"), "sync", result.SyncedAt); err != nil {
		return err
	}

	if result.PartialSuccess() {
		r.logger.Warn("sync completed with partial success", "failed", result.Failed, "total", result.Total)
	}
	return nil
}

// showProgress drives a progress bar from action updates, shows the bytes of
// the latest transfer next to it and logs the fetch phases.
func (r *Runner) showProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)

	var bar *pb.ProgressBar
	var transfer string
	for update := range progress {
		if update.Phase == tasks.TransferChunk {
			transfer = fmt.Sprintf("%s %d bytes", update.ItemID, update.Bytes)
			if bar != nil {
				bar.Set("transfer", transfer)
			}
			continue
		}

		if !update.Phase.IsAction() {
			if update.Message != "" {
				r.logger.Info(update.Message)
			}
			continue
		}

		if bar == nil {
			bar = pb.New(update.Total).
				SetWriter(r.progressOut).
				SetTemplateString(barTemplate).
				Start()
			bar.Set("transfer", transfer)
		}
		bar.Set("phase", update.Phase.String())
		bar.SetCurrent(int64(update.Step))
		r.logger.Debug(update.Message)
	}

	if bar != nil {
		bar.Finish()
	}
}

// report writes v to stdout, or to a file when output is set. An output that
// names a directory receives a timestamped file.
func (r *Runner) report(v any, format formatter.Format, output, kind string, at time.Time) error {
	if output == "" {
		data, err := formatter.Render(v, format)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	}

	path := output
	if isDir, _ := afero.IsDir(r.fs, output); isDir || strings.HasSuffix(output, "/") {
		path = filepath.Join(output, formatter.DefaultExportName(kind, at, format))
	}

	if err := formatter.WriteExport(r.fs, path, v, format); err != nil {
		return err
	}
	r.logger.Info("report written", "path", path, "format", format)
	return r.writePlain("✓ Report written to %s\n", path)
}
