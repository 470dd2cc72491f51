package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/services"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/jonboulle/clockwork"
)

// RunRecorder persists the outcome of compare and sync runs.
type RunRecorder interface {
	RecordCompare(ctx context.Context, result *models.CompareResult) error
	RecordSync(ctx context.Context, result *models.SyncResult) error
}

// SyncOption configures a [SyncEngine].
type SyncOption func(*SyncEngine)

// WithRecorder stores every compare and sync result. Recording failures are
// logged and never fail the run.
func WithRecorder(r RunRecorder) SyncOption {
	return func(e *SyncEngine) { e.recorder = r }
}

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) SyncOption {
	return func(e *SyncEngine) { e.logger = l }
}

// WithClock sets the clock used to timestamp results.
func WithClock(c clockwork.Clock) SyncOption {
	return func(e *SyncEngine) { e.clock = c }
}

// SyncEngine reconciles a target catalog with a source catalog.
type SyncEngine struct {
	source     services.CatalogReader
	target     services.CatalogReader
	transferer *Transferer
	recorder   RunRecorder
	logger     *log.Logger
	clock      clockwork.Clock
}

// NewSyncEngine creates an engine listing from source and target and copying
// through transferer. transferer may be nil for compare-only or dry-run use.
func NewSyncEngine(source, target services.CatalogReader, transferer *Transferer, opts ...SyncOption) *SyncEngine {
	e := &SyncEngine{
		source:     source,
		target:     target,
		transferer: transferer,
		logger:     shared.NewDiscardLogger(),
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = shared.WithLogger(e.logger, "component", "sync")
	return e
}

// Compare lists both catalogs and diffs them.
func (e *SyncEngine) Compare(ctx context.Context, sourceAccount, targetAccount string) (*models.CompareResult, error) {
	result, _, err := e.compare(ctx, sourceAccount, targetAccount, nil)
	if err != nil {
		return nil, err
	}
	e.recordCompare(ctx, result)
	return result, nil
}

// compare also returns the source listing so later phases can look up item names.
func (e *SyncEngine) compare(ctx context.Context, sourceAccount, targetAccount string, progress chan<- ProgressUpdate) (*models.CompareResult, []models.Item, error) {
	if e.source == nil || e.target == nil {
		return nil, nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchUpdate(FetchSource, 1, sourceAccount))
	source, err := e.source.ListItems(ctx, sourceAccount)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list source catalog: %w", err)
	}

	sendProgress(progress, fetchUpdate(FetchTarget, 2, targetAccount))
	target, err := e.target.ListItems(ctx, targetAccount)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list target catalog: %w", err)
	}

	result, err := Compare(source, target)
	if err != nil {
		return nil, nil, err
	}
	result.SourceAccount = sourceAccount
	result.TargetAccount = targetAccount
	result.ComparedAt = e.clock.Now().UTC()

	e.logger.Info("compared catalogs",
		"source", len(source), "target", len(target),
		"missing", len(result.MissingOnTarget), "different", len(result.DifferentMetadata), "extra", len(result.ExtraOnTarget))
	sendProgress(progress, comparedUpdate(result))
	return result, source, nil
}

// plan tracks action progress across phases.
type plan struct {
	ctx       context.Context
	progress  chan<- ProgressUpdate
	total     int
	processed int
}

func (p *plan) done(action models.SyncAction) {
	p.processed++
	sendAction(p.ctx, p.progress, actionUpdate(action, p.processed, p.total))
}

// Sync makes the target mirror the source: adds, then updates, then deletes.
//
// Errors are returned only for failures before the plan runs, such as a
// catalog that cannot be listed. Failed transfers are recorded as failed
// actions and counted in [models.SyncResult.Failed].
//
// One update per action is delivered on progress (blocking, abandoned if ctx
// is cancelled); fetch, compare and [TransferChunk] updates are best effort.
func (e *SyncEngine) Sync(ctx context.Context, sourceAccount, targetAccount string, dryRun bool, progress chan<- ProgressUpdate) (*models.SyncResult, error) {
	comparison, source, err := e.compare(ctx, sourceAccount, targetAccount, progress)
	if err != nil {
		return nil, err
	}

	result := &models.SyncResult{
		ID:            shared.GenerateID(),
		SourceAccount: sourceAccount,
		TargetAccount: targetAccount,
		SyncedAt:      comparison.ComparedAt,
		DryRun:        dryRun,
		Actions:       []models.SyncAction{},
	}

	if comparison.InSync() {
		e.logger.Info("catalogs already in sync")
		e.recordSync(ctx, result)
		return result, nil
	}

	if !dryRun && len(comparison.MissingOnTarget) > 0 && e.transferer == nil {
		return nil, fmt.Errorf("%w: no transferer configured", shared.ErrServiceUnavailable)
	}

	groups := comparison.DiffsByItem()
	p := &plan{
		ctx:      ctx,
		progress: progress,
		total:    len(comparison.MissingOnTarget) + len(groups) + len(comparison.ExtraOnTarget),
	}

	e.addPhase(ctx, comparison.MissingOnTarget, dryRun, result, p)
	e.updatePhase(groups, source, result, p)
	e.deletePhase(comparison.ExtraOnTarget, result, p)

	result.Total = result.Added + result.Deleted + result.Updated + result.Failed
	e.logger.Info("sync finished",
		"dry_run", dryRun, "added", result.Added, "updated", result.Updated,
		"deleted", result.Deleted, "failed", result.Failed)

	e.recordSync(ctx, result)
	return result, nil
}

// addPhase copies missing items. Actions are laid out in diff order up front
// and filled in as transfers complete, so completion order does not leak into
// the result.
func (e *SyncEngine) addPhase(ctx context.Context, missing []models.Item, dryRun bool, result *models.SyncResult, p *plan) {
	if len(missing) == 0 {
		return
	}

	start := len(result.Actions)
	for _, item := range missing {
		result.Actions = append(result.Actions, models.SyncAction{
			Kind:         models.ActionAdd,
			ItemID:       item.ID,
			ItemFilename: item.Filename,
			Status:       models.StatusPending,
		})
	}
	actions := result.Actions[start:]

	if dryRun {
		for i := range actions {
			actions[i].Status = models.StatusCompleted
			result.Added++
			p.done(actions[i])
		}
		return
	}

	e.transferer.withProgress(p.progress).TransferEach(ctx, missing, func(i int, tr models.TransferResult) {
		if tr.Status == models.TransferSuccess {
			actions[i].Status = models.StatusCompleted
			result.Added++
		} else {
			actions[i].Status = models.StatusFailed
			actions[i].Error = tr.Error
			result.Failed++
		}
		p.done(actions[i])
	})
}

// updatePhase emits one action per item with differing metadata.
//
// TODO: re-upload with corrected metadata once CatalogWriter can replace an
// existing item; the Photos Library API only allows editing descriptions of
// items the app created.
func (e *SyncEngine) updatePhase(groups []models.DiffGroup, source []models.Item, result *models.SyncResult, p *plan) {
	if len(groups) == 0 {
		return
	}
	names := make(map[string]string, len(source))
	for _, item := range source {
		names[item.ID] = item.Filename
	}
	for _, g := range groups {
		action := models.SyncAction{
			Kind:         models.ActionUpdate,
			ItemID:       g.ItemID,
			ItemFilename: names[g.ItemID],
			Status:       models.StatusCompleted,
		}
		result.Actions = append(result.Actions, action)
		result.Updated++
		p.done(action)
	}
}

// deletePhase emits one action per item only present on the target.
//
// TODO: call a CatalogWriter delete once one exists; the Photos Library API
// has no endpoint to delete media items, so the target keeps extras for now.
func (e *SyncEngine) deletePhase(extra []models.Item, result *models.SyncResult, p *plan) {
	for _, item := range extra {
		action := models.SyncAction{
			Kind:         models.ActionDelete,
			ItemID:       item.ID,
			ItemFilename: item.Filename,
			Status:       models.StatusCompleted,
		}
		result.Actions = append(result.Actions, action)
		result.Deleted++
		p.done(action)
	}
}

func (e *SyncEngine) recordCompare(ctx context.Context, result *models.CompareResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordCompare(ctx, result); err != nil {
		e.logger.Warn("failed to record compare run", "error", err)
	}
}

func (e *SyncEngine) recordSync(ctx context.Context, result *models.SyncResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordSync(ctx, result); err != nil {
		e.logger.Warn("failed to record sync run", "error", err)
	}
}
