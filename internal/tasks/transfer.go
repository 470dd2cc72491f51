package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/services"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/jonboulle/clockwork"
)

// TransferOpts contains configuration for the [Transferer].
type TransferOpts struct {
	MaxConcurrent int                   // Concurrent workers (default: 3)
	ChunkSize     int                   // Download chunk size in bytes (default: 8 MiB)
	MaxRetries    int                   // Retries after the first attempt (default: 3)
	BaseDelay     time.Duration         // First backoff delay, doubled per retry (default: 1s)
	Clock         clockwork.Clock       // Clock used for backoff waits
	Logger        *log.Logger           // Defaults to a discard logger
	Progress      chan<- ProgressUpdate // Optional lossy byte-level progress
}

// DefaultTransferOpts returns the options used when a field is left zero.
func DefaultTransferOpts() TransferOpts {
	return TransferOpts{
		MaxConcurrent: 3,
		ChunkSize:     8 * 1024 * 1024,
		MaxRetries:    3,
		BaseDelay:     time.Second,
	}
}

// TransferOptsFromConfig maps the [transfer] config section to [TransferOpts].
// Config values are explicit, so a configured 0 for retries or delay means
// none rather than the default.
func TransferOptsFromConfig(cfg shared.TransferConfig) TransferOpts {
	opts := TransferOpts{
		MaxConcurrent: cfg.MaxConcurrent,
		ChunkSize:     cfg.ChunkSize(),
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.BaseDelay(),
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = -1
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = -1
	}
	return opts
}

// TransferError is returned once an item's transfer gives up.
type TransferError struct {
	ItemID   string
	Attempts int   // Attempts made, including the first
	Err      error // Cause of the last attempt
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s failed after %d attempt(s): %v", e.ItemID, e.Attempts, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRetryable
	outcomeFatal
)

// attemptOutcome is the result of one download+upload attempt; the retry loop
// decides what to do next from kind alone.
type attemptOutcome struct {
	kind   outcomeKind
	stored *models.Item
	bytes  int64
	err    error
}

// Transferer copies items from a source reader to a target writer with
// retries and a bounded worker pool.
type Transferer struct {
	source services.CatalogReader
	target services.CatalogWriter
	opts   TransferOpts
	logger *log.Logger
}

// NewTransferer creates a [Transferer], filling zero options from [DefaultTransferOpts].
// A negative MaxRetries disables retries and a negative BaseDelay retries without waiting.
func NewTransferer(source services.CatalogReader, target services.CatalogWriter, opts TransferOpts) *Transferer {
	defaults := DefaultTransferOpts()
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaults.MaxConcurrent
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaults.ChunkSize
	}
	switch {
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	case opts.MaxRetries == 0:
		opts.MaxRetries = defaults.MaxRetries
	}
	switch {
	case opts.BaseDelay < 0:
		opts.BaseDelay = 0
	case opts.BaseDelay == 0:
		opts.BaseDelay = defaults.BaseDelay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewDiscardLogger()
	}

	return &Transferer{
		source: source,
		target: target,
		opts:   opts,
		logger: shared.WithLogger(opts.Logger, "component", "transfer"),
	}
}

// Options returns the effective options.
func (t *Transferer) Options() TransferOpts {
	return t.opts
}

// withProgress returns a copy of t that reports chunk progress on progress,
// unless t already has a channel of its own.
func (t *Transferer) withProgress(progress chan<- ProgressUpdate) *Transferer {
	if progress == nil || t.opts.Progress != nil {
		return t
	}
	c := *t
	c.opts.Progress = progress
	return &c
}

// attempt streams the item into memory, then uploads it.
func (t *Transferer) attempt(ctx context.Context, item models.Item) attemptOutcome {
	if err := ctx.Err(); err != nil {
		return attemptOutcome{kind: outcomeFatal, err: err}
	}

	var payload []byte
	for chunk, err := range t.source.DownloadChunks(ctx, item, t.opts.ChunkSize) {
		if err != nil {
			return t.failed(ctx, fmt.Errorf("download: %w", err))
		}
		payload = append(payload, chunk...)
		sendProgress(t.opts.Progress, chunkUpdate(item.ID, int64(len(payload))))
	}

	stored, err := t.target.Upload(ctx, payload, item)
	if err != nil {
		return t.failed(ctx, fmt.Errorf("upload: %w", err))
	}
	if stored == nil {
		return t.failed(ctx, fmt.Errorf("upload: %w: no item returned", shared.ErrUploadFailed))
	}

	return attemptOutcome{kind: outcomeSuccess, stored: stored, bytes: int64(len(payload))}
}

// failed classifies an attempt error; anything but cancellation of the caller's context is retryable.
func (t *Transferer) failed(ctx context.Context, err error) attemptOutcome {
	if ctx.Err() != nil {
		return attemptOutcome{kind: outcomeFatal, err: errors.Join(ctx.Err(), err)}
	}
	return attemptOutcome{kind: outcomeRetryable, err: err}
}

// backoff returns BaseDelay * 2^attempt.
func (t *Transferer) backoff(attempt int) time.Duration {
	return t.opts.BaseDelay * time.Duration(1<<attempt)
}

// TransferOne copies a single item, retrying the whole download and upload
// up to MaxRetries times with exponential backoff.
//
// The returned result is always populated; on failure the error is a *[TransferError].
func (t *Transferer) TransferOne(ctx context.Context, item models.Item) (models.TransferResult, error) {
	result := models.TransferResult{ItemID: item.ID, Status: models.TransferFailed}
	logger := t.logger.With("item", item.ID)

	if item.ID == "" {
		err := &TransferError{Attempts: 0, Err: fmt.Errorf("%w: item has no id", shared.ErrInvalidInput)}
		result.Error = err.Error()
		return result, err
	}

	var last error
	attempts := 0
	for n := 0; n <= t.opts.MaxRetries; n++ {
		attempts++
		outcome := t.attempt(ctx, item)

		switch outcome.kind {
		case outcomeSuccess:
			result.Status = models.TransferSuccess
			result.BytesTransferred = outcome.bytes
			result.RetryCount = n
			result.Stored = outcome.stored
			logger.Debug("transferred", "bytes", outcome.bytes, "retries", n)
			return result, nil
		case outcomeFatal:
			return t.giveUp(result, attempts, outcome.err)
		}

		last = outcome.err
		if n == t.opts.MaxRetries {
			break
		}

		delay := t.backoff(n)
		logger.Warn("transfer attempt failed", "attempt", attempts, "retry_in", delay, "error", last)
		select {
		case <-ctx.Done():
			return t.giveUp(result, attempts, errors.Join(ctx.Err(), last))
		case <-t.opts.Clock.After(delay):
		}
	}

	return t.giveUp(result, attempts, last)
}

func (t *Transferer) giveUp(result models.TransferResult, attempts int, cause error) (models.TransferResult, error) {
	err := &TransferError{ItemID: result.ItemID, Attempts: attempts, Err: cause}
	result.RetryCount = attempts - 1
	result.Error = err.Error()
	t.logger.Error("transfer failed", "item", result.ItemID, "attempts", attempts, "error", cause)
	return result, err
}

type indexedResult struct {
	index  int
	result models.TransferResult
}

// TransferEach runs [Transferer.TransferOne] over items on MaxConcurrent
// workers and calls fn from the calling goroutine as each item completes.
// Every item yields exactly one call, failures included.
func (t *Transferer) TransferEach(ctx context.Context, items []models.Item, fn func(index int, result models.TransferResult)) {
	if len(items) == 0 {
		return
	}

	jobs := make(chan int, len(items))
	results := make(chan indexedResult, len(items))

	workers := min(t.opts.MaxConcurrent, len(items))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go t.worker(ctx, &wg, items, jobs, results)
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		fn(res.index, res.result)
	}
}

// worker is a worker goroutine that transfers items from the jobs channel.
func (t *Transferer) worker(ctx context.Context, wg *sync.WaitGroup, items []models.Item, jobs <-chan int, results chan<- indexedResult) {
	defer wg.Done()

	for i := range jobs {
		res, _ := t.TransferOne(ctx, items[i])
		results <- indexedResult{index: i, result: res}
	}
}

// TransferMany transfers items concurrently and returns one result per item in completion order.
func (t *Transferer) TransferMany(ctx context.Context, items []models.Item) []models.TransferResult {
	results := make([]models.TransferResult, 0, len(items))
	t.TransferEach(ctx, items, func(_ int, r models.TransferResult) {
		results = append(results, r)
	})
	return results
}
