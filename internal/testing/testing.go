// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/services"
	"github.com/jonboulle/clockwork"
)

var _ services.Catalog = (*MemoryCatalog)(nil)

// ErrInjected is returned by [MemoryCatalog] for scripted failures.
var ErrInjected = errors.New("injected failure")

// MemoryCatalog is an in-memory [services.Catalog].
//
// Uploads are appended to the account given to [NewMemoryCatalog] and keep the
// source item's ID, so a second compare after a sync sees the items as present.
type MemoryCatalog struct {
	mu            sync.Mutex
	account       string
	items         map[string][]models.Item
	payloads      map[string][]byte
	failDownloads map[string]int
	failUploads   map[string]int
	downloads     int
	uploads       int

	ListErr error // Returned by every ListItems call when set
}

func NewMemoryCatalog(account string) *MemoryCatalog {
	return &MemoryCatalog{
		account:       account,
		items:         make(map[string][]models.Item),
		payloads:      make(map[string][]byte),
		failDownloads: make(map[string]int),
		failUploads:   make(map[string]int),
	}
}

// Add stores an item and its payload under account.
func (c *MemoryCatalog) Add(account string, item models.Item, payload []byte) *MemoryCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item.SourceURL == "" {
		item.SourceURL = "memory://" + item.ID
	}
	c.items[account] = append(c.items[account], item)
	c.payloads[item.ID] = payload
	return c
}

// FailDownloads makes the next n downloads of itemID fail; a negative n fails forever.
func (c *MemoryCatalog) FailDownloads(itemID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failDownloads[itemID] = n
}

// FailUploads makes the next n uploads of itemID fail; a negative n fails forever.
func (c *MemoryCatalog) FailUploads(itemID string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failUploads[itemID] = n
}

// Calls returns how many downloads and uploads have been attempted.
func (c *MemoryCatalog) Calls() (downloads, uploads int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.downloads, c.uploads
}

func (c *MemoryCatalog) Name() string { return "memory" }

func (c *MemoryCatalog) ListItems(ctx context.Context, account string) ([]models.Item, error) {
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items[account]), nil
}

// consume reports whether a scripted failure applies and uses it up.
func consume(failures map[string]int, id string) bool {
	n, ok := failures[id]
	switch {
	case !ok || n == 0:
		return false
	case n > 0:
		failures[id] = n - 1
	}
	return true
}

func (c *MemoryCatalog) DownloadChunks(ctx context.Context, item models.Item, chunkSize int) iter.Seq2[[]byte, error] {
	c.mu.Lock()
	c.downloads++
	fail := consume(c.failDownloads, item.ID)
	payload, ok := c.payloads[item.ID]
	c.mu.Unlock()

	return func(yield func([]byte, error) bool) {
		switch {
		case fail:
			yield(nil, fmt.Errorf("%w: download %s", ErrInjected, item.ID))
			return
		case !ok:
			yield(nil, fmt.Errorf("no payload for %s", item.ID))
			return
		}
		for chunk := range slices.Chunk(payload, chunkSize) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (c *MemoryCatalog) Upload(ctx context.Context, data []byte, meta models.Item) (*models.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads++
	if consume(c.failUploads, meta.ID) {
		return nil, fmt.Errorf("%w: upload %s", ErrInjected, meta.ID)
	}

	stored := meta
	stored.SourceURL = ""
	c.items[c.account] = append(c.items[c.account], stored)
	c.payloads[stored.ID] = slices.Clone(data)
	return &stored, nil
}

// RecordingClock fires every After immediately and records the requested durations.
type RecordingClock struct {
	clockwork.Clock
	mu    sync.Mutex
	waits []time.Duration
}

func NewRecordingClock() *RecordingClock {
	return &RecordingClock{Clock: clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))}
}

func (c *RecordingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

// Waits returns the durations passed to After, in call order.
func (c *RecordingClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.waits)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
