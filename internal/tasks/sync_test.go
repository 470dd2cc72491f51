package tasks

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	th "github.com/desertthunder/photomirror/internal/testing"
)

type syncFixture struct {
	source *th.MemoryCatalog
	target *th.MemoryCatalog
	clock  *th.RecordingClock
}

func newSyncFixture(source, target []models.Item) *syncFixture {
	f := &syncFixture{
		source: th.NewMemoryCatalog("src"),
		target: th.NewMemoryCatalog("dst"),
		clock:  th.NewRecordingClock(),
	}
	for _, item := range source {
		f.source.Add("src", item, []byte("data-"+item.ID))
	}
	for _, item := range target {
		f.target.Add("dst", item, []byte("data-"+item.ID))
	}
	return f
}

func (f *syncFixture) engine(opts ...SyncOption) *SyncEngine {
	tr := NewTransferer(f.source, f.target, TransferOpts{MaxConcurrent: 2, Clock: f.clock})
	return NewSyncEngine(f.source, f.target, tr, append([]SyncOption{WithClock(f.clock)}, opts...)...)
}

type fakeRecorder struct {
	compares []*models.CompareResult
	syncs    []*models.SyncResult
	err      error
}

func (r *fakeRecorder) RecordCompare(ctx context.Context, result *models.CompareResult) error {
	r.compares = append(r.compares, result)
	return r.err
}

func (r *fakeRecorder) RecordSync(ctx context.Context, result *models.SyncResult) error {
	r.syncs = append(r.syncs, result)
	return r.err
}

func collect(progress chan ProgressUpdate) []ProgressUpdate {
	close(progress)
	var updates []ProgressUpdate
	for u := range progress {
		if u.Phase.IsAction() {
			updates = append(updates, u)
		}
	}
	return updates
}

func TestSyncEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("identical catalogs need no actions", func(t *testing.T) {
		items := []models.Item{photo("p1", "a.jpg"), photo("p2", "b.jpg")}
		f := newSyncFixture(items, items)

		result, err := f.engine().Sync(ctx, "src", "dst", false, nil)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Total != 0 || result.Added != 0 || result.Deleted != 0 || result.Updated != 0 || result.Failed != 0 {
			t.Errorf("expected all counters zero, got %+v", result)
		}
		if downloads, uploads := f.source.Calls(); downloads != 0 || uploads != 0 {
			t.Errorf("expected no transfers, got %d downloads", downloads)
		}
		if result.ID == "" || !result.SyncedAt.Equal(f.clock.Now()) {
			t.Errorf("expected id and timestamp to be set, got %+v", result)
		}
	})

	t.Run("add-only with one failing transfer", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a.jpg"), photo("p2", "b.jpg"), photo("p3", "c.jpg")}, nil)
		f.source.FailDownloads("p2", -1)

		result, err := f.engine().Sync(ctx, "src", "dst", false, nil)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Added != 2 || result.Failed != 1 || result.Total != 3 {
			t.Errorf("expected added=2 failed=1 total=3, got %+v", result)
		}
		if !result.PartialSuccess() {
			t.Error("expected partial success")
		}

		var order []string
		for _, a := range result.Actions {
			order = append(order, a.ItemID)
			if a.Kind != models.ActionAdd {
				t.Errorf("unexpected action kind %v", a.Kind)
			}
		}
		if !slices.Equal(order, []string{"p1", "p2", "p3"}) {
			t.Errorf("actions out of diff order: %v", order)
		}
		if a := result.Actions[1]; a.Status != models.StatusFailed || a.Error == "" {
			t.Errorf("expected p2 to be failed with a message, got %+v", a)
		}
		if a := result.Actions[0]; a.Status != models.StatusCompleted || a.ItemFilename != "a.jpg" {
			t.Errorf("expected p1 to be completed, got %+v", a)
		}
	})

	t.Run("full plan runs add then update then delete", func(t *testing.T) {
		changed := photo("p1", "renamed.jpg")
		changed.Width = 10
		f := newSyncFixture(
			[]models.Item{photo("p1", "a.jpg"), photo("p2", "b.jpg")},
			[]models.Item{changed, photo("p9", "z.jpg")},
		)
		progress := make(chan ProgressUpdate, 32)

		result, err := f.engine().Sync(ctx, "src", "dst", false, progress)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Added != 1 || result.Updated != 1 || result.Deleted != 1 || result.Total != 3 {
			t.Errorf("unexpected counters %+v", result)
		}

		var kinds []models.ActionKind
		for _, a := range result.Actions {
			kinds = append(kinds, a.Kind)
		}
		if !slices.Equal(kinds, []models.ActionKind{models.ActionAdd, models.ActionUpdate, models.ActionDelete}) {
			t.Errorf("unexpected action order %v", kinds)
		}
		if update := result.Actions[1]; update.ItemID != "p1" || update.ItemFilename != "a.jpg" {
			t.Errorf("update should carry the source filename, got %+v", update)
		}

		updates := collect(progress)
		if len(updates) != 3 {
			t.Fatalf("expected 3 action updates, got %d", len(updates))
		}
		wantPhases := []Phase{AddItems, UpdateItems, DeleteItems}
		for i, u := range updates {
			if u.Phase != wantPhases[i] {
				t.Errorf("update %d: expected phase %v, got %v", i, wantPhases[i], u.Phase)
			}
		}
		if updates[2].Percent != 100 || updates[2].ItemID != "p9" {
			t.Errorf("expected last update to be delete p9 at 100%%, got %+v", updates[2])
		}
	})

	t.Run("transfer chunks are reported on the sync channel", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a.jpg")}, nil)
		engine := f.engine()
		progress := make(chan ProgressUpdate, 32)

		if _, err := engine.Sync(ctx, "src", "dst", false, progress); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		close(progress)

		var chunks []ProgressUpdate
		for u := range progress {
			if u.Phase == TransferChunk {
				chunks = append(chunks, u)
			}
		}
		if len(chunks) == 0 {
			t.Fatal("expected chunk updates")
		}
		last := chunks[len(chunks)-1]
		if last.ItemID != "p1" || last.Bytes != int64(len("data-p1")) {
			t.Errorf("unexpected last chunk update %+v", last)
		}
		if engine.transferer.Options().Progress != nil {
			t.Error("the engine's transferer should keep its own options")
		}
	})

	t.Run("progress is monotonic and counts distinct updated items", func(t *testing.T) {
		var source, target []models.Item
		for _, id := range []string{"a", "b", "c", "d"} {
			source = append(source, photo(id, id))
		}
		multi := photo("a", "a2")
		multi.Width, multi.Height = 1, 1
		target = append(target, multi, photo("x", "x"), photo("y", "y"))
		f := newSyncFixture(source, target)
		progress := make(chan ProgressUpdate, 64)

		result, err := f.engine().Sync(ctx, "src", "dst", false, progress)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}

		updates := collect(progress)
		if len(updates) != result.Total {
			t.Fatalf("expected one update per action (%d), got %d", result.Total, len(updates))
		}
		for i, u := range updates {
			if u.Total != 6 {
				t.Errorf("expected 6 planned actions, got %d", u.Total)
			}
			if i > 0 && u.Percent <= updates[i-1].Percent {
				t.Errorf("percent not increasing: %v then %v", updates[i-1].Percent, u.Percent)
			}
			if i > 0 && u.Phase < updates[i-1].Phase {
				t.Errorf("phase went backwards: %v then %v", updates[i-1].Phase, u.Phase)
			}
		}
		if result.Updated != 1 {
			t.Errorf("three differing fields of one item should be one update, got %d", result.Updated)
		}
	})

	t.Run("dry run plans without transferring", func(t *testing.T) {
		source := []models.Item{photo("p1", "a.jpg"), photo("p2", "b.jpg"), photo("p3", "c.jpg")}
		target := []models.Item{photo("p3", "other.jpg"), photo("p4", "d.jpg")}

		dry := newSyncFixture(source, target)
		dryResult, err := dry.engine().Sync(ctx, "src", "dst", true, nil)
		if err != nil {
			t.Fatalf("dry run failed: %v", err)
		}
		if downloads, uploads := dry.source.Calls(); downloads != 0 || uploads != 0 {
			t.Errorf("dry run touched the source: %d downloads", downloads)
		}
		if _, uploads := dry.target.Calls(); uploads != 0 {
			t.Errorf("dry run uploaded %d items", uploads)
		}
		if !dryResult.DryRun {
			t.Error("expected DryRun to be echoed")
		}

		wet := newSyncFixture(source, target)
		wetResult, err := wet.engine().Sync(ctx, "src", "dst", false, nil)
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		if dryResult.Added != wetResult.Added || dryResult.Updated != wetResult.Updated || dryResult.Deleted != wetResult.Deleted {
			t.Errorf("dry run counters %+v differ from real run %+v", dryResult, wetResult)
		}
	})

	t.Run("dry run needs no transferer", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a.jpg")}, nil)
		engine := NewSyncEngine(f.source, f.target, nil)

		result, err := engine.Sync(ctx, "src", "dst", true, nil)
		if err != nil || result.Added != 1 {
			t.Errorf("expected planned add, got %+v (%v)", result, err)
		}

		if _, err := engine.Sync(ctx, "src", "dst", false, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable without transferer, got %v", err)
		}
	})

	t.Run("second sync after adds is empty", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a.jpg"), photo("p2", "b.jpg")}, nil)
		engine := f.engine()

		if _, err := engine.Sync(ctx, "src", "dst", false, nil); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}
		again, err := engine.Sync(ctx, "src", "dst", false, nil)
		if err != nil {
			t.Fatalf("second sync failed: %v", err)
		}
		if again.Total != 0 {
			t.Errorf("expected empty plan on second run, got %+v", again)
		}
	})

	t.Run("catalog errors are returned", func(t *testing.T) {
		f := newSyncFixture(nil, nil)
		f.target.ListErr = shared.ErrServiceUnavailable

		result, err := f.engine().Sync(ctx, "src", "dst", false, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) || result != nil {
			t.Errorf("expected listing error, got %+v (%v)", result, err)
		}
	})

	t.Run("malformed catalogs are returned", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a"), photo("p1", "b")}, nil)

		if _, err := f.engine().Sync(ctx, "src", "dst", false, nil); !errors.Is(err, shared.ErrMalformedCatalog) {
			t.Errorf("expected ErrMalformedCatalog, got %v", err)
		}
	})

	t.Run("results are recorded", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a.jpg")}, nil)
		recorder := &fakeRecorder{err: errors.New("disk full")}
		engine := f.engine(WithRecorder(recorder))

		comparison, err := engine.Compare(ctx, "src", "dst")
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if comparison.SourceAccount != "src" || comparison.TargetAccount != "dst" || comparison.ComparedAt.IsZero() {
			t.Errorf("expected stamped comparison, got %+v", comparison)
		}

		if _, err := engine.Sync(ctx, "src", "dst", true, nil); err != nil {
			t.Fatalf("recorder failures must not fail the run: %v", err)
		}
		if len(recorder.compares) != 1 || len(recorder.syncs) != 1 {
			t.Errorf("expected 1 compare and 1 sync recorded, got %d and %d", len(recorder.compares), len(recorder.syncs))
		}
	})

	t.Run("cancelled sync reports failed adds", func(t *testing.T) {
		f := newSyncFixture([]models.Item{photo("p1", "a.jpg"), photo("p2", "b.jpg")}, nil)
		engine := f.engine()
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		progress := make(chan ProgressUpdate)
		go func() {
			for u := range progress {
				if u.Phase == FetchTarget {
					cancel()
				}
			}
		}()
		defer close(progress)

		result, err := engine.Sync(cctx, "src", "dst", false, progress)
		if err != nil {
			t.Fatalf("cancellation after listing must not fail the run: %v", err)
		}
		if result.Added+result.Failed != 2 {
			t.Errorf("every add must be accounted for, got %+v", result)
		}
	})
}
