package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/photomirror/internal/models"
)

// ProgressUpdate represents a progress event during a compare or sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase   // Operation phase
	Step    int     // Actions processed so far (action phases) or current step
	Total   int     // Planned actions (action phases) or total steps
	ItemID  string  // Item the update refers to, if any
	Percent float64 // Step / Total * 100 for action phases
	Bytes   int64   // Bytes received so far, [TransferChunk] only; Total repeats it
	Message string  // Human-readable message for display
	Data    any     // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchTarget
	Diffing
	AddItems
	UpdateItems
	DeleteItems
	TransferChunk
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchTarget:
		return "fetch_target"
	case Diffing:
		return "compare"
	case AddItems:
		return "add"
	case UpdateItems:
		return "update"
	case DeleteItems:
		return "delete"
	case TransferChunk:
		return "transfer_chunk"
	default:
		return ""
	}
}

// IsAction reports whether updates of this phase are emitted once per plan action.
func (p Phase) IsAction() bool {
	return p == AddItems || p == UpdateItems || p == DeleteItems
}

func phaseFor(kind models.ActionKind) Phase {
	switch kind {
	case models.ActionUpdate:
		return UpdateItems
	case models.ActionDelete:
		return DeleteItems
	default:
		return AddItems
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so byte-level updates never stall a transfer.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// sendAction delivers a per-action update, blocking until the consumer receives
// it or ctx is cancelled.
func sendAction(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}

func fetchUpdate(phase Phase, step int, account string) ProgressUpdate {
	side := "source"
	if phase == FetchTarget {
		side = "target"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   2,
		Message: fmt.Sprintf("Listing %s catalog (%s)...", side, account),
	}
}

func comparedUpdate(result *models.CompareResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Diffing,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("%d missing, %d with different metadata, %d extra",
			len(result.MissingOnTarget), len(result.DiffsByItem()), len(result.ExtraOnTarget)),
		Data: result,
	}
}

func actionUpdate(action models.SyncAction, step, total int) ProgressUpdate {
	mark := "✓"
	switch action.Status {
	case models.StatusFailed:
		mark = "✗"
	case models.StatusPending:
		mark = "•"
	}
	name := action.ItemFilename
	if name == "" {
		name = action.ItemID
	}
	return ProgressUpdate{
		Phase:   phaseFor(action.Kind),
		Step:    step,
		Total:   total,
		ItemID:  action.ItemID,
		Percent: float64(step) / float64(total) * 100,
		Message: fmt.Sprintf("[%d/%d] %s %s %s", step, total, mark, action.Kind, name),
		Data:    action,
	}
}

func chunkUpdate(itemID string, soFar int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:  TransferChunk,
		ItemID: itemID,
		Bytes:  soFar,
		Total:  int(soFar),
	}
}
