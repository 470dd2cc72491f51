package models

import (
	"fmt"
	"time"
)

// ActionKind enumerates the steps of a reconciliation plan.
type ActionKind int

const (
	ActionAdd ActionKind = iota
	ActionUpdate
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return ""
	}
}

func (k ActionKind) MarshalText() ([]byte, error) {
	if s := k.String(); s != "" {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unknown action kind %d", int(k))
}

func (k *ActionKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "add":
		*k = ActionAdd
	case "update":
		*k = ActionUpdate
	case "delete":
		*k = ActionDelete
	default:
		return fmt.Errorf("unknown action kind %q", b)
	}
	return nil
}

// ActionStatus is the execution state of a [SyncAction].
type ActionStatus int

const (
	StatusPending ActionStatus = iota
	StatusCompleted
	StatusFailed
)

func (s ActionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

func (s ActionStatus) MarshalText() ([]byte, error) {
	if v := s.String(); v != "" {
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unknown action status %d", int(s))
}

func (s *ActionStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = StatusPending
	case "completed":
		*s = StatusCompleted
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown action status %q", b)
	}
	return nil
}

// TransferStatus is the outcome of a single item transfer.
type TransferStatus int

const (
	TransferSuccess TransferStatus = iota
	TransferFailed
)

func (s TransferStatus) String() string {
	switch s {
	case TransferSuccess:
		return "success"
	case TransferFailed:
		return "failed"
	default:
		return ""
	}
}

func (s TransferStatus) MarshalText() ([]byte, error) {
	if v := s.String(); v != "" {
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unknown transfer status %d", int(s))
}

// MetadataDiff is one differing comparable field of an item present in both catalogs.
// An item with three changed fields yields three records sharing its ItemID.
type MetadataDiff struct {
	ItemID      string `json:"item_id" yaml:"item_id"`
	Field       string `json:"field" yaml:"field"`
	SourceValue string `json:"source_value" yaml:"source_value"`
	TargetValue string `json:"target_value" yaml:"target_value"`
}

// CompareResult is a snapshot of one comparison between a source and a target catalog.
type CompareResult struct {
	SourceAccount     string         `json:"source_account" yaml:"source_account"`
	TargetAccount     string         `json:"target_account" yaml:"target_account"`
	ComparedAt        time.Time      `json:"comparison_date" yaml:"comparison_date"`
	TotalSource       int            `json:"total_source_items" yaml:"total_source_items"`
	TotalTarget       int            `json:"total_target_items" yaml:"total_target_items"`
	MissingOnTarget   []Item         `json:"missing_on_target" yaml:"missing_on_target"`
	DifferentMetadata []MetadataDiff `json:"different_metadata" yaml:"different_metadata"`
	ExtraOnTarget     []Item         `json:"extra_on_target" yaml:"extra_on_target"`
}

// PlanSize is the sum of missing, extra and metadata difference records.
func (c *CompareResult) PlanSize() int {
	return len(c.MissingOnTarget) + len(c.ExtraOnTarget) + len(c.DifferentMetadata)
}

// InSync reports whether the comparison found nothing to reconcile.
func (c *CompareResult) InSync() bool {
	return c.PlanSize() == 0
}

// DiffGroup holds every difference record of one item.
type DiffGroup struct {
	ItemID string
	Diffs  []MetadataDiff
}

// DiffsByItem groups metadata differences by item, in the order items first appear.
func (c *CompareResult) DiffsByItem() []DiffGroup {
	index := make(map[string]int)
	var groups []DiffGroup
	for _, d := range c.DifferentMetadata {
		i, ok := index[d.ItemID]
		if !ok {
			i = len(groups)
			index[d.ItemID] = i
			groups = append(groups, DiffGroup{ItemID: d.ItemID})
		}
		groups[i].Diffs = append(groups[i].Diffs, d)
	}
	return groups
}

// SyncAction is one planned or executed step of a sync run.
type SyncAction struct {
	Kind         ActionKind   `json:"action" yaml:"action"`
	ItemID       string       `json:"item_id" yaml:"item_id"`
	ItemFilename string       `json:"item_filename" yaml:"item_filename"`
	Status       ActionStatus `json:"status" yaml:"status"`
	Error        string       `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// SyncResult aggregates the outcome of one sync run.
type SyncResult struct {
	ID            string       `json:"id,omitempty" yaml:"id,omitempty"`
	SourceAccount string       `json:"source_account" yaml:"source_account"`
	TargetAccount string       `json:"target_account" yaml:"target_account"`
	SyncedAt      time.Time    `json:"sync_date" yaml:"sync_date"`
	Added         int          `json:"added" yaml:"added"`
	Deleted       int          `json:"deleted" yaml:"deleted"`
	Updated       int          `json:"updated" yaml:"updated"`
	Failed        int          `json:"failed_actions" yaml:"failed_actions"`
	Total         int          `json:"total_actions" yaml:"total_actions"`
	DryRun        bool         `json:"dry_run" yaml:"dry_run"`
	Actions       []SyncAction `json:"actions" yaml:"actions"`
}

// PartialSuccess reports whether the run completed with at least one failed action.
func (r *SyncResult) PartialSuccess() bool {
	return r.Failed > 0
}

// TransferResult is the outcome of copying one item from source to target.
type TransferResult struct {
	ItemID           string         `json:"item_id" yaml:"item_id"`
	Status           TransferStatus `json:"status" yaml:"status"`
	BytesTransferred int64          `json:"bytes_transferred" yaml:"bytes_transferred"`
	RetryCount       int            `json:"retry_count" yaml:"retry_count"`
	Error            string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Stored           *Item          `json:"stored,omitempty" yaml:"stored,omitempty"` // Copy created on the target
}
