package models

import (
	"fmt"
	"time"
)

// RunKind distinguishes stored compare runs from sync runs.
type RunKind string

const (
	RunCompare RunKind = "compare"
	RunSync    RunKind = "sync"
)

// ParseRunKind converts a history filter string to a [RunKind].
func ParseRunKind(s string) (RunKind, error) {
	switch RunKind(s) {
	case RunCompare, RunSync:
		return RunKind(s), nil
	default:
		return "", fmt.Errorf("unknown run kind %q", s)
	}
}

// RunSummary is one row of run history. Compare runs fill the catalog counts
// and sync runs fill the action counts.
type RunSummary struct {
	ID            string    `json:"id" yaml:"id"`
	Kind          RunKind   `json:"kind" yaml:"kind"`
	SourceAccount string    `json:"source_account" yaml:"source_account"`
	TargetAccount string    `json:"target_account" yaml:"target_account"`
	RanAt         time.Time `json:"ran_at" yaml:"ran_at"`
	DryRun        bool      `json:"dry_run" yaml:"dry_run"`
	TotalSource   int       `json:"total_source_items" yaml:"total_source_items"`
	TotalTarget   int       `json:"total_target_items" yaml:"total_target_items"`
	Missing       int       `json:"missing_on_target" yaml:"missing_on_target"`
	Extra         int       `json:"extra_on_target" yaml:"extra_on_target"`
	Different     int       `json:"different_metadata" yaml:"different_metadata"`
	Added         int       `json:"added" yaml:"added"`
	Updated       int       `json:"updated" yaml:"updated"`
	Deleted       int       `json:"deleted" yaml:"deleted"`
	Failed        int       `json:"failed_actions" yaml:"failed_actions"`
	Total         int       `json:"total_actions" yaml:"total_actions"`
}

// RunDetail is a stored run with its recorded actions.
type RunDetail struct {
	RunSummary `yaml:",inline"`
	Actions    []SyncAction `json:"actions" yaml:"actions"`
}
