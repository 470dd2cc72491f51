// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one sync between a source and a target account:
//  1. [CompareView] : Lists both catalogs and diffs them
//  2. [PlanView] : Browse the planned adds, updates and deletes
//  3. [ConfirmView] : Confirm the sync (or dry run)
//  4. [SyncView] : Progress bar and recent actions while the engine runs
//  5. [ResultView] : Counts and failed actions
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the sync engine. The model reads
// one update per command, so the engine's per-action sends never stall for long.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
