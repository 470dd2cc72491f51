// Package tasks mirrors a source photo catalog onto a target catalog with real-time progress reporting.
//
// # Core Operations
//
//  1. [Compare] : Diff two catalog listings by item ID
//     - Missing on target, in source order
//     - Extra on target, in target order
//     - One [models.MetadataDiff] per differing comparable field
//
//  2. [Transferer] : Copy items from source to target
//     - Streams each item in chunks, then uploads the assembled payload
//     - Retries the whole attempt with exponential backoff on a [clockwork.Clock]
//     - Fans out over a fixed-size worker pool; one failing item never aborts the batch
//
//  3. [SyncEngine.Sync] : Reconcile the target with the source
//     - Lists both catalogs and compares them
//     - Runs the plan as add, update, then delete actions
//     - Supports dry runs that plan without transferring
//
// # Progress Reporting
//
// Operations report progress on a caller-supplied channel of [ProgressUpdate].
// Per-action updates (add, update, delete) are delivered reliably, one per action
// with a monotonically increasing percentage. All other updates, including
// byte-level [TransferChunk] updates, use select with default and may be dropped.
//
// # Errors
//
// A transfer that exhausts its retries returns a [TransferError]. The sync
// engine turns it into a failed action; [SyncEngine.Sync] itself only fails
// before the plan starts (listing errors, [shared.ErrMalformedCatalog]).
//
// # Persistence
//
// The optional [RunRecorder] (repositories.RunRepository) stores each compare and
// sync result for the history command.
package tasks
