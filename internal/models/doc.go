// Package models defines domain entities for the photomirror sync service.
//
// The package contains two categories of types:
//
// 1. Value records produced and consumed by the sync engine:
//   - [Item] : One remote media item with comparable and transfer-only metadata
//   - [CompareResult] : Snapshot of a catalog comparison with its [MetadataDiff] records
//   - [SyncAction] : One planned or executed add/update/delete step
//   - [SyncResult] : Aggregate outcome of a sync run
//   - [TransferResult] : Outcome of copying one item from source to target
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Account] : A linked library account with its OAuth token
//
// Enumerations ([ActionKind], [ActionStatus], [TransferStatus]) are typed integers that
// marshal to their lowercase names so JSON and YAML output stays readable.
package models
