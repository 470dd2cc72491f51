// Package repositories implements SQLite persistence for linked accounts and run history.
//
// Key Implementations:
//   - [AccountRepository] : OAuth token storage for source and target accounts, with email-based lookups
//   - [RunRepository] : Compare and sync run history with the ordered actions of each sync
//
// [RunRepository] satisfies the sync engine's recorder interface, so passing it to
// the engine stores every run as it finishes.
package repositories
