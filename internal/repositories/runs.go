package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
)

// RunRepository stores compare and sync outcomes. It satisfies the sync
// engine's recorder interface and serves the history command.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, kind, source_account, target_account, ran_at, dry_run,
	total_source, total_target, missing, extra, different,
	added, updated, deleted, failed, total`

func insertRun(ctx context.Context, tx *sql.Tx, s models.RunSummary) error {
	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query,
		s.ID, string(s.Kind), s.SourceAccount, s.TargetAccount, s.RanAt, s.DryRun,
		s.TotalSource, s.TotalTarget, s.Missing, s.Extra, s.Different,
		s.Added, s.Updated, s.Deleted, s.Failed, s.Total,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordCompare stores a compare run under a generated ID.
func (r *RunRepository) RecordCompare(ctx context.Context, result *models.CompareResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summary := models.RunSummary{
		ID:            shared.GenerateID(),
		Kind:          models.RunCompare,
		SourceAccount: result.SourceAccount,
		TargetAccount: result.TargetAccount,
		RanAt:         result.ComparedAt,
		TotalSource:   result.TotalSource,
		TotalTarget:   result.TotalTarget,
		Missing:       len(result.MissingOnTarget),
		Extra:         len(result.ExtraOnTarget),
		Different:     len(result.DifferentMetadata),
	}
	if err := insertRun(ctx, tx, summary); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RecordSync stores a sync run and its actions in plan order.
// A result without an ID is assigned one.
func (r *RunRepository) RecordSync(ctx context.Context, result *models.SyncResult) error {
	if result.ID == "" {
		result.ID = shared.GenerateID()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summary := models.RunSummary{
		ID:            result.ID,
		Kind:          models.RunSync,
		SourceAccount: result.SourceAccount,
		TargetAccount: result.TargetAccount,
		RanAt:         result.SyncedAt,
		DryRun:        result.DryRun,
		Added:         result.Added,
		Updated:       result.Updated,
		Deleted:       result.Deleted,
		Failed:        result.Failed,
		Total:         result.Total,
	}
	if err := insertRun(ctx, tx, summary); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_actions (run_id, position, kind, item_id, item_filename, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare action insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range result.Actions {
		_, err := stmt.ExecContext(ctx, result.ID, i, a.Kind.String(), a.ItemID, a.ItemFilename, a.Status.String(), a.Error)
		if err != nil {
			return fmt.Errorf("failed to insert action %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func scanRun(row rowScanner) (models.RunSummary, error) {
	var (
		s    models.RunSummary
		kind string
	)
	err := row.Scan(&s.ID, &kind, &s.SourceAccount, &s.TargetAccount, &s.RanAt, &s.DryRun,
		&s.TotalSource, &s.TotalTarget, &s.Missing, &s.Extra, &s.Different,
		&s.Added, &s.Updated, &s.Deleted, &s.Failed, &s.Total)
	s.Kind = models.RunKind(kind)
	return s, err
}

// List returns the most recent runs first. A zero limit returns every run
// and an empty kind matches both kinds.
func (r *RunRepository) List(ctx context.Context, kind models.RunKind, limit int) ([]models.RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	args := []any{}

	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY ran_at DESC, id ASC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.RunSummary{}
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Get returns one run with its actions.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.RunDetail, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	summary, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	actions, err := r.actions(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.RunDetail{RunSummary: summary, Actions: actions}, nil
}

func (r *RunRepository) actions(ctx context.Context, runID string) ([]models.SyncAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, item_id, item_filename, status, error_message
		FROM run_actions
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	actions := []models.SyncAction{}
	for rows.Next() {
		var (
			a            models.SyncAction
			kind, status string
		)
		if err := rows.Scan(&kind, &a.ItemID, &a.ItemFilename, &status, &a.Error); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		if err := a.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, fmt.Errorf("stored action: %w", err)
		}
		if err := a.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("stored action: %w", err)
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return actions, nil
}

// Delete removes a run and its actions.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_actions WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete actions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return tx.Commit()
}
