package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
)

// AccountRepository implements [models.Repository] for linked [models.Account] records.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, role, access_token, refresh_token, token_expiry, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		id, email, role      string
		access, refresh      string
		expiry               sql.NullTime
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &email, &role, &access, &refresh, &expiry, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	account := models.NewAccount(email, models.AccountRole(role))
	account.SetID(id)
	account.SetToken(access, refresh, expiry.Time)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)
	return account, nil
}

// Create inserts a new account with a generated ID
func (r *AccountRepository) Create(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, account.Email(), string(account.Role()), account.AccessToken(),
		account.RefreshToken(), nullTime(account.TokenExpiry()), account.CreatedAt(), account.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.SetID(id)
	return nil
}

// Get retrieves an account by ID
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	row := r.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// GetByEmail retrieves an account by its email address
func (r *AccountRepository) GetByEmail(email string) (*models.Account, error) {
	row := r.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// Update stores the role and token of an existing account
func (r *AccountRepository) Update(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	account.SetUpdatedAt(now)

	query := `
		UPDATE accounts
		SET role = ?, access_token = ?, refresh_token = ?, token_expiry = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, string(account.Role()), account.AccessToken(), account.RefreshToken(),
		nullTime(account.TokenExpiry()), now, account.ID())
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, account.ID())
	}

	return nil
}

// Save creates the account or, when its email is already linked, replaces
// the stored role and token.
func (r *AccountRepository) Save(account *models.Account) error {
	existing, err := r.GetByEmail(account.Email())
	if errors.Is(err, shared.ErrAccountNotFound) {
		return r.Create(account)
	}
	if err != nil {
		return err
	}

	account.SetID(existing.ID())
	account.SetCreatedAt(existing.CreatedAt())
	return r.Update(account)
}

// Delete removes an account and its stored token
func (r *AccountRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}

	return nil
}

// List retrieves accounts matching the given criteria.
// Supported keys are "email" (string) and "role" ([models.AccountRole]).
func (r *AccountRepository) List(criteria map[string]any) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1 = 1`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	if role, ok := criteria["role"].(models.AccountRole); ok && role != "" {
		query += " AND role = ?"
		args = append(args, string(role))
	}

	query += " ORDER BY created_at ASC, email ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
