// package models defines the data model for the photo mirror service
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models in the mirror service.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// AccountRole marks which side of a sync an account is linked for.
type AccountRole string

const (
	RoleSource AccountRole = "source"
	RoleTarget AccountRole = "target"
)

// ParseAccountRole validates a role string.
func ParseAccountRole(s string) (AccountRole, error) {
	switch AccountRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSource:
		return RoleSource, nil
	case RoleTarget:
		return RoleTarget, nil
	default:
		return "", fmt.Errorf("account role must be 'source' or 'target', got %q", s)
	}
}

// Account is a linked photo library account and its stored OAuth token.
type Account struct {
	id           string
	email        string
	role         AccountRole
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewAccount creates an unsaved account; the repository assigns its ID.
func NewAccount(email string, role AccountRole) *Account {
	now := time.Now()
	return &Account{
		email:     email,
		role:      role,
		createdAt: now,
		updatedAt: now,
	}
}

func (a *Account) ID() string             { return a.id }
func (a *Account) Email() string          { return a.email }
func (a *Account) Role() AccountRole      { return a.role }
func (a *Account) AccessToken() string    { return a.accessToken }
func (a *Account) RefreshToken() string   { return a.refreshToken }
func (a *Account) TokenExpiry() time.Time { return a.tokenExpiry }
func (a *Account) CreatedAt() time.Time   { return a.createdAt }
func (a *Account) UpdatedAt() time.Time   { return a.updatedAt }

func (a *Account) SetID(id string)          { a.id = id }
func (a *Account) SetCreatedAt(t time.Time) { a.createdAt = t }
func (a *Account) SetUpdatedAt(t time.Time) { a.updatedAt = t }
func (a *Account) SetRole(role AccountRole) { a.role = role }

// SetToken replaces the stored OAuth token fields.
func (a *Account) SetToken(access, refresh string, expiry time.Time) {
	a.accessToken = access
	a.refreshToken = refresh
	a.tokenExpiry = expiry
}

// Validate checks required fields.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.email) == "" {
		return fmt.Errorf("email is required")
	}
	if a.role != RoleSource && a.role != RoleTarget {
		return fmt.Errorf("invalid account role: %q", a.role)
	}
	return nil
}
