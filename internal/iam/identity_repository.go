package iam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IdentityRepository defines the interface for resource-owner persistence.
// The authorization flow only reads; registration and profile flows write.
type IdentityRepository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByUsername(ctx context.Context, username string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	List(ctx context.Context) ([]Identity, error)
	Update(ctx context.Context, identity *Identity) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteIdentityRepository implements IdentityRepository using SQLite.
type SQLiteIdentityRepository struct {
	db *sql.DB
}

// NewIdentityRepository creates a new SQLite-backed identity repository.
func NewIdentityRepository(db *sql.DB) *SQLiteIdentityRepository {
	return &SQLiteIdentityRepository{db: db}
}

// Create inserts a new identity. The ID is generated if empty.
func (r *SQLiteIdentityRepository) Create(ctx context.Context, identity *Identity) error {
	if identity.ID == "" {
		identity.ID = "idn-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	identity.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	identity.UpdatedAt = identity.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, username, email, password_hash, roles, provided_scopes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		identity.ID, identity.Username, nullString(identity.Email),
		identity.PasswordHash, int64(identity.Roles), identity.ProvidedScopes, //nolint:gosec // G115: role bits never exceed int64 range
		boolToInt(identity.Active), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "email") {
				return ErrEmailExists
			}
			return ErrUsernameExists
		}
		return fmt.Errorf("creating identity: %w", err)
	}

	return nil
}

// GetByID retrieves an identity by its unique ID.
func (r *SQLiteIdentityRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	return r.getIdentity(ctx, identitySelect+" WHERE id = ?", id)
}

// GetByUsername retrieves an identity by username.
func (r *SQLiteIdentityRepository) GetByUsername(ctx context.Context, username string) (*Identity, error) {
	return r.getIdentity(ctx, identitySelect+" WHERE username = ?", username)
}

// GetByEmail retrieves an identity by email address.
func (r *SQLiteIdentityRepository) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	return r.getIdentity(ctx, identitySelect+" WHERE email = ?", email)
}

// List returns all identities ordered by creation date.
func (r *SQLiteIdentityRepository) List(ctx context.Context) ([]Identity, error) {
	rows, err := r.db.QueryContext(ctx, identitySelect+" ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	defer rows.Close()

	var identities []Identity
	for rows.Next() {
		i, err := scanIdentityFrom(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identities: %w", err)
	}

	if identities == nil {
		identities = []Identity{}
	}
	return identities, nil
}

// Update modifies an identity's mutable fields (email, roles, scopes, active).
func (r *SQLiteIdentityRepository) Update(ctx context.Context, identity *Identity) error {
	now := time.Now().UTC().Format(time.RFC3339)
	identity.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE identities SET email = ?, roles = ?, provided_scopes = ?, active = ?, updated_at = ? WHERE id = ?`,
		nullString(identity.Email), int64(identity.Roles), identity.ProvidedScopes, //nolint:gosec // G115: role bits never exceed int64 range
		boolToInt(identity.Active), now, identity.ID,
	)
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// UpdatePassword changes an identity's password hash.
func (r *SQLiteIdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE identities SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// Delete removes an identity by ID.
func (r *SQLiteIdentityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM identities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// Count returns the total number of identities.
func (r *SQLiteIdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting identities: %w", err)
	}
	return count, nil
}

const identitySelect = "SELECT id, username, email, password_hash, roles, provided_scopes, active, created_at, updated_at FROM identities"

// getIdentity executes a query and scans a single identity result.
func (r *SQLiteIdentityRepository) getIdentity(ctx context.Context, query string, args ...any) (*Identity, error) {
	return scanIdentityFrom(r.db.QueryRowContext(ctx, query, args...))
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanIdentityFrom scans an identity from any scanner (Row or Rows).
func scanIdentityFrom(s scanner) (*Identity, error) {
	var i Identity
	var email sql.NullString
	var roles int64
	var active int
	var createdAt, updatedAt string

	err := s.Scan(&i.ID, &i.Username, &email, &i.PasswordHash,
		&roles, &i.ProvidedScopes, &active, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("scanning identity: %w", err)
	}

	i.Roles = uint64(roles) //nolint:gosec // G115: role bits never exceed int64 range
	i.Active = active != 0
	if email.Valid {
		i.Email = email.String
	}

	i.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	i.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &i, nil
}

// Helper functions.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
