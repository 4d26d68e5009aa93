package iam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TenantRepository defines the interface for OAuth client lookup. The
// authorization flow treats tenants as read-only; Create/Update exist for
// administrative tooling and seeding.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByName(ctx context.Context, name string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	Count(ctx context.Context) (int, error)
}

// SQLiteTenantRepository implements TenantRepository using SQLite.
type SQLiteTenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new SQLite-backed tenant repository.
func NewTenantRepository(db *sql.DB) *SQLiteTenantRepository {
	return &SQLiteTenantRepository{db: db}
}

// Create inserts a new tenant. The ID is generated if empty.
func (r *SQLiteTenantRepository) Create(ctx context.Context, tenant *Tenant) error {
	if tenant.ID == "" {
		tenant.ID = "tnt-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	tenant.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	tenant.UpdatedAt = tenant.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, secret, redirect_uri, allowed_roles, required_scopes, supported_grant_types, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenant.ID, tenant.Name, tenant.Secret, nullString(tenant.RedirectURI),
		int64(tenant.AllowedRoles), tenant.RequiredScopes, tenant.SupportedGrantTypes, //nolint:gosec // G115: role bits never exceed int64 range
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTenantExists
		}
		return fmt.Errorf("creating tenant: %w", err)
	}

	return nil
}

// GetByName retrieves a tenant by its unique name (the client_id).
func (r *SQLiteTenantRepository) GetByName(ctx context.Context, name string) (*Tenant, error) {
	return scanTenantFrom(r.db.QueryRowContext(ctx, tenantSelect+" WHERE name = ?", name))
}

// List returns all tenants ordered by creation date.
func (r *SQLiteTenantRepository) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.db.QueryContext(ctx, tenantSelect+" ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenantFrom(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}

	if tenants == nil {
		tenants = []Tenant{}
	}
	return tenants, nil
}

// Update modifies a tenant's mutable fields.
func (r *SQLiteTenantRepository) Update(ctx context.Context, tenant *Tenant) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tenant.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET secret = ?, redirect_uri = ?, allowed_roles = ?, required_scopes = ?, supported_grant_types = ?, updated_at = ? WHERE id = ?`,
		tenant.Secret, nullString(tenant.RedirectURI), int64(tenant.AllowedRoles), //nolint:gosec // G115: role bits never exceed int64 range
		tenant.RequiredScopes, tenant.SupportedGrantTypes, now, tenant.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// Count returns the total number of tenants.
func (r *SQLiteTenantRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting tenants: %w", err)
	}
	return count, nil
}

const tenantSelect = "SELECT id, name, secret, redirect_uri, allowed_roles, required_scopes, supported_grant_types, created_at, updated_at FROM tenants"

// scanTenantFrom scans a tenant from any scanner (Row or Rows).
func scanTenantFrom(s scanner) (*Tenant, error) {
	var t Tenant
	var redirectURI sql.NullString
	var allowedRoles int64
	var createdAt, updatedAt string

	err := s.Scan(&t.ID, &t.Name, &t.Secret, &redirectURI,
		&allowedRoles, &t.RequiredScopes, &t.SupportedGrantTypes,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}

	t.AllowedRoles = uint64(allowedRoles) //nolint:gosec // G115: role bits never exceed int64 range
	if redirectURI.Valid {
		t.RedirectURI = redirectURI.String
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}
