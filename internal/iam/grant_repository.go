package iam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GrantRepository defines the interface for consent records: which scopes a
// resource owner has approved for a tenant.
type GrantRepository interface {
	Upsert(ctx context.Context, grant *Grant) error
	Get(ctx context.Context, tenantID, identityID string) (*Grant, error)
	Revoke(ctx context.Context, tenantID, identityID string) error
	ListByIdentity(ctx context.Context, identityID string) ([]Grant, error)
}

// SQLiteGrantRepository implements GrantRepository using SQLite.
type SQLiteGrantRepository struct {
	db *sql.DB
}

// NewGrantRepository creates a new SQLite-backed grant repository.
func NewGrantRepository(db *sql.DB) *SQLiteGrantRepository {
	return &SQLiteGrantRepository{db: db}
}

// Upsert records or refreshes a consent. Re-approving replaces the approved
// scope string and the issuance timestamp.
func (r *SQLiteGrantRepository) Upsert(ctx context.Context, grant *Grant) error {
	now := time.Now().UTC().Format(time.RFC3339)
	grant.IssuedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO grants (tenant_id, identity_id, approved_scopes, issued_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(tenant_id, identity_id)
		 DO UPDATE SET approved_scopes = excluded.approved_scopes, issued_at = excluded.issued_at`,
		grant.TenantID, grant.IdentityID, grant.ApprovedScopes, now,
	)
	if err != nil {
		return fmt.Errorf("upserting grant: %w", err)
	}
	return nil
}

// Get retrieves the consent record for a tenant/identity pair.
func (r *SQLiteGrantRepository) Get(ctx context.Context, tenantID, identityID string) (*Grant, error) {
	var g Grant
	var issuedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, identity_id, approved_scopes, issued_at
		 FROM grants WHERE tenant_id = ? AND identity_id = ?`,
		tenantID, identityID,
	).Scan(&g.TenantID, &g.IdentityID, &g.ApprovedScopes, &issuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("getting grant: %w", err)
	}

	g.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt) //nolint:errcheck // format is controlled
	return &g, nil
}

// Revoke deletes the consent record for a tenant/identity pair.
func (r *SQLiteGrantRepository) Revoke(ctx context.Context, tenantID, identityID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM grants WHERE tenant_id = ? AND identity_id = ?",
		tenantID, identityID)
	if err != nil {
		return fmt.Errorf("revoking grant: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// ListByIdentity returns all consents a resource owner has issued.
func (r *SQLiteGrantRepository) ListByIdentity(ctx context.Context, identityID string) ([]Grant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant_id, identity_id, approved_scopes, issued_at
		 FROM grants WHERE identity_id = ? ORDER BY issued_at DESC`, identityID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		var issuedAt string
		if err := rows.Scan(&g.TenantID, &g.IdentityID, &g.ApprovedScopes, &issuedAt); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		g.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt) //nolint:errcheck // format is controlled
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}

	if grants == nil {
		grants = []Grant{}
	}
	return grants, nil
}
