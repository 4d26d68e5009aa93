package iam

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the IAM schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "iam-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE tenants (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			secret TEXT NOT NULL,
			redirect_uri TEXT,
			allowed_roles INTEGER NOT NULL DEFAULT 0,
			required_scopes TEXT NOT NULL DEFAULT '',
			supported_grant_types TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE UNIQUE INDEX idx_tenants_name ON tenants(name);

		CREATE TABLE identities (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT UNIQUE,
			password_hash TEXT NOT NULL,
			roles INTEGER NOT NULL DEFAULT 0,
			provided_scopes TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE UNIQUE INDEX idx_identities_username ON identities(username);

		CREATE TABLE grants (
			tenant_id TEXT NOT NULL,
			identity_id TEXT NOT NULL,
			approved_scopes TEXT NOT NULL DEFAULT '',
			issued_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (tenant_id, identity_id),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE,
			FOREIGN KEY (identity_id) REFERENCES identities(id) ON DELETE CASCADE
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying iam migration: %v", err)
	}

	return db
}

// seedTestTenant inserts the canonical test tenant with a pre-registered
// redirect URI.
func seedTestTenant(t *testing.T, db *sql.DB) *Tenant {
	t.Helper()

	tenant := &Tenant{
		Name:                "veloway",
		Secret:              "test-secret",
		RedirectURI:         "https://app/cb",
		AllowedRoles:        uint64(RoleUser | RoleAdmin),
		RequiredScopes:      "rentals.read profile.read",
		SupportedGrantTypes: "authorization_code",
	}
	if err := NewTenantRepository(db).Create(context.Background(), tenant); err != nil {
		t.Fatalf("seeding tenant: %v", err)
	}
	return tenant
}

// seedTestIdentity inserts an active identity with a known password.
func seedTestIdentity(t *testing.T, db *sql.DB, username, password string, roles uint64, scopes string) *Identity {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}

	identity := &Identity{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   hash,
		Roles:          roles,
		ProvidedScopes: scopes,
		Active:         true,
	}
	if err := NewIdentityRepository(db).Create(context.Background(), identity); err != nil {
		t.Fatalf("seeding identity: %v", err)
	}
	return identity
}
