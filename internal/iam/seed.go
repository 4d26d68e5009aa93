package iam

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// Seed defaults for a fresh installation.
const (
	seedTenantName     = "veloway"
	seedTenantRedirect = "https://app/cb"
	seedTenantScopes   = "rentals.read rentals.write profile.read"
	seedAdminUsername  = "admin"
)

// SeedDefaults creates the default tenant and an initial admin identity on
// first boot, when the respective tables are empty. The generated admin
// password is logged once and must be changed immediately.
// Returns the generated password (empty string if identity seeding was
// skipped).
func SeedDefaults(ctx context.Context, tenants TenantRepository, identities IdentityRepository, logger *slog.Logger) (string, error) {
	tenantCount, err := tenants.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking tenant count: %w", err)
	}

	if tenantCount == 0 {
		secretBytes := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(secretBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating tenant secret: %w", err)
		}

		tenant := &Tenant{
			Name:                seedTenantName,
			Secret:              hex.EncodeToString(secretBytes),
			RedirectURI:         seedTenantRedirect,
			AllowedRoles:        uint64(RoleUser | RoleTechnician | RoleManager | RoleAdmin),
			RequiredScopes:      seedTenantScopes,
			SupportedGrantTypes: "authorization_code",
		}
		if err := tenants.Create(ctx, tenant); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("creating seed tenant: %w", err)
		}
		logger.Info("seed tenant created", "name", seedTenantName)
	} else {
		logger.Info("tenants exist, skipping tenant seed")
	}

	identityCount, err := identities.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking identity count: %w", err)
	}

	if identityCount > 0 {
		logger.Info("identities exist, skipping admin seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &Identity{
		Username:       seedAdminUsername,
		PasswordHash:   hash,
		Roles:          uint64(RoleAdmin | RoleManager),
		ProvidedScopes: seedTenantScopes,
		Active:         true,
	}

	if err := identities.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"username", seedAdminUsername,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
