package iam

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Tenant is a registered OAuth client. Name doubles as the client_id and is
// globally unique. Tenants are created by administrative flows; the
// authorization flow only reads them.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"-"` // never serialised

	// RedirectURI is the pre-registered callback. Empty means the caller
	// must supply one on /auth/authorize.
	RedirectURI string `json:"redirect_uri,omitempty"`

	// AllowedRoles is the bitmask of roles this tenant may see in tokens.
	AllowedRoles uint64 `json:"allowed_roles"`

	// RequiredScopes is the space-delimited default scope string substituted
	// when a client omits scope entirely.
	RequiredScopes string `json:"required_scopes"`

	// SupportedGrantTypes is a space-delimited list. Empty means
	// unrestricted.
	SupportedGrantTypes string `json:"supported_grant_types"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupportsGrantType reports whether the tenant allows the given grant type.
// A tenant with no declared grant types allows everything.
func (t *Tenant) SupportsGrantType(grantType string) bool {
	if t.SupportedGrantTypes == "" {
		return true
	}
	for _, g := range splitScopes(t.SupportedGrantTypes) {
		if g == grantType {
			return true
		}
	}
	return false
}

// Identity is a resource owner account. The password is stored only as an
// Argon2id hash; the hash alone participates in credential checks.
type Identity struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"` // never serialised

	// Roles is the bitmask of assigned roles (see roles.go).
	Roles uint64 `json:"roles"`

	// ProvidedScopes is the space-delimited scope string the owner may
	// grant to clients.
	ProvidedScopes string `json:"provided_scopes"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grant is a persisted consent record: the scopes a resource owner approved
// for a tenant. Distinct from the ephemeral authorization code.
type Grant struct {
	TenantID       string    `json:"tenant_id"`
	IdentityID     string    `json:"identity_id"`
	ApprovedScopes string    `json:"approved_scopes"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Validation failures of the authorize entry gate, surfaced as HTTP 400 at
// the /auth/authorize boundary.
var (
	ErrInvalidClient           = errors.New("invalid client_id")
	ErrUnsupportedGrantType    = errors.New("authorization_code grant is not allowed for this tenant")
	ErrRedirectURIMismatch     = errors.New("redirect_uri is pre-registered and should match")
	ErrMissingRedirectURI      = errors.New("redirect_uri is not pre-registered and should be provided")
	ErrUnsupportedResponseType = errors.New("response_type should be code or token")
	ErrInvalidPkceMethod       = errors.New("code_challenge_method must be 'S256'")
)

// Sentinel errors for credentials and accounts.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityInactive   = errors.New("account is not active")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantExists       = errors.New("tenant name already exists")
	ErrGrantNotFound      = errors.New("grant not found")
)

// ErrInvalidGrant covers every authorization-code redemption failure: wrong
// verifier, expired, already consumed, malformed, redirect URI mismatch.
// Redemption fails closed; callers must not distinguish the cause to clients.
var ErrInvalidGrant = errors.New("invalid grant")

// Token verification failure kinds. Callers branch on these, never on error
// text. They are mutually exclusive.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenSignature = errors.New("token signature is invalid")
)
