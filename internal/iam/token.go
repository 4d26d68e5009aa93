package iam

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultAccessTokenTTL applies when the config leaves the TTL unset.
const defaultAccessTokenTTL = 15 * time.Minute

// DefaultRolesClaim is the claim name carrying the JSON array of role names
// unless the config overrides it.
const DefaultRolesClaim = "groups"

// TokenConfig is the explicit, immutable configuration for a TokenManager.
// It is constructed once at startup and passed in, never a hidden global,
// so tests can run independent managers with different keys and realms.
type TokenConfig struct {
	// Realm is the logical security domain, used as the token issuer and in
	// WWW-Authenticate challenges.
	Realm string

	// Key signs new tokens and is the first key tried on verification.
	Key []byte

	// PreviousKey, when non-empty, is also accepted on verification. It
	// carries a rotation overlap window: tokens signed before a key change
	// keep verifying until they expire. It never signs.
	PreviousKey []byte

	// TTL is the access-token lifetime. Zero means defaultAccessTokenTTL.
	TTL time.Duration

	// RolesClaim is the claim name for the role-name array. Empty means
	// DefaultRolesClaim.
	RolesClaim string
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject  string
	Audience string
	Realm    string
	Roles    []string
	IssuedAt time.Time
	Expiry   time.Time
}

// HasRole reports membership by exact string match on the role name:
// no prefix and no case folding.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenManager issues and verifies HMAC-signed JWTs. All fields are fixed at
// construction; every method is safe for concurrent use.
type TokenManager struct {
	realm       string
	key         []byte
	previousKey []byte
	ttl         time.Duration
	rolesClaim  string
}

// NewTokenManager builds a manager from an explicit config.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.Realm == "" {
		return nil, fmt.Errorf("token config: realm is required")
	}
	if len(cfg.Key) == 0 {
		return nil, fmt.Errorf("token config: signing key is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	rolesClaim := cfg.RolesClaim
	if rolesClaim == "" {
		rolesClaim = DefaultRolesClaim
	}

	return &TokenManager{
		realm:       cfg.Realm,
		key:         cfg.Key,
		previousKey: cfg.PreviousKey,
		ttl:         ttl,
		rolesClaim:  rolesClaim,
	}, nil
}

// Realm returns the configured realm.
func (m *TokenManager) Realm() string { return m.realm }

// TTL returns the configured access-token lifetime.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for the subject and audience. The roles claim is a
// JSON array of canonical role names.
func (m *TokenManager) Issue(subject, audience string, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":        m.realm,
		"sub":        subject,
		"aud":        audience,
		"iat":        now.Unix(),
		"exp":        now.Add(m.ttl).Unix(),
		m.rolesClaim: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Verify validates a token's signature and registered claims. The failure
// kinds are disjoint: ErrTokenMalformed for anything that is not a JWT,
// ErrTokenExpired for a well-signed token past its exp, ErrTokenSignature
// for a signature no configured key accepts.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims, err := m.verifyWithKey(tokenString, m.key)
	if errors.Is(err, ErrTokenSignature) && len(m.previousKey) > 0 {
		// Rotation overlap: a token signed just before a key change is
		// still honoured by the previous key.
		claims, err = m.verifyWithKey(tokenString, m.previousKey)
	}
	return claims, err
}

func (m *TokenManager) verifyWithKey(tokenString string, key []byte) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	return m.claimsFromMap(mapClaims)
}

// claimsFromMap materialises verified claims. Role names in the claim must
// be a subset of names the role codec can decode; anything else marks the
// token malformed rather than inventing an authorisation.
func (m *TokenManager) claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	subject, _ := mc["sub"].(string)
	if subject == "" {
		return nil, ErrTokenMalformed
	}

	audience, _ := mc["aud"].(string)
	realm, _ := mc["iss"].(string)

	roles := []string{}
	if raw, present := mc[m.rolesClaim]; present {
		list, ok := raw.([]any)
		if !ok {
			return nil, ErrTokenMalformed
		}
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return nil, ErrTokenMalformed
			}
			if _, known := RoleFromName(name); !known {
				return nil, ErrTokenMalformed
			}
			roles = append(roles, name)
		}
	}

	claims := &Claims{
		Subject:  subject,
		Audience: audience,
		Realm:    realm,
		Roles:    roles,
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}
	return claims, nil
}
