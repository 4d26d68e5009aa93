package iam

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// codeTTL is the hard, non-refreshable lifetime of an authorization code.
const codeTTL = 2 * time.Minute

// AuthorizationCode is the payload bound into an issued code. The wire value
// recovers these fields at redemption; none of them are trusted until the
// code's MAC has been verified.
type AuthorizationCode struct {
	// ID is the code's identity, distinct from its secret payload. It is
	// what the replay register tracks, so a consumed code is recognisable
	// even while still inside its TTL.
	ID string `json:"jti"`

	ClientID       string `json:"cid"`
	IdentityID     string `json:"sub"`
	ApprovedScopes string `json:"scope"`

	// ExpiresAt is an absolute epoch-second deadline, fixed at issuance.
	ExpiresAt int64 `json:"exp"`

	RedirectURI string `json:"uri"`
}

// CodeIssuer mints and redeems stateless, PKCE-bound authorization codes.
//
// A code is base64url(JSON payload) "." base64url(HMAC-SHA256(key,
// payload || challenge)). The challenge never travels inside the code; the
// MAC simply does not verify unless redemption presents a code_verifier
// whose S256 digest equals the challenge the code was bound to.
//
// Issue and Redeem are safe for concurrent use; the only shared state is
// the signing key (read-only) and the consumed-code register (one mutex).
type CodeIssuer struct {
	key      []byte
	ttl      time.Duration
	consumed *consumedCodes

	// now is swappable for tests.
	now func() time.Time
}

// NewCodeIssuer creates a code issuer signing with the given key.
func NewCodeIssuer(key []byte) *CodeIssuer {
	return &CodeIssuer{
		key:      key,
		ttl:      codeTTL,
		consumed: newConsumedCodes(),
		now:      time.Now,
	}
}

// Issue mints an opaque, single-use code binding the client, resource owner,
// approved scopes, redirect URI and PKCE challenge together. Expiry is
// issuance time + 120 seconds.
func (ci *CodeIssuer) Issue(clientID, identityID, approvedScopes, redirectURI, codeChallenge string) (string, error) {
	payload := AuthorizationCode{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		IdentityID:     identityID,
		ApprovedScopes: approvedScopes,
		ExpiresAt:      ci.now().Add(ci.ttl).Unix(),
		RedirectURI:    redirectURI,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + ci.sign(encoded, codeChallenge), nil
}

// Redeem validates a presented code and consumes it. It fails closed with
// ErrInvalidGrant on every defect: malformed wire value, MAC mismatch
// (which covers a wrong or missing code_verifier), expiry, redirect URI
// mismatch, and replay. There is no partial success. A code redeems at most
// once, even inside its TTL.
func (ci *CodeIssuer) Redeem(code, codeVerifier, redirectURI string) (*AuthorizationCode, error) {
	encoded, mac, ok := strings.Cut(code, ".")
	if !ok {
		return nil, ErrInvalidGrant
	}

	// Recompute the challenge the verifier claims to prove, then the MAC.
	challenge := S256Challenge(codeVerifier)
	if !hmac.Equal([]byte(mac), []byte(ci.sign(encoded, challenge))) {
		return nil, ErrInvalidGrant
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidGrant
	}
	var payload AuthorizationCode
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrInvalidGrant
	}

	if ci.now().Unix() >= payload.ExpiresAt {
		return nil, ErrInvalidGrant
	}
	if payload.RedirectURI != redirectURI {
		return nil, ErrInvalidGrant
	}

	// Check-and-mark must be atomic so two concurrent redemptions of the
	// same code cannot both succeed.
	if !ci.consumed.markConsumed(payload.ID, time.Unix(payload.ExpiresAt, 0)) {
		return nil, ErrInvalidGrant
	}

	return &payload, nil
}

// sign computes the base64url MAC over the encoded payload and challenge.
func (ci *CodeIssuer) sign(encodedPayload, codeChallenge string) string {
	h := hmac.New(sha256.New, ci.key)
	h.Write([]byte(encodedPayload))
	h.Write([]byte(codeChallenge))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// S256Challenge computes the PKCE S256 transform of a code verifier:
// unpadded base64url of the verifier's SHA-256 digest. Plain-text PKCE is
// never accepted anywhere in this package.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// consumedCodes is the replay register: the IDs of redeemed codes, kept
// until their TTL would have expired them anyway.
type consumedCodes struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newConsumedCodes() *consumedCodes {
	return &consumedCodes{ids: make(map[string]time.Time)}
}

// markConsumed records the code ID, returning false if it was already
// consumed. Expired entries are swept opportunistically under the same lock.
func (c *consumedCodes) markConsumed(id string, expiresAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for storedID, exp := range c.ids {
		if now.After(exp) {
			delete(c.ids, storedID)
		}
	}

	if _, seen := c.ids[id]; seen {
		return false
	}
	c.ids[id] = expiresAt
	return true
}
