package api

import "net/http"

// Principal is the authenticated caller of a protected request. It lives in
// the request context for exactly one request and is rebuilt from the token
// on the next request; the server never caches principals.
type Principal struct {
	Subject string
	Roles   []string

	// Secure reports whether the request arrived over TLS.
	Secure bool
}

// IsUserInRole reports membership by exact string match on the role name.
func (p *Principal) IsUserInRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// principalFrom returns the authenticated principal for the request, or nil
// if the request did not pass the authentication gate.
func principalFrom(r *http.Request) *Principal {
	p, _ := r.Context().Value(ctxKeyPrincipal).(*Principal)
	return p
}
