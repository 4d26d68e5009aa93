package api

import (
	"net/http"
	"net/url"

	"github.com/veloway/veloway-core/internal/iam"
)

// handleApprove is the consent step of the authorization-code flow.
//
// It authenticates the resource owner with the submitted credentials,
// re-validates the signInId cookie against the tenant registry (the cookie
// is client-held and untrusted), intersects the requested scope with the
// owner's, records the consent as a Grant, and redirects back to the client
// with a PKCE-bound authorization code.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeHTMLError(w, "malformed form body")
		return
	}

	cookie, err := r.Cookie(signInCookieName)
	if err != nil {
		writeHTMLError(w, "sign-in session is missing, restart the authorization flow")
		return
	}
	tenantName, requestedScope, redirectURI, err := parseSignInCookie(cookie.Value)
	if err != nil {
		writeHTMLError(w, "sign-in session is invalid, restart the authorization flow")
		return
	}

	// Everything in the cookie is re-checked against the registry before use.
	tenant, err := s.tenants.GetByName(r.Context(), tenantName)
	if err != nil {
		writeHTMLError(w, "Invalid client_id :"+tenantName)
		return
	}
	if tenant.RedirectURI != "" && tenant.RedirectURI != redirectURI {
		writeHTMLError(w, "redirect_uri is pre-registered and should match")
		return
	}

	responseType := r.PostFormValue("response_type")
	if responseType != "code" && responseType != "token" {
		writeHTMLError(w, "invalid_grant: "+responseType+", response_type should be code or token")
		return
	}

	codeChallenge := r.PostFormValue("code_challenge")
	if codeChallenge == "" {
		writeHTMLError(w, "code_challenge is required")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	identity, err := s.verifyCredentials(r, username, password)
	if err != nil {
		s.auditLog("approve_rejected", "tenant", tenant.ID, "", map[string]any{
			"username": username,
		})
		writeHTMLError(w, "invalid credentials")
		return
	}

	approvedScopes := iam.NegotiateScopes(identity.ProvidedScopes, requestedScope)

	grant := &iam.Grant{
		TenantID:       tenant.ID,
		IdentityID:     identity.ID,
		ApprovedScopes: approvedScopes,
	}
	if err := s.grants.Upsert(r.Context(), grant); err != nil {
		s.logger.Error("failed to record grant",
			"tenant_id", tenant.ID,
			"identity_id", identity.ID,
			"error", err,
		)
		writeInternalError(w, "failed to record consent")
		return
	}

	location, err := s.buildRedirectURI(redirectURI, responseType, tenant.Name, identity.ID,
		approvedScopes, codeChallenge, r.PostFormValue("state"))
	if err != nil {
		s.logger.Error("failed to issue authorization code",
			"tenant_id", tenant.ID,
			"error", err,
		)
		writeInternalError(w, "failed to issue authorization code")
		return
	}
	if location == "" {
		// The implicit branch issues nothing: response_type=token passes
		// authorize validation but has no redemption path here.
		writeHTMLError(w, "invalid_grant: token, response_type token is not supported for approval")
		return
	}

	s.auditLog("approve", "grant", tenant.ID, identity.ID, map[string]any{
		"client_id": tenant.Name,
		"scope":     approvedScopes,
	})

	http.Redirect(w, r, location, http.StatusFound)
}

// buildRedirectURI appends the authorization code (and the client's state,
// when present) to the redirect URI. Only response_type=code produces a
// redirect; the implicit branch yields an empty string.
func (s *Server) buildRedirectURI(redirectURI, responseType, clientID, identityID, approvedScopes, codeChallenge, state string) (string, error) {
	if responseType != "code" {
		return "", nil
	}
	code, err := s.codes.Issue(clientID, identityID, approvedScopes, redirectURI, codeChallenge)
	if err != nil {
		return "", err
	}
	location := redirectURI + "?code=" + url.QueryEscape(code)
	if state != "" {
		location += "&state=" + url.QueryEscape(state)
	}
	return location, nil
}

// verifyCredentials resolves and checks a username/password pair. It returns
// iam sentinel errors; callers decide how much detail reaches the client.
func (s *Server) verifyCredentials(r *http.Request, username, password string) (*iam.Identity, error) {
	if username == "" || password == "" {
		return nil, iam.ErrInvalidCredentials
	}
	identity, err := s.identities.GetByUsername(r.Context(), username)
	if err != nil {
		return nil, iam.ErrIdentityNotFound
	}
	if !identity.Active {
		return nil, iam.ErrIdentityInactive
	}
	ok, err := iam.VerifyPassword(password, identity.PasswordHash)
	if err != nil || !ok {
		return nil, iam.ErrInvalidCredentials
	}
	return identity, nil
}
