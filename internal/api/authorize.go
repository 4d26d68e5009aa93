package api

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/veloway/veloway-core/internal/iam"
)

// signInCookieName carries the validated authorize context from the
// authorize response to the approval POST.
const signInCookieName = "signInId"

//go:embed login.html
var loginPage []byte

// handleAuthorize is the OAuth authorization entry point.
//
// Query parameters are validated through iam.ValidateAuthorize; any failure
// is a terminal HTML 400 shown to the resource owner. On success the login
// page is served with a signInId cookie binding the tenant, the effective
// scope and the redirect URI for the approval step.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := iam.AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	decision, err := iam.ValidateAuthorize(r.Context(), s.tenants, req)
	if err != nil {
		s.logger.Warn("authorize rejected",
			"client_id", req.ClientID,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		s.auditLog("authorize_rejected", "tenant", req.ClientID, "", map[string]any{
			"reason": authorizeFailureKind(err),
		})
		writeHTMLError(w, err.Error())
		return
	}

	s.auditLog("authorize", "tenant", decision.Tenant.ID, "", map[string]any{
		"client_id": decision.Tenant.Name,
		"scope":     decision.Scope,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     signInCookieName,
		Value:    decision.Tenant.Name + "#" + decision.Scope + "$" + decision.RedirectURI,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	w.Header().Set("Location", "/auth/approve")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(loginPage)
}

// authorizeFailureKind maps an authorize validation error to a stable audit label.
func authorizeFailureKind(err error) string {
	switch {
	case errors.Is(err, iam.ErrInvalidClient):
		return "invalid_client"
	case errors.Is(err, iam.ErrUnsupportedGrantType):
		return "unsupported_grant_type"
	case errors.Is(err, iam.ErrRedirectURIMismatch):
		return "redirect_uri_mismatch"
	case errors.Is(err, iam.ErrMissingRedirectURI):
		return "missing_redirect_uri"
	case errors.Is(err, iam.ErrUnsupportedResponseType):
		return "unsupported_response_type"
	case errors.Is(err, iam.ErrInvalidPkceMethod):
		return "invalid_pkce_method"
	default:
		return "invalid_request"
	}
}

// parseSignInCookie splits a signInId value back into tenant name, scope and
// redirect URI. The cookie is client-held and therefore untrusted; callers
// must re-validate every part against the tenant registry.
func parseSignInCookie(value string) (tenantName, scope, redirectURI string, err error) {
	tenantName, rest, ok := strings.Cut(value, "#")
	if !ok {
		return "", "", "", fmt.Errorf("malformed sign-in cookie")
	}
	// Scopes are space-delimited words and never contain '$'; the redirect
	// URI may, so the first '$' is the delimiter.
	scope, redirectURI, ok = strings.Cut(rest, "$")
	if !ok {
		return "", "", "", fmt.Errorf("malformed sign-in cookie")
	}
	return tenantName, scope, redirectURI, nil
}
