package api

import (
	"net/http"

	"github.com/veloway/veloway-core/internal/iam"
)

// tokenResponse is the response body for a successful POST /auth/token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// invalidGrantResponse is the uniform failure body for token redemption.
// Every redemption failure collapses to it; the cause is logged, not echoed.
type invalidGrantResponse struct {
	Error string `json:"error"`
}

// handleToken redeems an authorization code for an access token.
//
// The request is a form-encoded body with grant_type=authorization_code,
// code, code_verifier, redirect_uri and client_id. Redemption fails closed:
// a bad verifier, an expired or replayed code, a redirect mismatch and a
// malformed code are all the same 400 invalid_grant to the caller.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, invalidGrantResponse{Error: "invalid_request"})
		return
	}

	if grantType := r.PostFormValue("grant_type"); grantType != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, invalidGrantResponse{Error: "unsupported_grant_type"})
		return
	}

	code := r.PostFormValue("code")
	verifier := r.PostFormValue("code_verifier")
	redirectURI := r.PostFormValue("redirect_uri")
	clientID := r.PostFormValue("client_id")

	payload, err := s.codes.Redeem(code, verifier, redirectURI)
	if err != nil {
		s.rejectGrant(w, r, clientID, "redeem_failed")
		return
	}
	if clientID == "" || payload.ClientID != clientID {
		s.rejectGrant(w, r, clientID, "client_mismatch")
		return
	}

	identity, err := s.identities.GetByID(r.Context(), payload.IdentityID)
	if err != nil || !identity.Active {
		s.rejectGrant(w, r, clientID, "unknown_identity")
		return
	}

	token, err := s.tokens.Issue(identity.Username, clientID, iam.DecodeRoles(identity.Roles))
	if err != nil {
		s.logger.Error("failed to sign access token",
			"identity_id", identity.ID,
			"error", err,
		)
		writeInternalError(w, "failed to issue token")
		return
	}

	s.auditLog("token_issued", "token", clientID, identity.ID, map[string]any{
		"scope": payload.ApprovedScopes,
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		Scope:       payload.ApprovedScopes,
	})
}

// rejectGrant logs and audits a failed redemption, then writes the uniform
// invalid_grant response.
func (s *Server) rejectGrant(w http.ResponseWriter, r *http.Request, clientID, reason string) {
	s.logger.Warn("authorization code rejected",
		"client_id", clientID,
		"reason", reason,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	s.auditLog("token_rejected", "token", clientID, "", map[string]any{
		"reason": reason,
	})
	writeJSON(w, http.StatusBadRequest, invalidGrantResponse{Error: "invalid_grant"})
}
