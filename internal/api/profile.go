package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veloway/veloway-core/internal/iam"
)

// passwordChangeRequest is the request body for PUT /auth/password.
type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleChangePassword rotates the caller's password. The current password
// is re-verified even though the request already carries a valid token, so
// a stolen token alone cannot take over the account.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)

	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeBadRequest(w, "current_password and new_password are required")
		return
	}

	identity, err := s.identities.GetByUsername(r.Context(), principal.Subject)
	if err != nil {
		writeNotFound(w, "account not found")
		return
	}

	ok, err := iam.VerifyPassword(req.CurrentPassword, identity.PasswordHash)
	if err != nil || !ok {
		s.auditLog("password_change_failed", "identity", identity.ID, identity.ID, map[string]any{
			"reason": "bad_password",
		})
		writeUnauthorized(w, "invalid credentials")
		return
	}

	hash, err := iam.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("failed to hash password", "identity_id", identity.ID, "error", err)
		writeInternalError(w, "failed to update password")
		return
	}
	if err := s.identities.UpdatePassword(r.Context(), identity.ID, hash); err != nil {
		s.logger.Error("failed to update password", "identity_id", identity.ID, "error", err)
		writeInternalError(w, "failed to update password")
		return
	}

	s.auditLog("password_changed", "identity", identity.ID, identity.ID, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Password updated successfully",
	})
}

// grantsResponse is the response body for GET /auth/grants.
type grantsResponse struct {
	Grants []iam.Grant `json:"grants"`
}

// handleListGrants returns the caller's consent records.
func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)

	identity, err := s.identities.GetByUsername(r.Context(), principal.Subject)
	if err != nil {
		writeNotFound(w, "account not found")
		return
	}

	grants, err := s.grants.ListByIdentity(r.Context(), identity.ID)
	if err != nil {
		s.logger.Error("failed to list grants", "identity_id", identity.ID, "error", err)
		writeInternalError(w, "failed to list grants")
		return
	}

	writeJSON(w, http.StatusOK, grantsResponse{Grants: grants})
}

// handleRevokeGrant withdraws the caller's consent for one tenant. Codes
// already issued stay redeemable until their two-minute TTL runs out; new
// approvals for the tenant require consent again.
func (s *Server) handleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r)
	tenantName := chi.URLParam(r, "tenant")

	tenant, err := s.tenants.GetByName(r.Context(), tenantName)
	if err != nil {
		writeNotFound(w, "unknown tenant")
		return
	}

	identity, err := s.identities.GetByUsername(r.Context(), principal.Subject)
	if err != nil {
		writeNotFound(w, "account not found")
		return
	}

	if err := s.grants.Revoke(r.Context(), tenant.ID, identity.ID); err != nil {
		if errors.Is(err, iam.ErrGrantNotFound) {
			writeNotFound(w, "no consent recorded for this tenant")
			return
		}
		s.logger.Error("failed to revoke grant",
			"tenant_id", tenant.ID,
			"identity_id", identity.ID,
			"error", err,
		)
		writeInternalError(w, "failed to revoke grant")
		return
	}

	s.auditLog("grant_revoked", "grant", tenant.ID, identity.ID, map[string]any{
		"tenant": tenantName,
	})

	w.WriteHeader(http.StatusNoContent)
}
