package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veloway/veloway-core/internal/iam"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Username    string `json:"username"`
}

// loginAudience is the audience claim for first-party JSON logins, as
// opposed to tokens minted for OAuth clients through /auth/token.
const loginAudience = "api"

// handleLogin authenticates a resource owner by email and returns an
// access token. This is the first-party path used by the rider app; OAuth
// clients go through authorize/approve/token instead.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password required")
		return
	}

	identity, err := s.identities.GetByEmail(r.Context(), req.Email)
	if err != nil {
		s.auditLog("login_failed", "identity", "", "", map[string]any{"reason": "unknown_email"})
		writeUnauthorized(w, "invalid credentials")
		return
	}
	if !identity.Active {
		s.auditLog("login_failed", "identity", identity.ID, identity.ID, map[string]any{"reason": "inactive"})
		writeForbidden(w, "account is not active")
		return
	}
	ok, err := iam.VerifyPassword(req.Password, identity.PasswordHash)
	if err != nil || !ok {
		s.auditLog("login_failed", "identity", identity.ID, identity.ID, map[string]any{"reason": "bad_password"})
		writeUnauthorized(w, "invalid credentials")
		return
	}

	roles := iam.DecodeRoles(identity.Roles)
	if len(roles) == 0 {
		roles = []string{iam.RoleUser.Name()}
	}

	token, err := s.tokens.Issue(identity.Username, loginAudience, roles)
	if err != nil {
		s.logger.Error("failed to sign access token", "identity_id", identity.ID, "error", err)
		writeInternalError(w, "failed to issue token")
		return
	}

	s.auditLog("login", "identity", identity.ID, identity.ID, nil)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		Username:    identity.Username,
	})
}

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a new rider account with the USER role. Username
// and email conflicts are reported separately so the app can highlight the
// offending field.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeBadRequest(w, "username, email and password are required")
		return
	}
	if !iam.IsValidUsername(req.Username) {
		writeBadRequest(w, "username may only contain letters, digits, dots, hyphens and underscores")
		return
	}

	if _, err := s.identities.GetByUsername(r.Context(), req.Username); err == nil {
		writeConflict(w, "Username already exists")
		return
	}
	if _, err := s.identities.GetByEmail(r.Context(), req.Email); err == nil {
		writeConflict(w, "Email already exists")
		return
	}

	hash, err := iam.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeInternalError(w, "failed to register user")
		return
	}

	identity := &iam.Identity{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Roles:        uint64(iam.RoleUser),
		Active:       true,
	}
	if err := s.identities.Create(r.Context(), identity); err != nil {
		// The unique constraints are the authority; the lookups above only
		// pick the friendlier message.
		switch {
		case errors.Is(err, iam.ErrUsernameExists):
			writeConflict(w, "Username already exists")
		case errors.Is(err, iam.ErrEmailExists):
			writeConflict(w, "Email already exists")
		default:
			s.logger.Error("failed to create identity", "username", req.Username, "error", err)
			writeInternalError(w, "failed to register user")
		}
		return
	}

	s.auditLog("register", "identity", identity.ID, identity.ID, map[string]any{
		"username": identity.Username,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "User registered successfully",
		"username": identity.Username,
		"email":    identity.Email,
	})
}

// meResponse is the response body for GET /auth/me.
type meResponse struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
	Secure  bool     `json:"secure"`
}

// handleMe returns the verified principal of the presented token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	if p == nil {
		s.writeChallenge(w)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		Subject: p.Subject,
		Roles:   p.Roles,
		Secure:  p.Secure,
	})
}
