// Package api implements the HTTP server for Veloway Core.
//
// This package provides:
//   - The OAuth authorization-code flow with mandatory PKCE
//     (GET /auth/authorize, POST /auth/approve, POST /auth/token)
//   - First-party account endpoints (POST /auth/login, POST /auth/register,
//     GET /auth/me, PUT /auth/password)
//   - Consent management (GET /auth/grants, DELETE /auth/grants/{tenant})
//   - A bearer-token authentication gate for protected routes
//   - Middleware stack (request ID, logging, recovery, CORS, body limit,
//     credential rate limiting)
//   - TLS support for production deployments
//
// # Security
//
// Access tokens are HS256 JWTs verified on every protected request; the
// gate never caches principals between requests. Every rejection is a
// uniform 401 with a WWW-Authenticate challenge so callers cannot probe
// for the failure cause. Authorization codes are single-use, PKCE-bound
// and expire after two minutes.
//
// # Graceful Degradation
//
// The audit trail and MQTT client are optional dependencies: the auth
// flow keeps working when either is absent.
package api
