// Package iam provides identity and access management for Veloway Core.
//
// It implements the authorization-code half of an OAuth2-style flow with:
//   - Multi-tenant client validation (pre-registered redirect URIs,
//     per-tenant grant types and default scopes)
//   - PKCE-bound (S256 only), stateless, single-use authorization codes
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - HMAC-signed JWT issuance and verification with a key-rotation
//     overlap window
//   - Role sets packed into a 64-bit mask, expanded to canonical names
//     inside signed token claims
//
// Authorization codes are self-verifying: the opaque wire value carries its
// own payload and an HMAC binding it to the PKCE challenge and redirect URI,
// so redemption needs no server-side lookup. Replay is caught by an
// in-process consumed-code register with atomic check-and-mark.
package iam
