package iam

import (
	"context"
	"fmt"
)

// AuthorizeRequest carries the query parameters of a GET /auth/authorize
// call, unvalidated.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	CodeChallengeMethod string
}

// AuthorizeDecision is the outcome of a successful authorize validation:
// the resolved tenant, the effective redirect URI and the scope string to
// carry into the consent step.
type AuthorizeDecision struct {
	Tenant      *Tenant
	RedirectURI string

	// Scope is the requested scope after tenant-default substitution. The
	// owner's consent narrows it further at approval time.
	Scope string
}

// ValidateAuthorize runs the authorize entry gate against the tenant
// registry. Validation order and failure taxonomy:
//
//  1. unknown client_id                      → ErrInvalidClient
//  2. tenant restricts grant types and
//     authorization_code is not among them   → ErrUnsupportedGrantType
//  3. pre-registered redirect URI present and
//     caller-supplied one differs            → ErrRedirectURIMismatch
//  4. no pre-registered URI and none supplied → ErrMissingRedirectURI
//  5. response_type not "code"/"token"       → ErrUnsupportedResponseType
//  6. code_challenge_method not "S256"       → ErrInvalidPkceMethod
//
// Every failure is terminal and user-visible at the /auth/authorize
// boundary; no redirect back to the client is attempted.
func ValidateAuthorize(ctx context.Context, tenants TenantRepository, req AuthorizeRequest) (*AuthorizeDecision, error) {
	if req.ClientID == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClient, req.ClientID)
	}
	tenant, err := tenants.GetByName(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClient, req.ClientID)
	}

	if !tenant.SupportsGrantType("authorization_code") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrantType, req.ClientID)
	}

	redirectURI := req.RedirectURI
	if tenant.RedirectURI != "" {
		if redirectURI != "" && redirectURI != tenant.RedirectURI {
			return nil, ErrRedirectURIMismatch
		}
		redirectURI = tenant.RedirectURI
	} else if redirectURI == "" {
		return nil, ErrMissingRedirectURI
	}

	if req.ResponseType != "code" && req.ResponseType != "token" {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedResponseType, req.ResponseType)
	}

	scope := req.Scope
	if scope == "" {
		scope = tenant.RequiredScopes
	}

	if req.CodeChallengeMethod != "S256" {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidPkceMethod, req.CodeChallengeMethod)
	}

	return &AuthorizeDecision{
		Tenant:      tenant,
		RedirectURI: redirectURI,
		Scope:       scope,
	}, nil
}
