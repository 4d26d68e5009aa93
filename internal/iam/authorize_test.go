package iam

import (
	"context"
	"errors"
	"testing"
)

func TestValidateAuthorize(t *testing.T) {
	db := testDB(t)
	seedTestTenant(t, db) // veloway, pre-registered https://app/cb
	repo := NewTenantRepository(db)
	ctx := context.Background()

	valid := AuthorizeRequest{
		ClientID:            "veloway",
		ResponseType:        "code",
		CodeChallengeMethod: "S256",
	}

	t.Run("pre-registered redirect used when none supplied", func(t *testing.T) {
		decision, err := ValidateAuthorize(ctx, repo, valid)
		if err != nil {
			t.Fatalf("ValidateAuthorize() error = %v", err)
		}
		if decision.RedirectURI != "https://app/cb" {
			t.Errorf("RedirectURI = %q, want pre-registered https://app/cb", decision.RedirectURI)
		}
	})

	t.Run("matching redirect accepted", func(t *testing.T) {
		req := valid
		req.RedirectURI = "https://app/cb"
		if _, err := ValidateAuthorize(ctx, repo, req); err != nil {
			t.Errorf("ValidateAuthorize() error = %v", err)
		}
	})

	t.Run("mismatched redirect rejected", func(t *testing.T) {
		req := valid
		req.RedirectURI = "https://evil/cb"
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrRedirectURIMismatch) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrRedirectURIMismatch", err)
		}
	})

	t.Run("unknown client", func(t *testing.T) {
		req := valid
		req.ClientID = "nobody"
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrInvalidClient) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrInvalidClient", err)
		}
	})

	t.Run("empty client", func(t *testing.T) {
		req := valid
		req.ClientID = ""
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrInvalidClient) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrInvalidClient", err)
		}
	})

	t.Run("default scope substituted", func(t *testing.T) {
		decision, err := ValidateAuthorize(ctx, repo, valid)
		if err != nil {
			t.Fatalf("ValidateAuthorize() error = %v", err)
		}
		if decision.Scope != "rentals.read profile.read" {
			t.Errorf("Scope = %q, want tenant default", decision.Scope)
		}
	})

	t.Run("explicit scope kept", func(t *testing.T) {
		req := valid
		req.Scope = "rentals.read"
		decision, err := ValidateAuthorize(ctx, repo, req)
		if err != nil {
			t.Fatalf("ValidateAuthorize() error = %v", err)
		}
		if decision.Scope != "rentals.read" {
			t.Errorf("Scope = %q, want rentals.read", decision.Scope)
		}
	})

	t.Run("response_type token accepted at this stage", func(t *testing.T) {
		req := valid
		req.ResponseType = "token"
		if _, err := ValidateAuthorize(ctx, repo, req); err != nil {
			t.Errorf("ValidateAuthorize() error = %v", err)
		}
	})

	t.Run("bad response_type", func(t *testing.T) {
		req := valid
		req.ResponseType = "id_token"
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrUnsupportedResponseType) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrUnsupportedResponseType", err)
		}
	})

	t.Run("plain PKCE rejected regardless of other params", func(t *testing.T) {
		req := valid
		req.CodeChallengeMethod = "plain"
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrInvalidPkceMethod) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrInvalidPkceMethod", err)
		}
	})

	t.Run("missing PKCE method rejected", func(t *testing.T) {
		req := valid
		req.CodeChallengeMethod = ""
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrInvalidPkceMethod) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrInvalidPkceMethod", err)
		}
	})
}

func TestValidateAuthorize_GrantTypeRestriction(t *testing.T) {
	db := testDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()

	implicitOnly := &Tenant{
		Name:                "legacy-kiosk",
		Secret:              "s",
		RedirectURI:         "https://kiosk/cb",
		SupportedGrantTypes: "client_credentials",
	}
	if err := repo.Create(ctx, implicitOnly); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := AuthorizeRequest{
		ClientID:            "legacy-kiosk",
		ResponseType:        "code",
		CodeChallengeMethod: "S256",
	}
	if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrUnsupportedGrantType) {
		t.Errorf("ValidateAuthorize() error = %v, want ErrUnsupportedGrantType", err)
	}
}

func TestValidateAuthorize_NoPreRegisteredRedirect(t *testing.T) {
	db := testDB(t)
	repo := NewTenantRepository(db)
	ctx := context.Background()

	open := &Tenant{Name: "open-client", Secret: "s"}
	if err := repo.Create(ctx, open); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := AuthorizeRequest{
		ClientID:            "open-client",
		ResponseType:        "code",
		CodeChallengeMethod: "S256",
	}

	t.Run("caller must supply redirect", func(t *testing.T) {
		if _, err := ValidateAuthorize(ctx, repo, req); !errors.Is(err, ErrMissingRedirectURI) {
			t.Errorf("ValidateAuthorize() error = %v, want ErrMissingRedirectURI", err)
		}
	})

	t.Run("caller-supplied redirect accepted", func(t *testing.T) {
		withURI := req
		withURI.RedirectURI = "https://anywhere/cb"
		decision, err := ValidateAuthorize(ctx, repo, withURI)
		if err != nil {
			t.Fatalf("ValidateAuthorize() error = %v", err)
		}
		if decision.RedirectURI != "https://anywhere/cb" {
			t.Errorf("RedirectURI = %q", decision.RedirectURI)
		}
	})
}
