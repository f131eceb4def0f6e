// Package auth defines the identity contract the phishing subsystem
// consumes. Session verification and role resolution live in an
// external identity service; this package only resolves a bearer
// credential into an Identity and checks the phishing entitlement.
package auth

import (
	"context"
	"slices"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
)

// Role and permission names recognized by the phishing subsystem.
const (
	RoleClientAdmin    = "client_admin"
	PermissionPhishing = "phishing"
)

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID      string
	Email       string
	TenantCode  string
	Roles       []string
	Permissions []string
}

// CanManagePhishing reports whether the identity may use the phishing
// administrative surface.
func (id *Identity) CanManagePhishing() bool {
	return slices.Contains(id.Roles, RoleClientAdmin) ||
		slices.Contains(id.Permissions, PermissionPhishing)
}

// Authenticator resolves a bearer token into an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// StaticAuthenticator resolves tokens from a fixed map, typically
// loaded from configuration. Production deployments plug the identity
// service client in behind the Authenticator interface instead.
type StaticAuthenticator struct {
	tokens map[string]*Identity
}

// NewStaticAuthenticator builds an authenticator over a token map.
func NewStaticAuthenticator(tokens map[string]*Identity) *StaticAuthenticator {
	return &StaticAuthenticator{tokens: tokens}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, errs.Auth("missing bearer token")
	}
	id, ok := a.tokens[token]
	if !ok {
		return nil, errs.Auth("unknown bearer token")
	}
	return id, nil
}
