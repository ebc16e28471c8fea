// Package idp verifies bearer tokens issued by external identity providers
// and normalizes their claims into a models.AuthContext.
package idp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
)

// Adapter verifies raw tokens for one identity provider
type Adapter interface {
	// Name returns the provider name the adapter was built for
	Name() string

	// Authenticate verifies rawToken and returns the normalized auth context
	Authenticate(ctx context.Context, rawToken string) (*models.AuthContext, error)

	// Close releases the JWKS key source
	Close()
}

// Factory builds an adapter for a runtime configuration
type Factory func(cfg *config.AuthRuntimeConfig, logger *zap.Logger) (Adapter, error)

const jwksPath = "/.well-known/jwks.json"

// New builds the adapter for cfg.Provider.
// It fails with auth_misconfigured when the provider is unknown or issuer/audience are absent.
func New(cfg *config.AuthRuntimeConfig, logger *zap.Logger) (Adapter, error) {
	if cfg == nil {
		return nil, shared.NewAuthError(shared.CodeAuthMisconfigured, "auth configuration is missing")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	issuer := strings.TrimSpace(cfg.OIDC.Issuer)
	if issuer == "" {
		return nil, shared.NewAuthError(shared.CodeAuthMisconfigured, fmt.Sprintf("%s adapter requires an issuer", cfg.Provider))
	}
	if len(cfg.OIDC.Audience) == 0 {
		return nil, shared.NewAuthError(shared.CodeAuthMisconfigured, fmt.Sprintf("%s adapter requires an audience", cfg.Provider))
	}

	mapping := claimMapping{
		appIDClaim:  cfg.OIDC.AppIDClaim,
		appEnvClaim: cfg.OIDC.AppEnvClaim,
	}
	logger = logger.With(zap.String("provider", cfg.Provider))

	switch cfg.Provider {
	case config.ProviderAuth0:
		return newAuth0Adapter(cfg, issuer, mapping, logger), nil
	case config.ProviderCognito:
		return newCognitoAdapter(cfg, issuer, mapping, logger), nil
	case config.ProviderOIDC:
		return newOIDCAdapter(cfg, issuer, mapping, logger), nil
	default:
		return nil, shared.NewAuthError(shared.CodeAuthMisconfigured, fmt.Sprintf("unsupported auth provider %q", cfg.Provider))
	}
}

// WellKnownJWKSURL joins issuer and the well-known JWKS path without doubling slashes
func WellKnownJWKSURL(issuer string) string {
	return strings.TrimRight(issuer, "/") + jwksPath
}

func staticJWKS(url string) jwksLocator {
	return func(context.Context) (string, error) {
		return url, nil
	}
}
