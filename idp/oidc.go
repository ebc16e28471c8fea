package idp

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/models"
)

// oidcAdapter verifies tokens from any OpenID Connect issuer,
// locating the JWKS through the discovery document.
type oidcAdapter struct {
	*verifier
	mapping claimMapping
}

func newOIDCAdapter(cfg *config.AuthRuntimeConfig, issuer string, mapping claimMapping, logger *zap.Logger) *oidcAdapter {
	v := newVerifier(config.ProviderOIDC, issuer, cfg.OIDC.Audience, cfg.OIDC.AllowedAlgorithms, cfg.OIDC.Leeway,
		discoverJWKS(issuer), logger)
	return &oidcAdapter{verifier: v, mapping: mapping}
}

// discoverJWKS reads jwks_uri from {issuer}/.well-known/openid-configuration
func discoverJWKS(issuer string) jwksLocator {
	return func(ctx context.Context) (string, error) {
		provider, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return "", fmt.Errorf("oidc discovery failed: %w", err)
		}

		var meta struct {
			JwksURI string `json:"jwks_uri"`
		}
		if err := provider.Claims(&meta); err != nil {
			return "", fmt.Errorf("invalid discovery metadata: %w", err)
		}
		if meta.JwksURI == "" {
			return "", errors.New("discovery incomplete: missing jwks_uri")
		}
		return meta.JwksURI, nil
	}
}

func (a *oidcAdapter) Name() string {
	return config.ProviderOIDC
}

func (a *oidcAdapter) Authenticate(ctx context.Context, rawToken string) (*models.AuthContext, error) {
	claims, err := a.verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	audience := NormalizeAudience(claims[claimAudience])
	if err := a.checkAudience(audience); err != nil {
		return nil, err
	}

	return buildAuthContext(config.ProviderOIDC, claims, audience, a.mapping), nil
}
