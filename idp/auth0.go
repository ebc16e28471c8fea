package idp

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/models"
)

// auth0Adapter verifies Auth0 access tokens against the tenant JWKS
type auth0Adapter struct {
	*verifier
	mapping claimMapping
}

func newAuth0Adapter(cfg *config.AuthRuntimeConfig, issuer string, mapping claimMapping, logger *zap.Logger) *auth0Adapter {
	v := newVerifier(config.ProviderAuth0, issuer, cfg.OIDC.Audience, cfg.OIDC.AllowedAlgorithms, cfg.OIDC.Leeway,
		staticJWKS(WellKnownJWKSURL(issuer)), logger)
	return &auth0Adapter{verifier: v, mapping: mapping}
}

func (a *auth0Adapter) Name() string {
	return config.ProviderAuth0
}

func (a *auth0Adapter) Authenticate(ctx context.Context, rawToken string) (*models.AuthContext, error) {
	claims, err := a.verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	audience := NormalizeAudience(claims[claimAudience])
	if err := a.checkAudience(audience); err != nil {
		return nil, err
	}

	return buildAuthContext(config.ProviderAuth0, claims, audience, a.mapping), nil
}
