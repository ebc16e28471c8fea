package idp

import (
	"context"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
)

const (
	claimTokenUse      = "token_use"
	claimCognitoGroups = "cognito:groups"

	tokenUseID     = "id"
	tokenUseAccess = "access"
)

// cognitoAdapter verifies Cognito user pool ID and access tokens.
// Access tokens carry the app client in client_id instead of aud.
type cognitoAdapter struct {
	*verifier
	mapping claimMapping
}

func newCognitoAdapter(cfg *config.AuthRuntimeConfig, issuer string, mapping claimMapping, logger *zap.Logger) *cognitoAdapter {
	v := newVerifier(config.ProviderCognito, issuer, cfg.OIDC.Audience, cfg.OIDC.AllowedAlgorithms, cfg.OIDC.Leeway,
		staticJWKS(WellKnownJWKSURL(issuer)), logger)
	mapping.extraRoleClaims = []string{claimCognitoGroups}
	return &cognitoAdapter{verifier: v, mapping: mapping}
}

func (a *cognitoAdapter) Name() string {
	return config.ProviderCognito
}

func (a *cognitoAdapter) Authenticate(ctx context.Context, rawToken string) (*models.AuthContext, error) {
	claims, err := a.verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var audience []string
	switch StringClaim(claims, claimTokenUse) {
	case tokenUseID:
		audience = NormalizeAudience(claims[claimAudience])
	case tokenUseAccess:
		audience = NormalizeAudience(claims[claimClientID])
	default:
		return nil, shared.NewAuthError(shared.CodeInvalidToken, "token_use must be id or access")
	}

	if err := a.checkAudience(audience); err != nil {
		return nil, err
	}

	return buildAuthContext(config.ProviderCognito, claims, audience, a.mapping), nil
}
