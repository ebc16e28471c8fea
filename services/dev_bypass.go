package services

import (
	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/models"
)

// Identity fields stamped on every dev bypass context
const (
	DevProvider   = "dev"
	DevIssuer     = "dev-bypass"
	DevRole       = "authenticated"
	devClaimFlag  = "dev_bypass"
	devUserSuffix = "-local-user"
)

// CreateDevContext returns the synthetic context used when dev bypass is enabled.
// It performs no I/O and never looks at the bearer token.
func CreateDevContext(cfg *config.AuthRuntimeConfig) *models.AuthContext {
	subject := "dev|" + cfg.AppName + devUserSuffix
	email := "dev@" + cfg.AppName + ".local"

	return &models.AuthContext{
		Provider: DevProvider,
		UserID:   subject,
		Subject:  subject,
		Email:    email,
		Issuer:   DevIssuer,
		Audience: []string{cfg.AppName},
		AppID:    cfg.AppName,
		AppEnv:   cfg.AppEnv,
		Roles:    []string{DevRole},
		Scopes:   []string{},
		RawClaims: map[string]any{
			"sub":        subject,
			"email":      email,
			devClaimFlag: true,
		},
	}
}
