package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateDevContext(t *testing.T) {
	cfg := devConfig()

	authCtx := CreateDevContext(cfg)

	assert.Equal(t, "dev|jobtracker-local-user", authCtx.Subject)
	assert.Equal(t, authCtx.Subject, authCtx.UserID)
	assert.Equal(t, "dev@jobtracker.local", authCtx.Email)
	assert.Equal(t, DevProvider, authCtx.Provider)
	assert.Equal(t, DevIssuer, authCtx.Issuer)
	assert.Equal(t, []string{"jobtracker"}, authCtx.Audience)
	assert.Equal(t, "jobtracker", authCtx.AppID)
	assert.Equal(t, "local", authCtx.AppEnv)
	assert.Equal(t, []string{"authenticated"}, authCtx.Roles)
	assert.Empty(t, authCtx.Scopes)
	assert.NotNil(t, authCtx.Scopes)
	assert.Equal(t, true, authCtx.RawClaims["dev_bypass"])
}

func TestCreateDevContext_FollowsAppName(t *testing.T) {
	cfg := devConfig()
	cfg.AppName = "careers"
	cfg.AppEnv = "sandbox"

	authCtx := CreateDevContext(cfg)

	assert.Equal(t, "dev|careers-local-user", authCtx.Subject)
	assert.Equal(t, "dev@careers.local", authCtx.Email)
	assert.Equal(t, "sandbox", authCtx.AppEnv)
	assert.NotSame(t, CreateDevContext(cfg), authCtx)
}
