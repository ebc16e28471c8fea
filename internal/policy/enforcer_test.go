package policy

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
)

func strictPolicy() config.AuthPolicyConfig {
	return config.AuthPolicyConfig{
		EnforceAppClaims:       true,
		RequireClientAllowlist: true,
		ExpectedAppID:          "jobtracker",
		ExpectedAppEnv:         "prod",
		AllowedClientIDs:       []string{"web", "mobile"},
		RequiredScopes:         []string{"read:jobs", "write:jobs"},
	}
}

func validContext() *models.AuthContext {
	return &models.AuthContext{
		Subject:  "auth0|1",
		UserID:   "auth0|1",
		ClientID: "web",
		AppID:    "jobtracker",
		AppEnv:   "prod",
		Scopes:   []string{"write:jobs", "read:jobs", "profile"},
	}
}

func TestEnforceAuthPolicy(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.AuthContext)
		policy   func(*config.AuthPolicyConfig)
		wantCode shared.ErrorCode
		wantMsg  string
	}{
		{
			name:   "allowed",
			mutate: func(c *models.AuthContext) {},
		},
		{
			name:     "client not in allowlist",
			mutate:   func(c *models.AuthContext) { c.ClientID = "cli" },
			wantCode: shared.CodeForbiddenClient,
		},
		{
			name:     "client missing",
			mutate:   func(c *models.AuthContext) { c.ClientID = "" },
			wantCode: shared.CodeForbiddenClient,
		},
		{
			name:     "wrong app",
			mutate:   func(c *models.AuthContext) { c.AppID = "other-app" },
			wantCode: shared.CodeForbiddenApp,
			wantMsg:  "app_id",
		},
		{
			name:     "wrong env",
			mutate:   func(c *models.AuthContext) { c.AppEnv = "staging" },
			wantCode: shared.CodeForbiddenEnv,
			wantMsg:  "app_env",
		},
		{
			name:     "app checked before env",
			mutate:   func(c *models.AuthContext) { c.AppID = ""; c.AppEnv = "" },
			wantCode: shared.CodeForbiddenApp,
		},
		{
			name:   "app claims ignored when not enforced",
			mutate: func(c *models.AuthContext) { c.AppID = ""; c.AppEnv = "" },
			policy: func(p *config.AuthPolicyConfig) { p.EnforceAppClaims = false },
		},
		{
			name:     "missing scope",
			mutate:   func(c *models.AuthContext) { c.Scopes = []string{"read:jobs"} },
			wantCode: shared.CodeForbiddenScope,
			wantMsg:  "required scopes: write:jobs",
		},
		{
			name:     "client violation reported first",
			mutate:   func(c *models.AuthContext) { c.ClientID = "cli"; c.AppID = "x"; c.Scopes = nil },
			wantCode: shared.CodeForbiddenClient,
		},
		{
			name:   "empty allowlist admits any client",
			mutate: func(c *models.AuthContext) { c.ClientID = "" },
			policy: func(p *config.AuthPolicyConfig) { p.AllowedClientIDs = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authCtx := validContext()
			tt.mutate(authCtx)
			p := strictPolicy()
			if tt.policy != nil {
				tt.policy(&p)
			}

			err := EnforceAuthPolicy(authCtx, p)

			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, shared.CodeOf(err))
			assert.Equal(t, http.StatusForbidden, shared.StatusOf(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestEvaluate_CollectsAllViolations(t *testing.T) {
	authCtx := &models.AuthContext{ClientID: "cli"}

	decision := Evaluate(authCtx, strictPolicy())

	assert.False(t, decision.Allowed)
	require.Len(t, decision.Violations, 4)
	assert.Equal(t, ViolationClient, decision.Violations[0].Type)
	assert.Equal(t, ViolationApp, decision.Violations[1].Type)
	assert.Equal(t, ViolationEnv, decision.Violations[2].Type)
	assert.Equal(t, ViolationScope, decision.Violations[3].Type)
	assert.Contains(t, decision.Violations[3].Message, "read:jobs, write:jobs")
}

func TestEvaluate_NilContext(t *testing.T) {
	decision := Evaluate(nil, config.AuthPolicyConfig{})
	assert.True(t, decision.Allowed)
}

func TestEnforceAuthPolicy_Concurrent(t *testing.T) {
	p := strictPolicy()
	authCtx := validContext()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, EnforceAuthPolicy(authCtx, p))
		}()
	}
	wg.Wait()
}
