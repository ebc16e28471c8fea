package policy

import (
	"fmt"
	"strings"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/models"
)

// EnforceAuthPolicy returns the first violation as a 403 auth error, or nil when authCtx satisfies p.
// Checks run in a fixed order: client allowlist, app id, app env, required scopes.
func EnforceAuthPolicy(authCtx *models.AuthContext, p config.AuthPolicyConfig) error {
	decision := Evaluate(authCtx, p)
	if decision.Allowed {
		return nil
	}
	return decision.Violations[0].Err()
}

// Evaluate collects every violation of p in check order
func Evaluate(authCtx *models.AuthContext, p config.AuthPolicyConfig) Decision {
	if authCtx == nil {
		authCtx = &models.AuthContext{}
	}

	var violations []Violation

	if len(p.AllowedClientIDs) > 0 && !containsString(p.AllowedClientIDs, authCtx.ClientID) {
		violations = append(violations, Violation{
			Type:    ViolationClient,
			Message: "client is not in the allowed client list",
		})
	}

	if p.EnforceAppClaims {
		if authCtx.AppID != p.ExpectedAppID {
			violations = append(violations, Violation{
				Type:    ViolationApp,
				Message: fmt.Sprintf("token app_id does not match %q", p.ExpectedAppID),
			})
		}
		if authCtx.AppEnv != p.ExpectedAppEnv {
			violations = append(violations, Violation{
				Type:    ViolationEnv,
				Message: fmt.Sprintf("token app_env does not match %q", p.ExpectedAppEnv),
			})
		}
	}

	if missing := missingScopes(authCtx.Scopes, p.RequiredScopes); len(missing) > 0 {
		violations = append(violations, Violation{
			Type:    ViolationScope,
			Message: "token is missing required scopes: " + strings.Join(missing, ", "),
		})
	}

	return Decision{
		Allowed:    len(violations) == 0,
		Violations: violations,
	}
}

func missingScopes(have, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	granted := make(map[string]struct{}, len(have))
	for _, s := range have {
		granted[s] = struct{}{}
	}

	var missing []string
	for _, s := range required {
		if _, ok := granted[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

func containsString(values []string, want string) bool {
	if want == "" {
		return false
	}
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
