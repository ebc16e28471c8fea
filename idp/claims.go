package idp

import (
	"strings"

	"github.com/upb/jobtracker/models"
)

// Claim names read during normalization
const (
	claimSubject     = "sub"
	claimIssuer      = "iss"
	claimAudience    = "aud"
	claimEmail       = "email"
	claimScope       = "scope"
	claimScp         = "scp"
	claimRoles       = "roles"
	claimPermissions = "permissions"
	claimAZP         = "azp"
	claimClientID    = "client_id"
)

// NormalizeAudience converts an aud claim (string or array) into a deduplicated list
func NormalizeAudience(value any) []string {
	return UnionStringSets(value)
}

// ParseScopes reads a space-delimited scope string, or an array of scopes, into a deduplicated list.
// A missing claim yields an empty list.
func ParseScopes(value any) []string {
	if s, ok := value.(string); ok {
		fields := strings.Fields(s)
		items := make([]any, len(fields))
		for i, f := range fields {
			items[i] = f
		}
		return UnionStringSets(items)
	}
	return UnionStringSets(value)
}

// UnionStringSets merges claim values into one ordered, deduplicated list.
// Each value may be a string, []string or []any; non-string entries and blanks are skipped.
func UnionStringSets(values ...any) []string {
	out := []string{}
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, value := range values {
		switch v := value.(type) {
		case string:
			add(v)
		case []string:
			for _, s := range v {
				add(s)
			}
		case []any:
			for _, e := range v {
				if s, ok := e.(string); ok {
					add(s)
				}
			}
		}
	}
	return out
}

// ClientID returns the authorized party, falling back to client_id
func ClientID(claims map[string]any) string {
	if azp := StringClaim(claims, claimAZP); azp != "" {
		return azp
	}
	return StringClaim(claims, claimClientID)
}

// StringClaim returns a trimmed string claim, or empty when absent or not a string
func StringClaim(claims map[string]any, name string) string {
	if claims == nil || name == "" {
		return ""
	}
	s, _ := claims[name].(string)
	return strings.TrimSpace(s)
}

// claimMapping describes provider differences in where normalized fields come from
type claimMapping struct {
	appIDClaim      string
	appEnvClaim     string
	extraRoleClaims []string
}

// buildAuthContext maps verified claims onto an AuthContext.
// audience is passed separately because some providers carry it outside aud.
func buildAuthContext(provider string, claims map[string]any, audience []string, m claimMapping) *models.AuthContext {
	subject := StringClaim(claims, claimSubject)

	roleSources := []any{claims[claimRoles], claims[claimPermissions]}
	for _, name := range m.extraRoleClaims {
		roleSources = append(roleSources, claims[name])
	}

	scopes := ParseScopes(claims[claimScope])
	if len(scopes) == 0 {
		scopes = ParseScopes(claims[claimScp])
	}

	return &models.AuthContext{
		Provider:  provider,
		UserID:    subject,
		Subject:   subject,
		Email:     StringClaim(claims, claimEmail),
		Issuer:    StringClaim(claims, claimIssuer),
		Audience:  audience,
		ClientID:  ClientID(claims),
		AppID:     StringClaim(claims, m.appIDClaim),
		AppEnv:    StringClaim(claims, m.appEnvClaim),
		Roles:     UnionStringSets(roleSources...),
		Scopes:    scopes,
		RawClaims: claims,
	}
}
