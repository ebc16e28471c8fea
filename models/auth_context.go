package models

// AuthContext is the normalized, request-scoped result of authenticating a bearer token.
// It is produced fresh per request and never persisted.
type AuthContext struct {
	Provider string   `json:"provider"`
	UserID   string   `json:"user_id"`
	Subject  string   `json:"subject"`
	Email    string   `json:"email,omitempty"`
	Issuer   string   `json:"issuer"`
	Audience []string `json:"audience"`
	ClientID string   `json:"client_id,omitempty"`
	AppID    string   `json:"app_id,omitempty"`
	AppEnv   string   `json:"app_env,omitempty"`
	Roles    []string `json:"roles"`
	Scopes   []string `json:"scopes"`

	// RawClaims is kept for audit and debugging only. Decisions are made on the
	// normalized fields above.
	RawClaims map[string]any `json:"-"`
}

// SubjectOrUserID returns the canonical subject, falling back to UserID
func (c *AuthContext) SubjectOrUserID() string {
	if c == nil {
		return ""
	}
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// HasScope checks if the context carries the given scope
func (c *AuthContext) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return contains(c.Scopes, scope)
}

// HasRole checks if the context carries the given role
func (c *AuthContext) HasRole(role string) bool {
	if c == nil {
		return false
	}
	return contains(c.Roles, role)
}

// StringClaim returns a raw string claim, or empty string when absent
func (c *AuthContext) StringClaim(name string) string {
	if c == nil || c.RawClaims == nil {
		return ""
	}
	s, _ := c.RawClaims[name].(string)
	return s
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
