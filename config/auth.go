package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"

	"github.com/upb/jobtracker/internal/shared"
)

// Supported identity providers
const (
	ProviderAuth0   = "auth0"
	ProviderCognito = "cognito"
	ProviderOIDC    = "oidc"
)

// SupportedProviders is the closed set of provider names accepted by AUTH_PROVIDER
var SupportedProviders = []string{ProviderAuth0, ProviderCognito, ProviderOIDC}

// supportedAlgorithms are the asymmetric JWS algorithms a JWKS can publish keys for
var supportedAlgorithms = map[string]struct{}{
	"RS256": {}, "RS384": {}, "RS512": {},
	"PS256": {}, "PS384": {}, "PS512": {},
	"ES256": {}, "ES384": {}, "ES512": {},
	"EdDSA": {},
}

const localAppEnv = "local"

// AuthPolicyConfig holds the tenant isolation policy applied after token verification
type AuthPolicyConfig struct {
	EnforceAppClaims       bool
	RequireClientAllowlist bool
	ExpectedAppID          string
	ExpectedAppEnv         string
	AllowedClientIDs       []string
	RequiredScopes         []string
}

// OIDCConfig holds the token verification parameters for the configured provider
type OIDCConfig struct {
	Issuer            string
	Audience          []string
	AppIDClaim        string
	AppEnvClaim       string
	AllowedAlgorithms []string
	Leeway            time.Duration
}

// AuthRuntimeConfig is the fully resolved authentication configuration
type AuthRuntimeConfig struct {
	Provider             string
	DevBypass            bool
	AppName              string
	AppEnv               string
	ExecutionEnvironment string
	CognitoRegion        string
	CognitoUserPoolID    string
	OIDC                 OIDCConfig
	Policy               AuthPolicyConfig
}

// IsProductionEnvironment returns true when the execution environment is production
func (c *AuthRuntimeConfig) IsProductionEnvironment() bool {
	return isProductionEnv(c.ExecutionEnvironment)
}

// Validate checks the configuration for internal consistency
func (c *AuthRuntimeConfig) Validate() error {
	return ValidateAuthRuntimeConfig(c)
}

// authEnv is the raw process environment read by LoadAuthRuntimeConfig.
// Booleans and lists are decoded as strings so malformed values can be reported.
type authEnv struct {
	Environment string `env:"ENVIRONMENT"`
	Provider    string `env:"AUTH_PROVIDER,default=auth0"`
	DevBypass   string `env:"AUTH_DEV_BYPASS"`
	AppName     string `env:"APP_NAME,default=jobtracker"`
	AppEnv      string `env:"APP_ENV"`

	Auth0Issuer       string `env:"AUTH0_ISSUER"`
	Auth0Audience     string `env:"AUTH0_AUDIENCE"`
	CognitoIssuer     string `env:"COGNITO_ISSUER"`
	CognitoAudience   string `env:"COGNITO_AUDIENCE"`
	CognitoRegion     string `env:"COGNITO_REGION"`
	CognitoUserPoolID string `env:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `env:"COGNITO_CLIENT_ID"`
	OIDCIssuer        string `env:"OIDC_ISSUER"`
	OIDCAudience      string `env:"OIDC_AUDIENCE"`
	Issuer            string `env:"AUTH_ISSUER"`
	Audience          string `env:"AUTH_AUDIENCE"`

	AllowedAlgs            string `env:"AUTH_ALLOWED_ALGS,default=RS256"`
	AppIDClaim             string `env:"AUTH_APP_ID_CLAIM,default=app_id"`
	AppEnvClaim            string `env:"AUTH_APP_ENV_CLAIM,default=app_env"`
	AllowedClientIDs       string `env:"AUTH_ALLOWED_CLIENT_IDS"`
	RequiredScopes         string `env:"AUTH_REQUIRED_SCOPES"`
	EnforceAppClaims       string `env:"AUTH_ENFORCE_APP_CLAIMS"`
	RequireClientAllowlist string `env:"AUTH_REQUIRE_CLIENT_ALLOWLIST"`
	ClockLeeway            string `env:"AUTH_CLOCK_LEEWAY,default=30s"`
}

// LoadAuthRuntimeConfig resolves the authentication configuration from the process environment
func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	var raw authEnv
	if err := envdecode.Decode(&raw); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, shared.WrapAuthError(shared.CodeAuthMisconfigured, "failed to read auth environment", err)
	}

	cfg, err := buildAuthRuntimeConfig(raw)
	if err != nil {
		return nil, err
	}

	if err := ValidateAuthRuntimeConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildAuthRuntimeConfig(raw authEnv) (*AuthRuntimeConfig, error) {
	var problems []string

	execEnv := strings.ToLower(strings.TrimSpace(raw.Environment))
	production := isProductionEnv(execEnv)

	appEnv := raw.AppEnv
	if appEnv == "" {
		if production {
			appEnv = "prod"
		} else {
			appEnv = localAppEnv
		}
	}

	devBypass, err := parseBoolOverride("AUTH_DEV_BYPASS", raw.DevBypass, isDevelopmentEnv(execEnv))
	if err != nil {
		problems = append(problems, err.Error())
	}
	enforceAppClaims, err := parseBoolOverride("AUTH_ENFORCE_APP_CLAIMS", raw.EnforceAppClaims, production)
	if err != nil {
		problems = append(problems, err.Error())
	}
	requireAllowlist, err := parseBoolOverride("AUTH_REQUIRE_CLIENT_ALLOWLIST", raw.RequireClientAllowlist, strings.TrimSpace(appEnv) != localAppEnv)
	if err != nil {
		problems = append(problems, err.Error())
	}

	leeway, err := time.ParseDuration(strings.TrimSpace(raw.ClockLeeway))
	if err != nil {
		problems = append(problems, fmt.Sprintf("AUTH_CLOCK_LEEWAY: invalid duration %q", raw.ClockLeeway))
	} else if leeway < 0 {
		problems = append(problems, "AUTH_CLOCK_LEEWAY: must not be negative")
	}

	if len(problems) > 0 {
		return nil, shared.NewAuthError(shared.CodeAuthMisconfigured, "invalid auth configuration: "+strings.Join(problems, "; "))
	}

	provider := strings.ToLower(strings.TrimSpace(raw.Provider))
	issuer, audience := resolveIssuerAndAudience(raw, provider)

	cfg := &AuthRuntimeConfig{
		Provider:             provider,
		DevBypass:            devBypass,
		AppName:              raw.AppName,
		AppEnv:               appEnv,
		ExecutionEnvironment: execEnv,
		CognitoRegion:        strings.TrimSpace(raw.CognitoRegion),
		CognitoUserPoolID:    strings.TrimSpace(raw.CognitoUserPoolID),
		OIDC: OIDCConfig{
			Issuer:            issuer,
			Audience:          SplitList(audience),
			AppIDClaim:        strings.TrimSpace(raw.AppIDClaim),
			AppEnvClaim:       strings.TrimSpace(raw.AppEnvClaim),
			AllowedAlgorithms: SplitList(raw.AllowedAlgs),
			Leeway:            leeway,
		},
		Policy: AuthPolicyConfig{
			EnforceAppClaims:       enforceAppClaims,
			RequireClientAllowlist: requireAllowlist,
			ExpectedAppID:          strings.TrimSpace(raw.AppName),
			ExpectedAppEnv:         strings.TrimSpace(appEnv),
			AllowedClientIDs:       SplitList(raw.AllowedClientIDs),
			RequiredScopes:         SplitList(raw.RequiredScopes),
		},
	}
	return cfg, nil
}

// resolveIssuerAndAudience prefers provider-specific variables over the generic AUTH_* names
func resolveIssuerAndAudience(raw authEnv, provider string) (string, string) {
	switch provider {
	case ProviderAuth0:
		return firstNonBlank(raw.Auth0Issuer, raw.Issuer), firstNonBlank(raw.Auth0Audience, raw.Audience)
	case ProviderCognito:
		return firstNonBlank(raw.CognitoIssuer, CognitoIssuerURL(raw.CognitoRegion, raw.CognitoUserPoolID), raw.Issuer),
			firstNonBlank(raw.CognitoAudience, raw.CognitoClientID, raw.Audience)
	case ProviderOIDC:
		return firstNonBlank(raw.OIDCIssuer, raw.Issuer), firstNonBlank(raw.OIDCAudience, raw.Audience)
	default:
		return strings.TrimSpace(raw.Issuer), raw.Audience
	}
}

// CognitoIssuerURL builds the user pool issuer, or returns empty when either part is missing
func CognitoIssuerURL(region, userPoolID string) string {
	region = strings.TrimSpace(region)
	userPoolID = strings.TrimSpace(userPoolID)
	if region == "" || userPoolID == "" {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// SplitList parses a comma separated list, trimming entries and dropping empties and duplicates
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func parseBoolOverride(name, value string, defaultValue bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", name, value)
	}
	return parsed, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func isProductionEnv(env string) bool {
	return env == "production" || env == "prod"
}

func isDevelopmentEnv(env string) bool {
	return env == "development" || env == "dev"
}

var authValidator = newAuthValidator()

func newAuthValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateAuthRuntimeStruct, AuthRuntimeConfig{})
	return v
}

// ValidateAuthRuntimeConfig reports every inconsistency in cfg as a single auth_misconfigured error
func ValidateAuthRuntimeConfig(cfg *AuthRuntimeConfig) error {
	if cfg == nil {
		return shared.NewAuthError(shared.CodeAuthMisconfigured, "auth configuration is missing")
	}

	err := authValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapAuthError(shared.CodeAuthMisconfigured, "invalid auth configuration", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return shared.NewAuthError(shared.CodeAuthMisconfigured, "invalid auth configuration: "+strings.Join(problems, "; "))
}

func validateAuthRuntimeStruct(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(AuthRuntimeConfig)

	if strings.TrimSpace(cfg.AppName) == "" {
		sl.ReportError(cfg.AppName, "AppName", "AppName", "notblank", "")
	}
	if strings.TrimSpace(cfg.AppEnv) == "" {
		sl.ReportError(cfg.AppEnv, "AppEnv", "AppEnv", "notblank", "")
	}
	if !isSupportedProvider(cfg.Provider) {
		sl.ReportError(cfg.Provider, "Provider", "Provider", "oneof", strings.Join(SupportedProviders, " "))
	}

	if cfg.DevBypass {
		if isProductionEnv(cfg.ExecutionEnvironment) {
			sl.ReportError(cfg.DevBypass, "DevBypass", "DevBypass", "noproduction", "")
		}
		if cfg.Policy.RequireClientAllowlist {
			sl.ReportError(cfg.DevBypass, "DevBypass", "DevBypass", "excludes_allowlist", "")
		}
		return
	}

	if strings.TrimSpace(cfg.OIDC.Issuer) == "" {
		sl.ReportError(cfg.OIDC.Issuer, "OIDC.Issuer", "Issuer", "required", "")
	}
	if len(cfg.OIDC.Audience) == 0 {
		sl.ReportError(cfg.OIDC.Audience, "OIDC.Audience", "Audience", "required", "")
	}
	if len(cfg.OIDC.AllowedAlgorithms) == 0 {
		sl.ReportError(cfg.OIDC.AllowedAlgorithms, "OIDC.AllowedAlgorithms", "AllowedAlgorithms", "required", "")
	}
	for _, alg := range cfg.OIDC.AllowedAlgorithms {
		if _, ok := supportedAlgorithms[alg]; !ok {
			sl.ReportError(cfg.OIDC.AllowedAlgorithms, "OIDC.AllowedAlgorithms", "AllowedAlgorithms", "algorithm", alg)
		}
	}
	if cfg.Policy.RequireClientAllowlist && len(cfg.Policy.AllowedClientIDs) == 0 {
		sl.ReportError(cfg.Policy.AllowedClientIDs, "Policy.AllowedClientIDs", "AllowedClientIDs", "required_with_allowlist", "")
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s %q is not supported (expected one of: %s)", fe.Field(), fe.Value(), fe.Param())
	case "noproduction":
		return "dev bypass cannot be enabled in production"
	case "excludes_allowlist":
		return "dev bypass cannot be combined with a required client allowlist"
	case "required":
		return fmt.Sprintf("%s is required unless dev bypass is enabled", fe.Field())
	case "algorithm":
		return fmt.Sprintf("%s contains unsupported algorithm %q", fe.Field(), fe.Param())
	case "required_with_allowlist":
		return fmt.Sprintf("%s must not be empty when a client allowlist is required", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func isSupportedProvider(name string) bool {
	for _, p := range SupportedProviders {
		if p == name {
			return true
		}
	}
	return false
}
