package services

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/config"
	"github.com/upb/jobtracker/idp"
	"github.com/upb/jobtracker/internal/observability"
	"github.com/upb/jobtracker/internal/policy"
	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
)

const bearerPrefix = "Bearer "

// authState is replaced wholesale, never mutated after it is published
type authState struct {
	cfg     *config.AuthRuntimeConfig
	adapter idp.Adapter
}

// AuthService authenticates bearer tokens against the configured identity provider
// and enforces the tenant policy on the result.
type AuthService struct {
	loadConfig func() (*config.AuthRuntimeConfig, error)
	newAdapter idp.Factory
	logger     *zap.Logger
	metrics    *observability.AuthMetrics

	state atomic.Pointer[authState]
}

// AuthServiceOption configures an AuthService
type AuthServiceOption func(*AuthService)

// WithConfigLoader sets the function used to load the runtime config on first use
func WithConfigLoader(load func() (*config.AuthRuntimeConfig, error)) AuthServiceOption {
	return func(s *AuthService) {
		s.loadConfig = load
	}
}

// WithAdapterFactory sets the provider adapter factory
func WithAdapterFactory(factory idp.Factory) AuthServiceOption {
	return func(s *AuthService) {
		s.newAdapter = factory
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) AuthServiceOption {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(metrics *observability.AuthMetrics) AuthServiceOption {
	return func(s *AuthService) {
		s.metrics = metrics
	}
}

// WithConfig seeds the service with an already loaded config so the loader is never called
func WithConfig(cfg *config.AuthRuntimeConfig) AuthServiceOption {
	return func(s *AuthService) {
		if cfg != nil {
			s.state.Store(&authState{cfg: cfg})
		}
	}
}

// NewAuthService creates an AuthService.
// By default config comes from the environment and adapters from idp.New.
func NewAuthService(opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		loadConfig: config.LoadAuthRuntimeConfig,
		newAdapter: idp.New,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseBearerToken extracts the token from an Authorization header value.
// The scheme is matched case-sensitively.
func ParseBearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", shared.NewAuthError(shared.CodeMissingToken, "missing or malformed Authorization header")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", shared.NewAuthError(shared.CodeMissingToken, "missing or malformed Authorization header")
	}
	return token, nil
}

// AuthenticateRequest verifies the bearer token in authorizationHeader and returns the
// normalized auth context. Dev bypass skips verification and policy enforcement.
func (s *AuthService) AuthenticateRequest(ctx context.Context, authorizationHeader string) (*models.AuthContext, error) {
	start := time.Now()
	logger := observability.RequestLogger(ctx, s.logger)

	token, err := ParseBearerToken(authorizationHeader)
	if err != nil {
		s.metrics.ObserveAuthentication("", err, time.Since(start))
		logger.Debug("rejected request without bearer token")
		return nil, err
	}

	st, err := s.current()
	if err != nil {
		s.metrics.ObserveAuthentication("", err, time.Since(start))
		logger.Error("auth configuration unavailable", zap.Error(err))
		return nil, err
	}
	cfg := st.cfg

	if cfg.DevBypass {
		s.metrics.ObserveAuthentication(DevProvider, nil, time.Since(start))
		return CreateDevContext(cfg), nil
	}

	authCtx, err := s.verify(ctx, st, token)
	if err == nil {
		err = policy.EnforceAuthPolicy(authCtx, cfg.Policy)
	}
	s.metrics.ObserveAuthentication(cfg.Provider, err, time.Since(start))
	if err != nil {
		logger.Warn("authentication failed",
			zap.String("provider", cfg.Provider),
			zap.String("code", string(shared.CodeOf(err))),
			zap.Error(err))
		return nil, err
	}

	logger.Debug("authentication successful",
		zap.String("provider", cfg.Provider),
		zap.String("sub", authCtx.Subject))
	return authCtx, nil
}

func (s *AuthService) verify(ctx context.Context, st *authState, token string) (*models.AuthContext, error) {
	adapter, err := s.adapterFor(st)
	if err != nil {
		return nil, err
	}

	authCtx, err := adapter.Authenticate(ctx, token)
	if err != nil {
		if _, ok := shared.AsAuthError(err); ok {
			return nil, err
		}
		return nil, shared.WrapAuthError(shared.CodeInvalidToken, "token verification failed", err)
	}
	return authCtx, nil
}

// Config returns the cached runtime config, loading it on first use
func (s *AuthService) Config() (*config.AuthRuntimeConfig, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.cfg, nil
}

func (s *AuthService) current() (*authState, error) {
	if st := s.state.Load(); st != nil {
		return st, nil
	}

	cfg, err := s.loadConfig()
	if err != nil {
		if _, ok := shared.AsAuthError(err); ok {
			return nil, err
		}
		return nil, shared.WrapAuthError(shared.CodeAuthMisconfigured, "failed to load auth configuration", err)
	}
	if cfg == nil {
		return nil, shared.NewAuthError(shared.CodeAuthMisconfigured, "auth configuration is missing")
	}

	next := &authState{cfg: cfg}
	if s.state.CompareAndSwap(nil, next) {
		s.logger.Info("auth configuration loaded",
			zap.String("provider", cfg.Provider),
			zap.Bool("dev_bypass", cfg.DevBypass))
		return next, nil
	}
	return s.current()
}

// adapterFor returns the adapter cached in st, building and publishing one when the
// cached adapter is missing or belongs to another provider.
func (s *AuthService) adapterFor(st *authState) (idp.Adapter, error) {
	for {
		if st.adapter != nil && st.adapter.Name() == st.cfg.Provider {
			return st.adapter, nil
		}

		built, err := s.newAdapter(st.cfg, s.logger)
		if err != nil {
			if _, ok := shared.AsAuthError(err); ok {
				return nil, err
			}
			return nil, shared.WrapAuthError(shared.CodeAuthMisconfigured, "failed to build provider adapter", err)
		}

		next := &authState{cfg: st.cfg, adapter: built}
		if s.state.CompareAndSwap(st, next) {
			if st.adapter != nil {
				st.adapter.Close()
			}
			s.logger.Info("provider adapter ready", zap.String("provider", built.Name()))
			return built, nil
		}

		// lost the race; use whatever was published instead
		built.Close()
		latest, err := s.current()
		if err != nil {
			return nil, err
		}
		st = latest
	}
}

// Reconfigure validates and swaps in a new runtime config. The cached adapter
// is kept when the provider is unchanged and closed otherwise.
func (s *AuthService) Reconfigure(cfg *config.AuthRuntimeConfig) error {
	if err := config.ValidateAuthRuntimeConfig(cfg); err != nil {
		return err
	}

	for {
		prev := s.state.Load()
		next := &authState{cfg: cfg}
		if prev != nil && prev.adapter != nil && prev.adapter.Name() == cfg.Provider {
			next.adapter = prev.adapter
		}
		if !s.state.CompareAndSwap(prev, next) {
			continue
		}

		if prev != nil && prev.adapter != nil && next.adapter == nil {
			prev.adapter.Close()
		}
		s.logger.Info("auth configuration replaced",
			zap.String("provider", cfg.Provider),
			zap.Bool("adapter_reused", next.adapter != nil))
		return nil
	}
}

// Reset drops the cached config and adapter; the next request reloads both
func (s *AuthService) Reset() {
	if prev := s.state.Swap(nil); prev != nil && prev.adapter != nil {
		prev.adapter.Close()
	}
}

// Close releases the cached adapter
func (s *AuthService) Close() {
	s.Reset()
	s.logger.Info("auth service closed")
}
