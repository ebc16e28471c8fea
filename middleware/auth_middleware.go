package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/utils"
)

// Authenticator verifies the Authorization header of a request
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, authorizationHeader string) (*models.AuthContext, error)
}

// IdentityResolver maps a verified auth context to an internal profile
type IdentityResolver interface {
	ResolveProfileIdentity(ctx context.Context, authCtx *models.AuthContext) (*models.ProfileIdentity, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator Authenticator
	resolver      IdentityResolver
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, resolver IdentityResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		resolver:      resolver,
		logger:        logger,
	}
}

// RequireAuth authenticates the request and resolves the caller's profile.
// Only the Authorization header is consulted.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		authCtx, err := m.authenticator.AuthenticateRequest(ctx, r.Header.Get("Authorization"))
		if err != nil {
			m.reject(w, requestID, "authentication failed", err)
			return
		}

		profile, err := m.resolver.ResolveProfileIdentity(ctx, authCtx)
		if err != nil {
			m.reject(w, requestID, "identity resolution failed", err)
			return
		}

		ctx = WithAuthContext(ctx, authCtx)
		ctx = WithProfile(ctx, profile)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", authCtx.Subject),
			zap.String("user_id", profile.ID.String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope is a middleware that requires a specific scope.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return m.requireAuthContext(func(authCtx *models.AuthContext) error {
		if authCtx.HasScope(scope) {
			return nil
		}
		return shared.NewAuthError(shared.CodeForbiddenScope, "token is missing required scopes: "+scope)
	})
}

// RequireRole is a middleware that requires a specific role.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return m.requireAuthContext(func(authCtx *models.AuthContext) error {
		if authCtx.HasRole(role) {
			return nil
		}
		return shared.NewAuthError(shared.CodeForbiddenScope, "insufficient permissions")
	})
}

func (m *AuthMiddleware) requireAuthContext(check func(*models.AuthContext) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			authCtx := GetAuthContextFromContext(ctx)
			if authCtx == nil {
				m.logger.Error("auth context not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteAuthError(w, shared.NewAuthError(shared.CodeMissingToken, "authentication required"))
				return
			}

			if err := check(authCtx); err != nil {
				m.reject(w, requestID, "authorization check failed", err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// reject writes err as a response. Structured errors keep their status and code;
// anything else is logged and flattened to a generic 500.
func (m *AuthMiddleware) reject(w http.ResponseWriter, requestID, msg string, err error) {
	fields := []zap.Field{zap.String("request_id", requestID), zap.Error(err)}
	if code := shared.CodeOf(err); code != "" {
		fields = append(fields, zap.String("code", string(code)))
	}
	if shared.StatusOf(err) >= http.StatusInternalServerError {
		m.logger.Error(msg, fields...)
	} else {
		m.logger.Warn(msg, fields...)
	}

	if writeErr := utils.WriteAuthError(w, err); writeErr != nil {
		m.logger.Error("failed to write error response",
			zap.String("request_id", requestID),
			zap.Error(writeErr))
	}
}
