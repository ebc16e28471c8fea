package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/upb/jobtracker/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// AuthContextKey is the context key for the verified auth context
	AuthContextKey contextKey = "auth_context"

	// ProfileKey is the context key for the resolved profile identity
	ProfileKey contextKey = "profile"

	// UserIDKey is the context key for the internal user ID
	UserIDKey contextKey = "user_id"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimiddleware.GetReqID(ctx)
}

// GetAuthContextFromContext retrieves the auth context from context
func GetAuthContextFromContext(ctx context.Context) *models.AuthContext {
	if val := ctx.Value(AuthContextKey); val != nil {
		if authCtx, ok := val.(*models.AuthContext); ok {
			return authCtx
		}
	}
	return nil
}

// WithAuthContext adds the auth context to the context
func WithAuthContext(ctx context.Context, authCtx *models.AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetProfileFromContext retrieves the profile identity from context
func GetProfileFromContext(ctx context.Context) *models.ProfileIdentity {
	if val := ctx.Value(ProfileKey); val != nil {
		if profile, ok := val.(*models.ProfileIdentity); ok {
			return profile
		}
	}
	return nil
}

// WithProfile adds the profile identity and its internal ID to the context
func WithProfile(ctx context.Context, profile *models.ProfileIdentity) context.Context {
	ctx = context.WithValue(ctx, ProfileKey, profile)
	return context.WithValue(ctx, UserIDKey, profile.ID)
}

// GetUserIDFromContext retrieves the internal user ID from context
func GetUserIDFromContext(ctx context.Context) uuid.UUID {
	if val := ctx.Value(UserIDKey); val != nil {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}
