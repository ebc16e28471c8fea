package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/middleware"
	"github.com/upb/jobtracker/utils"
)

// MeResponse is the response body for GET /api/v1/me
type MeResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	AuthSubject string    `json:"auth_subject"`
	Provider    string    `json:"provider"`
	ClientID    string    `json:"client_id,omitempty"`
	AppID       string    `json:"app_id,omitempty"`
	AppEnv      string    `json:"app_env,omitempty"`
	Roles       []string  `json:"roles"`
	Scopes      []string  `json:"scopes"`
}

// MeHandler serves the caller's own identity
type MeHandler struct {
	logger *zap.Logger
}

// NewMeHandler creates a new MeHandler
func NewMeHandler(logger *zap.Logger) *MeHandler {
	return &MeHandler{logger: logger}
}

// HandleMe handles GET /api/v1/me. It must run behind AuthMiddleware.RequireAuth.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := middleware.GetProfileFromContext(ctx)
	authCtx := middleware.GetAuthContextFromContext(ctx)
	if profile == nil || authCtx == nil {
		HandleServiceError(w, shared.NewAuthError(shared.CodeMissingToken, "authentication required"), h.logger)
		return
	}

	_ = utils.WriteOK(w, MeResponse{
		ID:          profile.ID,
		Email:       profile.Email,
		AuthSubject: profile.AuthSubject,
		Provider:    authCtx.Provider,
		ClientID:    authCtx.ClientID,
		AppID:       authCtx.AppID,
		AppEnv:      authCtx.AppEnv,
		Roles:       nonNil(authCtx.Roles),
		Scopes:      nonNil(authCtx.Scopes),
	})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
