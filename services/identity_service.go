package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/idp"
	"github.com/upb/jobtracker/internal/observability"
	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

const (
	// FallbackEmailDomain is used for profiles whose token carried no email
	FallbackEmailDomain = "users.jobtracker.local"
	maxEmailSlugLength  = 64
)

var slugInvalidRun = regexp.MustCompile(`[^a-z0-9._-]+`)

// IdentityService maps verified auth contexts to internal profile identities,
// provisioning a profile on first contact.
type IdentityService struct {
	profiles  repositories.ProfileRepository
	audit     repositories.AuditRepository
	txManager repositories.TransactionManager
	logger    *zap.Logger
	metrics   *observability.AuthMetrics
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(repos *repositories.Repositories, txManager repositories.TransactionManager, logger *zap.Logger, metrics *observability.AuthMetrics) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		profiles:  repos.Profiles,
		audit:     repos.AuditEvents,
		txManager: txManager,
		logger:    logger,
		metrics:   metrics,
	}
}

// ResolveProfileIdentity returns the profile bound to the context's subject, creating it if needed.
// Concurrent first contacts for one subject are settled by the unique auth_subject constraint:
// a failed insert is followed by exactly one re-lookup.
func (s *IdentityService) ResolveProfileIdentity(ctx context.Context, authCtx *models.AuthContext) (*models.ProfileIdentity, error) {
	subject := strings.TrimSpace(authCtx.SubjectOrUserID())
	if subject == "" {
		return nil, shared.NewAuthError(shared.CodeInvalidToken, "auth context has no subject")
	}
	logger := observability.RequestLogger(ctx, s.logger).With(zap.String("auth_subject", subject))

	identity, err := s.profiles.FindByAuthSubject(ctx, subject)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, repositories.ErrProfileNotFound) {
		logger.Error("profile lookup failed", zap.Error(err))
		return nil, resolutionError("failed to look up profile", err)
	}

	identity, err = s.provision(ctx, authCtx, subject)
	if err == nil {
		s.metrics.IdentityProvisioned()
		logger.Info("profile provisioned", zap.String("profile_id", identity.ID.String()))
		return identity, nil
	}

	existing, lookupErr := s.profiles.FindByAuthSubject(ctx, subject)
	if lookupErr == nil {
		logger.Debug("profile created by a concurrent request", zap.NamedError("insert_error", err))
		return existing, nil
	}

	logger.Error("profile provisioning failed",
		zap.Error(err),
		zap.NamedError("lookup_error", lookupErr))
	return nil, resolutionError("failed to provision profile", err)
}

func (s *IdentityService) provision(ctx context.Context, authCtx *models.AuthContext, subject string) (*models.ProfileIdentity, error) {
	email, emailSource := strings.TrimSpace(authCtx.Email), "claim"
	if email == "" {
		email, emailSource = FallbackEmail(subject), "fallback"
	}
	firstName, lastName := ProfileNames(authCtx.RawClaims)
	profile := models.NewProfileFor(subject, email, firstName, lastName)

	return WithTransactionResult(ctx, s.txManager, func(txCtx context.Context) (*models.ProfileIdentity, error) {
		identity, err := s.profiles.Create(txCtx, profile)
		if err != nil {
			return nil, err
		}

		event := models.NewAuditEvent(identity.ID, models.AuditActionIdentityProvisioned, authCtx.Provider, subject).
			WithDetails(map[string]interface{}{
				"email_source": emailSource,
				"issuer":       authCtx.Issuer,
			})
		event.RequestID = chimiddleware.GetReqID(ctx)
		if err := s.audit.Insert(txCtx, event); err != nil {
			return nil, err
		}
		return identity, nil
	})
}

// resolutionError passes structured auth errors through and wraps everything else
func resolutionError(message string, err error) error {
	if _, ok := shared.AsAuthError(err); ok {
		return err
	}
	return shared.WrapAuthError(shared.CodeIdentityResolutionFailed, message, err)
}

// FallbackEmail derives a deterministic placeholder address from a subject
func FallbackEmail(subject string) string {
	slug := slugInvalidRun.ReplaceAllString(strings.ToLower(subject), "-")
	slug = strings.Trim(slug, "-.")
	if len(slug) > maxEmailSlugLength {
		slug = strings.Trim(slug[:maxEmailSlugLength], "-.")
	}
	if slug == "" {
		slug = "user"
	}
	return slug + "@" + FallbackEmailDomain
}

// ProfileNames reads given_name/family_name, falling back to splitting name
// on its first whitespace.
func ProfileNames(claims map[string]any) (firstName, lastName string) {
	firstName = idp.StringClaim(claims, "given_name")
	lastName = idp.StringClaim(claims, "family_name")
	if firstName != "" || lastName != "" {
		return firstName, lastName
	}

	full := idp.StringClaim(claims, "name")
	if i := strings.IndexFunc(full, unicode.IsSpace); i >= 0 {
		return full[:i], strings.TrimSpace(full[i:])
	}
	return full, ""
}
