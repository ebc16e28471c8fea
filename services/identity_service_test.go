package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/jobtracker/internal/shared"
	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
	"github.com/upb/jobtracker/repositories/memory"
)

// MockProfileRepository is a mock implementation of repositories.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByAuthSubject(ctx context.Context, authSubject string) (*models.ProfileIdentity, error) {
	args := m.Called(ctx, authSubject)
	if identity := args.Get(0); identity != nil {
		return identity.(*models.ProfileIdentity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *models.NewProfile) (*models.ProfileIdentity, error) {
	args := m.Called(ctx, profile)
	if identity := args.Get(0); identity != nil {
		return identity.(*models.ProfileIdentity), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAuditRepository is a mock implementation of repositories.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newMemoryIdentityService(t *testing.T) (*IdentityService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewIdentityService(store.Repositories(), store.TransactionManager(), zap.NewNop(), nil), store
}

func newMockIdentityService() (*IdentityService, *MockProfileRepository, *MockAuditRepository) {
	profiles := new(MockProfileRepository)
	audit := new(MockAuditRepository)
	repos := &repositories.Repositories{Profiles: profiles, AuditEvents: audit}
	return NewIdentityService(repos, memory.NewStore().TransactionManager(), zap.NewNop(), nil), profiles, audit
}

func verifiedContext(subject string) *models.AuthContext {
	return &models.AuthContext{
		Provider: "auth0",
		Subject:  subject,
		UserID:   subject,
		Email:    "ada@example.com",
		Issuer:   "https://tenant.auth0.com/",
		RawClaims: map[string]any{
			"sub":         subject,
			"given_name":  "Ada",
			"family_name": "Lovelace",
		},
	}
}

func TestResolveProfileIdentity_FirstContact(t *testing.T) {
	svc, store := newMemoryIdentityService(t)
	ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "req-1")

	identity, err := svc.ResolveProfileIdentity(ctx, verifiedContext("auth0|ada"))

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, identity.ID)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "auth0|ada", identity.AuthSubject)

	row, ok := store.Profile("auth0|ada")
	require.True(t, ok)
	assert.Equal(t, "Ada", row.FirstName)
	assert.Equal(t, "Lovelace", row.LastName)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditActionIdentityProvisioned, events[0].Action)
	assert.Equal(t, identity.ID, events[0].ProfileID)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.JSONEq(t, `{"email_source":"claim","issuer":"https://tenant.auth0.com/"}`, string(events[0].Details))
}

func TestResolveProfileIdentity_Idempotent(t *testing.T) {
	svc, store := newMemoryIdentityService(t)

	first, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|ada"))
	require.NoError(t, err)

	changed := verifiedContext("auth0|ada")
	changed.Email = "ada@new-domain.example"
	second, err := svc.ResolveProfileIdentity(context.Background(), changed)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ada@example.com", second.Email)
	assert.Equal(t, 1, store.ProfileCount())
	assert.Len(t, store.Events(), 1)
}

func TestResolveProfileIdentity_ConcurrentFirstContact(t *testing.T) {
	svc, store := newMemoryIdentityService(t)

	const workers = 32
	ids := make([]uuid.UUID, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			identity, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|race"))
			if err != nil {
				return err
			}
			ids[i] = identity.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, store.ProfileCount())
	assert.Len(t, store.Events(), 1)
}

func TestResolveProfileIdentity_SubjectSelection(t *testing.T) {
	svc, store := newMemoryIdentityService(t)

	t.Run("falls back to user id", func(t *testing.T) {
		authCtx := verifiedContext("")
		authCtx.UserID = "cognito-user-1"

		identity, err := svc.ResolveProfileIdentity(context.Background(), authCtx)

		require.NoError(t, err)
		assert.Equal(t, "cognito-user-1", identity.AuthSubject)
	})

	t.Run("no subject", func(t *testing.T) {
		authCtx := verifiedContext("")
		authCtx.UserID = "  "

		_, err := svc.ResolveProfileIdentity(context.Background(), authCtx)

		assert.Equal(t, shared.CodeInvalidToken, shared.CodeOf(err))
	})

	t.Run("nil context", func(t *testing.T) {
		_, err := svc.ResolveProfileIdentity(context.Background(), nil)

		assert.Equal(t, shared.CodeInvalidToken, shared.CodeOf(err))
	})

	assert.Equal(t, 1, store.ProfileCount())
}

func TestResolveProfileIdentity_FallbackEmail(t *testing.T) {
	svc, store := newMemoryIdentityService(t)
	authCtx := verifiedContext("google-oauth2|10429")
	authCtx.Email = ""
	authCtx.RawClaims = map[string]any{"name": "Grace Brewster Hopper"}

	identity, err := svc.ResolveProfileIdentity(context.Background(), authCtx)

	require.NoError(t, err)
	assert.Equal(t, "google-oauth2-10429@users.jobtracker.local", identity.Email)

	row, _ := store.Profile("google-oauth2|10429")
	assert.Equal(t, "Grace", row.FirstName)
	assert.Equal(t, "Brewster Hopper", row.LastName)
	assert.Contains(t, string(store.Events()[0].Details), `"email_source":"fallback"`)
}

func TestResolveProfileIdentity_DevContext(t *testing.T) {
	svc, _ := newMemoryIdentityService(t)

	identity, err := svc.ResolveProfileIdentity(context.Background(), CreateDevContext(devConfig()))

	require.NoError(t, err)
	assert.Equal(t, "dev|jobtracker-local-user", identity.AuthSubject)
	assert.Equal(t, "dev@jobtracker.local", identity.Email)
}

func TestResolveProfileIdentity_InsertRace(t *testing.T) {
	winner := &models.ProfileIdentity{ID: uuid.New(), Email: "ada@example.com", AuthSubject: "auth0|ada"}

	t.Run("re-lookup finds the concurrent insert", func(t *testing.T) {
		svc, profiles, audit := newMockIdentityService()
		profiles.On("FindByAuthSubject", mock.Anything, "auth0|ada").Return(nil, repositories.ErrProfileNotFound).Once()
		profiles.On("Create", mock.Anything, mock.AnythingOfType("*models.NewProfile")).Return(nil, repositories.ErrDuplicateAuthSubject).Once()
		profiles.On("FindByAuthSubject", mock.Anything, "auth0|ada").Return(winner, nil).Once()

		identity, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|ada"))

		require.NoError(t, err)
		assert.Equal(t, winner, identity)
		profiles.AssertExpectations(t)
		audit.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("re-lookup misses", func(t *testing.T) {
		svc, profiles, _ := newMockIdentityService()
		insertErr := errors.New("connection reset by peer")
		profiles.On("FindByAuthSubject", mock.Anything, "auth0|ada").Return(nil, repositories.ErrProfileNotFound).Twice()
		profiles.On("Create", mock.Anything, mock.Anything).Return(nil, insertErr).Once()

		identity, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|ada"))

		assert.Nil(t, identity)
		assert.Equal(t, shared.CodeIdentityResolutionFailed, shared.CodeOf(err))
		assert.ErrorIs(t, err, insertErr)
		profiles.AssertNumberOfCalls(t, "FindByAuthSubject", 2)
	})

	t.Run("audit failure rolls back the profile", func(t *testing.T) {
		store := memory.NewStore()
		repos := store.Repositories()
		audit := new(MockAuditRepository)
		audit.On("Insert", mock.Anything, mock.Anything).Return(errors.New("audit table missing"))
		svc := NewIdentityService(&repositories.Repositories{Profiles: repos.Profiles, AuditEvents: audit}, store.TransactionManager(), zap.NewNop(), nil)

		_, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|ada"))

		assert.Equal(t, shared.CodeIdentityResolutionFailed, shared.CodeOf(err))
		assert.Equal(t, 0, store.ProfileCount())
	})
}

func TestResolveProfileIdentity_LookupErrors(t *testing.T) {
	t.Run("storage failure", func(t *testing.T) {
		svc, profiles, _ := newMockIdentityService()
		profiles.On("FindByAuthSubject", mock.Anything, "auth0|ada").Return(nil, errors.New("too many connections"))

		_, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|ada"))

		assert.Equal(t, shared.CodeIdentityResolutionFailed, shared.CodeOf(err))
		profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("structured error passes through", func(t *testing.T) {
		svc, profiles, _ := newMockIdentityService()
		authErr := shared.NewAuthError(shared.CodeAuthMisconfigured, "storage is not configured")
		profiles.On("FindByAuthSubject", mock.Anything, "auth0|ada").Return(nil, authErr)

		_, err := svc.ResolveProfileIdentity(context.Background(), verifiedContext("auth0|ada"))

		assert.Same(t, authErr, err)
	})

	t.Run("cancellation propagates", func(t *testing.T) {
		svc, _ := newMemoryIdentityService(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.ResolveProfileIdentity(ctx, verifiedContext("auth0|ada"))

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFallbackEmail(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"auth0|5f1c", "auth0-5f1c@users.jobtracker.local"},
		{"Google-OAuth2|ABC", "google-oauth2-abc@users.jobtracker.local"},
		{"a  b||c", "a-b-c@users.jobtracker.local"},
		{"--user.name_1--", "user.name_1@users.jobtracker.local"},
		{"|||", "user@users.jobtracker.local"},
		{"", "user@users.jobtracker.local"},
		{strings.Repeat("x", 100), strings.Repeat("x", 64) + "@users.jobtracker.local"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackEmail(tt.subject))
		})
	}
}

func TestProfileNames(t *testing.T) {
	tests := []struct {
		name      string
		claims    map[string]any
		wantFirst string
		wantLast  string
	}{
		{"given and family", map[string]any{"given_name": "Ada", "family_name": "Lovelace", "name": "ignored"}, "Ada", "Lovelace"},
		{"given only", map[string]any{"given_name": "Ada"}, "Ada", ""},
		{"combined name", map[string]any{"name": "Ada King Lovelace"}, "Ada", "King Lovelace"},
		{"single name", map[string]any{"name": "Ada"}, "Ada", ""},
		{"non-string claims", map[string]any{"given_name": 1, "name": true}, "", ""},
		{"no claims", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := ProfileNames(tt.claims)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}
