package repositories

import (
	"context"
	"errors"

	"github.com/upb/jobtracker/models"
)

var (
	// ErrProfileNotFound is returned when no profile matches the auth subject
	ErrProfileNotFound = errors.New("profile not found")

	// ErrDuplicateAuthSubject is returned when a profile already exists for the auth subject
	ErrDuplicateAuthSubject = errors.New("profile already exists for auth subject")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ProfileRepository handles profile identity lookups and first-contact inserts
type ProfileRepository interface {
	// FindByAuthSubject returns the identity bound to an external subject,
	// or ErrProfileNotFound
	FindByAuthSubject(ctx context.Context, authSubject string) (*models.ProfileIdentity, error)

	// Create inserts a new profile and returns the stored identity.
	// Returns ErrDuplicateAuthSubject when the subject is already bound.
	Create(ctx context.Context, profile *models.NewProfile) (*models.ProfileIdentity, error)
}

// AuditRepository handles audit event writes
type AuditRepository interface {
	// Insert inserts a new audit event
	Insert(ctx context.Context, event *models.AuditEvent) error
}

// Repositories holds all repository instances
type Repositories struct {
	Profiles    ProfileRepository
	AuditEvents AuditRepository
}
