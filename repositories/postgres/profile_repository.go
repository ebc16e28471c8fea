package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations
const uniqueViolation = "23505"

// ProfileRepository implements the repositories.ProfileRepository interface
type ProfileRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB, logger *zap.Logger) repositories.ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// FindByAuthSubject retrieves a profile identity by external auth subject
func (r *ProfileRepository) FindByAuthSubject(ctx context.Context, authSubject string) (*models.ProfileIdentity, error) {
	query := `
		SELECT id, email, auth_subject
		FROM profiles
		WHERE auth_subject = $1
	`

	executor := getExecutor(ctx, r.db)
	identity := &models.ProfileIdentity{}

	err := executor.QueryRowContext(ctx, query, authSubject).Scan(
		&identity.ID,
		&identity.Email,
		&identity.AuthSubject,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return identity, nil
}

// Create inserts a profile on first contact and returns the stored identity
func (r *ProfileRepository) Create(ctx context.Context, profile *models.NewProfile) (*models.ProfileIdentity, error) {
	query := `
		INSERT INTO profiles (id, email, auth_subject, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, email, auth_subject
	`

	executor := getExecutor(ctx, r.db)
	identity := &models.ProfileIdentity{}

	err := executor.QueryRowContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.AuthSubject,
		nullString(profile.FirstName),
		nullString(profile.LastName),
		profile.CreatedAt,
	).Scan(
		&identity.ID,
		&identity.Email,
		&identity.AuthSubject,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", repositories.ErrDuplicateAuthSubject, profile.AuthSubject)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	r.logger.Debug("profile created", zap.String("id", identity.ID.String()))
	return identity, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
