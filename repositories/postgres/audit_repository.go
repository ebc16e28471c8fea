package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit event, joining the caller's transaction when one is in ctx
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO auth_audit_events (
			id, profile_id, action, provider, auth_subject, details, request_id, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	var details interface{}
	if len(event.Details) > 0 {
		details = string(event.Details)
	}

	executor := getExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		event.ID,
		event.ProfileID,
		event.Action,
		event.Provider,
		event.AuthSubject,
		details,
		nullString(event.RequestID),
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	r.logger.Debug("audit event inserted", zap.String("id", event.ID.String()), zap.String("action", string(event.Action)))
	return nil
}
