package memory

import (
	"context"

	"github.com/upb/jobtracker/models"
)

// AuditRepository implements repositories.AuditRepository on a Store
type AuditRepository struct {
	store *Store
}

// Insert appends an audit event, or stages it when ctx carries a transaction
func (r *AuditRepository) Insert(ctx context.Context, event *models.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	copied := *event

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if tx := transactionFrom(ctx); tx != nil {
		tx.stageEvent(&copied)
		return nil
	}
	r.store.events = append(r.store.events, &copied)
	return nil
}
