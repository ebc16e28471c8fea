package memory

import (
	"context"
	"fmt"

	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

// ProfileRepository implements repositories.ProfileRepository on a Store
type ProfileRepository struct {
	store *Store
}

// FindByAuthSubject retrieves a profile identity by external auth subject.
// A transaction sees its own pending insert; everyone else sees committed rows only.
func (r *ProfileRepository) FindByAuthSubject(ctx context.Context, authSubject string) (*models.ProfileIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if p, ok := r.store.bySubject[authSubject]; ok {
		return p.Identity(), nil
	}
	if tx := transactionFrom(ctx); tx != nil {
		if p, ok := tx.pendingProfile(authSubject); ok {
			return p.Identity(), nil
		}
	}
	return nil, repositories.ErrProfileNotFound
}

// Create inserts a profile unless the auth subject is already bound.
// Inside a transaction the row stays pending until Commit; a concurrent insert of the
// same subject waits for that transaction to finish.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.NewProfile) (*models.ProfileIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := transactionFrom(ctx)
	for {
		owner, pending := r.store.reserved[profile.AuthSubject]
		if !pending || owner == tx {
			break
		}
		r.store.released.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, exists := r.store.bySubject[profile.AuthSubject]; exists {
		return nil, duplicate(profile.AuthSubject)
	}

	row := *profile
	if tx == nil {
		r.store.bySubject[row.AuthSubject] = &row
		return row.Identity(), nil
	}

	if !tx.stageProfile(&row) {
		return nil, duplicate(profile.AuthSubject)
	}
	r.store.reserved[row.AuthSubject] = tx
	return row.Identity(), nil
}

func duplicate(authSubject string) error {
	return fmt.Errorf("%w: %s", repositories.ErrDuplicateAuthSubject, authSubject)
}
