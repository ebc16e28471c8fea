package memory

import (
	"context"
	"errors"

	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

type transactionContextKey struct{}

// ErrTxDone is returned when committing or rolling back a finished transaction
var ErrTxDone = errors.New("transaction has already been committed or rolled back")

// TransactionManager implements repositories.TransactionManager with staged writes
type TransactionManager struct {
	store *Store
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	tx := &Transaction{store: tm.store}
	tx.ctx = context.WithValue(ctx, transactionContextKey{}, tx)
	return tx, nil
}

// InTransaction executes fn, discarding its writes if it returns an error
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Transaction buffers writes made through its context until Commit.
// Its fields are guarded by the store mutex.
type Transaction struct {
	store *Store
	ctx   context.Context

	profiles []*models.NewProfile
	events   []*models.AuditEvent
	done     bool
}

// Commit publishes the staged writes
func (t *Transaction) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true

	for _, p := range t.profiles {
		t.store.bySubject[p.AuthSubject] = p
	}
	t.store.events = append(t.store.events, t.events...)
	t.finish()
	return nil
}

// Rollback discards the staged writes
func (t *Transaction) Rollback() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.finish()
	return nil
}

// Context returns the transaction context
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// finish releases reservations and wakes waiting writers. Caller holds the store mutex.
func (t *Transaction) finish() {
	for _, p := range t.profiles {
		if t.store.reserved[p.AuthSubject] == t {
			delete(t.store.reserved, p.AuthSubject)
		}
	}
	t.profiles = nil
	t.events = nil
	t.store.released.Broadcast()
}

// stageProfile buffers a row; false when this transaction already staged the subject
func (t *Transaction) stageProfile(p *models.NewProfile) bool {
	if _, ok := t.pendingProfile(p.AuthSubject); ok {
		return false
	}
	t.profiles = append(t.profiles, p)
	return true
}

func (t *Transaction) pendingProfile(authSubject string) (*models.NewProfile, bool) {
	for _, p := range t.profiles {
		if p.AuthSubject == authSubject {
			return p, true
		}
	}
	return nil, false
}

func (t *Transaction) stageEvent(e *models.AuditEvent) {
	t.events = append(t.events, e)
}

// transactionFrom returns the open transaction carried by ctx, if any. Caller holds the store mutex.
func transactionFrom(ctx context.Context) *Transaction {
	tx, ok := ctx.Value(transactionContextKey{}).(*Transaction)
	if !ok || tx.done {
		return nil
	}
	return tx
}
