package blocks

import (
	"context"
	"errors"
	"sync"
)

// Journal collects side effects that live outside the block store, such as
// image uploads, while a save runs inside Store.RunInTx. Once the transaction
// settled the caller either commits the journal, running deferred work like
// deleting replaced images, or rolls it back, undoing uploads made by the
// failed save.
type Journal struct {
	mu       sync.Mutex
	commit   []func(context.Context) error
	rollback []func(context.Context) error
}

func NewJournal() *Journal {
	return &Journal{}
}

// OnCommit defers fn until Commit.
func (j *Journal) OnCommit(fn func(context.Context) error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.commit = append(j.commit, fn)
}

// OnRollback registers fn to undo work if the save is abandoned.
func (j *Journal) OnRollback(fn func(context.Context) error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rollback = append(j.rollback, fn)
}

// Commit runs deferred work in registration order and drops the undo list.
// It keeps going after a failure and returns every error joined.
func (j *Journal) Commit(ctx context.Context) error {
	fns := j.drain(true)
	var errs []error
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rollback undoes recorded work in reverse order and drops deferred work.
func (j *Journal) Rollback(ctx context.Context) error {
	fns := j.drain(false)
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *Journal) drain(commit bool) []func(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	fns := j.rollback
	if commit {
		fns = j.commit
	}
	j.commit, j.rollback = nil, nil
	return fns
}
