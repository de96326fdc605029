package store

import (
	"context"
	"fmt"
	"sync"
)

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// MutationHook observes a successful local write. For deletes rec is the row as it was.
type MutationHook func(ctx context.Context, model string, kind MutationKind, rec Record)

// HookedStore decorates a Database so every successful write notifies the registered hooks.
// Writes made inside WithTx are buffered and only announced after the transaction commits.
type HookedStore struct {
	inner Database

	mu    sync.RWMutex
	hooks []MutationHook
}

func NewHookedStore(inner Database, hooks ...MutationHook) *HookedStore {
	return &HookedStore{inner: inner, hooks: hooks}
}

// OnMutation registers hook. Hooks run in registration order.
func (s *HookedStore) OnMutation(hook MutationHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Unwrap returns the decorated store. Writes through it are not announced.
func (s *HookedStore) Unwrap() Database {
	return s.inner
}

func (s *HookedStore) FindOne(ctx context.Context, model string, where ...Where) (Record, error) {
	return s.inner.FindOne(ctx, model, where...)
}

func (s *HookedStore) FindMany(ctx context.Context, model string, where ...Where) ([]Record, error) {
	return s.inner.FindMany(ctx, model, where...)
}

func (s *HookedStore) Create(ctx context.Context, model string, rec Record) (Record, error) {
	return hookedView{ds: s.inner, emit: s.fire}.Create(ctx, model, rec)
}

func (s *HookedStore) Update(ctx context.Context, model string, where []Where, patch Record) ([]Record, error) {
	return hookedView{ds: s.inner, emit: s.fire}.Update(ctx, model, where, patch)
}

func (s *HookedStore) Delete(ctx context.Context, model string, where ...Where) error {
	return hookedView{ds: s.inner, emit: s.fire}.Delete(ctx, model, where...)
}

func (s *HookedStore) WithTx(ctx context.Context, fn func(tx DataStore) error) error {
	var pending []mutation
	err := s.inner.WithTx(ctx, func(tx DataStore) error {
		pending = pending[:0]
		view := hookedView{ds: tx, emit: func(_ context.Context, m mutation) {
			pending = append(pending, m)
		}}
		return fn(view)
	})
	if err != nil {
		return err
	}
	for _, m := range pending {
		s.fire(ctx, m)
	}
	return nil
}

type mutation struct {
	model string
	kind  MutationKind
	rec   Record
}

func (s *HookedStore) fire(ctx context.Context, m mutation) {
	s.mu.RLock()
	hooks := append([]MutationHook(nil), s.hooks...)
	s.mu.RUnlock()
	for _, h := range hooks {
		h(ctx, m.model, m.kind, m.rec.Clone())
	}
}

// hookedView performs writes against ds and reports each one to emit.
type hookedView struct {
	ds   DataStore
	emit func(context.Context, mutation)
}

func (v hookedView) FindOne(ctx context.Context, model string, where ...Where) (Record, error) {
	return v.ds.FindOne(ctx, model, where...)
}

func (v hookedView) FindMany(ctx context.Context, model string, where ...Where) ([]Record, error) {
	return v.ds.FindMany(ctx, model, where...)
}

func (v hookedView) Create(ctx context.Context, model string, rec Record) (Record, error) {
	created, err := v.ds.Create(ctx, model, rec)
	if err != nil {
		return nil, err
	}
	v.emit(ctx, mutation{model: model, kind: MutationCreate, rec: created})
	return created, nil
}

func (v hookedView) Update(ctx context.Context, model string, where []Where, patch Record) ([]Record, error) {
	updated, err := v.ds.Update(ctx, model, where, patch)
	if err != nil {
		return nil, err
	}
	for _, rec := range updated {
		v.emit(ctx, mutation{model: model, kind: MutationUpdate, rec: rec})
	}
	return updated, nil
}

func (v hookedView) Delete(ctx context.Context, model string, where ...Where) error {
	if len(where) == 0 {
		return ErrUnscopedDelete
	}
	doomed, err := v.ds.FindMany(ctx, model, where...)
	if err != nil {
		return fmt.Errorf("loading rows to delete: %w", err)
	}
	if err := v.ds.Delete(ctx, model, where...); err != nil {
		return err
	}
	for _, rec := range doomed {
		v.emit(ctx, mutation{model: model, kind: MutationDelete, rec: rec})
	}
	return nil
}

// WithTx on a view joins the transaction the view already belongs to.
func (v hookedView) WithTx(ctx context.Context, fn func(tx DataStore) error) error {
	if runner, ok := v.ds.(TxRunner); ok {
		return runner.WithTx(ctx, func(tx DataStore) error {
			return fn(hookedView{ds: tx, emit: v.emit})
		})
	}
	return fn(v)
}
