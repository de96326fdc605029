package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"basegraph.app/crmsync/common/id"
)

// MemoryStore is an in-process Database for development and tests.
// Transactions are serialized and roll back by restoring a snapshot.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	rows map[string][]Record
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string][]Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// uniqueKeys lists the column sets that must be unique per model.
func uniqueKeys(model string) [][]string {
	keys := [][]string{{"id"}, {AttioIDField}}
	switch model {
	case ModelMember:
		keys = append(keys, []string{"organization_id", "user_id"})
	case ModelOrganization:
		keys = append(keys, []string{"slug"})
	}
	return keys
}

func (s *MemoryStore) FindOne(ctx context.Context, model string, where ...Where) (Record, error) {
	recs, err := s.FindMany(ctx, model, where...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (s *MemoryStore) FindMany(_ context.Context, model string, where ...Where) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.rows[model] {
		ok, err := matches(rec, where)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", model, err)
		}
		if ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, model string, rec Record) (Record, error) {
	row := rec.Clone()
	if row == nil {
		row = Record{}
	}
	if row.ID() == 0 {
		row["id"] = id.New()
	}
	now := s.now()
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = now
	}
	row["updated_at"] = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(model, row, -1); err != nil {
		return nil, err
	}
	s.rows[model] = append(s.rows[model], row)
	return row.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, model string, where []Where, patch Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[model]
	var updated []Record
	for i, rec := range rows {
		ok, err := matches(rec, where)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", model, err)
		}
		if !ok {
			continue
		}
		next := rec.Clone()
		for k, v := range patch {
			if k == "id" {
				continue
			}
			next[k] = v
		}
		next["updated_at"] = s.now()
		if err := s.checkUnique(model, next, i); err != nil {
			return nil, err
		}
		rows[i] = next
		updated = append(updated, next.Clone())
	}
	return updated, nil
}

func (s *MemoryStore) Delete(_ context.Context, model string, where ...Where) error {
	if len(where) == 0 {
		return ErrUnscopedDelete
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[model][:0:0]
	for _, rec := range s.rows[model] {
		ok, err := matches(rec, where)
		if err != nil {
			return fmt.Errorf("delete %s: %w", model, err)
		}
		if !ok {
			kept = append(kept, rec)
		}
	}
	s.rows[model] = kept
	return nil
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx DataStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(memoryTx{s}); err != nil {
		s.mu.Lock()
		s.rows = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Count returns the number of rows of model. Test helper.
func (s *MemoryStore) Count(model string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[model])
}

// Models returns the model names holding at least one row, sorted.
func (s *MemoryStore) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for m, rows := range s.rows {
		if len(rows) > 0 {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) snapshot() map[string][]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]Record, len(s.rows))
	for m, rows := range s.rows {
		cp := make([]Record, len(rows))
		for i, r := range rows {
			cp[i] = r.Clone()
		}
		out[m] = cp
	}
	return out
}

// checkUnique must be called with mu held. skip is the index of the row being replaced.
func (s *MemoryStore) checkUnique(model string, row Record, skip int) error {
	for _, key := range uniqueKeys(model) {
		if hasNilColumn(row, key) {
			continue
		}
		for i, other := range s.rows[model] {
			if i == skip || hasNilColumn(other, key) {
				continue
			}
			same := true
			for _, col := range key {
				if !ValuesEqual(row[col], other[col]) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%s %s: %w", model, strings.Join(key, ","), ErrConflict)
			}
		}
	}
	return nil
}

func hasNilColumn(r Record, cols []string) bool {
	for _, c := range cols {
		if IsNil(r[c]) {
			return true
		}
		if str, ok := r[c].(string); ok && str == "" {
			return true
		}
	}
	return false
}

// memoryTx is the view handed to WithTx callbacks. Nested WithTx joins the outer transaction.
type memoryTx struct {
	*MemoryStore
}

func (t memoryTx) WithTx(_ context.Context, fn func(tx DataStore) error) error {
	return fn(t)
}
