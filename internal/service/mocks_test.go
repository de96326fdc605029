package service_test

import (
	"context"
	"sync"

	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

type mockEndpointStore struct {
	getByIDFn func(ctx context.Context, id int64) (*model.IntegrationEndpoint, error)
	listFn    func(ctx context.Context) ([]model.IntegrationEndpoint, error)
	createFn  func(ctx context.Context, endpoint *model.IntegrationEndpoint) error
	deleteFn  func(ctx context.Context, id int64) error
	deleted   []int64
}

func (m *mockEndpointStore) GetByID(ctx context.Context, id int64) (*model.IntegrationEndpoint, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockEndpointStore) List(ctx context.Context) ([]model.IntegrationEndpoint, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockEndpointStore) Create(ctx context.Context, endpoint *model.IntegrationEndpoint) error {
	if m.createFn != nil {
		return m.createFn(ctx, endpoint)
	}
	return nil
}

func (m *mockEndpointStore) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockOrganizationStore struct {
	getBySlugFn func(ctx context.Context, slug string) (*model.Organization, error)
	createFn    func(ctx context.Context, org *model.Organization) error
	createCalls int
}

func (m *mockOrganizationStore) GetByID(context.Context, int64) (*model.Organization, error) {
	return nil, store.ErrNotFound
}

func (m *mockOrganizationStore) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, store.ErrNotFound
}

func (m *mockOrganizationStore) List(context.Context) ([]model.Organization, error) {
	return nil, nil
}

func (m *mockOrganizationStore) Create(ctx context.Context, org *model.Organization) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, org)
	}
	return nil
}

func (m *mockOrganizationStore) Update(context.Context, *model.Organization) error {
	return nil
}

func (m *mockOrganizationStore) Delete(context.Context, int64) error {
	return nil
}

// mutationLog is a store hook recording every write in commit order.
type mutationLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *mutationLog) hook(_ context.Context, model string, kind store.MutationKind, _ store.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, model+"."+string(kind))
}

func (l *mutationLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, attio.Adapter, attio.Event, store.Record)    {}
func (nopEmitter) Deliver(context.Context, attio.Adapter, attio.Event, store.Record) {}
