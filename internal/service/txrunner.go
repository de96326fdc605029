package service

import (
	"context"

	"basegraph.app/crmsync/internal/store"
)

// StoreProvider exposes only the stores needed by a transactional operation.
type StoreProvider interface {
	Users() store.UserStore
	Organizations() store.OrganizationStore
	Members() store.MemberStore
	Endpoints() store.EndpointStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type storeTxRunner struct {
	db store.TxRunner
}

// NewTxRunner builds a TxRunner over any transactional store. Passing the hooked store keeps
// outbound dispatch for writes made inside the transaction; hooks fire after commit.
func NewTxRunner(db store.TxRunner) TxRunner {
	return &storeTxRunner{db: db}
}

func (r *storeTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(tx store.DataStore) error {
		return fn(store.NewStores(tx))
	})
}
