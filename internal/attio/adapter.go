package attio

import (
	"context"

	"basegraph.app/crmsync/internal/store"
)

// OnMissing is the policy for an inbound update whose external id has no local record.
type OnMissing string

const (
	OnMissingCreate OnMissing = "create"
	OnMissingDelete OnMissing = "delete"
	OnMissingIgnore OnMissing = "ignore"
)

func (o OnMissing) Valid() bool {
	return o == OnMissingCreate || o == OnMissingDelete || o == OnMissingIgnore
}

// ParentResolver returns the external id of the parent record a related record belongs to.
// An empty id means there is no synced parent to refresh.
type ParentResolver func(ctx context.Context, related store.Record, sc *SyncContext) (string, error)

// AdapterMeta is the static description of how one local model maps onto an Attio object.
type AdapterMeta struct {
	LocalModel     string
	ExternalObject string
	Schema         []Attribute
	OnMissing      OnMissing
	SyncDeletions  bool
	// RelatedModels lists auxiliary local models whose mutations re-sync the parent record.
	RelatedModels map[string]ParentResolver
	// CorrelationField names an extracted field carrying the local id. When the attio_id
	// lookup misses, the reconciler binds the record with that id instead of creating one.
	CorrelationField string
}

// Adapter transforms one local model to and from its Attio counterpart.
type Adapter interface {
	Meta() AdapterMeta
	// ToAttio returns the outbound payload data for rec. A nil result suppresses delivery.
	ToAttio(ctx context.Context, event Event, rec store.Record, sc *SyncContext) (store.Record, error)
	// FromAttio returns a local patch for the default reconcile policy. A nil result means the
	// adapter persisted everything itself.
	FromAttio(ctx context.Context, event Event, values store.Record, sc *SyncContext) (store.Record, error)
}

// ApplyAction reports what the default policy did to the local store.
type ApplyAction string

const (
	ActionNone     ApplyAction = "none"
	ActionCreated  ApplyAction = "created"
	ActionUpdated  ApplyAction = "updated"
	ActionDeleted  ApplyAction = "deleted"
	ActionOrphaned ApplyAction = "orphaned"
)

// ApplyResult is the outcome of SyncContext.Apply. Record is the local row after the write,
// or the untouched existing row for ActionNone, and nil when no row exists.
type ApplyResult struct {
	Record store.Record
	Action ApplyAction
}

// SyncContext is handed to adapter transforms. It exposes the store, the registry and the
// ability to emit outbound events and to run the default reconcile policy.
type SyncContext struct {
	Store    store.DataStore
	Registry *Registry

	adapter Adapter
	emitter Emitter
	// values are the extracted inbound values, nil on the outbound path
	values store.Record
	apply  func(ctx context.Context, sc *SyncContext, event Event, patch store.Record) (ApplyResult, error)
}

// Emitter delivers outbound events. Implemented by Dispatcher.
type Emitter interface {
	// Emit transforms rec with a and delivers the result.
	Emit(ctx context.Context, a Adapter, event Event, rec store.Record)
	// Deliver sends data as-is, skipping the adapter transform.
	Deliver(ctx context.Context, a Adapter, event Event, data store.Record)
}

// Emit transforms rec with the current adapter and delivers it. No-op without an emitter.
func (sc *SyncContext) Emit(ctx context.Context, event Event, rec store.Record) {
	if sc.emitter == nil || sc.adapter == nil {
		return
	}
	sc.emitter.Emit(ctx, sc.adapter, event, rec)
}

// Apply runs the default reconcile policy with patch for the inbound event being processed.
// Unlike the reconciler's own pass it does not emit create/update confirmations; the caller
// decides what to emit once its own persistence is done.
func (sc *SyncContext) Apply(ctx context.Context, event Event, patch store.Record) (ApplyResult, error) {
	if sc.apply == nil {
		return ApplyResult{Action: ActionNone}, errOutboundApply
	}
	return sc.apply(ctx, sc, event, patch)
}

// ExternalID is the Attio record id of the inbound event being processed, "" on the outbound path.
func (sc *SyncContext) ExternalID() string {
	if sc.values == nil {
		return ""
	}
	return sc.values.String(RecordIDKey)
}

// WithTx runs fn with a SyncContext whose Store is a transaction view.
// Stores that cannot open transactions run fn directly.
func (sc *SyncContext) WithTx(ctx context.Context, fn func(tx *SyncContext) error) error {
	runner, ok := sc.Store.(store.TxRunner)
	if !ok {
		return fn(sc)
	}
	return runner.WithTx(ctx, func(tx store.DataStore) error {
		inner := *sc
		inner.Store = tx
		return fn(&inner)
	})
}
