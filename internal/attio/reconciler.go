package attio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/internal/metrics"
	"basegraph.app/crmsync/internal/store"
)

// Result counts what happened to the events of one batch.
type Result struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type outcome string

const (
	outcomeProcessed outcome = "processed"
	outcomeSkipped   outcome = "skipped"
	outcomeFailed    outcome = "failed"
)

// immutableFields never take part in an update diff.
var immutableFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	store.AttioIDField: true,
}

// Reconciler applies inbound Attio webhook batches to the local store.
type Reconciler struct {
	registry *Registry
	store    store.DataStore
	emitter  Emitter
}

// NewReconciler builds a reconciler. ds must be the un-hooked store: confirmations are emitted
// explicitly so they are not announced twice.
func NewReconciler(registry *Registry, ds store.DataStore, emitter Emitter) *Reconciler {
	return &Reconciler{registry: registry, store: ds, emitter: emitter}
}

// Reconcile processes events in order. Each event is isolated: an error or panic in one is
// logged and counted, and the batch continues.
func (r *Reconciler) Reconcile(ctx context.Context, batch WebhookBatch) Result {
	var res Result
	for i := range batch.Events {
		switch r.reconcileOne(ctx, &batch.Events[i]) {
		case outcomeProcessed:
			res.Processed++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
		}
	}
	return res
}

func (r *Reconciler) reconcileOne(ctx context.Context, ev *WebhookEvent) (out outcome) {
	if ev.Record == nil || ev.Object == nil {
		metrics.ObserveInbound("", string(outcomeSkipped))
		return outcomeSkipped
	}
	slug := ev.Object.APISlug

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ExternalObject:   logger.Ptr(slug),
		ExternalRecordID: logger.Ptr(ev.Record.ID.RecordID),
		EventType:        logger.Ptr(ev.EventType),
		Component:        "crmsync.attio.reconciler",
	})
	span := logger.StartSpan(ctx, "attio.reconcile_event",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("attio.object", slug),
			attribute.String("attio.event_type", ev.EventType),
		))
	ctx = span.Context()

	defer func() {
		if rec := recover(); rec != nil {
			span.RecordError(fmt.Errorf("panic: %v", rec))
			slog.ErrorContext(ctx, "panic while reconciling event",
				"panic", rec,
				"stack", string(debug.Stack()))
			out = outcomeFailed
		}
		metrics.ObserveInbound(slug, string(out))
		span.End()
	}()

	adapter, ok := r.registry.ResolveByExternalObject(slug)
	if !ok {
		slog.DebugContext(ctx, "no adapter for external object")
		return outcomeSkipped
	}
	event, ok := ParseEventType(ev.EventType)
	if !ok {
		slog.DebugContext(ctx, "unhandled event type")
		return outcomeSkipped
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{LocalModel: logger.Ptr(adapter.Meta().LocalModel)})
	values := ExtractRecord(ev.Record)

	if err := r.handle(ctx, adapter, event, values); err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "reconciling event failed", "error", err)
		return outcomeFailed
	}
	return outcomeProcessed
}

func (r *Reconciler) handle(ctx context.Context, a Adapter, event Event, values store.Record) error {
	sc := &SyncContext{
		Store:    r.store,
		Registry: r.registry,
		adapter:  a,
		emitter:  r.emitter,
		values:   values,
		apply: func(ctx context.Context, sc *SyncContext, event Event, patch store.Record) (ApplyResult, error) {
			return r.apply(ctx, sc, event, patch, false)
		},
	}

	patch, err := a.FromAttio(ctx, event, values, sc)
	if err != nil {
		return fmt.Errorf("inbound transform: %w", err)
	}
	if patch == nil {
		return nil
	}

	_, err = r.apply(ctx, sc, event, patch, true)
	return err
}

// apply is the default reconcile policy. confirm controls whether create and update results
// are emitted back out; orphan deletes are always delivered.
func (r *Reconciler) apply(ctx context.Context, sc *SyncContext, event Event, patch store.Record, confirm bool) (ApplyResult, error) {
	meta := sc.adapter.Meta()
	ds := sc.Store
	externalID := sc.ExternalID()
	if externalID == "" {
		return ApplyResult{Action: ActionNone}, errors.New("inbound record has no record id")
	}

	if event == EventDelete {
		if !meta.SyncDeletions {
			return ApplyResult{Action: ActionNone}, nil
		}
		existing, err := ds.FindOne(ctx, meta.LocalModel, store.Eq(store.AttioIDField, externalID))
		if errors.Is(err, store.ErrNotFound) {
			return ApplyResult{Action: ActionNone}, nil
		}
		if err != nil {
			return ApplyResult{}, fmt.Errorf("finding %s to delete: %w", meta.LocalModel, err)
		}
		if err := ds.Delete(ctx, meta.LocalModel, store.Eq("id", existing.ID())); err != nil {
			return ApplyResult{}, fmt.Errorf("deleting %s: %w", meta.LocalModel, err)
		}
		return ApplyResult{Record: existing, Action: ActionDeleted}, nil
	}

	existing, bind, err := r.correlate(ctx, sc, meta, externalID)
	if err != nil {
		return ApplyResult{}, err
	}

	if existing != nil {
		changes := Diff(patch, existing)
		if bind {
			changes[store.AttioIDField] = externalID
		}
		if len(changes) == 0 {
			return ApplyResult{Record: existing, Action: ActionNone}, nil
		}
		updated, err := ds.Update(ctx, meta.LocalModel, []store.Where{store.Eq("id", existing.ID())}, changes)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("updating %s: %w", meta.LocalModel, err)
		}
		if len(updated) == 0 {
			return ApplyResult{}, fmt.Errorf("updating %s %d: %w", meta.LocalModel, existing.ID(), store.ErrNotFound)
		}
		if confirm {
			sc.Emit(ctx, EventUpdate, updated[0])
		}
		return ApplyResult{Record: updated[0], Action: ActionUpdated}, nil
	}

	if event == EventCreate || meta.OnMissing == OnMissingCreate {
		rec := make(store.Record, len(patch)+2)
		for k, v := range patch {
			if !immutableFields[k] {
				rec[k] = v
			}
		}
		rec["id"] = id.New()
		rec[store.AttioIDField] = externalID

		created, err := ds.Create(ctx, meta.LocalModel, rec)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("creating %s: %w", meta.LocalModel, err)
		}
		if confirm {
			sc.Emit(ctx, EventCreate, created)
		}
		return ApplyResult{Record: created, Action: ActionCreated}, nil
	}

	if meta.OnMissing == OnMissingDelete {
		if sc.emitter != nil {
			sc.emitter.Deliver(ctx, sc.adapter, EventDelete, store.Record{RecordIDKey: externalID})
		}
		return ApplyResult{Action: ActionOrphaned}, nil
	}

	return ApplyResult{Action: ActionNone}, nil
}

// correlate finds the local record for externalID. When that misses and the adapter declares a
// correlation field, the record named by the local id in that field is returned with bind set,
// unless it is already bound to another external record.
func (r *Reconciler) correlate(ctx context.Context, sc *SyncContext, meta AdapterMeta, externalID string) (store.Record, bool, error) {
	existing, err := sc.Store.FindOne(ctx, meta.LocalModel, store.Eq(store.AttioIDField, externalID))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("finding %s by external id: %w", meta.LocalModel, err)
	}

	if meta.CorrelationField == "" {
		return nil, false, nil
	}
	localID, err := cast.ToInt64E(sc.values[meta.CorrelationField])
	if err != nil || localID <= 0 {
		return nil, false, nil
	}

	candidate, err := sc.Store.FindOne(ctx, meta.LocalModel, store.Eq("id", localID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("finding %s %d: %w", meta.LocalModel, localID, err)
	}
	if bound := candidate.AttioID(); bound != "" && bound != externalID {
		return nil, false, fmt.Errorf("%s %d bound to %s, refusing %s: %w", meta.LocalModel, localID, bound, externalID, ErrExternalIDConflict)
	}
	return candidate, true, nil
}

// Diff returns the entries of patch that differ from existing, skipping immutable fields.
func Diff(patch, existing store.Record) store.Record {
	out := store.Record{}
	for k, v := range patch {
		if immutableFields[k] {
			continue
		}
		if cur, ok := existing[k]; ok && store.ValuesEqual(cur, v) {
			continue
		}
		if _, ok := existing[k]; !ok && store.IsNil(v) {
			continue
		}
		out[k] = v
	}
	return out
}
