package attio

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

// EndpointLister lists the integration endpoints every event fans out to.
type EndpointLister interface {
	List(ctx context.Context) ([]model.IntegrationEndpoint, error)
}

// Dispatcher turns local mutations into outbound webhook deliveries.
type Dispatcher struct {
	registry  *Registry
	store     store.DataStore
	endpoints EndpointLister
	sender    Sender
	scheduler Scheduler
	now       func() time.Time
}

type DispatcherOption func(*Dispatcher)

// WithScheduler hands each delivery group to s instead of awaiting it inline.
func WithScheduler(s Scheduler) DispatcherOption {
	return func(d *Dispatcher) { d.scheduler = s }
}

// WithClock overrides the envelope timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher builds a dispatcher. ds is used by adapter transforms and parent lookups and
// must not be a store whose writes are announced back to this dispatcher.
func NewDispatcher(registry *Registry, ds store.DataStore, endpoints EndpointLister, sender Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		store:     ds,
		endpoints: endpoints,
		sender:    sender,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnMutation is the local mutation hook. A primary model mutation is delivered as is; a related
// model mutation re-syncs each parent record as an update instead. Other models are ignored.
func (d *Dispatcher) OnMutation(ctx context.Context, localModel string, kind store.MutationKind, rec store.Record) {
	event := Event(kind)

	if a, ok := d.registry.Resolve(localModel); ok {
		d.Emit(ctx, a, event, rec)
		return
	}

	for _, parent := range d.registry.ParentsOf(localModel) {
		d.resyncParent(ctx, parent, localModel, rec)
	}
}

func (d *Dispatcher) resyncParent(ctx context.Context, parent Adapter, relatedModel string, related store.Record) {
	meta := parent.Meta()
	resolve := meta.RelatedModels[relatedModel]

	externalID, err := resolve(ctx, related, d.syncContext(parent))
	if err != nil {
		slog.WarnContext(ctx, "resolving parent of related record failed",
			"error", err,
			"related_model", relatedModel,
			"parent_model", meta.LocalModel)
		return
	}
	if externalID == "" {
		slog.DebugContext(ctx, "related record has no synced parent",
			"related_model", relatedModel,
			"parent_model", meta.LocalModel)
		return
	}

	parentRec, err := d.store.FindOne(ctx, meta.LocalModel, store.Eq(store.AttioIDField, externalID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "loading parent record failed",
				"error", err,
				"parent_model", meta.LocalModel,
				"external_record_id", externalID)
		}
		return
	}

	d.Emit(ctx, parent, EventUpdate, parentRec)
}

// Emit transforms rec with a and delivers the result. Transform errors are logged and
// swallowed so the mutation that triggered them is never affected.
func (d *Dispatcher) Emit(ctx context.Context, a Adapter, event Event, rec store.Record) {
	data, err := a.ToAttio(ctx, event, rec, d.syncContext(a))
	if err != nil {
		slog.ErrorContext(ctx, "outbound transform failed",
			"error", err,
			"local_model", a.Meta().LocalModel,
			"event", string(event))
		return
	}
	if data == nil {
		slog.DebugContext(ctx, "outbound event suppressed by adapter",
			"local_model", a.Meta().LocalModel,
			"event", string(event))
		return
	}
	d.Deliver(ctx, a, event, data)
}

// Deliver wraps data in the envelope and sends it to every endpoint concurrently.
func (d *Dispatcher) Deliver(ctx context.Context, a Adapter, event Event, data store.Record) {
	meta := a.Meta()
	name := EventName(meta.LocalModel, event)

	body, err := json.Marshal(Payload{
		Event:     name,
		Data:      data,
		Timestamp: d.now().Format(time.RFC3339),
		Adapter:   payloadAdapter(meta),
	})
	if err != nil {
		slog.ErrorContext(ctx, "encoding outbound envelope failed", "error", err, "event", name)
		return
	}

	group := func(ctx context.Context) {
		d.deliverAll(ctx, name, body)
	}
	if d.scheduler != nil {
		d.scheduler.Schedule(ctx, group)
		return
	}
	group(ctx)
}

func (d *Dispatcher) deliverAll(ctx context.Context, event string, body []byte) {
	sc := logger.StartSpan(ctx, "attio.dispatch",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("crmsync.event", event)))
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		EventType: logger.Ptr(event),
		Component: "crmsync.attio.dispatcher",
	})

	endpoints, err := d.endpoints.List(ctx)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "listing integration endpoints failed", "error", err)
		return
	}
	if len(endpoints) == 0 {
		return
	}

	traceID := logger.TraceID(ctx)
	var wg sync.WaitGroup
	for _, ep := range endpoints {
		delivery := Delivery{
			ID:         uuid.NewString(),
			EndpointID: ep.ID,
			URL:        ep.WebhookURL,
			Event:      event,
			Body:       body,
			TraceID:    traceID,
		}
		if ep.HasSecret() {
			delivery.Secret = *ep.WebhookSecret
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			dctx := logger.WithLogFields(ctx, logger.LogFields{
				EndpointID: logger.Ptr(delivery.EndpointID),
				DeliveryID: logger.Ptr(delivery.ID),
			})
			if err := d.sender.Send(dctx, delivery); err != nil {
				slog.WarnContext(dctx, "webhook delivery failed", "error", err)
				return
			}
			slog.DebugContext(dctx, "webhook delivered")
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) syncContext(a Adapter) *SyncContext {
	return &SyncContext{
		Store:    d.store,
		Registry: d.registry,
		adapter:  a,
		emitter:  d,
	}
}
