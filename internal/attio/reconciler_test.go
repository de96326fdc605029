package attio_test

import (
	"context"
	"errors"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/store"
)

var _ = Describe("Reconciler", func() {
	var (
		ctx     context.Context
		mem     *store.MemoryStore
		writes  *writeCounter
		emitter *recordingEmitter
	)

	newReconciler := func(overrides ...attio.Adapter) *attio.Reconciler {
		registry := attio.MustNewRegistry(attio.Builtins(attio.Features{Organizations: true}), overrides...)
		return attio.NewReconciler(registry, store.NewHookedStore(mem, writes.hook), emitter)
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = store.NewMemoryStore()
		writes = &writeCounter{}
		emitter = &recordingEmitter{}
	})

	dealCreated := func(recordID string) attio.WebhookEvent {
		return webhookEvent("record.created", "deals", recordID, map[string]attio.ValueEnvelope{
			"name":  text("Big deal"),
			"value": number(100),
		})
	}

	Describe("structural skips", func() {
		It("skips events without record, object, adapter or known type", func() {
			r := newReconciler()
			res := r.Reconcile(ctx, batch(
				attio.WebhookEvent{EventType: "record.created", Object: &attio.WebhookObject{APISlug: "users"}},
				attio.WebhookEvent{EventType: "record.created", Record: &attio.WebhookRecord{}},
				webhookEvent("record.created", "companies", "rec_1", nil),
				webhookEvent("record.merged", "users", "rec_2", nil),
			))
			Expect(res).To(Equal(attio.Result{Skipped: 4}))
			Expect(writes.count()).To(BeZero())
			Expect(emitter.emissions()).To(BeEmpty())
		})
	})

	Describe("create", func() {
		It("creates a local record bound to the external id and confirms it", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))

			res := r.Reconcile(ctx, batch(dealCreated("deal_1")))
			Expect(res).To(Equal(attio.Result{Processed: 1}))

			rec, err := mem.FindOne(ctx, "deal", store.Eq("attio_id", "deal_1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.String("title")).To(Equal("Big deal"))
			Expect(rec["amount"]).To(Equal(100.0))
			Expect(rec.ID()).NotTo(BeZero())

			out := emitter.emissions()
			Expect(out).To(HaveLen(1))
			Expect(out[0].event).To(Equal(attio.EventCreate))
			Expect(out[0].rec.ID()).To(Equal(rec.ID()))
		})

		It("is idempotent when the same create is replayed", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))

			r.Reconcile(ctx, batch(dealCreated("deal_1")))
			r.Reconcile(ctx, batch(dealCreated("deal_1")))

			Expect(mem.Count("deal")).To(Equal(1))
			Expect(writes.count()).To(Equal(1))
			Expect(emitter.emissions()).To(HaveLen(1))
		})

		It("processes a create followed by an update for the same id in order", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))

			res := r.Reconcile(ctx, batch(
				dealCreated("deal_1"),
				webhookEvent("record.updated", "deals", "deal_1", map[string]attio.ValueEnvelope{"value": number(250)}),
			))
			Expect(res.Processed).To(Equal(2))

			rec, err := mem.FindOne(ctx, "deal", store.Eq("attio_id", "deal_1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec["amount"]).To(Equal(250.0))
			Expect(rec.String("title")).To(Equal("Big deal"))
			Expect(mem.Count("deal")).To(Equal(1))
		})
	})

	Describe("update", func() {
		var r *attio.Reconciler

		BeforeEach(func() {
			r = newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))
			r.Reconcile(ctx, batch(dealCreated("deal_1")))
			// start counting from the seeded state
			writes = &writeCounter{}
			emitter = &recordingEmitter{}
			r = newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))
		})

		It("writes nothing and emits nothing when values already match", func() {
			before, _ := mem.FindOne(ctx, "deal", store.Eq("attio_id", "deal_1"))

			r.Reconcile(ctx, batch(webhookEvent("record.updated", "deals", "deal_1", map[string]attio.ValueEnvelope{
				"name":  text("Big deal"),
				"value": number(100),
			})))

			after, _ := mem.FindOne(ctx, "deal", store.Eq("attio_id", "deal_1"))
			Expect(writes.count()).To(BeZero())
			Expect(emitter.emissions()).To(BeEmpty())
			Expect(after["updated_at"]).To(Equal(before["updated_at"]))
		})

		It("updates changed fields and confirms the result", func() {
			r.Reconcile(ctx, batch(webhookEvent("record.updated", "deals", "deal_1", map[string]attio.ValueEnvelope{
				"name": text("Bigger deal"),
			})))

			Expect(writes.count()).To(Equal(1))
			out := emitter.emissions()
			Expect(out).To(HaveLen(1))
			Expect(out[0].event).To(Equal(attio.EventUpdate))
			Expect(out[0].rec.String("title")).To(Equal("Bigger deal"))
			Expect(out[0].rec["amount"]).To(Equal(100.0))
		})
	})

	Describe("orphan policy", func() {
		orphanUpdate := webhookEvent("record.updated", "deals", "deal_404", map[string]attio.ValueEnvelope{
			"name": text("Ghost"),
		})

		It("creates the record for onMissing=create", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingCreate)))
			r.Reconcile(ctx, batch(orphanUpdate))

			Expect(mem.Count("deal")).To(Equal(1))
			out := emitter.emissions()
			Expect(out).To(HaveLen(1))
			Expect(out[0].event).To(Equal(attio.EventCreate))
		})

		It("asks the external side to delete for onMissing=delete", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingDelete)))
			r.Reconcile(ctx, batch(orphanUpdate))

			Expect(writes.count()).To(BeZero())
			out := emitter.emissions()
			Expect(out).To(HaveLen(1))
			Expect(out[0].delivered).To(BeTrue())
			Expect(out[0].event).To(Equal(attio.EventDelete))
			Expect(out[0].rec).To(Equal(store.Record{"record_id": "deal_404"}))
		})

		It("does nothing for onMissing=ignore", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))
			r.Reconcile(ctx, batch(orphanUpdate))

			Expect(writes.count()).To(BeZero())
			Expect(emitter.emissions()).To(BeEmpty())
		})
	})

	Describe("delete", func() {
		It("deletes the correlated record", func() {
			r := newReconciler(attio.NewMappedAdapter(dealMapping(attio.OnMissingIgnore)))
			r.Reconcile(ctx, batch(dealCreated("deal_1")))

			res := r.Reconcile(ctx, batch(
				webhookEvent("record.deleted", "deals", "deal_1", nil),
				webhookEvent("record.deleted", "deals", "deal_unknown", nil),
			))
			Expect(res.Processed).To(Equal(2))
			Expect(mem.Count("deal")).To(BeZero())
		})

		It("keeps the record when deletions are not synced", func() {
			m := dealMapping(attio.OnMissingIgnore)
			off := false
			m.SyncDeletions = &off
			r := newReconciler(attio.NewMappedAdapter(m))
			r.Reconcile(ctx, batch(dealCreated("deal_1")))

			r.Reconcile(ctx, batch(webhookEvent("record.deleted", "deals", "deal_1", nil)))
			Expect(mem.Count("deal")).To(Equal(1))
		})
	})

	Describe("adapter-handled persistence", func() {
		It("applies no default policy when the adapter returns nil", func() {
			handled := 0
			widget := &fakeAdapter{
				meta: attio.AdapterMeta{LocalModel: "widget", ExternalObject: "widgets", OnMissing: attio.OnMissingCreate},
				fromFn: func(context.Context, attio.Event, store.Record, *attio.SyncContext) (store.Record, error) {
					handled++
					return nil, nil
				},
			}
			r := newReconciler(widget)

			res := r.Reconcile(ctx, batch(webhookEvent("record.created", "widgets", "w_1", map[string]attio.ValueEnvelope{"name": text("x")})))
			Expect(res.Processed).To(Equal(1))
			Expect(handled).To(Equal(1))
			Expect(mem.Count("widget")).To(BeZero())
		})
	})

	Describe("batch isolation", func() {
		It("applies the other events when one panics and one errors", func() {
			widget := &fakeAdapter{
				meta: attio.AdapterMeta{LocalModel: "widget", ExternalObject: "widgets", OnMissing: attio.OnMissingCreate},
				fromFn: func(_ context.Context, _ attio.Event, values store.Record, _ *attio.SyncContext) (store.Record, error) {
					switch values.String("name") {
					case "panic":
						panic("adapter exploded")
					case "error":
						return nil, errors.New("transform failed")
					}
					return store.Record{"name": values["name"]}, nil
				},
			}
			r := newReconciler(widget)

			res := r.Reconcile(ctx, batch(
				webhookEvent("record.created", "widgets", "w_1", map[string]attio.ValueEnvelope{"name": text("first")}),
				webhookEvent("record.created", "widgets", "w_2", map[string]attio.ValueEnvelope{"name": text("panic")}),
				webhookEvent("record.created", "widgets", "w_3", map[string]attio.ValueEnvelope{"name": text("third")}),
				webhookEvent("record.created", "widgets", "w_4", map[string]attio.ValueEnvelope{"name": text("error")}),
			))

			Expect(res).To(Equal(attio.Result{Processed: 2, Failed: 2}))
			_, err := mem.FindOne(ctx, "widget", store.Eq("attio_id", "w_1"))
			Expect(err).NotTo(HaveOccurred())
			_, err = mem.FindOne(ctx, "widget", store.Eq("attio_id", "w_3"))
			Expect(err).NotTo(HaveOccurred())
			Expect(mem.Count("widget")).To(Equal(2))
		})
	})

	Describe("correlation by local id", func() {
		var userID int64

		BeforeEach(func() {
			rec, err := mem.Create(ctx, store.ModelUser, store.Record{"name": "Ada", "email": "ada@example.com"})
			Expect(err).NotTo(HaveOccurred())
			userID = rec.ID()
		})

		userUpdated := func(recordID string, localID int64) attio.WebhookEvent {
			return webhookEvent("record.updated", "users", recordID, map[string]attio.ValueEnvelope{
				"user_id":               text(strconv.FormatInt(localID, 10)),
				"primary_email_address": email("ada@example.com"),
				"name":                  text("Ada Lovelace"),
			})
		}

		It("binds a locally created record instead of duplicating it", func() {
			r := newReconciler()
			res := r.Reconcile(ctx, batch(userUpdated("usr_1", userID)))
			Expect(res.Processed).To(Equal(1))

			Expect(mem.Count(store.ModelUser)).To(Equal(1))
			rec, err := mem.FindOne(ctx, store.ModelUser, store.Eq("id", userID))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.AttioID()).To(Equal("usr_1"))
			Expect(rec.String("name")).To(Equal("Ada Lovelace"))
		})

		It("never rebinds a record to a different external id", func() {
			r := newReconciler()
			r.Reconcile(ctx, batch(userUpdated("usr_1", userID)))

			res := r.Reconcile(ctx, batch(userUpdated("usr_2", userID)))
			Expect(res.Failed).To(Equal(1))

			rec, _ := mem.FindOne(ctx, store.ModelUser, store.Eq("id", userID))
			Expect(rec.AttioID()).To(Equal("usr_1"))
			Expect(mem.Count(store.ModelUser)).To(Equal(1))
		})

		It("never rewrites attio_id from a patch", func() {
			Expect(attio.Diff(store.Record{"attio_id": "other", "id": int64(1), "name": "x"}, store.Record{"name": "y"})).
				To(Equal(store.Record{"name": "x"}))
		})
	})
})
