package attio_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

type receivedRequest struct {
	header http.Header
	body   []byte
}

type receiver struct {
	mu       sync.Mutex
	status   int
	requests []receivedRequest
	server   *httptest.Server
}

func newReceiver(status int) *receiver {
	r := &receiver{status: status}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.requests = append(r.requests, receivedRequest{header: req.Header.Clone(), body: body})
		r.mu.Unlock()
		w.WriteHeader(r.status)
	}))
	return r
}

func (r *receiver) received() []receivedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]receivedRequest(nil), r.requests...)
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx       context.Context
		mem       *store.MemoryStore
		ok, down  *receiver
		endpoints *staticEndpoints
		registry  *attio.Registry
		fixedNow  time.Time
	)

	secret := "whsec_test"

	newDispatcher := func(opts ...attio.DispatcherOption) *attio.Dispatcher {
		opts = append(opts, attio.WithClock(func() time.Time { return fixedNow }))
		return attio.NewDispatcher(registry, mem, endpoints, attio.NewHTTPSender(2*time.Second), opts...)
	}

	decode := func(req receivedRequest) attio.Payload {
		var p attio.Payload
		Expect(json.Unmarshal(req.body, &p)).To(Succeed())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		mem = store.NewMemoryStore()
		ok = newReceiver(http.StatusOK)
		down = newReceiver(http.StatusInternalServerError)
		endpoints = &staticEndpoints{endpoints: []model.IntegrationEndpoint{
			{ID: 1, WebhookURL: down.server.URL},
			{ID: 2, WebhookURL: ok.server.URL, WebhookSecret: &secret},
		}}
		registry = attio.MustNewRegistry(attio.Builtins(attio.Features{Organizations: true}))
		fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		ok.server.Close()
		down.server.Close()
	})

	It("fans a primary model mutation out to every endpoint", func() {
		d := newDispatcher()
		user := store.Record{"id": int64(42), "name": "Ada", "email": "ada@example.com", "attio_id": "usr_1"}

		d.OnMutation(ctx, store.ModelUser, store.MutationCreate, user)

		Expect(down.received()).To(HaveLen(1))
		got := ok.received()
		Expect(got).To(HaveLen(1))

		req := got[0]
		Expect(req.header.Get("Content-Type")).To(Equal("application/json"))
		Expect(req.header.Get(attio.HeaderEvent)).To(Equal("user.created"))
		Expect(req.header.Get(attio.HeaderDelivery)).NotTo(BeEmpty())
		Expect(attio.VerifySignature(secret, req.body, req.header.Get(attio.HeaderSignature))).To(BeTrue())
		Expect(down.received()[0].header.Get(attio.HeaderSignature)).To(BeEmpty())

		p := decode(req)
		Expect(p.Event).To(Equal("user.created"))
		Expect(p.Timestamp).To(Equal("2026-03-01T12:00:00Z"))
		Expect(p.Adapter.LocalModel).To(Equal("user"))
		Expect(p.Adapter.ExternalObject).To(Equal("users"))
		Expect(p.Adapter.ExternalSchema).NotTo(BeEmpty())
		Expect(p.Data).To(HaveKeyWithValue("user_id", "42"))
		Expect(p.Data).To(HaveKeyWithValue("primary_email_address", "ada@example.com"))
		Expect(p.Data).To(HaveKeyWithValue("record_id", "usr_1"))
	})

	It("gives each endpoint its own delivery id", func() {
		newDispatcher().OnMutation(ctx, store.ModelUser, store.MutationUpdate, store.Record{"id": int64(1)})

		a := ok.received()[0].header.Get(attio.HeaderDelivery)
		b := down.received()[0].header.Get(attio.HeaderDelivery)
		Expect(a).NotTo(Equal(b))
	})

	It("suppresses delivery when the adapter returns nil", func() {
		quiet := &fakeAdapter{
			meta: attio.AdapterMeta{LocalModel: "deal", ExternalObject: "deals"},
			toFn: func(context.Context, attio.Event, store.Record, *attio.SyncContext) (store.Record, error) {
				return nil, nil
			},
		}
		registry = attio.MustNewRegistry(nil, quiet)

		newDispatcher().OnMutation(ctx, "deal", store.MutationUpdate, store.Record{"id": int64(1)})
		Expect(ok.received()).To(BeEmpty())
		Expect(down.received()).To(BeEmpty())
	})

	It("ignores models without an adapter", func() {
		newDispatcher().OnMutation(ctx, store.ModelIntegrationEndpoint, store.MutationCreate, store.Record{"id": int64(1)})
		Expect(ok.received()).To(BeEmpty())
	})

	It("does nothing when no endpoint is linked", func() {
		endpoints.endpoints = nil
		newDispatcher().OnMutation(ctx, store.ModelUser, store.MutationCreate, store.Record{"id": int64(1)})
		Expect(ok.received()).To(BeEmpty())
	})

	It("re-syncs the parent organization when a membership changes", func() {
		org, err := mem.Create(ctx, store.ModelOrganization, store.Record{"name": "Acme", "slug": "acme", "attio_id": "ws_1"})
		Expect(err).NotTo(HaveOccurred())
		user, err := mem.Create(ctx, store.ModelUser, store.Record{"name": "Ada", "attio_id": "usr_1"})
		Expect(err).NotTo(HaveOccurred())
		member, err := mem.Create(ctx, store.ModelMember, store.Record{"organization_id": org.ID(), "user_id": user.ID(), "role": "member"})
		Expect(err).NotTo(HaveOccurred())

		newDispatcher().OnMutation(ctx, store.ModelMember, store.MutationCreate, member)

		got := ok.received()
		Expect(got).To(HaveLen(1))
		Expect(got[0].header.Get(attio.HeaderEvent)).To(Equal("organization.updated"))
		p := decode(got[0])
		Expect(p.Data).To(HaveKeyWithValue("record_id", "ws_1"))
		Expect(p.Data).To(HaveKeyWithValue("users", []any{"usr_1"}))
	})

	It("skips the parent re-sync when the organization is not synced yet", func() {
		org, _ := mem.Create(ctx, store.ModelOrganization, store.Record{"name": "Acme", "slug": "acme"})
		newDispatcher().OnMutation(ctx, store.ModelMember, store.MutationDelete, store.Record{"organization_id": org.ID(), "user_id": int64(5)})
		Expect(ok.received()).To(BeEmpty())
	})

	It("sends an orphan delete carrying only the external id", func() {
		d := newDispatcher()
		a, _ := registry.Resolve(store.ModelUser)
		d.Deliver(ctx, a, attio.EventDelete, store.Record{"record_id": "usr_404"})

		p := decode(ok.received()[0])
		Expect(p.Event).To(Equal("user.deleted"))
		Expect(p.Data).To(Equal(store.Record{"record_id": "usr_404"}))
	})

	It("hands delivery to the scheduler and returns immediately", func() {
		sched := attio.NewGoScheduler()
		d := newDispatcher(attio.WithScheduler(sched))

		d.OnMutation(ctx, store.ModelUser, store.MutationCreate, store.Record{"id": int64(7)})

		drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		Expect(sched.Drain(drainCtx)).To(Succeed())
		Expect(ok.received()).To(HaveLen(1))
	})
})

var _ = Describe("EnvelopeSchema", func() {
	It("describes the outbound envelope", func() {
		raw, err := json.Marshal(attio.EnvelopeSchema())
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]any
		Expect(json.Unmarshal(raw, &doc)).To(Succeed())
		Expect(doc).To(HaveKey("properties"))
		props := doc["properties"].(map[string]any)
		Expect(props).To(HaveKey("event"))
		Expect(props).To(HaveKey("data"))
		Expect(props).To(HaveKey("timestamp"))
		Expect(props).To(HaveKey("adapter"))
	})
})
