package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmsync/core/config"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/http/middleware"
	"basegraph.app/crmsync/internal/http/router"
	"basegraph.app/crmsync/internal/metrics"
	"basegraph.app/crmsync/internal/service"
	"basegraph.app/crmsync/internal/store"
)

const (
	adminKey      = "admin-key"
	webhookSecret = "attio-secret"
)

type receiver struct {
	mu     sync.Mutex
	events []string
	bodies []map[string]any
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	raw, _ := io.ReadAll(req.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	r.mu.Lock()
	r.events = append(r.events, req.Header.Get(attio.HeaderEvent))
	r.bodies = append(r.bodies, body)
	r.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (r *receiver) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var _ = Describe("SetupRoutes", func() {
	var (
		engine *gin.Engine
		mem    *store.MemoryStore
		recv   *receiver
	)

	BeforeEach(func() {
		metrics.RegisterDefault()

		mem = store.NewMemoryStore()
		hooked := store.NewHookedStore(mem)
		registry := attio.MustNewRegistry(attio.Builtins(attio.Features{Organizations: true}))
		stores := store.NewStores(hooked)

		dispatcher := attio.NewDispatcher(registry, mem, store.NewStores(mem).Endpoints(), attio.NewHTTPSender(2*time.Second))
		hooked.OnMutation(dispatcher.OnMutation)
		reconciler := attio.NewReconciler(registry, mem, dispatcher)

		services := service.NewServices(stores, service.NewTxRunner(hooked), reconciler, config.AttioConfig{
			WebhookSecret: webhookSecret,
			AuthMode:      config.AuthModeBody,
		})

		engine = gin.New()
		engine.Use(middleware.Recovery(), middleware.Metrics())
		router.SetupRoutes(engine, services, registry, router.RouterConfig{AdminAPIKey: adminKey})

		recv = &receiver{}
		srv := httptest.NewServer(recv)
		DeferCleanup(srv.Close)

		w := do(engine, http.MethodPost, "/api/v1/attio/link", map[string]any{"webhook_url": srv.URL}, true)
		Expect(w.Code).To(Equal(http.StatusCreated))
	})

	It("serves health and metrics without auth", func() {
		Expect(do(engine, http.MethodGet, "/health", nil, false).Code).To(Equal(http.StatusOK))
		w := do(engine, http.MethodGet, "/metrics", nil, false)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("crmsync_http_requests_total"))
	})

	It("guards admin routes with the api key", func() {
		Expect(do(engine, http.MethodGet, "/api/v1/users", nil, false).Code).To(Equal(http.StatusUnauthorized))
		Expect(do(engine, http.MethodGet, "/api/v1/attio/endpoints", nil, false).Code).To(Equal(http.StatusUnauthorized))
		Expect(do(engine, http.MethodGet, "/api/v1/users", nil, true).Code).To(Equal(http.StatusOK))
	})

	It("delivers local user mutations to linked endpoints", func() {
		w := do(engine, http.MethodPost, "/api/v1/users", map[string]any{"name": "Ada", "email": "ada@example.com"}, true)
		Expect(w.Code).To(Equal(http.StatusCreated))

		Eventually(recv.Events).Should(Equal([]string{"user.created"}))
	})

	It("reconciles an inbound batch and answers with counts", func() {
		batch := map[string]any{
			"secret": webhookSecret,
			"events": []any{
				map[string]any{
					"event_type": "record.created",
					"record": map[string]any{
						"id": map[string]any{"record_id": "rec-ada"},
						"values": map[string]any{
							"name":                  []any{map[string]any{"attribute_type": "text", "value": "Ada"}},
							"primary_email_address": []any{map[string]any{"attribute_type": "email-address", "email_address": "ada@example.com"}},
						},
					},
					"object": map[string]any{"api_slug": "users"},
				},
				map[string]any{"event_type": "record.created"},
			},
		}

		w := do(engine, http.MethodPost, "/api/v1/attio/webhook", batch, false)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["success"]).To(BeTrue())
		Expect(resp["processed"]).To(BeEquivalentTo(1))
		Expect(resp["skipped"]).To(BeEquivalentTo(1))
		Expect(mem.Count(store.ModelUser)).To(Equal(1))
	})

	It("rejects an inbound batch with the wrong secret", func() {
		w := do(engine, http.MethodPost, "/api/v1/attio/webhook", map[string]any{"secret": "nope", "events": []any{}}, false)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})

func do(engine *gin.Engine, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.AdminAPIKeyHeader, adminKey)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
