package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmsync/core/config"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/service"
	"basegraph.app/crmsync/internal/store"
)

var _ = Describe("WebhookService", func() {
	var (
		mem        *store.MemoryStore
		reconciler *attio.Reconciler
	)

	BeforeEach(func() {
		mem = store.NewMemoryStore()
		registry := attio.MustNewRegistry(attio.Builtins(attio.Features{Organizations: true}))
		reconciler = attio.NewReconciler(registry, mem, nopEmitter{})
	})

	Describe("Authenticate", func() {
		raw := []byte(`{"events":[]}`)

		It("accepts a matching secret in the body", func() {
			svc := service.NewWebhookService(reconciler, "topsecret", config.AuthModeBody)
			Expect(svc.Authenticate(raw, attio.WebhookBatch{Secret: "topsecret"}, "")).To(Succeed())
		})

		It("rejects a mismatched body secret", func() {
			svc := service.NewWebhookService(reconciler, "topsecret", config.AuthModeBody)
			Expect(svc.Authenticate(raw, attio.WebhookBatch{Secret: "nope"}, "")).To(MatchError(service.ErrUnauthorized))
		})

		It("verifies the signature header in signature mode", func() {
			svc := service.NewWebhookService(reconciler, "topsecret", config.AuthModeSignature)
			Expect(svc.Authenticate(raw, attio.WebhookBatch{}, attio.Sign("topsecret", raw))).To(Succeed())
			Expect(svc.Authenticate(raw, attio.WebhookBatch{}, attio.Sign("other", raw))).To(MatchError(service.ErrUnauthorized))
			Expect(svc.Authenticate(raw, attio.WebhookBatch{Secret: "topsecret"}, "")).To(MatchError(service.ErrUnauthorized))
		})

		It("rejects everything when no secret is configured", func() {
			svc := service.NewWebhookService(reconciler, "", config.AuthModeBody)
			Expect(svc.Authenticate(raw, attio.WebhookBatch{}, "")).To(MatchError(service.ErrUnauthorized))
		})
	})

	Describe("Process", func() {
		It("reconciles the batch and reports counts", func() {
			svc := service.NewWebhookService(reconciler, "topsecret", config.AuthModeBody)
			batch := attio.WebhookBatch{Events: []attio.WebhookEvent{
				{
					EventType: "record.created",
					Record: &attio.WebhookRecord{
						ID: attio.WebhookRecordID{RecordID: "rec-1"},
						Values: map[string]attio.ValueEnvelope{
							"name":                  {{"attribute_type": "text", "value": "Ada"}},
							"primary_email_address": {{"attribute_type": "email-address", "email_address": "ada@example.com"}},
						},
					},
					Object: &attio.WebhookObject{APISlug: attio.UsersObject},
				},
				{EventType: "record.created"},
			}}

			res := svc.Process(context.Background(), batch)

			Expect(res).To(Equal(attio.Result{Processed: 1, Skipped: 1}))
			user, err := store.NewStores(mem).Users().GetByAttioID(context.Background(), "rec-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("ada@example.com"))
		})
	})
})
