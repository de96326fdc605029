package queue_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"basegraph.app/crmsync/internal/queue"
)

var _ = Describe("ParseMessage", func() {
	It("parses stream values into a delivery", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID: "1-0",
			Values: map[string]any{
				"delivery_id": "d-1",
				"endpoint_id": "42",
				"url":         "https://hooks.example.com/in",
				"event":       "user.created",
				"body":        `{"event":"user.created"}`,
				"signature":   "abc123",
				"trace_id":    "abc",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.ID).To(Equal("1-0"))
		Expect(msg.Delivery.ID).To(Equal("d-1"))
		Expect(msg.Delivery.EndpointID).To(Equal(int64(42)))
		Expect(msg.Delivery.URL).To(Equal("https://hooks.example.com/in"))
		Expect(msg.Delivery.Event).To(Equal("user.created"))
		Expect(string(msg.Delivery.Body)).To(Equal(`{"event":"user.created"}`))
		Expect(msg.Delivery.Signature).To(Equal("abc123"))
		Expect(msg.Delivery.Secret).To(BeEmpty())
		Expect(msg.Delivery.TraceID).To(Equal("abc"))
	})

	It("treats signature and trace id as optional", func() {
		msg, err := queue.ParseMessage(redis.XMessage{
			ID: "1-1",
			Values: map[string]any{
				"delivery_id": "d-2",
				"endpoint_id": "1",
				"url":         "https://hooks.example.com/in",
				"event":       "user.deleted",
				"body":        "{}",
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Delivery.Signature).To(BeEmpty())
		Expect(msg.Delivery.TraceID).To(BeEmpty())
	})

	DescribeTable("rejects malformed messages",
		func(values map[string]any) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "1-2", Values: values})
			Expect(err).To(HaveOccurred())
		},
		Entry("missing endpoint", map[string]any{"delivery_id": "d", "url": "u", "event": "e", "body": "{}"}),
		Entry("non numeric endpoint", map[string]any{"delivery_id": "d", "endpoint_id": "x", "url": "u", "event": "e", "body": "{}"}),
		Entry("missing url", map[string]any{"delivery_id": "d", "endpoint_id": "1", "event": "e", "body": "{}"}),
		Entry("missing body", map[string]any{"delivery_id": "d", "endpoint_id": "1", "url": "u", "event": "e"}),
	)
})
