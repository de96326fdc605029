package attio_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmsync/internal/attio"
)

var _ = Describe("HTTPSender", func() {
	var (
		rcv    *receiver
		sender *attio.HTTPSender
	)

	BeforeEach(func() {
		rcv = newReceiver(http.StatusOK)
		DeferCleanup(rcv.server.Close)
		sender = attio.NewHTTPSender(2 * time.Second)
	})

	It("uses a precomputed signature when the secret is not carried", func() {
		body := []byte(`{"event":"user.created"}`)
		d := attio.Delivery{
			ID:        "d-1",
			URL:       rcv.server.URL,
			Event:     "user.created",
			Body:      body,
			Signature: attio.Sign("s3cret", body),
		}
		Expect(sender.Send(context.Background(), d)).To(Succeed())

		got := rcv.received()
		Expect(got).To(HaveLen(1))
		Expect(attio.VerifySignature("s3cret", got[0].body, got[0].header.Get(attio.HeaderSignature))).To(BeTrue())
	})

	It("signs with the secret when no signature is given", func() {
		body := []byte(`{}`)
		d := attio.Delivery{ID: "d-2", URL: rcv.server.URL, Event: "user.updated", Body: body, Secret: "k"}
		Expect(d.Signed()).To(Equal(attio.Sign("k", body)))
		Expect(sender.Send(context.Background(), d)).To(Succeed())
		Expect(rcv.received()[0].header.Get(attio.HeaderSignature)).To(Equal(attio.Sign("k", body)))
	})
})
