package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmsync/core/config"
)

var _ = Describe("Load", func() {
	keys := []string{
		"CRMSYNC_ENV", "ATTIO_WEBHOOK_SECRET", "ATTIO_AUTH_MODE", "ATTIO_DELIVERY_MODE",
		"ATTIO_DELIVERY_TIMEOUT", "FEATURE_ORGANIZATIONS", "ATTIO_INBOUND_RPS",
	}
	saved := map[string]*string{}

	BeforeEach(func() {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok {
				saved[k] = &v
			} else {
				saved[k] = nil
			}
			os.Unsetenv(k)
		}
		// keep godotenv from picking up a developer's local files
		os.Setenv("CRMSYNC_ENV", "test")
	})

	AfterEach(func() {
		for k, v := range saved {
			if v == nil {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, *v)
			}
		}
	})

	It("requires the webhook secret", func() {
		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("ATTIO_WEBHOOK_SECRET")))
	})

	It("applies defaults", func() {
		os.Setenv("ATTIO_WEBHOOK_SECRET", "s3cret")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Attio.AuthMode).To(Equal(config.AuthModeBody))
		Expect(cfg.Attio.DeliveryMode).To(Equal(config.DeliveryModeInline))
		Expect(cfg.Attio.DeliveryTimeout).To(Equal(10 * time.Second))
		Expect(cfg.Features.Organizations).To(BeTrue())
		Expect(cfg.OTel.ServiceName).To(Equal("crmsync-server"))
		Expect(cfg.Attio.RateLimitEnabled()).To(BeTrue())
	})

	It("reads overrides", func() {
		os.Setenv("ATTIO_WEBHOOK_SECRET", "s3cret")
		os.Setenv("ATTIO_AUTH_MODE", "signature")
		os.Setenv("ATTIO_DELIVERY_MODE", "queue")
		os.Setenv("ATTIO_DELIVERY_TIMEOUT", "3s")
		os.Setenv("FEATURE_ORGANIZATIONS", "false")
		os.Setenv("ATTIO_INBOUND_RPS", "0")

		cfg, err := config.Load(config.ServiceTypeWorker)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Attio.AuthMode).To(Equal(config.AuthModeSignature))
		Expect(cfg.Attio.DeliveryMode).To(Equal(config.DeliveryModeQueue))
		Expect(cfg.Attio.DeliveryTimeout).To(Equal(3 * time.Second))
		Expect(cfg.Features.Organizations).To(BeFalse())
		Expect(cfg.Attio.RateLimitEnabled()).To(BeFalse())
	})

	It("rejects unknown modes", func() {
		os.Setenv("ATTIO_WEBHOOK_SECRET", "s3cret")
		os.Setenv("ATTIO_AUTH_MODE", "magic")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("ATTIO_AUTH_MODE")))
	})
})
