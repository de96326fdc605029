package attio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"basegraph.app/crmsync/internal/metrics"
)

const (
	HeaderEvent     = "X-Crmsync-Event"
	HeaderDelivery  = "X-Crmsync-Delivery"
	HeaderSignature = "X-Crmsync-Signature"
)

// Delivery is one envelope addressed to one endpoint.
type Delivery struct {
	ID         string `json:"id"`
	EndpointID int64  `json:"endpoint_id"`
	URL        string `json:"url"`
	Secret     string `json:"-"`
	Signature  string `json:"signature,omitempty"`
	Event      string `json:"event"`
	Body       []byte `json:"body"`
	TraceID    string `json:"trace_id,omitempty"`
}

// Signed returns the precomputed signature, or signs the body with the secret.
// Empty when the endpoint has no secret.
func (d Delivery) Signed() string {
	if d.Signature != "" {
		return d.Signature
	}
	if d.Secret != "" {
		return Sign(d.Secret, d.Body)
	}
	return ""
}

// Sender hands a delivery to its transport. Senders make a single attempt.
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// HTTPSender POSTs deliveries directly.
type HTTPSender struct {
	client *http.Client
}

func NewHTTPSender(timeout time.Duration) *HTTPSender {
	return &HTTPSender{client: &http.Client{Timeout: timeout}}
}

// NewHTTPSenderWithClient is used by tests to point at an httptest server client.
func NewHTTPSenderWithClient(client *http.Client) *HTTPSender {
	return &HTTPSender{client: client}
}

func (s *HTTPSender) Send(ctx context.Context, d Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, d.Event)
	req.Header.Set(HeaderDelivery, d.ID)
	if sig := d.Signed(); sig != "" {
		req.Header.Set(HeaderSignature, sig)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.ObserveDelivery(d.Event, "error", time.Since(start))
		return fmt.Errorf("posting to endpoint %d: %w", d.EndpointID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveDelivery(d.Event, "rejected", time.Since(start))
		return fmt.Errorf("endpoint %d responded %d", d.EndpointID, resp.StatusCode)
	}
	metrics.ObserveDelivery(d.Event, "ok", time.Since(start))
	return nil
}
