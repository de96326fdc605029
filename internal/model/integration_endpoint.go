package model

import "time"

// IntegrationEndpoint is a registered receiver of outbound sync events.
type IntegrationEndpoint struct {
	ID            int64     `json:"id"`
	WebhookURL    string    `json:"webhook_url"`
	WebhookSecret *string   `json:"-"` // never exposed in API
	CreatedAt     time.Time `json:"created_at"`
}

func (e IntegrationEndpoint) HasSecret() bool {
	return e.WebhookSecret != nil && *e.WebhookSecret != ""
}
