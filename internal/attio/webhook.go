package attio

// WebhookBatch is the body Attio posts to the inbound webhook.
// Secret is only present when the workspace is configured to send the shared secret in the body.
type WebhookBatch struct {
	Secret string         `json:"secret,omitempty"`
	Events []WebhookEvent `json:"events"`
}

type WebhookEvent struct {
	EventType string         `json:"event_type"`
	Record    *WebhookRecord `json:"record,omitempty"`
	Object    *WebhookObject `json:"object,omitempty"`
}

type WebhookRecord struct {
	ID     WebhookRecordID          `json:"id"`
	Values map[string]ValueEnvelope `json:"values"`
}

type WebhookRecordID struct {
	RecordID string `json:"record_id"`
}

type WebhookObject struct {
	APISlug string `json:"api_slug"`
}

// ValueEnvelope is Attio's typed, possibly multi-valued wrapper around one attribute.
// Each element carries an attribute_type tag and type-specific payload fields.
type ValueEnvelope []map[string]any
