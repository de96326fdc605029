package dto

import (
	"sort"
	"time"

	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/model"
)

type LinkRequest struct {
	WebhookURL    string  `json:"webhook_url" binding:"required,max=2048"`
	WebhookSecret *string `json:"webhook_secret,omitempty" binding:"omitempty,max=512"`
}

type EndpointResponse struct {
	ID         int64     `json:"id,string"`
	WebhookURL string    `json:"webhook_url"`
	Signed     bool      `json:"signed"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToEndpointResponse(e *model.IntegrationEndpoint) *EndpointResponse {
	return &EndpointResponse{
		ID:         e.ID,
		WebhookURL: e.WebhookURL,
		Signed:     e.HasSecret(),
		CreatedAt:  e.CreatedAt,
	}
}

func ToEndpointResponses(endpoints []model.IntegrationEndpoint) []*EndpointResponse {
	out := make([]*EndpointResponse, len(endpoints))
	for i := range endpoints {
		out[i] = ToEndpointResponse(&endpoints[i])
	}
	return out
}

// WebhookResponse is returned once every event of an inbound batch has been attempted.
type WebhookResponse struct {
	Success bool `json:"success"`
	attio.Result
}

type AdapterResponse struct {
	LocalModel       string            `json:"local_model"`
	ExternalObject   string            `json:"external_object"`
	OnMissing        attio.OnMissing   `json:"on_missing"`
	SyncDeletions    bool              `json:"sync_deletions"`
	RelatedModels    []string          `json:"related_models,omitempty"`
	CorrelationField string            `json:"correlation_field,omitempty"`
	Schema           []attio.Attribute `json:"schema"`
}

func ToAdapterResponses(adapters []attio.Adapter) []*AdapterResponse {
	out := make([]*AdapterResponse, len(adapters))
	for i, a := range adapters {
		meta := a.Meta()
		resp := &AdapterResponse{
			LocalModel:       meta.LocalModel,
			ExternalObject:   meta.ExternalObject,
			OnMissing:        meta.OnMissing,
			SyncDeletions:    meta.SyncDeletions,
			CorrelationField: meta.CorrelationField,
			Schema:           meta.Schema,
		}
		for related := range meta.RelatedModels {
			resp.RelatedModels = append(resp.RelatedModels, related)
		}
		sort.Strings(resp.RelatedModels)
		out[i] = resp
	}
	return out
}
