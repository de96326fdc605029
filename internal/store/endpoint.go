package store

import (
	"context"

	"basegraph.app/crmsync/internal/model"
	"github.com/spf13/cast"
)

type endpointStore struct {
	ds DataStore
}

func newEndpointStore(ds DataStore) EndpointStore {
	return &endpointStore{ds: ds}
}

func (s *endpointStore) GetByID(ctx context.Context, id int64) (*model.IntegrationEndpoint, error) {
	rec, err := s.ds.FindOne(ctx, ModelIntegrationEndpoint, Eq("id", id))
	if err != nil {
		return nil, err
	}
	return toEndpointModel(rec), nil
}

func (s *endpointStore) List(ctx context.Context) ([]model.IntegrationEndpoint, error) {
	recs, err := s.ds.FindMany(ctx, ModelIntegrationEndpoint)
	if err != nil {
		return nil, err
	}
	endpoints := make([]model.IntegrationEndpoint, len(recs))
	for i, rec := range recs {
		endpoints[i] = *toEndpointModel(rec)
	}
	return endpoints, nil
}

func (s *endpointStore) Create(ctx context.Context, endpoint *model.IntegrationEndpoint) error {
	rec, err := s.ds.Create(ctx, ModelIntegrationEndpoint, Record{
		"id":             endpoint.ID,
		"webhook_url":    endpoint.WebhookURL,
		"webhook_secret": endpoint.WebhookSecret,
	})
	if err != nil {
		return err
	}
	*endpoint = *toEndpointModel(rec)
	return nil
}

func (s *endpointStore) Delete(ctx context.Context, id int64) error {
	return s.ds.Delete(ctx, ModelIntegrationEndpoint, Eq("id", id))
}

func toEndpointModel(rec Record) *model.IntegrationEndpoint {
	return &model.IntegrationEndpoint{
		ID:            rec.ID(),
		WebhookURL:    rec.String("webhook_url"),
		WebhookSecret: optionalString(rec, "webhook_secret"),
		CreatedAt:     cast.ToTime(rec["created_at"]),
	}
}
