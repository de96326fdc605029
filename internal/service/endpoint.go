package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

// EndpointService links and unlinks the receivers outbound events fan out to.
type EndpointService interface {
	Link(ctx context.Context, webhookURL string, secret *string) (*model.IntegrationEndpoint, error)
	Unlink(ctx context.Context, endpointID int64) error
	List(ctx context.Context) ([]model.IntegrationEndpoint, error)
}

type endpointService struct {
	endpointStore store.EndpointStore
}

func NewEndpointService(endpointStore store.EndpointStore) EndpointService {
	return &endpointService{endpointStore: endpointStore}
}

func (s *endpointService) Link(ctx context.Context, webhookURL string, secret *string) (*model.IntegrationEndpoint, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if err := validateWebhookURL(webhookURL); err != nil {
		return nil, err
	}
	if secret != nil && *secret == "" {
		secret = nil
	}

	endpoint := &model.IntegrationEndpoint{
		ID:            id.New(),
		WebhookURL:    webhookURL,
		WebhookSecret: secret,
	}
	if err := s.endpointStore.Create(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("creating endpoint: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{EndpointID: logger.Ptr(endpoint.ID)})
	slog.InfoContext(ctx, "integration endpoint linked", "signed", endpoint.HasSecret())
	return endpoint, nil
}

func (s *endpointService) Unlink(ctx context.Context, endpointID int64) error {
	if _, err := s.endpointStore.GetByID(ctx, endpointID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEndpointNotFound
		}
		return fmt.Errorf("getting endpoint: %w", err)
	}

	if err := s.endpointStore.Delete(ctx, endpointID); err != nil {
		return fmt.Errorf("deleting endpoint: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{EndpointID: logger.Ptr(endpointID)})
	slog.InfoContext(ctx, "integration endpoint unlinked")
	return nil
}

func (s *endpointService) List(ctx context.Context) ([]model.IntegrationEndpoint, error) {
	endpoints, err := s.endpointStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	return endpoints, nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidWebhookURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidWebhookURL
	}
	return nil
}
