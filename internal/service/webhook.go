package service

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"basegraph.app/crmsync/core/config"
	"basegraph.app/crmsync/internal/attio"
)

// WebhookService authenticates and processes inbound Attio batches.
type WebhookService interface {
	// Authenticate checks the shared secret carried in the batch body, or the signature header
	// over the raw body, depending on the configured mode.
	Authenticate(raw []byte, batch attio.WebhookBatch, signature string) error
	Process(ctx context.Context, batch attio.WebhookBatch) attio.Result
}

type webhookService struct {
	reconciler *attio.Reconciler
	secret     string
	mode       config.AuthMode
}

func NewWebhookService(reconciler *attio.Reconciler, secret string, mode config.AuthMode) WebhookService {
	if mode == "" {
		mode = config.AuthModeBody
	}
	return &webhookService{
		reconciler: reconciler,
		secret:     secret,
		mode:       mode,
	}
}

func (s *webhookService) Authenticate(raw []byte, batch attio.WebhookBatch, signature string) error {
	if s.secret == "" {
		return ErrUnauthorized
	}

	switch s.mode {
	case config.AuthModeSignature:
		if signature == "" || !attio.VerifySignature(s.secret, raw, signature) {
			return ErrUnauthorized
		}
	default:
		if subtle.ConstantTimeCompare([]byte(batch.Secret), []byte(s.secret)) != 1 {
			return ErrUnauthorized
		}
	}
	return nil
}

func (s *webhookService) Process(ctx context.Context, batch attio.WebhookBatch) attio.Result {
	res := s.reconciler.Reconcile(ctx, batch)
	slog.InfoContext(ctx, "attio webhook batch processed",
		"events", len(batch.Events),
		"processed", res.Processed,
		"skipped", res.Skipped,
		"failed", res.Failed)
	return res
}
