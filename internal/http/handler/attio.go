package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/crmsync/common/logger"
	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/http/dto"
	"basegraph.app/crmsync/internal/service"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw body in signature auth mode.
	SignatureHeader = "Attio-Signature"

	maxWebhookBodyBytes = 5 << 20
)

type AttioHandler struct {
	webhookService  service.WebhookService
	endpointService service.EndpointService
	registry        *attio.Registry
}

func NewAttioHandler(webhookService service.WebhookService, endpointService service.EndpointService, registry *attio.Registry) *AttioHandler {
	return &AttioHandler{
		webhookService:  webhookService,
		endpointService: endpointService,
		registry:        registry,
	}
}

// Webhook authenticates an inbound batch and reconciles every event before answering.
// The response is a success as soon as all events were attempted; per-event failures are only
// reflected in the counts.
func (h *AttioHandler) Webhook(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Component: "crmsync.http.webhook",
	})

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	var batch attio.WebhookBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		slog.WarnContext(ctx, "invalid webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.webhookService.Authenticate(raw, batch, c.GetHeader(SignatureHeader)); err != nil {
		slog.WarnContext(ctx, "webhook authentication failed", "events", len(batch.Events))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	res := h.webhookService.Process(ctx, batch)
	c.JSON(http.StatusOK, dto.WebhookResponse{Success: true, Result: res})
}

func (h *AttioHandler) Link(c *gin.Context) {
	var req dto.LinkRequest
	if !bindJSON(c, &req) {
		return
	}

	endpoint, err := h.endpointService.Link(c.Request.Context(), req.WebhookURL, req.WebhookSecret)
	if err != nil {
		respondError(c, err, "failed to link endpoint")
		return
	}
	c.JSON(http.StatusCreated, dto.ToEndpointResponse(endpoint))
}

func (h *AttioHandler) Unlink(c *gin.Context) {
	endpointID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.endpointService.Unlink(c.Request.Context(), endpointID); err != nil {
		respondError(c, err, "failed to unlink endpoint")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AttioHandler) ListEndpoints(c *gin.Context) {
	endpoints, err := h.endpointService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list endpoints")
		return
	}
	c.JSON(http.StatusOK, dto.ToEndpointResponses(endpoints))
}

func (h *AttioHandler) Adapters(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToAdapterResponses(h.registry.Adapters()))
}

func (h *AttioHandler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, attio.EnvelopeSchema())
}
