package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"basegraph.app/crmsync/internal/service"
	"basegraph.app/crmsync/internal/store"
)

// respondError maps service and store sentinels to status codes. Anything else is a 500 with
// the given message; the underlying error is logged, never returned.
func respondError(c *gin.Context, err error, fallback string) {
	ctx := c.Request.Context()

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrEndpointNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrConflict), errors.As(err, &pgErr) && pgErr.Code == "23505":
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, service.ErrInvalidWebhookURL), errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		slog.ErrorContext(ctx, fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
