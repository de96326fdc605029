package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/crmsync/internal/http/handler"
	"basegraph.app/crmsync/internal/http/middleware"
)

func AttioRouter(rg *gin.RouterGroup, h *handler.AttioHandler, cfg RouterConfig) {
	// Attio authenticates with the shared secret, not the admin key.
	rg.POST("/webhook", middleware.RateLimit(cfg.InboundRPS, cfg.InboundBurst), h.Webhook)

	admin := rg.Group("", middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
	admin.POST("/link", h.Link)
	admin.DELETE("/link/:id", h.Unlink)
	admin.GET("/endpoints", h.ListEndpoints)
	admin.GET("/adapters", h.Adapters)
	admin.GET("/schema", h.Schema)
}
