package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"basegraph.app/crmsync/internal/attio"
	"basegraph.app/crmsync/internal/http/handler"
	"basegraph.app/crmsync/internal/http/middleware"
	"basegraph.app/crmsync/internal/metrics"
	"basegraph.app/crmsync/internal/service"
)

type RouterConfig struct {
	AdminAPIKey  string
	InboundRPS   float64
	InboundBurst int
}

func SetupRoutes(router *gin.Engine, services *service.Services, registry *attio.Registry, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		attioHandler := handler.NewAttioHandler(services.Webhooks(), services.Endpoints(), registry)
		AttioRouter(v1.Group("/attio"), attioHandler, cfg)

		admin := middleware.RequireAdminAPIKey(cfg.AdminAPIKey)

		userHandler := handler.NewUserHandler(services.Users())
		UserRouter(v1.Group("/users", admin), userHandler)

		orgHandler := handler.NewOrganizationHandler(services.Organizations(), services.Members())
		OrganizationRouter(v1.Group("/organizations", admin), orgHandler)
	}
}
