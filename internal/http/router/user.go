package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/crmsync/internal/http/handler"
)

func UserRouter(rg *gin.RouterGroup, h *handler.UserHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
