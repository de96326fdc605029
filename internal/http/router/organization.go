package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/crmsync/internal/http/handler"
)

func OrganizationRouter(rg *gin.RouterGroup, h *handler.OrganizationHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)

	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.DELETE("/:id/members/:user_id", h.RemoveMember)
}
