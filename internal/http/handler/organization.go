package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/crmsync/internal/http/dto"
	"basegraph.app/crmsync/internal/service"
)

type OrganizationHandler struct {
	orgService    service.OrganizationService
	memberService service.MemberService
}

func NewOrganizationHandler(orgService service.OrganizationService, memberService service.MemberService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:    orgService,
		memberService: memberService,
	}
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, err, "failed to create organization")
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationResponse(org))
}

func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list organizations")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationResponses(orgs))
}

func (h *OrganizationHandler) GetByID(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	org, err := h.orgService.Get(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err, "failed to get organization")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationResponse(org))
}

func (h *OrganizationHandler) Update(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), orgID, service.UpdateOrganizationParams{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		respondError(c, err, "failed to update organization")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrganizationResponse(org))
}

func (h *OrganizationHandler) Delete(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orgService.Delete(c.Request.Context(), orgID); err != nil {
		respondError(c, err, "failed to delete organization")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	members, err := h.memberService.List(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err, "failed to list members")
		return
	}
	c.JSON(http.StatusOK, dto.ToMemberResponses(members))
}

func (h *OrganizationHandler) AddMember(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.memberService.Add(c.Request.Context(), orgID, req.UserID, req.Role)
	if err != nil {
		respondError(c, err, "failed to add member")
		return
	}
	c.JSON(http.StatusCreated, dto.ToMemberResponse(member))
}

func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.memberService.Remove(c.Request.Context(), orgID, userID); err != nil {
		respondError(c, err, "failed to remove member")
		return
	}
	c.Status(http.StatusNoContent)
}
