package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/crmsync/internal/http/dto"
	"basegraph.app/crmsync/internal/service"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req.Name, req.Email, req.AvatarURL)
	if err != nil {
		respondError(c, err, "failed to create user")
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserResponse(user))
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list users")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponses(users))
}

func (h *UserHandler) GetByID(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), userID, service.UpdateUserParams{
		Name:      req.Name,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondError(c, err, "failed to update user")
		return
	}
	c.JSON(http.StatusOK, dto.ToUserResponse(user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), userID); err != nil {
		respondError(c, err, "failed to delete user")
		return
	}
	c.Status(http.StatusNoContent)
}
