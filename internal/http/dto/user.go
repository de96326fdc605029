package dto

import (
	"time"

	"basegraph.app/crmsync/internal/model"
)

type CreateUserRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=255"`
	Email     string  `json:"email" binding:"required,email,max=255"`
	AvatarURL *string `json:"avatar_url,omitempty" binding:"omitempty,url,max=2048"`
}

type UpdateUserRequest struct {
	Name      *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Email     *string `json:"email,omitempty" binding:"omitempty,email,max=255"`
	AvatarURL *string `json:"avatar_url,omitempty" binding:"omitempty,max=2048"`
}

type UserResponse struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	AttioID   *string   `json:"attio_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		AttioID:   u.AttioID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponses(users []model.User) []*UserResponse {
	out := make([]*UserResponse, len(users))
	for i := range users {
		out[i] = ToUserResponse(&users[i])
	}
	return out
}
