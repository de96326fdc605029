package dto

import (
	"time"

	"basegraph.app/crmsync/internal/model"
)

type AddMemberRequest struct {
	UserID int64  `json:"user_id,string" binding:"required"`
	Role   string `json:"role,omitempty" binding:"omitempty,max=64"`
}

type MemberResponse struct {
	ID             int64     `json:"id,string"`
	OrganizationID int64     `json:"organization_id,string"`
	UserID         int64     `json:"user_id,string"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToMemberResponse(m *model.Member) *MemberResponse {
	return &MemberResponse{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		Role:           m.Role,
		CreatedAt:      m.CreatedAt,
	}
}

func ToMemberResponses(members []model.Member) []*MemberResponse {
	out := make([]*MemberResponse, len(members))
	for i := range members {
		out[i] = ToMemberResponse(&members[i])
	}
	return out
}
