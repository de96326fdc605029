package dto

import (
	"time"

	"basegraph.app/crmsync/internal/model"
)

type CreateOrganizationRequest struct {
	Name string  `json:"name" binding:"required,min=1,max=255"`
	Slug *string `json:"slug,omitempty" binding:"omitempty,min=1,max=255"`
}

type UpdateOrganizationRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Slug *string `json:"slug,omitempty" binding:"omitempty,min=1,max=255"`
}

type OrganizationResponse struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	AttioID   *string   `json:"attio_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToOrganizationResponse(org *model.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		AttioID:   org.AttioID,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}

func ToOrganizationResponses(orgs []model.Organization) []*OrganizationResponse {
	out := make([]*OrganizationResponse, len(orgs))
	for i := range orgs {
		out[i] = ToOrganizationResponse(&orgs[i])
	}
	return out
}
