package model

import "time"

// DefaultMemberRole is given to memberships created without an explicit role,
// including every membership created while reconciling an inbound organization.
const DefaultMemberRole = "member"

type Member struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	UserID         int64     `json:"user_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}
