package store

import (
	"context"

	"basegraph.app/crmsync/internal/model"
	"github.com/spf13/cast"
)

type memberStore struct {
	ds DataStore
}

func newMemberStore(ds DataStore) MemberStore {
	return &memberStore{ds: ds}
}

func (s *memberStore) ListByOrganization(ctx context.Context, orgID int64) ([]model.Member, error) {
	return s.list(ctx, Eq("organization_id", orgID))
}

func (s *memberStore) ListByUser(ctx context.Context, userID int64) ([]model.Member, error) {
	return s.list(ctx, Eq("user_id", userID))
}

func (s *memberStore) Get(ctx context.Context, orgID, userID int64) (*model.Member, error) {
	rec, err := s.ds.FindOne(ctx, ModelMember, Eq("organization_id", orgID), Eq("user_id", userID))
	if err != nil {
		return nil, err
	}
	return toMemberModel(rec), nil
}

func (s *memberStore) Create(ctx context.Context, member *model.Member) error {
	role := member.Role
	if role == "" {
		role = model.DefaultMemberRole
	}
	rec, err := s.ds.Create(ctx, ModelMember, Record{
		"id":              member.ID,
		"organization_id": member.OrganizationID,
		"user_id":         member.UserID,
		"role":            role,
	})
	if err != nil {
		return err
	}
	*member = *toMemberModel(rec)
	return nil
}

func (s *memberStore) Delete(ctx context.Context, orgID, userID int64) error {
	return s.ds.Delete(ctx, ModelMember, Eq("organization_id", orgID), Eq("user_id", userID))
}

func (s *memberStore) DeleteByOrganization(ctx context.Context, orgID int64) error {
	return s.ds.Delete(ctx, ModelMember, Eq("organization_id", orgID))
}

func (s *memberStore) DeleteByUser(ctx context.Context, userID int64) error {
	return s.ds.Delete(ctx, ModelMember, Eq("user_id", userID))
}

func (s *memberStore) list(ctx context.Context, where ...Where) ([]model.Member, error) {
	recs, err := s.ds.FindMany(ctx, ModelMember, where...)
	if err != nil {
		return nil, err
	}
	members := make([]model.Member, len(recs))
	for i, rec := range recs {
		members[i] = *toMemberModel(rec)
	}
	return members, nil
}

func toMemberModel(rec Record) *model.Member {
	return &model.Member{
		ID:             rec.ID(),
		OrganizationID: cast.ToInt64(rec["organization_id"]),
		UserID:         cast.ToInt64(rec["user_id"]),
		Role:           rec.String("role"),
		CreatedAt:      cast.ToTime(rec["created_at"]),
	}
}
