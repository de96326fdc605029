package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

type MemberService interface {
	List(ctx context.Context, orgID int64) ([]model.Member, error)
	Add(ctx context.Context, orgID, userID int64, role string) (*model.Member, error)
	Remove(ctx context.Context, orgID, userID int64) error
}

type memberService struct {
	memberStore store.MemberStore
	orgStore    store.OrganizationStore
	userStore   store.UserStore
}

func NewMemberService(memberStore store.MemberStore, orgStore store.OrganizationStore, userStore store.UserStore) MemberService {
	return &memberService{
		memberStore: memberStore,
		orgStore:    orgStore,
		userStore:   userStore,
	}
}

func (s *memberService) List(ctx context.Context, orgID int64) ([]model.Member, error) {
	if _, err := s.orgStore.GetByID(ctx, orgID); err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	members, err := s.memberStore.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

func (s *memberService) Add(ctx context.Context, orgID, userID int64, role string) (*model.Member, error) {
	if _, err := s.orgStore.GetByID(ctx, orgID); err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	if _, err := s.userStore.GetByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	if role == "" {
		role = model.DefaultMemberRole
	}
	member := &model.Member{
		ID:             id.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
	if err := s.memberStore.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}

	slog.InfoContext(ctx, "member added", "organization_id", orgID, "user_id", userID)
	return member, nil
}

func (s *memberService) Remove(ctx context.Context, orgID, userID int64) error {
	if _, err := s.memberStore.Get(ctx, orgID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("getting member: %w", err)
	}
	if err := s.memberStore.Delete(ctx, orgID, userID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}

	slog.InfoContext(ctx, "member removed", "organization_id", orgID, "user_id", userID)
	return nil
}
