package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/crmsync/common"
	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/internal/model"
	"basegraph.app/crmsync/internal/store"
)

const maxSlugAttempts = 20

type UpdateOrganizationParams struct {
	Name *string
	Slug *string
}

type OrganizationService interface {
	Create(ctx context.Context, name string, slug *string) (*model.Organization, error)
	Get(ctx context.Context, orgID int64) (*model.Organization, error)
	List(ctx context.Context) ([]model.Organization, error)
	Update(ctx context.Context, orgID int64, params UpdateOrganizationParams) (*model.Organization, error)
	// Delete removes all memberships before the organization, in one transaction.
	Delete(ctx context.Context, orgID int64) error
}

type organizationService struct {
	orgStore store.OrganizationStore
	txRunner TxRunner
}

func NewOrganizationService(orgStore store.OrganizationStore, txRunner TxRunner) OrganizationService {
	return &organizationService{
		orgStore: orgStore,
		txRunner: txRunner,
	}
}

func (s *organizationService) Create(ctx context.Context, name string, slug *string) (*model.Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	finalSlug, err := s.ensureSlug(ctx, name, slug, 0)
	if err != nil {
		return nil, err
	}

	org := &model.Organization{
		ID:   id.New(),
		Name: name,
		Slug: finalSlug,
	}

	if err := s.orgStore.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	slog.InfoContext(ctx, "organization created", "organization_id", org.ID, "slug", org.Slug)
	return org, nil
}

func (s *organizationService) Get(ctx context.Context, orgID int64) (*model.Organization, error) {
	org, err := s.orgStore.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) List(ctx context.Context) ([]model.Organization, error) {
	orgs, err := s.orgStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

func (s *organizationService) Update(ctx context.Context, orgID int64, params UpdateOrganizationParams) (*model.Organization, error) {
	org, err := s.orgStore.GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}

	if params.Name != nil {
		if *params.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		org.Name = *params.Name
	}
	if params.Slug != nil {
		slug, err := s.ensureSlug(ctx, org.Name, params.Slug, org.ID)
		if err != nil {
			return nil, err
		}
		org.Slug = slug
	}

	if err := s.orgStore.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("updating organization: %w", err)
	}

	slog.InfoContext(ctx, "organization updated", "organization_id", org.ID)
	return org, nil
}

func (s *organizationService) Delete(ctx context.Context, orgID int64) error {
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if _, err := sp.Organizations().GetByID(ctx, orgID); err != nil {
			return err
		}
		if err := sp.Members().DeleteByOrganization(ctx, orgID); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		if err := sp.Organizations().Delete(ctx, orgID); err != nil {
			return fmt.Errorf("deleting organization: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting organization: %w", err)
	}

	slog.InfoContext(ctx, "organization deleted", "organization_id", orgID)
	return nil
}

// ensureSlug returns the first free slug derived from slug or name. owner is the organization
// allowed to already hold it (0 on create).
func (s *organizationService) ensureSlug(ctx context.Context, name string, slug *string, owner int64) (string, error) {
	input := name
	if slug != nil && *slug != "" {
		input = *slug
	}

	base, err := common.Slugify(input, "org")
	if err != nil {
		return "", fmt.Errorf("generating slug: %w", err)
	}

	for i := 0; i <= maxSlugAttempts; i++ {
		candidate := common.WithSuffix(base, i)
		existing, err := s.orgStore.GetBySlug(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking slug availability: %w", err)
		}
		if owner != 0 && existing.ID == owner {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("unable to find available slug for %q", base)
}
