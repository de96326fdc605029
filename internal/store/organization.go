package store

import (
	"context"

	"basegraph.app/crmsync/internal/model"
	"github.com/spf13/cast"
)

type organizationStore struct {
	ds DataStore
}

func newOrganizationStore(ds DataStore) OrganizationStore {
	return &organizationStore{ds: ds}
}

func (s *organizationStore) GetByID(ctx context.Context, id int64) (*model.Organization, error) {
	rec, err := s.ds.FindOne(ctx, ModelOrganization, Eq("id", id))
	if err != nil {
		return nil, err
	}
	return toOrganizationModel(rec), nil
}

func (s *organizationStore) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	rec, err := s.ds.FindOne(ctx, ModelOrganization, Eq("slug", slug))
	if err != nil {
		return nil, err
	}
	return toOrganizationModel(rec), nil
}

func (s *organizationStore) List(ctx context.Context) ([]model.Organization, error) {
	recs, err := s.ds.FindMany(ctx, ModelOrganization)
	if err != nil {
		return nil, err
	}
	orgs := make([]model.Organization, len(recs))
	for i, rec := range recs {
		orgs[i] = *toOrganizationModel(rec)
	}
	return orgs, nil
}

func (s *organizationStore) Create(ctx context.Context, org *model.Organization) error {
	rec, err := s.ds.Create(ctx, ModelOrganization, Record{
		"id":       org.ID,
		"name":     org.Name,
		"slug":     org.Slug,
		"attio_id": org.AttioID,
	})
	if err != nil {
		return err
	}
	*org = *toOrganizationModel(rec)
	return nil
}

func (s *organizationStore) Update(ctx context.Context, org *model.Organization) error {
	recs, err := s.ds.Update(ctx, ModelOrganization, []Where{Eq("id", org.ID)}, Record{
		"name": org.Name,
		"slug": org.Slug,
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return ErrNotFound
	}
	*org = *toOrganizationModel(recs[0])
	return nil
}

func (s *organizationStore) Delete(ctx context.Context, id int64) error {
	return s.ds.Delete(ctx, ModelOrganization, Eq("id", id))
}

func toOrganizationModel(rec Record) *model.Organization {
	return &model.Organization{
		ID:        rec.ID(),
		Name:      rec.String("name"),
		Slug:      rec.String("slug"),
		AttioID:   optionalString(rec, AttioIDField),
		CreatedAt: cast.ToTime(rec["created_at"]),
		UpdatedAt: cast.ToTime(rec["updated_at"]),
	}
}
