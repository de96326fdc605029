package store

import (
	"context"

	"basegraph.app/crmsync/internal/model"
	"github.com/spf13/cast"
)

type userStore struct {
	ds DataStore
}

func newUserStore(ds DataStore) UserStore {
	return &userStore{ds: ds}
}

func (s *userStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	rec, err := s.ds.FindOne(ctx, ModelUser, Eq("id", id))
	if err != nil {
		return nil, err
	}
	return toUserModel(rec), nil
}

func (s *userStore) GetByAttioID(ctx context.Context, attioID string) (*model.User, error) {
	rec, err := s.ds.FindOne(ctx, ModelUser, Eq(AttioIDField, attioID))
	if err != nil {
		return nil, err
	}
	return toUserModel(rec), nil
}

func (s *userStore) List(ctx context.Context) ([]model.User, error) {
	recs, err := s.ds.FindMany(ctx, ModelUser)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, len(recs))
	for i, rec := range recs {
		users[i] = *toUserModel(rec)
	}
	return users, nil
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	rec, err := s.ds.Create(ctx, ModelUser, Record{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"attio_id":   user.AttioID,
	})
	if err != nil {
		return err
	}
	*user = *toUserModel(rec)
	return nil
}

// Update writes name, email and avatar. attio_id is owned by the sync engine.
func (s *userStore) Update(ctx context.Context, user *model.User) error {
	recs, err := s.ds.Update(ctx, ModelUser, []Where{Eq("id", user.ID)}, Record{
		"name":       user.Name,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return ErrNotFound
	}
	*user = *toUserModel(recs[0])
	return nil
}

func (s *userStore) Delete(ctx context.Context, id int64) error {
	return s.ds.Delete(ctx, ModelUser, Eq("id", id))
}

func toUserModel(rec Record) *model.User {
	return &model.User{
		ID:        rec.ID(),
		Name:      rec.String("name"),
		Email:     rec.String("email"),
		AvatarURL: optionalString(rec, "avatar_url"),
		AttioID:   optionalString(rec, AttioIDField),
		CreatedAt: cast.ToTime(rec["created_at"]),
		UpdatedAt: cast.ToTime(rec["updated_at"]),
	}
}

func optionalString(rec Record, key string) *string {
	v := rec.String(key)
	if v == "" {
		return nil
	}
	return &v
}
