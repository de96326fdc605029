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

type UpdateUserParams struct {
	Name      *string
	Email     *string
	AvatarURL *string
}

type UserService interface {
	Create(ctx context.Context, name, email string, avatarURL *string) (*model.User, error)
	Get(ctx context.Context, userID int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, userID int64, params UpdateUserParams) (*model.User, error)
	// Delete removes the user's memberships before the user, in one transaction.
	Delete(ctx context.Context, userID int64) error
}

type userService struct {
	userStore store.UserStore
	txRunner  TxRunner
}

func NewUserService(userStore store.UserStore, txRunner TxRunner) UserService {
	return &userService{
		userStore: userStore,
		txRunner:  txRunner,
	}
}

func (s *userService) Create(ctx context.Context, name, email string, avatarURL *string) (*model.User, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}

	user := &model.User{
		ID:        id.New(),
		Name:      name,
		Email:     email,
		AvatarURL: avatarURL,
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		slog.ErrorContext(ctx, "failed to create user",
			"error", err,
			"email", email,
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	slog.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, nil
}

func (s *userService) Get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, userID int64, params UpdateUserParams) (*model.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.AvatarURL != nil {
		user.AvatarURL = params.AvatarURL
		if *params.AvatarURL == "" {
			user.AvatarURL = nil
		}
	}
	if user.Name == "" || user.Email == "" {
		return nil, fmt.Errorf("%w: name and email cannot be empty", ErrInvalidInput)
	}

	if err := s.userStore.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	slog.InfoContext(ctx, "user updated", "user_id", user.ID)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, userID int64) error {
	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if _, err := sp.Users().GetByID(ctx, userID); err != nil {
			return err
		}
		if err := sp.Members().DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		if err := sp.Users().Delete(ctx, userID); err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting user: %w", err)
	}

	slog.InfoContext(ctx, "user deleted", "user_id", userID)
	return nil
}
