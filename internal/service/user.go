package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

type UserService struct {
	store   repository.Store
	catalog *content.Catalog
}

func NewUserService(store repository.Store, catalog *content.Catalog) *UserService {
	return &UserService{store: store, catalog: catalog}
}

// FindOrCreate returns the user for a telegram id, creating the record on
// first contact. The boolean result reports whether the user is new.
func (s *UserService) FindOrCreate(ctx context.Context, telegramID int64, firstName, lastName, username, timezone string, isAdmin bool) (*domain.User, bool, error) {
	user, err := s.store.UserByTelegramID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("get user: %w", err)
	}

	user, err = s.store.CreateUser(ctx, repository.CreateUserParams{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Timezone:   timezone,
		IsAdmin:    isAdmin,
		Code:       s.catalog.CodeTemplate(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func (s *UserService) ByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	return s.store.UserByTelegramID(ctx, telegramID)
}

func (s *UserService) UpdateInfo(ctx context.Context, userID int64, firstName, lastName, username string) error {
	return s.store.UpdateUserInfo(ctx, userID, firstName, lastName, username)
}

// TouchActivity stamps last_activity; reminder eligibility is derived from
// this timestamp.
func (s *UserService) TouchActivity(ctx context.Context, userID int64) error {
	return s.store.TouchUserActivity(ctx, userID, time.Now().UTC())
}
