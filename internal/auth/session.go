package auth

import (
	"context"
	"errors"
	"fmt"

	applog "expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"github.com/google/uuid"
)

// Session identifies the locally logged-in user. It is passed explicitly to
// every operation that reads or writes that user's expenses.
type Session struct {
	UserID uuid.UUID
	Name   string
}

// NewSession returns the session for u.
func NewSession(u models.User) Session {
	return Session{UserID: u.ID, Name: u.Name}
}

// Service logs users in and out of the local store.
type Service struct {
	store  *storage.Store
	logger *applog.Logger
}

// NewService creates a new Service. A nil logger discards output.
func NewService(store *storage.Store, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{store: store, logger: logger.WithComponent(applog.ComponentAuth)}
}

// Login validates name and makes the matching user current, creating the
// user on first login. An existing record with the same name is reused
// together with its expense history.
func (s *Service) Login(ctx context.Context, name string) (models.User, error) {
	if err := ValidateUsername(name); err != nil {
		return models.User{}, err
	}

	users, err := s.store.GetAllUsers(ctx)
	if errors.Is(err, storage.ErrNoUsers) {
		users = []models.User{}
	} else if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load users", applog.FieldOperation, applog.OpLogin, applog.FieldError, err)
		return models.User{}, fmt.Errorf("load users: %w", err)
	}

	var user models.User
	found := false
	for _, u := range users {
		if u.Name == name {
			user, found = u, true
			break
		}
	}

	if !found {
		user = models.NewUser(name)
		users = append(users, user)
		if err := s.store.ReplaceAllUsers(ctx, users); err != nil {
			return models.User{}, fmt.Errorf("save new user: %w", err)
		}
		s.logger.InfoContext(ctx, "User created", applog.FieldUserID, user.ID)
	}

	if err := s.store.SetCurrentUser(ctx, user.ID, user.Name); err != nil {
		return models.User{}, fmt.Errorf("set current user: %w", err)
	}
	s.logger.InfoContext(ctx, "User logged in", applog.FieldUserID, user.ID, "existing", found)
	return user, nil
}

// Logout clears the current-user pointer. No user data is removed.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.ClearCurrentUser(ctx); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	s.logger.InfoContext(ctx, "User logged out", applog.FieldOperation, applog.OpLogout)
	return nil
}

// Current returns the session of the logged-in user or storage.ErrNotLoggedIn.
func (s *Service) Current(ctx context.Context) (Session, error) {
	id, err := s.store.GetCurrentUserID(ctx)
	if err != nil {
		return Session{}, err
	}
	name, ok, err := s.store.GetCurrentUserName(ctx)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		s.logger.WarnContext(ctx, "Current user id is set without a name", applog.FieldUserID, id)
	}
	return Session{UserID: id, Name: name}, nil
}

// CurrentName is used at startup to choose between the login prompt and the home list.
func (s *Service) CurrentName(ctx context.Context) (string, bool, error) {
	return s.store.GetCurrentUserName(ctx)
}
