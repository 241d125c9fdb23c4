package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	applog "expense-ledger/internal/log"
	"expense-ledger/internal/models"

	"github.com/google/uuid"
)

// Keys the store writes into its KV.
const (
	KeyUsersInfo       = "usersInfo"
	KeyCurrentUserID   = "currentUserId"
	KeyCurrentUserName = "currentUserName"
)

var (
	// ErrDecode means the stored users collection is absent or malformed.
	ErrDecode = errors.New("decode users")
	// ErrNoUsers means nothing has been stored yet. It matches ErrDecode.
	ErrNoUsers = fmt.Errorf("%w: no users stored", ErrDecode)
	// ErrNotLoggedIn means no current user is set.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrDuplicateUser is returned when a collection holds two records with one id.
	ErrDuplicateUser = errors.New("duplicate user id")
)

// Store persists the users collection and the current-user pointer.
// Every write of the collection replaces it as a whole.
type Store struct {
	kv     KV
	logger *applog.Logger
}

// NewStore wraps kv. A nil logger discards output.
func NewStore(kv KV, logger *applog.Logger) *Store {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Store{kv: kv, logger: logger.WithComponent(applog.ComponentStorage)}
}

// GetAllUsers returns every stored user in stored order.
func (s *Store) GetAllUsers(ctx context.Context) ([]models.User, error) {
	raw, err := s.kv.Get(ctx, KeyUsersInfo)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrNoUsers
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyUsersInfo, err)
	}
	users, err := DecodeUsers(raw)
	if err != nil {
		s.logger.ErrorContext(ctx, "Stored users are malformed", applog.FieldKey, KeyUsersInfo, applog.FieldError, err)
		return nil, err
	}
	return users, nil
}

// ReplaceAllUsers overwrites the whole collection. Last writer wins.
func (s *Store) ReplaceAllUsers(ctx context.Context, users []models.User) error {
	raw, err := EncodeUsers(users)
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, Entry{Key: KeyUsersInfo, Value: raw}); err != nil {
		return fmt.Errorf("write %s: %w", KeyUsersInfo, err)
	}
	s.logger.DebugContext(ctx, "Users replaced", "count", len(users))
	return nil
}

// GetCurrentUserID returns the logged-in user's id or ErrNotLoggedIn.
func (s *Store) GetCurrentUserID(ctx context.Context) (uuid.UUID, error) {
	raw, err := s.kv.Get(ctx, KeyCurrentUserID)
	if errors.Is(err, ErrKeyNotFound) {
		return uuid.Nil, ErrNotLoggedIn
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read %s: %w", KeyCurrentUserID, err)
	}
	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: current user id: %v", ErrDecode, err)
	}
	return id, nil
}

// GetCurrentUserName returns the logged-in user's name. ok is false when nobody is logged in.
func (s *Store) GetCurrentUserName(ctx context.Context) (name string, ok bool, err error) {
	raw, err := s.kv.Get(ctx, KeyCurrentUserName)
	if errors.Is(err, ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", KeyCurrentUserName, err)
	}
	return string(raw), true, nil
}

// SetCurrentUser records id and name as the logged-in user in one write.
func (s *Store) SetCurrentUser(ctx context.Context, id uuid.UUID, name string) error {
	return s.kv.Put(ctx,
		Entry{Key: KeyCurrentUserID, Value: []byte(id.String())},
		Entry{Key: KeyCurrentUserName, Value: []byte(name)},
	)
}

// ClearCurrentUser forgets the logged-in user. Stored users are untouched.
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyCurrentUserID, KeyCurrentUserName)
}

// Close closes the underlying KV.
func (s *Store) Close() error {
	return s.kv.Close()
}

// EncodeUsers serializes users as a JSON array.
func EncodeUsers(users []models.User) ([]byte, error) {
	seen := make(map[uuid.UUID]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUser, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	if users == nil {
		users = []models.User{}
	}
	return json.Marshal(users)
}

// DecodeUsers parses the output of EncodeUsers.
func DecodeUsers(raw []byte) ([]models.User, error) {
	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}
