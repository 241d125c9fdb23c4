// Package expenses reads and updates the logged-in user's expense clusters.
//
// Every mutation loads the full users collection, changes the current
// user's record and writes the collection back in one replace. A failed
// lookup leaves the stored collection untouched.
package expenses

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"expense-ledger/internal/auth"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrClusterNotFound = errors.New("expense cluster not found")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCorruptData     = errors.New("stored user data is corrupt")
)

// Result is a filtered view of the user's clusters.
type Result struct {
	Clusters []models.ExpenseCluster
	Total    decimal.Decimal
	Filter   Filter
}

// Service is the query/update engine over a Store.
type Service struct {
	store  *storage.Store
	logger *applog.Logger
}

// NewService creates a new Service. A nil logger discards output.
func NewService(store *storage.Store, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{store: store, logger: logger.WithComponent(applog.ComponentExpenses)}
}

// ListClusters returns the session user's clusters as stored, unfiltered.
func (s *Service) ListClusters(ctx context.Context, sess auth.Session) ([]models.ExpenseCluster, error) {
	users, idx, err := s.loadUser(ctx, sess)
	if err != nil {
		return nil, s.fail(ctx, applog.OpList, sess, err)
	}
	return users[idx].ExpenseClusters, nil
}

// Query lists the session user's clusters, applies f and totals the result.
func (s *Service) Query(ctx context.Context, sess auth.Session, f Filter) (Result, error) {
	clusters, err := s.ListClusters(ctx, sess)
	if err != nil {
		return Result{}, err
	}
	filtered := FilterClusters(clusters, f)
	s.logger.DebugContext(ctx, "Clusters filtered",
		applog.FieldOperation, applog.OpFilter,
		applog.FieldUserID, sess.UserID,
		"matched", len(filtered))
	return Result{Clusters: filtered, Total: GrandTotal(filtered), Filter: f}, nil
}

// UpsertExpense saves e on the calendar day of date and returns the id of the cluster that holds it.
//
// An expense whose id already exists is first removed from its old cluster,
// which is dropped if that leaves it empty and it is not on date's day. The
// expense is then appended to the cluster for date. When no cluster exists for that day a new one is
// created with clusterIDHint as its id, or a fresh id when the hint is nil
// or already taken.
func (s *Service) UpsertExpense(ctx context.Context, sess auth.Session, date time.Time, e models.Expense, clusterIDHint uuid.UUID) (uuid.UUID, error) {
	if err := e.Validate(); err != nil {
		return uuid.Nil, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	users, idx, err := s.loadUser(ctx, sess)
	if err != nil {
		return uuid.Nil, s.fail(ctx, applog.OpUpsert, sess, err)
	}
	user := &users[idx]

	for i := range user.ExpenseClusters {
		old := &user.ExpenseClusters[i]
		j := old.IndexOf(e.ID)
		if j < 0 {
			continue
		}
		old.Expenses = slices.Delete(old.Expenses, j, j+1)
		// An emptied cluster on the target day is refilled below and keeps its place.
		if len(old.Expenses) == 0 && !models.SameDay(old.Date, date) {
			user.ExpenseClusters = slices.Delete(user.ExpenseClusters, i, i+1)
		}
		break
	}

	var clusterID uuid.UUID
	if target := user.ClusterForDay(date); target >= 0 {
		user.ExpenseClusters[target].Expenses = append(user.ExpenseClusters[target].Expenses, e)
		clusterID = user.ExpenseClusters[target].ID
	} else {
		clusterID = clusterIDHint
		if clusterID == uuid.Nil || hasCluster(*user, clusterID) {
			clusterID = uuid.New()
		}
		user.ExpenseClusters = append(user.ExpenseClusters, models.ExpenseCluster{
			ID:       clusterID,
			Date:     models.StartOfDay(date),
			Expenses: []models.Expense{e},
		})
	}

	if err := s.store.ReplaceAllUsers(ctx, users); err != nil {
		return uuid.Nil, s.fail(ctx, applog.OpUpsert, sess, err)
	}
	s.logger.InfoContext(ctx, "Expense saved",
		applog.FieldUserID, sess.UserID,
		applog.FieldClusterID, clusterID,
		applog.FieldDate, date.Format(time.DateOnly),
		applog.FieldExpenseID, e.ID)
	return clusterID, nil
}

// RemoveExpense deletes one expense and drops its cluster when it was the last one.
func (s *Service) RemoveExpense(ctx context.Context, sess auth.Session, clusterID, expenseID uuid.UUID) error {
	users, idx, err := s.loadUser(ctx, sess)
	if err != nil {
		return s.fail(ctx, applog.OpRemove, sess, err)
	}
	user := &users[idx]

	ci := slices.IndexFunc(user.ExpenseClusters, func(c models.ExpenseCluster) bool {
		return c.ID == clusterID
	})
	if ci < 0 {
		return s.fail(ctx, applog.OpRemove, sess, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID))
	}
	ei := user.ExpenseClusters[ci].IndexOf(expenseID)
	if ei < 0 {
		return s.fail(ctx, applog.OpRemove, sess, fmt.Errorf("%w: %s", ErrExpenseNotFound, expenseID))
	}

	user.ExpenseClusters[ci].Expenses = slices.Delete(user.ExpenseClusters[ci].Expenses, ei, ei+1)
	if len(user.ExpenseClusters[ci].Expenses) == 0 {
		user.ExpenseClusters = slices.Delete(user.ExpenseClusters, ci, ci+1)
	}

	if err := s.store.ReplaceAllUsers(ctx, users); err != nil {
		return s.fail(ctx, applog.OpRemove, sess, err)
	}
	s.logger.InfoContext(ctx, "Expense removed",
		applog.FieldUserID, sess.UserID,
		applog.FieldClusterID, clusterID,
		applog.FieldExpenseID, expenseID)
	return nil
}

// FindExpense returns an expense together with the cluster that holds it.
func (s *Service) FindExpense(ctx context.Context, sess auth.Session, expenseID uuid.UUID) (models.ExpenseCluster, models.Expense, error) {
	clusters, err := s.ListClusters(ctx, sess)
	if err != nil {
		return models.ExpenseCluster{}, models.Expense{}, err
	}
	for _, c := range clusters {
		if i := c.IndexOf(expenseID); i >= 0 {
			return c, c.Expenses[i], nil
		}
	}
	return models.ExpenseCluster{}, models.Expense{}, fmt.Errorf("%w: %s", ErrExpenseNotFound, expenseID)
}

// CountExpenses returns how many expenses the session user has recorded.
func (s *Service) CountExpenses(ctx context.Context, sess auth.Session) (int, error) {
	users, idx, err := s.loadUser(ctx, sess)
	if err != nil {
		return 0, s.fail(ctx, applog.OpList, sess, err)
	}
	return users[idx].ExpenseCount(), nil
}

// loadUser returns the whole collection and the index of the session user in it.
func (s *Service) loadUser(ctx context.Context, sess auth.Session) ([]models.User, int, error) {
	users, err := s.store.GetAllUsers(ctx)
	switch {
	case errors.Is(err, storage.ErrNoUsers):
		return nil, -1, fmt.Errorf("%w: %s", ErrUserNotFound, sess.UserID)
	case errors.Is(err, storage.ErrDecode):
		return nil, -1, fmt.Errorf("%w: %w", ErrCorruptData, err)
	case err != nil:
		return nil, -1, err
	}
	idx := slices.IndexFunc(users, func(u models.User) bool { return u.ID == sess.UserID })
	if idx < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrUserNotFound, sess.UserID)
	}
	return users, idx, nil
}

func (s *Service) fail(ctx context.Context, op string, sess auth.Session, err error) error {
	s.logger.ErrorContext(ctx, "Expense operation failed",
		applog.FieldOperation, op,
		applog.FieldUserID, sess.UserID,
		applog.FieldError, err)
	return err
}

func hasCluster(u models.User, id uuid.UUID) bool {
	return slices.ContainsFunc(u.ExpenseClusters, func(c models.ExpenseCluster) bool { return c.ID == id })
}
