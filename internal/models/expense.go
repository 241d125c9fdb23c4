package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxTitleLength is the longest title an expense form accepts.
const MaxTitleLength = 40

var (
	ErrEmptyTitle    = errors.New("title cannot be empty")
	ErrTitleTooLong  = errors.New("title is too long (max 40 characters)")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Expense is a single line item recorded on a day.
type Expense struct {
	ID     uuid.UUID       `json:"id"`
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
}

// NewExpense returns an expense with a fresh id.
func NewExpense(title string, amount decimal.Decimal) Expense {
	return Expense{ID: uuid.New(), Title: title, Amount: amount}
}

// Equal reports structural equality. Amounts compare by value, so 1.5 equals 1.50.
func (e Expense) Equal(other Expense) bool {
	return e.ID == other.ID && e.Title == other.Title && e.Amount.Equal(other.Amount)
}

// Validate checks the rules the create and edit flows apply before saving.
func (e Expense) Validate() error {
	if e.Title == "" || strings.HasPrefix(e.Title, " ") {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return ValidateAmount(e.Amount)
}

// ExpenseCluster groups the expenses recorded on one calendar day.
type ExpenseCluster struct {
	ID       uuid.UUID `json:"id"`
	Date     time.Time `json:"date"`
	Expenses []Expense `json:"expenses"`
}

// TotalAmount sums the amounts of the cluster's expenses.
func (c ExpenseCluster) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Equal compares id, day and expenses in order.
func (c ExpenseCluster) Equal(other ExpenseCluster) bool {
	if c.ID != other.ID || !c.Date.Equal(other.Date) || len(c.Expenses) != len(other.Expenses) {
		return false
	}
	for i := range c.Expenses {
		if !c.Expenses[i].Equal(other.Expenses[i]) {
			return false
		}
	}
	return true
}

// IndexOf returns the position of the expense with the given id, or -1.
func (c ExpenseCluster) IndexOf(expenseID uuid.UUID) int {
	for i, e := range c.Expenses {
		if e.ID == expenseID {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose expense slice does not alias the receiver's.
func (c ExpenseCluster) Clone() ExpenseCluster {
	c.Expenses = append([]Expense(nil), c.Expenses...)
	return c
}

// User is a locally known profile together with its expense history.
type User struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	ExpenseClusters []ExpenseCluster `json:"expenseClusters"`
}

// NewUser returns a user with a fresh id and no expenses.
func NewUser(name string) User {
	return User{ID: uuid.New(), Name: name, ExpenseClusters: []ExpenseCluster{}}
}

// Equal compares users field by field, clusters in order.
func (u User) Equal(other User) bool {
	if u.ID != other.ID || u.Name != other.Name || len(u.ExpenseClusters) != len(other.ExpenseClusters) {
		return false
	}
	for i := range u.ExpenseClusters {
		if !u.ExpenseClusters[i].Equal(other.ExpenseClusters[i]) {
			return false
		}
	}
	return true
}

// ExpenseCount returns the number of expenses across all clusters.
func (u User) ExpenseCount() int {
	n := 0
	for _, c := range u.ExpenseClusters {
		n += len(c.Expenses)
	}
	return n
}

// ClusterForDay returns the index of the cluster recorded on the same calendar day as date, or -1.
func (u User) ClusterForDay(date time.Time) int {
	for i, c := range u.ExpenseClusters {
		if SameDay(c.Date, date) {
			return i
		}
	}
	return -1
}
