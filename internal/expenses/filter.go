package expenses

import (
	"slices"
	"time"

	"expense-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Filter narrows which clusters and expenses are shown.
// A nil Date, a zero Amount and an empty Title each mean "no filter".
type Filter struct {
	Date   *time.Time
	Amount decimal.Decimal
	Title  string
}

// IsZero reports whether the filter keeps everything.
func (f Filter) IsZero() bool {
	return f.Date == nil && !f.Amount.IsPositive() && f.Title == ""
}

// FilterClusters returns the clusters that match f, in their original order.
//
// The date filter keeps whole clusters recorded on the same calendar day.
// The amount and title filters keep only exactly matching expenses inside
// each cluster and intersect when both are set. Clusters left without
// expenses are dropped. The input is never modified.
func FilterClusters(clusters []models.ExpenseCluster, f Filter) []models.ExpenseCluster {
	out := make([]models.ExpenseCluster, 0, len(clusters))
	for _, c := range clusters {
		if f.Date != nil && !models.SameDay(c.Date, *f.Date) {
			continue
		}
		c = c.Clone()
		if f.Amount.IsPositive() {
			c.Expenses = slices.DeleteFunc(c.Expenses, func(e models.Expense) bool {
				return !e.Amount.Equal(f.Amount)
			})
		}
		if f.Title != "" {
			c.Expenses = slices.DeleteFunc(c.Expenses, func(e models.Expense) bool {
				return e.Title != f.Title
			})
		}
		if len(c.Expenses) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// GrandTotal sums TotalAmount over clusters.
func GrandTotal(clusters []models.ExpenseCluster) decimal.Decimal {
	total := decimal.Zero
	for _, c := range clusters {
		total = total.Add(c.TotalAmount())
	}
	return total
}
