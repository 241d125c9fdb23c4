// Package view turns engine results into the screens printed by the CLI.
package view

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"expense-ledger/internal/expenses"
	"expense-ledger/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// DateLayout is the day format used by group titles and filter descriptions.
const DateLayout = "Mon, 02 Jan '06"

// Item represents an expense in the home list.
type Item struct {
	ID     string
	Title  string
	Amount string
}

// Group holds the expenses of one calendar day.
type Group struct {
	ClusterID string
	Title     string
	Date      string
	Total     string
	Items     []Item
}

// Home is the data passed to the home template.
type Home struct {
	Greeting          string
	Total             string
	Filtered          bool
	FilterDescription string
	Empty             bool
	Groups            []Group
}

// Profile is the data passed to the profile template.
type Profile struct {
	Name         string
	ExpenseCount int
}

// NewHome builds the home screen for name from a query result.
// Group order follows the stored cluster order. now decides the TODAY/YESTERDAY titles.
func NewHome(name string, res expenses.Result, symbol string, now time.Time) Home {
	groups := make([]Group, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		g := Group{
			ClusterID: c.ID.String(),
			Title:     FormatGroupTitle(c.Date, now),
			Date:      c.Date.Format(time.DateOnly),
			Total:     models.FormatAmount(symbol, c.TotalAmount()),
			Items:     make([]Item, 0, len(c.Expenses)),
		}
		for _, e := range c.Expenses {
			g.Items = append(g.Items, Item{
				ID:     e.ID.String(),
				Title:  e.Title,
				Amount: models.FormatAmount(symbol, e.Amount),
			})
		}
		groups = append(groups, g)
	}

	return Home{
		Greeting:          fmt.Sprintf("Hello, %s!", name),
		Total:             models.FormatAmount(symbol, res.Total),
		Filtered:          !res.Filter.IsZero(),
		FilterDescription: DescribeFilter(res.Filter, symbol),
		Empty:             len(groups) == 0,
		Groups:            groups,
	}
}

// NewProfile builds the profile screen.
func NewProfile(name string, expenseCount int) Profile {
	return Profile{Name: name, ExpenseCount: expenseCount}
}

// DescribeFilter lists the active filter parts, or returns "" when f keeps everything.
func DescribeFilter(f expenses.Filter, symbol string) string {
	var parts []string
	if f.Date != nil {
		parts = append(parts, "Date "+f.Date.Format(DateLayout))
	}
	if f.Amount.IsPositive() {
		parts = append(parts, "Amount "+models.FormatAmount(symbol, f.Amount))
	}
	if f.Title != "" {
		parts = append(parts, fmt.Sprintf("Title %q", f.Title))
	}
	return strings.Join(parts, ", ")
}

// FormatGroupTitle returns TODAY, YESTERDAY or the upper-cased day relative to now.
func FormatGroupTitle(date, now time.Time) string {
	if models.SameDay(date, now) {
		return "TODAY"
	}
	if models.SameDay(date, now.AddDate(0, 0, -1)) {
		return "YESTERDAY"
	}
	return strings.ToUpper(date.Format(DateLayout))
}

// RenderHome writes the home screen to w.
func RenderHome(w io.Writer, h Home) error {
	return render(w, "home", h)
}

// RenderProfile writes the profile screen to w.
func RenderProfile(w io.Writer, p Profile) error {
	return render(w, "profile", p)
}

func render(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}
