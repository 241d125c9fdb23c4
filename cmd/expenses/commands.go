package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"expense-ledger/internal/config"
	"expense-ledger/internal/expenses"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
	"expense-ledger/internal/view"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "expenses",
		Short: "Track daily expenses from the terminal",
		Long: `expenses keeps a per-user log of daily expenses grouped by calendar day.

Log in with a display name, then add, edit, remove and filter expenses.
Running expenses without a command shows the home list for the logged-in user.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.Flags().Changed("db"), cmd.Flags().Changed("backend"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, ok, err := a.auth.CurrentName(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.stdout, "You are not logged in. Run 'expenses login <name>' to start.")
				return nil
			}
			return a.showHome(cmd.Context(), expenses.Filter{})
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&a.dbPath, "db", config.DefaultDBPath, "Path to the SQLite database file")
	root.PersistentFlags().StringVar(&a.backend, "backend", config.BackendSQLite, "Storage backend: sqlite, redis or memory")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load before reading configuration")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.profileCommand(),
		a.addCommand(),
		a.editCommand(),
		a.rmCommand(),
		a.listCommand(),
	)
	return root
}

func (a *app) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [name]",
		Short: "Log in with a display name, creating the account on first use",
		Long: `Log in with a display name of one or two words made of letters.
The name is asked for when it is not given as an argument.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if len(args) == 0 {
				var err error
				name, err = readLine(a.stdin, a.stdout, "Name: ")
				if err != nil {
					return fmt.Errorf("failed to read name: %w", err)
				}
			}
			if _, err := a.auth.Login(cmd.Context(), name); err != nil {
				return err
			}
			return a.showHome(cmd.Context(), expenses.Filter{})
		},
	}
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out, keeping all recorded expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in user's name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, ok, err := a.auth.CurrentName(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: run 'expenses login <name>' first", storage.ErrNotLoggedIn)
			}
			fmt.Fprintln(a.stdout, name)
			return nil
		},
	}
}

func (a *app) profileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the profile with the total number of expense items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			count, err := a.ledger.CountExpenses(cmd.Context(), sess)
			if err != nil {
				return err
			}
			return view.RenderProfile(a.stdout, view.NewProfile(sess.Name, count))
		},
	}
}

func (a *app) addCommand() *cobra.Command {
	var title, amount, date string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			value, err := parseEnteredAmount(amount)
			if err != nil {
				return err
			}
			day, err := a.parseDate(date)
			if err != nil {
				return err
			}

			e := models.NewExpense(title, value)
			clusterID, err := a.ledger.UpsertExpense(cmd.Context(), sess, day, e, uuid.Nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Saved expense %s in day %s\n", e.ID, clusterID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Expense title")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount, e.g. 12.50 or 12,50")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day of the expense as YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	var title, amount, date string
	cmd := &cobra.Command{
		Use:   "edit <expense-id>",
		Short: "Change an expense; fields that are not given keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			id, err := parseID("expense", args[0])
			if err != nil {
				return err
			}
			cluster, e, err := a.ledger.FindExpense(cmd.Context(), sess, id)
			if err != nil {
				return err
			}

			day := cluster.Date
			if cmd.Flags().Changed("title") {
				e.Title = title
			}
			if cmd.Flags().Changed("amount") {
				if e.Amount, err = parseEnteredAmount(amount); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("date") {
				if day, err = a.parseDate(date); err != nil {
					return err
				}
			}

			clusterID, err := a.ledger.UpsertExpense(cmd.Context(), sess, day, e, cluster.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Saved expense %s in day %s\n", e.ID, clusterID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "New amount")
	cmd.Flags().StringVarP(&date, "date", "d", "", "New day as YYYY-MM-DD")
	return cmd
}

func (a *app) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [cluster-id] <expense-id>",
		Short: "Remove an expense; the day is dropped when it was the last one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			expenseID, err := parseID("expense", args[len(args)-1])
			if err != nil {
				return err
			}

			var clusterID uuid.UUID
			if len(args) == 2 {
				if clusterID, err = parseID("day", args[0]); err != nil {
					return err
				}
			} else {
				cluster, _, err := a.ledger.FindExpense(cmd.Context(), sess, expenseID)
				if err != nil {
					return err
				}
				clusterID = cluster.ID
			}

			if err := a.ledger.RemoveExpense(cmd.Context(), sess, clusterID, expenseID); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed expense %s\n", expenseID)
			return nil
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	var title, amount, date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, optionally filtered by day, exact amount and exact title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := expenses.Filter{Title: title}
			if date != "" {
				d, err := a.parseDate(date)
				if err != nil {
					return err
				}
				f.Date = &d
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			f.Amount = value
			return a.showHome(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Keep expenses with exactly this title")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Keep expenses with exactly this amount")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Keep the day YYYY-MM-DD")
	return cmd
}

func (a *app) showHome(ctx context.Context, f expenses.Filter) error {
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}
	res, err := a.ledger.Query(ctx, sess, f)
	if err != nil {
		return err
	}
	return view.RenderHome(a.stdout, view.NewHome(sess.Name, res, a.cfg.CurrencySymbol, a.now()))
}

// parseDate reads a YYYY-MM-DD day in local time. An empty string means today.
func (a *app) parseDate(s string) (time.Time, error) {
	if s == "" {
		return a.now(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	value, err := models.ParseAmount(s)
	if err != nil {
		return value, fmt.Errorf("%w: %q", err, s)
	}
	return value, nil
}

// parseEnteredAmount is parseAmount for expenses being saved, where blank input is an error.
func parseEnteredAmount(s string) (decimal.Decimal, error) {
	value, err := models.ParseEnteredAmount(s)
	if err != nil {
		return value, fmt.Errorf("%w: %q", err, s)
	}
	return value, nil
}

func parseID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, s, err)
	}
	return id, nil
}

// readLine prompts on stdout and reads one line, with line editing when stdin is a terminal.
func readLine(stdin io.Reader, stdout io.Writer, prompt string) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return "", err
		}
		defer term.Restore(int(f.Fd()), state)

		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, stdout}, prompt)
		return t.ReadLine()
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	fmt.Fprint(stdout, prompt)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		fmt.Fprintln(stdout)
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
