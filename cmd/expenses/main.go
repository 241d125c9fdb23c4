package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/config"
	"expense-ledger/internal/expenses"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs once the store is open.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	// Set by the root command flags.
	envFile string
	dbPath  string
	backend string

	cfg    *config.Config
	logger *applog.Logger
	store  *storage.Store
	auth   *auth.Service
	ledger *expenses.Service
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, now: time.Now}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(context.Background())
}

// open loads configuration and connects to the configured backend.
// Flags given on the command line override the environment.
func (a *app) open(ctx context.Context, dbChanged, backendChanged bool) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg := config.Load()
	if dbChanged {
		cfg.DBPath = a.dbPath
	}
	if backendChanged {
		cfg.StoreBackend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := applog.DefaultConfig()
	logCfg.Level, _ = applog.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = applog.ComponentCLI
	logCfg.Output = a.stderr
	a.logger = applog.New(logCfg).With(applog.FieldBackend, cfg.StoreBackend)

	kv, err := openKV(ctx, cfg)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to open store", applog.FieldError, err)
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.store = storage.NewStore(kv, a.logger)
	a.auth = auth.NewService(a.store, a.logger)
	a.ledger = expenses.NewService(a.store, a.logger)
	a.logger.DebugContext(ctx, "Store opened")
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close store", applog.FieldError, err)
	}
}

func openKV(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return storage.NewRedisKV(ctx, storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil
	default:
		return storage.NewSQLiteKV(cfg.DBPath)
	}
}

// session returns the logged-in user or a hint to log in first.
func (a *app) session(ctx context.Context) (auth.Session, error) {
	sess, err := a.auth.Current(ctx)
	if errors.Is(err, storage.ErrNotLoggedIn) {
		return auth.Session{}, fmt.Errorf("%w: run 'expenses login <name>' first", err)
	}
	return sess, err
}
