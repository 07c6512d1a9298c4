package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libranexus/internal/auth"
	"libranexus/internal/cart"
	"libranexus/internal/clients"
	"libranexus/internal/config"
	"libranexus/internal/logging"
	"libranexus/internal/storage"
)

var (
	// Global flags
	configPath string
	statePath  string
	backendURL string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
	app    *session
	cancel context.CancelFunc = func() {}
)

// session is what every subcommand works against: the signed-in identity and
// cart persisted in the state file, and the backend clients.
type session struct {
	lib  *clients.Library
	auth auth.Service
	cart cart.Service
}

// ctx returns a context carrying the bearer token of the stored session.
func (s *session) ctx(parent context.Context) context.Context {
	return clients.WithToken(parent, s.auth.Snapshot().Token)
}

// requireLogin fails unless a session was restored from the state file.
func (s *session) requireLogin() error {
	if !s.auth.Snapshot().Authenticated() {
		return fmt.Errorf("not signed in; run 'libractl login <email>' first")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "libractl",
	Short: "Command line client for the LibraNexus library",
	Long: `libractl signs in to the LibraNexus backend, browses the catalogue,
keeps a borrowing cart and checks it out, all from the terminal.

The session and the cart are kept in a state file between runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if backendURL != "" {
			cfg.BackendURL = backendURL
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, "console")
		if err != nil {
			return err
		}

		store, err := storage.NewFile(statePath)
		if err != nil {
			return err
		}
		lib := clients.NewLibrary(clients.NewTransport(cfg.BackendURL,
			clients.WithBreaker(uint32(cfg.BreakerFailures), cfg.BreakerCooldown)))
		c := cart.NewService(store, lib.Transactions, logger)
		app = &session{
			lib:  lib,
			auth: auth.NewService(store, lib.Auth, c, logger),
			cart: c,
		}

		var ctx context.Context
		ctx, cancel = context.WithTimeout(cmd.Context(), timeout)
		cmd.SetContext(ctx)
		if err := c.Initialize(ctx); err != nil {
			logger.Warn("load cart", zap.String("state", statePath), zap.Error(err))
		}
		if err := app.auth.Initialize(ctx); err != nil {
			logger.Warn("restore session", zap.String("state", statePath), zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cancel()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (or set LIBRA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", config.DefaultStatePath(), "file holding the session and cart")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (overrides LIBRA_BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(booksCmd, cartCmd, transactionsCmd, notificationsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
