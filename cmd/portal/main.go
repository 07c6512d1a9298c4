// cmd/portal/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"libranexus/internal/clients"
	"libranexus/internal/config"
	"libranexus/internal/logging"
	"libranexus/internal/portal"
	"libranexus/internal/storage"
	"libranexus/internal/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("portal stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "libranexus-portal", version, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	store, err := storage.Open(ctx, cfg.StorageDSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	transport := clients.NewTransport(cfg.BackendURL, clients.WithBreaker(uint32(cfg.BreakerFailures), cfg.BreakerCooldown))
	lib := clients.NewLibrary(transport)
	sessions := portal.NewRegistry(store, lib, cfg.SessionIdleTTL, cfg.LoginPerMinute, logger)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           portal.New(lib, sessions, portal.Options{CookieSecure: cfg.CookieSecure}, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("portal listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("backend", transport.BaseURL()),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logger.Info("graceful shutdown completed")
		return nil
	})
	return g.Wait()
}
