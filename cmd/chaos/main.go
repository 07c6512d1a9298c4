// cmd/chaos/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"libranexus/internal/chaos"
	"libranexus/internal/clients"
	"libranexus/internal/config"
	"libranexus/internal/logging"
)

// chaos runs the fault-injection suite against a live backend, through the
// same client stack and breaker settings the portal uses.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	duration := flag.Duration("duration", 10*time.Second, "how long each fault stays injected")
	pause := flag.Duration("pause", 5*time.Second, "pause between experiments")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inj := chaos.NewInjector(nil)
	lib := clients.NewLibrary(clients.NewTransport(cfg.BackendURL,
		clients.WithHTTPClient(&http.Client{Transport: inj, Timeout: 15 * time.Second}),
		clients.WithBreaker(uint32(cfg.BreakerFailures), cfg.BreakerCooldown),
	))
	probe := func(ctx context.Context) error {
		_, err := lib.Books.Recommended(ctx, 1)
		return err
	}

	engine := chaos.NewEngine(logger)
	suite := chaos.Experiments(inj, probe, chaos.Timing{
		Duration:        *duration,
		Interval:        time.Second,
		RecoveryTimeout: cfg.BreakerCooldown + 10*time.Second,
	})

	failed := 0
	for i, exp := range suite {
		logger.Info("starting experiment",
			zap.Int("n", i+1),
			zap.Int("of", len(suite)),
			zap.String("name", exp.Name),
			zap.String("hypothesis", exp.Hypothesis),
		)
		res, err := engine.Run(ctx, exp)
		if errors.Is(err, chaos.ErrSteadyState) {
			logger.Error("backend unhealthy before injection, stopping", zap.Int("violations", len(res.Violations)))
			os.Exit(2)
		}
		if err != nil {
			logger.Error("experiment failed", zap.Error(err))
			failed++
			continue
		}
		if !res.HypothesisHeld {
			failed++
			logger.Warn("hypothesis violated", zap.String("name", exp.Name), zap.Strings("failed", res.Failed))
		}
		if res.MTTR != nil {
			logger.Info("recovery", zap.String("name", exp.Name), zap.Duration("mttr", *res.MTTR))
		}

		if i < len(suite)-1 {
			select {
			case <-ctx.Done():
				os.Exit(1)
			case <-time.After(*pause):
			}
		}
	}
	if failed > 0 {
		logger.Error("game day finished with failures", zap.Int("failed", failed))
		os.Exit(1)
	}
	logger.Info("game day finished", zap.Int("experiments", len(suite)))
}
