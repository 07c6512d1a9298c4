// cmd/devbackend/main.go
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"libranexus/internal/backendtest"
	"libranexus/internal/logging"
)

// devbackend serves the in-memory library API so the portal and libractl can
// run without the real backend.
func main() {
	addr := flag.String("addr", getEnv("DEVBACKEND_ADDR", ":8080"), "listen address")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "token signing secret")
	flag.Parse()

	logger, err := logging.New("debug", "console")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	opts := []backendtest.Option{backendtest.WithLogger(logger)}
	if *secret != "" {
		opts = append(opts, backendtest.WithSecret(*secret))
	}
	backend := backendtest.New(opts...)
	accounts, err := backend.Seed()
	if err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	for _, u := range []string{accounts.Admin.Email, accounts.Student.Email, accounts.Lecturer.Email} {
		logger.Info("seeded account", zap.String("email", u), zap.String("password", backendtest.SeedPassword))
	}

	r := chi.NewRouter()
	r.Mount("/api", backend.Handler())

	srv := &http.Server{Addr: *addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info("dev backend listening", zap.String("addr", *addr), zap.String("base", "/api"))
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
