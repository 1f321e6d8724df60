package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/sunchandi/sunchandi-backend/internal/api"
	"github.com/sunchandi/sunchandi-backend/internal/apperrors"
	"github.com/sunchandi/sunchandi-backend/internal/config"
	"github.com/sunchandi/sunchandi-backend/internal/database"
	"github.com/sunchandi/sunchandi-backend/internal/exchange"
	"github.com/sunchandi/sunchandi-backend/internal/gateway"
	"github.com/sunchandi/sunchandi-backend/internal/metals"
	"github.com/sunchandi/sunchandi-backend/internal/pricing"
	"github.com/sunchandi/sunchandi-backend/internal/repository"
	"github.com/sunchandi/sunchandi-backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open the cache store
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Printf("Connected to cache store: %s", cfg.Database.Path)

	// Resolve provider credentials. With a fernet key configured, env-supplied
	// keys are persisted encrypted and the stored set is the source of truth,
	// so a restart without METALS_API_KEYS keeps working.
	credentials, err := resolveCredentials(cfg, db)
	if err != nil {
		log.Fatalf("Failed to resolve provider credentials: %v", err)
	}
	if len(credentials) == 0 {
		log.Fatal("No history provider credentials configured (set METALS_API_KEYS)")
	}

	// Upstream clients and gateway
	gw := gateway.New(
		metals.NewClient(cfg.Providers.MetalsBaseURL, cfg.Providers.HTTPTimeout),
		exchange.NewClient(cfg.Providers.ExchangeBaseURL, cfg.Providers.HTTPTimeout),
		credentials,
	)

	margins := pricing.MarginSet{
		Gold:   pricing.Margin{Factor: cfg.Margins.GoldMarkupFactor, FlatPerTola: cfg.Margins.GoldFlatPerTola},
		Silver: pricing.Margin{Factor: cfg.Margins.SilverMarkupFactor, FlatPerTola: cfg.Margins.SilverFlatPerTola},
	}

	// Create repositories and services
	rateRepo := repository.NewRateRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)

	systemService := service.NewSystemService(db)
	rateService := service.NewRateService(rateRepo, gw)
	historyService := service.NewHistoryService(
		seriesRepo, gw, rateService, margins,
		cfg.Refresh.HistoryTTL, cfg.Refresh.HistoryWindowDays,
	)
	refreshService := service.NewRefreshService(historyService, rateService, cfg.Refresh.Interval)

	if err := refreshService.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start refresh scheduler: %v", err)
	}
	defer refreshService.Stop()

	// Create router
	router := api.NewRouter(systemService, refreshService, gw, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// metalsProvider keys the stored history-provider credentials.
const metalsProvider = "metals-history"

// resolveCredentials returns the ordered history-provider API keys. Without
// a fernet key the env-supplied list is used as-is and nothing touches disk.
func resolveCredentials(cfg *config.Config, db *sql.DB) ([]string, error) {
	envKeys := cfg.Providers.MetalsAPIKeys
	if cfg.Providers.FernetKey == "" {
		return envKeys, nil
	}

	key, err := fernet.DecodeKey(cfg.Providers.FernetKey)
	if err != nil {
		return nil, fmt.Errorf("invalid FERNET_KEY: %w", err)
	}
	credRepo := repository.NewCredentialRepository(db, key)

	// Env keys win and are re-persisted; otherwise fall back to the stored set.
	if len(envKeys) > 0 {
		if err := credRepo.Replace(metalsProvider, envKeys); err != nil {
			return nil, fmt.Errorf("failed to persist credentials: %w", err)
		}
		return envKeys, nil
	}

	stored, err := credRepo.Get(metalsProvider)
	if err != nil {
		if errors.Is(err, apperrors.ErrCredentialNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return stored, nil
}
