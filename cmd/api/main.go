package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/sellerhub/backend/internal/api/handlers"
	"github.com/sellerhub/backend/internal/api/router"
	"github.com/sellerhub/backend/internal/config"
	"github.com/sellerhub/backend/internal/crypto"
	"github.com/sellerhub/backend/internal/marketplace"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/validator"
	"github.com/sellerhub/backend/internal/services"
	"github.com/sellerhub/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	blobs, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer blobs.Close()

	sealer, err := crypto.NewSealer(cfg.Marketplace.MasterSecret)
	if err != nil {
		log.Fatalf("Failed to initialize credential sealer: %v", err)
	}

	creds := services.NewCredentialStore(blobs, sealer, log)
	snapshots := services.NewSnapshotStore(blobs)
	backend := services.NewHTTPTokenBackend(cfg.Marketplace.TokenBackendURL, nil)

	tokens := services.NewTokenManager(services.TokenManagerOptions{
		Store:       creds,
		Backend:     backend,
		ClientID:    cfg.Marketplace.ClientID,
		AuthURL:     cfg.Marketplace.AuthURL,
		RedirectURL: cfg.Marketplace.RedirectURL,
		Logger:      log,
	})

	// One outbound limiter shared by every account's client
	limiter := rate.NewLimiter(rate.Limit(cfg.Marketplace.RatePerSecond), cfg.Marketplace.RateBurst)
	newClient := func(token string) services.MarketClient {
		return marketplace.New(marketplace.Options{
			BaseURL:  cfg.Marketplace.BaseURL,
			Token:    token,
			Timeout:  cfg.Marketplace.RequestTimeout,
			CacheTTL: cfg.Marketplace.CacheTTL,
			Limiter:  limiter,
			Logger:   log,
		})
	}

	orch := services.NewOrchestrator(services.OrchestratorOptions{
		Credentials: creds,
		Tokens:      tokens,
		Snapshots:   snapshots,
		NewClient:   newClient,
		Workers:     cfg.Sync.Workers,
		Logger:      log,
	})

	ctx := context.Background()
	if err := orch.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize orchestrator: %v", err)
	}
	if err := orch.EnableAutoSync(cfg.Sync.Interval); err != nil {
		log.Fatalf("Failed to enable auto sync: %v", err)
	}
	defer orch.DisableAutoSync()

	val := validator.New()
	h := &router.Handlers{
		Health:    handlers.NewHealthHandler(blobs, log),
		Auth:      handlers.NewAuthHandler(cfg.Auth, log, val),
		Account:   handlers.NewAccountHandler(creds, tokens, orch, log, val),
		Dashboard: handlers.NewDashboardHandler(orch, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.With("addr", srv.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Graceful shutdown failed")
	}
}

func openStorage(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return storage.OpenPostgres(cfg.Storage.DSN)
	default:
		return storage.OpenSQLite(cfg.Storage.Path)
	}
}
