package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/passportpix/passportpix/internal/api"
	"github.com/passportpix/passportpix/internal/compliance"
	"github.com/passportpix/passportpix/internal/config"
	"github.com/passportpix/passportpix/internal/payment"
	"github.com/passportpix/passportpix/internal/queue"
	"github.com/passportpix/passportpix/internal/ratelimit"
	"github.com/passportpix/passportpix/internal/storage"
	"github.com/passportpix/passportpix/internal/store"
	"github.com/passportpix/passportpix/internal/telemetry"
	"github.com/passportpix/passportpix/internal/workflow"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "passportpix-api",
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}

	payments := payment.NewClient(payment.Config{
		BaseURL:      cfg.Payment.BaseURL,
		ClientID:     cfg.Payment.ClientID,
		ClientSecret: cfg.Payment.ClientSecret,
		Timeout:      cfg.Payment.Timeout,
	})

	// Without an API key the wizard still runs; every check comes back
	// as a degraded verdict the applicant can see.
	var checker workflow.ComplianceChecker
	if cfg.Compliance.APIKey != "" {
		gemini, err := compliance.NewGeminiChecker(ctx, logger, compliance.Config{
			APIKey:  cfg.Compliance.APIKey,
			Model:   cfg.Compliance.Model,
			Timeout: cfg.Compliance.Timeout,
		})
		if err != nil {
			logger.Fatalf("compliance client setup failed: %v", err)
		}
		defer gemini.Close()
		checker = gemini
	} else {
		logger.Printf("no compliance API key configured; verdicts will be degraded")
	}

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Printf("queue client close error: %v", err)
		}
	}()

	opts := api.Options{
		Logger:      logger,
		Sessions:    workflow.NewRegistry(logger, cfg.Rules, checker, payments),
		Queue:       queueClient,
		Payments:    payments,
		DownloadTTL: cfg.API.DownloadTTL,
	}

	vault, err := storage.NewVault(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Printf("vault unavailable, downloads fall back to data URIs: %v", err)
	} else {
		bucketCtx, bucketCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := vault.EnsureBucket(bucketCtx); err != nil {
			logger.Printf("ensure bucket failed: %v", err)
		}
		bucketCancel()
		opts.Vault = vault
	}

	if cfg.Database.DSN != "" {
		orders, err := store.NewPostgresOrderStore(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Printf("postgres unavailable, using in-memory order store: %v", err)
			opts.Orders = store.NewMemoryOrderStore()
		} else {
			defer orders.Close()
			opts.Orders = orders
		}
	} else {
		opts.Orders = store.NewMemoryOrderStore()
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer redisClient.Close()

		limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, "")
		if err != nil {
			logger.Fatalf("rate limiter setup failed: %v", err)
		}
		opts.RateLimiter = limiter
	}

	app := api.NewServer(opts)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Printf("tracing shutdown failed: %v", err)
	}
}
