package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/passportpix/passportpix/internal/config"
	"github.com/passportpix/passportpix/internal/email"
	"github.com/passportpix/passportpix/internal/payment"
	"github.com/passportpix/passportpix/internal/storage"
	"github.com/passportpix/passportpix/internal/store"
	"github.com/passportpix/passportpix/internal/telemetry"
	"github.com/passportpix/passportpix/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lmsgprefix)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "passportpix-worker",
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Printf("tracing shutdown failed: %v", err)
		}
	}()

	vault, err := storage.NewVault(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatalf("vault setup failed: %v", err)
	}
	bucketCtx, bucketCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := vault.EnsureBucket(bucketCtx); err != nil {
		logger.Printf("ensure bucket failed: %v", err)
	}
	bucketCancel()

	payments := payment.NewClient(payment.Config{
		BaseURL:      cfg.Payment.BaseURL,
		ClientID:     cfg.Payment.ClientID,
		ClientSecret: cfg.Payment.ClientSecret,
		Timeout:      cfg.Payment.Timeout,
	})

	var orders store.OrderStore
	if cfg.Database.DSN != "" {
		pg, err := store.NewPostgresOrderStore(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Fatalf("order store setup failed: %v", err)
		}
		defer pg.Close()
		orders = pg
	} else {
		logger.Printf("no database configured; deliveries rely on provider verification only")
	}

	notices, err := email.NewClient(email.Config{
		Endpoint:       cfg.Email.Endpoint,
		SigningSecret:  cfg.Email.SigningSecret,
		Timeout:        cfg.Email.Timeout,
		MaxAttempts:    cfg.Email.MaxAttempts,
		InitialBackoff: cfg.Email.InitialBackoff,
		MaxBackoff:     cfg.Email.MaxBackoff,
	})
	if err != nil {
		logger.Fatalf("email client setup failed: %v", err)
	}

	srv, err := worker.NewServer(
		logger,
		cfg.Queue,
		cfg.Worker,
		vault,
		payments,
		orders,
		notices,
		cfg.API.DownloadTTL,
	)
	if err != nil {
		logger.Fatalf("worker setup failed: %v", err)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", srv.MetricsHandler())
		logger.Printf("metrics listening on %s", cfg.Worker.MetricsAddr)
		if err := http.ListenAndServe(cfg.Worker.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server failed: %v", err)
		}
	}()

	logger.Printf(
		"starting worker concurrency=%d queue=%s redis=%s",
		cfg.Worker.Concurrency,
		cfg.Queue.Name,
		cfg.Queue.RedisAddr,
	)
	if err := srv.Run(); err != nil {
		logger.Fatalf("worker failed: %v", err)
	}
}
