package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mixmentor/mixmentor/pkg/accounts"
	"github.com/mixmentor/mixmentor/pkg/api"
	"github.com/mixmentor/mixmentor/pkg/audio"
	"github.com/mixmentor/mixmentor/pkg/billing"
	"github.com/mixmentor/mixmentor/pkg/chat"
	"github.com/mixmentor/mixmentor/pkg/config"
	"github.com/mixmentor/mixmentor/pkg/middleware"
	"github.com/mixmentor/mixmentor/pkg/observability"
	"github.com/mixmentor/mixmentor/pkg/pricing"
	"github.com/mixmentor/mixmentor/pkg/storage"
	"github.com/mixmentor/mixmentor/pkg/usage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mixmentor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting mixmentor")

	ctx := context.Background()

	// Connections
	db, err := storage.ConnectPostgres(ctx, storage.PostgresConfig{
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := storage.ConnectRedis(ctx, storage.RedisConfig{
		URL:      cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	var blobs audio.BlobStore
	switch cfg.Blob.Backend {
	case "s3":
		blobs, err = storage.NewS3BlobStore(ctx, storage.S3Config{
			Endpoint:      cfg.Blob.S3Endpoint,
			Region:        cfg.Blob.S3Region,
			Bucket:        cfg.Blob.S3Bucket,
			AccessKey:     cfg.Blob.S3AccessKey,
			SecretKey:     cfg.Blob.S3SecretKey,
			UsePathStyle:  cfg.Blob.S3UsePathStyle,
			PublicBaseURL: cfg.Blob.PublicBaseURL,
		})
	default:
		blobs, err = storage.NewFilesystemBlobStore(cfg.Blob.FilesystemRoot, cfg.Blob.PublicBaseURL)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}
	logger.WithField("backend", cfg.Blob.Backend).Info("blob storage initialized")

	// Observability
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Domain services
	catalog := pricing.NewCatalog()
	catalog.SetStripePriceID(pricing.TierPro, cfg.Stripe.ProPriceID)
	catalog.SetStripePriceID(pricing.TierProPlus, cfg.Stripe.ProPlusPriceID)

	users := accounts.NewPostgresStore(db, cfg.Auth.OwnerOpenID)
	sessions := accounts.NewSessionStore(redisClient, cfg.Redis.SessionTTL)
	ledger := usage.NewPostgresLedger(db)

	llm := chat.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	chatService := chat.NewService(chat.NewPostgresStore(db), llm, ledger, catalog, logger)
	audioService := audio.NewService(audio.NewPostgresStore(db), blobs)

	billingService := billing.NewService(db, users, catalog, billing.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}, logger)

	authenticator, err := accounts.NewOIDCAuthenticator(ctx, accounts.OIDCConfig{
		IssuerURL:    cfg.Auth.OIDCIssuerURL,
		ClientID:     cfg.Auth.OIDCClientID,
		ClientSecret: cfg.Auth.OIDCClientSecret,
		RedirectURL:  cfg.Auth.OIDCRedirectURL,
	}, users, sessions)
	if err != nil {
		return fmt.Errorf("failed to initialize login: %w", err)
	}

	// Rate limiting: in-process buckets for general traffic, a Redis window
	// shared across replicas for the model-backed routes
	rateLimiter := middleware.NewRateLimitMiddleware()
	completionLimiter := middleware.NewDistributedRateLimitMiddleware(
		middleware.NewDistributedRateLimiter(redisClient, middleware.CompletionRateLimitConfig(), "ratelimit:completion"))

	server := api.NewServer(api.Deps{
		Users:             users,
		Sessions:          sessions,
		Auth:              authenticator,
		Chat:              chatService,
		Audio:             audioService,
		Ledger:            ledger,
		Catalog:           catalog,
		Billing:           billingService,
		Metrics:           metrics,
		Logger:            logger,
		SecureCookies:     cfg.Auth.SecureCookies,
		SessionTTL:        cfg.Redis.SessionTTL,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RateLimiter:       rateLimiter,
		CompletionLimiter: completionLimiter,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Probes and metrics live on their own port so they are never rate
	// limited or gated behind a session
	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: opsMux,
	}

	var group errgroup.Group
	group.Go(func() error {
		apiLog := logger.Component("api")
		defer observability.RecoverPanic(apiLog, "api server")
		apiLog.WithField("addr", apiServer.Addr).Info("server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		opsLog := logger.Component("ops")
		defer observability.RecoverPanic(opsLog, "ops server")
		opsLog.WithField("addr", opsServer.Addr).Info("server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer("api", apiServer)
	shutdown.RegisterServer("ops", opsServer)
	shutdown.RegisterCloser("otel", func(shutdownCtx context.Context) error {
		return observability.ShutdownOTel(shutdownCtx, otelProviders, logger)
	})

	// Either a server dies on its own or a signal drives the shutdown;
	// whichever happens first decides the exit
	serverErr := make(chan error, 1)
	go func() { serverErr <- group.Wait() }()

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- shutdown.WaitForShutdown() }()

	select {
	case err := <-serverErr:
		return err
	case err := <-shutdownErr:
		if err != nil {
			return err
		}
		return group.Wait()
	}
}
