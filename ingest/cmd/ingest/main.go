package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/polymerwire/modelhub/common/logging"
	"github.com/polymerwire/modelhub/common/middleware"
	"github.com/polymerwire/modelhub/ingest/internal/auth"
	"github.com/polymerwire/modelhub/ingest/internal/config"
	"github.com/polymerwire/modelhub/ingest/internal/dlq"
	"github.com/polymerwire/modelhub/ingest/internal/handlers"
	"github.com/polymerwire/modelhub/ingest/internal/lock"
	"github.com/polymerwire/modelhub/ingest/internal/notify"
	"github.com/polymerwire/modelhub/ingest/internal/objectstore"
	"github.com/polymerwire/modelhub/ingest/internal/pipeline"
	"github.com/polymerwire/modelhub/ingest/internal/ratelimit"
	"github.com/polymerwire/modelhub/ingest/internal/routing"
	"github.com/polymerwire/modelhub/ingest/internal/server"
	"github.com/polymerwire/modelhub/ingest/internal/service"
	"github.com/polymerwire/modelhub/ingest/internal/status"

	natsclient "github.com/polymerwire/modelhub/common/messaging/nats"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	runMigrations := flag.Bool("migrate", false, "apply postgres status migrations and exit")
	issueToken := flag.String("issue-token", "", "print a bearer token for SUBJECT and exit")
	tokenScope := flag.String("token-scope", "models", "scope claim of -issue-token")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("ingest"))
	logging.SetDefault(logger)

	switch {
	case *issueToken != "":
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("auth.jwt_secret is required to issue tokens")
		}
		tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		token, err := tokens.Issue(*issueToken, *tokenScope)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	case *runMigrations:
		version, err := status.Migrate(cfg.Status.Postgres.Migrations, cfg.Status.Postgres.ConnString())
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		slog.Info("Migrations applied", slog.Uint64("version", uint64(version)))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("Ingest service failed", logging.Error(err))
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	slog.Info("Starting Ingest service",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("status_backend", cfg.Status.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)

	checks := make(map[string]handlers.ReadyCheck)

	// Object store
	objects, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if s3Store, ok := objects.(*objectstore.S3); ok {
		checks["object_store"] = func(ctx context.Context) error {
			return s3Store.Ping(ctx, cfg.Storage.SiteBucket)
		}
	}
	objects = objectstore.Instrument(objects)

	// Status store
	statusStore, closeStatus, pingStatus, err := newStatusStore(ctx, cfg.Status)
	if err != nil {
		return err
	}
	defer closeStatus()
	if pingStatus != nil {
		checks["status_store"] = pingStatus
	}
	tracker := status.NewTracker(statusStore, logger, cfg.Status.WriteTimeout)

	// Redis: name lock and rate limiter
	var locker lock.Locker = lock.Noop{}
	var rateLimiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

		if cfg.Lock.Enabled {
			locker = lock.NewRedisLocker(rdb, cfg.Lock.Prefix, cfg.Lock.TTL)
			slog.Info("Name lock enabled", logging.Duration(cfg.Lock.TTL))
		}
		if cfg.RateLimit.Enabled {
			rateLimiter = ratelimit.NewRedisRateLimiter(rdb, cfg.RateLimit.Prefix, cfg.RateLimit.Requests, cfg.RateLimit.Window)
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				logging.Duration(cfg.RateLimit.Window),
			)
		}
	} else {
		slog.Warn("Redis disabled - name lock and rate limiting not available")
	}

	// NATS: tessellation notifications and JetStream DLQ
	var js *natsclient.JetStreamClient
	if cfg.NATS.Enabled {
		js, err = natsclient.NewJetStreamClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "modelhub-ingest",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       natsclient.DefaultConfig().Timeout,
		}, logger.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer js.Close()
		checks["nats"] = func(context.Context) error {
			if !js.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Tessellation.Notify && js != nil {
		notifier = notify.NewPublisher(js, cfg.Tessellation.Subject)
	}

	// Dead letter queue
	var deadLetters dlq.Queue = dlq.Noop{}
	if cfg.DLQ.Enabled {
		switch cfg.DLQ.Backend {
		case "jetstream":
			if js == nil {
				return errors.New("dlq backend jetstream requires nats.enabled")
			}
			jsDLQ, err := dlq.NewJetStreamQueue(ctx, js, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize JetStream DLQ: %w", err)
			}
			deadLetters = jsDLQ
		case "file":
			fileDLQ, err := dlq.NewFileQueue(cfg.DLQ.Path, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize file DLQ: %w", err)
			}
			deadLetters = fileDLQ
			slog.Warn("File-based DLQ does not support multiple ingest instances")
		}
		slog.Info("Dead Letter Queue enabled", logging.Backend(cfg.DLQ.Backend))
	}

	// Pipeline and service
	routingCfg := routing.Config{
		SiteBucket:    cfg.Storage.SiteBucket,
		StagingBucket: cfg.Storage.StagingBucket,
		DataFolder:    cfg.Storage.DataFolder,
	}
	p, err := pipeline.New(pipeline.Deps{
		Objects:  objects,
		Status:   tracker,
		Lock:     locker,
		Notifier: notifier,
		DLQ:      deadLetters,
		Logger:   logger,
	}, pipeline.Config{Routing: routingCfg, StoreTimeout: cfg.Storage.Timeout})
	if err != nil {
		return err
	}
	modelService := service.New(objects, p, tracker, service.Config{
		SiteBucket: cfg.Storage.SiteBucket,
		DataFolder: cfg.Storage.DataFolder,
	})

	// HTTP
	var verifier auth.Verifier
	if cfg.Auth.Enabled {
		verifier = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	} else {
		slog.Warn("Authentication disabled - API routes are open")
	}

	handler := handlers.New(modelService, handlers.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Limiter:      rateLimiter,
		DeadLetters:  deadLetters,
		Checks:       checks,
		Logger:       logger,
	})
	router := server.NewRouter(handler, server.Options{
		Auth: auth.RequireAuth(verifier, logger),
		CORS: middleware.DefaultCORS(cfg.Server.CORSOrigins),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Ingest service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, error) {
	if cfg.Backend == "memory" {
		slog.Warn("Using in-memory object store - models are lost on restart")
		return objectstore.NewMemory(), nil
	}
	s3Store, err := objectstore.NewS3(ctx, objectstore.S3Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		PathStyle:       cfg.PathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Timeout:         cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return s3Store, nil
}

// newStatusStore returns the configured store with its close func and an
// optional readiness check.
func newStatusStore(ctx context.Context, cfg config.StatusConfig) (status.Store, func(), handlers.ReadyCheck, error) {
	switch cfg.Backend {
	case "mongo":
		store, err := status.NewMongo(ctx, status.MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(context.Background()); err != nil {
				slog.Warn("Failed to disconnect mongo", logging.Error(err))
			}
		}
		return store, closeFn, store.Ping, nil
	case "postgres":
		store, err := status.NewPostgres(ctx, cfg.Postgres.ConnString(), cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store.Close, store.Ping, nil
	case "opensearch":
		store, err := status.NewOpenSearch(ctx, status.OpenSearchConfig{
			URL:             cfg.OpenSearch.URL,
			Username:        cfg.OpenSearch.Username,
			Password:        cfg.OpenSearch.Password,
			TLSSkipVerify:   cfg.OpenSearch.TLSSkipVerify,
			Index:           cfg.OpenSearch.Index,
			RetryOnConflict: cfg.OpenSearch.RetryOnConflict,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, func() {}, store.Ping, nil
	default:
		slog.Warn("Using in-memory status store - checkpoints are lost on restart")
		return status.NewMemory(), func() {}, nil, nil
	}
}
