package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/typeb/familyhub/internal/adapters/cache"
	eventadapter "github.com/typeb/familyhub/internal/adapters/events"
	grpcadapter "github.com/typeb/familyhub/internal/adapters/grpc"
	httpadapter "github.com/typeb/familyhub/internal/adapters/http"
	"github.com/typeb/familyhub/internal/adapters/postgres"
	"github.com/typeb/familyhub/internal/adapters/security"
	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/domain"
	"github.com/typeb/familyhub/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	reminders  *eventadapter.ReminderWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping family service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	repos := postgres.NewRepositories(db)
	tokenSigner, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
	if err != nil {
		if !cfg.AllowEphemeralJWT {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init jwt signer: %w", err)
		}
		logger.Warn("using ephemeral JWT keys for local/dev runtime")
		tokenSigner, err = security.NewEphemeralJWTSigner(cfg.JWTKeyID)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
		}
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			TokenTTL:             cfg.TokenTTL,
			SessionTTL:           cfg.SessionTTL,
			FailedLoginThreshold: cfg.FailedThreshold,
			FailedLoginWindow:    cfg.FailedWindow,
			LockoutDuration:      cfg.LockoutDuration,
			InviteCodeAttempts:   cfg.InviteCodeAttempts,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			ReminderOffsets:      cfg.ReminderOffsets,
			ReminderScanBatch:    cfg.ReminderScanBatch,
		},
		Users:         repos.Users,
		Families:      repos.Families,
		Tasks:         repos.Tasks,
		Categories:    repos.Categories,
		Notifications: repos.Notifications,
		Preferences:   repos.Preferences,
		Activities:    repos.Activities,
		Sessions:      repos.Sessions,
		LoginAttempts: repos.LoginAttempts,
		Outbox:        repos.Outbox,
		Idempotency:   repos.Idempotency,
		Lockouts:      cacheadapter.NewRedisLockoutStore(redisClient),
		Revocations:   cacheadapter.NewRedisSessionRevocationStore(redisClient),
		Hasher:        security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner:   tokenSigner,
	})

	handler := httpadapter.NewHandler(svc, cfg.BillingWebhookSecret)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewFamilyInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	publisher, publisherClose := buildPublisher(logger, cfg.KafkaBrokers)

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	reminders := eventadapter.NewReminderWorker(logger, svc, cfg.ReminderScanInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		reminders:  reminders,
		cleanupFn: func(ctx context.Context) {
			publisherClose()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// buildPublisher wires Kafka when brokers are configured and falls back to a
// logging publisher for broker-less local runs.
func buildPublisher(logger *slog.Logger, brokers []string) (ports.EventPublisher, func()) {
	if len(brokers) == 0 {
		logger.Warn("no kafka brokers configured, events will be logged only")
		return eventadapter.NewLoggingPublisher(logger), func() {}
	}
	kafkaPub, err := eventadapter.NewKafkaPublisher(brokers, map[string]string{
		domain.EventUserRegistered:      "family.users",
		domain.EventFamilyCreated:       "family.lifecycle",
		domain.EventFamilyMemberJoined:  "family.lifecycle",
		domain.EventFamilyMemberLeft:    "family.lifecycle",
		domain.EventFamilyMemberRemoved: "family.lifecycle",
		domain.EventFamilyRoleChanged:   "family.lifecycle",
		domain.EventFamilyHealed:        "family.lifecycle",
		domain.EventTaskCreated:         "family.tasks",
		domain.EventTaskCompleted:       "family.tasks",
		domain.EventTaskApproved:        "family.tasks",
		domain.EventTaskRejected:        "family.tasks",
		domain.EventReminderEscalated:   "family.reminders",
		domain.EventReminderPush:        "family.push",
		domain.EventSubscriptionChanged: "family.billing",
	})
	if err != nil {
		logger.Error("kafka publisher init failed, falling back to logging publisher", "error", err.Error())
		return eventadapter.NewLoggingPublisher(logger), func() {}
	}
	return kafkaPub, func() { _ = kafkaPub.Close() }
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outbox worker: %w", err)
		}
	}()
	go func() {
		r.logger.Info("reminder worker started")
		if err := r.reminders.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("reminder worker: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("worker failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
