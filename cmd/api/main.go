package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/export"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/models"
	"shareit/internal/repository"
	"shareit/internal/service"
	"shareit/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type services struct {
	users    *service.UserService
	items    *service.ItemService
	bookings *service.BookingService
	exporter *export.BookingExporter
	quota    *repository.MemoryQuotaRepository
}

func main() {
	exportOwner := flag.Int64("export-owner", 0, "write the owner's bookings to an xlsx file in exports.path and exit")
	exportState := flag.String("export-state", "ALL", "booking state filter for -export-owner")
	flag.Parse()

	if err := run(*exportOwner, *exportState); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(exportOwner int64, exportState string) error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	eventBus := events.NewEventBus()
	eventBus.OnError(func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
	})

	svc := buildServices(cfg, db, redisClient, eventBus, &logger)

	if cfg.Seed.Path != "" {
		seed, err := loadSeed(cfg.Seed.Path)
		if err != nil {
			return err
		}
		if err := applySeed(ctx, seed, svc.users, svc.items, &logger); err != nil {
			return err
		}
	}

	if exportOwner > 0 {
		path, err := svc.exporter.SaveOwnerBookings(ctx, exportOwner, exportState)
		if err != nil {
			return fmt.Errorf("export owner bookings: %w", err)
		}
		fmt.Println(path)
		return nil
	}

	var wg sync.WaitGroup
	notifier := initNotifications(ctx, cfg, redisClient, eventBus, &logger)
	subscribeAudit(eventBus, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			backupService.Start(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		pruneQuota(ctx, svc.quota, time.Minute)
	}()

	startMetrics(ctx, cfg, &logger)

	err = startServers(ctx, cfg, db, svc, &logger)

	wg.Wait()
	if notifier != nil {
		notifier.Wait()
	}
	return err
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func buildServices(
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) *services {
	memoryQuota := repository.NewMemoryQuotaRepository()
	var quota domain.RateLimitRepository = memoryQuota
	if redisClient != nil {
		quota = repository.NewFailoverQuotaRepository(repository.NewRedisQuotaRepository(redisClient), memoryQuota, logger)
	}

	bookings := service.NewBookingService(db, quota, eventBus, cfg.Booking, logging.Component(logger, "booking"))
	return &services{
		users:    service.NewUserService(db, logging.Component(logger, "users")),
		items:    service.NewItemService(db, logging.Component(logger, "items")),
		bookings: bookings,
		exporter: export.NewBookingExporter(bookings, cfg.Exports.Path, logging.Component(logger, "export")),
		quota:    memoryQuota,
	}
}

func initNotifications(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) *worker.NotificationWorker {
	if !cfg.Telegram.Enabled {
		return nil
	}

	bot, err := service.NewTelegramBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, notifications disabled")
		return nil
	}

	var deadLetters worker.DeadLetterStore
	if redisClient != nil {
		deadLetters = repository.NewRedisDeadLetterStore(redisClient, 0)
	}

	retryPolicy := worker.RetryPolicy{
		MaxRetries:    cfg.Telegram.MaxRetries,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
	notifier := worker.NewNotificationWorker(
		service.NewTelegramService(bot),
		deadLetters,
		retryPolicy,
		models.NotificationQueueSize,
		logging.Component(logger, "notifications"),
	)
	notifier.Start(ctx)

	eventBus.SubscribeAll(notifier.BookingEventHandler(cfg.Telegram.ChatID),
		events.EventBookingCreated, events.EventBookingApproved, events.EventBookingRejected)

	logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram notifications enabled")
	return notifier
}

func subscribeAudit(eventBus *events.EventBus, logger *zerolog.Logger) {
	audit := logging.Component(logger, "audit")
	eventBus.SubscribeAll(func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		audit.Info().
			Str("event", event.Type).
			Int64("booking_id", payload.BookingID).
			Int64("item_id", payload.ItemID).
			Int64("changed_by", payload.ChangedBy).
			Str("status", payload.Status).
			Msg("booking event")
		return nil
	}, events.EventBookingCreated, events.EventBookingApproved, events.EventBookingRejected)
}

// pruneQuota drops expired in-memory quota windows until ctx is done.
func pruneQuota(ctx context.Context, quota *repository.MemoryQuotaRepository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quota.Prune()
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	svc *services,
	logger *zerolog.Logger,
) error {
	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config; waiting for shutdown")
		<-ctx.Done()
		return nil
	}

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(&cfg.API, api.NewBookingGRPCService(svc.bookings, cfg.Booking.DefaultPageSize), logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	var httpServer *api.HTTPServer
	if cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(cfg.API, api.Deps{
			Users:           svc.users,
			Items:           svc.items,
			Bookings:        svc.bookings,
			Exporter:        svc.exporter,
			Health:          db,
			DefaultPageSize: cfg.Booking.DefaultPageSize,
		}, logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", grpcServer != nil).
		Int("grpc_port", cfg.API.GRPC.Port).
		Bool("http", httpServer != nil).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
