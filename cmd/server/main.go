package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/basel-ax/watermark-builder/internal/cache"
	"github.com/basel-ax/watermark-builder/internal/config"
	"github.com/basel-ax/watermark-builder/internal/domain"
	"github.com/basel-ax/watermark-builder/internal/events"
	"github.com/basel-ax/watermark-builder/internal/export"
	"github.com/basel-ax/watermark-builder/internal/http/handlers"
	"github.com/basel-ax/watermark-builder/internal/http/middleware"
	"github.com/basel-ax/watermark-builder/internal/http/routes"
	"github.com/basel-ax/watermark-builder/internal/infrastructure/watermarkapi"
	"github.com/basel-ax/watermark-builder/internal/logging"
	"github.com/basel-ax/watermark-builder/internal/repository"
	"github.com/basel-ax/watermark-builder/internal/scheduler"
	"github.com/basel-ax/watermark-builder/internal/service"
	"github.com/basel-ax/watermark-builder/internal/telegram"
)

func main() {
	// Parse command line flags
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	runHTTP := flag.Bool("http", true, "Serve the HTTP API")
	runBot := flag.Bool("telegram", true, "Run the Telegram bot when TELEGRAM_BOT_TOKEN is set")
	runCron := flag.Bool("cron", true, "Run housekeeping jobs on schedule")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Configure logging
	level, format := cfg.LogLevel, cfg.LogFormat
	if *verbose {
		level, format = "debug", "console"
	}
	logger, err := logging.New(level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]handlers.HealthChecker{}
	var managerOpts []service.ManagerOption
	var history *repository.PostgresSubmissionRepository

	// Initialize database connection
	if cfg.DB.Enabled() {
		logger.Info("Initializing database connection...", zap.String("host", cfg.DB.Host))
		db, err := repository.Open(ctx, cfg.GetDSN(), repository.PoolConfig{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := repository.Migrate(ctx, db); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		history = repository.NewPostgresSubmissionRepository(db)
		managerOpts = append(managerOpts,
			service.WithPresetStore(repository.NewPostgresPresetRepository(db)),
			service.WithSubmissionRecorder(history),
		)
		health["database"] = pinger(db)
		logger.Info("Database connection established")
	}

	client := watermarkapi.NewClient(cfg.WatermarkEndpoint, cfg.WatermarkHTTPTimeout)
	manager := service.NewSessionManager(client, logger, managerOpts...)
	logger.Info("Watermark service client initialized", zap.String("endpoint", client.Endpoint()))

	// Exports go to Supabase storage when configured and to local files otherwise
	fileExporter := export.NewFileExporter(cfg.ExportDir, logger)
	var exporter service.Exporter = fileExporter
	if cfg.Supabase.Enabled() {
		supabase := export.NewSupabaseExporter(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Bucket)
		exporter = supabase
		health["storage"] = supabase.Health
		logger.Info("Exporting to Supabase storage", zap.String("bucket", cfg.Supabase.Bucket))
	}

	handlerOpts := handlers.Options{Health: health}
	if history != nil {
		handlerOpts.History = history
	}

	if cfg.Redis.Addr != "" {
		results := cache.NewResultCache(cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), cfg.Redis.TTL)
		defer results.Close()
		manager.Subscribe(func(s *service.Session, seq uint64, outcome domain.Outcome) {
			if outcome.State != domain.StateSuccess {
				return
			}
			if err := results.Put(context.Background(), s.ID(), seq, outcome.Data); err != nil {
				logger.Warn("Failed to cache result", zap.String("session", s.ID()), zap.Uint64("seq", seq), zap.Error(err))
			}
		})
		handlerOpts.Results = results
		health["cache"] = results.Health
		logger.Info("Result cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatal("Failed to initialize event publisher", zap.Error(err))
		}
		defer publisher.Close()
		manager.Subscribe(func(s *service.Session, seq uint64, outcome domain.Outcome) {
			if !outcome.Terminal() {
				return
			}
			event := events.NewOutcomeEvent(s.ID(), seq, outcome, time.Now())
			if err := publisher.Publish(context.Background(), event); err != nil {
				logger.Warn("Failed to publish outcome", zap.String("session", s.ID()), zap.Error(err))
			}
		})
		logger.Info("Publishing outcomes", zap.String("queue", cfg.AMQPQueue))
	}

	var wg sync.WaitGroup

	if *runCron {
		sched := scheduler.New(logger)
		jobs := []scheduler.Job{
			scheduler.ExportCleanupJob(cfg.ExportCleanupSchedule, fileExporter, cfg.ExportMaxAge, logger),
			scheduler.SessionPruneJob(cfg.SessionPruneSchedule, manager, cfg.SessionIdleTTL),
		}
		if history != nil {
			jobs = append(jobs, scheduler.HistoryPruneJob(cfg.HistoryPruneSchedule, history, cfg.HistoryRetention, logger))
		}
		for _, job := range jobs {
			if err := sched.Add(ctx, job); err != nil {
				logger.Fatal("Failed to schedule job", zap.Error(err))
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	if *runBot && cfg.TelegramBotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram bot", zap.Error(err))
		}
		api.Debug = *verbose
		bot := telegram.New(api, manager, exporter, logger.Named("telegram"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			telegram.Run(ctx, api, bot)
		}()
	}

	if *runHTTP {
		limiter := middleware.NewRateLimiter(rate.Limit(cfg.HTTPSubmitRate), cfg.HTTPSubmitBurst)
		defer limiter.Stop()
		handler := handlers.NewSessionHandler(manager, exporter, logger, handlerOpts)
		router := routes.NewRouter(handler, limiter, logger).SetupRoutes()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed", zap.Error(err))
				stop()
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP server shutdown", zap.Error(err))
			}
		}()
	}

	// Wait for context cancellation
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")
	wg.Wait()
	logger.Info("Shutdown complete", zap.Int("sessions", manager.Len()))
}

func pinger(db *sql.DB) handlers.HealthChecker {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
