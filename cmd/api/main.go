package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/meetingscribe/transcript-relay/internal/adapter/handler"
	"github.com/meetingscribe/transcript-relay/internal/adapter/repository"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/cache"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/database"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/external/graph"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/obs"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/queue"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/storage"
	"github.com/meetingscribe/transcript-relay/internal/usecase/pipeline"
	"github.com/meetingscribe/transcript-relay/internal/usecase/subscription"
	pkgai "github.com/meetingscribe/transcript-relay/pkg/ai"
	"github.com/meetingscribe/transcript-relay/pkg/config"
	pkgvalidator "github.com/meetingscribe/transcript-relay/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	obs.Init()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())

	log.Println("🔧 Initializing dependencies...")

	// Pipeline run journal is optional; without it runs are logs-only.
	var journal pipeline.RunJournal
	var runReader handler.RunReader
	if cfg.Database.Enabled {
		log.Println("📦 Connecting to database...")
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB(db)

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		runRepo := repository.NewRunRepository(db)
		journal = runRepo
		runReader = runRepo
	}

	var markers pipeline.MarkerStore
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		markers = redisClient
	}

	var archive pipeline.Archive
	if cfg.Storage.Enabled {
		log.Println("🗄️  Connecting to object storage...")
		archiveClient, err := storage.NewArchiveClient(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		archive = archiveClient
	}

	log.Println("🔐 Initializing platform client...")
	graphClient := graph.NewClient(cfg)

	log.Println("🤖 Initializing summarizer...")
	summarizer := pkgai.NewSummarizerClient(&cfg.Summarizer)

	pipelineService := pipeline.NewService(graphClient, summarizer, archive, markers, journal, cfg, logger)

	// Root context for background workers, cancelled on shutdown
	rootCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var publisher handler.Publisher
	if cfg.Queue.Enabled {
		log.Println("📨 Connecting to queue...")
		q, err := queue.New(&cfg.Queue, logger)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()

		consumeCtx, err := q.Consume(rootCtx, pipelineService.Consume)
		if err != nil {
			log.Fatalf("Failed to start queue consumer: %v", err)
		}
		defer consumeCtx.Stop()

		publisher = q
	} else {
		log.Println("⚠️  Queue disabled, notifications will be processed in-process")
	}

	log.Println("🔄 Initializing subscription manager...")
	subscriptionManager := subscription.NewManager(graphClient, &cfg.Subscription, logger)
	go subscriptionManager.Run(rootCtx, cfg.Subscription.ReconcileInterval)

	log.Println("🛣️  Setting up routes...")
	notificationHandler := handler.NewNotificationHandler(publisher, pipelineService, cfg, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionManager, logger)
	var runHandler *handler.RunHandler
	if runReader != nil {
		runHandler = handler.NewRunHandler(runReader, logger)
	}
	router := handler.NewRouter(cfg, notificationHandler, subscriptionHandler, runHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	cancelWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
