package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rauth/examprep-backend/internal/assessment"
	"github.com/rauth/examprep-backend/internal/config"
	"github.com/rauth/examprep-backend/internal/database"
	"github.com/rauth/examprep-backend/internal/event"
	"github.com/rauth/examprep-backend/internal/handler"
	"github.com/rauth/examprep-backend/internal/logger"
	"github.com/rauth/examprep-backend/internal/metrics"
	"github.com/rauth/examprep-backend/internal/repository"
	"github.com/rauth/examprep-backend/internal/router"
	"github.com/rauth/examprep-backend/internal/service"
	"github.com/rauth/examprep-backend/internal/validator"
	"github.com/rauth/examprep-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamPrep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect to MongoDB ────────────────────────────────────────────
	mongoClient, mongoDB, err := database.NewMongoDatabase(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("MongoDB disconnect error")
		}
	}()

	// ─── Connect to RabbitMQ (optional) ────────────────────────────────
	publishers := []worker.ProgressPublisher{worker.NewRedisFeed(rdb)}
	eventPublisher, err := event.NewEventPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, progress events stay on the Redis feed only")
	} else {
		defer eventPublisher.Close()
		if eventPublisher.Enabled() {
			publishers = append(publishers, eventPublisher)
		}
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	contentRepo := repository.NewContentRepository(mongoDB)

	if err := contentRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure content indexes")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	policy := assessment.DurationPolicy{
		QuizDefaultMinutes:     cfg.QuizDefaultMinutes,
		ExamMinutesPerQuestion: cfg.ExamMinutesPerQuestion,
	}
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	contentService := service.NewContentService(contentRepo, rdb, policy, cfg.ContentCacheTTL, log)
	progressService := service.NewProgressService(progressRepo, rdb, cfg.SubmissionDedupTTL, log)
	assessmentService := service.NewAssessmentService(
		contentService,
		progressService.Submitter(),
		metrics.Sessions{},
		cfg.SessionRetention,
		cfg.SubmitTimeout,
		log,
	)
	assessmentService.SetPremiumChecker(userService)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(userService, authService, log),
		Subscription: handler.NewSubscriptionHandler(userService, log),
		Content:      handler.NewContentHandler(contentService, log),
		Progress:     handler.NewProgressHandler(progressService, log),
		Session:      handler.NewSessionHandler(assessmentService, log),
		Monitor:      handler.NewMonitorHandler(progressService, log),
		WS:           handler.NewWSHandler(assessmentService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	progressWorker := worker.NewProgressWorker(progressRepo, rdb, log, publishers...)
	studyTimeWorker := worker.NewStudyTimeWorker(progressRepo, rdb, log)

	for _, run := range []func(context.Context){
		progressWorker.Start,
		studyTimeWorker.Start,
		assessmentService.Run,
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(workerCtx)
		}(run)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Workers did not stop in time")
	}

	log.Info().Int("live_sessions", assessmentService.Len()).Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
