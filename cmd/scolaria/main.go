package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scolaria/scolaria/internal/app"
	"github.com/scolaria/scolaria/internal/discounts"
	"github.com/scolaria/scolaria/internal/masterdata/classes"
	"github.com/scolaria/scolaria/internal/masterdata/students"
	"github.com/scolaria/scolaria/internal/observability"
	"github.com/scolaria/scolaria/internal/payments"
	"github.com/scolaria/scolaria/internal/platform/cache"
	"github.com/scolaria/scolaria/internal/platform/db"
	"github.com/scolaria/scolaria/internal/receipts"
	"github.com/scolaria/scolaria/internal/scholarships"
	"github.com/scolaria/scolaria/internal/shared"
	"github.com/scolaria/scolaria/internal/tariffs"
	"github.com/scolaria/scolaria/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, policy cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	classesService := classes.NewService(classes.NewRepository(dbpool))
	classesHandler := classes.NewHandler(logger, classesService)

	studentsService := students.NewService(students.NewRepository(dbpool))
	studentsHandler := students.NewHandler(logger, studentsService)

	tariffsService := tariffs.NewService(tariffs.NewRepository(dbpool))
	tariffsHandler := tariffs.NewHandler(logger, tariffsService)

	scholarshipsService := scholarships.NewService(scholarships.NewRepository(dbpool))
	scholarshipsHandler := scholarships.NewHandler(logger, scholarshipsService)

	policyCache := discounts.NewCache(redisClient, cfg.PolicyCacheTTL)
	discountsService := discounts.NewService(discounts.NewRepository(dbpool), policyCache)
	discountsHandler := discounts.NewHandler(logger, discountsService)

	paymentsService := payments.NewService(
		payments.NewRepository(dbpool),
		studentsService,
		discountsService,
		scholarshipsService,
		tariffsService,
		receipts.NewGenerator(),
		idempotencyStore,
		logger,
	)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		ClassesHandler:      classesHandler,
		StudentsHandler:     studentsHandler,
		TariffsHandler:      tariffsHandler,
		ScholarshipsHandler: scholarshipsHandler,
		DiscountsHandler:    discountsHandler,
		PaymentsHandler:     paymentsHandler,
		JobsHandler:         jobsHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("school_year", cfg.SchoolYear))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
