package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"payment-confirmation-backend/internal/config"
	handler "payment-confirmation-backend/internal/handlers"
	"payment-confirmation-backend/internal/logging"
	"payment-confirmation-backend/internal/metrics"
	"payment-confirmation-backend/internal/ratelimit"
	"payment-confirmation-backend/internal/repository"
	"payment-confirmation-backend/internal/routes"
	"payment-confirmation-backend/internal/services/autocheck"
	"payment-confirmation-backend/internal/services/ledger"
	"payment-confirmation-backend/internal/services/matching"
)

// app holds the process-scoped state shared by the HTTP handlers and the
// auto-checker.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	redis   *redis.Client
	metrics *metrics.Metrics

	ledger  *ledger.LedgerService
	engine  *matching.Engine
	checker *autocheck.Checker
	limiter ratelimit.Limiter
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if !cfg.EnvFileLoaded {
		logger.Info("no .env file found, relying on system env")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		_ = config.CloseDB(db)
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	transferRepo := repository.NewTransferRepository(db)
	autoCheckRepo := repository.NewAutoCheckRepository(db)
	runRepo := repository.NewRunRepository(db)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		metrics: m,
		ledger:  ledger.NewLedgerService(transferRepo, autoCheckRepo, runRepo),
		engine:  matching.NewEngine(transferRepo),
	}
	a.checker = autocheck.NewChecker(a.engine, autoCheckRepo, runRepo, m, logger)

	if cfg.Redis.Addr != "" {
		client, err := ratelimit.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		a.limiter = ratelimit.NewRedisLimiter(client, "verify", cfg.VerifyRateLimit, cfg.VerifyRateWindow)
		logger.Info("verify-payment throttling enabled",
			"limit", cfg.VerifyRateLimit, "window", cfg.VerifyRateWindow)
	}

	return a, nil
}

func (a *app) router() *gin.Engine {
	gin.SetMode(a.cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(a.logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	payments := handler.NewPaymentHandler(a.ledger, a.engine, a.limiter, a.metrics, a.logger)
	autoChecks := handler.NewAutoCheckHandler(a.checker)
	routes.RegisterRoutes(r, payments, autoChecks, a.metrics)
	return r
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}
	if err := config.CloseDB(a.db); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	checkerDone := make(chan struct{})
	if a.cfg.AutoCheck.Enabled {
		go func() {
			defer close(checkerDone)
			a.checker.Start(ctx, a.cfg.AutoCheck.Interval)
		}()
	} else {
		close(checkerDone)
		a.logger.Info("auto-checker disabled")
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-checkerDone
			return errors.Wrap(err, "http server")
		}
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", "error", err)
	}
	<-checkerDone
	return nil
}
