package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/golf-ops/internal/config"
	"github.com/iliyamo/golf-ops/internal/database"
	"github.com/iliyamo/golf-ops/internal/handler"
	"github.com/iliyamo/golf-ops/internal/logger"
	"github.com/iliyamo/golf-ops/internal/middleware"
	"github.com/iliyamo/golf-ops/internal/obs"
	"github.com/iliyamo/golf-ops/internal/queue"
	"github.com/iliyamo/golf-ops/internal/repository"
	"github.com/iliyamo/golf-ops/internal/router"
	"github.com/iliyamo/golf-ops/internal/service"
)

func main() {
	cfg := config.MustLoad()
	if err := logger.InitLoggers(logger.Options{File: cfg.LogFile, Level: cfg.LogLevel, JSON: cfg.LogJSON}); err != nil {
		logger.ErrorLogger.Fatalf("init loggers: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, obs.Options{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
		Env:         cfg.Env,
	})
	if err != nil {
		logger.ErrorLogger.Fatalf("init tracer: %v", err)
	}

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		logger.ErrorLogger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.ErrorLogger.Fatalf("migrate: %v", err)
		}
	}

	opts := []service.Option{service.WithSpareReplenish(cfg.SpareReplenish)}
	if pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.EventsExchange); err != nil {
		logger.WarnLogger.Warnf("event publisher disabled: %v", err)
	} else {
		defer pub.Close()
		opts = append(opts, service.WithPublisher(pub))
	}
	go func() {
		err := queue.StartEventLogConsumer(ctx, queue.ConsumerConfig{
			URL:      cfg.RabbitURL,
			Exchange: cfg.EventsExchange,
			Sink:     logger.NewFileLogger(cfg.EventLogFile),
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorLogger.Errorf("event consumer stopped: %v", err)
		}
	}()

	store := repository.NewStore(db)
	svc := service.New(store, opts...)

	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.ErrorLogger.Fatalf("rate limit config: %v", err)
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		logger.ErrorLogger.Fatalf("cache config: %v", err)
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		logger.ErrorLogger.Fatalf("redis config: %v", err)
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		logger.WarnLogger.Warnf("redis at %s unreachable; rate limiting and caching disabled", redisCfg.Address())
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.Tracing(cfg.ServiceName))
	e.Use(middleware.RequestLogger(logger.InfoLogger))

	router.RegisterRoutes(e, db)
	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, store.Users, repository.NewTokenRepo(db)),
		Bookings: handler.NewBookingHandler(svc),
		Assets:   handler.NewAssetHandler(svc),
		Caddies:  handler.NewCaddyHandler(svc, store.Users),
		Admin:    handler.NewAdminHandler(cfg, store.Users, store.Audit),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(rlCfg, rdb),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.InfoLogger.Infof("listening on %s (env=%s)", srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.InfoLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLogger.Errorf("http shutdown: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.WarnLogger.Warnf("tracer shutdown: %v", err)
	}
}
