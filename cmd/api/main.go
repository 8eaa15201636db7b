// Package main is the entry point for the featured-products API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/dumper-shop/backend/internal/cache"
	"github.com/pkordes/dumper-shop/backend/internal/config"
	"github.com/pkordes/dumper-shop/backend/internal/handler"
	"github.com/pkordes/dumper-shop/backend/internal/metrics"
	"github.com/pkordes/dumper-shop/backend/internal/middleware"
	"github.com/pkordes/dumper-shop/backend/internal/repo"
	"github.com/pkordes/dumper-shop/backend/internal/service"
	"github.com/pkordes/dumper-shop/backend/migrations"
	"github.com/pkordes/dumper-shop/backend/openapi"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		sqlDB := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, sqlDB)
		_ = sqlDB.Close()
		if err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", n)
	}

	// --- Metrics ----------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Listing cache ----------------------------------------------------
	var listingCache service.ListingCache = service.NoopCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Cache errors fall back to the database, so keep serving.
			slog.Warn("redis unreachable; storefront cache will miss", "addr", cfg.RedisAddr, "error", err)
		}
		listingCache = cache.NewRedisListingCache(rdb, cfg.StoreCacheTTL)
		slog.Info("storefront cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.StoreCacheTTL)
	}

	// --- Services ---------------------------------------------------------
	slots := repo.NewSlotRepo(pool)
	links := repo.NewLinkRepo(pool)
	products := repo.NewProductRepo(pool)
	regions := repo.NewRegionRepo(pool)

	featured := service.NewFeaturedService(service.FeaturedDeps{
		Slots:    slots,
		Links:    links,
		Products: products,
		Locker:   repo.NewAdvisoryLocker(pool, logger),
		Cache:    listingCache,
		Log:      logger,
		Metrics:  m,
	})
	listing := service.NewListingService(links, products, regions, listingCache, logger, m)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	// RealIP runs before the store rate limiter so clients are keyed by their real address.
	limiter := middleware.NewRateLimiter(cfg.StoreRateLimitRPS, cfg.StoreRateLimitBurst, logger)
	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	router := handler.NewRouter(handler.NewServer(featured, listing, logger), handler.RouterOptions{
		Middleware: []handler.Middleware{
			chimiddleware.RequestID,
			chimiddleware.RealIP,
			middleware.NewSlogLogger(logger),
			chimiddleware.Recoverer,
			middleware.NewCORSHandler(cfg.CORSOrigins),
			middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes),
		},
		Admin:   []handler.Middleware{middleware.NewAdminAuth([]byte(cfg.AdminJWTSecret), logger)},
		Store:   []handler.Middleware{limiter.Handler},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		OpenAPI: openapi.Document,
	})

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for a signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
