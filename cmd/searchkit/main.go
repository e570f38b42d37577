package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/athlinked/searchkit/internal/cache"
	"github.com/athlinked/searchkit/internal/config"
	"github.com/athlinked/searchkit/internal/kv"
	logpkg "github.com/athlinked/searchkit/internal/logger"
	"github.com/athlinked/searchkit/internal/match"
	"github.com/athlinked/searchkit/internal/metrics"
	"github.com/athlinked/searchkit/internal/monitor"
	"github.com/athlinked/searchkit/internal/optimizer"
	docrepo "github.com/athlinked/searchkit/internal/repository/document"
	chiTransport "github.com/athlinked/searchkit/internal/transport/chi"
	searchuc "github.com/athlinked/searchkit/internal/usecase/search"
	suggestuc "github.com/athlinked/searchkit/internal/usecase/suggest"
	"github.com/athlinked/searchkit/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchkit API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create the persistence store based on driver
	var store kv.Store
	switch cfg.Database.Driver {
	case "memory":
		store = kv.NewMemoryStore()
	case "redis":
		rs, err := kv.NewRedisStore(kv.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := rs.WaitForReady(context.Background(), readiness); err != nil {
			logger.Fatal("Store not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
		store = rs
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	store = kv.NewPrefixStore(store, cfg.Storage.KeyPrefix)
	defer store.Close()

	metrics.Register()

	ctx := context.Background()

	// Document repository doubles as the search executor.
	docs := docrepo.New(store, logger)
	if err := docs.Load(ctx); err != nil {
		logger.Fatal("Failed to load document index", zap.Error(err))
	}

	suggestions := suggestuc.New(store, logger).
		WithHistorySize(cfg.Suggest.HistorySize).
		WithSeedTerms(cfg.Suggest.PopularTerms)
	if err := suggestions.Load(ctx); err != nil {
		logger.Warn("Failed to restore suggestion state", zap.Error(err))
	}

	results := cache.New(cache.Config{
		MaxEntries:        cfg.Cache.MaxEntries,
		DefaultTTL:        time.Duration(cfg.Cache.TTLSec) * time.Second,
		PrefetchThreshold: cfg.Cache.PrefetchThreshold,
	}, metrics.CacheTotal, logger)

	perf := monitor.New(metrics.AlertsTotal, logger).WithThresholds(monitor.Thresholds{
		ResponseTimeWarnMs: cfg.Monitor.ResponseTimeWarnMs,
		ResponseTimeCritMs: cfg.Monitor.ResponseTimeCritMs,
		ErrorRateWarnPct:   cfg.Monitor.ErrorRateWarnPct,
		ErrorRateCritPct:   cfg.Monitor.ErrorRateCritPct,
		HitRateWarnPct:     cfg.Monitor.CacheHitRateWarnPct,
		HitRateCritPct:     cfg.Monitor.CacheHitRateCritPct,
	})

	opt := optimizer.New()

	searchSvc := searchuc.New(docs, opt, results, suggestions, perf, logger).
		WithTimeout(time.Duration(cfg.Search.TimeoutMs)*time.Millisecond).
		WithFuzzyOptions(match.PresetByName(cfg.Search.FuzzyPreset)).
		WithMetrics(metrics.SearchRequestsTotal, metrics.SearchDuration).
		WithPrefetch()

	server := chiTransport.NewServer(searchSvc, suggestions, results, perf, opt, docs, logger).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
