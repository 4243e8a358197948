package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/guille1999utp/bemaster-part-2/internal/auth"
	"github.com/guille1999utp/bemaster-part-2/internal/config"
	"github.com/guille1999utp/bemaster-part-2/internal/db"
	"github.com/guille1999utp/bemaster-part-2/internal/handlers"
	"github.com/guille1999utp/bemaster-part-2/internal/metrics"
	"github.com/guille1999utp/bemaster-part-2/internal/middleware"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories"
	"github.com/guille1999utp/bemaster-part-2/internal/repositories/sqlite"
	"github.com/guille1999utp/bemaster-part-2/internal/storage"
	"github.com/guille1999utp/bemaster-part-2/internal/videos"
)

const (
	cleanerQueueSize = 64
	cleanerWorkers   = 2
	cleanerTimeout   = 30 * time.Second
)

// stores groups the repositories of one persistence backend.
type stores struct {
	users    repositories.UserRepository
	videos   repositories.VideoRepository
	comments repositories.CommentRepository
	ping     func(context.Context) error
	close    func()
}

// openStores connects to the backend selected by cfg.Driver.
func openStores(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (stores, error) {
	if cfg.IsEmbedded() {
		conn, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path}, logger)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users:    sqlite.NewUserRepository(conn),
			videos:   sqlite.NewVideoRepository(conn),
			comments: sqlite.NewCommentRepository(conn),
			ping:     conn.Ping,
			close:    func() { _ = conn.Close() },
		}, nil
	}

	pool, err := db.Connect(ctx, cfg.URL, cfg.MaxConns)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:    repositories.NewPostgresUserRepository(pool),
		videos:   repositories.NewPostgresVideoRepository(pool),
		comments: repositories.NewPostgresCommentRepository(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background work and closes clients.
func buildDependencies(ctx context.Context, cfg config.Config, st stores, logger zerolog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure tokens: %w", err)
	}

	media, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media storage: %w", err)
	}

	cleaner := videos.NewMediaCleaner(media, videos.CleanerConfig{
		QueueSize: cleanerQueueSize,
		Workers:   cleanerWorkers,
		Timeout:   cleanerTimeout,
	}, logger)

	var (
		cache       videos.TopRatedCache
		redisClient *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Cache failures are treated as misses.
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable")
		}
		cache = videos.NewRedisTopRatedCache(redisClient, cfg.Cache.TopRatedTTL)
	} else {
		cache = videos.NewMemoryTopRatedCache(cfg.Cache.TopRatedTTL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	svc := videos.NewService(videos.Config{
		Users:     st.users,
		Videos:    st.videos,
		Comments:  st.comments,
		Media:     media,
		Cache:     cache,
		Cleaner:   cleaner,
		Metrics:   m,
		KeyPrefix: cfg.Storage.Prefix,
	})

	deps := handlers.Dependencies{
		Users:          st.users,
		Tokens:         tokens,
		Verifier:       tokens,
		TokenHeader:    cfg.Auth.Header,
		Videos:         svc,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		HealthCheck:    handlers.HealthHandler{Check: st.ping},
		Logger:         logger,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		TrustProxy:     cfg.Server.TrustProxy,
	}
	if cfg.RateLimit.Enabled {
		deps.Limiter = middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, cfg.RateLimit.TTL)
	}

	cleanup := func(ctx context.Context) error {
		var errs []error
		if err := cleaner.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain media cleaner: %w", err))
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		return errors.Join(errs...)
	}

	return deps, cleanup, nil
}
