package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/users"
)

type cleanupFunc func(ctx context.Context) error

// stores groups the repositories for the configured database driver.
type stores struct {
	users     repositories.UserRepository
	subs      repositories.SubscriptionRepository
	videos    repositories.VideoRepository
	playlists repositories.PlaylistRepository
	ping      handlers.Pinger
	close     cleanupFunc
}

func (s stores) seed() seedStores {
	return seedStores{users: s.users, subs: s.subs, videos: s.videos, playlists: s.playlists}
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup releases every connection it opened.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, cleanupFunc, error) {
	var cleanups []cleanupFunc
	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (handlers.Dependencies, cleanupFunc, error) {
		_ = cleanup(context.Background())
		return handlers.Dependencies{}, nil, err
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, st.close)

	uploader, mediaDir, err := newUploader(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	limiter, closeLimiter := newLoginLimiter(cfg.LoginRateLimit)
	cleanups = append(cleanups, closeLimiter)

	issuer := auth.NewTokenIssuer(auth.TokenConfig{
		Issuer:        cfg.Tokens.Issuer,
		AccessSecret:  cfg.Tokens.AccessSecret,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	})
	service := users.NewService(st.users, st.subs, st.playlists, auth.NewManager(issuer, st.users), uploader)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return handlers.Dependencies{
		Users:          service,
		DB:             st.ping,
		Logger:         logger,
		LoginLimiter:   limiter,
		TrustProxy:     cfg.TrustProxyHeaders,
		Metrics:        middleware.NewMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MediaDir:       mediaDir,
	}, cleanup, nil
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users:     repositories.NewPostgresUserRepository(pool),
			subs:      repositories.NewPostgresSubscriptionRepository(pool),
			videos:    repositories.NewPostgresVideoRepository(pool),
			playlists: repositories.NewPostgresPlaylistRepository(pool),
			ping:      pool,
			close:     func(context.Context) error { pool.Close(); return nil },
		}, nil

	case config.DriverMongo:
		return openMongoStores(ctx, cfg)

	case config.DriverMemory:
		store := repositories.NewMemoryStore()
		st := stores{
			users:     store,
			subs:      store,
			videos:    store.Videos(),
			playlists: store.Playlists(),
			close:     func(context.Context) error { return nil },
		}
		if cfg.MemorySeed {
			if _, err := seedDev(ctx, st.seed(), cfg.LocalMedia.BaseURL, time.Now().UTC()); err != nil {
				return stores{}, fmt.Errorf("seed memory store: %w", err)
			}
		}
		return st, nil

	default:
		return stores{}, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func openMongoStores(ctx context.Context, cfg config.Config) (stores, error) {
	client, database, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return stores{}, err
	}
	if err := repositories.EnsureMongoIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return stores{}, err
	}
	return stores{
		users:     repositories.NewMongoUserRepository(database),
		subs:      repositories.NewMongoSubscriptionRepository(database),
		videos:    repositories.NewMongoVideoRepository(database),
		playlists: repositories.NewMongoPlaylistRepository(database),
		ping:      db.MongoPinger{Client: client},
		close:     client.Disconnect,
	}, nil
}

// newUploader returns the media uploader and, for the local backend, the
// directory to serve under /media.
func newUploader(ctx context.Context, cfg config.Config) (media.Uploader, string, error) {
	switch cfg.MediaBackend {
	case config.MediaS3:
		uploader, err := media.NewS3Uploader(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, "", err
		}
		return uploader, "", nil
	case config.MediaLocal:
		uploader, err := media.NewLocalUploader(cfg.LocalMedia.Dir, cfg.LocalMedia.BaseURL)
		if err != nil {
			return nil, "", err
		}
		return uploader, uploader.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

// newLoginLimiter shares limits through Redis when an address is configured
// and otherwise keeps them in process.
func newLoginLimiter(cfg config.RateLimitConfig) (middleware.RateLimiter, cleanupFunc) {
	if cfg.RedisAddr == "" {
		ttl := 10 * cfg.Window
		return middleware.NewIPRateLimiter(cfg.Requests, cfg.Window, cfg.Burst, ttl), func(context.Context) error { return nil }
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	limiter := middleware.NewRedisRateLimiter(client, cfg.Requests, cfg.Window, cfg.Prefix)
	return limiter, func(context.Context) error { return client.Close() }
}
