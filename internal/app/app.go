package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vadimbarashkov/shortener/internal/adapter/repository/cached"
	"github.com/vadimbarashkov/shortener/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortener/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortener/internal/config"
	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/internal/metrics"
	"github.com/vadimbarashkov/shortener/internal/shortcode"
	"github.com/vadimbarashkov/shortener/internal/usecase"
	"github.com/vadimbarashkov/shortener/migrations"

	delivery "github.com/vadimbarashkov/shortener/internal/adapter/delivery/http"
	pgpkg "github.com/vadimbarashkov/shortener/pkg/postgres"
	redispkg "github.com/vadimbarashkov/shortener/pkg/redis"
)

// Version is reported by the health endpoint. Set it at build time with
// -ldflags "-X github.com/vadimbarashkov/shortener/internal/app.Version=...".
var Version = "dev"

type urlStore interface {
	Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error)
	FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error)
	Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error)
	Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error)
	Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error)
	HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error)
}

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	m := metrics.New()

	store, closeStore, err := newStore(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeStore()

	if cfg.Redis.Enabled {
		cache, err := redispkg.New(ctx, redispkg.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return fmt.Errorf("%s: failed to connect to cache: %w", op, err)
		}
		defer cache.Close()

		store = cached.NewURLRepository(store, cache,
			cached.WithTTL(cfg.Redis.TTL),
			cached.WithKeyPrefix(cfg.Redis.KeyPrefix),
			cached.WithRecorder(m),
			cached.WithLogger(logger.Logger),
		)
	}

	generator, err := shortcode.New(cfg.Shortener.CodeStrategy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	urlUseCase := usecase.New(store,
		usecase.WithGenerator(generator),
		usecase.WithRecorder(m),
		usecase.WithLogger(logger.Logger),
		usecase.WithCodeLength(cfg.Shortener.CodeLength),
		usecase.WithMaxAttempts(cfg.Shortener.MaxAttempts),
		usecase.WithExhaustionPolicy(usecase.ExhaustionPolicy(cfg.Shortener.ExhaustionPolicy), cfg.Shortener.LengthenBy),
		usecase.WithValidityPolicy(entity.ValidityPolicy(cfg.Shortener.ValidityPolicy)),
		usecase.WithAccessTimeout(cfg.Shortener.AccessTimeout),
	)
	// Let in-flight access updates finish before the store is closed.
	defer urlUseCase.Wait()

	router := delivery.NewRouter(logger, urlUseCase,
		delivery.WithHealthChecker(store),
		delivery.WithMetrics(m, m.Handler()),
		delivery.WithVersion(Version),
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// newStore opens the configured storage backend and returns a func releasing it.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (urlStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewURLRepository(nil), func() {}, nil
	case config.StorageDriverPostgres:
		db, err := pgpkg.New(
			ctx,
			cfg.Postgres.DSN(),
			pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
			pgpkg.WithConnectAttempts(cfg.Postgres.ConnectAttempts, 0),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if cfg.Postgres.Migrate {
			if err := pgpkg.RunMigrations(migrations.FS, ".", cfg.Postgres.DSN()); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		return postgres.NewURLRepository(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
