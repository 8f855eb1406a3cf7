// Package cached decorates a URL repository with a read-through cache for
// short code lookups, the hot path of every redirect.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/pkg/redis"
)

const (
	defaultTTL       = time.Hour
	defaultKeyPrefix = "url:"
)

type urlRepository interface {
	Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error)
	FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error)
	Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error)
	Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error)
	Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error)
	HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error)
}

type cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type recorder interface {
	CacheHit()
	CacheMiss()
}

type noopRecorder struct{}

func (noopRecorder) CacheHit()  {}
func (noopRecorder) CacheMiss() {}

type cachedURL struct {
	ID           uuid.UUID       `json:"id"`
	OriginalURL  string          `json:"original_url"`
	ShortCode    string          `json:"short_code"`
	IsCustomCode bool            `json:"is_custom_code"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	LastAccessed *time.Time      `json:"last_accessed,omitempty"`
	AccessCount  int64           `json:"access_count"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	IsActive     bool            `json:"is_active"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

func toCached(u *entity.ShortenedURL) cachedURL {
	return cachedURL{
		ID:           u.ID,
		OriginalURL:  u.OriginalURL,
		ShortCode:    u.ShortCode,
		IsCustomCode: u.IsCustomCode,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastAccessed: u.LastAccessed,
		AccessCount:  u.AccessCount,
		ExpiresAt:    u.ExpiresAt,
		IsActive:     u.IsActive,
		Metadata:     u.Metadata,
	}
}

func (c cachedURL) toEntity() *entity.ShortenedURL {
	return &entity.ShortenedURL{
		ID:           c.ID,
		OriginalURL:  c.OriginalURL,
		ShortCode:    c.ShortCode,
		IsCustomCode: c.IsCustomCode,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		LastAccessed: c.LastAccessed,
		AccessCount:  c.AccessCount,
		ExpiresAt:    c.ExpiresAt,
		IsActive:     c.IsActive,
		Metadata:     c.Metadata,
	}
}

// URLRepository serves FindByCode from the cache and keeps it coherent on
// writes. Cache failures are logged and never fail the call.
//
// Access statistic updates do not invalidate the entry, so cached
// access_count and last_accessed lag behind the store for up to one TTL.
type URLRepository struct {
	repo      urlRepository
	cache     cache
	ttl       time.Duration
	keyPrefix string
	clock     entity.Clock
	recorder  recorder
	logger    *slog.Logger
}

type Option func(*URLRepository)

func WithTTL(d time.Duration) Option {
	return func(r *URLRepository) {
		if d > 0 {
			r.ttl = d
		}
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(r *URLRepository) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

func WithClock(c entity.Clock) Option {
	return func(r *URLRepository) {
		r.clock = c
	}
}

func WithRecorder(rec recorder) Option {
	return func(r *URLRepository) {
		r.recorder = rec
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *URLRepository) {
		r.logger = l
	}
}

func NewURLRepository(repo urlRepository, c cache, opts ...Option) *URLRepository {
	r := &URLRepository{
		repo:      repo,
		cache:     c,
		ttl:       defaultTTL,
		keyPrefix: defaultKeyPrefix,
		clock:     entity.RealClock{},
		recorder:  noopRecorder{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *URLRepository) key(code string) string {
	return r.keyPrefix + code
}

// Save writes through to the cache after the store accepted the record.
func (r *URLRepository) Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error) {
	const op = "adapter.repository.cached.URLRepository.Save"

	saved, err := r.repo.Save(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.store(ctx, saved)

	return saved, nil
}

func (r *URLRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error) {
	return r.repo.FindByID(ctx, id)
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error) {
	const op = "adapter.repository.cached.URLRepository.FindByCode"

	if url, ok := r.load(ctx, code); ok {
		r.recorder.CacheHit()
		return url, nil
	}

	r.recorder.CacheMiss()

	url, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.store(ctx, url)

	return url, nil
}

func (r *URLRepository) Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error) {
	return r.repo.Find(ctx, q)
}

func (r *URLRepository) Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error) {
	const op = "adapter.repository.cached.URLRepository.Update"

	affected, err := r.repo.Update(ctx, id, params)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if affected > 0 && !isAccessOnly(params) {
		// Short codes never change, so the record can be read after the write.
		if url, err := r.repo.FindByID(ctx, id); err == nil {
			r.invalidate(ctx, url.ShortCode)
		} else if !errors.Is(err, entity.ErrURLNotFound) {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to resolve short code for cache invalidation",
				slog.String("id", id.String()), slog.String("error", err.Error()))
		}
	}

	return affected, nil
}

func (r *URLRepository) Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error) {
	const op = "adapter.repository.cached.URLRepository.Delete"

	url, lookupErr := r.repo.FindByID(ctx, id)

	deleted, err := r.repo.Delete(ctx, id, requireExists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if lookupErr == nil {
		r.invalidate(ctx, url.ShortCode)
	}

	return deleted, nil
}

func (r *URLRepository) HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error) {
	return r.repo.HealthCheck(ctx)
}

func isAccessOnly(p entity.UpdateParams) bool {
	return p.OriginalURL == nil && p.IsActive == nil && p.ExpiresAt == nil && p.Metadata == nil
}

func (r *URLRepository) load(ctx context.Context, code string) (*entity.ShortenedURL, bool) {
	data, err := r.cache.Get(ctx, r.key(code))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to read url from cache",
				slog.String("short_code", code), slog.String("error", err.Error()))
		}
		return nil, false
	}

	var c cachedURL
	if err := json.Unmarshal(data, &c); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to decode cached url",
			slog.String("short_code", code), slog.String("error", err.Error()))
		return nil, false
	}

	return c.toEntity(), true
}

// store caches url until the earlier of the configured TTL and its expiry.
// Expired records are not cached.
func (r *URLRepository) store(ctx context.Context, url *entity.ShortenedURL) {
	ttl := r.ttl
	if url.ExpiresAt != nil {
		ttl = min(ttl, url.ExpiresAt.Sub(r.clock.Now()))
	}
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(toCached(url))
	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, r.key(url.ShortCode), data, ttl); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to write url to cache",
			slog.String("short_code", url.ShortCode), slog.String("error", err.Error()))
	}
}

func (r *URLRepository) invalidate(ctx context.Context, code string) {
	if err := r.cache.Delete(ctx, r.key(code)); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to invalidate cached url",
			slog.String("short_code", code), slog.String("error", err.Error()))
	}
}
