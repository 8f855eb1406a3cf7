// Package memory provides a thread-safe in-memory URL store.
package memory

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

type URLRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*entity.ShortenedURL
	byCode map[string]uuid.UUID
	clock  entity.Clock
}

func NewURLRepository(clock entity.Clock) *URLRepository {
	if clock == nil {
		clock = entity.RealClock{}
	}

	return &URLRepository{
		byID:   make(map[uuid.UUID]*entity.ShortenedURL),
		byCode: make(map[string]uuid.UUID),
		clock:  clock,
	}
}

// Save inserts the URL if its short code is free, atomically.
func (r *URLRepository) Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[url.ShortCode]; exists {
		return nil, entity.ErrShortCodeExists
	}

	stored := clone(url)
	stored.ID = uuid.New()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.clock.Now()
	}
	stored.UpdatedAt = stored.CreatedAt

	r.byID[stored.ID] = stored
	r.byCode[stored.ShortCode] = stored.ID

	return clone(stored), nil
}

func (r *URLRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.byID[id]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	return clone(url), nil
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	return clone(r.byID[id]), nil
}

func (r *URLRepository) Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q = q.Normalize()
	now := r.clock.Now()

	r.mu.RLock()
	matched := make([]*entity.ShortenedURL, 0, len(r.byID))
	for _, url := range r.byID {
		if matches(url, q.Filter, now) {
			matched = append(matched, clone(url))
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *entity.ShortenedURL) int {
		c := compare(a, b, q.OrderBy)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if q.Direction == entity.SortDesc {
			return -c
		}
		return c
	})

	if q.Offset >= len(matched) {
		return []*entity.ShortenedURL{}, nil
	}

	end := min(q.Offset+q.Limit, len(matched))

	return matched[q.Offset:end], nil
}

func (r *URLRepository) Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	url, ok := r.byID[id]
	if !ok {
		return 0, nil
	}

	if params.OriginalURL != nil {
		url.OriginalURL = *params.OriginalURL
	}
	if params.IsActive != nil {
		url.IsActive = *params.IsActive
	}
	if params.ExpiresAt != nil {
		t := *params.ExpiresAt
		url.ExpiresAt = &t
	}
	if params.Metadata != nil {
		url.Metadata = bytes.Clone(params.Metadata)
	}
	if params.IncrementAccessCount {
		url.AccessCount++
	}
	if params.LastAccessed != nil {
		t := *params.LastAccessed
		url.LastAccessed = &t
	}
	if params.AccessNote != "" {
		url.Metadata = entity.MergeAccessNote(url.Metadata, params.AccessNote)
	}
	url.UpdatedAt = r.clock.Now()

	return 1, nil
}

// HealthCheck reports the store identity.
func (r *URLRepository) HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &entity.DatabaseInfo{Name: "memory", Version: "in-process"}, nil
}

func (r *URLRepository) Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	url, ok := r.byID[id]
	if !ok {
		if requireExists {
			return false, entity.ErrURLNotFound
		}
		return false, nil
	}

	delete(r.byCode, url.ShortCode)
	delete(r.byID, id)

	return true, nil
}

func matches(url *entity.ShortenedURL, f entity.Filter, now time.Time) bool {
	switch {
	case f.ID != nil && url.ID != *f.ID:
		return false
	case f.ShortCode != nil && url.ShortCode != *f.ShortCode:
		return false
	case f.OriginalURL != nil && !strings.Contains(url.OriginalURL, *f.OriginalURL):
		return false
	case f.CreatedAfter != nil && !url.CreatedAt.After(*f.CreatedAfter):
		return false
	case f.CreatedBefore != nil && !url.CreatedAt.Before(*f.CreatedBefore):
		return false
	case f.IsExpired != nil && url.IsExpired(now) != *f.IsExpired:
		return false
	case f.IsActive != nil && url.IsActive != *f.IsActive:
		return false
	case f.IsCustomCode != nil && url.IsCustomCode != *f.IsCustomCode:
		return false
	case f.MinAccessCount != nil && url.AccessCount < *f.MinAccessCount:
		return false
	}
	return true
}

func compare(a, b *entity.ShortenedURL, field entity.SortField) int {
	switch field {
	case entity.SortByID:
		return strings.Compare(a.ID.String(), b.ID.String())
	case entity.SortByShortCode:
		return strings.Compare(a.ShortCode, b.ShortCode)
	case entity.SortByOriginalURL:
		return strings.Compare(a.OriginalURL, b.OriginalURL)
	case entity.SortByExpiresAt:
		return compareTimes(a.ExpiresAt, b.ExpiresAt)
	case entity.SortByLastAccess:
		return compareTimes(a.LastAccessed, b.LastAccessed)
	case entity.SortByAccessCount:
		return cmp.Compare(a.AccessCount, b.AccessCount)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// compareTimes orders nil after every value, like NULLS LAST.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func clone(url *entity.ShortenedURL) *entity.ShortenedURL {
	c := *url
	if url.ExpiresAt != nil {
		t := *url.ExpiresAt
		c.ExpiresAt = &t
	}
	if url.LastAccessed != nil {
		t := *url.LastAccessed
		c.LastAccessed = &t
	}
	if url.Metadata != nil {
		c.Metadata = bytes.Clone(url.Metadata)
	}
	return &c
}
