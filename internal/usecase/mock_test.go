package usecase

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

type mockURLRepository struct {
	mock.Mock
}

func (m *mockURLRepository) Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error) {
	args := m.Called(ctx, url)
	if fn, ok := args.Get(0).(func(context.Context, *entity.ShortenedURL) *entity.ShortenedURL); ok {
		return fn(ctx, url), args.Error(1)
	}
	saved, _ := args.Get(0).(*entity.ShortenedURL)
	return saved, args.Error(1)
}

func (m *mockURLRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error) {
	args := m.Called(ctx, id)
	url, _ := args.Get(0).(*entity.ShortenedURL)
	return url, args.Error(1)
}

func (m *mockURLRepository) FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error) {
	args := m.Called(ctx, code)
	url, _ := args.Get(0).(*entity.ShortenedURL)
	return url, args.Error(1)
}

func (m *mockURLRepository) Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error) {
	args := m.Called(ctx, q)
	urls, _ := args.Get(0).([]*entity.ShortenedURL)
	return urls, args.Error(1)
}

func (m *mockURLRepository) Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockURLRepository) Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error) {
	args := m.Called(ctx, id, requireExists)
	return args.Bool(0), args.Error(1)
}

// sequenceGenerator returns the given codes in order, then repeats the last.
type sequenceGenerator struct {
	mu      sync.Mutex
	codes   []string
	lengths []int
}

func (g *sequenceGenerator) Generate(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lengths = append(g.lengths, length)

	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

type countingRecorder struct {
	mu           sync.Mutex
	created      int
	collisions   int
	redirects    map[string]int
	accessFailed int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{redirects: map[string]int{}}
}

func (r *countingRecorder) URLCreated(bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *countingRecorder) CodeCollision() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collisions++
}

func (r *countingRecorder) Redirect(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redirects[outcome]++
}

func (r *countingRecorder) AccessUpdateFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessFailed++
}
