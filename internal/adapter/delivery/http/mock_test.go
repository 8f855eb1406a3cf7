package http

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/internal/usecase"
)

type mockURLUseCase struct {
	mock.Mock
}

func (m *mockURLUseCase) Create(ctx context.Context, params usecase.CreateParams) (*entity.ShortenedURL, error) {
	args := m.Called(ctx, params)
	url, _ := args.Get(0).(*entity.ShortenedURL)
	return url, args.Error(1)
}

func (m *mockURLUseCase) Resolve(ctx context.Context, code string) (*entity.RedirectTarget, error) {
	args := m.Called(ctx, code)
	target, _ := args.Get(0).(*entity.RedirectTarget)
	return target, args.Error(1)
}

func (m *mockURLUseCase) GetByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error) {
	args := m.Called(ctx, id)
	url, _ := args.Get(0).(*entity.ShortenedURL)
	return url, args.Error(1)
}

func (m *mockURLUseCase) GetByCode(ctx context.Context, code string) (*entity.ShortenedURL, error) {
	args := m.Called(ctx, code)
	url, _ := args.Get(0).(*entity.ShortenedURL)
	return url, args.Error(1)
}

func (m *mockURLUseCase) List(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error) {
	args := m.Called(ctx, q)
	urls, _ := args.Get(0).([]*entity.ShortenedURL)
	return urls, args.Error(1)
}

func (m *mockURLUseCase) Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockURLUseCase) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockHealthChecker struct {
	mock.Mock
}

func (m *mockHealthChecker) HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*entity.DatabaseInfo)
	return info, args.Error(1)
}
