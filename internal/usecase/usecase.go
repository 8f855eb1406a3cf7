package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/internal/shortcode"
	"github.com/vadimbarashkov/shortener/internal/validation"
)

var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

type urlRepository interface {
	Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error)
	FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error)
	Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error)
	Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error)
	Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error)
}

type codeGenerator interface {
	Generate(length int) (string, error)
}

type recorder interface {
	URLCreated(custom bool)
	CodeCollision()
	Redirect(outcome string)
	AccessUpdateFailed()
}

type noopRecorder struct{}

func (noopRecorder) URLCreated(bool)     {}
func (noopRecorder) CodeCollision()      {}
func (noopRecorder) Redirect(string)     {}
func (noopRecorder) AccessUpdateFailed() {}

// ExhaustionPolicy decides what happens once every attempt of the
// configured length collided.
type ExhaustionPolicy string

const (
	ExhaustionFail     ExhaustionPolicy = "fail"
	ExhaustionLengthen ExhaustionPolicy = "lengthen"
)

const (
	defaultMaxAttempts   = 5
	defaultLengthenBy    = 2
	defaultAccessTimeout = 5 * time.Second
)

type URLUseCase struct {
	urlRepo      urlRepository
	generator    codeGenerator
	validate     *validator.Validate
	clock        entity.Clock
	recorder     recorder
	logger       *slog.Logger
	codeLength   int
	maxAttempts  int
	onExhaustion ExhaustionPolicy
	lengthenBy   int
	validity     entity.ValidityPolicy
	tracker      *accessTracker
}

type Option func(*URLUseCase)

func WithGenerator(g codeGenerator) Option {
	return func(uc *URLUseCase) {
		uc.generator = g
	}
}

func WithClock(c entity.Clock) Option {
	return func(uc *URLUseCase) {
		uc.clock = c
	}
}

func WithRecorder(r recorder) Option {
	return func(uc *URLUseCase) {
		uc.recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(uc *URLUseCase) {
		uc.logger = l
	}
}

func WithCodeLength(n int) Option {
	return func(uc *URLUseCase) {
		uc.codeLength = n
	}
}

func WithMaxAttempts(n int) Option {
	return func(uc *URLUseCase) {
		uc.maxAttempts = n
	}
}

// WithExhaustionPolicy sets the policy and, for ExhaustionLengthen, how many
// characters the final attempt adds.
func WithExhaustionPolicy(p ExhaustionPolicy, lengthenBy int) Option {
	return func(uc *URLUseCase) {
		uc.onExhaustion = p
		if lengthenBy > 0 {
			uc.lengthenBy = lengthenBy
		}
	}
}

func WithValidityPolicy(p entity.ValidityPolicy) Option {
	return func(uc *URLUseCase) {
		uc.validity = p
	}
}

// WithAccessTimeout bounds each background access update. Non-positive
// values keep the default.
func WithAccessTimeout(d time.Duration) Option {
	return func(uc *URLUseCase) {
		if d > 0 {
			uc.tracker.timeout = d
		}
	}
}

func New(urlRepo urlRepository, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:      urlRepo,
		generator:    shortcode.NewBase62Generator(),
		validate:     validation.New(),
		clock:        entity.RealClock{},
		recorder:     noopRecorder{},
		logger:       slog.Default(),
		codeLength:   entity.DefaultCodeLength,
		maxAttempts:  defaultMaxAttempts,
		onExhaustion: ExhaustionFail,
		lengthenBy:   defaultLengthenBy,
		validity:     entity.PolicyPermissive,
		tracker:      &accessTracker{timeout: defaultAccessTimeout},
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.tracker.repo = urlRepo
	uc.tracker.logger = uc.logger
	uc.tracker.recorder = uc.recorder

	return uc
}

func (uc *URLUseCase) GetByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error) {
	const op = "usecase.URLUseCase.GetByID"

	url, err := uc.urlRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			return nil, fmt.Errorf("%s: %w", op, entity.NewNotFoundError(err, "URL with id '%s' not found", id))
		}

		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) GetByCode(ctx context.Context, code string) (*entity.ShortenedURL, error) {
	const op = "usecase.URLUseCase.GetByCode"

	url, err := uc.urlRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			return nil, fmt.Errorf("%s: %w", op, entity.NewNotFoundError(err, "URL with code '%s' not found", code))
		}

		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

func (uc *URLUseCase) List(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error) {
	const op = "usecase.URLUseCase.List"

	urls, err := uc.urlRepo.Find(ctx, q.Normalize())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to find urls: %w", op, err)
	}

	return urls, nil
}

// Update applies a partial update and returns the number of affected
// records. Zero affected records is not an error.
func (uc *URLUseCase) Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error) {
	const op = "usecase.URLUseCase.Update"

	if params.IsEmpty() {
		return 0, fmt.Errorf("%s: %w", op, entity.NewValidationError(nil, "No fields to update"))
	}

	if params.OriginalURL != nil {
		if err := uc.validate.Var(*params.OriginalURL, "required,http_url"); err != nil {
			return 0, fmt.Errorf("%s: %w", op, entity.NewValidationError(err, "Invalid URL format: %s", *params.OriginalURL).WithField("original_url"))
		}
	}

	if params.ExpiresAt != nil && !params.ExpiresAt.After(uc.clock.Now()) {
		return 0, fmt.Errorf("%s: %w", op, entity.NewValidationError(nil, "Expiration date must be in the future").WithField("expires_at"))
	}

	if params.Metadata != nil && !json.Valid(params.Metadata) {
		return 0, fmt.Errorf("%s: %w", op, entity.NewValidationError(nil, "Metadata must be valid JSON").WithField("metadata"))
	}

	affected, err := uc.urlRepo.Update(ctx, id, params)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to update url: %w", op, err)
	}

	return affected, nil
}

// Delete removes the URL and reports whether it existed.
func (uc *URLUseCase) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "usecase.URLUseCase.Delete"

	deleted, err := uc.urlRepo.Delete(ctx, id, false)
	if err != nil {
		return false, fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return deleted, nil
}

// Wait blocks until all in-flight access updates have finished.
func (uc *URLUseCase) Wait() {
	uc.tracker.wait()
}
