package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

// CreateParams describes a URL to shorten. A blank CustomAlias requests a
// generated code. ExpiresAt takes precedence over ExpiresInDays.
type CreateParams struct {
	OriginalURL   string
	CustomAlias   string
	ExpiresAt     *time.Time
	ExpiresInDays *int
	Metadata      json.RawMessage
}

// Create validates the input, allocates a unique short code and stores
// the new URL. Input is fully validated before the store is consulted.
func (uc *URLUseCase) Create(ctx context.Context, params CreateParams) (*entity.ShortenedURL, error) {
	const op = "usecase.URLUseCase.Create"

	now := uc.clock.Now()

	if err := uc.validate.Var(params.OriginalURL, "required,http_url"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, entity.NewValidationError(err, "Invalid URL format: %s", params.OriginalURL).WithField("original_url"))
	}

	alias := params.CustomAlias
	if strings.TrimSpace(alias) == "" {
		alias = ""
	}

	if alias != "" {
		if err := uc.validate.Var(alias, fmt.Sprintf("max=%d,shortalias", entity.MaxCustomCodeLength)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, entity.NewValidationError(err,
				"Invalid custom short code '%s': use 1-%d letters, digits, '_' or '-'", alias, entity.MaxCustomCodeLength).WithField("custom_alias"))
		}
	}

	expiresAt, err := expiration(params, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if params.Metadata != nil && !json.Valid(params.Metadata) {
		return nil, fmt.Errorf("%s: %w", op, entity.NewValidationError(nil, "Metadata must be valid JSON").WithField("metadata"))
	}

	url := entity.ShortenedURL{
		OriginalURL: params.OriginalURL,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   expiresAt,
		IsActive:    true,
		Metadata:    params.Metadata,
	}

	var saved *entity.ShortenedURL
	if alias != "" {
		saved, err = uc.createWithAlias(ctx, url, alias)
	} else {
		saved, err = uc.createWithGeneratedCode(ctx, url)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uc.recorder.URLCreated(saved.IsCustomCode)

	return saved, nil
}

func expiration(params CreateParams, now time.Time) (*time.Time, error) {
	switch {
	case params.ExpiresAt != nil:
		if !params.ExpiresAt.After(now) {
			return nil, entity.NewValidationError(nil, "Expiration date must be in the future").WithField("expires_at")
		}

		t := params.ExpiresAt.UTC()
		return &t, nil
	case params.ExpiresInDays != nil:
		days := *params.ExpiresInDays
		if days <= 0 {
			return nil, entity.NewValidationError(nil, "Expiration days must be positive").WithField("expires_in_days")
		}
		if days > entity.MaxExpirationDays {
			return nil, entity.NewValidationError(nil, "Expiration days must be at most %d", entity.MaxExpirationDays).WithField("expires_in_days")
		}

		t := now.Add(time.Duration(days) * 24 * time.Hour).UTC()
		return &t, nil
	default:
		return nil, nil
	}
}

func (uc *URLUseCase) createWithAlias(ctx context.Context, url entity.ShortenedURL, alias string) (*entity.ShortenedURL, error) {
	_, err := uc.urlRepo.FindByCode(ctx, alias)
	switch {
	case err == nil:
		return nil, entity.NewConflictError(entity.ErrShortCodeExists, "Custom short code '%s' is already in use", alias)
	case !errors.Is(err, entity.ErrURLNotFound):
		return nil, fmt.Errorf("failed to check custom short code: %w", err)
	}

	url.ShortCode = alias
	url.IsCustomCode = true

	saved, err := uc.urlRepo.Save(ctx, &url)
	if err != nil {
		if errors.Is(err, entity.ErrShortCodeExists) {
			return nil, entity.NewConflictError(err, "Custom short code '%s' is already in use", alias)
		}

		return nil, fmt.Errorf("failed to save url: %w", err)
	}

	return saved, nil
}

func (uc *URLUseCase) createWithGeneratedCode(ctx context.Context, url entity.ShortenedURL) (*entity.ShortenedURL, error) {
	for range uc.maxAttempts {
		saved, err := uc.tryCode(ctx, url, uc.codeLength)
		if err != nil || saved != nil {
			return saved, err
		}
	}

	if uc.onExhaustion == ExhaustionLengthen {
		saved, err := uc.tryCode(ctx, url, uc.codeLength+uc.lengthenBy)
		if err != nil || saved != nil {
			return saved, err
		}
	}

	return nil, entity.NewInternalError(ErrMaxRetriesExceeded,
		"failed to generate a unique short code after multiple attempts")
}

// tryCode makes a single allocation attempt. It returns (nil, nil) when the
// candidate collided with an existing code.
func (uc *URLUseCase) tryCode(ctx context.Context, url entity.ShortenedURL, length int) (*entity.ShortenedURL, error) {
	code, err := uc.generator.Generate(length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate short code: %w", err)
	}

	_, err = uc.urlRepo.FindByCode(ctx, code)
	switch {
	case err == nil:
		uc.recorder.CodeCollision()
		return nil, nil
	case !errors.Is(err, entity.ErrURLNotFound):
		return nil, fmt.Errorf("failed to check short code: %w", err)
	}

	url.ShortCode = code
	url.IsCustomCode = false

	saved, err := uc.urlRepo.Save(ctx, &url)
	if err != nil {
		if errors.Is(err, entity.ErrShortCodeExists) {
			uc.recorder.CodeCollision()
			return nil, nil
		}

		return nil, fmt.Errorf("failed to save url: %w", err)
	}

	return saved, nil
}
