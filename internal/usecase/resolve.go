package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

const (
	outcomeRedirected = "redirected"
	outcomeNotFound   = "not_found"
	outcomeExpired    = "expired"
)

// Resolve looks up the code and returns where to redirect. The access
// statistics are updated in the background and never delay or fail the
// redirect.
func (uc *URLUseCase) Resolve(ctx context.Context, code string) (*entity.RedirectTarget, error) {
	const op = "usecase.URLUseCase.Resolve"

	url, err := uc.urlRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.recorder.Redirect(outcomeNotFound)
			return nil, fmt.Errorf("%s: %w", op, entity.NewNotFoundError(err, "URL with code '%s' not found", code))
		}

		return nil, fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	now := uc.clock.Now()

	if !uc.validity.Allows(url, now) {
		uc.recorder.Redirect(outcomeExpired)
		return nil, fmt.Errorf("%s: %w", op, entity.NewValidationError(nil, "URL with code '%s' has expired", code))
	}

	uc.tracker.track(ctx, url.ID, now)
	uc.recorder.Redirect(outcomeRedirected)

	return &entity.RedirectTarget{
		Location:   url.OriginalURL,
		StatusCode: http.StatusTemporaryRedirect,
	}, nil
}
