package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

// accessTracker records redirects in detached goroutines.
type accessTracker struct {
	repo     urlRepository
	logger   *slog.Logger
	recorder recorder
	timeout  time.Duration
	wg       sync.WaitGroup
}

func (t *accessTracker) track(ctx context.Context, id uuid.UUID, at time.Time) {
	// Outlives the request; keeps its values but not its cancellation.
	ctx = context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		params := entity.UpdateParams{
			IncrementAccessCount: true,
			LastAccessed:         &at,
			AccessNote:           fmt.Sprintf("Last accessed at: %s", at.UTC().Format(time.RFC3339)),
		}

		if _, err := t.repo.Update(ctx, id, params); err != nil {
			t.recorder.AccessUpdateFailed()
			t.logger.LogAttrs(ctx, slog.LevelWarn, "failed to record url access",
				slog.String("id", id.String()),
				slog.Any("err", err),
			)
		}
	}()
}

func (t *accessTracker) wait() {
	t.wg.Wait()
}
