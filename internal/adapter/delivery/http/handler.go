package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/internal/usecase"
	"github.com/vadimbarashkov/shortener/pkg/response"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type healthChecker interface {
	HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error)
}

// handleHealth always answers 200; database problems are reported in the body.
func handleHealth(hc healthChecker, version string, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:        "OK",
			Version:       version,
			UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		}

		start := time.Now()
		info, err := hc.HealthCheck(r.Context())
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			resp.Database = databaseHealth{
				Status:         "unhealthy",
				ResponseTimeMS: elapsed,
				Message:        "Database health check failed",
			}
		} else {
			resp.Database = databaseHealth{
				Status:         "healthy",
				ResponseTimeMS: elapsed,
				Info:           &databaseInfo{Name: info.Name, Version: info.Version},
			}
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, resp)
	}
}

type urlUseCase interface {
	Create(ctx context.Context, params usecase.CreateParams) (*entity.ShortenedURL, error)
	Resolve(ctx context.Context, code string) (*entity.RedirectTarget, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error)
	GetByCode(ctx context.Context, code string) (*entity.ShortenedURL, error)
	List(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error)
	Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type urlHandler struct {
	useCase urlUseCase
}

func newURLHandler(useCase urlUseCase) *urlHandler {
	return &urlHandler{useCase: useCase}
}

// decode reads a JSON body into v. It writes the error response itself
// and reports whether the handler may continue.
func (h *urlHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		render.Status(r, http.StatusBadRequest)
		if errors.Is(err, io.EOF) {
			render.JSON(w, r, response.EmptyRequestBodyResponse)
		} else {
			render.JSON(w, r, response.InvalidRequestBodyResponse)
		}
		return false
	}

	return true
}

func (h *urlHandler) createURL(w http.ResponseWriter, r *http.Request) {
	const successMsg = "The URL has been shortened successfully."

	var req createURLRequest
	if !h.decode(w, r, &req) {
		return
	}

	url, err := h.useCase.Create(r.Context(), req.toParams())
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.SuccessResponse(http.StatusCreated, successMsg, toURLResponse(url)))
}

func (h *urlHandler) listURLs(w http.ResponseWriter, r *http.Request) {
	const successMsg = "URLs retrieved successfully."

	q, details := parseListQuery(r.URL.Query())
	if len(details) > 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorResponse(http.StatusBadRequest, response.TypeValidation,
			"Invalid query parameters. Please check the details.", details...))
		return
	}

	urls, err := h.useCase.List(r.Context(), q)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, listResponse{
		Items:  toURLResponses(urls),
		Count:  len(urls),
		Limit:  q.Limit,
		Offset: q.Offset,
	}))
}

func (h *urlHandler) getURL(w http.ResponseWriter, r *http.Request) {
	const successMsg = "URL retrieved successfully."

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	url, err := h.useCase.GetByID(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, toURLResponse(url)))
}

func (h *urlHandler) getURLByCode(w http.ResponseWriter, r *http.Request) {
	const successMsg = "URL retrieved successfully."

	url, err := h.useCase.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, toURLResponse(url)))
}

func (h *urlHandler) updateURL(w http.ResponseWriter, r *http.Request) {
	const successMsg = "URL updated successfully."

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateURLRequest
	if !h.decode(w, r, &req) {
		return
	}

	affected, err := h.useCase.Update(r.Context(), id, req.toParams())
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, updateResponse{Affected: affected}))
}

func (h *urlHandler) deleteURL(w http.ResponseWriter, r *http.Request) {
	const successMsg = "URL deleted successfully."

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.useCase.Delete(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse(http.StatusOK, successMsg, deleteResponse{Deleted: deleted}))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	target, err := h.useCase.Resolve(r.Context(), code)
	if err != nil {
		renderError(w, r, err)
		return
	}

	httplog.LogEntrySetField(r.Context(), "short_code", slog.StringValue(code))
	http.Redirect(w, r, target.Location, target.StatusCode)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")

	id, err := uuid.Parse(raw)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorResponse(http.StatusBadRequest, response.TypeValidation,
			fmt.Sprintf("Invalid URL id '%s'", raw)))
		return uuid.Nil, false
	}

	return id, true
}

// renderError maps an application error to its HTTP status. Internal errors
// are logged and answered with a generic message.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var status int

	kind := entity.KindOf(err)
	switch kind {
	case entity.KindValidation:
		status = http.StatusBadRequest
	case entity.KindConflict:
		status = http.StatusConflict
	case entity.KindNotFound:
		status = http.StatusNotFound
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
		return
	}

	render.Status(r, status)

	if kind == entity.KindValidation {
		var (
			field string
			cause error
		)
		var appErr *entity.Error
		if errors.As(err, &appErr) {
			field, cause = appErr.Field, appErr.Err
		}

		render.JSON(w, r, response.ValidationErrorResponse(entity.MessageOf(err), field, cause))
		return
	}

	render.JSON(w, r, response.ErrorResponse(status, kind.String(), entity.MessageOf(err)))
}
