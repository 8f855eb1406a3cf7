package http

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/internal/usecase"
)

// createURLRequest is the body of POST /api/v1/urls. Fields are checked by
// the use case.
type createURLRequest struct {
	OriginalURL   string          `json:"original_url"`
	CustomAlias   string          `json:"custom_alias,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	ExpiresInDays *int            `json:"expires_in_days,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

func (req createURLRequest) toParams() usecase.CreateParams {
	return usecase.CreateParams{
		OriginalURL:   req.OriginalURL,
		CustomAlias:   req.CustomAlias,
		ExpiresAt:     req.ExpiresAt,
		ExpiresInDays: req.ExpiresInDays,
		Metadata:      req.Metadata,
	}
}

// updateURLRequest is the body of PATCH /api/v1/urls/{id}. Absent fields are left unchanged.
type updateURLRequest struct {
	OriginalURL *string         `json:"original_url,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

func (req updateURLRequest) toParams() entity.UpdateParams {
	return entity.UpdateParams{
		OriginalURL: req.OriginalURL,
		IsActive:    req.IsActive,
		ExpiresAt:   req.ExpiresAt,
		Metadata:    req.Metadata,
	}
}

type urlResponse struct {
	ID           uuid.UUID       `json:"id"`
	ShortCode    string          `json:"short_code"`
	OriginalURL  string          `json:"original_url"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ExpiresAt    *time.Time      `json:"expires_at"`
	LastAccessed *time.Time      `json:"last_accessed"`
	AccessCount  int64           `json:"access_count"`
	IsActive     bool            `json:"is_active"`
	IsCustomCode bool            `json:"is_custom_code"`
	Metadata     json.RawMessage `json:"metadata"`
}

func toURLResponse(url *entity.ShortenedURL) urlResponse {
	return urlResponse{
		ID:           url.ID,
		ShortCode:    url.ShortCode,
		OriginalURL:  url.OriginalURL,
		CreatedAt:    url.CreatedAt,
		UpdatedAt:    url.UpdatedAt,
		ExpiresAt:    url.ExpiresAt,
		LastAccessed: url.LastAccessed,
		AccessCount:  url.AccessCount,
		IsActive:     url.IsActive,
		IsCustomCode: url.IsCustomCode,
		Metadata:     url.Metadata,
	}
}

func toURLResponses(urls []*entity.ShortenedURL) []urlResponse {
	resp := make([]urlResponse, 0, len(urls))
	for _, url := range urls {
		resp = append(resp, toURLResponse(url))
	}
	return resp
}

type listResponse struct {
	Items  []urlResponse `json:"items"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type updateResponse struct {
	Affected int64 `json:"affected"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

type databaseInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type databaseHealth struct {
	Status         string        `json:"status"`
	ResponseTimeMS int64         `json:"response_time_ms"`
	Message        string        `json:"message,omitempty"`
	Info           *databaseInfo `json:"db_info,omitempty"`
}

type healthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Database      databaseHealth `json:"db_health"`
}
