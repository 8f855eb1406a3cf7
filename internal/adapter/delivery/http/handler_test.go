package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/internal/metrics"
	"github.com/vadimbarashkov/shortener/internal/usecase"
	"github.com/vadimbarashkov/shortener/internal/validation"
)

type HandlersTestSuite struct {
	suite.Suite
	logger            *httplog.Logger
	urlUseCaseMock    *mockURLUseCase
	healthCheckerMock *mockHealthChecker
	server            *httptest.Server
	e                 *httpexpect.Expect
	id                uuid.UUID
	url               *entity.ShortenedURL
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
	suite.id = uuid.MustParse("9f1c6a52-6a0e-4c1e-9c63-3f0c2d1e4b7a")

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	suite.url = &entity.ShortenedURL{
		ID:          suite.id,
		OriginalURL: "https://example.com",
		ShortCode:   "abc123",
		CreatedAt:   now,
		UpdatedAt:   now,
		IsActive:    true,
	}
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlUseCaseMock = new(mockURLUseCase)
	suite.healthCheckerMock = new(mockHealthChecker)

	m := metrics.New()
	router := NewRouter(suite.logger, suite.urlUseCaseMock,
		WithHealthChecker(suite.healthCheckerMock),
		WithMetrics(m, m.Handler()),
		WithVersion("1.0.0"),
	)
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL: suite.server.URL,
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Reporter: httpexpect.NewAssertReporter(suite.T()),
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlUseCaseMock.AssertExpectations(suite.T())
	suite.healthCheckerMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *HandlersTestSuite) TestHealth() {
	const path = "/health"

	suite.Run("healthy", func() {
		suite.healthCheckerMock.
			On("HealthCheck", mock.Anything).
			Once().
			Return(&entity.DatabaseInfo{Name: "shortener", Version: "PostgreSQL 16.4"}, nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "OK")
		resp.HasValue("version", "1.0.0")
		resp.ContainsKey("uptime_seconds")

		db := resp.Value("db_health").Object()
		db.HasValue("status", "healthy")
		db.ContainsKey("response_time_ms")
		db.Value("db_info").Object().
			HasValue("name", "shortener").
			HasValue("version", "PostgreSQL 16.4")
	})

	suite.Run("unhealthy", func() {
		suite.healthCheckerMock.
			On("HealthCheck", mock.Anything).
			Once().
			Return(nil, errors.New("connection refused"))

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "OK")

		db := resp.Value("db_health").Object()
		db.HasValue("status", "unhealthy")
		db.ContainsKey("message")
		db.NotContainsKey("db_info")
	})
}

func (suite *HandlersTestSuite) TestMetricsAndDocs() {
	suite.Run("metrics", func() {
		suite.e.GET("/api/v1/ping").Expect().Status(http.StatusOK)

		suite.e.GET("/metrics").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains(`shortener_http_requests_total{method="GET",route="/api/v1/ping",status="200"} 1`)
	})

	suite.Run("swagger document", func() {
		suite.e.GET("/docs/swagger.yml").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("openapi: 3.0.3")
	})
}

func (suite *HandlersTestSuite) TestCreateURL() {
	const path = "/api/v1/urls"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("type", "VALIDATION")
		resp.ContainsKey("message")
	})

	suite.Run("invalid request body", func() {
		resp := suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("validation error", func() {
		cause := validation.New().Var("invalid url", "required,http_url")
		suite.urlUseCaseMock.
			On("Create", mock.Anything, usecase.CreateParams{OriginalURL: "invalid url"}).
			Once().
			Return(nil, entity.NewValidationError(cause, "Invalid URL format: %s", "invalid url").WithField("original_url"))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "invalid url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("status_code", http.StatusBadRequest)
		resp.HasValue("message", "Invalid URL format: invalid url")
		resp.Value("details").Array().Value(0).Object().
			HasValue("field", "original_url").
			HasValue("value", "invalid url").
			ContainsKey("issue")
	})

	suite.Run("alias in use", func() {
		suite.urlUseCaseMock.
			On("Create", mock.Anything, usecase.CreateParams{OriginalURL: "https://example.com", CustomAlias: "promo"}).
			Once().
			Return(nil, fmt.Errorf("usecase: %w",
				entity.NewConflictError(entity.ErrShortCodeExists, "Custom short code '%s' is already in use", "promo")))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com", "custom_alias": "promo"}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("type", "CONFLICT")
		resp.HasValue("message", "Custom short code 'promo' is already in use")
	})

	suite.Run("use case validation error", func() {
		suite.urlUseCaseMock.
			On("Create", mock.Anything, mock.Anything).
			Once().
			Return(nil, entity.NewValidationError(nil, "Expiration date must be in the future").WithField("expires_at"))

		resp := suite.e.POST(path).
			WithJSON(map[string]any{"original_url": "https://example.com", "expires_at": "2000-01-01T00:00:00Z"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("type", "VALIDATION")
		resp.HasValue("message", "Expiration date must be in the future")
		resp.Value("details").Array().Value(0).Object().
			HasValue("field", "expires_at")
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("Create", mock.Anything, usecase.CreateParams{OriginalURL: "https://example.com"}).
			Once().
			Return(nil, entity.NewInternalError(usecase.ErrMaxRetriesExceeded,
				"failed to generate a unique short code after multiple attempts"))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"original_url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("type", "INTERNAL")
		resp.ContainsKey("message")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("Create", mock.Anything, mock.MatchedBy(func(p usecase.CreateParams) bool {
				return p.OriginalURL == "https://example.com" &&
					p.ExpiresInDays != nil && *p.ExpiresInDays == 7 &&
					string(p.Metadata) == `{"campaign":"spring"}`
			})).
			Once().
			Return(suite.url, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]any{
				"original_url":    "https://example.com",
				"expires_in_days": 7,
				"metadata":        map[string]string{"campaign": "spring"},
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("status", "success")
		resp.HasValue("status_code", http.StatusCreated)

		data := resp.Value("data").Object()
		data.HasValue("id", suite.id.String())
		data.HasValue("short_code", "abc123")
		data.HasValue("original_url", "https://example.com")
		data.HasValue("access_count", 0)
		data.HasValue("is_active", true)
		data.HasValue("is_custom_code", false)
		data.ContainsKey("created_at")
		data.ContainsKey("expires_at")
	})
}

func (suite *HandlersTestSuite) TestListURLs() {
	const path = "/api/v1/urls"

	suite.Run("invalid query", func() {
		resp := suite.e.GET(path).
			WithQuery("limit", 1000).
			WithQuery("is_active", "maybe").
			WithQuery("order_by", "password").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("type", "VALIDATION")
		resp.Value("details").Array().Length().IsEqual(3)
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("List", mock.Anything, mock.Anything).
			Once().
			Return(nil, errors.New("unknown error"))

		suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		active := true
		suite.urlUseCaseMock.
			On("List", mock.Anything, entity.Query{
				Filter:    entity.Filter{IsActive: &active},
				OrderBy:   entity.SortByAccessCount,
				Direction: entity.SortAsc,
				Limit:     10,
				Offset:    0,
			}).
			Once().
			Return([]*entity.ShortenedURL{suite.url}, nil)

		resp := suite.e.GET(path).
			WithQuery("is_active", "true").
			WithQuery("order_by", "access_count").
			WithQuery("order_direction", "asc").
			WithQuery("limit", 10).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		data := resp.Value("data").Object()
		data.HasValue("count", 1)
		data.HasValue("limit", 10)
		data.HasValue("offset", 0)
		data.Value("items").Array().Value(0).Object().HasValue("short_code", "abc123")
	})
}

func (suite *HandlersTestSuite) TestGetURL() {
	const path = "/api/v1/urls/%s"

	suite.Run("invalid id", func() {
		resp := suite.e.GET(fmt.Sprintf(path, "not-a-uuid")).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("type", "VALIDATION")
	})

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("GetByID", mock.Anything, suite.id).
			Once().
			Return(nil, entity.NewNotFoundError(entity.ErrURLNotFound, "URL with id '%s' not found", suite.id))

		resp := suite.e.GET(fmt.Sprintf(path, suite.id)).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.HasValue("type", "NOT_FOUND")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("GetByID", mock.Anything, suite.id).
			Once().
			Return(suite.url, nil)

		resp := suite.e.GET(fmt.Sprintf(path, suite.id)).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.Value("data").Object().HasValue("id", suite.id.String())
	})
}

func (suite *HandlersTestSuite) TestGetURLByCode() {
	const path = "/api/v1/urls/code/%s"

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("GetByCode", mock.Anything, "missing").
			Once().
			Return(nil, entity.NewNotFoundError(entity.ErrURLNotFound, "URL with code '%s' not found", "missing"))

		resp := suite.e.GET(fmt.Sprintf(path, "missing")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("message", "URL with code 'missing' not found")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("GetByCode", mock.Anything, "abc123").
			Once().
			Return(suite.url, nil)

		resp := suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.Value("data").Object().HasValue("short_code", "abc123")
	})
}

func (suite *HandlersTestSuite) TestUpdateURL() {
	const path = "/api/v1/urls/%s"

	suite.Run("empty request body", func() {
		suite.e.PATCH(fmt.Sprintf(path, suite.id)).
			Expect().
			Status(http.StatusBadRequest)
	})

	suite.Run("validation error", func() {
		invalid := "invalid url"
		cause := validation.New().Var(invalid, "required,http_url")
		suite.urlUseCaseMock.
			On("Update", mock.Anything, suite.id, entity.UpdateParams{OriginalURL: &invalid}).
			Once().
			Return(int64(0), entity.NewValidationError(cause, "Invalid URL format: %s", invalid).WithField("original_url"))

		resp := suite.e.PATCH(fmt.Sprintf(path, suite.id)).
			WithJSON(map[string]string{"original_url": invalid}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("message", "Invalid URL format: invalid url")
		resp.Value("details").Array().Value(0).Object().
			HasValue("field", "original_url")
	})

	suite.Run("nothing to update", func() {
		suite.urlUseCaseMock.
			On("Update", mock.Anything, suite.id, entity.UpdateParams{}).
			Once().
			Return(int64(0), entity.NewValidationError(nil, "No fields to update"))

		resp := suite.e.PATCH(fmt.Sprintf(path, suite.id)).
			WithJSON(map[string]string{}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("message", "No fields to update")
	})

	suite.Run("no matching record", func() {
		inactive := false
		suite.urlUseCaseMock.
			On("Update", mock.Anything, suite.id, entity.UpdateParams{IsActive: &inactive}).
			Once().
			Return(int64(0), nil)

		resp := suite.e.PATCH(fmt.Sprintf(path, suite.id)).
			WithJSON(map[string]bool{"is_active": false}).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.Value("data").Object().HasValue("affected", 0)
	})

	suite.Run("success", func() {
		newURL := "https://example.org"
		suite.urlUseCaseMock.
			On("Update", mock.Anything, suite.id, entity.UpdateParams{OriginalURL: &newURL}).
			Once().
			Return(int64(1), nil)

		resp := suite.e.PATCH(fmt.Sprintf(path, suite.id)).
			WithJSON(map[string]string{"original_url": newURL}).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "success")
		resp.Value("data").Object().HasValue("affected", 1)
	})
}

func (suite *HandlersTestSuite) TestDeleteURL() {
	const path = "/api/v1/urls/%s"

	suite.Run("invalid id", func() {
		suite.e.DELETE(fmt.Sprintf(path, "123")).
			Expect().
			Status(http.StatusBadRequest)
	})

	suite.Run("server error", func() {
		suite.urlUseCaseMock.
			On("Delete", mock.Anything, suite.id).
			Once().
			Return(false, errors.New("unknown error"))

		suite.e.DELETE(fmt.Sprintf(path, suite.id)).
			Expect().
			Status(http.StatusInternalServerError)
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("Delete", mock.Anything, suite.id).
			Once().
			Return(true, nil)

		resp := suite.e.DELETE(fmt.Sprintf(path, suite.id)).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.Value("data").Object().HasValue("deleted", true)
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/%s"

	suite.Run("url not found", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "missing").
			Once().
			Return(nil, entity.NewNotFoundError(entity.ErrURLNotFound, "URL with code '%s' not found", "missing"))

		resp := suite.e.GET(fmt.Sprintf(path, "missing")).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("type", "NOT_FOUND")
	})

	suite.Run("expired", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "old").
			Once().
			Return(nil, entity.NewValidationError(nil, "URL with code '%s' has expired", "old"))

		resp := suite.e.GET(fmt.Sprintf(path, "old")).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("message", "URL with code 'old' has expired")
	})

	suite.Run("panic", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "boom").
			Once().
			Panic("boom")

		resp := suite.e.GET(fmt.Sprintf(path, "boom")).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("type", "INTERNAL")
	})

	suite.Run("success", func() {
		suite.urlUseCaseMock.
			On("Resolve", mock.Anything, "abc123").
			Once().
			Return(&entity.RedirectTarget{Location: "https://example.com", StatusCode: http.StatusTemporaryRedirect}, nil)

		suite.e.GET(fmt.Sprintf(path, "abc123")).
			Expect().
			Status(http.StatusTemporaryRedirect).
			Header("Location").IsEqual("https://example.com")
	})
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
