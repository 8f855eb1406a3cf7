package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErrCode
}

const columns = `id, original_url, short_code, is_custom_code, created_at, updated_at,
	last_accessed, access_count, expires_at, is_active, metadata`

type urlDB struct {
	ID           uuid.UUID    `db:"id"`
	OriginalURL  string       `db:"original_url"`
	ShortCode    string       `db:"short_code"`
	IsCustomCode bool         `db:"is_custom_code"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastAccessed sql.NullTime `db:"last_accessed"`
	AccessCount  int64        `db:"access_count"`
	ExpiresAt    sql.NullTime `db:"expires_at"`
	IsActive     bool         `db:"is_active"`
	Metadata     []byte       `db:"metadata"`
}

func (u *urlDB) toEntity() *entity.ShortenedURL {
	url := &entity.ShortenedURL{
		ID:           u.ID,
		OriginalURL:  u.OriginalURL,
		ShortCode:    u.ShortCode,
		IsCustomCode: u.IsCustomCode,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		AccessCount:  u.AccessCount,
		IsActive:     u.IsActive,
	}

	if u.LastAccessed.Valid {
		t := u.LastAccessed.Time
		url.LastAccessed = &t
	}
	if u.ExpiresAt.Valid {
		t := u.ExpiresAt.Time
		url.ExpiresAt = &t
	}
	if len(u.Metadata) > 0 {
		url.Metadata = json.RawMessage(u.Metadata)
	}

	return url
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullJSON(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Save(ctx context.Context, url *entity.ShortenedURL) (*entity.ShortenedURL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `
		INSERT INTO shortened_urls (original_url, short_code, is_custom_code, created_at, updated_at, expires_at, is_active, metadata)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
		RETURNING ` + columns

	var row urlDB

	err := r.db.GetContext(ctx, &row, query,
		url.OriginalURL,
		url.ShortCode,
		url.IsCustomCode,
		url.CreatedAt,
		nullTime(url.ExpiresAt),
		url.IsActive,
		nullJSON(url.Metadata),
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into shortened_urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ShortenedURL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByID"
	const query = `SELECT ` + columns + ` FROM shortened_urls WHERE id = $1`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from shortened_urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.ShortenedURL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByCode"
	const query = `SELECT ` + columns + ` FROM shortened_urls WHERE short_code = $1`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from shortened_urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) Find(ctx context.Context, q entity.Query) ([]*entity.ShortenedURL, error) {
	const op = "adapter.repository.postgres.URLRepository.Find"

	query, args := buildFindQuery(q.Normalize())

	var rows []urlDB

	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select from shortened_urls table: %w", op, err)
	}

	urls := make([]*entity.ShortenedURL, 0, len(rows))
	for i := range rows {
		urls = append(urls, rows[i].toEntity())
	}

	return urls, nil
}

// Update applies the non-nil fields of params. The access count is
// incremented in SQL so concurrent redirects are never lost.
func (r *URLRepository) Update(ctx context.Context, id uuid.UUID, params entity.UpdateParams) (int64, error) {
	const op = "adapter.repository.postgres.URLRepository.Update"

	query, args := buildUpdateQuery(id, params)

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to update shortened_urls table row: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return rowsAffected, nil
}

func (r *URLRepository) Delete(ctx context.Context, id uuid.UUID, requireExists bool) (bool, error) {
	const op = "adapter.repository.postgres.URLRepository.Delete"
	const query = `DELETE FROM shortened_urls WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%s: failed to delete from shortened_urls table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected == 0 && requireExists {
		return false, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return rowsAffected > 0, nil
}

func (r *URLRepository) HealthCheck(ctx context.Context) (*entity.DatabaseInfo, error) {
	const op = "adapter.repository.postgres.URLRepository.HealthCheck"
	const query = `SELECT current_database() AS name, version() AS version`

	var info struct {
		Name    string `db:"name"`
		Version string `db:"version"`
	}

	if err := r.db.GetContext(ctx, &info, query); err != nil {
		return nil, fmt.Errorf("%s: failed to query database info: %w", op, err)
	}

	return &entity.DatabaseInfo{Name: info.Name, Version: info.Version}, nil
}
