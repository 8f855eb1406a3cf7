package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// SortField is a column stored URLs can be ordered by.
type SortField string

const (
	SortByID          SortField = "id"
	SortByShortCode   SortField = "short_code"
	SortByOriginalURL SortField = "original_url"
	SortByCreatedAt   SortField = "created_at"
	SortByExpiresAt   SortField = "expires_at"
	SortByLastAccess  SortField = "last_accessed"
	SortByAccessCount SortField = "access_count"
)

// Valid reports whether f is one of the known sort fields.
func (f SortField) Valid() bool {
	switch f {
	case SortByID, SortByShortCode, SortByOriginalURL, SortByCreatedAt,
		SortByExpiresAt, SortByLastAccess, SortByAccessCount:
		return true
	}
	return false
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Filter narrows a search. Nil fields are not applied.
type Filter struct {
	ID             *uuid.UUID
	ShortCode      *string
	OriginalURL    *string // substring match
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	IsExpired      *bool
	IsActive       *bool
	IsCustomCode   *bool
	MinAccessCount *int64
}

// Query is a filtered, ordered and paginated search.
type Query struct {
	Filter
	OrderBy   SortField
	Direction SortDirection
	Limit     int
	Offset    int
}

// Normalize fills defaults and clamps pagination.
// Unknown sort fields fall back to created_at, unknown directions to desc.
func (q Query) Normalize() Query {
	if !q.OrderBy.Valid() {
		q.OrderBy = SortByCreatedAt
	}
	if !q.Direction.Valid() {
		q.Direction = SortDesc
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// UpdateParams is a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	OriginalURL *string
	IsActive    *bool
	ExpiresAt   *time.Time
	Metadata    json.RawMessage

	// Access tracking, applied atomically by the store.
	IncrementAccessCount bool
	LastAccessed         *time.Time
	AccessNote           string
}

// IsEmpty reports whether the update changes nothing.
func (p UpdateParams) IsEmpty() bool {
	return p.OriginalURL == nil &&
		p.IsActive == nil &&
		p.ExpiresAt == nil &&
		p.Metadata == nil &&
		!p.IncrementAccessCount &&
		p.LastAccessed == nil &&
		p.AccessNote == ""
}
