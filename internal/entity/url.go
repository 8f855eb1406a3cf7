// Package entity defines the entities and errors used in the application.
// It includes the ShortenedURL struct, which represents a short code mapped to
// an original URL together with its access statistics, the query types used to
// search stored URLs, and the error kinds shared by every layer.
package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCodeLength is the length of generated short codes.
	DefaultCodeLength = 6
	// MaxCustomCodeLength is the maximum length of a custom alias.
	MaxCustomCodeLength = 10
	// MaxExpirationDays is the upper bound for relative expirations.
	MaxExpirationDays = 365
)

// ShortenedURL represents a shortened URL.
type ShortenedURL struct {
	ID           uuid.UUID       // ID is assigned by the store and never changes.
	OriginalURL  string          // OriginalURL is the absolute http(s) URL the short code resolves to.
	ShortCode    string          // ShortCode is globally unique across active and inactive records.
	IsCustomCode bool            // IsCustomCode reports whether the code was supplied by the caller.
	CreatedAt    time.Time       // CreatedAt is the timestamp when the URL was created.
	UpdatedAt    time.Time       // UpdatedAt is refreshed by the store on every update.
	LastAccessed *time.Time      // LastAccessed is set on each successful redirect.
	AccessCount  int64           // AccessCount is the number of successful redirects.
	ExpiresAt    *time.Time      // ExpiresAt is nil when the URL never expires.
	IsActive     bool            // IsActive is true unless explicitly deactivated.
	Metadata     json.RawMessage // Metadata is an opaque JSON document.
}

// IsExpired reports whether the URL has an expiration strictly before now.
func (u *ShortenedURL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

// ValidityPolicy decides whether a stored URL may be used for a redirect.
type ValidityPolicy string

const (
	// PolicyPermissive treats a URL as valid when it is not expired or when it is
	// still active, so an active URL keeps redirecting after its expiration.
	PolicyPermissive ValidityPolicy = "permissive"
	// PolicyStrict requires the URL to be both unexpired and active.
	PolicyStrict ValidityPolicy = "strict"
)

// Allows reports whether u is valid for redirect at the given time.
func (p ValidityPolicy) Allows(u *ShortenedURL, now time.Time) bool {
	expired := u.IsExpired(now)

	if p == PolicyStrict {
		return !expired && u.IsActive
	}

	return !expired || u.IsActive
}

// RedirectTarget is the outcome of a successful redirect resolution.
type RedirectTarget struct {
	Location   string
	StatusCode int
}
