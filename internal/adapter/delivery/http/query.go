package http

import (
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

// queryParamError has the same shape as the validation error details.
type queryParamError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

type queryParser struct {
	values url.Values
	errs   []any
}

func (p *queryParser) fail(name, value, issue string) {
	p.errs = append(p.errs, queryParamError{Field: name, Value: value, Issue: issue})
}

func (p *queryParser) str(name string) *string {
	v := p.values.Get(name)
	if v == "" {
		return nil
	}
	return &v
}

func (p *queryParser) boolean(name string) *bool {
	v := p.values.Get(name)
	if v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v, "Must be true or false.")
		return nil
	}
	return &b
}

func (p *queryParser) timestamp(name string) *time.Time {
	v := p.values.Get(name)
	if v == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		p.fail(name, v, "Must be an RFC 3339 timestamp.")
		return nil
	}
	return &t
}

func (p *queryParser) intRange(name string, lo, hi int) int {
	v := p.values.Get(name)
	if v == "" {
		return 0
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		p.fail(name, v, "Must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi)+".")
		return 0
	}
	return n
}

func (p *queryParser) count(name string) *int64 {
	v := p.values.Get(name)
	if v == "" {
		return nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		p.fail(name, v, "Must be a non-negative integer.")
		return nil
	}
	return &n
}

// parseListQuery maps list query parameters to an entity.Query. It returns
// error details for every malformed parameter.
func parseListQuery(values url.Values) (entity.Query, []any) {
	p := &queryParser{values: values}

	q := entity.Query{
		Filter: entity.Filter{
			ShortCode:      p.str("short_code"),
			OriginalURL:    p.str("original_url"),
			CreatedAfter:   p.timestamp("created_after"),
			CreatedBefore:  p.timestamp("created_before"),
			IsExpired:      p.boolean("is_expired"),
			IsActive:       p.boolean("is_active"),
			IsCustomCode:   p.boolean("is_custom_code"),
			MinAccessCount: p.count("min_access_count"),
		},
		Limit:  p.intRange("limit", 1, entity.MaxLimit),
		Offset: p.intRange("offset", 0, math.MaxInt32),
	}

	if v := values.Get("order_by"); v != "" {
		q.OrderBy = entity.SortField(v)
		if !q.OrderBy.Valid() {
			p.fail("order_by", v, "Must be one of id, short_code, original_url, created_at, expires_at, last_accessed, access_count.")
		}
	}

	if v := values.Get("order_direction"); v != "" {
		q.Direction = entity.SortDirection(v)
		if !q.Direction.Valid() {
			p.fail("order_direction", v, "Must be asc or desc.")
		}
	}

	return q.Normalize(), p.errs
}
