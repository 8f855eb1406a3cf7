package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vadimbarashkov/shortener/internal/entity"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildFindQuery returns a query with '?' bind vars; callers Rebind it.
// q must be normalized so OrderBy and Direction are whitelisted values.
func buildFindQuery(q entity.Query) (string, []any) {
	var (
		b     strings.Builder
		args  []any
		where []string
	)

	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}

	f := q.Filter
	if f.ID != nil {
		add("id = ?", *f.ID)
	}
	if f.ShortCode != nil {
		add("short_code = ?", *f.ShortCode)
	}
	if f.OriginalURL != nil {
		add("original_url LIKE ?", "%"+likeEscaper.Replace(*f.OriginalURL)+"%")
	}
	if f.CreatedAfter != nil {
		add("created_at > ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		add("created_at < ?", *f.CreatedBefore)
	}
	if f.IsExpired != nil {
		if *f.IsExpired {
			where = append(where, "(expires_at IS NOT NULL AND expires_at < NOW())")
		} else {
			where = append(where, "(expires_at IS NULL OR expires_at >= NOW())")
		}
	}
	if f.IsActive != nil {
		add("is_active = ?", *f.IsActive)
	}
	if f.IsCustomCode != nil {
		add("is_custom_code = ?", *f.IsCustomCode)
	}
	if f.MinAccessCount != nil {
		add("access_count >= ?", *f.MinAccessCount)
	}

	b.WriteString("SELECT ")
	b.WriteString(columns)
	b.WriteString(" FROM shortened_urls")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	direction := strings.ToUpper(string(q.Direction))
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s LIMIT ? OFFSET ?", q.OrderBy, direction, direction)
	args = append(args, q.Limit, q.Offset)

	return b.String(), args
}

// buildUpdateQuery returns an UPDATE with '?' bind vars; callers Rebind it.
func buildUpdateQuery(id uuid.UUID, p entity.UpdateParams) (string, []any) {
	var (
		set  []string
		args []any
	)

	add := func(expr string, arg any) {
		set = append(set, expr)
		args = append(args, arg)
	}

	if p.OriginalURL != nil {
		add("original_url = ?", *p.OriginalURL)
	}
	if p.IsActive != nil {
		add("is_active = ?", *p.IsActive)
	}
	if p.ExpiresAt != nil {
		add("expires_at = ?", *p.ExpiresAt)
	}
	if p.IncrementAccessCount {
		set = append(set, "access_count = access_count + 1")
	}
	if p.LastAccessed != nil {
		add("last_accessed = ?", *p.LastAccessed)
	}

	switch {
	case p.Metadata != nil && p.AccessNote != "":
		add("metadata = ?::jsonb", string(entity.MergeAccessNote(p.Metadata, p.AccessNote)))
	case p.Metadata != nil:
		add("metadata = ?::jsonb", string(p.Metadata))
	case p.AccessNote != "":
		add(`metadata = CASE
			WHEN metadata IS NULL OR jsonb_typeof(metadata) IN ('object', 'null')
			THEN COALESCE(NULLIF(metadata, 'null'::jsonb), '{}'::jsonb) || jsonb_build_object('`+entity.AccessNoteKey+`', ?::text)
			ELSE metadata
		END`, p.AccessNote)
	}

	set = append(set, "updated_at = NOW()")
	args = append(args, id)

	return "UPDATE shortened_urls SET " + strings.Join(set, ", ") + " WHERE id = ?", args
}
