package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher using PostgreSQL full-text search as a
// fallback when Meilisearch is not configured or unreachable.
type PgSearch struct {
	db *sql.DB
}

// NewPgSearch creates a PostgreSQL FTS searcher.
func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over board titles and content, constrained to
// boards the caller may read (public, owned, or editor-of).
func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	visibility := "is_public = TRUE"
	args := []any{q.Text}
	if q.CallerID != "" {
		visibility = "(is_public = TRUE OR author_id = $2 OR editors ? $2)"
		args = append(args, q.CallerID)
	}

	query := fmt.Sprintf(`
		SELECT id, title,
			ts_headline('english', coalesce(data, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			COUNT(*) OVER() AS total
		FROM boards
		WHERE fts @@ plainto_tsquery('english', $1) AND %s
		ORDER BY ts_rank(fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d
	`, visibility, limit, offset)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("board search: %w", err)
	}
	defer rows.Close()

	var results []Result
	total := 0
	for rows.Next() {
		var item Result
		if err := rows.Scan(&item.ID, &item.Title, &item.Snippet, &total); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}
	return results, total, nil
}
