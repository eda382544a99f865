package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across documents and blocks using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
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

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Documents sub-query
	if q.FilterType == "" || q.FilterType == ResultDocument {
		docWhere := "d.title_tsv @@ " + tsQuery
		if q.FilterDocumentID != "" {
			docWhere += fmt.Sprintf(" AND d.id = $%d", argN)
			args = append(args, q.FilterDocumentID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'document'::text AS type, d.id, d.title,
				ts_headline('english', coalesce(d.title, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.id AS document_id,
				''::text AS block_id,
				''::text AS kind,
				ts_rank(d.title_tsv, %s) AS rank
			FROM documents d
			WHERE %s`, tsQuery, tsQuery, docWhere))
	}

	// Blocks sub-query
	if q.FilterType == "" || q.FilterType == ResultBlock {
		blockWhere := "b.body_tsv @@ " + tsQuery
		if q.FilterDocumentID != "" {
			blockWhere += fmt.Sprintf(" AND b.document_id = $%d", argN)
			args = append(args, q.FilterDocumentID)
			argN++
		}
		if q.FilterKind != "" {
			blockWhere += fmt.Sprintf(" AND b.kind = $%d", argN)
			args = append(args, q.FilterKind)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'block'::text AS type, b.document_id || '__' || b.id AS id, ''::text AS title,
				ts_headline('english', coalesce(b.body, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				b.document_id,
				b.id AS block_id,
				b.kind,
				ts_rank(b.body_tsv, %s) AS rank
			FROM blocks b
			WHERE %s`, tsQuery, tsQuery, blockWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, document_id, block_id, kind
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.DocumentID, &r.BlockID, &r.Kind); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DocumentRecord, []BlockRecord, error) {
	docRows, err := p.db.QueryContext(ctx, `
		SELECT id, title
		FROM documents
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	documents := make([]DocumentRecord, 0)
	for docRows.Next() {
		var d DocumentRecord
		if err := docRows.Scan(&d.ID, &d.Title); err != nil {
			return nil, nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate documents: %w", err)
	}

	blockRows, err := p.db.QueryContext(ctx, `
		SELECT b.document_id || '__' || b.id, b.id, b.document_id, b.kind, b.body
		FROM blocks b
		ORDER BY b.document_id, b.position
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load blocks: %w", err)
	}
	defer blockRows.Close()

	blocks := make([]BlockRecord, 0)
	for blockRows.Next() {
		var b BlockRecord
		if err := blockRows.Scan(&b.ID, &b.BlockID, &b.DocumentID, &b.Kind, &b.Text); err != nil {
			return nil, nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := blockRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate blocks: %w", err)
	}

	return documents, blocks, nil
}
