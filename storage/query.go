package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// RunQuery executes a trigger rule's SQL query and returns the first
// column of every row as an event ID. Query text is passed through
// verbatim; rule queries are operator-authored but never composed from
// event data.
func (s *SQLite) RunQuery(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run trigger query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read trigger query columns: %w", err)
	}

	var ids []int64
	for rows.Next() {
		// Only the first column is the event ID; rules are free to
		// select more.
		var id int64
		dest := make([]any, len(cols))
		dest[0] = &id
		for i := 1; i < len(cols); i++ {
			dest[i] = new(sql.RawBytes)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan trigger query row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
