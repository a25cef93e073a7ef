// Package sqlutil holds small database/sql helpers shared by the inventory
// store and the result mapper.
package sqlutil

import (
	"database/sql"
	"strings"
)

// InClauseArgs returns "?, ?, ?" for items and the items as args. An empty
// list yields "NULL" so IN (NULL) matches no row.
func InClauseArgs[T any](items []T) (string, []any) {
	if len(items) == 0 {
		return "NULL", nil
	}
	args := make([]any, len(items))
	for i, item := range items {
		args[i] = item
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", "), args
}

// ScanRows drains rows through scan and closes them.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// MapScanner returns a scanner that reads each row into a map keyed by
// column name. Byte slices are converted to strings.
func MapScanner(rows *sql.Rows) (func(*sql.Rows) (map[string]any, error), error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return func(r *sql.Rows) (map[string]any, error) {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := r.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		return row, nil
	}, nil
}
