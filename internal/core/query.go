package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrKeyColumn is returned when a uniqueness key column is missing from a
// table's source header.
var ErrKeyColumn = errors.New("key column not in source header")

// Validate checks that every key column exists in columns.
func (d TableDescriptor) Validate(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var missing []string
	for _, k := range d.Key {
		if !present[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s: %w: %s", d.Name, ErrKeyColumn, strings.Join(missing, ", "))
	}
	return nil
}

// quoteIdentifier quotes a table or column name for use in SQL.
// Identifiers are always formatted into the statement; values never are.
func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentifier(col)
	}
	return quoted
}

// textArg binds value i of row. Cells that were empty in the source become
// SQL NULL; every other value, "" included, is sent as text so PostgreSQL
// coerces it to the column type.
func textArg(row Row, i int) any {
	if row.IsNull(i) {
		return nil
	}
	return row.Values[i]
}

// BuildExistsQuery builds the existence check for row against the key
// columns of desc. Only key columns participate; all conditions are ANDed.
func BuildExistsQuery(desc TableDescriptor, row Row) (string, []any, error) {
	conditions := make([]string, 0, len(desc.Key))
	args := make([]any, 0, len(desc.Key))

	for i, col := range desc.Key {
		idx := row.index(col)
		if idx < 0 {
			return "", nil, fmt.Errorf("table %s: %w: %s", desc.Name, ErrKeyColumn, col)
		}
		conditions = append(conditions, fmt.Sprintf("%s IS NOT DISTINCT FROM $%d", quoteIdentifier(col), i+1))
		args = append(args, textArg(row, idx))
	}

	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s)",
		quoteIdentifier(desc.Name),
		strings.Join(conditions, " AND "),
	)
	return query, args, nil
}

// BuildInsertQuery builds an insert of every column of row, in row order.
func BuildInsertQuery(desc TableDescriptor, row Row) (string, []any) {
	placeholders := make([]string, len(row.Columns))
	args := make([]any, len(row.Values))
	for i := range row.Values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = textArg(row, i)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(desc.Name),
		strings.Join(quoteColumns(row.Columns), ", "),
		strings.Join(placeholders, ", "),
	)
	return query, args
}
