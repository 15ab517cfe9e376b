package core

import (
	"context"
	"fmt"
)

// Exists reports whether a stored record of desc matches row on every key
// column. Non-key columns are never compared.
func Exists(ctx context.Context, db DBTX, desc TableDescriptor, row Row) (bool, error) {
	query, args, err := BuildExistsQuery(desc, row)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing %s: %w", desc.Name, err)
	}
	return exists, nil
}
