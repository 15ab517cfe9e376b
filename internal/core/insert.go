package core

import (
	"context"
	"fmt"
)

// Inserter performs the check-then-insert sequence for rows of one table.
type Inserter struct {
	Desc TableDescriptor
}

// NewInserter returns an Inserter bound to desc.
func NewInserter(desc TableDescriptor) *Inserter {
	return &Inserter{Desc: desc}
}

// Insert isolates the existence check and insert of row in a savepoint.
//
// The row is inserted only if no record with the same key values exists.
// Any error rolls back to the savepoint and is returned in the outcome; it
// never aborts the enclosing transaction. Fatal is set only if the savepoint
// itself cannot be created or rolled back.
func (ins *Inserter) Insert(ctx context.Context, tx DBTX, row Row) RowOutcome {
	if len(row.Values) != len(row.Columns) {
		return RowOutcome{
			Row:     row,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("row has %d values, expected %d", len(row.Values), len(row.Columns)),
		}
	}

	// Use savepoint for each row - PostgreSQL aborts the entire transaction on any error
	savepointName := fmt.Sprintf("sp_%d", row.Line)
	if _, err := tx.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		return RowOutcome{
			Row:     row,
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("create savepoint at line %d: %w", row.Line, err),
			Fatal:   true,
		}
	}

	outcome, err := ins.checkAndInsert(ctx, tx, row)
	if err == nil {
		_, err = tx.Exec(ctx, "RELEASE SAVEPOINT "+savepointName)
		if err != nil {
			err = fmt.Errorf("release savepoint: %w", err)
		}
	}

	if err != nil {
		// Rollback savepoint to recover transaction state
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			return RowOutcome{
				Row:     row,
				Outcome: OutcomeFailed,
				Err:     fmt.Errorf("rollback savepoint at line %d: %w (row error: %v)", row.Line, rbErr, err),
				Fatal:   true,
			}
		}
		return RowOutcome{Row: row, Outcome: OutcomeFailed, Err: err}
	}

	return RowOutcome{Row: row, Outcome: outcome}
}

func (ins *Inserter) checkAndInsert(ctx context.Context, tx DBTX, row Row) (Outcome, error) {
	exists, err := Exists(ctx, tx, ins.Desc, row)
	if err != nil {
		return OutcomeFailed, err
	}
	if exists {
		return OutcomeSkipped, nil
	}

	query, args := BuildInsertQuery(ins.Desc, row)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return OutcomeFailed, fmt.Errorf("insert into %s: %w", ins.Desc.Name, err)
	}
	return OutcomeInserted, nil
}
