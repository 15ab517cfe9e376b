// Package admin provides administrative operations for database management.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/csv2oltp/internal/core"
	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// ResetTables deletes the rows of every table in tables.
type ResetTables struct {
	Begin  core.BeginFunc
	Tables []core.TableDescriptor
}

type tableResetFn func(ctx context.Context, tx core.DBTX) error

// ResetAll empties all tables in one transaction, children first.
// Progress is logged to the logger carried by ctx.
// This is a destructive operation - use with caution.
func (r *ResetTables) ResetAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	tx, err := r.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	resets := make([]tableResetFn, 0, len(r.Tables))
	for i := len(r.Tables) - 1; i >= 0; i-- {
		resets = append(resets, r.deleteAll(r.Tables[i].Name))
	}

	if err := r.runResets(ctx, tx, resets); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ResetTables) deleteAll(table string) tableResetFn {
	return func(ctx context.Context, tx core.DBTX) error {
		tag, err := tx.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize())
		if err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
		logging.WithFields(ctx, "table", table).Info("table reset", "rows", tag.RowsAffected())
		return nil
	}
}

func (r *ResetTables) runResets(ctx context.Context, tx core.DBTX, resets []tableResetFn) error {
	for _, reset := range resets {
		if err := reset(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
