package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

// Driver loads every declared table inside one outer transaction.
type Driver struct {
	Begin  BeginFunc
	Source Source

	// Tables are loaded in slice order. Parents must precede the tables
	// that reference them; the driver does not check this.
	Tables []TableDescriptor

	// SchemaFile, if set, is executed before any row is loaded.
	SchemaFile string

	// Report, if set, receives the failed rows of each table after commit.
	Report *FailureReport
}

// Run performs a full load and commits once at the end.
//
// Row failures are recorded in the result and never stop the run. Any other
// failure rolls back the outer transaction and is returned together with
// the tables processed so far; nothing from the run is committed then.
//
// Logs go to the logger carried by ctx (see logging.NewContext), tagged
// with the run ID and table name.
func (d *Driver) Run(ctx context.Context) (*RunResult, error) {
	if d.Begin == nil || d.Source == nil {
		return nil, errors.New("driver requires Begin and Source")
	}

	startTime := time.Now()
	result := &RunResult{RunID: uuid.New().String()}
	logger := logging.WithFields(ctx, "run_id", result.RunID)
	ctx = logging.NewContext(ctx, logger)

	logger.Info("start to load csv data into database", "tables", len(d.Tables))

	tx, err := d.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if d.SchemaFile != "" {
		if err := Bootstrap(ctx, tx, d.SchemaFile); err != nil {
			return result, err
		}
	}

	for _, desc := range d.Tables {
		tr, err := d.loadTable(ctx, tx, desc)
		if tr != nil {
			result.Tables = append(result.Tables, *tr)
		}
		if err != nil {
			return result, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit: %w", err)
	}
	result.Duration = time.Since(startTime)

	logger.Info("successfully finished loading csv data into database",
		"inserted", result.Inserted(),
		"skipped", result.Skipped(),
		"failed", result.Failed(),
		"duration", result.Duration,
	)

	if d.Report != nil {
		for _, tr := range result.Tables {
			path, err := d.Report.Write(tr)
			if err != nil {
				// The load is committed; a missing report is not a load failure.
				logger.Warn("failed to write failure report", "table", tr.Table, "error", err)
				continue
			}
			if path != "" {
				logger.Info("wrote failure report", "table", tr.Table, "path", path, "rows", tr.Failed())
			}
		}
	}

	return result, nil
}

// loadTable reads, normalizes and inserts every row of one table.
func (d *Driver) loadTable(ctx context.Context, tx Tx, desc TableDescriptor) (*TableResult, error) {
	startTime := time.Now()
	logger := logging.WithFields(ctx, "table", desc.Name)

	st, err := d.Source.Load(desc.Name)
	if err != nil {
		return nil, err
	}
	if err := desc.Validate(st.Columns); err != nil {
		return nil, err
	}

	NormalizeRows(st.Rows)

	result := &TableResult{
		Table:     desc.Name,
		TotalRows: len(st.Rows),
	}
	ins := NewInserter(desc)

	for _, row := range st.Rows {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("operation cancelled at %s line %d: %w", st.File, row.Line, err)
		}

		out := ins.Insert(ctx, tx, row)
		switch out.Outcome {
		case OutcomeInserted:
			result.Inserted++
		case OutcomeSkipped:
			result.Skipped++
			logger.Debug("skipped existing row", "line", row.Line)
		case OutcomeFailed:
			msg := MapError(out.Err)
			result.FailedRows = append(result.FailedRows, FailedRow{
				Table:      desc.Name,
				LineNumber: row.Line,
				Reason:     out.Err.Error(),
				Code:       msg.Code,
				Row:        row,
			})
			logger.Error("failed to insert row",
				"line", row.Line,
				"row", row.Fields(),
				"code", msg.Code,
				"hint", FormatUserError(out.Err),
				"error", out.Err,
			)
			if out.Fatal {
				return result, fmt.Errorf("table %s: %w", desc.Name, out.Err)
			}
		}
	}

	result.Duration = time.Since(startTime)
	logger.Info("table loaded",
		"rows", result.TotalRows,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"failed", result.Failed(),
	)
	return result, nil
}
