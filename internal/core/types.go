package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Tx is the outer transaction owned by the Driver for a whole run.
// pgx.Tx satisfies it.
type Tx interface {
	DBTX
	Commit(context.Context) error
	Rollback(context.Context) error
}

// BeginFunc opens the outer transaction.
type BeginFunc func(ctx context.Context) (Tx, error)

// TableDescriptor names a target table and the ordered set of columns
// that identify the same logical record.
type TableDescriptor struct {
	Name string   // Table name: "users"
	Key  []string // Uniqueness key: ["username", "email"]
}

// Row is one CSV record mapped onto the header of its file.
// Columns, Values and Null are parallel slices in header order.
type Row struct {
	Line    int // 1-indexed CSV line number
	Columns []string
	Values  []string

	// Null marks cells that were empty in the source. They are stored as
	// NULL; values that only become empty through normalization are not.
	Null []bool
}

// NewRow builds a Row from raw source values, marking empty cells as null.
func NewRow(line int, columns, values []string) Row {
	null := make([]bool, len(values))
	for i, v := range values {
		null[i] = v == ""
	}
	return Row{Line: line, Columns: columns, Values: values, Null: null}
}

// IsNull reports whether the value at index i was empty in the source.
func (r Row) IsNull(i int) bool {
	return i < len(r.Null) && r.Null[i]
}

// Value returns the value for column, or "" and false if the row has no such column.
func (r Row) Value(column string) (string, bool) {
	if i := r.index(column); i >= 0 {
		return r.Values[i], true
	}
	return "", false
}

func (r Row) index(column string) int {
	for i, c := range r.Columns {
		if c == column && i < len(r.Values) {
			return i
		}
	}
	return -1
}

// Fields returns the row as a column -> value map for logging.
func (r Row) Fields() map[string]string {
	m := make(map[string]string, len(r.Columns))
	for i, c := range r.Columns {
		if i < len(r.Values) {
			m[c] = r.Values[i]
		}
	}
	return m
}

// Outcome is the result of one check-then-insert attempt.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RowOutcome is returned by Inserter.Insert for every row.
type RowOutcome struct {
	Row     Row
	Outcome Outcome
	Err     error // Non-nil if Outcome is OutcomeFailed

	// Fatal is set when the savepoint itself could not be managed.
	// The outer transaction is no longer usable and the run must stop.
	Fatal bool
}

// FailedRow contains information about a row that failed to insert.
type FailedRow struct {
	Table      string
	LineNumber int
	Reason     string
	Code       string // Error code from MapError
	Row        Row
}

// TableResult aggregates row outcomes for one table.
type TableResult struct {
	Table      string
	TotalRows  int
	Inserted   int
	Skipped    int
	FailedRows []FailedRow
	Duration   time.Duration
}

// Failed returns the number of failed rows.
func (r TableResult) Failed() int {
	return len(r.FailedRows)
}

// RunResult contains the final result of a load run.
type RunResult struct {
	RunID    string
	Tables   []TableResult
	Duration time.Duration
}

// Inserted returns the number of rows inserted across all tables.
func (r RunResult) Inserted() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Inserted
	}
	return n
}

// Skipped returns the number of duplicate rows skipped across all tables.
func (r RunResult) Skipped() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Skipped
	}
	return n
}

// Failed returns the number of failed rows across all tables.
func (r RunResult) Failed() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Failed()
	}
	return n
}
