package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

var (
	insertRe = regexp.MustCompile(`^INSERT INTO "([^"]+)" \(([^)]*)\) VALUES`)
	existsRe = regexp.MustCompile(`^SELECT EXISTS \(SELECT 1 FROM "([^"]+)" WHERE (.*)\)$`)
	condRe   = regexp.MustCompile(`"([^"]+)" IS NOT DISTINCT FROM \$(\d+)`)
)

type record map[string]*string

type savepoint struct {
	name     string
	snapshot map[string][]record
}

// fakeDB is an in-memory stand-in for a PostgreSQL transaction. It follows
// the server's rules for savepoints and for a transaction aborted by a
// failed statement.
type fakeDB struct {
	mu sync.Mutex

	tables  map[string][]record
	notNull map[string][]string

	savepoints []savepoint
	aborted    bool

	// failOn, if set, is consulted before every statement.
	failOn func(sql string) error

	begun      int
	committed  int
	rolledBack int
	statements []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		tables:  make(map[string][]record),
		notNull: make(map[string][]string),
	}
}

func (f *fakeDB) begin(ctx context.Context) (Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun++
	f.savepoints = nil
	f.aborted = false
	f.snapshotLocked("")
	return &fakeTx{db: f}, nil
}

// snapshotLocked pushes a copy of the current state.
func (f *fakeDB) snapshotLocked(name string) {
	snap := make(map[string][]record, len(f.tables))
	for t, rows := range f.tables {
		copied := make([]record, len(rows))
		for i, r := range rows {
			rc := make(record, len(r))
			for k, v := range r {
				rc[k] = v
			}
			copied[i] = rc
		}
		snap[t] = copied
	}
	f.savepoints = append(f.savepoints, savepoint{name: name, snapshot: snap})
}

func (f *fakeDB) restoreLocked(name string) error {
	for i := len(f.savepoints) - 1; i >= 0; i-- {
		if f.savepoints[i].name == name {
			f.tables = f.savepoints[i].snapshot
			f.savepoints = f.savepoints[:i]
			f.snapshotLocked(name)
			f.aborted = false
			return nil
		}
	}
	return &pgconn.PgError{Code: "3B001", Message: fmt.Sprintf("savepoint %q does not exist", name)}
}

func (f *fakeDB) releaseLocked(name string) error {
	for i := len(f.savepoints) - 1; i > 0; i-- {
		if f.savepoints[i].name == name {
			f.savepoints = f.savepoints[:i]
			return nil
		}
	}
	return &pgconn.PgError{Code: "3B001", Message: fmt.Sprintf("savepoint %q does not exist", name)}
}

func (f *fakeDB) rows(table string) []record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table]
}

func (f *fakeDB) seed(table string, r map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := make(record, len(r))
	for k, v := range r {
		v := v
		rec[k] = &v
	}
	f.tables[table] = append(f.tables[table], rec)
}

type fakeTx struct {
	db   *fakeDB
	done bool
}

var errAborted = &pgconn.PgError{
	Code:    "25P02",
	Message: "current transaction is aborted, commands ignored until end of transaction block",
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f := tx.db
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, sql)

	if f.failOn != nil {
		if err := f.failOn(sql); err != nil {
			f.aborted = true
			return pgconn.CommandTag{}, err
		}
	}

	switch {
	case strings.HasPrefix(sql, "ROLLBACK TO SAVEPOINT "):
		if err := f.restoreLocked(strings.TrimPrefix(sql, "ROLLBACK TO SAVEPOINT ")); err != nil {
			return pgconn.CommandTag{}, err
		}
		return pgconn.NewCommandTag("ROLLBACK"), nil
	case f.aborted:
		return pgconn.CommandTag{}, errAborted
	case strings.HasPrefix(sql, "SAVEPOINT "):
		f.snapshotLocked(strings.TrimPrefix(sql, "SAVEPOINT "))
		return pgconn.NewCommandTag("SAVEPOINT"), nil
	case strings.HasPrefix(sql, "RELEASE SAVEPOINT "):
		if err := f.releaseLocked(strings.TrimPrefix(sql, "RELEASE SAVEPOINT ")); err != nil {
			f.aborted = true
			return pgconn.CommandTag{}, err
		}
		return pgconn.NewCommandTag("RELEASE"), nil
	case strings.HasPrefix(sql, "INSERT INTO "):
		if err := f.insertLocked(sql, args); err != nil {
			f.aborted = true
			return pgconn.CommandTag{}, err
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	default:
		return pgconn.NewCommandTag(""), nil
	}
}

func (f *fakeDB) insertLocked(sql string, args []interface{}) error {
	m := insertRe.FindStringSubmatch(sql)
	if m == nil {
		return fmt.Errorf("fake: unsupported insert: %s", sql)
	}
	table := m[1]
	cols := strings.Split(m[2], ", ")
	if len(cols) != len(args) {
		return fmt.Errorf("fake: %d columns, %d args", len(cols), len(args))
	}

	rec := make(record, len(cols))
	for i, c := range cols {
		rec[strings.Trim(c, `"`)] = argValue(args[i])
	}

	for _, col := range f.notNull[table] {
		if rec[col] == nil {
			return &pgconn.PgError{
				Code:       "23502",
				Message:    fmt.Sprintf("null value in column %q of relation %q violates not-null constraint", col, table),
				TableName:  table,
				ColumnName: col,
			}
		}
	}

	f.tables[table] = append(f.tables[table], rec)
	return nil
}

func argValue(arg interface{}) *string {
	if arg == nil {
		return nil
	}
	s := arg.(string)
	return &s
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	f := tx.db
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, sql)

	if f.failOn != nil {
		if err := f.failOn(sql); err != nil {
			f.aborted = true
			return fakeRow{err: err}
		}
	}
	if f.aborted {
		return fakeRow{err: errAborted}
	}

	m := existsRe.FindStringSubmatch(sql)
	if m == nil {
		return fakeRow{err: fmt.Errorf("fake: unsupported query: %s", sql)}
	}
	table := m[1]

	type cond struct {
		col string
		val *string
	}
	var conds []cond
	for _, cm := range condRe.FindAllStringSubmatch(m[2], -1) {
		n, _ := strconv.Atoi(cm[2])
		conds = append(conds, cond{col: cm[1], val: argValue(args[n-1])})
	}

	for _, rec := range f.tables[table] {
		match := true
		for _, c := range conds {
			if !notDistinct(rec[c.col], c.val) {
				match = false
				break
			}
		}
		if match {
			return fakeRow{value: true}
		}
	}
	return fakeRow{value: false}
}

func notDistinct(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	f := tx.db
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	if f.aborted {
		f.rolledBack++
		f.tables = f.savepoints[0].snapshot
		f.savepoints = nil
		return errors.New("fake: commit of aborted transaction")
	}
	f.committed++
	f.savepoints = nil
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	f := tx.db
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	f.rolledBack++
	if len(f.savepoints) > 0 {
		f.tables = f.savepoints[0].snapshot
	}
	f.savepoints = nil
	return nil
}

type fakeRow struct {
	value bool
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return fmt.Errorf("fake: scan into %d targets", len(dest))
	}
	b, ok := dest[0].(*bool)
	if !ok {
		return fmt.Errorf("fake: scan into %T", dest[0])
	}
	*b = r.value
	return nil
}

// testCtx returns a context whose logger drops every record.
func testCtx() context.Context {
	return logging.NewContext(context.Background(), logging.Discard())
}

func strPtr(s string) *string { return &s }
