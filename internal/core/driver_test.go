package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

var videoTables = []TableDescriptor{
	{Name: "users", Key: []string{"username", "email"}},
	{Name: "videos", Key: []string{"video_id"}},
}

func mapSource(files map[string]string) *FSSource {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return &FSSource{FS: fsys}
}

func newTestDriver(db *fakeDB, files map[string]string) *Driver {
	return &Driver{
		Begin:  db.begin,
		Source: mapSource(files),
		Tables: videoTables,
	}
}

var baseFiles = map[string]string{
	"users.csv":  "username,email,bio\nalice,a@x.com,hi\nbob!,b@x.com,\n",
	"videos.csv": "video_id,title,user\nv1,First!,alice\nv2,Second,bob\n",
}

func TestDriver_LoadsTablesInOrder(t *testing.T) {
	db := newFakeDB()
	driver := newTestDriver(db, baseFiles)

	result, err := driver.Run(testCtx())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if db.committed != 1 {
		t.Errorf("commits = %d, want 1", db.committed)
	}
	if len(result.Tables) != 2 || result.Tables[0].Table != "users" || result.Tables[1].Table != "videos" {
		t.Fatalf("tables = %+v, want users then videos", result.Tables)
	}
	if result.Inserted() != 4 || result.Skipped() != 0 || result.Failed() != 0 {
		t.Errorf("inserted/skipped/failed = %d/%d/%d, want 4/0/0", result.Inserted(), result.Skipped(), result.Failed())
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}

	firstVideoInsert := -1
	lastUserInsert := -1
	for i, s := range db.statements {
		if strings.HasPrefix(s, `INSERT INTO "users"`) {
			lastUserInsert = i
		}
		if strings.HasPrefix(s, `INSERT INTO "videos"`) && firstVideoInsert < 0 {
			firstVideoInsert = i
		}
	}
	if lastUserInsert > firstVideoInsert {
		t.Errorf("users inserted after videos started (%d > %d)", lastUserInsert, firstVideoInsert)
	}
}

func TestDriver_StoresNormalizedValues(t *testing.T) {
	db := newFakeDB()

	if _, err := newTestDriver(db, baseFiles).Run(testCtx()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var bob record
	for _, r := range db.rows("users") {
		if r["username"] != nil && *r["username"] == "bob" {
			bob = r
		}
	}
	if bob == nil {
		t.Fatalf("normalized user bob not stored: %v", db.rows("users"))
	}
	if *bob["email"] != "bxcom" {
		t.Errorf("email = %q, want bxcom", *bob["email"])
	}
	if bob["bio"] != nil {
		t.Errorf("bio = %q, want NULL", *bob["bio"])
	}
}

func TestDriver_SecondRunInsertsNothing(t *testing.T) {
	db := newFakeDB()
	driver := newTestDriver(db, baseFiles)
	ctx := testCtx()

	if _, err := driver.Run(ctx); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	before := len(db.rows("users")) + len(db.rows("videos"))

	result, err := driver.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if result.Inserted() != 0 || result.Skipped() != 4 {
		t.Errorf("second run inserted/skipped = %d/%d, want 0/4", result.Inserted(), result.Skipped())
	}
	if after := len(db.rows("users")) + len(db.rows("videos")); after != before {
		t.Errorf("row count changed %d -> %d", before, after)
	}
}

func TestDriver_MatchesOnKeyColumnsOnly(t *testing.T) {
	db := newFakeDB()
	db.seed("users", map[string]string{"username": "bob", "email": "bxcom", "bio": "original"})

	files := map[string]string{
		"users.csv":  "username,email,bio\nbob!,b@x.com,updated bio\n\"bob\",\"b@x.com\",again\n",
		"videos.csv": "video_id,title\n",
	}
	result, err := newTestDriver(db, files).Run(testCtx())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.Tables[0].Skipped != 2 || result.Tables[0].Inserted != 0 {
		t.Errorf("users skipped/inserted = %d/%d, want 2/0", result.Tables[0].Skipped, result.Tables[0].Inserted)
	}
	rows := db.rows("users")
	if len(rows) != 1 || *rows[0]["bio"] != "original" {
		t.Errorf("stored users = %v, want the original row untouched", rows)
	}
}

func TestDriver_DuplicateWithinFileInsertedOnce(t *testing.T) {
	db := newFakeDB()
	files := map[string]string{
		"users.csv":  "username,email\nbob!,b@x.com\nbob,bxcom\n",
		"videos.csv": "video_id\n",
	}

	result, err := newTestDriver(db, files).Run(testCtx())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Tables[0].Inserted != 1 || result.Tables[0].Skipped != 1 {
		t.Errorf("inserted/skipped = %d/%d, want 1/1", result.Tables[0].Inserted, result.Tables[0].Skipped)
	}
}

func TestDriver_RowFailureDoesNotStopRun(t *testing.T) {
	db := newFakeDB()
	db.notNull["videos"] = []string{"title"}

	var logs bytes.Buffer
	driver := newTestDriver(db, map[string]string{
		"users.csv":  "username,email\nalice,a@x.com\n",
		"videos.csv": "video_id,title\nv1,One\nv2,\nv3,Three\nv4,!!!\n",
	})
	ctx := logging.NewContext(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))

	result, err := driver.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	videos := result.Tables[1]
	if videos.Inserted != 3 || videos.Failed() != 1 {
		t.Fatalf("videos inserted/failed = %d/%d, want 3/1", videos.Inserted, videos.Failed())
	}
	failed := videos.FailedRows[0]
	if failed.LineNumber != 3 || failed.Code != "DB008" {
		t.Errorf("failed row = line %d code %s, want line 3 code DB008", failed.LineNumber, failed.Code)
	}
	if db.committed != 1 || len(db.rows("videos")) != 3 {
		t.Errorf("committed=%d stored videos=%d, want 1 and 3", db.committed, len(db.rows("videos")))
	}
	for _, r := range db.rows("videos") {
		if *r["video_id"] == "v4" && (r["title"] == nil || *r["title"] != "") {
			t.Errorf("v4 title = %v, want empty string", r["title"])
		}
	}

	out := logs.String()
	if !strings.Contains(out, "failed to insert row") || !strings.Contains(out, "line=3") {
		t.Errorf("failure not logged with line number:\n%s", out)
	}
	if !strings.Contains(out, "map[title: video_id:v2]") {
		t.Errorf("failure log missing row values:\n%s", out)
	}
	if !strings.Contains(out, "run_id="+result.RunID) || !strings.Contains(out, "table=videos") {
		t.Errorf("failure log missing run and table fields:\n%s", out)
	}
}

func TestDriver_MissingSourceRollsBack(t *testing.T) {
	db := newFakeDB()
	driver := newTestDriver(db, map[string]string{
		"users.csv": "username,email\nalice,a@x.com\n",
	})

	result, err := driver.Run(testCtx())
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("Run() error = %v, want ErrSourceNotFound", err)
	}
	if db.committed != 0 || db.rolledBack != 1 {
		t.Errorf("committed=%d rolledBack=%d, want 0 and 1", db.committed, db.rolledBack)
	}
	if len(db.rows("users")) != 0 {
		t.Errorf("users rows survived rollback: %v", db.rows("users"))
	}
	if len(result.Tables) != 1 {
		t.Errorf("partial tables = %d, want 1", len(result.Tables))
	}
}

func TestDriver_MissingKeyColumn(t *testing.T) {
	db := newFakeDB()
	driver := newTestDriver(db, map[string]string{
		"users.csv":  "username,bio\nalice,hi\n",
		"videos.csv": "video_id\n",
	})

	if _, err := driver.Run(testCtx()); !errors.Is(err, ErrKeyColumn) {
		t.Fatalf("Run() error = %v, want ErrKeyColumn", err)
	}
	if db.committed != 0 {
		t.Errorf("committed = %d, want 0", db.committed)
	}
}

func TestDriver_CancelledContext(t *testing.T) {
	db := newFakeDB()
	ctx, cancel := context.WithCancel(testCtx())
	cancel()

	_, err := newTestDriver(db, baseFiles).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if db.committed != 0 {
		t.Errorf("committed = %d, want 0", db.committed)
	}
}

func TestDriver_FatalSavepointErrorStopsRun(t *testing.T) {
	db := newFakeDB()
	db.failOn = func(sql string) error {
		if sql == "SAVEPOINT sp_3" {
			return errors.New("conn busy")
		}
		return nil
	}

	_, err := newTestDriver(db, baseFiles).Run(testCtx())
	if err == nil || !strings.Contains(err.Error(), "create savepoint at line 3") {
		t.Fatalf("Run() error = %v, want savepoint failure", err)
	}
	if db.committed != 0 || len(db.rows("users")) != 0 {
		t.Errorf("committed=%d users=%d, want nothing committed", db.committed, len(db.rows("users")))
	}
}

func TestDriver_BeginError(t *testing.T) {
	driver := &Driver{
		Begin: func(context.Context) (Tx, error) {
			return nil, errors.New("too many connections")
		},
		Source: mapSource(baseFiles),
		Tables: videoTables,
	}

	if _, err := driver.Run(testCtx()); err == nil || !strings.Contains(err.Error(), "begin transaction") {
		t.Errorf("Run() error = %v, want begin error", err)
	}
}

func TestDriver_RequiresBeginAndSource(t *testing.T) {
	if _, err := (&Driver{}).Run(testCtx()); err == nil {
		t.Error("Run() on empty driver succeeded")
	}
}

func TestDriver_RunsSchemaFileFirst(t *testing.T) {
	db := newFakeDB()
	schema := filepath.Join(t.TempDir(), "init.sql")
	ddl := "CREATE TABLE IF NOT EXISTS users (username text, email text);"
	if err := os.WriteFile(schema, []byte(ddl), 0644); err != nil {
		t.Fatal(err)
	}

	driver := newTestDriver(db, baseFiles)
	driver.SchemaFile = schema

	if _, err := driver.Run(testCtx()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(db.statements) == 0 || db.statements[0] != ddl {
		t.Errorf("statements = %q, want schema DDL first", db.statements)
	}
}

func TestDriver_SchemaFailureRollsBack(t *testing.T) {
	db := newFakeDB()
	db.failOn = func(sql string) error {
		if strings.HasPrefix(sql, "CREATE") {
			return errors.New(`syntax error at or near "TABL"`)
		}
		return nil
	}
	schema := filepath.Join(t.TempDir(), "init.sql")
	if err := os.WriteFile(schema, []byte("CREATE TABL users ();"), 0644); err != nil {
		t.Fatal(err)
	}

	driver := newTestDriver(db, baseFiles)
	driver.SchemaFile = schema

	if _, err := driver.Run(testCtx()); err == nil || !strings.Contains(err.Error(), "execute schema file") {
		t.Fatalf("Run() error = %v, want schema error", err)
	}
	if db.committed != 0 {
		t.Errorf("committed = %d, want 0", db.committed)
	}
}

func TestDriver_WritesFailureReport(t *testing.T) {
	db := newFakeDB()
	db.notNull["videos"] = []string{"title"}
	dir := t.TempDir()

	driver := newTestDriver(db, map[string]string{
		"users.csv":  "username,email\nalice,a@x.com\n",
		"videos.csv": "video_id,title\nv1,One\nv2,\n",
	})
	driver.Report = &FailureReport{Dir: dir}

	if _, err := driver.Run(testCtx()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "users - failed.csv")); !os.IsNotExist(err) {
		t.Errorf("report written for table without failures (stat err: %v)", err)
	}

	f, err := os.Open(filepath.Join(dir, "videos - failed.csv"))
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("report records = %d, want 2", len(records))
	}
	if strings.Join(records[0], ",") != "Status,video_id,title" {
		t.Errorf("header = %v", records[0])
	}
	if !strings.HasPrefix(records[1][0], "line 3: [DB008]") || records[1][1] != "v2" {
		t.Errorf("record = %v", records[1])
	}
}
