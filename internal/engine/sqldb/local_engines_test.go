package sqldb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/querychat/querychat/internal/engine"
)

type studentRow struct {
	Name  string  `parquet:"name"`
	Score float64 `parquet:"score"`
}

func TestDuckDBParquetViewsAreIntrospectedAndQueried(t *testing.T) {
	parquetPath := filepath.Join(t.TempDir(), "students.parquet")
	if err := writeParquet(parquetPath, []studentRow{
		{Name: "Ada", Score: 97.5},
		{Name: "Linus", Score: 88},
		{Name: "Grace", Score: 92.25},
	}); err != nil {
		t.Fatalf("writeParquet() error = %v", err)
	}

	ctx := context.Background()
	db, err := Open(ctx, DBConfig{Driver: "duckdb"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := AttachParquetViews(ctx, db, [][2]string{{"students", parquetPath}}); err != nil {
		t.Fatalf("AttachParquetViews() error = %v", err)
	}
	dialect, _ := DialectFor("duckdb")
	e := New(db, dialect, nil)
	defer func() { _ = e.Close() }()

	schema, err := engine.LoadSchema(ctx, e)
	if err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}
	if got := schema.String(); got != `{"students": ["name","score"]}` {
		t.Fatalf("schema = %s", got)
	}

	result, err := e.Execute(ctx, "select name, score from students order by score desc limit 2;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0][0] != "Ada" || result.Rows[0][1] != 97.5 {
		t.Fatalf("first row = %#v", result.Rows[0])
	}
}

func TestAttachParquetViewsRejectsIncompleteEntries(t *testing.T) {
	if err := AttachParquetViews(context.Background(), nil, [][2]string{{"students", ""}}); err == nil {
		t.Fatal("expected error for view without path")
	}
}

func TestSQLiteIntrospectionAndExecute(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DBConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "school.db"), MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT, score REAL)`,
		`CREATE TABLE courses (id INTEGER PRIMARY KEY, title TEXT)`,
		`INSERT INTO students (name, score) VALUES ('Ada', 97.5), ('Linus', 88)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	dialect, _ := DialectFor("sqlite")
	e := New(db, dialect, nil)
	defer func() { _ = e.Close() }()

	tables, err := e.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if strings.Join(tables, ",") != "courses,students" {
		t.Fatalf("tables = %#v", tables)
	}
	columns, err := e.ListColumns(ctx, "students")
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	if strings.Join(columns, ",") != "id,name,score" {
		t.Fatalf("columns = %#v", columns)
	}

	result, err := e.Execute(ctx, "select count(*) as c from students")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Rows[0][0] != int64(2) {
		t.Fatalf("count = %#v", result.Rows[0][0])
	}
	if _, err := e.Execute(ctx, "select grade from students"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func writeParquet(path string, rows []studentRow) error {
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[studentRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
