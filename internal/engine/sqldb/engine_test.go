package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestMySQLListTablesAndColumns(t *testing.T) {
	db, mock := newSQLMock(t)
	e := New(db, mysqlDialect{}, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_Student"}).AddRow([]byte("students")).AddRow([]byte("courses")))
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `students`")).
		WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
			AddRow([]byte("id"), []byte("int"), []byte("NO"), []byte("PRI"), nil, []byte("auto_increment")).
			AddRow([]byte("name"), []byte("varchar(64)"), []byte("YES"), []byte(""), nil, []byte("")))

	tables, err := e.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if strings.Join(tables, ",") != "students,courses" {
		t.Fatalf("tables = %#v", tables)
	}
	columns, err := e.ListColumns(context.Background(), "students")
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	if strings.Join(columns, ",") != "id,name" {
		t.Fatalf("columns = %#v", columns)
	}
	assertSQLMock(t, mock)
}

func TestPostgresListColumnsBindsTableName(t *testing.T) {
	db, mock := newSQLMock(t)
	e := New(db, postgresDialect{}, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("score"))

	columns, err := e.ListColumns(context.Background(), "students")
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	if strings.Join(columns, ",") != "id,score" {
		t.Fatalf("columns = %#v", columns)
	}
	assertSQLMock(t, mock)
}

func TestListColumnsRequiresTable(t *testing.T) {
	db, _ := newSQLMock(t)
	if _, err := New(db, mysqlDialect{}, nil).ListColumns(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty table name")
	}
}

func TestExecuteNormalizesValues(t *testing.T) {
	db, mock := newSQLMock(t)
	e := New(db, mysqlDialect{}, nil)

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("name").OfType("VARCHAR", ""),
		sqlmock.NewColumn("avg_score").OfType("DECIMAL", ""),
		sqlmock.NewColumn("total").OfType("BIGINT", int64(0)),
	).
		AddRow([]byte("Ada"), []byte("91.50"), int64(3)).
		AddRow([]byte("Linus"), nil, int64(1))
	mock.ExpectQuery(regexp.QuoteMeta("select name, avg(score) as avg_score, count(*) as total from students group by name")).
		WillReturnRows(rows)

	result, err := e.Execute(context.Background(), "select name, avg(score) as avg_score, count(*) as total from students group by name;;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Join(result.Columns, ",") != "name,avg_score,total" {
		t.Fatalf("columns = %#v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	if result.Rows[0][0] != "Ada" {
		t.Fatalf("name = %#v", result.Rows[0][0])
	}
	if result.Rows[0][1] != 91.5 {
		t.Fatalf("avg_score = %#v", result.Rows[0][1])
	}
	if result.Rows[0][2] != int64(3) {
		t.Fatalf("total = %#v", result.Rows[0][2])
	}
	if result.Rows[1][1] != nil {
		t.Fatalf("null avg_score = %#v", result.Rows[1][1])
	}
	assertSQLMock(t, mock)
}

func TestExecuteRejectsEmptySQL(t *testing.T) {
	db, _ := newSQLMock(t)
	_, err := New(db, mysqlDialect{}, nil).Execute(context.Background(), " ; ")
	if err == nil || err.Error() != "sql is required" {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestExecuteWrapsDriverError(t *testing.T) {
	db, mock := newSQLMock(t)
	driverErr := errors.New("Unknown column 'grade' in 'field list'")
	mock.ExpectQuery(regexp.QuoteMeta("select grade from students")).WillReturnError(driverErr)

	_, err := New(db, mysqlDialect{}, nil).Execute(context.Background(), "select grade from students")
	if !errors.Is(err, driverErr) {
		t.Fatalf("Execute() error = %v, want wrapped driver error", err)
	}
	if !strings.Contains(err.Error(), "Unknown column 'grade'") {
		t.Fatalf("error text = %q", err.Error())
	}
	assertSQLMock(t, mock)
}

func TestPingAndClose(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectPing()
	mock.ExpectClose()

	e := New(db, postgresDialect{}, nil)
	if err := e.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestDialectForKnownDrivers(t *testing.T) {
	for driver, want := range map[string]string{
		"postgres": "pgx",
		"MySQL":    "mysql",
		"sqlite":   "sqlite",
		"duckdb":   "duckdb",
	} {
		dialect, err := DialectFor(driver)
		if err != nil {
			t.Fatalf("DialectFor(%q) error = %v", driver, err)
		}
		if dialect.DriverName() != want {
			t.Fatalf("DialectFor(%q).DriverName() = %q, want %q", driver, dialect.DriverName(), want)
		}
	}
	if _, err := DialectFor("oracle"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestMySQLColumnsQueryQuotesBackticks(t *testing.T) {
	query, args := mysqlDialect{}.ListColumnsQuery("odd`name")
	if query != "SHOW COLUMNS FROM `odd``name`" {
		t.Fatalf("query = %q", query)
	}
	if len(args) != 0 {
		t.Fatalf("args = %#v", args)
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	if _, err := Open(context.Background(), DBConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
	if _, err := Open(context.Background(), DBConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
