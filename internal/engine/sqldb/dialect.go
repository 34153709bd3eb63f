package sqldb

import (
	"fmt"
	"strings"
)

// Dialect supplies the introspection statements for one database family.
type Dialect interface {
	Name() string
	DriverName() string
	ListTablesQuery() (string, []any)
	ListColumnsQuery(table string) (string, []any)
}

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return postgresDialect{}, nil
	case "mysql", "mariadb":
		return mysqlDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "duckdb":
		return duckdbDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported engine driver %q", driver)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "pgx" }

func (postgresDialect) ListTablesQuery() (string, []any) {
	return `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type IN ('BASE TABLE', 'VIEW')
ORDER BY table_name`, nil
}

func (postgresDialect) ListColumnsQuery(table string) (string, []any) {
	return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`, []any{table}
}

// mysqlDialect uses SHOW statements; SHOW COLUMNS cannot take a bind
// parameter so the table name is quoted instead.
type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) ListTablesQuery() (string, []any) {
	return "SHOW TABLES", nil
}

func (mysqlDialect) ListColumnsQuery(table string) (string, []any) {
	return "SHOW COLUMNS FROM " + quoteBacktick(table), nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) ListTablesQuery() (string, []any) {
	return `SELECT name FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
ORDER BY name`, nil
}

func (sqliteDialect) ListColumnsQuery(table string) (string, []any) {
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

type duckdbDialect struct{}

func (duckdbDialect) Name() string       { return "duckdb" }
func (duckdbDialect) DriverName() string { return "duckdb" }

func (duckdbDialect) ListTablesQuery() (string, []any) {
	return `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema()
ORDER BY table_name`, nil
}

func (duckdbDialect) ListColumnsQuery(table string) (string, []any) {
	return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ?
ORDER BY ordinal_position`, []any{table}
}

func quoteBacktick(value string) string {
	return "`" + strings.ReplaceAll(value, "`", "``") + "`"
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
