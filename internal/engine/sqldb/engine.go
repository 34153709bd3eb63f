package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querychat/querychat/internal/engine"
	"github.com/querychat/querychat/internal/observability"
)

// Engine runs introspection and read queries over a shared *sql.DB pool.
type Engine struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Engine {
	return &Engine{db: db, dialect: dialect, logger: observability.Component(logger, "engine")}
}

func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	query, args := e.dialect.ListTablesQuery()
	return e.firstColumn(ctx, query, args...)
}

func (e *Engine) ListColumns(ctx context.Context, table string) ([]string, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("table name is required")
	}
	query, args := e.dialect.ListColumnsQuery(table)
	return e.firstColumn(ctx, query, args...)
}

func (e *Engine) Execute(ctx context.Context, sqlText string) (engine.Result, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return engine.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return engine.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return engine.Result{}, fmt.Errorf("query columns: %w", err)
	}
	typeNames := make([]string, len(columns))
	if columnTypes, err := rows.ColumnTypes(); err == nil {
		for i, columnType := range columnTypes {
			if i < len(typeNames) {
				typeNames[i] = columnType.DatabaseTypeName()
			}
		}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return engine.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values, typeNames))
	}
	if err := rows.Err(); err != nil {
		return engine.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	elapsed := time.Since(start)
	e.logger.DebugContext(ctx, "engine query executed",
		slog.String("dialect", e.dialect.Name()),
		slog.Int("columns", len(columns)),
		slog.Int("rows", len(resultRows)),
		slog.String("duration", elapsed.String()),
	)
	return engine.Result{Columns: columns, Rows: resultRows, Duration: elapsed}, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s engine: %w", e.dialect.Name(), err)
	}
	return nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// firstColumn collects the first value of every row; SHOW COLUMNS and
// friends return more columns than the name.
func (e *Engine) firstColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("introspect %s engine: %w", e.dialect.Name(), err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("introspection columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("introspection returned no columns")
	}

	names := make([]string, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan introspection row: %w", err)
		}
		names = append(names, fmt.Sprint(normalizeValue(values[0], "")))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate introspection rows: %w", err)
	}
	return names, nil
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
