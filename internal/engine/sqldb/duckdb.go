package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// AttachParquetViews exposes parquet files as duckdb views so they show up
// in the schema snapshot like ordinary tables.
func AttachParquetViews(ctx context.Context, db *sql.DB, views [][2]string) error {
	for _, view := range views {
		name, path := strings.TrimSpace(view[0]), strings.TrimSpace(view[1])
		if name == "" || path == "" {
			return fmt.Errorf("parquet view requires name and path")
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(name), quoteString(path))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for parquet %q: %w", name, err)
		}
	}
	return nil
}
