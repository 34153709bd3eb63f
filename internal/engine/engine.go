// Package engine describes the relational database the chat endpoint asks
// questions about: schema introspection and read query execution.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Engine interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]string, error)
	Execute(ctx context.Context, sql string) (Result, error)
	Ping(ctx context.Context) error
	Close() error
}

type Table struct {
	Name    string
	Columns []string
}

// Schema is a point-in-time snapshot of tables and their columns in engine order.
type Schema struct {
	Tables []Table
}

type Result struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// Records zips Columns against every row positionally.
func (r Result) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				record[column] = row[i]
			} else {
				record[column] = nil
			}
		}
		records = append(records, record)
	}
	return records
}

func (r Result) Empty() bool {
	return len(r.Rows) == 0
}

// LoadSchema lists every table and its columns. It is not cached; each call
// hits the live engine.
func LoadSchema(ctx context.Context, e Engine) (Schema, error) {
	tables, err := e.ListTables(ctx)
	if err != nil {
		return Schema{}, fmt.Errorf("list tables: %w", err)
	}
	schema := Schema{Tables: make([]Table, 0, len(tables))}
	for _, name := range tables {
		columns, err := e.ListColumns(ctx, name)
		if err != nil {
			return Schema{}, fmt.Errorf("list columns for table %q: %w", name, err)
		}
		schema.Tables = append(schema.Tables, Table{Name: name, Columns: columns})
	}
	return schema, nil
}

// String renders the schema as a JSON object of table name to column list,
// keeping table order.
func (s Schema) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, table := range s.Tables {
		if i > 0 {
			buf.WriteString(", ")
		}
		name, _ := json.Marshal(table.Name)
		columns := table.Columns
		if columns == nil {
			columns = []string{}
		}
		list, _ := json.Marshal(columns)
		buf.Write(name)
		buf.WriteString(": ")
		buf.Write(list)
	}
	buf.WriteByte('}')
	return buf.String()
}
