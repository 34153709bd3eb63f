package demo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet exports data as students.parquet, courses.parquet and
// grades.parquet under dir. The returned string is a name=path list suitable
// for QUERYCHAT_ENGINE_PARQUET_VIEWS.
func WriteParquet(dir string, data Dataset) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("parquet dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve parquet dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("create parquet dir: %w", err)
	}

	views := make([]string, 0, 3)
	write := func(name string, fn func(*os.File) error) error {
		path := filepath.Join(abs, name+".parquet")
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := fn(file); err != nil {
			_ = file.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}
		views = append(views, name+"="+path)
		return nil
	}

	if err := write("students", func(f *os.File) error { return writeRows(f, data.Students) }); err != nil {
		return "", err
	}
	if err := write("courses", func(f *os.File) error { return writeRows(f, data.Courses) }); err != nil {
		return "", err
	}
	if err := write("grades", func(f *os.File) error { return writeRows(f, data.Grades) }); err != nil {
		return "", err
	}
	return strings.Join(views, ","), nil
}

func writeRows[T any](f *os.File, rows []T) error {
	writer := parquet.NewGenericWriter[T](f)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
