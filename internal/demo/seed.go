package demo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS students (
	id BIGINT PRIMARY KEY,
	name VARCHAR(128) NOT NULL,
	cohort VARCHAR(16) NOT NULL,
	enrolled_year INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS courses (
	id BIGINT PRIMARY KEY,
	title VARCHAR(128) NOT NULL,
	department VARCHAR(64) NOT NULL,
	credits INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS grades (
	student_id BIGINT NOT NULL,
	course_id BIGINT NOT NULL,
	term VARCHAR(16) NOT NULL,
	score DOUBLE PRECISION NOT NULL
)`,
}

// Children first so foreign-key minded engines stay happy.
var resetStatements = []string{
	`DELETE FROM grades`,
	`DELETE FROM courses`,
	`DELETE FROM students`,
}

type Counts struct {
	Students int
	Courses  int
	Grades   int
}

// Seed creates the demo tables when missing and replaces their rows with
// data inside one transaction. dialect is the engine dialect name and only
// selects the placeholder style.
func Seed(ctx context.Context, db *sql.DB, dialect string, data Dataset) (Counts, error) {
	if db == nil {
		return Counts{}, fmt.Errorf("db is required")
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return Counts{}, fmt.Errorf("create demo schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Counts{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range resetStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return Counts{}, fmt.Errorf("reset demo rows: %w", err)
		}
	}

	insertStudent := insertSQL(dialect, "students", "id", "name", "cohort", "enrolled_year")
	for _, s := range data.Students {
		if _, err := tx.ExecContext(ctx, insertStudent, s.ID, s.Name, s.Cohort, s.EnrolledYear); err != nil {
			return Counts{}, fmt.Errorf("insert student %d: %w", s.ID, err)
		}
	}
	insertCourse := insertSQL(dialect, "courses", "id", "title", "department", "credits")
	for _, c := range data.Courses {
		if _, err := tx.ExecContext(ctx, insertCourse, c.ID, c.Title, c.Department, c.Credits); err != nil {
			return Counts{}, fmt.Errorf("insert course %d: %w", c.ID, err)
		}
	}
	insertGrade := insertSQL(dialect, "grades", "student_id", "course_id", "term", "score")
	for _, g := range data.Grades {
		if _, err := tx.ExecContext(ctx, insertGrade, g.StudentID, g.CourseID, g.Term, g.Score); err != nil {
			return Counts{}, fmt.Errorf("insert grade %d/%d: %w", g.StudentID, g.CourseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	return Counts{
		Students: len(data.Students),
		Courses:  len(data.Courses),
		Grades:   len(data.Grades),
	}, nil
}

func insertSQL(dialect, table string, columns ...string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		if dialect == "postgres" {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}
