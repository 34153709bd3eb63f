package nl2sql

import (
	"fmt"
	"strings"

	"github.com/querychat/querychat/internal/engine"
)

// Markers shared by the prompts below; tests and fakes match on them.
const (
	GenerationMarker = "Generate a safe, efficient SQL query"
	RepairMarker     = "The following SQL query generated an error"
	ValidationMarker = "Analyze this SQL query for safety and correctness"
	SummaryMarker    = "Create a clear, concise summary of these database results"
)

func generationPrompt(dialect string, schema engine.Schema, question string) string {
	return fmt.Sprintf(`Given this %s database schema:

%s

%s to answer this question:
%s

Return only the SQL query without any explanation or comments.
`, dialectLabel(dialect), schema.String(), GenerationMarker, question)
}

func repairPrompt(schema engine.Schema, question, sql, engineErr string) string {
	return fmt.Sprintf(`%s:

Schema: %s
Question: %s
Original Query: %s
Error: %s

Please provide a corrected SQL query that resolves this error.
Return only the corrected SQL query without any explanation.
`, RepairMarker, schema.String(), question, sql, engineErr)
}

func validationPrompt(sql string) string {
	return fmt.Sprintf(`%s:

%s

Return a JSON object with this exact structure:
{
    "is_valid": boolean,
    "issues": [list of strings describing any problems],
    "risk_level": "low"|"medium"|"high"
}
`, ValidationMarker, sql)
}

func summaryPrompt(question, data string) string {
	return fmt.Sprintf(`%s:

Original Question: %s
Data: %s

Focus on key insights and patterns.
`, SummaryMarker, question, data)
}

func dialectLabel(dialect string) string {
	switch strings.ToLower(dialect) {
	case "postgres":
		return "PostgreSQL"
	case "sqlite":
		return "SQLite"
	case "duckdb":
		return "DuckDB"
	default:
		return "MySQL"
	}
}
