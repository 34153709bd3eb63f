// Package format renders query results as markdown for the chat answer.
package format

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const NoData = "No data available."

const detailsSummary = "📊 Click to view data"

// Table renders records as a markdown table with columns in the given
// order. Separator dashes match the rune length of the raw column name, not
// the rendered width.
func Table(columns []string, records []map[string]any) string {
	if len(records) == 0 {
		return NoData
	}
	if len(columns) == 0 {
		columns = sortedKeys(records[0])
	}

	headers := make([]string, len(columns))
	separators := make([]string, len(columns))
	for i, column := range columns {
		headers[i] = titleWords(strings.ReplaceAll(column, "_", " "))
		separators[i] = strings.Repeat("-", utf8.RuneCountInString(column))
	}

	lines := make([]string, 0, len(records)+2)
	lines = append(lines, row(headers), row(separators))
	cells := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			cells[i] = Cell(record[column])
		}
		lines = append(lines, row(cells))
	}
	return strings.Join(lines, "\n")
}

// Cell renders one value: floats with thousands separators and two
// decimals, nil as NULL, everything else in its default form.
func Cell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case float64:
		return formatFloat(typed)
	case float32:
		return formatFloat(float64(typed))
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}

// titleWords upper-cases every cased rune that follows an uncased one and
// lower-cases the rest, so digits and apostrophes start a new word.
func titleWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && !prevCased:
			b.WriteRune(unicode.ToTitle(r))
		case cased:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}

// Answer composes the reply for a database question: the query in a fenced
// block, the table in a collapsible section, then the summary.
func Answer(sql, table, summary string) string {
	var b strings.Builder
	b.WriteString("```sql\n")
	b.WriteString(strings.TrimSpace(sql))
	b.WriteString("\n```\n\n")
	b.WriteString("<details>\n<summary>")
	b.WriteString(detailsSummary)
	b.WriteString("</summary>\n\n")
	b.WriteString(table)
	b.WriteString("\n</details>\n\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n")
	return b.String()
}

func row(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func sortedKeys(record map[string]any) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
