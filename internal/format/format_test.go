package format

import (
	"math"
	"strings"
	"testing"
)

func TestTableEmpty(t *testing.T) {
	if got := Table([]string{"name"}, nil); got != "No data available." {
		t.Fatalf("Table() = %q", got)
	}
	if got := Table(nil, []map[string]any{}); got != NoData {
		t.Fatalf("Table() = %q", got)
	}
}

func TestTableHeadersAndSeparators(t *testing.T) {
	got := Table([]string{"student_name", "total_score"}, []map[string]any{
		{"student_name": "Ada", "total_score": 1234.5},
		{"student_name": "Linus", "total_score": int64(88)},
	})
	want := strings.Join([]string{
		"| Student Name | Total Score |",
		"| ------------ | ----------- |",
		"| Ada | 1,234.50 |",
		"| Linus | 88 |",
	}, "\n")
	if got != want {
		t.Fatalf("Table() =\n%s\nwant\n%s", got, want)
	}
}

func TestTableSeparatorUsesRawNameLength(t *testing.T) {
	got := Table([]string{"avg_ñ"}, []map[string]any{{"avg_ñ": 1}})
	lines := strings.Split(got, "\n")
	if lines[0] != "| Avg Ñ |" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "| ----- |" {
		t.Fatalf("separator = %q", lines[1])
	}
}

func TestTableHeadersStartWordsAfterDigitsAndApostrophes(t *testing.T) {
	got := Table([]string{"score2x", "o'neil_name", "AVG_score"}, []map[string]any{{"score2x": 1, "o'neil_name": 2, "AVG_score": 3}})
	header := strings.Split(got, "\n")[0]
	if header != "| Score2X | O'Neil Name | Avg Score |" {
		t.Fatalf("header = %q", header)
	}
}

func TestTableFollowsColumnOrder(t *testing.T) {
	got := Table([]string{"score", "name"}, []map[string]any{{"name": "Ada", "score": 3}})
	if !strings.HasPrefix(got, "| Score | Name |") {
		t.Fatalf("Table() = %q", got)
	}
	if !strings.HasSuffix(got, "| 3 | Ada |") {
		t.Fatalf("Table() = %q", got)
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{value: 1234567.891, want: "1,234,567.89"},
		{value: float32(2.5), want: "2.50"},
		{value: -1500.0, want: "-1,500.00"},
		{value: 1e19, want: "10,000,000,000,000,000,000.00"},
		{value: -1e19, want: "-10,000,000,000,000,000,000.00"},
		{value: 0.125, want: "0.12"},
		{value: 0.375, want: "0.38"},
		{value: math.NaN(), want: "nan"},
		{value: math.Inf(-1), want: "-inf"},
		{value: int64(1500), want: "1500"},
		{value: nil, want: "NULL"},
		{value: "text", want: "text"},
		{value: []byte("raw"), want: "raw"},
		{value: true, want: "true"},
	}
	for _, tc := range tests {
		if got := Cell(tc.value); got != tc.want {
			t.Fatalf("Cell(%#v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestAnswerTemplate(t *testing.T) {
	got := Answer("select 1", "| A |\n| - |\n| 1 |", " One row. ")
	want := "```sql\nselect 1\n```\n\n" +
		"<details>\n<summary>📊 Click to view data</summary>\n\n" +
		"| A |\n| - |\n| 1 |\n</details>\n\n" +
		"One row.\n"
	if got != want {
		t.Fatalf("Answer() =\n%q\nwant\n%q", got, want)
	}
}
