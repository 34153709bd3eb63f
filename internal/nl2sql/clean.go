package nl2sql

import "strings"

// CleanSQL normalizes a generated query: the whole text is lower-cased,
// one leading fence (```sql, ``` or a bare "sql") and one trailing fence are
// removed, and every backtick is dropped. Lower-casing also rewrites string
// literals.
func CleanSQL(raw string) string {
	cleaned := strings.TrimSpace(strings.ToLower(raw))
	if cleaned == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(cleaned, "```sql"):
		cleaned = strings.TrimSpace(cleaned[len("```sql"):])
	case strings.HasPrefix(cleaned, "```"):
		cleaned = strings.TrimSpace(cleaned[len("```"):])
	case strings.HasPrefix(cleaned, "sql"):
		cleaned = strings.TrimSpace(cleaned[len("sql"):])
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}
	return strings.TrimSpace(strings.ReplaceAll(cleaned, "`", ""))
}
