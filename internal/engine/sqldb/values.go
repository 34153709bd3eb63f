package sqldb

import (
	"math/big"
	"strconv"
	"strings"
)

// normalizeValues converts driver specific cell values into the plain Go
// scalars the formatter and chart advisor understand.
func normalizeValues(values []any, typeNames []string) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		typeName := ""
		if i < len(typeNames) {
			typeName = typeNames[i]
		}
		normalized[i] = normalizeValue(value, typeName)
	}
	return normalized
}

type float64er interface {
	Float64() float64
}

func normalizeValue(value any, typeName string) any {
	switch typed := value.(type) {
	case []byte:
		return coerceText(string(typed), typeName)
	case string:
		return coerceText(typed, typeName)
	case *big.Int:
		if typed == nil {
			return nil
		}
		if typed.IsInt64() {
			return typed.Int64()
		}
		return typed.String()
	case float64er:
		// duckdb decimals
		return typed.Float64()
	default:
		return typed
	}
}

// coerceText parses numeric columns that drivers hand back as text, such as
// MySQL and Postgres DECIMAL.
func coerceText(text, typeName string) any {
	switch strings.ToUpper(typeName) {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "REAL":
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return parsed
		}
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "INT2", "INT4", "INT8",
		"UNSIGNED INT", "UNSIGNED BIGINT", "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT":
		if parsed, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil {
			return parsed
		}
	}
	return text
}
