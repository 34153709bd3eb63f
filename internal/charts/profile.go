package charts

import (
	"fmt"

	"github.com/querychat/querychat/internal/engine"
)

// Profile describes a result set for the visualizability gate and the
// recommendation prompt.
type Profile struct {
	Columns     []string
	Rows        int
	Numeric     []string
	Categorical []string
	Sample      []map[string]any
	// Constant lists numeric columns holding a single distinct value.
	Constant []string
}

func ProfileOf(data engine.Result) Profile {
	profile := Profile{
		Columns:     data.Columns,
		Rows:        len(data.Rows),
		Numeric:     []string{},
		Categorical: []string{},
	}
	for i, column := range data.Columns {
		switch kindOf(data, i) {
		case columnNumeric:
			profile.Numeric = append(profile.Numeric, column)
			if distinct(data, i) <= 1 {
				profile.Constant = append(profile.Constant, column)
			}
		case columnCategorical:
			profile.Categorical = append(profile.Categorical, column)
		}
	}
	records := data.Records()
	if len(records) > 2 {
		records = records[:2]
	}
	profile.Sample = records
	return profile
}

// Visualizable reports whether the gate passes and, when it does not, why.
func (p Profile) Visualizable() (bool, string) {
	switch {
	case p.Rows == 0:
		return false, "result is empty"
	case len(p.Numeric) == 0:
		return false, "no numeric columns found for visualization"
	case p.Rows < 2:
		return false, "not enough data points for visualization (minimum 2 required)"
	}
	return true, ""
}

func (p Profile) Shape() string {
	return fmt.Sprintf("(%d, %d)", p.Rows, len(p.Columns))
}

type columnKind int

const (
	columnOther columnKind = iota
	columnNumeric
	columnCategorical
)

// kindOf classifies a column from its non-nil values: numeric when every
// value is a Go integer or float, categorical when any value is a string.
func kindOf(data engine.Result, index int) columnKind {
	seen := false
	numeric := true
	text := false
	for _, row := range data.Rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		seen = true
		if _, ok := toFloat(row[index]); !ok {
			numeric = false
		}
		if _, ok := row[index].(string); ok {
			text = true
		}
	}
	switch {
	case !seen:
		return columnOther
	case numeric:
		return columnNumeric
	case text:
		return columnCategorical
	default:
		return columnOther
	}
}

func distinct(data engine.Result, index int) int {
	values := map[float64]struct{}{}
	for _, row := range data.Rows {
		if index >= len(row) {
			continue
		}
		if value, ok := toFloat(row[index]); ok {
			values[value] = struct{}{}
		}
	}
	return len(values)
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}
