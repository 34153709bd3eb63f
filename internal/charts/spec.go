package charts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindScatter   Kind = "scatter"
	KindHistogram Kind = "histogram"
	KindBoxplot   Kind = "boxplot"
)

// Spec is one chart recommendation.
type Spec struct {
	Type        string `json:"type"`
	XAxis       string `json:"x_axis"`
	YAxis       string `json:"y_axis,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var kindAliases = map[string]Kind{
	"bar":          KindBar,
	"bar_chart":    KindBar,
	"line":         KindLine,
	"line_chart":   KindLine,
	"scatter":      KindScatter,
	"scatter_plot": KindScatter,
	"histogram":    KindHistogram,
	"boxplot":      KindBoxplot,
	"box_plot":     KindBoxplot,
}

// Kind resolves Type, accepting the long chart names as aliases.
func (s Spec) Kind() (Kind, bool) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s.Type))]
	return kind, ok
}

// Validate checks the spec against the result columns. Histograms need only
// an x axis; every other kind needs both.
func (s Spec) Validate(columns []string) error {
	if strings.TrimSpace(s.Type) == "" || s.XAxis == "" {
		return fmt.Errorf("missing chart type or x axis")
	}
	if !slices.Contains(columns, s.XAxis) {
		return fmt.Errorf("column %q not found in result", s.XAxis)
	}
	if s.YAxis != "" && !slices.Contains(columns, s.YAxis) {
		return fmt.Errorf("column %q not found in result", s.YAxis)
	}
	kind, ok := s.Kind()
	if !ok {
		return fmt.Errorf("unsupported chart type %q", s.Type)
	}
	if kind != KindHistogram && s.YAxis == "" {
		return fmt.Errorf("y axis required for %s", kind)
	}
	return nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)(\{.*\})`)

// parseRecommendations reads the oracle answer. The widest brace-delimited
// span of the newline-flattened answer is tried first, then the answer as a
// whole.
func parseRecommendations(answer string) ([]Spec, error) {
	var payload struct {
		Visualizations []Spec `json:"visualizations"`
	}
	flattened := strings.ReplaceAll(answer, "\n", " ")
	if match := jsonObjectPattern.FindString(flattened); match != "" {
		if err := json.Unmarshal([]byte(match), &payload); err != nil {
			return nil, fmt.Errorf("decode visualization recommendations: %w", err)
		}
		return payload.Visualizations, nil
	}
	if err := json.Unmarshal([]byte(answer), &payload); err != nil {
		return nil, fmt.Errorf("failed to generate valid visualization recommendations: %w", err)
	}
	return payload.Visualizations, nil
}
