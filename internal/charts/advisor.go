// Package charts recommends and renders charts for query results. The
// oracle picks chart kinds and axes; drawing is a closed set of gonum/plot
// renderers, one per kind.
package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querychat/querychat/internal/engine"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/oracle"
)

const (
	RecommendMarker = "You are an expert data visualization advisor"
	maxSpecs        = 3
)

type Visualization struct {
	Spec  Spec
	Kind  Kind
	Image []byte
}

// Report is the outcome of Recommend. Err is set when the oracle could not
// produce usable recommendations; it never aborts the caller.
type Report struct {
	Visualizable   bool
	Reason         string
	Err            error
	Visualizations []Visualization
}

type Advisor struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

func NewAdvisor(o oracle.Oracle, logger *slog.Logger) *Advisor {
	return &Advisor{oracle: o, logger: observability.Component(logger, "charts")}
}

func (a *Advisor) Recommend(ctx context.Context, data engine.Result) Report {
	profile := ProfileOf(data)
	for _, column := range profile.Constant {
		a.logger.WarnContext(ctx, "column has no variance", slog.String("column", column))
	}
	if ok, reason := profile.Visualizable(); !ok {
		a.logger.DebugContext(ctx, "result not visualizable", slog.String("reason", reason))
		return Report{Visualizable: false, Reason: reason}
	}

	prompt, err := recommendPrompt(profile)
	if err != nil {
		return Report{Visualizable: true, Err: err}
	}
	answer, err := a.oracle.Complete(ctx, prompt)
	if err != nil {
		a.logger.ErrorContext(ctx, "visualization recommendation failed", slog.Any("error", err))
		return Report{Visualizable: true, Err: err}
	}
	specs, err := parseRecommendations(answer)
	if err != nil {
		a.logger.ErrorContext(ctx, "visualization recommendation unparseable",
			slog.Any("error", err),
			slog.String("answer", truncate(answer, 100)),
		)
		return Report{Visualizable: true, Err: err}
	}
	report := Report{Visualizable: true, Visualizations: []Visualization{}}
	for _, spec := range specs {
		if len(report.Visualizations) == maxSpecs {
			break
		}
		if spec.Title == "" {
			spec.Title = "Visualization"
		}
		if err := spec.Validate(data.Columns); err != nil {
			a.logger.WarnContext(ctx, "skipping visualization",
				slog.String("type", spec.Type),
				slog.String("x_axis", spec.XAxis),
				slog.String("y_axis", spec.YAxis),
				slog.Any("error", err),
			)
			continue
		}
		kind, _ := spec.Kind()
		image, err := Render(data, spec)
		observability.ObserveChartRender(string(kind), err)
		if err != nil {
			a.logger.ErrorContext(ctx, "error generating visualization",
				slog.String("type", string(kind)),
				slog.Any("error", err),
			)
			continue
		}
		report.Visualizations = append(report.Visualizations, Visualization{Spec: spec, Kind: kind, Image: image})
	}
	return report
}

func recommendPrompt(profile Profile) (string, error) {
	columns, err := json.Marshal(profile.Columns)
	if err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	numeric, _ := json.Marshal(profile.Numeric)
	categorical, _ := json.Marshal(profile.Categorical)
	sample, err := json.MarshalIndent(profile.Sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sample rows: %w", err)
	}
	return fmt.Sprintf(`%s. Based on the following result set information,
recommend up to 3 appropriate visualization types that would provide valuable insights.

Result set information:
- Columns: %s
- Shape: %s
- Numeric columns: %s
- Categorical columns: %s
- Sample data: %s

IMPORTANT: DO NOT write actual visualization code. Instead, for each visualization, specify:
1. The type (choose from: bar_chart, line_chart, scatter_plot, histogram, boxplot)
2. Which column to use for x-axis
3. Which column to use for y-axis (except for histogram)
4. A title and description

Respond in the following JSON format only:
{
    "visualizations": [
        {
            "type": "visualization_type",
            "title": "Title for the visualization",
            "x_axis": "column_name",
            "y_axis": "column_name",
            "description": "What this visualization will show"
        }
    ]
}
`, RecommendMarker, columns, profile.Shape(), numeric, categorical, sample), nil
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
