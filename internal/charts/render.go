package charts

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/querychat/querychat/internal/engine"
)

const (
	imageWidth  = 10 * vg.Inch
	imageHeight = 6 * vg.Inch
	imageDPI    = 100
	// labels rotate once there are more categories than this
	rotateAfter = 10
)

type renderFunc func(p *plot.Plot, data engine.Result, spec Spec) error

var renderers = map[Kind]renderFunc{
	KindBar:       renderBar,
	KindLine:      renderLine,
	KindScatter:   renderScatter,
	KindHistogram: renderHistogram,
	KindBoxplot:   renderBoxplot,
}

// Render draws a validated spec to a 1000x600 PNG.
func Render(data engine.Result, spec Spec) (image []byte, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			image = nil
			err = fmt.Errorf("render %s chart: %v", spec.Type, recovered)
		}
	}()

	kind, ok := spec.Kind()
	if !ok {
		return nil, fmt.Errorf("unsupported chart type %q", spec.Type)
	}
	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = spec.XAxis
	p.Y.Label.Text = spec.YAxis
	if err := renderers[kind](p, data, spec); err != nil {
		return nil, err
	}

	canvas := vgimg.NewWith(vgimg.UseWH(imageWidth, imageHeight), vgimg.UseDPI(imageDPI))
	p.Draw(draw.New(canvas))
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// renderBar plots the mean of y for every distinct x, in first-seen order.
func renderBar(p *plot.Plot, data engine.Result, spec Spec) error {
	labels, groups, err := groupByLabel(data, spec.XAxis, spec.YAxis)
	if err != nil {
		return err
	}
	means := make(plotter.Values, len(labels))
	for i, label := range labels {
		means[i] = mean(groups[label])
	}
	bars, err := plotter.NewBarChart(means, barWidth(len(labels)))
	if err != nil {
		return err
	}
	p.Add(bars)
	nominalX(p, labels)
	return nil
}

func renderLine(p *plot.Plot, data engine.Result, spec Spec) error {
	xys, labels, err := pairs(data, spec.XAxis, spec.YAxis)
	if err != nil {
		return err
	}
	if labels == nil {
		sort.Slice(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	p.Add(line)
	if labels != nil {
		nominalX(p, labels)
	}
	return nil
}

func renderScatter(p *plot.Plot, data engine.Result, spec Spec) error {
	xys, labels, err := pairs(data, spec.XAxis, spec.YAxis)
	if err != nil {
		return err
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	p.Add(scatter)
	if labels != nil {
		nominalX(p, labels)
	}
	return nil
}

// renderHistogram bins a numeric column, or counts categories of a text column.
func renderHistogram(p *plot.Plot, data engine.Result, spec Spec) error {
	p.Y.Label.Text = "Count"
	x := columnIndex(data, spec.XAxis)
	if kindOf(data, x) == columnNumeric {
		values := numericColumn(data, x)
		if len(values) == 0 {
			return fmt.Errorf("column %q has no numeric values", spec.XAxis)
		}
		hist, err := plotter.NewHist(values, histogramBins(len(values)))
		if err != nil {
			return err
		}
		p.Add(hist)
		return nil
	}

	labels, counts := countLabels(data, x)
	bars, err := plotter.NewBarChart(counts, barWidth(len(labels)))
	if err != nil {
		return err
	}
	p.Add(bars)
	nominalX(p, labels)
	return nil
}

func renderBoxplot(p *plot.Plot, data engine.Result, spec Spec) error {
	labels, groups, err := groupByLabel(data, spec.XAxis, spec.YAxis)
	if err != nil {
		return err
	}
	width := barWidth(len(labels))
	for i, label := range labels {
		box, err := plotter.NewBoxPlot(width, float64(i), groups[label])
		if err != nil {
			return err
		}
		p.Add(box)
	}
	nominalX(p, labels)
	return nil
}

func columnIndex(data engine.Result, name string) int {
	for i, column := range data.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

func numericColumn(data engine.Result, index int) plotter.Values {
	values := plotter.Values{}
	for _, row := range data.Rows {
		if index < 0 || index >= len(row) {
			continue
		}
		if value, ok := toFloat(row[index]); ok && !math.IsNaN(value) {
			values = append(values, value)
		}
	}
	return values
}

// pairs returns (x, y) points. A non-numeric x column is plotted by row
// position and its labels are returned for the axis.
func pairs(data engine.Result, xName, yName string) (plotter.XYs, []string, error) {
	x, y := columnIndex(data, xName), columnIndex(data, yName)
	if kindOf(data, y) != columnNumeric {
		return nil, nil, fmt.Errorf("column %q is not numeric", yName)
	}
	numericX := kindOf(data, x) == columnNumeric
	var labels []string
	xys := plotter.XYs{}
	for _, row := range data.Rows {
		yValue, ok := toFloat(row[y])
		if !ok {
			continue
		}
		if numericX {
			xValue, ok := toFloat(row[x])
			if !ok {
				continue
			}
			xys = append(xys, plotter.XY{X: xValue, Y: yValue})
			continue
		}
		xys = append(xys, plotter.XY{X: float64(len(labels)), Y: yValue})
		labels = append(labels, label(row[x]))
	}
	if len(xys) == 0 {
		return nil, nil, fmt.Errorf("no plottable rows for %q against %q", yName, xName)
	}
	return xys, labels, nil
}

func groupByLabel(data engine.Result, xName, yName string) ([]string, map[string]plotter.Values, error) {
	x, y := columnIndex(data, xName), columnIndex(data, yName)
	if kindOf(data, y) != columnNumeric {
		return nil, nil, fmt.Errorf("column %q is not numeric", yName)
	}
	var labels []string
	groups := map[string]plotter.Values{}
	for _, row := range data.Rows {
		value, ok := toFloat(row[y])
		if !ok {
			continue
		}
		key := label(row[x])
		if _, seen := groups[key]; !seen {
			labels = append(labels, key)
		}
		groups[key] = append(groups[key], value)
	}
	if len(labels) == 0 {
		return nil, nil, fmt.Errorf("no plottable rows for %q against %q", yName, xName)
	}
	return labels, groups, nil
}

func countLabels(data engine.Result, index int) ([]string, plotter.Values) {
	var labels []string
	counts := map[string]float64{}
	for _, row := range data.Rows {
		key := label(row[index])
		if _, seen := counts[key]; !seen {
			labels = append(labels, key)
		}
		counts[key]++
	}
	values := make(plotter.Values, len(labels))
	for i, key := range labels {
		values[i] = counts[key]
	}
	return labels, values
}

func label(value any) string {
	if value == nil {
		return "NULL"
	}
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return fmt.Sprint(value)
}

// histogramBins uses the square-root rule, with at least one bin.
func histogramBins(n int) int {
	bins := int(math.Ceil(math.Sqrt(float64(n))))
	if bins < 1 {
		return 1
	}
	return bins
}

func mean(values plotter.Values) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

func barWidth(n int) vg.Length {
	if n < 1 {
		n = 1
	}
	width := imageWidth * 0.6 / vg.Length(n)
	if width > vg.Points(40) {
		width = vg.Points(40)
	}
	if width < vg.Points(2) {
		width = vg.Points(2)
	}
	return width
}

func nominalX(p *plot.Plot, labels []string) {
	p.NominalX(labels...)
	if len(labels) > rotateAfter {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = text.XRight
	}
}
