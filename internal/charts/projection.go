// Package charts renders forecast views as images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"cashflow/internal/core"
)

var ErrNotEnoughPoints = errors.New("projection needs at least two points")

// ProjectionChart renders balance projections as PNG area charts.
type ProjectionChart struct {
	Width  int
	Height int
}

func NewProjectionChart() *ProjectionChart {
	return &ProjectionChart{Width: 1000, Height: 400}
}

// Render writes the series as a PNG with a dashed zero line.
func (c *ProjectionChart) Render(w io.Writer, series []core.ProjectionPoint) error {
	if len(series) < 2 {
		return ErrNotEnoughPoints
	}

	xs := make([]time.Time, len(series))
	ys := make([]float64, len(series))
	zero := make([]float64, len(series))
	for i, p := range series {
		xs[i] = p.Date.Time
		ys[i] = p.Balance.Units()
	}
	lo, hi := valueRange(ys)

	graph := chart.Chart{
		Width:  c.Width,
		Height: c.Height,
		Background: chart.Style{
			Padding:   chart.Box{Top: 30, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 02"),
			Style:          chart.Style{FontSize: 10, FontColor: chart.ColorBlack},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
			Style: chart.Style{FontSize: 10, FontColor: chart.ColorBlack},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Projected balance",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
					FillColor:   chart.ColorBlue.WithAlpha(48),
				},
			},
			chart.TimeSeries{
				Name:    "Zero",
				XValues: xs,
				YValues: zero,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed.WithAlpha(160),
					StrokeWidth:     1,
					StrokeDashArray: []float64{4.0, 4.0},
				},
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render projection chart: %w", err)
	}
	return nil
}

// PNG renders into memory.
func (c *ProjectionChart) PNG(series []core.ProjectionPoint) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf, series); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// valueRange spans the values and zero with some headroom. A flat series
// still gets a non-empty range.
func valueRange(ys []float64) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}
