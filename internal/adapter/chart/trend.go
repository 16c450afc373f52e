// Package chart renders the synthetic NO₂ trend as a PNG line chart.
package chart

import (
	"fmt"
	"io"

	"github.com/ki-SH-an/NO2-predictor/internal/trend"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	defaultWidth  = 1024
	defaultHeight = 400
)

var lineColor = drawing.ColorFromHex("2563eb")

// RenderTrend writes s as a PNG to w. One x tick is drawn per January.
func RenderTrend(w io.Writer, s trend.Series) error {
	if len(s.Points) < 2 {
		return fmt.Errorf("render trend: need at least 2 points, got %d", len(s.Points))
	}

	xs := make([]float64, len(s.Points))
	ys := make([]float64, len(s.Points))
	var ticks []gochart.Tick
	for i, p := range s.Points {
		xs[i] = float64(i)
		ys[i] = p.Concentration
		if p.Month == 1 {
			ticks = append(ticks, gochart.Tick{Value: float64(i), Label: p.Label})
		}
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("NO2 trend at %.4f, %.4f", s.Coordinate.Latitude, s.Coordinate.Longitude),
		Width:  defaultWidth,
		Height: defaultHeight,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: gochart.XAxis{Ticks: ticks},
		YAxis: gochart.YAxis{Name: "µg/m³"},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "NO2",
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
				},
			},
		},
	}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render trend: %w", err)
	}
	return nil
}
