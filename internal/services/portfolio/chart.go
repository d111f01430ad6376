package portfolio

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/stockfolio/internal/models"
)

// Chart kinds accepted by Service.Chart.
const (
	ChartAllocation = "allocation"
	ChartGrowth     = "growth"
)

// RenderGrowthChart renders a PNG line chart from growth data points.
// Two series: Portfolio Value (blue solid) and Total Cost (gray dashed).
// Returns raw PNG bytes.
func RenderGrowthChart(points []models.GrowthPoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 data points, got %d", models.ErrInvalidInput, len(points))
	}

	xValues := make([]time.Time, len(points))
	valueY := make([]float64, len(points))
	costY := make([]float64, len(points))

	for i, p := range points {
		xValues[i] = p.Date
		valueY[i] = p.TotalValue
		costY[i] = p.TotalCost
	}

	valueSeries := chart.TimeSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: valueY,
	}

	costSeries := chart.TimeSeries{
		Name: "Total Cost",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: costY,
	}

	graph := chart.Chart{
		Title:  "Portfolio Growth",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return formatMoney(f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			valueSeries,
			costSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// RenderAllocationChart renders a PNG pie chart of current value by symbol,
// largest slice first. Positions with no value are left out.
func RenderAllocationChart(positions []*models.Position) ([]byte, error) {
	values := make([]chart.Value, 0, len(positions))
	for _, p := range positions {
		if p.CurrentValue <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: p.Symbol,
			Value: p.CurrentValue,
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: portfolio has no valued holdings", models.ErrInvalidInput)
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].Value > values[j].Value
	})

	pie := chart.PieChart{
		Title:  "Allocation",
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func formatMoney(f float64) string {
	switch {
	case f >= 1e6 || f <= -1e6:
		return fmt.Sprintf("$%.1fm", f/1e6)
	case f >= 1e3 || f <= -1e3:
		return fmt.Sprintf("$%.0fk", f/1e3)
	default:
		return fmt.Sprintf("$%.0f", f)
	}
}
