package export

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ecommerce-dashboard/internal/models"
)

const (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 4 * vg.Inch
)

var (
	barColor   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	peakColor  = color.RGBA{R: 31, G: 58, B: 95, A: 255}
	trendColor = color.RGBA{R: 192, G: 57, B: 43, A: 255}
)

// WriteMonthlyTrendPNG draws monthly units sold as bars with the fitted linear
// trend overlaid, and writes the chart to w as PNG.
func WriteMonthlyTrendPNG(w io.Writer, totals []models.MonthlyTotal, trend models.TrendSeries) error {
	if len(totals) == 0 {
		return fmt.Errorf("no monthly totals to chart")
	}

	p := plot.New()
	p.Title.Text = "Units sold per month"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "Units"
	p.Y.Min = 0

	values := make(plotter.Values, len(totals))
	labels := make([]string, len(totals))
	peak := -1
	for i, t := range totals {
		values[i] = float64(t.Quantity)
		labels[i] = t.MonthName
		if t.Peak {
			peak = i
		}
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.Legend.Add("Units sold", bars)

	if peak >= 0 {
		marker := make(plotter.Values, len(totals))
		marker[peak] = values[peak]
		peakBar, err := plotter.NewBarChart(marker, vg.Points(40))
		if err != nil {
			return fmt.Errorf("peak bar: %w", err)
		}
		peakBar.Color = peakColor
		peakBar.LineStyle.Width = vg.Length(0)
		p.Add(peakBar)
		p.Legend.Add("Peak month", peakBar)
	}

	if len(trend.Fitted) == len(totals) {
		pts := make(plotter.XYs, len(trend.Fitted))
		for i, y := range trend.Fitted {
			pts[i].X = float64(i)
			pts[i].Y = y
			if y < p.Y.Min {
				p.Y.Min = y
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("trend line: %w", err)
		}
		line.Color = trendColor
		line.Width = vg.Points(2)
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("Linear trend", line)
	}

	p.Add(plotter.NewGrid())
	p.NominalX(labels...)
	p.Legend.Top = true

	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
