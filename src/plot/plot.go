// Package plot renders the dashboard figures to PNG with go-chart.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"FlightsDashboard/src/processor"
)

// ErrNoData is returned when a figure would have nothing to draw.
var ErrNoData = errors.New("no data to plot")

const (
	defaultWidth  = 1024
	defaultHeight = 480
	barWidth      = 36
)

// 时段配色
var periodColors = map[string]drawing.Color{
	processor.Before: chart.ColorBlue,
	processor.After:  chart.ColorRed,
}

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// Figure is a built chart ready to render.
type Figure struct {
	Title string
	r     renderer
}

// Render writes the figure as PNG. A panic inside go-chart is returned as an error.
func (f *Figure) Render(w io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %q: %v", f.Title, r)
		}
	}()
	return f.r.Render(chart.PNG, w)
}

// PNG 渲染为字节
func (f *Figure) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pointStyle draws dots only, no connecting line.
func pointStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    width,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
	}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}}
}

func widthFor(bars int) int {
	if w := bars*(barWidth+12) + 120; w > defaultWidth {
		return w
	}
	return defaultWidth
}

// Distribution stacks the Before and After counts of each dimension value.
func Distribution(c *processor.Comparison, label string) (*Figure, error) {
	if c == nil || len(c.Wide) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.StackedBar, 0, len(c.Wide))
	for _, w := range c.Wide {
		bars = append(bars, chart.StackedBar{
			Name:  w.Value,
			Width: barWidth,
			Values: []chart.Value{
				{Label: processor.Before, Value: float64(w.Before), Style: chart.Style{FillColor: periodColors[processor.Before], StrokeColor: periodColors[processor.Before]}},
				{Label: processor.After, Value: float64(w.After), Style: chart.Style{FillColor: periodColors[processor.After], StrokeColor: periodColors[processor.After]}},
			},
		})
	}

	title := fmt.Sprintf("Flights by %s, before and after", label)
	return &Figure{Title: title, r: &chart.StackedBarChart{
		Title:      title,
		Width:      widthFor(len(bars)),
		Height:     defaultHeight,
		Background: background(),
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis:      chart.Style{},
		BarSpacing: 12,
		Bars:       bars,
	}}, nil
}

// Hourly draws one line per period over the 24 hours. With logScale the counts are
// plotted as log10(1+n) and the axis is labelled with the raw counts.
func Hourly(h *processor.HourlyCounts, logScale bool) (*Figure, error) {
	if h == nil || len(h.Hours) == 0 {
		return nil, ErrNoData
	}

	xs := make([]float64, len(h.Hours))
	for i, hr := range h.Hours {
		xs[i] = float64(hr)
	}

	maxCount := 0
	var series []chart.Series
	for _, p := range processor.Periods {
		counts := h.Before
		if p == processor.After {
			counts = h.After
		}
		ys := make([]float64, len(counts))
		for i, n := range counts {
			ys[i] = scale(float64(n), logScale)
			if n > maxCount {
				maxCount = n
			}
		}
		series = append(series, chart.ContinuousSeries{Name: p, XValues: xs, YValues: ys, Style: lineStyle(periodColors[p])})
	}
	if maxCount == 0 {
		return nil, ErrNoData
	}

	yAxis := chart.YAxis{Name: "Flights", Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.05}}
	if logScale {
		yAxis.Name = "Flights (log)"
		yAxis.Ticks = logTicks(maxCount)
		yAxis.Range = &chart.ContinuousRange{Min: 0, Max: yAxis.Ticks[len(yAxis.Ticks)-1].Value}
	}

	hourTicks := make([]chart.Tick, 0, len(xs))
	for _, x := range xs {
		hourTicks = append(hourTicks, chart.Tick{Value: x, Label: fmt.Sprintf("%02d", int(x))})
	}

	title := "Departures by hour of day"
	ch := &chart.Chart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: background(),
		XAxis:      chart.XAxis{Name: "Hour", Ticks: hourTicks, Range: &chart.ContinuousRange{Min: 0, Max: float64(processor.HoursPerDay - 1)}},
		YAxis:      yAxis,
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return &Figure{Title: title, r: ch}, nil
}

func scale(v float64, logScale bool) float64 {
	if !logScale {
		return v
	}
	return log10p1(v)
}

func nextBucket(t time.Time, g processor.Granularity) time.Time {
	if g == processor.Monthly {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// periodSeries returns one value per bucket from the period's first to its last
// departure; buckets without departures inside that span are zero.
func periodSeries(points []processor.TimelinePoint, period string, g processor.Granularity) ([]time.Time, []float64) {
	counts := make(map[int64]int)
	var first, last time.Time
	for _, pt := range points {
		n := pt.Before
		if period == processor.After {
			n = pt.After
		}
		if n == 0 {
			continue
		}
		if len(counts) == 0 || pt.Bucket.Before(first) {
			first = pt.Bucket
		}
		if len(counts) == 0 || pt.Bucket.After(last) {
			last = pt.Bucket
		}
		counts[pt.Bucket.Unix()] += n
	}
	if len(counts) == 0 {
		return nil, nil
	}

	var xs []time.Time
	var ys []float64
	for b := first; !b.After(last); b = nextBucket(b, g) {
		xs = append(xs, b)
		ys = append(ys, float64(counts[b.Unix()]))
	}
	return xs, ys
}

// Timeline draws departures per bucket for each period.
func Timeline(points []processor.TimelinePoint, g processor.Granularity) (*Figure, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	var series []chart.Series
	for _, p := range processor.Periods {
		xs, ys := periodSeries(points, p, g)
		switch len(xs) {
		case 0:
			continue
		case 1:
			// go-chart 需要至少两个点
			xs = append(xs, nextBucket(xs[0], g))
			ys = append(ys, ys[0])
		}
		series = append(series, chart.TimeSeries{Name: p, Style: lineStyle(periodColors[p]), XValues: xs, YValues: ys})
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	format := "2006-01-02"
	if g == processor.Monthly {
		format = "2006-01"
	}
	title := "Departures over time"
	ch := &chart.Chart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: background(),
		XAxis:      chart.XAxis{Name: "Date", ValueFormatter: chart.TimeValueFormatterWithFormat(format)},
		YAxis:      chart.YAxis{Name: "Flights"},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return &Figure{Title: title, r: ch}, nil
}

// Decreases ranks the dimension values with the largest before-minus-after drop.
// go-chart has no horizontal bar type, so the ranking reads left to right.
func Decreases(diffs []processor.Difference, label string) (*Figure, error) {
	if len(diffs) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(diffs))
	lo, hi := 0.0, 1.0
	for _, d := range diffs {
		v := float64(d.Difference)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		bars = append(bars, chart.Value{
			Label: d.Value,
			Value: v,
			Style: chart.Style{FillColor: chart.ColorOrange, StrokeColor: chart.ColorOrange},
		})
	}

	title := fmt.Sprintf("Largest decrease in flights by %s", label)
	return &Figure{Title: title, r: &chart.BarChart{
		Title:      title,
		Width:      widthFor(len(bars)),
		Height:     defaultHeight,
		BarWidth:   barWidth,
		Background: background(),
		XAxis:      chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  "Before - After",
			Range: &chart.ContinuousRange{Min: lo, Max: hi * 1.05},
		},
		Bars: bars,
	}}, nil
}

// Destinations plots every located destination by longitude and latitude, with
// the home airport as a separate series.
func Destinations(set *processor.DestinationSet) (*Figure, error) {
	if set == nil {
		return nil, ErrNoData
	}

	var xs, ys []float64
	for _, d := range set.Destinations {
		if !d.HasLocation {
			continue
		}
		xs = append(xs, d.Long)
		ys = append(ys, d.Lat)
	}
	if len(xs) == 0 {
		return nil, ErrNoData
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0])
		ys = append(ys, ys[0])
	}

	home := set.Home
	minX, maxX, minY, maxY := home.Long, home.Long, home.Lat, home.Lat
	for i := range xs {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	title := "Destinations"
	ch := &chart.Chart{
		Title:      title,
		Width:      defaultWidth,
		Height:     defaultHeight + 160,
		Background: background(),
		XAxis:      chart.XAxis{Name: "Longitude", Range: &chart.ContinuousRange{Min: minX - 2, Max: maxX + 2}},
		YAxis:      chart.YAxis{Name: "Latitude", Range: &chart.ContinuousRange{Min: minY - 2, Max: maxY + 2}},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Destination", XValues: xs, YValues: ys, Style: pointStyle(chart.ColorBlue, 4)},
			chart.ContinuousSeries{
				Name:    "Home",
				XValues: []float64{home.Long, home.Long},
				YValues: []float64{home.Lat, home.Lat},
				Style:   pointStyle(chart.ColorRed, 8),
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return &Figure{Title: title, r: ch}, nil
}
