package dashboard

import (
	"errors"
	"fmt"

	"github.com/skypies/geo"

	"FlightsDashboard/src/export"
	"FlightsDashboard/src/plot"
	"FlightsDashboard/src/processor"
	"FlightsDashboard/src/utils"
)

func init() {
	HandleChart(ChartEntry{Name: "overview", Order: 10, Title: "Dataset overview",
		Description: "Type, distinct values, missing values and numeric range of every column", Build: buildOverview})
	HandleChart(ChartEntry{Name: "data", Order: 15, Title: "Flights",
		Description: "The loaded flight rows with their period", Build: buildData})
	HandleChart(ChartEntry{Name: "summary", Order: 20, Title: "Before and after in numbers",
		Description: "Flights, days covered and daily average per period", Build: buildSummary})
	HandleChart(ChartEntry{Name: "distribution", Order: 30, Title: "Distribution of flights",
		Description: "Flights per value of the selected dimension and period",
		Widgets:     []string{WidgetDimension, WidgetTop}, Build: buildDistribution})
	HandleChart(ChartEntry{Name: "hourly", Order: 40, Title: "Departures by hour",
		Description: "Hour of day histogram per period", Widgets: []string{WidgetLog}, Build: buildHourly})
	HandleChart(ChartEntry{Name: "timeline", Order: 50, Title: "Departures over time",
		Description: "Flights per day or month", Widgets: []string{WidgetGranularity}, Build: buildTimeline})
	HandleChart(ChartEntry{Name: "city_decrease", Order: 60, Title: "Cities with the largest decrease",
		Description: "Before minus after, largest drops", Widgets: []string{WidgetN}, Build: buildCityDecrease})
	HandleChart(ChartEntry{Name: "destinations", Order: 70, Title: "Destinations",
		Description: "Destination airports by position and distance", Build: buildDestinations})
}

func buildOverview(env *Env, p Params) (*Result, error) {
	profiles := processor.ProfileColumns(env.Dataset, processor.ProfileOptions{
		TimestampColumn: env.Data.TimestampColumn,
		NonNumeric:      env.Data.NonNumericColumns,
	})

	t := export.Table{Name: "overview", Columns: []string{
		"Column", "Label", "Description", "Type", "Distinct", "Missing", "Missing %", "Min", "Max", "Mean",
	}}
	for _, c := range profiles {
		t.Rows = append(t.Rows, []any{c.Name, c.Label, c.Description, c.Type, c.Distinct, c.Missing, c.MissingPct, c.Min, c.Max, c.Mean})
	}
	return &Result{Data: profiles, Tables: []export.Table{t}}, nil
}

// JSON 只返回前 dataPreviewRows 行, 完整数据见导出
const dataPreviewRows = 100

// FlightRows is the JSON form of the data chart.
type FlightRows struct {
	Total   int      `json:"total"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func buildData(env *Env, p Params) (*Result, error) {
	t := export.DataFrameTable("flights", env.Flights)
	head := t.Rows
	if len(head) > dataPreviewRows {
		head = head[:dataPreviewRows]
	}
	if head == nil {
		head = [][]any{}
	}
	return &Result{
		Title:  fmt.Sprintf("Flights (%s rows)", processor.FormatCount(len(t.Rows))),
		Data:   FlightRows{Total: len(t.Rows), Columns: t.Columns, Rows: head},
		Tables: []export.Table{t},
	}, nil
}

func buildSummary(env *Env, p Params) (*Result, error) {
	s, err := processor.Summarize(env.Flights, env.Data.TimestampColumn, env.Data.Event())
	if err != nil {
		return nil, err
	}

	t := export.Table{Name: "summary", Columns: []string{"Period", "Flights", "First", "Last", "Days", "Daily average"}}
	for _, ps := range s.Periods {
		first, last := "", ""
		if ps.Flights > 0 {
			first, last = ps.First.Format(utils.TimeLayout), ps.Last.Format(utils.TimeLayout)
		}
		t.Rows = append(t.Rows, []any{ps.Period, ps.Flights, first, last, ps.Days, processor.FormatNumber(ps.DailyAverage)})
	}
	t.Rows = append(t.Rows, []any{"Change of daily average", "", "", "", "", processor.FormatChange(s.ChangePct)})
	return &Result{Data: s, Tables: []export.Table{t}}, nil
}

func buildDistribution(env *Env, p Params) (*Result, error) {
	column, ok := env.Data.DimensionColumn(p.Dimension)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrBadParam, p.Dimension)
	}
	c, err := processor.Compare(env.Flights, column, p.Top)
	if err != nil {
		return nil, err
	}

	label := env.Label(column)
	fig, err := plot.Distribution(c, label)
	if err != nil && !errors.Is(err, plot.ErrNoData) {
		return nil, err
	}

	wide := export.Table{Name: "distribution", Columns: []string{label, processor.Before, processor.After, "Total", "Change"}}
	for _, w := range c.Wide {
		wide.Rows = append(wide.Rows, []any{w.Value, w.Before, w.After, w.Total, processor.FormatChange(w.ChangePct)})
	}
	long := export.Table{Name: "distribution_long", Columns: []string{label, processor.PeriodColumn, "count"}}
	for _, r := range c.Long {
		long.Rows = append(long.Rows, []any{r.Value, r.Period, r.Count})
	}
	return &Result{Title: fmt.Sprintf("Distribution of flights by %s", label), Data: c,
		Tables: []export.Table{wide, long}, Figure: fig}, nil
}

func buildHourly(env *Env, p Params) (*Result, error) {
	h, err := processor.HourlyHistogram(env.Flights, env.Data.HourColumn)
	if err != nil {
		return nil, err
	}
	fig, err := plot.Hourly(h, p.Log)
	if err != nil && !errors.Is(err, plot.ErrNoData) {
		return nil, err
	}

	t := export.Table{Name: "hourly", Columns: []string{"Hour", processor.Before, processor.After}}
	for i, hr := range h.Hours {
		t.Rows = append(t.Rows, []any{hr, h.Before[i], h.After[i]})
	}
	stats := export.Table{Name: "hourly_stats", Columns: []string{"Period", "N", "Mean hour", "Stddev", "Median hour"}}
	for _, period := range processor.Periods {
		s := h.Stats[period]
		stats.Rows = append(stats.Rows, []any{period, s.N, s.Mean, s.Stddev, s.Median})
	}
	return &Result{Data: h, Tables: []export.Table{t, stats}, Figure: fig}, nil
}

func buildTimeline(env *Env, p Params) (*Result, error) {
	points, err := processor.Timeline(env.Flights, env.Data.TimestampColumn, env.Data.Event(), p.Granularity)
	if err != nil {
		return nil, err
	}
	fig, err := plot.Timeline(points, p.Granularity)
	if err != nil && !errors.Is(err, plot.ErrNoData) {
		return nil, err
	}

	t := export.Table{Name: "timeline", Columns: []string{string(p.Granularity), processor.Before, processor.After}}
	for _, pt := range points {
		t.Rows = append(t.Rows, []any{pt.Label, pt.Before, pt.After})
	}
	return &Result{Data: points, Tables: []export.Table{t}, Figure: fig}, nil
}

func buildCityDecrease(env *Env, p Params) (*Result, error) {
	column := env.Data.CityColumn
	diffs, err := processor.LargestDecreases(env.Flights, column, p.N)
	if err != nil {
		return nil, err
	}

	label := env.Label(column)
	fig, err := plot.Decreases(diffs, label)
	if err != nil && !errors.Is(err, plot.ErrNoData) {
		return nil, err
	}

	t := export.Table{Name: "city_decrease", Columns: []string{label, processor.Before, processor.After, "Difference"}}
	for _, d := range diffs {
		t.Rows = append(t.Rows, []any{d.Value, d.Before, d.After, d.Difference})
	}
	return &Result{Title: fmt.Sprintf("Top %d %s by decrease in flights", p.N, label), Data: diffs,
		Tables: []export.Table{t}, Figure: fig}, nil
}

func buildDestinations(env *Env, p Params) (*Result, error) {
	set, err := processor.Destinations(env.Flights, processor.DestinationOptions{
		AirportColumn:   env.Data.AirportColumn,
		LatitudeColumn:  env.Data.LatitudeColumn,
		LongitudeColumn: env.Data.LongitudeColumn,
		Home:            geo.Latlong{Lat: env.Data.Home.Lat, Long: env.Data.Home.Long},
	})
	if err != nil {
		return nil, err
	}
	fig, err := plot.Destinations(set)
	if err != nil && !errors.Is(err, plot.ErrNoData) {
		return nil, err
	}

	t := export.Table{Name: "destinations", Columns: []string{
		env.Label(env.Data.AirportColumn), "Latitude", "Longitude", "Distance km", processor.Before, processor.After,
	}}
	for _, d := range set.Destinations {
		lat, long, dist := any(""), any(""), any("")
		if d.HasLocation {
			lat, long, dist = d.Lat, d.Long, processor.FormatNumber(d.DistanceKM)
		}
		t.Rows = append(t.Rows, []any{d.Airport, lat, long, dist, d.Before, d.After})
	}
	return &Result{Title: fmt.Sprintf("Destinations from %s", env.Data.Home.Name), Data: set,
		Tables: []export.Table{t}, Figure: fig}, nil
}
