// hourly.go
package processor

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/skypies/util/histogram"
)

// HoursPerDay 小时桶数量
const HoursPerDay = 24

// HourStats summarizes the departure hours of one period.
type HourStats struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	Median float64 `json:"median"`
}

// HourlyCounts 每小时各时段航班数, 0-23 点全部存在
type HourlyCounts struct {
	Hours  []int                `json:"hours"`
	Before []int                `json:"before"`
	After  []int                `json:"after"`
	Stats  map[string]HourStats `json:"stats"`
}

// HourlyHistogram counts departures per hour of day and period.
func HourlyHistogram(df dataframe.DataFrame, hourColumn string) (*HourlyCounts, error) {
	if err := requireColumns(df, hourColumn, PeriodColumn); err != nil {
		return nil, err
	}

	out := &HourlyCounts{
		Hours:  make([]int, HoursPerDay),
		Before: make([]int, HoursPerDay),
		After:  make([]int, HoursPerDay),
		Stats:  make(map[string]HourStats, len(Periods)),
	}
	for h := range out.Hours {
		out.Hours[h] = h
	}

	hists := map[string]*histogram.Histogram{
		Before: {NumBuckets: HoursPerDay, ValMin: 0, ValMax: HoursPerDay},
		After:  {NumBuckets: HoursPerDay, ValMin: 0, ValMax: HoursPerDay},
	}

	hours, periods := df.Col(hourColumn), df.Col(PeriodColumn)
	for i := 0; i < df.Nrow(); i++ {
		e := hours.Elem(i)
		if e.IsNA() {
			continue
		}
		h, err := e.Int()
		if err != nil {
			return nil, fmt.Errorf("row %d: hour %q: %w", i+1, e.String(), err)
		}
		if h < 0 || h >= HoursPerDay {
			return nil, fmt.Errorf("row %d: hour %d out of range", i+1, h)
		}

		p := periods.Elem(i).String()
		switch p {
		case Before:
			out.Before[h]++
		case After:
			out.After[h]++
		default:
			continue
		}
		hists[p].Add(histogram.ScalarVal(h))
	}

	for _, p := range Periods {
		st := HourStats{}
		if s, valid := hists[p].Stats(); valid {
			st = HourStats{
				N:      int(s.N),
				Mean:   float64(s.Mean),
				Stddev: float64(s.Stddev),
				Median: float64(s.Percentile50),
			}
		}
		out.Stats[p] = st
	}
	return out, nil
}
