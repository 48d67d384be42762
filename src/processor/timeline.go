// timeline.go
package processor

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"

	"FlightsDashboard/src/utils"
)

// Granularity 时间轴粒度
type Granularity string

const (
	Daily   Granularity = "day"
	Monthly Granularity = "month"
)

// ParseGranularity accepts "day" or "month"; empty means day.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", Daily:
		return Daily, nil
	case Monthly:
		return Monthly, nil
	}
	return "", fmt.Errorf("granularity %q: want day or month", s)
}

func (g Granularity) bucket(t time.Time) time.Time {
	if g == Monthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return utils.Day(t)
}

func (g Granularity) label(t time.Time) string {
	if g == Monthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// TimelinePoint is one day or month bucket.
type TimelinePoint struct {
	Bucket time.Time `json:"bucket"`
	Label  string    `json:"label"`
	Before int       `json:"before"`
	After  int       `json:"after"`
}

// Total 桶内航班总数
func (p TimelinePoint) Total() int { return p.Before + p.After }

// Timeline counts departures per bucket, split by period, buckets ascending.
func Timeline(df dataframe.DataFrame, timestampColumn string, event time.Time, g Granularity) ([]TimelinePoint, error) {
	if err := requireColumns(df, timestampColumn); err != nil {
		return nil, err
	}

	points := make(map[time.Time]*TimelinePoint)
	col := df.Col(timestampColumn)
	for i := 0; i < col.Len(); i++ {
		t, err := utils.ParseElementTime(col.Elem(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if t.IsZero() {
			continue
		}

		b := g.bucket(t)
		p, ok := points[b]
		if !ok {
			p = &TimelinePoint{Bucket: b, Label: g.label(b)}
			points[b] = p
		}
		if ClassifyPeriod(t, event) == Before {
			p.Before++
		} else {
			p.After++
		}
	}

	out := make([]TimelinePoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out, nil
}
