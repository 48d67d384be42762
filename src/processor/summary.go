// summary.go
package processor

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"

	"FlightsDashboard/src/utils"
)

// PeriodSummary 单个时段的汇总
type PeriodSummary struct {
	Period       string    `json:"period"`
	Flights      int       `json:"flights"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
	Days         int       `json:"days"`
	DailyAverage float64   `json:"daily_average"`
}

// Summary compares the two periods as a whole.
type Summary struct {
	Event     time.Time       `json:"event"`
	Total     int             `json:"total"`
	Periods   []PeriodSummary `json:"periods"`
	ChangePct *float64        `json:"change_pct,omitempty"` // 日均航班变化
}

// Summarize totals the flights per period. Days counts the calendar days between
// the first and last departure of the period, inclusive.
func Summarize(df dataframe.DataFrame, timestampColumn string, event time.Time) (*Summary, error) {
	if err := requireColumns(df, timestampColumn); err != nil {
		return nil, err
	}

	byPeriod := map[string]*PeriodSummary{
		Before: {Period: Before},
		After:  {Period: After},
	}
	col := df.Col(timestampColumn)
	total := 0
	for i := 0; i < col.Len(); i++ {
		t, err := utils.ParseElementTime(col.Elem(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if t.IsZero() {
			continue
		}
		total++

		s := byPeriod[ClassifyPeriod(t, event)]
		if s.Flights == 0 || t.Before(s.First) {
			s.First = t
		}
		if s.Flights == 0 || t.After(s.Last) {
			s.Last = t
		}
		s.Flights++
	}

	out := &Summary{Event: utils.Day(event), Total: total}
	for _, p := range Periods {
		s := byPeriod[p]
		if s.Flights > 0 {
			s.Days = int(utils.Day(s.Last).Sub(utils.Day(s.First)).Hours()/24) + 1
			s.DailyAverage = float64(s.Flights) / float64(s.Days)
		}
		out.Periods = append(out.Periods, *s)
	}

	before, after := byPeriod[Before], byPeriod[After]
	if before.DailyAverage > 0 {
		pct := (after.DailyAverage - before.DailyAverage) / before.DailyAverage * 100
		out.ChangePct = &pct
	}
	return out, nil
}
