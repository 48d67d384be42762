// period.go
package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"FlightsDashboard/src/utils"
)

// PeriodColumn 派生的时段列
const PeriodColumn = "period"

const (
	Before = "Before"
	After  = "After"
)

// Periods in display order.
var Periods = []string{Before, After}

// ErrMissingColumn is returned when an aggregate needs a column the table lacks.
var ErrMissingColumn = errors.New("missing column")

func missingColumn(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, name)
}

func requireColumns(df dataframe.DataFrame, names ...string) error {
	for _, n := range names {
		if !utils.HasColumn(df, n) {
			return missingColumn(n)
		}
	}
	return nil
}

// ClassifyPeriod compares the calendar day of t with the event day. The event day
// itself belongs to After.
func ClassifyPeriod(t, event time.Time) string {
	if utils.Day(t).Before(utils.Day(event)) {
		return Before
	}
	return After
}

// AddPeriod 根据出发时间添加(或替换)时段列
func AddPeriod(df dataframe.DataFrame, timestampColumn string, event time.Time) (dataframe.DataFrame, error) {
	if err := requireColumns(df, timestampColumn); err != nil {
		return df, err
	}

	col := df.Col(timestampColumn)
	labels := make([]string, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			return df, fmt.Errorf("row %d: missing %s", i+1, timestampColumn)
		}
		t, err := utils.ParseTime(e.String())
		if err != nil {
			return df, fmt.Errorf("row %d: %w", i+1, err)
		}
		labels[i] = ClassifyPeriod(t, event)
	}

	out := df.Mutate(series.New(labels, series.String, PeriodColumn))
	if out.Err != nil {
		return df, out.Err
	}
	return out, nil
}

// IndicatorReport 预计算指示列与派生时段的一致性检查结果
type IndicatorReport struct {
	Rows     int `json:"rows"`
	NotOne   int `json:"not_exactly_one"` // 两列同时为真或同时为假
	Disagree int `json:"disagree"`        // 与派生时段不一致
}

// OK reports whether every row passed.
func (r IndicatorReport) OK() bool {
	return r.NotOne == 0 && r.Disagree == 0
}

// CheckIndicators verifies the precomputed before/after indicator columns against
// the derived period column.
func CheckIndicators(df dataframe.DataFrame, beforeColumn, afterColumn string) (IndicatorReport, error) {
	if err := requireColumns(df, beforeColumn, afterColumn, PeriodColumn); err != nil {
		return IndicatorReport{}, err
	}

	before, after, period := df.Col(beforeColumn), df.Col(afterColumn), df.Col(PeriodColumn)
	report := IndicatorReport{Rows: df.Nrow()}
	for i := 0; i < df.Nrow(); i++ {
		b, a := indicator(before.Elem(i)), indicator(after.Elem(i))
		if b == a {
			report.NotOne++
			continue
		}
		if (b && period.Elem(i).String() != Before) || (a && period.Elem(i).String() != After) {
			report.Disagree++
		}
	}
	return report, nil
}

func indicator(e series.Element) bool {
	if e.IsNA() {
		return false
	}
	switch e.Type() {
	case series.Int, series.Float:
		return e.Float() != 0
	case series.Bool:
		b, err := e.Bool()
		return err == nil && b
	}
	return utils.Truthy(e.String())
}
