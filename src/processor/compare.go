// compare.go
package processor

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ComparisonRow 长表: 每个 (维度值, 时段) 一行
type ComparisonRow struct {
	Value  string `json:"value"`
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// WideRow 宽表: 每个维度值一行, Before/After 两列
type WideRow struct {
	Value     string   `json:"value"`
	Before    int      `json:"before"`
	After     int      `json:"after"`
	Total     int      `json:"total"`
	ChangePct *float64 `json:"change_pct,omitempty"` // Before 为 0 时缺省
}

// Comparison is the result of a grouped before/after count.
type Comparison struct {
	Column string          `json:"column"`
	Long   []ComparisonRow `json:"long"`
	Wide   []WideRow       `json:"wide"`
}

// Difference is Before minus After for one dimension value.
type Difference struct {
	Value      string `json:"value"`
	Before     int    `json:"before"`
	After      int    `json:"after"`
	Difference int    `json:"difference"`
}

// Compare counts rows per (column value, period). Values present in only one period
// get a zero for the other. Rows are ordered by value ascending, numbers first; with
// topN > 0 they are ranked by Before+After descending and cut to topN, equal totals
// keeping the value order.
func Compare(df dataframe.DataFrame, column string, topN int) (*Comparison, error) {
	wide, err := countByPeriod(df, column)
	if err != nil {
		return nil, err
	}

	if topN > 0 {
		sort.SliceStable(wide, func(i, j int) bool {
			return wide[i].Total > wide[j].Total
		})
		if len(wide) > topN {
			wide = wide[:topN]
		}
	}

	result := &Comparison{
		Column: column,
		Long:   make([]ComparisonRow, 0, 2*len(wide)),
		Wide:   wide,
	}
	for _, w := range wide {
		result.Long = append(result.Long,
			ComparisonRow{Value: w.Value, Period: Before, Count: w.Before},
			ComparisonRow{Value: w.Value, Period: After, Count: w.After},
		)
	}
	return result, nil
}

// LargestDecreases sorts the values by Before-After ascending and keeps the last n,
// which are the largest drops. n <= 0 keeps every value.
func LargestDecreases(df dataframe.DataFrame, column string, n int) ([]Difference, error) {
	wide, err := countByPeriod(df, column)
	if err != nil {
		return nil, err
	}

	diffs := make([]Difference, 0, len(wide))
	for _, w := range wide {
		diffs = append(diffs, Difference{
			Value:      w.Value,
			Before:     w.Before,
			After:      w.After,
			Difference: w.Before - w.After,
		})
	}
	sort.SliceStable(diffs, func(i, j int) bool {
		return diffs[i].Difference < diffs[j].Difference
	})

	if n > 0 && len(diffs) > n {
		diffs = diffs[len(diffs)-n:]
	}
	return diffs, nil
}

// countByPeriod 按 (维度, 时段) 分组计数并透视为宽表
func countByPeriod(df dataframe.DataFrame, column string) ([]WideRow, error) {
	if err := requireColumns(df, column, PeriodColumn); err != nil {
		return nil, err
	}
	if df.Nrow() == 0 {
		return []WideRow{}, nil
	}

	// 去掉维度值缺失的行
	present := df.Filter(dataframe.F{
		Colname:    column,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return !el.IsNA()
		},
	})
	if present.Err != nil {
		return nil, fmt.Errorf("filter %s: %w", column, present.Err)
	}
	if present.Nrow() == 0 {
		return []WideRow{}, nil
	}

	keys := []string{column, PeriodColumn}
	if column == PeriodColumn {
		keys = keys[:1]
	}
	groups := present.Select(keys).GroupBy(keys...)
	if groups.Err != nil {
		return nil, fmt.Errorf("group by %s: %w", column, groups.Err)
	}

	byValue := make(map[string]*WideRow)
	for _, g := range groups.GetGroups() {
		if g.Nrow() == 0 {
			continue
		}
		value := g.Col(column).Elem(0).String()
		row, ok := byValue[value]
		if !ok {
			row = &WideRow{Value: value}
			byValue[value] = row
		}
		switch g.Col(PeriodColumn).Elem(0).String() {
		case Before:
			row.Before += g.Nrow()
		case After:
			row.After += g.Nrow()
		}
	}

	wide := make([]WideRow, 0, len(byValue))
	for _, row := range byValue {
		row.Total = row.Before + row.After
		if row.Before > 0 {
			pct := float64(row.After-row.Before) / float64(row.Before) * 100
			row.ChangePct = &pct
		}
		wide = append(wide, *row)
	}
	sort.Slice(wide, func(i, j int) bool {
		return lessValue(wide[i].Value, wide[j].Value)
	})
	return wide, nil
}

// lessValue orders numbers numerically before any text, text lexically.
func lessValue(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
