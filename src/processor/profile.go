// profile.go
package processor

import (
	"strconv"
	"strings"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"FlightsDashboard/src/dataset"
	"FlightsDashboard/src/utils"
)

// ProfileOptions 列概览选项
type ProfileOptions struct {
	TimestampColumn string
	NonNumeric      []string
}

// ColumnProfile is one row of the overview table.
type ColumnProfile struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Distinct    int     `json:"distinct"`
	Missing     int     `json:"missing"`
	MissingPct  string  `json:"missing_pct"`
	MissingFrac float64 `json:"-"`
	Min         string  `json:"min"`
	Max         string  `json:"max"`
	Mean        string  `json:"mean"`
}

// numericStats is the tagged result of a numeric coercion attempt.
type numericStats struct {
	ok             bool
	min, max, mean float64
}

// ProfileColumns summarizes every flight column in table order.
func ProfileColumns(ds *dataset.Dataset, opts ProfileOptions) []ColumnProfile {
	df := ds.Flights
	total := df.Nrow()
	profiles := make([]ColumnProfile, 0, df.Ncol())

	for _, name := range df.Names() {
		col := df.Col(name)
		p := ColumnProfile{
			Name:        name,
			Label:       ds.Descriptors.Label(name),
			Description: ds.Descriptors.Description(name),
			Type:        string(col.Type()),
			Min:         dataset.NotAvailable,
			Max:         dataset.NotAvailable,
			Mean:        dataset.NotAvailable,
		}
		if name == opts.TimestampColumn {
			p.Type = "datetime"
		}

		distinct := make(map[string]struct{})
		for i := 0; i < col.Len(); i++ {
			e := col.Elem(i)
			if e.IsNA() {
				p.Missing++
				continue
			}
			distinct[e.String()] = struct{}{}
		}
		p.Distinct = len(distinct)
		if total > 0 {
			p.MissingFrac = float64(p.Missing) / float64(total)
		}
		p.MissingPct = FormatPercent(p.MissingFrac * 100)

		if name != opts.TimestampColumn && !utils.Contains(opts.NonNumeric, name) {
			if st := columnStats(col); st.ok {
				p.Min = FormatNumber(st.min)
				p.Max = FormatNumber(st.max)
				p.Mean = FormatNumber(st.mean)
			}
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// columnStats 数值统计; 任一非缺失值无法解析为数字则不适用
func columnStats(col series.Series) numericStats {
	values := make([]float64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			continue
		}
		switch col.Type() {
		case series.Int, series.Float:
			values = append(values, e.Float())
		case series.Bool:
			b, err := e.Bool()
			if err != nil {
				return numericStats{}
			}
			if b {
				values = append(values, 1)
			} else {
				values = append(values, 0)
			}
		default:
			v, err := strconv.ParseFloat(strings.TrimSpace(e.String()), 64)
			if err != nil {
				return numericStats{}
			}
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return numericStats{}
	}
	return numericStats{
		ok:   true,
		min:  floats.Min(values),
		max:  floats.Max(values),
		mean: stat.Mean(values, nil),
	}
}
