package processor

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlightsDashboard/src/dataset"
)

func profileDataset(t *testing.T, cols ...series.Series) *dataset.Dataset {
	t.Helper()
	df := dataframe.New(cols...)
	require.NoError(t, df.Err)
	descs, err := dataset.NewDescriptors([]dataset.Descriptor{
		{Name: "value", Description: "A number", Label: "Value"},
	})
	require.NoError(t, err)
	return &dataset.Dataset{Flights: df, Descriptors: descs}
}

func byName(profiles []ColumnProfile) map[string]ColumnProfile {
	out := map[string]ColumnProfile{}
	for _, p := range profiles {
		out[p.Name] = p
	}
	return out
}

func TestProfileNumericColumn(t *testing.T) {
	ds := profileDataset(t,
		series.New([]int{1, 2, 3, 4}, series.Int, "value"),
		series.New([]string{"2023-10-01 00:00:00", "2023-10-02 00:00:00", "2023-10-03 00:00:00", "2023-10-04 00:00:00"}, series.String, "departure_time"),
		series.New([]string{"a", "b", "a", "NaN"}, series.String, "name"),
		series.New([]string{"1", "2", "3", "1234"}, series.String, "code"),
		series.New([]int{7, 7, 8, 8}, series.Int, "flagged"),
	)
	p := byName(ProfileColumns(ds, ProfileOptions{TimestampColumn: "departure_time", NonNumeric: []string{"flagged"}}))

	v := p["value"]
	assert.Equal(t, "int", v.Type)
	assert.Equal(t, "Value", v.Label)
	assert.Equal(t, "A number", v.Description)
	assert.Equal(t, "1.00", v.Min)
	assert.Equal(t, "4.00", v.Max)
	assert.Equal(t, "2.50", v.Mean)
	assert.Equal(t, 4, v.Distinct)
	assert.Equal(t, "0.0%", v.MissingPct)

	ts := p["departure_time"]
	assert.Equal(t, "datetime", ts.Type)
	assert.Equal(t, dataset.NotAvailable, ts.Min)
	assert.Equal(t, dataset.NotAvailable, ts.Description)
	assert.Equal(t, "departure_time", ts.Label)

	name := p["name"]
	assert.Equal(t, "string", name.Type)
	assert.Equal(t, 2, name.Distinct)
	assert.Equal(t, 1, name.Missing)
	assert.Equal(t, "25.0%", name.MissingPct)
	assert.Equal(t, dataset.NotAvailable, name.Mean)

	code := p["code"]
	assert.Equal(t, "1,234.00", code.Max)
	assert.Equal(t, "310.00", code.Mean)

	assert.Equal(t, dataset.NotAvailable, p["flagged"].Max)
}

func TestProfileMissingPercentage(t *testing.T) {
	values := []string{"1", "2", "3", "4", "5", "6", "7", "8", "NaN", "NaN"}
	ds := profileDataset(t, series.New(values, series.Float, "value"))
	p := ProfileColumns(ds, ProfileOptions{})[0]

	assert.Equal(t, 2, p.Missing)
	assert.Equal(t, "20.0%", p.MissingPct)

	pct, err := strconv.ParseFloat(strings.TrimSuffix(p.MissingPct, "%"), 64)
	require.NoError(t, err)
	assert.Equal(t, p.Missing, int(math.Round(pct/100*10)))
	assert.Equal(t, "4.50", p.Mean)
}

func TestProfileAllMissingAndEmpty(t *testing.T) {
	ds := profileDataset(t, series.New([]string{"NaN", "NaN"}, series.Float, "value"))
	p := ProfileColumns(ds, ProfileOptions{})[0]
	assert.Equal(t, "100.0%", p.MissingPct)
	assert.Equal(t, dataset.NotAvailable, p.Min)

	empty := profileDataset(t, series.New([]int{}, series.Int, "value"))
	p = ProfileColumns(empty, ProfileOptions{})[0]
	assert.Equal(t, 0, p.Missing)
	assert.Equal(t, "0.0%", p.MissingPct)
	assert.Equal(t, dataset.NotAvailable, p.Mean)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,234.00", FormatNumber(1234))
	assert.Equal(t, "1,234,567.89", FormatNumber(1234567.891))
	assert.Equal(t, "12,345", FormatCount(12345))
	assert.Equal(t, "20.0%", FormatPercent(20))
	assert.Equal(t, "N/A", FormatChange(nil))
	v := -12.34
	assert.Equal(t, "-12.3%", FormatChange(&v))
}
