package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"Athens", "Rome"}, series.String, "municipality"),
		series.New([]int{3, 2}, series.Int, "before"),
	)
	tables := []Table{
		DataFrameTable("city/decrease", df),
		{Name: "summary", Columns: []string{"period", "flights"}, Rows: [][]any{{"Before", 6}, {"After", 4}}},
		{Name: "summary", Columns: []string{"x"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, tables))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"city_decrease", "summary", "summary (2)"}, f.GetSheetList())
	rows, err := f.GetRows("city_decrease")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"municipality", "before"}, {"Athens", "3"}, {"Rome", "2"}}, rows)

	rows, err = f.GetRows("summary")
	require.NoError(t, err)
	assert.Equal(t, "After", rows[2][0])

	assert.Error(t, WriteWorkbook(&buf, nil))
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	long := sheetName("a very long sheet name that exceeds the limit", 0, used)
	assert.Len(t, []rune(long), 31)
	assert.Equal(t, "Sheet2", sheetName("  ", 1, used))
}

func TestWritePDF(t *testing.T) {
	rep := Report{
		Title: "Flights from Israel, before and after 7 October 2023",
		Intro: "Departures per period.",
		Sections: []Section{
			{Heading: "Summary", Text: "Totals.", Table: &Table{
				Columns: []string{"Period", "Flights"},
				Rows:    [][]any{{"Before", 6}, {"After", 4}, {"Café", nil}},
			}},
			{Heading: "Broken", Err: errors.New("missing column: continent")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, rep))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
