package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"

	"FlightsDashboard/src/utils"
)

const flightsCSV = `Unnamed: 0,departure_time,departure_time_hour,country_name,latitude_deg,before_7_10_2023,after_7_10_2023
0,2023-10-01 06:30:00,6,Greece,37.93,1,0
1,2023-10-07T00:10:00,0,Greece,37.93,0,1
2,2023-10-10 23:59:00,23,,NA,0,1
`

const descriptorCSV = `column,description,label
departure_time,Scheduled departure,Departure time
departure_time_hour,Hour of departure,Hour
country_name,Destination country,Country
latitude_deg,Destination latitude,Latitude
before_7_10_2023,Departed before the event,Before
after_7_10_2023,Departed on or after the event,After
`

func testOptions() Options {
	return Options{
		TimestampColumn: "departure_time",
		DropColumns:     []string{"Unnamed: 0", "not_there"},
		Charset:         "iso-8859-1",
		Strict:          true,
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestParseFlightsCSV(t *testing.T) {
	df, err := ParseFlightsCSV(strings.NewReader(flightsCSV), testOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, df.Nrow())
	assert.False(t, utils.HasColumn(df, "Unnamed: 0"))
	assert.Equal(t, []string{"2023-10-01 06:30:00", "2023-10-07 00:10:00", "2023-10-10 23:59:00"},
		df.Col("departure_time").Records())

	assert.True(t, df.Col("country_name").Elem(2).IsNA())
	assert.True(t, df.Col("latitude_deg").Elem(2).IsNA())
	assert.Equal(t, "float", string(df.Col("latitude_deg").Type()))
	assert.Equal(t, "int", string(df.Col("departure_time_hour").Type()))
}

func TestParseFlightsCSVHeaderOnly(t *testing.T) {
	df, err := ParseFlightsCSV(strings.NewReader("Unnamed: 0,departure_time,country_name\n"), testOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"departure_time", "country_name"}, df.Names())

	_, err = ParseFlightsCSV(strings.NewReader(""), testOptions())
	assert.Error(t, err)
}

func TestParseFlightsCSVBadTimestamp(t *testing.T) {
	in := "departure_time,country_name\n2023-10-01 06:30:00,Greece\nsoon,Cyprus\n"
	_, err := ParseFlightsCSV(strings.NewReader(in), testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	_, err = ParseFlightsCSV(strings.NewReader("country_name\nGreece\n"), testOptions())
	assert.Error(t, err)
}

func TestParseDescriptorsLatin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String("name,description,label\nmunicipality,Ville de destination,Municipalité\n")
	require.NoError(t, err)

	d, err := ParseDescriptors(strings.NewReader(raw), "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Municipalité", d.Label("municipality"))
	assert.Equal(t, "Ville de destination", d.Description("municipality"))

	_, err = ParseDescriptors(strings.NewReader("a,b\nx,y\n"), "utf-8")
	assert.Error(t, err)

	_, err = ParseDescriptors(strings.NewReader(raw), "no-such-charset")
	assert.Error(t, err)
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	flights := writeFile(t, dir, "data.csv", flightsCSV)
	columns := writeFile(t, dir, "columns.csv", descriptorCSV)

	ds, err := LoadDataset(flights, columns, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Flights.Nrow())
	assert.Equal(t, "Country", ds.Descriptors.Label("country_name"))
	assert.Len(t, ds.Fingerprint, 32)
	assert.Equal(t, flights, ds.Source)

	fp, err := Fingerprint(flights, columns)
	require.NoError(t, err)
	assert.Equal(t, fp, ds.Fingerprint)
}

func TestLoadDatasetMissingDescriptors(t *testing.T) {
	dir := t.TempDir()
	flights := writeFile(t, dir, "data.csv", flightsCSV)
	columns := writeFile(t, dir, "columns.csv", "column,description,label\ndeparture_time,Departure,Departure\n")

	_, err := LoadDataset(flights, columns, testOptions())
	require.ErrorIs(t, err, ErrMissingDescriptors)
	assert.Contains(t, err.Error(), "country_name")
	assert.Contains(t, err.Error(), "latitude_deg")

	opts := testOptions()
	opts.Strict = false
	ds, err := LoadDataset(flights, columns, opts)
	require.NoError(t, err)
	assert.Equal(t, "country_name", ds.Descriptors.Label("country_name"))
	assert.Equal(t, "N/A", ds.Descriptors.Description("country_name"))
}

func TestReadFlightsXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("flights")
	require.NoError(t, err)
	for _, rec := range [][]string{
		{"departure_time", "country_name"},
		{"2023-10-06 21:00:00", "Cyprus"},
	} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	row := sheet.AddRow()
	row.AddCell().SetFloat(45206.25)
	row.AddCell().SetString("Italy")
	require.NoError(t, f.Save(path))

	opts := testOptions()
	opts.SheetName = "flights"
	df, err := ReadFlights(path, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-10-06 21:00:00", "2023-10-07 06:00:00"}, df.Col("departure_time").Records())
	assert.Equal(t, []string{"Cyprus", "Italy"}, df.Col("country_name").Records())

	opts.SheetName = "other"
	_, err = ReadFlights(path, opts)
	assert.Error(t, err)
}
