package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"FlightsDashboard/src/config"
	"FlightsDashboard/src/dataset"
	"FlightsDashboard/src/datasource/file"
	"FlightsDashboard/src/processor"
	"FlightsDashboard/src/storage"
)

const testFlights = `departure_time,departure_time_hour,departure_time_day,continent,country_name,municipality,airportName,latitude_deg,longitude_deg,before_7_10_2023,after_7_10_2023
2023-09-30 06:10:00,6,30,EU,Greece,Athens,Athens International Airport,37.9364,23.9445,1,0
2023-10-01 07:20:00,7,1,EU,Greece,Athens,Athens International Airport,37.9364,23.9445,1,0
2023-10-02 08:30:00,8,2,EU,Italy,Rome,Leonardo da Vinci Airport,41.8003,12.2389,1,0
2023-10-03 09:40:00,9,3,EU,France,Paris,Charles de Gaulle Airport,49.0097,2.5478,1,0
2023-10-05 22:00:00,22,5,AS,Cyprus,Larnaca,Larnaca International Airport,34.8751,33.6249,1,0
2023-10-07 00:15:00,0,7,EU,Greece,Athens,Athens International Airport,37.9364,23.9445,0,1
2023-10-09 13:00:00,13,9,AS,Cyprus,Larnaca,Larnaca International Airport,34.8751,33.6249,0,1
2023-10-12 18:45:00,18,12,NA,United States,,John F Kennedy International Airport,NA,NA,0,1
`

const testColumns = `column,description,label
departure_time,Scheduled departure,Departure time
departure_time_hour,Hour of departure,Hour
departure_time_day,Day of month of departure,Day
continent,Destination continent,Continent
country_name,Destination country,Country
municipality,Destination city,City
airportName,Destination airport,Airport
latitude_deg,Destination latitude,Latitude
longitude_deg,Destination longitude,Longitude
before_7_10_2023,Departed before the event,Before
after_7_10_2023,Departed on or after the event,After
`

func init() {
	HandleChart(ChartEntry{Name: "test_panics", Order: 900, Title: "Panics",
		Build: func(env *Env, p Params) (*Result, error) {
			var rows []int
			return &Result{Data: rows[3]}, nil
		}})
	HandleChart(ChartEntry{Name: "test_missing_column", Order: 901, Title: "Missing column",
		Build: func(env *Env, p Params) (*Result, error) {
			c, err := processor.Compare(env.Flights, "gate", 0)
			if err != nil {
				return nil, err
			}
			return &Result{Data: c}, nil
		}})
}

func testDataConfig() *config.DataConfig {
	strict := true
	dc := &config.DataConfig{
		EventDate:       "2023-10-07",
		TimestampColumn: "departure_time",
		Dimensions: map[string]string{
			"hour":         "departure_time_hour",
			"day":          "departure_time_day",
			"continent":    "continent",
			"country":      "country_name",
			"municipality": "municipality",
		},
		BeforeIndicator:   "before_7_10_2023",
		AfterIndicator:    "after_7_10_2023",
		AirportColumn:     "airportName",
		LatitudeColumn:    "latitude_deg",
		LongitudeColumn:   "longitude_deg",
		CityColumn:        "municipality",
		HourColumn:        "departure_time_hour",
		DefaultTopN:       15,
		MaxTopN:           30,
		DescriptorCharset: "iso-8859-1",
		StrictDescriptors: &strict,
	}
	dc.Home.Name = "Ben Gurion International Airport"
	dc.Home.Lat, dc.Home.Long = 32.0114, 34.8867
	return dc
}

type testServer struct {
	*Server
	http *httptest.Server
	dir  string
}

func newTestServer(t *testing.T, flights string) *testServer {
	t.Helper()
	dir := t.TempDir()
	if flights != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte(flights), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "columns.csv"), []byte(testColumns), 0644))

	cfg := &config.Config{DataDir: dir, FlightsFile: "data.csv", DescriptorFile: "columns.csv"}
	dcfg := testDataConfig()

	logger, err := storage.NewLogger(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	logger.SetConsole(io.Discard)
	t.Cleanup(func() { logger.Close() })

	opts := file.Options{TimestampColumn: dcfg.TimestampColumn, Charset: dcfg.DescriptorCharset, Strict: dcfg.Strict()}
	cache := file.NewDatasetCache(func() (*dataset.Dataset, error) {
		return file.LoadDataset(cfg.FlightsPath(), cfg.DescriptorPath(), opts)
	}, cfg.FlightsPath(), cfg.DescriptorPath())

	pages, err := config.ParsePages(DefaultPages)
	require.NoError(t, err)

	s, err := NewServer(cfg, dcfg, cache, logger, pages)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: s, http: ts, dir: dir}
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestEveryPageChartBuilds(t *testing.T) {
	ts := newTestServer(t, testFlights)

	for _, e := range ListCharts() {
		if e.Order >= 900 {
			continue
		}
		t.Run(e.Name, func(t *testing.T) {
			resp, body := ts.get(t, "/api/charts/"+e.Name)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var out struct {
				Name  string          `json:"name"`
				Title string          `json:"title"`
				Data  json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, e.Name, out.Name)
			assert.NotEmpty(t, out.Title)
			assert.NotEqual(t, "null", string(out.Data))
		})
	}
}

func TestDistributionByDimension(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/api/charts/distribution?dimension=country&top=2")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Title string `json:"title"`
		Data  struct {
			Column string
			Wide   []processor.WideRow
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Distribution of flights by Country", out.Title)
	assert.Equal(t, "country_name", out.Data.Column)
	require.Len(t, out.Data.Wide, 2)
	assert.Equal(t, "Greece", out.Data.Wide[0].Value)
	assert.Equal(t, 3, out.Data.Wide[0].Before+out.Data.Wide[0].After)
}

func TestCityDecreaseRespectsN(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/api/charts/city_decrease?n=2")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Title string                 `json:"title"`
		Data  []processor.Difference `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Top 2 City by decrease in flights", out.Title)
	assert.Len(t, out.Data, 2)
}

func TestBadParams(t *testing.T) {
	ts := newTestServer(t, testFlights)

	for _, q := range []string{
		"/api/charts/city_decrease?n=0",
		"/api/charts/city_decrease?n=abc",
		"/api/charts/city_decrease?n=31",
		"/api/charts/distribution?top=-1",
		"/api/charts/distribution?dimension=gate",
		"/api/charts/timeline?granularity=week",
		"/api/charts/hourly?log=maybe",
	} {
		resp, body := ts.get(t, q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Contains(t, string(body), "invalid parameter", q)
	}
}

func TestUnknownChart(t *testing.T) {
	ts := newTestServer(t, testFlights)
	resp, _ := ts.get(t, "/api/charts/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChartFailureIsIsolated(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/api/charts/test_panics")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "chart test_panics failed")

	resp, _ = ts.get(t, "/api/charts/test_missing_column")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// 其他图表不受影响
	resp, _ = ts.get(t, "/api/charts/summary")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	log, err := os.ReadFile(filepath.Join(ts.dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "chart test_panics")
}

func TestChartImage(t *testing.T) {
	ts := newTestServer(t, testFlights)

	for _, q := range []string{
		"/api/charts/distribution/image",
		"/api/charts/hourly/image?log=1",
		"/api/charts/timeline/image?granularity=month",
		"/api/charts/city_decrease/image",
		"/api/charts/destinations/image",
	} {
		resp, body := ts.get(t, q)
		require.Equal(t, http.StatusOK, resp.StatusCode, q)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")), q)
	}

	// 无图的图表
	resp, _ := ts.get(t, "/api/charts/overview/image")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestChartExport(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/api/charts/distribution/export?dimension=continent")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "distribution.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"distribution", "distribution_long"}, f.GetSheetList())

	rows, err := f.GetRows("distribution")
	require.NoError(t, err)
	assert.Equal(t, []string{"Continent", "Before", "After", "Total", "Change"}, rows[0])
	assert.Equal(t, "AS", rows[1][0])
}

func TestReportPDF(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/api/report")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	rep, tables := ts.Report(DefaultParams(ts.dcfg))
	assert.Len(t, rep.Sections, len(ts.pages.Sections))
	assert.NotEmpty(t, tables)
	for _, sec := range rep.Sections {
		assert.NoError(t, sec.Err, sec.Heading)
	}
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/?dimension=country&top=3&log=1&n=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(body)

	assert.Contains(t, page, "Before and after in numbers")
	assert.Contains(t, page, "Distribution of flights by Country")
	assert.Contains(t, page, `<option value="country" selected>Country</option>`)
	assert.Contains(t, page, "/api/charts/hourly/image?")
	assert.Contains(t, page, "Greece")
	assert.NotContains(t, page, `class="error"`)

	resp, _ = ts.get(t, "/?n=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDatasetUnavailable(t *testing.T) {
	ts := newTestServer(t, "")

	resp, _ := ts.get(t, "/api/charts/summary")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = ts.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := ts.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Dataset unavailable")
}

func TestDataChart(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/api/charts/data")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Title string     `json:"title"`
		Data  FlightRows `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Flights (8 rows)", out.Title)
	assert.Equal(t, 8, out.Data.Total)
	assert.Len(t, out.Data.Rows, 8)
	assert.Contains(t, out.Data.Columns, processor.PeriodColumn)

	resp, body = ts.get(t, "/api/charts/data/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("flights")
	require.NoError(t, err)
	assert.Len(t, rows, 9)
	assert.Equal(t, "2023-09-30 06:10:00", rows[1][0])

	_, body = ts.get(t, "/")
	assert.Contains(t, string(body), `<section id="data">`)
}

func TestHeaderOnlyDataset(t *testing.T) {
	header := testFlights[:strings.Index(testFlights, "\n")+1]
	ts := newTestServer(t, header)

	for _, e := range ListCharts() {
		if e.Order >= 900 {
			continue
		}
		resp, body := ts.get(t, "/api/charts/"+e.Name)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "%s: %s", e.Name, body)
	}

	resp, _ := ts.get(t, "/api/charts/timeline/image")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := ts.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(body), `class="error"`)
}

func TestFailedReloadKeepsServing(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, _ := ts.get(t, "/api/charts/summary")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 文件复制到一半
	path := filepath.Join(ts.dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(testFlights[:200]), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	resp, body := ts.get(t, "/api/charts/summary")
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "stale", health["status"])
	assert.EqualValues(t, 8, health["rows"])
	assert.Contains(t, health["reload_error"], "load dataset")

	log, err := os.ReadFile(filepath.Join(ts.dir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(log), "reload failed"))
}

func TestReloadPicksUpNewData(t *testing.T) {
	ts := newTestServer(t, testFlights)

	resp, body := ts.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 8, health["rows"])

	extra := testFlights + "2023-10-13 10:00:00,10,13,EU,Italy,Rome,Leonardo da Vinci Airport,41.8003,12.2389,0,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "data.csv"), []byte(extra), 0644))

	resp, err := http.Post(ts.http.URL+"/api/reload", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.EqualValues(t, 9, out["rows"])
}

func TestChartListAndColumns(t *testing.T) {
	ts := newTestServer(t, testFlights)

	_, body := ts.get(t, "/api/charts")
	var charts []chartInfo
	require.NoError(t, json.Unmarshal(body, &charts))
	require.NotEmpty(t, charts)
	assert.Equal(t, "overview", charts[0].Name)

	var names []string
	for _, c := range charts {
		names = append(names, c.Name)
	}
	for _, sec := range ts.pages.Sections {
		assert.Contains(t, names, sec.Chart)
	}

	resp, body := ts.get(t, "/api/columns")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Destination city")
}

func TestNewServerRejectsUnknownPageChart(t *testing.T) {
	pages := &config.Pages{Sections: []config.Section{{Chart: "nope"}}}
	_, err := NewServer(&config.Config{}, testDataConfig(), nil, nil, pages)
	assert.EqualError(t, err, fmt.Sprintf("pages: unknown chart %q", "nope"))
}
