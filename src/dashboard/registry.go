// Package dashboard serves the flight charts over HTTP, one handler per chart.
package dashboard

import (
	"fmt"
	"sort"

	"FlightsDashboard/src/export"
	"FlightsDashboard/src/plot"
)

// 控件名
const (
	WidgetDimension   = "dimension"
	WidgetTop         = "top"
	WidgetLog         = "log"
	WidgetGranularity = "granularity"
	WidgetN           = "n"
)

// Result is the output of one chart build.
type Result struct {
	Name   string         `json:"name"`
	Title  string         `json:"title"`
	Data   any            `json:"data"`
	Tables []export.Table `json:"-"`
	Figure *plot.Figure   `json:"-"`
}

// BuildFunc computes a chart from the prepared dataset and the widget state.
type BuildFunc func(env *Env, p Params) (*Result, error)

// ChartEntry 图表注册项
type ChartEntry struct {
	Name        string
	Title       string
	Description string
	Order       int      // 页面顺序
	Widgets     []string // 该图表读取的控件
	Build       BuildFunc
}

var chartRegistry = map[string]ChartEntry{}

// HandleChart registers a chart. Registering a name twice panics.
func HandleChart(entry ChartEntry) {
	if entry.Name == "" || entry.Build == nil {
		panic("dashboard: chart needs a name and a build func")
	}
	if _, exists := chartRegistry[entry.Name]; exists {
		panic(fmt.Sprintf("dashboard: chart %q registered twice", entry.Name))
	}
	chartRegistry[entry.Name] = entry
}

// LookupChart 按名称查找图表
func LookupChart(name string) (ChartEntry, bool) {
	e, ok := chartRegistry[name]
	return e, ok
}

// ListCharts returns the registered charts in page order.
func ListCharts() []ChartEntry {
	out := make([]ChartEntry, 0, len(chartRegistry))
	for _, e := range chartRegistry {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}
