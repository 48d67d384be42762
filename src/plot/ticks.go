package plot

import (
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"FlightsDashboard/src/processor"
)

func log10p1(v float64) float64 {
	return math.Log10(1 + v)
}

// logTicks labels the log10(1+n) axis with raw counts 0, 1, 10, 100 ... up to the
// first power of ten not below maxCount.
func logTicks(maxCount int) []chart.Tick {
	ticks := []chart.Tick{{Value: 0, Label: "0"}}
	for n := 1; ; n *= 10 {
		ticks = append(ticks, chart.Tick{Value: log10p1(float64(n)), Label: processor.FormatCount(n)})
		if n >= maxCount {
			break
		}
	}
	return ticks
}
