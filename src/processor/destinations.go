// destinations.go
package processor

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/skypies/geo"
)

// DestinationOptions 目的地列及出发机场
type DestinationOptions struct {
	AirportColumn   string
	LatitudeColumn  string
	LongitudeColumn string
	Home            geo.Latlong
}

// Destination is one airport with its per-period departures.
type Destination struct {
	Airport     string  `json:"airport"`
	Lat         float64 `json:"lat"`
	Long        float64 `json:"long"`
	HasLocation bool    `json:"has_location"`
	Before      int     `json:"before"`
	After       int     `json:"after"`
	DistanceKM  float64 `json:"distance_km"`
}

// Total 两个时段合计
func (d Destination) Total() int { return d.Before + d.After }

// Bounds 所有目的地的外接矩形
type Bounds struct {
	South    float64 `json:"south"`
	West     float64 `json:"west"`
	North    float64 `json:"north"`
	East     float64 `json:"east"`
	WidthKM  float64 `json:"width_km"`
	HeightKM float64 `json:"height_km"`
}

// DestinationSet is the destinations chart data.
type DestinationSet struct {
	Home         geo.Latlong   `json:"home"`
	Destinations []Destination `json:"destinations"`
	Bounds       *Bounds       `json:"bounds,omitempty"`
}

// Destinations groups departures by airport name. The first located row of an
// airport gives its coordinates. Destinations are ordered by total descending, then
// airport name.
func Destinations(df dataframe.DataFrame, opts DestinationOptions) (*DestinationSet, error) {
	if err := requireColumns(df, opts.AirportColumn, opts.LatitudeColumn, opts.LongitudeColumn, PeriodColumn); err != nil {
		return nil, err
	}

	airports, lats, longs, periods := df.Col(opts.AirportColumn), df.Col(opts.LatitudeColumn),
		df.Col(opts.LongitudeColumn), df.Col(PeriodColumn)

	byName := make(map[string]*Destination)
	for i := 0; i < df.Nrow(); i++ {
		a := airports.Elem(i)
		if a.IsNA() {
			continue
		}
		d, ok := byName[a.String()]
		if !ok {
			d = &Destination{Airport: a.String()}
			byName[a.String()] = d
		}
		if !d.HasLocation {
			if lat, long, ok := location(lats.Elem(i), longs.Elem(i)); ok {
				d.Lat, d.Long, d.HasLocation = lat, long, true
			}
		}
		switch periods.Elem(i).String() {
		case Before:
			d.Before++
		case After:
			d.After++
		}
	}

	set := &DestinationSet{Home: opts.Home, Destinations: make([]Destination, 0, len(byName))}
	var box *geo.LatlongBox
	for _, d := range byName {
		if d.HasLocation {
			pos := geo.Latlong{Lat: d.Lat, Long: d.Long}
			d.DistanceKM = opts.Home.DistKM(pos)
			if box == nil {
				b := pos.BoxTo(pos)
				box = &b
			}
			box.Enclose(pos)
		}
		set.Destinations = append(set.Destinations, *d)
	}
	sort.Slice(set.Destinations, func(i, j int) bool {
		a, b := set.Destinations[i], set.Destinations[j]
		if a.Total() != b.Total() {
			return a.Total() > b.Total()
		}
		return a.Airport < b.Airport
	})

	if box != nil {
		set.Bounds = &Bounds{
			South:    box.SW.Lat,
			West:     box.SW.Long,
			North:    box.NE.Lat,
			East:     box.NE.Long,
			WidthKM:  box.NW().DistKM(box.NE),
			HeightKM: box.NW().DistKM(box.SW),
		}
	}
	return set, nil
}

func location(lat, long series.Element) (float64, float64, bool) {
	if lat.IsNA() || long.IsNA() {
		return 0, 0, false
	}
	la, lo := lat.Float(), long.Float()
	if math.IsNaN(la) || math.IsNaN(lo) || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return 0, 0, false
	}
	return la, lo, true
}
