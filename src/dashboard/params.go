package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"FlightsDashboard/src/config"
	"FlightsDashboard/src/processor"
)

// ErrBadParam marks an invalid widget value; handlers answer 400.
var ErrBadParam = errors.New("invalid parameter")

const defaultDimension = "continent"

// Params is the widget state of one request.
type Params struct {
	Dimension   string
	Top         int
	Log         bool
	Granularity processor.Granularity
	N           int
}

// DefaultParams 页面初始状态
func DefaultParams(dcfg *config.DataConfig) Params {
	return Params{
		Dimension:   defaultDimension,
		Granularity: processor.Daily,
		N:           dcfg.DefaultTopN,
	}
}

// ParseParams reads the widget state from the query string and validates it.
func ParseParams(r *http.Request, dcfg *config.DataConfig) (Params, error) {
	p := DefaultParams(dcfg)

	if v := r.FormValue(WidgetDimension); v != "" {
		if _, ok := dcfg.DimensionColumn(v); !ok {
			return p, fmt.Errorf("%w: unknown dimension %q", ErrBadParam, v)
		}
		p.Dimension = v
	}

	var err error
	if p.Top, err = formInt(r, WidgetTop, 0, 0, dcfg.MaxTopN); err != nil {
		return p, err
	}
	if p.N, err = formInt(r, WidgetN, dcfg.DefaultTopN, 1, dcfg.MaxTopN); err != nil {
		return p, err
	}
	if p.Log, err = formCheckbox(r, WidgetLog); err != nil {
		return p, err
	}

	g, err := processor.ParseGranularity(r.FormValue(WidgetGranularity))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	p.Granularity = g
	return p, nil
}

// formInt 读取整数控件; 缺省时取 dflt, 存在时必须落在 [lo, hi]
func formInt(r *http.Request, name string, dflt, lo, hi int) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return dflt, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return dflt, fmt.Errorf("%w: %s=%q is not a number", ErrBadParam, name, v)
	}
	if n < lo || n > hi {
		return dflt, fmt.Errorf("%w: %s must be between %d and %d", ErrBadParam, name, lo, hi)
	}
	return n, nil
}

// formCheckbox accepts "on" as sent by an HTML checkbox and every strconv.ParseBool value.
func formCheckbox(r *http.Request, name string) (bool, error) {
	v := r.FormValue(name)
	switch v {
	case "":
		return false, nil
	case "on":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrBadParam, name, v)
	}
	return b, nil
}

// Query encodes the non-default widget values.
func (p Params) Query(dcfg *config.DataConfig) url.Values {
	v := url.Values{}
	if p.Dimension != defaultDimension {
		v.Set(WidgetDimension, p.Dimension)
	}
	if p.Top > 0 {
		v.Set(WidgetTop, strconv.Itoa(p.Top))
	}
	if p.Log {
		v.Set(WidgetLog, "1")
	}
	if p.Granularity != processor.Daily {
		v.Set(WidgetGranularity, string(p.Granularity))
	}
	if p.N != dcfg.DefaultTopN {
		v.Set(WidgetN, strconv.Itoa(p.N))
	}
	return v
}
