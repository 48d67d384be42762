package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// TimeLayout 统一的时间格式
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{
	TimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01-02-2006 15:04:05",
	"01/02/2006 15:04:05",
}

var excelSerial = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ParseTime tries every accepted layout; the wall clock of the input is kept.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseElementTime 解析 series 元素, NA 返回零值
func ParseElementTime(e series.Element) (time.Time, error) {
	if e.IsNA() || e.String() == "" {
		return time.Time{}, nil
	}
	return ParseTime(e.String())
}

// ExcelToTime converts an Excel serial day number (1900 date system) to a time.
func ExcelToTime(s string) (time.Time, bool) {
	if !excelSerial.MatchString(s) {
		return time.Time{}, false
	}
	excelDays, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}

	// 1900 闰年错误: 60 之前的序号比实际多一天
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if excelDays < 60 {
		excelDays++
	}
	days := int(excelDays)
	fraction := excelDays - float64(days)

	result := base.AddDate(0, 0, days).
		Add(time.Duration(86400*fraction*1e9) * time.Nanosecond).
		Round(time.Second)
	return result, true
}

// Day truncates t to midnight UTC of its own calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Truthy interprets indicator cells such as "1", "True" or "1.0".
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "t", "yes", "y":
		return true
	}
	return false
}
