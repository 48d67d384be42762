// format.go
package processor

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatNumber 千位分隔, 两位小数: 1234 -> "1,234.00"
func FormatNumber(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatCount formats an integer count with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent 一位小数百分比: 20 -> "20.0%"
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatChange renders a signed percentage change, or N/A when undefined.
func FormatChange(pct *float64) string {
	if pct == nil {
		return "N/A"
	}
	return fmt.Sprintf("%+.1f%%", *pct)
}
