package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Section is one heading of a PDF report with optional narrative, table and image.
type Section struct {
	Heading string
	Text    string
	Table   *Table
	Image   []byte // PNG
	Err     error  // 图表生成失败时打印错误信息
}

// Report PDF 报告
type Report struct {
	Title    string
	Intro    string
	Sections []Section
}

const (
	lineHeight = 5.0
	maxRows    = 40
)

// WritePDF renders the report on A4 pages. Tables longer than maxRows are cut
// with a note.
func WritePDF(w io.Writer, rep Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(rep.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(rep.Title), "", 1, "L", false, 0, "")
	if rep.Intro != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(rep.Intro), "", "L", false)
	}

	for i, s := range rep.Sections {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(s.Heading), "", 1, "L", false, 0, "")
		if s.Text != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, lineHeight, tr(s.Text), "", "L", false)
		}
		if s.Err != nil {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(0xc0, 0x00, 0x00)
			pdf.MultiCell(0, lineHeight, tr("Chart unavailable: "+s.Err.Error()), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			continue
		}
		if len(s.Image) > 0 {
			drawImage(pdf, fmt.Sprintf("chart%d", i), s.Image)
		}
		if s.Table != nil {
			drawTable(pdf, tr, s.Table)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawImage(pdf *gofpdf.Fpdf, name string, png []byte) {
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	if info == nil {
		return
	}

	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	width := pageW - left - right
	height := width * info.Height() / info.Width()
	if pdf.GetY()+height > pageH-bottom {
		pdf.AddPage()
	}
	pdf.ImageOptions(name, left, pdf.GetY()+2, width, height, true, opts, 0, "")
}

func drawTable(pdf *gofpdf.Fpdf, tr func(string) string, t *Table) {
	if len(t.Columns) == 0 {
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(t.Columns))

	fontSize := 9.0
	if len(t.Columns) > 6 {
		fontSize = 7
	}

	pdf.SetFont("Helvetica", "B", fontSize)
	pdf.SetFillColor(0xe8, 0xe8, 0xe8)
	for _, c := range t.Columns {
		pdf.CellFormat(colW, 6, fit(pdf, tr(c), colW), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", fontSize)
	for r, row := range t.Rows {
		if r == maxRows {
			pdf.SetFont("Helvetica", "I", fontSize)
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d more rows in the workbook export", len(t.Rows)-maxRows), "", 1, "L", false, 0, "")
			break
		}
		for _, v := range row {
			pdf.CellFormat(colW, 5, fit(pdf, tr(cellText(v)), colW), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fit 截断超出单元格宽度的文本
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"..") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + ".."
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.2f", x)
	case *float64:
		if x == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *x)
	}
	return fmt.Sprint(v)
}
