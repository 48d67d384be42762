// Package export writes chart results to Excel workbooks and PDF reports.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Table is a named, rectangular result ready to be written out.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// DataFrameTable 将 DataFrame 转为 Table, NA 写为空单元格
func DataFrameTable(name string, df dataframe.DataFrame) Table {
	t := Table{Name: name, Columns: df.Names()}
	cols := make([]series.Series, 0, df.Ncol())
	for _, n := range t.Columns {
		cols = append(cols, df.Col(n))
	}
	for i := 0; i < df.Nrow(); i++ {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = c.Val(i)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteWorkbook writes one sheet per table.
func WriteWorkbook(w io.Writer, tables []Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("write workbook: no tables")
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, t := range tables {
		name := sheetName(t.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}

		// 写入列名
		for c, col := range t.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			if err := f.SetCellValue(name, cell, col); err != nil {
				return err
			}
		}

		// 写入数据
		for r, row := range t.Rows {
			for c, val := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellValue(name, cell, val); err != nil {
					return err
				}
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// sheetName 工作表名最长 31 字符, 不能包含 []:*?/\ 且不能重复
func sheetName(name string, idx int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	base := name
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[name] = true
	return name
}
