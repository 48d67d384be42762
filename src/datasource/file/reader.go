// reader.go
package file

import (
	"bytes"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"FlightsDashboard/src/dataset"
	"FlightsDashboard/src/utils"
)

// ErrMissingDescriptors is returned in strict mode when a flight column has no
// descriptor row.
var ErrMissingDescriptors = errors.New("columns without descriptor")

// 缺失值的文本表示
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>"}

// Options 读取选项
type Options struct {
	TimestampColumn string
	DropColumns     []string
	SheetName       string // 仅 xlsx
	Charset         string // 列描述文件编码
	Strict          bool
}

// LoadDataset reads both input files and returns a validated dataset.
func LoadDataset(flightsPath, descriptorPath string, opts Options) (*dataset.Dataset, error) {
	flights, err := ReadFlights(flightsPath, opts)
	if err != nil {
		return nil, err
	}

	descs, err := ReadDescriptors(descriptorPath, opts.Charset)
	if err != nil {
		return nil, err
	}

	if missing := descs.Missing(flights.Names()); len(missing) > 0 && opts.Strict {
		return nil, fmt.Errorf("%w: %s", ErrMissingDescriptors, strings.Join(missing, ", "))
	}

	fp, err := Fingerprint(flightsPath, descriptorPath)
	if err != nil {
		return nil, err
	}

	return &dataset.Dataset{
		Flights:     flights,
		Descriptors: descs,
		Fingerprint: fp,
		LoadedAt:    time.Now(),
		Source:      flightsPath,
	}, nil
}

// ReadFlights 根据扩展名读取 csv 或 xlsx 航班数据
func ReadFlights(path string, opts Options) (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadFlightsXLSX(path, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return dataframe.New(), fmt.Errorf("open flights file: %w", err)
	}
	defer f.Close()

	return ParseFlightsCSV(f, opts)
}

// ParseFlightsCSV loads a comma separated flight table with type detection. The
// timestamp column is kept as normalized text.
func ParseFlightsCSV(r io.Reader, opts Options) (dataframe.DataFrame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return dataframe.New(), fmt.Errorf("read flights csv: %w", err)
	}
	df, err := loadRecords(records, opts)
	if err != nil {
		return dataframe.New(), fmt.Errorf("read flights csv: %w", err)
	}
	return prepareFlights(df, opts)
}

// loadRecords 第一行为标题; 只有标题行时返回零行的表
func loadRecords(records [][]string, opts Options) (dataframe.DataFrame, error) {
	switch len(records) {
	case 0:
		return dataframe.New(), fmt.Errorf("no header row")
	case 1:
		cols := make([]series.Series, 0, len(records[0]))
		for _, name := range records[0] {
			cols = append(cols, series.New([]string{}, series.String, name))
		}
		df := dataframe.New(cols...)
		return df, df.Err
	}
	df := dataframe.LoadRecords(records, loadOptions(opts)...)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("load records: %w", df.Err)
	}
	return df, nil
}

// ReadFlightsXLSX 使用tealeg/xlsx打开Excel文件, 第一行为标题行
func ReadFlightsXLSX(path string, opts Options) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file: %w", err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("xlsx %s has no sheets", path)
	}

	sheet := xlFile.Sheets[0]
	if opts.SheetName != "" {
		s, ok := xlFile.Sheet[opts.SheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("xlsx %s: sheet %q not found", path, opts.SheetName)
		}
		sheet = s
	}

	records := sheetRecords(sheet)
	if len(records) == 0 {
		return dataframe.New(), fmt.Errorf("xlsx %s: sheet %q is empty", path, sheet.Name)
	}

	df, err := loadRecords(records, opts)
	if err != nil {
		return dataframe.New(), fmt.Errorf("read flights xlsx: %w", err)
	}
	return prepareFlights(df, opts)
}

// sheetRecords 将工作表转换为等宽的字符串记录
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.String()))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		rec := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i >= len(headers) { // 超出列数范围
				break
			}
			rec[i] = cell.String()
			if rec[i] != "" {
				empty = false
			}
		}
		if !empty {
			records = append(records, rec)
		}
	}
	return records
}

func loadOptions(opts Options) []dataframe.LoadOption {
	types := map[string]series.Type{}
	if opts.TimestampColumn != "" {
		types[opts.TimestampColumn] = series.String
	}
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithTypes(types),
		dataframe.NaNValues(nanValues),
	}
}

// prepareFlights drops unused columns and normalizes the timestamp column.
func prepareFlights(df dataframe.DataFrame, opts Options) (dataframe.DataFrame, error) {
	var drop []string
	for _, c := range opts.DropColumns {
		if utils.HasColumn(df, c) {
			drop = append(drop, c)
		}
	}
	if len(drop) > 0 {
		df = df.Drop(drop)
		if df.Err != nil {
			return dataframe.New(), fmt.Errorf("drop columns: %w", df.Err)
		}
	}

	if opts.TimestampColumn == "" {
		return df, nil
	}
	if !utils.HasColumn(df, opts.TimestampColumn) {
		return dataframe.New(), fmt.Errorf("timestamp column %q not found", opts.TimestampColumn)
	}

	col := df.Col(opts.TimestampColumn)
	values := make([]string, col.Len())
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if e.IsNA() {
			return dataframe.New(), fmt.Errorf("row %d: missing %s", i+1, opts.TimestampColumn)
		}
		t, err := parseTimestamp(e.String())
		if err != nil {
			return dataframe.New(), fmt.Errorf("row %d: %w", i+1, err)
		}
		values[i] = t.Format(utils.TimeLayout)
	}

	df = df.Mutate(series.New(values, series.String, opts.TimestampColumn))
	if df.Err != nil {
		return dataframe.New(), df.Err
	}
	return df, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := utils.ParseTime(s)
	if err == nil {
		return t, nil
	}
	if t, ok := utils.ExcelToTime(strings.TrimSpace(s)); ok {
		return t, nil
	}
	return time.Time{}, err
}

// ReadDescriptors 读取列描述文件
func ReadDescriptors(path, charset string) (dataset.Descriptors, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Descriptors{}, fmt.Errorf("open descriptor file: %w", err)
	}
	defer f.Close()

	return ParseDescriptors(f, charset)
}

// ParseDescriptors decodes a legacy-charset CSV whose first three columns are the
// machine name, the long description and the display label. The header row is
// skipped; column names in it are not interpreted.
func ParseDescriptors(r io.Reader, charset string) (dataset.Descriptors, error) {
	decoded, err := decodeReader(r, charset)
	if err != nil {
		return dataset.Descriptors{}, err
	}

	df := dataframe.ReadCSV(decoded,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return dataset.Descriptors{}, fmt.Errorf("read descriptor csv: %w", df.Err)
	}
	if df.Ncol() < 3 {
		return dataset.Descriptors{}, fmt.Errorf("descriptor csv has %d columns, want 3", df.Ncol())
	}

	names := df.Names()
	nameCol, descCol, labelCol := df.Col(names[0]), df.Col(names[1]), df.Col(names[2])

	list := make([]dataset.Descriptor, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		list = append(list, dataset.Descriptor{
			Name:        nameCol.Elem(i).String(),
			Description: strings.TrimSpace(descCol.Elem(i).String()),
			Label:       strings.TrimSpace(labelCol.Elem(i).String()),
		})
	}
	return dataset.NewDescriptors(list)
}

// decodeReader 字符集转换器, 将单字节编码转为 UTF-8
func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("descriptor charset %q: %w", charset, err)
	}

	data, err := io.ReadAll(transform.NewReader(r, enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decode descriptor file: %w", err)
	}
	return bytes.NewReader(data), nil
}

// Fingerprint returns the md5 of the concatenated contents of paths.
func Fingerprint(paths ...string) (string, error) {
	h := md5.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", p, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
