package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"leadpulse/internal/errors"
)

// Format identifies a supported spreadsheet encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	zipMagic = []byte("PK\x03\x04")
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// RawTable is a header plus rows of cells keyed by normalized column name.
// A column missing from a row map is null.
type RawTable struct {
	Columns []string
	Rows    []map[string]string
}

// Value returns the cell of row i in column and whether it is non-null.
func (t *RawTable) Value(i int, column string) (string, bool) {
	v, ok := t.Rows[i][column]
	return v, ok
}

// HasColumn reports whether the header contains column.
func (t *RawTable) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ReadFile reads a .xlsx or .csv file from disk.
func ReadFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIngestionError("failed to open input file", err).
			WithContext("file", filepath.Base(path))
	}
	defer f.Close()

	return ReadTable(filepath.Base(path), f)
}

// ReadTable reads a spreadsheet from r. The format is taken from the name's
// extension and falls back to content sniffing.
func ReadTable(name string, r io.Reader) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIngestionError("failed to read input", err).WithContext("file", name)
	}

	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, errors.NewIngestionError(err.Error(), nil).WithContext("file", name)
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readWorkbookRows(data)
	default:
		rows, err = readCSVRows(data)
	}
	if err != nil {
		return nil, errors.NewIngestionError(fmt.Sprintf("failed to parse %s input", format), err).
			WithContext("file", name)
	}

	table, err := buildRawTable(rows)
	if err != nil {
		return nil, errors.NewIngestionError(err.Error(), nil).WithContext("file", name)
	}
	return table, nil
}

// DetectFormat picks the decoder for a file.
func DetectFormat(name string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".xls":
		return "", fmt.Errorf("legacy .xls workbooks are not supported")
	}

	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX, nil
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("input is neither a workbook nor delimited text")
	}
	return FormatCSV, nil
}

// readWorkbookRows returns the rows of the first sheet that has any content.
// Raw cell values are used so dates arrive as serial numbers and amounts
// without number formatting.
func readWorkbookRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if firstNonEmpty(rows) >= 0 {
			return rows, nil
		}
	}
	return nil, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

func buildRawTable(rows [][]string) (*RawTable, error) {
	start := firstNonEmpty(rows)
	if start < 0 {
		return nil, fmt.Errorf("input has no header row")
	}

	header := rows[start]
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumnName(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if seen[name] > 0 {
			base := name
			for n := seen[base] + 1; ; n++ {
				candidate := base + "_" + strconv.Itoa(n)
				if seen[candidate] == 0 {
					seen[base] = n
					name = candidate
					break
				}
			}
		}
		seen[name]++
		columns[i] = name
	}

	table := &RawTable{Columns: columns, Rows: make([]map[string]string, 0, len(rows)-start-1)}
	for _, row := range rows[start+1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make(map[string]string, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				break
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				cells[col] = row[i]
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// NormalizeColumnName trims, lowercases and replaces '.' with '_'.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, string(utf8BOM)))
	return strings.ReplaceAll(strings.ToLower(name), ".", "_")
}

func firstNonEmpty(rows [][]string) int {
	for i, row := range rows {
		if !isBlankRow(row) {
			return i
		}
	}
	return -1
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
