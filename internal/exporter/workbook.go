package exporter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"leadpulse/internal/errors"
	"leadpulse/pkg/contracts/domain"
)

// Summary sheet aggregate column headers.
const (
	LeadCountHeader  = "lead_count"
	DepositSumHeader = "deposit_sum"
)

// WorkbookWriter renders a query result as a two-sheet workbook: the
// filtered detail table and the summary with its grand-total row.
type WorkbookWriter struct {
	detailSheet  string
	summarySheet string
}

// NewWorkbookWriter creates a writer using the given sheet names.
func NewWorkbookWriter(detailSheet, summarySheet string) *WorkbookWriter {
	if detailSheet == "" {
		detailSheet = "Detailed Data"
	}
	if summarySheet == "" {
		summarySheet = "Summary"
	}
	return &WorkbookWriter{detailSheet: detailSheet, summarySheet: summarySheet}
}

type workbookStyles struct {
	header int
	total  int
}

// Write encodes result as xlsx to w.
func (ww *WorkbookWriter) Write(w io.Writer, result *domain.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ww.detailSheet); err != nil {
		return errors.NewStorageError("failed to name detail sheet", err)
	}
	if _, err := f.NewSheet(ww.summarySheet); err != nil {
		return errors.NewStorageError("failed to create summary sheet", err)
	}

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return errors.NewStorageError("failed to create workbook styles", err)
	}

	if err := ww.writeDetail(f, styles, result.Filtered); err != nil {
		return errors.NewStorageError("failed to write detail sheet", err)
	}
	if err := ww.writeSummary(f, styles, result); err != nil {
		return errors.NewStorageError("failed to write summary sheet", err)
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return errors.NewStorageError("failed to encode workbook", err)
	}
	return nil
}

// Bytes renders result to memory.
func (ww *WorkbookWriter) Bytes(result *domain.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := ww.Write(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "9BC2E6", Style: 1},
		},
	})
	if err != nil {
		return workbookStyles{}, err
	}

	total, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF2CC"}},
		Border: []excelize.Border{
			{Type: "top", Color: "BF9000", Style: 2},
		},
	})
	if err != nil {
		return workbookStyles{}, err
	}

	return workbookStyles{header: header, total: total}, nil
}

func (ww *WorkbookWriter) writeDetail(f *excelize.File, styles workbookStyles, table *domain.LeadTable) error {
	sheet := ww.detailSheet
	if table == nil {
		table = &domain.LeadTable{}
	}

	if err := writeHeader(f, sheet, table.Columns, styles.header); err != nil {
		return err
	}

	for i, rec := range table.Records {
		for j, col := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if col == table.DepositColumn {
				if err := f.SetCellFloat(sheet, cell, rec.DepositTotal, -1, 64); err != nil {
					return err
				}
				continue
			}
			v, ok := table.Cell(i, col)
			if !ok {
				continue
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return freezeHeader(f, sheet)
}

func (ww *WorkbookWriter) writeSummary(f *excelize.File, styles workbookStyles, result *domain.Result) error {
	sheet := ww.summarySheet

	headers := make([]string, 0, len(result.GroupSpec)+2)
	for _, dim := range result.GroupSpec {
		headers = append(headers, string(dim))
	}
	headers = append(headers, LeadCountHeader, DepositSumHeader)

	if err := writeHeader(f, sheet, headers, styles.header); err != nil {
		return err
	}

	for i, row := range result.Summary {
		values := make([]any, 0, len(headers))
		for _, k := range row.Key {
			values = append(values, k)
		}
		values = append(values, row.LeadCount, row.DepositSum)

		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}

		if row.Total {
			end, err := excelize.CoordinatesToCellName(len(values), i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, start, end, styles.total); err != nil {
				return err
			}
		}
	}

	return freezeHeader(f, sheet)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	if len(headers) == 0 {
		return nil
	}
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}

	end, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

func freezeHeader(f *excelize.File, sheet string) error {
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header of %s: %w", sheet, err)
	}
	return nil
}
