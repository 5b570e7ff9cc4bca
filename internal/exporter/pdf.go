package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"leadpulse/internal/errors"
	"leadpulse/pkg/contracts/domain"
)

var (
	pdfHeaderColor = props.Color{Red: 50, Green: 50, Blue: 50}
	pdfMutedColor  = props.Color{Red: 120, Green: 120, Blue: 120}
	pdfLineColor   = props.Color{Red: 200, Green: 200, Blue: 200}
)

// PDFWriter renders the summary of a query result as a printable report.
type PDFWriter struct {
	title string
	now   func() time.Time
}

// NewPDFWriter creates a PDF writer with the given report title.
func NewPDFWriter(title string) *PDFWriter {
	if title == "" {
		title = "Campaign Lead Report"
	}
	return &PDFWriter{title: title, now: time.Now}
}

// Bytes renders result to a PDF document.
func (p *PDFWriter) Bytes(result *domain.Result) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	// Document header
	m.AddRow(14,
		text.NewCol(12, p.title, props.Text{
			Style: fontstyle.Bold,
			Size:  16,
			Color: &pdfHeaderColor,
		}),
	)
	m.AddRow(6,
		text.NewCol(12, "Generated "+p.now().Format("2006-01-02 15:04"), props.Text{
			Size:  9,
			Color: &pdfMutedColor,
		}),
	)
	for _, f := range selectionLines(result.Selection) {
		m.AddRow(5,
			text.NewCol(12, f, props.Text{Size: 9, Color: &pdfMutedColor}),
		)
	}
	m.AddRow(4, line.NewCol(12, props.Line{Color: &pdfLineColor}))
	m.AddRow(4) // spacer

	widths := columnWidths(len(result.GroupSpec))

	// Table header
	headers := make([]string, 0, len(widths))
	for _, dim := range result.GroupSpec {
		headers = append(headers, strings.ToUpper(string(dim)[:1])+string(dim)[1:])
	}
	headers = append(headers, "Leads", "Deposits")
	m.AddRow(8, summaryCols(widths, headers, props.Text{
		Style: fontstyle.Bold,
		Size:  10,
		Color: &pdfHeaderColor,
	})...)

	// Group rows; the grand total is rendered as the footer
	var total domain.SummaryRow
	for _, row := range result.Summary {
		if row.Total {
			total = row
			continue
		}
		m.AddRow(6, summaryCols(widths, summaryCells(row), props.Text{Size: 9})...)
	}

	// Grand total footer
	m.AddRow(4, line.NewCol(12, props.Line{Color: &pdfLineColor}))
	total.Key = make([]string, len(result.GroupSpec))
	if len(total.Key) > 0 {
		total.Key[0] = "Total"
	}
	m.AddRow(10, summaryCols(widths, summaryCells(total), props.Text{
		Style: fontstyle.Bold,
		Size:  11,
		Color: &pdfHeaderColor,
	})...)

	doc, err := m.Generate()
	if err != nil {
		return nil, errors.NewStorageError("failed to generate PDF", err)
	}
	return doc.GetBytes(), nil
}

func summaryCells(row domain.SummaryRow) []string {
	cells := make([]string, 0, len(row.Key)+2)
	cells = append(cells, row.Key...)
	return append(cells, formatInt(row.LeadCount), formatMoney(row.DepositSum))
}

// summaryCols lays cells out on the 12-unit grid; the two aggregate columns
// are right aligned.
func summaryCols(widths []int, cells []string, style props.Text) []core.Col {
	cols := make([]core.Col, len(widths))
	for i, w := range widths {
		s := style
		if i >= len(widths)-2 {
			s.Align = align.Right
		}
		v := ""
		if i < len(cells) {
			v = cells[i]
		}
		cols[i] = text.NewCol(w, v, s)
	}
	return cols
}

// columnWidths splits the 12-unit grid between dims key columns, the lead
// count and the deposit sum.
func columnWidths(dims int) []int {
	const countWidth, sumWidth = 2, 3
	widths := make([]int, 0, dims+2)
	remaining := 12 - countWidth - sumWidth
	for i := 0; i < dims; i++ {
		w := remaining / (dims - i)
		if remaining%(dims-i) != 0 {
			w++
		}
		widths = append(widths, w)
		remaining -= w
	}
	return append(widths, countWidth, sumWidth)
}

func selectionLines(sel domain.FilterSelection) []string {
	dates := make([]string, len(sel.Dates))
	for i, d := range sel.Dates {
		dates[i] = d.Format(domain.DateLayout)
	}
	return []string{
		"Sources: " + formatList(sel.Sources),
		"Campaigns: " + formatList(sel.Campaigns),
		"Join dates: " + formatList(dates),
		fmt.Sprintf("Deposit range: %s to %s", formatMoney(sel.DepositMin), formatMoney(sel.DepositMax)),
	}
}
