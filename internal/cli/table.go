package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"leadpulse/pkg/contracts/domain"
)

type table struct {
	headers []string
	rows    [][]string
	// numeric columns are right-aligned
	numeric map[int]bool
	// emphasized rows render bold on a terminal
	emphasized map[int]bool
}

func (t table) render(p palette) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(p.header(t.line(t.headers, widths)))
	b.WriteString("\n")

	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	b.WriteString(p.muted(strings.Join(seps, "-+-")))
	b.WriteString("\n")

	for i, row := range t.rows {
		line := t.line(row, widths)
		if t.emphasized[i] {
			line = p.total(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (t table) line(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if t.numeric[i] {
			parts[i] = padLeft(cell, w)
		} else {
			parts[i] = padRight(cell, w)
		}
	}
	return strings.TrimRight(strings.Join(parts, " | "), " ")
}

func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func padLeft(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return strings.Repeat(" ", gap) + s
	}
	return s
}

// summaryTable lays out one column per group dimension followed by the lead
// count and deposit sum. The grand total row is emphasized.
func summaryTable(result *domain.Result) table {
	t := table{
		numeric:    map[int]bool{len(result.GroupSpec): true, len(result.GroupSpec) + 1: true},
		emphasized: map[int]bool{},
	}
	for _, d := range result.GroupSpec {
		t.headers = append(t.headers, dimensionTitle(d))
	}
	t.headers = append(t.headers, "Leads", "Deposits")

	for i, row := range result.Summary {
		cells := append([]string(nil), row.Key...)
		cells = append(cells, strconv.Itoa(row.LeadCount), fmt.Sprintf("%.2f", row.DepositSum))
		t.rows = append(t.rows, cells)
		if row.Total {
			t.emphasized[i] = true
		}
	}
	return t
}

// recordsTable lays out the filtered rows in the table's column order.
func recordsTable(lt *domain.LeadTable) table {
	t := table{headers: lt.Columns}
	for i := 0; i < lt.Len(); i++ {
		t.rows = append(t.rows, lt.Row(i))
	}
	return t
}

func dimensionTitle(d domain.Dimension) string {
	s := string(d)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
