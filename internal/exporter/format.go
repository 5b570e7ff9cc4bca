package exporter

import (
	"fmt"
	"strings"
)

// Format is an export artifact encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatCSV, FormatXLSX, FormatPDF}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// formatMoney formats an amount for printed reports with exactly 2 decimal places
func formatMoney(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats a count for printed reports
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

// formatList renders a selection set, with an empty set meaning all values.
func formatList(values []string) string {
	if len(values) == 0 {
		return "All"
	}
	return strings.Join(values, ", ")
}
