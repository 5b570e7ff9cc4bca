package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"leadpulse/internal/errors"
	"leadpulse/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	bom bool
}

// NewCSVWriter creates a new CSV writer instance. When bom is set, output
// starts with a UTF-8 byte order mark so Excel detects the encoding.
func NewCSVWriter(bom bool) *CSVWriter {
	return &CSVWriter{bom: bom}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write writes headers and records to w
func (c *CSVWriter) Write(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteRecords writes the detailed table: a header of normalized column
// names followed by one row per record, nulls as empty cells.
func (c *CSVWriter) WriteRecords(w io.Writer, table *domain.LeadTable) error {
	rows := make([][]string, table.Len())
	for i := range rows {
		rows[i] = table.Row(i)
	}

	if err := c.Write(w, WriteOptions{
		Headers:   table.Columns,
		Records:   rows,
		BOMPrefix: c.bom,
	}); err != nil {
		return errors.NewStorageError("failed to write CSV export", err)
	}
	return nil
}

// Bytes renders the detailed table to memory.
func (c *CSVWriter) Bytes(table *domain.LeadTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.WriteRecords(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewStorageError("failed to create directory", err).WithContext("dir", dir)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.NewStorageError("failed to open file", err).WithContext("path", path)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return errors.NewStorageError("failed to write file", err).WithContext("path", path)
	}
	return file.Close()
}
