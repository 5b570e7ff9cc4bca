// Package exporter renders lead query results as downloadable artifacts.
//
// CSVWriter writes the filtered detail table (optionally prefixed with a
// UTF-8 BOM for Excel). WorkbookWriter writes a two-sheet xlsx: the detail
// table with numeric deposit cells, and the summary with the TOTAL row bold
// and filled. PDFWriter prints the summary with the applied filters.
//
// Both CSV and workbook detail output re-ingest through
// dataprocessing.ReadTable to the same source, campaign and deposit values.
//
//	exp := exporter.New(cfg.Export, logger)
//	artifact, err := exp.Export(ctx, result, exporter.FormatXLSX)
package exporter
