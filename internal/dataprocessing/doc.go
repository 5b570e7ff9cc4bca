// Package dataprocessing turns uploaded lead spreadsheets into normalized
// lead tables and answers filter/group queries over them.
//
// # Pipeline
//
//	ReadTable/ReadFile → RawTable → Normalizer.Normalize → LeadTable → Run → Result
//
// ReadTable accepts .xlsx (first sheet with content) and .csv input. Header
// names are lowercased and '.' is replaced by '_'. A file that is not a
// readable spreadsheet is the only fatal condition and is reported as an
// ingestion error (errors.ErrIngestion).
//
// The Normalizer flattens the attribution column (JSON or Python literal
// mapping) into prefixed columns, fills missing source and campaign with the
// sentinel, coerces deposits to finite non-negative amounts and parses join
// dates. Malformed cells degrade to defaults and are only counted in
// NormalizeStats.
//
// # Queries
//
// Filter, Summarize and Run are pure functions over an immutable LeadTable.
// Empty selection sets do not filter their dimension; the deposit range is
// inclusive and always applied. Summaries end with a TOTAL row.
//
//	table, stats := dataprocessing.NewNormalizer(dataprocessing.DefaultSchema(), logger).Normalize(ctx, raw)
//	result := dataprocessing.Run(table, dataprocessing.DefaultSelection(table), domain.GroupBySourceCampaign)
package dataprocessing
