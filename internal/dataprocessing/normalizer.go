package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"leadpulse/internal/config"
	"leadpulse/pkg/contracts/domain"
)

// Schema binds the normalizer to input column names.
type Schema struct {
	AttributionColumn string
	AttributionPrefix string
	SourceKey         string
	CampaignKey       string
	DepositColumn     string
	JoinColumn        string
	Sentinel          string
}

// DefaultSchema returns the bindings of the standard user export.
func DefaultSchema() Schema {
	return SchemaFromConfig(config.DefaultSchema())
}

// SchemaFromConfig converts configuration into a Schema with normalized
// column names.
func SchemaFromConfig(cfg config.SchemaConfig) Schema {
	return Schema{
		AttributionColumn: NormalizeColumnName(cfg.AttributionColumn),
		AttributionPrefix: NormalizeColumnName(cfg.AttributionPrefix),
		SourceKey:         NormalizeColumnName(cfg.SourceKey),
		CampaignKey:       NormalizeColumnName(cfg.CampaignKey),
		DepositColumn:     NormalizeColumnName(cfg.DepositColumn),
		JoinColumn:        NormalizeColumnName(cfg.JoinColumn),
		Sentinel:          cfg.Sentinel,
	}
}

// SourceColumn is the flattened attribution column holding the source.
func (s Schema) SourceColumn() string { return s.AttributionPrefix + s.SourceKey }

// CampaignColumn is the flattened attribution column holding the campaign.
func (s Schema) CampaignColumn() string { return s.AttributionPrefix + s.CampaignKey }

// NormalizeStats counts the cells that were degraded to defaults.
type NormalizeStats struct {
	Rows                int      `json:"rows"`
	AttributionDegraded int      `json:"attribution_degraded"`
	DepositsCoerced     int      `json:"deposits_coerced"`
	DatesDropped        int      `json:"dates_dropped"`
	SourcesDefaulted    int      `json:"sources_defaulted"`
	CampaignsDefaulted  int      `json:"campaigns_defaulted"`
	SynthesizedColumns  []string `json:"synthesized_columns,omitempty"`
}

// Degraded is the number of malformed cells replaced by a default.
func (s NormalizeStats) Degraded() int {
	return s.AttributionDegraded + s.DepositsCoerced + s.DatesDropped
}

// Normalizer turns raw tables into lead tables. It never fails on cell
// content; every malformed value degrades to its documented default.
type Normalizer struct {
	schema Schema
	logger *slog.Logger
}

// NewNormalizer creates a normalizer for schema.
func NewNormalizer(schema Schema, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if schema.Sentinel == "" {
		schema.Sentinel = domain.UnknownValue
	}
	return &Normalizer{schema: schema, logger: logger.With("component", "normalizer")}
}

// Schema returns the normalizer's column bindings.
func (n *Normalizer) Schema() Schema {
	return n.schema
}

// Normalize flattens the attribution column, coerces the bound columns and
// returns a table with the same rows in the same order. When the attribution
// column is absent, columns already carrying the attribution prefix are taken
// as flattened attributes, so normalizing a normalized table is a no-op.
func (n *Normalizer) Normalize(ctx context.Context, raw *RawTable) (*domain.LeadTable, NormalizeStats) {
	s := n.schema
	stats := NormalizeStats{Rows: len(raw.Rows)}

	hasAttribution := raw.HasColumn(s.AttributionColumn)
	attrs := make([]map[string]string, len(raw.Rows))
	var attrColumns []string
	attrSet := make(map[string]bool)
	addAttrColumn := func(col string) {
		if !attrSet[col] {
			attrSet[col] = true
			attrColumns = append(attrColumns, col)
		}
	}

	if hasAttribution {
		for i := range raw.Rows {
			cell, ok := raw.Value(i, s.AttributionColumn)
			if !ok {
				attrs[i] = map[string]string{}
				continue
			}
			m, parsed := ParseAttribution(cell)
			if !parsed {
				stats.AttributionDegraded++
			}
			values, cols := FlattenAttribution(m, s.AttributionPrefix)
			for _, col := range cols {
				addAttrColumn(col)
			}
			attrs[i] = values
		}
	} else {
		for _, col := range raw.Columns {
			if strings.HasPrefix(col, s.AttributionPrefix) {
				addAttrColumn(col)
			}
		}
		for i, row := range raw.Rows {
			attrs[i] = make(map[string]string)
			for _, col := range attrColumns {
				if v, ok := row[col]; ok {
					attrs[i][col] = v
				}
			}
		}
	}

	var originals []string
	for _, col := range raw.Columns {
		if col == s.AttributionColumn || attrSet[col] {
			continue
		}
		originals = append(originals, col)
	}
	originalSet := make(map[string]bool, len(originals))
	for _, col := range originals {
		originalSet[col] = true
	}

	cell := func(i int, col string) (string, bool) {
		if attrSet[col] {
			v, ok := attrs[i][col]
			return v, ok
		}
		if originalSet[col] {
			return raw.Value(i, col)
		}
		return "", false
	}

	columns := append([]string(nil), originals...)
	if !originalSet[s.DepositColumn] && !attrSet[s.DepositColumn] {
		columns = append(columns, s.DepositColumn)
		stats.SynthesizedColumns = append(stats.SynthesizedColumns, s.DepositColumn)
	}
	columns = append(columns, attrColumns...)
	for _, col := range []string{s.SourceColumn(), s.CampaignColumn()} {
		if !attrSet[col] && !originalSet[col] {
			columns = append(columns, col)
			stats.SynthesizedColumns = append(stats.SynthesizedColumns, col)
		}
	}

	joinColumn := ""
	if originalSet[s.JoinColumn] || attrSet[s.JoinColumn] {
		joinColumn = s.JoinColumn
	}

	bound := map[string]bool{
		s.SourceColumn():   true,
		s.CampaignColumn(): true,
		s.DepositColumn:    true,
		joinColumn:         true,
	}

	records := make([]domain.Record, len(raw.Rows))
	for i := range raw.Rows {
		rec := domain.Record{
			Attributes: make(map[string]string),
			Fields:     make(map[string]string),
		}

		var defaulted bool
		v, ok := cell(i, s.SourceColumn())
		if rec.Source, defaulted = cleanLabel(v, ok, s.Sentinel); defaulted {
			stats.SourcesDefaulted++
		}
		v, ok = cell(i, s.CampaignColumn())
		if rec.Campaign, defaulted = cleanLabel(v, ok, s.Sentinel); defaulted {
			stats.CampaignsDefaulted++
		}

		var coerced bool
		rec.DepositTotal, coerced = ParseDeposit(cell(i, s.DepositColumn))
		if coerced {
			stats.DepositsCoerced++
		}

		if joinColumn != "" {
			if v, ok := cell(i, joinColumn); ok {
				rec.JoinedAt = ParseJoinDate(v)
				if rec.JoinedAt == nil {
					stats.DatesDropped++
				}
			}
		}

		for col, v := range attrs[i] {
			if !bound[col] {
				rec.Attributes[col] = v
			}
		}
		for _, col := range originals {
			if bound[col] {
				continue
			}
			if v, ok := raw.Value(i, col); ok {
				rec.Fields[col] = v
			}
		}
		records[i] = rec
	}

	n.logger.DebugContext(ctx, "normalized lead table",
		slog.Int("rows", stats.Rows),
		slog.Int("columns", len(columns)),
		slog.Int("attribution_degraded", stats.AttributionDegraded),
		slog.Int("deposits_coerced", stats.DepositsCoerced),
		slog.Int("dates_dropped", stats.DatesDropped),
		slog.Any("synthesized_columns", stats.SynthesizedColumns))

	return &domain.LeadTable{
		Columns:        columns,
		Records:        records,
		SourceColumn:   s.SourceColumn(),
		CampaignColumn: s.CampaignColumn(),
		DepositColumn:  s.DepositColumn,
		JoinColumn:     joinColumn,
	}, stats
}

// ToRawTable renders a lead table back into raw cells, as it would be read
// from its own CSV export.
func ToRawTable(t *domain.LeadTable) *RawTable {
	raw := &RawTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]map[string]string, t.Len()),
	}
	for i := range raw.Rows {
		row := make(map[string]string, len(t.Columns))
		for _, col := range t.Columns {
			if v, ok := t.Cell(i, col); ok && v != "" {
				row[col] = v
			}
		}
		raw.Rows[i] = row
	}
	return raw
}

// cleanLabel trims v, substituting sentinel for null, blank or "nan".
func cleanLabel(v string, ok bool, sentinel string) (string, bool) {
	v = strings.TrimSpace(v)
	if !ok || v == "" || strings.EqualFold(v, "nan") {
		return sentinel, true
	}
	return v, false
}

// ParseDeposit coerces a deposit cell. Null yields 0 without counting as a
// coercion; unparseable, non-finite or negative values yield 0 and
// coerced == true.
func ParseDeposit(v string, ok bool) (amount float64, coerced bool) {
	if !ok {
		return 0, false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, true
	}
	if f == 0 {
		f = 0 // drops the sign of -0
	}
	return f, false
}

var joinDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	domain.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"02.01.2006",
	"02.01.2006 15:04:05",
}

// Excel serial numbers for 1900-01-01 through 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParseJoinDate parses a timestamp into a calendar date at UTC midnight.
// Unparseable input yields nil.
func ParseJoinDate(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	for _, layout := range joinDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return calendarDate(t)
		}
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return calendarDate(t)
		}
	}
	return nil
}

func calendarDate(t time.Time) *time.Time {
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date
}
