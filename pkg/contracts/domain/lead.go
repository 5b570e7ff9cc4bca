package domain

import (
	"time"
)

// UnknownValue is substituted for missing attribution source/campaign values.
const UnknownValue = "UNKNOWN"

// TotalLabel is the key value of every dimension in the grand-total row.
const TotalLabel = "TOTAL"

// DateLayout is the canonical calendar date format used in tables and exports.
const DateLayout = "2006-01-02"

// Record is one normalized lead row.
type Record struct {
	Source       string            `json:"source"`
	Campaign     string            `json:"campaign"`
	DepositTotal float64           `json:"deposit_total"`
	JoinedAt     *time.Time        `json:"joined_at,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// JoinDate returns the join date formatted with DateLayout, or "" when absent.
func (r Record) JoinDate() string {
	if r.JoinedAt == nil {
		return ""
	}
	return r.JoinedAt.Format(DateLayout)
}

// LeadTable is an ordered set of normalized records together with the
// normalized column layout they were read with.
type LeadTable struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`

	// Bound names of the columns backing the typed Record fields.
	SourceColumn   string `json:"source_column"`
	CampaignColumn string `json:"campaign_column"`
	DepositColumn  string `json:"deposit_column"`
	JoinColumn     string `json:"join_column"`
}

// Len returns the number of records.
func (t *LeadTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Cell returns the textual value of column for record i and whether it is
// non-null.
func (t *LeadTable) Cell(i int, column string) (string, bool) {
	r := t.Records[i]
	switch column {
	case t.SourceColumn:
		return r.Source, true
	case t.CampaignColumn:
		return r.Campaign, true
	case t.DepositColumn:
		return FormatAmount(r.DepositTotal), true
	case t.JoinColumn:
		if r.JoinedAt == nil {
			return "", false
		}
		return r.JoinDate(), true
	}
	if v, ok := r.Attributes[column]; ok {
		return v, true
	}
	v, ok := r.Fields[column]
	return v, ok
}

// Row returns the record's cells in column order; nulls are empty strings.
func (t *LeadTable) Row(i int) []string {
	row := make([]string, len(t.Columns))
	for j, col := range t.Columns {
		row[j], _ = t.Cell(i, col)
	}
	return row
}

// WithRecords returns a table sharing t's layout but holding records.
func (t *LeadTable) WithRecords(records []Record) *LeadTable {
	return &LeadTable{
		Columns:        t.Columns,
		Records:        records,
		SourceColumn:   t.SourceColumn,
		CampaignColumn: t.CampaignColumn,
		DepositColumn:  t.DepositColumn,
		JoinColumn:     t.JoinColumn,
	}
}
