package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dimension is a record attribute rows can be grouped by.
type Dimension string

const (
	DimensionDate     Dimension = "date"
	DimensionSource   Dimension = "source"
	DimensionCampaign Dimension = "campaign"
)

// GroupSpec is the ordered set of dimensions used to partition rows.
type GroupSpec []Dimension

var (
	GroupBySourceCampaign     = GroupSpec{DimensionSource, DimensionCampaign}
	GroupByDateSourceCampaign = GroupSpec{DimensionDate, DimensionSource, DimensionCampaign}
)

// ParseGroupSpec parses a comma-separated dimension list such as
// "date,source,campaign". An empty string yields GroupBySourceCampaign.
func ParseGroupSpec(s string) (GroupSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GroupBySourceCampaign, nil
	}

	seen := make(map[Dimension]bool)
	var spec GroupSpec
	for _, part := range strings.Split(s, ",") {
		d := Dimension(strings.ToLower(strings.TrimSpace(part)))
		switch d {
		case DimensionDate, DimensionSource, DimensionCampaign:
		default:
			return nil, fmt.Errorf("unknown group dimension %q", part)
		}
		if seen[d] {
			return nil, fmt.Errorf("duplicate group dimension %q", d)
		}
		seen[d] = true
		spec = append(spec, d)
	}
	return spec, nil
}

// String renders the grouping back into its comma-separated form.
func (g GroupSpec) String() string {
	parts := make([]string, len(g))
	for i, d := range g {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

// FilterSelection holds the user's current predicates. An empty set means no
// filtering on that dimension; the deposit range is always applied and is
// inclusive on both ends.
type FilterSelection struct {
	Sources    []string    `json:"sources,omitempty"`
	Campaigns  []string    `json:"campaigns,omitempty"`
	Dates      []time.Time `json:"dates,omitempty"`
	DepositMin float64     `json:"deposit_min"`
	DepositMax float64     `json:"deposit_max"`
}

// SummaryRow is one aggregated group. Key is aligned with the GroupSpec that
// produced it.
type SummaryRow struct {
	Key        []string `json:"key"`
	LeadCount  int      `json:"lead_count"`
	DepositSum float64  `json:"deposit_sum"`
	Total      bool     `json:"total,omitempty"`
}

// DepositRange is the inclusive deposit interval offered to range controls.
type DepositRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterOptions lists the selectable values of a table.
type FilterOptions struct {
	Sources   []string     `json:"sources"`
	Campaigns []string     `json:"campaigns"`
	Dates     []string     `json:"dates"`
	Deposit   DepositRange `json:"deposit"`
}

// Result is the output of one query: the summary (grand total last) and the
// filtered detail table.
type Result struct {
	Summary   []SummaryRow    `json:"summary"`
	Filtered  *LeadTable      `json:"filtered"`
	Selection FilterSelection `json:"selection"`
	GroupSpec GroupSpec       `json:"group_spec"`
}

// GrandTotal returns the trailing total row, if any.
func (r *Result) GrandTotal() (SummaryRow, bool) {
	if r == nil || len(r.Summary) == 0 {
		return SummaryRow{}, false
	}
	last := r.Summary[len(r.Summary)-1]
	return last, last.Total
}

// FormatAmount renders a deposit in its shortest round-trip form.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
