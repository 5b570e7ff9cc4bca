package dataprocessing

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"leadpulse/pkg/contracts/domain"
)

// Summarize partitions the records by spec and counts leads and sums
// deposits per group. Groups are ordered by key, component-wise ascending;
// a missing join date renders as "" and therefore sorts first. A grand-total
// row keyed TOTAL on every dimension is always appended, with zero
// aggregates when there are no groups.
func Summarize(t *domain.LeadTable, spec domain.GroupSpec) []domain.SummaryRow {
	index := make(map[string]int)
	var rows []domain.SummaryRow

	if t != nil {
		for _, rec := range t.Records {
			key := groupKey(rec, spec)
			id := strings.Join(key, "\x1f")

			i, ok := index[id]
			if !ok {
				i = len(rows)
				index[id] = i
				rows = append(rows, domain.SummaryRow{Key: key})
			}
			rows[i].LeadCount++
			rows[i].DepositSum += rec.DepositTotal
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return compareKeys(rows[a].Key, rows[b].Key) < 0
	})

	total := domain.SummaryRow{Key: make([]string, len(spec)), Total: true}
	for i := range total.Key {
		total.Key[i] = domain.TotalLabel
	}
	for _, row := range rows {
		total.LeadCount += row.LeadCount
		total.DepositSum += row.DepositSum
	}

	return append(rows, total)
}

// Run filters the table and summarizes the result. It recomputes everything
// from the table on each call and never fails.
func Run(t *domain.LeadTable, sel domain.FilterSelection, spec domain.GroupSpec) *domain.Result {
	filtered := Filter(t, sel)
	return &domain.Result{
		Summary:   Summarize(filtered, spec),
		Filtered:  filtered,
		Selection: sel,
		GroupSpec: spec,
	}
}

func groupKey(rec domain.Record, spec domain.GroupSpec) []string {
	key := make([]string, len(spec))
	for i, dim := range spec {
		switch dim {
		case domain.DimensionDate:
			key[i] = rec.JoinDate()
		case domain.DimensionSource:
			key[i] = rec.Source
		case domain.DimensionCampaign:
			key[i] = rec.Campaign
		}
	}
	return key
}

func compareKeys(a, b []string) int {
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Summarizer runs queries and logs their outcome.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a summarizer logging through logger.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger.With("component", "summarizer")}
}

// Run is the logged form of the package-level Run.
func (s *Summarizer) Run(ctx context.Context, t *domain.LeadTable, sel domain.FilterSelection, spec domain.GroupSpec) *domain.Result {
	start := time.Now()
	result := Run(t, sel, spec)

	total, _ := result.GrandTotal()
	s.logger.InfoContext(ctx, "report computed",
		slog.Int("input_rows", t.Len()),
		slog.Int("filtered_rows", result.Filtered.Len()),
		slog.Int("groups", len(result.Summary)-1),
		slog.String("group_by", spec.String()),
		slog.Float64("deposit_sum", total.DepositSum),
		slog.Duration("duration", time.Since(start)))

	return result
}
