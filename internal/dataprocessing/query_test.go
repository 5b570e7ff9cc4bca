package dataprocessing

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpulse/pkg/contracts/domain"
)

func day(s string) *time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func lead(source, campaign string, deposit float64, joined *time.Time) domain.Record {
	return domain.Record{Source: source, Campaign: campaign, DepositTotal: deposit, JoinedAt: joined}
}

func leadTable(records ...domain.Record) *domain.LeadTable {
	return &domain.LeadTable{
		Columns:        []string{"deposits_total_in_usd", "created_at", "utm_hit_utmsource", "utm_hit_utmcampaign"},
		Records:        records,
		SourceColumn:   "utm_hit_utmsource",
		CampaignColumn: "utm_hit_utmcampaign",
		DepositColumn:  "deposits_total_in_usd",
		JoinColumn:     "created_at",
	}
}

func scenarioTable() *domain.LeadTable {
	return leadTable(
		lead("fb", "sale", 100, day("2024-01-15")),
		lead("fb", "sale", 50, day("2024-01-16")),
		lead("ig", "promo", 0, nil),
	)
}

func TestRun_Scenarios(t *testing.T) {
	table := scenarioTable()

	t.Run("full range groups by source and campaign", func(t *testing.T) {
		result := Run(table, DefaultSelection(table), domain.GroupBySourceCampaign)

		assert.Equal(t, []domain.SummaryRow{
			{Key: []string{"fb", "sale"}, LeadCount: 2, DepositSum: 150},
			{Key: []string{"ig", "promo"}, LeadCount: 1, DepositSum: 0},
			{Key: []string{"TOTAL", "TOTAL"}, LeadCount: 3, DepositSum: 150, Total: true},
		}, result.Summary)
		assert.Equal(t, 3, result.Filtered.Len())
	})

	t.Run("deposit range 60 to 200", func(t *testing.T) {
		result := Run(table, domain.FilterSelection{DepositMin: 60, DepositMax: 200}, domain.GroupBySourceCampaign)

		assert.Equal(t, []domain.SummaryRow{
			{Key: []string{"fb", "sale"}, LeadCount: 1, DepositSum: 100},
			{Key: []string{"TOTAL", "TOTAL"}, LeadCount: 1, DepositSum: 100, Total: true},
		}, result.Summary)
		require.Equal(t, 1, result.Filtered.Len())
		assert.Equal(t, 100.0, result.Filtered.Records[0].DepositTotal)
	})

	t.Run("identical deposits widen the range", func(t *testing.T) {
		same := leadTable(lead("a", "x", 75, nil), lead("b", "y", 75, nil), lead("c", "z", 75, nil))

		bounds := DepositBounds(same)
		assert.Equal(t, domain.DepositRange{Min: 75, Max: 76}, bounds)

		result := Run(same, DefaultSelection(same), domain.GroupBySourceCampaign)
		assert.Equal(t, 3, result.Filtered.Len())
		total, ok := result.GrandTotal()
		require.True(t, ok)
		assert.Equal(t, 3, total.LeadCount)
		assert.Equal(t, 225.0, total.DepositSum)
	})

	t.Run("identical deposits beyond float precision still widen", func(t *testing.T) {
		huge := leadTable(lead("fb", "sale", 1e17, nil), lead("ig", "promo", 1e17, nil))
		bounds := DepositBounds(huge)
		assert.Equal(t, 1e17, bounds.Min)
		assert.Greater(t, bounds.Max, bounds.Min)

		assert.Equal(t, 2, Filter(huge, DefaultSelection(huge)).Len())
	})
}

func TestFilter(t *testing.T) {
	table := leadTable(
		lead("fb", "sale", 100, day("2024-01-15")),
		lead("fb", "promo", 60, day("2024-01-16")),
		lead("ig", "sale", 200, nil),
		lead("ig", "promo", 10, day("2024-01-15")),
	)

	tests := []struct {
		name string
		sel  domain.FilterSelection
		want []int
	}{
		{"empty sets pass through", domain.FilterSelection{DepositMin: 0, DepositMax: 1000}, []int{0, 1, 2, 3}},
		{"range is inclusive", domain.FilterSelection{DepositMin: 60, DepositMax: 200}, []int{0, 1, 2}},
		{"range always applies", domain.FilterSelection{DepositMin: 500, DepositMax: 600}, nil},
		{"source set", domain.FilterSelection{Sources: []string{"ig"}, DepositMax: 1000}, []int{2, 3}},
		{"sets are conjunctive", domain.FilterSelection{Sources: []string{"fb"}, Campaigns: []string{"sale"}, DepositMax: 1000}, []int{0}},
		{"unknown value matches nothing", domain.FilterSelection{Campaigns: []string{"none"}, DepositMax: 1000}, nil},
		{
			"dates compare calendar days and skip missing dates",
			domain.FilterSelection{Dates: []time.Time{time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)}, DepositMax: 1000},
			[]int{0, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := Filter(table, tt.sel)

			var want []domain.Record
			for _, i := range tt.want {
				want = append(want, table.Records[i])
			}
			assert.Equal(t, len(want), filtered.Len())
			for i := range want {
				assert.Equal(t, want[i], filtered.Records[i])
			}
			assert.Equal(t, table.Columns, filtered.Columns)
		})
	}

	assert.Equal(t, 4, table.Len(), "input is not modified")
}

func TestSummarize_DateGrouping(t *testing.T) {
	table := leadTable(
		lead("ig", "promo", 5, day("2024-01-16")),
		lead("fb", "sale", 10, day("2024-01-16")),
		lead("fb", "sale", 20, nil),
		lead("fb", "sale", 30, day("2024-01-15")),
		lead("fb", "sale", 40, day("2024-01-16")),
	)

	rows := Summarize(table, domain.GroupByDateSourceCampaign)

	assert.Equal(t, []domain.SummaryRow{
		{Key: []string{"", "fb", "sale"}, LeadCount: 1, DepositSum: 20},
		{Key: []string{"2024-01-15", "fb", "sale"}, LeadCount: 1, DepositSum: 30},
		{Key: []string{"2024-01-16", "fb", "sale"}, LeadCount: 2, DepositSum: 50},
		{Key: []string{"2024-01-16", "ig", "promo"}, LeadCount: 1, DepositSum: 5},
		{Key: []string{"TOTAL", "TOTAL", "TOTAL"}, LeadCount: 5, DepositSum: 105, Total: true},
	}, rows)
}

func TestSummarize_GrandTotalEqualsSum(t *testing.T) {
	table := leadTable(
		lead("a", "x", 0.1, nil),
		lead("b", "x", 0.2, nil),
		lead("a", "y", 0.3, nil),
		lead("a", "x", 1.5, nil),
	)

	rows := Summarize(table, domain.GroupBySourceCampaign)
	require.NotEmpty(t, rows)

	total := rows[len(rows)-1]
	require.True(t, total.Total)

	var count int
	var sum float64
	for _, row := range rows[:len(rows)-1] {
		assert.False(t, row.Total)
		count += row.LeadCount
		sum += row.DepositSum
	}
	assert.Equal(t, count, total.LeadCount)
	assert.InDelta(t, sum, total.DepositSum, 1e-9)
}

func TestEmptyInputs(t *testing.T) {
	for name, table := range map[string]*domain.LeadTable{"empty": leadTable(), "nil": nil} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, domain.DepositRange{Min: 0, Max: 1}, DepositBounds(table))

			opts := Options(table)
			assert.Empty(t, opts.Sources)
			assert.Empty(t, opts.Dates)

			result := Run(table, DefaultSelection(table), domain.GroupByDateSourceCampaign)
			assert.Equal(t, []domain.SummaryRow{
				{Key: []string{"TOTAL", "TOTAL", "TOTAL"}, Total: true},
			}, result.Summary)
			assert.Zero(t, result.Filtered.Len())
		})
	}
}

func TestOptions(t *testing.T) {
	table := leadTable(
		lead("ig", "sale", 10, day("2024-01-16")),
		lead("fb", "promo", 5, nil),
		lead("fb", "sale", 30, day("2024-01-15")),
	)

	opts := Options(table)
	assert.Equal(t, []string{"fb", "ig"}, opts.Sources)
	assert.Equal(t, []string{"promo", "sale"}, opts.Campaigns)
	assert.Equal(t, []string{"2024-01-15", "2024-01-16"}, opts.Dates)
	assert.Equal(t, domain.DepositRange{Min: 5, Max: 30}, opts.Deposit)

	sel := DefaultSelection(table)
	assert.Empty(t, sel.Sources)
	assert.Equal(t, 5.0, sel.DepositMin)
	assert.Equal(t, 30.0, sel.DepositMax)
}

func TestSummarizer_Run(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummarizer(slog.New(slog.NewJSONHandler(&buf, nil)))

	result := s.Run(context.Background(), scenarioTable(), domain.FilterSelection{DepositMax: 1000}, domain.GroupBySourceCampaign)

	total, ok := result.GrandTotal()
	require.True(t, ok)
	assert.Equal(t, 3, total.LeadCount)
	assert.Contains(t, buf.String(), `"msg":"report computed"`)
	assert.Contains(t, buf.String(), `"groups":2`)
	assert.Contains(t, buf.String(), `"group_by":"source,campaign"`)
}

func TestRun_EndToEndFromCSV(t *testing.T) {
	table, _ := normalize(t, scenarioCSV)

	result := Run(table, domain.FilterSelection{
		Dates:      []time.Time{*day("2024-01-15")},
		DepositMin: 0,
		DepositMax: 1000,
	}, domain.GroupByDateSourceCampaign)

	assert.Equal(t, []domain.SummaryRow{
		{Key: []string{"2024-01-15", "fb", "sale"}, LeadCount: 1, DepositSum: 100},
		{Key: []string{"TOTAL", "TOTAL", "TOTAL"}, LeadCount: 1, DepositSum: 100, Total: true},
	}, result.Summary)
}
