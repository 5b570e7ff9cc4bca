package dataprocessing

import (
	"math"
	"sort"

	"leadpulse/pkg/contracts/domain"
)

// DepositBounds returns the inclusive deposit range of the whole table. A
// single-valued range is widened by one unit so range controls never
// collapse; an empty table yields [0, 1].
func DepositBounds(t *domain.LeadTable) domain.DepositRange {
	if t.Len() == 0 {
		return domain.DepositRange{Min: 0, Max: 1}
	}

	r := domain.DepositRange{Min: t.Records[0].DepositTotal, Max: t.Records[0].DepositTotal}
	for _, rec := range t.Records[1:] {
		if rec.DepositTotal < r.Min {
			r.Min = rec.DepositTotal
		}
		if rec.DepositTotal > r.Max {
			r.Max = rec.DepositTotal
		}
	}
	if r.Min == r.Max {
		r.Max = r.Min + 1
		if r.Max == r.Min {
			// beyond 2^53 a unit step is lost to rounding
			r.Max = math.Nextafter(r.Min, math.Inf(1))
		}
	}
	return r
}

// Options lists the distinct sources, campaigns and join dates of the table
// in ascending order, with the deposit bounds.
func Options(t *domain.LeadTable) domain.FilterOptions {
	sources := make(map[string]struct{})
	campaigns := make(map[string]struct{})
	dates := make(map[string]struct{})

	if t != nil {
		for _, rec := range t.Records {
			sources[rec.Source] = struct{}{}
			campaigns[rec.Campaign] = struct{}{}
			if d := rec.JoinDate(); d != "" {
				dates[d] = struct{}{}
			}
		}
	}

	return domain.FilterOptions{
		Sources:   sortedKeys(sources),
		Campaigns: sortedKeys(campaigns),
		Dates:     sortedKeys(dates),
		Deposit:   DepositBounds(t),
	}
}

// DefaultSelection selects everything: empty sets and the full deposit range.
func DefaultSelection(t *domain.LeadTable) domain.FilterSelection {
	bounds := DepositBounds(t)
	return domain.FilterSelection{DepositMin: bounds.Min, DepositMax: bounds.Max}
}

// Filter keeps the records inside the inclusive deposit range whose source,
// campaign and join date belong to the selected sets. An empty set does not
// filter its dimension. A record without a join date never matches a
// non-empty date set. Record order is preserved.
func Filter(t *domain.LeadTable, sel domain.FilterSelection) *domain.LeadTable {
	if t == nil {
		return &domain.LeadTable{}
	}

	sources := toSet(sel.Sources)
	campaigns := toSet(sel.Campaigns)
	dates := make(map[string]struct{}, len(sel.Dates))
	for _, d := range sel.Dates {
		dates[d.Format(domain.DateLayout)] = struct{}{}
	}

	kept := make([]domain.Record, 0, len(t.Records))
	for _, rec := range t.Records {
		if rec.DepositTotal < sel.DepositMin || rec.DepositTotal > sel.DepositMax {
			continue
		}
		if !member(sources, rec.Source) || !member(campaigns, rec.Campaign) {
			continue
		}
		if len(dates) > 0 {
			if _, ok := dates[rec.JoinDate()]; !ok || rec.JoinedAt == nil {
				continue
			}
		}
		kept = append(kept, rec)
	}
	return t.WithRecords(kept)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// member treats an empty set as matching everything.
func member(set map[string]struct{}, v string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[v]
	return ok
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
