package aggregate

import (
	"sort"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

// Transition counts how often entities moved from Source to Target between
// consecutive intervals
type Transition struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// Share is one ranked entry of a grouped sum
type Share struct {
	Key     string  `json:"key"`
	Value   int64   `json:"value"`
	Percent float64 `json:"percent"`
}

// GroupBy buckets records by key, preserving input order within each group
func GroupBy(recs []records.IntervalRecord, key func(records.IntervalRecord) string) map[string][]records.IntervalRecord {
	grouped := make(map[string][]records.IntervalRecord)
	for _, r := range recs {
		k := key(r)
		grouped[k] = append(grouped[k], r)
	}
	return grouped
}

// SumDurationByRegion sums durations grouped by region
func SumDurationByRegion(recs []records.IntervalRecord) map[string]int64 {
	return sumBy(recs, func(r records.IntervalRecord) string { return r.Region })
}

// SumDurationByActivity sums durations grouped by activity
func SumDurationByActivity(recs []records.IntervalRecord) map[string]int64 {
	return sumBy(recs, func(r records.IntervalRecord) string { return r.Activity })
}

// SumDurationByEntity sums durations grouped by entity id
func SumDurationByEntity(recs []records.IntervalRecord) map[string]int64 {
	return sumBy(recs, func(r records.IntervalRecord) string { return r.EntityID })
}

func sumBy(recs []records.IntervalRecord, key func(records.IntervalRecord) string) map[string]int64 {
	result := make(map[string]int64)
	for _, r := range recs {
		result[key(r)] += r.Duration
	}
	return result
}

// CountTransitions counts region changes between consecutive intervals of
// each entity. An entity's records are ordered by StartTime; records sharing
// a StartTime keep the order in which they were received.
func CountTransitions(recs []records.IntervalRecord) []Transition {
	counts := make(map[[2]string]int)

	for _, group := range GroupBy(recs, func(r records.IntervalRecord) string { return r.EntityID }) {
		sorted := make([]records.IntervalRecord, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].StartTime < sorted[j].StartTime
		})

		for i := 0; i < len(sorted)-1; i++ {
			source := sorted[i].Region
			target := sorted[i+1].Region
			if source != target {
				counts[[2]string{source, target}]++
			}
		}
	}

	transitions := make([]Transition, 0, len(counts))
	for pair, count := range counts {
		transitions = append(transitions, Transition{Source: pair[0], Target: pair[1], Count: count})
	}
	sort.Slice(transitions, func(i, j int) bool {
		if transitions[i].Source != transitions[j].Source {
			return transitions[i].Source < transitions[j].Source
		}
		return transitions[i].Target < transitions[j].Target
	})

	return transitions
}

// Total sums every value of a grouped result
func Total(sums map[string]int64) int64 {
	var total int64
	for _, v := range sums {
		total += v
	}
	return total
}

// Ranked orders a grouped sum by value descending (ties by key) and attaches
// each entry's share of the total in percent
func Ranked(sums map[string]int64) []Share {
	total := Total(sums)

	shares := make([]Share, 0, len(sums))
	for k, v := range sums {
		share := Share{Key: k, Value: v}
		if total > 0 {
			share.Percent = float64(v) / float64(total) * 100
		}
		shares = append(shares, share)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Value != shares[j].Value {
			return shares[i].Value > shares[j].Value
		}
		return shares[i].Key < shares[j].Key
	})

	return shares
}
