package occupancy

import (
	"slices"

	"github.com/saaga0h/floorplan-dashboard/internal/aggregate"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

// ActiveEntitiesAt returns the records whose interval contains t, inclusive
// on both ends, in input order
func ActiveEntitiesAt(recs []records.IntervalRecord, t int64) []records.IntervalRecord {
	out := make([]records.IntervalRecord, 0)
	for _, r := range recs {
		if r.Contains(t) {
			out = append(out, r)
		}
	}
	return out
}

// OccupancyAt sums the durations of the records active at t by region
func OccupancyAt(recs []records.IntervalRecord, t int64) map[string]int64 {
	return aggregate.SumDurationByRegion(ActiveEntitiesAt(recs, t))
}

// Frames returns every distinct start and end time in ascending order
func Frames(recs []records.IntervalRecord) []int64 {
	times := make([]int64, 0, 2*len(recs))
	for _, r := range recs {
		times = append(times, r.StartTime, r.EndTime)
	}
	slices.Sort(times)
	return slices.Compact(times)
}

// DateAt returns the date of the first record active at t, or "" when none is
func DateAt(recs []records.IntervalRecord, t int64) string {
	for _, r := range recs {
		if r.Contains(t) {
			return r.Date
		}
	}
	return ""
}
