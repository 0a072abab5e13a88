package filter

import (
	"slices"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

// Criteria is the active filter selection. A nil DateRange and an empty
// slice both mean "no restriction" for that dimension.
type Criteria struct {
	DateRange  *records.DateRange `json:"dateRange"`
	Entities   []string           `json:"entities"`
	Regions    []string           `json:"regions"`
	Activities []string           `json:"activities"`
}

// Clone returns a deep copy
func (c Criteria) Clone() Criteria {
	out := Criteria{
		Entities:   slices.Clone(c.Entities),
		Regions:    slices.Clone(c.Regions),
		Activities: slices.Clone(c.Activities),
	}
	if c.DateRange != nil {
		dr := *c.DateRange
		out.DateRange = &dr
	}
	return out
}

// Apply returns the records matching every criterion, in input order
func (c Criteria) Apply(recs []records.IntervalRecord) []records.IntervalRecord {
	entities := toSet(c.Entities)
	regions := toSet(c.Regions)
	activities := toSet(c.Activities)

	out := make([]records.IntervalRecord, 0, len(recs))
	for _, r := range recs {
		if c.DateRange != nil && (r.Date < c.DateRange.Start || r.Date > c.DateRange.End) {
			continue
		}
		if entities != nil && !entities[r.EntityID] {
			continue
		}
		if regions != nil && !regions[r.Region] {
			continue
		}
		if activities != nil && !activities[r.Activity] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Full returns the criteria selecting everything in data. An empty dataset
// has no date range.
func Full(data records.TimeSeriesData) Criteria {
	c := Criteria{
		Entities:   records.DistinctEntities(data.Records),
		Regions:    records.DistinctRegions(data.Records),
		Activities: records.DistinctActivities(data.Records),
	}
	if len(data.Records) > 0 {
		dr := data.Metadata.DateRange
		c.DateRange = &dr
	}
	return c
}

// toSet returns nil for an empty selection
func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
