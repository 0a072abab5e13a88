package records

// DateRange is an inclusive range of YYYY-MM-DD dates
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Metadata summarises a record collection. It is always derived with
// ComputeMetadata and never edited by hand.
type Metadata struct {
	TotalRecords     int       `json:"totalRecords"`
	DateRange        DateRange `json:"dateRange"`
	UniqueEmployees  int       `json:"uniqueEmployees"`
	UniqueRegions    int       `json:"uniqueRegions"`
	UniqueActivities []string  `json:"uniqueActivities"`
	TotalDuration    int64     `json:"totalDuration"`
}

// TimeSeriesData is the time-series payload shape
type TimeSeriesData struct {
	Metadata Metadata         `json:"metadata"`
	Records  []IntervalRecord `json:"records"`
}

// ComputeMetadata derives the metadata of records
func ComputeMetadata(recs []IntervalRecord) Metadata {
	meta := Metadata{
		TotalRecords:     len(recs),
		UniqueEmployees:  len(DistinctEntities(recs)),
		UniqueRegions:    len(DistinctRegions(recs)),
		UniqueActivities: DistinctActivities(recs),
	}

	for i, r := range recs {
		meta.TotalDuration += r.Duration
		if i == 0 || r.Date < meta.DateRange.Start {
			meta.DateRange.Start = r.Date
		}
		if i == 0 || r.Date > meta.DateRange.End {
			meta.DateRange.End = r.Date
		}
	}

	return meta
}

// Equal reports whether two metadata values describe the same collection
func (m Metadata) Equal(other Metadata) bool {
	if m.TotalRecords != other.TotalRecords ||
		m.DateRange != other.DateRange ||
		m.UniqueEmployees != other.UniqueEmployees ||
		m.UniqueRegions != other.UniqueRegions ||
		m.TotalDuration != other.TotalDuration ||
		len(m.UniqueActivities) != len(other.UniqueActivities) {
		return false
	}

	seen := make(map[string]bool, len(m.UniqueActivities))
	for _, a := range m.UniqueActivities {
		seen[a] = true
	}
	for _, a := range other.UniqueActivities {
		if !seen[a] {
			return false
		}
	}
	return true
}

// DistinctEntities returns entity ids in first-appearance order
func DistinctEntities(recs []IntervalRecord) []string {
	return distinct(recs, func(r IntervalRecord) string { return r.EntityID })
}

// DistinctRegions returns region names in first-appearance order
func DistinctRegions(recs []IntervalRecord) []string {
	return distinct(recs, func(r IntervalRecord) string { return r.Region })
}

// DistinctActivities returns activity labels in first-appearance order
func DistinctActivities(recs []IntervalRecord) []string {
	return distinct(recs, func(r IntervalRecord) string { return r.Activity })
}

func distinct(recs []IntervalRecord, key func(IntervalRecord) string) []string {
	seen := make(map[string]bool)
	values := make([]string, 0)
	for _, r := range recs {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		values = append(values, k)
	}
	return values
}
