package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

// LabelLayout formats a bucket start for chart axes
const LabelLayout = "2006-01-02 15:04"

// MinWidth is the narrowest bucket width in seconds offered to API callers
const MinWidth int64 = 60

// Bucket holds the per-activity seconds that fall inside one fixed-width window
type Bucket struct {
	Start     time.Time        `json:"start"`
	Label     string           `json:"time"`
	Durations map[string]int64 `json:"durations"`
}

// Value returns the seconds recorded for activity, zero when absent
func (b Bucket) Value(activity string) int64 {
	return b.Durations[activity]
}

// Grouping is a named bucket width offered to timeline consumers
type Grouping string

const (
	GroupingHour Grouping = "hour"
	GroupingDay  Grouping = "day"
)

// Width returns the bucket width in seconds
func (g Grouping) Width() int64 {
	switch g {
	case GroupingDay:
		return 86400
	default:
		return 3600
	}
}

// ParseGrouping accepts "hour"/"hourly" and "day"/"daily"
func ParseGrouping(s string) (Grouping, error) {
	switch s {
	case "", "hour", "hourly":
		return GroupingHour, nil
	case "day", "daily":
		return GroupingDay, nil
	default:
		return "", fmt.Errorf("unknown time grouping %q (must be hour or day)", s)
	}
}

// BucketByTime splits every record across the width-aligned buckets it
// overlaps, allocating to each bucket exactly the seconds that fall inside
// it. Buckets are keyed by the instant they start (record date plus offset)
// so different days never collide. Only buckets that received time are
// returned, ordered by start. Records with an unparsable date are skipped.
//
// Bucket totals match each record's Duration only for records that pass
// IntervalRecord.Validate. Buckets allocate EndTime-StartTime whatever
// Duration says, and inverted or undated records contribute nothing.
func BucketByTime(recs []records.IntervalRecord, width int64) []Bucket {
	if width <= 0 {
		return []Bucket{}
	}

	byStart := make(map[int64]*Bucket)

	for _, r := range recs {
		if r.EndTime <= r.StartTime {
			continue
		}

		day, err := r.Day()
		if err != nil {
			continue
		}
		midnight := day.Unix()

		first := floorDiv(r.StartTime, width) * width
		last := ceilDiv(r.EndTime, width) * width

		for b := first; b < last; b += width {
			overlap := min(r.EndTime, b+width) - max(r.StartTime, b)
			if overlap <= 0 {
				continue
			}

			key := midnight + b
			bucket, ok := byStart[key]
			if !ok {
				start := time.Unix(key, 0).UTC()
				bucket = &Bucket{
					Start:     start,
					Label:     start.Format(LabelLayout),
					Durations: make(map[string]int64),
				}
				byStart[key] = bucket
			}
			bucket.Durations[r.Activity] += overlap
		}
	}

	buckets := make([]Bucket, 0, len(byStart))
	for _, b := range byStart {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})

	return buckets
}

// Activities returns the sorted set of activities present in any bucket
func Activities(buckets []Bucket) []string {
	seen := make(map[string]bool)
	for _, b := range buckets {
		for activity := range b.Durations {
			seen[activity] = true
		}
	}

	activities := make([]string, 0, len(seen))
	for a := range seen {
		activities = append(activities, a)
	}
	sort.Strings(activities)
	return activities
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
