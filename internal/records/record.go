package records

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by IntervalRecord.Date
const DateLayout = "2006-01-02"

// IntervalRecord is one contiguous span where one entity performed one
// activity in one region
type IntervalRecord struct {
	EntityID  string
	Date      string
	StartTime int64 // seconds since local midnight
	EndTime   int64 // seconds since local midnight
	Region    string
	Activity  string
	Duration  int64 // seconds
}

// recordJSON is the wire shape of an interval record
type recordJSON struct {
	Date               string `json:"date"`
	ID                 string `json:"id"`
	StartTime          int64  `json:"startTime"`
	EndTime            int64  `json:"endTime"`
	StartTimeFormatted string `json:"startTimeFormatted"`
	EndTimeFormatted   string `json:"endTimeFormatted"`
	Region             string `json:"region"`
	Activity           string `json:"activity"`
	Duration           int64  `json:"duration"`
}

// MarshalJSON emits the record with the HH:MM:SS mirrors derived from the
// numeric fields
func (r IntervalRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Date:               r.Date,
		ID:                 r.EntityID,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		StartTimeFormatted: r.StartClock(),
		EndTimeFormatted:   r.EndClock(),
		Region:             r.Region,
		Activity:           r.Activity,
		Duration:           r.Duration,
	})
}

// UnmarshalJSON accepts the wire shape; the formatted mirrors are ignored
// because they are always derivable from StartTime/EndTime
func (r *IntervalRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = IntervalRecord{
		EntityID:  raw.ID,
		Date:      raw.Date,
		StartTime: raw.StartTime,
		EndTime:   raw.EndTime,
		Region:    raw.Region,
		Activity:  raw.Activity,
		Duration:  raw.Duration,
	}
	return nil
}

// StartClock returns StartTime as HH:MM:SS
func (r IntervalRecord) StartClock() string {
	return FormatClock(r.StartTime)
}

// EndClock returns EndTime as HH:MM:SS
func (r IntervalRecord) EndClock() string {
	return FormatClock(r.EndTime)
}

// Contains reports whether t falls inside [StartTime, EndTime], both ends inclusive
func (r IntervalRecord) Contains(t int64) bool {
	return r.StartTime <= t && r.EndTime >= t
}

// Day parses Date as midnight UTC
func (r IntervalRecord) Day() (time.Time, error) {
	day, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid record date %q: %w", r.Date, err)
	}
	return day, nil
}

// Validate checks the record invariants. Violations are data-quality issues
// to be reported at ingestion; nothing in the pipeline repairs them.
func (r IntervalRecord) Validate() error {
	if r.EntityID == "" {
		return fmt.Errorf("record has no entity id")
	}
	if _, err := r.Day(); err != nil {
		return err
	}
	if r.EndTime < r.StartTime {
		return fmt.Errorf("record %s %s: endTime %d before startTime %d",
			r.EntityID, r.Date, r.EndTime, r.StartTime)
	}
	if r.Duration != r.EndTime-r.StartTime {
		return fmt.Errorf("record %s %s: duration %d does not match endTime-startTime %d",
			r.EntityID, r.Date, r.Duration, r.EndTime-r.StartTime)
	}
	return nil
}

// FormatClock renders seconds since midnight as HH:MM:SS. Values past
// 24h keep counting hours rather than wrapping.
func FormatClock(seconds int64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, secs)
}
