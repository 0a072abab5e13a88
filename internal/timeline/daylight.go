package timeline

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Point is a bucket annotated with the sun position at its midpoint
type Point struct {
	Bucket
	SunAltitude float64 `json:"sunAltitude"` // degrees
	Daylight    bool    `json:"daylight"`
}

// AnnotateDaylight marks every bucket with the sun altitude at its midpoint
// for the facility coordinates, so timelines can shade night hours. Bucket
// starts carry the record wall clock, which is read in loc; nil means UTC.
func AnnotateDaylight(buckets []Bucket, width int64, lat, lon float64, loc *time.Location) []Point {
	if loc == nil {
		loc = time.UTC
	}
	points := make([]Point, 0, len(buckets))
	half := time.Duration(width/2) * time.Second

	for _, b := range buckets {
		position := suncalc.GetPosition(wallClock(b.Start.Add(half), loc), lat, lon)
		altitude := position.Altitude * (180.0 / math.Pi)

		points = append(points, Point{
			Bucket:      b,
			SunAltitude: math.Round(altitude*10) / 10,
			Daylight:    altitude > 0,
		})
	}

	return points
}

// wallClock returns the instant at which loc shows the clock reading of t
func wallClock(t time.Time, loc *time.Location) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
