package occupancy

import (
	"strings"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

const legendStops = 10

// RegionCell is a layout region in pixel space with its current occupancy
type RegionCell struct {
	ID        int     `json:"id"`
	UUID      string  `json:"uuid"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	CenterX   float64 `json:"centerX"`
	CenterY   float64 `json:"centerY"`
	Occupancy int64   `json:"occupancy"`
	Hue       float64 `json:"hue"`
}

// BeaconPoint is a beacon in pixel space
type BeaconPoint struct {
	UUID    string  `json:"uuid"`
	Comment string  `json:"comment"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// Marker places an active entity at the centre of its region
type Marker struct {
	EntityID string  `json:"entityId"`
	Label    string  `json:"label"`
	Region   string  `json:"region"`
	Activity string  `json:"activity"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// LegendStop is one swatch of the occupancy colour legend
type LegendStop struct {
	Value float64 `json:"value"`
	Hue   float64 `json:"hue"`
}

// MapView is everything needed to draw the occupancy map at one instant
type MapView struct {
	Available    bool          `json:"available"`
	Time         int64         `json:"time"`
	Clock        string        `json:"clock"`
	Date         string        `json:"date"`
	Width        float64       `json:"width"`
	Height       float64       `json:"height"`
	Regions      []RegionCell  `json:"regions"`
	Beacons      []BeaconPoint `json:"beacons"`
	Markers      []Marker      `json:"markers"`
	MaxOccupancy int64         `json:"maxOccupancy"`
	Legend       []LegendStop  `json:"legend"`
}

// HeatHue maps an occupancy value onto an HSL hue: 240 (blue) when empty
// down to 0 (red) at or above limit
func HeatHue(value, limit float64) float64 {
	if limit <= 0 {
		limit = 1
	}
	n := value / limit
	if n > 1 {
		n = 1
	}
	if n < 0 {
		n = 0
	}
	return (1 - n) * 240
}

// MarkerLabel is the short marker text: the second dash-separated part of
// the entity id, or the whole id when it has no dash
func MarkerLabel(entityID string) string {
	parts := strings.Split(entityID, "-")
	if len(parts) < 2 {
		return entityID
	}
	return parts[1]
}

// BuildMapView renders the occupancy map at t. Every layout region gets a
// cell; active records whose region is not in the layout get no marker.
func BuildMapView(layout *records.LayoutData, recs []records.IntervalRecord, t int64) MapView {
	if layout == nil {
		return MapView{Available: false, Time: t, Clock: records.FormatClock(t)}
	}

	active := ActiveEntitiesAt(recs, t)
	occupancy := OccupancyAt(recs, t)

	view := MapView{
		Available:    true,
		Time:         t,
		Clock:        records.FormatClock(t),
		Date:         DateAt(recs, t),
		Width:        layout.WidthPixel,
		Height:       layout.HeightPixel,
		Regions:      make([]RegionCell, 0, len(layout.Regions)),
		Beacons:      make([]BeaconPoint, 0, len(layout.Beacons)),
		Markers:      make([]Marker, 0, len(active)),
		MaxOccupancy: 1,
	}

	for _, v := range occupancy {
		if v > view.MaxOccupancy {
			view.MaxOccupancy = v
		}
	}
	scale := float64(view.MaxOccupancy)

	for _, r := range layout.Regions {
		cx, cy := r.Center()
		value := occupancy[r.Name]
		view.Regions = append(view.Regions, RegionCell{
			ID:        r.ID,
			UUID:      r.UUID,
			Name:      r.Name,
			X:         r.TopLeftX * layout.WidthPixel,
			Y:         r.TopLeftY * layout.HeightPixel,
			Width:     r.Width() * layout.WidthPixel,
			Height:    r.Height() * layout.HeightPixel,
			CenterX:   cx * layout.WidthPixel,
			CenterY:   cy * layout.HeightPixel,
			Occupancy: value,
			Hue:       HeatHue(float64(value), scale),
		})
	}

	for _, b := range layout.Beacons {
		view.Beacons = append(view.Beacons, BeaconPoint{
			UUID:    b.UUID,
			Comment: b.Comment,
			X:       b.PositionX * layout.WidthPixel,
			Y:       b.PositionY * layout.HeightPixel,
		})
	}

	for _, rec := range active {
		region, ok := layout.RegionByName(rec.Region)
		if !ok {
			continue
		}
		cx, cy := region.Center()
		view.Markers = append(view.Markers, Marker{
			EntityID: rec.EntityID,
			Label:    MarkerLabel(rec.EntityID),
			Region:   rec.Region,
			Activity: rec.Activity,
			X:        cx * layout.WidthPixel,
			Y:        cy * layout.HeightPixel,
		})
	}

	view.Legend = Legend(scale)
	return view
}

// Legend returns evenly spaced colour stops from 0 to limit
func Legend(limit float64) []LegendStop {
	stops := make([]LegendStop, legendStops)
	for i := range stops {
		v := float64(i) * limit / float64(legendStops-1)
		stops[i] = LegendStop{Value: v, Hue: HeatHue(v, limit)}
	}
	return stops
}
