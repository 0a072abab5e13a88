package records

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Region is a named rectangular zone. Corner coordinates are fractions of
// the floor-plan width and height.
type Region struct {
	ID                int               `json:"id"`
	UUID              string            `json:"uuid"`
	Name              string            `json:"name"`
	TopLeftX          float64           `json:"position_top_left_x"`
	TopLeftY          float64           `json:"position_top_left_y"`
	BottomRightX      float64           `json:"position_bottom_right_x"`
	BottomRightY      float64           `json:"position_bottom_right_y"`
	ExcludeFromEval   bool              `json:"exclude_from_eval"`
	RegionLabelUUID   *string           `json:"region_label_uuid"`
	SpecialActivities []json.RawMessage `json:"special_activities"`
}

// Width returns the region width as a fraction of the plan width
func (r Region) Width() float64 {
	return r.BottomRightX - r.TopLeftX
}

// Height returns the region height as a fraction of the plan height
func (r Region) Height() float64 {
	return r.BottomRightY - r.TopLeftY
}

// Center returns the centre point as plan fractions
func (r Region) Center() (float64, float64) {
	return r.TopLeftX + r.Width()/2, r.TopLeftY + r.Height()/2
}

// Beacon is a fixed positioning fixture. It is rendered but never aggregated.
type Beacon struct {
	ID         int     `json:"id"`
	UUID       string  `json:"uuid"`
	Comment    string  `json:"comment"`
	PositionX  float64 `json:"position_x"`
	PositionY  float64 `json:"position_y"`
	RegionUUID string  `json:"region_uuid"`
}

// LayoutData is the floor-plan metadata
type LayoutData struct {
	UUID        string   `json:"uuid"`
	WidthPixel  float64  `json:"width_pixel"`
	HeightPixel float64  `json:"height_pixel"`
	Regions     []Region `json:"regions"`
	Beacons     []Beacon `json:"beacons"`
}

// RegionByName finds a region by its name. Records may reference names the
// layout does not know; callers skip those.
func (l *LayoutData) RegionByName(name string) (Region, bool) {
	if l == nil {
		return Region{}, false
	}
	for _, r := range l.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Validate reports every invariant violation found in the layout
func (l *LayoutData) Validate() error {
	if l == nil {
		return fmt.Errorf("layout is nil")
	}

	var errs []error
	if l.WidthPixel <= 0 || l.HeightPixel <= 0 {
		errs = append(errs, fmt.Errorf("layout pixel size %.0fx%.0f must be positive", l.WidthPixel, l.HeightPixel))
	}

	for _, r := range l.Regions {
		if r.TopLeftX >= r.BottomRightX || r.TopLeftY >= r.BottomRightY {
			errs = append(errs, fmt.Errorf("region %q: top-left corner must be above and left of bottom-right", r.Name))
		}
		if !inUnitRange(r.TopLeftX) || !inUnitRange(r.TopLeftY) || !inUnitRange(r.BottomRightX) || !inUnitRange(r.BottomRightY) {
			errs = append(errs, fmt.Errorf("region %q: coordinates must be within [0,1]", r.Name))
		}
		if _, err := uuid.Parse(r.UUID); err != nil {
			errs = append(errs, fmt.Errorf("region %q: invalid uuid %q: %w", r.Name, r.UUID, err))
		}
	}

	for _, b := range l.Beacons {
		if _, err := uuid.Parse(b.UUID); err != nil {
			errs = append(errs, fmt.Errorf("beacon %d: invalid uuid %q: %w", b.ID, b.UUID, err))
		}
	}

	return errors.Join(errs...)
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
