package aggregate

import "github.com/saaga0h/floorplan-dashboard/internal/records"

// HeatmapCell is one layout region with its accumulated time
type HeatmapCell struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Value int64   `json:"value"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
}

// RegionHeatmap produces one cell per layout region in layout order. Regions
// without records get zero; record regions unknown to the layout are dropped.
func RegionHeatmap(recs []records.IntervalRecord, layout *records.LayoutData) []HeatmapCell {
	if layout == nil {
		return []HeatmapCell{}
	}

	byRegion := SumDurationByRegion(recs)

	cells := make([]HeatmapCell, 0, len(layout.Regions))
	for _, region := range layout.Regions {
		cells = append(cells, HeatmapCell{
			ID:    region.ID,
			Name:  region.Name,
			Value: byRegion[region.Name],
			X1:    region.TopLeftX,
			Y1:    region.TopLeftY,
			X2:    region.BottomRightX,
			Y2:    region.BottomRightY,
		})
	}

	return cells
}
