package occupancy

import (
	"testing"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id, region string, start, end int64) records.IntervalRecord {
	return records.IntervalRecord{
		EntityID:  id,
		Date:      "2024-01-01",
		StartTime: start,
		EndTime:   end,
		Region:    region,
		Activity:  "Desk Work",
		Duration:  end - start,
	}
}

func testLayout() *records.LayoutData {
	return &records.LayoutData{
		UUID:        "plan",
		WidthPixel:  1000,
		HeightPixel: 500,
		Regions: []records.Region{
			{ID: 1, UUID: "r-office", Name: "Office", TopLeftX: 0, TopLeftY: 0, BottomRightX: 0.5, BottomRightY: 1},
			{ID: 2, UUID: "r-kitchen", Name: "Kitchen", TopLeftX: 0.5, TopLeftY: 0, BottomRightX: 1, BottomRightY: 0.5},
		},
		Beacons: []records.Beacon{
			{ID: 1, UUID: "b-1", PositionX: 0.1, PositionY: 0.2},
		},
	}
}

func TestOccupancyAt(t *testing.T) {
	tests := []struct {
		name string
		recs []records.IntervalRecord
		t    int64
		want map[string]int64
	}{
		{
			name: "same region sums",
			recs: []records.IntervalRecord{rec("emp-1", "Office", 4000, 6000), rec("emp-2", "Office", 5000, 5500)},
			t:    5000,
			want: map[string]int64{"Office": 2500},
		},
		{
			name: "different regions",
			recs: []records.IntervalRecord{rec("emp-1", "Office", 4000, 6000), rec("emp-2", "Kitchen", 4500, 5000)},
			t:    5000,
			want: map[string]int64{"Office": 2000, "Kitchen": 500},
		},
		{
			name: "inclusive end",
			recs: []records.IntervalRecord{rec("emp-1", "Office", 4000, 5000)},
			t:    5000,
			want: map[string]int64{"Office": 1000},
		},
		{
			name: "nothing active",
			recs: []records.IntervalRecord{rec("emp-1", "Office", 4000, 5000)},
			t:    5001,
			want: map[string]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OccupancyAt(tt.recs, tt.t))
			assert.Equal(t, tt.want, OccupancyAt(tt.recs, tt.t), "repeated calls agree")
		})
	}
}

func TestActiveEntitiesAt(t *testing.T) {
	recs := []records.IntervalRecord{
		rec("emp-1", "Office", 100, 200),
		rec("emp-2", "Office", 150, 300),
		rec("emp-3", "Kitchen", 250, 400),
	}

	active := ActiveEntitiesAt(recs, 200)
	require.Len(t, active, 2)
	assert.Equal(t, "emp-1", active[0].EntityID)
	assert.Equal(t, "emp-2", active[1].EntityID)

	assert.Empty(t, ActiveEntitiesAt(recs, 50))
	assert.Empty(t, ActiveEntitiesAt(nil, 50))
}

func TestFrames(t *testing.T) {
	recs := []records.IntervalRecord{
		rec("emp-1", "Office", 300, 500),
		rec("emp-2", "Office", 100, 300),
		rec("emp-3", "Kitchen", 100, 100),
	}
	assert.Equal(t, []int64{100, 300, 500}, Frames(recs))
	assert.Empty(t, Frames(nil))
}

func TestDateAt(t *testing.T) {
	recs := []records.IntervalRecord{rec("emp-1", "Office", 100, 200)}
	recs[0].Date = "2024-03-04"
	assert.Equal(t, "2024-03-04", DateAt(recs, 150))
	assert.Equal(t, "", DateAt(recs, 250))
}

func TestHeatHue(t *testing.T) {
	assert.InDelta(t, 240, HeatHue(0, 100), 1e-9)
	assert.InDelta(t, 120, HeatHue(50, 100), 1e-9)
	assert.InDelta(t, 0, HeatHue(100, 100), 1e-9)
	assert.InDelta(t, 0, HeatHue(500, 100), 1e-9)
	assert.InDelta(t, 240, HeatHue(0, 0), 1e-9)
}

func TestMarkerLabel(t *testing.T) {
	assert.Equal(t, "042", MarkerLabel("emp-042"))
	assert.Equal(t, "b", MarkerLabel("a-b-c"))
	assert.Equal(t, "solo", MarkerLabel("solo"))
}

func TestBuildMapViewWithoutLayout(t *testing.T) {
	view := BuildMapView(nil, []records.IntervalRecord{rec("emp-1", "Office", 0, 10)}, 5)
	assert.False(t, view.Available)
	assert.Empty(t, view.Regions)
	assert.Empty(t, view.Markers)
}

func TestBuildMapView(t *testing.T) {
	recs := []records.IntervalRecord{
		rec("emp-1", "Office", 1000, 3000),
		rec("emp-2", "Kitchen", 1500, 2500),
		rec("emp-3", "Roof", 1000, 5000),
	}

	view := BuildMapView(testLayout(), recs, 2000)
	require.True(t, view.Available)
	assert.Equal(t, "00:33:20", view.Clock)
	assert.Equal(t, "2024-01-01", view.Date)
	assert.Equal(t, int64(4000), view.MaxOccupancy)

	require.Len(t, view.Regions, 2)
	office := view.Regions[0]
	assert.Equal(t, "Office", office.Name)
	assert.InDelta(t, 500, office.Width, 1e-9)
	assert.InDelta(t, 500, office.Height, 1e-9)
	assert.InDelta(t, 250, office.CenterX, 1e-9)
	assert.Equal(t, int64(2000), office.Occupancy)
	assert.InDelta(t, 120, office.Hue, 1e-9)

	kitchen := view.Regions[1]
	assert.InDelta(t, 500, kitchen.X, 1e-9)
	assert.Equal(t, int64(1000), kitchen.Occupancy)

	require.Len(t, view.Beacons, 1)
	assert.InDelta(t, 100, view.Beacons[0].X, 1e-9)
	assert.InDelta(t, 100, view.Beacons[0].Y, 1e-9)

	require.Len(t, view.Markers, 2, "Roof is not in the layout")
	assert.Equal(t, "1", view.Markers[0].Label)
	assert.InDelta(t, 750, view.Markers[1].X, 1e-9)
	assert.InDelta(t, 125, view.Markers[1].Y, 1e-9)

	require.Len(t, view.Legend, 10)
	assert.InDelta(t, 240, view.Legend[0].Hue, 1e-9)
	assert.InDelta(t, 0, view.Legend[9].Hue, 1e-9)
}

func TestBuildMapViewIdleMinimumScale(t *testing.T) {
	view := BuildMapView(testLayout(), nil, 0)
	assert.Equal(t, int64(1), view.MaxOccupancy)
	for _, cell := range view.Regions {
		assert.Equal(t, int64(0), cell.Occupancy)
		assert.InDelta(t, 240, cell.Hue, 1e-9)
	}
}
