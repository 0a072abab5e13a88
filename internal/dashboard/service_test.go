package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/saaga0h/floorplan-dashboard/internal/filter"
	"github.com/saaga0h/floorplan-dashboard/internal/i18n"
	"github.com/saaga0h/floorplan-dashboard/internal/ingest"
	"github.com/saaga0h/floorplan-dashboard/internal/occupancy"
	"github.com/saaga0h/floorplan-dashboard/internal/prefs"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/internal/schedule"
	"github.com/saaga0h/floorplan-dashboard/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uploadJSON = `{
  "metadata": {"totalRecords": 3},
  "records": [
    {"date": "2024-01-01", "id": "emp-1", "startTime": 3600, "endTime": 7200, "region": "kitchen", "activity": "Stand", "duration": 3600},
    {"date": "2024-01-01", "id": "emp-1", "startTime": 7200, "endTime": 9000, "region": "bath", "activity": "Walk", "duration": 1800},
    {"date": "2024-01-01", "id": "emp-2", "startTime": 5400, "endTime": 6000, "region": "kitchen", "activity": "Walk", "duration": 600}
  ]
}`

type fixture struct {
	svc       *Service
	store     *prefs.MemoryStore
	scheduler *schedule.Manual
}

func newFixture(t *testing.T, store *prefs.MemoryStore) fixture {
	t.Helper()
	catalog, err := i18n.Default()
	require.NoError(t, err)

	if store == nil {
		store = prefs.NewMemoryStore()
	}
	m := schedule.NewManual()
	engine := filter.NewEngine(store, nil)
	playback := occupancy.NewPlayback(m, time.Second, nil, nil)
	svc := NewService(engine, catalog, playback, store, Options{BucketWidth: 3600}, nil)
	return fixture{svc: svc, store: store, scheduler: m}
}

func TestQueriesWithoutData(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Metadata()
	assert.ErrorIs(t, err, ErrNoData)
	_, err = f.svc.Layout()
	assert.ErrorIs(t, err, ErrNoLayout)
	_, err = f.svc.Records()
	assert.ErrorIs(t, err, ErrNoData)
	_, err = f.svc.Timeline("", 0, "")
	assert.ErrorIs(t, err, ErrNoData)
	_, err = f.svc.ResetFilters(context.Background())
	assert.ErrorIs(t, err, ErrNoData)

	view, err := f.svc.MapView(nil)
	require.NoError(t, err)
	assert.False(t, view.Available)
}

func TestUploadTimeSeries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	result, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)
	assert.Equal(t, ingest.KindTimeSeries, result.Kind)
	assert.Equal(t, 3, result.Records)
	assert.NotEmpty(t, result.Revision)

	meta, err := f.svc.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 3, meta.TotalRecords)
	assert.Equal(t, int64(6000), meta.TotalDuration)

	assert.Equal(t, 5, f.svc.Playback().Status().FrameCount)
}

func TestUploadRejectsUnknownShape(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Upload(context.Background(), []byte(`{"rows": []}`))
	assert.ErrorIs(t, err, ingest.ErrUnrecognizedShape)
	_, err = f.svc.Upload(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, ingest.ErrMalformedJSON)
}

func TestAggregatesAreLocalized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)

	regions, err := f.svc.RegionUtilization("de")
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "kitchen", regions[0].Key)
	assert.Equal(t, "Küche", regions[0].Label)
	assert.Equal(t, "1 Std 10 Min", regions[0].Duration)
	assert.InDelta(t, 70, regions[0].Percent, 1e-9)

	activities, err := f.svc.ActivityDistribution("en")
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "Stand", activities[0].Label)

	entities, err := f.svc.EntityTotals("")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", entities[0].Key)

	transitions, err := f.svc.Transitions()
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, "kitchen", transitions[0].Source)
	assert.Equal(t, "bath", transitions[0].Target)
}

func TestTimeline(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)

	hourly, err := f.svc.Timeline("hour", 0, "de")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), hourly.Width)
	assert.Len(t, hourly.Points, 2)
	assert.Equal(t, []string{"Stand", "Walk"}, hourly.Activities)
	assert.Equal(t, "Gehen", hourly.Labels["Walk"])

	var total int64
	for _, p := range hourly.Points {
		for _, v := range p.Durations {
			total += v
		}
	}
	assert.Equal(t, int64(6000), total)

	daily, err := f.svc.Timeline("day", 0, "")
	require.NoError(t, err)
	assert.Len(t, daily.Points, 1)

	custom, err := f.svc.Timeline("day", 900, "")
	require.NoError(t, err)
	assert.Equal(t, int64(900), custom.Width)

	_, err = f.svc.Timeline("week", 0, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.Timeline("", -1, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	for _, width := range []int64{1, timeline.MinWidth - 1} {
		_, err = f.svc.Timeline("", width, "")
		assert.ErrorIs(t, err, ErrInvalidArgument, "width %d", width)
	}
	narrowest, err := f.svc.Timeline("", timeline.MinWidth, "")
	require.NoError(t, err)
	assert.Equal(t, timeline.MinWidth, narrowest.Width)
}

func TestTimelineDaylightUsesFacilityTimezone(t *testing.T) {
	catalog, err := i18n.Default()
	require.NoError(t, err)
	ctx := context.Background()

	build := func(loc *time.Location) *Service {
		store := prefs.NewMemoryStore()
		playback := occupancy.NewPlayback(schedule.NewManual(), time.Second, nil, nil)
		opts := Options{BucketWidth: 3600, Latitude: 0, Longitude: 150, Location: loc}
		svc := NewService(filter.NewEngine(store, nil), catalog, playback, store, opts, nil)
		_, err := svc.Upload(ctx, []byte(uploadJSON))
		require.NoError(t, err)
		return svc
	}

	// Records run 01:00-02:30 on the facility clock, night at 150E
	local, err := build(time.FixedZone("UTC+10", 10*3600)).Timeline("hour", 0, "")
	require.NoError(t, err)
	require.Len(t, local.Points, 2)
	for _, p := range local.Points {
		assert.False(t, p.Daylight, p.Label)
	}

	utc, err := build(nil).Timeline("hour", 0, "")
	require.NoError(t, err)
	require.Len(t, utc.Points, 2)
	for _, p := range utc.Points {
		assert.True(t, p.Daylight, p.Label)
	}
}

func TestOccupancyFollowsPlayback(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)

	at := int64(5400)
	view, err := f.svc.OccupancyAt(&at, "en")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"kitchen": 4200}, view.Regions)
	assert.Equal(t, "Occupancy at 2024-01-01 01:30:00", view.Caption)

	// playback starts on the first frame (01:00:00)
	view, err = f.svc.OccupancyAt(nil, "de")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), view.Time)
	assert.Equal(t, "Belegung am 2024-01-01 01:00:00", view.Caption)

	_, err = f.svc.Playback().Seek(1)
	require.NoError(t, err)
	active, err := f.svc.ActiveAt(nil)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestFiltersRebuildPlaybackFrames(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)
	assert.Equal(t, 5, f.svc.Playback().Status().FrameCount)

	f.svc.SetEntities(ctx, []string{"emp-2"})
	assert.Equal(t, 2, f.svc.Playback().Status().FrameCount)

	_, err = f.svc.ResetFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, f.svc.Playback().Status().FrameCount)
}

func TestSetDateRangeValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)

	_, err = f.svc.SetDateRange(ctx, &records.DateRange{Start: "2024-02-01", End: "2024-01-01"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.SetDateRange(ctx, &records.DateRange{Start: "yesterday", End: "2024-01-01"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	c, err := f.svc.SetDateRange(ctx, &records.DateRange{Start: "2024-01-02", End: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", c.DateRange.Start)
	recs, err := f.svc.Records()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestOptions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, []byte(uploadJSON))
	require.NoError(t, err)
	f.svc.SetRegions(ctx, []string{"bath"})

	opts, err := f.svc.Options("de")
	require.NoError(t, err)
	require.Len(t, opts.Regions, 2)
	assert.Equal(t, Option{Value: "kitchen", Label: "Küche", Selected: false}, opts.Regions[0])
	assert.Equal(t, Option{Value: "bath", Label: "Bad", Selected: true}, opts.Regions[1])
	assert.True(t, opts.Entities[0].Selected)
	assert.Equal(t, "2024-01-01", opts.DateRange.Start)
}

func TestLocalePreference(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	f := newFixture(t, store)

	assert.Equal(t, "en", f.svc.Locale())
	_, err := f.svc.SetLocale(ctx, "fr")
	assert.ErrorIs(t, err, ErrUnsupportedLocale)

	locale, err := f.svc.SetLocale(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, "de", locale)
	assert.Equal(t, "Filter", f.svc.Strings("")["filters.title"])
	assert.Equal(t, "Filters", f.svc.Strings("en-US")["filters.title"])

	restored := newFixture(t, store)
	restored.svc.Restore(ctx)
	assert.Equal(t, "de", restored.svc.Locale())
}

func TestRestoredFiltersSurviveSampleLoad(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()

	first := newFixture(t, store)
	require.NoError(t, first.svc.LoadSample(ctx))
	first.svc.SetRegions(ctx, []string{"kitchen"})

	second := newFixture(t, store)
	second.svc.Restore(ctx)
	require.NoError(t, second.svc.LoadSample(ctx))

	assert.Equal(t, []string{"kitchen"}, second.svc.Criteria().Regions)
	recs, err := second.svc.Records()
	require.NoError(t, err)
	for _, r := range recs {
		assert.Equal(t, "kitchen", r.Region)
	}
}

func TestSampleHeatmapAndMap(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.svc.LoadSample(context.Background()))

	cells, err := f.svc.Heatmap()
	require.NoError(t, err)
	layout, err := f.svc.Layout()
	require.NoError(t, err)
	assert.Len(t, cells, len(layout.Regions))

	view, err := f.svc.MapView(nil)
	require.NoError(t, err)
	assert.True(t, view.Available)
	assert.Len(t, view.Regions, len(layout.Regions))
}
