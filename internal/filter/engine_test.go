package filter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saaga0h/floorplan-dashboard/internal/prefs"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id, date, region, activity string, start, end int64) records.IntervalRecord {
	return records.IntervalRecord{
		EntityID:  id,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Region:    region,
		Activity:  activity,
		Duration:  end - start,
	}
}

func fixture() records.TimeSeriesData {
	recs := []records.IntervalRecord{
		rec("emp-1", "2024-01-01", "Office", "Desk Work", 28800, 32400),
		rec("emp-1", "2024-01-02", "Kitchen", "Break", 36000, 36900),
		rec("emp-2", "2024-01-02", "Office", "Meeting", 30000, 33600),
		rec("emp-2", "2024-01-03", "Lab", "Experiment", 40000, 43600),
	}
	return records.TimeSeriesData{Metadata: records.ComputeMetadata(recs), Records: recs}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("unavailable")
}

func (failingStore) Set(ctx context.Context, key, value string) error {
	return errors.New("unavailable")
}

// gatedStore holds the first Set after arm until release is closed.
type gatedStore struct {
	*prefs.MemoryStore

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: prefs.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) arm() {
	g.mu.Lock()
	g.armed = true
	g.mu.Unlock()
}

func (g *gatedStore) Set(ctx context.Context, key, value string) error {
	g.mu.Lock()
	hold := g.armed
	g.armed = false
	g.mu.Unlock()

	if hold {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Set(ctx, key, value)
}

func TestLoadInitializesCriteria(t *testing.T) {
	e := NewEngine(nil, nil)
	ctx := context.Background()

	before := e.Snapshot()
	assert.False(t, before.Loaded)
	assert.Empty(t, before.Filtered)

	snap := e.Load(ctx, fixture())
	assert.True(t, snap.Loaded)
	assert.NotEmpty(t, snap.Revision)
	assert.Len(t, snap.Filtered, 4)
	require.NotNil(t, snap.Criteria.DateRange)
	assert.Equal(t, records.DateRange{Start: "2024-01-01", End: "2024-01-03"}, *snap.Criteria.DateRange)
	assert.Equal(t, []string{"emp-1", "emp-2"}, snap.Criteria.Entities)
	assert.Equal(t, []string{"Office", "Kitchen", "Lab"}, snap.Criteria.Regions)
	assert.Equal(t, 4, snap.Metadata.TotalRecords)
}

func TestLoadRecomputesMetadata(t *testing.T) {
	e := NewEngine(nil, nil)
	data := fixture()
	data.Metadata = records.Metadata{TotalRecords: 99}

	snap := e.Load(context.Background(), data)
	assert.Equal(t, 4, snap.Metadata.TotalRecords)
}

func TestLoadNewRevision(t *testing.T) {
	e := NewEngine(nil, nil)
	first := e.Load(context.Background(), fixture())
	second := e.Load(context.Background(), fixture())
	assert.NotEqual(t, first.Revision, second.Revision)
	assert.Greater(t, second.Generation, first.Generation)
}

func TestSetters(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		apply func(e *Engine) Snapshot
		want  int
	}{
		{"date range single day", func(e *Engine) Snapshot {
			return e.SetDateRange(ctx, &records.DateRange{Start: "2024-01-02", End: "2024-01-02"})
		}, 2},
		{"date range inclusive", func(e *Engine) Snapshot {
			return e.SetDateRange(ctx, &records.DateRange{Start: "2024-01-01", End: "2024-01-03"})
		}, 4},
		{"nil date range", func(e *Engine) Snapshot { return e.SetDateRange(ctx, nil) }, 4},
		{"entities", func(e *Engine) Snapshot { return e.SetEntities(ctx, []string{"emp-2"}) }, 2},
		{"empty entities is unfiltered", func(e *Engine) Snapshot { return e.SetEntities(ctx, nil) }, 4},
		{"regions", func(e *Engine) Snapshot { return e.SetRegions(ctx, []string{"Office"}) }, 2},
		{"activities", func(e *Engine) Snapshot { return e.SetActivities(ctx, []string{"Break", "Meeting"}) }, 2},
		{"unknown region", func(e *Engine) Snapshot { return e.SetRegions(ctx, []string{"Roof"}) }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil, nil)
			e.Load(ctx, fixture())

			snap := tt.apply(e)
			assert.Len(t, snap.Filtered, tt.want)
			assert.Equal(t, snap.Filtered, e.Snapshot().Filtered)
		})
	}
}

func TestFiltersCombine(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)
	e.Load(ctx, fixture())

	e.SetEntities(ctx, []string{"emp-1", "emp-2"})
	e.SetRegions(ctx, []string{"Office"})
	snap := e.SetDateRange(ctx, &records.DateRange{Start: "2024-01-02", End: "2024-01-03"})

	require.Len(t, snap.Filtered, 1)
	assert.Equal(t, "emp-2", snap.Filtered[0].EntityID)
	assert.Equal(t, "Meeting", snap.Filtered[0].Activity)
}

func TestFilteredIsSubsetInOrder(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)
	data := fixture()
	e.Load(ctx, data)
	snap := e.SetEntities(ctx, []string{"emp-2", "emp-1"})

	assert.Equal(t, data.Records, snap.Filtered)
}

func TestResetFilters(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)

	empty := e.ResetFilters(ctx)
	assert.False(t, empty.Loaded)
	assert.Nil(t, empty.Criteria.DateRange)

	e.Load(ctx, fixture())
	e.SetRegions(ctx, []string{"Lab"})
	e.SetDateRange(ctx, &records.DateRange{Start: "2024-01-03", End: "2024-01-03"})

	snap := e.ResetFilters(ctx)
	assert.Len(t, snap.Filtered, 4)
	assert.Equal(t, []string{"Office", "Kitchen", "Lab"}, snap.Criteria.Regions)
}

func TestSetLayoutBumpsGeneration(t *testing.T) {
	e := NewEngine(nil, nil)
	before := e.Snapshot().Generation

	layout := &records.LayoutData{UUID: "plan", WidthPixel: 100, HeightPixel: 50}
	snap := e.SetLayout(layout)
	assert.Greater(t, snap.Generation, before)
	assert.Same(t, layout, snap.Layout)
	assert.False(t, snap.Loaded)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)

	var got []Snapshot
	e.Subscribe(func(s Snapshot) {
		// reentrant reads are allowed from a listener
		assert.Equal(t, s.Generation, e.Snapshot().Generation)
		got = append(got, s)
	})

	e.Load(ctx, fixture())
	e.SetRegions(ctx, []string{"Office"})

	require.Len(t, got, 2)
	assert.Len(t, got[0].Filtered, 4)
	assert.Len(t, got[1].Filtered, 2)
}

func TestSnapshotCriteriaIsolated(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)
	e.Load(ctx, fixture())

	ids := []string{"emp-1"}
	snap := e.SetEntities(ctx, ids)
	ids[0] = "emp-2"
	snap.Criteria.Entities[0] = "tampered"

	assert.Equal(t, []string{"emp-1"}, e.Snapshot().Criteria.Entities)
}

func TestPreferencesPersistAndRestore(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()

	first := NewEngine(store, nil)
	first.Load(ctx, fixture())
	first.SetRegions(ctx, []string{"Kitchen"})

	raw, ok, err := store.Get(ctx, prefs.Key(PreferenceName))
	require.NoError(t, err)
	require.True(t, ok)
	var saved Criteria
	require.NoError(t, json.Unmarshal([]byte(raw), &saved))
	assert.Equal(t, []string{"Kitchen"}, saved.Regions)

	second := NewEngine(store, nil)
	assert.True(t, second.RestorePreferences(ctx))

	snap := second.Load(ctx, fixture())
	assert.Equal(t, []string{"Kitchen"}, snap.Criteria.Regions, "restored selection survives first load")
	assert.Len(t, snap.Filtered, 1)
}

func TestRestoreWithoutPreferences(t *testing.T) {
	ctx := context.Background()

	assert.False(t, NewEngine(nil, nil).RestorePreferences(ctx))
	assert.False(t, NewEngine(prefs.NewMemoryStore(), nil).RestorePreferences(ctx))

	store := prefs.NewMemoryStore()
	require.NoError(t, store.Set(ctx, prefs.Key(PreferenceName), "{not json"))
	assert.False(t, NewEngine(store, nil).RestorePreferences(ctx))
}

func TestSlowPersistKeepsLatestCriteria(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	e := NewEngine(store, nil)
	e.Load(ctx, fixture())

	store.arm()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.SetRegions(ctx, []string{"Office"})
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		e.SetRegions(ctx, []string{"Lab"})
	}()
	require.Eventually(t, func() bool {
		regions := e.Snapshot().Criteria.Regions
		return len(regions) == 1 && regions[0] == "Lab"
	}, time.Second, time.Millisecond)

	close(store.release)
	wg.Wait()

	raw, ok, err := store.Get(ctx, prefs.Key(PreferenceName))
	require.NoError(t, err)
	require.True(t, ok)
	var saved Criteria
	require.NoError(t, json.Unmarshal([]byte(raw), &saved))
	assert.Equal(t, []string{"Lab"}, saved.Regions, "stored criteria match the engine")
	assert.Equal(t, e.Snapshot().Criteria.Regions, saved.Regions)
}

func TestPersistenceFailureDoesNotFailSetter(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(failingStore{}, nil)

	assert.False(t, e.RestorePreferences(ctx))
	e.Load(ctx, fixture())
	snap := e.SetActivities(ctx, []string{"Break"})
	assert.Len(t, snap.Filtered, 1)
}

func TestEmptyLoadThenRealLoad(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)

	snap := e.Load(ctx, records.TimeSeriesData{})
	assert.Nil(t, snap.Criteria.DateRange)
	assert.Empty(t, snap.Filtered)

	snap = e.Load(ctx, fixture())
	assert.Len(t, snap.Filtered, 4)
}

func TestConcurrentSettersSettle(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil, nil)
	e.Load(ctx, fixture())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.SetRegions(ctx, []string{"Office"})
		}()
		go func() {
			defer wg.Done()
			_ = e.Snapshot()
		}()
	}
	wg.Wait()

	snap := e.Snapshot()
	assert.Equal(t, snap.Criteria.Apply(fixture().Records), snap.Filtered)
}
