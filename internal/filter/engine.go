package filter

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/saaga0h/floorplan-dashboard/internal/prefs"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

// PreferenceName is the name under which criteria are persisted
const PreferenceName = "filters"

// Snapshot is a settled view of the engine. Its slices and layout are never
// mutated after the snapshot is taken. Available selects everything in the
// loaded dataset and backs the filter options.
type Snapshot struct {
	Generation uint64
	Revision   string
	Loaded     bool
	Criteria   Criteria
	Available  Criteria
	Metadata   records.Metadata
	Filtered   []records.IntervalRecord
	Layout     *records.LayoutData
}

// Listener receives a snapshot after every change of the derived view
type Listener func(Snapshot)

// Engine holds the raw dataset, the layout and the filter criteria and keeps
// the filtered record set consistent with them
type Engine struct {
	mu         sync.RWMutex
	data       *records.TimeSeriesData
	layout     *records.LayoutData
	criteria   Criteria
	available  Criteria
	filtered   []records.IntervalRecord
	generation uint64
	revision   string

	listenersMu sync.Mutex
	listeners   []Listener

	// persistMu orders preference writes; persisted is the generation of
	// the last snapshot written, so an older one never overwrites it
	persistMu sync.Mutex
	persisted uint64

	store  prefs.Store
	logger *slog.Logger
}

// NewEngine creates an empty engine. store may be nil to disable
// preference persistence.
func NewEngine(store prefs.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		logger:   logger,
		filtered: []records.IntervalRecord{},
	}
}

// Subscribe registers fn to be called after each change
func (e *Engine) Subscribe(fn Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Load replaces the dataset. Metadata is recomputed from the records.
// Criteria dimensions that are still unset are initialized to select
// everything; dimensions already set (for example restored preferences)
// are kept.
func (e *Engine) Load(ctx context.Context, data records.TimeSeriesData) Snapshot {
	computed := records.ComputeMetadata(data.Records)
	if !computed.Equal(data.Metadata) {
		e.logger.Warn("Payload metadata disagrees with records, using recomputed metadata",
			"payload_records", data.Metadata.TotalRecords,
			"records", computed.TotalRecords)
	}
	data.Metadata = computed

	e.mu.Lock()
	e.data = &data
	e.revision = uuid.New().String()

	full := Full(data)
	e.available = full
	if e.criteria.DateRange == nil {
		e.criteria.DateRange = full.DateRange
	}
	if len(e.criteria.Entities) == 0 {
		e.criteria.Entities = full.Entities
	}
	if len(e.criteria.Regions) == 0 {
		e.criteria.Regions = full.Regions
	}
	if len(e.criteria.Activities) == 0 {
		e.criteria.Activities = full.Activities
	}
	snap := e.recomputeLocked()
	e.mu.Unlock()

	e.logger.Info("Dataset loaded",
		"revision", snap.Revision,
		"records", len(data.Records),
		"filtered", len(snap.Filtered))

	e.persist(ctx, snap)
	e.notify(snap)
	return snap
}

// SetLayout replaces the floor-plan layout
func (e *Engine) SetLayout(layout *records.LayoutData) Snapshot {
	e.mu.Lock()
	e.layout = layout
	e.generation++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.notify(snap)
	return snap
}

// SetDateRange replaces the date range criterion; nil removes it
func (e *Engine) SetDateRange(ctx context.Context, dr *records.DateRange) Snapshot {
	return e.update(ctx, func(c *Criteria) {
		if dr == nil {
			c.DateRange = nil
			return
		}
		v := *dr
		c.DateRange = &v
	})
}

// SetEntities replaces the entity selection
func (e *Engine) SetEntities(ctx context.Context, ids []string) Snapshot {
	return e.update(ctx, func(c *Criteria) { c.Entities = slices.Clone(ids) })
}

// SetRegions replaces the region selection
func (e *Engine) SetRegions(ctx context.Context, names []string) Snapshot {
	return e.update(ctx, func(c *Criteria) { c.Regions = slices.Clone(names) })
}

// SetActivities replaces the activity selection
func (e *Engine) SetActivities(ctx context.Context, activities []string) Snapshot {
	return e.update(ctx, func(c *Criteria) { c.Activities = slices.Clone(activities) })
}

// SetCriteria replaces every criterion at once
func (e *Engine) SetCriteria(ctx context.Context, criteria Criteria) Snapshot {
	return e.update(ctx, func(c *Criteria) { *c = criteria.Clone() })
}

// ResetFilters selects everything in the loaded dataset. Without a dataset
// it does nothing.
func (e *Engine) ResetFilters(ctx context.Context) Snapshot {
	e.mu.Lock()
	if e.data == nil {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	e.criteria = e.available.Clone()
	snap := e.recomputeLocked()
	e.mu.Unlock()

	e.persist(ctx, snap)
	e.notify(snap)
	return snap
}

// Snapshot returns the current settled view
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// RestorePreferences loads persisted criteria. A missing or unreadable
// preference leaves the criteria untouched.
func (e *Engine) RestorePreferences(ctx context.Context) bool {
	if e.store == nil {
		return false
	}

	raw, ok, err := e.store.Get(ctx, prefs.Key(PreferenceName))
	if err != nil {
		e.logger.Warn("Failed to read filter preferences", "error", err)
		return false
	}
	if !ok {
		return false
	}

	var criteria Criteria
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		e.logger.Warn("Ignoring malformed filter preferences", "error", err)
		return false
	}

	e.mu.Lock()
	e.criteria = criteria
	var snap Snapshot
	if e.data != nil {
		snap = e.recomputeLocked()
	} else {
		e.generation++
		snap = e.snapshotLocked()
	}
	e.mu.Unlock()

	e.logger.Info("Restored filter preferences",
		"entities", len(criteria.Entities),
		"regions", len(criteria.Regions),
		"activities", len(criteria.Activities))

	e.notify(snap)
	return true
}

func (e *Engine) update(ctx context.Context, mutate func(c *Criteria)) Snapshot {
	e.mu.Lock()
	mutate(&e.criteria)
	snap := e.recomputeLocked()
	e.mu.Unlock()

	e.persist(ctx, snap)
	e.notify(snap)
	return snap
}

// recomputeLocked rebuilds the filtered set. Caller holds e.mu.
func (e *Engine) recomputeLocked() Snapshot {
	if e.data == nil {
		e.filtered = []records.IntervalRecord{}
	} else {
		e.filtered = e.criteria.Apply(e.data.Records)
	}
	e.generation++
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		Generation: e.generation,
		Revision:   e.revision,
		Loaded:     e.data != nil,
		Criteria:   e.criteria.Clone(),
		Available:  e.available.Clone(),
		Filtered:   e.filtered,
		Layout:     e.layout,
	}
	if e.data != nil {
		snap.Metadata = e.data.Metadata
	}
	return snap
}

// persist writes the criteria of snap unless a newer snapshot has already
// been written
func (e *Engine) persist(ctx context.Context, snap Snapshot) {
	if e.store == nil {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if snap.Generation <= e.persisted {
		e.logger.Debug("Skipping superseded filter preferences", "generation", snap.Generation, "persisted", e.persisted)
		return
	}

	payload, err := json.Marshal(snap.Criteria)
	if err != nil {
		e.logger.Warn("Failed to encode filter preferences", "error", err)
		return
	}
	if err := e.store.Set(ctx, prefs.Key(PreferenceName), string(payload)); err != nil {
		e.logger.Warn("Failed to persist filter preferences", "error", err)
		return
	}
	e.persisted = snap.Generation
}

func (e *Engine) notify(snap Snapshot) {
	e.listenersMu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
