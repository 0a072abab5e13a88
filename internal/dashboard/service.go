package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saaga0h/floorplan-dashboard/internal/filter"
	"github.com/saaga0h/floorplan-dashboard/internal/i18n"
	"github.com/saaga0h/floorplan-dashboard/internal/ingest"
	"github.com/saaga0h/floorplan-dashboard/internal/occupancy"
	"github.com/saaga0h/floorplan-dashboard/internal/prefs"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/internal/sample"
)

// LocalePreference is the name under which the locale is persisted
const LocalePreference = "locale"

var (
	// ErrNoData is returned by queries that need a loaded dataset
	ErrNoData = errors.New("no time-series data loaded")

	// ErrNoLayout is returned by queries that need a floor-plan layout
	ErrNoLayout = errors.New("no layout loaded")

	// ErrUnsupportedLocale is returned by SetLocale for an unknown locale
	ErrUnsupportedLocale = errors.New("unsupported locale")

	// ErrInvalidArgument wraps malformed query parameters
	ErrInvalidArgument = errors.New("invalid argument")
)

// Options configures presentation defaults
type Options struct {
	BucketWidth int64
	Latitude    float64
	Longitude   float64
	// Location is the facility timezone record times are written in; nil means UTC
	Location *time.Location
}

// Service composes the filter engine, the locale catalog and playback into
// the read and write operations the HTTP API exposes
type Service struct {
	engine   *filter.Engine
	catalog  *i18n.Catalog
	playback *occupancy.Playback
	store    prefs.Store
	opts     Options
	logger   *slog.Logger

	mu     sync.RWMutex
	locale string
}

// NewService wires playback to follow the engine's filtered records.
// store may be nil.
func NewService(engine *filter.Engine, catalog *i18n.Catalog, playback *occupancy.Playback, store prefs.Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = 3600
	}

	s := &Service{
		engine:   engine,
		catalog:  catalog,
		playback: playback,
		store:    store,
		opts:     opts,
		logger:   logger,
		locale:   catalog.DefaultLocale,
	}

	engine.Subscribe(func(snap filter.Snapshot) {
		playback.SetRecords(snap.Generation, snap.Filtered)
	})

	return s
}

// Restore loads persisted filter and locale preferences. It must run
// before the first dataset load for restored filters to survive it.
func (s *Service) Restore(ctx context.Context) {
	s.engine.RestorePreferences(ctx)

	if s.store == nil {
		return
	}
	locale, ok, err := s.store.Get(ctx, prefs.Key(LocalePreference))
	if err != nil {
		s.logger.Warn("Failed to read locale preference", "error", err)
		return
	}
	if ok && s.catalog.IsSupported(locale) {
		s.mu.Lock()
		s.locale = locale
		s.mu.Unlock()
		s.logger.Info("Restored locale preference", "locale", locale)
	}
}

// LoadSample loads the bundled dataset and layout
func (s *Service) LoadSample(ctx context.Context) error {
	ts, err := sample.TimeSeries()
	if err != nil {
		return err
	}
	layout, err := sample.Layout()
	if err != nil {
		return err
	}

	s.engine.SetLayout(layout)
	s.engine.Load(ctx, *ts)
	return nil
}

// UploadResult reports what an upload replaced
type UploadResult struct {
	Kind     ingest.Kind `json:"kind"`
	Records  int         `json:"records,omitempty"`
	Regions  int         `json:"regions,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
	Revision string      `json:"revision"`
}

// Upload decodes a JSON payload and replaces the dataset or the layout
// depending on its shape
func (s *Service) Upload(ctx context.Context, data []byte) (*UploadResult, error) {
	payload, err := ingest.Decode(data)
	if err != nil {
		s.logger.Error("Rejected upload", "error", err, "size", len(data))
		return nil, err
	}
	return s.Apply(ctx, payload), nil
}

// Apply loads an already decoded payload
func (s *Service) Apply(ctx context.Context, payload *ingest.Payload) *UploadResult {
	for _, w := range payload.Warnings {
		s.logger.Warn("Payload validation issue", "kind", payload.Kind, "issue", w)
	}

	result := &UploadResult{Kind: payload.Kind, Warnings: payload.Warnings}
	switch payload.Kind {
	case ingest.KindTimeSeries:
		snap := s.engine.Load(ctx, *payload.TimeSeries)
		result.Records = len(payload.TimeSeries.Records)
		result.Revision = snap.Revision
	case ingest.KindLayout:
		snap := s.engine.SetLayout(payload.Layout)
		result.Regions = len(payload.Layout.Regions)
		result.Revision = snap.Revision
		s.logger.Info("Layout loaded", "uuid", payload.Layout.UUID, "regions", len(payload.Layout.Regions))
	}
	return result
}

// Snapshot returns the current engine view
func (s *Service) Snapshot() filter.Snapshot {
	return s.engine.Snapshot()
}

// Generation identifies the current derived view
func (s *Service) Generation() uint64 {
	return s.engine.Snapshot().Generation
}

// Metadata returns the loaded dataset's metadata
func (s *Service) Metadata() (records.Metadata, error) {
	snap := s.engine.Snapshot()
	if !snap.Loaded {
		return records.Metadata{}, ErrNoData
	}
	return snap.Metadata, nil
}

// Layout returns the loaded floor plan
func (s *Service) Layout() (*records.LayoutData, error) {
	snap := s.engine.Snapshot()
	if snap.Layout == nil {
		return nil, ErrNoLayout
	}
	return snap.Layout, nil
}

// Criteria returns the active filter criteria
func (s *Service) Criteria() filter.Criteria {
	return s.engine.Snapshot().Criteria
}

// Records returns the filtered records
func (s *Service) Records() ([]records.IntervalRecord, error) {
	snap := s.engine.Snapshot()
	if !snap.Loaded {
		return nil, ErrNoData
	}
	return snap.Filtered, nil
}

// SetCriteria replaces every filter criterion
func (s *Service) SetCriteria(ctx context.Context, c filter.Criteria) (filter.Criteria, error) {
	if err := validateDateRange(c.DateRange); err != nil {
		return filter.Criteria{}, err
	}
	return s.engine.SetCriteria(ctx, c).Criteria, nil
}

// SetDateRange replaces the date range; nil clears it
func (s *Service) SetDateRange(ctx context.Context, dr *records.DateRange) (filter.Criteria, error) {
	if err := validateDateRange(dr); err != nil {
		return filter.Criteria{}, err
	}
	return s.engine.SetDateRange(ctx, dr).Criteria, nil
}

// SetEntities replaces the entity selection
func (s *Service) SetEntities(ctx context.Context, ids []string) filter.Criteria {
	return s.engine.SetEntities(ctx, ids).Criteria
}

// SetRegions replaces the region selection
func (s *Service) SetRegions(ctx context.Context, names []string) filter.Criteria {
	return s.engine.SetRegions(ctx, names).Criteria
}

// SetActivities replaces the activity selection
func (s *Service) SetActivities(ctx context.Context, activities []string) filter.Criteria {
	return s.engine.SetActivities(ctx, activities).Criteria
}

// ResetFilters selects everything in the loaded dataset
func (s *Service) ResetFilters(ctx context.Context) (filter.Criteria, error) {
	snap := s.engine.ResetFilters(ctx)
	if !snap.Loaded {
		return snap.Criteria, ErrNoData
	}
	return snap.Criteria, nil
}

// Locale returns the active locale
func (s *Service) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// SetLocale switches and persists the active locale
func (s *Service) SetLocale(ctx context.Context, locale string) (string, error) {
	if !s.catalog.IsSupported(locale) {
		return s.Locale(), fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}

	s.mu.Lock()
	s.locale = locale
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Set(ctx, prefs.Key(LocalePreference), locale); err != nil {
			s.logger.Warn("Failed to persist locale preference", "error", err)
		}
	}
	return locale, nil
}

// Strings returns every catalog string for locale ("" for the active one)
func (s *Service) Strings(locale string) map[string]string {
	return s.catalog.Resolve(s.resolveLocale(locale))
}

// SupportedLocales lists the selectable locales
func (s *Service) SupportedLocales() []string {
	return s.catalog.SupportedLocales()
}

// resolveLocale maps "" to the active locale and anything else onto a
// supported locale
func (s *Service) resolveLocale(locale string) string {
	if locale == "" {
		return s.Locale()
	}
	return s.catalog.Normalize(locale)
}

func validateDateRange(dr *records.DateRange) error {
	if dr == nil {
		return nil
	}
	for _, d := range []string{dr.Start, dr.End} {
		if _, err := time.Parse(records.DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q: %v", ErrInvalidArgument, d, err)
		}
	}
	if dr.Start > dr.End {
		return fmt.Errorf("%w: date range start %s after end %s", ErrInvalidArgument, dr.Start, dr.End)
	}
	return nil
}
