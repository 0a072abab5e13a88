package dashboard

import (
	"fmt"

	"github.com/saaga0h/floorplan-dashboard/internal/aggregate"
	"github.com/saaga0h/floorplan-dashboard/internal/i18n"
	"github.com/saaga0h/floorplan-dashboard/internal/occupancy"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/internal/timeline"
)

// LabeledShare is a ranked total with its display label and duration text
type LabeledShare struct {
	aggregate.Share
	Label    string `json:"label"`
	Duration string `json:"duration"`
}

// Option is one selectable filter value
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// FilterOptions lists every selectable value of the loaded dataset
type FilterOptions struct {
	DateRange  *records.DateRange `json:"dateRange"`
	Entities   []Option           `json:"entities"`
	Regions    []Option           `json:"regions"`
	Activities []Option           `json:"activities"`
}

// TimelineView is the bucketed activity timeline
type TimelineView struct {
	Grouping   timeline.Grouping `json:"grouping,omitempty"`
	Width      int64             `json:"width"`
	Activities []string          `json:"activities"`
	Labels     map[string]string `json:"labels"`
	Points     []timeline.Point  `json:"points"`
}

// OccupancyView is the occupancy snapshot at one instant
type OccupancyView struct {
	Time    int64            `json:"time"`
	Clock   string           `json:"clock"`
	Date    string           `json:"date"`
	Regions map[string]int64 `json:"regions"`
	Total   int64            `json:"total"`
	Caption string           `json:"caption"`
}

// Options returns the filter panel options with localized labels
func (s *Service) Options(locale string) (FilterOptions, error) {
	snap := s.engine.Snapshot()
	if !snap.Loaded {
		return FilterOptions{}, ErrNoData
	}
	locale = s.resolveLocale(locale)

	return FilterOptions{
		DateRange:  snap.Available.DateRange,
		Entities:   s.options("", snap.Available.Entities, snap.Criteria.Entities, locale),
		Regions:    s.options(i18n.DomainRegion, snap.Available.Regions, snap.Criteria.Regions, locale),
		Activities: s.options(i18n.DomainActivity, snap.Available.Activities, snap.Criteria.Activities, locale),
	}, nil
}

func (s *Service) options(domain string, values, selected []string, locale string) []Option {
	chosen := make(map[string]bool, len(selected))
	for _, v := range selected {
		chosen[v] = true
	}

	out := make([]Option, 0, len(values))
	for _, v := range values {
		label := v
		if domain != "" {
			label = s.catalog.Label(domain, v, locale)
		}
		out = append(out, Option{Value: v, Label: label, Selected: len(selected) == 0 || chosen[v]})
	}
	return out
}

// RegionUtilization ranks regions by time spent
func (s *Service) RegionUtilization(locale string) ([]LabeledShare, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	return s.label(i18n.DomainRegion, aggregate.SumDurationByRegion(recs), locale), nil
}

// ActivityDistribution ranks activities by time spent
func (s *Service) ActivityDistribution(locale string) ([]LabeledShare, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	return s.label(i18n.DomainActivity, aggregate.SumDurationByActivity(recs), locale), nil
}

// EntityTotals ranks entities by time recorded
func (s *Service) EntityTotals(locale string) ([]LabeledShare, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	return s.label("", aggregate.SumDurationByEntity(recs), locale), nil
}

func (s *Service) label(domain string, sums map[string]int64, locale string) []LabeledShare {
	locale = s.resolveLocale(locale)
	ranked := aggregate.Ranked(sums)

	out := make([]LabeledShare, 0, len(ranked))
	for _, share := range ranked {
		label := share.Key
		if domain != "" {
			label = s.catalog.Label(domain, share.Key, locale)
		}
		out = append(out, LabeledShare{
			Share:    share,
			Label:    label,
			Duration: s.catalog.FormatDuration(share.Value, locale),
		})
	}
	return out
}

// Transitions counts region changes between consecutive intervals
func (s *Service) Transitions() ([]aggregate.Transition, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	return aggregate.CountTransitions(recs), nil
}

// Heatmap returns the per-region totals placed on the floor plan
func (s *Service) Heatmap() ([]aggregate.HeatmapCell, error) {
	snap := s.engine.Snapshot()
	if !snap.Loaded {
		return nil, ErrNoData
	}
	if snap.Layout == nil {
		return nil, ErrNoLayout
	}
	return aggregate.RegionHeatmap(snap.Filtered, snap.Layout), nil
}

// Timeline buckets the filtered records. An explicit width in seconds
// overrides grouping; with neither the configured default width applies.
func (s *Service) Timeline(grouping string, width int64, locale string) (TimelineView, error) {
	recs, err := s.Records()
	if err != nil {
		return TimelineView{}, err
	}

	view := TimelineView{Width: s.opts.BucketWidth}
	switch {
	case width < 0, width > 0 && width < timeline.MinWidth:
		return TimelineView{}, fmt.Errorf("%w: bucket width %d (must be at least %d seconds)", ErrInvalidArgument, width, timeline.MinWidth)
	case width > 0:
		view.Width = width
	case grouping != "":
		g, err := timeline.ParseGrouping(grouping)
		if err != nil {
			return TimelineView{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		view.Grouping = g
		view.Width = g.Width()
	}

	buckets := timeline.BucketByTime(recs, view.Width)
	view.Activities = timeline.Activities(buckets)
	view.Points = timeline.AnnotateDaylight(buckets, view.Width, s.opts.Latitude, s.opts.Longitude, s.opts.Location)

	locale = s.resolveLocale(locale)
	view.Labels = make(map[string]string, len(view.Activities))
	for _, a := range view.Activities {
		view.Labels[a] = s.catalog.Label(i18n.DomainActivity, a, locale)
	}
	return view, nil
}

// resolveTime returns t, or the playback position when t is nil
func (s *Service) resolveTime(t *int64) (int64, error) {
	if t != nil {
		return *t, nil
	}
	if cur, ok := s.playback.Current(); ok {
		return cur, nil
	}
	return 0, ErrNoData
}

// OccupancyAt returns the per-region occupancy at t (playback position
// when t is nil)
func (s *Service) OccupancyAt(t *int64, locale string) (OccupancyView, error) {
	recs, err := s.Records()
	if err != nil {
		return OccupancyView{}, err
	}
	at, err := s.resolveTime(t)
	if err != nil {
		return OccupancyView{}, err
	}

	regions := occupancy.OccupancyAt(recs, at)
	view := OccupancyView{
		Time:    at,
		Clock:   records.FormatClock(at),
		Date:    occupancy.DateAt(recs, at),
		Regions: regions,
		Total:   aggregate.Total(regions),
	}
	view.Caption = fmt.Sprintf(s.catalog.Lookup("map.occupancy_at", s.resolveLocale(locale)), view.Date, view.Clock)
	return view, nil
}

// ActiveAt returns the records active at t (playback position when nil)
func (s *Service) ActiveAt(t *int64) ([]records.IntervalRecord, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	at, err := s.resolveTime(t)
	if err != nil {
		return nil, err
	}
	return occupancy.ActiveEntitiesAt(recs, at), nil
}

// MapView renders the region map at t (playback position when nil). A
// missing layout yields an unavailable view rather than an error.
func (s *Service) MapView(t *int64) (occupancy.MapView, error) {
	snap := s.engine.Snapshot()
	at, _ := s.resolveTime(t)
	return occupancy.BuildMapView(snap.Layout, snap.Filtered, at), nil
}

// Playback returns the playback controller
func (s *Service) Playback() *occupancy.Playback {
	return s.playback
}
