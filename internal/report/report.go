// Package report renders a terminal summary of an occupancy dataset.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/saaga0h/floorplan-dashboard/internal/aggregate"
	"github.com/saaga0h/floorplan-dashboard/internal/filter"
	"github.com/saaga0h/floorplan-dashboard/internal/i18n"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/internal/timeline"
)

const barWidth = 30

// Options selects what the report covers
type Options struct {
	Criteria       filter.Criteria
	Locale         string
	BucketWidth    int64
	Latitude       float64
	Longitude      float64
	Location       *time.Location // facility clock of record times; nil means UTC
	MaxTransitions int
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	barColor    = color.New(color.FgBlue)
	nightColor  = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgYellow)
)

// Render builds the report for data
func Render(data records.TimeSeriesData, catalog *i18n.Catalog, opts Options) string {
	var out strings.Builder
	locale := catalog.Normalize(opts.Locale)
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = timeline.GroupingHour.Width()
	}

	meta := records.ComputeMetadata(data.Records)
	recs := opts.Criteria.Apply(data.Records)

	header(&out, catalog.Lookup("dashboard.title", locale))
	fmt.Fprintf(&out, "Records:    %d (%d after filters)\n", meta.TotalRecords, len(recs))
	fmt.Fprintf(&out, "Dates:      %s .. %s\n", meta.DateRange.Start, meta.DateRange.End)
	fmt.Fprintf(&out, "Employees:  %d\n", meta.UniqueEmployees)
	fmt.Fprintf(&out, "Regions:    %d\n", meta.UniqueRegions)
	fmt.Fprintf(&out, "Duration:   %s\n", catalog.FormatDuration(meta.TotalDuration, locale))
	if !meta.Equal(data.Metadata) {
		warnColor.Fprintf(&out, "Warning: payload metadata does not match its records\n")
	}

	if len(recs) == 0 {
		warnColor.Fprintf(&out, "\nNo records match the filters\n")
		return out.String()
	}

	shares(&out, catalog.Lookup("regions.title", locale),
		aggregate.Ranked(aggregate.SumDurationByRegion(recs)), catalog, i18n.DomainRegion, locale)
	shares(&out, catalog.Lookup("activities.title", locale),
		aggregate.Ranked(aggregate.SumDurationByActivity(recs)), catalog, i18n.DomainActivity, locale)
	shares(&out, catalog.Lookup("filters.employees", locale),
		aggregate.Ranked(aggregate.SumDurationByEntity(recs)), catalog, "", locale)

	transitions(&out, aggregate.CountTransitions(recs), opts.MaxTransitions, catalog, locale)

	buckets := timeline.BucketByTime(recs, opts.BucketWidth)
	points := timeline.AnnotateDaylight(buckets, opts.BucketWidth, opts.Latitude, opts.Longitude, opts.Location)
	timelineSection(&out, catalog.Lookup("timeline.title", locale), points)

	return out.String()
}

func header(out *strings.Builder, title string) {
	out.WriteString("\n")
	headerColor.Fprintln(out, title)
	out.WriteString(strings.Repeat("─", 50) + "\n")
}

func shares(out *strings.Builder, title string, ranked []aggregate.Share, catalog *i18n.Catalog, domain, locale string) {
	header(out, title)

	width := 0
	labels := make([]string, len(ranked))
	for i, s := range ranked {
		labels[i] = s.Key
		if domain != "" {
			labels[i] = catalog.Label(domain, s.Key, locale)
		}
		width = max(width, len(labels[i]))
	}

	for i, s := range ranked {
		fmt.Fprintf(out, "%-*s ", width, labels[i])
		barColor.Fprint(out, bar(s.Percent/100))
		fmt.Fprintf(out, " %5.1f%%  %s\n", s.Percent, catalog.FormatDuration(s.Value, locale))
	}
}

func transitions(out *strings.Builder, all []aggregate.Transition, limit int, catalog *i18n.Catalog, locale string) {
	header(out, "Transitions")
	if len(all) == 0 {
		out.WriteString("none\n")
		return
	}

	// most frequent first; CountTransitions orders by source and target
	ranked := slices.Clone(all)
	slices.SortStableFunc(ranked, func(a, b aggregate.Transition) int {
		return b.Count - a.Count
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for _, t := range ranked {
		fmt.Fprintf(out, "%4d  %s → %s\n", t.Count,
			catalog.Label(i18n.DomainRegion, t.Source, locale),
			catalog.Label(i18n.DomainRegion, t.Target, locale))
	}
}

func timelineSection(out *strings.Builder, title string, points []timeline.Point) {
	header(out, title)

	var peak int64
	totals := make([]int64, len(points))
	for i, p := range points {
		for _, v := range p.Durations {
			totals[i] += v
		}
		peak = max(peak, totals[i])
	}

	for i, p := range points {
		c := barColor
		if !p.Daylight {
			c = nightColor
		}
		fmt.Fprintf(out, "%s ", p.Label)
		c.Fprint(out, bar(float64(totals[i])/float64(max(peak, 1))))
		fmt.Fprintf(out, " %d\n", totals[i])
	}
}

func bar(fraction float64) string {
	n := int(fraction*barWidth + 0.5)
	n = min(max(n, 0), barWidth)
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}
