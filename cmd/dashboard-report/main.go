package main

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/fatih/color"
	"github.com/saaga0h/floorplan-dashboard/internal/filter"
	"github.com/saaga0h/floorplan-dashboard/internal/i18n"
	"github.com/saaga0h/floorplan-dashboard/internal/ingest"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/internal/report"
	"github.com/saaga0h/floorplan-dashboard/internal/sample"
	"github.com/saaga0h/floorplan-dashboard/internal/timeline"
	"github.com/spf13/pflag"
)

func main() {
	var (
		file        = pflag.StringP("file", "f", "", "Time-series JSON file (default: bundled sample)")
		catalogFile = pflag.String("catalog", "", "Locale catalog override file")
		locale      = pflag.StringP("locale", "l", "en", "Report locale")
		grouping    = pflag.StringP("grouping", "g", "hour", "Timeline grouping (hour or day)")
		entities    = pflag.StringSlice("entities", nil, "Only include these entity ids")
		regions     = pflag.StringSlice("regions", nil, "Only include these regions")
		activities  = pflag.StringSlice("activities", nil, "Only include these activities")
		from        = pflag.String("from", "", "First date to include (YYYY-MM-DD)")
		to          = pflag.String("to", "", "Last date to include (YYYY-MM-DD)")
		top         = pflag.Int("top", 10, "Number of transitions to list (0 for all)")
		latitude    = pflag.Float64("latitude", 60.1699, "Facility latitude for daylight shading")
		longitude   = pflag.Float64("longitude", 24.9384, "Facility longitude for daylight shading")
		timezone    = pflag.String("timezone", "Europe/Helsinki", "IANA timezone of the facility wall clock used in record times")
		noColor     = pflag.Bool("no-color", false, "Disable colored output")
	)
	pflag.Parse()

	if *noColor {
		color.NoColor = true
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		fail(fmt.Errorf("invalid timezone %q: %w", *timezone, err))
	}

	data, err := loadTimeSeries(*file)
	if err != nil {
		fail(err)
	}

	catalog, err := i18n.Default()
	if *catalogFile != "" {
		catalog, err = i18n.LoadCatalog(*catalogFile)
	}
	if err != nil {
		fail(err)
	}

	g, err := timeline.ParseGrouping(*grouping)
	if err != nil {
		fail(err)
	}

	criteria := filter.Criteria{
		Entities:   *entities,
		Regions:    *regions,
		Activities: *activities,
	}
	if *from != "" || *to != "" {
		meta := records.ComputeMetadata(data.Records)
		dr := meta.DateRange
		if *from != "" {
			dr.Start = *from
		}
		if *to != "" {
			dr.End = *to
		}
		criteria.DateRange = &dr
	}

	fmt.Print(report.Render(*data, catalog, report.Options{
		Criteria:       criteria,
		Locale:         *locale,
		BucketWidth:    g.Width(),
		Latitude:       *latitude,
		Longitude:      *longitude,
		Location:       loc,
		MaxTransitions: *top,
	}))
}

func loadTimeSeries(path string) (*records.TimeSeriesData, error) {
	if path == "" {
		return sample.TimeSeries()
	}

	payload, err := ingest.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range payload.Warnings {
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if payload.Kind != ingest.KindTimeSeries {
		return nil, fmt.Errorf("%s holds %s data, expected %s", path, payload.Kind, ingest.KindTimeSeries)
	}
	return payload.TimeSeries, nil
}

func fail(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
