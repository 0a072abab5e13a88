package sample

import (
	_ "embed"
	"fmt"

	"github.com/saaga0h/floorplan-dashboard/internal/ingest"
	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

//go:embed timeseries.json
var timeSeriesJSON []byte

//go:embed layout.json
var layoutJSON []byte

// TimeSeries decodes the bundled dataset
func TimeSeries() (*records.TimeSeriesData, error) {
	payload, err := ingest.Decode(timeSeriesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundled time series: %w", err)
	}
	if payload.Kind != ingest.KindTimeSeries {
		return nil, fmt.Errorf("bundled time series has shape %s", payload.Kind)
	}
	return payload.TimeSeries, nil
}

// Layout decodes the bundled floor plan
func Layout() (*records.LayoutData, error) {
	payload, err := ingest.Decode(layoutJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundled layout: %w", err)
	}
	if payload.Kind != ingest.KindLayout {
		return nil, fmt.Errorf("bundled layout has shape %s", payload.Kind)
	}
	return payload.Layout, nil
}

// TimeSeriesBytes returns the raw bundled dataset
func TimeSeriesBytes() []byte {
	return timeSeriesJSON
}

// LayoutBytes returns the raw bundled floor plan
func LayoutBytes() []byte {
	return layoutJSON
}
