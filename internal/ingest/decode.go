package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
)

// Kind identifies the payload shape
type Kind string

const (
	KindTimeSeries Kind = "time_series"
	KindLayout     Kind = "layout"
)

var (
	// ErrMalformedJSON is returned when the payload is not a JSON object
	ErrMalformedJSON = errors.New("malformed JSON payload")

	// ErrUnrecognizedShape is returned when the object is neither a
	// time-series payload nor a layout payload
	ErrUnrecognizedShape = errors.New("unrecognized payload shape")
)

// Payload is a decoded upload
type Payload struct {
	Kind       Kind
	TimeSeries *records.TimeSeriesData
	Layout     *records.LayoutData
	// Warnings lists validation problems found in otherwise usable data
	Warnings []string
}

// Decode detects the payload shape from its top-level keys: "metadata" and
// "records" together mean a time series, "layout" means a floor plan.
func Decode(data []byte) (*Payload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	_, hasMetadata := top["metadata"]
	_, hasRecords := top["records"]
	rawLayout, hasLayout := top["layout"]

	switch {
	case hasMetadata && hasRecords:
		return decodeTimeSeries(data)
	case hasLayout:
		return decodeLayout(rawLayout)
	default:
		keys := make([]string, 0, len(top))
		for k := range top {
			keys = append(keys, k)
		}
		return nil, fmt.Errorf("%w: top-level keys %v", ErrUnrecognizedShape, keys)
	}
}

// DecodeFile reads and decodes a payload file
func DecodeFile(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	payload, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return payload, nil
}

func decodeTimeSeries(data []byte) (*Payload, error) {
	var ts records.TimeSeriesData
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("%w: time series: %v", ErrMalformedJSON, err)
	}
	if ts.Records == nil {
		ts.Records = []records.IntervalRecord{}
	}

	payload := &Payload{Kind: KindTimeSeries, TimeSeries: &ts}
	for i, r := range ts.Records {
		if err := r.Validate(); err != nil {
			payload.Warnings = append(payload.Warnings, fmt.Sprintf("record %d: %v", i, err))
		}
	}
	return payload, nil
}

func decodeLayout(raw json.RawMessage) (*Payload, error) {
	var layout records.LayoutData
	if err := json.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("%w: layout: %v", ErrMalformedJSON, err)
	}

	payload := &Payload{Kind: KindLayout, Layout: &layout}
	if err := layout.Validate(); err != nil {
		payload.Warnings = append(payload.Warnings, err.Error())
	}
	return payload, nil
}
