package occupancy

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/saaga0h/floorplan-dashboard/internal/records"
	"github.com/saaga0h/floorplan-dashboard/pkg/mqtt"
)

// Frame is the occupancy state at one playback frame
type Frame struct {
	Index     int              `json:"index"`
	Time      int64            `json:"time"`
	Clock     string           `json:"clock"`
	Date      string           `json:"date"`
	Occupancy map[string]int64 `json:"occupancy"`
	Active    []string         `json:"active"`
}

// NewFrame computes the frame at t from the filtered records
func NewFrame(recs []records.IntervalRecord, index int, t int64) Frame {
	active := ActiveEntitiesAt(recs, t)
	ids := make([]string, 0, len(active))
	for _, r := range active {
		ids = append(ids, r.EntityID)
	}
	return Frame{
		Index:     index,
		Time:      t,
		Clock:     records.FormatClock(t),
		Date:      DateAt(recs, t),
		Occupancy: OccupancyAt(recs, t),
		Active:    ids,
	}
}

// FramePublisher receives every frame playback moves to
type FramePublisher interface {
	PublishFrame(frame Frame) error
}

// NopPublisher discards frames
type NopPublisher struct{}

func (NopPublisher) PublishFrame(Frame) error { return nil }

// MQTTPublisher publishes frames as JSON to a fixed topic
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

// NewMQTTPublisher creates a publisher writing to topic
func NewMQTTPublisher(client mqtt.Client, topic string, logger *slog.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, logger: logger}
}

// PublishFrame sends the frame with QoS 0, not retained. Frames are
// dropped while the broker connection is down.
func (p *MQTTPublisher) PublishFrame(frame Frame) error {
	if !p.client.IsConnected() {
		p.logger.Debug("MQTT not connected, dropping frame", "index", frame.Index)
		return nil
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	if err := p.client.Publish(p.topic, 0, false, payload); err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}
	return nil
}
