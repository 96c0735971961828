// Package telemetry feeds gas readings into the engine from MQTT or a
// local simulation.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

// ReadingSink accepts decoded readings.
type ReadingSink interface {
	IngestReading(ctx context.Context, equipmentID string, gasLevel float64, timestamp time.Time) (persistence.Reading, error)
}

// EquipmentLister lists registered equipment.
type EquipmentLister interface {
	ListEquipment(ctx context.Context, filter application.EquipmentFilter) ([]persistence.Equipment, error)
}

// ErrMalformedReading is returned for payloads that cannot be decoded.
var ErrMalformedReading = errors.New("telemetry: malformed reading")

type readingMessage struct {
	EquipmentID string          `json:"equipment_id"`
	GasLevel    *float64        `json:"gas_level"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// DecodeReading parses a reading payload. The equipment id falls back to the
// last topic segment and a missing timestamp falls back to now. Timestamps
// are RFC 3339 strings or unix milliseconds.
func DecodeReading(topic string, payload []byte, now time.Time) (persistence.Reading, error) {
	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return persistence.Reading{}, fmt.Errorf("%w: %v", ErrMalformedReading, err)
	}
	if msg.GasLevel == nil {
		return persistence.Reading{}, fmt.Errorf("%w: gas_level is required", ErrMalformedReading)
	}

	id := strings.TrimSpace(msg.EquipmentID)
	if id == "" {
		id = lastSegment(topic)
	}
	if id == "" || id == "+" || id == "#" {
		return persistence.Reading{}, fmt.Errorf("%w: equipment id is missing", ErrMalformedReading)
	}

	ts, err := decodeTimestamp(msg.Timestamp, now)
	if err != nil {
		return persistence.Reading{}, err
	}
	return persistence.Reading{EquipmentID: id, GasLevel: *msg.GasLevel, Timestamp: ts}, nil
}

func decodeTimestamp(raw json.RawMessage, now time.Time) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return now, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedReading, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedReading, err)
		}
		return ts, nil
	}
	millis, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedReading, err)
	}
	return time.UnixMilli(millis).UTC(), nil
}

func lastSegment(topic string) string {
	topic = strings.TrimRight(topic, "/")
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
