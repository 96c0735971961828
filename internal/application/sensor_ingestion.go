package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/gasguard/internal/notify"
	"github.com/example/gasguard/internal/persistence"
)

// DefaultGasThreshold is the gas level in ppm above which a reading alerts.
const DefaultGasThreshold = 50.0

// SensorIngestion keeps the append-only reading log and evaluates each
// sample against the gas threshold. It is not safe for concurrent use.
type SensorIngestion struct {
	equipment persistence.EquipmentRepository
	alerts    AlertEmitter
	threshold float64
	now       func() time.Time
	logger    *slog.Logger

	readings []persistence.Reading
}

// NewSensorIngestion constructs the ingestion component. A non-positive
// threshold selects DefaultGasThreshold.
func NewSensorIngestion(equipment persistence.EquipmentRepository, alerts AlertEmitter, threshold float64, now func() time.Time) *SensorIngestion {
	return NewSensorIngestionWithLogger(equipment, alerts, threshold, now, nil)
}

// NewSensorIngestionWithLogger constructs the ingestion component with a specified logger.
func NewSensorIngestionWithLogger(equipment persistence.EquipmentRepository, alerts AlertEmitter, threshold float64, now func() time.Time, logger *slog.Logger) *SensorIngestion {
	if threshold <= 0 || math.IsNaN(threshold) {
		threshold = DefaultGasThreshold
	}
	if now == nil {
		now = time.Now
	}
	return &SensorIngestion{
		equipment: equipment,
		alerts:    defaultEmitter(alerts),
		threshold: threshold,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// Ingest appends a reading for known equipment. A zero timestamp is replaced
// by the current time. Levels strictly above the threshold raise GasLevelHigh.
func (s *SensorIngestion) Ingest(ctx context.Context, equipmentID string, gasLevel float64, timestamp time.Time) (reading persistence.Reading, err error) {
	if s == nil {
		err = fmt.Errorf("SensorIngestion is nil")
		return
	}

	if math.IsNaN(gasLevel) || math.IsInf(gasLevel, 0) || gasLevel < 0 {
		err = invalidField("gas_level", "gas level must be a finite, non-negative number")
		serviceLogger(ctx, s.logger, "SensorIngestion", "Ingest", "equipment_id", equipmentID).
			DebugContext(ctx, "reading rejected", "error", err, "error_kind", ErrorKind(err))
		return
	}
	if _, err = s.equipment.GetEquipment(ctx, equipmentID); err != nil {
		err = mapRepoError(err, ErrUnknownEquipment)
		serviceLogger(ctx, s.logger, "SensorIngestion", "Ingest", "equipment_id", equipmentID).
			WarnContext(ctx, "reading rejected", "error", err, "error_kind", ErrorKind(err))
		return
	}

	if timestamp.IsZero() {
		timestamp = s.now()
	}
	reading = persistence.Reading{Timestamp: timestamp, EquipmentID: equipmentID, GasLevel: gasLevel}
	s.readings = append(s.readings, reading)

	if gasLevel > s.threshold {
		s.alerts.Emit(ctx, Alert{
			Code:     AlertGasLevelHigh,
			Severity: notify.SeverityError,
			Message:  fmt.Sprintf("High gas level detected for %s (%s ppm)", equipmentID, formatLevel(gasLevel)),
			Subject:  equipmentID,
		})
	}
	return
}

// Readings returns readings taken at or after since, in ingestion order. An
// empty equipmentID selects every equipment; a zero since selects all time.
func (s *SensorIngestion) Readings(equipmentID string, since time.Time) []persistence.Reading {
	result := make([]persistence.Reading, 0)
	for _, reading := range s.readings {
		if equipmentID != "" && reading.EquipmentID != equipmentID {
			continue
		}
		if !since.IsZero() && reading.Timestamp.Before(since) {
			continue
		}
		result = append(result, reading)
	}
	return result
}

// Restore seeds the log from a snapshot. It is only valid before the first
// ingestion; later calls are ignored.
func (s *SensorIngestion) Restore(readings []persistence.Reading) {
	if len(s.readings) > 0 {
		return
	}
	s.readings = append([]persistence.Reading(nil), readings...)
}

func formatLevel(level float64) string {
	if level == math.Trunc(level) {
		return fmt.Sprintf("%.0f", level)
	}
	return fmt.Sprintf("%.2f", level)
}
