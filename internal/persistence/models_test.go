package persistence_test

import (
	"testing"

	"github.com/example/gasguard/internal/persistence"
)

func TestEnumValidity(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
		got   bool
	}{
		{"stock status", true, persistence.EquipmentInStock.Valid()},
		{"in use status", true, persistence.EquipmentInUse.Valid()},
		{"maintenance status", true, persistence.EquipmentMaintenance.Valid()},
		{"retired status", false, persistence.EquipmentStatus("retired").Valid()},
		{"calibration type", true, persistence.MaintenanceCalibration.Valid()},
		{"bump type", true, persistence.MaintenanceBump.Valid()},
		{"routine type", true, persistence.MaintenanceRoutine.Valid()},
		{"empty type", false, persistence.MaintenanceType("").Valid()},
		{"planned", true, persistence.MaintenancePlanned.Valid()},
		{"done", true, persistence.MaintenanceDone.Valid()},
		{"missed", true, persistence.MaintenanceMissed.Valid()},
		{"cancelled", false, persistence.MaintenanceStatus("cancelled").Valid()},
	}

	for _, tt := range tests {
		if tt.got != tt.valid {
			t.Fatalf("%s: Valid() = %v, want %v", tt.name, tt.got, tt.valid)
		}
	}
}
