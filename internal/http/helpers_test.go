package http

import (
	"testing"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

func maintenanceInput(t *testing.T, equipmentID string, date time.Time) application.ScheduleMaintenanceInput {
	t.Helper()
	return application.ScheduleMaintenanceInput{
		EquipmentID: equipmentID,
		Type:        persistence.MaintenanceCalibration,
		Date:        date,
	}
}
