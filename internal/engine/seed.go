package engine

import (
	"context"
	"fmt"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

// SeedDemo loads the demonstration technicians, interventions and stock
// items. It is meant for an empty engine and fails on the first error.
func (e *Engine) SeedDemo(ctx context.Context) error {
	technicians := []application.AddTechnicianInput{
		{Name: "Alice", Location: persistence.GeoPoint{Lat: 48.85, Lng: 2.35}},
		{Name: "Bob", Location: persistence.GeoPoint{Lat: 43.6, Lng: 1.44}},
	}
	for _, technician := range technicians {
		if _, err := e.AddTechnician(ctx, technician); err != nil {
			return fmt.Errorf("seed technician %s: %w", technician.Name, err)
		}
	}

	for _, label := range []string{"Maintenance capteur A", "Étalonnage détecteur B"} {
		if _, err := e.AddIntervention(ctx, label); err != nil {
			return fmt.Errorf("seed intervention %s: %w", label, err)
		}
	}

	today := application.CalendarDate(e.now(), e.location)
	stock := []application.AddStockInput{
		{Name: "Capteur gaz CO2", Quantity: 5, MinThreshold: 3, ExpirationDate: today.AddDate(1, 0, 0)},
		{Name: "Filtre H2S", Quantity: 2, MinThreshold: 5, ExpirationDate: today.AddDate(0, 6, 0)},
	}
	for _, item := range stock {
		if _, err := e.AddStock(ctx, item); err != nil {
			return fmt.Errorf("seed stock %s: %w", item.Name, err)
		}
	}

	e.logger.InfoContext(ctx, "demo data seeded")
	return nil
}
