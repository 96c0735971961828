package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/gasguard/internal/persistence"
)

var _ persistence.SnapshotStore = (*Store)(nil)

const timeLayout = time.RFC3339Nano

// Save replaces every stored row with the snapshot contents in one
// transaction. The reading log is append-only, so only readings past the last
// stored seq are inserted.
func (s *Store) Save(ctx context.Context, snapshot persistence.Snapshot) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range snapshotTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			s.Q("INSERT INTO snapshot_meta (id, taken_at) VALUES (?, ?)"),
			1, formatTime(snapshot.TakenAt),
		); err != nil {
			return fmt.Errorf("insert snapshot meta: %w", err)
		}

		for _, eq := range snapshot.Equipment {
			gasTypes, err := json.Marshal(nonNilStrings(eq.GasTypes))
			if err != nil {
				return fmt.Errorf("encode gas types for %s: %w", eq.ID, err)
			}
			if _, err := tx.ExecContext(ctx, s.Q(`INSERT INTO equipment
				(id, brand, model, serial, gas_types, status, site, resume_status, maintenance_hold, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				eq.ID, eq.Brand, eq.Model, eq.Serial, string(gasTypes), string(eq.Status), eq.Site,
				string(eq.ResumeStatus), boolToInt(eq.MaintenanceHold),
				formatTime(eq.CreatedAt), formatTime(eq.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert equipment %s: %w", eq.ID, err)
			}
		}

		for _, ev := range snapshot.Maintenance {
			var outcome sql.NullString
			if ev.Outcome != nil {
				raw, err := json.Marshal(ev.Outcome)
				if err != nil {
					return fmt.Errorf("encode outcome for %s: %w", ev.ID, err)
				}
				outcome = sql.NullString{String: string(raw), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, s.Q(`INSERT INTO maintenance_events
				(id, equipment_id, type, event_date, status, outcome, completed_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				ev.ID, ev.EquipmentID, string(ev.Type), formatTime(ev.Date), string(ev.Status),
				outcome, formatTimePtr(ev.CompletedAt), formatTime(ev.CreatedAt), formatTime(ev.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert maintenance event %s: %w", ev.ID, err)
			}
		}

		for _, item := range snapshot.Stock {
			var expiration sql.NullString
			if !item.ExpirationDate.IsZero() {
				expiration = sql.NullString{String: formatTime(item.ExpirationDate), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, s.Q(`INSERT INTO stock_items
				(id, name, quantity, min_threshold, expiration_date, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				item.ID, item.Name, item.Quantity, item.MinThreshold, expiration,
				formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
			); err != nil {
				return fmt.Errorf("insert stock item %s: %w", item.ID, err)
			}
		}

		for _, tech := range snapshot.Technicians {
			if _, err := tx.ExecContext(ctx,
				s.Q("INSERT INTO technicians (id, name, lat, lng) VALUES (?, ?, ?, ?)"),
				tech.ID, tech.Name, tech.Location.Lat, tech.Location.Lng,
			); err != nil {
				return fmt.Errorf("insert technician %s: %w", tech.ID, err)
			}
		}

		for _, in := range snapshot.Interventions {
			var assignedTo sql.NullString
			if in.AssignedTo != nil {
				assignedTo = sql.NullString{String: *in.AssignedTo, Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				s.Q("INSERT INTO interventions (id, label, assigned_to, assigned_at) VALUES (?, ?, ?, ?)"),
				in.ID, in.Label, assignedTo, formatTimePtr(in.AssignedAt),
			); err != nil {
				return fmt.Errorf("insert intervention %s: %w", in.ID, err)
			}
		}

		return s.appendReadings(ctx, tx, snapshot.Readings)
	})
}

// appendReadings stores readings[i] under seq i+1. Rows beyond the snapshot's
// log belong to another history and are removed.
func (s *Store) appendReadings(ctx context.Context, tx *sql.Tx, readings []persistence.Reading) error {
	var last int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM readings").Scan(&last); err != nil {
		return fmt.Errorf("read last reading seq: %w", err)
	}
	if total := int64(len(readings)); last > total {
		if _, err := tx.ExecContext(ctx, s.Q("DELETE FROM readings WHERE seq > ?"), total); err != nil {
			return fmt.Errorf("truncate readings: %w", err)
		}
		last = total
	}

	for seq := last + 1; seq <= int64(len(readings)); seq++ {
		r := readings[seq-1]
		if _, err := tx.ExecContext(ctx,
			s.Q("INSERT INTO readings (seq, equipment_id, gas_level, taken_at) VALUES (?, ?, ?, ?)"),
			seq, r.EquipmentID, r.GasLevel, formatTime(r.Timestamp),
		); err != nil {
			return fmt.Errorf("insert reading %d: %w", seq, err)
		}
	}
	return nil
}

// Load returns the last saved snapshot, or persistence.ErrNotFound when none exists.
func (s *Store) Load(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot

	var takenAt string
	err := s.db.QueryRowContext(ctx, s.Q("SELECT taken_at FROM snapshot_meta WHERE id = ?"), 1).Scan(&takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot, persistence.ErrNotFound
	}
	if err != nil {
		return snapshot, fmt.Errorf("load snapshot meta: %w", err)
	}
	if snapshot.TakenAt, err = parseTime(takenAt); err != nil {
		return snapshot, fmt.Errorf("load snapshot meta: %w", err)
	}

	loaders := []struct {
		name string
		fn   func(context.Context, *persistence.Snapshot) error
	}{
		{"equipment", s.loadEquipment},
		{"maintenance events", s.loadMaintenance},
		{"stock items", s.loadStock},
		{"technicians", s.loadTechnicians},
		{"interventions", s.loadInterventions},
		{"readings", s.loadReadings},
	}
	for _, loader := range loaders {
		if err := loader.fn(ctx, &snapshot); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("load %s: %w", loader.name, err)
		}
	}
	return snapshot, nil
}

func (s *Store) loadEquipment(ctx context.Context, snapshot *persistence.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, brand, model, serial, gas_types, status, site,
		resume_status, maintenance_hold, created_at, updated_at FROM equipment ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eq                   persistence.Equipment
			gasTypes             string
			status, resume       string
			hold                 int
			createdAt, updatedAt string
		)
		if err := rows.Scan(&eq.ID, &eq.Brand, &eq.Model, &eq.Serial, &gasTypes, &status, &eq.Site,
			&resume, &hold, &createdAt, &updatedAt); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(gasTypes), &eq.GasTypes); err != nil {
			return fmt.Errorf("decode gas types for %s: %w", eq.ID, err)
		}
		eq.Status = persistence.EquipmentStatus(status)
		eq.ResumeStatus = persistence.EquipmentStatus(resume)
		eq.MaintenanceHold = hold != 0
		if eq.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if eq.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		snapshot.Equipment = append(snapshot.Equipment, eq)
	}
	return rows.Err()
}

func (s *Store) loadMaintenance(ctx context.Context, snapshot *persistence.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, equipment_id, type, event_date, status, outcome,
		completed_at, created_at, updated_at FROM maintenance_events ORDER BY event_date, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev                         persistence.MaintenanceEvent
			kind, status               string
			date, createdAt, updatedAt string
			outcome, completedAt       sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.EquipmentID, &kind, &date, &status, &outcome,
			&completedAt, &createdAt, &updatedAt); err != nil {
			return err
		}
		ev.Type = persistence.MaintenanceType(kind)
		ev.Status = persistence.MaintenanceStatus(status)
		if outcome.Valid {
			if err := json.Unmarshal([]byte(outcome.String), &ev.Outcome); err != nil {
				return fmt.Errorf("decode outcome for %s: %w", ev.ID, err)
			}
		}
		if ev.Date, err = parseTime(date); err != nil {
			return err
		}
		if ev.CompletedAt, err = parseTimePtr(completedAt); err != nil {
			return err
		}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if ev.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		snapshot.Maintenance = append(snapshot.Maintenance, ev)
	}
	return rows.Err()
}

func (s *Store) loadStock(ctx context.Context, snapshot *persistence.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, quantity, min_threshold, expiration_date,
		created_at, updated_at FROM stock_items ORDER BY name, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item                 persistence.StockItem
			expiration           sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.MinThreshold, &expiration,
			&createdAt, &updatedAt); err != nil {
			return err
		}
		if expiration.Valid {
			if item.ExpirationDate, err = parseTime(expiration.String); err != nil {
				return err
			}
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		snapshot.Stock = append(snapshot.Stock, item)
	}
	return rows.Err()
}

func (s *Store) loadTechnicians(ctx context.Context, snapshot *persistence.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, lat, lng FROM technicians ORDER BY name, id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tech persistence.Technician
		if err := rows.Scan(&tech.ID, &tech.Name, &tech.Location.Lat, &tech.Location.Lng); err != nil {
			return err
		}
		snapshot.Technicians = append(snapshot.Technicians, tech)
	}
	return rows.Err()
}

func (s *Store) loadInterventions(ctx context.Context, snapshot *persistence.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, label, assigned_to, assigned_at FROM interventions ORDER BY label, id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			in                     persistence.Intervention
			assignedTo, assignedAt sql.NullString
		)
		if err := rows.Scan(&in.ID, &in.Label, &assignedTo, &assignedAt); err != nil {
			return err
		}
		if assignedTo.Valid {
			tech := assignedTo.String
			in.AssignedTo = &tech
		}
		if in.AssignedAt, err = parseTimePtr(assignedAt); err != nil {
			return err
		}
		snapshot.Interventions = append(snapshot.Interventions, in)
	}
	return rows.Err()
}

func (s *Store) loadReadings(ctx context.Context, snapshot *persistence.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, "SELECT equipment_id, gas_level, taken_at FROM readings ORDER BY seq")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r       persistence.Reading
			takenAt string
		)
		if err := rows.Scan(&r.EquipmentID, &r.GasLevel, &takenAt); err != nil {
			return err
		}
		if r.Timestamp, err = parseTime(takenAt); err != nil {
			return err
		}
		snapshot.Readings = append(snapshot.Readings, r)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
	}
	return t, nil
}

func parseTimePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
