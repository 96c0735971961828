package sqlstore

// Column types are chosen to be valid for both SQLite and PostgreSQL.
// Timestamps are stored as RFC 3339 text to keep the zone offset.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshot_meta (
		id       INTEGER PRIMARY KEY,
		taken_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id               TEXT PRIMARY KEY,
		brand            TEXT NOT NULL,
		model            TEXT NOT NULL,
		serial           TEXT NOT NULL UNIQUE,
		gas_types        TEXT NOT NULL,
		status           TEXT NOT NULL,
		site             TEXT NOT NULL,
		resume_status    TEXT NOT NULL,
		maintenance_hold INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_events (
		id           TEXT PRIMARY KEY,
		equipment_id TEXT NOT NULL,
		type         TEXT NOT NULL,
		event_date   TEXT NOT NULL,
		status       TEXT NOT NULL,
		outcome      TEXT,
		completed_at TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stock_items (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		quantity        INTEGER NOT NULL,
		min_threshold   INTEGER NOT NULL,
		expiration_date TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS technicians (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lat  DOUBLE PRECISION NOT NULL,
		lng  DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS interventions (
		id          TEXT PRIMARY KEY,
		label       TEXT NOT NULL,
		assigned_to TEXT,
		assigned_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS readings (
		seq          BIGINT PRIMARY KEY,
		equipment_id TEXT NOT NULL,
		gas_level    DOUBLE PRECISION NOT NULL,
		taken_at     TEXT NOT NULL
	)`,
}

// snapshotTables lists the tables cleared before each save, children first.
// readings is absent: it is appended to, not rewritten.
var snapshotTables = []string{
	"interventions",
	"technicians",
	"stock_items",
	"maintenance_events",
	"equipment",
	"snapshot_meta",
}
