package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings of the gasguard process.
type Config struct {
	HTTPPort int    `yaml:"http_port"`
	TimeZone string `yaml:"time_zone"`
	// Location is resolved from TimeZone by Load.
	Location *time.Location `yaml:"-"`

	NotificationTTL          time.Duration `yaml:"notification_ttl"`
	GasThreshold             float64       `yaml:"gas_threshold"`
	MaintenanceLookAheadDays int           `yaml:"maintenance_look_ahead_days"`
	ReminderWindow           time.Duration `yaml:"reminder_window"`

	Intervals Intervals `yaml:"intervals"`
	Storage   Storage   `yaml:"storage"`
	Redis     Redis     `yaml:"redis"`
	MQTT      MQTT      `yaml:"mqtt"`
	Log       Log       `yaml:"log"`

	Simulate bool `yaml:"simulate"`
	SeedDemo bool `yaml:"seed_demo"`
}

// Intervals sets the periodic task cadence. Negative values disable a task.
type Intervals struct {
	Notifications time.Duration `yaml:"notifications"`
	Maintenance   time.Duration `yaml:"maintenance"`
	Stock         time.Duration `yaml:"stock"`
	Snapshot      time.Duration `yaml:"snapshot"`
}

// Storage selects the snapshot backend. Driver "memory" disables snapshots.
type Storage struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Redis configures the live state mirror. An empty Addr disables it.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// MQTT configures the reading subscriber. An empty Broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:                 8080,
		TimeZone:                 "UTC",
		Location:                 time.UTC,
		NotificationTTL:          5 * time.Second,
		GasThreshold:             50,
		MaintenanceLookAheadDays: 0,
		ReminderWindow:           24 * time.Hour,
		Intervals: Intervals{
			Notifications: time.Second,
			Maintenance:   15 * time.Second,
			Stock:         30 * time.Second,
			Snapshot:      time.Minute,
		},
		Storage: Storage{Driver: "memory"},
		Redis:   Redis{Prefix: "gasguard:"},
		MQTT:    MQTT{Topic: "gasguard/readings/+", ClientID: "gasguard"},
		Log:     Log{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, an optional .env file
// (GASGUARD_DOTENV, default ".env"), an optional YAML file
// (GASGUARD_CONFIG_FILE) and finally the process environment.
//
// Every invalid value is reported in a single error.
func Load() (Config, error) {
	dotenv := strings.TrimSpace(os.Getenv("GASGUARD_DOTENV"))
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", dotenv, err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("GASGUARD_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	return applyEnvironment(cfg, os.LookupEnv)
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

type envReader struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	if v, ok := r.value(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.invalid = append(r.invalid, key)
			return
		}
		*dst = n
	}
}

func (r *envReader) float(key string, dst *float64) {
	if v, ok := r.value(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.invalid = append(r.invalid, key)
			return
		}
		*dst = f
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.value(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.invalid = append(r.invalid, key)
			return
		}
		*dst = d
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	if v, ok := r.value(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.invalid = append(r.invalid, key)
			return
		}
		*dst = b
	}
}

func applyEnvironment(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	env := &envReader{lookup: lookup}

	env.integer("GASGUARD_HTTP_PORT", &cfg.HTTPPort)
	env.str("GASGUARD_TIMEZONE", &cfg.TimeZone)
	env.duration("GASGUARD_NOTIFICATION_TTL", &cfg.NotificationTTL)
	env.float("GASGUARD_GAS_THRESHOLD", &cfg.GasThreshold)
	env.integer("GASGUARD_MAINTENANCE_LOOKAHEAD_DAYS", &cfg.MaintenanceLookAheadDays)
	env.duration("GASGUARD_REMINDER_WINDOW", &cfg.ReminderWindow)

	env.duration("GASGUARD_SWEEP_NOTIFICATIONS", &cfg.Intervals.Notifications)
	env.duration("GASGUARD_SWEEP_MAINTENANCE", &cfg.Intervals.Maintenance)
	env.duration("GASGUARD_SWEEP_STOCK", &cfg.Intervals.Stock)
	env.duration("GASGUARD_SNAPSHOT_INTERVAL", &cfg.Intervals.Snapshot)

	env.str("GASGUARD_STORAGE_DRIVER", &cfg.Storage.Driver)
	env.str("GASGUARD_STORAGE_DSN", &cfg.Storage.DSN)

	env.str("GASGUARD_REDIS_ADDR", &cfg.Redis.Addr)
	env.str("GASGUARD_REDIS_PASSWORD", &cfg.Redis.Password)
	env.integer("GASGUARD_REDIS_DB", &cfg.Redis.DB)
	env.str("GASGUARD_REDIS_PREFIX", &cfg.Redis.Prefix)

	env.str("GASGUARD_MQTT_BROKER", &cfg.MQTT.Broker)
	env.str("GASGUARD_MQTT_TOPIC", &cfg.MQTT.Topic)
	env.str("GASGUARD_MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	env.str("GASGUARD_MQTT_USERNAME", &cfg.MQTT.Username)
	env.str("GASGUARD_MQTT_PASSWORD", &cfg.MQTT.Password)

	env.boolean("GASGUARD_SIMULATE", &cfg.Simulate)
	env.boolean("GASGUARD_SEED_DEMO", &cfg.SeedDemo)
	env.str("GASGUARD_LOG_LEVEL", &cfg.Log.Level)
	env.str("GASGUARD_LOG_FORMAT", &cfg.Log.Format)

	invalid := append(env.invalid, cfg.validate()...)
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(dedupe(invalid), ", "))
	}

	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration values: GASGUARD_TIMEZONE")
	}
	cfg.Location = location
	return cfg, nil
}

// validate reports the keys of semantically invalid settings.
func (c Config) validate() []string {
	var invalid []string
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "GASGUARD_HTTP_PORT")
	}
	if c.NotificationTTL <= 0 {
		invalid = append(invalid, "GASGUARD_NOTIFICATION_TTL")
	}
	if c.GasThreshold < 0 {
		invalid = append(invalid, "GASGUARD_GAS_THRESHOLD")
	}
	if c.MaintenanceLookAheadDays < 0 {
		invalid = append(invalid, "GASGUARD_MAINTENANCE_LOOKAHEAD_DAYS")
	}
	if c.ReminderWindow <= 0 {
		invalid = append(invalid, "GASGUARD_REMINDER_WINDOW")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			invalid = append(invalid, "GASGUARD_STORAGE_DSN")
		}
	default:
		invalid = append(invalid, "GASGUARD_STORAGE_DRIVER")
	}
	if c.Redis.DB < 0 {
		invalid = append(invalid, "GASGUARD_REDIS_DB")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "GASGUARD_LOG_LEVEL")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		invalid = append(invalid, "GASGUARD_LOG_FORMAT")
	}
	return invalid
}

// SnapshotsEnabled reports whether a persistent snapshot store is configured.
func (c Config) SnapshotsEnabled() bool {
	return c.Storage.Driver != "" && c.Storage.Driver != "memory"
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
