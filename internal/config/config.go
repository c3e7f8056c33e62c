// Package config loads the crmd configuration from an HCL file and
// fills in complete defaults when the file or individual settings are
// absent.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the root document.
type Config struct {
	StorageDriver string   `hcl:"storage_driver,optional"`
	SQLitePath    string   `hcl:"sqlite_path,optional"`
	PostgresDSN   string   `hcl:"postgres_dsn,optional"`
	LogDir        string   `hcl:"log_dir,optional"`
	BlobDriver    string   `hcl:"blob_driver,optional"`
	Gateway       *Gateway `hcl:"gateway,block"`
	Jobs          *Jobs    `hcl:"jobs,block"`
}

// Gateway configures the query gateway client. An empty endpoint means
// the in-process client.
type Gateway struct {
	Endpoint        string `hcl:"endpoint,optional"`
	TimeoutSeconds  int    `hcl:"timeout_seconds,optional"`
	MaxRetries      int    `hcl:"max_retries,optional"`
	RetryIntervalMS int    `hcl:"retry_interval_ms,optional"`
}

// Jobs configures the job cadences.
type Jobs struct {
	HeartbeatMinutes int    `hcl:"heartbeat_minutes,optional"`
	ReplenishHours   int    `hcl:"replenish_hours,optional"`
	ReportWeekday    string `hcl:"report_weekday,optional"`
	// Hours are pointers so midnight (0) stays distinguishable from unset.
	ReportHour    *int `hcl:"report_hour,optional"`
	RemindersHour *int `hcl:"reminders_hour,optional"`
}

func intp(v int) *int { return &v }

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StorageDriver: "sqlite",
		SQLitePath:    "crmcore.db",
		LogDir:        "./logs",
		BlobDriver:    "fs",
		Gateway: &Gateway{
			TimeoutSeconds:  10,
			MaxRetries:      3,
			RetryIntervalMS: 500,
		},
		Jobs: &Jobs{
			HeartbeatMinutes: 5,
			ReplenishHours:   12,
			ReportWeekday:    "monday",
			ReportHour:       intp(6),
			RemindersHour:    intp(8),
		},
	}
}

// Load reads path. A missing file yields the defaults; a present file
// is decoded over them, so unset fields keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("parse config %s: %s", path, diags.Error())
	}
	var loaded Config
	if diags := gohcl.DecodeBody(file.Body, nil, &loaded); diags.HasErrors() {
		return Config{}, fmt.Errorf("decode config %s: %s", path, diags.Error())
	}
	merge(&cfg, loaded)
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func merge(into *Config, from Config) {
	if from.StorageDriver != "" {
		into.StorageDriver = from.StorageDriver
	}
	if from.SQLitePath != "" {
		into.SQLitePath = from.SQLitePath
	}
	if from.PostgresDSN != "" {
		into.PostgresDSN = from.PostgresDSN
	}
	if from.LogDir != "" {
		into.LogDir = from.LogDir
	}
	if from.BlobDriver != "" {
		into.BlobDriver = from.BlobDriver
	}
	if from.Gateway != nil {
		if from.Gateway.Endpoint != "" {
			into.Gateway.Endpoint = from.Gateway.Endpoint
		}
		if from.Gateway.TimeoutSeconds > 0 {
			into.Gateway.TimeoutSeconds = from.Gateway.TimeoutSeconds
		}
		if from.Gateway.MaxRetries > 0 {
			into.Gateway.MaxRetries = from.Gateway.MaxRetries
		}
		if from.Gateway.RetryIntervalMS > 0 {
			into.Gateway.RetryIntervalMS = from.Gateway.RetryIntervalMS
		}
	}
	if from.Jobs != nil {
		if from.Jobs.HeartbeatMinutes > 0 {
			into.Jobs.HeartbeatMinutes = from.Jobs.HeartbeatMinutes
		}
		if from.Jobs.ReplenishHours > 0 {
			into.Jobs.ReplenishHours = from.Jobs.ReplenishHours
		}
		if from.Jobs.ReportWeekday != "" {
			into.Jobs.ReportWeekday = from.Jobs.ReportWeekday
		}
		if from.Jobs.ReportHour != nil {
			into.Jobs.ReportHour = from.Jobs.ReportHour
		}
		if from.Jobs.RemindersHour != nil {
			into.Jobs.RemindersHour = from.Jobs.RemindersHour
		}
	}
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	switch c.BlobDriver {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
	if _, err := c.ReportWeekday(); err != nil {
		return err
	}
	if h := c.ReportHour(); h < 0 || h > 23 {
		return fmt.Errorf("report hour %d out of range", h)
	}
	if h := c.RemindersHour(); h < 0 || h > 23 {
		return fmt.Errorf("reminders hour %d out of range", h)
	}
	return nil
}

// GatewayTimeout returns the per-request timeout.
func (c Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// GatewayRetryInterval returns the initial backoff between retries.
func (c Config) GatewayRetryInterval() time.Duration {
	return time.Duration(c.Gateway.RetryIntervalMS) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat cadence.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Jobs.HeartbeatMinutes) * time.Minute
}

// ReplenishInterval returns the replenishment cadence.
func (c Config) ReplenishInterval() time.Duration {
	return time.Duration(c.Jobs.ReplenishHours) * time.Hour
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ReportHour returns the hour of day the weekly report fires.
func (c Config) ReportHour() int {
	if c.Jobs == nil || c.Jobs.ReportHour == nil {
		return 6
	}
	return *c.Jobs.ReportHour
}

// RemindersHour returns the hour of day the order reminders job fires.
func (c Config) RemindersHour() int {
	if c.Jobs == nil || c.Jobs.RemindersHour == nil {
		return 8
	}
	return *c.Jobs.RemindersHour
}

// ReportWeekday parses the configured report day.
func (c Config) ReportWeekday() (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(c.Jobs.ReportWeekday)]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", c.Jobs.ReportWeekday)
	}
	return day, nil
}
