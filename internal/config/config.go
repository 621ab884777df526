package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable pointing at an optional YAML or TOML overlay.
const ConfigFileEnv = "KHATA_CONFIG_FILE"

type Config struct {
	// HTTP Server
	Port               string        `yaml:"port" toml:"port"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`

	// Storage
	DataBackend  string `yaml:"data_backend" toml:"data_backend"`
	SQLiteDBPath string `yaml:"sqlite_db_path" toml:"sqlite_db_path"`

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string `yaml:"amqp_url" toml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange" toml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue" toml:"amqp_queue"`

	// Exports written by the worker
	ExportDir string `yaml:"export_dir" toml:"export_dir"`

	// Scheduled jobs, standard five field cron expressions
	SnapshotSchedule string `yaml:"snapshot_schedule" toml:"snapshot_schedule"`
	CleanupSchedule  string `yaml:"cleanup_schedule" toml:"cleanup_schedule"`

	// Summary cache
	SummaryCacheSize int           `yaml:"summary_cache_size" toml:"summary_cache_size"`
	SummaryCacheTTL  time.Duration `yaml:"summary_cache_ttl" toml:"summary_cache_ttl"`

	Timezone string `yaml:"timezone" toml:"timezone"`
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// Google Sheets export, optional
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id" toml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name" toml:"google_sheet_name"`
	GoogleServiceAccountJSON string `yaml:"google_service_account_json" toml:"google_service_account_json"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file" toml:"google_service_account_file"`
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/khata.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "khata"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changed"),

		ExportDir: getEnv("EXPORT_DIR", "./exports"),

		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "*/30 * * * *"),
		CleanupSchedule:  getEnv("CLEANUP_SCHEDULE", "0 3 * * *"),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 100),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),

		Timezone: getEnv("TIMEZONE", "Local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}
}

// LoadWithOverlay loads the environment and, when KHATA_CONFIG_FILE is set,
// applies that file on top.
func LoadWithOverlay() (*Config, error) {
	cfg := Load()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// MergeFile decodes a YAML or TOML file, chosen by extension, and copies
// its non-zero fields over c.
func (c *Config) MergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var overlay Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &overlay)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &overlay)
	default:
		return fmt.Errorf("unsupported config file %s: expected .yaml, .yml or .toml", path)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.merge(overlay)
	return nil
}

func (c *Config) merge(o Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&c.Port, o.Port)
	setString(&c.DataBackend, o.DataBackend)
	setString(&c.SQLiteDBPath, o.SQLiteDBPath)
	setString(&c.AMQPURL, o.AMQPURL)
	setString(&c.AMQPExchange, o.AMQPExchange)
	setString(&c.AMQPQueue, o.AMQPQueue)
	setString(&c.ExportDir, o.ExportDir)
	setString(&c.SnapshotSchedule, o.SnapshotSchedule)
	setString(&c.CleanupSchedule, o.CleanupSchedule)
	setString(&c.Timezone, o.Timezone)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.GoogleSpreadsheetID, o.GoogleSpreadsheetID)
	setString(&c.GoogleSheetName, o.GoogleSheetName)
	setString(&c.GoogleServiceAccountJSON, o.GoogleServiceAccountJSON)
	setString(&c.GoogleServiceAccountFile, o.GoogleServiceAccountFile)

	if o.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = o.RateLimitPerMinute
	}
	if o.ShutdownTimeout != 0 {
		c.ShutdownTimeout = o.ShutdownTimeout
	}
	if o.SummaryCacheSize != 0 {
		c.SummaryCacheSize = o.SummaryCacheSize
	}
	if o.SummaryCacheTTL != 0 {
		c.SummaryCacheTTL = o.SummaryCacheTTL
	}
}

// Location resolves Timezone. Local and the empty string mean time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SheetsEnabled reports whether rows should also be pushed to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ExportDir == "" {
		errors = append(errors, "export directory cannot be empty")
	}

	for name, expr := range map[string]string{"snapshot": c.SnapshotSchedule, "cleanup": c.CleanupSchedule} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s schedule '%s': %v", name, expr, err))
		}
	}

	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary cache ttl %v: must be at least 1 second", c.SummaryCacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
