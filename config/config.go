package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"

	PayloadV1 = "1.0"
	PayloadV2 = "2.0"
)

var sqlIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config is resolved once at process start and passed down explicitly.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Lambda  LambdaConfig  `yaml:"lambda"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	Driver    string `yaml:"driver"`
	TableName string `yaml:"table_name"`
	UserIndex string `yaml:"user_index"`

	// DynamoDB
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // DynamoDB Local, e.g. http://localhost:8000

	// SQLite
	SQLitePath    string        `yaml:"sqlite_path"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type LoggingConfig struct {
	Level  string       `yaml:"level"`
	Format string       `yaml:"format"` // json | console
	Output string       `yaml:"output"` // stdout | stderr | file path
	Rotate RotateConfig `yaml:"rotate"`
}

type RotateConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

type LambdaConfig struct {
	PayloadVersion string `yaml:"payload_version"`
}

// Default returns the configuration used when no file or environment is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":3000"},
		Store: StoreConfig{
			Driver:        DriverDynamoDB,
			TableName:     "tasks",
			UserIndex:     "user-index",
			SQLitePath:    "./tasks.db",
			SweepInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			Rotate: RotateConfig{MaxSizeMB: 100, MaxAgeDays: 7, Compress: true},
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "todo_api"},
		Lambda:  LambdaConfig{PayloadVersion: PayloadV1},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the process environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("TABLE_NAME", &cfg.Store.TableName)
	str("USER_INDEX_NAME", &cfg.Store.UserIndex)
	str("STORE_DRIVER", &cfg.Store.Driver)
	str("AWS_REGION", &cfg.Store.Region)
	str("DYNAMODB_ENDPOINT", &cfg.Store.Endpoint)
	str("SQLITE_PATH", &cfg.Store.SQLitePath)
	str("ADDR", &cfg.Server.Addr)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	str("LOG_OUTPUT", &cfg.Logging.Output)
	str("LAMBDA_PAYLOAD_VERSION", &cfg.Lambda.PayloadVersion)

	if v, ok := lookup("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Addr = ":" + v
	}
	if v, ok := lookup("SWEEP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SWEEP_INTERVAL: %w", err)
		}
		cfg.Store.SweepInterval = d
	}
	if v, ok := lookup("METRICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

// Validate reports the first setting that cannot be used to start the service.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverDynamoDB, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.TableName == "" {
		return errors.New("TABLE_NAME is required")
	}
	if c.Store.Driver == DriverDynamoDB && c.Store.UserIndex == "" {
		return errors.New("user index name is required for dynamodb")
	}
	if c.Store.Driver == DriverSQLite {
		if !sqlIdent.MatchString(c.Store.TableName) {
			return fmt.Errorf("table name %q is not a valid sqlite identifier", c.Store.TableName)
		}
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite path is required")
		}
	}
	if c.Store.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	switch c.Lambda.PayloadVersion {
	case PayloadV1, PayloadV2:
	default:
		return fmt.Errorf("unsupported lambda payload version %q", c.Lambda.PayloadVersion)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path %q must start with /", c.Metrics.Path)
	}
	return nil
}
