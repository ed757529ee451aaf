package infra

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mission-telemetry/app/src/infra/utils"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	IsolationLegacy = "legacy"
	IsolationStrict = "strict"
)

type Config struct {
	HTTPPort          string `yaml:"http_port"`
	GRPCPort          string `yaml:"grpc_port"`
	MetricsPort       string `yaml:"metrics_port"`
	DatabaseDSN       string `yaml:"db_dsn"`
	DatabaseHost      string `yaml:"db_host"`
	DatabasePort      string `yaml:"db_port"`
	DatabaseUser      string `yaml:"db_user"`
	DatabasePassword  string `yaml:"db_password"`
	DatabaseName      string `yaml:"db_name"`
	StorageDriver     string `yaml:"storage_driver"`
	MissionIsolation  string `yaml:"mission_isolation"`
	Timezone          string `yaml:"timezone"`
	MaxBodyBytes      int    `yaml:"max_body_bytes"`
	RecordInsertChunk int    `yaml:"record_insert_chunk"`
	FeedIntervalMS    int    `yaml:"feed_interval_ms"`
	FeedMissionID     string `yaml:"feed_mission_id"`
}

func defaultConfig() Config {
	return Config{
		HTTPPort:          "8080",
		GRPCPort:          "50051",
		MetricsPort:       "2112",
		StorageDriver:     StorageDriverPostgres,
		MissionIsolation:  IsolationLegacy,
		MaxBodyBytes:      1 << 20,
		RecordInsertChunk: 500,
		FeedIntervalMS:    1000,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file named by CONFIG_FILE
// and the environment, in that order of precedence (environment wins).
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.MetricsPort = getEnv("METRICS_PORT", c.MetricsPort)
	c.DatabaseDSN = getEnv("DB_DSN", c.DatabaseDSN)
	c.DatabaseHost = getEnv("DB_HOST", c.DatabaseHost)
	c.DatabasePort = getEnv("DB_PORT", c.DatabasePort)
	c.DatabaseUser = getEnv("DB_USER", c.DatabaseUser)
	c.DatabasePassword = getEnv("DB_PASSWORD", c.DatabasePassword)
	c.DatabaseName = getEnv("DB_NAME", c.DatabaseName)
	c.StorageDriver = getEnv("STORAGE_DRIVER", c.StorageDriver)
	c.MissionIsolation = getEnv("MISSION_ISOLATION", c.MissionIsolation)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.MaxBodyBytes = getEnvInt("MAX_BODY_BYTES", c.MaxBodyBytes)
	c.RecordInsertChunk = getEnvInt("RECORD_INSERT_CHUNK", c.RecordInsertChunk)
	c.FeedIntervalMS = getEnvInt("FEED_INTERVAL_MS", c.FeedIntervalMS)
	c.FeedMissionID = getEnv("FEED_MISSION_ID", c.FeedMissionID)
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.MissionIsolation = strings.ToLower(strings.TrimSpace(c.MissionIsolation))
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.RecordInsertChunk <= 0 {
		c.RecordInsertChunk = 500
	}
	if c.FeedIntervalMS <= 0 {
		c.FeedIntervalMS = 1000
	}
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("config: unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.MissionIsolation {
	case IsolationLegacy, IsolationStrict:
	default:
		return fmt.Errorf("config: unsupported MISSION_ISOLATION %q", c.MissionIsolation)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// StrictIsolation reports whether mission aggregates must be updated with compare-and-swap.
func (c Config) StrictIsolation() bool {
	return c.MissionIsolation == IsolationStrict
}

// Location resolves the zone used for timestamps without an explicit offset.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func LogConfig(ctx context.Context, logger *Logger, cfg Config) {
	logger.Printf(ctx, "HTTP_PORT=%s", cfg.HTTPPort)
	logger.Printf(ctx, "GRPC_PORT=%s", cfg.GRPCPort)
	logger.Printf(ctx, "METRICS_PORT=%s", utils.EmptyFallback(cfg.MetricsPort, "(disabled)"))
	logger.Printf(ctx, "STORAGE_DRIVER=%s", cfg.StorageDriver)
	if cfg.DatabaseDSN != "" {
		logger.Printf(ctx, "DB_DSN set (length %d)", len(cfg.DatabaseDSN))
	} else {
		logger.Println(ctx, "DB_DSN not provided")
	}
	logger.Printf(ctx, "DB_HOST=%s", utils.EmptyFallback(cfg.DatabaseHost, "(not set)"))
	logger.Printf(ctx, "DB_PORT=%s", utils.EmptyFallback(cfg.DatabasePort, "(not set)"))
	logger.Printf(ctx, "DB_USER=%s", utils.EmptyFallback(cfg.DatabaseUser, "(not set)"))
	if cfg.DatabasePassword != "" {
		logger.Println(ctx, "DB_PASSWORD set (redacted)")
	} else {
		logger.Println(ctx, "DB_PASSWORD not provided")
	}
	logger.Printf(ctx, "DB_NAME=%s", utils.EmptyFallback(cfg.DatabaseName, "(not set)"))
	logger.Printf(ctx, "MISSION_ISOLATION=%s", cfg.MissionIsolation)
	logger.Printf(ctx, "TIMEZONE=%s", utils.EmptyFallback(cfg.Timezone, "(local)"))
	logger.Printf(ctx, "MAX_BODY_BYTES=%d", cfg.MaxBodyBytes)
	logger.Printf(ctx, "RECORD_INSERT_CHUNK=%d", cfg.RecordInsertChunk)
	logger.Printf(ctx, "FEED_INTERVAL_MS=%d", cfg.FeedIntervalMS)
	logger.Printf(ctx, "FEED_MISSION_ID=%s", utils.EmptyFallback(cfg.FeedMissionID, "(auto)"))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
