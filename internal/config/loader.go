// Package config loads service settings from an optional .env file, an optional YAML
// file and BOOKING_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/room-booking/internal/scheduler"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Environment variable names.
const (
	EnvHTTPPort        = "BOOKING_HTTP_PORT"
	EnvStoreDriver     = "BOOKING_STORE_DRIVER"
	EnvSQLitePath      = "BOOKING_SQLITE_PATH"
	EnvPostgresDSN     = "BOOKING_POSTGRES_DSN"
	EnvRedisAddr       = "BOOKING_REDIS_ADDR"
	EnvRedisPassword   = "BOOKING_REDIS_PASSWORD"
	EnvRedisDB         = "BOOKING_REDIS_DB"
	EnvLockTTL         = "BOOKING_LOCK_TTL"
	EnvJWTSecret       = "BOOKING_JWT_SECRET"
	EnvJWTIssuer       = "BOOKING_JWT_ISSUER"
	EnvTimeZone        = "BOOKING_TIME_ZONE"
	EnvOpeningStart    = "BOOKING_OPENING_START"
	EnvOpeningEnd      = "BOOKING_OPENING_END"
	EnvShutdownTimeout = "BOOKING_SHUTDOWN_TIMEOUT"
	EnvLogLevel        = "BOOKING_LOG_LEVEL"
)

var envKeys = []string{
	EnvHTTPPort, EnvStoreDriver, EnvSQLitePath, EnvPostgresDSN,
	EnvRedisAddr, EnvRedisPassword, EnvRedisDB, EnvLockTTL,
	EnvJWTSecret, EnvJWTIssuer, EnvTimeZone, EnvOpeningStart, EnvOpeningEnd,
	EnvShutdownTimeout, EnvLogLevel,
}

// Config captures the settings of the booking service.
type Config struct {
	HTTPPort int

	StoreDriver string
	SQLitePath  string
	PostgresDSN string

	// RedisAddr selects the Redis approval lock. Empty means an in-process lock.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	JWTSecret string
	JWTIssuer string

	// Location decides which calendar day "today" is.
	Location        *time.Location
	OpeningHours    scheduler.Window
	ShutdownTimeout time.Duration
	LogLevel        slog.Level
}

// Options names the optional files consulted before the environment.
type Options struct {
	EnvFile    string
	ConfigFile string
}

// fileConfig is the YAML layout. Every value maps onto one environment variable.
type fileConfig struct {
	HTTPPort *int `yaml:"http_port"`
	Store    struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
	} `yaml:"redis"`
	LockTTL string `yaml:"lock_ttl"`
	JWT     struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`
	TimeZone     string `yaml:"time_zone"`
	OpeningHours struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"opening_hours"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	LogLevel        string `yaml:"log_level"`
}

func (f fileConfig) values() map[string]string {
	values := map[string]string{
		EnvStoreDriver:     f.Store.Driver,
		EnvSQLitePath:      f.Store.SQLitePath,
		EnvPostgresDSN:     f.Store.PostgresDSN,
		EnvRedisAddr:       f.Redis.Addr,
		EnvRedisPassword:   f.Redis.Password,
		EnvLockTTL:         f.LockTTL,
		EnvJWTSecret:       f.JWT.Secret,
		EnvJWTIssuer:       f.JWT.Issuer,
		EnvTimeZone:        f.TimeZone,
		EnvOpeningStart:    f.OpeningHours.Start,
		EnvOpeningEnd:      f.OpeningHours.End,
		EnvShutdownTimeout: f.ShutdownTimeout,
		EnvLogLevel:        f.LogLevel,
	}
	if f.HTTPPort != nil {
		values[EnvHTTPPort] = strconv.Itoa(*f.HTTPPort)
	}
	if f.Redis.DB != nil {
		values[EnvRedisDB] = strconv.Itoa(*f.Redis.DB)
	}
	return values
}

// Load reads opts.EnvFile into the process environment (existing variables win), then
// overlays the environment on opts.ConfigFile and the defaults.
func Load(opts Options) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	raw := map[string]string{}
	if opts.ConfigFile != "" {
		data, err := os.ReadFile(opts.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", opts.ConfigFile, err)
		}
		for key, value := range file.values() {
			raw[key] = value
		}
	}
	for _, key := range envKeys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			raw[key] = value
		}
	}

	return parse(raw)
}

func parse(raw map[string]string) (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		StoreDriver:     DriverSQLite,
		SQLitePath:      "booking.db",
		LockTTL:         30 * time.Second,
		Location:        time.UTC,
		OpeningHours:    scheduler.DefaultOpeningHours,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        slog.LevelInfo,
	}

	var missing, invalid []string
	value := func(key string) string { return strings.TrimSpace(raw[key]) }

	if v := value(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := value(EnvStoreDriver); v != "" {
		switch v {
		case DriverSQLite, DriverPostgres, DriverMemory:
			cfg.StoreDriver = v
		default:
			invalid = append(invalid, EnvStoreDriver)
		}
	}
	if v := value(EnvSQLitePath); v != "" {
		cfg.SQLitePath = v
	}
	cfg.PostgresDSN = value(EnvPostgresDSN)
	if cfg.StoreDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, EnvPostgresDSN)
	}

	cfg.RedisAddr = value(EnvRedisAddr)
	cfg.RedisPassword = raw[EnvRedisPassword]
	if v := value(EnvRedisDB); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			invalid = append(invalid, EnvRedisDB)
		} else {
			cfg.RedisDB = db
		}
	}
	parseDuration(value(EnvLockTTL), EnvLockTTL, &cfg.LockTTL, &invalid)

	if cfg.JWTSecret = value(EnvJWTSecret); cfg.JWTSecret == "" {
		missing = append(missing, EnvJWTSecret)
	}
	cfg.JWTIssuer = value(EnvJWTIssuer)

	if v := value(EnvTimeZone); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, EnvTimeZone)
		} else {
			cfg.Location = loc
		}
	}

	opening := cfg.OpeningHours
	openingValid := parseTimeOfDay(value(EnvOpeningStart), EnvOpeningStart, &opening.Start, &invalid)
	openingValid = parseTimeOfDay(value(EnvOpeningEnd), EnvOpeningEnd, &opening.End, &invalid) && openingValid
	if openingValid {
		if !opening.Valid() {
			invalid = append(invalid, EnvOpeningStart, EnvOpeningEnd)
		} else {
			cfg.OpeningHours = opening
		}
	}

	parseDuration(value(EnvShutdownTimeout), EnvShutdownTimeout, &cfg.ShutdownTimeout, &invalid)

	if v := value(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, EnvLogLevel)
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid settings: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func parseDuration(v, key string, dst *time.Duration, invalid *[]string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return
	}
	*dst = d
}

// parseTimeOfDay reports false when v was set but unparseable.
func parseTimeOfDay(v, key string, dst *scheduler.TimeOfDay, invalid *[]string) bool {
	if v == "" {
		return true
	}
	t, err := scheduler.ParseTimeOfDay(v)
	if err != nil {
		*invalid = append(*invalid, key)
		return false
	}
	*dst = t
	return true
}
