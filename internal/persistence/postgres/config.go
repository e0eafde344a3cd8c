package postgres

import (
	"errors"
	"fmt"
	"time"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	// DSN is a lib/pq connection string, URL or key=value form.
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectAttempts bounds how often Open pings a database that is still starting.
	ConnectAttempts int
	RetryDelay      time.Duration
}

// DefaultConfig returns production defaults for dsn.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectAttempts: 10,
		RetryDelay:      2 * time.Second,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		errs = append(errs, fmt.Errorf("connection limits must not be negative (open %d, idle %d)", c.MaxOpenConns, c.MaxIdleConns))
	}
	if c.ConnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("connect attempts must be at least 1, got %d", c.ConnectAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid postgres config: %w", errors.Join(errs...))
	}
	return nil
}
