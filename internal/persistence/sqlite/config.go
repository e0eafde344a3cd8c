package sqlite

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const memoryDSN = ":memory:"

// Config holds SQLite connection settings.
type Config struct {
	// Path is the database file path or ":memory:".
	Path string

	BusyTimeout       time.Duration
	EnableForeignKeys bool
	// JournalMode is one of DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF.
	JournalMode string
	// Synchronous is one of OFF, NORMAL, FULL, EXTRA.
	Synchronous string
	// CacheSize in pages, or KiB when negative.
	CacheSize int

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a configuration suited to a long-running server.
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		BusyTimeout:       30 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		CacheSize:         -2000,
		MaxOpenConns:      25,
		MaxIdleConns:      5,
		ConnMaxLifetime:   5 * time.Minute,
	}
}

// InMemoryTestConfig returns a single-connection in-memory configuration.
func InMemoryTestConfig() Config {
	return Config{
		Path:              memoryDSN,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "MEMORY",
		Synchronous:       "OFF",
		CacheSize:         -1000,
		MaxOpenConns:      1,
		MaxIdleConns:      1,
	}
}

// TempFileTestConfig returns a configuration for file-backed tests.
func TempFileTestConfig(path string) Config {
	cfg := InMemoryTestConfig()
	cfg.Path = path
	cfg.MaxOpenConns = 5
	cfg.MaxIdleConns = 2
	cfg.ConnMaxLifetime = time.Minute
	return cfg
}

var (
	validJournalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	validSyncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// Validate checks the configuration for values SQLite would reject.
func (c Config) Validate() error {
	switch {
	case c.Path == "":
		return fmt.Errorf("sqlite: path cannot be empty")
	case c.BusyTimeout < 0:
		return fmt.Errorf("sqlite: busy timeout cannot be negative")
	case c.JournalMode != "" && !validJournalModes[c.JournalMode]:
		return fmt.Errorf("sqlite: invalid journal mode %q", c.JournalMode)
	case c.Synchronous != "" && !validSyncModes[c.Synchronous]:
		return fmt.Errorf("sqlite: invalid synchronous mode %q", c.Synchronous)
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.ConnMaxLifetime < 0:
		return fmt.Errorf("sqlite: connection pool settings cannot be negative")
	case c.Path == memoryDSN && c.MaxOpenConns != 1:
		return fmt.Errorf("sqlite: in-memory databases require exactly one open connection")
	}
	return nil
}

// DataSourceName renders the driver DSN. Pragmas travel in the DSN so that every pooled
// connection gets them, and transactions begin IMMEDIATE so writers queue on busy_timeout
// instead of failing on lock upgrade.
func (c Config) DataSourceName() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.EnableForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}
	if c.CacheSize != 0 {
		params.Add("_pragma", fmt.Sprintf("cache_size(%d)", c.CacheSize))
	}
	params.Set("_txlock", "immediate")
	return c.Path + "?" + params.Encode()
}

// ensureDirectory creates the parent directory of a file database.
func (c Config) ensureDirectory() error {
	if c.Path == memoryDSN {
		return nil
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create database directory %s: %w", dir, err)
	}
	return nil
}
