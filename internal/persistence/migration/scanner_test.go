package migration

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		files         fstest.MapFS
		expectedOrder []string
		expectErr     error
		errorContains string
	}{
		{
			name: "orders by numeric version",
			files: fstest.MapFS{
				"migrations/010_indexes.sql": {Data: []byte("CREATE INDEX idx ON rooms(name);")},
				"migrations/002_rooms.sql":   {Data: []byte("CREATE TABLE rooms (id TEXT PRIMARY KEY);")},
				"migrations/001_init.sql":    {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY);")},
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "ignores non-SQL files and directories",
			files: fstest.MapFS{
				"migrations/001_init.sql":      {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY);")},
				"migrations/README.md":         {Data: []byte("# notes")},
				"migrations/archive/900_x.sql": {Data: []byte("DROP TABLE users;")},
			},
			expectedOrder: []string{"001"},
		},
		{
			name:          "empty directory",
			files:         fstest.MapFS{"migrations": {Mode: fs.ModeDir | 0o755}},
			expectedOrder: nil,
		},
		{
			name: "invalid filename",
			files: fstest.MapFS{
				"migrations/init.sql": {Data: []byte("CREATE TABLE users (id TEXT);")},
			},
			expectErr:     ErrInvalidMigrationFile,
			errorContains: "does not match pattern",
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"migrations/001_init.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
				"migrations/0001_also.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
			},
			expectErr: ErrDuplicateVersion,
		},
		{
			name: "comment-only file",
			files: fstest.MapFS{
				"migrations/001_init.sql": {Data: []byte("-- nothing here\n")},
			},
			expectErr: ErrInvalidMigrationFile,
		},
		{
			name: "unbalanced parentheses",
			files: fstest.MapFS{
				"migrations/001_init.sql": {Data: []byte("CREATE TABLE a (id TEXT;")},
			},
			expectErr:     ErrInvalidMigrationFile,
			errorContains: "unmatched opening parenthesis",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			migrations, err := NewScanner(tt.files, "migrations").Scan()
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Fatalf("expected %v, got %v", tt.expectErr, err)
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Fatalf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
			}
		})
	}
}

func TestScanner_ParsesMetadata(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"migrations/001_initial_schema.sql": {Data: []byte("-- Migration: 001\n-- Description: Create booking tables\nCREATE TABLE rooms (id TEXT);\n")},
		"migrations/002_add_indexes.sql":    {Data: []byte("CREATE INDEX idx ON rooms(id);")},
	}

	migrations, err := NewScanner(files, "migrations").Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if migrations[0].Description != "Create booking tables" {
		t.Fatalf("expected description from comment, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "add indexes" {
		t.Fatalf("expected description from filename, got %q", migrations[1].Description)
	}
	if migrations[0].FilePath != "migrations/001_initial_schema.sql" {
		t.Fatalf("unexpected file path %q", migrations[0].FilePath)
	}
	if len(migrations[0].Checksum) != 64 || migrations[0].Checksum == migrations[1].Checksum {
		t.Fatalf("expected distinct sha256 checksums, got %q and %q", migrations[0].Checksum, migrations[1].Checksum)
	}
}

func TestValidateFileName(t *testing.T) {
	t.Parallel()

	valid := []string{"001_init.sql", "42_add-rooms.sql", "003_a_b_c.sql"}
	for _, name := range valid {
		if err := ValidateFileName(name); err != nil {
			t.Fatalf("expected %s to be valid, got %v", name, err)
		}
	}

	invalid := []string{"init.sql", "001init.sql", "001_.sql", "001_init.txt", "v1_init.sql", "001_in it.sql"}
	for _, name := range invalid {
		if err := ValidateFileName(name); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected %s to be rejected, got %v", name, err)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	sql := `-- Description: two tables
CREATE TABLE a (id TEXT); -- trailing comment

-- separator
CREATE TABLE b (
	id TEXT
);
;`

	statements := splitStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[0] != "CREATE TABLE a (id TEXT)" {
		t.Fatalf("unexpected first statement %q", statements[0])
	}
	if !strings.HasPrefix(statements[1], "CREATE TABLE b (") {
		t.Fatalf("unexpected second statement %q", statements[1])
	}
}
