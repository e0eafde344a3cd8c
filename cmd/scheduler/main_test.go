package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/identity"
	"github.com/example/room-booking/internal/lock"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

func setBaseEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		config.EnvStoreDriver, config.EnvPostgresDSN, config.EnvRedisAddr,
		config.EnvJWTIssuer, config.EnvTimeZone, config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
	dbPath := filepath.Join(t.TempDir(), "booking.db")
	t.Setenv(config.EnvJWTSecret, "main-test-secret")
	t.Setenv(config.EnvSQLitePath, dbPath)
	return dbPath
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "booking.yaml", "--env-file", ".env.local", "--migrate-only"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}
	if opts.configFile != "booking.yaml" || opts.envFile != ".env.local" || !opts.migrateOnly {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.tokenRole != "user" || opts.tokenTTL != time.Hour {
		t.Fatalf("unexpected token defaults %+v", opts)
	}

	if _, err := parseFlags([]string{"--bogus"}, io.Discard); err == nil {
		t.Fatalf("expected an error for an unknown flag")
	}
}

func TestRun_MigrateOnly(t *testing.T) {
	dbPath := setBaseEnv(t)

	var stderr bytes.Buffer
	for i := 0; i < 2; i++ {
		if err := run(context.Background(), []string{"--migrate-only"}, io.Discard, &stderr); err != nil {
			t.Fatalf("run #%d returned error: %v\n%s", i+1, err, stderr.String())
		}
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file at %s: %v", dbPath, err)
	}
	if !strings.Contains(stderr.String(), "migrations applied") {
		t.Fatalf("expected a migration log line, got %q", stderr.String())
	}
}

func TestRun_RejectsIncompleteConfiguration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(config.EnvJWTSecret, "")

	err := run(context.Background(), []string{"--migrate-only"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), config.EnvJWTSecret) {
		t.Fatalf("expected a missing secret error, got %v", err)
	}
}

func TestRun_IssueToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv(config.EnvJWTIssuer, "booking")

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"--issue-token", "admin-1", "--role", "admin"}, &stdout, io.Discard); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	actor, err := identity.NewVerifier([]byte("main-test-secret"), "booking").Verify(strings.TrimSpace(stdout.String()))
	if err != nil {
		t.Fatalf("printed token does not verify: %v", err)
	}
	if actor.ID != "admin-1" || actor.Role != policy.RoleAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if err := run(context.Background(), []string{"--issue-token", "x", "--role", "root"}, io.Discard, io.Discard); err == nil {
		t.Fatalf("expected an error for an unknown role")
	}
}

func TestNewLocker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	locker, closeFn := newLocker(config.Config{}, logger)
	if _, ok := locker.(*lock.Local); !ok {
		t.Fatalf("expected the in-process lock, got %T", locker)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}

	locker, closeFn = newLocker(config.Config{RedisAddr: "127.0.0.1:0", LockTTL: time.Second}, logger)
	if _, ok := locker.(*lock.Redis); !ok {
		t.Fatalf("expected the redis lock, got %T", locker)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close returned error: %v", err)
	}
}

func TestBuildHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		JWTSecret:    "handler-secret",
		Location:     time.UTC,
		OpeningHours: scheduler.DefaultOpeningHours,
	}
	handler := buildHandler(cfg, memory.New(), lock.NewLocal(), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("healthz: expected 204, got %d", rec.Code)
	}

	token, err := identity.NewIssuer([]byte(cfg.JWTSecret), "").Issue(policy.Actor{ID: "admin-1", Role: policy.RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(`{"name":"Aurora","capacity":8}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Aurora"`) {
		t.Fatalf("list rooms: unexpected %d %s", rec.Code, rec.Body.String())
	}
}
