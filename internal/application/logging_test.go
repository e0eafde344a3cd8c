package application

import (
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err   error
		kind  string
		level slog.Level
	}{
		{err: &ValidationError{FieldErrors: map[string]string{"a": "b"}}, kind: "validation", level: slog.LevelWarn},
		{err: &ForbiddenError{}, kind: "forbidden", level: slog.LevelWarn},
		{err: ErrNotFound, kind: "not_found", level: slog.LevelWarn},
		{err: ErrAlreadyExists, kind: "already_exists", level: slog.LevelWarn},
		{err: &InvalidStateError{}, kind: "invalid_state", level: slog.LevelWarn},
		{err: &ConflictError{}, kind: "conflict", level: slog.LevelWarn},
		{err: &StoreUnavailableError{Err: io.EOF}, kind: "store_unavailable", level: slog.LevelError},
		{err: io.EOF, kind: "unexpected", level: slog.LevelError},
	}

	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.kind {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := logLevelFor(tc.err); got != tc.level {
			t.Fatalf("logLevelFor(%v) = %v, want %v", tc.err, got, tc.level)
		}
	}
	if ErrorKind(nil) != "" {
		t.Fatalf("expected empty kind for nil error")
	}
}
