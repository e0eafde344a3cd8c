package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_WritesJSONAtLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)
	logger.Info("dropped")
	logger.Warn("kept", "room_id", "room-a")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["room_id"] != "room-a" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	attached := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected no logger on a bare context, got %v", got)
	}
	if got := FromContextOr(context.Background(), fallback); got != fallback {
		t.Fatalf("expected the fallback logger")
	}
	if got := FromContextOr(context.Background(), nil); got != slog.Default() {
		t.Fatalf("expected slog.Default")
	}

	ctx := ContextWithLogger(context.Background(), attached)
	if got := FromContext(ctx); got != attached {
		t.Fatalf("expected the attached logger")
	}
	if got := FromContextOr(ctx, fallback); got != attached {
		t.Fatalf("attached logger should win over the fallback")
	}
	if got := ContextWithLogger(ctx, nil); got != ctx {
		t.Fatalf("nil logger should leave the context untouched")
	}
}
