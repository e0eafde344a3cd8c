package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/room-booking/internal/entitystore"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/sqlite"
)

// Harness pairs a migrated persistence store with the adapter the services consume.
type Harness struct {
	Store    persistence.Store
	Entities *entitystore.Store
}

// NewMemoryHarness returns a harness over the in-process store.
func NewMemoryHarness(tb testing.TB) *Harness {
	tb.Helper()
	store := memory.New()
	tb.Cleanup(func() { _ = store.Close() })
	return &Harness{Store: store, Entities: entitystore.New(store)}
}

// NewSQLiteHarness returns a harness over a migrated SQLite file in a temporary
// directory. The store is closed when the test ends.
func NewSQLiteHarness(tb testing.TB) *Harness {
	tb.Helper()

	ctx := context.Background()
	config := sqlite.TempFileTestConfig(filepath.Join(tb.TempDir(), "booking.db"))
	storage, err := sqlite.Open(ctx, config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(ctx); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return &Harness{Store: storage, Entities: entitystore.New(storage)}
}

// AddEquipment stores the fixtures or fails the test.
func (h *Harness) AddEquipment(tb testing.TB, fixtures ...EquipmentFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Store.CreateEquipment(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to create equipment %s: %v", f.ID, err)
		}
	}
}

// AddRooms stores the fixtures or fails the test.
func (h *Harness) AddRooms(tb testing.TB, fixtures ...RoomFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Store.CreateRoom(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to create room %s: %v", f.ID, err)
		}
	}
}

// AddProfiles stores the fixtures or fails the test.
func (h *Harness) AddProfiles(tb testing.TB, fixtures ...ProfileFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Store.CreateProfile(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to create profile %s: %v", f.ID, err)
		}
	}
}

// AddBookings stores the fixtures or fails the test.
func (h *Harness) AddBookings(tb testing.TB, fixtures ...BookingFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Store.CreateBooking(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to create booking %s: %v", f.ID, err)
		}
	}
}
