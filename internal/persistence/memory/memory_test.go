package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/storetest"
)

func TestStorageContract(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) persistence.Store {
		store := memory.New()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestWithinRoomDay_StagedCreateIsInvisibleUntilCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.New()
	storetest.Seed(t, store)

	boom := errors.New("boom")
	err := store.WithinRoomDay(ctx, "room-a", "2024-05-10", func(ctx context.Context, repo persistence.BookingRepository) error {
		if err := repo.CreateBooking(ctx, storetest.Booking("b-1", "09:00", "10:00", persistence.StatusPending)); err != nil {
			return err
		}
		if _, err := repo.GetBooking(ctx, "b-1"); err != nil {
			return err
		}
		if _, err := store.GetBooking(ctx, "b-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("expected staged booking to be hidden from the store, got %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.GetBooking(ctx, "b-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected rolled back create, got %v", err)
	}
}

func TestWithinRoomDay_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := memory.New().WithinRoomDay(ctx, "room-a", "2024-05-10", func(context.Context, persistence.BookingRepository) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancelled context to skip fn, got err=%v called=%v", err, called)
	}
}
