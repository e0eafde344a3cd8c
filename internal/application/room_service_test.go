package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/policy"
)

func TestRoomService_CreateRoom(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(newFakeStore(), nil, nil)

		for _, actor := range []policy.Actor{policy.Anonymous(), testUser} {
			_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
				Actor: actor,
				Input: RoomInput{Name: "Conference Room", Capacity: 10},
			})
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden for %+v, got %v", actor, err)
			}
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		t.Parallel()
		svc := NewRoomService(newFakeStore(), nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Actor: testAdmin,
			Input: RoomInput{Name: "   ", Capacity: 0},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["name"]; !ok {
			t.Fatalf("expected name validation error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["capacity"]; !ok {
			t.Fatalf("expected capacity validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects unknown equipment", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.equipment["eq-1"] = Equipment{ID: "eq-1", Name: "Projector"}
		svc := NewRoomService(store, func() string { return "room-1" }, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Actor: testAdmin,
			Input: RoomInput{Name: "Sakura", Capacity: 5, EquipmentIDs: []string{"eq-1", "eq-9"}},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["equipment_ids"] == "" {
			t.Fatalf("expected equipment validation error, got %v", err)
		}
	})

	t.Run("persists rooms for administrators", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.equipment["eq-1"] = Equipment{ID: "eq-1", Name: "Projector"}
		now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
		svc := NewRoomService(store, func() string { return "room-1" }, func() time.Time { return now })

		created, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Actor: superAdmin,
			Input: RoomInput{Name: "  Sakura Hall  ", Capacity: 25, EquipmentIDs: []string{"eq-1", "eq-1"}},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		stored := store.rooms["room-1"]
		if stored.Name != "Sakura Hall" {
			t.Fatalf("expected name to be trimmed, got %q", stored.Name)
		}
		if stored.Capacity != 25 {
			t.Fatalf("expected capacity to be 25, got %d", stored.Capacity)
		}
		if len(stored.EquipmentIDs) != 1 || stored.EquipmentIDs[0] != "eq-1" {
			t.Fatalf("expected deduplicated equipment, got %v", stored.EquipmentIDs)
		}
		if !stored.CreatedAt.Equal(now) || !stored.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps to use injected clock, got created=%v updated=%v", stored.CreatedAt, stored.UpdatedAt)
		}
		if created.ID != "room-1" {
			t.Fatalf("expected returned room to include generated ID, got %q", created.ID)
		}
	})

	t.Run("maps repository errors", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		store.roomErr = persistence.ErrDuplicate
		svc := NewRoomService(store, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Actor: testAdmin,
			Input: RoomInput{Name: "Conf Room", Capacity: 10},
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestRoomService_ListRooms(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.rooms["r2"] = Room{ID: "r2", Name: "beta", Capacity: 4}
	store.rooms["r1"] = Room{ID: "r1", Name: "Alpha", Capacity: 8}
	store.rooms["r3"] = Room{ID: "r3", Name: "alpha", Capacity: 2}
	svc := NewRoomService(store, nil, nil)

	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{rooms[0].ID, rooms[1].ID, rooms[2].ID}
	if !equalIDs(got, []string{"r1", "r3", "r2"}) {
		t.Fatalf("expected case-insensitive name order, got %v", got)
	}
}

func TestRoomService_GetRoom(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.rooms["r1"] = Room{ID: "r1", Name: "Alpha", Capacity: 8}
	svc := NewRoomService(store, nil, nil)

	if room, err := svc.GetRoom(context.Background(), " r1 "); err != nil || room.Name != "Alpha" {
		t.Fatalf("expected room, got %+v %v", room, err)
	}
	if _, err := svc.GetRoom(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomService_Equipment(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewRoomService(store, func() string { return "eq-1" }, func() time.Time { return testNow })

	if _, err := svc.CreateEquipment(context.Background(), CreateEquipmentParams{Actor: testUser, Name: "Projector"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	var vErr *ValidationError
	if _, err := svc.CreateEquipment(context.Background(), CreateEquipmentParams{Actor: testAdmin, Name: " "}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	created, err := svc.CreateEquipment(context.Background(), CreateEquipmentParams{Actor: testAdmin, Name: " Projector "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "eq-1" || created.Name != "Projector" {
		t.Fatalf("unexpected equipment %+v", created)
	}

	items, err := svc.ListEquipment(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one item, got %v %v", items, err)
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	cases := []struct {
		name  string
		in    error
		check func(error) bool
	}{
		{name: "nil", in: nil, check: func(err error) bool { return err == nil }},
		{name: "not found", in: persistence.ErrNotFound, check: func(err error) bool { return errors.Is(err, ErrNotFound) }},
		{name: "duplicate", in: persistence.ErrDuplicate, check: func(err error) bool { return errors.Is(err, ErrAlreadyExists) }},
		{name: "foreign key", in: persistence.ErrForeignKeyViolation, check: func(err error) bool {
			var vErr *ValidationError
			return errors.As(err, &vErr)
		}},
		{name: "constraint", in: persistence.ErrConstraintViolation, check: func(err error) bool {
			var vErr *ValidationError
			return errors.As(err, &vErr)
		}},
		{name: "application errors pass through", in: &ConflictError{BookingID: "a", ConflictingBookingID: "b"}, check: func(err error) bool {
			var cErr *ConflictError
			return errors.As(err, &cErr) && cErr.ConflictingBookingID == "b"
		}},
		{name: "unknown errors become store unavailable", in: cause, check: func(err error) bool {
			return errors.Is(err, ErrStoreUnavailable) && errors.Is(err, cause)
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mapRepoError("op", tc.in); !tc.check(got) {
				t.Fatalf("unexpected mapping %v", got)
			}
		})
	}
}
