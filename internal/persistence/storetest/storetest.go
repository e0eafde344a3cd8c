// Package storetest holds the behavioural contract every persistence.Store must satisfy.
// Backends run it from their own tests with a factory returning an empty, migrated store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// Factory returns an empty, migrated store. The store is closed by the caller's cleanup.
type Factory func(t *testing.T) persistence.Store

var base = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// Run executes the store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("rooms and equipment", func(t *testing.T) { testCatalog(t, newStore(t)) })
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("booking round trip", func(t *testing.T) { testBookingRoundTrip(t, newStore(t)) })
	t.Run("booking constraints", func(t *testing.T) { testBookingConstraints(t, newStore(t)) })
	t.Run("booking filters", func(t *testing.T) { testBookingFilters(t, newStore(t)) })
	t.Run("room day scope commits and rolls back", func(t *testing.T) { testWithinRoomDay(t, newStore(t)) })
	t.Run("room day scopes serialize", func(t *testing.T) { testWithinRoomDaySerializes(t, newStore(t)) })
}

// Seed inserts the rooms and profiles referenced by Booking.
func Seed(t *testing.T, store persistence.Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.CreateEquipment(ctx, persistence.Equipment{ID: "eq-projector", Name: "Projector", CreatedAt: base}); err != nil {
		t.Fatalf("CreateEquipment failed: %v", err)
	}
	for _, room := range []persistence.Room{
		{ID: "room-a", Name: "Aster", Capacity: 10, EquipmentIDs: []string{"eq-projector"}, CreatedAt: base, UpdatedAt: base},
		{ID: "room-b", Name: "Birch", Capacity: 4, CreatedAt: base, UpdatedAt: base},
	} {
		if err := store.CreateRoom(ctx, room); err != nil {
			t.Fatalf("CreateRoom(%s) failed: %v", room.ID, err)
		}
	}
	for _, profile := range []persistence.Profile{
		{ID: "user-1", FullName: "Ada", Role: "user", CreatedAt: base, UpdatedAt: base},
		{ID: "user-2", FullName: "Grace", Role: "user", CreatedAt: base, UpdatedAt: base},
		{ID: "admin-1", FullName: "Root", Role: "admin", CreatedAt: base, UpdatedAt: base},
	} {
		if err := store.CreateProfile(ctx, profile); err != nil {
			t.Fatalf("CreateProfile(%s) failed: %v", profile.ID, err)
		}
	}
}

// Booking builds a valid booking row for room-a on 2024-05-10 owned by user-1.
func Booking(id, start, end, status string) persistence.Booking {
	return persistence.Booking{
		ID:        id,
		RoomID:    "room-a",
		UserID:    "user-1",
		Date:      "2024-05-10",
		StartTime: start,
		EndTime:   end,
		Status:    status,
		Title:     "Sync " + id,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testCatalog(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	room, err := store.GetRoom(ctx, "room-a")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Name != "Aster" || room.Capacity != 10 || len(room.EquipmentIDs) != 1 || room.EquipmentIDs[0] != "eq-projector" {
		t.Fatalf("unexpected room: %#v", room)
	}
	if !room.CreatedAt.Equal(base) {
		t.Fatalf("expected created_at %v, got %v", base, room.CreatedAt)
	}

	rooms, err := store.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].ID != "room-a" || rooms[1].ID != "room-b" {
		t.Fatalf("unexpected rooms: %#v", rooms)
	}

	if _, err := store.GetRoom(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.CreateRoom(ctx, persistence.Room{ID: "room-a", Name: "Again", Capacity: 1, CreatedAt: base, UpdatedAt: base}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := store.CreateRoom(ctx, persistence.Room{ID: "room-z", Name: "Zero", Capacity: 0, CreatedAt: base, UpdatedAt: base}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	if err := store.CreateRoom(ctx, persistence.Room{ID: "room-y", Name: "Yew", Capacity: 3, EquipmentIDs: []string{"eq-missing"}, CreatedAt: base, UpdatedAt: base}); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
	if _, err := store.GetRoom(ctx, "room-y"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected failed room insert to leave nothing behind, got %v", err)
	}

	if err := store.CreateEquipment(ctx, persistence.Equipment{ID: "eq-2", Name: "Projector", CreatedAt: base}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate equipment name to be rejected, got %v", err)
	}
	items, err := store.ListEquipment(ctx)
	if err != nil {
		t.Fatalf("ListEquipment failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Projector" {
		t.Fatalf("unexpected equipment: %#v", items)
	}
}

func testProfiles(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	profile, err := store.GetProfile(ctx, "admin-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Role != "admin" || profile.FullName != "Root" {
		t.Fatalf("unexpected profile: %#v", profile)
	}

	profiles, err := store.ListProfiles(ctx, []string{"user-2", "ghost", "user-1", "user-2"})
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(profiles) != 2 || profiles[0].ID != "user-1" || profiles[1].ID != "user-2" {
		t.Fatalf("unexpected profiles: %#v", profiles)
	}
	if empty, err := store.ListProfiles(ctx, nil); err != nil || len(empty) != 0 {
		t.Fatalf("expected no profiles for no ids, got %#v %v", empty, err)
	}

	if err := store.CreateProfile(ctx, persistence.Profile{ID: "user-1", FullName: "Dup", Role: "user", CreatedAt: base, UpdatedAt: base}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := store.CreateProfile(ctx, persistence.Profile{ID: "user-9", FullName: "Bad", Role: "owner", CreatedAt: base, UpdatedAt: base}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	if _, err := store.GetProfile(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testBookingRoundTrip(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	booking := persistence.Booking{
		ID:               "b-1",
		RoomID:           "room-a",
		UserID:           "user-1",
		Date:             "2024-05-10",
		StartTime:        "09:30",
		EndTime:          "24:00",
		Status:           persistence.StatusPending,
		Title:            "  Quarterly review  ",
		Purpose:          "Budget\nplanning",
		OfficerInCharge:  "Dr. Müller",
		Division:         "Finance",
		ParticipantCount: 7,
		ContactEmail:     "ada@example.com",
		ContactPhone:     "+81 3-1234-5678",
		EquipmentNeeded:  "projector, whiteboard",
		CreatedAt:        base,
		UpdatedAt:        base,
	}
	if err := store.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	fetched, err := store.GetBooking(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if !sameBooking(fetched, booking) {
		t.Fatalf("round trip mismatch:\n got  %#v\n want %#v", fetched, booking)
	}

	booking.Status = persistence.StatusApproved
	booking.AdminComments = "ok"
	booking.UpdatedAt = base.Add(time.Hour)
	if err := store.UpdateBooking(ctx, booking); err != nil {
		t.Fatalf("UpdateBooking failed: %v", err)
	}
	fetched, err = store.GetBooking(ctx, "b-1")
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if !sameBooking(fetched, booking) {
		t.Fatalf("update mismatch:\n got  %#v\n want %#v", fetched, booking)
	}

	if err := store.CreateBooking(ctx, booking); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	missing := Booking("b-missing", "10:00", "11:00", persistence.StatusPending)
	if err := store.UpdateBooking(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetBooking(ctx, "b-missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testBookingConstraints(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	cases := []struct {
		name   string
		mutate func(*persistence.Booking)
		want   error
	}{
		{name: "unknown room", mutate: func(b *persistence.Booking) { b.RoomID = "room-x" }, want: persistence.ErrForeignKeyViolation},
		{name: "unknown owner", mutate: func(b *persistence.Booking) { b.UserID = "ghost" }, want: persistence.ErrForeignKeyViolation},
		{name: "inverted window", mutate: func(b *persistence.Booking) { b.StartTime, b.EndTime = "11:00", "10:00" }, want: persistence.ErrConstraintViolation},
		{name: "unknown status", mutate: func(b *persistence.Booking) { b.Status = "archived" }, want: persistence.ErrConstraintViolation},
		{name: "negative participants", mutate: func(b *persistence.Booking) { b.ParticipantCount = -1 }, want: persistence.ErrConstraintViolation},
	}

	for i, tc := range cases {
		booking := Booking(fmt.Sprintf("bad-%d", i), "10:00", "11:00", persistence.StatusPending)
		tc.mutate(&booking)
		if err := store.CreateBooking(ctx, booking); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func testBookingFilters(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	rows := []persistence.Booking{
		Booking("b-3", "13:00", "14:00", persistence.StatusApproved),
		Booking("b-1", "09:00", "10:00", persistence.StatusPending),
		Booking("b-2", "09:00", "10:00", persistence.StatusCancelled),
	}
	other := Booking("b-4", "09:00", "10:00", persistence.StatusApproved)
	other.RoomID = "room-b"
	other.UserID = "user-2"
	other.Date = "2024-05-11"
	early := Booking("b-5", "08:00", "09:00", persistence.StatusApproved)
	early.Date = "2024-04-30"
	rows = append(rows, other, early)
	for _, row := range rows {
		if err := store.CreateBooking(ctx, row); err != nil {
			t.Fatalf("CreateBooking(%s) failed: %v", row.ID, err)
		}
	}

	cases := []struct {
		name   string
		filter persistence.BookingFilter
		want   []string
	}{
		{name: "all", filter: persistence.BookingFilter{}, want: []string{"b-5", "b-1", "b-2", "b-3", "b-4"}},
		{name: "room", filter: persistence.BookingFilter{RoomID: "room-b"}, want: []string{"b-4"}},
		{name: "owner", filter: persistence.BookingFilter{UserID: "user-1"}, want: []string{"b-5", "b-1", "b-2", "b-3"}},
		{name: "inclusive range", filter: persistence.BookingFilter{From: "2024-05-01", To: "2024-05-11"}, want: []string{"b-1", "b-2", "b-3", "b-4"}},
		{name: "single day", filter: persistence.BookingFilter{From: "2024-05-10", To: "2024-05-10"}, want: []string{"b-1", "b-2", "b-3"}},
		{name: "statuses", filter: persistence.BookingFilter{Statuses: []string{persistence.StatusApproved}}, want: []string{"b-5", "b-3", "b-4"}},
		{
			name:   "combined",
			filter: persistence.BookingFilter{RoomID: "room-a", From: "2024-05-10", To: "2024-05-10", Statuses: []string{persistence.StatusPending, persistence.StatusApproved}},
			want:   []string{"b-1", "b-3"},
		},
	}

	for _, tc := range cases {
		got, err := store.ListBookings(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: ListBookings failed: %v", tc.name, err)
		}
		if ids := bookingIDs(got); fmt.Sprint(ids) != fmt.Sprint(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, ids)
		}
	}
}

func testWithinRoomDay(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	if err := store.CreateBooking(ctx, Booking("b-1", "09:00", "10:00", persistence.StatusPending)); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	err := store.WithinRoomDay(ctx, "room-a", "2024-05-10", func(ctx context.Context, repo persistence.BookingRepository) error {
		booking, err := repo.GetBooking(ctx, "b-1")
		if err != nil {
			return err
		}
		booking.Status = persistence.StatusApproved
		if err := repo.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		approved, err := repo.ListBookings(ctx, persistence.BookingFilter{RoomID: "room-a", Statuses: []string{persistence.StatusApproved}})
		if err != nil {
			return err
		}
		if len(approved) != 1 {
			return fmt.Errorf("expected the scope to read its own write, got %d approved", len(approved))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinRoomDay failed: %v", err)
	}
	if got := mustStatus(t, store, "b-1"); got != persistence.StatusApproved {
		t.Fatalf("expected committed approval, got %s", got)
	}

	boom := errors.New("boom")
	err = store.WithinRoomDay(ctx, "room-a", "2024-05-10", func(ctx context.Context, repo persistence.BookingRepository) error {
		booking, err := repo.GetBooking(ctx, "b-1")
		if err != nil {
			return err
		}
		booking.Status = persistence.StatusCancelled
		if err := repo.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to be returned, got %v", err)
	}
	if got := mustStatus(t, store, "b-1"); got != persistence.StatusApproved {
		t.Fatalf("expected rollback to keep approved, got %s", got)
	}
}

// testWithinRoomDaySerializes approves overlapping requests from concurrent scopes using a
// read-check-write step. Exactly one approval may survive.
func testWithinRoomDaySerializes(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	Seed(t, store)

	const contenders = 6
	for i := 0; i < contenders; i++ {
		booking := Booking(fmt.Sprintf("c-%d", i), "10:00", "11:00", persistence.StatusPending)
		if err := store.CreateBooking(ctx, booking); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- store.WithinRoomDay(ctx, "room-a", "2024-05-10", func(ctx context.Context, repo persistence.BookingRepository) error {
				approved, err := repo.ListBookings(ctx, persistence.BookingFilter{
					RoomID: "room-a", From: "2024-05-10", To: "2024-05-10",
					Statuses: []string{persistence.StatusApproved},
				})
				if err != nil {
					return err
				}
				if len(approved) > 0 {
					return nil
				}
				booking, err := repo.GetBooking(ctx, id)
				if err != nil {
					return err
				}
				booking.Status = persistence.StatusApproved
				return repo.UpdateBooking(ctx, booking)
			})
		}(fmt.Sprintf("c-%d", i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("scope failed: %v", err)
		}
	}

	approved, err := store.ListBookings(ctx, persistence.BookingFilter{Statuses: []string{persistence.StatusApproved}})
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if len(approved) != 1 {
		t.Fatalf("expected exactly one approval, got %v", bookingIDs(approved))
	}
}

func mustStatus(t *testing.T, store persistence.Store, id string) string {
	t.Helper()
	booking, err := store.GetBooking(context.Background(), id)
	if err != nil {
		t.Fatalf("GetBooking(%s) failed: %v", id, err)
	}
	return booking.Status
}

func sameBooking(a, b persistence.Booking) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	a.CreatedAt, a.UpdatedAt = time.Time{}, time.Time{}
	b.CreatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}

func bookingIDs(bookings []persistence.Booking) []string {
	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	return ids
}
