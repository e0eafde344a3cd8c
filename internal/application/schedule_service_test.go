package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

func scheduleFixture() *fakeStore {
	store := seededStore()
	may := func(day int, id, owner string, status BookingStatus, start scheduler.TimeOfDay) Booking {
		b := bookingAt(id, owner, status, start, start+60)
		b.Date = scheduler.NewDate(2024, time.May, day)
		return b
	}
	store.seedBooking(may(10, "b-approved", otherUser.ID, StatusApproved, hm(9, 0)))
	store.seedBooking(may(10, "b-pending-own", testUser.ID, StatusPending, hm(8, 0)))
	store.seedBooking(may(10, "b-pending-other", otherUser.ID, StatusPending, hm(11, 0)))
	store.seedBooking(may(2, "b-cancelled", otherUser.ID, StatusCancelled, hm(14, 0)))
	store.seedBooking(may(31, "b-last-day", otherUser.ID, StatusApproved, hm(10, 0)))
	store.seedBooking(may(1, "b-first-day", otherUser.ID, StatusApproved, hm(10, 0)))

	june := bookingAt("b-june", otherUser.ID, StatusApproved, hm(10, 0), hm(11, 0))
	june.Date = scheduler.NewDate(2024, time.June, 1)
	store.seedBooking(june)

	other := may(10, "b-room-b", otherUser.ID, StatusApproved, hm(9, 0))
	other.RoomID = "room-b"
	store.seedBooking(other)
	return store
}

func ids(bookings []Booking) []string {
	out := make([]string, len(bookings))
	for i, b := range bookings {
		out[i] = b.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScheduleService_ListBookings_Visibility(t *testing.T) {
	t.Parallel()

	store := scheduleFixture()
	svc := NewScheduleService(store, store, store, func() time.Time { return testNow }, time.UTC)
	month := scheduler.MonthRange(2024, time.May)

	cases := []struct {
		name  string
		actor policy.Actor
		want  []string
	}{
		{
			name:  "anonymous sees approved and cancelled",
			actor: policy.Anonymous(),
			want:  []string{"b-first-day", "b-cancelled", "b-approved", "b-room-b", "b-last-day"},
		},
		{
			name:  "user also sees own pending",
			actor: testUser,
			want:  []string{"b-first-day", "b-cancelled", "b-pending-own", "b-approved", "b-room-b", "b-last-day"},
		},
		{
			name:  "admin sees everything",
			actor: testAdmin,
			want:  []string{"b-first-day", "b-cancelled", "b-pending-own", "b-approved", "b-room-b", "b-pending-other", "b-last-day"},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{Actor: tc.actor, Range: month})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := ids(bookings); !equalIDs(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestScheduleService_ListBookings_Filters(t *testing.T) {
	t.Parallel()

	store := scheduleFixture()
	svc := NewScheduleService(store, store, store, func() time.Time { return testNow }, time.UTC)

	t.Run("room filter", func(t *testing.T) {
		t.Parallel()
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Actor:  testAdmin,
			Range:  scheduler.MonthRange(2024, time.May),
			RoomID: "room-b",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(bookings); !equalIDs(got, []string{"b-room-b"}) {
			t.Fatalf("unexpected bookings %v", got)
		}
		if bookings[0].Room == nil || bookings[0].Room.Name != "Birch" {
			t.Fatalf("expected room summary, got %+v", bookings[0].Room)
		}
		if bookings[0].Owner == nil || bookings[0].Owner.ID != otherUser.ID {
			t.Fatalf("expected owner summary, got %+v", bookings[0].Owner)
		}
	})

	t.Run("owner only", func(t *testing.T) {
		t.Parallel()
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Actor:     testUser,
			Range:     scheduler.MonthRange(2024, time.May),
			OwnerOnly: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(bookings); !equalIDs(got, []string{"b-pending-own"}) {
			t.Fatalf("unexpected bookings %v", got)
		}
	})

	t.Run("owner only requires identity", func(t *testing.T) {
		t.Parallel()
		_, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Actor:     policy.Anonymous(),
			Range:     scheduler.MonthRange(2024, time.May),
			OwnerOnly: true,
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("range bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		bookings, err := svc.ListBookings(context.Background(), ListBookingsParams{
			Actor: testAdmin,
			Range: scheduler.DateRange{From: scheduler.NewDate(2024, time.May, 31), To: scheduler.NewDate(2024, time.June, 1)},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := ids(bookings); !equalIDs(got, []string{"b-last-day", "b-june"}) {
			t.Fatalf("unexpected bookings %v", got)
		}
	})

	t.Run("invalid range", func(t *testing.T) {
		t.Parallel()
		for _, r := range []scheduler.DateRange{
			{},
			{From: scheduler.NewDate(2024, time.May, 2), To: scheduler.NewDate(2024, time.May, 1)},
		} {
			_, err := svc.ListBookings(context.Background(), ListBookingsParams{Actor: testAdmin, Range: r})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError for %+v, got %v", r, err)
			}
		}
	})
}

func TestScheduleService_ReadsStoreEveryCall(t *testing.T) {
	t.Parallel()

	store := scheduleFixture()
	svc := NewScheduleService(store, store, store, func() time.Time { return testNow }, time.UTC)
	params := ListBookingsParams{Actor: policy.Anonymous(), Range: scheduler.MonthRange(2024, time.May)}

	before, err := svc.ListBookings(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	approved := bookingAt("b-new", otherUser.ID, StatusApproved, hm(16, 0), hm(17, 0))
	store.seedBooking(approved)

	after, err := svc.ListBookings(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected new booking to be visible immediately, got %v", ids(after))
	}
}

func TestScheduleService_StoreUnavailable(t *testing.T) {
	t.Parallel()

	store := scheduleFixture()
	store.listErr = errors.New("timeout")
	svc := NewScheduleService(store, store, store, nil, nil)

	_, err := svc.ListBookings(context.Background(), ListBookingsParams{Actor: testAdmin, Range: scheduler.MonthRange(2024, time.May)})
	var sErr *StoreUnavailableError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
	if sErr.Operation != "list bookings" {
		t.Fatalf("unexpected operation %q", sErr.Operation)
	}
}

func TestScheduleService_Summarize(t *testing.T) {
	t.Parallel()

	store := scheduleFixture()
	today := func() time.Time { return time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC) }
	svc := NewScheduleService(store, store, store, today, time.UTC)

	summary, err := svc.Summarize(context.Background(), ListBookingsParams{Actor: testAdmin, Range: scheduler.MonthRange(2024, time.May)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := BookingSummary{Total: 7, Pending: 2, Approved: 4, Cancelled: 1, ApprovedToday: 2}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}
}

func TestGroupByDay(t *testing.T) {
	t.Parallel()

	if GroupByDay(nil) != nil {
		t.Fatalf("expected nil for no bookings")
	}

	d1 := scheduler.NewDate(2024, time.May, 1)
	d2 := scheduler.NewDate(2024, time.May, 3)
	in := []Booking{
		{ID: "c", Date: d2, StartTime: hm(9, 0)},
		{ID: "b", Date: d1, StartTime: hm(11, 0)},
		{ID: "a", Date: d1, StartTime: hm(9, 0)},
	}

	days := GroupByDay(in)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != d1 || !equalIDs(ids(days[0].Bookings), []string{"a", "b"}) {
		t.Fatalf("unexpected first day %+v", days[0])
	}
	if days[1].Date != d2 || !equalIDs(ids(days[1].Bookings), []string{"c"}) {
		t.Fatalf("unexpected second day %+v", days[1])
	}
	if in[0].ID != "c" {
		t.Fatalf("expected input to be left untouched")
	}
}
