package persistence

import (
	"fmt"
	"slices"
	"sort"
)

// Booking statuses as stored.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCancelled = "cancelled"
)

var validRoles = []string{"user", "admin", "super_admin"}

// CheckBooking mirrors the table constraints for stores without a schema.
func CheckBooking(b Booking) error {
	switch {
	case b.ID == "" || b.RoomID == "" || b.UserID == "":
		return fmt.Errorf("%w: booking keys are required", ErrConstraintViolation)
	case len(b.Date) != len("2006-01-02"):
		return fmt.Errorf("%w: booking date %q", ErrConstraintViolation, b.Date)
	case b.StartTime >= b.EndTime:
		return fmt.Errorf("%w: booking start %s is not before end %s", ErrConstraintViolation, b.StartTime, b.EndTime)
	case b.Status != StatusPending && b.Status != StatusApproved && b.Status != StatusCancelled:
		return fmt.Errorf("%w: booking status %q", ErrConstraintViolation, b.Status)
	case b.ParticipantCount < 0:
		return fmt.Errorf("%w: negative participant count", ErrConstraintViolation)
	}
	return nil
}

// CheckRoom mirrors the rooms table constraints.
func CheckRoom(r Room) error {
	if r.ID == "" || r.Name == "" || r.Capacity <= 0 {
		return fmt.Errorf("%w: room %q", ErrConstraintViolation, r.ID)
	}
	return nil
}

// CheckProfile mirrors the profiles table constraints.
func CheckProfile(p Profile) error {
	if p.ID == "" || !slices.Contains(validRoles, p.Role) {
		return fmt.Errorf("%w: profile %q", ErrConstraintViolation, p.ID)
	}
	return nil
}

// MatchesBookingFilter reports whether b satisfies every set field of f.
func MatchesBookingFilter(b Booking, f BookingFilter) bool {
	if f.RoomID != "" && b.RoomID != f.RoomID {
		return false
	}
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.From != "" && b.Date < f.From {
		return false
	}
	if f.To != "" && b.Date > f.To {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
		return false
	}
	return true
}

// SortBookings orders bookings by date, start time and id.
func SortBookings(bookings []Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}
