package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// BookingFilter narrows queries issued to the booking repository. Zero values do not filter.
type BookingFilter struct {
	RoomID   string
	UserID   string
	From     scheduler.Date
	To       scheduler.Date
	Statuses []BookingStatus
}

// BookingRepository captures the booking persistence operations needed by the services.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// RoomDay identifies the bookings of one room on one date.
type RoomDay struct {
	RoomID string
	Date   scheduler.Date
}

// Key returns the lock key for the room/day pair.
func (k RoomDay) Key() string {
	return fmt.Sprintf("booking:approval:%s:%s", k.RoomID, k.Date)
}

// BookingTransactor runs read-check-write sequences atomically for one room/day.
// Reads and writes made through the supplied repository commit together, and no
// other transaction for the same room/day can interleave with them.
type BookingTransactor interface {
	WithinRoomDay(ctx context.Context, key RoomDay, fn func(ctx context.Context, bookings BookingRepository) error) error
}

// ApprovalLocker provides mutual exclusion across callers keyed by string.
type ApprovalLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RoomCatalog exposes room and equipment operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	CreateRoom(ctx context.Context, room Room) (Room, error)
	ListEquipment(ctx context.Context) ([]Equipment, error)
	CreateEquipment(ctx context.Context, equipment Equipment) (Equipment, error)
}

// ProfileDirectory exposes profile lookup operations.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	ListProfiles(ctx context.Context, ids []string) ([]Profile, error)
	CreateProfile(ctx context.Context, profile Profile) (Profile, error)
}

// mapRepoError converts store failures into the service error taxonomy.
// Errors that already belong to the taxonomy pass through unchanged.
func mapRepoError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if isApplicationError(err) {
		return err
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("reference", "related records are missing")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "record violates a store constraint")
		return vErr
	}
	return &StoreUnavailableError{Operation: operation, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
