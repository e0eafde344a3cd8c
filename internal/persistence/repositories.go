package persistence

import "context"

// BookingFilter narrows booking queries. Empty fields do not filter; From and To are inclusive.
type BookingFilter struct {
	RoomID   string
	UserID   string
	From     string
	To       string
	Statuses []string
}

// BookingRepository stores bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// ListBookings returns matches ordered by date, start time and id.
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// RoomRepository stores rooms and their equipment links.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// EquipmentRepository stores the equipment catalog.
type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, equipment Equipment) error
	ListEquipment(ctx context.Context) ([]Equipment, error)
}

// ProfileRepository stores principal profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	// ListProfiles returns the profiles among ids that exist. Unknown ids are skipped.
	ListProfiles(ctx context.Context, ids []string) ([]Profile, error)
}

// RoomDayFunc runs inside a room/day transaction with a repository bound to it.
type RoomDayFunc func(ctx context.Context, bookings BookingRepository) error

// Store is the entity store the booking core depends on.
type Store interface {
	BookingRepository
	RoomRepository
	EquipmentRepository
	ProfileRepository

	// WithinRoomDay runs fn in a transaction that no other WithinRoomDay call for the
	// same room and date can interleave with. fn's error rolls the transaction back.
	WithinRoomDay(ctx context.Context, roomID, date string, fn RoomDayFunc) error
	Migrate(ctx context.Context) error
	Close() error
}
