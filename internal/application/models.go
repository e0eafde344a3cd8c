package application

import (
	"time"

	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCancelled:
		return true
	default:
		return false
	}
}

// BookingDetails holds descriptive fields that scheduling never interprets.
type BookingDetails struct {
	Title            string
	Purpose          string
	OfficerInCharge  string
	Division         string
	ParticipantCount int
	ContactEmail     string
	ContactPhone     string
	EquipmentNeeded  string
}

// BookingDraft captures caller provided booking fields.
type BookingDraft struct {
	RoomID    string
	Date      scheduler.Date
	StartTime scheduler.TimeOfDay
	EndTime   scheduler.TimeOfDay
	Details   BookingDetails
}

// Window returns the requested time window.
func (d BookingDraft) Window() scheduler.Window {
	return scheduler.Window{Start: d.StartTime, End: d.EndTime}
}

// Booking is a reservation request for a room on one date.
type Booking struct {
	ID            string
	RoomID        string
	UserID        string
	Date          scheduler.Date
	StartTime     scheduler.TimeOfDay
	EndTime       scheduler.TimeOfDay
	Status        BookingStatus
	Details       BookingDetails
	AdminComments string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Room and Owner are display summaries joined at read time.
	Room  *RoomSummary
	Owner *ProfileSummary
}

// Window returns the booked time window.
func (b Booking) Window() scheduler.Window {
	return scheduler.Window{Start: b.StartTime, End: b.EndTime}
}

// RoomSummary is the room data shown next to a booking.
type RoomSummary struct {
	ID       string
	Name     string
	Capacity int
}

// ProfileSummary is the organizer data shown next to a booking.
type ProfileSummary struct {
	ID       string
	FullName string
	Division string
}

// SubmitBookingParams wraps the data required to submit a booking.
type SubmitBookingParams struct {
	Actor policy.Actor
	Draft BookingDraft
}

// ApproveBookingParams wraps the data required to approve a booking.
type ApproveBookingParams struct {
	Actor         policy.Actor
	BookingID     string
	AdminComments *string
}

// CancelBookingParams wraps the data required to cancel a booking.
type CancelBookingParams struct {
	Actor         policy.Actor
	BookingID     string
	AdminComments *string
}

// UpdateBookingParams wraps the data required to edit an existing booking.
type UpdateBookingParams struct {
	Actor     policy.Actor
	BookingID string
	Draft     BookingDraft
}

// AvailabilityQuery asks whether a window is free of approved bookings.
type AvailabilityQuery struct {
	RoomID           string
	Date             scheduler.Date
	Start            scheduler.TimeOfDay
	End              scheduler.TimeOfDay
	ExcludeBookingID string
}

// FreeSlotsQuery asks for the unbooked windows of a room on one date.
type FreeSlotsQuery struct {
	RoomID      string
	Date        scheduler.Date
	Opening     scheduler.Window
	MinDuration time.Duration
}

// ListBookingsParams wraps the data required to list bookings.
type ListBookingsParams struct {
	Actor  policy.Actor
	Range  scheduler.DateRange
	RoomID string
	// OwnerOnly restricts results to bookings owned by the actor.
	OwnerOnly bool
}

// DayBookings groups the bookings of one calendar day.
type DayBookings struct {
	Date     scheduler.Date
	Bookings []Booking
}

// BookingSummary counts the bookings visible to a viewer.
type BookingSummary struct {
	Total         int
	Pending       int
	Approved      int
	Cancelled     int
	ApprovedToday int
}

// Room represents a catalog entry for a physical meeting room.
type Room struct {
	ID           string
	Name         string
	Capacity     int
	EquipmentIDs []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the display summary of the room.
func (r Room) Summary() *RoomSummary {
	return &RoomSummary{ID: r.ID, Name: r.Name, Capacity: r.Capacity}
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name         string
	Capacity     int
	EquipmentIDs []string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Actor policy.Actor
	Input RoomInput
}

// Equipment is an item that rooms may provide.
type Equipment struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// CreateEquipmentParams wraps the data required to create an equipment entry.
type CreateEquipmentParams struct {
	Actor policy.Actor
	Name  string
}

// Profile is the stored identity of a principal.
type Profile struct {
	ID        string
	FullName  string
	Division  string
	Email     string
	Phone     string
	Role      policy.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary returns the display summary of the profile.
func (p Profile) Summary() *ProfileSummary {
	return &ProfileSummary{ID: p.ID, FullName: p.FullName, Division: p.Division}
}

// ProfileInput captures caller provided profile attributes.
type ProfileInput struct {
	FullName string
	Division string
	Email    string
	Phone    string
}

// RegisterProfileParams wraps the data required to register the caller's profile.
type RegisterProfileParams struct {
	Actor policy.Actor
	Input ProfileInput
}
