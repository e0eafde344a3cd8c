// Package testfixtures builds deterministic rooms, profiles and bookings for tests,
// in both application and persistence shapes.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

var (
	roomCounter      uint64
	equipmentCounter uint64
	profileCounter   uint64
	bookingCounter   uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime is the instant fixtures and clocks start from.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate is the calendar date of ReferenceTime.
func ReferenceDate() scheduler.Date {
	return scheduler.DateOf(referenceTime)
}

// ----------------------------- Rooms -----------------------------

// RoomFixture describes a catalog room.
type RoomFixture struct {
	ID           string
	Name         string
	Capacity     int
	EquipmentIDs []string
	CreatedAt    time.Time
}

// RoomOption customises a RoomFixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a ten-seat room with a unique ID and name.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  10,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) { f.ID = id }
}

func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) { f.Name = name }
}

func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) { f.Capacity = capacity }
}

func WithRoomEquipment(ids ...string) RoomOption {
	return func(f *RoomFixture) { f.EquipmentIDs = append([]string(nil), ids...) }
}

// Application returns the fixture as an application.Room.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:           f.ID,
		Name:         f.Name,
		Capacity:     f.Capacity,
		EquipmentIDs: append([]string(nil), f.EquipmentIDs...),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Persistence returns the fixture as a stored row.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:           f.ID,
		Name:         f.Name,
		Capacity:     f.Capacity,
		EquipmentIDs: append([]string(nil), f.EquipmentIDs...),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// EquipmentFixture describes an equipment catalog entry.
type EquipmentFixture struct {
	ID   string
	Name string
}

// NewEquipmentFixture returns equipment with a unique ID and name. An empty name is generated.
func NewEquipmentFixture(name string) EquipmentFixture {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Equipment %03d", idx)
	}
	return EquipmentFixture{ID: fmt.Sprintf("eq-%03d", idx), Name: name}
}

func (f EquipmentFixture) Application() application.Equipment {
	return application.Equipment{ID: f.ID, Name: f.Name, CreatedAt: referenceTime}
}

func (f EquipmentFixture) Persistence() persistence.Equipment {
	return persistence.Equipment{ID: f.ID, Name: f.Name, CreatedAt: referenceTime}
}

// ----------------------------- Profiles -----------------------------

// ProfileFixture describes a registered principal.
type ProfileFixture struct {
	ID       string
	FullName string
	Division string
	Email    string
	Role     policy.Role
}

// ProfileOption customises a ProfileFixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a regular user with a unique ID.
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := ProfileFixture{
		ID:       id,
		FullName: fmt.Sprintf("User %03d", idx),
		Division: "Operations",
		Email:    id + "@example.com",
		Role:     policy.RoleUser,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithProfileID(id string) ProfileOption {
	return func(f *ProfileFixture) { f.ID = id }
}

func WithProfileName(name string) ProfileOption {
	return func(f *ProfileFixture) { f.FullName = name }
}

func WithProfileRole(role policy.Role) ProfileOption {
	return func(f *ProfileFixture) { f.Role = role }
}

// Actor returns the principal acting as this profile.
func (f ProfileFixture) Actor() policy.Actor {
	return policy.Actor{ID: f.ID, Role: f.Role}
}

func (f ProfileFixture) Application() application.Profile {
	return application.Profile{
		ID:        f.ID,
		FullName:  f.FullName,
		Division:  f.Division,
		Email:     f.Email,
		Role:      f.Role,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

func (f ProfileFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		ID:        f.ID,
		FullName:  f.FullName,
		Division:  f.Division,
		Email:     f.Email,
		Role:      string(f.Role),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// ----------------------------- Bookings -----------------------------

// BookingFixture describes a booking of one room on one date.
type BookingFixture struct {
	ID        string
	RoomID    string
	UserID    string
	Date      scheduler.Date
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Status    application.BookingStatus
	Details   application.BookingDetails
	Comments  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingOption customises a BookingFixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a pending 09:00-10:00 booking one week after ReferenceDate.
func NewBookingFixture(roomID, userID string, opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:        fmt.Sprintf("bk-%03d", idx),
		RoomID:    roomID,
		UserID:    userID,
		Date:      ReferenceDate().AddDays(7),
		Start:     scheduler.NewTimeOfDay(9, 0),
		End:       scheduler.NewTimeOfDay(10, 0),
		Status:    application.StatusPending,
		Details:   application.BookingDetails{Title: fmt.Sprintf("Meeting %03d", idx), ParticipantCount: 2},
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) { f.ID = id }
}

func WithBookingDate(date scheduler.Date) BookingOption {
	return func(f *BookingFixture) { f.Date = date }
}

// WithBookingWindow sets the slot from "HH:MM" strings and panics on malformed input.
func WithBookingWindow(start, end string) BookingOption {
	return func(f *BookingFixture) {
		f.Start = mustTime(start)
		f.End = mustTime(end)
	}
}

func WithBookingStatus(status application.BookingStatus) BookingOption {
	return func(f *BookingFixture) { f.Status = status }
}

func WithBookingParticipants(n int) BookingOption {
	return func(f *BookingFixture) { f.Details.ParticipantCount = n }
}

func WithBookingCreatedAt(t time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.CreatedAt = t
		f.UpdatedAt = t
	}
}

// Draft returns the caller supplied part of the booking.
func (f BookingFixture) Draft() application.BookingDraft {
	return application.BookingDraft{
		RoomID:    f.RoomID,
		Date:      f.Date,
		StartTime: f.Start,
		EndTime:   f.End,
		Details:   f.Details,
	}
}

func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:            f.ID,
		RoomID:        f.RoomID,
		UserID:        f.UserID,
		Date:          f.Date,
		StartTime:     f.Start,
		EndTime:       f.End,
		Status:        f.Status,
		Details:       f.Details,
		AdminComments: f.Comments,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:               f.ID,
		RoomID:           f.RoomID,
		UserID:           f.UserID,
		Date:             f.Date.String(),
		StartTime:        f.Start.String(),
		EndTime:          f.End.String(),
		Status:           string(f.Status),
		Title:            f.Details.Title,
		Purpose:          f.Details.Purpose,
		OfficerInCharge:  f.Details.OfficerInCharge,
		Division:         f.Details.Division,
		ParticipantCount: f.Details.ParticipantCount,
		ContactEmail:     f.Details.ContactEmail,
		ContactPhone:     f.Details.ContactPhone,
		EquipmentNeeded:  f.Details.EquipmentNeeded,
		AdminComments:    f.Comments,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func mustTime(value string) scheduler.TimeOfDay {
	t, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: %v", err))
	}
	return t
}
