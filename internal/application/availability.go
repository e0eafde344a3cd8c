package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/room-booking/internal/scheduler"
)

// AvailabilityEngine answers whether a room window is free of approved bookings.
// Pending bookings never reserve capacity.
type AvailabilityEngine struct {
	bookings BookingRepository
	rooms    RoomCatalog
	logger   *slog.Logger
}

// NewAvailabilityEngine constructs an engine reading from the supplied stores.
func NewAvailabilityEngine(bookings BookingRepository, rooms RoomCatalog) *AvailabilityEngine {
	return NewAvailabilityEngineWithLogger(bookings, rooms, nil)
}

// NewAvailabilityEngineWithLogger constructs an engine with a specified logger.
func NewAvailabilityEngineWithLogger(bookings BookingRepository, rooms RoomCatalog, logger *slog.Logger) *AvailabilityEngine {
	return &AvailabilityEngine{bookings: bookings, rooms: rooms, logger: defaultLogger(logger)}
}

// IsAvailable reports whether no approved booking overlaps the queried window.
func (e *AvailabilityEngine) IsAvailable(ctx context.Context, query AvailabilityQuery) (bool, error) {
	conflict, err := e.Conflict(ctx, query)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// Conflict returns the approved booking occupying part of the queried window, or nil.
func (e *AvailabilityEngine) Conflict(ctx context.Context, query AvailabilityQuery) (conflict *Booking, err error) {
	if e == nil {
		return nil, fmt.Errorf("AvailabilityEngine is nil")
	}
	if e.bookings == nil {
		return nil, fmt.Errorf("booking repository not configured")
	}

	logger := serviceLogger(ctx, e.logger, "AvailabilityEngine", "Conflict",
		"room_id", query.RoomID,
		"date", query.Date.String(),
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "availability checked", "available", conflict == nil)
	}()

	window := scheduler.Window{Start: query.Start, End: query.End}
	vErr := &ValidationError{}
	validateSlot(query.RoomID, query.Date, window, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}

	if err = ensureRoom(ctx, e.rooms, query.RoomID); err != nil {
		return nil, err
	}

	return findConflict(ctx, e.bookings, RoomDay{RoomID: query.RoomID, Date: query.Date}, window, query.ExcludeBookingID)
}

// FreeSlots lists the windows inside opening hours that no approved booking covers.
func (e *AvailabilityEngine) FreeSlots(ctx context.Context, query FreeSlotsQuery) ([]scheduler.Window, error) {
	if e == nil {
		return nil, fmt.Errorf("AvailabilityEngine is nil")
	}
	if e.bookings == nil {
		return nil, fmt.Errorf("booking repository not configured")
	}

	opening := query.Opening
	if opening == (scheduler.Window{}) {
		opening = scheduler.DefaultOpeningHours
	}

	vErr := &ValidationError{}
	validateSlot(query.RoomID, query.Date, opening, vErr)
	if query.MinDuration < 0 {
		vErr.add("min_duration", "minimum duration cannot be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	if err := ensureRoom(ctx, e.rooms, query.RoomID); err != nil {
		return nil, err
	}

	approved, err := e.bookings.ListBookings(ctx, approvedOn(RoomDay{RoomID: query.RoomID, Date: query.Date}))
	if err != nil {
		return nil, mapRepoError("list approved bookings", err)
	}

	busy := make([]scheduler.Window, 0, len(approved))
	for _, booking := range approved {
		busy = append(busy, booking.Window())
	}
	return scheduler.FreeSlots(busy, opening, query.MinDuration), nil
}

// findConflict reads the approved bookings of the room/day through repo and returns
// the first one overlapping window, skipping excludeID.
func findConflict(ctx context.Context, repo BookingRepository, key RoomDay, window scheduler.Window, excludeID string) (*Booking, error) {
	approved, err := repo.ListBookings(ctx, approvedOn(key))
	if err != nil {
		return nil, mapRepoError("list approved bookings", err)
	}

	reservations := make([]scheduler.Reservation, 0, len(approved))
	byID := make(map[string]Booking, len(approved))
	for _, booking := range approved {
		if booking.Status != StatusApproved || booking.RoomID != key.RoomID || booking.Date != key.Date {
			continue
		}
		reservations = append(reservations, scheduler.Reservation{ID: booking.ID, Window: booking.Window()})
		byID[booking.ID] = booking
	}

	hit, ok := scheduler.FindConflict(reservations, window, excludeID)
	if !ok {
		return nil, nil
	}
	conflict := byID[hit.ID]
	return &conflict, nil
}

func approvedOn(key RoomDay) BookingFilter {
	return BookingFilter{
		RoomID:   key.RoomID,
		From:     key.Date,
		To:       key.Date,
		Statuses: []BookingStatus{StatusApproved},
	}
}

func validateSlot(roomID string, date scheduler.Date, window scheduler.Window, vErr *ValidationError) {
	if strings.TrimSpace(roomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !window.Start.Valid() || !window.End.Valid() {
		vErr.add("time", "time must be within the day")
	} else if window.Start >= window.End {
		vErr.add("time", "start must be before end")
	}
}

func ensureRoom(ctx context.Context, rooms RoomCatalog, roomID string) error {
	if rooms == nil {
		return nil
	}
	_, err := rooms.GetRoom(ctx, roomID)
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		vErr := &ValidationError{}
		vErr.add("room_id", "room does not exist")
		return vErr
	}
	return mapRepoError("get room", err)
}
