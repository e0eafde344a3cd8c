package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

// ScheduleService answers read-only booking queries under the visibility rules.
// Every call reads the store again; nothing is cached between calls.
type ScheduleService struct {
	bookings BookingRepository
	rooms    RoomCatalog
	profiles ProfileDirectory
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewScheduleService wires dependencies for schedule queries.
func NewScheduleService(bookings BookingRepository, rooms RoomCatalog, profiles ProfileDirectory, now func() time.Time, location *time.Location) *ScheduleService {
	return NewScheduleServiceWithLogger(bookings, rooms, profiles, now, location, nil)
}

// NewScheduleServiceWithLogger wires dependencies for schedule queries with a specified logger.
func NewScheduleServiceWithLogger(bookings BookingRepository, rooms RoomCatalog, profiles ProfileDirectory, now func() time.Time, location *time.Location, logger *slog.Logger) *ScheduleService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ScheduleService{
		bookings: bookings,
		rooms:    rooms,
		profiles: profiles,
		now:      now,
		location: location,
		logger:   defaultLogger(logger),
	}
}

// ListBookings returns the bookings in the inclusive date range that the actor may see,
// ordered by date, start time and id.
func (s *ScheduleService) ListBookings(ctx context.Context, params ListBookingsParams) (bookings []Booking, err error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if s.bookings == nil {
		return nil, fmt.Errorf("booking repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ScheduleService", "ListBookings",
		"actor_id", params.Actor.ID,
		"from", params.Range.From.String(),
		"to", params.Range.To.String(),
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "bookings listed", "count", len(bookings))
	}()

	if err = validateListParams(params); err != nil {
		return nil, err
	}

	filter := BookingFilter{
		RoomID: params.RoomID,
		From:   params.Range.From,
		To:     params.Range.To,
	}
	if params.OwnerOnly {
		filter.UserID = params.Actor.ID
	}
	if params.Actor.IsAnonymous() {
		filter.Statuses = []BookingStatus{StatusApproved, StatusCancelled}
	}

	var stored []Booking
	stored, err = s.bookings.ListBookings(ctx, filter)
	if err != nil {
		err = mapRepoError("list bookings", err)
		return nil, err
	}

	visible := make([]Booking, 0, len(stored))
	for _, booking := range stored {
		if !params.Range.Contains(booking.Date) {
			continue
		}
		if !policy.CanView(params.Actor, string(booking.Status), booking.UserID) {
			continue
		}
		visible = append(visible, booking)
	}
	sortBookings(visible)

	if err = s.attachSummaries(ctx, visible); err != nil {
		return nil, err
	}
	return visible, nil
}

// ListDays returns the visible bookings of the range grouped per calendar day.
func (s *ScheduleService) ListDays(ctx context.Context, params ListBookingsParams) ([]DayBookings, error) {
	bookings, err := s.ListBookings(ctx, params)
	if err != nil {
		return nil, err
	}
	return GroupByDay(bookings), nil
}

// Summarize counts the visible bookings of the range per status.
func (s *ScheduleService) Summarize(ctx context.Context, params ListBookingsParams) (BookingSummary, error) {
	bookings, err := s.ListBookings(ctx, params)
	if err != nil {
		return BookingSummary{}, err
	}

	today := scheduler.DateOf(s.now().In(s.location))
	summary := BookingSummary{Total: len(bookings)}
	for _, booking := range bookings {
		switch booking.Status {
		case StatusPending:
			summary.Pending++
		case StatusApproved:
			summary.Approved++
			if booking.Date == today {
				summary.ApprovedToday++
			}
		case StatusCancelled:
			summary.Cancelled++
		}
	}
	return summary, nil
}

// GroupByDay buckets bookings by date. Days without bookings are omitted and each
// bucket keeps the start time order.
func GroupByDay(bookings []Booking) []DayBookings {
	if len(bookings) == 0 {
		return nil
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sortBookings(ordered)

	days := make([]DayBookings, 0)
	for _, booking := range ordered {
		last := len(days) - 1
		if last >= 0 && days[last].Date == booking.Date {
			days[last].Bookings = append(days[last].Bookings, booking)
			continue
		}
		days = append(days, DayBookings{Date: booking.Date, Bookings: []Booking{booking}})
	}
	return days
}

func validateListParams(params ListBookingsParams) error {
	vErr := &ValidationError{}
	if params.Range.From.IsZero() || params.Range.To.IsZero() {
		vErr.add("range", "date range is required")
	} else if !params.Range.Valid() {
		vErr.add("range", "range start must not be after range end")
	}
	if vErr.HasErrors() {
		return vErr
	}
	if params.OwnerOnly && params.Actor.IsAnonymous() {
		return forbidden(params.Actor, policy.ActionViewPending)
	}
	return nil
}

// attachSummaries fills the Room and Owner summaries with one catalog read and one
// batched profile read.
func (s *ScheduleService) attachSummaries(ctx context.Context, bookings []Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	if s.rooms != nil {
		rooms, err := s.rooms.ListRooms(ctx)
		if err != nil {
			return mapRepoError("list rooms", err)
		}
		byID := make(map[string]Room, len(rooms))
		for _, room := range rooms {
			byID[room.ID] = room
		}
		for i := range bookings {
			if room, ok := byID[bookings[i].RoomID]; ok {
				bookings[i].Room = room.Summary()
			}
		}
	}

	if s.profiles != nil {
		ids := make([]string, 0, len(bookings))
		for _, booking := range bookings {
			ids = append(ids, booking.UserID)
		}
		profiles, err := s.profiles.ListProfiles(ctx, uniqueStrings(ids))
		if err != nil {
			return mapRepoError("list profiles", err)
		}
		byID := make(map[string]Profile, len(profiles))
		for _, profile := range profiles {
			byID[profile.ID] = profile
		}
		for i := range bookings {
			if profile, ok := byID[bookings[i].UserID]; ok {
				bookings[i].Owner = profile.Summary()
			}
		}
	}
	return nil
}

func sortBookings(bookings []Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
