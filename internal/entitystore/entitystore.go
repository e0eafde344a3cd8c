// Package entitystore adapts a persistence.Store to the interfaces the booking services consume.
package entitystore

import (
	"context"
	"fmt"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

// Store exposes a persistence.Store in application types.
type Store struct {
	bookingRepository
	backend persistence.Store
}

var (
	_ application.BookingRepository = (*Store)(nil)
	_ application.BookingTransactor = (*Store)(nil)
	_ application.RoomCatalog       = (*Store)(nil)
	_ application.ProfileDirectory  = (*Store)(nil)
)

// New wraps backend.
func New(backend persistence.Store) *Store {
	return &Store{bookingRepository: bookingRepository{repo: backend}, backend: backend}
}

// Backend returns the wrapped store.
func (s *Store) Backend() persistence.Store {
	return s.backend
}

// WithinRoomDay runs fn inside the backend's room/day transaction.
func (s *Store) WithinRoomDay(ctx context.Context, key application.RoomDay, fn func(ctx context.Context, bookings application.BookingRepository) error) error {
	return s.backend.WithinRoomDay(ctx, key.RoomID, key.Date.String(), func(ctx context.Context, repo persistence.BookingRepository) error {
		return fn(ctx, bookingRepository{repo: repo})
	})
}

func (s *Store) GetRoom(ctx context.Context, id string) (application.Room, error) {
	record, err := s.backend.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return roomFromRecord(record), nil
}

func (s *Store) ListRooms(ctx context.Context) ([]application.Room, error) {
	records, err := s.backend.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, len(records))
	for i, record := range records {
		rooms[i] = roomFromRecord(record)
	}
	return rooms, nil
}

func (s *Store) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	record := persistence.Room{
		ID:           room.ID,
		Name:         room.Name,
		Capacity:     room.Capacity,
		EquipmentIDs: append([]string(nil), room.EquipmentIDs...),
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}
	if err := s.backend.CreateRoom(ctx, record); err != nil {
		return application.Room{}, err
	}
	return roomFromRecord(record), nil
}

func (s *Store) ListEquipment(ctx context.Context) ([]application.Equipment, error) {
	records, err := s.backend.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]application.Equipment, len(records))
	for i, record := range records {
		items[i] = application.Equipment{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt}
	}
	return items, nil
}

func (s *Store) CreateEquipment(ctx context.Context, equipment application.Equipment) (application.Equipment, error) {
	record := persistence.Equipment{ID: equipment.ID, Name: equipment.Name, CreatedAt: equipment.CreatedAt}
	if err := s.backend.CreateEquipment(ctx, record); err != nil {
		return application.Equipment{}, err
	}
	return equipment, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (application.Profile, error) {
	record, err := s.backend.GetProfile(ctx, id)
	if err != nil {
		return application.Profile{}, err
	}
	return profileFromRecord(record), nil
}

func (s *Store) ListProfiles(ctx context.Context, ids []string) ([]application.Profile, error) {
	records, err := s.backend.ListProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	profiles := make([]application.Profile, len(records))
	for i, record := range records {
		profiles[i] = profileFromRecord(record)
	}
	return profiles, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile application.Profile) (application.Profile, error) {
	record := persistence.Profile{
		ID:        profile.ID,
		FullName:  profile.FullName,
		Division:  profile.Division,
		Email:     profile.Email,
		Phone:     profile.Phone,
		Role:      string(profile.Role),
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
	if err := s.backend.CreateProfile(ctx, record); err != nil {
		return application.Profile{}, err
	}
	return profileFromRecord(record), nil
}

// bookingRepository converts between application bookings and stored rows.
type bookingRepository struct {
	repo persistence.BookingRepository
}

func (r bookingRepository) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := r.repo.CreateBooking(ctx, bookingToRecord(booking)); err != nil {
		return application.Booking{}, err
	}
	return stripSummaries(booking), nil
}

func (r bookingRepository) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := r.repo.UpdateBooking(ctx, bookingToRecord(booking)); err != nil {
		return application.Booking{}, err
	}
	return stripSummaries(booking), nil
}

func (r bookingRepository) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	record, err := r.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return bookingFromRecord(record)
}

func (r bookingRepository) ListBookings(ctx context.Context, filter application.BookingFilter) ([]application.Booking, error) {
	records, err := r.repo.ListBookings(ctx, filterToRecord(filter))
	if err != nil {
		return nil, err
	}
	bookings := make([]application.Booking, 0, len(records))
	for _, record := range records {
		booking, err := bookingFromRecord(record)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func filterToRecord(filter application.BookingFilter) persistence.BookingFilter {
	out := persistence.BookingFilter{RoomID: filter.RoomID, UserID: filter.UserID}
	if !filter.From.IsZero() {
		out.From = filter.From.String()
	}
	if !filter.To.IsZero() {
		out.To = filter.To.String()
	}
	for _, status := range filter.Statuses {
		out.Statuses = append(out.Statuses, string(status))
	}
	return out
}

func bookingToRecord(b application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:               b.ID,
		RoomID:           b.RoomID,
		UserID:           b.UserID,
		Date:             b.Date.String(),
		StartTime:        b.StartTime.String(),
		EndTime:          b.EndTime.String(),
		Status:           string(b.Status),
		Title:            b.Details.Title,
		Purpose:          b.Details.Purpose,
		OfficerInCharge:  b.Details.OfficerInCharge,
		Division:         b.Details.Division,
		ParticipantCount: b.Details.ParticipantCount,
		ContactEmail:     b.Details.ContactEmail,
		ContactPhone:     b.Details.ContactPhone,
		EquipmentNeeded:  b.Details.EquipmentNeeded,
		AdminComments:    b.AdminComments,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// bookingFromRecord fails on rows whose date or times cannot be parsed.
func bookingFromRecord(r persistence.Booking) (application.Booking, error) {
	date, err := scheduler.ParseDate(r.Date)
	if err != nil {
		return application.Booking{}, fmt.Errorf("entitystore: booking %s: %w", r.ID, err)
	}
	start, err := scheduler.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return application.Booking{}, fmt.Errorf("entitystore: booking %s start: %w", r.ID, err)
	}
	end, err := scheduler.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return application.Booking{}, fmt.Errorf("entitystore: booking %s end: %w", r.ID, err)
	}
	status := application.BookingStatus(r.Status)
	if !status.Valid() {
		return application.Booking{}, fmt.Errorf("entitystore: booking %s has unknown status %q", r.ID, r.Status)
	}

	return application.Booking{
		ID:        r.ID,
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    status,
		Details: application.BookingDetails{
			Title:            r.Title,
			Purpose:          r.Purpose,
			OfficerInCharge:  r.OfficerInCharge,
			Division:         r.Division,
			ParticipantCount: r.ParticipantCount,
			ContactEmail:     r.ContactEmail,
			ContactPhone:     r.ContactPhone,
			EquipmentNeeded:  r.EquipmentNeeded,
		},
		AdminComments: r.AdminComments,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func stripSummaries(b application.Booking) application.Booking {
	b.Room, b.Owner = nil, nil
	return b
}

func roomFromRecord(r persistence.Room) application.Room {
	return application.Room{
		ID:           r.ID,
		Name:         r.Name,
		Capacity:     r.Capacity,
		EquipmentIDs: append([]string(nil), r.EquipmentIDs...),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func profileFromRecord(r persistence.Profile) application.Profile {
	return application.Profile{
		ID:        r.ID,
		FullName:  r.FullName,
		Division:  r.Division,
		Email:     r.Email,
		Phone:     r.Phone,
		Role:      policy.ParseRole(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
