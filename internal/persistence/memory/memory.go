// Package memory provides a map-backed entity store for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/room-booking/internal/persistence"
)

// Storage keeps every entity in process memory.
type Storage struct {
	mu        sync.RWMutex
	rooms     map[string]persistence.Room
	equipment map[string]persistence.Equipment
	profiles  map[string]persistence.Profile
	bookings  map[string]persistence.Booking

	// txMu serializes WithinRoomDay scopes.
	txMu sync.Mutex
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		rooms:     make(map[string]persistence.Room),
		equipment: make(map[string]persistence.Equipment),
		profiles:  make(map[string]persistence.Profile),
		bookings:  make(map[string]persistence.Booking),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	if err := persistence.CheckRoom(room); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("%w: room %s", persistence.ErrDuplicate, room.ID)
	}
	for _, id := range room.EquipmentIDs {
		if _, ok := s.equipment[id]; !ok {
			return fmt.Errorf("%w: equipment %s", persistence.ErrForeignKeyViolation, id)
		}
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// ListRooms returns all rooms ordered by name.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, cloneRoom(room))
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

// --- EquipmentRepository implementation ---

// CreateEquipment stores a new equipment entry.
func (s *Storage) CreateEquipment(ctx context.Context, equipment persistence.Equipment) error {
	if equipment.ID == "" || equipment.Name == "" {
		return fmt.Errorf("%w: equipment %q", persistence.ErrConstraintViolation, equipment.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equipment[equipment.ID]; ok {
		return fmt.Errorf("%w: equipment %s", persistence.ErrDuplicate, equipment.ID)
	}
	for _, existing := range s.equipment {
		if existing.Name == equipment.Name {
			return fmt.Errorf("%w: equipment name %q", persistence.ErrDuplicate, equipment.Name)
		}
	}

	s.equipment[equipment.ID] = equipment
	return nil
}

// ListEquipment returns the equipment catalog ordered by name.
func (s *Storage) ListEquipment(ctx context.Context) ([]persistence.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]persistence.Equipment, 0, len(s.equipment))
	for _, item := range s.equipment {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].ID < items[j].ID
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// --- ProfileRepository implementation ---

// CreateProfile stores a new profile.
func (s *Storage) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if err := persistence.CheckProfile(profile); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; ok {
		return fmt.Errorf("%w: profile %s", persistence.ErrDuplicate, profile.ID)
	}
	s.profiles[profile.ID] = profile
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *Storage) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[id]
	if !ok {
		return persistence.Profile{}, persistence.ErrNotFound
	}
	return profile, nil
}

// ListProfiles returns the known profiles among ids ordered by ID.
func (s *Storage) ListProfiles(ctx context.Context, ids []string) ([]persistence.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(ids))
	profiles := make([]persistence.Profile, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if profile, ok := s.profiles[id]; ok {
			profiles = append(profiles, profile)
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

// --- BookingRepository implementation ---

// CreateBooking stores a new booking.
func (s *Storage) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putBookingLocked(booking, true)
}

// UpdateBooking replaces an existing booking.
func (s *Storage) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putBookingLocked(booking, false)
}

// GetBooking retrieves a booking by ID.
func (s *Storage) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

// ListBookings returns the bookings matching filter ordered by date, start and ID.
func (s *Storage) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]persistence.Booking, 0)
	for _, booking := range s.bookings {
		if persistence.MatchesBookingFilter(booking, filter) {
			bookings = append(bookings, booking)
		}
	}
	persistence.SortBookings(bookings)
	return bookings, nil
}

// WithinRoomDay runs fn against a staging view. Writes become visible only when fn succeeds.
func (s *Storage) WithinRoomDay(ctx context.Context, roomID, date string, fn persistence.RoomDayFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &stagedBookings{store: s, staged: make(map[string]stagedWrite)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.order {
		write := tx.staged[id]
		if err := s.putBookingLocked(write.booking, write.create); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) putBookingLocked(booking persistence.Booking, create bool) error {
	if err := persistence.CheckBooking(booking); err != nil {
		return err
	}
	_, exists := s.bookings[booking.ID]
	switch {
	case create && exists:
		return fmt.Errorf("%w: booking %s", persistence.ErrDuplicate, booking.ID)
	case !create && !exists:
		return persistence.ErrNotFound
	}
	if _, ok := s.rooms[booking.RoomID]; !ok {
		return fmt.Errorf("%w: room %s", persistence.ErrForeignKeyViolation, booking.RoomID)
	}
	if _, ok := s.profiles[booking.UserID]; !ok {
		return fmt.Errorf("%w: profile %s", persistence.ErrForeignKeyViolation, booking.UserID)
	}
	s.bookings[booking.ID] = booking
	return nil
}

type stagedWrite struct {
	booking persistence.Booking
	create  bool
}

// stagedBookings overlays uncommitted writes on the committed bookings.
type stagedBookings struct {
	store  *Storage
	staged map[string]stagedWrite
	order  []string
}

func (t *stagedBookings) stage(booking persistence.Booking, create bool) error {
	if err := persistence.CheckBooking(booking); err != nil {
		return err
	}
	_, committed := t.store.lookup(booking.ID)
	_, pending := t.staged[booking.ID]
	exists := committed || pending
	switch {
	case create && exists:
		return fmt.Errorf("%w: booking %s", persistence.ErrDuplicate, booking.ID)
	case !create && !exists:
		return persistence.ErrNotFound
	}
	if !pending {
		t.order = append(t.order, booking.ID)
	} else {
		create = t.staged[booking.ID].create
	}
	t.staged[booking.ID] = stagedWrite{booking: booking, create: create}
	return nil
}

func (t *stagedBookings) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	return t.stage(booking, true)
}

func (t *stagedBookings) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	return t.stage(booking, false)
}

func (t *stagedBookings) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if write, ok := t.staged[id]; ok {
		return write.booking, nil
	}
	booking, ok := t.store.lookup(id)
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

func (t *stagedBookings) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	committed, err := t.store.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return nil, err
	}
	bookings := make([]persistence.Booking, 0, len(committed))
	for _, booking := range committed {
		if write, ok := t.staged[booking.ID]; ok {
			booking = write.booking
		}
		if persistence.MatchesBookingFilter(booking, filter) {
			bookings = append(bookings, booking)
		}
	}
	for _, id := range t.order {
		write := t.staged[id]
		if write.create && persistence.MatchesBookingFilter(write.booking, filter) {
			bookings = append(bookings, write.booking)
		}
	}
	persistence.SortBookings(bookings)
	return bookings, nil
}

func (s *Storage) lookup(id string) (persistence.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	booking, ok := s.bookings[id]
	return booking, ok
}

func cloneRoom(room persistence.Room) persistence.Room {
	cloned := room
	if room.EquipmentIDs != nil {
		cloned.EquipmentIDs = append([]string(nil), room.EquipmentIDs...)
	}
	return cloned
}
