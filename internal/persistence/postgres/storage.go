// Package postgres implements persistence.Store on PostgreSQL through sqlx and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Text columns compare byte-wise so ordering matches the other backends.
const (
	roomColumns    = `id, name, capacity, created_at, updated_at`
	profileColumns = `id, full_name, division, email, phone, role, created_at, updated_at`
	bookingColumns = `id, room_id, user_id, booking_date, start_time, end_time, status,
		title, purpose, officer_in_charge, division, participant_count,
		contact_email, contact_phone, equipment_needed, admin_comments, created_at, updated_at`
	bookingOrder = ` ORDER BY booking_date COLLATE "C", start_time COLLATE "C", id COLLATE "C"`
)

// Storage is the PostgreSQL entity store.
type Storage struct {
	*bookingRepository

	db     *sqlx.DB
	logger *slog.Logger
}

var _ persistence.Store = (*Storage)(nil)

// Open connects to PostgreSQL, retrying the initial ping while the server starts.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Storage, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres")

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= config.ConnectAttempts || ctx.Err() != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: ping postgres after %d attempts: %v", persistence.ErrUnavailable, attempt, err)
		}
		logger.WarnContext(ctx, "database not ready, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
		case <-time.After(config.RetryDelay):
		}
	}

	logger.InfoContext(ctx, "database connected", "max_open_conns", config.MaxOpenConns)
	return &Storage{bookingRepository: &bookingRepository{q: db}, db: db, logger: logger}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewPostgresExecutor(s.db.DB),
		s.logger,
	)
	return manager.Run(ctx)
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return mapError(s.db.PingContext(ctx))
}

// Close closes the connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

// WithinRoomDay runs fn in a transaction holding an advisory lock for the room/day and
// row locks on its existing bookings.
func (s *Storage) WithinRoomDay(ctx context.Context, roomID, date string, fn persistence.RoomDayFunc) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "rollback failed", "room_id", roomID, "date", date, "error", rbErr)
			}
			s.logger.DebugContext(ctx, "room day transaction rolled back", "room_id", roomID, "date", date, "error", err)
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "booking:"+roomID+":"+date); err != nil {
		return mapError(err)
	}
	if _, err = tx.ExecContext(ctx, `SELECT id FROM bookings WHERE room_id = $1 AND booking_date = $2 FOR UPDATE`, roomID, date); err != nil {
		return mapError(err)
	}

	if err = fn(ctx, &bookingRepository{q: tx}); err != nil {
		return err
	}
	return mapError(tx.Commit())
}

// --- rooms and equipment ---

// CreateRoom inserts a room and its equipment links in one transaction.
func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	if err := persistence.CheckRoom(room); err != nil {
		return err
	}
	room.CreatedAt, room.UpdatedAt = room.CreatedAt.UTC(), room.UpdatedAt.UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := sqlx.NamedExecContext(ctx, tx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (:id, :name, :capacity, :created_at, :updated_at)`, room); err != nil {
		return mapError(err)
	}
	for _, equipmentID := range room.EquipmentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_equipment (room_id, equipment_id) VALUES ($1, $2)`,
			room.ID, equipmentID,
		); err != nil {
			return mapError(err)
		}
	}
	return mapError(tx.Commit())
}

// GetRoom retrieves a room with its equipment IDs.
func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	var room persistence.Room
	if err := s.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id); err != nil {
		return persistence.Room{}, mapError(err)
	}
	links, err := s.equipmentLinks(ctx, []string{id})
	if err != nil {
		return persistence.Room{}, err
	}
	room.EquipmentIDs = links[id]
	return normalizeRoom(room), nil
}

// ListRooms returns every room ordered by name then ID.
func (s *Storage) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rooms := make([]persistence.Room, 0)
	if err := s.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms ORDER BY name COLLATE "C", id COLLATE "C"`); err != nil {
		return nil, mapError(err)
	}
	if len(rooms) == 0 {
		return rooms, nil
	}

	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	links, err := s.equipmentLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].EquipmentIDs = links[rooms[i].ID]
		rooms[i] = normalizeRoom(rooms[i])
	}
	return rooms, nil
}

func (s *Storage) equipmentLinks(ctx context.Context, roomIDs []string) (map[string][]string, error) {
	query, args, err := sqlx.In(`
		SELECT room_id, equipment_id FROM room_equipment
		WHERE room_id IN (?)
		ORDER BY room_id, equipment_id COLLATE "C"`, roomIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		RoomID      string `db:"room_id"`
		EquipmentID string `db:"equipment_id"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}

	links := make(map[string][]string, len(roomIDs))
	for _, row := range rows {
		links[row.RoomID] = append(links[row.RoomID], row.EquipmentID)
	}
	return links, nil
}

// CreateEquipment inserts an equipment entry.
func (s *Storage) CreateEquipment(ctx context.Context, equipment persistence.Equipment) error {
	if equipment.ID == "" || equipment.Name == "" {
		return fmt.Errorf("%w: equipment %q", persistence.ErrConstraintViolation, equipment.ID)
	}
	equipment.CreatedAt = equipment.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO equipment (id, name, created_at)
		VALUES (:id, :name, :created_at)`, equipment)
	return mapError(err)
}

// ListEquipment returns the catalog ordered by name.
func (s *Storage) ListEquipment(ctx context.Context) ([]persistence.Equipment, error) {
	items := make([]persistence.Equipment, 0)
	if err := s.db.SelectContext(ctx, &items, `SELECT id, name, created_at FROM equipment ORDER BY name COLLATE "C", id COLLATE "C"`); err != nil {
		return nil, mapError(err)
	}
	for i := range items {
		items[i].CreatedAt = items[i].CreatedAt.UTC()
	}
	return items, nil
}

// --- profiles ---

// CreateProfile inserts a profile.
func (s *Storage) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if err := persistence.CheckProfile(profile); err != nil {
		return err
	}
	profile.CreatedAt, profile.UpdatedAt = profile.CreatedAt.UTC(), profile.UpdatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (:id, :full_name, :division, :email, :phone, :role, :created_at, :updated_at)`, profile)
	return mapError(err)
}

// GetProfile retrieves a profile by ID.
func (s *Storage) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	var profile persistence.Profile
	if err := s.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id); err != nil {
		return persistence.Profile{}, mapError(err)
	}
	return normalizeProfile(profile), nil
}

// ListProfiles returns the profiles among ids ordered by ID.
func (s *Storage) ListProfiles(ctx context.Context, ids []string) ([]persistence.Profile, error) {
	profiles := make([]persistence.Profile, 0, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}
	query, args, err := sqlx.In(`SELECT `+profileColumns+` FROM profiles WHERE id IN (?) ORDER BY id COLLATE "C"`, ids)
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &profiles, s.db.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	for i := range profiles {
		profiles[i] = normalizeProfile(profiles[i])
	}
	return profiles, nil
}

// --- bookings ---

// bookingRepository runs booking statements on the pool or on a room/day transaction.
type bookingRepository struct {
	q sqlx.ExtContext
}

func (r *bookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if err := persistence.CheckBooking(booking); err != nil {
		return err
	}
	booking = normalizeBooking(booking)
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (:id, :room_id, :user_id, :booking_date, :start_time, :end_time, :status,
			:title, :purpose, :officer_in_charge, :division, :participant_count,
			:contact_email, :contact_phone, :equipment_needed, :admin_comments, :created_at, :updated_at)`, booking)
	return mapError(err)
}

func (r *bookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if err := persistence.CheckBooking(booking); err != nil {
		return err
	}
	booking = normalizeBooking(booking)
	result, err := sqlx.NamedExecContext(ctx, r.q, `
		UPDATE bookings
		SET room_id = :room_id, user_id = :user_id, booking_date = :booking_date,
			start_time = :start_time, end_time = :end_time, status = :status,
			title = :title, purpose = :purpose, officer_in_charge = :officer_in_charge,
			division = :division, participant_count = :participant_count,
			contact_email = :contact_email, contact_phone = :contact_phone,
			equipment_needed = :equipment_needed, admin_comments = :admin_comments,
			updated_at = :updated_at
		WHERE id = :id`, booking)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *bookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	var booking persistence.Booking
	if err := sqlx.GetContext(ctx, r.q, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return normalizeBooking(booking), nil
}

func (r *bookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query, args, err := bookingQuery(filter)
	if err != nil {
		return nil, err
	}
	bookings := make([]persistence.Booking, 0)
	if err := sqlx.SelectContext(ctx, r.q, &bookings, r.q.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	for i := range bookings {
		bookings[i] = normalizeBooking(bookings[i])
	}
	return bookings, nil
}

// bookingQuery renders filter with '?' placeholders; callers rebind for the driver.
func bookingQuery(filter persistence.BookingFilter) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.From != "" {
		clauses = append(clauses, `booking_date COLLATE "C" >= ?`)
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, `booking_date COLLATE "C" <= ?`)
		args = append(args, filter.To)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN (?)")
		args = append(args, filter.Statuses)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	return sqlx.In(query+bookingOrder, args...)
}

// lib/pq returns timestamps in the session time zone.

func normalizeRoom(r persistence.Room) persistence.Room {
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	return r
}

func normalizeProfile(p persistence.Profile) persistence.Profile {
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p
}

func normalizeBooking(b persistence.Booking) persistence.Booking {
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b
}
