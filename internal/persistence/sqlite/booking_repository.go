package sqlite

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-booking/internal/persistence"
)

const bookingColumns = `id, room_id, user_id, booking_date, start_time, end_time, status,
	title, purpose, officer_in_charge, division, participant_count,
	contact_email, contact_phone, equipment_needed, admin_comments, created_at, updated_at`

// BookingRepository implements persistence.BookingRepository on a database or a transaction.
type BookingRepository struct {
	q      querier
	mapper *ErrorMapper
}

// NewBookingRepository creates a repository outside any transaction.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{q: pool.DB(), mapper: NewErrorMapper()}
}

// CreateBooking inserts a new booking row.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if err := persistence.CheckBooking(booking); err != nil {
		return err
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.RoomID,
		booking.UserID,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.Title,
		booking.Purpose,
		booking.OfficerInCharge,
		booking.Division,
		booking.ParticipantCount,
		booking.ContactEmail,
		booking.ContactPhone,
		booking.EquipmentNeeded,
		booking.AdminComments,
		formatTime(booking.CreatedAt),
		formatTime(booking.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateBooking replaces every mutable column of an existing booking.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if err := persistence.CheckBooking(booking); err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx, `
		UPDATE bookings
		SET room_id = ?, user_id = ?, booking_date = ?, start_time = ?, end_time = ?, status = ?,
			title = ?, purpose = ?, officer_in_charge = ?, division = ?, participant_count = ?,
			contact_email = ?, contact_phone = ?, equipment_needed = ?, admin_comments = ?, updated_at = ?
		WHERE id = ?`,
		booking.RoomID,
		booking.UserID,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.Title,
		booking.Purpose,
		booking.OfficerInCharge,
		booking.Division,
		booking.ParticipantCount,
		booking.ContactEmail,
		booking.ContactPhone,
		booking.EquipmentNeeded,
		booking.AdminComments,
		formatTime(booking.UpdatedAt),
		booking.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookings returns bookings matching filter ordered by date, start time and ID.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query, args, err := bookingQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings := make([]persistence.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, r.mapper.MapError(rows.Err())
}

// bookingQuery renders filter as a '?'-bound SELECT.
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
		clauses = append(clauses, "booking_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		clauses = append(clauses, "booking_date <= ?")
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
	query += ` ORDER BY booking_date ASC, start_time ASC, id ASC`

	return sqlx.In(query, args...)
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		b                    persistence.Booking
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&b.ID,
		&b.RoomID,
		&b.UserID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.Title,
		&b.Purpose,
		&b.OfficerInCharge,
		&b.Division,
		&b.ParticipantCount,
		&b.ContactEmail,
		&b.ContactPhone,
		&b.EquipmentNeeded,
		&b.AdminComments,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return b, nil
}
