package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository and persistence.EquipmentRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateRoom inserts a room and its equipment links in one transaction.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if err := persistence.CheckRoom(room); err != nil {
		return err
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (id, name, capacity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			room.ID,
			room.Name,
			room.Capacity,
			formatTime(room.CreatedAt),
			formatTime(room.UpdatedAt),
		)
		if err != nil {
			return err
		}

		for _, equipmentID := range room.EquipmentIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO room_equipment (room_id, equipment_id) VALUES (?, ?)`,
				room.ID, equipmentID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return r.mapper.MapError(err)
}

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, capacity, created_at, updated_at
		FROM rooms
		WHERE id = ?`, id)

	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}

	links, err := r.equipmentLinks(ctx, id)
	if err != nil {
		return persistence.Room{}, err
	}
	room.EquipmentIDs = links[id]
	return room, nil
}

// ListRooms returns all rooms ordered by name then ID
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, capacity, created_at, updated_at
		FROM rooms
		ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	links, err := r.equipmentLinks(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].EquipmentIDs = links[rooms[i].ID]
	}
	return rooms, nil
}

// equipmentLinks returns equipment IDs keyed by room. An empty roomID loads every link.
func (r *RoomRepository) equipmentLinks(ctx context.Context, roomID string) (map[string][]string, error) {
	query := `SELECT room_id, equipment_id FROM room_equipment`
	var args []any
	if roomID != "" {
		query += ` WHERE room_id = ?`
		args = append(args, roomID)
	}
	query += ` ORDER BY room_id, equipment_id`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var room, equipment string
		if err := rows.Scan(&room, &equipment); err != nil {
			return nil, r.mapper.MapError(err)
		}
		links[room] = append(links[room], equipment)
	}
	return links, r.mapper.MapError(rows.Err())
}

// CreateEquipment inserts a catalog entry. Names are unique.
func (r *RoomRepository) CreateEquipment(ctx context.Context, equipment persistence.Equipment) error {
	if equipment.ID == "" || equipment.Name == "" {
		return fmt.Errorf("%w: equipment %q", persistence.ErrConstraintViolation, equipment.ID)
	}

	_, err := r.pool.DB().ExecContext(ctx,
		`INSERT INTO equipment (id, name, created_at) VALUES (?, ?, ?)`,
		equipment.ID, equipment.Name, formatTime(equipment.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListEquipment returns the equipment catalog ordered by name.
func (r *RoomRepository) ListEquipment(ctx context.Context) ([]persistence.Equipment, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT id, name, created_at FROM equipment ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var items []persistence.Equipment
	for rows.Next() {
		var (
			item      persistence.Equipment
			createdAt string
		)
		if err := rows.Scan(&item.ID, &item.Name, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, r.mapper.MapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		createdAt, updatedAt string
	)
	if err := row.Scan(&room.ID, &room.Name, &room.Capacity, &createdAt, &updatedAt); err != nil {
		return persistence.Room{}, err
	}

	var err error
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}
