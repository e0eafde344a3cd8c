// Package sqlite implements persistence.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"sync"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage is the SQLite entity store.
type Storage struct {
	*RoomRepository
	*ProfileRepository
	*BookingRepository

	pool   *ConnectionPool
	logger *slog.Logger

	// writeMu serializes room/day scopes of this process. Other processes
	// queue on the IMMEDIATE transaction lock.
	writeMu sync.Mutex
}

var _ persistence.Store = (*Storage)(nil)

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		RoomRepository:    NewRoomRepository(pool),
		ProfileRepository: NewProfileRepository(pool),
		BookingRepository: NewBookingRepository(pool),
		pool:              pool,
		logger:            logger.With("component", "sqlite"),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	return manager.Run(ctx)
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// WithinRoomDay runs fn in a write transaction. Rows are not locked individually:
// the transaction holds the database write lock, which covers every room and day.
func (s *Storage) WithinRoomDay(ctx context.Context, roomID, date string, fn persistence.RoomDayFunc) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, &BookingRepository{q: tx, mapper: s.BookingRepository.mapper})
	})
	if err != nil {
		s.logger.DebugContext(ctx, "room day transaction rolled back", "room_id", roomID, "date", date, "error", err)
	}
	return s.BookingRepository.mapper.MapError(err)
}
