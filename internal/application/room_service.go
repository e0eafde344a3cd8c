package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/room-booking/internal/policy"
)

// RoomService manages the room and equipment catalog. Reads are public; writes need
// an administrator.
type RoomService struct {
	rooms       RoomCatalog
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService logs through slog.Default.
func NewRoomService(rooms RoomCatalog, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

func NewRoomServiceWithLogger(rooms RoomCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// ready reports whether s has a catalog to write to. Lists on an empty service
// return nothing.
func (s *RoomService) ready() error {
	switch {
	case s == nil:
		return errors.New("room service not initialised")
	case s.rooms == nil:
		return errors.New("room service has no catalog")
	}
	return nil
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"actor_id", params.Actor.ID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !policy.CanManageCatalog(params.Actor) {
		err = forbidden(params.Actor, policy.ActionManageCatalog)
		return
	}

	equipmentIDs := uniqueStrings(params.Input.EquipmentIDs)
	vErr := validateRoomInput(params.Input)
	if len(equipmentIDs) > 0 && !vErr.HasErrors() {
		if err = s.ensureEquipment(ctx, equipmentIDs, vErr); err != nil {
			return
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	room = Room{
		ID:           s.idGenerator(),
		Name:         strings.TrimSpace(params.Input.Name),
		Capacity:     params.Input.Capacity,
		EquipmentIDs: equipmentIDs,
		CreatedAt:    s.now(),
	}
	room.UpdatedAt = room.CreatedAt

	var persisted Room
	persisted, err = s.rooms.CreateRoom(ctx, room)
	if err != nil {
		err = mapRepoError("create room", err)
		return
	}

	room = persisted
	return
}

// GetRoom returns a single room. The catalog is public.
func (s *RoomService) GetRoom(ctx context.Context, id string) (Room, error) {
	if err := s.ready(); err != nil {
		return Room{}, err
	}

	room, err := s.rooms.GetRoom(ctx, strings.TrimSpace(id))
	if err != nil {
		err = mapRepoError("get room", err)
		s.loggerWith(ctx, "GetRoom", "room_id", id).
			Log(ctx, logLevelFor(err), "failed to get room", "error", err, "error_kind", ErrorKind(err))
		return Room{}, err
	}
	return room, nil
}

// ListRooms returns the catalog of rooms ordered by name.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		return nil, s.ready()
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	var raw []Room
	raw, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRepoError("list rooms", err)
		return
	}

	rooms = slices.Clone(raw)
	slices.SortFunc(rooms, func(a, b Room) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return
}

// CreateEquipment persists a new equipment entry for administrators.
func (s *RoomService) CreateEquipment(ctx context.Context, params CreateEquipmentParams) (equipment Equipment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateEquipment",
		"actor_id", params.Actor.ID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to create equipment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("equipment_id", equipment.ID).InfoContext(ctx, "equipment created")
	}()

	if !policy.CanManageCatalog(params.Actor) {
		err = forbidden(params.Actor, policy.ActionManageCatalog)
		return
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		err = vErr
		return
	}

	equipment, err = s.rooms.CreateEquipment(ctx, Equipment{
		ID:        s.idGenerator(),
		Name:      name,
		CreatedAt: s.now(),
	})
	if err != nil {
		err = mapRepoError("create equipment", err)
	}
	return
}

// ListEquipment returns the equipment catalog ordered by name.
func (s *RoomService) ListEquipment(ctx context.Context) ([]Equipment, error) {
	if s == nil {
		return nil, s.ready()
	}
	if s.rooms == nil {
		return nil, nil
	}

	items, err := s.rooms.ListEquipment(ctx)
	if err != nil {
		err = mapRepoError("list equipment", err)
		s.loggerWith(ctx, "ListEquipment").
			Log(ctx, logLevelFor(err), "failed to list equipment", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	out := slices.Clone(items)
	slices.SortFunc(out, func(a, b Equipment) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *RoomService) ensureEquipment(ctx context.Context, ids []string, vErr *ValidationError) error {
	known, err := s.rooms.ListEquipment(ctx)
	if err != nil {
		return mapRepoError("list equipment", err)
	}
	exists := make(map[string]struct{}, len(known))
	for _, item := range known {
		exists[item.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := exists[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		vErr.add("equipment_ids", fmt.Sprintf("unknown equipment ids: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}

	return vErr
}
