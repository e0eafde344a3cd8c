package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	GetRoom(ctx context.Context, id string) (application.Room, error)
	ListRooms(ctx context.Context) ([]application.Room, error)
	CreateEquipment(ctx context.Context, params application.CreateEquipmentParams) (application.Equipment, error)
	ListEquipment(ctx context.Context) ([]application.Equipment, error)
}

// RoomHandler serves the room and equipment catalog.
type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

// Create handles POST /rooms.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !h.responder.decode(w, r, &req) {
		return
	}

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		Actor: ActorFromContext(r.Context()),
		Input: req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

// Get handles GET /rooms/{id}.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

// List handles GET /rooms.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: out})
}

// CreateEquipment handles POST /equipment.
func (h *RoomHandler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if !h.responder.decode(w, r, &req) {
		return
	}

	equipment, err := h.service.CreateEquipment(r.Context(), application.CreateEquipmentParams{
		Actor: ActorFromContext(r.Context()),
		Name:  strings.TrimSpace(req.Name),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateEquipment", "equipment_id", equipment.ID).InfoContext(r.Context(), "equipment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, equipmentResponse{Equipment: toEquipmentDTO(equipment)})
}

// ListEquipment handles GET /equipment.
func (h *RoomHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEquipment(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]equipmentDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toEquipmentDTO(item))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEquipmentResponse{Equipment: out})
}

type roomRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Capacity     int      `json:"capacity" validate:"gte=1"`
	EquipmentIDs []string `json:"equipment_ids" validate:"omitempty,dive,required"`
}

func (r roomRequest) toInput() application.RoomInput {
	ids := make([]string, 0, len(r.EquipmentIDs))
	for _, id := range r.EquipmentIDs {
		ids = append(ids, strings.TrimSpace(id))
	}
	return application.RoomInput{
		Name:         strings.TrimSpace(r.Name),
		Capacity:     r.Capacity,
		EquipmentIDs: ids,
	}
}

type equipmentRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Capacity     int      `json:"capacity"`
	EquipmentIDs []string `json:"equipment_ids"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	ids := room.EquipmentIDs
	if ids == nil {
		ids = []string{}
	}
	return roomDTO{
		ID:           room.ID,
		Name:         room.Name,
		Capacity:     room.Capacity,
		EquipmentIDs: ids,
		CreatedAt:    room.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    room.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type equipmentResponse struct {
	Equipment equipmentDTO `json:"equipment"`
}

type listEquipmentResponse struct {
	Equipment []equipmentDTO `json:"equipment"`
}

type equipmentDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func toEquipmentDTO(e application.Equipment) equipmentDTO {
	return equipmentDTO{ID: e.ID, Name: e.Name, CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339)}
}
