package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/scheduler"
)

type availabilityEngine interface {
	Conflict(ctx context.Context, query application.AvailabilityQuery) (*application.Booking, error)
	FreeSlots(ctx context.Context, query application.FreeSlotsQuery) ([]scheduler.Window, error)
}

// AvailabilityHandler answers slot checks and free-slot listings.
type AvailabilityHandler struct {
	engine    availabilityEngine
	opening   scheduler.Window
	responder responder
}

// NewAvailabilityHandler builds a handler. A zero opening window falls back to the
// engine default.
func NewAvailabilityHandler(engine availabilityEngine, opening scheduler.Window, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine, opening: opening, responder: newResponder(logger)}
}

// Check handles GET /availability.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fields := map[string]string{}

	date := parseDateParam(query.Get("date"), "date", fields)
	start := parseClockParam(query.Get("start"), "start", fields)
	end := parseClockParam(query.Get("end"), "end", fields)
	if len(fields) > 0 {
		h.responder.writeValidation(r.Context(), w, fields)
		return
	}

	conflict, err := h.engine.Conflict(r.Context(), application.AvailabilityQuery{
		RoomID:           strings.TrimSpace(query.Get("room_id")),
		Date:             date,
		Start:            start,
		End:              end,
		ExcludeBookingID: strings.TrimSpace(query.Get("exclude_id")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := availabilityResponse{Available: conflict == nil}
	if conflict != nil {
		resp.ConflictingBookingID = conflict.ID
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// FreeSlots handles GET /rooms/{id}/free-slots.
func (h *AvailabilityHandler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fields := map[string]string{}

	date := parseDateParam(query.Get("date"), "date", fields)
	var minDuration time.Duration
	if v := strings.TrimSpace(query.Get("min_minutes")); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < 0 {
			fields["min_minutes"] = "must be a non-negative integer"
		}
		minDuration = time.Duration(minutes) * time.Minute
	}
	if len(fields) > 0 {
		h.responder.writeValidation(r.Context(), w, fields)
		return
	}

	roomID := r.PathValue("id")
	slots, err := h.engine.FreeSlots(r.Context(), application.FreeSlotsQuery{
		RoomID:      roomID,
		Date:        date,
		Opening:     h.opening,
		MinDuration: minDuration,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{Start: slot.Start.String(), End: slot.End.String()})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, freeSlotsResponse{RoomID: roomID, Date: date.String(), Slots: out})
}

// parseDateParam leaves a missing value zero for the service to report.
func parseDateParam(value, field string, fields map[string]string) scheduler.Date {
	value = strings.TrimSpace(value)
	if value == "" {
		return scheduler.Date{}
	}
	d, err := scheduler.ParseDate(value)
	if err != nil {
		fields[field] = "must be a date in YYYY-MM-DD format"
	}
	return d
}

func parseClockParam(value, field string, fields map[string]string) scheduler.TimeOfDay {
	value = strings.TrimSpace(value)
	if value == "" {
		fields[field] = "is required"
		return 0
	}
	t, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		fields[field] = "must be a time in HH:MM format"
	}
	return t
}

type availabilityResponse struct {
	Available            bool   `json:"available"`
	ConflictingBookingID string `json:"conflicting_booking_id,omitempty"`
}

type freeSlotsResponse struct {
	RoomID string    `json:"room_id"`
	Date   string    `json:"date"`
	Slots  []slotDTO `json:"slots"`
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
