package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

type bookingService interface {
	SubmitBooking(ctx context.Context, params application.SubmitBookingParams) (application.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	ApproveBooking(ctx context.Context, params application.ApproveBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, params application.CancelBookingParams) (application.Booking, error)
	GetBooking(ctx context.Context, actor policy.Actor, id string) (application.Booking, error)
}

type scheduleService interface {
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	ListDays(ctx context.Context, params application.ListBookingsParams) ([]application.DayBookings, error)
	Summarize(ctx context.Context, params application.ListBookingsParams) (application.BookingSummary, error)
}

// BookingHandler serves the booking lifecycle and the calendar views.
type BookingHandler struct {
	bookings  bookingService
	schedule  scheduleService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(bookings bookingService, schedule scheduleService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{bookings: bookings, schedule: schedule, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Submit handles POST /bookings.
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !h.responder.decode(w, r, &req) {
		return
	}

	booking, err := h.bookings.SubmitBooking(r.Context(), application.SubmitBookingParams{
		Actor: ActorFromContext(r.Context()),
		Draft: req.toDraft(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Submit", "booking_id", booking.ID).InfoContext(r.Context(), "booking submitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

// Get handles GET /bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.GetBooking(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// Update handles PUT /bookings/{id}.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !h.responder.decode(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	booking, err := h.bookings.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Actor:     ActorFromContext(r.Context()),
		BookingID: id,
		Draft:     req.toDraft(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Update", "booking_id", id).InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// Approve handles POST /bookings/{id}/approve.
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !h.responder.decodeOptional(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	booking, err := h.bookings.ApproveBooking(r.Context(), application.ApproveBookingParams{
		Actor:         ActorFromContext(r.Context()),
		BookingID:     id,
		AdminComments: req.AdminComments,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Approve", "booking_id", id).InfoContext(r.Context(), "booking approved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// Cancel handles POST /bookings/{id}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !h.responder.decodeOptional(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	booking, err := h.bookings.CancelBooking(r.Context(), application.CancelBookingParams{
		Actor:         ActorFromContext(r.Context()),
		BookingID:     id,
		AdminComments: req.AdminComments,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Cancel", "booking_id", id).InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

// List handles GET /bookings.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	bookings, err := h.schedule.ListBookings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

// Days handles GET /bookings/days.
func (h *BookingHandler) Days(w http.ResponseWriter, r *http.Request) {
	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	days, err := h.schedule.ListDays(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]dayDTO, 0, len(days))
	for _, day := range days {
		out = append(out, dayDTO{Date: day.Date.String(), Bookings: toBookingDTOs(day.Bookings)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDaysResponse{Days: out})
}

// Summary handles GET /bookings/summary.
func (h *BookingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	summary, err := h.schedule.Summarize(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summaryDTO{
		Total:         summary.Total,
		Pending:       summary.Pending,
		Approved:      summary.Approved,
		Cancelled:     summary.Cancelled,
		ApprovedToday: summary.ApprovedToday,
	})
}

func (h *BookingHandler) listParams(w http.ResponseWriter, r *http.Request) (application.ListBookingsParams, bool) {
	query := r.URL.Query()
	fields := map[string]string{}

	dateRange := parseRange(query, fields)
	ownerOnly := false
	if v := strings.TrimSpace(query.Get("mine")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			fields["mine"] = "must be true or false"
		}
		ownerOnly = parsed
	}
	if len(fields) > 0 {
		h.responder.writeValidation(r.Context(), w, fields)
		return application.ListBookingsParams{}, false
	}

	return application.ListBookingsParams{
		Actor:     ActorFromContext(r.Context()),
		Range:     dateRange,
		RoomID:    strings.TrimSpace(query.Get("room_id")),
		OwnerOnly: ownerOnly,
	}, true
}

// parseRange reads either month=YYYY-MM or from/to dates. A missing range is left zero
// for the service to reject.
func parseRange(query url.Values, fields map[string]string) scheduler.DateRange {
	if month := strings.TrimSpace(query.Get("month")); month != "" {
		r, err := scheduler.ParseMonth(month)
		if err != nil {
			fields["month"] = "must be a month in YYYY-MM format"
		}
		return r
	}

	var r scheduler.DateRange
	if from := strings.TrimSpace(query.Get("from")); from != "" {
		d, err := scheduler.ParseDate(from)
		if err != nil {
			fields["from"] = "must be a date in YYYY-MM-DD format"
		}
		r.From = d
	}
	if to := strings.TrimSpace(query.Get("to")); to != "" {
		d, err := scheduler.ParseDate(to)
		if err != nil {
			fields["to"] = "must be a date in YYYY-MM-DD format"
		}
		r.To = d
	}
	return r
}

type bookingRequest struct {
	RoomID           string `json:"room_id" validate:"required,max=64"`
	Date             string `json:"date" validate:"required,date"`
	StartTime        string `json:"start_time" validate:"required,clock"`
	EndTime          string `json:"end_time" validate:"required,clock"`
	Title            string `json:"title" validate:"max=200"`
	Purpose          string `json:"purpose" validate:"max=2000"`
	OfficerInCharge  string `json:"officer_in_charge" validate:"max=200"`
	Division         string `json:"division" validate:"max=200"`
	ParticipantCount int    `json:"participant_count" validate:"gte=0"`
	ContactEmail     string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone     string `json:"contact_phone" validate:"max=50"`
	EquipmentNeeded  string `json:"equipment_needed" validate:"max=2000"`
}

// toDraft assumes the request passed validation.
func (r bookingRequest) toDraft() application.BookingDraft {
	date, _ := scheduler.ParseDate(r.Date)
	start, _ := scheduler.ParseTimeOfDay(r.StartTime)
	end, _ := scheduler.ParseTimeOfDay(r.EndTime)
	return application.BookingDraft{
		RoomID:    strings.TrimSpace(r.RoomID),
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Details: application.BookingDetails{
			Title:            strings.TrimSpace(r.Title),
			Purpose:          strings.TrimSpace(r.Purpose),
			OfficerInCharge:  strings.TrimSpace(r.OfficerInCharge),
			Division:         strings.TrimSpace(r.Division),
			ParticipantCount: r.ParticipantCount,
			ContactEmail:     strings.TrimSpace(r.ContactEmail),
			ContactPhone:     strings.TrimSpace(r.ContactPhone),
			EquipmentNeeded:  strings.TrimSpace(r.EquipmentNeeded),
		},
	}
}

type transitionRequest struct {
	AdminComments *string `json:"admin_comments" validate:"omitempty,max=2000"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type listDaysResponse struct {
	Days []dayDTO `json:"days"`
}

type dayDTO struct {
	Date     string       `json:"date"`
	Bookings []bookingDTO `json:"bookings"`
}

type summaryDTO struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	Approved      int `json:"approved"`
	Cancelled     int `json:"cancelled"`
	ApprovedToday int `json:"approved_today"`
}

type bookingDTO struct {
	ID               string             `json:"id"`
	RoomID           string             `json:"room_id"`
	UserID           string             `json:"user_id"`
	Date             string             `json:"date"`
	StartTime        string             `json:"start_time"`
	EndTime          string             `json:"end_time"`
	Status           string             `json:"status"`
	Title            string             `json:"title,omitempty"`
	Purpose          string             `json:"purpose,omitempty"`
	OfficerInCharge  string             `json:"officer_in_charge,omitempty"`
	Division         string             `json:"division,omitempty"`
	ParticipantCount int                `json:"participant_count"`
	ContactEmail     string             `json:"contact_email,omitempty"`
	ContactPhone     string             `json:"contact_phone,omitempty"`
	EquipmentNeeded  string             `json:"equipment_needed,omitempty"`
	AdminComments    string             `json:"admin_comments,omitempty"`
	CreatedAt        string             `json:"created_at"`
	UpdatedAt        string             `json:"updated_at"`
	Room             *roomSummaryDTO    `json:"room,omitempty"`
	Owner            *profileSummaryDTO `json:"owner,omitempty"`
}

type roomSummaryDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type profileSummaryDTO struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Division string `json:"division,omitempty"`
}

func toBookingDTO(b application.Booking) bookingDTO {
	dto := bookingDTO{
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
		CreatedAt:        b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        b.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if b.Room != nil {
		dto.Room = &roomSummaryDTO{ID: b.Room.ID, Name: b.Room.Name, Capacity: b.Room.Capacity}
	}
	if b.Owner != nil {
		dto.Owner = &profileSummaryDTO{ID: b.Owner.ID, FullName: b.Owner.FullName, Division: b.Owner.Division}
	}
	return dto
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	return out
}
