package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubBookingService struct {
	submitted application.SubmitBookingParams
	approved  application.ApproveBookingParams
	cancelled application.CancelBookingParams
	updated   application.UpdateBookingParams
	booking   application.Booking
	err       error
}

func (s *stubBookingService) SubmitBooking(_ context.Context, params application.SubmitBookingParams) (application.Booking, error) {
	s.submitted = params
	return s.booking, s.err
}

func (s *stubBookingService) UpdateBooking(_ context.Context, params application.UpdateBookingParams) (application.Booking, error) {
	s.updated = params
	return s.booking, s.err
}

func (s *stubBookingService) ApproveBooking(_ context.Context, params application.ApproveBookingParams) (application.Booking, error) {
	s.approved = params
	return s.booking, s.err
}

func (s *stubBookingService) CancelBooking(_ context.Context, params application.CancelBookingParams) (application.Booking, error) {
	s.cancelled = params
	return s.booking, s.err
}

func (s *stubBookingService) GetBooking(_ context.Context, _ policy.Actor, id string) (application.Booking, error) {
	if s.err != nil {
		return application.Booking{}, s.err
	}
	b := s.booking
	b.ID = id
	return b, nil
}

type stubScheduleService struct {
	params   application.ListBookingsParams
	bookings []application.Booking
	err      error
}

func (s *stubScheduleService) ListBookings(_ context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
	s.params = params
	return s.bookings, s.err
}

func (s *stubScheduleService) ListDays(_ context.Context, params application.ListBookingsParams) ([]application.DayBookings, error) {
	s.params = params
	return application.GroupByDay(s.bookings), s.err
}

func (s *stubScheduleService) Summarize(_ context.Context, params application.ListBookingsParams) (application.BookingSummary, error) {
	s.params = params
	return application.BookingSummary{Total: len(s.bookings), Pending: len(s.bookings)}, s.err
}

type stubEngine struct {
	query     application.AvailabilityQuery
	slotQuery application.FreeSlotsQuery
	conflict  *application.Booking
	slots     []scheduler.Window
	err       error
}

func (s *stubEngine) Conflict(_ context.Context, query application.AvailabilityQuery) (*application.Booking, error) {
	s.query = query
	return s.conflict, s.err
}

func (s *stubEngine) FreeSlots(_ context.Context, query application.FreeSlotsQuery) ([]scheduler.Window, error) {
	s.slotQuery = query
	return s.slots, s.err
}

type stubVerifier struct {
	actor policy.Actor
	err   error
}

func (s stubVerifier) Verify(string) (policy.Actor, error) { return s.actor, s.err }

var (
	userActor  = policy.Actor{ID: "user-1", Role: policy.RoleUser}
	adminActor = policy.Actor{ID: "admin-1", Role: policy.RoleAdmin}
)

func sampleBooking() application.Booking {
	return application.Booking{
		ID:        "bk-1",
		RoomID:    "room-a",
		UserID:    "user-1",
		Date:      scheduler.NewDate(2024, time.May, 10),
		StartTime: scheduler.NewTimeOfDay(9, 0),
		EndTime:   scheduler.NewTimeOfDay(10, 30),
		Status:    application.StatusPending,
		Details:   application.BookingDetails{Title: "Standup", ParticipantCount: 4},
		CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Room:      &application.RoomSummary{ID: "room-a", Name: "Aurora", Capacity: 8},
	}
}

func newBookingRouter(bookings *stubBookingService, schedule *stubScheduleService, actor policy.Actor) http.Handler {
	return NewRouter(RouterConfig{
		Bookings: NewBookingHandler(bookings, schedule, discardLogger),
		Middleware: []func(http.Handler) http.Handler{
			RequestLogger(discardLogger),
			Authenticate(stubVerifier{actor: actor}, discardLogger),
		},
	})
}

func serve(t *testing.T, handler http.Handler, method, target, body string, withToken bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if withToken {
		req.Header.Set("Authorization", "Bearer token")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestBookingHandler_Submit(t *testing.T) {
	t.Parallel()

	t.Run("passes the parsed draft and actor to the service", func(t *testing.T) {
		t.Parallel()
		bookings := &stubBookingService{booking: sampleBooking()}
		router := newBookingRouter(bookings, &stubScheduleService{}, userActor)

		rec := serve(t, router, http.MethodPost, "/bookings", `{
			"room_id": "room-a", "date": "2024-05-10", "start_time": "09:00", "end_time": "10:30",
			"title": " Standup ", "participant_count": 4, "contact_email": "a@example.com"
		}`, true)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if bookings.submitted.Actor != userActor {
			t.Fatalf("expected actor %+v, got %+v", userActor, bookings.submitted.Actor)
		}
		draft := bookings.submitted.Draft
		if draft.Date != scheduler.NewDate(2024, time.May, 10) || draft.StartTime != scheduler.NewTimeOfDay(9, 0) {
			t.Fatalf("unexpected draft %+v", draft)
		}
		if draft.Details.Title != "Standup" {
			t.Fatalf("expected trimmed title, got %q", draft.Details.Title)
		}

		resp := decodeBody[bookingResponse](t, rec)
		if resp.Booking.StartTime != "09:00" || resp.Booking.EndTime != "10:30" || resp.Booking.Room == nil {
			t.Fatalf("unexpected response %+v", resp.Booking)
		}
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Fatalf("expected a request id header")
		}
	})

	t.Run("rejects malformed fields before calling the service", func(t *testing.T) {
		t.Parallel()
		bookings := &stubBookingService{}
		router := newBookingRouter(bookings, &stubScheduleService{}, userActor)

		rec := serve(t, router, http.MethodPost, "/bookings", `{
			"room_id": "room-a", "date": "10/05/2024", "start_time": "9am", "end_time": "10:30",
			"contact_email": "nope"
		}`, true)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		for _, field := range []string{"date", "start_time", "contact_email"} {
			if _, ok := resp.Errors[field]; !ok {
				t.Fatalf("expected an error for %s, got %v", field, resp.Errors)
			}
		}
		if bookings.submitted.Draft.RoomID != "" {
			t.Fatalf("service should not be called")
		}
	})

	t.Run("rejects unknown body fields", func(t *testing.T) {
		t.Parallel()
		router := newBookingRouter(&stubBookingService{}, &stubScheduleService{}, userActor)
		rec := serve(t, router, http.MethodPost, "/bookings", `{"room":"x"}`, true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &application.ValidationError{FieldErrors: map[string]string{"date": "date cannot be in the past"}}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"anonymous", &application.ForbiddenError{Action: policy.ActionApprove, Anonymous: true}, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"forbidden", &application.ForbiddenError{Action: policy.ActionApprove}, http.StatusForbidden, "AUTH_FORBIDDEN"},
		{"not found", application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid state", &application.InvalidStateError{BookingID: "bk-1", Status: application.StatusCancelled, Action: policy.ActionApprove}, http.StatusConflict, "INVALID_STATE"},
		{"conflict", &application.ConflictError{BookingID: "bk-1", ConflictingBookingID: "bk-0"}, http.StatusConflict, "BOOKING_CONFLICT"},
		{"store", &application.StoreUnavailableError{Operation: "approve", Err: io.ErrUnexpectedEOF}, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"unexpected", io.ErrClosedPipe, http.StatusInternalServerError, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := newBookingRouter(&stubBookingService{err: tc.err}, &stubScheduleService{}, adminActor)

			rec := serve(t, router, http.MethodPost, "/bookings/bk-1/approve", "", true)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeBody[errorResponse](t, rec)
			if resp.ErrorCode != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, resp.ErrorCode)
			}
			if tc.wantCode == "BOOKING_CONFLICT" && resp.ConflictingBookingID != "bk-0" {
				t.Fatalf("expected conflicting booking id, got %+v", resp)
			}
		})
	}
}

func TestBookingHandler_Transitions(t *testing.T) {
	t.Parallel()

	bookings := &stubBookingService{booking: sampleBooking()}
	router := newBookingRouter(bookings, &stubScheduleService{}, adminActor)

	rec := serve(t, router, http.MethodPost, "/bookings/bk-7/approve", `{"admin_comments":"ok"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d", rec.Code)
	}
	if bookings.approved.BookingID != "bk-7" || bookings.approved.AdminComments == nil || *bookings.approved.AdminComments != "ok" {
		t.Fatalf("unexpected approve params %+v", bookings.approved)
	}

	rec = serve(t, router, http.MethodPost, "/bookings/bk-8/cancel", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}
	if bookings.cancelled.BookingID != "bk-8" || bookings.cancelled.AdminComments != nil {
		t.Fatalf("unexpected cancel params %+v", bookings.cancelled)
	}

	rec = serve(t, router, http.MethodPut, "/bookings/bk-9", `{"room_id":"room-b","date":"2024-05-11","start_time":"13:00","end_time":"14:00"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if bookings.updated.BookingID != "bk-9" || bookings.updated.Draft.RoomID != "room-b" {
		t.Fatalf("unexpected update params %+v", bookings.updated)
	}

	rec = serve(t, router, http.MethodGet, "/bookings/bk-3", "", true)
	if got := decodeBody[bookingResponse](t, rec); got.Booking.ID != "bk-3" {
		t.Fatalf("expected booking bk-3, got %+v", got.Booking)
	}

	rec = serve(t, router, http.MethodDelete, "/bookings/bk-3", "", true)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestBookingHandler_TransitionBodies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   io.Reader
		length int64
		want   int
	}{
		{name: "no body", body: nil, length: 0, want: http.StatusOK},
		{name: "empty chunked body", body: strings.NewReader(""), length: -1, want: http.StatusOK},
		{name: "whitespace only", body: strings.NewReader(" \n"), length: -1, want: http.StatusOK},
		{name: "malformed json", body: strings.NewReader("{"), length: -1, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			bookings := &stubBookingService{booking: sampleBooking()}
			router := newBookingRouter(bookings, &stubScheduleService{}, adminActor)

			req := httptest.NewRequest(http.MethodPost, "/bookings/bk-8/cancel", tc.body)
			req.ContentLength = tc.length
			if tc.length < 0 {
				req.TransferEncoding = []string{"chunked"}
			}
			req.Header.Set("Authorization", "Bearer token")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.want == http.StatusOK && (bookings.cancelled.BookingID != "bk-8" || bookings.cancelled.AdminComments != nil) {
				t.Fatalf("unexpected cancel params %+v", bookings.cancelled)
			}
		})
	}
}

func TestBookingHandler_ListQueries(t *testing.T) {
	t.Parallel()

	t.Run("month range with room and owner filters", func(t *testing.T) {
		t.Parallel()
		schedule := &stubScheduleService{bookings: []application.Booking{sampleBooking()}}
		router := newBookingRouter(&stubBookingService{}, schedule, userActor)

		rec := serve(t, router, http.MethodGet, "/bookings?month=2024-05&room_id=room-a&mine=true", "", true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if schedule.params.Range != scheduler.MonthRange(2024, time.May) {
			t.Fatalf("unexpected range %+v", schedule.params.Range)
		}
		if schedule.params.RoomID != "room-a" || !schedule.params.OwnerOnly || schedule.params.Actor != userActor {
			t.Fatalf("unexpected params %+v", schedule.params)
		}
		if got := decodeBody[listBookingsResponse](t, rec); len(got.Bookings) != 1 {
			t.Fatalf("expected one booking, got %d", len(got.Bookings))
		}
	})

	t.Run("explicit from and to", func(t *testing.T) {
		t.Parallel()
		schedule := &stubScheduleService{}
		router := newBookingRouter(&stubBookingService{}, schedule, userActor)

		rec := serve(t, router, http.MethodGet, "/bookings?from=2024-05-01&to=2024-05-07", "", false)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		want := scheduler.DateRange{From: scheduler.NewDate(2024, time.May, 1), To: scheduler.NewDate(2024, time.May, 7)}
		if schedule.params.Range != want {
			t.Fatalf("expected %+v, got %+v", want, schedule.params.Range)
		}
		if !schedule.params.Actor.IsAnonymous() {
			t.Fatalf("requests without a token should run as anonymous")
		}
		if got := decodeBody[listBookingsResponse](t, rec); got.Bookings == nil {
			t.Fatalf("expected an empty array rather than null")
		}
	})

	t.Run("malformed query values", func(t *testing.T) {
		t.Parallel()
		router := newBookingRouter(&stubBookingService{}, &stubScheduleService{}, userActor)

		rec := serve(t, router, http.MethodGet, "/bookings?month=May&mine=maybe", "", true)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.Errors["month"] == "" || resp.Errors["mine"] == "" {
			t.Fatalf("expected month and mine errors, got %v", resp.Errors)
		}
	})

	t.Run("days and summary", func(t *testing.T) {
		t.Parallel()
		second := sampleBooking()
		second.ID = "bk-2"
		second.Date = scheduler.NewDate(2024, time.May, 12)
		schedule := &stubScheduleService{bookings: []application.Booking{sampleBooking(), second}}
		router := newBookingRouter(&stubBookingService{}, schedule, userActor)

		rec := serve(t, router, http.MethodGet, "/bookings/days?month=2024-05", "", true)
		days := decodeBody[listDaysResponse](t, rec)
		if len(days.Days) != 2 || days.Days[0].Date != "2024-05-10" || days.Days[1].Date != "2024-05-12" {
			t.Fatalf("unexpected days %+v", days.Days)
		}

		rec = serve(t, router, http.MethodGet, "/bookings/summary?month=2024-05", "", true)
		summary := decodeBody[summaryDTO](t, rec)
		if summary.Total != 2 || summary.Pending != 2 {
			t.Fatalf("unexpected summary %+v", summary)
		}
	})
}

func TestAvailabilityHandler(t *testing.T) {
	t.Parallel()

	opening := scheduler.Window{Start: scheduler.NewTimeOfDay(9, 0), End: scheduler.NewTimeOfDay(17, 0)}

	t.Run("reports the conflicting booking", func(t *testing.T) {
		t.Parallel()
		engine := &stubEngine{conflict: &application.Booking{ID: "bk-0"}}
		router := NewRouter(RouterConfig{Availability: NewAvailabilityHandler(engine, opening, discardLogger)})

		rec := serve(t, router, http.MethodGet, "/availability?room_id=room-a&date=2024-05-10&start=09:00&end=10:00&exclude_id=bk-5", "", false)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[availabilityResponse](t, rec)
		if resp.Available || resp.ConflictingBookingID != "bk-0" {
			t.Fatalf("unexpected response %+v", resp)
		}
		if engine.query.ExcludeBookingID != "bk-5" || engine.query.End != scheduler.NewTimeOfDay(10, 0) {
			t.Fatalf("unexpected query %+v", engine.query)
		}
	})

	t.Run("requires start and end", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{Availability: NewAvailabilityHandler(&stubEngine{}, opening, discardLogger)})

		rec := serve(t, router, http.MethodGet, "/availability?room_id=room-a&date=2024-05-10", "", false)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("free slots use the configured opening hours", func(t *testing.T) {
		t.Parallel()
		engine := &stubEngine{slots: []scheduler.Window{
			{Start: scheduler.NewTimeOfDay(9, 0), End: scheduler.NewTimeOfDay(11, 0)},
			{Start: scheduler.NewTimeOfDay(15, 0), End: scheduler.NewTimeOfDay(17, 0)},
		}}
		router := NewRouter(RouterConfig{Availability: NewAvailabilityHandler(engine, opening, discardLogger)})

		rec := serve(t, router, http.MethodGet, "/rooms/room-a/free-slots?date=2024-05-10&min_minutes=30", "", false)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if engine.slotQuery.RoomID != "room-a" || engine.slotQuery.Opening != opening || engine.slotQuery.MinDuration != 30*time.Minute {
			t.Fatalf("unexpected query %+v", engine.slotQuery)
		}
		resp := decodeBody[freeSlotsResponse](t, rec)
		if len(resp.Slots) != 2 || resp.Slots[1].Start != "15:00" {
			t.Fatalf("unexpected slots %+v", resp.Slots)
		}
	})
}
