package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/policy"
	"github.com/example/room-booking/internal/scheduler"
)

// maxScopeAttempts bounds how often a transition restarts when the booking moved to
// another room/day between the unlocked read and the locked re-read.
const maxScopeAttempts = 3

var errScopeMoved = errors.New("booking moved to another room or date")

// BookingServiceDeps lists the collaborators of BookingService.
type BookingServiceDeps struct {
	Bookings   BookingRepository
	Transactor BookingTransactor
	Rooms      RoomCatalog
	Profiles   ProfileDirectory
	// Locker is optional. When set, approvals and edits also hold its key for the room/day.
	Locker      ApprovalLocker
	IDGenerator func() string
	Now         func() time.Time
	// Location decides which calendar day "today" is. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// BookingService owns the booking lifecycle: submit, approve, cancel and edit.
type BookingService struct {
	bookings    BookingRepository
	transactor  BookingTransactor
	rooms       RoomCatalog
	profiles    ProfileDirectory
	locker      ApprovalLocker
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger

	// serial stands in for the store transaction when no transactor is configured.
	serial sync.Mutex
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	idGenerator := deps.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		bookings:    deps.Bookings,
		transactor:  deps.Transactor,
		rooms:       deps.Rooms,
		profiles:    deps.Profiles,
		locker:      deps.Locker,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// SubmitBooking validates a draft and stores it as a pending request owned by the actor.
// Availability is not consulted; only approval reserves the room.
func (s *BookingService) SubmitBooking(ctx context.Context, params SubmitBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SubmitBooking",
		"actor_id", params.Actor.ID,
		"room_id", params.Draft.RoomID,
		"date", params.Draft.Date.String(),
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to submit booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking submitted")
	}()

	if !policy.CanPerform(params.Actor, policy.ActionSubmit, nil) {
		err = forbidden(params.Actor, policy.ActionSubmit)
		return
	}

	var room Room
	room, err = s.validateDraft(ctx, params.Draft)
	if err != nil {
		return
	}

	var owner *ProfileSummary
	owner, err = s.requireOwner(ctx, params.Actor.ID)
	if err != nil {
		return
	}

	now := s.now()
	draft := params.Draft
	booking = Booking{
		ID:        s.idGenerator(),
		RoomID:    strings.TrimSpace(draft.RoomID),
		UserID:    params.Actor.ID,
		Date:      draft.Date,
		StartTime: draft.StartTime,
		EndTime:   draft.EndTime,
		Status:    StatusPending,
		Details:   draft.Details,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var persisted Booking
	persisted, err = s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		err = mapRepoError("create booking", err)
		return
	}

	booking = persisted
	booking.Room = room.Summary()
	booking.Owner = owner
	return
}

// ApproveBooking moves a pending booking to approved after re-checking, under the
// room/day scope, that no other approved booking overlaps it.
func (s *BookingService) ApproveBooking(ctx context.Context, params ApproveBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ApproveBooking",
		"actor_id", params.Actor.ID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to approve booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking approved", "room_id", booking.RoomID, "date", booking.Date.String())
	}()

	if !policy.CanPerform(params.Actor, policy.ActionApprove, nil) {
		err = forbidden(params.Actor, policy.ActionApprove)
		return
	}

	booking, err = s.transition(ctx, params.BookingID, func(ctx context.Context, current Booking) (scopedChange, error) {
		if current.Status != StatusPending {
			return scopedChange{}, &InvalidStateError{BookingID: current.ID, Status: current.Status, Action: policy.ActionApprove}
		}
		room, owner, err := s.summaries(ctx, current.RoomID, current.UserID)
		if err != nil {
			return scopedChange{}, err
		}
		return scopedChange{
			target: roomDayOf(current),
			room:   room,
			owner:  owner,
			apply: func(ctx context.Context, repo BookingRepository, locked Booking) (Booking, error) {
				if locked.Status != StatusPending {
					return Booking{}, &InvalidStateError{BookingID: locked.ID, Status: locked.Status, Action: policy.ActionApprove}
				}
				conflict, err := findConflict(ctx, repo, roomDayOf(locked), locked.Window(), locked.ID)
				if err != nil {
					return Booking{}, err
				}
				if conflict != nil {
					return Booking{}, &ConflictError{BookingID: locked.ID, ConflictingBookingID: conflict.ID}
				}
				locked.Status = StatusApproved
				if params.AdminComments != nil {
					locked.AdminComments = *params.AdminComments
				}
				locked.UpdatedAt = s.now()
				return repo.UpdateBooking(ctx, locked)
			},
		}, nil
	})
	return
}

// CancelBooking moves a pending or approved booking to the terminal cancelled state.
func (s *BookingService) CancelBooking(ctx context.Context, params CancelBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"actor_id", params.Actor.ID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	if params.Actor.IsAnonymous() {
		err = forbidden(params.Actor, policy.ActionCancel)
		return
	}

	booking, err = s.transition(ctx, params.BookingID, func(ctx context.Context, current Booking) (scopedChange, error) {
		if err := s.checkCancel(params.Actor, current); err != nil {
			return scopedChange{}, err
		}
		room, owner, err := s.summaries(ctx, current.RoomID, current.UserID)
		if err != nil {
			return scopedChange{}, err
		}
		return scopedChange{
			target: roomDayOf(current),
			room:   room,
			owner:  owner,
			apply: func(ctx context.Context, repo BookingRepository, locked Booking) (Booking, error) {
				if err := s.checkCancel(params.Actor, locked); err != nil {
					return Booking{}, err
				}
				locked.Status = StatusCancelled
				if params.AdminComments != nil && params.Actor.IsAdmin() {
					locked.AdminComments = *params.AdminComments
				}
				locked.UpdatedAt = s.now()
				return repo.UpdateBooking(ctx, locked)
			},
		}, nil
	})
	return
}

func (s *BookingService) checkCancel(actor policy.Actor, booking Booking) error {
	if !policy.CanPerform(actor, policy.ActionCancel, &policy.Target{OwnerID: booking.UserID}) {
		return forbidden(actor, policy.ActionCancel)
	}
	if booking.Status != StatusPending && booking.Status != StatusApproved {
		return &InvalidStateError{BookingID: booking.ID, Status: booking.Status, Action: policy.ActionCancel}
	}
	return nil
}

// UpdateBooking edits the room, date, window or details of a pending or approved booking.
// An approved booking keeps its status and must stay free of overlaps; only an
// administrator may move it.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"actor_id", params.Actor.ID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated", "room_id", booking.RoomID, "date", booking.Date.String())
	}()

	if params.Actor.IsAnonymous() {
		err = forbidden(params.Actor, policy.ActionEdit)
		return
	}

	var room Room
	room, err = s.validateDraft(ctx, params.Draft)
	if err != nil {
		return
	}

	draft := params.Draft
	draft.RoomID = strings.TrimSpace(draft.RoomID)
	target := RoomDay{RoomID: draft.RoomID, Date: draft.Date}

	booking, err = s.transition(ctx, params.BookingID, func(ctx context.Context, current Booking) (scopedChange, error) {
		if err := checkEdit(params.Actor, current, draft); err != nil {
			return scopedChange{}, err
		}
		_, owner, err := s.summaries(ctx, "", current.UserID)
		if err != nil {
			return scopedChange{}, err
		}
		return scopedChange{
			target: target,
			room:   room.Summary(),
			owner:  owner,
			apply: func(ctx context.Context, repo BookingRepository, locked Booking) (Booking, error) {
				if err := checkEdit(params.Actor, locked, draft); err != nil {
					return Booking{}, err
				}
				if locked.Status == StatusApproved {
					conflict, err := findConflict(ctx, repo, target, draft.Window(), locked.ID)
					if err != nil {
						return Booking{}, err
					}
					if conflict != nil {
						return Booking{}, &ConflictError{BookingID: locked.ID, ConflictingBookingID: conflict.ID}
					}
				}
				locked.RoomID = draft.RoomID
				locked.Date = draft.Date
				locked.StartTime = draft.StartTime
				locked.EndTime = draft.EndTime
				locked.Details = draft.Details
				locked.UpdatedAt = s.now()
				return repo.UpdateBooking(ctx, locked)
			},
		}, nil
	})
	return
}

// checkEdit gates an edit of booking into draft. Moving an approved booking to another
// room, date or window grants a new slot, so only actors who may approve can do it;
// owners may still change the descriptive fields.
func checkEdit(actor policy.Actor, booking Booking, draft BookingDraft) error {
	if !policy.CanPerform(actor, policy.ActionEdit, &policy.Target{OwnerID: booking.UserID}) {
		return forbidden(actor, policy.ActionEdit)
	}
	if booking.Status == StatusCancelled {
		return &InvalidStateError{BookingID: booking.ID, Status: booking.Status, Action: policy.ActionEdit}
	}
	if booking.Status == StatusApproved && movesSlot(booking, draft) &&
		!policy.CanPerform(actor, policy.ActionApprove, &policy.Target{OwnerID: booking.UserID}) {
		return forbidden(actor, policy.ActionApprove)
	}
	return nil
}

func movesSlot(booking Booking, draft BookingDraft) bool {
	return booking.RoomID != draft.RoomID ||
		booking.Date != draft.Date ||
		booking.StartTime != draft.StartTime ||
		booking.EndTime != draft.EndTime
}

// GetBooking returns one booking if the actor may see it. Hidden bookings are reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, actor policy.Actor, id string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		err = mapRepoError("get booking", err)
		s.loggerWith(ctx, "GetBooking", "booking_id", id).
			Log(ctx, logLevelFor(err), "failed to get booking", "error", err, "error_kind", ErrorKind(err))
		return Booking{}, err
	}
	if !policy.CanView(actor, string(booking.Status), booking.UserID) {
		return Booking{}, ErrNotFound
	}

	room, owner, err := s.summaries(ctx, booking.RoomID, booking.UserID)
	if err != nil {
		return Booking{}, err
	}
	booking.Room = room
	booking.Owner = owner
	return booking, nil
}

// scopedChange describes one locked read-check-write step of a transition.
type scopedChange struct {
	// target is the room/day whose approved bookings the change must respect.
	target RoomDay
	apply  func(ctx context.Context, repo BookingRepository, locked Booking) (Booking, error)
	room   *RoomSummary
	owner  *ProfileSummary
}

// transition reads the booking, lets prepare plan the change outside the store scope,
// then re-reads and applies it inside the room/day scope. Display summaries are gathered
// before the scope so nothing is read after the write commits.
func (s *BookingService) transition(ctx context.Context, id string, prepare func(ctx context.Context, current Booking) (scopedChange, error)) (Booking, error) {
	for attempt := 0; attempt < maxScopeAttempts; attempt++ {
		current, err := s.bookings.GetBooking(ctx, id)
		if err != nil {
			return Booking{}, mapRepoError("get booking", err)
		}

		change, err := prepare(ctx, current)
		if err != nil {
			return Booking{}, mapRepoError("prepare booking change", err)
		}

		source := roomDayOf(current)
		var result Booking
		err = s.withinRoomDay(ctx, change.target, source, func(ctx context.Context, repo BookingRepository) error {
			locked, err := repo.GetBooking(ctx, id)
			if err != nil {
				return err
			}
			if roomDayOf(locked) != source {
				return errScopeMoved
			}
			updated, err := change.apply(ctx, repo, locked)
			if err != nil {
				return err
			}
			result = updated
			return nil
		})
		if errors.Is(err, errScopeMoved) {
			continue
		}
		if err != nil {
			return Booking{}, mapRepoError("update booking", err)
		}

		result.Room = change.room
		result.Owner = change.owner
		return result, nil
	}
	return Booking{}, &StoreUnavailableError{Operation: "update booking", Err: errScopeMoved}
}

// withinRoomDay runs fn atomically for key. The approval locker, when configured, holds
// every distinct key in lexical order so two scopes never wait on each other in a cycle.
func (s *BookingService) withinRoomDay(ctx context.Context, key, related RoomDay, fn func(ctx context.Context, repo BookingRepository) error) error {
	if s.locker != nil {
		keys := []string{key.Key()}
		if related != key {
			keys = append(keys, related.Key())
		}
		sort.Strings(keys)
		for _, k := range keys {
			release, err := s.locker.Acquire(ctx, k)
			if err != nil {
				return &StoreUnavailableError{Operation: "acquire approval lock", Err: err}
			}
			defer release()
		}
	}

	if s.transactor == nil {
		s.serial.Lock()
		defer s.serial.Unlock()
		return fn(ctx, s.bookings)
	}
	return s.transactor.WithinRoomDay(ctx, key, fn)
}

func (s *BookingService) validateDraft(ctx context.Context, draft BookingDraft) (Room, error) {
	vErr := &ValidationError{}
	validateSlot(draft.RoomID, draft.Date, draft.Window(), vErr)
	if !draft.Date.IsZero() && draft.Date.Before(s.today()) {
		vErr.add("date", "date cannot be in the past")
	}
	if draft.Details.ParticipantCount < 0 {
		vErr.add("participant_count", "participant count cannot be negative")
	}
	if vErr.HasErrors() {
		return Room{}, vErr
	}

	if s.rooms == nil {
		return Room{ID: strings.TrimSpace(draft.RoomID)}, nil
	}
	room, err := s.rooms.GetRoom(ctx, strings.TrimSpace(draft.RoomID))
	if err != nil {
		if isNotFound(err) {
			vErr.add("room_id", "room does not exist")
			return Room{}, vErr
		}
		return Room{}, mapRepoError("get room", err)
	}
	if draft.Details.ParticipantCount > room.Capacity {
		vErr.add("participant_count", fmt.Sprintf("participant count exceeds room capacity of %d", room.Capacity))
		return Room{}, vErr
	}
	return room, nil
}

func (s *BookingService) requireOwner(ctx context.Context, userID string) (*ProfileSummary, error) {
	if s.profiles == nil {
		return nil, nil
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			vErr := &ValidationError{}
			vErr.add("user_id", "profile is not registered")
			return nil, vErr
		}
		return nil, mapRepoError("get profile", err)
	}
	return profile.Summary(), nil
}

// summaries loads the display summaries of a booking. Missing entities leave the summary nil.
func (s *BookingService) summaries(ctx context.Context, roomID, userID string) (*RoomSummary, *ProfileSummary, error) {
	var (
		room  *RoomSummary
		owner *ProfileSummary
	)
	if s.rooms != nil && roomID != "" {
		found, err := s.rooms.GetRoom(ctx, roomID)
		switch {
		case err == nil:
			room = found.Summary()
		case !isNotFound(err):
			return nil, nil, mapRepoError("get room", err)
		}
	}
	if s.profiles != nil && userID != "" {
		found, err := s.profiles.GetProfile(ctx, userID)
		switch {
		case err == nil:
			owner = found.Summary()
		case !isNotFound(err):
			return nil, nil, mapRepoError("get profile", err)
		}
	}
	return room, owner, nil
}

func (s *BookingService) today() scheduler.Date {
	return scheduler.DateOf(s.now().In(s.location))
}

func roomDayOf(b Booking) RoomDay {
	return RoomDay{RoomID: b.RoomID, Date: b.Date}
}
