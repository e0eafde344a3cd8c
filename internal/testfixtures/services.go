package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/application"
)

// ServiceFactory builds application services wired to a shared clock and ID sequence.
type ServiceFactory struct {
	Clock *Clock
	IDs   *Sequence
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory returns a factory starting at ReferenceTime with "id" identifiers.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDs == nil {
		factory.IDs = NewSequence("id")
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

func WithSequence(ids *Sequence) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.IDs = ids }
}

// BookingService builds a booking service. Unset IDGenerator and Now come from the factory.
func (f *ServiceFactory) BookingService(deps application.BookingServiceDeps) *application.BookingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDs.Func()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewBookingService(deps)
}

// HarnessBookingService builds a booking service over every collaborator h provides.
func (f *ServiceFactory) HarnessBookingService(h *Harness, locker application.ApprovalLocker, logger *slog.Logger) *application.BookingService {
	return f.BookingService(application.BookingServiceDeps{
		Bookings:   h.Entities,
		Transactor: h.Entities,
		Rooms:      h.Entities,
		Profiles:   h.Entities,
		Locker:     locker,
		Logger:     logger,
	})
}

func (f *ServiceFactory) ScheduleService(h *Harness, logger *slog.Logger) *application.ScheduleService {
	return application.NewScheduleServiceWithLogger(h.Entities, h.Entities, h.Entities, f.Clock.NowFunc(), time.UTC, logger)
}

func (f *ServiceFactory) RoomService(h *Harness, logger *slog.Logger) *application.RoomService {
	return application.NewRoomServiceWithLogger(h.Entities, f.IDs.Func(), f.Clock.NowFunc(), logger)
}

func (f *ServiceFactory) ProfileService(h *Harness, logger *slog.Logger) *application.ProfileService {
	return application.NewProfileServiceWithLogger(h.Entities, f.Clock.NowFunc(), logger)
}

func (f *ServiceFactory) AvailabilityEngine(h *Harness, logger *slog.Logger) *application.AvailabilityEngine {
	return application.NewAvailabilityEngineWithLogger(h.Entities, h.Entities, logger)
}
