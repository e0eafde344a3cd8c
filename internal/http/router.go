package http

import (
	"net/http"
)

type RouterConfig struct {
	Bookings     *BookingHandler
	Availability *AvailabilityHandler
	Rooms        *RoomHandler
	Profiles     *ProfileHandler
	// Middleware wraps the mux. The first entry is the outermost.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if b := cfg.Bookings; b != nil {
		mux.HandleFunc("POST /bookings", b.Submit)
		mux.HandleFunc("GET /bookings", b.List)
		mux.HandleFunc("GET /bookings/days", b.Days)
		mux.HandleFunc("GET /bookings/summary", b.Summary)
		mux.HandleFunc("GET /bookings/{id}", b.Get)
		mux.HandleFunc("PUT /bookings/{id}", b.Update)
		mux.HandleFunc("POST /bookings/{id}/approve", b.Approve)
		mux.HandleFunc("POST /bookings/{id}/cancel", b.Cancel)
	}

	if a := cfg.Availability; a != nil {
		mux.HandleFunc("GET /availability", a.Check)
		mux.HandleFunc("GET /rooms/{id}/free-slots", a.FreeSlots)
	}

	if rooms := cfg.Rooms; rooms != nil {
		mux.HandleFunc("GET /rooms", rooms.List)
		mux.HandleFunc("POST /rooms", rooms.Create)
		mux.HandleFunc("GET /rooms/{id}", rooms.Get)
		mux.HandleFunc("GET /equipment", rooms.ListEquipment)
		mux.HandleFunc("POST /equipment", rooms.CreateEquipment)
	}

	if p := cfg.Profiles; p != nil {
		mux.HandleFunc("GET /profiles/me", p.Me)
		mux.HandleFunc("POST /profiles/me", p.Register)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
