package scheduler

import (
	"sort"
	"time"
)

// Window is a half-open interval [Start, End) within one day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether the window is non-empty and within the day.
func (w Window) Valid() bool {
	return w.Start.Valid() && w.End.Valid() && w.Start < w.End
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	if w.End <= w.Start {
		return 0
	}
	return (w.End - w.Start).Duration()
}

// Overlaps reports whether two windows share at least one minute.
// Windows that only touch at a boundary do not overlap.
func Overlaps(a, b Window) bool {
	return a.Start < b.End && b.Start < a.End
}

// Reservation is a window held by an existing booking.
type Reservation struct {
	ID     string
	Window Window
}

// FindConflict returns the earliest reservation overlapping candidate.
// The reservation whose ID equals excludeID is ignored, which lets a booking be
// re-validated against everything except itself.
func FindConflict(existing []Reservation, candidate Window, excludeID string) (Reservation, bool) {
	ordered := sortedReservations(existing)
	for _, reservation := range ordered {
		if excludeID != "" && reservation.ID == excludeID {
			continue
		}
		if Overlaps(reservation.Window, candidate) {
			return reservation, true
		}
	}
	return Reservation{}, false
}

// FindOverlappingPairs lists every pair of reservations that overlap each other.
// A valid set of approved bookings yields no pairs.
func FindOverlappingPairs(reservations []Reservation) [][2]Reservation {
	ordered := sortedReservations(reservations)
	var pairs [][2]Reservation
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].Window.Start >= ordered[i].Window.End {
				break
			}
			pairs = append(pairs, [2]Reservation{ordered[i], ordered[j]})
		}
	}
	return pairs
}

func sortedReservations(reservations []Reservation) []Reservation {
	ordered := make([]Reservation, len(reservations))
	copy(ordered, reservations)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Window.Start == ordered[j].Window.Start {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Window.Start < ordered[j].Window.Start
	})
	return ordered
}
