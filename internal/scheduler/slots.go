package scheduler

import (
	"sort"
	"time"
)

// DefaultOpeningHours is used when a caller does not configure business hours.
var DefaultOpeningHours = Window{Start: NewTimeOfDay(8, 0), End: NewTimeOfDay(18, 0)}

// FreeSlots returns the gaps inside opening that no busy window covers.
// Gaps shorter than minDuration are dropped; a zero minDuration keeps every gap.
func FreeSlots(busy []Window, opening Window, minDuration time.Duration) []Window {
	if !opening.Valid() {
		return nil
	}

	merged := mergeWindows(busy)
	free := make([]Window, 0, len(merged)+1)
	cursor := opening.Start

	for _, w := range merged {
		if w.End <= cursor {
			continue
		}
		if w.Start >= opening.End {
			break
		}
		if w.Start > cursor {
			free = appendSlot(free, Window{Start: cursor, End: w.Start}, minDuration)
		}
		if w.End > cursor {
			cursor = w.End
		}
	}
	if cursor < opening.End {
		free = appendSlot(free, Window{Start: cursor, End: opening.End}, minDuration)
	}
	return free
}

func appendSlot(slots []Window, w Window, minDuration time.Duration) []Window {
	if w.Duration() < minDuration || w.Duration() == 0 {
		return slots
	}
	return append(slots, w)
}

// mergeWindows collapses overlapping or adjacent windows.
func mergeWindows(windows []Window) []Window {
	if len(windows) == 0 {
		return nil
	}
	ordered := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Valid() {
			ordered = append(ordered, w)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var merged []Window
	for _, w := range ordered {
		if n := len(merged); n > 0 && w.Start <= merged[n-1].End {
			if w.End > merged[n-1].End {
				merged[n-1].End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
