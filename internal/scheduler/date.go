package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidDate is returned when a calendar date cannot be parsed.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidTime is returned when a time of day cannot be parsed.
	ErrInvalidTime = errors.New("scheduler: invalid time of day")
)

const dateLayout = "2006-01-02"

// Date is a calendar date without time zone information.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the supplied components into a valid calendar date.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls inside the range, both bounds included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Valid reports whether the range has both bounds and From is not after To.
func (r DateRange) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.After(r.To)
}

// MonthRange returns the first and last day of the given month.
func MonthRange(year int, month time.Month) DateRange {
	start := NewDate(year, month, 1)
	end := NewDate(year, month+1, 1).AddDays(-1)
	return DateRange{From: start, To: end}
}

// ParseMonth parses a YYYY-MM string into the range of that month.
func ParseMonth(value string) (DateRange, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: month %q", ErrInvalidDate, value)
	}
	return MonthRange(t.Year(), t.Month()), nil
}

// TimeOfDay is a wall clock time expressed as minutes since midnight.
// 24:00 is representable so a window may close at the end of the day.
type TimeOfDay int

const (
	// Midnight is the first minute of the day.
	Midnight TimeOfDay = 0
	// EndOfDay is the exclusive upper bound of a day.
	EndOfDay TimeOfDay = 24 * 60
)

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS. Seconds must be zero.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	nums := make([]int, len(parts))
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		nums[i] = n
	}

	if len(nums) == 3 && nums[2] != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	hour, minute := nums[0], nums[1]
	if minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return NewTimeOfDay(hour, minute), nil
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= Midnight && t <= EndOfDay
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Duration converts the time of day into an offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
