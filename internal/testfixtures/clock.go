package testfixtures

import (
	"strconv"
	"sync"
	"time"

	"github.com/example/room-booking/internal/scheduler"
)

// Clock is a settable time source for tests. Use NewClock.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc is the func handed to services. A nil clock reads the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today is the clock's UTC date.
func (c *Clock) Today() scheduler.Date {
	return scheduler.DateOf(c.Now())
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance adds d and returns the resulting instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Sequence hands out deterministic identifiers such as "bk-1", "bk-2".
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   uint64
}

// NewSequence returns a sequence using prefix, or "id" when prefix is empty.
func NewSequence(prefix string) *Sequence {
	if prefix == "" {
		prefix = "id"
	}
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.prefix + "-" + strconv.FormatUint(s.next, 10)
}

// Func is the ID generator handed to services.
func (s *Sequence) Func() func() string {
	if s == nil {
		return func() string { return "" }
	}
	return s.Next
}

// Reset restarts numbering at 1, switching to prefix when it is non-empty.
func (s *Sequence) Reset(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefix != "" {
		s.prefix = prefix
	}
	s.next = 0
}
