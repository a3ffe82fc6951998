// Package testutil provides deterministic helpers for tests.
package testutil

import "sync"

// SimulatedDay is a thread-safe simulated calendar for tests.
//
// Production code reads the current epoch-day from the wall clock;
// tests inject sim.Day as the repository's day source and advance the
// calendar explicitly, so scenarios like "the window expires
// overnight" run instantly and reproducibly.
type SimulatedDay struct {
	mu  sync.Mutex
	day int64
}

// NewSimulatedDay creates a simulated calendar positioned at the
// given epoch-day.
func NewSimulatedDay(day int64) *SimulatedDay {
	return &SimulatedDay{day: day}
}

// Day returns the current simulated epoch-day.
func (s *SimulatedDay) Day() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Advance moves the calendar forward by n days and returns the new
// day. Negative n moves it backward; the calendar takes no position
// on clock skew.
func (s *SimulatedDay) Advance(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day += n
	return s.day
}

// Set positions the calendar at an absolute day.
func (s *SimulatedDay) Set(day int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = day
}
