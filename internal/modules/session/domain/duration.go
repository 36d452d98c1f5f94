package domain

import "time"

// ElapsedSince is the wall-clock delta from lastUpdated to now. Clock skew
// that puts now before lastUpdated yields zero.
func ElapsedSince(lastUpdated, now time.Time) time.Duration {
	d := now.Sub(lastUpdated)
	if d < 0 {
		return 0
	}
	return d
}

// Advance adds the time since LastUpdated to Duration and moves LastUpdated
// to now.
func Advance(s StudySession, now time.Time) StudySession {
	s.Duration += ElapsedSince(s.LastUpdated, now).Seconds()
	s.LastUpdated = now
	return s
}
