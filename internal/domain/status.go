package domain

import "time"

// DeriveStatus returns the status a client should carry at now. Calendar days
// are compared in now's location.
func DeriveStatus(dueAt *time.Time, current ClientStatus, now time.Time) ClientStatus {
	if current.Sticky() {
		return current
	}
	if dueAt == nil || dueAt.IsZero() {
		return StatusPending
	}

	due := startOfDay(dueAt.In(now.Location()))
	today := startOfDay(now)

	switch {
	case due.Before(today):
		return StatusOverdue
	case due.Equal(today):
		return StatusDueToday
	default:
		return StatusPending
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
