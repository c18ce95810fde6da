package resources

import "time"

// Schedule status of time-boxed entities.
const (
	StatusInactive  = "inactive"
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusExpired   = "expired"
)

// ScheduleStatus judges a start/end window at now. A zero end never expires.
func ScheduleStatus(now time.Time, active bool, startsAt, endsAt time.Time) string {
	switch {
	case !active:
		return StatusInactive
	case !startsAt.IsZero() && now.Before(startsAt):
		return StatusScheduled
	case !endsAt.IsZero() && !now.Before(endsAt):
		return StatusExpired
	default:
		return StatusActive
	}
}
