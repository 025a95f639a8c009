// Package retention decides when archived records become removable. Every
// function is pure: the clock is an argument, never read from the system.
package retention

import "time"

// Eligible reports whether a record archived at archivedAt may be removed
// under the given retention period. The boundary is inclusive: a record
// whose period elapses exactly now is eligible. A zero or negative period
// means the record is removable immediately.
func Eligible(archivedAt time.Time, period time.Duration, now time.Time) bool {
	if period <= 0 {
		return true
	}
	return now.Sub(archivedAt) >= period
}

// Remaining returns how much protection time is left, or zero once the
// record is eligible.
func Remaining(archivedAt time.Time, period time.Duration, now time.Time) time.Duration {
	if Eligible(archivedAt, period, now) {
		return 0
	}
	return period - now.Sub(archivedAt)
}

// Deadline returns the instant at which the record becomes eligible.
func Deadline(archivedAt time.Time, period time.Duration) time.Time {
	return archivedAt.Add(period)
}
