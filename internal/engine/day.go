package engine

import "time"

// Dates in the record store are epoch-day counts: whole days since
// 1970-01-01 in the local calendar, the same encoding as the stored
// startDateEpoch/endDateEpoch/lastDateReceivedEpoch columns. Using a
// day count instead of a timestamp makes the derived flags a pure
// function of (record, day) with no time-of-day component to reason
// about.

const daySeconds = 24 * 60 * 60

// EpochDay converts a wall-clock time to its epoch-day count using
// the time's own location. Two times on the same calendar day map to
// the same day count regardless of hour.
func EpochDay(t time.Time) int64 {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / daySeconds
}

// Today returns the current epoch-day count in local time.
func Today() int64 {
	return EpochDay(time.Now())
}

// FormatEpochDay renders a day count as an ISO date (2006-01-02).
func FormatEpochDay(d int64) string {
	return time.Unix(d*daySeconds, 0).UTC().Format("2006-01-02")
}
