package alarming

import (
	"strconv"
	"strings"
	"time"
)

// nextRun computes the next occurrence of a 5-field cron expression strictly
// after from. The supported subset is exact minute+hour ("0 3 * * *") and
// "*/N" steps on the minute or hour field, where a bare "*" counts as a step
// of 1 ("15 * * * *" runs hourly at :15); day-of-month, month and day-of-week
// are accepted but ignored. Any other parsable pattern falls back to one hour
// from now. A wrong field count yields ok=false and the entry is skipped.
func nextRun(expr string, from time.Time) (next time.Time, ok bool) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return time.Time{}, false
	}
	minuteField, hourField := fields[0], fields[1]

	if step, isStep := parseStep(minuteField); isStep && hourField == "*" {
		return nextMinuteStep(from, step), true
	}

	minute, minuteExact := parseExact(minuteField, 59)
	if minuteExact {
		if hour, hourExact := parseExact(hourField, 23); hourExact {
			return nextDaily(from, hour, minute), true
		}
		if step, isStep := parseStep(hourField); isStep {
			return nextHourStep(from, step, minute), true
		}
		if hourField == "*" {
			// "M * * * *" runs every hour at minute M.
			return nextHourStep(from, 1, minute), true
		}
	}

	// Best-effort fallback for everything else.
	return from.Add(time.Hour), true
}

// parseExact parses a plain numeric field within [0, max].
func parseExact(field string, max int) (int, bool) {
	n, err := strconv.Atoi(field)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}

// parseStep parses a "*/N" field. "*" counts as a step of 1.
func parseStep(field string) (int, bool) {
	if field == "*" {
		return 1, true
	}
	rest, found := strings.CutPrefix(field, "*/")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > 59 {
		return 0, false
	}
	return n, true
}

// nextDaily returns the next occurrence of hour:minute strictly after from,
// rolling to the next day when already past.
func nextDaily(from time.Time, hour, minute int) time.Time {
	candidate := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// nextMinuteStep returns the next minute boundary that is a multiple of step,
// strictly after from. Steps that do not divide the hour restart at minute 0.
func nextMinuteStep(from time.Time, step int) time.Time {
	base := from.Truncate(time.Minute)
	minute := ((from.Minute() / step) + 1) * step
	if minute >= 60 {
		return base.Add(time.Duration(60-from.Minute()) * time.Minute)
	}
	return base.Add(time.Duration(minute-from.Minute()) * time.Minute)
}

// nextHourStep returns the next hour that is a multiple of step, at the given
// minute, strictly after from.
func nextHourStep(from time.Time, step, minute int) time.Time {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for hour := 0; hour <= 48; hour += step {
		candidate := day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		if candidate.After(from) {
			return candidate
		}
	}
	// Unreachable for valid steps; keep the fallback symmetric anyway.
	return from.Add(time.Hour)
}
