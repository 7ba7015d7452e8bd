package generic

import "time"

// =============================================================================
// PERIOD - Statement window
// =============================================================================

// Period bounds a statement. Both ends are inclusive; a zero Start or End
// leaves that side open.
//
// Examples:
//   - Financial year 2025-26: Apr 1 2025 - Mar 31 2026
//   - Month view: Jan 1 - Jan 31
type Period struct {
	Start time.Time
	End   time.Time
}

// DayPeriod returns the period covering whole days from..to (UTC).
func DayPeriod(from, to time.Time) Period {
	p := Period{}
	if !from.IsZero() {
		p.Start = StartOfDay(from)
	}
	if !to.IsZero() {
		p.End = EndOfDay(to)
	}
	return p
}

// Validate rejects a period whose end is before its start.
func (p Period) Validate() error {
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// IsOpen reports whether neither side is bounded.
func (p Period) IsOpen() bool { return p.Start.IsZero() && p.End.IsZero() }

// BeforeStart reports whether t falls before the period.
func (p Period) BeforeStart(t time.Time) bool { return !p.Start.IsZero() && t.Before(p.Start) }

// AfterEnd reports whether t falls after the period.
func (p Period) AfterEnd(t time.Time) bool { return !p.End.IsZero() && t.After(p.End) }

// Contains returns true if t is within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !p.BeforeStart(t) && !p.AfterEnd(t)
}

func (p Period) String() string {
	start, end := "…", "…"
	if !p.Start.IsZero() {
		start = p.Start.Format("2006-01-02")
	}
	if !p.End.IsZero() {
		end = p.End.Format("2006-01-02")
	}
	return "[" + start + ", " + end + "]"
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FinancialYear returns the April-March year containing t.
func FinancialYear(t time.Time) Period {
	t = t.UTC()
	year := t.Year()
	if t.Month() < time.April {
		year--
	}
	start := time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}
