package reconcile

import (
	"time"
)

// =============================================================================
// DAY - Calendar-day time abstraction (the engine only reasons in whole days)
// =============================================================================

// Day is a calendar day, normalized to midnight UTC. All constructors
// normalize, so Day values are safe to use as map keys and compare with ==.
type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() Day {
	return DayOf(time.Now().UTC())
}

// Yesterday is the default reporting cutoff: only completed days are
// reconciled, so an in-progress day never shows up as unexplained.
func Yesterday() Day {
	return Today().AddDays(-1)
}

// ParseDay parses an ISO date (YYYY-MM-DD).
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// Comparison
func (d Day) Before(other Day) bool        { return d.Time.Before(other.Time) }
func (d Day) Equal(other Day) bool         { return d.Time.Equal(other.Time) }
func (d Day) After(other Day) bool         { return d.Time.After(other.Time) }
func (d Day) BeforeOrEqual(other Day) bool { return d.Before(other) || d.Equal(other) }
func (d Day) AfterOrEqual(other Day) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Day) AddDays(n int) Day { return DayOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Day) Year() int         { return d.Time.Year() }
func (d Day) Month() time.Month { return d.Time.Month() }
func (d Day) DayOfMonth() int   { return d.Time.Day() }
func (d Day) IsZero() bool      { return d.Time.IsZero() }

func (d Day) String() string { return d.Time.Format("2006-01-02") }

// MinDay returns the earlier of two days.
func MinDay(a, b Day) Day {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// MONTH BOUNDARIES
// =============================================================================

func StartOfMonth(d Day) Day { return NewDay(d.Year(), d.Month(), 1) }

func EndOfMonth(d Day) Day {
	t := time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return DayOf(t)
}
