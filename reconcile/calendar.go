package reconcile

// =============================================================================
// CHARGEABLE CALENDAR - Which days the organization expects hours against
// =============================================================================

// Calendar answers "must this day be charged against". The calendar source
// is optional: when absent, every day is treated as chargeable (fail-open),
// and the non-chargeable rule never fires.
type Calendar struct {
	chargeable map[Day]bool
	present    bool
}

// NewCalendar builds a calendar from explicit per-day flags.
func NewCalendar(days map[Day]bool) Calendar {
	c := Calendar{chargeable: make(map[Day]bool, len(days)), present: true}
	for d, v := range days {
		c.chargeable[d] = v
	}
	return c
}

// NoCalendar is the absent-source calendar.
func NoCalendar() Calendar { return Calendar{} }

// Present reports whether a calendar source exists.
func (c Calendar) Present() bool { return c.present }

// IsChargeable returns true if the day must be charged against.
// Days missing from a present calendar are not chargeable.
func (c Calendar) IsChargeable(d Day) bool {
	if !c.present {
		return true
	}
	return c.chargeable[d]
}
