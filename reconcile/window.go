package reconcile

// =============================================================================
// COVERAGE WINDOW - Which days the grid reports on
// =============================================================================

// Window is the inclusive range of days one reconciliation run covers.
type Window struct {
	Start Day
	End   Day
}

// Contains returns true if the day falls within [Start, End].
func (w Window) Contains(d Day) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Days enumerates every day in the window in order.
func (w Window) Days() []Day {
	var days []Day
	for cur := w.Start; cur.BeforeOrEqual(w.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// CoverageWindow derives the reporting window from aggregated totals:
// the first day of the month containing the earliest observed work date,
// through min(last day of that month, cutoff). The cutoff bounds reporting
// to completed days (Yesterday by default), so an in-progress day never
// surfaces as a false anomaly.
func CoverageWindow(totals map[GridKey]DailyTotal, cutoff Day) (Window, error) {
	var earliest Day
	for key := range totals {
		if earliest.IsZero() || key.Date.Before(earliest) {
			earliest = key.Date
		}
	}
	if earliest.IsZero() {
		return Window{}, ErrEmptyWindow
	}

	return Window{
		Start: StartOfMonth(earliest),
		End:   MinDay(EndOfMonth(earliest), cutoff),
	}, nil
}
