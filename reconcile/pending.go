/*
pending.go - Pending-day detection

PURPOSE:
  A pending day is a chargeable day with no hours and no explaining status,
  still awaiting resolution. Logically this is "reached rule 7 with zero
  hours" filtered to chargeable days. It is computed here as a filter over
  the already-computed StatusRecords, so it agrees with the grid by
  construction: a cell the chain explained (justified, terminated, on leave,
  pre-admission) can never be pending.
*/
package reconcile

// PendingDay is one unresolved (person, discipline, day) triple.
type PendingDay struct {
	Person     PersonID
	Discipline Discipline
	Date       Day
}

// DetectPending returns every cell whose status is exactly Unexplained on a
// chargeable day, in grid order.
func DetectPending(result *Result, cal Calendar) []PendingDay {
	var pending []PendingDay
	for _, rec := range result.Records {
		if rec.Status.Kind != KindUnexplained {
			continue
		}
		if !cal.IsChargeable(rec.Key.Date) {
			continue
		}
		pending = append(pending, PendingDay{
			Person:     rec.Key.Person,
			Discipline: rec.Key.Discipline,
			Date:       rec.Key.Date,
		})
	}
	return pending
}
