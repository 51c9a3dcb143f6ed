package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/reconcile"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(d int) reconcile.Day {
	return reconcile.NewDay(2025, time.July, d)
}

func dayPtr(d reconcile.Day) *reconcile.Day { return &d }

func entry(person, discipline string, date reconcile.Day, normal, extra float64) reconcile.TimeEntry {
	return reconcile.TimeEntry{
		Person:      reconcile.PersonID(person),
		Discipline:  reconcile.Discipline(discipline),
		Date:        date,
		NormalHours: decimal.NewFromFloat(normal),
		ExtraHours:  decimal.NewFromFloat(extra),
	}
}

func member(person, discipline string) reconcile.RosterMember {
	return reconcile.RosterMember{
		Person:     reconcile.PersonID(person),
		Discipline: reconcile.Discipline(discipline),
		Category:   reconcile.DefaultCategory,
	}
}

func key(person, discipline string, date reconcile.Day) reconcile.GridKey {
	return reconcile.GridKey{
		Person:     reconcile.PersonID(person),
		Discipline: reconcile.Discipline(discipline),
		Date:       date,
	}
}

func runEngine(t *testing.T, in reconcile.Inputs) *reconcile.Result {
	t.Helper()
	result, err := reconcile.NewEngine(nil).Run(in)
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	return result
}

// baseInputs: one worker, entries on July 1-2, window July 1-5.
func baseInputs() reconcile.Inputs {
	return reconcile.Inputs{
		Entries: []reconcile.TimeEntry{
			entry("ANA", "CIVIL", day(1), 8, 0),
			entry("ANA", "CIVIL", day(2), 8, 1),
		},
		Roster: reconcile.NewRoster([]reconcile.RosterMember{member("ANA", "CIVIL")}),
		Cutoff: day(5),
	}
}

// =============================================================================
// GRID TOTALITY AND SHAPE
// =============================================================================

func TestRun_AssignsExactlyOneStatusPerCell(t *testing.T) {
	// GIVEN: One active worker, window July 1-5
	// THEN: Exactly 5 records exist, one per day, no duplicates

	result := runEngine(t, baseInputs())

	if len(result.Records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(result.Records))
	}
	seen := make(map[reconcile.GridKey]bool)
	for _, rec := range result.Records {
		if seen[rec.Key] {
			t.Errorf("duplicate status for %v", rec.Key)
		}
		seen[rec.Key] = true
	}
}

func TestRun_WindowStartsAtMonthStartAndClampsToCutoff(t *testing.T) {
	// GIVEN: Earliest entry on July 15, cutoff July 20
	in := reconcile.Inputs{
		Entries: []reconcile.TimeEntry{entry("ANA", "CIVIL", day(15), 8, 0)},
		Roster:  reconcile.NewRoster([]reconcile.RosterMember{member("ANA", "CIVIL")}),
		Cutoff:  day(20),
	}

	result := runEngine(t, in)

	if !result.Window.Start.Equal(day(1)) {
		t.Errorf("window should start at month start, got %s", result.Window.Start)
	}
	if !result.Window.End.Equal(day(20)) {
		t.Errorf("window should clamp to cutoff, got %s", result.Window.End)
	}
}

func TestRun_ZeroEntryDaysStillAppearInGrid(t *testing.T) {
	// A missing day must be explainable, not silently absent.
	result := runEngine(t, baseInputs())

	status, ok := result.StatusAt(key("ANA", "CIVIL", day(4)))
	if !ok {
		t.Fatal("expected a record for a day with no entries")
	}
	if status.Kind != reconcile.KindUnexplained {
		t.Errorf("expected Unexplained, got %s", status.Kind)
	}
}

func TestRun_PersonOutsideCategoryIsExcludedEntirely(t *testing.T) {
	// GIVEN: BOB is in the roster but under an indirect category
	in := baseInputs()
	in.Entries = append(in.Entries, entry("BOB", "CIVIL", day(1), 8, 0))
	in.Roster = reconcile.NewRoster([]reconcile.RosterMember{
		member("ANA", "CIVIL"),
		{Person: "BOB", Discipline: "CIVIL", Category: "MOI"},
	})

	result := runEngine(t, in)

	for _, rec := range result.Records {
		if rec.Key.Person == "BOB" {
			t.Fatal("BOB must not enter the grid")
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	// Running the engine twice on identical inputs yields identical records.
	in := baseInputs()
	in.Justifications = []reconcile.Justification{
		{Person: "ANA", Discipline: "CIVIL", Date: day(3), Code: reconcile.DeviationAbsent},
	}

	a := runEngine(t, in)
	b := runEngine(t, in)

	if len(a.Records) != len(b.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(a.Records), len(b.Records))
	}
	for i := range a.Records {
		ra, rb := a.Records[i], b.Records[i]
		if ra.Key != rb.Key || ra.Status.Kind != rb.Status.Kind ||
			ra.Status.Code != rb.Status.Code || !ra.Status.Hours.Equal(rb.Status.Hours) {
			t.Errorf("record %d differs: %+v vs %+v", i, ra, rb)
		}
	}
}

// =============================================================================
// PRIORITY CHAIN
// =============================================================================

func TestChain_TerminatedBeatsUnexplained(t *testing.T) {
	// A cell matching both "terminated" and "unexplained" resolves Terminated.
	in := baseInputs()
	in.Lifecycle = []reconcile.LifecycleWindow{
		{Person: "ANA", Discipline: "CIVIL", Termination: dayPtr(day(3))},
	}

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(4)))
	if status.Kind != reconcile.KindTerminated {
		t.Errorf("expected Terminated, got %s", status.Kind)
	}
	// Termination day itself is not yet terminated (strictly after).
	status, _ = result.StatusAt(key("ANA", "CIVIL", day(3)))
	if status.Kind == reconcile.KindTerminated {
		t.Error("termination day itself must not be Terminated")
	}
}

func TestChain_JustificationBeatsHours(t *testing.T) {
	// A cell with both a justification and hours > 0 resolves to the code.
	in := baseInputs()
	in.Justifications = []reconcile.Justification{
		{Person: "ANA", Discipline: "CIVIL", Date: day(1), Code: reconcile.DeviationMedicalCertificate, Context: "front A"},
	}

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(1)))
	if status.Kind != reconcile.KindJustified {
		t.Fatalf("expected Justified, got %s", status.Kind)
	}
	if status.DisplayCode() != "AT" {
		t.Errorf("expected display AT, got %q", status.DisplayCode())
	}
	if status.Note != "front A" {
		t.Errorf("expected context carried through, got %q", status.Note)
	}
}

func TestChain_JustificationBeatsLifecycle(t *testing.T) {
	// Justification is an explicit human decision and wins over automatic
	// lifecycle inference.
	in := baseInputs()
	in.Lifecycle = []reconcile.LifecycleWindow{
		{Person: "ANA", Discipline: "CIVIL", Termination: dayPtr(day(2))},
	}
	in.Justifications = []reconcile.Justification{
		{Person: "ANA", Discipline: "CIVIL", Date: day(4), Code: reconcile.DeviationSpecialPermission},
	}

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(4)))
	if status.Kind != reconcile.KindJustified {
		t.Errorf("justification must override terminated, got %s", status.Kind)
	}
}

func TestChain_VacationBeatsMedicalLeave(t *testing.T) {
	// Overlapping vacation and medical windows: vacation rule commits first.
	in := baseInputs()
	in.Leaves = []reconcile.LeaveWindow{
		{Person: "ANA", Discipline: "CIVIL", Kind: reconcile.LeaveMedical, Start: day(3), End: day(5)},
		{Person: "ANA", Discipline: "CIVIL", Kind: reconcile.LeaveVacation, Start: day(3), End: day(5)},
	}

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(4)))
	if status.Kind != reconcile.KindVacation {
		t.Errorf("expected Vacation, got %s", status.Kind)
	}
}

func TestChain_TerminatedBeatsVacation(t *testing.T) {
	in := baseInputs()
	in.Lifecycle = []reconcile.LifecycleWindow{
		{Person: "ANA", Discipline: "CIVIL", Termination: dayPtr(day(2))},
	}
	in.Leaves = []reconcile.LeaveWindow{
		{Person: "ANA", Discipline: "CIVIL", Kind: reconcile.LeaveVacation, Start: day(3), End: day(5)},
	}

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(4)))
	if status.Kind != reconcile.KindTerminated {
		t.Errorf("expected Terminated, got %s", status.Kind)
	}
}

func TestChain_PreAdmission(t *testing.T) {
	in := baseInputs()
	in.Lifecycle = []reconcile.LifecycleWindow{
		{Person: "ANA", Discipline: "CIVIL", Admission: dayPtr(day(3))},
	}

	result := runEngine(t, in)

	// July 1 has hours; hours rule is below pre-admission but the entry
	// pre-dates admission, so pre-admission wins.
	status, _ := result.StatusAt(key("ANA", "CIVIL", day(1)))
	if status.Kind != reconcile.KindNotYetHired {
		t.Errorf("expected NotYetHired before admission, got %s", status.Kind)
	}
	status, _ = result.StatusAt(key("ANA", "CIVIL", day(3)))
	if status.Kind == reconcile.KindNotYetHired {
		t.Error("admission day itself must not be NotYetHired")
	}
}

func TestChain_InvertedLifecycleClassifiesEveryDayTerminated(t *testing.T) {
	// Termination before admission is not rejected: Terminated fires first
	// for every day after termination. Accepted edge case.
	in := baseInputs()
	in.Lifecycle = []reconcile.LifecycleWindow{
		{Person: "ANA", Discipline: "CIVIL", Admission: dayPtr(day(10)), Termination: dayPtr(reconcile.NewDay(2025, time.June, 1))},
	}

	result := runEngine(t, in)

	for _, rec := range result.Records {
		if rec.Status.Kind != reconcile.KindTerminated {
			t.Fatalf("expected Terminated on %s, got %s", rec.Key.Date, rec.Status.Kind)
		}
	}
}

func TestChain_LastJustificationWinsOnDuplicateKey(t *testing.T) {
	in := baseInputs()
	in.Justifications = []reconcile.Justification{
		{Person: "ANA", Discipline: "CIVIL", Date: day(3), Code: reconcile.DeviationAbsent},
		{Person: "ANA", Discipline: "CIVIL", Date: day(3), Code: reconcile.DeviationDependentCare},
	}

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(3)))
	if status.Code != reconcile.DeviationDependentCare {
		t.Errorf("expected last write to win, got %s", status.Code)
	}
}

// =============================================================================
// CALENDAR SEMANTICS
// =============================================================================

func TestCalendar_NonChargeableDayWithHoursIsInformational(t *testing.T) {
	// GIVEN: July 1 is not chargeable but ANA worked 8 hours
	in := baseInputs()
	in.Calendar = reconcile.NewCalendar(map[reconcile.Day]bool{
		day(1): false, day(2): true, day(3): true, day(4): true, day(5): true,
	})

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(1)))
	if status.Kind != reconcile.KindNoCharge {
		t.Fatalf("expected NoCharge, got %s", status.Kind)
	}
	// Hours are displayed, tagged informationally, never an error.
	if status.DisplayCode() != "8,00" {
		t.Errorf("expected hours shown on non-chargeable day, got %q", status.DisplayCode())
	}
	if status.CellClass() != "hours-cell" {
		t.Errorf("expected hours-cell class, got %q", status.CellClass())
	}
}

func TestCalendar_NonChargeableDayWithoutHoursRendersEmpty(t *testing.T) {
	in := baseInputs()
	in.Calendar = reconcile.NewCalendar(map[reconcile.Day]bool{
		day(1): true, day(2): true, day(3): false, day(4): true, day(5): true,
	})

	result := runEngine(t, in)

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(3)))
	if status.Kind != reconcile.KindNoCharge {
		t.Fatalf("expected NoCharge, got %s", status.Kind)
	}
	if status.DisplayCode() != "" {
		t.Errorf("expected empty display, got %q", status.DisplayCode())
	}
	if status.CellClass() != "code-nocharge" {
		t.Errorf("expected code-nocharge class, got %q", status.CellClass())
	}
}

func TestCalendar_AbsentCalendarTreatsEveryDayChargeable(t *testing.T) {
	// Fail-open: no calendar source means the non-chargeable rule never fires.
	result := runEngine(t, baseInputs())

	for _, rec := range result.Records {
		if rec.Status.Kind == reconcile.KindNoCharge {
			t.Fatalf("NoCharge must not fire without a calendar (day %s)", rec.Key.Date)
		}
	}
}

// =============================================================================
// DEGRADED SOURCES
// =============================================================================

func TestRun_MissingReferenceSourcesDegradeGracefully(t *testing.T) {
	// Entries alone: every reference rule silently never fires.
	in := reconcile.Inputs{
		Entries: []reconcile.TimeEntry{entry("ANA", "CIVIL", day(1), 8, 0)},
		Cutoff:  day(3),
	}

	result := runEngine(t, in)

	status, ok := result.StatusAt(key("ANA", "CIVIL", day(1)))
	if !ok || status.Kind != reconcile.KindHours {
		t.Errorf("expected Hours with no reference tables, got %v (ok=%v)", status.Kind, ok)
	}
}

func TestRun_NoInputSourcesIsStructuralFailure(t *testing.T) {
	_, err := reconcile.NewEngine(nil).Run(reconcile.Inputs{Cutoff: day(5)})
	if !reconcile.IsStructural(err) {
		t.Fatalf("expected structural failure, got %v", err)
	}
}

func TestRun_HoursDisplayUsesCommaSeparator(t *testing.T) {
	result := runEngine(t, baseInputs())

	status, _ := result.StatusAt(key("ANA", "CIVIL", day(2)))
	if status.Kind != reconcile.KindHours {
		t.Fatalf("expected Hours, got %s", status.Kind)
	}
	if status.DisplayCode() != "9,00" {
		t.Errorf("expected 9,00, got %q", status.DisplayCode())
	}
}
