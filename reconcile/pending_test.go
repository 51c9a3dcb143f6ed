package reconcile_test

import (
	"testing"

	"github.com/warp/attendance-engine/reconcile"
)

func TestPending_WorkerWithZeroEntriesOverFiveDayWindow(t *testing.T) {
	// GIVEN: BOB is active, has zero entries, no leave, no justification,
	//        active employment window, all days chargeable, 5-day window
	// THEN: Pending count for BOB equals 5

	in := baseInputs()
	in.Roster = reconcile.NewRoster([]reconcile.RosterMember{
		member("ANA", "CIVIL"),
		member("BOB", "CIVIL"),
	})

	result := runEngine(t, in)
	pending := reconcile.DetectPending(result, in.Calendar)

	count := 0
	for _, p := range pending {
		if p.Person == "BOB" {
			count++
		}
	}
	if count != 5 {
		t.Errorf("expected 5 pending days for BOB, got %d", count)
	}
}

func TestPending_ExplainedCellsAreNeverPending(t *testing.T) {
	in := baseInputs()
	in.Roster = reconcile.NewRoster([]reconcile.RosterMember{
		member("ANA", "CIVIL"),
		member("BOB", "CIVIL"),
	})
	in.Leaves = []reconcile.LeaveWindow{
		{Person: "BOB", Discipline: "CIVIL", Kind: reconcile.LeaveVacation, Start: day(1), End: day(3)},
	}
	in.Justifications = []reconcile.Justification{
		{Person: "BOB", Discipline: "CIVIL", Date: day(4), Code: reconcile.DeviationAbsent},
	}

	result := runEngine(t, in)
	pending := reconcile.DetectPending(result, in.Calendar)

	for _, p := range pending {
		if p.Person == "BOB" && !p.Date.Equal(day(5)) {
			t.Errorf("day %s is explained and must not be pending", p.Date)
		}
	}
}

func TestPending_NonChargeableDaysExcluded(t *testing.T) {
	in := baseInputs()
	in.Roster = reconcile.NewRoster([]reconcile.RosterMember{member("BOB", "CIVIL")})
	in.Entries = append(in.Entries, entry("BOB", "CIVIL", day(1), 8, 0))
	in.Calendar = reconcile.NewCalendar(map[reconcile.Day]bool{
		day(1): true, day(2): true, day(3): false, day(4): false, day(5): true,
	})

	result := runEngine(t, in)
	pending := reconcile.DetectPending(result, in.Calendar)

	count := 0
	for _, p := range pending {
		if p.Person == "BOB" {
			count++
		}
	}
	// Days 2 and 5 are chargeable with no hours; 3 and 4 are NoCharge.
	if count != 2 {
		t.Errorf("expected 2 pending days for BOB, got %d", count)
	}
}

func TestPending_AgreesWithGridByConstruction(t *testing.T) {
	// Every pending triple must correspond to an Unexplained grid cell.
	in := baseInputs()
	in.Roster = reconcile.NewRoster([]reconcile.RosterMember{
		member("ANA", "CIVIL"),
		member("BOB", "CIVIL"),
	})

	result := runEngine(t, in)
	pending := reconcile.DetectPending(result, in.Calendar)

	for _, p := range pending {
		status, ok := result.StatusAt(reconcile.GridKey{Person: p.Person, Discipline: p.Discipline, Date: p.Date})
		if !ok || status.Kind != reconcile.KindUnexplained {
			t.Errorf("pending %v does not map to an Unexplained cell", p)
		}
	}
}
