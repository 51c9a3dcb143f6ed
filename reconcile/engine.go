/*
engine.go - The reconciliation engine and its rule-priority chain

PURPOSE:
  For every (person, discipline, day) cell in the coverage window, applies
  the priority chain and emits exactly one StatusRecord. First match wins;
  once a rule commits, all later rules are skipped.

THE CHAIN:
  1. Non-chargeable day  -> NoCharge (hours shown informationally if present)
  2. Explicit justification -> its deviation code (overrides everything,
     including recorded hours: a human decision beats automatic inference)
  3. Day after termination  -> Terminated
  4. Vacation window        -> OnVacation
  5. Medical-leave window   -> OnMedicalLeave
  6. Day before admission   -> NotYetHired
  7. Default: hours if any were worked, Unexplained otherwise

  Lifecycle facts are authoritative employment-system facts and beat the
  mere absence of hours; Unexplained is the residual default and is never
  assigned when a stronger fact applies.

FAILURE SEMANTICS:
  Each missing reference source is treated as "no rows" and its rule simply
  never fires. Only the complete absence of inputs (no entries AND no
  roster) is an error.

PURITY:
  A run reads a fixed snapshot and returns; it owns no mutable state
  between runs. Identical inputs produce identical output, record for
  record.

SEE ALSO:
  - types.go:   Status and StatusRecord definitions
  - pending.go: Derived view over the engine's output
*/
package reconcile

import (
	"log/slog"
	"sort"
)

// =============================================================================
// INPUTS - A fixed snapshot of the five source relations
// =============================================================================

// Inputs is the read-only snapshot one reconciliation run consumes.
type Inputs struct {
	Entries        []TimeEntry
	Roster         Roster
	Category       string // employment category filter, DefaultCategory if empty
	Lifecycle      []LifecycleWindow
	Leaves         []LeaveWindow
	Calendar       Calendar
	Justifications []Justification

	// Cutoff bounds the window to completed days. Zero means Yesterday.
	Cutoff Day
}

// Result is the full output of one run.
type Result struct {
	Window  Window
	Records []StatusRecord // sorted by (discipline, person, date)
	Totals  map[GridKey]DailyTotal
}

// StatusAt returns the status for a grid cell, if the cell exists.
func (r *Result) StatusAt(key GridKey) (Status, bool) {
	for _, rec := range r.Records {
		if rec.Key == key {
			return rec.Status, true
		}
	}
	return Status{}, false
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Logger: logger}
}

// Run reconciles one snapshot into a status grid.
func (e *Engine) Run(in Inputs) (*Result, error) {
	if len(in.Entries) == 0 && in.Roster.Empty() {
		return nil, ErrNoInputSources
	}

	category := in.Category
	if category == "" {
		category = DefaultCategory
	}
	cutoff := in.Cutoff
	if cutoff.IsZero() {
		cutoff = Yesterday()
	}

	totals := Aggregate(in.Entries)
	window, err := CoverageWindow(totals, cutoff)
	if err != nil {
		return nil, err
	}

	idx := buildIndexes(in)
	rows := e.gridRows(in, totals, category)
	days := window.Days()

	records := make([]StatusRecord, 0, len(rows)*len(days))
	for _, row := range rows {
		for _, day := range days {
			key := GridKey{Person: row.Person, Discipline: row.Discipline, Date: day}
			records = append(records, StatusRecord{
				Key:    key,
				Status: e.evaluate(key, totals, in.Calendar, idx),
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Key, records[j].Key
		if a.Discipline != b.Discipline {
			return a.Discipline < b.Discipline
		}
		if a.Person != b.Person {
			return a.Person < b.Person
		}
		return a.Date.Before(b.Date)
	})

	e.Logger.Info("reconciliation run complete",
		"window", window.String(),
		"rows", len(rows),
		"cells", len(records),
	)
	return &Result{Window: window, Records: records, Totals: totals}, nil
}

// gridRows returns the distinct (person, discipline) pairs the grid covers:
// active roster pairs plus entry-observed pairs whose person is active.
// A person with zero entries must still appear, so a missing day is
// explainable instead of silently absent.
func (e *Engine) gridRows(in Inputs, totals map[GridKey]DailyTotal, category string) []RosterMember {
	seen := make(map[GridKey]bool)
	var rows []RosterMember

	add := func(person PersonID, discipline Discipline) {
		key := GridKey{Person: person, Discipline: discipline}
		if seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, RosterMember{Person: person, Discipline: discipline})
	}

	for _, m := range in.Roster.Active(category) {
		add(m.Person, m.Discipline)
	}
	for key := range totals {
		// Hard filter: persons outside the category never enter the grid.
		// With no roster source at all, entry-observed pairs stand alone.
		if in.Roster.Empty() || in.Roster.IsActive(key.Person, category) {
			add(key.Person, key.Discipline)
		}
	}
	return rows
}

// =============================================================================
// RULE EVALUATION
// =============================================================================

type personDiscipline struct {
	Person     PersonID
	Discipline Discipline
}

type indexes struct {
	justifications map[GridKey]Justification
	lifecycle      map[personDiscipline]LifecycleWindow
	leaves         map[personDiscipline][]LeaveWindow
}

func buildIndexes(in Inputs) indexes {
	idx := indexes{
		justifications: make(map[GridKey]Justification, len(in.Justifications)),
		lifecycle:      make(map[personDiscipline]LifecycleWindow, len(in.Lifecycle)),
		leaves:         make(map[personDiscipline][]LeaveWindow, len(in.Leaves)),
	}
	// Duplicate justifications for the same key: last write wins.
	for _, j := range in.Justifications {
		idx.justifications[GridKey{Person: j.Person, Discipline: j.Discipline, Date: j.Date}] = j
	}
	for _, lw := range in.Lifecycle {
		pd := personDiscipline{lw.Person, lw.Discipline}
		if _, ok := idx.lifecycle[pd]; !ok {
			idx.lifecycle[pd] = lw
		}
	}
	for _, leave := range in.Leaves {
		pd := personDiscipline{leave.Person, leave.Discipline}
		idx.leaves[pd] = append(idx.leaves[pd], leave)
	}
	return idx
}

// evaluate applies the priority chain to one cell. First match wins.
func (e *Engine) evaluate(key GridKey, totals map[GridKey]DailyTotal, cal Calendar, idx indexes) Status {
	total, hasHours := totals[key]

	// Rule 1: non-chargeable day.
	if cal.Present() && !cal.IsChargeable(key.Date) {
		s := Status{Kind: KindNoCharge}
		if hasHours && total.Total.IsPositive() {
			s.Hours = total.Total
		}
		return s
	}

	// Rule 2: explicit justification beats everything below, hours included.
	if j, ok := idx.justifications[key]; ok {
		return Status{Kind: KindJustified, Code: j.Code, Note: j.Context}
	}

	pd := personDiscipline{key.Person, key.Discipline}
	lw, hasLifecycle := idx.lifecycle[pd]

	// Rule 3: terminated.
	if hasLifecycle && lw.Termination != nil && key.Date.After(*lw.Termination) {
		return Status{Kind: KindTerminated}
	}

	// Rules 4 and 5: leave membership, vacation before medical.
	for _, leave := range idx.leaves[pd] {
		if leave.Kind == LeaveVacation && leave.Contains(key.Date) {
			return Status{Kind: KindVacation}
		}
	}
	for _, leave := range idx.leaves[pd] {
		if leave.Kind == LeaveMedical && leave.Contains(key.Date) {
			return Status{Kind: KindMedicalLeave}
		}
	}

	// Rule 6: pre-admission.
	if hasLifecycle && lw.Admission != nil && key.Date.Before(*lw.Admission) {
		return Status{Kind: KindNotYetHired}
	}

	// Rule 7: residual default.
	if hasHours && total.Total.IsPositive() {
		return Status{Kind: KindHours, Hours: total.Total}
	}
	return Status{Kind: KindUnexplained}
}
